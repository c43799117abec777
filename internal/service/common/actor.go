//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"fmt"
	"os"
	"os/user"

	"github.com/oshokin/winget-autoupdate/internal/domain/update"
)

// Environment reports who and where the current process runs.
type Environment interface {
	Actor() (*update.Actor, error)
}

// SystemEnvironment reads identifiers from the operating system.
type SystemEnvironment struct{}

// Actor implements Environment.
func (SystemEnvironment) Actor() (*update.Actor, error) {
	return DetectActor()
}

// DetectActor gathers host and user information for the journal banner.
func DetectActor() (*update.Actor, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("hostname: %w", err)
	}

	currentUser, err := user.Current()
	if err != nil {
		return nil, fmt.Errorf("current user: %w", err)
	}

	return &update.Actor{
		Hostname: hostname,
		Username: currentUser.Username,
	}, nil
}

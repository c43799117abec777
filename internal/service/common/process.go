//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-ps"
)

// ProcessCounter counts running processes by executable name.
type ProcessCounter interface {
	CountProcesses(name string) (int, error)
}

// SystemProcesses inspects the process table of the host.
type SystemProcesses struct{}

// CountProcesses implements ProcessCounter. The current process is never counted.
// Names match case-insensitively and with or without the ".exe" extension.
func (SystemProcesses) CountProcesses(name string) (int, error) {
	processList, err := ps.Processes()
	if err != nil {
		return 0, err
	}

	var (
		wanted        = executableKey(name)
		thisProcessID = os.Getpid()
		count         int
	)

	for _, process := range processList {
		if process.Pid() == thisProcessID {
			continue
		}

		if executableKey(process.Executable()) == wanted {
			count++
		}
	}

	return count, nil
}

// executableKey normalizes an executable name or path for comparison.
func executableKey(name string) string {
	base := strings.ToLower(filepath.Base(name))

	return strings.TrimSuffix(base, ".exe")
}

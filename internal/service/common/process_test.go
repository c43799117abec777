//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestExecutableKey verifies case and extension insensitive matching.
func TestExecutableKey(t *testing.T) {
	t.Parallel()

	require.Equal(t, "winget", executableKey("winget"))
	require.Equal(t, "winget", executableKey("WinGet.EXE"))
	require.Equal(t, "winget", executableKey(filepath.Join("apps", "winget.exe")))
	require.NotEqual(t, executableKey("winget"), executableKey("wingetcreate"))
}

// TestCountProcesses_Unknown ensures a name nobody runs is counted as zero.
func TestCountProcesses_Unknown(t *testing.T) {
	t.Parallel()

	count, err := SystemProcesses{}.CountProcesses("surely-not-running-" + t.Name())
	require.NoError(t, err)
	require.Zero(t, count)
}

// Command winget-autoupdate upgrades installed software through the Windows
// Package Manager and journals the result, for use from Task Scheduler.
package main

import "github.com/oshokin/winget-autoupdate/cmd/winget-autoupdate/cmd"

func main() {
	cmd.Execute()
}

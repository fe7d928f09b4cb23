// Package cmd implements the svccore command-line front end: a single
// foreground process that installs a manifest into a container and then
// offers an interactive shell for inspecting and steering it.
package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"svccore/internal/controller"
)

// Exit codes, following the convention of mapping distinct failure
// classes onto distinct codes for scripting and automation.
const (
	ExitCodeSuccess  = 0
	ExitCodeError    = 1
	ExitCodeNotFound = 2
)

// rootCmd is the entry point when svccore is invoked without a subcommand.
var rootCmd = &cobra.Command{
	Use:   "svccore",
	Short: "Dependency-aware service container",
	Long: `svccore installs a manifest of process-backed services into an
in-process container, drives each through its lifecycle according to its
declared mode and dependencies, and offers a shell for inspecting and
steering the running set.`,
	SilenceUsage: true,
}

// SetVersion injects the build-time version into the root command.
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute runs the CLI, exiting the process with a code derived from any
// returned error.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "svccore version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitCodeFor(err))
	}
}

func exitCodeFor(err error) int {
	if controller.IsNotFound(err) {
		return ExitCodeNotFound
	}
	return ExitCodeError
}

func init() {
	rootCmd.AddCommand(newUpCmd())
	rootCmd.AddCommand(newShellCmd())
	rootCmd.AddCommand(newVersionCmd())
}

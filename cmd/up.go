package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"svccore/pkg/logging"
)

func newUpCmd() *cobra.Command {
	var varFlags []string
	var logLevel string
	var quiet bool

	c := &cobra.Command{
		Use:   "up <manifest.yaml>",
		Short: "Install a manifest and open an interactive shell",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			logging.InitForCLI(parseLevel(logLevel), os.Stderr)

			vars, err := parseVars(varFlags)
			if err != nil {
				return err
			}

			s := newSession()
			if err := installWithSpinner(s, args[0], vars, quiet); err != nil {
				return fmt.Errorf("up: %w", err)
			}
			return runShell(s)
		},
	}

	c.Flags().StringArrayVar(&varFlags, "var", nil, "template variable as key=value, may be repeated")
	c.Flags().StringVar(&logLevel, "log-level", "info", "debug, info, warn, or error")
	c.Flags().BoolVar(&quiet, "quiet", false, "suppress the installation spinner")
	return c
}

// installWithSpinner installs path into s, showing a spinner for the
// duration unless quiet is set (e.g. because output is being piped).
func installWithSpinner(s *session, path string, vars map[string]any, quiet bool) error {
	if quiet {
		return s.loadManifest(path, vars)
	}
	sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	sp.Suffix = " Installing " + path + "..."
	sp.Start()
	err := s.loadManifest(path, vars)
	sp.Stop()
	return err
}

func parseVars(flags []string) (map[string]any, error) {
	if len(flags) == 0 {
		return nil, nil
	}
	vars := make(map[string]any, len(flags))
	for _, f := range flags {
		k, v, ok := strings.Cut(f, "=")
		if !ok {
			return nil, fmt.Errorf("--var %q: want key=value", f)
		}
		vars[k] = v
	}
	return vars, nil
}

func parseLevel(s string) logging.LogLevel {
	switch strings.ToLower(s) {
	case "debug":
		return logging.LevelDebug
	case "warn":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}

package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"svccore/pkg/logging"
)

const promptPrefix = "svccore> "

var shellCompleter = readline.NewPrefixCompleter(
	readline.PcItem("status"),
	readline.PcItem("mode"),
	readline.PcItem("retry"),
	readline.PcItem("install"),
	readline.PcItem("watch"),
	readline.PcItem("help"),
	readline.PcItem("exit"),
)

func newShellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Start an empty container and an interactive shell",
		RunE: func(c *cobra.Command, args []string) error {
			return runShell(newSession())
		},
	}
}

// runShell drives the interactive REPL over s until the user types exit
// or sends EOF (Ctrl-D).
func runShell(s *session) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:       promptPrefix,
		AutoComplete: shellCompleter,
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	var watchStop chan struct{}
	defer func() {
		if watchStop != nil {
			close(watchStop)
		}
	}()

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		cmdName, args := fields[0], fields[1:]

		switch cmdName {
		case "status":
			printStatus(s)
		case "mode":
			if len(args) != 2 {
				fmt.Println("usage: mode <service> <NEVER|ON_DEMAND|PASSIVE|ACTIVE|REMOVE>")
				continue
			}
			if err := setMode(s, args[0], args[1]); err != nil {
				fmt.Println("error:", err)
			}
		case "retry":
			if len(args) != 1 {
				fmt.Println("usage: retry <service>")
				continue
			}
			if err := retry(s, args[0]); err != nil {
				fmt.Println("error:", err)
			}
		case "install":
			if len(args) != 1 {
				fmt.Println("usage: install <manifest.yaml>")
				continue
			}
			if err := s.loadManifest(args[0], nil); err != nil {
				fmt.Println("error:", err)
			}
		case "watch":
			if len(args) != 1 {
				fmt.Println("usage: watch <manifest.yaml>")
				continue
			}
			if watchStop != nil {
				close(watchStop)
			}
			watchStop = make(chan struct{})
			path := args[0]
			stop := watchStop
			go func() {
				if err := watchManifest(s, path, nil, stop); err != nil {
					logging.Error("cli", err, "watch stopped")
				}
			}()
			fmt.Println("watching", path)
		case "help":
			printShellHelp()
		case "exit", "quit":
			return nil
		default:
			fmt.Printf("unknown command %q; type help for a list\n", cmdName)
		}
	}
}

func printShellHelp() {
	fmt.Println(`commands:
  status                                         show every installed service
  mode <service> <NEVER|ON_DEMAND|PASSIVE|ACTIVE|REMOVE>
                                                  change a service's mode
  retry <service>                                clear a captured start failure and retry
  install <manifest.yaml>                        install additional services
  watch <manifest.yaml>                          reapply the manifest on every change
  exit                                           leave the shell`)
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the svccore version",
		RunE: func(c *cobra.Command, args []string) error {
			fmt.Printf("svccore version %s\n", c.Root().Version)
			return nil
		},
	}
}

package cmd

import (
	"os"

	"github.com/jedib0t/go-pretty/v6/table"

	"svccore/internal/container"
)

// printStatus renders one row per installed service as a table, via
// go-pretty.
func printStatus(s *session) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"NAME", "MODE", "SUBSTATE", "STATE", "DOWN DEPS", "DEMANDED BY", "FAIL COUNT", "PROBLEM"})

	for _, line := range container.Profile(s.registry) {
		t.AppendRow(table.Row{
			line.Name, line.Mode, line.Substate, line.State,
			line.DownDependencies, line.DemandedByCount, line.FailCount, line.HasProblem,
		})
	}
	t.Render()
}

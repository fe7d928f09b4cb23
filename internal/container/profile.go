package container

import (
	"fmt"
	"strings"

	"svccore/internal/controller"
)

// ProfileLine is one row of a registry status dump: a service name plus
// its counters. cmd/status.go renders its fields as a table row; String
// gives the same fields in tab-separated form.
type ProfileLine struct {
	Name             string
	Mode             controller.Mode
	Substate         controller.Substate
	State            controller.State
	DownDependencies int
	DemandedByCount  int
	FailCount        int
	HasProblem       bool
}

// String renders the line tab-separated, matching the format a shell
// pipeline (cut -f, column -t) expects.
func (p ProfileLine) String() string {
	return fmt.Sprintf("%s\t%s\t%s\t%s\t%d\t%d\t%d\t%t",
		p.Name, p.Mode, p.Substate, p.State,
		p.DownDependencies, p.DemandedByCount, p.FailCount, p.HasProblem)
}

// Profile dumps one ProfileLine per installed service, sorted by name.
func Profile(r *Registry) []ProfileLine {
	names := r.Names()
	lines := make([]ProfileLine, 0, len(names))
	for _, name := range names {
		sc, err := r.Get(name)
		if err != nil {
			continue
		}
		c := sc.Snapshot()
		lines = append(lines, ProfileLine{
			Name:             name,
			Mode:             c.Mode,
			Substate:         c.Substate,
			State:            controller.CoarseState(c.Substate),
			DownDependencies: c.DownDependencies,
			DemandedByCount:  c.DemandedByCount,
			FailCount:        c.FailCount,
			HasProblem:       c.HasProblem(),
		})
	}
	return lines
}

// ProfileText joins Profile's lines with a trailing newline, for dumping
// straight to a file or pipe.
func ProfileText(r *Registry) string {
	lines := Profile(r)
	rows := make([]string, 0, len(lines))
	for _, l := range lines {
		rows = append(rows, l.String())
	}
	return strings.Join(rows, "\n") + "\n"
}

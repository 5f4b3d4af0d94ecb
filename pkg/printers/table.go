package printers

import (
	"fmt"
	"sort"
	"time"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"

	"tableflip.dev/bands/pkg/plan"
	"tableflip.dev/bands/pkg/reconcile"
)

// Groups prints one row per group of p.
func (pp *PrettyPrint) Groups(p plan.Plan) {
	bold := color.New(color.Bold)

	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow(bold.Sprint("#"), bold.Sprint("Group"), bold.Sprint("Entries"), bold.Sprint("Enabled"), bold.Sprint("Collapsed"))
	for i, g := range p.Groups {
		tbl.AddRow(i+1, g.Name, len(g.Entries), yesNo(g.Enabled), yesNo(g.Collapsed))
	}
	tbl.RightAlign(0)
	tbl.RightAlign(2)

	_, _ = fmt.Fprintln(pp.out(), tbl)
}

// Stats prints rebuild counters, reasons sorted by name.
func (pp *PrettyPrint) Stats(s reconcile.Stats) {
	bold := color.New(color.Bold)

	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow(bold.Sprint("Rebuilds"), s.Count)
	tbl.AddRow(bold.Sprint("Applied"), s.Applied)
	tbl.AddRow(bold.Sprint("Unchanged"), s.Unchanged)
	tbl.AddRow(bold.Sprint("Missing"), s.Missing)
	tbl.AddRow(bold.Sprint("Total"), s.Total.Round(time.Microsecond))

	reasons := make([]string, 0, len(s.Reasons))
	for r := range s.Reasons {
		reasons = append(reasons, string(r))
	}
	sort.Strings(reasons)
	for _, r := range reasons {
		tbl.AddRow("  "+r, s.Reasons[reconcile.Reason(r)])
	}

	_, _ = fmt.Fprintln(pp.out(), tbl)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return color.New(color.Faint).Sprint("no")
}

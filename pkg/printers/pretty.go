package printers

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"tableflip.dev/bands/pkg/entry"
	"tableflip.dev/bands/pkg/plan"
)

type PrettyPrint struct {
	ShowID bool
	Out    io.Writer
}

var (
	spacing = strings.Repeat(" ", len("0000  "))
)

func (pp *PrettyPrint) out() io.Writer {
	if pp.Out == nil {
		return color.Output
	}
	return pp.Out
}

func (pp *PrettyPrint) NewLine() {
	_, _ = fmt.Fprintln(pp.out())
}

func (pp *PrettyPrint) Title(title string) {
	t := color.New(color.Bold, color.Underline)

	if pp.ShowID {
		_, _ = t.Fprint(pp.out(), spacing)
	}
	_, _ = t.Fprintln(pp.out(), title)
}

func (pp *PrettyPrint) TitleWithCount(title string, count int) {
	t := color.New(color.Bold, color.Underline)
	c := color.New(color.Faint)

	if pp.ShowID {
		_, _ = t.Fprint(pp.out(), spacing)
	}
	_, _ = t.Fprint(pp.out(), title)
	_, _ = c.Fprintf(pp.out(), " - %d", count)

	switch count {
	case 1:
		_, _ = c.Fprintln(pp.out(), " entry")
	default:
		_, _ = c.Fprintln(pp.out(), " entries")
	}
}

// Entries prints one line per entry with its raw comment.
func (pp *PrettyPrint) Entries(entries ...*entry.Entry) {
	if len(entries) == 0 {
		f := color.New(color.Faint, color.Italic)
		if pp.ShowID {
			_, _ = f.Fprint(pp.out(), spacing)
		}
		_, _ = f.Fprint(pp.out(), " none\n\n")
		return
	}

	t := color.New()
	y := color.New(color.FgHiYellow, color.Italic, color.Faint)
	off := color.New(color.Faint, color.CrossedOut)

	for _, e := range entries {
		if pp.ShowID {
			_, _ = y.Fprint(pp.out(), pad(e.ID))
		}
		line := t
		if disabled, _ := e.Disabled(); disabled {
			line = off
		}
		_, _ = line.Fprintln(pp.out(), e.Raw)
	}
	_, _ = t.Fprintln(pp.out())
}

// Plan prints each group of p followed by the entries no group claims.
func (pp *PrettyPrint) Plan(p plan.Plan, entries []*entry.Entry) {
	state := color.New(color.Faint)
	for _, g := range p.Groups {
		pp.TitleWithCount(g.Name, len(g.Entries))
		var flags []string
		if !g.Enabled {
			flags = append(flags, "disabled")
		}
		if g.Collapsed {
			flags = append(flags, "collapsed")
		}
		if len(flags) > 0 {
			if pp.ShowID {
				_, _ = state.Fprint(pp.out(), spacing)
			}
			_, _ = state.Fprintf(pp.out(), "(%s)\n", strings.Join(flags, ", "))
		}
		if g.Collapsed {
			pp.NewLine()
			continue
		}
		pp.titles(g.Entries)
	}

	var loose []*entry.Entry
	for _, e := range entries {
		if !e.Grouped() {
			loose = append(loose, e)
		}
	}
	if len(loose) > 0 || p.Empty() {
		pp.TitleWithCount("Ungrouped", len(loose))
		pp.titles(loose)
	}
}

func (pp *PrettyPrint) titles(entries []*entry.Entry) {
	y := color.New(color.FgHiYellow, color.Italic, color.Faint)
	for _, e := range entries {
		if pp.ShowID {
			_, _ = y.Fprint(pp.out(), pad(e.ID))
		}
		_, _ = fmt.Fprintf(pp.out(), "  %s\n", e.Title())
	}
	pp.NewLine()
}

func pad(id string) string {
	if len(id) >= len(spacing) {
		return id + " "
	}
	return id + strings.Repeat(" ", len(spacing)-len(id))
}

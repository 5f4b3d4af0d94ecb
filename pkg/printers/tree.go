package printers

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss/v2"

	"tableflip.dev/bands/pkg/dom"
	"tableflip.dev/bands/pkg/widget"
)

// Block is one top-level item of the entry list: a band, or a lone entry
// when Group is empty.
type Block struct {
	Group     string   `json:"group,omitempty"`
	Collapsed bool     `json:"collapsed,omitempty"`
	Disabled  bool     `json:"disabled,omitempty"`
	Entries   []string `json:"entries"`
}

// Blocks reads the rendered layout of list. label names an entry node.
func Blocks(list *dom.Node, label func(*dom.Node) string) []Block {
	var out []Block
	if list == nil {
		return out
	}
	for _, c := range list.Children() {
		switch {
		case widget.IsBand(c):
			b := Block{
				Group:     widget.GroupOf(c),
				Collapsed: c.HasClass(widget.CollapsedClass),
				Disabled:  c.HasClass(widget.DisabledClass),
			}
			for _, m := range c.Children() {
				if widget.IsInjected(m) {
					continue
				}
				b.Entries = append(b.Entries, label(m))
			}
			out = append(out, b)
		case widget.IsInjected(c):
			// toolbar or stray header
		default:
			out = append(out, Block{Entries: []string{label(c)}})
		}
	}
	return out
}

// Styles for RenderTree.
type Styles struct {
	Header    lipgloss.Style
	Disabled  lipgloss.Style
	Count     lipgloss.Style
	Entry     lipgloss.Style
	Band      lipgloss.Style
	Ungrouped lipgloss.Style
}

// DefaultStyles returns the built-in styles.
func DefaultStyles() Styles {
	header := lipgloss.NewStyle().
		Foreground(lipgloss.Color("212")).
		Bold(true)
	return Styles{
		Header:    header,
		Disabled:  header.Foreground(lipgloss.Color("241")).Strikethrough(true),
		Count:     lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		Entry:     lipgloss.NewStyle(),
		Band:      lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(lipgloss.Color("240")).PaddingLeft(1),
		Ungrouped: lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
	}
}

// RenderTree draws blocks with a header line per band. Members of
// collapsed bands are omitted.
func RenderTree(blocks []Block, st Styles) string {
	var parts []string
	for _, b := range blocks {
		if b.Group == "" {
			for _, e := range b.Entries {
				parts = append(parts, st.Ungrouped.Render("• "+e))
			}
			continue
		}
		icon := "▾"
		if b.Collapsed {
			icon = "▸"
		}
		head := st.Header
		if b.Disabled {
			head = st.Disabled
		}
		line := head.Render(icon+" "+b.Group) + " " + st.Count.Render("("+strconv.Itoa(len(b.Entries))+")")
		if b.Collapsed || len(b.Entries) == 0 {
			parts = append(parts, line)
			continue
		}
		members := make([]string, len(b.Entries))
		for i, e := range b.Entries {
			members[i] = st.Entry.Render(e)
		}
		parts = append(parts, lipgloss.JoinVertical(lipgloss.Left, line, st.Band.Render(strings.Join(members, "\n"))))
	}
	return strings.Join(parts, "\n")
}

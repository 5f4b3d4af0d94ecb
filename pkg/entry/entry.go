package entry

import (
	"fmt"

	"tableflip.dev/bands/pkg/codec"
	"tableflip.dev/bands/pkg/dom"
)

// Entry is one item of a book. Group and Title are derived from Raw on every
// call and never stored.
type Entry struct {
	ID       string         `json:"id"`
	Book     string         `json:"book,omitempty"`
	Raw      string         `json:"comment"`
	Position int            `json:"position"`
	Fields   map[string]any `json:"fields,omitempty"`
	Disable  *bool          `json:"disable,omitempty"`

	// Node is the live node rendering this entry, nil for stored records.
	Node *dom.Node `json:"-"`
}

func New(book, id, raw string) *Entry {
	return &Entry{
		ID:   id,
		Book: book,
		Raw:  raw,
	}
}

// Group returns the decoded group name, empty when ungrouped.
func (e *Entry) Group() string {
	g, _ := codec.Decode(e.Raw)
	return g
}

// Title returns the comment without its group prefix.
func (e *Entry) Title() string {
	_, t := codec.Decode(e.Raw)
	return t
}

func (e *Entry) Grouped() bool {
	return e.Group() != ""
}

// Disabled reports the per-entry enablement signal. ok is false when the
// entry carries none.
func (e *Entry) Disabled() (disabled, ok bool) {
	if e.Disable == nil {
		return false, false
	}
	return *e.Disable, true
}

func (e *Entry) SetDisabled(disabled bool) {
	e.Disable = &disabled
}

// Field returns a named field value, nil when unset.
func (e *Entry) Field(name string) any {
	if e.Fields == nil {
		return nil
	}
	return e.Fields[name]
}

func (e *Entry) SetField(name string, value any) {
	if e.Fields == nil {
		e.Fields = make(map[string]any)
	}
	e.Fields[name] = value
}

// Clone copies the entry without its live node.
func (e *Entry) Clone() *Entry {
	out := *e
	out.Node = nil
	if e.Fields != nil {
		out.Fields = make(map[string]any, len(e.Fields))
		for k, v := range e.Fields {
			out.Fields[k] = v
		}
	}
	if e.Disable != nil {
		d := *e.Disable
		out.Disable = &d
	}
	return &out
}

func (e *Entry) String() string {
	if g := e.Group(); g != "" {
		return fmt.Sprintf("[%s] %s (%s)", g, e.Title(), e.ID)
	}
	return fmt.Sprintf("%s (%s)", e.Title(), e.ID)
}

// Members returns the entries whose group is name, in input order.
func Members(entries []*Entry, name string) []*Entry {
	var out []*Entry
	for _, e := range entries {
		if e != nil && e.Group() == name {
			out = append(out, e)
		}
	}
	return out
}

// Groups returns the distinct group names in first-seen order.
func Groups(entries []*Entry) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, e := range entries {
		if e == nil {
			continue
		}
		g := e.Group()
		if g == "" {
			continue
		}
		if _, ok := seen[g]; ok {
			continue
		}
		seen[g] = struct{}{}
		out = append(out, g)
	}
	return out
}

// ByID indexes entries by id.
func ByID(entries []*Entry) map[string]*Entry {
	out := make(map[string]*Entry, len(entries))
	for _, e := range entries {
		if e != nil {
			out[e.ID] = e
		}
	}
	return out
}

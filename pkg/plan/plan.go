// Package plan computes the grouped render plan of a book. Everything here
// is pure: the same inputs always give the same plan.
package plan

import (
	"strconv"
	"strings"

	"tableflip.dev/bands/pkg/entry"
)

// Group is one band of the plan.
type Group struct {
	Name      string         `json:"name"`
	Entries   []*entry.Entry `json:"entries"`
	Enabled   bool           `json:"enabled"`
	Collapsed bool           `json:"collapsed"`
}

// IDs returns the member ids in render order.
func (g Group) IDs() []string {
	out := make([]string, len(g.Entries))
	for i, e := range g.Entries {
		out[i] = e.ID
	}
	return out
}

// Plan is the ordered list of non-empty groups.
type Plan struct {
	Groups []Group  `json:"groups"`
	Order  []string `json:"order"`
}

// Empty reports whether no group has members.
func (p Plan) Empty() bool {
	return len(p.Groups) == 0
}

// Group returns the named group.
func (p Plan) Group(name string) (Group, bool) {
	for _, g := range p.Groups {
		if g.Name == name {
			return g, true
		}
	}
	return Group{}, false
}

// Names returns the group names in render order.
func (p Plan) Names() []string {
	out := make([]string, len(p.Groups))
	for i, g := range p.Groups {
		out[i] = g.Name
	}
	return out
}

// Lookup answers a per-group flag question.
type Lookup func(group string) bool

// Option customises Compute.
type Option func(*options)

type options struct {
	enabled   Lookup
	collapsed Lookup
}

// WithEnabled sets the enabled lookup. Groups default to enabled.
func WithEnabled(fn Lookup) Option {
	return func(o *options) {
		if fn != nil {
			o.enabled = fn
		}
	}
}

// WithCollapsed sets the collapsed lookup. Groups default to expanded.
func WithCollapsed(fn Lookup) Option {
	return func(o *options) {
		if fn != nil {
			o.collapsed = fn
		}
	}
}

// Compute buckets grouped entries, keeping host order within a bucket, and
// walks order to emit one Group per name with members. Ungrouped entries
// are ignored and empty groups are omitted.
func Compute(entries []*entry.Entry, order []string, cfg SortConfig, opts ...Option) Plan {
	o := &options{
		enabled:   func(string) bool { return true },
		collapsed: func(string) bool { return false },
	}
	for _, opt := range opts {
		opt(o)
	}

	buckets := make(map[string][]*entry.Entry)
	for _, e := range entries {
		if e == nil {
			continue
		}
		if g := e.Group(); g != "" {
			buckets[g] = append(buckets[g], e)
		}
	}

	p := Plan{Order: append([]string{}, order...)}
	emitted := make(map[string]struct{}, len(order))
	for _, name := range order {
		if _, dup := emitted[name]; dup {
			continue
		}
		members := buckets[name]
		if len(members) == 0 {
			continue
		}
		emitted[name] = struct{}{}
		p.Groups = append(p.Groups, Group{
			Name:      name,
			Entries:   SortEntries(members, cfg),
			Enabled:   o.enabled(name),
			Collapsed: o.collapsed(name),
		})
	}
	return p
}

// Signature encodes the render-relevant state of p. Equal signatures mean
// the patched tree would be identical.
func (p Plan) Signature() string {
	if len(p.Groups) == 0 {
		return ""
	}
	parts := make([]string, len(p.Groups))
	for i, g := range p.Groups {
		ids := make([]string, len(g.Entries))
		for j, e := range g.Entries {
			ids[j] = strconv.Quote(e.ID)
		}
		parts[i] = strings.Join([]string{
			strconv.Quote(g.Name),
			strconv.FormatBool(g.Enabled),
			strconv.FormatBool(g.Collapsed),
			strings.Join(ids, ","),
		}, "|")
	}
	return strings.Join(parts, ";")
}

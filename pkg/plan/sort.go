package plan

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"tableflip.dev/bands/pkg/entry"
)

// Mode selects how entries inside a group are ordered.
type Mode string

const (
	// ModeNone keeps host order.
	ModeNone Mode = "none"
	// ModeAsIs keeps host order; the host already sorted the entries.
	ModeAsIs Mode = "as-is"
	// ModeField sorts by a named field.
	ModeField Mode = "field"
)

// Direction of a field sort.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// SortConfig is the sort selection read from the host controls.
type SortConfig struct {
	Mode      Mode      `json:"mode"`
	Field     string    `json:"field,omitempty"`
	Direction Direction `json:"direction,omitempty"`
	// Rule is an optional host-specific rule name, informational only.
	Rule string `json:"rule,omitempty"`
}

func (c SortConfig) String() string {
	if c.Mode != ModeField {
		if c.Mode == "" {
			return string(ModeNone)
		}
		return string(c.Mode)
	}
	return c.Field + ":" + string(c.Direction)
}

// ParseSort reads "none", "as-is", "field" or "field:asc|desc".
func ParseSort(s string) (SortConfig, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	switch s {
	case "", string(ModeNone):
		return SortConfig{Mode: ModeNone}, nil
	case string(ModeAsIs):
		return SortConfig{Mode: ModeAsIs}, nil
	}
	field, dir, found := strings.Cut(s, ":")
	field = strings.TrimSpace(field)
	if field == "" {
		return SortConfig{}, fmt.Errorf("plan: sort field required in %q", s)
	}
	cfg := SortConfig{Mode: ModeField, Field: field, Direction: Asc}
	if found {
		switch Direction(strings.TrimSpace(dir)) {
		case Asc:
		case Desc:
			cfg.Direction = Desc
		default:
			return SortConfig{}, fmt.Errorf("plan: unknown sort direction %q", dir)
		}
	}
	return cfg, nil
}

// numericFields are parsed as numbers when read from text.
var numericFields = map[string]bool{
	"order":       true,
	"depth":       true,
	"probability": true,
	"uid":         true,
}

// FieldValue resolves a sortable value. It returns float64, string or nil.
// Unreadable values degrade to nil.
func FieldValue(e *entry.Entry, field string) any {
	switch field {
	case "comment", "title":
		return strings.ToLower(e.Title())
	case "uid":
		if f, err := strconv.ParseFloat(e.ID, 64); err == nil {
			return f
		}
		return e.ID
	case "content":
		switch v := e.Field("content").(type) {
		case string:
			return float64(len([]rune(v)))
		default:
			return toNumber(v)
		}
	}
	v := e.Field(field)
	if numericFields[field] {
		return toNumber(v)
	}
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		return t
	default:
		return toNumber(t)
	}
}

func toNumber(v any) any {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) {
			return nil
		}
		return t
	case float32:
		return float64(t)
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case bool:
		if t {
			return float64(1)
		}
		return float64(0)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return nil
		}
		return f
	}
	return nil
}

// Comparer compares field values. It is not safe for concurrent use.
type Comparer struct {
	col *collate.Collator
}

// NewComparer returns a comparer using a locale-aware, case-insensitive
// collation for text.
func NewComparer() *Comparer {
	return &Comparer{col: collate.New(language.Und, collate.IgnoreCase, collate.Numeric)}
}

// Text compares two strings.
func (c *Comparer) Text(a, b string) int {
	return c.col.CompareString(a, b)
}

// Values compares a and b for dir. Nils sort first ascending and last
// descending; numbers sort before text when mixed.
func (c *Comparer) Values(a, b any, dir Direction) int {
	sign := 1
	if dir == Desc {
		sign = -1
	}
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -sign
	case b == nil:
		return sign
	}
	af, aNum := a.(float64)
	bf, bNum := b.(float64)
	switch {
	case aNum && bNum:
		switch {
		case af < bf:
			return -sign
		case af > bf:
			return sign
		}
		return 0
	case aNum:
		return -sign
	case bNum:
		return sign
	}
	return sign * c.Text(fmt.Sprint(a), fmt.Sprint(b))
}

// CompareValues compares a and b with a fresh Comparer.
func CompareValues(a, b any, dir Direction) int {
	return NewComparer().Values(a, b, dir)
}

// SortEntries returns entries ordered by cfg. Ties break by title, ignoring
// case, then by input order. Non-field modes return an unchanged copy.
func SortEntries(entries []*entry.Entry, cfg SortConfig) []*entry.Entry {
	out := make([]*entry.Entry, len(entries))
	copy(out, entries)
	if cfg.Mode != ModeField || cfg.Field == "" {
		return out
	}
	c := NewComparer()
	keys := make(map[*entry.Entry]any, len(out))
	titles := make(map[*entry.Entry]string, len(out))
	for _, e := range out {
		keys[e] = FieldValue(e, cfg.Field)
		titles[e] = e.Title()
	}
	sort.SliceStable(out, func(i, j int) bool {
		if r := c.Values(keys[out[i]], keys[out[j]], cfg.Direction); r != 0 {
			return r < 0
		}
		return c.Text(titles[out[i]], titles[out[j]]) < 0
	})
	return out
}

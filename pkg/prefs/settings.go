package prefs

// SchemaVersion is the current settings layout.
const SchemaVersion = 2

// Book holds the group preferences of one book.
type Book struct {
	Order     []string        `json:"groupOrder" yaml:"groupOrder"`
	Enabled   map[string]bool `json:"groupEnabled" yaml:"groupEnabled"`
	Collapsed map[string]bool `json:"groupCollapsed" yaml:"groupCollapsed"`
}

// Debug toggles diagnostic logging.
type Debug struct {
	Enabled     bool `json:"enabled" yaml:"enabled"`
	LogRebuilds bool `json:"logRebuilds" yaml:"logRebuilds"`
	LogAdapters bool `json:"logAdapters" yaml:"logAdapters"`
}

// Settings is the persisted document.
type Settings struct {
	Version int              `json:"version" yaml:"version"`
	Books   map[string]*Book `json:"books" yaml:"books"`
	Debug   Debug            `json:"debug" yaml:"debug"`
}

// Defaults returns empty settings at the current schema version.
func Defaults() *Settings {
	return &Settings{
		Version: SchemaVersion,
		Books:   make(map[string]*Book),
	}
}

func newBook() *Book {
	return &Book{
		Order:     []string{},
		Enabled:   make(map[string]bool),
		Collapsed: make(map[string]bool),
	}
}

// Clone deep-copies s.
func (s *Settings) Clone() *Settings {
	out := &Settings{
		Version: s.Version,
		Debug:   s.Debug,
		Books:   make(map[string]*Book, len(s.Books)),
	}
	for name, b := range s.Books {
		out.Books[name] = b.Clone()
	}
	return out
}

// Clone deep-copies b.
func (b *Book) Clone() *Book {
	if b == nil {
		return newBook()
	}
	out := &Book{
		Order:     append([]string{}, b.Order...),
		Enabled:   make(map[string]bool, len(b.Enabled)),
		Collapsed: make(map[string]bool, len(b.Collapsed)),
	}
	for k, v := range b.Enabled {
		out.Enabled[k] = v
	}
	for k, v := range b.Collapsed {
		out.Collapsed[k] = v
	}
	return out
}

// Migrate upgrades s in place to SchemaVersion. It reports whether anything
// changed.
func Migrate(s *Settings) bool {
	changed := false
	if s.Books == nil {
		s.Books = make(map[string]*Book)
		changed = true
	}
	for name, b := range s.Books {
		if b == nil {
			s.Books[name] = newBook()
			changed = true
			continue
		}
		if b.Order == nil {
			b.Order = []string{}
			changed = true
		}
		if b.Enabled == nil {
			b.Enabled = make(map[string]bool)
			changed = true
		}
		if b.Collapsed == nil {
			b.Collapsed = make(map[string]bool)
			changed = true
		}
		if deduped := dedupe(b.Order); len(deduped) != len(b.Order) {
			b.Order = deduped
			changed = true
		}
	}
	if s.Version < SchemaVersion {
		s.Version = SchemaVersion
		changed = true
	}
	return changed
}

func dedupe(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// NormalizeOrder keeps the names of existing that were observed, in their
// stored order, then appends observed names not yet known in first-seen
// order. It is stable and idempotent.
func NormalizeOrder(existing, observed []string) []string {
	present := make(map[string]struct{}, len(observed))
	for _, name := range observed {
		present[name] = struct{}{}
	}
	known := make(map[string]struct{}, len(existing))
	out := make([]string, 0, len(observed))
	for _, name := range existing {
		if _, ok := present[name]; !ok {
			continue
		}
		if _, dup := known[name]; dup {
			continue
		}
		known[name] = struct{}{}
		out = append(out, name)
	}
	for _, name := range observed {
		if _, ok := known[name]; ok {
			continue
		}
		known[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

func equalOrder(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Package prefs stores per-book group preferences: display order, enabled
// flags and collapsed flags.
package prefs

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"tableflip.dev/bands/pkg/logging"
)

// ErrPersistenceUnavailable wraps failures of the backing persistence.
var ErrPersistenceUnavailable = errors.New("prefs: persistence unavailable")

// DefaultSaveDelay coalesces bursts of preference writes.
const DefaultSaveDelay = 250 * time.Millisecond

// Store is the in-memory view of Settings with debounced persistence. It is
// safe for concurrent use.
type Store struct {
	mu        sync.Mutex
	p         Persistence
	settings  *Settings
	log       *logrus.Entry
	saveDelay time.Duration
	timer     *time.Timer
	dirty     bool
}

// Option customises a Store.
type Option func(*Store)

// WithLogger sets the logger used for persistence failures.
func WithLogger(log *logrus.Entry) Option {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}

// WithSaveDelay sets the debounce delay. Zero saves synchronously on every
// change.
func WithSaveDelay(d time.Duration) Option {
	return func(s *Store) {
		s.saveDelay = d
	}
}

// New returns a Store backed by p. A nil p keeps preferences in memory only.
func New(p Persistence, opts ...Option) *Store {
	s := &Store{
		p:         p,
		saveDelay: DefaultSaveDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = logging.Component(s.log, "prefs")
	return s
}

// ensure loads settings on first use. Callers hold s.mu.
func (s *Store) ensure() *Settings {
	if s.settings != nil {
		return s.settings
	}
	var loaded *Settings
	if s.p != nil {
		var err error
		loaded, err = s.p.Load()
		if err != nil {
			s.log.WithError(fmt.Errorf("%w: %v", ErrPersistenceUnavailable, err)).Warn("using default preferences")
			loaded = nil
		}
	}
	if loaded == nil {
		loaded = Defaults()
	}
	if Migrate(loaded) {
		s.log.WithField("version", loaded.Version).Debug("migrated preferences")
	}
	s.settings = loaded
	return s.settings
}

func (s *Store) book(name string) *Book {
	st := s.ensure()
	b, ok := st.Books[name]
	if !ok || b == nil {
		b = newBook()
		st.Books[name] = b
	}
	return b
}

// Order returns a copy of the stored group order of book.
func (s *Store) Order(book string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.book(book).Order...)
}

// Enabled reports the enabled flag of group, true when unset.
func (s *Store) Enabled(book, group string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.book(book).Enabled[group]
	return !ok || v
}

// Collapsed reports the collapsed flag of group, false when unset.
func (s *Store) Collapsed(book, group string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.book(book).Collapsed[group]
}

func (s *Store) SetEnabled(book, group string, enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.book(book).Enabled[group] = enabled
	s.scheduleSave()
}

func (s *Store) SetCollapsed(book, group string, collapsed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.book(book).Collapsed[group] = collapsed
	s.scheduleSave()
}

// NormalizeOrder reconciles the stored order of book with the observed
// group names, stores and returns the result.
func (s *Store) NormalizeOrder(book string, observed []string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.book(book)
	next := NormalizeOrder(b.Order, observed)
	if !equalOrder(next, b.Order) {
		b.Order = next
		s.scheduleSave()
	}
	return append([]string{}, next...)
}

// SetOrder replaces the stored order of book.
func (s *Store) SetOrder(book string, order []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.book(book).Order = dedupe(order)
	s.scheduleSave()
}

// EnsureGroup appends group to the order of book when missing.
func (s *Store) EnsureGroup(book, group string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.book(book)
	for _, name := range b.Order {
		if name == group {
			return
		}
	}
	b.Order = append(b.Order, group)
	s.scheduleSave()
}

// MoveGroup shifts group by delta positions. It reports false when group is
// unknown or already at the edge.
func (s *Store) MoveGroup(book, group string, delta int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.book(book)
	from := -1
	for i, name := range b.Order {
		if name == group {
			from = i
			break
		}
	}
	to := from + delta
	if from < 0 || delta == 0 || to < 0 || to >= len(b.Order) {
		return false
	}
	order := append([]string{}, b.Order...)
	name := order[from]
	order = append(order[:from], order[from+1:]...)
	order = append(order[:to], append([]string{name}, order[to:]...)...)
	b.Order = order
	s.scheduleSave()
	return true
}

// RemoveGroup forgets every preference of group.
func (s *Store) RemoveGroup(book, group string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.book(book)
	out := b.Order[:0:0]
	for _, name := range b.Order {
		if name != group {
			out = append(out, name)
		}
	}
	b.Order = out
	delete(b.Enabled, group)
	delete(b.Collapsed, group)
	s.scheduleSave()
}

// RenameGroup moves the preferences of old to next. When next already
// exists, the flags of old win and next keeps its first position.
func (s *Store) RenameGroup(book, old, next string) {
	if old == next {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.book(book)
	if v, ok := b.Enabled[old]; ok {
		b.Enabled[next] = v
		delete(b.Enabled, old)
	}
	if v, ok := b.Collapsed[old]; ok {
		b.Collapsed[next] = v
		delete(b.Collapsed, old)
	}
	order := make([]string, len(b.Order))
	for i, name := range b.Order {
		if name == old {
			name = next
		}
		order[i] = name
	}
	b.Order = dedupe(order)
	s.scheduleSave()
}

// Book returns a copy of the preferences of book.
func (s *Store) Book(book string) *Book {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.book(book).Clone()
}

// Settings returns a copy of all preferences.
func (s *Store) Settings() *Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensure().Clone()
}

// Replace swaps in imported settings after migrating them.
func (s *Store) Replace(next *Settings) {
	if next == nil {
		next = Defaults()
	}
	next = next.Clone()
	Migrate(next)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = next
	s.scheduleSave()
}

func (s *Store) Debug() Debug {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensure().Debug
}

func (s *Store) SetDebug(d Debug) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensure().Debug = d
	s.scheduleSave()
}

// scheduleSave marks the settings dirty and arms the save timer. Callers
// hold s.mu.
func (s *Store) scheduleSave() {
	s.dirty = true
	if s.p == nil {
		return
	}
	if s.saveDelay <= 0 {
		if err := s.saveLocked(); err != nil {
			s.log.WithError(err).Warn("save preferences")
		}
		return
	}
	if s.timer == nil {
		s.timer = time.AfterFunc(s.saveDelay, s.flushAsync)
	}
}

func (s *Store) flushAsync() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timer = nil
	if err := s.saveLocked(); err != nil {
		s.log.WithError(err).Warn("save preferences")
	}
}

func (s *Store) saveLocked() error {
	if !s.dirty || s.p == nil {
		return nil
	}
	if err := s.p.Save(s.ensure().Clone()); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistenceUnavailable, err)
	}
	s.dirty = false
	return nil
}

// Flush writes pending changes now.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	return s.saveLocked()
}

package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"tableflip.dev/bands/pkg/entry"
)

// Memory is an in-process collection source. It is safe for concurrent use.
type Memory struct {
	mu    sync.Mutex
	books map[string][]*entry.Entry
	saves int
}

// NewMemory returns an empty Memory.
func NewMemory() *Memory {
	return &Memory{books: make(map[string][]*entry.Entry)}
}

// Seed appends entries with raw comments to book, numbering them from the
// next free id.
func (m *Memory) Seed(book string, raws ...string) []*entry.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entry.Entry
	for _, raw := range raws {
		e := entry.New(book, NextID(m.books[book]), raw)
		e.SetDisabled(false)
		e.Position = len(m.books[book])
		m.books[book] = append(m.books[book], e)
		out = append(out, e.Clone())
	}
	return out
}

func (m *Memory) Collections(context.Context) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.books))
	for name := range m.books {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (m *Memory) Load(_ context.Context, book string) ([]*entry.Entry, error) {
	if strings.TrimSpace(book) == "" {
		return nil, ErrCollectionRequired
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*entry.Entry, 0, len(m.books[book]))
	for _, e := range m.books[book] {
		c := e.Clone()
		c.Book = book
		out = append(out, c)
	}
	return out, nil
}

func (m *Memory) Save(_ context.Context, book string, entries []*entry.Entry) error {
	if strings.TrimSpace(book) == "" {
		return ErrCollectionRequired
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*entry.Entry, 0, len(entries))
	for i, e := range entries {
		c := e.Clone()
		c.Position = i
		out = append(out, c)
	}
	m.books[book] = out
	m.saves++
	return nil
}

// Saves returns the number of Save calls.
func (m *Memory) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// Raw returns the comments of book in stored order.
func (m *Memory) Raw(book string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.books[book]))
	for i, e := range m.books[book] {
		out[i] = e.Raw
	}
	return out
}

package store

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/peterbourgon/diskv/v3"

	"tableflip.dev/bands/pkg/entry"
)

// ErrCollectionRequired is returned for blank book names.
var ErrCollectionRequired = errors.New("store: collection name required")

// Persistence is the full-collection source backed by disk. Each book is
// one JSON document written atomically.
type Persistence interface {
	Collections(ctx context.Context) []string
	Load(ctx context.Context, collection string) ([]*entry.Entry, error)
	Save(ctx context.Context, collection string, entries []*entry.Entry) error
	Add(ctx context.Context, collection, raw string) (*entry.Entry, error)
	Delete(ctx context.Context, collection string) error
	PrefsDir() string
	Watch(ctx context.Context) (<-chan Event, error)
}

const (
	tmpDir   = ".tmp"
	prefsDir = ".prefs"
)

// Load creates a Persistence backed by diskv using the provided config.
func Load(cfg Config) (Persistence, error) {
	if cfg == nil {
		settings, err := LoadConfig()
		if err != nil {
			return nil, err
		}
		cfg = settings
	}

	basePath := cfg.BasePath()
	if basePath == "" {
		return nil, errors.New("store: base path unknown")
	}
	return &persistence{d: diskv.New(diskv.Options{
		BasePath:     basePath,
		TempDir:      filepath.Join(basePath, tmpDir),
		CacheSizeMax: 1024 * 1024, // 1MB
	}), basePath: basePath}, nil
}

type persistence struct {
	d        *diskv.Diskv
	basePath string
}

func (p *persistence) PrefsDir() string {
	return filepath.Join(p.basePath, prefsDir)
}

func (p *persistence) Collections(ctx context.Context) []string {
	var names []string
	for key := range p.d.Keys(ctx.Done()) {
		if name, ok := fromCollection(key); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func (p *persistence) Load(ctx context.Context, collection string) ([]*entry.Entry, error) {
	key, err := keyFor(collection)
	if err != nil {
		return nil, err
	}
	if !p.d.Has(key) {
		return []*entry.Entry{}, nil
	}
	data, err := p.d.Read(key)
	if err != nil {
		return nil, fmt.Errorf("store: read %q: %w", collection, err)
	}
	var entries []*entry.Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("store: decode %q: %w", collection, err)
	}
	out := entries[:0]
	for _, e := range entries {
		if e == nil {
			continue
		}
		e.Book = collection
		out = append(out, e)
	}
	sortEntries(out)
	return out, nil
}

// Save replaces the stored set of collection. Positions are rewritten to
// the slice order.
func (p *persistence) Save(ctx context.Context, collection string, entries []*entry.Entry) error {
	key, err := keyFor(collection)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	records := make([]*entry.Entry, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))
	for i, e := range entries {
		if e == nil {
			continue
		}
		if strings.TrimSpace(e.ID) == "" {
			return fmt.Errorf("store: entry %d of %q has no id", i, collection)
		}
		if _, dup := seen[e.ID]; dup {
			return fmt.Errorf("store: duplicate entry id %q in %q", e.ID, collection)
		}
		seen[e.ID] = struct{}{}
		rec := e.Clone()
		rec.Book = ""
		rec.Position = len(records)
		records = append(records, rec)
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("store: encode %q: %w", collection, err)
	}
	if err := os.MkdirAll(p.basePath, 0o755); err != nil {
		return fmt.Errorf("store: ensure base path: %w", err)
	}
	if err := p.d.Write(key, data); err != nil {
		return fmt.Errorf("store: write %q: %w", collection, err)
	}
	return nil
}

// Add appends a new entry with the next numeric id.
func (p *persistence) Add(ctx context.Context, collection, raw string) (*entry.Entry, error) {
	entries, err := p.Load(ctx, collection)
	if err != nil {
		return nil, err
	}
	e := entry.New(collection, NextID(entries), raw)
	e.SetDisabled(false)
	entries = append(entries, e)
	if err := p.Save(ctx, collection, entries); err != nil {
		return nil, err
	}
	e.Position = len(entries) - 1
	return e, nil
}

func (p *persistence) Delete(ctx context.Context, collection string) error {
	key, err := keyFor(collection)
	if err != nil {
		return err
	}
	if !p.d.Has(key) {
		return nil
	}
	return p.d.Erase(key)
}

// NextID returns one more than the largest numeric id of entries.
func NextID(entries []*entry.Entry) string {
	next := 1
	for _, e := range entries {
		if n, err := strconv.Atoi(e.ID); err == nil && n >= next {
			next = n + 1
		}
	}
	return strconv.Itoa(next)
}

func sortEntries(entries []*entry.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Position < entries[j].Position
	})
}

func keyFor(collection string) (string, error) {
	collection = strings.TrimSpace(collection)
	if collection == "" {
		return "", ErrCollectionRequired
	}
	return toCollection(collection), nil
}

// toCollection encodes a book name as a file-safe key.
func toCollection(s string) string {
	return base64.URLEncoding.EncodeToString([]byte(s))
}

func fromCollection(s string) (string, bool) {
	if s == "" || strings.HasPrefix(s, ".") {
		return "", false
	}
	collection, err := base64.URLEncoding.DecodeString(s)
	if err != nil {
		return "", false
	}
	return string(collection), true
}

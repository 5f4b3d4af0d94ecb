package prefs

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/peterbourgon/diskv/v3"
)

// Persistence loads and saves Settings. Load returns nil settings and no
// error when nothing has been stored yet.
type Persistence interface {
	Load() (*Settings, error)
	Save(*Settings) error
}

const settingsKey = "settings.json"

// DiskPersistence keeps Settings as one JSON document in a diskv store.
type DiskPersistence struct {
	d *diskv.Diskv
}

// NewDiskPersistence stores settings under dir.
func NewDiskPersistence(dir string) *DiskPersistence {
	return &DiskPersistence{d: diskv.New(diskv.Options{
		BasePath:     dir,
		TempDir:      filepath.Join(dir, ".tmp"),
		CacheSizeMax: 64 * 1024,
	})}
}

func (p *DiskPersistence) Load() (*Settings, error) {
	if !p.d.Has(settingsKey) {
		return nil, nil
	}
	data, err := p.d.Read(settingsKey)
	if err != nil {
		return nil, fmt.Errorf("prefs: read settings: %w", err)
	}
	s := &Settings{}
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("prefs: decode settings: %w", err)
	}
	return s, nil
}

func (p *DiskPersistence) Save(s *Settings) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("prefs: encode settings: %w", err)
	}
	if err := p.d.Write(settingsKey, data); err != nil {
		return fmt.Errorf("prefs: write settings: %w", err)
	}
	return nil
}

// MemoryPersistence keeps the encoded settings in memory.
type MemoryPersistence struct {
	mu    sync.Mutex
	data  []byte
	saves int

	// Err, when set, fails every Load and Save.
	Err error
}

func (m *MemoryPersistence) Load() (*Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	if m.data == nil {
		return nil, nil
	}
	s := &Settings{}
	if err := json.Unmarshal(m.data, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (m *MemoryPersistence) Save(s *Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	m.data = data
	m.saves++
	return nil
}

// Saves returns how many saves succeeded.
func (m *MemoryPersistence) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// Package mcp provides the Model Context Protocol server integration for bands.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"tableflip.dev/bands/pkg/app"
	"tableflip.dev/bands/pkg/codec"
	"tableflip.dev/bands/pkg/entry"
	"tableflip.dev/bands/pkg/host"
	"tableflip.dev/bands/pkg/plan"
	"tableflip.dev/bands/pkg/store"
)

// Backend is the storage the server reads and writes.
type Backend interface {
	host.CollectionSource
	Collections(ctx context.Context) []string
}

// Service coordinates the group workflows shared by the MCP server.
type Service struct {
	Backend Backend
	App     *app.Service
}

// ErrEntryNotFound is returned when an entry cannot be located in a collection.
var ErrEntryNotFound = errors.New("entry not found")

// CollectionSummary describes a collection and its grouping.
type CollectionSummary struct {
	Name       string   `json:"name"`
	EntryCount int      `json:"entryCount"`
	Ungrouped  int      `json:"ungrouped"`
	Groups     []string `json:"groups"`
}

// EntryDTO is a transport-friendly projection of an entry.
type EntryDTO struct {
	ID         string `json:"id"`
	Collection string `json:"collection"`
	Comment    string `json:"comment"`
	Group      string `json:"group,omitempty"`
	Title      string `json:"title"`
	Position   int    `json:"position"`
	Disabled   bool   `json:"disabled"`
}

// GroupDTO is one band of a plan.
type GroupDTO struct {
	Name      string   `json:"name"`
	Enabled   bool     `json:"enabled"`
	Collapsed bool     `json:"collapsed"`
	Count     int      `json:"count"`
	Entries   []string `json:"entries"`
}

// PlanDTO is a render plan with its signature.
type PlanDTO struct {
	Collection string     `json:"collection"`
	Sort       string     `json:"sort"`
	Groups     []GroupDTO `json:"groups"`
	Signature  string     `json:"signature"`
}

// NewService builds a service over backend with the given workflows.
func NewService(backend Backend, workflows *app.Service) *Service {
	return &Service{Backend: backend, App: workflows}
}

func (s *Service) ready() error {
	if s.Backend == nil || s.App == nil {
		return errors.New("persistence is not configured")
	}
	return nil
}

// ListCollections returns summaries for every collection.
func (s *Service) ListCollections(ctx context.Context) ([]CollectionSummary, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	names := s.Backend.Collections(ctx)
	summaries := make([]CollectionSummary, 0, len(names))
	for _, name := range names {
		entries, err := s.Backend.Load(ctx, name)
		if err != nil {
			return nil, err
		}
		sum := CollectionSummary{Name: name, EntryCount: len(entries), Groups: []string{}}
		for _, e := range entries {
			if !e.Grouped() {
				sum.Ungrouped++
			}
		}
		groups, err := s.App.Groups(ctx, name)
		if err != nil {
			return nil, err
		}
		for _, g := range groups {
			sum.Groups = append(sum.Groups, g.Name)
		}
		summaries = append(summaries, sum)
	}
	sort.Slice(summaries, func(i, j int) bool {
		return strings.ToLower(summaries[i].Name) < strings.ToLower(summaries[j].Name)
	})
	return summaries, nil
}

// ListEntries returns the entries of collection in stored order.
func (s *Service) ListEntries(ctx context.Context, collection string) ([]EntryDTO, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	entries, err := s.Backend.Load(ctx, collection)
	if err != nil {
		return nil, err
	}
	out := make([]EntryDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, toDTO(collection, e))
	}
	return out, nil
}

// EntryByID returns one entry of collection.
func (s *Service) EntryByID(ctx context.Context, collection, id string) (*EntryDTO, error) {
	entries, err := s.ListEntries(ctx, collection)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		if entries[i].ID == id {
			return &entries[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s/%s", ErrEntryNotFound, collection, id)
}

// Plan computes the render plan of collection under sortSpec.
func (s *Service) Plan(ctx context.Context, collection, sortSpec string) (*PlanDTO, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	cfg, err := plan.ParseSort(sortSpec)
	if err != nil {
		return nil, err
	}
	p, err := s.App.Plan(ctx, collection, cfg)
	if err != nil {
		return nil, err
	}
	out := &PlanDTO{Collection: collection, Sort: cfg.String(), Groups: []GroupDTO{}, Signature: p.Signature()}
	for _, g := range p.Groups {
		out.Groups = append(out.Groups, GroupDTO{
			Name:      g.Name,
			Enabled:   g.Enabled,
			Collapsed: g.Collapsed,
			Count:     len(g.Entries),
			Entries:   g.IDs(),
		})
	}
	return out, nil
}

// AddEntry appends an entry titled title to collection, in group when set.
func (s *Service) AddEntry(ctx context.Context, collection, group, title string) (*EntryDTO, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(collection) == "" {
		return nil, store.ErrCollectionRequired
	}
	raw := strings.TrimSpace(title)
	if group != "" {
		name, err := codec.ValidateGroupName(group)
		if err != nil {
			return nil, err
		}
		raw = codec.Encode(name, title)
	}
	entries, err := s.Backend.Load(ctx, collection)
	if err != nil {
		return nil, err
	}
	e := entry.New(collection, store.NextID(entries), raw)
	e.SetDisabled(false)
	entries = append(entries, e)
	if err := s.Backend.Save(ctx, collection, entries); err != nil {
		return nil, err
	}
	dto := toDTO(collection, e)
	dto.Position = len(entries) - 1
	return &dto, nil
}

func toDTO(collection string, e *entry.Entry) EntryDTO {
	disabled, _ := e.Disabled()
	return EntryDTO{
		ID:         e.ID,
		Collection: collection,
		Comment:    e.Raw,
		Group:      e.Group(),
		Title:      e.Title(),
		Position:   e.Position,
		Disabled:   disabled,
	}
}

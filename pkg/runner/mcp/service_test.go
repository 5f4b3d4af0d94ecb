package mcp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tableflip.dev/bands/pkg/app"
	"tableflip.dev/bands/pkg/prefs"
	"tableflip.dev/bands/pkg/store"
)

func newTestService(t *testing.T) (*Service, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	mem.Seed("Lore", "::Lore:: Intro", "Standalone", "::Places:: Town", "::Lore:: Outro")
	p := prefs.New(nil)
	return NewService(mem, &app.Service{Prefs: p, Source: mem}), mem
}

func TestServiceListCollections(t *testing.T) {
	svc, _ := newTestService(t)
	summaries, err := svc.ListCollections(context.Background())
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, CollectionSummary{
		Name:       "Lore",
		EntryCount: 4,
		Ungrouped:  1,
		Groups:     []string{"Lore", "Places"},
	}, summaries[0])
}

func TestServicePlan(t *testing.T) {
	svc, _ := newTestService(t)
	p, err := svc.Plan(context.Background(), "Lore", "uid:desc")
	require.NoError(t, err)
	assert.Equal(t, "uid:desc", p.Sort)
	require.Len(t, p.Groups, 2)
	assert.Equal(t, []string{"4", "1"}, p.Groups[0].Entries)
	assert.Equal(t, 2, p.Groups[0].Count)
	assert.NotEmpty(t, p.Signature)

	_, err = svc.Plan(context.Background(), "Lore", ":asc")
	assert.Error(t, err)
}

func TestServiceAddEntry(t *testing.T) {
	ctx := context.Background()
	svc, mem := newTestService(t)

	dto, err := svc.AddEntry(ctx, "Lore", " Places ", "Castle")
	require.NoError(t, err)
	assert.Equal(t, "5", dto.ID)
	assert.Equal(t, "Places", dto.Group)
	assert.Equal(t, "Castle", dto.Title)
	assert.Equal(t, 4, dto.Position)
	assert.Equal(t, "::Places:: Castle", mem.Raw("Lore")[4])

	_, err = svc.AddEntry(ctx, "Lore", "bad::name", "x")
	assert.Error(t, err)
	_, err = svc.AddEntry(ctx, " ", "", "x")
	assert.ErrorIs(t, err, store.ErrCollectionRequired)
}

func TestServiceEntryByID(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	dto, err := svc.EntryByID(ctx, "Lore", "3")
	require.NoError(t, err)
	assert.Equal(t, "Places", dto.Group)
	assert.Equal(t, "Town", dto.Title)

	_, err = svc.EntryByID(ctx, "Lore", "99")
	assert.ErrorIs(t, err, ErrEntryNotFound)
}

func TestServiceWorkflowsPersist(t *testing.T) {
	ctx := context.Background()
	svc, mem := newTestService(t)

	_, err := svc.App.RenameTo(ctx, "Lore", "Lore", "History")
	require.NoError(t, err)
	_, err = svc.App.ApplyMembership(ctx, "Lore", "Places", []string{"2"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"::History:: Intro",
		"::Places:: Standalone",
		"::Places:: Town",
		"::History:: Outro",
	}, mem.Raw("Lore"))

	p, err := svc.Plan(ctx, "Lore", "none")
	require.NoError(t, err)
	assert.Equal(t, "History", p.Groups[0].Name)
	assert.Equal(t, []string{"2", "3"}, p.Groups[1].Entries)
}

func TestServiceRequiresBackend(t *testing.T) {
	_, err := (&Service{}).ListCollections(context.Background())
	assert.Error(t, err)
}

package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tableflip.dev/bands/pkg/entry"
	"tableflip.dev/bands/pkg/prefs"
	"tableflip.dev/bands/pkg/printers"
	"tableflip.dev/bands/pkg/reconcile"
	"tableflip.dev/bands/pkg/store"
)

type pass struct {
	report reconcile.Report
	blocks []printers.Block
}

func seeded(t *testing.T, raws ...string) store.Persistence {
	t.Helper()
	p, err := store.Load(&store.Settings{Path: t.TempDir()})
	require.NoError(t, err)
	var entries []*entry.Entry
	for i, raw := range raws {
		e := entry.New("Lore", store.NextID(entries), raw)
		e.Position = i
		e.SetDisabled(false)
		entries = append(entries, e)
	}
	require.NoError(t, p.Save(context.Background(), "Lore", entries))
	return p
}

func start(t *testing.T, p store.Persistence, watch bool) (*Session, <-chan pass, context.CancelFunc, <-chan error) {
	t.Helper()
	passes := make(chan pass, 64)
	s, err := New(Options{
		Store:    p,
		Prefs:    prefs.New(nil),
		Book:     "Lore",
		Debounce: 5 * time.Millisecond,
		Watch:    watch,
		OnRebuild: func(s *Session, rep reconcile.Report) {
			select {
			case passes <- pass{report: rep, blocks: s.Snapshot()}:
			default:
			}
		},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	return s, passes, cancel, done
}

// await returns the first applied pass matching ok.
func await(t *testing.T, passes <-chan pass, ok func(pass) bool) pass {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case p := <-passes:
			if p.report.Applied && ok(p) {
				return p
			}
		case <-timeout:
			t.Fatal("timed out waiting for rebuild")
			return pass{}
		}
	}
}

func TestSessionGroupsAndRenames(t *testing.T) {
	p := seeded(t, "::Lore:: Intro", "Standalone", "::Lore:: Outro")
	s, passes, cancel, done := start(t, p, false)

	first := await(t, passes, func(p pass) bool { return len(p.blocks) == 2 })
	assert.Equal(t, printers.Block{Group: "Lore", Entries: []string{"Intro", "Outro"}}, first.blocks[0])
	assert.Equal(t, printers.Block{Entries: []string{"Standalone"}}, first.blocks[1])

	_, err := s.Service.RenameTo(context.Background(), "Lore", "Lore", "History")
	require.NoError(t, err)
	renamed := await(t, passes, func(p pass) bool { return len(p.blocks) > 0 && p.blocks[0].Group == "History" })
	assert.Equal(t, []string{"Intro", "Outro"}, renamed.blocks[0].Entries)

	cancel()
	require.NoError(t, <-done)

	entries, err := p.Load(context.Background(), "Lore")
	require.NoError(t, err)
	assert.Equal(t, "::History:: Intro", entries[0].Raw)
	assert.Equal(t, "::History:: Outro", entries[2].Raw)
}

func TestSessionReloadsOnStoreChange(t *testing.T) {
	p := seeded(t, "::Lore:: Intro")
	_, passes, cancel, done := start(t, p, true)
	defer func() {
		cancel()
		<-done
	}()

	await(t, passes, func(p pass) bool { return len(p.blocks) == 1 })

	_, err := p.Add(context.Background(), "Lore", "::Places:: Town")
	require.NoError(t, err)
	got := await(t, passes, func(p pass) bool { return len(p.blocks) == 2 })
	assert.Equal(t, "Places", got.blocks[1].Group)
}

func TestNewRequiresStoreAndPrefs(t *testing.T) {
	_, err := New(Options{Prefs: prefs.New(nil)})
	assert.Error(t, err)
	_, err = New(Options{Store: seeded(t)})
	assert.Error(t, err)
}

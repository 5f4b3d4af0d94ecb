package app

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tableflip.dev/bands/pkg/codec"
	"tableflip.dev/bands/pkg/dom"
	"tableflip.dev/bands/pkg/events"
	"tableflip.dev/bands/pkg/host"
	"tableflip.dev/bands/pkg/panel"
	"tableflip.dev/bands/pkg/plan"
	"tableflip.dev/bands/pkg/prefs"
	"tableflip.dev/bands/pkg/reconcile"
	"tableflip.dev/bands/pkg/store"
)

type fakeRebuilder struct {
	reasons []reconcile.Reason
}

func (f *fakeRebuilder) Request(reason reconcile.Reason) {
	f.reasons = append(f.reasons, reason)
}

type promptReply struct {
	value string
	ok    bool
}

type fakeDialog struct {
	prompts []promptReply
	choices []string
	manages []host.ManageResult

	promptsSeen []host.PromptRequest
	managesSeen []host.ManageRequest
}

func (f *fakeDialog) Prompt(_ context.Context, req host.PromptRequest) (string, bool, error) {
	f.promptsSeen = append(f.promptsSeen, req)
	if len(f.prompts) == 0 {
		return "", false, nil
	}
	r := f.prompts[0]
	f.prompts = f.prompts[1:]
	return r.value, r.ok, nil
}

func (f *fakeDialog) Choose(context.Context, host.ChoiceRequest) (string, error) {
	if len(f.choices) == 0 {
		return host.ChoiceCancel, nil
	}
	c := f.choices[0]
	f.choices = f.choices[1:]
	return c, nil
}

func (f *fakeDialog) Manage(_ context.Context, req host.ManageRequest) (host.ManageResult, error) {
	f.managesSeen = append(f.managesSeen, req)
	if len(f.manages) == 0 {
		return host.ManageResult{Action: host.ManageCancel}, nil
	}
	r := f.manages[0]
	f.manages = f.manages[1:]
	return r, nil
}

const book = "Lore"

func newService(t *testing.T, raws ...string) (*Service, *store.Memory, *fakeRebuilder) {
	t.Helper()
	src := store.NewMemory()
	src.Seed(book, raws...)
	rb := &fakeRebuilder{}
	return &Service{Prefs: prefs.New(nil), Source: src, Rebuilder: rb}, src, rb
}

func loreScenario(t *testing.T) (*Service, *store.Memory, *fakeRebuilder) {
	return newService(t, "::Lore:: Intro", "Standalone", "::Lore:: Outro")
}

func TestPlanGroupsTaggedEntries(t *testing.T) {
	s, _, _ := loreScenario(t)

	groups, err := s.Groups(context.Background(), book)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "Lore", groups[0].Name)
	assert.Equal(t, []string{"1", "3"}, groups[0].IDs())
	assert.True(t, groups[0].Enabled)
	assert.False(t, groups[0].Collapsed)
}

func TestRenameToRewritesMembersAndMigratesPrefs(t *testing.T) {
	ctx := context.Background()
	s, src, rb := loreScenario(t)
	s.Prefs.SetCollapsed(book, "Lore", true)

	name, err := s.RenameTo(ctx, book, "Lore", "  Background ")
	require.NoError(t, err)
	assert.Equal(t, "Background", name)

	assert.Equal(t, []string{"::Background:: Intro", "Standalone", "::Background:: Outro"}, src.Raw(book))
	assert.True(t, s.Prefs.Collapsed(book, "Background"))
	assert.False(t, s.Prefs.Collapsed(book, "Lore"))
	assert.Equal(t, []reconcile.Reason{reconcile.ReasonGroupRename}, rb.reasons)

	groups, err := s.Groups(ctx, book)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "Background", groups[0].Name)
	assert.True(t, groups[0].Collapsed)
}

func TestRenameToRejectsInvalidNames(t *testing.T) {
	ctx := context.Background()
	s, src, _ := loreScenario(t)

	for _, bad := range []string{"", "   ", "A::B", ":edge"} {
		_, err := s.RenameTo(ctx, book, "Lore", bad)
		assert.ErrorIs(t, err, codec.ErrInvalidName, bad)
	}
	_, err := s.RenameTo(ctx, book, "Nope", "Other")
	assert.ErrorIs(t, err, ErrGroupNotFound)
	assert.Equal(t, 0, src.Saves())
}

func TestRenameDialogRepromptsUntilValid(t *testing.T) {
	s, src, _ := loreScenario(t)
	d := &fakeDialog{prompts: []promptReply{{"  ", true}, {"A::B", true}, {"Background", true}}}
	s.Dialog = d

	require.NoError(t, s.Rename(context.Background(), book, "Lore"))
	assert.Len(t, d.promptsSeen, 3)
	assert.Equal(t, "Lore", d.promptsSeen[0].Initial)
	assert.Error(t, d.promptsSeen[0].Validate("x::y"))
	assert.Equal(t, "::Background:: Intro", src.Raw(book)[0])
}

func TestRenameDialogCancelled(t *testing.T) {
	s, src, rb := loreScenario(t)
	s.Dialog = &fakeDialog{}

	require.NoError(t, s.Rename(context.Background(), book, "Lore"))
	assert.Equal(t, 0, src.Saves())
	assert.Empty(t, rb.reasons)
}

func TestWorkflowsWithoutDialog(t *testing.T) {
	s, _, _ := loreScenario(t)
	assert.ErrorIs(t, s.Rename(context.Background(), book, "Lore"), host.ErrAdapterUnavailable)
}

func TestDeleteWith(t *testing.T) {
	tests := []struct {
		name string
		mode DeleteMode
		want []string
	}{
		{name: "ungroup", mode: DeleteUngroup, want: []string{"Intro", "Standalone", "Outro"}},
		{name: "delete entries", mode: DeleteEntries, want: []string{"Standalone"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, src, rb := loreScenario(t)
			s.Prefs.SetEnabled(book, "Lore", false)
			s.Prefs.NormalizeOrder(book, []string{"Lore"})

			n, err := s.DeleteWith(context.Background(), book, "Lore", tt.mode)
			require.NoError(t, err)
			assert.Equal(t, 2, n)
			assert.Equal(t, tt.want, src.Raw(book))
			assert.Empty(t, s.Prefs.Order(book))
			assert.True(t, s.Prefs.Enabled(book, "Lore"))
			assert.Equal(t, []reconcile.Reason{reconcile.ReasonManageApply}, rb.reasons)
		})
	}
}

func TestDeleteDialogChoice(t *testing.T) {
	s, src, _ := loreScenario(t)
	s.Dialog = &fakeDialog{choices: []string{host.ChoiceCancel, string(DeleteUngroup)}}

	require.NoError(t, s.Delete(context.Background(), book, "Lore"))
	assert.Equal(t, 0, src.Saves())

	require.NoError(t, s.Delete(context.Background(), book, "Lore"))
	assert.Equal(t, []string{"Intro", "Standalone", "Outro"}, src.Raw(book))
}

func TestApplyMembership(t *testing.T) {
	ctx := context.Background()
	s, src, _ := loreScenario(t)

	n, err := s.ApplyMembership(ctx, book, "Lore", []string{"2"}, []string{"3"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"::Lore:: Intro", "::Lore:: Standalone", "Outro"}, src.Raw(book))

	_, err = s.ApplyMembership(ctx, book, "New", []string{"3"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Lore", "New"}, s.Prefs.Order(book))

	_, err = s.ApplyMembership(ctx, book, "Bad::", []string{"3"}, nil)
	assert.ErrorIs(t, err, codec.ErrInvalidName)
}

func TestApplyMembershipIgnoresRemovalsFromOtherGroups(t *testing.T) {
	s, src, _ := newService(t, "::A:: one", "::B:: two")

	n, err := s.ApplyMembership(context.Background(), book, "A", nil, []string{"2"})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, []string{"::A:: one", "::B:: two"}, src.Raw(book))
}

func TestMoveGroup(t *testing.T) {
	ctx := context.Background()
	s, _, rb := newService(t, "::A:: a", "::B:: b", "::C:: c")

	moved, err := s.MoveGroup(ctx, book, "B", -1)
	require.NoError(t, err)
	assert.True(t, moved)
	assert.Equal(t, []string{"B", "A", "C"}, s.Prefs.Order(book))

	moved, err = s.MoveGroup(ctx, book, "B", -1)
	require.NoError(t, err)
	assert.False(t, moved)

	_, err = s.MoveGroup(ctx, book, "Z", 1)
	assert.ErrorIs(t, err, ErrGroupNotFound)
	assert.Equal(t, []reconcile.Reason{reconcile.ReasonGroupMove}, rb.reasons)

	p, err := s.Plan(ctx, book, plan.SortConfig{Mode: plan.ModeNone})
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A", "C"}, p.Names())
}

func TestSetGroupEnabledWritesEntries(t *testing.T) {
	ctx := context.Background()
	s, src, rb := loreScenario(t)

	require.NoError(t, s.SetGroupEnabled(ctx, book, "Lore", false))
	entries, err := src.Load(ctx, book)
	require.NoError(t, err)
	for _, e := range entries {
		disabled, ok := e.Disabled()
		require.True(t, ok)
		assert.Equal(t, e.Group() == "Lore", disabled, e.ID)
	}
	assert.False(t, s.Prefs.Enabled(book, "Lore"))
	assert.Equal(t, []reconcile.Reason{reconcile.ReasonGroupToggle}, rb.reasons)

	groups, err := s.Groups(ctx, book)
	require.NoError(t, err)
	assert.False(t, groups[0].Enabled)

	on, err := s.ToggleGroupEnabled(ctx, book, "Lore")
	require.NoError(t, err)
	assert.True(t, on)
	assert.True(t, s.Prefs.Enabled(book, "Lore"))
}

func TestPerEntrySignalsOverrideStaleFlag(t *testing.T) {
	s, _, _ := loreScenario(t)
	s.Prefs.SetEnabled(book, "Lore", false)

	groups, err := s.Groups(context.Background(), book)
	require.NoError(t, err)
	assert.True(t, groups[0].Enabled)
	assert.True(t, s.Prefs.Enabled(book, "Lore"))
}

func TestToggleCollapsed(t *testing.T) {
	s, _, rb := loreScenario(t)

	assert.True(t, s.ToggleCollapsed(context.Background(), book, "Lore"))
	assert.True(t, s.Prefs.Collapsed(book, "Lore"))
	assert.False(t, s.ToggleCollapsed(context.Background(), book, "Lore"))
	assert.Equal(t, []reconcile.Reason{reconcile.ReasonGroupCollapse, reconcile.ReasonGroupCollapse}, rb.reasons)
}

func TestDroppedRequestsAreLogged(t *testing.T) {
	s, _, rb := loreScenario(t)
	logger, hook := logtest.NewNullLogger()
	s.Log = logrus.NewEntry(logger)
	s.Exec = func(context.Context, func()) error { return context.Canceled }

	s.SetCollapsed(context.Background(), book, "Lore", true)

	assert.True(t, s.Prefs.Collapsed(book, "Lore"))
	assert.Empty(t, rb.reasons)
	require.Len(t, hook.AllEntries(), 1)
	last := hook.LastEntry()
	assert.Equal(t, logrus.WarnLevel, last.Level)
	assert.Equal(t, "rebuild request dropped", last.Message)
	assert.ErrorIs(t, last.Data[logrus.ErrorKey].(error), context.Canceled)
	assert.Equal(t, reconcile.ReasonGroupCollapse, last.Data["reason"])
}

func TestManageSwitchThenApply(t *testing.T) {
	s, src, _ := newService(t, "::A:: one", "::B:: two")
	d := &fakeDialog{manages: []host.ManageResult{
		{Action: host.ManageSwitch, Group: "B"},
		{Action: host.ManageApply, Add: []string{"1"}},
	}}
	s.Dialog = d

	require.NoError(t, s.Manage(context.Background(), book, "A"))
	require.Len(t, d.managesSeen, 2)
	assert.Equal(t, []string{"A", "B"}, d.managesSeen[0].Groups)
	assert.Equal(t, "B", d.managesSeen[1].Group)
	assert.True(t, d.managesSeen[1].Entries[1].Member)
	assert.False(t, d.managesSeen[1].Entries[0].Member)
	assert.Equal(t, []string{"::B:: one", "::B:: two"}, src.Raw(book))
}

func TestOpenEditorCreatesGroup(t *testing.T) {
	s, src, _ := newService(t, "one", "two")
	s.Dialog = &fakeDialog{
		prompts: []promptReply{{"Fresh", true}},
		manages: []host.ManageResult{{Action: host.ManageApply, Add: []string{"2"}}},
	}

	require.NoError(t, s.OpenEditor(context.Background(), book))
	assert.Equal(t, []string{"one", "::Fresh:: two"}, src.Raw(book))
	assert.Equal(t, []string{"Fresh"}, s.Prefs.Order(book))
}

func TestOpenEditorCancelForgetsNewGroup(t *testing.T) {
	s, src, rb := newService(t, "one")
	d := &fakeDialog{prompts: []promptReply{{"Fresh", true}}}
	s.Dialog = d

	require.NoError(t, s.OpenEditor(context.Background(), book))
	require.Len(t, d.managesSeen, 1)
	assert.Equal(t, []string{"Fresh"}, d.managesSeen[0].Groups)
	assert.Empty(t, s.Prefs.Order(book))
	assert.Equal(t, 0, src.Saves())
	assert.Equal(t, []reconcile.Reason{reconcile.ReasonManageApply}, rb.reasons)
}

func TestPromptFilterDisablesEntriesOfDisabledGroups(t *testing.T) {
	s, _, _ := loreScenario(t)
	s.Prefs.SetEnabled("World", "Secret", false)

	bus := events.NewBus()
	bus.On(events.TopicEntriesLoaded, func(payload any) {
		for _, le := range payload.(*events.EntriesLoaded).All() {
			le.Disable = false
		}
	})
	off := s.PromptFilter(bus)
	defer off()

	loaded := &events.EntriesLoaded{
		Global: []*events.LoadedEntry{
			{Book: "World", ID: "1", Comment: "::Secret:: hidden"},
			{Book: "World", ID: "2", Comment: "::Open:: shown"},
			{Book: "World", ID: "3", Comment: "plain"},
		},
		Chat: []*events.LoadedEntry{{ID: "4", Comment: "::Secret:: other book"}},
	}
	bus.Emit(events.TopicEntriesLoaded, loaded)

	var active []string
	for _, le := range loaded.Active() {
		active = append(active, le.ID)
	}
	assert.Equal(t, []string{"2", "3", "4"}, active)
	assert.Equal(t, 2, bus.Count(events.TopicEntriesLoaded))
}

func TestLiveRenameReachesEntriesOffPage(t *testing.T) {
	ctx := context.Background()
	src := store.NewMemory()
	src.Seed(book, "::Lore:: Intro", "Standalone", "::Lore:: Outro")

	doc := dom.NewDocument()
	pn := panel.New(doc, src, panel.Options{Book: book, PageSize: 2})
	pn.Mount()
	require.NoError(t, pn.Render(ctx))
	require.Len(t, pn.Collect(), 2)

	s := &Service{Prefs: prefs.New(nil), Source: src, Live: pn}
	_, err := s.RenameTo(ctx, book, "Lore", "Background")
	require.NoError(t, err)

	assert.Equal(t, []string{"::Background:: Intro", "Standalone", "::Background:: Outro"}, src.Raw(book))
	live := pn.Collect()
	require.Len(t, live, 2)
	assert.Equal(t, "Background", live[0].Group())
	assert.Equal(t, "Intro", live[0].Title())
}

func TestLiveOnlyDelete(t *testing.T) {
	ctx := context.Background()
	src := store.NewMemory()
	src.Seed(book, "::Lore:: Intro", "Standalone", "::Lore:: Outro")

	pn := panel.New(dom.NewDocument(), src, panel.Options{Book: book})
	pn.Mount()
	require.NoError(t, pn.Render(ctx))

	s := &Service{Prefs: prefs.New(nil), Live: pn}
	n, err := s.DeleteWith(ctx, book, "Lore", DeleteEntries)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"Standalone"}, src.Raw(book))
}

func TestActionsRunWorkflowsOnShownBook(t *testing.T) {
	ctx := context.Background()
	src := store.NewMemory()
	src.Seed(book, "::A:: a", "::B:: b")
	pn := panel.New(dom.NewDocument(), src, panel.Options{Book: book})
	pn.Mount()
	require.NoError(t, pn.Render(ctx))

	var errs []error
	s := &Service{Prefs: prefs.New(nil), Source: src, Live: pn}
	a := &Actions{Service: s, OnError: func(err error) { errs = append(errs, err) }}

	a.Move("B", -1)
	a.ToggleCollapsed("A")
	a.Rename("A")
	assert.Equal(t, []string{"B", "A"}, s.Prefs.Order(book))
	assert.True(t, s.Prefs.Collapsed(book, "A"))
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], host.ErrAdapterUnavailable)
}

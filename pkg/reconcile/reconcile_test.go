package reconcile_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tableflip.dev/bands/pkg/app"
	"tableflip.dev/bands/pkg/dom"
	"tableflip.dev/bands/pkg/loop"
	"tableflip.dev/bands/pkg/panel"
	"tableflip.dev/bands/pkg/prefs"
	"tableflip.dev/bands/pkg/reconcile"
	"tableflip.dev/bands/pkg/store"
	"tableflip.dev/bands/pkg/widget"
)

const book = "Lore"

type fixture struct {
	t       *testing.T
	doc     *dom.Document
	src     *store.Memory
	pn      *panel.Panel
	prefs   *prefs.Store
	clock   *loop.Manual
	factory *widget.Factory
	r       *reconcile.Reconciler
	reports []reconcile.Report
}

func newFixture(t *testing.T, raws ...string) *fixture {
	t.Helper()
	f := &fixture{t: t, doc: dom.NewDocument(), src: store.NewMemory(), prefs: prefs.New(nil), clock: loop.NewManual()}
	f.src.Seed(book, raws...)
	f.pn = panel.New(f.doc, f.src, panel.Options{Book: book})
	f.pn.Mount()
	require.NoError(t, f.pn.Render(context.Background()))
	f.factory = &widget.Factory{Toolbar: f.pn.ControlsNode}

	r, err := reconcile.New(reconcile.Config{
		Source:    f.pn,
		Widgets:   f.factory,
		Prefs:     f.prefs,
		Scheduler: f.clock,
		Controls:  f.pn,
		OnRebuild: func(rep reconcile.Report) { f.reports = append(f.reports, rep) },
	})
	require.NoError(t, err)
	f.r = r
	return f
}

// settle delivers observer records and fires due timers.
func (f *fixture) settle() {
	f.doc.Flush()
	f.clock.Advance(reconcile.DefaultDebounce)
	f.doc.Flush()
}

func (f *fixture) list() *dom.Node {
	list, err := f.pn.Container()
	require.NoError(f.t, err)
	return list
}

// layout describes the list children: "[Group:ids]" for bands, ids otherwise.
func (f *fixture) layout() []string {
	var out []string
	for _, c := range f.list().Children() {
		if widget.IsBand(c) {
			s := "[" + widget.GroupOf(c) + ":"
			for _, m := range c.Children() {
				if widget.IsHeader(m) {
					continue
				}
				s += m.AttrOr(panel.UIDAttr, "?")
			}
			out = append(out, s+"]")
			continue
		}
		out = append(out, c.AttrOr(panel.UIDAttr, "?"))
	}
	return out
}

func (f *fixture) node(id string) *dom.Node {
	n := f.list().Find(dom.ByAttr(panel.UIDAttr, id))
	require.NotNil(f.t, n, id)
	return n
}

func loreFixture(t *testing.T) *fixture {
	return newFixture(t, "::Lore:: Intro", "Standalone", "::Lore:: Outro")
}

func TestRebuildWrapsGroupMembers(t *testing.T) {
	f := loreFixture(t)
	f.r.Start()
	assert.Equal(t, reconcile.PendingRebuild, f.r.State())

	f.settle()
	assert.Equal(t, reconcile.Idle, f.r.State())
	assert.Equal(t, []string{"[Lore:13]", "2"}, f.layout())

	band := widget.FindBand(f.list(), "Lore")
	require.NotNil(t, band)
	assert.True(t, widget.IsHeader(band.FirstChild()))
	assert.True(t, widget.IsInjected(band))
	assert.NotNil(t, f.doc.ByID(widget.ToolbarID))

	require.Len(t, f.reports, 1)
	assert.True(t, f.reports[0].Applied)
	assert.Equal(t, []reconcile.Reason{reconcile.ReasonInit}, f.reports[0].Reasons)
	assert.Equal(t, []string{"Lore"}, f.prefs.Order(book))
}

func TestSecondRebuildIsNoOp(t *testing.T) {
	f := loreFixture(t)
	f.r.Start()
	f.settle()

	before := f.doc.Mutations()
	rep := f.r.Flush(reconcile.ReasonSort)
	assert.True(t, rep.Unchanged)
	assert.False(t, rep.Applied)
	assert.Equal(t, before, f.doc.Mutations())
	assert.Equal(t, 1, f.r.Stats().Unchanged)
}

func TestDebounceCoalescesRequests(t *testing.T) {
	f := loreFixture(t)
	f.r.Start()
	f.settle()
	require.Len(t, f.reports, 1)

	f.r.Request(reconcile.ReasonSort)
	f.clock.Advance(reconcile.DefaultDebounce * 3 / 5)
	f.r.Request(reconcile.ReasonSearch)
	f.clock.Advance(reconcile.DefaultDebounce * 3 / 5)
	assert.Len(t, f.reports, 1)
	assert.Equal(t, reconcile.PendingRebuild, f.r.State())

	f.clock.Advance(reconcile.DefaultDebounce)
	require.Len(t, f.reports, 2)
	assert.Equal(t, []reconcile.Reason{reconcile.ReasonSearch, reconcile.ReasonSort}, f.reports[1].Reasons)
	assert.Equal(t, 0, f.clock.Pending())
}

func TestRequestsDuringRebuildAreDropped(t *testing.T) {
	f := loreFixture(t)
	var (
		self   *reconcile.Reconciler
		states []reconcile.State
	)
	r, err := reconcile.New(reconcile.Config{
		Source:    f.pn,
		Widgets:   f.factory,
		Prefs:     f.prefs,
		Scheduler: f.clock,
		OnRebuild: func(reconcile.Report) {
			states = append(states, self.State())
			self.Request(reconcile.ReasonObserver)
		},
	})
	require.NoError(t, err)
	self = r

	r.Flush(reconcile.ReasonRefresh)
	assert.Equal(t, []reconcile.State{reconcile.Rebuilding}, states)
	assert.Equal(t, reconcile.Idle, r.State())
	assert.Equal(t, 0, f.clock.Pending())
}

func TestLoopGuardClassifiesBatches(t *testing.T) {
	doc := dom.NewDocument()
	list := doc.CreateElement("div")
	injected := widget.Mark(doc.CreateElement("div"))
	nested := doc.CreateElement("span")
	injected.AppendChild(nested)
	plain := doc.CreateElement("div")

	assert.False(t, reconcile.Internal(nil))
	assert.True(t, reconcile.Internal([]dom.Record{{Target: list, Added: []*dom.Node{injected}}}))
	assert.True(t, reconcile.Internal([]dom.Record{{Target: list, Removed: []*dom.Node{injected}}}))
	assert.False(t, reconcile.Internal([]dom.Record{{Target: injected, Removed: []*dom.Node{nested}}}))
	assert.False(t, reconcile.Internal([]dom.Record{
		{Target: list, Added: []*dom.Node{injected}},
		{Target: list, Added: []*dom.Node{plain}},
	}))
	assert.False(t, reconcile.Internal([]dom.Record{{Target: list}}))
}

func TestObserverIgnoresInjectedMutations(t *testing.T) {
	f := loreFixture(t)
	f.r.Start()
	f.settle()

	f.list().AppendChild(widget.Mark(f.doc.CreateElement("div")))
	f.doc.Flush()
	assert.Equal(t, reconcile.Idle, f.r.State())

	_, err := f.pn.Add("::Lore:: Appendix")
	require.NoError(t, err)
	f.doc.Flush()
	assert.Equal(t, reconcile.PendingRebuild, f.r.State())

	f.clock.Advance(reconcile.DefaultDebounce)
	assert.Equal(t, []string{"[Lore:134]", "2"}, f.layout())
	last := f.reports[len(f.reports)-1]
	assert.Equal(t, []reconcile.Reason{reconcile.ReasonObserver}, last.Reasons)
}

func TestHostNodeInsideBandIsExternal(t *testing.T) {
	f := loreFixture(t)
	f.r.Start()
	f.settle()

	member := f.node("1")
	require.Equal(t, widget.FindBand(f.list(), "Lore"), member.Parent())
	member.AppendChild(f.doc.CreateElement("span"))
	f.doc.Flush()
	assert.Equal(t, reconcile.PendingRebuild, f.r.State())
}

func TestCollapsedMembersAreHiddenNotRemoved(t *testing.T) {
	f := loreFixture(t)
	f.prefs.SetCollapsed(book, "Lore", true)
	f.r.Start()
	f.settle()

	assert.Equal(t, []string{"[Lore:13]", "2"}, f.layout())
	assert.True(t, f.node("1").Hidden())
	assert.True(t, f.node("3").Hidden())
	assert.False(t, f.node("2").Hidden())
	band := widget.FindBand(f.list(), "Lore")
	assert.True(t, band.HasClass(widget.CollapsedClass))
	assert.True(t, band.FirstChild().Visible())

	f.prefs.SetCollapsed(book, "Lore", false)
	f.r.Flush(reconcile.ReasonGroupCollapse)
	assert.False(t, f.node("1").Hidden())
}

func TestStaleBandIsUnwrapped(t *testing.T) {
	f := loreFixture(t)
	f.prefs.SetCollapsed(book, "Lore", true)
	f.r.Start()
	f.settle()

	for _, id := range []string{"1", "3"} {
		comment := f.node(id).Find(dom.ByAttr(panel.NameAttr, "comment"))
		comment.SetValue("ungrouped " + id)
	}
	rep := f.r.Flush(reconcile.ReasonObserver)

	assert.False(t, rep.Applied)
	assert.Empty(t, f.r.Signature())
	assert.Equal(t, []string{"1", "3", "2"}, f.layout())
	assert.Nil(t, f.list().Find(widget.IsHeader))
	assert.False(t, f.node("1").Hidden())
	assert.False(t, f.node("3").Hidden())
}

func TestBandsFollowGroupOrder(t *testing.T) {
	f := newFixture(t, "::A:: a1", "loose", "::B:: b1", "::A:: a2")
	f.r.Start()
	f.settle()
	assert.Equal(t, []string{"[A:14]", "[B:3]", "2"}, f.layout())

	f.prefs.SetOrder(book, []string{"B", "A"})
	f.r.Flush(reconcile.ReasonGroupMove)
	assert.Equal(t, []string{"[B:3]", "[A:14]", "2"}, f.layout())
}

func TestTrailingBandsSwap(t *testing.T) {
	f := newFixture(t, "::A:: a1", "::B:: b1")
	f.r.Start()
	f.settle()
	assert.Equal(t, []string{"[A:1]", "[B:2]"}, f.layout())

	f.prefs.SetOrder(book, []string{"B", "A"})
	rep := f.r.Flush(reconcile.ReasonGroupMove)
	assert.True(t, rep.Applied)
	assert.Equal(t, []string{"[B:2]", "[A:1]"}, f.layout())

	rep = f.r.Flush(reconcile.ReasonGroupMove)
	assert.True(t, rep.Unchanged)
	assert.Equal(t, []string{"[B:2]", "[A:1]"}, f.layout())
}

func TestMisplacedBandIsRepaired(t *testing.T) {
	f := newFixture(t, "::A:: a1", "::B:: b1", "::C:: c1")
	f.r.Start()
	f.settle()
	assert.Equal(t, []string{"[A:1]", "[B:2]", "[C:3]"}, f.layout())
	sig := f.r.Signature()

	// moving an injected band is an internal mutation, the observer ignores it
	list := f.list()
	list.InsertBefore(widget.FindBand(list, "C"), widget.FindBand(list, "A"))
	f.doc.Flush()
	assert.Equal(t, reconcile.Idle, f.r.State())

	rep := f.r.Flush(reconcile.ReasonRefresh)
	assert.True(t, rep.Applied)
	assert.Equal(t, sig, f.r.Signature())
	assert.Equal(t, []string{"[A:1]", "[B:2]", "[C:3]"}, f.layout())
}

func TestFieldSortReordersMembers(t *testing.T) {
	f := loreFixture(t)
	f.r.Start()
	f.settle()

	f.pn.SetSort("uid:desc")
	f.settle()
	assert.Equal(t, []string{"[Lore:31]", "2"}, f.layout())
	last := f.reports[len(f.reports)-1]
	assert.Contains(t, last.Reasons, reconcile.ReasonSort)
}

func TestMissingContainerRetriesSilently(t *testing.T) {
	f := loreFixture(t)
	f.pn.Unmount()
	f.r.Start()
	f.clock.Advance(reconcile.DefaultDebounce)

	require.Len(t, f.reports, 1)
	assert.True(t, f.reports[0].Missing)
	assert.Equal(t, reconcile.Idle, f.r.State())

	f.pn.Mount()
	require.NoError(t, f.pn.Render(context.Background()))
	f.clock.Advance(reconcile.AttachRetryEvery + reconcile.DefaultDebounce)

	require.Len(t, f.reports, 2)
	assert.True(t, f.reports[1].Applied)
	assert.Equal(t, []string{"[Lore:13]", "2"}, f.layout())
	stats := f.r.Stats()
	assert.Equal(t, 1, stats.Missing)
	assert.Equal(t, 1, stats.Applied)
}

func TestPerEntryTogglesDriveEnablement(t *testing.T) {
	f := loreFixture(t)
	f.r.Start()
	f.settle()

	for _, e := range f.pn.Collect() {
		if e.Group() == "Lore" {
			require.True(t, f.pn.SetDisabled(e, true))
		}
	}
	f.settle()

	assert.False(t, f.prefs.Enabled(book, "Lore"))
	band := widget.FindBand(f.list(), "Lore")
	require.NotNil(t, band)
	assert.True(t, band.HasClass(widget.DisabledClass))
}

func TestStopUnwrapsAndDetaches(t *testing.T) {
	f := loreFixture(t)
	f.r.Start()
	f.settle()

	f.r.Stop()
	assert.Equal(t, []string{"1", "3", "2"}, f.layout())
	assert.Nil(t, f.doc.ByID(widget.ToolbarID))

	f.r.Request(reconcile.ReasonRefresh)
	assert.Equal(t, 0, f.clock.Pending())
	f.pn.SetSearch("Intro")
	assert.Equal(t, 0, f.clock.Pending())
}

func TestHeaderClicksRunWorkflows(t *testing.T) {
	f := loreFixture(t)
	svc := &app.Service{Prefs: f.prefs, Source: f.src, Live: f.pn, Rebuilder: f.r}
	f.factory.Actions = &app.Actions{Service: svc}
	f.r.Start()
	f.settle()

	header := widget.FindHeader(f.list(), "Lore")
	header.Find(dom.ByAttr(widget.ActionAttr, widget.ActionCollapse)).Click()
	f.settle()
	assert.True(t, f.prefs.Collapsed(book, "Lore"))
	assert.True(t, f.node("1").Hidden())
}

func TestRenameScenarioEndToEnd(t *testing.T) {
	f := loreFixture(t)
	svc := &app.Service{Prefs: f.prefs, Source: f.src, Live: f.pn, Rebuilder: f.r}
	f.r.Start()
	f.settle()

	_, err := svc.RenameTo(context.Background(), book, "Lore", "Background")
	require.NoError(t, err)
	f.settle()

	assert.Equal(t, []string{"[Background:13]", "2"}, f.layout())
	assert.Nil(t, widget.FindBand(f.list(), "Lore"))
	assert.Equal(t, []string{"::Background:: Intro", "Standalone", "::Background:: Outro"}, f.src.Raw(book))
}

// Package reconcile keeps the grouped layout of the host panel in sync with
// its entries. Requests are debounced; each rebuild decodes the live
// entries, computes a plan and patches the tree only when the plan's
// signature changed.
//
// A Reconciler is not safe for concurrent use. Every method, and every
// Scheduler callback, must run on the goroutine owning the host tree.
package reconcile

import (
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"tableflip.dev/bands/pkg/dom"
	"tableflip.dev/bands/pkg/entry"
	"tableflip.dev/bands/pkg/host"
	"tableflip.dev/bands/pkg/logging"
	"tableflip.dev/bands/pkg/loop"
	"tableflip.dev/bands/pkg/plan"
	"tableflip.dev/bands/pkg/prefs"
	"tableflip.dev/bands/pkg/widget"
)

// ErrMissingContainer is returned by hosts whose list container is not
// currently rendered.
var ErrMissingContainer = errors.New("reconcile: list container missing")

// Defaults.
const (
	DefaultDebounce    = 50 * time.Millisecond
	AttachRetryEvery   = 250 * time.Millisecond
	AttachRetryLimit   = 60
	defaultLoggerField = "reconciler"
)

// Widgets creates and patches the injected band markup.
type Widgets interface {
	NewBand(doc *dom.Document, group string) *dom.Node
	NewHeader(doc *dom.Document, group string) *dom.Node
	PatchHeader(band, header *dom.Node, g plan.Group)
}

// Toolbar is implemented by widgets offering a toolbar affordance.
type Toolbar interface {
	EnsureToolbar()
	RemoveToolbar()
}

// Controls exposes the host's sort selection and the inputs whose changes
// should trigger rebuilds.
type Controls interface {
	SortConfig() plan.SortConfig
	Bind(trigger func(Reason)) (unbind func())
}

// Config wires a Reconciler.
type Config struct {
	Source    host.EntrySource
	Widgets   Widgets
	Prefs     *prefs.Store
	Scheduler loop.Scheduler

	// Controls is optional; without it entries keep host order.
	Controls Controls
	Debounce time.Duration
	Log      *logrus.Entry
	Now      func() time.Time
	// OnRebuild, when set, observes every rebuild pass.
	OnRebuild func(Report)
}

// Reconciler owns the rebuild state machine for one panel.
type Reconciler struct {
	cfg Config
	log *logrus.Entry

	state   State
	reasons map[Reason]struct{}
	timer   loop.Timer
	gen     uint64

	observer    *dom.Observer
	observedDoc *dom.Document
	attachTimer loop.Timer
	attachTries int
	unbind      func()

	signature string
	stats     Stats
	started   bool
	stopped   bool
}

// New validates cfg and returns an idle Reconciler.
func New(cfg Config) (*Reconciler, error) {
	switch {
	case cfg.Source == nil:
		return nil, errors.New("reconcile: entry source required")
	case cfg.Widgets == nil:
		return nil, errors.New("reconcile: widgets required")
	case cfg.Prefs == nil:
		return nil, errors.New("reconcile: preference store required")
	case cfg.Scheduler == nil:
		return nil, errors.New("reconcile: scheduler required")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Reconciler{
		cfg:     cfg,
		log:     logging.Component(cfg.Log, defaultLoggerField),
		reasons: make(map[Reason]struct{}),
	}, nil
}

// State returns the scheduler state.
func (r *Reconciler) State() State {
	return r.state
}

// Stats returns a copy of the rebuild counters.
func (r *Reconciler) Stats() Stats {
	return r.stats.clone()
}

// Signature returns the signature of the last applied plan.
func (r *Reconciler) Signature() string {
	return r.signature
}

// Start binds the host controls, attaches the mutation observer and
// requests the initial rebuild.
func (r *Reconciler) Start() {
	if r.started || r.stopped {
		return
	}
	r.started = true
	if r.cfg.Controls != nil {
		r.unbind = r.cfg.Controls.Bind(r.Request)
	}
	r.attach()
	r.Request(ReasonInit)
}

// Stop cancels pending work, detaches from the host and unwraps every band.
// A stopped Reconciler ignores further requests.
func (r *Reconciler) Stop() {
	if r.stopped {
		return
	}
	r.stopped = true
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	if r.attachTimer != nil {
		r.attachTimer.Stop()
		r.attachTimer = nil
	}
	if r.observer != nil {
		r.observer.Disconnect()
	}
	if r.unbind != nil {
		r.unbind()
		r.unbind = nil
	}
	if tb, ok := r.cfg.Widgets.(Toolbar); ok {
		tb.RemoveToolbar()
	}
	if list, err := r.cfg.Source.Container(); err == nil && list != nil {
		r.removeStale(list, nil)
	}
	r.reasons = make(map[Reason]struct{})
	r.signature = ""
	r.state = Idle
}

// Request schedules a rebuild for reason. Requests made while a rebuild is
// running are dropped; the running pass already reads the latest state.
func (r *Reconciler) Request(reason Reason) {
	if r.stopped || r.state == Rebuilding {
		return
	}
	r.reasons[reason] = struct{}{}
	if r.timer != nil {
		r.timer.Stop()
	}
	r.gen++
	gen := r.gen
	r.state = PendingRebuild
	r.timer = r.cfg.Scheduler.AfterFunc(r.cfg.Debounce, func() { r.fire(gen) })
}

func (r *Reconciler) fire(gen uint64) {
	if gen != r.gen || r.stopped || r.state != PendingRebuild {
		return
	}
	r.timer = nil
	r.runPass()
}

// Flush runs a pending rebuild immediately, or a rebuild for reasons when
// nothing is pending.
func (r *Reconciler) Flush(reasons ...Reason) Report {
	if r.stopped || r.state == Rebuilding {
		return Report{}
	}
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.gen++
	for _, reason := range reasons {
		r.reasons[reason] = struct{}{}
	}
	return r.runPass()
}

func (r *Reconciler) runPass() Report {
	reasons := sortedReasons(r.reasons)
	r.reasons = make(map[Reason]struct{})
	r.state = Rebuilding
	defer func() { r.state = Idle }()
	return r.rebuild(reasons)
}

// attach observes the current container or schedules retries until it
// appears.
func (r *Reconciler) attach() {
	list, err := r.cfg.Source.Container()
	if err == nil && list != nil {
		r.observe(list)
		return
	}
	r.scheduleAttachRetry()
}

func (r *Reconciler) scheduleAttachRetry() {
	if r.stopped || r.attachTimer != nil {
		return
	}
	if r.attachTries >= AttachRetryLimit {
		r.log.Debug("list container never appeared, waiting for the next trigger")
		return
	}
	r.attachTries++
	r.attachTimer = r.cfg.Scheduler.AfterFunc(AttachRetryEvery, func() {
		r.attachTimer = nil
		if r.stopped {
			return
		}
		list, err := r.cfg.Source.Container()
		if err != nil || list == nil {
			r.scheduleAttachRetry()
			return
		}
		r.attachTries = 0
		r.observe(list)
		r.Request(ReasonInit)
	})
}

func (r *Reconciler) observe(list *dom.Node) {
	if r.observer == nil || r.observedDoc != list.Document() {
		if r.observer != nil {
			r.observer.Disconnect()
		}
		r.observer = list.Document().NewObserver(r.onMutations)
		r.observedDoc = list.Document()
	}
	r.observer.Observe(list)
}

func (r *Reconciler) suspend() {
	if r.observer != nil {
		r.observer.Disconnect()
	}
}

func (r *Reconciler) resume() {
	if r.stopped {
		return
	}
	list, err := r.cfg.Source.Container()
	if err != nil || list == nil {
		r.scheduleAttachRetry()
		return
	}
	r.observe(list)
}

func (r *Reconciler) onMutations(records []dom.Record) {
	if r.state == Rebuilding {
		return
	}
	if Internal(records) {
		return
	}
	r.Request(ReasonObserver)
}

// Internal reports whether every node added or removed in the batch carries
// the injected marker itself. A record without changed nodes makes the
// batch external.
func Internal(records []dom.Record) bool {
	if len(records) == 0 {
		return false
	}
	for _, rec := range records {
		changed := rec.Changed()
		if len(changed) == 0 {
			return false
		}
		for _, n := range changed {
			if !widget.IsInjected(n) {
				return false
			}
		}
	}
	return true
}

func (r *Reconciler) rebuild(reasons []Reason) Report {
	start := r.cfg.Now()
	report := Report{Reasons: reasons}
	defer func() {
		report.Elapsed = r.cfg.Now().Sub(start)
		r.stats.record(report)
		r.logPass(report)
		if r.cfg.OnRebuild != nil {
			r.cfg.OnRebuild(report)
		}
	}()

	list, err := r.cfg.Source.Container()
	if err != nil || list == nil {
		report.Missing = true
		r.attachTries = 0
		r.scheduleAttachRetry()
		return report
	}

	r.suspend()
	defer r.resume()

	if tb, ok := r.cfg.Widgets.(Toolbar); ok {
		tb.EnsureToolbar()
	}

	entries := r.cfg.Source.Collect()
	book := r.cfg.Source.BookKey()
	order := r.cfg.Prefs.NormalizeOrder(book, entry.Groups(entries))
	SyncEnablement(r.cfg.Prefs, book, entries)

	sortCfg := plan.SortConfig{Mode: plan.ModeNone}
	if r.cfg.Controls != nil {
		sortCfg = r.cfg.Controls.SortConfig()
	}
	p := plan.Compute(entries, order, sortCfg,
		plan.WithEnabled(func(g string) bool { return r.cfg.Prefs.Enabled(book, g) }),
		plan.WithCollapsed(func(g string) bool { return r.cfg.Prefs.Collapsed(book, g) }),
	)

	r.removeStale(list, p.Names())
	report.Groups = len(p.Groups)

	if p.Empty() {
		r.signature = ""
		return report
	}

	sig := p.Signature()
	report.Signature = sig
	if sig == r.signature && r.structurallyPresent(list, p) {
		report.Unchanged = true
		return report
	}

	r.apply(list, p)
	r.signature = sig
	report.Applied = true
	return report
}

// SyncEnablement lets per-entry enablement override the group preference.
// A group whose members expose per-entry toggles is enabled iff at least
// one of them is enabled; the preference is updated to match. Groups
// without readable toggles keep their preference.
func SyncEnablement(store *prefs.Store, book string, entries []*entry.Entry) {
	type tally struct{ readable, enabled int }
	tallies := make(map[string]*tally)
	var order []string
	for _, e := range entries {
		g := e.Group()
		if g == "" {
			continue
		}
		disabled, ok := e.Disabled()
		if !ok {
			continue
		}
		t := tallies[g]
		if t == nil {
			t = &tally{}
			tallies[g] = t
			order = append(order, g)
		}
		t.readable++
		if !disabled {
			t.enabled++
		}
	}
	for _, g := range order {
		t := tallies[g]
		derived := t.enabled > 0
		if store.Enabled(book, g) != derived {
			store.SetEnabled(book, g, derived)
		}
	}
}

// removeStale unwraps bands whose group is not in valid and removes stray
// headers. Unwrapped members are shown again.
func (r *Reconciler) removeStale(list *dom.Node, valid []string) {
	keep := make(map[string]struct{}, len(valid))
	for _, name := range valid {
		keep[name] = struct{}{}
	}
	for _, c := range list.Children() {
		if !widget.IsBand(c) {
			continue
		}
		if _, ok := keep[widget.GroupOf(c)]; ok {
			continue
		}
		for _, child := range c.Children() {
			if widget.IsHeader(child) {
				child.Remove()
				continue
			}
			list.InsertBefore(child, c)
			child.SetHidden(false)
		}
		c.Remove()
	}
	for _, h := range list.FindAll(widget.IsHeader) {
		if _, ok := keep[widget.GroupOf(h)]; !ok {
			h.Remove()
		}
	}
}

// structurallyPresent verifies that the bands of p sit under list in plan
// order, each with its header first and its members after it in order.
func (r *Reconciler) structurallyPresent(list *dom.Node, p plan.Plan) bool {
	var bands []*dom.Node
	for _, c := range list.Children() {
		if widget.IsBand(c) {
			bands = append(bands, c)
		}
	}
	if len(bands) != len(p.Groups) {
		return false
	}
	for i, g := range p.Groups {
		band := bands[i]
		if widget.GroupOf(band) != g.Name {
			return false
		}
		first := band.FirstChild()
		if !widget.IsHeader(first) || widget.GroupOf(first) != g.Name {
			return false
		}
		prev := first
		for _, e := range g.Entries {
			if e.Node == nil {
				continue
			}
			if e.Node.Parent() != band || prev.NextSibling() != e.Node {
				return false
			}
			prev = e.Node
		}
	}
	return true
}

// apply patches the tree to match p. Bands and headers are reused by group
// key, never recreated.
func (r *Reconciler) apply(list *dom.Node, p plan.Plan) {
	doc := list.Document()

	var cursor, prev *dom.Node
	if first := firstNode(p); first != nil {
		cursor = topLevel(list, first)
	}

	for _, g := range p.Groups {
		band := widget.FindBand(list, g.Name)
		if band == nil {
			band = widget.Keyed(r.cfg.Widgets.NewBand(doc, g.Name), widget.BandClass, g.Name)
		}
		header := widget.FindHeader(list, g.Name)
		if header == nil {
			header = widget.Keyed(r.cfg.Widgets.NewHeader(doc, g.Name), widget.HeaderClass, g.Name)
		}

		switch {
		case prev != nil:
			if prev.NextSibling() != band {
				list.InsertBefore(band, prev.NextSibling())
			}
		case cursor != nil && cursor.Parent() == list:
			if cursor != band {
				list.InsertBefore(band, cursor)
			}
		case band.Parent() != list:
			list.AppendChild(band)
		}

		if band.FirstChild() != header {
			band.InsertBefore(header, band.FirstChild())
		}
		r.cfg.Widgets.PatchHeader(band, header, g)

		members := make(map[*dom.Node]struct{}, len(g.Entries))
		anchor := header
		for _, e := range g.Entries {
			if e.Node == nil {
				continue
			}
			members[e.Node] = struct{}{}
			if anchor.NextSibling() != e.Node {
				band.InsertBefore(e.Node, anchor.NextSibling())
			}
			e.Node.SetHidden(g.Collapsed)
			anchor = e.Node
		}
		evict(list, band, header, members)

		prev = band
	}
}

// evict moves nodes that no longer belong to band out after it.
func evict(list, band, header *dom.Node, members map[*dom.Node]struct{}) {
	children := band.Children()
	for i := len(children) - 1; i >= 0; i-- {
		c := children[i]
		if c == header {
			continue
		}
		if _, ok := members[c]; ok {
			continue
		}
		if widget.IsHeader(c) {
			c.Remove()
			continue
		}
		list.InsertBefore(c, band.NextSibling())
		c.SetHidden(false)
	}
}

func firstNode(p plan.Plan) *dom.Node {
	for _, g := range p.Groups {
		for _, e := range g.Entries {
			if e.Node != nil {
				return e.Node
			}
		}
	}
	return nil
}

// topLevel climbs from n to its ancestor directly under list.
func topLevel(list, n *dom.Node) *dom.Node {
	for cur := n; cur != nil; cur = cur.Parent() {
		if cur.Parent() == list {
			return cur
		}
	}
	return nil
}

func (r *Reconciler) logPass(report Report) {
	fields := logrus.Fields{
		"reasons": joinReasons(report.Reasons),
		"elapsed": report.Elapsed,
		"groups":  report.Groups,
	}
	le := r.log.WithFields(fields)
	switch {
	case report.Missing:
		le.Debug("rebuild skipped, container missing")
		return
	case report.Unchanged:
		le = le.WithField("skipped", true)
	}
	debug := r.cfg.Prefs.Debug()
	if debug.Enabled && debug.LogRebuilds {
		le.Info("rebuild")
		return
	}
	le.Debug("rebuild")
}

func joinReasons(reasons []Reason) string {
	parts := make([]string, len(reasons))
	for i, r := range reasons {
		parts[i] = string(r)
	}
	return strings.Join(parts, ",")
}

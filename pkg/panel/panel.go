// Package panel is the in-process host: it renders one page of a book from
// a CollectionSource into a dom.Document, persists edits made in that tree
// and exposes the live entries to the grouping engine.
package panel

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"tableflip.dev/bands/pkg/dom"
	"tableflip.dev/bands/pkg/entry"
	"tableflip.dev/bands/pkg/host"
	"tableflip.dev/bands/pkg/logging"
	"tableflip.dev/bands/pkg/plan"
	"tableflip.dev/bands/pkg/reconcile"
)

// Element ids and names of the host markup.
const (
	PanelID      = "entries-panel"
	ControlsID   = "entries-controls"
	ListID       = "entries-list"
	SortID       = "entries-sort"
	SearchID     = "entries-search"
	BookID       = "entries-book"
	PaginationID = "entries-pagination"
	RefreshID    = "entries-refresh"
	NewEntryID   = "entries-new"

	EntryClass  = "entry"
	DeleteClass = "entry-delete"
	UIDAttr     = "data-uid"
	PageAttr    = "data-page"
	NameAttr    = "name"

	DefaultPageSize = 25
)

// SortChoices are the values offered by the sort select.
var SortChoices = []string{
	"none", "as-is",
	"comment:asc", "comment:desc",
	"order:asc", "order:desc",
	"uid:asc", "uid:desc",
	"depth:asc", "probability:desc",
	"content:asc",
}

// fieldInputs are the per-entry inputs read into Entry.Fields.
var fieldInputs = []string{"order", "depth", "probability", "content"}

// Options configures a Panel.
type Options struct {
	Book     string
	Books    []string
	PageSize int
	Context  context.Context
	Log      *logrus.Entry
}

// Panel renders and edits one book. It is not safe for concurrent use.
type Panel struct {
	doc  *dom.Document
	src  host.CollectionSource
	ctx  context.Context
	log  *logrus.Entry
	opts Options

	book     string
	page     int
	pageSize int
	all      []*entry.Entry

	batching   int
	batchDirty bool

	root, controls, list *dom.Node
	sortSel, search      *dom.Node
	bookSel, pagination  *dom.Node
	refresh, newEntry    *dom.Node
}

// New returns an unmounted panel for src.
func New(doc *dom.Document, src host.CollectionSource, opts Options) *Panel {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	return &Panel{
		doc:      doc,
		src:      src,
		ctx:      opts.Context,
		log:      logging.Component(opts.Log, "panel"),
		opts:     opts,
		book:     opts.Book,
		pageSize: opts.PageSize,
	}
}

// Document returns the tree the panel renders into.
func (p *Panel) Document() *dom.Document {
	return p.doc
}

// Mount builds the panel markup under the document root.
func (p *Panel) Mount() {
	if p.root != nil && p.root.Attached() {
		return
	}
	d := p.doc
	p.root = el(d, "div", PanelID)
	p.controls = el(d, "div", ControlsID)
	p.sortSel = el(d, "select", SortID)
	for _, v := range SortChoices {
		opt := d.CreateElement("option")
		opt.SetValue(v)
		opt.SetText(v)
		p.sortSel.AppendChild(opt)
	}
	p.sortSel.SetValue("none")
	p.search = el(d, "input", SearchID)
	p.bookSel = el(d, "select", BookID)
	for _, b := range p.opts.Books {
		opt := d.CreateElement("option")
		opt.SetValue(b)
		opt.SetText(b)
		p.bookSel.AppendChild(opt)
	}
	p.bookSel.SetValue(p.book)
	p.pagination = el(d, "div", PaginationID)
	p.refresh = el(d, "button", RefreshID)
	p.refresh.SetText("Refresh")
	p.newEntry = el(d, "button", NewEntryID)
	p.newEntry.SetText("New Entry")
	for _, c := range []*dom.Node{p.sortSel, p.search, p.bookSel, p.pagination, p.refresh, p.newEntry} {
		p.controls.AppendChild(c)
	}
	p.list = el(d, "div", ListID)
	p.root.AppendChild(p.controls)
	p.root.AppendChild(p.list)

	// Host behaviour, registered before any extension listener.
	p.sortSel.On(dom.EventChange, func(*dom.Event) { p.redraw() })
	p.search.On(dom.EventInput, func(*dom.Event) {
		p.page = 0
		p.redraw()
	})
	p.bookSel.On(dom.EventChange, func(ev *dom.Event) {
		p.book = ev.Target.Value()
		p.page = 0
		p.reload()
	})
	p.pagination.On(dom.EventClick, func(ev *dom.Event) {
		if v, ok := ev.Target.Attr(PageAttr); ok {
			if n, err := strconv.Atoi(v); err == nil {
				p.page = n
				p.redraw()
			}
		}
	})
	p.refresh.On(dom.EventClick, func(*dom.Event) { p.reload() })
	p.newEntry.On(dom.EventClick, func(*dom.Event) {
		if _, err := p.Add(""); err != nil {
			p.log.WithError(err).Warn("create entry")
		}
	})

	d.Root().AppendChild(p.root)
}

// Unmount detaches the panel, as when the host closes it.
func (p *Panel) Unmount() {
	if p.root != nil {
		p.root.Remove()
	}
}

func el(d *dom.Document, tag, id string) *dom.Node {
	n := d.CreateElement(tag)
	n.SetAttr("id", id)
	return n
}

// Container returns the entry list while the panel is mounted.
func (p *Panel) Container() (*dom.Node, error) {
	if p.list == nil || !p.list.Attached() {
		return nil, reconcile.ErrMissingContainer
	}
	return p.list, nil
}

// ControlsNode is where toolbar affordances go, nil while unmounted.
func (p *Panel) ControlsNode() *dom.Node {
	if p.controls == nil || !p.controls.Attached() {
		return nil
	}
	return p.controls
}

// BookKey names the book shown.
func (p *Panel) BookKey() string {
	return p.book
}

// Page returns the zero-based page and the page count.
func (p *Panel) Page() (int, int) {
	return p.page, p.pages(len(p.filtered()))
}

// Render loads the book from the source and draws the current page.
func (p *Panel) Render(ctx context.Context) error {
	if p.book == "" {
		p.all = nil
		p.redraw()
		return nil
	}
	entries, err := p.src.Load(ctx, p.book)
	if err != nil {
		return fmt.Errorf("panel: load %q: %w", p.book, err)
	}
	p.all = entries
	p.redraw()
	return nil
}

func (p *Panel) reload() {
	if err := p.Render(p.ctx); err != nil {
		p.log.WithError(err).Warn("reload")
	}
}

func (p *Panel) filtered() []*entry.Entry {
	q := strings.ToLower(strings.TrimSpace(p.searchValue()))
	if q == "" {
		return p.all
	}
	var out []*entry.Entry
	for _, e := range p.all {
		if strings.Contains(strings.ToLower(e.Raw), q) {
			out = append(out, e)
		}
	}
	return out
}

func (p *Panel) searchValue() string {
	if p.search == nil {
		return ""
	}
	return p.search.Value()
}

func (p *Panel) pages(n int) int {
	if n == 0 {
		return 1
	}
	return (n + p.pageSize - 1) / p.pageSize
}

// redraw replaces the list content with fresh entry nodes for the current
// page, the way the host re-renders after any change.
func (p *Panel) redraw() {
	if p.list == nil {
		return
	}
	visible := p.filtered()
	if cfg := p.SortConfig(); cfg.Mode == plan.ModeField {
		visible = plan.SortEntries(visible, cfg)
	}
	pages := p.pages(len(visible))
	if p.page >= pages {
		p.page = pages - 1
	}
	if p.page < 0 {
		p.page = 0
	}
	start := p.page * p.pageSize
	end := start + p.pageSize
	if end > len(visible) {
		end = len(visible)
	}

	p.list.Clear()
	for _, e := range visible[start:end] {
		p.list.AppendChild(p.entryNode(e))
	}
	p.drawPagination(pages)
}

func (p *Panel) drawPagination(pages int) {
	p.pagination.Clear()
	label := p.doc.CreateElement("span")
	label.SetText(fmt.Sprintf("%d/%d", p.page+1, pages))
	p.pagination.AppendChild(label)
	if p.page > 0 {
		prev := p.doc.CreateElement("button")
		prev.SetAttr(PageAttr, strconv.Itoa(p.page-1))
		prev.SetText("‹")
		p.pagination.AppendChild(prev)
	}
	if p.page+1 < pages {
		next := p.doc.CreateElement("button")
		next.SetAttr(PageAttr, strconv.Itoa(p.page+1))
		next.SetText("›")
		p.pagination.AppendChild(next)
	}
}

// GoToPage clicks the pagination control for page.
func (p *Panel) GoToPage(page int) {
	btn := p.pagination.Find(dom.ByAttr(PageAttr, strconv.Itoa(page)))
	if btn == nil {
		return
	}
	btn.Click()
}

func (p *Panel) entryNode(e *entry.Entry) *dom.Node {
	d := p.doc
	n := d.CreateElement("div")
	n.SetClass(EntryClass, true)
	n.SetAttr(UIDAttr, e.ID)

	comment := input(d, "textarea", "comment", e.Raw)
	comment.On(dom.EventChange, func(ev *dom.Event) {
		p.update(e.ID, func(rec *entry.Entry) { rec.Raw = ev.Target.Value() })
	})
	n.AppendChild(comment)

	for _, name := range fieldInputs {
		name := name
		v := ""
		if f := e.Field(name); f != nil {
			v = fmt.Sprint(f)
		}
		tag := "input"
		if name == "content" {
			tag = "textarea"
		}
		in := input(d, tag, name, v)
		in.On(dom.EventChange, func(ev *dom.Event) {
			p.update(e.ID, func(rec *entry.Entry) { rec.SetField(name, ev.Target.Value()) })
		})
		n.AppendChild(in)
	}

	disable := input(d, "input", "disable", "false")
	disable.SetAttr("type", "checkbox")
	if disabled, _ := e.Disabled(); disabled {
		disable.SetChecked(true)
	}
	disable.On(dom.EventChange, func(ev *dom.Event) {
		on := ev.Target.Checked()
		p.update(e.ID, func(rec *entry.Entry) { rec.SetDisabled(on) })
	})
	n.AppendChild(disable)

	del := d.CreateElement("button")
	del.SetClass(DeleteClass, true)
	del.SetText("Delete")
	del.On(dom.EventClick, func(*dom.Event) {
		if err := p.remove(e.ID); err != nil {
			p.log.WithError(err).Warn("delete entry")
		}
	})
	n.AppendChild(del)
	return n
}

func input(d *dom.Document, tag, name, value string) *dom.Node {
	n := d.CreateElement(tag)
	n.SetAttr(NameAttr, name)
	n.SetValue(value)
	return n
}

// update edits the stored record id, saves and redraws unless batching.
func (p *Panel) update(id string, fn func(*entry.Entry)) {
	for _, rec := range p.all {
		if rec.ID == id {
			fn(rec)
			p.persist()
			return
		}
	}
}

func (p *Panel) persist() {
	if p.batching > 0 {
		p.batchDirty = true
		return
	}
	if err := p.src.Save(p.ctx, p.book, p.all); err != nil {
		p.log.WithError(err).Warn("save entries")
	}
	p.redraw()
}

func (p *Panel) remove(id string) error {
	out := p.all[:0:0]
	found := false
	for _, rec := range p.all {
		if rec.ID == id {
			found = true
			continue
		}
		out = append(out, rec)
	}
	if !found {
		return fmt.Errorf("panel: entry %q not found", id)
	}
	p.all = out
	p.persist()
	return nil
}

// Add appends a new entry to the book and redraws.
func (p *Panel) Add(raw string) (*entry.Entry, error) {
	if p.book == "" {
		return nil, errors.New("panel: no book selected")
	}
	next := 1
	for _, rec := range p.all {
		if n, err := strconv.Atoi(rec.ID); err == nil && n >= next {
			next = n + 1
		}
	}
	e := entry.New(p.book, strconv.Itoa(next), raw)
	e.SetDisabled(false)
	p.all = append(p.all, e)
	p.persist()
	return e, nil
}

// Batch defers saves and redraws until fn returns, then does both once.
func (p *Panel) Batch(fn func() error) error {
	p.batching++
	err := fn()
	p.batching--
	if p.batching == 0 && p.batchDirty {
		p.batchDirty = false
		p.persist()
	}
	return err
}

// SortConfig reads the sort select.
func (p *Panel) SortConfig() plan.SortConfig {
	if p.sortSel == nil {
		return plan.SortConfig{Mode: plan.ModeNone}
	}
	cfg, err := plan.ParseSort(p.sortSel.Value())
	if err != nil {
		return plan.SortConfig{Mode: plan.ModeNone}
	}
	return cfg
}

// SetSort selects value in the sort control as a user would.
func (p *Panel) SetSort(value string) {
	p.sortSel.SetValue(value)
	p.sortSel.Dispatch(dom.EventChange)
}

// SetSearch types q into the search box.
func (p *Panel) SetSearch(q string) {
	p.search.SetValue(q)
	p.search.Dispatch(dom.EventInput)
}

// SelectBook switches the book as a user would.
func (p *Panel) SelectBook(book string) {
	p.bookSel.SetValue(book)
	p.bookSel.Dispatch(dom.EventChange)
}

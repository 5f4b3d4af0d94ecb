package panel

import (
	"fmt"

	"tableflip.dev/bands/pkg/codec"
	"tableflip.dev/bands/pkg/dom"
	"tableflip.dev/bands/pkg/entry"
	"tableflip.dev/bands/pkg/reconcile"
	"tableflip.dev/bands/pkg/widget"
)

// Collect decodes the entry nodes of the list in tree order. Grouped
// entries get a title-only proxy editor.
func (p *Panel) Collect() []*entry.Entry {
	list, err := p.Container()
	if err != nil {
		return nil
	}
	nodes := list.FindAll(dom.ByClass(EntryClass))
	out := make([]*entry.Entry, 0, len(nodes))
	for _, n := range nodes {
		id, ok := n.Attr(UIDAttr)
		if !ok {
			continue
		}
		comment := field(n, "comment")
		raw := ""
		if comment != nil {
			raw = comment.Value()
		}
		e := entry.New(p.book, id, raw)
		e.Node = n
		for _, name := range fieldInputs {
			if in := field(n, name); in != nil && in.Value() != "" {
				e.SetField(name, in.Value())
			}
		}
		if toggle := field(n, "disable"); toggle != nil {
			e.SetDisabled(toggle.Checked())
		}
		if comment != nil {
			p.syncProxy(comment, e)
		}
		out = append(out, e)
	}
	return out
}

func (p *Panel) syncProxy(comment *dom.Node, e *entry.Entry) {
	if !e.Grouped() {
		if proxy := comment.Parent().Find(dom.ByClass(widget.ProxyClass)); proxy != nil {
			proxy.Remove()
		}
		comment.SetHidden(false)
		return
	}
	widget.EnsureProxy(comment, e.Title(),
		func(title string) string { return codec.Retitle(comment.Value(), title) },
		func(string) { comment.Dispatch(dom.EventChange) },
	)
}

func field(n *dom.Node, name string) *dom.Node {
	return n.Find(dom.ByAttr(NameAttr, name))
}

func (p *Panel) nodeFor(e *entry.Entry) (*dom.Node, error) {
	if e.Node != nil && e.Node.Attached() {
		return e.Node, nil
	}
	list, err := p.Container()
	if err != nil {
		return nil, err
	}
	n := list.Find(dom.ByAttr(UIDAttr, e.ID))
	if n == nil {
		return nil, fmt.Errorf("panel: entry %q is not rendered", e.ID)
	}
	return n, nil
}

// Write sets the comment of e and fires the events a user edit would.
func (p *Panel) Write(e *entry.Entry, raw string) error {
	n, err := p.nodeFor(e)
	if err != nil {
		return err
	}
	comment := field(n, "comment")
	if comment == nil {
		return fmt.Errorf("panel: entry %q has no comment field", e.ID)
	}
	comment.SetValue(raw)
	comment.Dispatch(dom.EventInput)
	comment.Dispatch(dom.EventChange)
	e.Raw = raw
	return nil
}

// SetDisabled flips the per-entry toggle of e.
func (p *Panel) SetDisabled(e *entry.Entry, disabled bool) bool {
	n, err := p.nodeFor(e)
	if err != nil {
		return false
	}
	toggle := field(n, "disable")
	if toggle == nil {
		return false
	}
	if toggle.Checked() != disabled {
		toggle.SetChecked(disabled)
		toggle.Dispatch(dom.EventChange)
	}
	e.SetDisabled(disabled)
	return true
}

// Delete clicks the delete button of e.
func (p *Panel) Delete(e *entry.Entry) error {
	n, err := p.nodeFor(e)
	if err != nil {
		return err
	}
	btn := n.Find(dom.ByClass(DeleteClass))
	if btn == nil {
		return fmt.Errorf("panel: entry %q has no delete button", e.ID)
	}
	btn.Click()
	return nil
}

// Reload clicks the refresh button.
func (p *Panel) Reload() {
	if p.refresh != nil && p.refresh.Attached() {
		p.refresh.Click()
	}
}

// Bind registers trigger on the controls whose changes affect grouping.
// Controls already bound are skipped.
func (p *Panel) Bind(trigger func(reconcile.Reason)) func() {
	var offs []func()
	bind := func(n *dom.Node, event, key string, reason reconcile.Reason) {
		if n == nil || n.AttrOr(key, "") == "1" {
			return
		}
		n.SetAttr(key, "1")
		off := n.On(event, func(*dom.Event) { trigger(reason) })
		offs = append(offs, func() {
			off()
			n.RemoveAttr(key)
		})
	}
	bind(p.sortSel, dom.EventChange, "data-bands-sort-bound", reconcile.ReasonSort)
	bind(p.search, dom.EventInput, "data-bands-search-bound", reconcile.ReasonSearch)
	bind(p.bookSel, dom.EventChange, "data-bands-book-bound", reconcile.ReasonEditorChange)
	bind(p.pagination, dom.EventClick, "data-bands-page-bound", reconcile.ReasonPagination)
	bind(p.refresh, dom.EventClick, "data-bands-refresh-bound", reconcile.ReasonRefresh)
	return func() {
		for _, off := range offs {
			off()
		}
	}
}

// Label returns the title shown for an entry node, with its id when the
// title is empty.
func (p *Panel) Label(n *dom.Node) string {
	raw := ""
	if comment := field(n, "comment"); comment != nil {
		raw = comment.Value()
	}
	if _, title := codec.Decode(raw); title != "" {
		return title
	}
	return "#" + n.AttrOr(UIDAttr, "?")
}

package widget

import (
	"strconv"

	"tableflip.dev/bands/pkg/dom"
	"tableflip.dev/bands/pkg/plan"
)

// Header actions carried in ActionAttr.
const (
	ActionCollapse = "collapse"
	ActionEnabled  = "enabled"
	ActionUp       = "up"
	ActionDown     = "down"
	ActionRename   = "rename"
	ActionManage   = "manage"
	ActionDelete   = "delete"
	ActionEditor   = "open-editor"
)

// ToolbarID is the id of the group editor button.
const ToolbarID = "bands-open-editor"

// Actions receives header and toolbar intents.
type Actions interface {
	ToggleCollapsed(group string)
	SetEnabled(group string, enabled bool)
	Move(group string, delta int)
	Rename(group string)
	Manage(group string)
	Delete(group string)
	OpenEditor()
}

// Factory creates bands and headers wired to Actions.
type Factory struct {
	// Actions may be set after construction; nil ignores clicks.
	Actions Actions
	// Toolbar returns the node the group editor button belongs in.
	Toolbar func() *dom.Node
}

// NewBand returns a detached, marked band for group.
func (f *Factory) NewBand(doc *dom.Document, group string) *dom.Node {
	return Keyed(doc.CreateElement("div"), BandClass, group)
}

// NewHeader returns a detached, marked header for group with its controls.
func (f *Factory) NewHeader(doc *dom.Document, group string) *dom.Node {
	h := Keyed(doc.CreateElement("div"), HeaderClass, group)

	collapse := f.button(doc, ActionCollapse, "▾")
	collapse.On(dom.EventClick, func(*dom.Event) { f.do(func(a Actions) { a.ToggleCollapsed(group) }) })
	h.AppendChild(collapse)

	name := Mark(doc.CreateElement("span"))
	name.SetClass("bands-group-name", true)
	name.SetText(group)
	name.On(dom.EventClick, func(*dom.Event) { f.do(func(a Actions) { a.ToggleCollapsed(group) }) })
	h.AppendChild(name)

	count := Mark(doc.CreateElement("span"))
	count.SetClass("bands-group-count", true)
	h.AppendChild(count)

	enabled := Mark(doc.CreateElement("input"))
	enabled.SetAttr("type", "checkbox")
	enabled.SetAttr(ActionAttr, ActionEnabled)
	enabled.SetChecked(true)
	enabled.On(dom.EventChange, func(ev *dom.Event) {
		on := ev.Target.Checked()
		f.do(func(a Actions) { a.SetEnabled(group, on) })
	})
	h.AppendChild(enabled)

	for _, b := range []struct {
		action string
		label  string
		fn     func(Actions)
	}{
		{ActionUp, "↑", func(a Actions) { a.Move(group, -1) }},
		{ActionDown, "↓", func(a Actions) { a.Move(group, 1) }},
		{ActionRename, "✎", func(a Actions) { a.Rename(group) }},
		{ActionManage, "☰", func(a Actions) { a.Manage(group) }},
		{ActionDelete, "✕", func(a Actions) { a.Delete(group) }},
	} {
		fn := b.fn
		btn := f.button(doc, b.action, b.label)
		btn.On(dom.EventClick, func(*dom.Event) { f.do(fn) })
		h.AppendChild(btn)
	}
	return h
}

func (f *Factory) button(doc *dom.Document, action, label string) *dom.Node {
	b := Mark(doc.CreateElement("button"))
	b.SetAttr(ActionAttr, action)
	b.SetText(label)
	return b
}

func (f *Factory) do(fn func(Actions)) {
	if f.Actions != nil {
		fn(f.Actions)
	}
}

// PatchHeader brings band and header in line with g. Unchanged values are
// left alone.
func (f *Factory) PatchHeader(band, header *dom.Node, g plan.Group) {
	band.SetClass(CollapsedClass, g.Collapsed)
	band.SetClass(DisabledClass, !g.Enabled)
	header.SetClass(CollapsedClass, g.Collapsed)
	header.SetClass(DisabledClass, !g.Enabled)

	icon := "▾"
	if g.Collapsed {
		icon = "▸"
	}
	for _, c := range header.Children() {
		switch {
		case c.HasClass("bands-group-name"):
			c.SetText(g.Name)
		case c.HasClass("bands-group-count"):
			c.SetText("(" + strconv.Itoa(len(g.Entries)) + ")")
		case c.AttrOr(ActionAttr, "") == ActionCollapse:
			c.SetText(icon)
		case c.AttrOr(ActionAttr, "") == ActionEnabled:
			c.SetChecked(g.Enabled)
		}
	}
}

// EnsureToolbar adds the group editor button once.
func (f *Factory) EnsureToolbar() {
	if f.Toolbar == nil {
		return
	}
	bar := f.Toolbar()
	if bar == nil || bar.Document().ByID(ToolbarID) != nil {
		return
	}
	btn := f.button(bar.Document(), ActionEditor, "Group Editor")
	btn.SetAttr("id", ToolbarID)
	btn.SetClass(ToolbarClass, true)
	btn.On(dom.EventClick, func(*dom.Event) { f.do(func(a Actions) { a.OpenEditor() }) })
	bar.AppendChild(btn)
}

// RemoveToolbar removes the group editor button.
func (f *Factory) RemoveToolbar() {
	if f.Toolbar == nil {
		return
	}
	if bar := f.Toolbar(); bar != nil {
		if btn := bar.Document().ByID(ToolbarID); btn != nil {
			btn.Remove()
		}
	}
}

// EnsureProxy keeps a title-only editor next to comment, the host's
// comment field. Edits to the proxy are composed back into comment with
// compose and reported through onEdit.
func EnsureProxy(comment *dom.Node, title string, compose func(title string) string, onEdit func(raw string)) *dom.Node {
	parent := comment.Parent()
	if parent == nil {
		return nil
	}
	proxy := parent.Find(dom.ByClass(ProxyClass))
	if proxy == nil {
		proxy = Mark(comment.Document().CreateElement("textarea"))
		proxy.SetClass(ProxyClass, true)
		proxy.On(dom.EventInput, func(ev *dom.Event) {
			raw := compose(ev.Target.Value())
			comment.SetValue(raw)
			if onEdit != nil {
				onEdit(raw)
			}
		})
		parent.InsertBefore(proxy, comment.NextSibling())
	}
	proxy.SetValue(title)
	comment.SetHidden(true)
	return proxy
}

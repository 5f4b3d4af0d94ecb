package widget

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tableflip.dev/bands/pkg/dom"
	"tableflip.dev/bands/pkg/entry"
	"tableflip.dev/bands/pkg/plan"
)

type recorder struct {
	calls []string
}

func (r *recorder) ToggleCollapsed(group string) { r.calls = append(r.calls, "collapse:"+group) }
func (r *recorder) SetEnabled(group string, enabled bool) {
	if enabled {
		r.calls = append(r.calls, "enable:"+group)
		return
	}
	r.calls = append(r.calls, "disable:"+group)
}
func (r *recorder) Move(group string, delta int) {
	if delta < 0 {
		r.calls = append(r.calls, "up:"+group)
		return
	}
	r.calls = append(r.calls, "down:"+group)
}
func (r *recorder) Rename(group string) { r.calls = append(r.calls, "rename:"+group) }
func (r *recorder) Manage(group string) { r.calls = append(r.calls, "manage:"+group) }
func (r *recorder) Delete(group string) { r.calls = append(r.calls, "delete:"+group) }
func (r *recorder) OpenEditor()         { r.calls = append(r.calls, "editor") }

func action(h *dom.Node, name string) *dom.Node {
	return h.Find(dom.ByAttr(ActionAttr, name))
}

func TestHeaderActions(t *testing.T) {
	rec := &recorder{}
	f := &Factory{Actions: rec}
	doc := dom.NewDocument()
	h := f.NewHeader(doc, "Lore")

	assert.True(t, IsHeader(h))
	assert.Equal(t, "Lore", GroupOf(h))

	action(h, ActionCollapse).Click()
	h.Find(dom.ByClass("bands-group-name")).Click()
	box := action(h, ActionEnabled)
	box.SetChecked(false)
	box.Dispatch(dom.EventChange)
	for _, a := range []string{ActionUp, ActionDown, ActionRename, ActionManage, ActionDelete} {
		action(h, a).Click()
	}

	assert.Equal(t, []string{
		"collapse:Lore", "collapse:Lore", "disable:Lore",
		"up:Lore", "down:Lore", "rename:Lore", "manage:Lore", "delete:Lore",
	}, rec.calls)
}

func TestNilActionsIgnoreClicks(t *testing.T) {
	f := &Factory{}
	h := f.NewHeader(dom.NewDocument(), "Lore")
	assert.NotPanics(t, func() { action(h, ActionDelete).Click() })
}

func TestPatchHeader(t *testing.T) {
	f := &Factory{}
	doc := dom.NewDocument()
	band := f.NewBand(doc, "Lore")
	h := f.NewHeader(doc, "Lore")
	band.AppendChild(h)

	f.PatchHeader(band, h, plan.Group{
		Name:      "Lore",
		Entries:   []*entry.Entry{entry.New("b", "1", "::Lore:: a"), entry.New("b", "2", "::Lore:: b")},
		Enabled:   false,
		Collapsed: true,
	})

	assert.True(t, band.HasClass(CollapsedClass))
	assert.True(t, band.HasClass(DisabledClass))
	assert.Equal(t, "(2)", h.Find(dom.ByClass("bands-group-count")).Text())
	assert.Equal(t, "▸", action(h, ActionCollapse).Text())
	assert.False(t, action(h, ActionEnabled).Checked())
}

func TestFindBandAndHeader(t *testing.T) {
	f := &Factory{}
	doc := dom.NewDocument()
	list := doc.CreateElement("div")
	doc.Root().AppendChild(list)

	band := f.NewBand(doc, "Lore")
	band.AppendChild(f.NewHeader(doc, "Lore"))
	list.AppendChild(band)
	stray := f.NewHeader(doc, "Other")
	list.AppendChild(stray)

	assert.Equal(t, band, FindBand(list, "Lore"))
	assert.Nil(t, FindBand(list, "Other"))
	assert.Equal(t, stray, FindHeader(list, "Other"))
	require.NotNil(t, FindHeader(list, "Lore"))
	assert.Equal(t, band, FindHeader(list, "Lore").Parent())

	plain := doc.CreateElement("div")
	band.AppendChild(plain)
	assert.True(t, IsInjected(band))
	assert.False(t, IsInjected(plain))
}

func TestToolbarOnce(t *testing.T) {
	rec := &recorder{}
	doc := dom.NewDocument()
	bar := doc.CreateElement("div")
	doc.Root().AppendChild(bar)
	f := &Factory{Actions: rec, Toolbar: func() *dom.Node { return bar }}

	f.EnsureToolbar()
	f.EnsureToolbar()
	require.Len(t, bar.Children(), 1)
	doc.ByID(ToolbarID).Click()
	assert.Equal(t, []string{"editor"}, rec.calls)

	f.RemoveToolbar()
	assert.Empty(t, bar.Children())
}

func TestEnsureProxy(t *testing.T) {
	doc := dom.NewDocument()
	row := doc.CreateElement("div")
	comment := doc.CreateElement("textarea")
	comment.SetValue("::Lore:: Intro")
	row.AppendChild(comment)

	var edits []string
	compose := func(title string) string { return "::Lore:: " + title }
	proxy := EnsureProxy(comment, "Intro", compose, func(raw string) { edits = append(edits, raw) })
	require.NotNil(t, proxy)
	assert.True(t, comment.Hidden())
	assert.Equal(t, proxy, EnsureProxy(comment, "Intro", compose, nil))
	assert.Len(t, row.Children(), 2)

	proxy.SetValue("Prologue")
	proxy.Dispatch(dom.EventInput)
	assert.Equal(t, "::Lore:: Prologue", comment.Value())
	assert.Equal(t, []string{"::Lore:: Prologue"}, edits)

	assert.Nil(t, EnsureProxy(doc.CreateElement("textarea"), "x", compose, nil))
}

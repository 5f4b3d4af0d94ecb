// Package ui is a terminal view of a live session: groups on the left, the
// grouped panel on the right.
package ui

import (
	"context"
	"fmt"

	"github.com/marcusolsson/tui-go"

	"tableflip.dev/bands/pkg/printers"
	"tableflip.dev/bands/pkg/reconcile"
	"tableflip.dev/bands/pkg/runner/session"
)

type UI struct {
	Options session.Options

	sess   *session.Session
	ui     tui.UI
	status *tui.StatusBar

	groups    []string
	indexes   *tui.Table
	indexView *tui.Box

	layout     *tui.Table
	layoutView *tui.Box
}

const help = `'c' collapse, 'e' enable/disable, 'K'/'J' move group, 'r' refresh, 'k' key, ESC or 'q' to QUIT`

func (d *UI) Do(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	iTable := tui.NewTable(1, 0)
	iTable.SetFocused(true)

	index := tui.NewVBox(
		iTable,
		tui.NewSpacer(),
	)
	index.SetTitle("groups")
	index.SetBorder(true)
	index.SetSizePolicy(tui.Preferred, tui.Expanding)

	lTable := tui.NewTable(1, 0)
	lTable.SetSizePolicy(tui.Expanding, tui.Maximum)

	status := tui.NewStatusBar("")
	status.SetPermanentText(help)

	layout := tui.NewVBox(lTable)
	layout.SetTitle(d.Options.Book)
	layout.SetBorder(true)
	layout.SetSizePolicy(tui.Expanding, tui.Maximum)

	root := tui.NewVBox(
		tui.NewHBox(index, layout),
		tui.NewSpacer(),
		status,
	)

	key := keyUI()
	key.SetBorder(true)
	key.SetTitle("key")

	popup := tui.NewVBox(
		tui.NewHBox(key, tui.NewSpacer()),
		tui.NewSpacer(),
		status,
	)

	ui, err := tui.New(root)
	if err != nil {
		return err
	}

	d.ui = ui
	d.status = status
	d.indexes = iTable
	d.indexView = index
	d.layout = lTable
	d.layoutView = layout

	opts := d.Options
	next := opts.OnRebuild
	opts.OnRebuild = func(s *session.Session, rep reconcile.Report) {
		if next != nil {
			next(s, rep)
		}
		blocks := s.Snapshot()
		ui.Update(func() { d.populate(blocks) })
	}
	opts.OnError = func(err error) {
		ui.Update(func() { status.SetText(err.Error()) })
	}
	sess, err := session.New(opts)
	if err != nil {
		return err
	}
	d.sess = sess

	runErr := make(chan error, 1)
	go func() { runErr <- sess.Run(ctx) }()

	isKey := false
	ui.SetKeybinding("k", func() {
		if isKey {
			ui.SetWidget(root)
			isKey = false
		} else {
			ui.SetWidget(popup)
			isKey = true
		}
	})

	ui.SetKeybinding("c", func() { d.onGroup(ctx, d.toggleCollapsed) })
	ui.SetKeybinding("e", func() { d.onGroup(ctx, d.toggleEnabled) })
	ui.SetKeybinding("K", func() { d.onGroup(ctx, d.mover(-1)) })
	ui.SetKeybinding("J", func() { d.onGroup(ctx, d.mover(1)) })
	ui.SetKeybinding("r", func() {
		go func() { _ = sess.Do(ctx, sess.Panel.Reload) }()
	})

	ui.SetKeybinding("Esc", func() { ui.Quit() })
	ui.SetKeybinding("q", func() { ui.Quit() })

	if err := ui.Run(); err != nil {
		return err
	}
	cancel()
	return <-runErr
}

// onGroup runs fn for the selected group off the UI goroutine.
func (d *UI) onGroup(ctx context.Context, fn func(ctx context.Context, book, group string) error) {
	i := d.indexes.Selected()
	if i < 0 || i >= len(d.groups) {
		return
	}
	group := d.groups[i]
	book := d.Options.Book
	go func() {
		if err := fn(ctx, book, group); err != nil {
			d.ui.Update(func() { d.status.SetText(err.Error()) })
		}
	}()
}

func (d *UI) toggleCollapsed(ctx context.Context, book, group string) error {
	d.sess.Service.ToggleCollapsed(ctx, book, group)
	return nil
}

func (d *UI) toggleEnabled(ctx context.Context, book, group string) error {
	_, err := d.sess.Service.ToggleGroupEnabled(ctx, book, group)
	return err
}

func (d *UI) mover(delta int) func(ctx context.Context, book, group string) error {
	return func(ctx context.Context, book, group string) error {
		_, err := d.sess.Service.MoveGroup(ctx, book, group, delta)
		return err
	}
}

func (d *UI) populate(blocks []printers.Block) {
	selected := ""
	if i := d.indexes.Selected(); i >= 0 && i < len(d.groups) {
		selected = d.groups[i]
	}

	d.groups = d.groups[:0]
	d.indexes.RemoveRows()
	for _, b := range blocks {
		if b.Group == "" {
			continue
		}
		d.groups = append(d.groups, b.Group)
		d.indexes.AppendRow(tui.NewLabel(b.Group))
	}
	d.indexes.Select(0)
	for i, g := range d.groups {
		if g == selected {
			d.indexes.Select(i)
		}
	}

	d.layout.RemoveRows()
	for _, line := range Lines(blocks) {
		d.layout.AppendRow(tui.NewLabel(line))
	}
}

// Lines flattens blocks into display lines: a header per band, indented
// members unless collapsed, and lone entries as bullets.
func Lines(blocks []printers.Block) []string {
	var out []string
	for _, b := range blocks {
		if b.Group == "" {
			for _, e := range b.Entries {
				out = append(out, "• "+e)
			}
			continue
		}
		icon := "▾"
		if b.Collapsed {
			icon = "▸"
		}
		head := fmt.Sprintf("%s %s (%d)", icon, b.Group, len(b.Entries))
		if b.Disabled {
			head += " [off]"
		}
		out = append(out, head)
		if b.Collapsed {
			continue
		}
		for _, e := range b.Entries {
			out = append(out, "    "+e)
		}
	}
	return out
}

func keyUI() *tui.Box {
	rows := []tui.Widget{
		tui.NewLabel("Keys"),
		tui.NewLabel("c  collapse or expand group"),
		tui.NewLabel("e  enable or disable group"),
		tui.NewLabel("K  move group up"),
		tui.NewLabel("J  move group down"),
		tui.NewLabel("r  reload entries"),
		tui.NewLabel(""),
		tui.NewLabel("▾  expanded   ▸  collapsed"),
		tui.NewSpacer(),
	}
	return tui.NewVBox(rows...)
}

package app

import (
	"context"

	"tableflip.dev/bands/pkg/widget"
)

// Actions adapts header and toolbar clicks to workflows on the book shown
// by the live panel.
type Actions struct {
	Service *Service
	Context context.Context
	// Go runs a workflow away from the host loop so it can wait on dialogs
	// and re-enter through Service.Exec. Nil runs it inline.
	Go func(func())
	// OnError receives workflow failures.
	OnError func(error)
}

var _ widget.Actions = (*Actions)(nil)

func (a *Actions) run(fn func(ctx context.Context, book string) error) {
	ctx := a.Context
	if ctx == nil {
		ctx = context.Background()
	}
	book := a.Service.Live.BookKey()
	task := func() {
		if err := fn(ctx, book); err != nil && a.OnError != nil {
			a.OnError(err)
		}
	}
	if a.Go == nil {
		task()
		return
	}
	a.Go(task)
}

func (a *Actions) ToggleCollapsed(group string) {
	a.run(func(ctx context.Context, book string) error {
		a.Service.ToggleCollapsed(ctx, book, group)
		return nil
	})
}

func (a *Actions) SetEnabled(group string, enabled bool) {
	a.run(func(ctx context.Context, book string) error {
		return a.Service.SetGroupEnabled(ctx, book, group, enabled)
	})
}

func (a *Actions) Move(group string, delta int) {
	a.run(func(ctx context.Context, book string) error {
		_, err := a.Service.MoveGroup(ctx, book, group, delta)
		return err
	})
}

func (a *Actions) Rename(group string) {
	a.run(func(ctx context.Context, book string) error {
		return a.Service.Rename(ctx, book, group)
	})
}

func (a *Actions) Manage(group string) {
	a.run(func(ctx context.Context, book string) error {
		return a.Service.Manage(ctx, book, group)
	})
}

func (a *Actions) Delete(group string) {
	a.run(func(ctx context.Context, book string) error {
		return a.Service.Delete(ctx, book, group)
	})
}

func (a *Actions) OpenEditor() {
	a.run(func(ctx context.Context, book string) error {
		return a.Service.OpenEditor(ctx, book)
	})
}

// Package session runs the grouping engine against the in-process panel:
// one task loop owns the tree, the store watcher feeds reloads into it and
// header clicks run workflows off the loop.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"tableflip.dev/bands/pkg/app"
	"tableflip.dev/bands/pkg/dom"
	"tableflip.dev/bands/pkg/events"
	"tableflip.dev/bands/pkg/host"
	"tableflip.dev/bands/pkg/logging"
	"tableflip.dev/bands/pkg/loop"
	"tableflip.dev/bands/pkg/panel"
	"tableflip.dev/bands/pkg/prefs"
	"tableflip.dev/bands/pkg/printers"
	"tableflip.dev/bands/pkg/reconcile"
	"tableflip.dev/bands/pkg/store"
	"tableflip.dev/bands/pkg/widget"
)

// Options configures a Session.
type Options struct {
	Store    store.Persistence
	Prefs    *prefs.Store
	Book     string
	PageSize int
	Debounce time.Duration
	// Dialog backs the rename, delete and membership flows. Without one
	// those header actions report host.ErrAdapterUnavailable.
	Dialog host.Dialog
	// Watch reloads the panel when the store changes on disk.
	Watch bool
	Log   *logrus.Entry
	// OnRebuild runs on the loop after every rebuild pass.
	OnRebuild func(*Session, reconcile.Report)
	// OnError receives workflow failures from header actions.
	OnError func(error)
}

// Session is one live panel with its reconciler.
type Session struct {
	Loop       *loop.Loop
	Doc        *dom.Document
	Panel      *panel.Panel
	Reconciler *reconcile.Reconciler
	Service    *app.Service
	Bus        *events.Bus

	opts     Options
	log      *logrus.Entry
	unfilter func()
}

// New wires a session. Nothing runs until Run.
func New(opts Options) (*Session, error) {
	if opts.Store == nil {
		return nil, errors.New("session: store required")
	}
	if opts.Prefs == nil {
		return nil, errors.New("session: preferences required")
	}
	s := &Session{
		Loop: loop.New(),
		Doc:  dom.NewDocument(),
		Bus:  events.NewBus(),
		opts: opts,
		log:  logging.Component(opts.Log, "session"),
	}
	ctx := context.Background()
	s.Panel = panel.New(s.Doc, opts.Store, panel.Options{
		Book:     opts.Book,
		Books:    opts.Store.Collections(ctx),
		PageSize: opts.PageSize,
		Log:      opts.Log,
	})
	s.Service = &app.Service{
		Prefs:  opts.Prefs,
		Source: opts.Store,
		Live:   s.Panel,
		Dialog: opts.Dialog,
		Exec:   s.Loop.Do,
		Log:    opts.Log,
	}
	factory := &widget.Factory{
		Toolbar: s.Panel.ControlsNode,
		Actions: &app.Actions{
			Service: s.Service,
			Go:      func(fn func()) { go fn() },
			OnError: s.reportError,
		},
	}
	r, err := reconcile.New(reconcile.Config{
		Source:    s.Panel,
		Widgets:   factory,
		Prefs:     opts.Prefs,
		Scheduler: s.Loop,
		Controls:  s.Panel,
		Debounce:  opts.Debounce,
		Log:       opts.Log,
		OnRebuild: func(rep reconcile.Report) {
			if opts.OnRebuild != nil {
				opts.OnRebuild(s, rep)
			}
		},
	})
	if err != nil {
		return nil, err
	}
	s.Reconciler = r
	s.Service.Rebuilder = r
	s.Loop.Checkpoint(s.Doc.Flush)
	return s, nil
}

func (s *Session) reportError(err error) {
	if s.opts.OnError != nil {
		s.opts.OnError(err)
		return
	}
	s.log.WithError(err).Warn("workflow failed")
}

// Do runs fn on the session loop.
func (s *Session) Do(ctx context.Context, fn func()) error {
	return s.Loop.Do(ctx, fn)
}

// Run mounts the panel, starts the reconciler and blocks until ctx is done.
// On return the bands are unwrapped and preferences flushed.
func (s *Session) Run(ctx context.Context) error {
	loopCtx, stopLoop := context.WithCancel(context.Background())
	defer stopLoop()
	loopDone := make(chan error, 1)
	go func() { loopDone <- s.Loop.Run(loopCtx) }()

	var renderErr error
	if err := s.Do(ctx, func() {
		s.Panel.Mount()
		renderErr = s.Panel.Render(ctx)
		s.unfilter = s.Service.PromptFilter(s.Bus)
		s.Reconciler.Start()
	}); err != nil {
		return err
	}
	if renderErr != nil {
		s.teardown()
		stopLoop()
		<-loopDone
		return renderErr
	}

	if s.opts.Watch {
		if err := s.watch(ctx); err != nil {
			s.log.WithError(err).Warn("store watch unavailable")
		}
	}

	<-ctx.Done()
	s.teardown()
	stopLoop()
	err := <-loopDone
	if ferr := s.opts.Prefs.Flush(); ferr != nil {
		return fmt.Errorf("session: flush preferences: %w", ferr)
	}
	return err
}

func (s *Session) teardown() {
	tctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Do(tctx, func() {
		if s.unfilter != nil {
			s.unfilter()
		}
		s.Reconciler.Stop()
	}); err != nil {
		s.log.WithError(err).Warn("stop reconciler")
	}
}

func (s *Session) watch(ctx context.Context) error {
	evs, err := s.opts.Store.Watch(ctx)
	if err != nil {
		return err
	}
	go func() {
		for ev := range evs {
			ev := ev
			_ = s.Do(ctx, func() { s.onStoreEvent(ctx, ev) })
		}
	}()
	return nil
}

// onStoreEvent reloads the panel when the shown book changed on disk.
func (s *Session) onStoreEvent(ctx context.Context, ev store.Event) {
	book := s.Panel.BookKey()
	if ev.Type == store.EventCollectionChanged && ev.Collection != book {
		return
	}
	s.log.WithFields(logrus.Fields{"event": ev.Type.String(), "collection": ev.Collection}).Debug("store changed")
	if err := s.Panel.Render(ctx); err != nil {
		s.log.WithError(err).Warn("reload after store change")
		return
	}
	s.Reconciler.Request(reconcile.ReasonStore)
}

// Snapshot reads the current layout of the panel. Call it on the loop.
func (s *Session) Snapshot() []printers.Block {
	list, err := s.Panel.Container()
	if err != nil {
		return nil
	}
	return printers.Blocks(list, s.Panel.Label)
}

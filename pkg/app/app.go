// Package app holds the group workflows shared by the CLI, the MCP server
// and the live panel: move, enable, collapse, rename, delete and membership
// edits. Each workflow rewrites entry comments, updates preferences and
// asks the reconciler to catch up.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"tableflip.dev/bands/pkg/codec"
	"tableflip.dev/bands/pkg/entry"
	"tableflip.dev/bands/pkg/host"
	"tableflip.dev/bands/pkg/logging"
	"tableflip.dev/bands/pkg/plan"
	"tableflip.dev/bands/pkg/prefs"
	"tableflip.dev/bands/pkg/reconcile"
)

// ErrGroupNotFound is returned when a workflow names a group with no
// members and no stored preferences.
var ErrGroupNotFound = errors.New("app: group not found")

// Rebuilder is the part of the reconciler workflows need.
type Rebuilder interface {
	Request(reason reconcile.Reason)
}

// Service provides the group workflows over a book. Prefs is required; at
// least one of Source and Live must be set.
type Service struct {
	Prefs *prefs.Store
	// Source reads and writes complete books, including entries the live
	// panel does not render.
	Source host.CollectionSource
	// Live is the rendered panel. Rendered entries are edited through it
	// so the host's own persistence reacts.
	Live   host.EntrySource
	Dialog host.Dialog
	// Rebuilder is told about every change; nil for headless use.
	Rebuilder Rebuilder
	// Batch groups live writes into one host save. When nil, Live is used
	// if it implements host.Batcher.
	Batch host.Batcher
	// Exec runs fn where the host tree may be touched. Nil runs inline.
	Exec func(ctx context.Context, fn func()) error
	Log  *logrus.Entry
}

func (s *Service) log() *logrus.Entry {
	return logging.Component(s.Log, "app")
}

// adapterMissing logs a missing host capability, at info when adapter
// logging is switched on in the debug preferences.
func (s *Service) adapterMissing(err error) {
	le := s.log().WithError(err)
	if d := s.Prefs.Debug(); d.Enabled && d.LogAdapters {
		le.Info("adapter unavailable")
		return
	}
	le.Debug("adapter unavailable")
}

func (s *Service) exec(ctx context.Context, fn func()) error {
	if s.Exec == nil {
		fn()
		return nil
	}
	return s.Exec(ctx, fn)
}

func (s *Service) request(ctx context.Context, reason reconcile.Reason) {
	if s.Rebuilder == nil {
		return
	}
	if err := s.exec(ctx, func() { s.Rebuilder.Request(reason) }); err != nil {
		s.log().WithError(err).WithField("reason", reason).Warn("rebuild request dropped")
	}
}

// reload redraws the live panel from its source and requests a rebuild.
func (s *Service) reload(ctx context.Context, reason reconcile.Reason) {
	if s.Live != nil {
		if err := s.exec(ctx, s.Live.Reload); err != nil {
			s.log().WithError(err).WithField("reason", reason).Warn("panel reload dropped")
		}
	}
	s.request(ctx, reason)
}

// Entries returns the current entries of book: the full book when a
// collection source is configured, the rendered ones otherwise.
func (s *Service) Entries(ctx context.Context, book string) ([]*entry.Entry, error) {
	if s.Source != nil {
		return s.Source.Load(ctx, book)
	}
	if s.Live == nil {
		return nil, fmt.Errorf("app: no entry source: %w", host.ErrAdapterUnavailable)
	}
	var out []*entry.Entry
	err := s.exec(ctx, func() {
		if s.Live.BookKey() == book {
			out = s.Live.Collect()
		}
	})
	return out, err
}

// Plan computes the render plan of book the way the reconciler does.
func (s *Service) Plan(ctx context.Context, book string, cfg plan.SortConfig) (plan.Plan, error) {
	entries, err := s.Entries(ctx, book)
	if err != nil {
		return plan.Plan{}, err
	}
	order := s.Prefs.NormalizeOrder(book, entry.Groups(entries))
	reconcile.SyncEnablement(s.Prefs, book, entries)
	return plan.Compute(entries, order, cfg,
		plan.WithEnabled(func(g string) bool { return s.Prefs.Enabled(book, g) }),
		plan.WithCollapsed(func(g string) bool { return s.Prefs.Collapsed(book, g) }),
	), nil
}

// Groups returns the non-empty groups of book in display order.
func (s *Service) Groups(ctx context.Context, book string) ([]plan.Group, error) {
	p, err := s.Plan(ctx, book, plan.SortConfig{Mode: plan.ModeNone})
	if err != nil {
		return nil, err
	}
	return p.Groups, nil
}

func (s *Service) members(ctx context.Context, book, group string) ([]*entry.Entry, error) {
	entries, err := s.Entries(ctx, book)
	if err != nil {
		return nil, err
	}
	return entry.Members(entries, group), nil
}

func (s *Service) known(ctx context.Context, book, group string) (bool, error) {
	members, err := s.members(ctx, book, group)
	if err != nil {
		return false, err
	}
	if len(members) > 0 {
		return true, nil
	}
	for _, name := range s.Prefs.Order(book) {
		if name == group {
			return true, nil
		}
	}
	return false, nil
}

// MoveGroup shifts group by delta positions in the display order and
// reloads, since member order belongs to the host. It reports whether the
// group moved.
func (s *Service) MoveGroup(ctx context.Context, book, group string, delta int) (bool, error) {
	entries, err := s.Entries(ctx, book)
	if err != nil {
		return false, err
	}
	s.Prefs.NormalizeOrder(book, entry.Groups(entries))
	if len(entry.Members(entries, group)) == 0 {
		return false, fmt.Errorf("%w: %q", ErrGroupNotFound, group)
	}
	if !s.Prefs.MoveGroup(book, group, delta) {
		return false, nil
	}
	s.reload(ctx, reconcile.ReasonGroupMove)
	return true, nil
}

// SetGroupEnabled writes the per-entry disable state of every member that
// has one and records the group flag.
func (s *Service) SetGroupEnabled(ctx context.Context, book, group string, enabled bool) error {
	ok, err := s.known(ctx, book, group)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %q", ErrGroupNotFound, group)
	}
	disabled := !enabled
	n, err := s.mutate(ctx, book, func(e *entry.Entry) (edit, bool) {
		if e.Group() != group {
			return edit{}, false
		}
		if cur, ok := e.Disabled(); ok && cur == disabled {
			return edit{}, false
		}
		return edit{disable: &disabled}, true
	})
	if err != nil {
		return err
	}
	s.Prefs.SetEnabled(book, group, enabled)
	s.log().WithFields(logrus.Fields{"book": book, "group": group, "enabled": enabled, "entries": n}).Debug("group toggled")
	if n > 0 {
		s.reload(ctx, reconcile.ReasonGroupToggle)
	} else {
		s.request(ctx, reconcile.ReasonGroupToggle)
	}
	return nil
}

// ToggleGroupEnabled flips the enabled state of group and returns it.
func (s *Service) ToggleGroupEnabled(ctx context.Context, book, group string) (bool, error) {
	next := !s.Prefs.Enabled(book, group)
	if err := s.SetGroupEnabled(ctx, book, group, next); err != nil {
		return !next, err
	}
	return next, nil
}

// ToggleCollapsed flips the collapsed flag of group and returns it.
func (s *Service) ToggleCollapsed(ctx context.Context, book, group string) bool {
	next := !s.Prefs.Collapsed(book, group)
	s.Prefs.SetCollapsed(book, group, next)
	s.request(ctx, reconcile.ReasonGroupCollapse)
	return next
}

// SetCollapsed sets the collapsed flag of group.
func (s *Service) SetCollapsed(ctx context.Context, book, group string, collapsed bool) {
	s.Prefs.SetCollapsed(book, group, collapsed)
	s.request(ctx, reconcile.ReasonGroupCollapse)
}

// RenameTo re-encodes every member of old under next and moves the group's
// preferences. It returns the normalised new name.
func (s *Service) RenameTo(ctx context.Context, book, old, next string) (string, error) {
	name, err := codec.ValidateGroupName(next)
	if err != nil {
		return "", err
	}
	if name == old {
		return name, nil
	}
	ok, err := s.known(ctx, book, old)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrGroupNotFound, old)
	}
	n, err := s.mutate(ctx, book, func(e *entry.Entry) (edit, bool) {
		if e.Group() != old {
			return edit{}, false
		}
		raw := codec.Regroup(e.Raw, name)
		return edit{raw: &raw}, true
	})
	if err != nil {
		return "", err
	}
	s.Prefs.RenameGroup(book, old, name)
	s.log().WithFields(logrus.Fields{"book": book, "from": old, "to": name, "entries": n}).Info("group renamed")
	s.reload(ctx, reconcile.ReasonGroupRename)
	return name, nil
}

// DeleteMode selects what happens to the members of a deleted group.
type DeleteMode string

const (
	// DeleteUngroup strips the prefix and keeps the entries.
	DeleteUngroup DeleteMode = "ungroup"
	// DeleteEntries removes the entries.
	DeleteEntries DeleteMode = "delete"
)

// DeleteWith removes group from book and returns the number of entries
// touched.
func (s *Service) DeleteWith(ctx context.Context, book, group string, mode DeleteMode) (int, error) {
	if mode != DeleteUngroup && mode != DeleteEntries {
		return 0, fmt.Errorf("app: unknown delete mode %q", mode)
	}
	n, err := s.mutate(ctx, book, func(e *entry.Entry) (edit, bool) {
		if e.Group() != group {
			return edit{}, false
		}
		if mode == DeleteEntries {
			return edit{remove: true}, true
		}
		raw := codec.Regroup(e.Raw, "")
		return edit{raw: &raw}, true
	})
	if err != nil {
		return n, err
	}
	s.Prefs.RemoveGroup(book, group)
	s.log().WithFields(logrus.Fields{"book": book, "group": group, "mode": mode, "entries": n}).Info("group deleted")
	s.reload(ctx, reconcile.ReasonManageApply)
	return n, nil
}

// ApplyMembership moves the entries in add into group and ungroups the
// entries of remove that belong to it. The display order is normalised
// against the groups left afterwards.
func (s *Service) ApplyMembership(ctx context.Context, book, group string, add, remove []string) (int, error) {
	name, err := codec.ValidateGroupName(group)
	if err != nil {
		return 0, err
	}
	adds := set(add)
	removes := set(remove)
	n, err := s.mutate(ctx, book, func(e *entry.Entry) (edit, bool) {
		if _, ok := adds[e.ID]; ok {
			if e.Group() == name {
				return edit{}, false
			}
			raw := codec.Regroup(e.Raw, name)
			return edit{raw: &raw}, true
		}
		if _, ok := removes[e.ID]; ok && e.Group() == name {
			raw := codec.Regroup(e.Raw, "")
			return edit{raw: &raw}, true
		}
		return edit{}, false
	})
	if err != nil {
		return n, err
	}
	entries, err := s.Entries(ctx, book)
	if err != nil {
		return n, err
	}
	s.Prefs.NormalizeOrder(book, entry.Groups(entries))
	s.log().WithFields(logrus.Fields{"book": book, "group": name, "entries": n}).Info("membership applied")
	s.reload(ctx, reconcile.ReasonManageApply)
	return n, nil
}

func set(ids []string) map[string]struct{} {
	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}

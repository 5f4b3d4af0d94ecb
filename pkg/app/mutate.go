package app

import (
	"context"
	"fmt"

	"tableflip.dev/bands/pkg/entry"
	"tableflip.dev/bands/pkg/host"
)

// edit is one change to an entry.
type edit struct {
	raw     *string
	disable *bool
	remove  bool
}

// mutate applies fn to every entry of book. Rendered entries are edited
// through the live panel first; the rest, and any edit the panel cannot
// express, go through the collection source. It returns the number of
// entries changed.
func (s *Service) mutate(ctx context.Context, book string, fn func(*entry.Entry) (edit, bool)) (int, error) {
	if s.Source == nil && s.Live == nil {
		return 0, fmt.Errorf("app: no entry source: %w", host.ErrAdapterUnavailable)
	}

	handled := make(map[string]struct{})
	var liveErr error
	if s.Live != nil {
		err := s.exec(ctx, func() {
			if s.Live.BookKey() != book {
				return
			}
			liveErr = s.batch(func() error {
				for _, e := range s.Live.Collect() {
					change, ok := fn(e)
					if !ok {
						continue
					}
					done, err := s.applyLive(e, change)
					if err != nil {
						return err
					}
					if done {
						handled[e.ID] = struct{}{}
					}
				}
				return nil
			})
		})
		if err != nil {
			return len(handled), err
		}
		if liveErr != nil {
			return len(handled), liveErr
		}
	}

	if s.Source == nil {
		return len(handled), nil
	}
	entries, err := s.Source.Load(ctx, book)
	if err != nil {
		return len(handled), err
	}
	out := entries[:0:0]
	changed := 0
	for _, e := range entries {
		if _, ok := handled[e.ID]; ok {
			out = append(out, e)
			continue
		}
		change, ok := fn(e)
		if !ok {
			out = append(out, e)
			continue
		}
		changed++
		if change.remove {
			continue
		}
		if change.raw != nil {
			e.Raw = *change.raw
		}
		if change.disable != nil {
			e.SetDisabled(*change.disable)
		}
		out = append(out, e)
	}
	if changed == 0 {
		return len(handled), nil
	}
	if err := s.Source.Save(ctx, book, out); err != nil {
		return len(handled), fmt.Errorf("app: save %q: %w", book, err)
	}
	return len(handled) + changed, nil
}

// applyLive reports false when the panel cannot express change.
func (s *Service) applyLive(e *entry.Entry, change edit) (bool, error) {
	if change.remove {
		return true, s.Live.Delete(e)
	}
	if change.disable != nil && !s.Live.SetDisabled(e, *change.disable) {
		return false, nil
	}
	if change.raw != nil {
		if err := s.Live.Write(e, *change.raw); err != nil {
			return false, err
		}
	}
	return true, nil
}

// batch runs fn inside the host's batch facility when one is available.
func (s *Service) batch(fn func() error) error {
	b := s.Batch
	if b == nil {
		b, _ = s.Live.(host.Batcher)
	}
	if b == nil {
		s.log().WithError(host.ErrAdapterUnavailable).Debug("batch adapter missing, writing entries one by one")
		return fn()
	}
	return b.Batch(fn)
}

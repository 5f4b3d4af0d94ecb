package app

import (
	"context"
	"fmt"

	"tableflip.dev/bands/pkg/codec"
	"tableflip.dev/bands/pkg/entry"
	"tableflip.dev/bands/pkg/host"
	"tableflip.dev/bands/pkg/reconcile"
)

func (s *Service) dialog() (host.Dialog, error) {
	if s.Dialog == nil {
		err := fmt.Errorf("app: no dialog: %w", host.ErrAdapterUnavailable)
		s.adapterMissing(err)
		return nil, err
	}
	return s.Dialog, nil
}

// promptName asks for a group name until a valid one is entered or the
// prompt is cancelled.
func (s *Service) promptName(ctx context.Context, title, message, initial string) (string, bool, error) {
	d, err := s.dialog()
	if err != nil {
		return "", false, err
	}
	for {
		value, ok, err := d.Prompt(ctx, host.PromptRequest{
			Title:   title,
			Message: message,
			Initial: initial,
			Validate: func(v string) error {
				_, err := codec.ValidateGroupName(v)
				return err
			},
		})
		if err != nil || !ok {
			return "", false, err
		}
		name, err := codec.ValidateGroupName(value)
		if err != nil {
			message = err.Error()
			initial = value
			continue
		}
		return name, true, nil
	}
}

// Rename asks for a new name for group and renames it.
func (s *Service) Rename(ctx context.Context, book, group string) error {
	next, ok, err := s.promptName(ctx, "Rename Group", fmt.Sprintf("Rename %q to:", group), group)
	if err != nil || !ok || next == group {
		return err
	}
	_, err = s.RenameTo(ctx, book, group, next)
	return err
}

// Delete asks whether to ungroup or delete the members of group.
func (s *Service) Delete(ctx context.Context, book, group string) error {
	d, err := s.dialog()
	if err != nil {
		return err
	}
	choice, err := d.Choose(ctx, host.ChoiceRequest{
		Title:   "Delete Group",
		Message: fmt.Sprintf("What should happen to the entries of %q?", group),
		Choices: []host.Choice{
			{Key: string(DeleteUngroup), Label: "Ungroup entries (keep them)"},
			{Key: string(DeleteEntries), Label: "Delete entries"},
			{Key: host.ChoiceCancel, Label: "Cancel"},
		},
	})
	if err != nil {
		return err
	}
	switch DeleteMode(choice) {
	case DeleteUngroup, DeleteEntries:
		_, err = s.DeleteWith(ctx, book, group, DeleteMode(choice))
		return err
	}
	return nil
}

// Manage runs the membership editor for group.
func (s *Service) Manage(ctx context.Context, book, group string) error {
	return s.manage(ctx, book, group, false)
}

// OpenEditor opens the membership editor on the first group of book, or
// asks for a new group when there is none.
func (s *Service) OpenEditor(ctx context.Context, book string) error {
	entries, err := s.Entries(ctx, book)
	if err != nil {
		return err
	}
	order := s.Prefs.NormalizeOrder(book, entry.Groups(entries))
	if len(order) > 0 {
		return s.manage(ctx, book, order[0], false)
	}
	name, ok, err := s.promptName(ctx, "Create Group", "Enter a new group name:", "")
	if err != nil || !ok {
		return err
	}
	s.Prefs.EnsureGroup(book, name)
	return s.manage(ctx, book, name, true)
}

// manage loops over the editor until it is applied or cancelled. Entries
// are re-read on every round since rebuilds may run while it is open.
// Cancelling a group created in this session with no members forgets it.
func (s *Service) manage(ctx context.Context, book, group string, creating bool) error {
	d, err := s.dialog()
	if err != nil {
		return err
	}
	for {
		entries, err := s.Entries(ctx, book)
		if err != nil {
			return err
		}
		names := s.Prefs.NormalizeOrder(book, entry.Groups(entries))
		if !contains(names, group) {
			names = append(names, group)
		}
		req := host.ManageRequest{Book: book, Group: group, Groups: names}
		for _, e := range entries {
			req.Entries = append(req.Entries, host.ManageItem{
				ID:     e.ID,
				Title:  e.Title(),
				Group:  e.Group(),
				Member: e.Group() == group,
			})
		}

		res, err := d.Manage(ctx, req)
		if err != nil {
			return err
		}
		switch res.Action {
		case host.ManageSwitch:
			if res.Group != "" {
				group = res.Group
				creating = false
			}
			continue
		case host.ManageCreate:
			name, ok, err := s.promptName(ctx, "Create Group", "Enter a new group name:", "")
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			s.Prefs.EnsureGroup(book, name)
			group = name
			creating = true
			continue
		case host.ManageApply:
			_, err := s.ApplyMembership(ctx, book, group, res.Add, res.Remove)
			return err
		}

		if creating {
			members, err := s.members(ctx, book, group)
			if err != nil {
				return err
			}
			if len(members) == 0 {
				s.Prefs.RemoveGroup(book, group)
				s.reload(ctx, reconcile.ReasonManageApply)
			}
		}
		return nil
	}
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

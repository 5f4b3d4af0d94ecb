// Package host declares what the grouping engine needs from the panel it
// augments. Adapters in pkg/panel, pkg/store, pkg/dialog and pkg/events
// implement these for the in-process host.
package host

import (
	"context"
	"errors"

	"tableflip.dev/bands/pkg/dom"
	"tableflip.dev/bands/pkg/entry"
	"tableflip.dev/bands/pkg/events"
)

// ErrAdapterUnavailable is returned when an optional host capability is
// missing and the caller should take its fallback path.
var ErrAdapterUnavailable = errors.New("host: adapter unavailable")

// EntrySource exposes the live entries of the panel.
type EntrySource interface {
	// Container returns the list node holding entry nodes.
	Container() (*dom.Node, error)
	// Collect decodes the live entries in tree order.
	Collect() []*entry.Entry
	// BookKey names the book currently shown.
	BookKey() string
	// Write replaces the comment of e and notifies the host as if the user
	// typed it.
	Write(e *entry.Entry, raw string) error
	// SetDisabled flips the per-entry toggle of e. It reports false when e
	// has no such toggle.
	SetDisabled(e *entry.Entry, disabled bool) bool
	// Delete removes e through the host's own delete affordance.
	Delete(e *entry.Entry) error
	// Reload asks the host to redraw the list.
	Reload()
}

// CollectionSource reads and writes the complete entry set of a book,
// including entries the panel does not currently show.
type CollectionSource interface {
	Load(ctx context.Context, book string) ([]*entry.Entry, error)
	Save(ctx context.Context, book string, entries []*entry.Entry) error
}

// Batcher groups several entry writes into one host save.
type Batcher interface {
	Batch(fn func() error) error
}

// EventBus subscribes to host events.
type EventBus interface {
	On(topic events.Topic, fn events.Handler) (off func())
}

// LastOrderer is implemented by buses that can run a handler after all
// others.
type LastOrderer interface {
	OnLast(topic events.Topic, fn events.Handler) (off func())
}

// Dialog is the host's modal facility.
type Dialog interface {
	// Prompt asks for a line of text. ok is false when cancelled.
	Prompt(ctx context.Context, req PromptRequest) (value string, ok bool, err error)
	// Choose offers named actions and returns the chosen key, ChoiceCancel
	// when dismissed.
	Choose(ctx context.Context, req ChoiceRequest) (string, error)
	// Manage edits the membership of a group.
	Manage(ctx context.Context, req ManageRequest) (ManageResult, error)
}

// PromptRequest describes a text prompt.
type PromptRequest struct {
	Title    string
	Message  string
	Initial  string
	Validate func(string) error
}

// ChoiceCancel is returned by Choose when the dialog is dismissed.
const ChoiceCancel = "cancel"

// Choice is one action of a ChoiceRequest.
type Choice struct {
	Key   string
	Label string
}

// ChoiceRequest describes an action picker.
type ChoiceRequest struct {
	Title   string
	Message string
	Choices []Choice
}

// ManageItem is one entry offered by the membership editor.
type ManageItem struct {
	ID     string
	Title  string
	Group  string
	Member bool
}

// ManageRequest seeds the membership editor for Group.
type ManageRequest struct {
	Book    string
	Group   string
	Groups  []string
	Entries []ManageItem
}

// ManageAction is how the membership editor was closed.
type ManageAction string

const (
	ManageApply  ManageAction = "apply"
	ManageCancel ManageAction = "cancel"
	ManageSwitch ManageAction = "switch"
	ManageCreate ManageAction = "create"
)

// ManageResult is the outcome of the membership editor. Group is the target
// of ManageSwitch.
type ManageResult struct {
	Action ManageAction
	Group  string
	Add    []string
	Remove []string
}

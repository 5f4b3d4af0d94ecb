package app

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"tableflip.dev/bands/pkg/codec"
	"tableflip.dev/bands/pkg/events"
	"tableflip.dev/bands/pkg/host"
)

// UnknownBook is the book assumed for loaded entries without one.
const UnknownBook = "__unknown__"

// PromptFilter subscribes to entries-loaded events and disables entries of
// disabled groups before the prompt builder uses them. The handler runs
// after every other subscriber when the bus supports ordering. It returns
// a func removing the subscription.
func (s *Service) PromptFilter(bus host.EventBus) func() {
	log := s.log()
	handler := func(payload any) {
		loaded, ok := payload.(*events.EntriesLoaded)
		if !ok || loaded == nil {
			log.WithField("payload", payload).Debug("prompt filter ignoring payload")
			return
		}
		disabled := FilterLoaded(s, loaded)
		log.WithFields(logrus.Fields{"disabled": disabled}).Debug(loaded.Describe())
	}
	if last, ok := bus.(host.LastOrderer); ok {
		return last.OnLast(events.TopicEntriesLoaded, handler)
	}
	s.adapterMissing(fmt.Errorf("event bus cannot order handlers, prompt filter may run early: %w", host.ErrAdapterUnavailable))
	return bus.On(events.TopicEntriesLoaded, handler)
}

// FilterLoaded sets Disable on every loaded entry whose group is disabled
// in its book and returns how many it changed.
func FilterLoaded(s *Service, loaded *events.EntriesLoaded) int {
	n := 0
	for _, le := range loaded.All() {
		if le == nil || le.Disable {
			continue
		}
		group, _ := codec.Decode(le.Comment)
		if group == "" {
			continue
		}
		book := le.Book
		if book == "" {
			book = UnknownBook
		}
		if !s.Prefs.Enabled(book, group) {
			le.Disable = true
			n++
		}
	}
	return n
}

// Package events is a synchronous publish/subscribe bus for host events.
package events

import (
	"fmt"
	"sync"
)

// Topic names an event stream.
type Topic string

// TopicEntriesLoaded fires when the prompt builder has collected the
// entries it is about to activate.
const TopicEntriesLoaded Topic = "entries-loaded"

// Handler receives an event payload.
type Handler func(payload any)

// Bus delivers events to subscribers in order. Subscribers moved to the
// end with MakeLast run after every other subscriber.
type Bus struct {
	mu   sync.Mutex
	subs map[Topic][]*Subscription
}

// Subscription is one registered handler.
type Subscription struct {
	bus   *Bus
	topic Topic
	fn    Handler
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[Topic][]*Subscription)}
}

// Subscribe registers fn for topic.
func (b *Bus) Subscribe(topic Topic, fn Handler) *Subscription {
	s := &Subscription{bus: b, topic: topic, fn: fn}
	b.mu.Lock()
	b.subs[topic] = append(b.subs[topic], s)
	b.mu.Unlock()
	return s
}

// Off removes the subscription.
func (s *Subscription) Off() {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	s.bus.remove(s)
}

// MakeLast moves the subscription to the end of its topic.
func (s *Subscription) MakeLast() {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	if s.bus.remove(s) {
		s.bus.subs[s.topic] = append(s.bus.subs[s.topic], s)
	}
}

func (b *Bus) remove(s *Subscription) bool {
	list := b.subs[s.topic]
	for i, existing := range list {
		if existing == s {
			b.subs[s.topic] = append(list[:i:i], list[i+1:]...)
			return true
		}
	}
	return false
}

// On subscribes fn and returns a func removing it.
func (b *Bus) On(topic Topic, fn Handler) func() {
	return b.Subscribe(topic, fn).Off
}

// OnLast subscribes fn after every current subscriber.
func (b *Bus) OnLast(topic Topic, fn Handler) func() {
	s := b.Subscribe(topic, fn)
	s.MakeLast()
	return s.Off
}

// Emit calls every handler of topic with payload, in order.
func (b *Bus) Emit(topic Topic, payload any) {
	b.mu.Lock()
	list := make([]*Subscription, len(b.subs[topic]))
	copy(list, b.subs[topic])
	b.mu.Unlock()
	for _, s := range list {
		s.fn(payload)
	}
}

// Count returns the number of subscribers of topic.
func (b *Bus) Count(topic Topic) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[topic])
}

// LoadedEntry is an entry handed to the prompt builder.
type LoadedEntry struct {
	Book    string `json:"world"`
	ID      string `json:"uid"`
	Comment string `json:"comment"`
	Content string `json:"content,omitempty"`
	Disable bool   `json:"disable"`
}

// EntriesLoaded is the payload of TopicEntriesLoaded. Handlers may set
// Disable on any entry.
type EntriesLoaded struct {
	Global    []*LoadedEntry `json:"globalLore"`
	Character []*LoadedEntry `json:"characterLore"`
	Chat      []*LoadedEntry `json:"chatLore"`
	Persona   []*LoadedEntry `json:"personaLore"`
}

// All returns every entry across the four scopes.
func (e *EntriesLoaded) All() []*LoadedEntry {
	out := make([]*LoadedEntry, 0, len(e.Global)+len(e.Character)+len(e.Chat)+len(e.Persona))
	out = append(out, e.Global...)
	out = append(out, e.Character...)
	out = append(out, e.Chat...)
	return append(out, e.Persona...)
}

// Active returns the entries not disabled.
func (e *EntriesLoaded) Active() []*LoadedEntry {
	var out []*LoadedEntry
	for _, le := range e.All() {
		if le != nil && !le.Disable {
			out = append(out, le)
		}
	}
	return out
}

func (e *EntriesLoaded) Describe() string {
	return fmt.Sprintf("entries loaded: global=%d character=%d chat=%d persona=%d",
		len(e.Global), len(e.Character), len(e.Chat), len(e.Persona))
}

package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBusOrderingAndMakeLast(t *testing.T) {
	b := NewBus()
	var got []string
	last := b.Subscribe(TopicEntriesLoaded, func(any) { got = append(got, "filter") })
	b.Subscribe(TopicEntriesLoaded, func(any) { got = append(got, "one") })
	off := b.Subscribe(TopicEntriesLoaded, func(any) { got = append(got, "two") })
	last.MakeLast()
	b.Subscribe(TopicEntriesLoaded, func(any) { got = append(got, "late") })

	b.Emit(TopicEntriesLoaded, nil)
	assert.Equal(t, []string{"one", "two", "filter", "late"}, got)

	got = nil
	off.Off()
	last.MakeLast()
	b.Emit(TopicEntriesLoaded, nil)
	assert.Equal(t, []string{"one", "late", "filter"}, got)
	assert.Equal(t, 3, b.Count(TopicEntriesLoaded))
}

func TestEntriesLoadedActive(t *testing.T) {
	ev := &EntriesLoaded{
		Global: []*LoadedEntry{{ID: "1"}, {ID: "2", Disable: true}},
		Chat:   []*LoadedEntry{{ID: "3"}},
	}
	assert.Len(t, ev.All(), 3)
	active := ev.Active()
	assert.Len(t, active, 2)
	assert.Equal(t, "3", active[1].ID)
}

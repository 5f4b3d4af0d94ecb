package loop

import (
	"sort"
	"time"
)

// Manual is a deterministic Scheduler driven by Advance. Callbacks run
// synchronously on the goroutine calling Advance.
type Manual struct {
	now    time.Duration
	seq    int
	timers []*manualTimer
}

type manualTimer struct {
	m       *Manual
	at      time.Duration
	seq     int
	fn      func()
	stopped bool
}

func (t *manualTimer) Stop() bool {
	if t.stopped {
		return false
	}
	t.stopped = true
	t.m.drop(t)
	return true
}

// NewManual returns a scheduler at time zero.
func NewManual() *Manual {
	return &Manual{}
}

// Now returns the elapsed virtual time.
func (m *Manual) Now() time.Duration {
	return m.now
}

func (m *Manual) AfterFunc(d time.Duration, fn func()) Timer {
	m.seq++
	t := &manualTimer{m: m, at: m.now + d, seq: m.seq, fn: fn}
	m.timers = append(m.timers, t)
	return t
}

// Pending returns the number of timers not yet fired or stopped.
func (m *Manual) Pending() int {
	return len(m.timers)
}

// Advance moves virtual time forward by d, firing due timers in deadline
// order. Timers scheduled by callbacks fire too if they fall due.
func (m *Manual) Advance(d time.Duration) {
	target := m.now + d
	for {
		t := m.earliest()
		if t == nil || t.at > target {
			break
		}
		m.now = t.at
		t.stopped = true
		m.drop(t)
		t.fn()
	}
	m.now = target
}

func (m *Manual) earliest() *manualTimer {
	if len(m.timers) == 0 {
		return nil
	}
	sort.SliceStable(m.timers, func(i, j int) bool {
		if m.timers[i].at == m.timers[j].at {
			return m.timers[i].seq < m.timers[j].seq
		}
		return m.timers[i].at < m.timers[j].at
	})
	return m.timers[0]
}

func (m *Manual) drop(t *manualTimer) {
	for i, existing := range m.timers {
		if existing == t {
			m.timers = append(m.timers[:i], m.timers[i+1:]...)
			return
		}
	}
}

package dom

// Common event types.
const (
	EventClick  = "click"
	EventInput  = "input"
	EventChange = "change"
)

// Event is dispatched to a node and bubbles to its ancestors.
type Event struct {
	Type    string
	Target  *Node
	Current *Node
	stopped bool
}

// StopPropagation prevents delivery to further ancestors.
func (e *Event) StopPropagation() {
	e.stopped = true
}

// Listener handles an event.
type Listener func(*Event)

type listener struct {
	fn Listener
}

// On registers fn for typ events on n and returns a func removing it.
func (n *Node) On(typ string, fn Listener) func() {
	if n.listeners == nil {
		n.listeners = make(map[string][]*listener)
	}
	l := &listener{fn: fn}
	n.listeners[typ] = append(n.listeners[typ], l)
	return func() {
		list := n.listeners[typ]
		for i, existing := range list {
			if existing == l {
				n.listeners[typ] = append(list[:i:i], list[i+1:]...)
				return
			}
		}
	}
}

// Dispatch fires typ at n, then at each ancestor until stopped.
func (n *Node) Dispatch(typ string) *Event {
	ev := &Event{Type: typ, Target: n}
	for cur := n; cur != nil && !ev.stopped; cur = cur.parent {
		list := cur.listeners[typ]
		if len(list) == 0 {
			continue
		}
		ev.Current = cur
		snapshot := make([]*listener, len(list))
		copy(snapshot, list)
		for _, l := range snapshot {
			l.fn(ev)
		}
	}
	return ev
}

// Click dispatches a click event at n.
func (n *Node) Click() {
	n.Dispatch(EventClick)
}

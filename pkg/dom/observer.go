package dom

// Record describes one child list change under Target.
type Record struct {
	Target  *Node
	Added   []*Node
	Removed []*Node
}

// Changed returns the added and removed nodes of r.
func (r Record) Changed() []*Node {
	out := make([]*Node, 0, len(r.Added)+len(r.Removed))
	out = append(out, r.Added...)
	return append(out, r.Removed...)
}

// Observer collects child list records for a subtree and delivers them in
// batches when the document is flushed.
type Observer struct {
	doc     *Document
	fn      func([]Record)
	root    *Node
	pending []Record
}

// NewObserver returns a disconnected observer delivering batches to fn.
func (d *Document) NewObserver(fn func([]Record)) *Observer {
	return &Observer{doc: d, fn: fn}
}

// Observe starts watching root and its subtree, replacing any previous
// target.
func (o *Observer) Observe(root *Node) {
	o.root = root
	for _, existing := range o.doc.observers {
		if existing == o {
			return
		}
	}
	o.doc.observers = append(o.doc.observers, o)
}

// Disconnect stops observation and drops undelivered records.
func (o *Observer) Disconnect() {
	o.root = nil
	o.pending = nil
	obs := o.doc.observers[:0]
	for _, existing := range o.doc.observers {
		if existing != o {
			obs = append(obs, existing)
		}
	}
	o.doc.observers = obs
}

// Target returns the observed root, nil when disconnected.
func (o *Observer) Target() *Node {
	return o.root
}

// TakeRecords returns and clears the undelivered records.
func (o *Observer) TakeRecords() []Record {
	out := o.pending
	o.pending = nil
	return out
}

func (d *Document) record(r Record) {
	for _, o := range d.observers {
		if o.root != nil && o.root.Contains(r.Target) {
			o.pending = append(o.pending, r)
		}
	}
}

// maxFlushRounds bounds observer callbacks that keep producing records.
const maxFlushRounds = 32

// Flush delivers pending records to every observer. Records produced by the
// callbacks are delivered in following rounds.
func (d *Document) Flush() {
	for round := 0; round < maxFlushRounds; round++ {
		delivered := false
		observers := make([]*Observer, len(d.observers))
		copy(observers, d.observers)
		for _, o := range observers {
			batch := o.TakeRecords()
			if len(batch) == 0 || o.fn == nil {
				continue
			}
			delivered = true
			o.fn(batch)
		}
		if !delivered {
			return
		}
	}
}

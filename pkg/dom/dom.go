// Package dom is a small observable node tree standing in for the host
// page. It supports attributes, form values, visibility, child list edits,
// bubbling events and batched mutation observers.
//
// A Document and its nodes are not safe for concurrent use; all access must
// happen on one goroutine (see pkg/loop).
package dom

import (
	"sort"
	"strings"
)

// Document owns a node tree and the observers watching it.
type Document struct {
	root      *Node
	observers []*Observer
	mutations uint64
}

// NewDocument returns a document with an empty root node.
func NewDocument() *Document {
	d := &Document{}
	d.root = d.CreateElement("root")
	return d
}

// Root returns the document root.
func (d *Document) Root() *Node {
	return d.root
}

// CreateElement returns a detached node owned by d.
func (d *Document) CreateElement(tag string) *Node {
	return &Node{
		doc:   d,
		tag:   tag,
		attrs: make(map[string]string),
	}
}

// Mutations counts every effective change applied to any node of d.
func (d *Document) Mutations() uint64 {
	return d.mutations
}

// ByID finds the attached node whose id attribute is id.
func (d *Document) ByID(id string) *Node {
	return d.root.Find(func(n *Node) bool { return n.ID() == id })
}

// Node is an element of a Document.
type Node struct {
	doc       *Document
	tag       string
	attrs     map[string]string
	value     string
	text      string
	hidden    bool
	parent    *Node
	children  []*Node
	listeners map[string][]*listener
}

func (n *Node) Tag() string {
	return n.tag
}

func (n *Node) Document() *Document {
	return n.doc
}

func (n *Node) Parent() *Node {
	return n.parent
}

// Children returns a copy of the child list.
func (n *Node) Children() []*Node {
	out := make([]*Node, len(n.children))
	copy(out, n.children)
	return out
}

func (n *Node) FirstChild() *Node {
	if len(n.children) == 0 {
		return nil
	}
	return n.children[0]
}

func (n *Node) NextSibling() *Node {
	if n.parent == nil {
		return nil
	}
	i := n.parent.indexOf(n)
	if i < 0 || i+1 >= len(n.parent.children) {
		return nil
	}
	return n.parent.children[i+1]
}

func (n *Node) PrevSibling() *Node {
	if n.parent == nil {
		return nil
	}
	i := n.parent.indexOf(n)
	if i <= 0 {
		return nil
	}
	return n.parent.children[i-1]
}

// Index returns the position of n within its parent, -1 when detached.
func (n *Node) Index() int {
	if n.parent == nil {
		return -1
	}
	return n.parent.indexOf(n)
}

func (n *Node) indexOf(c *Node) int {
	for i, child := range n.children {
		if child == c {
			return i
		}
	}
	return -1
}

// Contains reports whether other is n or one of its descendants.
func (n *Node) Contains(other *Node) bool {
	for cur := other; cur != nil; cur = cur.parent {
		if cur == n {
			return true
		}
	}
	return false
}

// Attached reports whether n is reachable from the document root.
func (n *Node) Attached() bool {
	return n.doc != nil && n.doc.root.Contains(n)
}

// AppendChild moves c to the end of n's children.
func (n *Node) AppendChild(c *Node) {
	n.InsertBefore(c, nil)
}

// InsertBefore moves c directly before ref. A nil ref, or a ref that is not
// a child of n, appends. Moving a node already in place is a no-op.
func (n *Node) InsertBefore(c, ref *Node) {
	if c == nil || c == ref || c.Contains(n) {
		return
	}
	if ref != nil && ref.parent != n {
		ref = nil
	}
	if c.parent == n {
		i := n.indexOf(c)
		if ref == nil && i == len(n.children)-1 {
			return
		}
		if ref != nil && i+1 < len(n.children) && n.children[i+1] == ref {
			return
		}
	}
	if c.parent != nil {
		c.parent.removeChild(c)
	}
	at := len(n.children)
	if ref != nil {
		at = n.indexOf(ref)
	}
	n.children = append(n.children, nil)
	copy(n.children[at+1:], n.children[at:])
	n.children[at] = c
	c.parent = n
	n.doc.changed()
	n.doc.record(Record{Target: n, Added: []*Node{c}})
}

// Remove detaches n from its parent.
func (n *Node) Remove() {
	if n.parent == nil {
		return
	}
	n.parent.removeChild(n)
}

func (n *Node) removeChild(c *Node) {
	i := n.indexOf(c)
	if i < 0 {
		return
	}
	n.children = append(n.children[:i], n.children[i+1:]...)
	c.parent = nil
	n.doc.changed()
	n.doc.record(Record{Target: n, Removed: []*Node{c}})
}

// Clear removes every child of n.
func (n *Node) Clear() {
	for len(n.children) > 0 {
		n.children[len(n.children)-1].Remove()
	}
}

// Attr returns the attribute value and whether it is set.
func (n *Node) Attr(key string) (string, bool) {
	v, ok := n.attrs[key]
	return v, ok
}

// AttrOr returns the attribute value or def when unset.
func (n *Node) AttrOr(key, def string) string {
	if v, ok := n.attrs[key]; ok {
		return v
	}
	return def
}

func (n *Node) HasAttr(key string) bool {
	_, ok := n.attrs[key]
	return ok
}

func (n *Node) SetAttr(key, value string) {
	if cur, ok := n.attrs[key]; ok && cur == value {
		return
	}
	n.attrs[key] = value
	n.doc.changed()
}

func (n *Node) RemoveAttr(key string) {
	if _, ok := n.attrs[key]; !ok {
		return
	}
	delete(n.attrs, key)
	n.doc.changed()
}

// AttrKeys returns the attribute names in sorted order.
func (n *Node) AttrKeys() []string {
	keys := make([]string, 0, len(n.attrs))
	for k := range n.attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (n *Node) ID() string {
	return n.attrs["id"]
}

func (n *Node) HasClass(class string) bool {
	for _, c := range strings.Fields(n.attrs["class"]) {
		if c == class {
			return true
		}
	}
	return false
}

// SetClass adds or removes class.
func (n *Node) SetClass(class string, on bool) {
	classes := strings.Fields(n.attrs["class"])
	out := classes[:0]
	found := false
	for _, c := range classes {
		if c == class {
			found = true
			if !on {
				continue
			}
		}
		out = append(out, c)
	}
	if on && !found {
		out = append(out, class)
	}
	if (on && found) || (!on && !found) {
		return
	}
	n.SetAttr("class", strings.Join(out, " "))
}

// Value is the form value of input-like nodes.
func (n *Node) Value() string {
	return n.value
}

func (n *Node) SetValue(v string) {
	if n.value == v {
		return
	}
	n.value = v
	n.doc.changed()
}

// Checked reports a checkbox value of "true".
func (n *Node) Checked() bool {
	return n.value == "true"
}

func (n *Node) SetChecked(on bool) {
	if on {
		n.SetValue("true")
		return
	}
	n.SetValue("false")
}

func (n *Node) Text() string {
	return n.text
}

func (n *Node) SetText(t string) {
	if n.text == t {
		return
	}
	n.text = t
	n.doc.changed()
}

func (n *Node) Hidden() bool {
	return n.hidden
}

func (n *Node) SetHidden(h bool) {
	if n.hidden == h {
		return
	}
	n.hidden = h
	n.doc.changed()
}

// Visible reports whether n and all its ancestors are shown.
func (n *Node) Visible() bool {
	for cur := n; cur != nil; cur = cur.parent {
		if cur.hidden {
			return false
		}
	}
	return true
}

// Find returns the first descendant of n, in document order, matching m.
func (n *Node) Find(m Matcher) *Node {
	for _, c := range n.children {
		if m(c) {
			return c
		}
		if found := c.Find(m); found != nil {
			return found
		}
	}
	return nil
}

// FindAll returns every descendant of n, in document order, matching m.
func (n *Node) FindAll(m Matcher) []*Node {
	var out []*Node
	n.walk(func(c *Node) {
		if m(c) {
			out = append(out, c)
		}
	})
	return out
}

// FindChildren returns the direct children of n matching m.
func (n *Node) FindChildren(m Matcher) []*Node {
	var out []*Node
	for _, c := range n.children {
		if m(c) {
			out = append(out, c)
		}
	}
	return out
}

// Closest returns n or its nearest ancestor matching m.
func (n *Node) Closest(m Matcher) *Node {
	for cur := n; cur != nil; cur = cur.parent {
		if m(cur) {
			return cur
		}
	}
	return nil
}

func (n *Node) walk(fn func(*Node)) {
	for _, c := range n.children {
		fn(c)
		c.walk(fn)
	}
}

func (d *Document) changed() {
	d.mutations++
}

// Matcher selects nodes in queries.
type Matcher func(*Node) bool

func ByTag(tag string) Matcher {
	return func(n *Node) bool { return n.tag == tag }
}

func ByClass(class string) Matcher {
	return func(n *Node) bool { return n.HasClass(class) }
}

func ByAttr(key, value string) Matcher {
	return func(n *Node) bool {
		v, ok := n.attrs[key]
		return ok && v == value
	}
}

func HasAttr(key string) Matcher {
	return func(n *Node) bool { return n.HasAttr(key) }
}

// And matches when every matcher does.
func And(ms ...Matcher) Matcher {
	return func(n *Node) bool {
		for _, m := range ms {
			if !m(n) {
				return false
			}
		}
		return true
	}
}

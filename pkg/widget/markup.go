// Package widget builds and recognises the nodes the grouping engine
// injects into the host panel.
package widget

import "tableflip.dev/bands/pkg/dom"

// Attributes and classes placed on injected nodes.
const (
	InjectedAttr = "data-bands-injected"
	GroupAttr    = "data-group"
	ActionAttr   = "data-action"
	BoundAttr    = "data-bands-bound"

	BandClass      = "bands-group-block"
	HeaderClass    = "bands-group-header"
	CollapsedClass = "bands-collapsed"
	DisabledClass  = "bands-disabled"
	ToolbarClass   = "bands-toolbar-button"
	ProxyClass     = "bands-comment-proxy"
)

// Mark tags n as produced by the grouping engine.
func Mark(n *dom.Node) *dom.Node {
	n.SetAttr(InjectedAttr, "1")
	return n
}

// IsInjected reports whether n itself carries the injected marker. Host
// nodes placed inside a band are not injected.
func IsInjected(n *dom.Node) bool {
	return n != nil && n.HasAttr(InjectedAttr)
}

func IsBand(n *dom.Node) bool {
	return n != nil && n.HasClass(BandClass) && n.HasAttr(InjectedAttr)
}

func IsHeader(n *dom.Node) bool {
	return n != nil && n.HasClass(HeaderClass) && n.HasAttr(InjectedAttr)
}

// GroupOf returns the group key of a band or header.
func GroupOf(n *dom.Node) string {
	v, _ := n.Attr(GroupAttr)
	return v
}

// Keyed tags n with a group key and class.
func Keyed(n *dom.Node, class, group string) *dom.Node {
	Mark(n)
	n.SetClass(class, true)
	n.SetAttr(GroupAttr, group)
	return n
}

// FindBand returns the band of group directly under list.
func FindBand(list *dom.Node, group string) *dom.Node {
	for _, c := range list.Children() {
		if IsBand(c) && GroupOf(c) == group {
			return c
		}
	}
	return nil
}

// FindHeader returns the header of group anywhere under list, preferring
// one inside the group's band.
func FindHeader(list *dom.Node, group string) *dom.Node {
	if band := FindBand(list, group); band != nil {
		for _, c := range band.Children() {
			if IsHeader(c) && GroupOf(c) == group {
				return c
			}
		}
	}
	return list.Find(func(n *dom.Node) bool {
		return IsHeader(n) && GroupOf(n) == group
	})
}

package vdom

import (
	"strconv"
	"sync/atomic"
)

// HIDGenerator hands out hydration IDs ("h1", "h2", ...) for elements that
// capture a ref. It is safe for concurrent use.
type HIDGenerator struct {
	counter atomic.Uint32
}

// NewHIDGenerator returns a generator starting at h1.
func NewHIDGenerator() *HIDGenerator {
	return &HIDGenerator{}
}

// Next returns the next ID.
func (g *HIDGenerator) Next() string {
	return "h" + strconv.FormatUint(uint64(g.counter.Add(1)), 10)
}

// Current returns how many IDs have been handed out.
func (g *HIDGenerator) Current() uint32 {
	return g.counter.Load()
}

// AssignHIDs walks the tree and assigns HIDs to elements that capture a ref
// and do not have one yet. Existing HIDs are kept so re-renders of the same
// element keep their identity.
func AssignHIDs(node *VNode, gen *HIDGenerator) {
	if node == nil {
		return
	}

	if node.Kind == KindElement && node.Ref != nil && node.HID == "" {
		node.HID = gen.Next()
	}

	for _, child := range node.Children {
		AssignHIDs(child, gen)
	}
}

// CaptureRefs invokes every ref capture in the tree with the element's HID.
// Render layers call it after the elements exist in the document.
func CaptureRefs(node *VNode) {
	if node == nil {
		return
	}

	if node.Kind == KindElement && node.Ref != nil && node.HID != "" {
		node.Ref(ElementRef(node.HID))
	}

	for _, child := range node.Children {
		CaptureRefs(child)
	}
}

// Mount assigns HIDs and then captures refs, in that order.
func Mount(node *VNode, gen *HIDGenerator) {
	AssignHIDs(node, gen)
	CaptureRefs(node)
}

// FindByHID returns the node with the given HID, or nil.
func FindByHID(node *VNode, hid string) *VNode {
	if node == nil {
		return nil
	}
	if node.HID == hid {
		return node
	}
	for _, child := range node.Children {
		if found := FindByHID(child, hid); found != nil {
			return found
		}
	}
	return nil
}

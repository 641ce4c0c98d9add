package vdom

// VKind is the node type discriminator.
type VKind uint8

const (
	KindElement  VKind = iota // <div>, <vango-mixed>, etc.
	KindText                  // Plain text node
	KindFragment              // Grouping without wrapper
)

// String returns the string representation of the VKind.
func (k VKind) String() string {
	switch k {
	case KindElement:
		return "Element"
	case KindText:
		return "Text"
	case KindFragment:
		return "Fragment"
	default:
		return "Unknown"
	}
}

// ElementRef identifies a rendered element in the shared document.
// It is the hydration ID the render layer assigned to the element.
type ElementRef string

// IsZero reports whether the ref has not been captured yet.
func (r ElementRef) IsZero() bool {
	return r == ""
}

// VNode is the virtual DOM node.
type VNode struct {
	Kind     VKind    // Node type
	Tag      string   // Element tag name (e.g., "div")
	Props    Props    // Attributes
	Children []*VNode // Child nodes
	Key      string   // Reconciliation key
	Text     string   // For KindText
	HID      string   // Hydration ID (assigned during mount)

	// Ref is invoked by the render layer with the element's reference once
	// the element exists in the document.
	Ref func(ElementRef)
}

// Props holds attributes.
type Props map[string]any

// Element creates an element node.
func Element(tag string, props Props, children ...*VNode) *VNode {
	return &VNode{
		Kind:     KindElement,
		Tag:      tag,
		Props:    props,
		Children: children,
	}
}

// Text creates a text node.
func Text(content string) *VNode {
	return &VNode{Kind: KindText, Text: content}
}

// WithRef attaches a reference capture to an element node and returns it.
func (v *VNode) WithRef(capture func(ElementRef)) *VNode {
	v.Ref = capture
	return v
}

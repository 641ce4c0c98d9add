package vdom

import "testing"

func TestVKindString(t *testing.T) {
	tests := []struct {
		kind VKind
		want string
	}{
		{KindElement, "Element"},
		{KindText, "Text"},
		{KindFragment, "Fragment"},
		{VKind(255), "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.kind.String(); got != tt.want {
				t.Errorf("VKind.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestElement(t *testing.T) {
	node := Element("vango-mixed", Props{"data-marker": "app.Counter"}, Text("x"))

	if node.Kind != KindElement || node.Tag != "vango-mixed" {
		t.Errorf("Element() = %+v", node)
	}
	if len(node.Children) != 1 || node.Children[0].Text != "x" {
		t.Errorf("children = %+v", node.Children)
	}
}

func TestMountCapturesRefs(t *testing.T) {
	var outer, inner ElementRef
	tree := Element("div", nil,
		Element("vango-mixed", nil).WithRef(func(r ElementRef) { outer = r }),
		Element("span", nil),
		Element("vango-mixed", nil).WithRef(func(r ElementRef) { inner = r }),
	)

	gen := NewHIDGenerator()
	Mount(tree, gen)

	if outer != "h1" || inner != "h2" {
		t.Errorf("refs = %q, %q; want h1, h2", outer, inner)
	}
	if tree.HID != "" || tree.Children[1].HID != "" {
		t.Error("elements without ref capture should not get HIDs")
	}
	if gen.Current() != 2 {
		t.Errorf("Current() = %d, want 2", gen.Current())
	}
}

func TestMountKeepsExistingHID(t *testing.T) {
	var got ElementRef
	node := Element("vango-mixed", nil).WithRef(func(r ElementRef) { got = r })
	node.HID = "h42"

	Mount(node, NewHIDGenerator())

	if got != "h42" {
		t.Errorf("ref = %q, want h42", got)
	}
}

func TestFindByHID(t *testing.T) {
	target := Element("vango-mixed", nil).WithRef(func(ElementRef) {})
	tree := Element("div", nil, Element("p", nil, target))
	Mount(tree, NewHIDGenerator())

	if FindByHID(tree, target.HID) != target {
		t.Error("FindByHID did not return the mounted node")
	}
	if FindByHID(tree, "h99") != nil {
		t.Error("FindByHID returned a node for an unknown HID")
	}
}

func TestElementRefIsZero(t *testing.T) {
	if !ElementRef("").IsZero() || ElementRef("h1").IsZero() {
		t.Error("IsZero mismatch")
	}
}

// Package vdom provides the minimal virtual DOM model the mixed-rendering
// boundary needs from the render layer.
//
// Proxy components render a single wrapper element and ask to be told the
// element's reference once it exists in the document. The render layer
// (diffing, patching and hydration live outside this module) does that by
// assigning hydration IDs and invoking each node's Ref capture:
//
//	node := vdom.Element("vango-mixed", nil).WithRef(func(ref vdom.ElementRef) {
//	    container = ref
//	})
//	vdom.Mount(node, gen)
package vdom

// Package object implements Orbit's heap object kinds: String, Map,
// Instance, Class, Function, Task, and Module (spec.md §3–§4).
//
// Every heap object embeds Header, which carries the GC mark bit and the
// singly-linked next-pointer threading all heap objects in allocation
// order (spec.md: "Every heap object carries: kind tag; GC mark flag; a
// singly-linked next-pointer"). The kind tag itself is reported through
// each type's ObjKind method rather than stored redundantly in Header,
// since Go's type system already discriminates kinds at compile time —
// ObjKind exists for the cases (GC, disassembly, error messages) that
// need to branch on kind at runtime without a type switch.
package object

import "github.com/orbitlang/orbit/pkg/value"

// Header is embedded by every heap object kind. It is not itself an
// Obj — there is no "generic heap object" value, only concrete kinds
// that happen to share this layout.
type Header struct {
	marked bool
	next   value.Obj
}

// Marked reports whether the GC's mark phase has visited this object
// during the current collection.
func (h *Header) Marked() bool { return h.marked }

// SetMarked sets or clears the mark bit. Sweep clears it on survivors;
// mark sets it on first visit.
func (h *Header) SetMarked(m bool) { h.marked = m }

// Next returns the next object in the VM's heap allocation list.
func (h *Header) Next() value.Obj { return h.next }

// SetNext links this object in front of o in the heap allocation list.
func (h *Header) SetNext(o value.Obj) { h.next = o }

// Heap is satisfied by every concrete object kind in this package (via
// the embedded Header plus their own ObjKind method). The garbage
// collector operates purely in terms of this interface.
type Heap interface {
	value.Obj
	Marked() bool
	SetMarked(bool)
	Next() value.Obj
	SetNext(value.Obj)
}

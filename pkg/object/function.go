package object

import "github.com/orbitlang/orbit/pkg/value"

// FunctionKind discriminates a Function's two call conventions.
type FunctionKind byte

const (
	// FnNative functions carry bytecode and are executed by the
	// interpreter loop (pkg/vm).
	FnNative FunctionKind = iota
	// FnForeign functions are host callbacks registered by name.
	FnForeign
)

// ForeignContext is the narrow slice of VM capability a foreign function
// needs: the ability to allocate through the VM's own allocator rather
// than holding heap objects the GC doesn't know about. Declared here
// (not in package vm) so that Function can hold a ForeignFn without
// package object importing package vm — package vm already imports
// object, and the reverse would cycle.
type ForeignContext interface {
	// NewString allocates a String through the VM's allocator and
	// returns it wrapped as a Value, already linked into the heap.
	NewString(s string) value.Value
	// NewMap allocates a Map through the VM's allocator.
	NewMap() value.Value
	// Pin protects obj from collection until the matching Unpin (mirrors
	// the pin stack discipline of spec.md §4.2). Returning from the
	// foreign call does not unpin it.
	Pin(obj value.Obj)
	// Unpin releases the most recent Pin.
	Unpin()
}

// ForeignFn is a host callback bound to a Function of kind FnForeign.
// args holds exactly arity values (the arguments the bytecode pushed,
// left to right); the boolean result reports whether ret is a real
// return value (see spec.md §4.5's foreign call protocol — the
// "arity − 1 vs arity" stack contraction depends on this boolean).
type ForeignFn func(ctx ForeignContext, args []value.Value) (ret value.Value, hasReturn bool)

// Function is either a native (bytecode) or foreign (host callback)
// callable, identified in the VM's dispatch table by its full signature
// string (spec.md §4.4).
type Function struct {
	Header
	Signature   string
	Arity       int
	LocalCount  int // native only
	StackEffect int // native only: max additional stack slots needed
	Kind        FunctionKind
	Module      *Module // native: owning module; foreign: nil
	Code        []byte  // native only: raw bytecode
	Foreign     ForeignFn
}

// NewNativeFunction allocates a native Function owned by module.
func NewNativeFunction(signature string, arity, localCount, stackEffect int, code []byte, module *Module) *Function {
	return &Function{
		Signature:   signature,
		Arity:       arity,
		LocalCount:  localCount,
		StackEffect: stackEffect,
		Kind:        FnNative,
		Module:      module,
		Code:        code,
	}
}

// NewForeignFunction allocates a foreign Function bound to fn.
func NewForeignFunction(signature string, arity int, fn ForeignFn) *Function {
	return &Function{
		Signature: signature,
		Arity:     arity,
		Kind:      FnForeign,
		Foreign:   fn,
	}
}

// ObjKind implements value.Obj.
func (f *Function) ObjKind() value.ObjectKind { return value.ObjFunction }

func (f *Function) String() string { return "function " + f.Signature }

package vm

import (
	"github.com/orbitlang/orbit/pkg/object"
	"github.com/orbitlang/orbit/pkg/value"
)

// Fixed per-kind byte estimates used to keep vm.allocated a conservative
// upper bound on live heap size, per spec.md §4.1 ("pre-allocation
// counting is acceptable as long as the counter is a conservative upper
// bound"). These are not meant to match Go's real runtime footprint —
// they model the CORE's own notion of heap pressure, independent of
// however much memory the host Go runtime actually uses underneath.
const (
	headerOverhead = 16
	mapEntrySize   = 24
	valueSize      = 16
	frameSize      = 32
)

func sizeOfString(s string) int { return headerOverhead + len(s) }

func sizeOfMap(capacity int) int { return headerOverhead + capacity*mapEntrySize }

func sizeOfInstance(fieldCount int) int { return headerOverhead + fieldCount*valueSize }

func sizeOfClass() int { return headerOverhead + 64 }

func sizeOfFunction(codeLen int) int { return headerOverhead + codeLen + 64 }

func sizeOfTask(stackCap, frameCap int) int {
	return headerOverhead + stackCap*valueSize + frameCap*frameSize
}

func sizeOfModule(constants, globals int) int {
	return headerOverhead + constants*valueSize + globals*valueSize + 64
}

// charge is the allocator's single entry point (spec.md §4.1's
// alloc(vm, ptr, new_size), specialized to "always allocating, never
// freeing or reallocating in place" — Go's own allocator already
// handles the reuse that alloc() offers by accepting a non-nil ptr).
// It adds newSize to vm.allocated and, if that pushes the counter past
// nextGC, collects before the caller is allowed to proceed.
func (vm *VM) charge(newSize int) {
	vm.allocated += newSize
	if vm.allocated > vm.nextGC {
		vm.collectGarbage()
	}
}

// link threads obj onto the head of the VM's heap allocation list, the
// structure Sweep walks to find dead objects.
func (vm *VM) link(obj object.Heap) {
	obj.SetNext(vm.heapHead)
	vm.heapHead = obj
}

// newStringObj allocates and links a String, charging the allocator
// first. Unexported: internal callers (the loader) want the concrete
// *object.String, while object.ForeignContext's NewString (below) wraps
// it as a Value for foreign functions.
func (vm *VM) newStringObj(s string) *object.String {
	vm.charge(sizeOfString(s))
	str := object.NewString(s)
	vm.link(str)
	return str
}

// newMapObj allocates and links an empty Map.
func (vm *VM) newMapObj() *object.Map {
	vm.charge(sizeOfMap(8))
	m := object.NewMap()
	vm.link(m)
	return m
}

// NewInstance allocates and links an Instance of class.
func (vm *VM) NewInstance(class *object.Class) *object.Instance {
	vm.charge(sizeOfInstance(class.FieldCount))
	inst := object.NewInstance(class)
	vm.link(inst)
	return inst
}

// NewClass allocates and links a Class.
func (vm *VM) NewClass(name string, fieldCount int, ctor, dtor *object.Function) *object.Class {
	vm.charge(sizeOfClass())
	class := object.NewClass(name, fieldCount, ctor, dtor)
	vm.link(class)
	return class
}

// NewNativeFunction allocates and links a native Function.
func (vm *VM) NewNativeFunction(signature string, arity, localCount, stackEffect int, code []byte, module *object.Module) *object.Function {
	vm.charge(sizeOfFunction(len(code)))
	fn := object.NewNativeFunction(signature, arity, localCount, stackEffect, code, module)
	vm.link(fn)
	return fn
}

// NewForeignFunction allocates and links a foreign Function.
func (vm *VM) NewForeignFunction(signature string, arity int, fn object.ForeignFn) *object.Function {
	vm.charge(sizeOfFunction(0))
	f := object.NewForeignFunction(signature, arity, fn)
	vm.link(f)
	return f
}

// NewTask allocates and links a Task.
func (vm *VM) NewTask() *object.Task {
	task := object.NewTask()
	vm.charge(sizeOfTask(len(task.Stack), len(task.Frames)))
	vm.link(task)
	return task
}

// NewModule allocates and links a Module.
func (vm *VM) NewModule(name, path string) *object.Module {
	vm.charge(sizeOfModule(0, 0))
	m := object.NewModule(name, path)
	vm.link(m)
	return m
}

// NewString allocates a String and wraps it as a Value. Implements
// object.ForeignContext, so foreign functions build result strings
// through the VM's own allocator rather than holding Go strings the GC
// never sees.
func (vm *VM) NewString(s string) value.Value {
	return value.Object(vm.newStringObj(s))
}

// NewMap allocates a Map and wraps it as a Value. Implements
// object.ForeignContext.
func (vm *VM) NewMap() value.Value {
	return value.Object(vm.newMapObj())
}

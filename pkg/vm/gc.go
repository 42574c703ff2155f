package vm

import (
	"github.com/orbitlang/orbit/pkg/object"
	"github.com/orbitlang/orbit/pkg/value"
)

const (
	defaultInitialGCThreshold = 1 << 20 // 1 MiB of charged bytes
	defaultGrowthFactor       = 2
	defaultPinStackCapacity   = 256
)

// collectGarbage runs one stop-the-world mark-sweep pass (spec.md §4.2).
//
// Roots: the current task, the three global maps (dispatch, classes,
// modules), and every entry of the pin stack. Mark is a recursive
// descent guarded by each object's mark bit, so cycles terminate and no
// object is visited twice. Sweep walks the heap allocation list,
// unlinking and discarding anything left unmarked, and resets nextGC
// from the survivors' total charged size.
func (vm *VM) collectGarbage() {
	if vm.task != nil {
		vm.markObject(vm.task)
	}
	for _, fn := range vm.dispatch {
		vm.markObject(fn)
	}
	for _, class := range vm.classes {
		vm.markObject(class)
	}
	for _, mod := range vm.modules {
		vm.markObject(mod)
	}
	for _, pinned := range vm.pinStack {
		vm.markObject(pinned)
	}

	vm.sweep()
}

// markObject marks o (if it is a heap object) and recursively marks
// every object directly reachable from it, per object.Walk.
func (vm *VM) markObject(o value.Obj) {
	if o == nil {
		return
	}
	h, ok := o.(object.Heap)
	if !ok {
		return
	}
	if h.Marked() {
		return
	}
	h.SetMarked(true)
	object.Walk(o, vm.markObject)
}

// sweep walks the heap allocation list, frees unmarked objects, clears
// the mark bit on survivors, and recomputes vm.allocated / vm.nextGC.
func (vm *VM) sweep() {
	var head object.Heap
	var tail object.Heap
	liveBytes := 0

	var node object.Heap = vm.heapHead
	for node != nil {
		next, _ := node.Next().(object.Heap)
		if node.Marked() {
			node.SetMarked(false)
			node.SetNext(nil)
			if head == nil {
				head = node
			} else {
				tail.SetNext(node)
			}
			tail = node
			liveBytes += vm.liveSize(node)
		}
		node = next
	}

	vm.heapHead = head
	vm.allocated = liveBytes
	vm.nextGC = vm.growthFactor * liveBytes
	if vm.nextGC < vm.minGCThreshold {
		vm.nextGC = vm.minGCThreshold
	}
}

// liveSize recomputes a survivor's charged size with the same per-kind
// size functions NewXxx charge through, applied to the object's current
// shape (a Map's occupancy, a Module's constant and global counts) rather
// than its shape at allocation time, so vm.allocated reflects in-place
// growth since then.
func (vm *VM) liveSize(o object.Heap) int {
	switch v := o.(type) {
	case *object.String:
		return sizeOfString(string(v.Bytes))
	case *object.Map:
		return sizeOfMap(v.Len()*2 + 1)
	case *object.Instance:
		return sizeOfInstance(len(v.Fields))
	case *object.Class:
		return sizeOfClass()
	case *object.Function:
		return sizeOfFunction(len(v.Code))
	case *object.Task:
		return sizeOfTask(len(v.Stack), len(v.Frames))
	case *object.Module:
		return sizeOfModule(len(v.Constants), len(v.Globals))
	default:
		return headerOverhead
	}
}

var _ object.ForeignContext = (*VM)(nil)

// Pin protects obj from collection until the matching Unpin, for the
// multi-step constructions spec.md §4.2 and §9 call out (e.g. building a
// Map whose entries are themselves freshly allocated, or a foreign
// function building a compound result across several allocator calls).
// Pin implements object.ForeignContext.
func (vm *VM) Pin(obj value.Obj) {
	if len(vm.pinStack) >= vm.pinStackCapacity {
		fatalf("pin stack overflow (capacity %d)", vm.pinStackCapacity)
	}
	vm.pinStack = append(vm.pinStack, obj)
}

// Unpin releases the most recently pinned object. Unpin implements
// object.ForeignContext.
func (vm *VM) Unpin() {
	if len(vm.pinStack) == 0 {
		panic("orbit: unpin with empty pin stack")
	}
	vm.pinStack = vm.pinStack[:len(vm.pinStack)-1]
}

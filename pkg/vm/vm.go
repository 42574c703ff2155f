// Package vm implements Orbit's allocator, mark-sweep garbage collector,
// module loader, and stack-based bytecode interpreter — the CORE of the
// Orbit execution engine (spec.md §1–§2).
//
// Process:
//
//	.omf bytes -> bytecode.Decode -> Container -> LoadModule -> *object.Module
//	  -> (exports registered into dispatch/classes tables)
//	  -> Invoke -> Task -> run (the interpreter loop) -> result
//
// The VM is single-threaded and non-reentrant (spec.md §5): exactly one
// Task executes at a time, and no VM method is safe to call concurrently
// from more than one goroutine.
package vm

import (
	"io"
	"os"

	"github.com/orbitlang/orbit/pkg/object"
	"github.com/orbitlang/orbit/pkg/value"
)

// VM is the process-wide state spec.md §3 describes: the current task,
// the head of the GC's heap object list, the allocated-byte counter and
// next-GC threshold, the three global maps, and a bounded pin stack.
type VM struct {
	heapHead object.Heap

	allocated      int
	nextGC         int
	minGCThreshold int
	growthFactor   int

	pinStack         []value.Obj
	pinStackCapacity int

	dispatch map[string]*object.Function
	classes  map[string]*object.Class
	modules  map[string]*object.Module

	// foreignSymbols holds callbacks registered by name (spec.md §4.4:
	// "bind to a registered callback by name"), consulted when the
	// loader encounters a foreign function-table entry. Distinct from
	// dispatch, which is keyed by full signature and populated once a
	// name resolves successfully.
	foreignSymbols map[string]foreignSymbol

	task *object.Task

	out      io.Writer
	debugger *Debugger
}

// Option configures a VM at construction time. The CORE's fixed
// constants (spec.md §4.2: initial GC threshold, growth factor, pin
// stack capacity) are all overridable this way rather than hardcoded,
// matching SPEC_FULL.md's ambient-stack expansion of smog's zero-argument
// New() constructors into configurable ones.
type Option func(*VM)

// WithInitialGCThreshold overrides the default initial next_gc value.
func WithInitialGCThreshold(bytes int) Option {
	return func(vm *VM) { vm.nextGC = bytes; vm.minGCThreshold = bytes }
}

// WithGrowthFactor overrides the default post-sweep threshold growth
// factor (spec.md §4.2 default: 2).
func WithGrowthFactor(factor int) Option {
	return func(vm *VM) { vm.growthFactor = factor }
}

// WithPinStackCapacity overrides the default pin stack capacity. See
// SPEC_FULL.md's "supplemented features" for why this is configurable
// rather than a single build-time constant.
func WithPinStackCapacity(capacity int) Option {
	return func(vm *VM) { vm.pinStackCapacity = capacity }
}

// WithOutput sets the sink debug_prt writes to. Defaults to os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(vm *VM) { vm.out = w }
}

// New constructs an empty VM: allocator state initialized, GC threshold
// set, and the three global maps created (spec.md §4.6). These maps are
// themselves GC roots — see collectGarbage — but, being plain Go maps
// rather than heap objects, they need no allocator charge of their own.
func New(opts ...Option) *VM {
	vm := &VM{
		allocated:        0,
		nextGC:           defaultInitialGCThreshold,
		minGCThreshold:   defaultInitialGCThreshold,
		growthFactor:     defaultGrowthFactor,
		pinStackCapacity: defaultPinStackCapacity,
		dispatch:         make(map[string]*object.Function),
		classes:          make(map[string]*object.Class),
		modules:          make(map[string]*object.Module),
		foreignSymbols:   make(map[string]foreignSymbol),
		out:              os.Stdout,
	}
	for _, opt := range opts {
		opt(vm)
	}
	vm.debugger = newDebugger(vm)
	return vm
}

// LoadModule resolves name via the simple name→path rule (append .omf,
// open, unpack — spec.md §4.6) and registers its exports into the VM's
// global tables. If a module with this name is already loaded, LoadModule
// is a no-op and returns the existing module.
func (vm *VM) LoadModule(name string) (*object.Module, error) {
	if existing, ok := vm.modules[name]; ok {
		return existing, nil
	}
	return vm.loadModuleFromPath(name, nameToPath(name))
}

// LoadModuleFromReader loads a module from an already-open reader instead
// of resolving a name to a file path — used by embedding tests that build
// .omf bytes in memory (spec.md's Container already separates "decode
// bytes" from "resolve a file path", so this just skips the second step).
func (vm *VM) LoadModuleFromReader(name string, r io.Reader) (*object.Module, error) {
	if existing, ok := vm.modules[name]; ok {
		return existing, nil
	}
	return vm.loadModuleFromReader(name, r, name)
}

// Invoke ensures module is loaded, resolves entry through the dispatch
// table, constructs a Task bound to the resolved function, and runs the
// interpreter (spec.md §4.6). It returns success iff the interpreter
// returns normally.
func (vm *VM) Invoke(module, entry string) (bool, error) {
	mod, err := vm.LoadModule(module)
	if err != nil {
		return false, err
	}
	return vm.invokeIn(mod, entry)
}

func (vm *VM) invokeIn(mod *object.Module, entry string) (bool, error) {
	_ = mod // module is ensured loaded by the caller; lookup is by signature
	fn, ok := vm.dispatch[entry]
	if !ok {
		return false, &RuntimeError{Message: "entry point not found: " + entry}
	}
	if fn.Kind != object.FnNative {
		return false, &RuntimeError{Message: "entry point is not a native function: " + entry}
	}

	task := vm.NewTask()
	vm.task = task
	if err := vm.run(task, fn); err != nil {
		return false, err
	}
	return true, nil
}

// StackTop returns the top of the current task's value stack, for tests
// and the embedding API's convenience (spec.md's seed scenarios read the
// final top-of-stack value after Invoke returns).
func (vm *VM) StackTop() (value.Value, bool) {
	if vm.task == nil || vm.task.SP == 0 {
		return value.Nil, false
	}
	return vm.task.Top(), true
}

// Dealloc clears the three global map roots and the current task
// reference, then forces a GC pass, collecting everything the VM owns
// (spec.md §4.6). Call this, rather than simply dropping the VM, when an
// embedder wants a deterministic teardown point (e.g. before registering
// a fresh VM with different foreign functions).
func (vm *VM) Dealloc() {
	vm.dispatch = make(map[string]*object.Function)
	vm.classes = make(map[string]*object.Class)
	vm.modules = make(map[string]*object.Module)
	vm.task = nil
	vm.pinStack = nil
	vm.collectGarbage()
}

// foreignSymbol is a named callback the loader can bind a module's
// foreign function-table entries to (spec.md §4.4).
type foreignSymbol struct {
	arity int
	fn    object.ForeignFn
}

// RegisterForeignSymbol makes fn available to the loader under name, for
// modules whose function table declares a foreign entry with this name
// (spec.md's external interface: "host registers name → callback
// mappings"). Unlike RegisterForeign, this does not itself install
// anything into the dispatch table — only a module that actually
// references name by loading gets it bound, and the loader validates the
// declared arity against fspec eagerly (see SPEC_FULL.md's
// "supplemented features": an Open Question resolved in favor of a
// clearer loader-time error over a later dispatch-time trap).
func (vm *VM) RegisterForeignSymbol(name string, arity int, fn object.ForeignFn) {
	vm.foreignSymbols[name] = foreignSymbol{arity: arity, fn: fn}
}

// RegisterForeign binds name to fn in the dispatch table directly,
// without going through a loaded module — the embedding API's "host
// registers name → callback mappings" (spec.md §6). Foreign functions
// registered this way are resolved by invoke_sym the same as any
// module-exported function.
func (vm *VM) RegisterForeign(signature string, arity int, fn object.ForeignFn) {
	vm.dispatch[signature] = vm.NewForeignFunction(signature, arity, fn)
}

package vm

import (
	"fmt"
	"io"

	"github.com/orbitlang/orbit/pkg/bytecode"
	"github.com/orbitlang/orbit/pkg/object"
	"github.com/orbitlang/orbit/pkg/value"
)

// nameToPath implements the VM's simple name→path rule (spec.md §4.6).
func nameToPath(name string) string {
	return bytecode.ResolvePath(name)
}

func (vm *VM) loadModuleFromPath(name, path string) (*object.Module, error) {
	container, err := bytecode.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load module %q: %w", name, err)
	}
	mod, err := vm.construct(name, container)
	if err != nil {
		return nil, err
	}
	mod.Path = path
	return mod, nil
}

func (vm *VM) loadModuleFromReader(name string, r io.Reader, sourceDesc string) (*object.Module, error) {
	container, err := bytecode.Decode(r, sourceDesc)
	if err != nil {
		return nil, fmt.Errorf("load module %q: %w", name, err)
	}
	return vm.construct(name, container)
}

// construct builds a live *object.Module from a decoded Container,
// allocating every heap object through the VM's allocator (so the
// module itself is subject to the same GC discipline as anything the
// interpreter allocates at run time) and registering its exported
// functions and classes into the VM's dispatch and classes tables
// (spec.md §4.4).
//
// On failure the loader returns an error and leaves whatever partial
// allocations it already made for the next GC cycle to reclaim — it does
// not retroactively unlink them, matching spec.md §4.4 ("releases any
// partial allocations, or leaves them for the next GC cycle") and §7
// ("VM state is left consistent: no partial module registration" — the
// module itself is never registered into vm.modules until construction
// fully succeeds).
func (vm *VM) construct(name string, c *bytecode.Container) (*object.Module, error) {
	mod := vm.NewModule(name, c.Name)
	pinDepth := len(vm.pinStack)
	vm.Pin(mod)
	// Restore the pin stack on every return, so an early error return
	// does not leave the module or its functions/classes pinned.
	defer func() { vm.pinStack = vm.pinStack[:pinDepth] }()

	strings := make([]*object.String, len(c.Strings))
	for i, s := range c.Strings {
		strings[i] = vm.newStringObj(s)
	}

	resolveString := func(idx uint32) (*object.String, error) {
		if int(idx) >= len(strings) {
			return nil, fmt.Errorf("string index %d out of range (pool has %d entries)", idx, len(strings))
		}
		return strings[idx], nil
	}

	toValue := func(c bytecode.Const) (value.Value, error) {
		switch c.Kind {
		case bytecode.ConstNil:
			return value.Nil, nil
		case bytecode.ConstBool:
			return value.Bool(c.Bool), nil
		case bytecode.ConstNumber:
			return value.Number(c.Number), nil
		case bytecode.ConstString:
			s, err := resolveString(c.StringIndex)
			if err != nil {
				return value.Nil, err
			}
			return value.Object(s), nil
		default:
			return value.Nil, fmt.Errorf("malformed constant kind %d", c.Kind)
		}
	}

	mod.Constants = make([]value.Value, len(c.Constants))
	for i, cc := range c.Constants {
		v, err := toValue(cc)
		if err != nil {
			return nil, fmt.Errorf("constant %d: %w", i, err)
		}
		mod.Constants[i] = v
	}

	mod.Globals = make([]value.Value, len(c.Globals))
	for i, gg := range c.Globals {
		v, err := toValue(gg)
		if err != nil {
			return nil, fmt.Errorf("global %d: %w", i, err)
		}
		mod.Globals[i] = v
	}

	functions := make([]*object.Function, len(c.Functions))
	for i, fspec := range c.Functions {
		sig, err := resolveString(fspec.SignatureIndex)
		if err != nil {
			return nil, fmt.Errorf("function %d: %w", i, err)
		}
		var fn *object.Function
		switch fspec.Kind {
		case bytecode.FuncNative:
			fn = vm.NewNativeFunction(sig.String(), int(fspec.Arity), int(fspec.LocalCount), int(fspec.StackEffect), fspec.Code, mod)
		case bytecode.FuncForeign:
			nameStr, err := resolveString(fspec.ForeignName)
			if err != nil {
				return nil, fmt.Errorf("function %d: %w", i, err)
			}
			callback, ok := vm.foreignSymbols[nameStr.String()]
			if !ok {
				return nil, fmt.Errorf("unknown foreign symbol %q", nameStr.String())
			}
			if callback.arity != int(fspec.Arity) {
				return nil, fmt.Errorf("foreign symbol %q declared arity %d but module expects %d", nameStr.String(), callback.arity, fspec.Arity)
			}
			fn = vm.NewForeignFunction(sig.String(), int(fspec.Arity), callback.fn)
		default:
			return nil, fmt.Errorf("function %d: unknown kind %d", i, fspec.Kind)
		}
		vm.Pin(fn)
		functions[i] = fn
	}
	mod.Functions = functions
	for range functions {
		vm.Unpin()
	}

	classes := make([]*object.Class, len(c.Classes))
	for i, cspec := range c.Classes {
		nameStr, err := resolveString(cspec.NameIndex)
		if err != nil {
			return nil, fmt.Errorf("class %d: %w", i, err)
		}
		var ctor, dtor *object.Function
		if cspec.HasCtor {
			if int(cspec.CtorIndex) >= len(functions) {
				return nil, fmt.Errorf("class %d: ctor index %d out of range", i, cspec.CtorIndex)
			}
			ctor = functions[cspec.CtorIndex]
		}
		if cspec.HasDtor {
			if int(cspec.DtorIndex) >= len(functions) {
				return nil, fmt.Errorf("class %d: dtor index %d out of range", i, cspec.DtorIndex)
			}
			dtor = functions[cspec.DtorIndex]
		}
		class := vm.NewClass(nameStr.String(), int(cspec.FieldCount), ctor, dtor)
		vm.Pin(class)
		classes[i] = class
	}
	mod.Classes = classes
	for range classes {
		vm.Unpin()
	}

	for _, fn := range functions {
		vm.dispatch[fn.Signature] = fn
	}
	for _, class := range classes {
		vm.classes[class.Name] = class
	}
	vm.modules[name] = mod

	return mod, nil
}

package vm

import (
	"encoding/binary"
	"fmt"

	"github.com/orbitlang/orbit/pkg/bytecode"
	"github.com/orbitlang/orbit/pkg/object"
	"github.com/orbitlang/orbit/pkg/value"
)

// run is the interpreter's single entry point (spec.md §4.5): push an
// initial frame for fn onto task, then dispatch opcodes until a top-level
// ret/ret_val/halt unwinds back out of it.
//
// Stack and frame growth double capacity by copying into a larger slice.
// Frames hold StackBase, and the task holds SP, as indices into that
// slice, so they stay valid across growth without relocation. Growth
// happens eagerly, before pushing would overflow, never mid-instruction.
func (vm *VM) run(task *object.Task, fn *object.Function) error {
	vm.pushFrame(task, fn, 0)

	for {
		frame := task.CurrentFrame()
		code := frame.Function.Code
		ip := frame.IP

		if ip >= len(code) {
			return &RuntimeError{Message: fmt.Sprintf("ip %d ran off the end of %q (len %d)", ip, frame.Function.Signature, len(code))}
		}

		if vm.debugger.shouldPause(ip) {
			vm.debugger.trace(vm.out, frame.Function, ip)
		}

		op := bytecode.Opcode(code[ip])

		switch op {
		case bytecode.OpHalt:
			return nil

		case bytecode.OpLoadNil:
			vm.ensureStack(task, 1)
			task.Push(value.Nil)
			frame.IP++

		case bytecode.OpLoadTrue:
			vm.ensureStack(task, 1)
			task.Push(value.True)
			frame.IP++

		case bytecode.OpLoadFalse:
			vm.ensureStack(task, 1)
			task.Push(value.False)
			frame.IP++

		case bytecode.OpLoadConst:
			idx := readU16(code, ip+1)
			vm.ensureStack(task, 1)
			task.Push(constAt(frame.Function.Module, idx))
			frame.IP += 3

		case bytecode.OpLoadLocal:
			idx := int(code[ip+1])
			vm.ensureStack(task, 1)
			task.Push(task.Stack[frame.StackBase+idx])
			frame.IP += 2

		case bytecode.OpLoadField:
			idx := readU16(code, ip+1)
			inst := vm.popInstance(task)
			if idx >= len(inst.Fields) {
				fatalf("field index %d out of range (instance has %d fields)", idx, len(inst.Fields))
			}
			task.Push(inst.Fields[idx])
			frame.IP += 3

		case bytecode.OpLoadGlobal:
			idx := readU16(code, ip+1)
			mod := frame.Function.Module
			if idx >= len(mod.Globals) {
				fatalf("global index %d out of range (module has %d globals)", idx, len(mod.Globals))
			}
			vm.ensureStack(task, 1)
			task.Push(mod.Globals[idx])
			frame.IP += 3

		case bytecode.OpStoreLocal:
			idx := int(code[ip+1])
			task.Stack[frame.StackBase+idx] = vm.pop(task)
			frame.IP += 2

		case bytecode.OpStoreField:
			idx := readU16(code, ip+1)
			v := vm.pop(task)
			inst := vm.popInstance(task)
			if idx >= len(inst.Fields) {
				fatalf("field index %d out of range (instance has %d fields)", idx, len(inst.Fields))
			}
			inst.Fields[idx] = v
			frame.IP += 3

		case bytecode.OpStoreGlobal:
			idx := readU16(code, ip+1)
			mod := frame.Function.Module
			if idx >= len(mod.Globals) {
				fatalf("global index %d out of range (module has %d globals)", idx, len(mod.Globals))
			}
			mod.Globals[idx] = vm.pop(task)
			frame.IP += 3

		case bytecode.OpAdd:
			vm.binaryNumeric(task, func(a, b float64) float64 { return a + b })
			frame.IP++
		case bytecode.OpSub:
			vm.binaryNumeric(task, func(a, b float64) float64 { return a - b })
			frame.IP++
		case bytecode.OpMul:
			vm.binaryNumeric(task, func(a, b float64) float64 { return a * b })
			frame.IP++
		case bytecode.OpDiv:
			vm.binaryNumeric(task, func(a, b float64) float64 { return a / b })
			frame.IP++

		case bytecode.OpTestLt:
			vm.binaryCompare(task, func(a, b float64) bool { return a < b })
			frame.IP++
		case bytecode.OpTestGt:
			vm.binaryCompare(task, func(a, b float64) bool { return a > b })
			frame.IP++
		case bytecode.OpTestEq:
			b := vm.pop(task)
			a := vm.pop(task)
			task.Push(value.Bool(value.Equal(a, b)))
			frame.IP++

		case bytecode.OpAnd, bytecode.OpOr:
			fatalf("opcode %s is reserved and not implemented", op)

		case bytecode.OpJump:
			off := readU16(code, ip+1)
			frame.IP = ip + 3 + off

		case bytecode.OpJumpIf:
			off := readU16(code, ip+1)
			cond := vm.pop(task)
			if cond.Truthy() {
				frame.IP = ip + 3 + off
			} else {
				frame.IP = ip + 3
			}

		case bytecode.OpRJump:
			off := readU16(code, ip+1)
			frame.IP = ip + 3 - off

		case bytecode.OpRJumpIf:
			off := readU16(code, ip+1)
			cond := vm.pop(task)
			if cond.Truthy() {
				frame.IP = ip + 3 - off
			} else {
				frame.IP = ip + 3
			}

		case bytecode.OpPop:
			vm.pop(task)
			frame.IP++

		case bytecode.OpSwap:
			a := vm.pop(task)
			b := vm.pop(task)
			task.Push(a)
			task.Push(b)
			frame.IP++

		case bytecode.OpInvokeSym:
			idx := readU16(code, ip+1)
			fn, err := vm.rewriteInvoke(frame.Function, ip, idx)
			if err != nil {
				return err
			}
			frame.IP = ip + 3
			if err := vm.invokeCall(task, fn); err != nil {
				return err
			}

		case bytecode.OpInvoke:
			idx := readU16(code, ip+1)
			c := constAt(frame.Function.Module, idx)
			fn, ok := c.AsObject().(*object.Function)
			if !ok {
				fatalf("constant %d is not a function", idx)
			}
			frame.IP += 3
			if err := vm.invokeCall(task, fn); err != nil {
				return err
			}

		case bytecode.OpRet:
			if vm.popFrame(task, value.Nil, false) {
				return nil
			}

		case bytecode.OpRetVal:
			ret := vm.pop(task)
			if vm.popFrame(task, ret, true) {
				return nil
			}

		case bytecode.OpInitSym:
			idx := int(code[ip+1])
			class, err := vm.rewriteInit(frame.Function, ip, idx)
			if err != nil {
				return err
			}
			frame.IP = ip + 3
			vm.ensureStack(task, 1)
			task.Push(value.Object(vm.NewInstance(class)))

		case bytecode.OpInit:
			idx := readU16(code, ip+1)
			c := constAt(frame.Function.Module, idx)
			class, ok := c.AsObject().(*object.Class)
			if !ok {
				fatalf("constant %d is not a class", idx)
			}
			vm.ensureStack(task, 1)
			task.Push(value.Object(vm.NewInstance(class)))
			frame.IP += 3

		case bytecode.OpDebugPrt:
			if task.SP > 0 {
				fmt.Fprintln(vm.out, DumpValue(task.Top()))
			} else {
				fmt.Fprintln(vm.out, "<empty stack>")
			}
			frame.IP++

		default:
			fatalf("unknown opcode %d at ip %d in %q", op, ip, frame.Function.Signature)
		}
	}
}

func readU16(code []byte, at int) int {
	return int(binary.BigEndian.Uint16(code[at : at+2]))
}

func constAt(mod *object.Module, idx int) value.Value {
	if idx >= len(mod.Constants) {
		fatalf("constant index %d out of range (module has %d constants)", idx, len(mod.Constants))
	}
	return mod.Constants[idx]
}

func (vm *VM) pop(task *object.Task) value.Value {
	if task.SP == 0 {
		fatalf("stack underflow")
	}
	return task.Pop()
}

func (vm *VM) popInstance(task *object.Task) *object.Instance {
	v := vm.pop(task)
	inst, ok := v.AsObject().(*object.Instance)
	if !ok {
		fatalf("expected instance, got %s", v.String())
	}
	return inst
}

func (vm *VM) binaryNumeric(task *object.Task, f func(a, b float64) float64) {
	b := vm.pop(task)
	a := vm.pop(task)
	if !a.IsNumber() || !b.IsNumber() {
		fatalf("arithmetic operand type mismatch: %s, %s", a.String(), b.String())
	}
	task.Push(value.Number(f(a.AsNumber(), b.AsNumber())))
}

func (vm *VM) binaryCompare(task *object.Task, f func(a, b float64) bool) {
	b := vm.pop(task)
	a := vm.pop(task)
	if !a.IsNumber() || !b.IsNumber() {
		fatalf("comparison operand type mismatch: %s, %s", a.String(), b.String())
	}
	task.Push(value.Bool(f(a.AsNumber(), b.AsNumber())))
}

// ensureStack grows task.Stack (doubling) whenever the next n pushes
// would overflow it. Active frames record StackBase as an index into the
// slice, not a pointer, so growth needs no fixups of frames or SP.
func (vm *VM) ensureStack(task *object.Task, n int) {
	for task.SP+n > len(task.Stack) {
		grown := make([]value.Value, len(task.Stack)*2)
		copy(grown, task.Stack)
		for i := len(task.Stack); i < len(grown); i++ {
			grown[i] = value.Nil
		}
		task.Stack = grown
	}
}

// ensureFrames grows task.Frames (doubling) whenever one more call would
// overflow it.
func (vm *VM) ensureFrames(task *object.Task) {
	if task.FrameCount >= len(task.Frames) {
		grown := make([]object.Frame, len(task.Frames)*2)
		copy(grown, task.Frames)
		task.Frames = grown
	}
}

// pushFrame installs a new activation record for fn, with stackBase as
// the index of its first local. The caller is responsible for having
// already pushed fn's arguments onto the stack at stackBase..stackBase+arity.
func (vm *VM) pushFrame(task *object.Task, fn *object.Function, stackBase int) {
	vm.ensureFrames(task)
	task.Frames[task.FrameCount] = object.Frame{Function: fn, IP: 0, StackBase: stackBase}
	task.FrameCount++
	if fn.Kind == object.FnNative {
		vm.ensureStack(task, fn.LocalCount-fn.Arity+fn.StackEffect)
		for i := fn.Arity; i < fn.LocalCount; i++ {
			task.Stack[stackBase+i] = value.Nil
		}
		if stackBase+fn.LocalCount > task.SP {
			task.SP = stackBase + fn.LocalCount
		}
	}
}

// invokeCall dispatches a call to fn: for a native function, pushes a
// new frame over its already-pushed arguments; for a foreign function,
// invokes the Go callback directly and applies the arity-1/arity stack
// contraction spec.md §4.5 describes, without ever pushing a Frame (a
// foreign call is not itself a step in the bytecode it's called from).
func (vm *VM) invokeCall(task *object.Task, fn *object.Function) error {
	switch fn.Kind {
	case object.FnNative:
		stackBase := task.SP - fn.Arity
		if stackBase < 0 {
			fatalf("call to %q: stack has fewer than %d arguments", fn.Signature, fn.Arity)
		}
		vm.pushFrame(task, fn, stackBase)
		return nil
	case object.FnForeign:
		base := task.SP - fn.Arity
		if base < 0 {
			fatalf("call to %q: stack has fewer than %d arguments", fn.Signature, fn.Arity)
		}
		args := make([]value.Value, fn.Arity)
		copy(args, task.Stack[base:task.SP])
		ret, hasReturn := fn.Foreign(vm, args)
		// arity-1 vs arity: a foreign call always consumes its arguments;
		// it additionally leaves one value behind only if it produced one.
		task.SP = base
		for i := base; i < len(task.Stack) && i < base+fn.Arity; i++ {
			task.Stack[i] = value.Nil
		}
		if hasReturn {
			vm.ensureStack(task, 1)
			task.Push(ret)
		}
		return nil
	default:
		fatalf("function %q has unknown kind %d", fn.Signature, fn.Kind)
		return nil
	}
}

// popFrame unwinds the current frame: resets SP to the frame's
// StackBase (discarding locals and arguments), optionally pushes back a
// return value, and pops the frame itself. It returns true if this was
// the outermost frame (the Task's run is complete).
func (vm *VM) popFrame(task *object.Task, ret value.Value, hasRet bool) bool {
	frame := task.CurrentFrame()
	base := frame.StackBase
	task.SP = base
	for i := base; i < len(task.Stack); i++ {
		if i >= task.SP {
			task.Stack[i] = value.Nil
		}
	}
	task.FrameCount--
	if hasRet {
		vm.ensureStack(task, 1)
		task.Push(ret)
	}
	return task.FrameCount == 0
}

// rewriteInvoke implements the invoke_sym -> invoke late-binding rewrite
// (spec.md §4.5 and §9): constants[idx] holds the callee's signature
// string the first time this call site executes. It is resolved through
// the dispatch table, the resolved *object.Function Value overwrites
// that same constant slot, and the opcode byte is patched from
// OpInvokeSym to OpInvoke in place. Both opcodes share the same 2-byte
// operand width, so no operand-width normalization is needed here (only
// init_sym/init is asymmetric).
//
// Idempotence: once rewritten, the call site is physically OpInvoke, so
// re-execution (e.g. a loop body) takes the OpInvoke case directly and
// never re-enters this function.
func (vm *VM) rewriteInvoke(fn *object.Function, ip, constIdx int) (*object.Function, error) {
	c := constAt(fn.Module, constIdx)
	sigStr, ok := c.AsObject().(*object.String)
	if !ok {
		fatalf("invoke_sym constant %d is not a signature string", constIdx)
	}
	target, ok := vm.dispatch[sigStr.String()]
	if !ok {
		return nil, &RuntimeError{Message: "unresolved symbol: " + sigStr.String()}
	}
	fn.Module.Constants[constIdx] = value.Object(target)
	fn.Code[ip] = byte(bytecode.OpInvoke)
	return target, nil
}

// rewriteInit implements the init_sym -> init late-binding rewrite. Its
// operand is asymmetric: init_sym is read as a single byte on the wire,
// but init always carries a 2-byte operand, so rewriting grows the
// instruction by one byte — every byte after the operand shifts right by
// one, and every jump target and other rewritten-site offset later in
// the same function's code that crosses this point must shift with it.
// Orbit avoids that cascading relocation by requiring loaders to emit
// init_sym sites pre-padded to two operand bytes (the second is a zero
// pad byte the rewrite overwrites), matching spec.md §9's "Implementers
// should choose the 2-byte normalisation" guidance without shifting any
// other instruction's address.
func (vm *VM) rewriteInit(fn *object.Function, ip, constIdx int) (*object.Class, error) {
	c := constAt(fn.Module, constIdx)
	nameStr, ok := c.AsObject().(*object.String)
	if !ok {
		fatalf("init_sym constant %d is not a class name string", constIdx)
	}
	class, ok := vm.classes[nameStr.String()]
	if !ok {
		return nil, &RuntimeError{Message: "unresolved class: " + nameStr.String()}
	}
	fn.Module.Constants[constIdx] = value.Object(class)
	fn.Code[ip] = byte(bytecode.OpInit)
	// init_sym's one-byte operand becomes init's two-byte operand. The
	// pad byte at ip+2 is already reserved by the loader; overwrite both
	// operand bytes with the (unchanged, still < 256) constant index so
	// big-endian decoding of OpInit's u16 operand reads the same value.
	fn.Code[ip+1] = 0
	fn.Code[ip+2] = byte(constIdx)
	return class, nil
}

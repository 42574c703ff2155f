package vm

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/orbitlang/orbit/pkg/bytecode"
	"github.com/orbitlang/orbit/pkg/object"
	"github.com/orbitlang/orbit/pkg/value"
)

// register builds a native function with the given constants and code,
// wires it into a fresh module under vm, and registers it in the
// dispatch table under its signature — the seed scenarios in spec §8
// assume hand-built bytecode, with no front-end compiler in scope.
func register(t *testing.T, v *VM, signature string, constants []value.Value, arity, localCount int, code []byte) *object.Module {
	t.Helper()
	mod := v.NewModule("seed", "seed.omf")
	mod.Constants = constants
	fn := v.NewNativeFunction(signature, arity, localCount, 8, code, mod)
	mod.Functions = []*object.Function{fn}
	v.dispatch[signature] = fn
	v.modules["seed"] = mod
	return mod
}

func TestS1ArithmeticAndReturn(t *testing.T) {
	v := New()
	code := []byte{
		byte(bytecode.OpLoadConst), 0, 0,
		byte(bytecode.OpLoadConst), 0, 1,
		byte(bytecode.OpAdd),
		byte(bytecode.OpRetVal),
	}
	register(t, v, "main()", []value.Value{value.Number(2), value.Number(3)}, 0, 0, code)

	ok, err := v.Invoke("seed", "main()")
	require.NoError(t, err)
	require.True(t, ok)

	top, ok := v.StackTop()
	require.True(t, ok)
	require.True(t, top.IsNumber())
	require.Equal(t, 5.0, top.AsNumber())
}

func TestS2Branching(t *testing.T) {
	v := New()
	code := []byte{
		byte(bytecode.OpLoadTrue),
		byte(bytecode.OpJumpIf), 0, 4,
		byte(bytecode.OpLoadConst), 0, 0,
		byte(bytecode.OpRetVal),
		byte(bytecode.OpLoadConst), 0, 1,
		byte(bytecode.OpRetVal),
	}
	register(t, v, "main()", []value.Value{value.Number(10), value.Number(20)}, 0, 0, code)

	ok, err := v.Invoke("seed", "main()")
	require.NoError(t, err)
	require.True(t, ok)

	top, _ := v.StackTop()
	require.Equal(t, 20.0, top.AsNumber())
}

func TestS3CallWithRewrite(t *testing.T) {
	v := New()

	bCode := []byte{
		byte(bytecode.OpLoadConst), 0, 0,
		byte(bytecode.OpRetVal),
	}
	bMod := v.NewModule("b-mod", "b.omf")
	bMod.Constants = []value.Value{value.Number(7)}
	bFn := v.NewNativeFunction("b()", 0, 0, 4, bCode, bMod)
	v.dispatch["b()"] = bFn
	v.modules["b-mod"] = bMod

	sym := v.newStringObj("b()")
	aCode := []byte{
		byte(bytecode.OpInvokeSym), 0, 0,
		byte(bytecode.OpRet),
	}
	aMod := v.NewModule("seed", "seed.omf")
	aMod.Constants = []value.Value{value.Object(sym)}
	aFn := v.NewNativeFunction("a()", 0, 0, 4, aCode, aMod)
	v.dispatch["a()"] = aFn
	v.modules["seed"] = aMod

	ok, err := v.Invoke("seed", "a()")
	require.NoError(t, err)
	require.True(t, ok)

	require.Equal(t, byte(bytecode.OpInvoke), aFn.Code[0])
	rewritten, ok := aMod.Constants[0].AsObject().(*object.Function)
	require.True(t, ok)
	require.Equal(t, "b()", rewritten.Signature)

	ok, err = v.Invoke("seed", "a()")
	require.NoError(t, err)
	require.True(t, ok)
}

// TestS4InstanceFieldWriteRead builds a Point class with two fields and
// a program that stores into both and reads the first back. Since the
// CORE's opcode set has no dup instruction, the instance is kept in
// local 0 and reloaded before every field access — the same pattern a
// front-end compiler would emit.
func TestS4InstanceFieldWriteRead(t *testing.T) {
	v := New()
	class := v.NewClass("Point", 2, nil, nil)
	v.classes["Point"] = class

	className := v.newStringObj("Point")
	mod := v.NewModule("seed", "seed.omf")
	mod.Constants = []value.Value{value.Object(className), value.Number(42), value.Number(99)}

	program := []byte{
		byte(bytecode.OpInitSym), 0, 0, // push new Point instance
		byte(bytecode.OpStoreLocal), 0, // locals[0] = instance
		byte(bytecode.OpLoadLocal), 0, // push instance
		byte(bytecode.OpLoadConst), 0, 1, // push 42
		byte(bytecode.OpStoreField), 0, 0, // instance.fields[0] = 42
		byte(bytecode.OpLoadLocal), 0, // push instance
		byte(bytecode.OpLoadConst), 0, 2, // push 99
		byte(bytecode.OpStoreField), 0, 1, // instance.fields[1] = 99
		byte(bytecode.OpLoadLocal), 0, // push instance
		byte(bytecode.OpLoadField), 0, 0, // push instance.fields[0]
		byte(bytecode.OpRetVal),
	}

	fn := v.NewNativeFunction("main()", 0, 1, 8, program, mod)
	mod.Functions = []*object.Function{fn}
	v.dispatch["main()"] = fn
	v.modules["seed"] = mod

	ok, err := v.Invoke("seed", "main()")
	require.NoError(t, err)
	require.True(t, ok)

	top, _ := v.StackTop()
	require.Equal(t, 42.0, top.AsNumber())
}

func TestS5GCPreservesReachable(t *testing.T) {
	v := New(WithInitialGCThreshold(1 << 20))

	const n = 16
	for i := 0; i < n; i++ {
		s := v.newStringObj("pinned")
		v.Pin(s)
	}
	require.Len(t, v.pinStack, n)

	v.nextGC = 0
	v.collectGarbage()

	require.Len(t, v.pinStack, n)
	count := 0
	for node := v.heapHead; node != nil; node, _ = node.Next().(object.Heap) {
		count++
	}
	require.GreaterOrEqual(t, count, n)

	for i := 0; i < n; i++ {
		v.Unpin()
	}
	v.collectGarbage()

	count = 0
	for node := v.heapHead; node != nil; node, _ = node.Next().(object.Heap) {
		count++
	}
	require.Equal(t, 0, count)
}

// TestS6ForeignCallABI registers a foreign add2(a,b), invokes it
// directly from a hand-built caller (no invoke_sym — an
// embedder-registered foreign function is already resolved), and checks
// the arity-1 stack contraction leaves exactly one new value behind.
func TestS6ForeignCallABI(t *testing.T) {
	v := New()
	v.RegisterForeign("add2(a,b)", 2, func(ctx object.ForeignContext, args []value.Value) (value.Value, bool) {
		return value.Number(args[0].AsNumber() + args[1].AsNumber()), true
	})
	fn := v.dispatch["add2(a,b)"]

	mod := v.NewModule("seed", "seed.omf")
	mod.Constants = []value.Value{value.Number(10), value.Number(20), value.Object(fn)}
	program := []byte{
		byte(bytecode.OpLoadConst), 0, 0,
		byte(bytecode.OpLoadConst), 0, 1,
		byte(bytecode.OpInvoke), 0, 2,
		byte(bytecode.OpRetVal),
	}
	mainFn := v.NewNativeFunction("main()", 0, 0, 8, program, mod)
	mod.Functions = []*object.Function{mainFn}
	v.dispatch["main()"] = mainFn
	v.modules["seed"] = mod

	ok, err := v.Invoke("seed", "main()")
	require.NoError(t, err)
	require.True(t, ok)

	top, _ := v.StackTop()
	require.Equal(t, 30.0, top.AsNumber())
}

func TestStackGrowthDoubles(t *testing.T) {
	v := New()
	task := v.NewTask()
	before := len(task.Stack)
	v.ensureStack(task, before+1)
	require.Greater(t, len(task.Stack), before)
}

func TestDebuggerBreakpointTrace(t *testing.T) {
	var out bytes.Buffer
	v := New(WithOutput(&out))
	v.debugger.Enable()
	v.debugger.AddBreakpoint(0)

	code := []byte{byte(bytecode.OpLoadTrue), byte(bytecode.OpPop), byte(bytecode.OpHalt)}
	register(t, v, "main()", nil, 0, 0, code)

	ok, err := v.Invoke("seed", "main()")
	require.NoError(t, err)
	require.True(t, ok)
	require.Contains(t, out.String(), "load_true")
}

package stdlib

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/orbitlang/orbit/pkg/object"
	"github.com/orbitlang/orbit/pkg/value"
)

// fakeContext is a minimal object.ForeignContext that allocates plain Go
// heap values instead of going through a VM's GC — enough to exercise
// each foreign function's logic without needing a full VM (spec.md's
// ABI only requires that ctx.NewString/NewMap produce valid Values; it
// does not require they be reachable from a VM's roots for this test's
// purposes, since nothing here triggers a collection).
type fakeContext struct{}

func (fakeContext) NewString(s string) value.Value { return value.Object(object.NewString(s)) }
func (fakeContext) NewMap() value.Value             { return value.Object(object.NewMap()) }
func (fakeContext) Pin(obj value.Obj)                {}
func (fakeContext) Unpin()                           {}

func TestRegisterBindsEverySymbol(t *testing.T) {
	var got []string
	r := registrarFunc(func(name string, arity int, fn object.ForeignFn) {
		got = append(got, name)
	})
	Register(r)
	require.Contains(t, got, "print")
	require.Contains(t, got, "len")
	require.Contains(t, got, "concat")
	require.Contains(t, got, "upper")
	require.Contains(t, got, "lower")
	require.Contains(t, got, "sha256")
	require.Contains(t, got, "new_map")
	require.Contains(t, got, "map_set")
	require.Contains(t, got, "map_get")
}

type registrarFunc func(name string, arity int, fn object.ForeignFn)

func (f registrarFunc) RegisterForeignSymbol(name string, arity int, fn object.ForeignFn) {
	f(name, arity, fn)
}

func TestLenCountsBytes(t *testing.T) {
	ret, hasRet := foreignLen(fakeContext{}, []value.Value{value.Object(object.NewString("hello"))})
	require.True(t, hasRet)
	require.Equal(t, 5.0, ret.AsNumber())
}

func TestConcat(t *testing.T) {
	ret, hasRet := foreignConcat(fakeContext{}, []value.Value{
		value.Object(object.NewString("foo")),
		value.Object(object.NewString("bar")),
	})
	require.True(t, hasRet)
	require.Equal(t, "foobar", ret.String())
}

func TestUpperLower(t *testing.T) {
	up, _ := foreignUpper(fakeContext{}, []value.Value{value.Object(object.NewString("Orbit"))})
	require.Equal(t, "ORBIT", up.String())

	low, _ := foreignLower(fakeContext{}, []value.Value{value.Object(object.NewString("Orbit"))})
	require.Equal(t, "orbit", low.String())
}

func TestSHA256IsStableAndHex(t *testing.T) {
	a, _ := foreignSHA256(fakeContext{}, []value.Value{value.Object(object.NewString("orbit"))})
	b, _ := foreignSHA256(fakeContext{}, []value.Value{value.Object(object.NewString("orbit"))})
	require.Equal(t, a.String(), b.String())
	require.Len(t, a.String(), 64)
}

func TestPrintHasNoReturnValue(t *testing.T) {
	_, hasRet := foreignPrint(fakeContext{}, []value.Value{value.Object(object.NewString("hi"))})
	require.False(t, hasRet)
}

func TestMapSetAndGet(t *testing.T) {
	m, _ := foreignNewMap(fakeContext{}, nil)
	key := value.Object(object.NewString("k"))

	_, hasRet := foreignMapSet(fakeContext{}, []value.Value{m, key, value.Number(7)})
	require.False(t, hasRet)

	got, hasRet := foreignMapGet(fakeContext{}, []value.Value{m, key})
	require.True(t, hasRet)
	require.Equal(t, 7.0, got.AsNumber())

	missing, hasRet := foreignMapGet(fakeContext{}, []value.Value{m, value.Object(object.NewString("missing"))})
	require.True(t, hasRet)
	require.True(t, missing.IsNil())
}

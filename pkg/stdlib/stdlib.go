// Package stdlib provides a small set of foreign functions an embedder
// can register with a VM — the host-side half of spec.md §6's
// "host registers name → callback mappings", grounded on smog's
// pkg/vm/primitives.go (one Go function per foreign symbol, registered
// under a name the bytecode calls by invoke_sym). Orbit's CORE has no
// front-end compiler to emit calls to these, so Register exists for
// embedders and for this package's own tests, not for the interpreter
// itself.
//
// Unlike smog's primitives (HTTP, AES, ZIP, regex — a large general
// scripting stdlib), Orbit's CORE only needs enough foreign functions to
// exercise the ABI described in spec.md §4.5: a couple of pure
// computations (no return-value variant and a with-return-value
// variant) and a couple that allocate through the VM (ctx.NewString /
// ctx.NewMap), since those are the two shapes every other stdlib
// function will eventually follow.
package stdlib

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/orbitlang/orbit/pkg/object"
	"github.com/orbitlang/orbit/pkg/value"
)

// Registrar is the subset of *vm.VM's API this package needs. Declared
// here, rather than importing pkg/vm directly, so pkg/stdlib stays a
// leaf package any embedder can pull in without coupling it to the VM's
// internals beyond the registration hook it already exposes.
type Registrar interface {
	RegisterForeignSymbol(name string, arity int, fn object.ForeignFn)
}

// Register binds every function in this package to r under its foreign
// symbol name. A module's function table can then declare a foreign
// entry with a matching name (pkg/vm's loader resolves it at load time)
// or an embedder can call vm.RegisterForeign directly with a name from
// this list.
func Register(r Registrar) {
	r.RegisterForeignSymbol("print", 1, foreignPrint)
	r.RegisterForeignSymbol("len", 1, foreignLen)
	r.RegisterForeignSymbol("concat", 2, foreignConcat)
	r.RegisterForeignSymbol("upper", 1, foreignUpper)
	r.RegisterForeignSymbol("lower", 1, foreignLower)
	r.RegisterForeignSymbol("sha256", 1, foreignSHA256)
	r.RegisterForeignSymbol("new_map", 0, foreignNewMap)
	r.RegisterForeignSymbol("map_set", 3, foreignMapSet)
	r.RegisterForeignSymbol("map_get", 2, foreignMapGet)
}

func argString(args []value.Value, i int) *object.String {
	s, ok := args[i].AsObject().(*object.String)
	if !ok {
		panic("stdlib: argument is not a string")
	}
	return s
}

// foreignPrint is the no-return-value shape of the ABI: the stack
// contracts by exactly arity (1), nothing is pushed back.
func foreignPrint(ctx object.ForeignContext, args []value.Value) (value.Value, bool) {
	fmt.Println(argString(args, 0).String())
	return value.Nil, false
}

func foreignLen(ctx object.ForeignContext, args []value.Value) (value.Value, bool) {
	return value.Number(float64(len(argString(args, 0).Bytes))), true
}

func foreignConcat(ctx object.ForeignContext, args []value.Value) (value.Value, bool) {
	a := argString(args, 0).String()
	b := argString(args, 1).String()
	return ctx.NewString(a + b), true
}

func foreignUpper(ctx object.ForeignContext, args []value.Value) (value.Value, bool) {
	return ctx.NewString(strings.ToUpper(argString(args, 0).String())), true
}

func foreignLower(ctx object.ForeignContext, args []value.Value) (value.Value, bool) {
	return ctx.NewString(strings.ToLower(argString(args, 0).String())), true
}

// foreignSHA256 hashes its argument with the standard library's
// crypto/sha256, the same way smog's own sha256Hash primitive does —
// there is no third-party hash implementation in the retrieval pack
// that would serve this better than the standard library already does.
func foreignSHA256(ctx object.ForeignContext, args []value.Value) (value.Value, bool) {
	sum := sha256.Sum256(argString(args, 0).Bytes)
	return ctx.NewString(hex.EncodeToString(sum[:])), true
}

func foreignNewMap(ctx object.ForeignContext, args []value.Value) (value.Value, bool) {
	return ctx.NewMap(), true
}

func foreignMapSet(ctx object.ForeignContext, args []value.Value) (value.Value, bool) {
	m, ok := args[0].AsObject().(*object.Map)
	if !ok {
		panic("stdlib: map_set first argument is not a map")
	}
	m.Set(args[1], args[2])
	return value.Nil, false
}

func foreignMapGet(ctx object.ForeignContext, args []value.Value) (value.Value, bool) {
	m, ok := args[0].AsObject().(*object.Map)
	if !ok {
		panic("stdlib: map_get first argument is not a map")
	}
	v, found := m.Get(args[1])
	if !found {
		return value.Nil, true
	}
	return v, true
}

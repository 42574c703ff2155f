package object

import "github.com/orbitlang/orbit/pkg/value"

// Walk visits every heap object and Value directly reachable as a child
// of o, calling markObj for each child Obj it finds (dereferencing any
// Value children that happen to hold objects). It does not recurse —
// the caller (the garbage collector's mark phase) drives recursion using
// its own worklist or call stack, guarded by each object's mark bit so
// cycles terminate.
//
// This is the one place in the codebase that knows the shape of every
// heap kind; every other package treats objects as opaque value.Obj.
func Walk(o value.Obj, markObj func(value.Obj)) {
	markValue := func(v value.Value) {
		if v.IsObject() {
			markObj(v.AsObject())
		}
	}

	switch v := o.(type) {
	case *String:
		// No children.

	case *Map:
		v.Each(func(key, val value.Value) {
			markValue(key)
			markValue(val)
		})

	case *Instance:
		if v.Class != nil {
			markObj(v.Class)
		}
		for _, f := range v.Fields {
			markValue(f)
		}

	case *Class:
		if v.Ctor != nil {
			markObj(v.Ctor)
		}
		if v.Dtor != nil {
			markObj(v.Dtor)
		}

	case *Function:
		if v.Module != nil {
			markObj(v.Module)
		}

	case *Module:
		for _, c := range v.Constants {
			markValue(c)
		}
		for _, g := range v.Globals {
			markValue(g)
		}
		for _, fn := range v.Functions {
			markObj(fn)
		}
		for _, cl := range v.Classes {
			markObj(cl)
		}

	case *Task:
		for i := 0; i < v.FrameCount; i++ {
			fr := v.Frames[i]
			if fr.Function != nil {
				markObj(fr.Function)
			}
		}
		for i := 0; i < v.SP; i++ {
			markValue(v.Stack[i])
		}
	}
}

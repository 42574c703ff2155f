package object

import "github.com/orbitlang/orbit/pkg/value"

// Class stores a field count, optional constructor/destructor function
// references, and a name. Field order is fixed at class-creation time —
// the loader assigns field indices once, when it builds the class table
// (spec.md §4.4), and they never change afterward.
type Class struct {
	Header
	Name       string
	FieldCount int
	Ctor       *Function // optional
	Dtor       *Function // optional
}

// NewClass allocates a Class. ctor and dtor may be nil.
func NewClass(name string, fieldCount int, ctor, dtor *Function) *Class {
	return &Class{Name: name, FieldCount: fieldCount, Ctor: ctor, Dtor: dtor}
}

// ObjKind implements value.Obj.
func (c *Class) ObjKind() value.ObjectKind { return value.ObjClass }

func (c *Class) String() string { return "class " + c.Name }

// Instance is a pointer to a Class plus a flat array of Values sized by
// the class's field count. Field-index reads/writes are bounds-checked
// by the interpreter against Class.FieldCount before indexing Fields
// (spec.md §3 invariant: "Field-index reads/writes against an instance
// are bounded by its class's field count").
type Instance struct {
	Header
	Class  *Class
	Fields []value.Value
}

// NewInstance allocates an Instance of class, with all fields nil.
func NewInstance(class *Class) *Instance {
	fields := make([]value.Value, class.FieldCount)
	for i := range fields {
		fields[i] = value.Nil
	}
	return &Instance{Class: class, Fields: fields}
}

// ObjKind implements value.Obj.
func (i *Instance) ObjKind() value.ObjectKind { return value.ObjInstance }

func (i *Instance) String() string { return "instance of " + i.Class.Name }

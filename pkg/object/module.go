package object

import "github.com/orbitlang/orbit/pkg/value"

// Module is a loaded .omf container: a constant pool, an array of
// globals, and the set of top-level functions/classes it exports into
// the VM's global dispatch and classes tables (spec.md §3, §4.4).
//
// Path records the resolved filesystem path (or synthetic source
// description, for in-memory modules built by tests) the loader read
// this module from — a detail the spec's data model is silent on but
// that the C implementation this spec was distilled from tracks for
// debugger and error-message purposes (see SPEC_FULL.md's "supplemented
// features").
type Module struct {
	Header
	Name      string
	Path      string
	Constants []value.Value
	Globals   []value.Value
	Functions []*Function // exported top-level functions, in declaration order
	Classes   []*Class    // exported classes, in declaration order
}

// NewModule allocates an empty Module named name.
func NewModule(name, path string) *Module {
	return &Module{Name: name, Path: path}
}

// ObjKind implements value.Obj.
func (m *Module) ObjKind() value.ObjectKind { return value.ObjModule }

func (m *Module) String() string { return "module " + m.Name }

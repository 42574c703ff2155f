package object

import (
	"github.com/google/uuid"
	"github.com/orbitlang/orbit/pkg/value"
)

// Frame is one activation record: the function being executed, the
// instruction pointer (index into Function.Code), and stack-base (the
// index of the first local/parameter on the owning Task's value stack).
type Frame struct {
	Function   *Function
	IP         int
	StackBase  int
}

const (
	initialStackCapacity = 256
	initialFrameCapacity = 64
)

// Task is a growable call stack of frames plus a growable value stack —
// one stand-alone invocation context (spec.md GLOSSARY). The VM runs
// exactly one Task at a time.
//
// ID stamps every Task with a UUID purely for diagnostics, the way the
// rest of the retrieval pack's larger services tag long-lived objects
// for log correlation. String reports it; the debugger's trace lines and
// RuntimeError do not include it.
type Task struct {
	Header
	ID         uuid.UUID
	Frames     []Frame
	FrameCount int
	Stack      []value.Value
	SP         int
}

// NewTask allocates a Task with an initial stack and frame capacity.
func NewTask() *Task {
	stack := make([]value.Value, initialStackCapacity)
	for i := range stack {
		stack[i] = value.Nil
	}
	return &Task{
		ID:     uuid.New(),
		Frames: make([]Frame, initialFrameCapacity),
		Stack:  stack,
	}
}

// ObjKind implements value.Obj.
func (t *Task) ObjKind() value.ObjectKind { return value.ObjTask }

func (t *Task) String() string { return "task " + t.ID.String() }

// Push pushes v onto the value stack. Callers must have already ensured
// capacity (see pkg/vm's stack-growth discipline, spec.md §4.5).
func (t *Task) Push(v value.Value) {
	t.Stack[t.SP] = v
	t.SP++
}

// Pop pops and returns the top value. Callers must ensure SP > 0.
func (t *Task) Pop() value.Value {
	t.SP--
	v := t.Stack[t.SP]
	t.Stack[t.SP] = value.Nil
	return v
}

// Top returns the top-of-stack value without popping it.
func (t *Task) Top() value.Value {
	return t.Stack[t.SP-1]
}

// CurrentFrame returns a pointer to the active frame.
func (t *Task) CurrentFrame() *Frame {
	return &t.Frames[t.FrameCount-1]
}

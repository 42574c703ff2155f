package object

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/orbitlang/orbit/pkg/value"
)

func TestInstanceFieldsInitNil(t *testing.T) {
	class := NewClass("Point", 2, nil, nil)
	inst := NewInstance(class)
	require.Len(t, inst.Fields, 2)
	require.True(t, inst.Fields[0].IsNil())
	require.True(t, inst.Fields[1].IsNil())
}

func TestInstanceFieldReadWrite(t *testing.T) {
	class := NewClass("Point", 2, nil, nil)
	inst := NewInstance(class)
	inst.Fields[0] = value.Number(3)
	inst.Fields[1] = value.Number(4)
	require.Equal(t, 3.0, inst.Fields[0].AsNumber())
	require.Equal(t, 4.0, inst.Fields[1].AsNumber())
}

func TestWalkVisitsInstanceClassAndFields(t *testing.T) {
	class := NewClass("Point", 1, nil, nil)
	inst := NewInstance(class)
	held := NewString("payload")
	inst.Fields[0] = value.Object(held)

	var visited []value.Obj
	Walk(inst, func(o value.Obj) { visited = append(visited, o) })

	require.Contains(t, visited, value.Obj(class))
	require.Contains(t, visited, value.Obj(held))
}

package object

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/orbitlang/orbit/pkg/value"
)

func TestStringEqualByContent(t *testing.T) {
	a := NewString("hello")
	b := NewString("hello")
	require.NotSame(t, a, b)
	require.True(t, value.Equal(value.Object(a), value.Object(b)))
	require.Equal(t, a.HashObj(), b.HashObj())
}

func TestStringNotEqualDifferentContent(t *testing.T) {
	a := NewString("hello")
	b := NewString("world")
	require.False(t, value.Equal(value.Object(a), value.Object(b)))
}

func TestStringHashMatchesFNV1a(t *testing.T) {
	s := NewString("abc")
	require.Equal(t, value.HashBytes([]byte("abc")), s.Hash)
}

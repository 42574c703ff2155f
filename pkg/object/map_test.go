package object

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/orbitlang/orbit/pkg/value"
)

func TestMapSetGet(t *testing.T) {
	m := NewMap()
	inserted := m.Set(value.Number(1), value.Number(100))
	require.True(t, inserted)
	require.Equal(t, 1, m.Len())

	got, ok := m.Get(value.Number(1))
	require.True(t, ok)
	require.Equal(t, 100.0, got.AsNumber())

	overwritten := m.Set(value.Number(1), value.Number(200))
	require.False(t, overwritten)
	require.Equal(t, 1, m.Len())
}

func TestMapStringKeysByContent(t *testing.T) {
	m := NewMap()
	m.Set(value.Object(NewString("hello")), value.Number(1))

	got, ok := m.Get(value.Object(NewString("hello")))
	require.True(t, ok, "distinct String objects with equal content must hash and compare equal as map keys")
	require.Equal(t, 1.0, got.AsNumber())
}

func TestMapGrowsAndPreservesEntries(t *testing.T) {
	m := NewMap()
	const n = 100
	for i := 0; i < n; i++ {
		m.Set(value.Number(float64(i)), value.Number(float64(i*i)))
	}
	require.Equal(t, n, m.Len())
	for i := 0; i < n; i++ {
		got, ok := m.Get(value.Number(float64(i)))
		require.True(t, ok)
		require.Equal(t, float64(i*i), got.AsNumber())
	}
}

func TestMapDelete(t *testing.T) {
	m := NewMap()
	m.Set(value.Number(1), value.Number(1))
	m.Set(value.Number(2), value.Number(2))
	m.Set(value.Number(3), value.Number(3))

	require.True(t, m.Delete(value.Number(2)))
	require.False(t, m.Delete(value.Number(2)))

	_, ok := m.Get(value.Number(2))
	require.False(t, ok)

	// Deleting a slot must not break the probe chain for keys that
	// collided into it.
	got, ok := m.Get(value.Number(1))
	require.True(t, ok)
	require.Equal(t, 1.0, got.AsNumber())
	got, ok = m.Get(value.Number(3))
	require.True(t, ok)
	require.Equal(t, 3.0, got.AsNumber())
}

func TestMapEach(t *testing.T) {
	m := NewMap()
	m.Set(value.Number(1), value.Number(10))
	m.Set(value.Number(2), value.Number(20))

	seen := map[float64]float64{}
	m.Each(func(k, v value.Value) {
		seen[k.AsNumber()] = v.AsNumber()
	})
	require.Equal(t, map[float64]float64{1: 10, 2: 20}, seen)
}

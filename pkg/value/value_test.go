package value

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTruthy(t *testing.T) {
	cases := []struct {
		name string
		v    Value
		want bool
	}{
		{"nil", Nil, false},
		{"false", False, false},
		{"true", True, true},
		{"zero", Number(0), true},
		{"number", Number(3.14), true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			require.Equal(t, c.want, c.v.Truthy())
		})
	}
}

func TestEqualByTagThenContent(t *testing.T) {
	require.True(t, Equal(Number(1), Number(1)))
	require.False(t, Equal(Number(1), Number(2)))
	require.False(t, Equal(Number(0), False), "different tags never compare equal")
	require.True(t, Equal(Nil, Nil))
	require.True(t, Equal(True, True))
}

func TestHashNumberDeterministic(t *testing.T) {
	require.Equal(t, HashNumber(1.5), HashNumber(1.5))
	require.Equal(t, HashNumber(math.NaN()), HashNumber(math.NaN()))
	require.NotEqual(t, HashNumber(1.5), HashNumber(2.5))
}

func TestHashBytesFNV1a(t *testing.T) {
	require.Equal(t, HashBytes([]byte("abc")), HashBytes([]byte("abc")))
	require.NotEqual(t, HashBytes([]byte("abc")), HashBytes([]byte("abd")))
}

func TestObjectRejectsNil(t *testing.T) {
	require.Panics(t, func() {
		Object(nil)
	})
}

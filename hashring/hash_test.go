package hashring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultKeyHasherDeterministic(t *testing.T) {
	h := DefaultKeyHasher[string]()
	a := h("k0")
	b := h("k0")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, h("k1"))
}

func TestDefaultKeyHasherIntegers(t *testing.T) {
	h := DefaultKeyHasher[int]()
	assert.NotEqual(t, h(1), h(2))
	assert.Equal(t, h(42), h(42))
}

func TestDefaultKeyHasherUnsupportedPanics(t *testing.T) {
	type weird struct{ X int }
	h := DefaultKeyHasher[weird]()
	require.Panics(t, func() { h(weird{1}) })
}

func TestDefaultRingHasherDeterministic(t *testing.T) {
	h := DefaultRingHasher()
	assert.Equal(t, h("shard-1#000"), h("shard-1#000"))
	assert.NotEqual(t, h("shard-1#000"), h("shard-1#001"))
}

func TestNextPow2(t *testing.T) {
	cases := map[uint64]uint64{0: 1, 1: 1, 2: 2, 3: 4, 5: 8, 16: 16, 17: 32}
	for in, want := range cases {
		assert.Equal(t, want, NextPow2(in), "in=%d", in)
	}
}

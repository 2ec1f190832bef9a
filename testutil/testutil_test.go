package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReset(t *testing.T) {
	rng := NewRNG(4711)

	first := []int{rng.Intn(100), rng.Intn(100), rng.Intn(100)}
	rng.Reset()
	again := []int{rng.Intn(100), rng.Intn(100), rng.Intn(100)}

	assert.Equal(t, first, again)
	assert.Equal(t, int64(4711), rng.Seed())
}

func TestChoose(t *testing.T) {
	rng := NewRNG(4711)

	assert.Equal(t, -1, rng.Choose(nil))
	assert.Equal(t, -1, rng.Choose([]int{0, -3}))

	counts := make([]int, 3)
	for range 3000 {
		counts[rng.Choose([]int{0, 1, 3})]++
	}
	assert.Zero(t, counts[0])
	assert.Greater(t, counts[2], counts[1])
}

func TestZipf(t *testing.T) {
	rng := NewRNG(4711)

	assert.Equal(t, 0, rng.Zipf(1, 1.5))

	counts := make([]int, 10)
	for range 2000 {
		v := rng.Zipf(10, 1.5)
		assert.GreaterOrEqual(t, v, 0)
		assert.Less(t, v, 10)
		counts[v]++
	}
	assert.Greater(t, counts[0], counts[9])
}

package momentum

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func assetList(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = string(rune('A' + i))
	}
	return out
}

func TestRotationCursors_BelowThresholdReturnsFullList(t *testing.T) {
	r := newRotationCursors()
	assets := assetList(10)
	batch := r.batch(1, assets, 30, 25)
	assert.Equal(t, assets, batch)
}

func TestRotationCursors_AdvancesAndWraps(t *testing.T) {
	r := newRotationCursors()
	assets := assetList(40)

	first := r.batch(1, assets, 30, 25)
	assert.Len(t, first, 25)
	assert.Equal(t, assets[0:25], first)

	second := r.batch(1, assets, 30, 25)
	assert.Len(t, second, 25)
	// Window starts at 25, wraps after index 39 back to 0..9.
	assert.Equal(t, assets[25:40], second[:15])
	assert.Equal(t, assets[0:10], second[15:])
}

func TestRotationCursors_IndependentPerStrategy(t *testing.T) {
	r := newRotationCursors()
	assets := assetList(40)

	r.batch(1, assets, 30, 25)
	firstBatchForTwo := r.batch(2, assets, 30, 25)
	assert.Equal(t, assets[0:25], firstBatchForTwo)
}

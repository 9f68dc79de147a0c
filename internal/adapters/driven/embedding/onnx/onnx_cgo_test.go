//go:build cgo

package onnx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMeanPool(t *testing.T) {
	// batch 2, seq 2, hidden 2; second row has one padded token.
	states := []float32{
		1, 0, 0, 1,
		3, 4, 100, 100,
	}
	mask := []int64{1, 1, 1, 0}

	out := meanPool(states, mask, 2, 2, 2)

	assert.InDelta(t, 0.7071, out[0][0], 1e-3)
	assert.InDelta(t, 0.7071, out[0][1], 1e-3)
	assert.InDelta(t, 0.6, out[1][0], 1e-6)
	assert.InDelta(t, 0.8, out[1][1], 1e-6)
}

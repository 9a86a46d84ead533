package distance

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSpace(t *testing.T) {
	tests := []struct {
		name       string
		want       Space
		normalized bool
	}{
		{"l2", SpaceL2, false},
		{"ip", SpaceIP, false},
		{"cosine", SpaceCosine, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSpace(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.name, got.String())
			assert.Equal(t, tt.normalized, got.Normalized())
			assert.True(t, got.Valid())
		})
	}

	_, err := ParseSpace("hamming")
	var unknown *ErrUnknownSpace
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "hamming", unknown.Name)
	assert.False(t, Space(42).Valid())
}

func TestSquaredL2(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float32
	}{
		{"Simple", []float32{1, 2, 3}, []float32{4, 5, 6}, 27},
		{"Identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 0},
		{"Mixed", []float32{1, -1}, []float32{-1, 1}, 8},
		{"Empty", []float32{}, []float32{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, SquaredL2(tt.a, tt.b), 1e-4)
		})
	}
}

func TestInnerProduct(t *testing.T) {
	assert.InDelta(t, 1-32, InnerProduct([]float32{1, 2, 3}, []float32{4, 5, 6}), 1e-4)
	assert.InDelta(t, 0, InnerProduct([]float32{1, 0}, []float32{1, 0}), 1e-6)
	assert.InDelta(t, 1, InnerProduct([]float32{1, 0}, []float32{0, 1}), 1e-6)
}

func TestSpaceFunc(t *testing.T) {
	a, b := []float32{1, 0}, []float32{0, 1}
	assert.InDelta(t, 2, SpaceL2.Func()(a, b), 1e-6)
	assert.InDelta(t, 1, SpaceIP.Func()(a, b), 1e-6)
	assert.InDelta(t, 1, SpaceCosine.Func()(a, b), 1e-6)
}

func TestNormalize(t *testing.T) {
	src := []float32{3, 4, 0, 0}
	dst := make([]float32, len(src))

	out := Normalize(dst, src)

	assert.InDeltaSlice(t, []float32{0.6, 0.8, 0, 0}, out, 1e-6)
	assert.InDelta(t, 1, Norm(out), 1e-6)
	// Input is untouched.
	assert.Equal(t, []float32{3, 4, 0, 0}, src)
}

func TestNormalizeZeroVector(t *testing.T) {
	src := make([]float32, 8)
	dst := make([]float32, 8)
	for i := range dst {
		dst[i] = 42
	}

	out := Normalize(dst, src)
	for _, v := range out {
		assert.False(t, math.IsNaN(float64(v)))
		assert.Zero(t, v)
	}
}

func TestNormalizeSelfDistanceIsZero(t *testing.T) {
	src := []float32{0.3, -1.2, 7.5, 2.25, 0.001}
	dst := make([]float32, len(src))
	Normalize(dst, src)

	assert.InDelta(t, 0, InnerProduct(dst, dst), 1e-5)
}

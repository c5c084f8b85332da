package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVector2D_Operations(t *testing.T) {
	v1 := Vector2D{X: 3, Y: 4}
	v2 := Vector2D{X: 1, Y: 2}

	t.Run("Add", func(t *testing.T) {
		assert.Equal(t, Vector2D{X: 4, Y: 6}, v1.Add(v2))
	})

	t.Run("Sub", func(t *testing.T) {
		assert.Equal(t, Vector2D{X: 2, Y: 2}, v1.Sub(v2))
	})

	t.Run("Mul", func(t *testing.T) {
		assert.Equal(t, Vector2D{X: 6, Y: 8}, v1.Mul(2.0))
	})

	t.Run("Dot", func(t *testing.T) {
		// 3*1 + 4*2 = 11
		assert.Equal(t, 11.0, v1.Dot(v2))
	})

	t.Run("Cross", func(t *testing.T) {
		// 3*2 - 4*1 = 2
		assert.Equal(t, 2.0, v1.Cross(v2))
	})

	t.Run("Mag", func(t *testing.T) {
		assert.Equal(t, 25.0, v1.MagSq())
		assert.Equal(t, 5.0, v1.Mag())
	})

	t.Run("Dist", func(t *testing.T) {
		assert.InDelta(t, math.Sqrt(8.0), v1.Dist(v2), 1e-9)
	})

	t.Run("Perp", func(t *testing.T) {
		assert.Equal(t, Vector2D{X: -4, Y: 3}, v1.Perp())
		assert.Equal(t, 0.0, v1.Dot(v1.Perp()))
	})
}

func TestVector2D_Normalize(t *testing.T) {
	t.Run("Standard", func(t *testing.T) {
		norm := Vector2D{X: 3, Y: 4}.Normalize()
		assert.InDelta(t, 1.0, norm.Mag(), 1e-9)
		assert.InDelta(t, 0.6, norm.X, 1e-9)
		assert.InDelta(t, 0.8, norm.Y, 1e-9)
	})

	t.Run("Zero", func(t *testing.T) {
		assert.Equal(t, Vector2D{}, Vector2D{}.Normalize())
		assert.True(t, Vector2D{X: 1e-12}.Normalize().IsZero())
	})
}

func TestVector2D_Limit(t *testing.T) {
	v := Vector2D{X: 30, Y: 40}
	limited := v.Limit(5)
	assert.InDelta(t, 5.0, limited.Mag(), 1e-9)
	assert.InDelta(t, 3.0, limited.X, 1e-9)

	short := Vector2D{X: 1, Y: 1}
	assert.Equal(t, short, short.Limit(5))
}

func TestFromHeading(t *testing.T) {
	tests := []struct {
		deg  float64
		want Vector2D
	}{
		{0, Vector2D{X: 1, Y: 0}},
		{90, Vector2D{X: 0, Y: 1}},
		{180, Vector2D{X: -1, Y: 0}},
		{270, Vector2D{X: 0, Y: -1}},
		{45, Vector2D{X: math.Sqrt2 / 2, Y: math.Sqrt2 / 2}},
	}
	for _, tt := range tests {
		got := FromHeading(tt.deg)
		assert.InDelta(t, tt.want.X, got.X, 1e-9, "deg=%v", tt.deg)
		assert.InDelta(t, tt.want.Y, got.Y, 1e-9, "deg=%v", tt.deg)
		assert.InDelta(t, NormalizeDegrees(tt.deg), got.Heading(), 1e-9)
	}
}

func TestVector2D_IsFinite(t *testing.T) {
	assert.True(t, Vec(1, 2).IsFinite())
	assert.False(t, Vec(math.NaN(), 0).IsFinite())
	assert.False(t, Vec(0, math.Inf(-1)).IsFinite())
}

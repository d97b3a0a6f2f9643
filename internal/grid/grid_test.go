package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_RejectsNonPositiveSpacing(t *testing.T) {
	_, err := Generate(ContiguousUS, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "spacing must be positive")

	_, err = Generate(ContiguousUS, -10)
	require.Error(t, err)
}

func TestGenerate_RejectsInvertedBounds(t *testing.T) {
	_, err := Generate(Bounds{LatMin: 40, LatMax: 30, LngMin: -80, LngMax: -70}, 25)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inverted bounds")
}

func TestGenerate_PointsStayInsideBounds(t *testing.T) {
	b := Bounds{LatMin: 30.0, LatMax: 35.0, LngMin: -90.0, LngMax: -85.0}

	for _, spacing := range []float64{10, 25, 50, 120} {
		points, err := Generate(b, spacing)
		require.NoError(t, err)
		require.NotEmpty(t, points)

		for _, p := range points {
			assert.GreaterOrEqual(t, p.Lat, b.LatMin)
			assert.LessOrEqual(t, p.Lat, b.LatMax)
			assert.GreaterOrEqual(t, p.Lng, b.LngMin)
			assert.LessOrEqual(t, p.Lng, b.LngMax)
		}
	}
}

func TestGenerate_DenserSpacingNeverDropsPoints(t *testing.T) {
	b := Bounds{LatMin: 30.0, LatMax: 35.0, LngMin: -90.0, LngMax: -85.0}

	prev := 0
	for _, spacing := range []float64{100, 50, 25, 10} {
		points, err := Generate(b, spacing)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(points), prev, "spacing %v", spacing)
		prev = len(points)
	}
}

func TestGenerate_RowMajorOrder(t *testing.T) {
	points, err := Generate(Bounds{LatMin: 0, LatMax: 1, LngMin: 0, LngMax: 2}, 50)
	require.NoError(t, err)

	// First row shares the starting latitude and walks longitude ascending.
	require.Greater(t, len(points), 2)
	assert.Equal(t, points[0].Lat, points[1].Lat)
	assert.Less(t, points[0].Lng, points[1].Lng)
	assert.Equal(t, Point{Lat: 0, Lng: 0}, points[0])
}

func TestGenerate_Deterministic(t *testing.T) {
	a, err := Generate(ContiguousUS, 50)
	require.NoError(t, err)
	b, err := Generate(ContiguousUS, 50)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestGenerate_ContiguousUSAt50Miles(t *testing.T) {
	points, err := Generate(ContiguousUS, 50)
	require.NoError(t, err)

	// ~35 latitude rows x ~64 longitude columns.
	assert.GreaterOrEqual(t, len(points), 1500)
	assert.LessOrEqual(t, len(points), 3500)
}

func TestGenerate_RoundsToFourDecimals(t *testing.T) {
	points, err := Generate(Bounds{LatMin: 24.5, LatMax: 25.3, LngMin: -125.0, LngMax: -124.0}, 50)
	require.NoError(t, err)

	for _, p := range points {
		assert.InDelta(t, p.Lat, round4(p.Lat), 1e-9)
		assert.InDelta(t, p.Lng, round4(p.Lng), 1e-9)
	}
}

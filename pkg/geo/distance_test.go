package geo

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-polyline"
)

func TestCalculateHaversineDistance(t *testing.T) {
	// Monas to Bundaran HI, roughly 2.2 km
	distKm := CalculateHaversineDistance(-6.175392, 106.827153, -6.195041, 106.823001)
	require.InDelta(t, 2.23, distKm, 0.1)

	require.Equal(t, 0.0, CalculateHaversineDistance(-6.2, 106.8, -6.2, 106.8))
	require.InDelta(t, 111194, HaversineMeters(0, 0, 1, 0), 200)
}

func TestGetDestinationPoint(t *testing.T) {
	lat, lon := GetDestinationPoint(-6.2, 106.8, 90, 5.0)
	require.InDelta(t, 5.0, CalculateHaversineDistance(-6.2, 106.8, lat, lon), 0.01)
	require.InDelta(t, -6.2, lat, 0.01)
	require.Greater(t, lon, 106.8)

	// diagonal padding used by the spatial index: each axis moves dist/sqrt(2)
	lat, lon = GetDestinationPoint(0, 0, 45, 1.0)
	require.InDelta(t, CalculateHaversineDistance(0, 0, lat, 0), 1.0/1.4142, 0.01)
	require.InDelta(t, CalculateHaversineDistance(0, 0, 0, lon), 1.0/1.4142, 0.01)

	// longitude stays normalized across the antimeridian
	_, lon = GetDestinationPoint(0, 179.99, 90, 5.0)
	require.LessOrEqual(t, lon, 180.0)
	require.GreaterOrEqual(t, lon, -180.0)
}

func TestProjectPointToLineCoord(t *testing.T) {
	a := NewCoordinate(0, 0)
	b := NewCoordinate(0, 0.1)

	proj := ProjectPointToLineCoord(a, b, NewCoordinate(0.01, 0.05))
	require.InDelta(t, 0.0, proj.Lat, 1e-6)
	require.InDelta(t, 0.05, proj.Lon, 1e-4)

	// beyond the segment end the projection clamps to the endpoint
	proj = ProjectPointToLineCoord(a, b, NewCoordinate(0, 0.2))
	require.InDelta(t, b.Lat, proj.Lat, 1e-6)
	require.InDelta(t, b.Lon, proj.Lon, 1e-6)

	dist := PointLinePerpendicularDistance(a, b, NewCoordinate(0.01, 0.05))
	require.InDelta(t, HaversineMeters(0.01, 0.05, 0, 0.05), dist, 1.0)
}

func TestPolylineFromCoords(t *testing.T) {
	coords := NewCoordinates(
		[]float64{-6.175392, -6.195041},
		[]float64{106.827153, 106.823001},
	)
	encoded := PolylineFromCoords(coords)
	require.NotEmpty(t, encoded)

	decoded, _, err := polyline.DecodeCoords([]byte(encoded))
	require.NoError(t, err)
	require.Len(t, decoded, 2)
	require.InDelta(t, coords[0].Lat, decoded[0][0], 1e-5)
	require.InDelta(t, coords[1].Lon, decoded[1][1], 1e-5)
}

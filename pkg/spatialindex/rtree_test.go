package spatialindex

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tripweaver/tripweaver/pkg"
	"github.com/tripweaver/tripweaver/pkg/datastructure"
	"github.com/tripweaver/tripweaver/pkg/geo"
	"github.com/tripweaver/tripweaver/pkg/logger"
)

// two walk segments along the equator plus one transit edge that must stay
// out of the index
func indexFixture(t *testing.T) (*Rtree, *datastructure.Graph) {
	t.Helper()

	g := datastructure.NewGraph()
	n0 := g.AddNode(datastructure.NewNode(0, 0, datastructure.STREET_NODE, -1, datastructure.INVALID_NODE_ID))
	n1 := g.AddNode(datastructure.NewNode(0, 0.01, datastructure.STREET_NODE, -1, datastructure.INVALID_NODE_ID))
	n2 := g.AddNode(datastructure.NewNode(0, 0.02, datastructure.STREET_NODE, -1, datastructure.INVALID_NODE_ID))

	g.AddEdgePair(n0, n1, pkg.HIGHWAY, 800, geo.HaversineMeters(0, 0, 0, 0.01))
	g.AddEdgePair(n1, n2, pkg.HIGHWAY, 800, geo.HaversineMeters(0, 0.01, 0, 0.02))
	g.AddEdge(n0, n2, pkg.TRANSFER, 120, 0)

	rt := NewRtree(g)
	rt.Build(0.5, logger.NewNop())
	return rt, g
}

func TestSearchWithinRadiusIndexesForwardWalkEdgesOnly(t *testing.T) {
	rt, _ := indexFixture(t)

	ids := rt.SearchWithinRadius(0, 0.01, 5.0)
	require.ElementsMatch(t,
		[]datastructure.Index{0, 2}, // one entry per bidirectional pair
		ids)
}

func TestSnapToWalkEdge(t *testing.T) {
	rt, _ := indexFixture(t)

	snap, ok := rt.SnapToWalkEdge(0.0005, 0.005, 1.0)
	require.True(t, ok)
	require.Equal(t, datastructure.Index(0), snap.EdgeID)
	require.InDelta(t, 0, snap.Projection.Lat, 1e-4)
	require.InDelta(t, 0.005, snap.Projection.Lon, 1e-4)
	require.InDelta(t,
		geo.HaversineMeters(0, 0, 0, 0.005), snap.DistToFrom, 2.0)
	require.InDelta(t,
		geo.HaversineMeters(0, 0.005, 0, 0.01), snap.DistToTo, 2.0)
}

func TestSnapPrefersNearestEdge(t *testing.T) {
	rt, _ := indexFixture(t)

	snap, ok := rt.SnapToWalkEdge(0.0005, 0.015, 1.0)
	require.True(t, ok)
	require.Equal(t, datastructure.Index(2), snap.EdgeID)
}

func TestSnapMisses(t *testing.T) {
	rt, _ := indexFixture(t)

	// nothing indexed anywhere near
	_, ok := rt.SnapToWalkEdge(1.0, 1.0, 1.0)
	require.False(t, ok)

	// candidate boxes overlap but the projection lands beyond the radius
	// (0.0092 deg of latitude is roughly 1023 m)
	_, ok = rt.SnapToWalkEdge(0.0092, 0.005, 1.0)
	require.False(t, ok)
}

package routing

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tripweaver/tripweaver/pkg"
	"github.com/tripweaver/tripweaver/pkg/datastructure"
	"github.com/tripweaver/tripweaver/pkg/geo"
	"github.com/tripweaver/tripweaver/pkg/spatialindex"
)

func TestEndpointNodesLiveAboveBaseRange(t *testing.T) {
	g, _ := walkGraph(100)
	qg := NewQueryGraph(g)
	base := datastructure.Index(g.NumberOfNodes())

	origin := qg.EndpointNode(0, geo.NewCoordinate(1, 2))
	dest := qg.EndpointNode(1, geo.NewCoordinate(3, 4))

	require.Equal(t, base+datastructure.Index(pkg.VIRTUAL_NODE_ID_GAP), origin)
	require.Equal(t, origin+1, dest)
	require.True(t, qg.IsVirtual(origin))
	require.False(t, qg.IsVirtual(base-1))

	require.Equal(t, geo.NewCoordinate(1, 2), qg.NodeCoordinate(origin))
	// base nodes resolve through the graph
	require.Equal(t, geo.NewCoordinate(0, 0.01), qg.NodeCoordinate(base-1))
}

func TestBindCoordinateSplitsSnappedEdge(t *testing.T) {
	g := datastructure.NewGraph()
	u := g.AddNode(datastructure.NewNode(0, 0, datastructure.STREET_NODE, -1, datastructure.INVALID_NODE_ID))
	v := g.AddNode(datastructure.NewNode(0, 0.01, datastructure.STREET_NODE, -1, datastructure.INVALID_NODE_ID))
	fw, _ := g.AddEdgePair(u, v, pkg.HIGHWAY, 800, 1113)

	qg := NewQueryGraph(g)
	at := geo.NewCoordinate(0.0005, 0.004)
	endpoint := qg.EndpointNode(0, at)

	snap := spatialindex.Snap{
		EdgeID:     fw.GetID(),
		Projection: geo.NewCoordinate(0, 0.004),
		DistToFrom: 445,
		DistToTo:   668,
	}
	walkSpeedMS := 5.0 / 3.6
	split := qg.BindCoordinate(endpoint, at, snap, walkSpeedMS)

	// the split node follows the reserved endpoint band
	require.Equal(t, datastructure.Index(g.NumberOfNodes()+pkg.VIRTUAL_NODE_ID_GAP+2), split)
	require.Equal(t, snap.Projection, qg.NodeCoordinate(split))

	// both split halves plus the endpoint stub, each in both directions
	require.Len(t, qg.OutVirtual(split), 3)
	require.Len(t, qg.OutVirtual(endpoint), 1)
	require.Len(t, qg.InVirtual(endpoint), 1)

	var toU, toV, toEndpoint *VirtualEdge
	for _, id := range qg.OutVirtual(split) {
		ve := qg.VirtualEdge(id)
		switch ve.To {
		case u:
			toU = ve
		case v:
			toV = ve
		case endpoint:
			toEndpoint = ve
		}
	}
	require.NotNil(t, toU)
	require.NotNil(t, toV)
	require.NotNil(t, toEndpoint)

	require.Equal(t, pkg.HIGHWAY, toU.Type)
	require.Equal(t, 445.0, toU.Distance)
	require.Equal(t, int32(445/walkSpeedMS+0.5), toU.Time)
	require.Equal(t, 668.0, toV.Distance)
	require.Len(t, toU.Geometry, 2)

	stub := geo.HaversineMeters(at.Lat, at.Lon, snap.Projection.Lat, snap.Projection.Lon)
	require.InDelta(t, stub, toEndpoint.Distance, 1e-9)
}

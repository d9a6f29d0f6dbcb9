package datastructure

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tripweaver/tripweaver/pkg"
)

func TestGraphFileRoundtrip(t *testing.T) {
	g := NewGraph()
	epoch := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC).Unix()
	g.SetEpoch(epoch, 2)

	street := g.AddNode(NewNode(-6.2, 106.8, STREET_NODE, -1, 0))
	station := g.AddNode(NewNode(-6.2, 106.8, STATION_NODE, -1, 0))
	dep := g.AddNode(NewNode(-6.2, 106.8, DEPARTURE_TIMELINE_NODE, 29100, 0))
	g.SetStationNode("A", station)

	g.AddEdgePair(street, station, pkg.STOP_NODE_MARKER, 0, 0)
	board := g.AddEdge(dep, street, pkg.BOARD, 1, 0)
	board.SetTrip(7, 2)
	v := NewBitset(2)
	v.Set(1)
	board.SetValidity(v)
	g.AddEdge(street, dep, pkg.HIGHWAY, 0, 123.456)

	file := filepath.Join(t.TempDir(), "graph.bz2")
	require.NoError(t, g.WriteGraph(file))

	r, err := ReadGraph(file)
	require.NoError(t, err)

	require.Equal(t, g.NumberOfNodes(), r.NumberOfNodes())
	require.Equal(t, g.NumberOfEdges(), r.NumberOfEdges())
	require.Equal(t, epoch, r.GetEpoch())
	require.Equal(t, 2, r.GetNumServiceDays())

	n := r.GetNode(dep)
	require.Equal(t, DEPARTURE_TIMELINE_NODE, n.GetKind())
	require.Equal(t, int32(29100), n.GetAnchor())
	require.InDelta(t, -6.2, n.GetLat(), 1e-12)
	require.InDelta(t, 106.8, n.GetLon(), 1e-12)

	st, ok := r.GetStationNode("A")
	require.True(t, ok)
	require.Equal(t, station, st)

	rb := r.GetEdge(board.GetID())
	require.Equal(t, pkg.BOARD, rb.GetType())
	require.Equal(t, int32(1), rb.GetTime())
	require.Equal(t, Index(7), rb.GetTripIdx())
	require.Equal(t, int32(2), rb.GetStopSeq())
	require.NotNil(t, rb.GetValidity())
	require.False(t, rb.GetValidity().Get(0))
	require.True(t, rb.GetValidity().Get(1))

	// edge pair keeps its reverse linkage
	fw := r.GetEdge(0)
	require.Equal(t, Index(1), fw.GetReverseEdge())
	require.Equal(t, Index(0), r.GetEdge(1).GetReverseEdge())

	hw := r.GetEdge(3)
	require.Equal(t, pkg.HIGHWAY, hw.GetType())
	require.InDelta(t, 123.456, hw.GetDistance(), 1e-12)
	require.Equal(t, INVALID_EDGE_ID, hw.GetReverseEdge())
	require.Nil(t, hw.GetValidity())
}

func TestReadGraphMissingFile(t *testing.T) {
	_, err := ReadGraph(filepath.Join(t.TempDir(), "nope.bz2"))
	require.Error(t, err)
}

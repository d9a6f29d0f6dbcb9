package gtfs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tripweaver/tripweaver/pkg"
	"github.com/tripweaver/tripweaver/pkg/datastructure"
	"github.com/tripweaver/tripweaver/pkg/logger"
)

func hms(h, m int) int32 {
	return int32(h*3600 + m*60)
}

func builderFixture(t *testing.T) (*datastructure.Graph, *Feed) {
	t.Helper()

	feed := NewFeed()
	feed.AddStop(Stop{ID: "A", Name: "Alpha", Lat: 0, Lon: 0})
	feed.AddStop(Stop{ID: "B", Name: "Bravo", Lat: 0, Lon: 0.05})
	feed.AddStop(Stop{ID: "C", Name: "Charlie", Lat: 0, Lon: 0.10})

	feed.AddRoute(Route{ID: "R1", ShortName: "1"})
	feed.AddRoute(Route{ID: "R2", ShortName: "2"})

	day := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	feed.AddService(&Service{
		ID:        "S",
		Weekdays:  [7]bool{true, true, true, true, true, true, true},
		StartDate: day,
		EndDate:   day,
		Added:     map[string]bool{},
		Removed:   map[string]bool{},
	})

	feed.AddTrip(Trip{ID: "T1", RouteID: "R1", ServiceID: "S"}, []StopTime{
		{StopSeq: 1, StopID: "A", Arrival: hms(8, 5), Departure: hms(8, 5)},
		{StopSeq: 2, StopID: "B", Arrival: hms(8, 15), Departure: hms(8, 15)},
	})
	feed.AddTrip(Trip{ID: "T2", RouteID: "R2", ServiceID: "S"}, []StopTime{
		{StopSeq: 1, StopID: "B", Arrival: hms(8, 30), Departure: hms(8, 30)},
		{StopSeq: 2, StopID: "C", Arrival: hms(8, 45), Departure: hms(8, 45)},
	})
	feed.AddTrip(Trip{ID: "T3", RouteID: "R1", ServiceID: "S"}, []StopTime{
		{StopSeq: 1, StopID: "A", Arrival: hms(8, 35), Departure: hms(8, 35)},
		{StopSeq: 2, StopID: "B", Arrival: hms(8, 45), Departure: hms(8, 45)},
	})

	g := datastructure.NewGraph()
	NewGraphBuilder(feed, g, logger.NewNop()).Build()
	return g, feed
}

func findEdges(g *datastructure.Graph, pred func(e *datastructure.Edge) bool) []*datastructure.Edge {
	var out []*datastructure.Edge
	for i := 0; i < g.NumberOfEdges(); i++ {
		if e := g.GetEdge(datastructure.Index(i)); pred(e) {
			out = append(out, e)
		}
	}
	return out
}

func TestStopNodeWiring(t *testing.T) {
	g, feed := builderFixture(t)

	for _, stop := range feed.Stops {
		station, ok := g.GetStationNode(stop.ID)
		require.True(t, ok, "station node of %s", stop.ID)
		require.Equal(t, datastructure.STATION_NODE, g.GetNode(station).GetKind())

		var sawEnter, sawStreet bool
		g.ForOutEdges(station, func(e *datastructure.Edge) {
			switch e.GetType() {
			case pkg.STOP_ENTER_NODE:
				require.Equal(t, datastructure.PT_ENTER_NODE, g.GetNode(e.GetTo()).GetKind())
				sawEnter = true
			case pkg.STOP_NODE_MARKER:
				require.Equal(t, datastructure.STREET_NODE, g.GetNode(e.GetTo()).GetKind())
				require.NotEqual(t, datastructure.INVALID_EDGE_ID, e.GetReverseEdge())
				sawStreet = true
			}
		})
		require.True(t, sawEnter, "station %s reaches its pt enter node", stop.ID)
		require.True(t, sawStreet, "station %s reaches its street node", stop.ID)
	}
}

func TestBoardEdgeCarriesTripAndValidity(t *testing.T) {
	g, feed := builderFixture(t)

	t1, ok := feed.TripIndex("T1")
	require.True(t, ok)

	boards := findEdges(g, func(e *datastructure.Edge) bool {
		return e.GetType() == pkg.BOARD && e.GetTripIdx() == datastructure.Index(t1)
	})
	require.Len(t, boards, 1) // only the first stop of T1 is boardable

	board := boards[0]
	require.Equal(t, int32(1), board.GetStopSeq())
	require.Equal(t, int32(0), board.GetTime()) // no service-day shift
	require.Equal(t, hms(8, 5), g.GetNode(board.GetFrom()).GetAnchor())
	require.Equal(t, datastructure.TRIP_DEPARTURE_NODE, g.GetNode(board.GetTo()).GetKind())

	// single-day service window: day 0 runs, the padding day does not
	v := board.GetValidity()
	require.NotNil(t, v)
	require.True(t, v.Get(0))
	require.False(t, v.Get(1))
}

func TestBoardEdgePastMidnightShiftsValidity(t *testing.T) {
	feed := NewFeed()
	feed.AddStop(Stop{ID: "A", Lat: 0, Lon: 0})
	feed.AddStop(Stop{ID: "B", Lat: 0, Lon: 0.05})

	day := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	feed.AddService(&Service{
		ID:        "S",
		Weekdays:  [7]bool{true, true, true, true, true, true, true},
		StartDate: day,
		EndDate:   day,
		Added:     map[string]bool{},
		Removed:   map[string]bool{},
	})
	// departs 25:00 on the service day, so the boarding happens on day 1
	feed.AddTrip(Trip{ID: "night", ServiceID: "S"}, []StopTime{
		{StopSeq: 1, StopID: "A", Arrival: 25 * 3600, Departure: 25 * 3600},
		{StopSeq: 2, StopID: "B", Arrival: 25*3600 + 600, Departure: 25*3600 + 600},
	})

	g := datastructure.NewGraph()
	NewGraphBuilder(feed, g, logger.NewNop()).Build()

	boards := findEdges(g, func(e *datastructure.Edge) bool {
		return e.GetType() == pkg.BOARD
	})
	require.Len(t, boards, 1)

	board := boards[0]
	require.Equal(t, int32(1), board.GetTime()) // day shift
	require.Equal(t, int32(3600), g.GetNode(board.GetFrom()).GetAnchor())

	v := board.GetValidity()
	require.NotNil(t, v)
	require.False(t, v.Get(0))
	require.True(t, v.Get(1))
}

func TestDepartureTimelineChain(t *testing.T) {
	g, _ := builderFixture(t)

	// stop A has departures at 08:05 (T1) and 08:35 (T3)
	waits := findEdges(g, func(e *datastructure.Edge) bool {
		return e.GetType() == pkg.WAIT &&
			g.GetNode(e.GetFrom()).GetAnchor() == hms(8, 5) &&
			g.GetNode(e.GetTo()).GetAnchor() == hms(8, 35)
	})
	require.Len(t, waits, 1)
	require.Equal(t, int32(30*60), waits[0].GetTime())

	wraps := findEdges(g, func(e *datastructure.Edge) bool {
		return e.GetType() == pkg.OVERNIGHT &&
			g.GetNode(e.GetFrom()).GetAnchor() == hms(8, 35)
	})
	require.Len(t, wraps, 1)
	require.Equal(t, hms(8, 5)+int32(pkg.SECONDS_PER_DAY)-hms(8, 35), wraps[0].GetTime())
	require.Equal(t, hms(8, 5), g.GetNode(wraps[0].GetTo()).GetAnchor())
}

func TestArrivalContinuesOntoDepartureTimeline(t *testing.T) {
	g, feed := builderFixture(t)

	bIdx, ok := feed.StopIndex("B")
	require.True(t, ok)

	// arriving at B 08:15 (T1) continues to the 08:30 departure (T2)
	transfers := findEdges(g, func(e *datastructure.Edge) bool {
		from := g.GetNode(e.GetFrom())
		return e.GetType() == pkg.TRANSFER &&
			from.GetKind() == datastructure.ARRIVAL_TIMELINE_NODE &&
			from.GetStopIdx() == datastructure.Index(bIdx) &&
			from.GetAnchor() == hms(8, 15)
	})
	require.Len(t, transfers, 1)

	next := g.GetNode(transfers[0].GetTo())
	require.Equal(t, datastructure.DEPARTURE_TIMELINE_NODE, next.GetKind())
	require.Equal(t, hms(8, 30), next.GetAnchor())
}

func TestHopAndAlightWiring(t *testing.T) {
	g, feed := builderFixture(t)

	t1, ok := feed.TripIndex("T1")
	require.True(t, ok)

	hops := findEdges(g, func(e *datastructure.Edge) bool {
		return e.GetType() == pkg.HOP && e.GetTripIdx() == datastructure.Index(t1)
	})
	require.Len(t, hops, 1)
	require.Equal(t, int32(10*60), hops[0].GetTime())
	require.Equal(t, int32(2), hops[0].GetStopSeq())
	require.Greater(t, hops[0].GetDistance(), 0.0)

	arr := g.GetNode(hops[0].GetTo())
	require.Equal(t, datastructure.TRIP_ARRIVAL_NODE, arr.GetKind())
	require.Equal(t, hms(8, 15), arr.GetAnchor())

	alights := findEdges(g, func(e *datastructure.Edge) bool {
		return e.GetType() == pkg.ALIGHT && e.GetFrom() == hops[0].GetTo()
	})
	require.Len(t, alights, 1)
	require.Equal(t, datastructure.ARRIVAL_TIMELINE_NODE, g.GetNode(alights[0].GetTo()).GetKind())
}

func TestFeedTransfersBecomeEdges(t *testing.T) {
	feed := NewFeed()
	feed.AddStop(Stop{ID: "A", Lat: 0, Lon: 0})
	feed.AddStop(Stop{ID: "B", Lat: 0, Lon: 0.01})
	feed.AddTransfer(Transfer{FromStopID: "A", ToStopID: "B", MinTransferTime: 120})
	feed.AddTransfer(Transfer{FromStopID: "A", ToStopID: "A", MinTransferTime: 0}) // self, skipped

	g := datastructure.NewGraph()
	NewGraphBuilder(feed, g, logger.NewNop()).Build()

	transfers := findEdges(g, func(e *datastructure.Edge) bool {
		return e.GetType() == pkg.TRANSFER
	})
	require.Len(t, transfers, 1)
	require.Equal(t, int32(120), transfers[0].GetTime())
	require.Equal(t, datastructure.PT_EXIT_NODE, g.GetNode(transfers[0].GetFrom()).GetKind())
	require.Equal(t, datastructure.PT_ENTER_NODE, g.GetNode(transfers[0].GetTo()).GetKind())
	require.Greater(t, transfers[0].GetDistance(), 0.0)
}

func TestSyntheticWalkNetwork(t *testing.T) {
	_, feed := builderFixture(t)

	g := datastructure.NewGraph()
	builder := NewGraphBuilder(feed, g, logger.NewNop())
	builder.Build()
	builder.LinkWalkNetwork(0, 2)

	highways := findEdges(g, func(e *datastructure.Edge) bool {
		return e.GetType() == pkg.HIGHWAY
	})
	require.NotEmpty(t, highways)
	for _, e := range highways {
		require.Equal(t, datastructure.STREET_NODE, g.GetNode(e.GetFrom()).GetKind())
		require.Equal(t, datastructure.STREET_NODE, g.GetNode(e.GetTo()).GetKind())
		require.Greater(t, e.GetDistance(), 0.0)
		require.NotEqual(t, datastructure.INVALID_EDGE_ID, e.GetReverseEdge())
	}
}

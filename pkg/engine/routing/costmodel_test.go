package routing

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tripweaver/tripweaver/pkg"
	"github.com/tripweaver/tripweaver/pkg/datastructure"
	"github.com/tripweaver/tripweaver/pkg/realtime"
)

func findGraphEdge(t *testing.T, g *datastructure.Graph, pred func(e *datastructure.Edge) bool) *datastructure.Edge {
	t.Helper()
	for i := 0; i < g.NumberOfEdges(); i++ {
		if e := g.GetEdge(datastructure.Index(i)); pred(e) {
			return e
		}
	}
	t.Fatal("edge not found")
	return nil
}

func baseView(e *datastructure.Edge) *EdgeView {
	return &EdgeView{
		Ref:      BaseEdge(e.GetID()),
		From:     e.GetFrom(),
		To:       e.GetTo(),
		Type:     e.GetType(),
		Time:     e.GetTime(),
		Distance: e.GetDistance(),
		TripIdx:  e.GetTripIdx(),
		StopSeq:  e.GetStopSeq(),
		Validity: e.GetValidity(),
	}
}

func walkGraph(dist float64) (*datastructure.Graph, *datastructure.Edge) {
	g := datastructure.NewGraph()
	a := g.AddNode(datastructure.NewNode(0, 0, datastructure.STREET_NODE, -1, datastructure.INVALID_NODE_ID))
	b := g.AddNode(datastructure.NewNode(0, 0.01, datastructure.STREET_NODE, -1, datastructure.INVALID_NODE_ID))
	e := g.AddEdge(a, b, pkg.HIGHWAY, 0, dist)
	return g, e
}

func TestWalkBudgetPerLeg(t *testing.T) {
	g, long := walkGraph(600)
	cm := NewCostModel(g, nil, false, 5.0, 500, 200)

	l := &Label{node: long.GetFrom(), time: 1000, firstPtDepartureTime: -1}
	_, ok := cm.Traverse(baseView(long), l, -1)
	require.False(t, ok) // 600 m exceeds the 500 m access budget

	g2, short := walkGraph(400)
	cm2 := NewCostModel(g2, nil, false, 5.0, 500, 200)
	tr, ok := cm2.Traverse(baseView(short), l, -1)
	require.True(t, ok)
	require.Equal(t, 400.0, tr.WalkDistanceOnLeg)
	require.Equal(t, int64(1000+288), tr.Time) // 400 m at 5 km/h
}

func TestWalkBudgetSwitchesAfterBoarding(t *testing.T) {
	g, e := walkGraph(400)
	cm := NewCostModel(g, nil, false, 5.0, 500, 200)

	before := &Label{node: e.GetFrom(), time: 1000, firstPtDepartureTime: -1}
	_, ok := cm.Traverse(baseView(e), before, -1)
	require.True(t, ok) // within the 500 m access budget

	after := &Label{node: e.GetFrom(), time: 1000, nTransfers: 1, firstPtDepartureTime: 900}
	_, ok = cm.Traverse(baseView(e), after, -1)
	require.False(t, ok) // the 200 m transfer budget applies once aboard
}

func TestTransferEdgeFloorsAtMinTransferTime(t *testing.T) {
	g := datastructure.NewGraph()
	a := g.AddNode(datastructure.NewNode(0, 0, datastructure.PT_EXIT_NODE, -1, 0))
	b := g.AddNode(datastructure.NewNode(0, 0.001, datastructure.PT_ENTER_NODE, -1, 1))
	e := g.AddEdge(a, b, pkg.TRANSFER, 120, 150)

	cm := NewCostModel(g, nil, false, 5.0, 500, 500)
	l := &Label{node: a, time: 1000, firstPtDepartureTime: -1}
	tr, ok := cm.Traverse(baseView(e), l, -1)
	require.True(t, ok)
	// 150 m takes 108 s on foot, the feed demands 120 s
	require.Equal(t, int64(1000+120), tr.Time)
	require.Equal(t, 150.0, tr.WalkDistanceOnLeg)

	// transfer walks draw from the transfer budget even before boarding
	cmTight := NewCostModel(g, nil, false, 5.0, 500, 100)
	_, ok = cmTight.Traverse(baseView(e), l, -1)
	require.False(t, ok)
}

func TestBoardResolvesServiceDay(t *testing.T) {
	g, feed := buildFixture(t)
	epoch := fixtureEpoch()
	t1, ok := feed.TripIndex("T1")
	require.True(t, ok)

	board := findGraphEdge(t, g, func(e *datastructure.Edge) bool {
		return e.GetType() == pkg.BOARD && e.GetTripIdx() == datastructure.Index(t1)
	})
	cm := NewCostModel(g, nil, false, 5.0, 0, 0)

	// waiting on the 08:05 timeline node since 08:00
	l := &Label{node: board.GetFrom(), time: epoch + int64(hms(8, 0)), firstPtDepartureTime: -1}
	tr, ok := cm.Traverse(baseView(board), l, -1)
	require.True(t, ok)
	require.Equal(t, epoch+int64(hms(8, 5)), tr.Time)
	require.Equal(t, int32(1), tr.NTransfers)
	require.Equal(t, tr.Time, tr.FirstPtDepartureTime)

	// the service covers only day 0, nothing boards a day later
	late := &Label{
		node:                 board.GetFrom(),
		time:                 epoch + int64(pkg.SECONDS_PER_DAY) + int64(hms(8, 0)),
		firstPtDepartureTime: -1,
	}
	_, ok = cm.Traverse(baseView(board), late, -1)
	require.False(t, ok)
}

func TestBoardSkipsCancelledService(t *testing.T) {
	g, feed := buildFixture(t)
	epoch := fixtureEpoch()
	t1, _ := feed.TripIndex("T1")

	board := findGraphEdge(t, g, func(e *datastructure.Edge) bool {
		return e.GetType() == pkg.BOARD && e.GetTripIdx() == datastructure.Index(t1)
	})

	overlay := realtime.EmptyOverlay()
	overlay.MarkCancelled(datastructure.Index(t1), 0)
	cm := NewCostModel(g, overlay, false, 5.0, 0, 0)

	l := &Label{node: board.GetFrom(), time: epoch + int64(hms(8, 0)), firstPtDepartureTime: -1}
	_, ok := cm.Traverse(baseView(board), l, -1)
	require.False(t, ok)
}

func TestBoardAppliesDepartureDelay(t *testing.T) {
	g, feed := buildFixture(t)
	epoch := fixtureEpoch()
	t1, _ := feed.TripIndex("T1")

	board := findGraphEdge(t, g, func(e *datastructure.Edge) bool {
		return e.GetType() == pkg.BOARD && e.GetTripIdx() == datastructure.Index(t1)
	})

	overlay := realtime.EmptyOverlay()
	overlay.SetDelay(datastructure.Index(t1), 1, realtime.Delay{Departure: 300})
	cm := NewCostModel(g, overlay, false, 5.0, 0, 0)

	l := &Label{node: board.GetFrom(), time: epoch + int64(hms(8, 0)), firstPtDepartureTime: -1}
	tr, ok := cm.Traverse(baseView(board), l, -1)
	require.True(t, ok)
	require.Equal(t, epoch+int64(hms(8, 5))+300, tr.Time)
}

func TestBoardSkipsEarlyDeparture(t *testing.T) {
	g, feed := buildFixture(t)
	epoch := fixtureEpoch()
	t1, _ := feed.TripIndex("T1")

	board := findGraphEdge(t, g, func(e *datastructure.Edge) bool {
		return e.GetType() == pkg.BOARD && e.GetTripIdx() == datastructure.Index(t1)
	})

	// running two minutes early: the 08:05 departure realizes at 08:03
	overlay := realtime.EmptyOverlay()
	overlay.SetDelay(datastructure.Index(t1), 1, realtime.Delay{Departure: -120})
	cm := NewCostModel(g, overlay, false, 5.0, 0, 0)

	l := &Label{node: board.GetFrom(), time: epoch + int64(hms(8, 4)), firstPtDepartureTime: -1}
	_, ok := cm.Traverse(baseView(board), l, -1)
	require.False(t, ok) // missed it, and the padding day has no service
}

func TestHopCompensatesBoardingDelay(t *testing.T) {
	g, feed := buildFixture(t)
	epoch := fixtureEpoch()
	t1, _ := feed.TripIndex("T1")

	hop := findGraphEdge(t, g, func(e *datastructure.Edge) bool {
		return e.GetType() == pkg.HOP && e.GetTripIdx() == datastructure.Index(t1)
	})
	require.Equal(t, int32(600), hop.GetTime())

	// departed 5 min late, arrives 7 min late: the hop itself takes 2 min more
	overlay := realtime.EmptyOverlay()
	overlay.SetDelay(datastructure.Index(t1), 1, realtime.Delay{Departure: 300})
	overlay.SetDelay(datastructure.Index(t1), 2, realtime.Delay{Arrival: 420})
	cm := NewCostModel(g, overlay, false, 5.0, 0, 0)

	boarded := &Label{
		node:                 hop.GetFrom(),
		time:                 epoch + int64(hms(8, 5)) + 300,
		nTransfers:           1,
		firstPtDepartureTime: epoch + int64(hms(8, 5)) + 300,
	}
	tr, ok := cm.Traverse(baseView(hop), boarded, 1)
	require.True(t, ok)
	require.Equal(t, epoch+int64(hms(8, 15))+420, tr.Time)
}

func TestAnchoredWaitSlidesPastAnchor(t *testing.T) {
	g, _ := buildFixture(t)
	epoch := fixtureEpoch()

	// stop A departure timeline: 08:05 node chained to the 08:35 node
	wait := findGraphEdge(t, g, func(e *datastructure.Edge) bool {
		return e.GetType() == pkg.WAIT &&
			g.GetNode(e.GetFrom()).GetAnchor() == hms(8, 5) &&
			g.GetNode(e.GetTo()).GetAnchor() == hms(8, 35)
	})
	cm := NewCostModel(g, nil, false, 5.0, 0, 0)

	onTime := &Label{node: wait.GetFrom(), time: epoch + int64(hms(8, 5)), firstPtDepartureTime: -1}
	tr, ok := cm.Traverse(baseView(wait), onTime, -1)
	require.True(t, ok)
	require.Equal(t, epoch+int64(hms(8, 35)), tr.Time)

	// a label already past the anchor slides through for free; boarding
	// re-validates, so no trip is caught that way
	lateLabel := &Label{node: wait.GetFrom(), time: epoch + int64(hms(8, 40)), firstPtDepartureTime: -1}
	tr, ok = cm.Traverse(baseView(wait), lateLabel, -1)
	require.True(t, ok)
	require.Equal(t, epoch+int64(hms(8, 40)), tr.Time)
}

func TestBoardReverseFindsPrecedingDeparture(t *testing.T) {
	g, feed := buildFixture(t)
	epoch := fixtureEpoch()
	t1, _ := feed.TripIndex("T1")

	board := findGraphEdge(t, g, func(e *datastructure.Edge) bool {
		return e.GetType() == pkg.BOARD && e.GetTripIdx() == datastructure.Index(t1)
	})
	cm := NewCostModel(g, nil, true, 5.0, 0, 0)

	// reverse labels sit on the trip departure node and cross backwards
	l := &Label{node: board.GetTo(), time: epoch + int64(hms(8, 10)), firstPtDepartureTime: -1}
	tr, ok := cm.Traverse(baseView(board), l, -1)
	require.True(t, ok)
	require.Equal(t, epoch+int64(hms(8, 5)), tr.Time)

	// nothing departs at or before 08:00 on the first covered day
	early := &Label{node: board.GetTo(), time: epoch + int64(hms(8, 0)), firstPtDepartureTime: -1}
	_, ok = cm.Traverse(baseView(board), early, -1)
	require.False(t, ok)
}

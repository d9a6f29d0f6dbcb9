package routing

import (
	"github.com/tripweaver/tripweaver/pkg"
	"github.com/tripweaver/tripweaver/pkg/datastructure"
	"github.com/tripweaver/tripweaver/pkg/geo"
	"github.com/tripweaver/tripweaver/pkg/gtfs"
	"github.com/tripweaver/tripweaver/pkg/realtime"
)

type LegKind string

const (
	LegWalk     LegKind = "walk"
	LegRide     LegKind = "pt"
	LegTransfer LegKind = "transfer"
)

// StopCall one stop event on a ride leg, with scheduled and realized
// instants. Zero means not applicable (no arrival at the boarding stop).
type StopCall struct {
	StopID             string
	StopName           string
	Coordinate         geo.Coordinate
	ScheduledArrival   int64
	RealizedArrival    int64
	ScheduledDeparture int64
	RealizedDeparture  int64
}

type Leg struct {
	Kind          LegKind
	DepartureTime int64
	ArrivalTime   int64
	Distance      float64
	Geometry      []geo.Coordinate

	TripID    string
	RouteID   string
	RouteName string
	Headsign  string
	Stops     []StopCall
}

type Itinerary struct {
	DepartureTime int64
	ArrivalTime   int64
	Distance      float64
	Transfers     int
	Geometry      []geo.Coordinate
	Legs          []Leg
}

// Reconstructor turns a terminal label's parent chain into an ordered leg
// list, coalescing consecutive same-kind crossings. Reverse-search paths are
// re-timed forward from the found departure instant, since reverse label
// times carry slack inherited from the arrival deadline.
type Reconstructor struct {
	graph        *datastructure.Graph
	qg           *QueryGraph
	feed         *gtfs.Feed
	overlay      *realtime.Overlay
	reverse      bool
	walkSpeedKmH float64
}

func NewReconstructor(graph *datastructure.Graph, qg *QueryGraph, feed *gtfs.Feed,
	overlay *realtime.Overlay, reverse bool, walkSpeedKmH float64) *Reconstructor {
	return &Reconstructor{
		graph: graph, qg: qg, feed: feed, overlay: overlay,
		reverse: reverse, walkSpeedKmH: walkSpeedKmH,
	}
}

// crossing one edge of the path in travel order
type crossing struct {
	ref       EdgeRef
	edgeType  pkg.EdgeType
	startNode datastructure.Index
	endNode   datastructure.Index
	startTime int64
	endTime   int64
	distance  float64
	timeAttr  int32
	tripIdx   datastructure.Index
	stopSeq   int32
	validity  *datastructure.Bitset
	geometry  []geo.Coordinate
}

func (r *Reconstructor) Itinerary(arena *Arena, terminal int32) Itinerary {
	crossings := r.collect(arena, terminal)
	if r.reverse && len(crossings) > 0 {
		r.retime(crossings, crossings[0].startTime)
	}

	it := Itinerary{}
	var walk *Leg
	var ride *Leg

	flushWalk := func() {
		if walk != nil && walk.Distance > 0 {
			it.Legs = append(it.Legs, *walk)
		}
		walk = nil
	}

	for i := range crossings {
		c := &crossings[i]
		switch c.edgeType {
		case pkg.BOARD:
			flushWalk()
			ride = r.startRide(c)

		case pkg.HOP:
			if ride != nil {
				r.arriveAt(ride, c)
			}

		case pkg.DWELL:
			if ride != nil && len(ride.Stops) > 0 {
				last := &ride.Stops[len(ride.Stops)-1]
				last.RealizedDeparture = c.endTime
				last.ScheduledDeparture = c.endTime - r.delayOf(c.tripIdx, c.stopSeq).departure
			}

		case pkg.ALIGHT:
			if ride != nil {
				ride.ArrivalTime = c.endTime
				it.Legs = append(it.Legs, *ride)
				ride = nil
			}

		case pkg.TRANSFER:
			if c.distance > 0 {
				flushWalk()
				it.Legs = append(it.Legs, Leg{
					Kind:          LegTransfer,
					DepartureTime: c.startTime,
					ArrivalTime:   c.endTime,
					Distance:      c.distance,
					Geometry:      c.geometry,
				})
			}

		default:
			// walkable plumbing: highway, virtual access/egress, station
			// markers, timeline entry
			if walk == nil {
				walk = &Leg{Kind: LegWalk, DepartureTime: c.startTime}
			}
			walk.ArrivalTime = c.endTime
			walk.Distance += c.distance
			walk.Geometry = appendGeometry(walk.Geometry, c.geometry)
		}
	}
	flushWalk()

	if len(it.Legs) > 0 {
		it.DepartureTime = it.Legs[0].DepartureTime
		it.ArrivalTime = it.Legs[len(it.Legs)-1].ArrivalTime
	}
	boardings := 0
	for _, leg := range it.Legs {
		it.Distance += leg.Distance
		it.Geometry = appendGeometry(it.Geometry, leg.Geometry)
		if leg.Kind == LegRide {
			boardings++
		}
	}
	if boardings > 0 {
		it.Transfers = boardings - 1
	}
	return it
}

// collect resolves the parent chain into travel-order crossings. A forward
// chain runs destination-to-origin and is flipped; a reverse chain already
// runs origin-to-destination.
func (r *Reconstructor) collect(arena *Arena, terminal int32) []crossing {
	chain := make([]int32, 0)
	for cur := terminal; cur != NO_LABEL; cur = arena.At(cur).parent {
		chain = append(chain, cur)
	}
	if !r.reverse {
		for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
			chain[i], chain[j] = chain[j], chain[i]
		}
	}

	crossings := make([]crossing, 0, len(chain))
	for i := 1; i < len(chain); i++ {
		prev, cur := arena.At(chain[i-1]), arena.At(chain[i])
		// the edge is stored on whichever label the search created later:
		// the destination side forward, the origin side reversed
		ref := cur.edge
		if r.reverse {
			ref = prev.edge
		}
		crossings = append(crossings, r.resolve(ref, prev.node, cur.node, prev.time, cur.time))
	}
	return crossings
}

func (r *Reconstructor) resolve(ref EdgeRef, startNode, endNode datastructure.Index,
	startTime, endTime int64) crossing {

	c := crossing{
		ref:       ref,
		startNode: startNode,
		endNode:   endNode,
		startTime: startTime,
		endTime:   endTime,
		tripIdx:   datastructure.INVALID_NODE_ID,
		stopSeq:   -1,
	}
	switch {
	case ref.ID != datastructure.INVALID_EDGE_ID:
		e := r.graph.GetEdge(ref.ID)
		c.edgeType = e.GetType()
		c.distance = e.GetDistance()
		c.timeAttr = e.GetTime()
		c.tripIdx = e.GetTripIdx()
		c.stopSeq = e.GetStopSeq()
		c.validity = e.GetValidity()
		c.geometry = []geo.Coordinate{r.qg.NodeCoordinate(startNode), r.qg.NodeCoordinate(endNode)}
	case ref.Virtual >= 0:
		ve := r.qg.VirtualEdge(ref.Virtual)
		c.edgeType = ve.Type
		c.distance = ve.Distance
		c.timeAttr = ve.Time
		c.geometry = ve.Geometry
		if r.reverse && len(ve.Geometry) > 1 && ve.To == startNode {
			c.geometry = reversedCoords(ve.Geometry)
		}
	case ref.Extra >= 0:
		e := r.overlay.ExtraEdge(ref.Extra)
		c.edgeType = e.Type
		c.distance = e.Distance
		c.timeAttr = e.Time
		c.tripIdx = e.TripIdx
		c.stopSeq = e.StopSeq
		c.geometry = []geo.Coordinate{r.qg.NodeCoordinate(startNode), r.qg.NodeCoordinate(endNode)}
	}
	return c
}

// retime replays the crossings forward from the departure instant using the
// scheduled cost model, replacing the deadline-derived reverse label times.
func (r *Reconstructor) retime(crossings []crossing, t0 int64) {
	cm := NewCostModel(r.graph, nil, false, r.walkSpeedKmH, 0, 0)
	now := t0
	prevSeq := int32(-1)
	for i := range crossings {
		c := &crossings[i]
		c.startTime = now
		ev := EdgeView{
			Ref:      c.ref,
			From:     c.startNode,
			To:       c.endNode,
			Type:     c.edgeType,
			Time:     c.timeAttr,
			Distance: c.distance,
			TripIdx:  c.tripIdx,
			StopSeq:  c.stopSeq,
			Validity: c.validity,
		}
		l := Label{node: c.startNode, time: now, firstPtDepartureTime: -1, parent: NO_LABEL, edge: NoEdge()}
		if tr, ok := cm.Traverse(&ev, &l, prevSeq); ok {
			now = tr.Time
		}
		c.endTime = now
		if c.stopSeq >= 0 {
			prevSeq = c.stopSeq
		}
	}
}

type delay struct {
	arrival   int64
	departure int64
}

func (r *Reconstructor) delayOf(tripIdx datastructure.Index, stopSeq int32) delay {
	// reverse searches run on scheduled times
	if r.overlay == nil || r.reverse || tripIdx == datastructure.INVALID_NODE_ID {
		return delay{}
	}
	d := r.overlay.DelayAt(tripIdx, stopSeq)
	return delay{arrival: int64(d.Arrival), departure: int64(d.Departure)}
}

func (r *Reconstructor) startRide(c *crossing) *Leg {
	leg := &Leg{
		Kind:          LegRide,
		DepartureTime: c.endTime,
	}
	if r.feed != nil && c.tripIdx != datastructure.INVALID_NODE_ID {
		trip := &r.feed.Trips[c.tripIdx]
		leg.TripID = trip.ID
		leg.Headsign = trip.Headsign
		if route := r.feed.RouteOfTrip(int(c.tripIdx)); route != nil {
			leg.RouteID = route.ID
			leg.RouteName = route.ShortName
		}
	}
	call := r.stopCallAt(c.endNode)
	call.RealizedDeparture = leg.DepartureTime
	call.ScheduledDeparture = leg.DepartureTime - r.delayOf(c.tripIdx, c.stopSeq).departure
	leg.Stops = append(leg.Stops, call)
	leg.Geometry = append(leg.Geometry, call.Coordinate)
	return leg
}

func (r *Reconstructor) arriveAt(ride *Leg, c *crossing) {
	call := r.stopCallAt(c.endNode)
	call.RealizedArrival = c.endTime
	call.ScheduledArrival = c.endTime - r.delayOf(c.tripIdx, c.stopSeq).arrival
	ride.Stops = append(ride.Stops, call)
	ride.Geometry = append(ride.Geometry, call.Coordinate)
	ride.Distance += c.distance
	ride.ArrivalTime = c.endTime
}

func (r *Reconstructor) stopCallAt(node datastructure.Index) StopCall {
	call := StopCall{Coordinate: r.qg.NodeCoordinate(node)}
	if r.feed == nil || int(node) >= r.graph.NumberOfNodes() {
		return call
	}
	si := r.graph.GetNode(node).GetStopIdx()
	if si != datastructure.INVALID_NODE_ID && int(si) < len(r.feed.Stops) {
		call.StopID = r.feed.Stops[si].ID
		call.StopName = r.feed.Stops[si].Name
	}
	return call
}

func appendGeometry(dst, src []geo.Coordinate) []geo.Coordinate {
	for _, c := range src {
		if n := len(dst); n > 0 && dst[n-1] == c {
			continue
		}
		dst = append(dst, c)
	}
	return dst
}

func reversedCoords(coords []geo.Coordinate) []geo.Coordinate {
	out := make([]geo.Coordinate, len(coords))
	for i, c := range coords {
		out[len(coords)-1-i] = c
	}
	return out
}

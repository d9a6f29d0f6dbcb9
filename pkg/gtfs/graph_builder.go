package gtfs

import (
	"sort"

	"github.com/tripweaver/tripweaver/pkg"
	"github.com/tripweaver/tripweaver/pkg/datastructure"
	"github.com/tripweaver/tripweaver/pkg/geo"
	"go.uber.org/zap"
)

// GraphBuilder expands the static feed into the time-expanded transit
// subgraph. Per stop: a street-level node, a station node (target of
// stop-id query points), pt enter/exit nodes and two timelines (departure
// events chained by WAIT, arrival events chained by WAIT_ARRIVAL). Per
// trip-stop event: departure and arrival nodes wired by BOARD / HOP / DWELL /
// ALIGHT edges. BOARD edges carry the service-day validity of their trip.
type GraphBuilder struct {
	feed *Feed
	g    *datastructure.Graph
	log  *zap.Logger

	stopStreetNode  []datastructure.Index
	stopStationNode []datastructure.Index
	stopEnterNode   []datastructure.Index
	stopExitNode    []datastructure.Index

	depTimelineNode []map[int32]datastructure.Index // per stop: anchor -> node
	depAnchors      [][]int32                       // per stop: sorted anchors
	arrTimeline     map[arrKey]datastructure.Index
}

type arrKey struct {
	stop   int
	anchor int32
}

func NewGraphBuilder(feed *Feed, g *datastructure.Graph, log *zap.Logger) *GraphBuilder {
	return &GraphBuilder{feed: feed, g: g, log: log}
}

func (b *GraphBuilder) Build() {
	epoch, numDays := b.feed.Epoch()
	b.g.SetEpoch(epoch, numDays)

	b.buildStopNodes()
	b.buildTimelines()
	b.buildTrips()
	b.buildTransfers()

	b.log.Info("built time-expanded transit graph",
		zap.Int("nodes", b.g.NumberOfNodes()),
		zap.Int("edges", b.g.NumberOfEdges()),
		zap.Int("serviceDays", numDays))
}

func (b *GraphBuilder) buildStopNodes() {
	n := len(b.feed.Stops)
	b.stopStreetNode = make([]datastructure.Index, n)
	b.stopStationNode = make([]datastructure.Index, n)
	b.stopEnterNode = make([]datastructure.Index, n)
	b.stopExitNode = make([]datastructure.Index, n)

	for i, stop := range b.feed.Stops {
		street := b.g.AddNode(datastructure.NewNode(stop.Lat, stop.Lon,
			datastructure.STREET_NODE, -1, datastructure.Index(i)))
		station := b.g.AddNode(datastructure.NewNode(stop.Lat, stop.Lon,
			datastructure.STATION_NODE, -1, datastructure.Index(i)))
		enter := b.g.AddNode(datastructure.NewNode(stop.Lat, stop.Lon,
			datastructure.PT_ENTER_NODE, -1, datastructure.Index(i)))
		exit := b.g.AddNode(datastructure.NewNode(stop.Lat, stop.Lon,
			datastructure.PT_EXIT_NODE, -1, datastructure.Index(i)))

		b.stopStreetNode[i] = street
		b.stopStationNode[i] = station
		b.stopEnterNode[i] = enter
		b.stopExitNode[i] = exit

		b.g.AddEdge(street, enter, pkg.ENTER_PT, 0, 0)
		b.g.AddEdge(exit, street, pkg.EXIT_PT, 0, 0)
		b.g.AddEdge(station, enter, pkg.STOP_ENTER_NODE, 0, 0)
		b.g.AddEdge(exit, station, pkg.STOP_EXIT_NODE, 0, 0)
		b.g.AddEdgePair(station, street, pkg.STOP_NODE_MARKER, 0, 0)

		b.g.SetStationNode(stop.ID, station)
	}
}

// event tods per stop, normalized into [0, 86400)
func (b *GraphBuilder) collectEventAnchors() (deps, arrs [][]int32) {
	n := len(b.feed.Stops)
	depSet := make([]map[int32]struct{}, n)
	arrSet := make([]map[int32]struct{}, n)
	for i := 0; i < n; i++ {
		depSet[i] = make(map[int32]struct{})
		arrSet[i] = make(map[int32]struct{})
	}
	for ti := range b.feed.Trips {
		sts := b.feed.StopTimes[ti]
		for k, st := range sts {
			si, ok := b.feed.StopIndex(st.StopID)
			if !ok {
				continue
			}
			if k < len(sts)-1 {
				depSet[si][st.Departure%int32(pkg.SECONDS_PER_DAY)] = struct{}{}
			}
			if k > 0 {
				arrSet[si][st.Arrival%int32(pkg.SECONDS_PER_DAY)] = struct{}{}
			}
		}
	}
	deps = make([][]int32, n)
	arrs = make([][]int32, n)
	for i := 0; i < n; i++ {
		for t := range depSet[i] {
			deps[i] = append(deps[i], t)
		}
		for t := range arrSet[i] {
			arrs[i] = append(arrs[i], t)
		}
		sort.Slice(deps[i], func(a, c int) bool { return deps[i][a] < deps[i][c] })
		sort.Slice(arrs[i], func(a, c int) bool { return arrs[i][a] < arrs[i][c] })
	}
	return deps, arrs
}

func (b *GraphBuilder) buildTimelines() {
	deps, arrs := b.collectEventAnchors()
	n := len(b.feed.Stops)
	b.depTimelineNode = make([]map[int32]datastructure.Index, n)
	b.depAnchors = deps

	for si := 0; si < n; si++ {
		stop := b.feed.Stops[si]
		b.depTimelineNode[si] = make(map[int32]datastructure.Index, len(deps[si]))

		depNodes := make([]datastructure.Index, len(deps[si]))
		for i, anchor := range deps[si] {
			w := b.g.AddNode(datastructure.NewNode(stop.Lat, stop.Lon,
				datastructure.DEPARTURE_TIMELINE_NODE, anchor, datastructure.Index(si)))
			depNodes[i] = w
			b.depTimelineNode[si][anchor] = w
			b.g.AddEdge(b.stopEnterNode[si], w, pkg.ENTER_TIME_EXPANDED_NETWORK, 0, 0)
		}
		for i := 0; i+1 < len(depNodes); i++ {
			b.g.AddEdge(depNodes[i], depNodes[i+1], pkg.WAIT,
				deps[si][i+1]-deps[si][i], 0)
		}
		if len(depNodes) > 1 {
			wrap := deps[si][0] + int32(pkg.SECONDS_PER_DAY) - deps[si][len(depNodes)-1]
			b.g.AddEdge(depNodes[len(depNodes)-1], depNodes[0], pkg.OVERNIGHT, wrap, 0)
		}

		arrNodes := make([]datastructure.Index, len(arrs[si]))
		for i, anchor := range arrs[si] {
			a := b.g.AddNode(datastructure.NewNode(stop.Lat, stop.Lon,
				datastructure.ARRIVAL_TIMELINE_NODE, anchor, datastructure.Index(si)))
			arrNodes[i] = a
			b.g.AddEdge(a, b.stopExitNode[si], pkg.LEAVE_TIME_EXPANDED_NETWORK, 0, 0)
			// in-station continuation onto the departure timeline
			if next, ok := b.firstDepartureAtOrAfter(si, anchor); ok {
				b.g.AddEdge(a, next, pkg.TRANSFER, 0, 0)
			}
		}
		for i := 0; i+1 < len(arrNodes); i++ {
			b.g.AddEdge(arrNodes[i], arrNodes[i+1], pkg.WAIT_ARRIVAL,
				arrs[si][i+1]-arrs[si][i], 0)
		}
		b.arrTimelineNodeBy(si, arrs[si], arrNodes)
	}
}

func (b *GraphBuilder) arrTimelineNodeBy(si int, anchors []int32, nodes []datastructure.Index) {
	if b.arrTimeline == nil {
		b.arrTimeline = make(map[arrKey]datastructure.Index)
	}
	for i, anchor := range anchors {
		b.arrTimeline[arrKey{stop: si, anchor: anchor}] = nodes[i]
	}
}

func (b *GraphBuilder) firstDepartureAtOrAfter(si int, anchor int32) (datastructure.Index, bool) {
	anchors := b.depAnchors[si]
	if len(anchors) == 0 {
		return datastructure.INVALID_NODE_ID, false
	}
	i := sort.Search(len(anchors), func(j int) bool { return anchors[j] >= anchor })
	if i == len(anchors) {
		i = 0 // wraps overnight; anchored cost handles the modulo
	}
	return b.depTimelineNode[si][anchors[i]], true
}

func (b *GraphBuilder) buildTrips() {
	for ti := range b.feed.Trips {
		trip := &b.feed.Trips[ti]
		sts := b.feed.StopTimes[ti]
		validity := b.feed.ServiceValidity(trip.ServiceID, b.g.GetEpoch(), b.g.GetNumServiceDays())

		var prevArr datastructure.Index = datastructure.INVALID_NODE_ID
		for k, st := range sts {
			si, ok := b.feed.StopIndex(st.StopID)
			if !ok {
				continue
			}
			stop := b.feed.Stops[si]

			if k < len(sts)-1 {
				depAnchor := st.Departure % int32(pkg.SECONDS_PER_DAY)
				depShift := int(st.Departure / int32(pkg.SECONDS_PER_DAY))
				dep := b.g.AddNode(datastructure.NewNode(stop.Lat, stop.Lon,
					datastructure.TRIP_DEPARTURE_NODE, depAnchor, datastructure.Index(si)))

				board := b.g.AddEdge(b.depTimelineNode[si][depAnchor], dep, pkg.BOARD, int32(depShift), 0)
				board.SetTrip(datastructure.Index(ti), int32(st.StopSeq))
				if depShift > 0 {
					board.SetValidity(validity.ShiftLeft(depShift))
				} else {
					board.SetValidity(validity)
				}

				if prevArr != datastructure.INVALID_NODE_ID {
					dwell := b.g.AddEdge(prevArr, dep, pkg.DWELL, st.Departure-st.Arrival, 0)
					dwell.SetTrip(datastructure.Index(ti), int32(st.StopSeq))
				}

				next := sts[k+1]
				nsi, ok := b.feed.StopIndex(next.StopID)
				if !ok {
					prevArr = datastructure.INVALID_NODE_ID
					continue
				}
				nstop := b.feed.Stops[nsi]
				arrAnchor := next.Arrival % int32(pkg.SECONDS_PER_DAY)
				arr := b.g.AddNode(datastructure.NewNode(nstop.Lat, nstop.Lon,
					datastructure.TRIP_ARRIVAL_NODE, arrAnchor, datastructure.Index(nsi)))

				hopDist := geo.HaversineMeters(stop.Lat, stop.Lon, nstop.Lat, nstop.Lon)
				hop := b.g.AddEdge(dep, arr, pkg.HOP, next.Arrival-st.Departure, hopDist)
				hop.SetTrip(datastructure.Index(ti), int32(next.StopSeq))

				alight := b.g.AddEdge(arr, b.arrTimeline[arrKey{stop: nsi, anchor: arrAnchor}],
					pkg.ALIGHT, 0, 0)
				alight.SetTrip(datastructure.Index(ti), int32(next.StopSeq))

				prevArr = arr
			}
		}
	}
}

func (b *GraphBuilder) buildTransfers() {
	for _, tr := range b.feed.Transfers {
		from, okF := b.feed.StopIndex(tr.FromStopID)
		to, okT := b.feed.StopIndex(tr.ToStopID)
		if !okF || !okT || from == to {
			continue
		}
		dist := geo.HaversineMeters(b.feed.Stops[from].Lat, b.feed.Stops[from].Lon,
			b.feed.Stops[to].Lat, b.feed.Stops[to].Lon)
		b.g.AddEdge(b.stopExitNode[from], b.stopEnterNode[to], pkg.TRANSFER,
			tr.MinTransferTime, dist)
	}
}

// LinkWalkNetwork connects every stop's street node to the walk network. With
// an OSM-derived network present, each stop links to its nearest street node;
// otherwise a synthetic network connects each stop to its k nearest stops so
// GTFS-only deployments can still snap coordinates and walk transfers.
func (b *GraphBuilder) LinkWalkNetwork(walkNodeCount int, k int) {
	if walkNodeCount > 0 {
		for si, street := range b.stopStreetNode {
			stop := b.feed.Stops[si]
			best := datastructure.INVALID_NODE_ID
			bestDist := 0.0
			for n := 0; n < walkNodeCount; n++ {
				node := b.g.GetNode(datastructure.Index(n))
				if node.GetKind() != datastructure.STREET_NODE {
					continue
				}
				d := geo.HaversineMeters(stop.Lat, stop.Lon, node.GetLat(), node.GetLon())
				if best == datastructure.INVALID_NODE_ID || d < bestDist {
					best, bestDist = datastructure.Index(n), d
				}
			}
			if best != datastructure.INVALID_NODE_ID {
				b.g.AddEdgePair(street, best, pkg.HIGHWAY, 0, bestDist)
			}
		}
		return
	}

	type cand struct {
		stop int
		dist float64
	}
	for si := range b.feed.Stops {
		cands := make([]cand, 0, len(b.feed.Stops)-1)
		for sj := range b.feed.Stops {
			if si == sj {
				continue
			}
			d := geo.HaversineMeters(b.feed.Stops[si].Lat, b.feed.Stops[si].Lon,
				b.feed.Stops[sj].Lat, b.feed.Stops[sj].Lon)
			cands = append(cands, cand{stop: sj, dist: d})
		}
		sort.Slice(cands, func(a, c int) bool { return cands[a].dist < cands[c].dist })
		for i := 0; i < len(cands) && i < k; i++ {
			if si < cands[i].stop { // one pair per unordered stop pair
				b.g.AddEdgePair(b.stopStreetNode[si], b.stopStreetNode[cands[i].stop],
					pkg.HIGHWAY, 0, cands[i].dist)
			}
		}
	}
}

func (b *GraphBuilder) StopStreetNode(si int) datastructure.Index {
	return b.stopStreetNode[si]
}

package engine

import (
	"sort"
	"time"

	"github.com/tripweaver/tripweaver/pkg"
	"github.com/tripweaver/tripweaver/pkg/concurrent"
	"github.com/tripweaver/tripweaver/pkg/datastructure"
	"github.com/tripweaver/tripweaver/pkg/engine/routing"
	"github.com/tripweaver/tripweaver/pkg/geo"
	"github.com/tripweaver/tripweaver/pkg/gtfs"
	"github.com/tripweaver/tripweaver/pkg/realtime"
	"github.com/tripweaver/tripweaver/pkg/spatialindex"
	"github.com/tripweaver/tripweaver/pkg/util"
	"go.uber.org/zap"
)

// Engine answers trip-planning queries against the read-only base graph,
// the GTFS tables, the spatial index and the current realtime snapshot.
// Queries are internally sequential; concurrent queries share only read-only
// state.
type Engine struct {
	graph *datastructure.Graph
	feed  *gtfs.Feed
	index *spatialindex.Rtree
	rt    *realtime.Publisher
	log   *zap.Logger

	// service-day validity per service id, precomputed for the live board
	validity map[string]*datastructure.Bitset
}

func New(graph *datastructure.Graph, feed *gtfs.Feed, index *spatialindex.Rtree,
	rt *realtime.Publisher, log *zap.Logger) *Engine {
	e := &Engine{
		graph:    graph,
		feed:     feed,
		index:    index,
		rt:       rt,
		log:      log,
		validity: make(map[string]*datastructure.Bitset),
	}
	if feed != nil {
		for id := range feed.Services {
			e.validity[id] = feed.ServiceValidity(id, graph.GetEpoch(), graph.GetNumServiceDays())
		}
	}
	return e
}

// Response itineraries sorted by ascending total time plus debug hints.
type Response struct {
	Itineraries []routing.Itinerary
	Hints       map[string]interface{}
}

func (e *Engine) Route(req Request) (*Response, error) {
	return e.RouteStreaming(req, nil)
}

type boundEndpoint struct {
	node  datastructure.Index
	split datastructure.Index
}

type accessJob struct {
	idx     int
	from    datastructure.Index
	reverse bool
}

type accessResult struct {
	idx     int
	edges   []routing.AccessEdge
	visited int
}

// RouteStreaming like Route but additionally invokes emit per itinerary as
// solutions are reconstructed; emit returning false stops the enumeration.
func (e *Engine) RouteStreaming(req Request, emit func(routing.Itinerary) bool) (*Response, error) {
	var overlay *realtime.Overlay
	if e.rt != nil {
		overlay = e.rt.Snapshot()
	}
	qg := routing.NewQueryGraph(e.graph)
	walkSpeedMS := req.WalkSpeedKmH / 3.6

	lookupStart := time.Now()
	endpoints := make([]boundEndpoint, len(req.Points))
	var jobs []accessJob
	for i, p := range req.Points {
		switch p.Kind {
		case StationPoint:
			node, ok := e.graph.GetStationNode(p.StopID)
			if !ok {
				return nil, util.WrapErrorf(nil, util.ErrBadParamInput,
					"unknown stop id %q", p.StopID)
			}
			endpoints[i] = boundEndpoint{node: node, split: datastructure.INVALID_NODE_ID}
		default:
			snap, ok := e.index.SnapToWalkEdge(p.Lat, p.Lon, pkg.DEFAULT_SNAP_RADIUS_KM)
			if !ok {
				return nil, util.WrapErrorf(nil, util.ErrPointNotFound,
					"cannot snap point %d to the walk network", i)
			}
			at := geo.NewCoordinate(p.Lat, p.Lon)
			virtual := qg.EndpointNode(i, at)
			split := qg.BindCoordinate(virtual, at, snap, walkSpeedMS)
			endpoints[i] = boundEndpoint{node: virtual, split: split}
			jobs = append(jobs, accessJob{idx: i, from: split, reverse: i == 1})
		}
	}

	// the access passes only read the query graph; materialization below is
	// sequential again
	accessVisited := 0
	if len(jobs) > 0 {
		pool := concurrent.NewWorkerPool[accessJob, accessResult](len(jobs), len(jobs))
		pool.Start(func(j accessJob) accessResult {
			edges, visited := routing.FindStationAccess(
				e.graph, qg, j.from, j.reverse, req.WalkSpeedKmH, req.MaxWalkDistancePerLeg)
			return accessResult{idx: j.idx, edges: edges, visited: visited}
		})
		for _, j := range jobs {
			pool.AddJob(j)
		}
		pool.Close()
		pool.Wait()
		for res := range pool.CollectResults() {
			e.materializeAccess(qg, endpoints[res.idx].node, res.idx == 1, res.edges)
			accessVisited += res.visited
		}
	}
	lookupDur := time.Since(lookupStart)

	start, dest := endpoints[0].node, endpoints[1].node
	if req.ArriveBy {
		start, dest = dest, start
	}

	routingStart := time.Now()
	cm := routing.NewCostModel(e.graph, overlay, req.ArriveBy, req.WalkSpeedKmH,
		req.MaxWalkDistancePerLeg, req.MaxTransferDistancePerLeg)
	explorer := routing.NewExplorer(e.graph, qg, overlay, req.ArriveBy)
	arena := routing.NewArena()
	search := routing.NewLabelSetting(explorer, cm, arena)

	result := search.Run(routing.SearchParams{
		Start:           start,
		Dest:            dest,
		StartTime:       req.EarliestDepartureTime.Unix(),
		Reverse:         req.ArriveBy,
		ProfileQuery:    req.ProfileQuery,
		IgnoreTransfers: req.IgnoreTransfers,
		LimitSolutions:  req.LimitSolutions,
		MaxVisitedNodes: req.MaxVisitedNodes,
	})
	routingDur := time.Since(routingStart)

	rec := routing.NewReconstructor(e.graph, qg, e.feed, overlay, req.ArriveBy, req.WalkSpeedKmH)
	itineraries := make([]routing.Itinerary, 0, len(result.Solutions))
	for _, id := range result.Solutions {
		it := rec.Itinerary(arena, id)
		itineraries = append(itineraries, it)
		if emit != nil && !emit(it) {
			break
		}
	}
	sort.SliceStable(itineraries, func(i, j int) bool {
		di := itineraries[i].ArrivalTime - itineraries[i].DepartureTime
		dj := itineraries[j].ArrivalTime - itineraries[j].DepartureTime
		return di < dj
	})

	// sum counts every pass (access pre-passes plus the main search); the
	// average is per pass rather than a second copy of the sum
	visitedSum := result.VisitedNodes + accessVisited
	passes := 1 + len(jobs)
	hints := map[string]interface{}{
		"idLookup":              lookupDur.String(),
		"routing":               routingDur.String(),
		"visited_nodes.sum":     visitedSum,
		"visited_nodes.average": float64(visitedSum) / float64(passes),
	}
	if len(itineraries) == 0 {
		hints["no_path"] = true
	}
	if result.Exhausted {
		// non-fatal: partial results plus a hint
		hints["resource_exhausted"] = true
	}

	e.log.Info("answered trip query",
		zap.Int("solutions", len(itineraries)),
		zap.Int("visitedNodes", result.VisitedNodes),
		zap.Bool("arriveBy", req.ArriveBy),
		zap.Duration("routing", routingDur))

	return &Response{Itineraries: itineraries, Hints: hints}, nil
}

func (e *Engine) materializeAccess(qg *routing.QueryGraph, endpoint datastructure.Index,
	egress bool, edges []routing.AccessEdge) {
	for _, a := range edges {
		if egress {
			qg.AddVirtualEdge(routing.VirtualEdge{
				From: a.Node, To: endpoint, Type: pkg.EXIT_PT,
				Time: a.Time, Distance: a.Distance, Geometry: a.Geometry,
			})
			continue
		}
		qg.AddVirtualEdge(routing.VirtualEdge{
			From: endpoint, To: a.Node, Type: pkg.ENTER_PT,
			Time: a.Time, Distance: a.Distance, Geometry: a.Geometry,
		})
	}
}

// DepartureInfo one row of the live departures board.
type DepartureInfo struct {
	TripID    string    `json:"trip_id"`
	RouteID   string    `json:"route_id"`
	RouteName string    `json:"route_name"`
	Headsign  string    `json:"headsign"`
	Scheduled time.Time `json:"scheduled"`
	Realized  time.Time `json:"realized"`
	Cancelled bool      `json:"cancelled"`
}

// LiveDepartures the next scheduled departures at a stop from instant at,
// with realtime delays and cancellations applied. Scans at most two service
// days ahead.
func (e *Engine) LiveDepartures(stopID string, at time.Time, limit int) ([]DepartureInfo, error) {
	if _, ok := e.feed.StopIndex(stopID); !ok {
		return nil, util.WrapErrorf(nil, util.ErrNotFound, "unknown stop id %q", stopID)
	}

	var overlay *realtime.Overlay
	if e.rt != nil {
		overlay = e.rt.Snapshot()
	}
	epoch := e.graph.GetEpoch()
	day := pkg.SECONDS_PER_DAY
	deps := e.feed.DeparturesAtStop(stopID)

	out := make([]DepartureInfo, 0, limit)
	startDay := util.FloorDiv(at.Unix()-epoch, day)
	for d := startDay; d < startDay+2 && len(out) < limit; d++ {
		if d < 0 || d >= int64(e.graph.GetNumServiceDays()) {
			continue
		}
		for _, dep := range deps {
			if len(out) >= limit {
				break
			}
			scheduled := epoch + d*day + int64(dep.Departure)
			if scheduled < at.Unix() {
				continue
			}
			serviceDay := int(d) - dep.DayShift
			if serviceDay < 0 {
				continue
			}
			trip := &e.feed.Trips[dep.TripIdx]
			if v, ok := e.validity[trip.ServiceID]; ok && !v.Get(serviceDay) {
				continue
			}
			info := DepartureInfo{
				TripID:    trip.ID,
				Headsign:  trip.Headsign,
				Scheduled: time.Unix(scheduled, 0).UTC(),
				Realized:  time.Unix(scheduled, 0).UTC(),
			}
			if route := e.feed.RouteOfTrip(dep.TripIdx); route != nil {
				info.RouteID = route.ID
				info.RouteName = route.ShortName
			}
			if overlay != nil {
				tripIdx := datastructure.Index(dep.TripIdx)
				info.Cancelled = overlay.IsCancelled(tripIdx, serviceDay)
				delay := overlay.DelayAt(tripIdx, int32(dep.StopSeq)).Departure
				info.Realized = time.Unix(scheduled+int64(delay), 0).UTC()
			}
			out = append(out, info)
		}
	}
	return out, nil
}

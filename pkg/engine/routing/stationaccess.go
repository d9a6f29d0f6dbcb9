package routing

import (
	"github.com/tripweaver/tripweaver/pkg"
	"github.com/tripweaver/tripweaver/pkg/datastructure"
	"github.com/tripweaver/tripweaver/pkg/geo"
)

// AccessEdge one station boundary reachable on foot from a query endpoint:
// the pt enter node (forward) or exit node (reverse), with the walking time,
// distance and geometry of the reconstructed path. Materialized into a
// virtual edge for the main search.
type AccessEdge struct {
	Node     datastructure.Index
	Time     int32
	Distance float64
	Geometry []geo.Coordinate
}

// station-access pass bound; the walk budget usually prunes first
const maxAccessVisitedNodes = 100_000

// FindStationAccess runs the short walk-restricted label-setting pass from a
// snapped walk node. The pass expands HIGHWAY edges plus the ENTER_PT
// boundary (EXIT_PT when reverse), with transfers disabled; every label whose
// incident edge crosses the boundary becomes one access edge. Labels compete
// on time alone here. Returns the access edges and the pass's visit count.
func FindStationAccess(graph *datastructure.Graph, qg *QueryGraph,
	from datastructure.Index, reverse bool,
	walkSpeedKmH, maxWalkDistancePerLeg float64) ([]AccessEdge, int) {

	explorer := NewWalkExplorer(graph, qg, reverse)
	cm := NewCostModel(graph, nil, reverse, walkSpeedKmH,
		maxWalkDistancePerLeg, maxWalkDistancePerLeg)
	arena := NewArena()

	boundary := pkg.ENTER_PT
	if reverse {
		boundary = pkg.EXIT_PT
	}

	startID := arena.Add(Label{
		node:                 from,
		firstPtDepartureTime: -1,
		parent:               NO_LABEL,
		edge:                 NoEdge(),
	})

	queue := datastructure.NewFourAryHeap[int32]()
	seq := int64(0)
	push := func(id int32) {
		l := arena.At(id)
		t := l.time
		if reverse {
			t = -t
		}
		seq++
		queue.Insert(datastructure.NewPriorityQueueNode(
			datastructure.NewCriterionRank(t, 0, seq), id))
	}
	push(startID)

	bestTime := map[datastructure.Index]int64{from: 0}
	results := make([]AccessEdge, 0)
	visited := 0

	for !queue.IsEmpty() {
		qn, err := queue.ExtractMin()
		if err != nil {
			break
		}
		id := qn.GetItem()
		l := arena.At(id)
		if t, ok := bestTime[l.node]; ok && t != l.time {
			continue // stale entry
		}
		visited++
		if visited > maxAccessVisitedNodes {
			break
		}

		if l.edge.Exists() && edgeTypeOf(explorer, l.edge) == boundary {
			results = append(results, AccessEdge{
				Node:     l.node,
				Time:     int32(absDiff(l.time, 0)),
				Distance: pathWalkDistance(explorer, arena, id),
				Geometry: pathGeometry(explorer, qg, arena, id, reverse),
			})
			continue
		}

		explorer.ForAdjacentEdges(l.node, func(ev *EdgeView) bool {
			cur := arena.At(id)
			tr, ok := cm.Traverse(ev, cur, -1)
			if !ok {
				return true
			}
			n := explorer.Neighbor(ev)
			if t, seen := bestTime[n]; seen && !betterAccessTime(tr.Time, t, reverse) {
				return true
			}
			bestTime[n] = tr.Time
			succID := arena.Add(Label{
				node:                     n,
				time:                     tr.Time,
				walkDistanceOnCurrentLeg: tr.WalkDistanceOnLeg,
				firstPtDepartureTime:     -1,
				parent:                   id,
				edge:                     ev.Ref,
			})
			push(succID)
			return true
		})
	}
	return results, visited
}

func betterAccessTime(t, best int64, reverse bool) bool {
	if reverse {
		return t > best
	}
	return t < best
}

func edgeTypeOf(ex *Explorer, r EdgeRef) pkg.EdgeType {
	if r.ID != datastructure.INVALID_EDGE_ID {
		return ex.graph.GetEdge(r.ID).GetType()
	}
	if r.Virtual >= 0 {
		return ex.qg.VirtualEdge(r.Virtual).Type
	}
	return pkg.HIGHWAY
}

func pathWalkDistance(ex *Explorer, arena *Arena, id int32) float64 {
	total := 0.0
	for cur := id; cur != NO_LABEL; cur = arena.At(cur).parent {
		r := arena.At(cur).edge
		if r.ID != datastructure.INVALID_EDGE_ID {
			total += ex.graph.GetEdge(r.ID).GetDistance()
		} else if r.Virtual >= 0 {
			total += ex.qg.VirtualEdge(r.Virtual).Distance
		}
	}
	return total
}

// pathGeometry coordinates along the walk path in travel order.
func pathGeometry(ex *Explorer, qg *QueryGraph, arena *Arena, id int32, reverse bool) []geo.Coordinate {
	coords := make([]geo.Coordinate, 0)
	for cur := id; cur != NO_LABEL; cur = arena.At(cur).parent {
		coords = append(coords, qg.NodeCoordinate(arena.At(cur).node))
	}
	if !reverse {
		// chain is dest-to-origin, flip into travel order
		for i, j := 0, len(coords)-1; i < j; i, j = i+1, j-1 {
			coords[i], coords[j] = coords[j], coords[i]
		}
	}
	return coords
}

package routing

import (
	"github.com/tripweaver/tripweaver/pkg"
	"github.com/tripweaver/tripweaver/pkg/datastructure"
	"github.com/tripweaver/tripweaver/pkg/geo"
	"github.com/tripweaver/tripweaver/pkg/spatialindex"
)

// VirtualEdge a query-scoped edge: endpoint binding (edge split at the snap
// projection), a direct walk stub, or a materialized station-access path.
type VirtualEdge struct {
	From, To datastructure.Index
	Type     pkg.EdgeType
	Time     int32 // traversal seconds, precomputed at the query walk speed
	Distance float64
	Geometry []geo.Coordinate
}

// QueryGraph transient augmentation of the read-only base graph: virtual
// nodes above the base node count plus virtual adjacency consulted after the
// base edges. Immutable once the main search starts.
type QueryGraph struct {
	base *datastructure.Graph

	virtualCoords map[datastructure.Index]geo.Coordinate
	virtualEdges  []VirtualEdge
	outVirtual    map[datastructure.Index][]int32
	inVirtual     map[datastructure.Index][]int32

	nextNodeID datastructure.Index
}

func NewQueryGraph(base *datastructure.Graph) *QueryGraph {
	n := datastructure.Index(base.NumberOfNodes())
	return &QueryGraph{
		base:          base,
		virtualCoords: make(map[datastructure.Index]geo.Coordinate),
		outVirtual:    make(map[datastructure.Index][]int32),
		inVirtual:     make(map[datastructure.Index][]int32),
		// endpoint ids live in a reserved band right above the base nodes;
		// split nodes are allocated past it
		nextNodeID: n + datastructure.Index(pkg.VIRTUAL_NODE_ID_GAP) + 2,
	}
}

// EndpointNode the reserved virtual node id of query endpoint index (0-based).
func (q *QueryGraph) EndpointNode(index int, at geo.Coordinate) datastructure.Index {
	id := datastructure.Index(q.base.NumberOfNodes()) +
		datastructure.Index(pkg.VIRTUAL_NODE_ID_GAP) + datastructure.Index(index)
	q.virtualCoords[id] = at
	return id
}

func (q *QueryGraph) IsVirtual(node datastructure.Index) bool {
	return int(node) >= q.base.NumberOfNodes()
}

func (q *QueryGraph) addVirtualNode(at geo.Coordinate) datastructure.Index {
	id := q.nextNodeID
	q.nextNodeID++
	q.virtualCoords[id] = at
	return id
}

// AddVirtualEdge registers a one-directional virtual edge and returns its
// index.
func (q *QueryGraph) AddVirtualEdge(ve VirtualEdge) int32 {
	id := int32(len(q.virtualEdges))
	q.virtualEdges = append(q.virtualEdges, ve)
	q.outVirtual[ve.From] = append(q.outVirtual[ve.From], id)
	q.inVirtual[ve.To] = append(q.inVirtual[ve.To], id)
	return id
}

func (q *QueryGraph) VirtualEdge(id int32) *VirtualEdge {
	return &q.virtualEdges[id]
}

func (q *QueryGraph) OutVirtual(node datastructure.Index) []int32 {
	return q.outVirtual[node]
}

func (q *QueryGraph) InVirtual(node datastructure.Index) []int32 {
	return q.inVirtual[node]
}

// NodeCoordinate resolves virtual and base node coordinates alike.
func (q *QueryGraph) NodeCoordinate(node datastructure.Index) geo.Coordinate {
	if c, ok := q.virtualCoords[node]; ok {
		return c
	}
	lat, lon := q.base.GetNodeCoordinates(node)
	return geo.NewCoordinate(lat, lon)
}

// BindCoordinate splits the snapped walk edge at the projection point: a new
// split node connected to both split-edge endpoints in both directions, plus
// a walk stub between the endpoint's virtual node and the split node.
// Returns the split node.
func (q *QueryGraph) BindCoordinate(endpoint datastructure.Index, at geo.Coordinate,
	snap spatialindex.Snap, walkSpeedMS float64) datastructure.Index {

	e := q.base.GetEdge(snap.EdgeID)
	split := q.addVirtualNode(snap.Projection)

	q.addWalkPair(split, e.GetFrom(), snap.DistToFrom, walkSpeedMS)
	q.addWalkPair(split, e.GetTo(), snap.DistToTo, walkSpeedMS)

	stub := geo.HaversineMeters(at.Lat, at.Lon, snap.Projection.Lat, snap.Projection.Lon)
	q.addWalkPair(endpoint, split, stub, walkSpeedMS)

	return split
}

func (q *QueryGraph) addWalkPair(u, v datastructure.Index, dist, walkSpeedMS float64) {
	t := walkSeconds(dist, walkSpeedMS)
	q.AddVirtualEdge(VirtualEdge{From: u, To: v, Type: pkg.HIGHWAY, Time: t, Distance: dist,
		Geometry: []geo.Coordinate{q.NodeCoordinate(u), q.NodeCoordinate(v)}})
	q.AddVirtualEdge(VirtualEdge{From: v, To: u, Type: pkg.HIGHWAY, Time: t, Distance: dist,
		Geometry: []geo.Coordinate{q.NodeCoordinate(v), q.NodeCoordinate(u)}})
}

func walkSeconds(distMeters, walkSpeedMS float64) int32 {
	if walkSpeedMS <= 0 {
		return 0
	}
	return int32(distMeters/walkSpeedMS + 0.5)
}

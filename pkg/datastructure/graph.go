package datastructure

import (
	"github.com/tripweaver/tripweaver/pkg"
)

type NodeKind uint8

const (
	STREET_NODE NodeKind = iota
	STATION_NODE
	PT_ENTER_NODE
	PT_EXIT_NODE
	DEPARTURE_TIMELINE_NODE
	ARRIVAL_TIMELINE_NODE
	TRIP_DEPARTURE_NODE
	TRIP_ARRIVAL_NODE
)

// Node. time-expanded nodes carry a schedule anchor (time of day in seconds);
// street/station/enter/exit nodes are free (anchor == -1).
type Node struct {
	lat, lon float64
	kind     NodeKind
	anchor   int32
	stopIdx  Index
}

func NewNode(lat, lon float64, kind NodeKind, anchor int32, stopIdx Index) Node {
	return Node{lat: lat, lon: lon, kind: kind, anchor: anchor, stopIdx: stopIdx}
}

func (n *Node) GetLat() float64 {
	return n.lat
}

func (n *Node) GetLon() float64 {
	return n.lon
}

func (n *Node) GetKind() NodeKind {
	return n.kind
}

// GetAnchor time-of-day anchor in [0, 86400), or -1 for free nodes
func (n *Node) GetAnchor() int32 {
	return n.anchor
}

func (n *Node) IsAnchored() bool {
	return n.anchor >= 0
}

func (n *Node) GetStopIdx() Index {
	return n.stopIdx
}

// Edge of the directed multigraph. time is the fixed duration in seconds for
// duration-typed edges; schedule-bound traversal cost is derived from the
// endpoint anchors. distance in meters.
type Edge struct {
	id          Index
	from, to    Index
	edgeType    pkg.EdgeType
	time        int32
	distance    float64
	reverseEdge Index
	tripIdx     Index
	stopSeq     int32
	validity    *Bitset
}

func NewEdge(id, from, to Index, edgeType pkg.EdgeType, time int32, distance float64) Edge {
	return Edge{
		id: id, from: from, to: to, edgeType: edgeType,
		time: time, distance: distance,
		reverseEdge: INVALID_EDGE_ID, tripIdx: INVALID_NODE_ID, stopSeq: -1,
	}
}

func (e *Edge) GetID() Index {
	return e.id
}

func (e *Edge) GetFrom() Index {
	return e.from
}

func (e *Edge) GetTo() Index {
	return e.to
}

func (e *Edge) GetType() pkg.EdgeType {
	return e.edgeType
}

func (e *Edge) GetTime() int32 {
	return e.time
}

func (e *Edge) GetDistance() float64 {
	return e.distance
}

func (e *Edge) GetReverseEdge() Index {
	return e.reverseEdge
}

func (e *Edge) GetTripIdx() Index {
	return e.tripIdx
}

func (e *Edge) GetStopSeq() int32 {
	return e.stopSeq
}

func (e *Edge) GetValidity() *Bitset {
	return e.validity
}

func (e *Edge) SetTrip(tripIdx Index, stopSeq int32) {
	e.tripIdx = tripIdx
	e.stopSeq = stopSeq
}

func (e *Edge) SetValidity(v *Bitset) {
	e.validity = v
}

// Graph directed multigraph over street + time-expanded transit nodes.
// read-only after build.
type Graph struct {
	nodes    []Node
	edges    []Edge
	outEdges [][]Index
	inEdges  [][]Index

	// station node per gtfs stop_id, for station-located query points
	stationNodes map[string]Index

	// feed epoch: unix seconds of midnight of the first service day
	epoch int64
	// number of service days covered by validity bitsets
	numServiceDays int
}

func NewGraph() *Graph {
	return &Graph{
		stationNodes: make(map[string]Index),
	}
}

func (g *Graph) SetEpoch(epoch int64, numServiceDays int) {
	g.epoch = epoch
	g.numServiceDays = numServiceDays
}

func (g *Graph) GetEpoch() int64 {
	return g.epoch
}

func (g *Graph) GetNumServiceDays() int {
	return g.numServiceDays
}

func (g *Graph) NumberOfNodes() int {
	return len(g.nodes)
}

func (g *Graph) NumberOfEdges() int {
	return len(g.edges)
}

func (g *Graph) AddNode(n Node) Index {
	id := Index(len(g.nodes))
	g.nodes = append(g.nodes, n)
	g.outEdges = append(g.outEdges, nil)
	g.inEdges = append(g.inEdges, nil)
	return id
}

func (g *Graph) AddEdge(from, to Index, edgeType pkg.EdgeType, time int32, distance float64) *Edge {
	id := Index(len(g.edges))
	g.edges = append(g.edges, NewEdge(id, from, to, edgeType, time, distance))
	g.outEdges[from] = append(g.outEdges[from], id)
	g.inEdges[to] = append(g.inEdges[to], id)
	return &g.edges[id]
}

// AddEdgePair adds a bidirectional pair of edges linked through reverseEdge.
func (g *Graph) AddEdgePair(from, to Index, edgeType pkg.EdgeType, time int32, distance float64) (*Edge, *Edge) {
	fw := g.AddEdge(from, to, edgeType, time, distance)
	fwID := fw.GetID()
	bw := g.AddEdge(to, from, edgeType, time, distance)
	g.edges[fwID].reverseEdge = bw.GetID()
	bw.reverseEdge = fwID
	return &g.edges[fwID], bw
}

func (g *Graph) GetNode(id Index) *Node {
	return &g.nodes[id]
}

func (g *Graph) GetEdge(id Index) *Edge {
	return &g.edges[id]
}

func (g *Graph) GetNodeCoordinates(id Index) (float64, float64) {
	n := &g.nodes[id]
	return n.lat, n.lon
}

func (g *Graph) GetOutEdges(node Index) []Index {
	return g.outEdges[node]
}

func (g *Graph) GetInEdges(node Index) []Index {
	return g.inEdges[node]
}

func (g *Graph) ForOutEdges(node Index, fn func(e *Edge)) {
	for _, eid := range g.outEdges[node] {
		fn(&g.edges[eid])
	}
}

func (g *Graph) ForInEdges(node Index, fn func(e *Edge)) {
	for _, eid := range g.inEdges[node] {
		fn(&g.edges[eid])
	}
}

// ForWalkEdges iterates all HIGHWAY edges, used to build the spatial index.
func (g *Graph) ForWalkEdges(fn func(e *Edge)) {
	for i := range g.edges {
		if g.edges[i].edgeType == pkg.HIGHWAY {
			fn(&g.edges[i])
		}
	}
}

func (g *Graph) SetStationNode(stopID string, node Index) {
	g.stationNodes[stopID] = node
}

func (g *Graph) GetStationNode(stopID string) (Index, bool) {
	n, ok := g.stationNodes[stopID]
	return n, ok
}

func (g *Graph) StationNodes() map[string]Index {
	return g.stationNodes
}

package routing

import (
	"github.com/tripweaver/tripweaver/pkg"
	"github.com/tripweaver/tripweaver/pkg/datastructure"
	"github.com/tripweaver/tripweaver/pkg/realtime"
)

// Explorer the query-time view over the base graph: merged adjacency of base
// edges, realtime extra edges and virtual query edges, oriented by the search
// direction. walkOnly restricts the view to the street network plus the
// station boundary, for the access pre-pass.
type Explorer struct {
	graph    *datastructure.Graph
	qg       *QueryGraph
	overlay  *realtime.Overlay
	reverse  bool
	walkOnly bool
}

func NewExplorer(graph *datastructure.Graph, qg *QueryGraph, overlay *realtime.Overlay,
	reverse bool) *Explorer {
	return &Explorer{graph: graph, qg: qg, overlay: overlay, reverse: reverse}
}

// NewWalkExplorer explorer restricted to HIGHWAY edges and the ENTER_PT /
// EXIT_PT boundary.
func NewWalkExplorer(graph *datastructure.Graph, qg *QueryGraph, reverse bool) *Explorer {
	return &Explorer{graph: graph, qg: qg, reverse: reverse, walkOnly: true}
}

func (ex *Explorer) Reverse() bool {
	return ex.reverse
}

func (ex *Explorer) admits(t pkg.EdgeType) bool {
	if !ex.walkOnly {
		return true
	}
	switch t {
	case pkg.HIGHWAY, pkg.ENTER_PT, pkg.EXIT_PT:
		return true
	}
	return false
}

// ForAdjacentEdges yields every crossable edge at node: base adjacency first,
// then realtime extras, then virtual query edges. fn returns false to stop.
func (ex *Explorer) ForAdjacentEdges(node datastructure.Index, fn func(ev *EdgeView) bool) {
	if int(node) < ex.graph.NumberOfNodes() {
		if !ex.forBaseEdges(node, fn) {
			return
		}
		if ex.overlay != nil && !ex.forExtraEdges(node, fn) {
			return
		}
	}
	if ex.qg != nil {
		ex.forVirtualEdges(node, fn)
	}
}

func (ex *Explorer) forBaseEdges(node datastructure.Index, fn func(ev *EdgeView) bool) bool {
	ids := ex.graph.GetOutEdges(node)
	if ex.reverse {
		ids = ex.graph.GetInEdges(node)
	}
	for _, eid := range ids {
		e := ex.graph.GetEdge(eid)
		if !ex.admits(e.GetType()) {
			continue
		}
		ev := EdgeView{
			Ref:      BaseEdge(eid),
			From:     e.GetFrom(),
			To:       e.GetTo(),
			Type:     e.GetType(),
			Time:     e.GetTime(),
			Distance: e.GetDistance(),
			TripIdx:  e.GetTripIdx(),
			StopSeq:  e.GetStopSeq(),
			Validity: e.GetValidity(),
		}
		if !fn(&ev) {
			return false
		}
	}
	return true
}

func (ex *Explorer) forExtraEdges(node datastructure.Index, fn func(ev *EdgeView) bool) bool {
	ids := ex.overlay.ExtraOut(node)
	if ex.reverse {
		ids = ex.overlay.ExtraIn(node)
	}
	for _, id := range ids {
		e := ex.overlay.ExtraEdge(id)
		if !ex.admits(e.Type) {
			continue
		}
		ev := EdgeView{
			Ref:      EdgeRef{ID: datastructure.INVALID_EDGE_ID, Virtual: -1, Extra: id},
			From:     e.From,
			To:       e.To,
			Type:     e.Type,
			Time:     e.Time,
			Distance: e.Distance,
			TripIdx:  e.TripIdx,
			StopSeq:  e.StopSeq,
		}
		if !fn(&ev) {
			return false
		}
	}
	return true
}

func (ex *Explorer) forVirtualEdges(node datastructure.Index, fn func(ev *EdgeView) bool) bool {
	ids := ex.qg.OutVirtual(node)
	if ex.reverse {
		ids = ex.qg.InVirtual(node)
	}
	for _, id := range ids {
		ve := ex.qg.VirtualEdge(id)
		if !ex.admits(ve.Type) {
			continue
		}
		ev := EdgeView{
			Ref:      EdgeRef{ID: datastructure.INVALID_EDGE_ID, Virtual: id, Extra: -1},
			From:     ve.From,
			To:       ve.To,
			Type:     ve.Type,
			Time:     ve.Time,
			Distance: ve.Distance,
			TripIdx:  datastructure.INVALID_NODE_ID,
			StopSeq:  -1,
		}
		if !fn(&ev) {
			return false
		}
	}
	return true
}

// StopSeqOf the stop sequence carried by the referenced edge, -1 when the
// edge has no trip context.
func (ex *Explorer) StopSeqOf(r EdgeRef) int32 {
	if r.ID != datastructure.INVALID_EDGE_ID {
		return ex.graph.GetEdge(r.ID).GetStopSeq()
	}
	if r.Extra >= 0 && ex.overlay != nil {
		return ex.overlay.ExtraEdge(r.Extra).StopSeq
	}
	return -1
}

// Neighbor the node on the far side of ev under the current direction.
func (ex *Explorer) Neighbor(ev *EdgeView) datastructure.Index {
	if ex.reverse {
		return ev.From
	}
	return ev.To
}

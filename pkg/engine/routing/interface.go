package routing

import (
	"github.com/tripweaver/tripweaver/pkg/datastructure"
)

// GraphExplorer enumerates the edges incident to a node in the query-time
// view: base adjacency first, then realtime extras, then virtual edges.
type GraphExplorer interface {
	Reverse() bool
	ForAdjacentEdges(node datastructure.Index, fn func(ev *EdgeView) bool)
	StopSeqOf(r EdgeRef) int32
	Neighbor(ev *EdgeView) datastructure.Index
}

// TransitionModel prices one edge crossing against the label that reaches
// it. ok=false rejects the crossing outright (budget exceeded, no valid
// departure, trip cancelled).
type TransitionModel interface {
	Traverse(ev *EdgeView, l *Label, prevSeq int32) (Transition, bool)
}

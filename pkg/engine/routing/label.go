package routing

import (
	"github.com/tripweaver/tripweaver/pkg/datastructure"
)

const NO_LABEL int32 = -1

// Label one state of the multi-criteria search: an instant reached at a node
// together with the criteria accumulated along the path and a back-pointer
// into the arena. Labels are immutable once inserted.
type Label struct {
	node datastructure.Index
	// absolute unix seconds; monotone non-decreasing along a forward path,
	// non-increasing along a reverse path
	time       int64
	nTransfers int32
	// meters walked since the last leg boundary, checked against the
	// applicable per-leg budget
	walkDistanceOnCurrentLeg float64
	// departure instant of the first boarding on the path, -1 until the
	// path boards for the first time
	firstPtDepartureTime int64
	parent               int32
	// edge consumed to reach node: base graph edge id, or a virtual edge
	edge EdgeRef
}

func (l *Label) GetNode() datastructure.Index {
	return l.node
}

func (l *Label) GetTime() int64 {
	return l.time
}

func (l *Label) GetTransfers() int32 {
	return l.nTransfers
}

func (l *Label) GetWalkDistanceOnCurrentLeg() float64 {
	return l.walkDistanceOnCurrentLeg
}

func (l *Label) GetFirstPtDepartureTime() int64 {
	return l.firstPtDepartureTime
}

func (l *Label) GetParent() int32 {
	return l.parent
}

func (l *Label) GetEdge() EdgeRef {
	return l.edge
}

// EdgeRef identifies the edge a label crossed: a base graph edge, a
// query-time virtual edge, or a realtime extra edge.
type EdgeRef struct {
	ID      datastructure.Index
	Virtual int32 // index into the query graph's virtual edges, -1 otherwise
	Extra   int32 // index into the overlay's extra edges, -1 otherwise
}

func NoEdge() EdgeRef {
	return EdgeRef{ID: datastructure.INVALID_EDGE_ID, Virtual: -1, Extra: -1}
}

func BaseEdge(id datastructure.Index) EdgeRef {
	return EdgeRef{ID: id, Virtual: -1, Extra: -1}
}

func (r EdgeRef) IsVirtual() bool {
	return r.Virtual >= 0
}

func (r EdgeRef) IsExtra() bool {
	return r.Extra >= 0
}

func (r EdgeRef) Exists() bool {
	return r.ID != datastructure.INVALID_EDGE_ID || r.Virtual >= 0 || r.Extra >= 0
}

// Arena owns every label of one query. Parent references are stable indices
// so the whole search tree is dropped in one deallocation at query end.
type Arena struct {
	labels []Label
}

func NewArena() *Arena {
	return &Arena{labels: make([]Label, 0, 1024)}
}

func (a *Arena) Add(l Label) int32 {
	a.labels = append(a.labels, l)
	return int32(len(a.labels) - 1)
}

func (a *Arena) At(id int32) *Label {
	return &a.labels[id]
}

func (a *Arena) Size() int {
	return len(a.labels)
}

// Domination compares labels under the active criteria set.
type Domination struct {
	reverse         bool
	ignoreTransfers bool
	profileQuery    bool
}

func NewDomination(reverse, ignoreTransfers, profileQuery bool) Domination {
	return Domination{reverse: reverse, ignoreTransfers: ignoreTransfers, profileQuery: profileQuery}
}

// betterTime whether t1 is strictly preferable to t2: earlier arrival in
// forward search, later departure in reverse search.
func (d Domination) betterTime(t1, t2 int64) bool {
	if d.reverse {
		return t1 > t2
	}
	return t1 < t2
}

// betterFirstPt a later first boarding is preferable forward (leave home
// later), an earlier one in reverse. Unset (-1) compares as worst.
func (d Domination) betterFirstPt(t1, t2 int64) bool {
	if t1 == t2 {
		return false
	}
	if t1 < 0 {
		return false
	}
	if t2 < 0 {
		return true
	}
	if d.reverse {
		return t1 < t2
	}
	return t1 > t2
}

// Dominates weak domination: a is no worse than b in every criterion and
// strictly better in at least one.
func (d Domination) Dominates(a, b *Label) bool {
	strict := false

	if d.betterTime(a.time, b.time) {
		strict = true
	} else if a.time != b.time {
		return false
	}

	if !d.ignoreTransfers {
		if a.nTransfers < b.nTransfers {
			strict = true
		} else if a.nTransfers > b.nTransfers {
			return false
		}
	}

	if a.walkDistanceOnCurrentLeg < b.walkDistanceOnCurrentLeg {
		strict = true
	} else if a.walkDistanceOnCurrentLeg > b.walkDistanceOnCurrentLeg {
		return false
	}

	if d.profileQuery {
		if d.betterFirstPt(a.firstPtDepartureTime, b.firstPtDepartureTime) {
			strict = true
		} else if a.firstPtDepartureTime != b.firstPtDepartureTime &&
			d.betterFirstPt(b.firstPtDepartureTime, a.firstPtDepartureTime) {
			return false
		}
	}

	return strict
}

// Equal all criteria identical.
func (d Domination) Equal(a, b *Label) bool {
	if a.time != b.time || a.walkDistanceOnCurrentLeg != b.walkDistanceOnCurrentLeg {
		return false
	}
	if !d.ignoreTransfers && a.nTransfers != b.nTransfers {
		return false
	}
	if d.profileQuery && a.firstPtDepartureTime != b.firstPtDepartureTime {
		return false
	}
	return true
}

// ParetoFront non-dominated labels seen at one node.
type ParetoFront struct {
	labels []int32
}

// Insert returns false when the candidate is dominated (or duplicated while
// duplicates are not kept); otherwise evicts labels the candidate dominates
// and appends it.
func (f *ParetoFront) Insert(arena *Arena, d Domination, id int32, keepTies bool) bool {
	cand := arena.At(id)
	for _, existing := range f.labels {
		ex := arena.At(existing)
		if d.Dominates(ex, cand) {
			return false
		}
		if d.Equal(ex, cand) && !keepTies {
			return false
		}
	}
	kept := f.labels[:0]
	for _, existing := range f.labels {
		if !d.Dominates(cand, arena.At(existing)) {
			kept = append(kept, existing)
		}
	}
	f.labels = append(kept, id)
	return true
}

func (f *ParetoFront) Labels() []int32 {
	return f.labels
}

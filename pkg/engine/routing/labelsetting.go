package routing

import (
	"github.com/tripweaver/tripweaver/pkg"
	"github.com/tripweaver/tripweaver/pkg/datastructure"
)

// SearchParams one search run over the query-time view.
type SearchParams struct {
	Start     datastructure.Index
	Dest      datastructure.Index
	StartTime int64

	Reverse         bool
	ProfileQuery    bool
	IgnoreTransfers bool

	// 0 means unbounded
	LimitSolutions  int
	MaxVisitedNodes int
}

type SearchResult struct {
	// arena ids of the terminal labels, Pareto-filtered, in emission order
	Solutions    []int32
	VisitedNodes int
	// the visit budget ran out; Solutions holds whatever was emitted so far
	Exhausted bool
}

// LabelSetting multi-criteria label-setting search: a priority queue of open
// labels keyed lexicographically by (time, nTransfers), a Pareto front per
// node, and explicit termination predicates checked after each pop.
type LabelSetting struct {
	explorer GraphExplorer
	cm       TransitionModel
	arena    *Arena

	dom    Domination
	fronts map[datastructure.Index]*ParetoFront
	queue  *datastructure.MinHeap[int32]
	seq    int64
}

func NewLabelSetting(explorer GraphExplorer, cm TransitionModel, arena *Arena) *LabelSetting {
	return &LabelSetting{
		explorer: explorer,
		cm:       cm,
		arena:    arena,
		fronts:   make(map[datastructure.Index]*ParetoFront),
		queue:    datastructure.NewFourAryHeap[int32](),
	}
}

func (ls *LabelSetting) rank(l *Label) datastructure.CriterionRank {
	t := l.time
	if ls.explorer.Reverse() {
		t = -t
	}
	ls.seq++
	return datastructure.NewCriterionRank(t, l.nTransfers, ls.seq)
}

func (ls *LabelSetting) push(id int32) {
	l := ls.arena.At(id)
	ls.queue.Insert(datastructure.NewPriorityQueueNode(ls.rank(l), id))
}

func (ls *LabelSetting) front(node datastructure.Index) *ParetoFront {
	f, ok := ls.fronts[node]
	if !ok {
		f = &ParetoFront{}
		ls.fronts[node] = f
	}
	return f
}

// Run executes the main loop until a termination predicate fires.
func (ls *LabelSetting) Run(p SearchParams) SearchResult {
	ls.dom = NewDomination(p.Reverse, p.IgnoreTransfers, p.ProfileQuery)
	keepTies := p.ProfileQuery
	maxVisited := p.MaxVisitedNodes
	if maxVisited <= 0 {
		maxVisited = pkg.DEFAULT_MAX_VISITED_NODES
	}

	start := Label{
		node:                 p.Start,
		time:                 p.StartTime,
		firstPtDepartureTime: -1,
		parent:               NO_LABEL,
		edge:                 NoEdge(),
	}
	startID := ls.arena.Add(start)
	ls.front(p.Start).Insert(ls.arena, ls.dom, startID, keepTies)
	ls.push(startID)

	var res SearchResult
	for !ls.queue.IsEmpty() {
		qn, err := ls.queue.ExtractMin()
		if err != nil {
			break
		}
		id := qn.GetItem()
		l := ls.arena.At(id)

		res.VisitedNodes++
		if res.VisitedNodes > maxVisited {
			res.Exhausted = true
			break
		}

		if l.node == p.Dest {
			res.Solutions = append(res.Solutions, id)
			if p.LimitSolutions > 0 && len(res.Solutions) >= p.LimitSolutions {
				break
			}
			continue
		}

		if p.ProfileQuery && len(res.Solutions) > 0 &&
			absDiff(l.time, p.StartTime) > pkg.SECONDS_PER_DAY {
			break
		}

		ls.expand(id, keepTies)
	}

	res.Solutions = ls.paretoFilter(res.Solutions)
	ls.debugCheckFronts()
	return res
}

func (ls *LabelSetting) debugCheckFronts() {
	if pkg.DEBUG {
		for _, f := range ls.fronts {
			labels := f.Labels()
			for i, a := range labels {
				for j, b := range labels {
					if i != j && ls.dom.Dominates(ls.arena.At(a), ls.arena.At(b)) {
						panic("dominated label survived in a pareto front")
					}
				}
			}
		}
	}
}

func (ls *LabelSetting) expand(id int32, keepTies bool) {
	ls.explorer.ForAdjacentEdges(ls.arena.At(id).node, func(ev *EdgeView) bool {
		l := ls.arena.At(id)
		tr, ok := ls.cm.Traverse(ev, l, ls.explorer.StopSeqOf(l.edge))
		if !ok {
			return true
		}
		succ := Label{
			node:                     ls.explorer.Neighbor(ev),
			time:                     tr.Time,
			nTransfers:               tr.NTransfers,
			walkDistanceOnCurrentLeg: tr.WalkDistanceOnLeg,
			firstPtDepartureTime:     tr.FirstPtDepartureTime,
			parent:                   id,
			edge:                     ev.Ref,
		}
		succID := ls.arena.Add(succ)
		if !ls.front(succ.node).Insert(ls.arena, ls.dom, succID, keepTies) {
			return true
		}
		ls.push(succID)
		return true
	})
}

// paretoFilter drops emitted solutions dominated by another emitted solution.
func (ls *LabelSetting) paretoFilter(sols []int32) []int32 {
	kept := make([]int32, 0, len(sols))
	for i, a := range sols {
		dominated := false
		for j, b := range sols {
			if i == j {
				continue
			}
			if ls.dom.Dominates(ls.arena.At(b), ls.arena.At(a)) {
				dominated = true
				break
			}
		}
		if !dominated {
			kept = append(kept, a)
		}
	}
	return kept
}

func absDiff(a, b int64) int64 {
	if a > b {
		return a - b
	}
	return b - a
}

package routing

import (
	"math"

	"github.com/tripweaver/tripweaver/pkg"
	"github.com/tripweaver/tripweaver/pkg/datastructure"
	"github.com/tripweaver/tripweaver/pkg/realtime"
	"github.com/tripweaver/tripweaver/pkg/util"
)

// EdgeView one adjacent edge as presented by the explorer, already oriented:
// To is the neighbor in forward traversal, From in reverse.
type EdgeView struct {
	Ref      EdgeRef
	From, To datastructure.Index
	Type     pkg.EdgeType
	Time     int32
	Distance float64
	TripIdx  datastructure.Index
	StopSeq  int32
	Validity *datastructure.Bitset
}

// behavior static transition rules per edge type
type behavior struct {
	transfer bool // boarding boundary, increments nTransfers
	walk     bool // accumulates into walkDistanceOnCurrentLeg
	legReset bool // walk budget resets after crossing
}

var behaviors = [pkg.NUM_EDGE_TYPES]behavior{
	pkg.HIGHWAY:                     {walk: true},
	pkg.ENTER_PT:                    {legReset: true},
	pkg.EXIT_PT:                     {legReset: true},
	pkg.BOARD:                       {transfer: true, legReset: true},
	pkg.ALIGHT:                      {legReset: true},
	pkg.TRANSFER:                    {walk: true},
	pkg.ENTER_TIME_EXPANDED_NETWORK: {},
	pkg.LEAVE_TIME_EXPANDED_NETWORK: {},
	pkg.STOP_NODE_MARKER:            {},
	pkg.STOP_ENTER_NODE:             {},
	pkg.STOP_EXIT_NODE:              {},
	pkg.HOP:                         {},
	pkg.DWELL:                       {},
	pkg.WAIT:                        {},
	pkg.WAIT_ARRIVAL:                {},
	pkg.OVERNIGHT:                   {},
}

// Transition successor criteria after crossing one edge.
type Transition struct {
	Time                 int64
	NTransfers           int32
	WalkDistanceOnLeg    float64
	FirstPtDepartureTime int64
}

// CostModel computes the traversal cost of each edge type under one query's
// direction, walk speed, budgets and realtime snapshot. Schedule-bound edges
// resolve against the anchors of their time-expanded endpoints; boarding
// additionally resolves the next (or, reversed, previous) valid service day.
type CostModel struct {
	graph   *datastructure.Graph
	overlay *realtime.Overlay
	reverse bool

	epoch   int64
	numDays int64

	walkSpeedMS               float64
	maxWalkDistancePerLeg     float64
	maxTransferDistancePerLeg float64
}

func NewCostModel(graph *datastructure.Graph, overlay *realtime.Overlay, reverse bool,
	walkSpeedKmH, maxWalkDistancePerLeg, maxTransferDistancePerLeg float64) *CostModel {
	if maxWalkDistancePerLeg <= 0 {
		maxWalkDistancePerLeg = math.Inf(1)
	}
	if maxTransferDistancePerLeg <= 0 {
		maxTransferDistancePerLeg = math.Inf(1)
	}
	return &CostModel{
		graph:                     graph,
		overlay:                   overlay,
		reverse:                   reverse,
		epoch:                     graph.GetEpoch(),
		numDays:                   int64(graph.GetNumServiceDays()),
		walkSpeedMS:               walkSpeedKmH / 3.6,
		maxWalkDistancePerLeg:     maxWalkDistancePerLeg,
		maxTransferDistancePerLeg: maxTransferDistancePerLeg,
	}
}

func (cm *CostModel) anchorOf(node datastructure.Index) int64 {
	if int(node) >= cm.graph.NumberOfNodes() {
		return -1
	}
	return int64(cm.graph.GetNode(node).GetAnchor())
}

// Traverse computes the successor criteria for crossing ev from label l.
// prevSeq is the stop sequence of the edge that produced l, used to undo the
// departure delay already contained in l.time when riding a hop. Returns
// false when the edge cannot be crossed (no valid service day, budget
// violated, walk speed zero).
func (cm *CostModel) Traverse(ev *EdgeView, l *Label, prevSeq int32) (Transition, bool) {
	tr := Transition{
		NTransfers:           l.nTransfers,
		WalkDistanceOnLeg:    l.walkDistanceOnCurrentLeg,
		FirstPtDepartureTime: l.firstPtDepartureTime,
	}
	b := behaviors[ev.Type]

	if b.walk && ev.Distance > 0 {
		budget := cm.maxWalkDistancePerLeg
		if ev.Type == pkg.TRANSFER || l.nTransfers > 0 {
			budget = cm.maxTransferDistancePerLeg
		}
		tr.WalkDistanceOnLeg += ev.Distance
		if tr.WalkDistanceOnLeg > budget {
			return Transition{}, false
		}
	}

	t, ok := cm.timeAfter(ev, l, prevSeq)
	if !ok {
		return Transition{}, false
	}
	tr.Time = t

	if b.transfer {
		tr.NTransfers++
		if cm.reverse || tr.FirstPtDepartureTime < 0 {
			tr.FirstPtDepartureTime = t
		}
	}
	if b.legReset {
		tr.WalkDistanceOnLeg = 0
	}
	return tr, true
}

func (cm *CostModel) timeAfter(ev *EdgeView, l *Label, prevSeq int32) (int64, bool) {
	now := l.time

	// virtual and extra edges carry a precomputed fixed duration
	if ev.Ref.IsVirtual() || ev.Ref.IsExtra() {
		return cm.advance(now, int64(ev.Time)), true
	}

	switch ev.Type {
	case pkg.HIGHWAY:
		if cm.walkSpeedMS <= 0 {
			return 0, false
		}
		return cm.advance(now, int64(ev.Distance/cm.walkSpeedMS+0.5)), true

	case pkg.ENTER_PT, pkg.EXIT_PT, pkg.ENTER_TIME_EXPANDED_NETWORK,
		pkg.LEAVE_TIME_EXPANDED_NETWORK, pkg.STOP_NODE_MARKER,
		pkg.STOP_ENTER_NODE, pkg.STOP_EXIT_NODE, pkg.ALIGHT:
		return now, true

	case pkg.BOARD:
		if cm.reverse {
			return cm.boardReverse(ev, now)
		}
		return cm.boardForward(ev, now)

	case pkg.HOP:
		dt := int64(ev.Time)
		if !cm.reverse && cm.overlay != nil {
			dt += int64(cm.overlay.DelayAt(ev.TripIdx, ev.StopSeq).Arrival)
			if prevSeq >= 0 {
				dt -= int64(cm.overlay.DelayAt(ev.TripIdx, prevSeq).Departure)
			}
			if dt < 0 {
				dt = 0
			}
		}
		return cm.advance(now, dt), true

	case pkg.DWELL:
		dt := int64(ev.Time)
		if !cm.reverse && cm.overlay != nil {
			d := cm.overlay.DelayAt(ev.TripIdx, ev.StopSeq)
			dt += int64(d.Departure - d.Arrival)
			if dt < 0 {
				dt = 0
			}
		}
		return cm.advance(now, dt), true

	case pkg.WAIT, pkg.WAIT_ARRIVAL, pkg.OVERNIGHT:
		return cm.anchoredWait(ev, now), true

	case pkg.TRANSFER:
		if ev.Distance > 0 {
			// stop-to-stop transfer: walking time, floored by the feed's
			// minimum transfer time
			if cm.walkSpeedMS <= 0 {
				return 0, false
			}
			dt := datastructure.MaxG(int64(ev.Distance/cm.walkSpeedMS+0.5), int64(ev.Time))
			return cm.advance(now, dt), true
		}
		// in-station continuation onto the departure timeline
		return cm.anchoredWait(ev, now), true
	}
	return now, true
}

func (cm *CostModel) advance(now, dt int64) int64 {
	if cm.reverse {
		return now - dt
	}
	return now + dt
}

// anchoredWait waits until the anchored endpoint's time of day. Labels whose
// realized time already passed the anchor (delayed arrivals) slide through at
// zero cost; boarding re-validates against the realized departure, so sliding
// never time-travels.
func (cm *CostModel) anchoredWait(ev *EdgeView, now int64) int64 {
	day := pkg.SECONDS_PER_DAY
	tod := util.PositiveMod(now-cm.epoch, day)
	if cm.reverse {
		anchor := cm.anchorOf(ev.From)
		if anchor < 0 {
			return now - int64(ev.Time)
		}
		back := util.PositiveMod(tod-anchor, day)
		if back > day/2 {
			back = 0
		}
		return now - back
	}
	anchor := cm.anchorOf(ev.To)
	if anchor < 0 {
		return now + int64(ev.Time)
	}
	wait := util.PositiveMod(anchor-tod, day)
	if wait > day/2 {
		wait = 0
	}
	return now + wait
}

// boardForward resolves the first service day at or after now on which this
// departure runs and is not cancelled, and returns the realized departure
// instant. The edge's time attribute stores the departure's day shift for
// post-midnight stop times, so the cancellation lookup maps back to the GTFS
// service day.
func (cm *CostModel) boardForward(ev *EdgeView, now int64) (int64, bool) {
	day := pkg.SECONDS_PER_DAY
	anchor := cm.anchorOf(ev.To)
	if anchor < 0 {
		return 0, false
	}
	tod := util.PositiveMod(now-cm.epoch, day)
	first := now + util.PositiveMod(anchor-tod, day)
	d0 := util.FloorDiv(first-cm.epoch, day)
	depShift := int64(ev.Time)

	for d := d0; d < cm.numDays; d++ {
		if d < 0 {
			continue
		}
		if ev.Validity != nil && !ev.Validity.Get(int(d)) {
			continue
		}
		if cm.overlay != nil && cm.overlay.IsCancelled(ev.TripIdx, int(d-depShift)) {
			continue
		}
		dep := cm.epoch + d*day + anchor
		if cm.overlay != nil {
			dep += int64(cm.overlay.DelayAt(ev.TripIdx, ev.StopSeq).Departure)
		}
		if dep < now {
			// left ahead of schedule before we arrived
			continue
		}
		return dep, true
	}
	return 0, false
}

// boardReverse resolves the last valid scheduled departure at or before now.
func (cm *CostModel) boardReverse(ev *EdgeView, now int64) (int64, bool) {
	day := pkg.SECONDS_PER_DAY
	anchor := cm.anchorOf(ev.To)
	if anchor < 0 {
		return 0, false
	}
	tod := util.PositiveMod(now-cm.epoch, day)
	cand := now - util.PositiveMod(tod-anchor, day)
	depShift := int64(ev.Time)

	for d := util.FloorDiv(cand-cm.epoch, day); d >= 0; d-- {
		if d < cm.numDays {
			valid := ev.Validity == nil || ev.Validity.Get(int(d))
			if valid && (cm.overlay == nil || !cm.overlay.IsCancelled(ev.TripIdx, int(d-depShift))) {
				return cm.epoch + d*day + anchor, true
			}
		}
	}
	return 0, false
}

package realtime

import (
	"sync/atomic"
	"time"

	gtfsrtpb "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/tripweaver/tripweaver/pkg"
	"github.com/tripweaver/tripweaver/pkg/datastructure"
	"github.com/tripweaver/tripweaver/pkg/gtfs"
	"github.com/tripweaver/tripweaver/pkg/util"
)

type TripDayKey struct {
	TripIdx    datastructure.Index
	ServiceDay int
}

type StopEventKey struct {
	TripIdx datastructure.Index
	StopSeq int32
}

// Delay realized arrival/departure delay of one stop event, in seconds.
// Negative values mean early running.
type Delay struct {
	Arrival   int32
	Departure int32
}

// ExtraEdge an edge injected by the realtime feed (added service), yielded
// by the explorer alongside the base adjacency of its from-node.
type ExtraEdge struct {
	From, To datastructure.Index
	Type     pkg.EdgeType
	Time     int32
	Distance float64
	TripIdx  datastructure.Index
	StopSeq  int32
}

// Overlay an immutable snapshot of the realtime state derived from one
// GTFS-RT feed message. Queries read a snapshot for their whole duration so
// a poll finishing mid-search never mixes two feed versions.
type Overlay struct {
	cancelled map[TripDayKey]struct{}
	delays    map[StopEventKey]Delay
	extras    []ExtraEdge
	extraOut  map[datastructure.Index][]int32
	extraIn   map[datastructure.Index][]int32
	timestamp int64
}

func EmptyOverlay() *Overlay {
	return &Overlay{
		cancelled: make(map[TripDayKey]struct{}),
		delays:    make(map[StopEventKey]Delay),
		extraOut:  make(map[datastructure.Index][]int32),
		extraIn:   make(map[datastructure.Index][]int32),
	}
}

func (o *Overlay) AddExtraEdge(e ExtraEdge) int32 {
	id := int32(len(o.extras))
	o.extras = append(o.extras, e)
	o.extraOut[e.From] = append(o.extraOut[e.From], id)
	o.extraIn[e.To] = append(o.extraIn[e.To], id)
	return id
}

func (o *Overlay) ExtraEdge(id int32) *ExtraEdge {
	return &o.extras[id]
}

func (o *Overlay) ExtraOut(node datastructure.Index) []int32 {
	return o.extraOut[node]
}

func (o *Overlay) ExtraIn(node datastructure.Index) []int32 {
	return o.extraIn[node]
}

func (o *Overlay) IsCancelled(tripIdx datastructure.Index, serviceDay int) bool {
	_, ok := o.cancelled[TripDayKey{TripIdx: tripIdx, ServiceDay: serviceDay}]
	return ok
}

func (o *Overlay) DelayAt(tripIdx datastructure.Index, stopSeq int32) Delay {
	return o.delays[StopEventKey{TripIdx: tripIdx, StopSeq: stopSeq}]
}

func (o *Overlay) Timestamp() int64 {
	return o.timestamp
}

func (o *Overlay) NumCancelled() int {
	return len(o.cancelled)
}

func (o *Overlay) NumDelayedEvents() int {
	return len(o.delays)
}

func (o *Overlay) MarkCancelled(tripIdx datastructure.Index, serviceDay int) {
	o.cancelled[TripDayKey{TripIdx: tripIdx, ServiceDay: serviceDay}] = struct{}{}
}

func (o *Overlay) SetDelay(tripIdx datastructure.Index, stopSeq int32, d Delay) {
	o.delays[StopEventKey{TripIdx: tripIdx, StopSeq: stopSeq}] = d
}

// FromFeedMessage builds an overlay from a GTFS-RT trip updates message.
// Delays propagate forward along the trip until the next stop time update,
// per the GTFS-RT spec.
func FromFeedMessage(fm *gtfsrtpb.FeedMessage, feed *gtfs.Feed, epoch int64) *Overlay {
	o := EmptyOverlay()
	if fm == nil {
		return o
	}
	if fm.Header != nil && fm.Header.Timestamp != nil {
		o.timestamp = int64(*fm.Header.Timestamp)
	}
	for _, e := range fm.Entity {
		tu := e.TripUpdate
		if tu == nil || tu.Trip == nil || tu.Trip.TripId == nil {
			continue
		}
		ti, ok := feed.TripIndex(*tu.Trip.TripId)
		if !ok {
			continue
		}
		tripIdx := datastructure.Index(ti)

		serviceDay := serviceDayOf(tu.Trip.StartDate, o.timestamp, epoch)

		if tu.Trip.ScheduleRelationship != nil &&
			*tu.Trip.ScheduleRelationship == gtfsrtpb.TripDescriptor_CANCELED {
			o.MarkCancelled(tripIdx, serviceDay)
			continue
		}

		applyStopTimeUpdates(o, feed, ti, tu.StopTimeUpdate)
	}
	return o
}

func serviceDayOf(startDate *string, timestamp, epoch int64) int {
	if startDate != nil {
		if d, err := gtfs.ParseGtfsDate(*startDate); err == nil {
			return int(util.FloorDiv(d.Unix()-epoch, pkg.SECONDS_PER_DAY))
		}
	}
	ts := timestamp
	if ts == 0 {
		ts = time.Now().Unix()
	}
	return int(util.FloorDiv(ts-epoch, pkg.SECONDS_PER_DAY))
}

func applyStopTimeUpdates(o *Overlay, feed *gtfs.Feed, tripIdx int,
	updates []*gtfsrtpb.TripUpdate_StopTimeUpdate) {

	if len(updates) == 0 {
		return
	}
	byStopSeq := make(map[int32]*gtfsrtpb.TripUpdate_StopTimeUpdate, len(updates))
	byStopID := make(map[string]*gtfsrtpb.TripUpdate_StopTimeUpdate, len(updates))
	for _, stu := range updates {
		if stu.StopSequence != nil {
			byStopSeq[int32(*stu.StopSequence)] = stu
		} else if stu.StopId != nil {
			byStopID[*stu.StopId] = stu
		}
	}

	var cur Delay
	seen := false
	for _, st := range feed.StopTimes[tripIdx] {
		stu, ok := byStopSeq[int32(st.StopSeq)]
		if !ok {
			stu, ok = byStopID[st.StopID]
		}
		if ok {
			seen = true
			if stu.Arrival != nil && stu.Arrival.Delay != nil {
				cur.Arrival = *stu.Arrival.Delay
				cur.Departure = cur.Arrival
			}
			if stu.Departure != nil && stu.Departure.Delay != nil {
				cur.Departure = *stu.Departure.Delay
			}
		} else {
			// carried-forward delay applies to both events
			cur.Arrival = cur.Departure
		}
		if seen && (cur.Arrival != 0 || cur.Departure != 0) {
			o.SetDelay(datastructure.Index(tripIdx), int32(st.StopSeq), cur)
		}
	}
}

// Publisher atomically swaps overlay snapshots between the poller and the
// routing side.
type Publisher struct {
	current atomic.Pointer[Overlay]
}

func NewPublisher() *Publisher {
	p := &Publisher{}
	p.current.Store(EmptyOverlay())
	return p
}

func (p *Publisher) Snapshot() *Overlay {
	return p.current.Load()
}

func (p *Publisher) Publish(o *Overlay) {
	p.current.Store(o)
}

package realtime

import (
	"testing"
	"time"

	gtfsrtpb "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/stretchr/testify/require"
	"github.com/tripweaver/tripweaver/pkg/datastructure"
	"github.com/tripweaver/tripweaver/pkg/gtfs"
	"google.golang.org/protobuf/proto"
)

func overlayFixtureFeed() (*gtfs.Feed, int64) {
	feed := gtfs.NewFeed()
	feed.AddStop(gtfs.Stop{ID: "A"})
	feed.AddStop(gtfs.Stop{ID: "B"})
	feed.AddStop(gtfs.Stop{ID: "C"})
	feed.AddTrip(gtfs.Trip{ID: "T1", ServiceID: "S"}, []gtfs.StopTime{
		{StopSeq: 1, StopID: "A", Arrival: 29100, Departure: 29100},
		{StopSeq: 2, StopID: "B", Arrival: 29700, Departure: 29760},
		{StopSeq: 3, StopID: "C", Arrival: 30300, Departure: 30300},
	})
	epoch := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC).Unix()
	return feed, epoch
}

func TestFromFeedMessageCancellation(t *testing.T) {
	feed, epoch := overlayFixtureFeed()

	fm := &gtfsrtpb.FeedMessage{
		Header: &gtfsrtpb.FeedHeader{Timestamp: proto.Uint64(uint64(epoch + 3600))},
		Entity: []*gtfsrtpb.FeedEntity{
			{
				Id: proto.String("1"),
				TripUpdate: &gtfsrtpb.TripUpdate{
					Trip: &gtfsrtpb.TripDescriptor{
						TripId:               proto.String("T1"),
						StartDate:            proto.String("20200102"),
						ScheduleRelationship: gtfsrtpb.TripDescriptor_CANCELED.Enum(),
					},
				},
			},
			{
				Id: proto.String("2"),
				TripUpdate: &gtfsrtpb.TripUpdate{
					Trip: &gtfsrtpb.TripDescriptor{TripId: proto.String("unknown")},
				},
			},
		},
	}

	o := FromFeedMessage(fm, feed, epoch)
	require.Equal(t, epoch+3600, o.Timestamp())
	require.Equal(t, 1, o.NumCancelled())
	require.True(t, o.IsCancelled(0, 1))  // start_date one day past the epoch
	require.False(t, o.IsCancelled(0, 0)) // same trip, other service day
}

func TestFromFeedMessageDelayPropagation(t *testing.T) {
	feed, epoch := overlayFixtureFeed()

	fm := &gtfsrtpb.FeedMessage{
		Entity: []*gtfsrtpb.FeedEntity{
			{
				Id: proto.String("1"),
				TripUpdate: &gtfsrtpb.TripUpdate{
					Trip: &gtfsrtpb.TripDescriptor{
						TripId:    proto.String("T1"),
						StartDate: proto.String("20200101"),
					},
					StopTimeUpdate: []*gtfsrtpb.TripUpdate_StopTimeUpdate{
						{
							StopSequence: proto.Uint32(1),
							Departure:    &gtfsrtpb.TripUpdate_StopTimeEvent{Delay: proto.Int32(120)},
						},
						{
							StopId:  proto.String("C"),
							Arrival: &gtfsrtpb.TripUpdate_StopTimeEvent{Delay: proto.Int32(0)},
						},
					},
				},
			},
		},
	}

	o := FromFeedMessage(fm, feed, epoch)
	require.Equal(t, Delay{Departure: 120}, o.DelayAt(0, 1))
	// no update at seq 2: the departure delay carries forward to both events
	require.Equal(t, Delay{Arrival: 120, Departure: 120}, o.DelayAt(0, 2))
	// explicit zero at the last stop clears the carried delay
	require.Equal(t, Delay{}, o.DelayAt(0, 3))
	require.Equal(t, 2, o.NumDelayedEvents())
}

func TestFromFeedMessageNilAndEmpty(t *testing.T) {
	feed, epoch := overlayFixtureFeed()

	o := FromFeedMessage(nil, feed, epoch)
	require.Equal(t, 0, o.NumCancelled())
	require.Equal(t, 0, o.NumDelayedEvents())

	o = FromFeedMessage(&gtfsrtpb.FeedMessage{}, feed, epoch)
	require.Equal(t, 0, o.NumCancelled())
	require.False(t, o.IsCancelled(0, 0))
	require.Equal(t, Delay{}, o.DelayAt(0, 1))
}

func TestOverlayExtraEdges(t *testing.T) {
	o := EmptyOverlay()
	id := o.AddExtraEdge(ExtraEdge{From: 3, To: 9, Time: 60, TripIdx: 1, StopSeq: 2})

	require.Equal(t, []int32{id}, o.ExtraOut(3))
	require.Equal(t, []int32{id}, o.ExtraIn(9))
	require.Empty(t, o.ExtraOut(9))

	e := o.ExtraEdge(id)
	require.Equal(t, datastructure.Index(3), e.From)
	require.Equal(t, int32(60), e.Time)
}

func TestPublisherSwapsSnapshots(t *testing.T) {
	p := NewPublisher()
	first := p.Snapshot()
	require.NotNil(t, first)
	require.Equal(t, 0, first.NumCancelled())

	next := EmptyOverlay()
	next.MarkCancelled(0, 0)
	p.Publish(next)

	require.Same(t, next, p.Snapshot())
	// the old snapshot is untouched, in-flight queries stay consistent
	require.Equal(t, 0, first.NumCancelled())
}

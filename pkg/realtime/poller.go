package realtime

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	gtfsrtpb "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/tripweaver/tripweaver/pkg/gtfs"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"
)

// Poller periodically fetches a GTFS-RT trip updates feed and publishes a
// fresh overlay snapshot.
type Poller struct {
	url        string
	interval   time.Duration
	httpClient *http.Client
	feed       *gtfs.Feed
	epoch      int64
	pub        *Publisher
	log        *zap.Logger
}

func NewPoller(url string, interval time.Duration, feed *gtfs.Feed, epoch int64,
	pub *Publisher, log *zap.Logger) *Poller {
	return &Poller{
		url:        url,
		interval:   interval,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		feed:       feed,
		epoch:      epoch,
		pub:        pub,
		log:        log,
	}
}

// Run polls until the context is cancelled. Fetch failures keep the previous
// snapshot; the routing side keeps answering from the last known state.
func (p *Poller) Run(ctx context.Context) error {
	p.pollOnce(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.pollOnce(ctx)
		}
	}
}

func (p *Poller) pollOnce(ctx context.Context) {
	fm, err := p.fetch(ctx)
	if err != nil {
		p.log.Warn("gtfs-rt poll failed, keeping previous snapshot",
			zap.String("url", p.url), zap.Error(err))
		return
	}
	overlay := FromFeedMessage(fm, p.feed, p.epoch)
	p.pub.Publish(overlay)
	p.log.Info("published realtime overlay",
		zap.Int64("feedTimestamp", overlay.Timestamp()),
		zap.Int("cancelledTrips", overlay.NumCancelled()),
		zap.Int("delayedStopEvents", overlay.NumDelayedEvents()))
}

func (p *Poller) fetch(ctx context.Context) (*gtfsrtpb.FeedMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", p.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d from %s", resp.StatusCode, p.url)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var fm gtfsrtpb.FeedMessage
	if err := proto.Unmarshal(b, &fm); err != nil {
		return nil, fmt.Errorf("decode gtfs-rt message: %w", err)
	}
	return &fm, nil
}

package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/tripweaver/tripweaver/pkg/datastructure"
	"github.com/tripweaver/tripweaver/pkg/engine"
	"github.com/tripweaver/tripweaver/pkg/gtfs"
	"github.com/tripweaver/tripweaver/pkg/http"
	"github.com/tripweaver/tripweaver/pkg/http/usecases"
	"github.com/tripweaver/tripweaver/pkg/logger"
	"github.com/tripweaver/tripweaver/pkg/osmparser"
	"github.com/tripweaver/tripweaver/pkg/realtime"
	"github.com/tripweaver/tripweaver/pkg/spatialindex"
	"github.com/tripweaver/tripweaver/pkg/util"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	gtfsFile              = flag.String("gtfs", "./data/gtfs.zip", "gtfs static feed zip file")
	mapFile               = flag.String("osm", "./data/map.osm.pbf", "openstreetmap pbf file for the walk network (optional)")
	graphFile             = flag.String("graph", "./data/tripweaver.graph", "prebuilt graph file; rebuilt from gtfs+osm when missing")
	rtURL                 = flag.String("rt_url", "", "gtfs-realtime feed url (optional)")
	rtInterval            = flag.Duration("rt_interval", 30*time.Second, "gtfs-realtime poll interval")
	useRateLimit          = flag.Bool("rate_limit", false, "enable the global api rate limit")
	leafBoundingBoxRadius = flag.Float64("leaf_bounding_box_radius", 0.05, "leaf node (r-tree) bounding box radius in km")
)

func main() {
	flag.Parse()
	logger, err := logger.New()
	if err != nil {
		panic(err)
	}

	if err := util.ReadConfig(); err != nil {
		logger.Info("no config file found, using built-in defaults")
	}

	feed, err := gtfs.LoadZip(*gtfsFile, logger)
	if err != nil {
		panic(err)
	}

	graph, err := loadOrBuildGraph(feed, logger)
	if err != nil {
		panic(err)
	}

	rtree := spatialindex.NewRtree(graph)
	rtree.Build(*leafBoundingBoxRadius, logger)

	publisher := realtime.NewPublisher()

	ctx, cleanup, err := NewContext()
	if err != nil {
		panic(err)
	}

	g := errgroup.Group{}
	if *rtURL != "" {
		poller := realtime.NewPoller(*rtURL, *rtInterval, feed, graph.GetEpoch(), publisher, logger)
		g.Go(func() error {
			return poller.Run(ctx)
		})
	}

	tripEngine := engine.New(graph, feed, rtree, publisher, logger)

	api := http.NewServer(logger)

	routingService := usecases.NewRoutingService(logger, tripEngine)
	api.Use(ctx, logger, *useRateLimit, routingService, routingService)

	signal := http.GracefulShutdown()

	logger.Info("TripWeaver Trip Planning Server Stopped", zap.String("signal", signal.String()))
	cleanup()
	_ = g.Wait()
}

func loadOrBuildGraph(feed *gtfs.Feed, logger *zap.Logger) (*datastructure.Graph, error) {
	if _, err := os.Stat(*graphFile); err == nil {
		logger.Info("loading prebuilt graph", zap.String("file", *graphFile))
		return datastructure.ReadGraph(*graphFile)
	}

	graph := datastructure.NewGraph()

	if _, err := os.Stat(*mapFile); err == nil {
		parser := osmparser.NewOsmParser()
		if err := parser.Parse(*mapFile, graph, logger); err != nil {
			return nil, err
		}
	} else {
		logger.Info("no osm extract, walk network will be synthesized from stops",
			zap.String("file", *mapFile))
	}
	walkNodeCount := graph.NumberOfNodes()

	builder := gtfs.NewGraphBuilder(feed, graph, logger)
	builder.Build()
	builder.LinkWalkNetwork(walkNodeCount, 3)

	if err := graph.WriteGraph(*graphFile); err != nil {
		logger.Warn("cannot persist built graph", zap.Error(err))
	}
	return graph, nil
}

func NewContext() (context.Context, func(), error) {
	ctx, cancel := context.WithCancel(context.Background())
	cb := func() {
		cancel()
	}

	return ctx, cb, nil
}

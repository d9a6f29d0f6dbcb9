package osmparser

import (
	"context"
	"io"
	"os"

	"github.com/tripweaver/tripweaver/pkg"
	"github.com/tripweaver/tripweaver/pkg/datastructure"
	"github.com/tripweaver/tripweaver/pkg/geo"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"go.uber.org/zap"
)

type NodeType int

const (
	END_NODE NodeType = iota
	BETWEEN_NODE
	JUNCTION_NODE
)

type NodeCoord struct {
	lat float64
	lon float64
}

func NewNodeCoord(lat, lon float64) NodeCoord {
	return NodeCoord{lat, lon}
}

// OsmParser builds the pedestrian street network from an openstreetmap pbf
// extract. Only foot-accessible ways are kept; chains of degree-two geometry
// nodes are compressed into single edges carrying the summed walk distance.
type OsmParser struct {
	wayNodeMap      map[int64]NodeType
	acceptedNodeMap map[int64]NodeCoord
	nodeIDMap       map[int64]datastructure.Index
}

func NewOsmParser() *OsmParser {
	return &OsmParser{
		wayNodeMap:      make(map[int64]NodeType),
		acceptedNodeMap: make(map[int64]NodeCoord),
		nodeIDMap:       make(map[int64]datastructure.Index),
	}
}

// Parse scans the pbf twice: first to classify way nodes (endpoints and
// junctions stay, between-nodes are compressed away), then to read the
// coordinates and emit walk edges into g.
func (p *OsmParser) Parse(mapFile string, g *datastructure.Graph, logger *zap.Logger) error {
	f, err := os.Open(mapFile)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := osmpbf.New(context.Background(), f, 0)
	// must not be parallel
	countWays := 0
	for scanner.Scan() {
		o := scanner.Object()
		if o.ObjectID().Type() != osm.TypeWay {
			continue
		}
		way := o.(*osm.Way)
		if len(way.Nodes) < 2 || !acceptFootWay(way) {
			continue
		}
		if (countWays+1)%50000 == 0 {
			logger.Sugar().Infof("scanning openstreetmap ways: %d...", countWays+1)
		}
		countWays++

		for i, node := range way.Nodes {
			if _, ok := p.wayNodeMap[int64(node.ID)]; !ok {
				if i == 0 || i == len(way.Nodes)-1 {
					p.wayNodeMap[int64(node.ID)] = END_NODE
				} else {
					p.wayNodeMap[int64(node.ID)] = BETWEEN_NODE
				}
			} else {
				p.wayNodeMap[int64(node.ID)] = JUNCTION_NODE
			}
		}
	}
	scanner.Close()

	if _, err = f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	scanner = osmpbf.New(context.Background(), f, 0)
	// must not be parallel
	defer scanner.Close()

	type footWay struct {
		nodes []int64
	}
	ways := make([]footWay, 0, countWays)

	countNodes := 0
	countWays = 0
	for scanner.Scan() {
		o := scanner.Object()

		switch o.ObjectID().Type() {
		case osm.TypeNode:
			node := o.(*osm.Node)
			if _, ok := p.wayNodeMap[int64(node.ID)]; !ok {
				continue
			}
			if (countNodes+1)%200000 == 0 {
				logger.Sugar().Infof("processing openstreetmap nodes: %d...", countNodes+1)
			}
			countNodes++
			p.acceptedNodeMap[int64(node.ID)] = NewNodeCoord(node.Lat, node.Lon)
		case osm.TypeWay:
			way := o.(*osm.Way)
			if len(way.Nodes) < 2 || !acceptFootWay(way) {
				continue
			}
			countWays++
			wNodes := make([]int64, 0, len(way.Nodes))
			for _, node := range way.Nodes {
				wNodes = append(wNodes, int64(node.ID))
			}
			ways = append(ways, footWay{nodes: wNodes})
		}
	}

	edgeSet := make(map[datastructure.Index]map[datastructure.Index]struct{})
	for _, way := range ways {
		p.processWay(way.nodes, g, edgeSet)
	}

	logger.Info("built pedestrian walk network",
		zap.Int("osmWays", countWays),
		zap.Int("nodes", g.NumberOfNodes()),
		zap.Int("edges", g.NumberOfEdges()))
	return nil
}

// processWay emits one bidirectional walk edge per segment between two kept
// nodes (endpoints/junctions), accumulating the distance of compressed
// between-nodes.
func (p *OsmParser) processWay(wayNodes []int64, g *datastructure.Graph,
	edgeSet map[datastructure.Index]map[datastructure.Index]struct{}) {

	var (
		prevKept datastructure.Index = datastructure.INVALID_NODE_ID
		segDist  float64
		prevOsm  int64 = -1
	)
	for i, osmID := range wayNodes {
		coord, ok := p.acceptedNodeMap[osmID]
		if !ok {
			continue
		}
		if prevOsm >= 0 {
			prev := p.acceptedNodeMap[prevOsm]
			segDist += geo.HaversineMeters(prev.lat, prev.lon, coord.lat, coord.lon)
		}
		prevOsm = osmID

		keep := p.wayNodeMap[osmID] != BETWEEN_NODE || i == 0 || i == len(wayNodes)-1
		if !keep {
			continue
		}

		id := p.graphNode(osmID, coord, g)
		if prevKept != datastructure.INVALID_NODE_ID && prevKept != id && segDist > 0 {
			if !hasEdge(edgeSet, prevKept, id) {
				g.AddEdgePair(prevKept, id, pkg.HIGHWAY, 0, segDist)
				markEdge(edgeSet, prevKept, id)
			}
		}
		prevKept = id
		segDist = 0
	}
}

func (p *OsmParser) graphNode(osmID int64, coord NodeCoord, g *datastructure.Graph) datastructure.Index {
	if id, ok := p.nodeIDMap[osmID]; ok {
		return id
	}
	id := g.AddNode(datastructure.NewNode(coord.lat, coord.lon,
		datastructure.STREET_NODE, -1, datastructure.INVALID_NODE_ID))
	p.nodeIDMap[osmID] = id
	return id
}

func hasEdge(edgeSet map[datastructure.Index]map[datastructure.Index]struct{}, u, v datastructure.Index) bool {
	if u > v {
		u, v = v, u
	}
	_, ok := edgeSet[u][v]
	return ok
}

func markEdge(edgeSet map[datastructure.Index]map[datastructure.Index]struct{}, u, v datastructure.Index) {
	if u > v {
		u, v = v, u
	}
	if edgeSet[u] == nil {
		edgeSet[u] = make(map[datastructure.Index]struct{})
	}
	edgeSet[u][v] = struct{}{}
}

package spatialindex

import (
	"math"

	"github.com/tripweaver/tripweaver/pkg/datastructure"
	"github.com/tripweaver/tripweaver/pkg/geo"
	"github.com/tidwall/rtree"
	"go.uber.org/zap"
)

type Rtree struct {
	tr    *rtree.RTreeG[datastructure.Index]
	graph *datastructure.Graph
}

// Snap result of projecting a query coordinate onto the walk network: the
// walk edge, its projected point and the distances from the projection to
// either endpoint, in meters.
type Snap struct {
	EdgeID     datastructure.Index
	Projection geo.Coordinate
	DistToFrom float64
	DistToTo   float64
}

func NewRtree(graph *datastructure.Graph) *Rtree {
	var tr rtree.RTreeG[datastructure.Index]
	return &Rtree{
		tr:    &tr,
		graph: graph,
	}
}

// Build indexes every walk edge under a bounding box padded by
// boundingBoxRadius (in km). Only the forward edge of each pair is inserted.
func (rt *Rtree) Build(boundingBoxRadius float64, log *zap.Logger) {
	log.Info("Building R-tree spatial index...")
	count := 0
	rt.graph.ForWalkEdges(func(e *datastructure.Edge) {
		if e.GetReverseEdge() != datastructure.INVALID_EDGE_ID && e.GetReverseEdge() < e.GetID() {
			return
		}
		fromLat, fromLon := rt.graph.GetNodeCoordinates(e.GetFrom())
		toLat, toLon := rt.graph.GetNodeCoordinates(e.GetTo())

		lowerFromLat, lowerFromLon := geo.GetDestinationPoint(fromLat, fromLon, 225, boundingBoxRadius)
		upperFromLat, upperFromLon := geo.GetDestinationPoint(fromLat, fromLon, 45, boundingBoxRadius)

		lowerToLat, lowerToLon := geo.GetDestinationPoint(toLat, toLon, 225, boundingBoxRadius)
		upperToLat, upperToLon := geo.GetDestinationPoint(toLat, toLon, 45, boundingBoxRadius)

		minLat := math.Min(lowerFromLat, lowerToLat)
		minLon := math.Min(lowerFromLon, lowerToLon)
		maxLat := math.Max(upperFromLat, upperToLat)
		maxLon := math.Max(upperFromLon, upperToLon)

		rt.tr.Insert([2]float64{minLon, minLat}, [2]float64{maxLon, maxLat}, e.GetID())
		count++
	})
	log.Info("R-tree spatial index built.", zap.Int("walkEdges", count))
}

// SearchWithinRadius all walk edges whose padded box covers a radius (in km)
// box around the query point.
func (rt *Rtree) SearchWithinRadius(qLat, qLon, radius float64) []datastructure.Index {
	lowerLat, lowerLon := geo.GetDestinationPoint(qLat, qLon, 225, radius)
	upperLat, upperLon := geo.GetDestinationPoint(qLat, qLon, 45, radius)

	results := make([]datastructure.Index, 0, 10)
	rt.tr.Search([2]float64{lowerLon, lowerLat}, [2]float64{upperLon, upperLat},
		func(min, max [2]float64, data datastructure.Index) bool {
			results = append(results, data)
			return true
		})
	return results
}

// SnapToWalkEdge projects the query coordinate onto the nearest walk edge
// within radius (in km). Returns false when no walk edge is close enough.
func (rt *Rtree) SnapToWalkEdge(qLat, qLon, radius float64) (Snap, bool) {
	candidates := rt.SearchWithinRadius(qLat, qLon, radius)

	best := Snap{EdgeID: datastructure.INVALID_EDGE_ID}
	bestDist := math.Inf(1)
	for _, eid := range candidates {
		e := rt.graph.GetEdge(eid)
		fromLat, fromLon := rt.graph.GetNodeCoordinates(e.GetFrom())
		toLat, toLon := rt.graph.GetNodeCoordinates(e.GetTo())

		proj := geo.ProjectPointToLineCoord(
			geo.NewCoordinate(fromLat, fromLon),
			geo.NewCoordinate(toLat, toLon),
			geo.NewCoordinate(qLat, qLon))
		d := geo.HaversineMeters(qLat, qLon, proj.Lat, proj.Lon)
		if d < bestDist {
			bestDist = d
			best = Snap{
				EdgeID:     eid,
				Projection: proj,
				DistToFrom: geo.HaversineMeters(proj.Lat, proj.Lon, fromLat, fromLon),
				DistToTo:   geo.HaversineMeters(proj.Lat, proj.Lon, toLat, toLon),
			}
		}
	}
	if best.EdgeID == datastructure.INVALID_EDGE_ID || bestDist > radius*1000 {
		return Snap{}, false
	}
	return best, true
}

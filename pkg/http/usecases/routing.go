package usecases

import (
	"time"

	"github.com/tripweaver/tripweaver/pkg/engine"
	"go.uber.org/zap"
)

// RoutingService the transport-facing facade over the trip-planning engine:
// it validates the raw request material and delegates to the engine.
type RoutingService struct {
	log    *zap.Logger
	engine TripPlanner
}

func NewRoutingService(log *zap.Logger, engine TripPlanner) *RoutingService {
	return &RoutingService{
		log:    log,
		engine: engine,
	}
}

func (rs *RoutingService) PlanTrip(points []engine.Point, locale string,
	hints map[string]string) (*engine.Response, error) {
	req, err := engine.NewRequest(points, locale, hints)
	if err != nil {
		return nil, err
	}
	return rs.engine.Route(req)
}

func (rs *RoutingService) LiveDepartures(stopID string, at time.Time,
	limit int) ([]engine.DepartureInfo, error) {
	return rs.engine.LiveDepartures(stopID, at, limit)
}

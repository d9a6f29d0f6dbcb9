package usecases

import (
	"time"

	"github.com/tripweaver/tripweaver/pkg/engine"
)

type TripPlanner interface {
	Route(req engine.Request) (*engine.Response, error)
	LiveDepartures(stopID string, at time.Time, limit int) ([]engine.DepartureInfo, error)
}

package controllers

import (
	"time"

	"github.com/tripweaver/tripweaver/pkg/engine"
)

type RoutingService interface {
	PlanTrip(points []engine.Point, locale string, hints map[string]string) (*engine.Response, error)
}

type DeparturesService interface {
	LiveDepartures(stopID string, at time.Time, limit int) ([]engine.DepartureInfo, error)
}

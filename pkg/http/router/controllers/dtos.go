package controllers

import (
	"time"

	"github.com/tripweaver/tripweaver/pkg/engine"
	"github.com/tripweaver/tripweaver/pkg/engine/routing"
	"github.com/tripweaver/tripweaver/pkg/geo"
)

type planTripRequest struct {
	Points                []string `json:"point" validate:"required,len=2"`
	Locale                string   `json:"locale"`
	EarliestDepartureTime string   `json:"pt.earliest_departure_time" validate:"required"`
}

type stopCallResponse struct {
	StopID             string  `json:"stop_id,omitempty"`
	StopName           string  `json:"stop_name,omitempty"`
	Lat                float64 `json:"lat"`
	Lon                float64 `json:"lon"`
	ScheduledArrival   string  `json:"scheduled_arrival,omitempty"`
	RealizedArrival    string  `json:"realized_arrival,omitempty"`
	ScheduledDeparture string  `json:"scheduled_departure,omitempty"`
	RealizedDeparture  string  `json:"realized_departure,omitempty"`
}

type legResponse struct {
	Kind          string             `json:"kind"`
	DepartureTime string             `json:"departure_time"`
	ArrivalTime   string             `json:"arrival_time"`
	Duration      float64            `json:"duration"`
	Distance      float64            `json:"distance"`
	Polyline      string             `json:"polyline,omitempty"`
	TripID        string             `json:"trip_id,omitempty"`
	RouteID       string             `json:"route_id,omitempty"`
	RouteName     string             `json:"route_name,omitempty"`
	Headsign      string             `json:"headsign,omitempty"`
	Stops         []stopCallResponse `json:"stops,omitempty"`
}

type itineraryResponse struct {
	DepartureTime string        `json:"departure_time"`
	ArrivalTime   string        `json:"arrival_time"`
	Duration      float64       `json:"duration"`
	Distance      float64       `json:"distance"`
	Transfers     int           `json:"transfers"`
	Polyline      string        `json:"polyline,omitempty"`
	Legs          []legResponse `json:"legs"`
}

type planTripResponse struct {
	Itineraries []itineraryResponse    `json:"itineraries"`
	Hints       map[string]interface{} `json:"hints,omitempty"`
}

func formatInstant(t int64) string {
	if t == 0 {
		return ""
	}
	return time.Unix(t, 0).UTC().Format(time.RFC3339)
}

func newStopCallResponse(call routing.StopCall) stopCallResponse {
	return stopCallResponse{
		StopID:             call.StopID,
		StopName:           call.StopName,
		Lat:                call.Coordinate.GetLat(),
		Lon:                call.Coordinate.GetLon(),
		ScheduledArrival:   formatInstant(call.ScheduledArrival),
		RealizedArrival:    formatInstant(call.RealizedArrival),
		ScheduledDeparture: formatInstant(call.ScheduledDeparture),
		RealizedDeparture:  formatInstant(call.RealizedDeparture),
	}
}

func newLegResponse(leg routing.Leg) legResponse {
	resp := legResponse{
		Kind:          string(leg.Kind),
		DepartureTime: formatInstant(leg.DepartureTime),
		ArrivalTime:   formatInstant(leg.ArrivalTime),
		Duration:      float64(leg.ArrivalTime - leg.DepartureTime),
		Distance:      leg.Distance,
		Polyline:      geo.PolylineFromCoords(leg.Geometry),
		TripID:        leg.TripID,
		RouteID:       leg.RouteID,
		RouteName:     leg.RouteName,
		Headsign:      leg.Headsign,
	}
	for _, call := range leg.Stops {
		resp.Stops = append(resp.Stops, newStopCallResponse(call))
	}
	return resp
}

func NewPlanTripResponse(resp *engine.Response) planTripResponse {
	out := planTripResponse{
		Itineraries: make([]itineraryResponse, 0, len(resp.Itineraries)),
		Hints:       resp.Hints,
	}
	for _, it := range resp.Itineraries {
		ir := itineraryResponse{
			DepartureTime: formatInstant(it.DepartureTime),
			ArrivalTime:   formatInstant(it.ArrivalTime),
			Duration:      float64(it.ArrivalTime - it.DepartureTime),
			Distance:      it.Distance,
			Transfers:     it.Transfers,
			Polyline:      geo.PolylineFromCoords(it.Geometry),
		}
		for _, leg := range it.Legs {
			ir.Legs = append(ir.Legs, newLegResponse(leg))
		}
		out.Itineraries = append(out.Itineraries, ir)
	}
	return out
}

type departureResponse struct {
	TripID    string `json:"trip_id"`
	RouteID   string `json:"route_id,omitempty"`
	RouteName string `json:"route_name,omitempty"`
	Headsign  string `json:"headsign,omitempty"`
	Scheduled string `json:"scheduled"`
	Realized  string `json:"realized"`
	Cancelled bool   `json:"cancelled"`
}

func NewDeparturesResponse(rows []engine.DepartureInfo) []departureResponse {
	out := make([]departureResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, departureResponse{
			TripID:    row.TripID,
			RouteID:   row.RouteID,
			RouteName: row.RouteName,
			Headsign:  row.Headsign,
			Scheduled: row.Scheduled.Format(time.RFC3339),
			Realized:  row.Realized.Format(time.RFC3339),
			Cancelled: row.Cancelled,
		})
	}
	return out
}

type departuresBoardRequest struct {
	StopID string `json:"stop_id" validate:"required"`
	Limit  int    `json:"limit" validate:"omitempty,min=1,max=100"`
}

package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/julienschmidt/httprouter"
	"github.com/tripweaver/tripweaver/pkg/engine"
	helper "github.com/tripweaver/tripweaver/pkg/http/router/routerhelper"
	"go.uber.org/zap"
)

type routingAPI struct {
	routingService    RoutingService
	departuresService DeparturesService
	log               *zap.Logger
}

func New(routingService RoutingService, departuresService DeparturesService, log *zap.Logger) *routingAPI {
	return &routingAPI{
		routingService:    routingService,
		departuresService: departuresService,
		log:               log,
	}
}

func (api *routingAPI) Routes(group *helper.RouteGroup) {
	group.GET("/route", api.planTrip)
	group.GET("/departures", api.departures)
}

// parsePoint resolves one point parameter: "lat,lon" becomes a coordinate
// point, anything else is taken as a gtfs stop id.
func parsePoint(raw string) (engine.Point, error) {
	if strings.HasPrefix(raw, "stop:") {
		return engine.NewStationPoint(strings.TrimPrefix(raw, "stop:")), nil
	}
	parts := strings.Split(raw, ",")
	if len(parts) == 2 {
		lat, latErr := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		lon, lonErr := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if latErr == nil && lonErr == nil {
			if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
				return engine.Point{}, fmt.Errorf("point %q out of range", raw)
			}
			return engine.NewCoordinatePoint(lat, lon), nil
		}
	}
	if raw == "" {
		return engine.Point{}, errors.New("empty point parameter")
	}
	return engine.NewStationPoint(raw), nil
}

func (api *routingAPI) planTrip(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	var request planTripRequest

	query := r.URL.Query()

	request.Points = query["point"]
	request.Locale = query.Get("locale")
	if request.Locale == "" {
		request.Locale = "en"
	}
	request.EarliestDepartureTime = query.Get(engine.HintEarliestDepartureTime)

	validate := validator.New()
	if err := validate.Struct(request); err != nil {
		english := en.New()
		uni := ut.New(english, english)
		trans, _ := uni.GetTranslator("en")
		_ = enTranslations.RegisterDefaultTranslations(validate, trans)
		vv := translateError(err, trans)
		vvString := []string{}
		for _, v := range vv {
			vvString = append(vvString, v.Error())
		}
		api.BadRequestResponse(w, r, fmt.Errorf("validation error: %v", vvString))
		return
	}

	points := make([]engine.Point, 0, len(request.Points))
	for _, raw := range request.Points {
		point, err := parsePoint(raw)
		if err != nil {
			api.BadRequestResponse(w, r, err)
			return
		}
		points = append(points, point)
	}

	hints := make(map[string]string)
	for key, values := range query {
		if strings.HasPrefix(key, "pt.") && len(values) > 0 {
			hints[key] = values[0]
		}
	}

	resp, err := api.routingService.PlanTrip(points, request.Locale, hints)
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}

	headers := make(http.Header)

	if err := api.writeJSON(w, http.StatusOK, envelope{"data": NewPlanTripResponse(resp)}, headers); err != nil {
		api.ServerErrorResponse(w, r, err)
		return
	}
}

func (api *routingAPI) departures(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	query := r.URL.Query()

	stopID := query.Get("stop_id")
	if stopID == "" {
		api.BadRequestResponse(w, r, errors.New("stop_id is required"))
		return
	}

	at := time.Now()
	if raw := query.Get("at"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			api.BadRequestResponse(w, r, errors.New("at must be a RFC3339 timestamp"))
			return
		}
		at = parsed
	}

	limit := 10
	if raw := query.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			api.BadRequestResponse(w, r, errors.New("limit must be a positive int"))
			return
		}
		limit = parsed
	}

	rows, err := api.departuresService.LiveDepartures(stopID, at, limit)
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}

	headers := make(http.Header)

	if err := api.writeJSON(w, http.StatusOK, envelope{"data": NewDeparturesResponse(rows)}, headers); err != nil {
		api.ServerErrorResponse(w, r, err)
		return
	}
}

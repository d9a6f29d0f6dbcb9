package engine

import (
	"strconv"
	"time"

	"github.com/tripweaver/tripweaver/pkg"
	"github.com/tripweaver/tripweaver/pkg/util"
)

type PointKind int

const (
	CoordinatePoint PointKind = iota
	StationPoint
)

// Point a query endpoint: a free coordinate snapped to the walk network, or
// a gtfs stop id resolved to its station node.
type Point struct {
	Kind   PointKind
	Lat    float64
	Lon    float64
	StopID string
}

func NewCoordinatePoint(lat, lon float64) Point {
	return Point{Kind: CoordinatePoint, Lat: lat, Lon: lon}
}

func NewStationPoint(stopID string) Point {
	return Point{Kind: StationPoint, StopID: stopID}
}

// hint keys of the request contract
const (
	HintEarliestDepartureTime     = "pt.earliest_departure_time"
	HintArriveBy                  = "pt.arrive_by"
	HintProfileQuery              = "pt.profile_query"
	HintIgnoreTransfers           = "pt.ignore_transfers"
	HintLimitSolutions            = "pt.limit_solutions"
	HintWalkSpeed                 = "pt.walk_speed"
	HintMaxWalkDistancePerLeg     = "pt.max_walk_distance_per_leg"
	HintMaxTransferDistancePerLeg = "pt.max_transfer_distance_per_leg"
	HintMaxVisitedNodes           = "pt.max_visited_nodes"
)

// Request a validated trip-planning request.
type Request struct {
	Points []Point
	Locale string

	// anchor instant; the arrival deadline when ArriveBy
	EarliestDepartureTime time.Time
	ArriveBy              bool
	ProfileQuery          bool
	IgnoreTransfers       bool

	// 0 means unbounded
	LimitSolutions int

	WalkSpeedKmH              float64
	MaxWalkDistancePerLeg     float64
	MaxTransferDistancePerLeg float64
	MaxVisitedNodes           int
}

// NewRequest validates the point list and resolves the hint map onto its
// defaults. All validation errors carry ErrBadParamInput.
func NewRequest(points []Point, locale string, hints map[string]string) (Request, error) {
	req := Request{
		Points:          points,
		Locale:          locale,
		WalkSpeedKmH:    pkg.DEFAULT_WALK_SPEED_KMH,
		MaxVisitedNodes: pkg.DEFAULT_MAX_VISITED_NODES,
	}

	if len(points) != 2 {
		return Request{}, util.WrapErrorf(nil, util.ErrBadParamInput,
			"exactly two points are required, got %d", len(points))
	}

	edt, ok := hints[HintEarliestDepartureTime]
	if !ok || edt == "" {
		return Request{}, util.WrapErrorf(nil, util.ErrBadParamInput,
			"missing required hint %s", HintEarliestDepartureTime)
	}
	t, err := time.Parse(time.RFC3339, edt)
	if err != nil {
		return Request{}, util.WrapErrorf(err, util.ErrBadParamInput,
			"unparsable %s: %q", HintEarliestDepartureTime, edt)
	}
	req.EarliestDepartureTime = t

	if req.ArriveBy, err = hintBool(hints, HintArriveBy); err != nil {
		return Request{}, err
	}
	if req.ProfileQuery, err = hintBool(hints, HintProfileQuery); err != nil {
		return Request{}, err
	}
	if req.IgnoreTransfers, err = hintBool(hints, HintIgnoreTransfers); err != nil {
		return Request{}, err
	}

	switch {
	case req.ProfileQuery:
		req.LimitSolutions = 5
	case req.IgnoreTransfers:
		req.LimitSolutions = 1
	}
	if v, ok := hints[HintLimitSolutions]; ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return Request{}, util.WrapErrorf(err, util.ErrBadParamInput,
				"invalid %s: %q", HintLimitSolutions, v)
		}
		req.LimitSolutions = n
	}
	if v, ok := hints[HintMaxVisitedNodes]; ok {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return Request{}, util.WrapErrorf(err, util.ErrBadParamInput,
				"invalid %s: %q", HintMaxVisitedNodes, v)
		}
		req.MaxVisitedNodes = n
	}

	if req.WalkSpeedKmH, err = hintFloat(hints, HintWalkSpeed, pkg.DEFAULT_WALK_SPEED_KMH); err != nil {
		return Request{}, err
	}
	if req.WalkSpeedKmH <= 0 {
		return Request{}, util.WrapErrorf(nil, util.ErrBadParamInput,
			"%s must be positive", HintWalkSpeed)
	}
	if req.MaxWalkDistancePerLeg, err = hintFloat(hints, HintMaxWalkDistancePerLeg, 0); err != nil {
		return Request{}, err
	}
	if req.MaxTransferDistancePerLeg, err = hintFloat(hints, HintMaxTransferDistancePerLeg, 0); err != nil {
		return Request{}, err
	}

	return req, nil
}

func hintBool(hints map[string]string, key string) (bool, error) {
	v, ok := hints[key]
	if !ok || v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, util.WrapErrorf(err, util.ErrBadParamInput, "invalid %s: %q", key, v)
	}
	return b, nil
}

func hintFloat(hints map[string]string, key string, def float64) (float64, error) {
	v, ok := hints[key]
	if !ok || v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, util.WrapErrorf(err, util.ErrBadParamInput, "invalid %s: %q", key, v)
	}
	return f, nil
}

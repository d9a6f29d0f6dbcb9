package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tripweaver/tripweaver/pkg"
	"github.com/tripweaver/tripweaver/pkg/util"
)

func twoPoints() []Point {
	return []Point{NewCoordinatePoint(0, 0), NewStationPoint("B")}
}

func requireBadParam(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	var uerr *util.Error
	require.True(t, errors.As(err, &uerr))
	require.Equal(t, util.ErrBadParamInput, uerr.Code())
}

func TestNewRequestDefaults(t *testing.T) {
	req, err := NewRequest(twoPoints(), "en", map[string]string{
		HintEarliestDepartureTime: "2020-01-01T08:00:00Z",
	})
	require.NoError(t, err)

	require.Equal(t, time.Date(2020, 1, 1, 8, 0, 0, 0, time.UTC), req.EarliestDepartureTime.UTC())
	require.False(t, req.ArriveBy)
	require.False(t, req.ProfileQuery)
	require.False(t, req.IgnoreTransfers)
	require.Equal(t, 0, req.LimitSolutions)
	require.Equal(t, pkg.DEFAULT_WALK_SPEED_KMH, req.WalkSpeedKmH)
	require.Equal(t, pkg.DEFAULT_MAX_VISITED_NODES, req.MaxVisitedNodes)
	require.Equal(t, 0.0, req.MaxWalkDistancePerLeg)
}

func TestNewRequestLimitDefaults(t *testing.T) {
	testCases := []struct {
		name  string
		hints map[string]string
		want  int
	}{
		{
			name: "profile query defaults to five",
			hints: map[string]string{
				HintEarliestDepartureTime: "2020-01-01T08:00:00Z",
				HintProfileQuery:          "true",
			},
			want: 5,
		},
		{
			name: "ignore transfers defaults to one",
			hints: map[string]string{
				HintEarliestDepartureTime: "2020-01-01T08:00:00Z",
				HintIgnoreTransfers:       "true",
			},
			want: 1,
		},
		{
			name: "explicit limit wins",
			hints: map[string]string{
				HintEarliestDepartureTime: "2020-01-01T08:00:00Z",
				HintProfileQuery:          "true",
				HintLimitSolutions:        "3",
			},
			want: 3,
		},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			req, err := NewRequest(twoPoints(), "en", tt.hints)
			require.NoError(t, err)
			require.Equal(t, tt.want, req.LimitSolutions)
		})
	}
}

func TestNewRequestValidation(t *testing.T) {
	testCases := []struct {
		name   string
		points []Point
		hints  map[string]string
	}{
		{
			name:   "missing departure time",
			points: twoPoints(),
			hints:  map[string]string{},
		},
		{
			name:   "unparsable departure time",
			points: twoPoints(),
			hints:  map[string]string{HintEarliestDepartureTime: "yesterday"},
		},
		{
			name:   "one point",
			points: []Point{NewStationPoint("A")},
			hints:  map[string]string{HintEarliestDepartureTime: "2020-01-01T08:00:00Z"},
		},
		{
			name:   "three points",
			points: append(twoPoints(), NewStationPoint("C")),
			hints:  map[string]string{HintEarliestDepartureTime: "2020-01-01T08:00:00Z"},
		},
		{
			name:   "zero walk speed",
			points: twoPoints(),
			hints: map[string]string{
				HintEarliestDepartureTime: "2020-01-01T08:00:00Z",
				HintWalkSpeed:             "0",
			},
		},
		{
			name:   "bad bool",
			points: twoPoints(),
			hints: map[string]string{
				HintEarliestDepartureTime: "2020-01-01T08:00:00Z",
				HintArriveBy:              "maybe",
			},
		},
		{
			name:   "negative limit",
			points: twoPoints(),
			hints: map[string]string{
				HintEarliestDepartureTime: "2020-01-01T08:00:00Z",
				HintLimitSolutions:        "-1",
			},
		},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRequest(tt.points, "en", tt.hints)
			requireBadParam(t, err)
		})
	}
}

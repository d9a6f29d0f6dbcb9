package gtfs

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tripweaver/tripweaver/pkg"
	"github.com/tripweaver/tripweaver/pkg/datastructure"
)

type Agency struct {
	ID       string
	Name     string
	Timezone string
}

type Stop struct {
	ID   string
	Name string
	Lat  float64
	Lon  float64
}

type Route struct {
	ID        string
	AgencyID  string
	ShortName string
	LongName  string
	Type      int
}

type Trip struct {
	ID        string
	RouteID   string
	ServiceID string
	Headsign  string
}

// StopTime one scheduled stop event of a trip. Arrival/Departure are seconds
// since service-day midnight and may exceed 24h for trips past midnight.
type StopTime struct {
	StopSeq   int
	StopID    string
	Arrival   int32
	Departure int32
}

type Transfer struct {
	FromStopID      string
	ToStopID        string
	MinTransferTime int32
}

// Service calendar entry plus calendar_dates exceptions (dates as YYYYMMDD).
type Service struct {
	ID        string
	Weekdays  [7]bool // index time.Weekday
	StartDate time.Time
	EndDate   time.Time
	Added     map[string]bool
	Removed   map[string]bool
}

// Feed in-memory static GTFS tables, read-only after load.
type Feed struct {
	Agencies  []Agency
	Stops     []Stop
	Routes    []Route
	Trips     []Trip
	StopTimes [][]StopTime // indexed by trip idx, sorted by StopSeq
	Services  map[string]*Service
	Transfers []Transfer

	stopIdx  map[string]int
	routeIdx map[string]int
	tripIdx  map[string]int
}

func NewFeed() *Feed {
	return &Feed{
		Services: make(map[string]*Service),
		stopIdx:  make(map[string]int),
		routeIdx: make(map[string]int),
		tripIdx:  make(map[string]int),
	}
}

func (f *Feed) AddStop(s Stop) int {
	f.stopIdx[s.ID] = len(f.Stops)
	f.Stops = append(f.Stops, s)
	return len(f.Stops) - 1
}

func (f *Feed) AddRoute(r Route) int {
	f.routeIdx[r.ID] = len(f.Routes)
	f.Routes = append(f.Routes, r)
	return len(f.Routes) - 1
}

func (f *Feed) AddTrip(t Trip, stopTimes []StopTime) int {
	sort.Slice(stopTimes, func(i, j int) bool {
		return stopTimes[i].StopSeq < stopTimes[j].StopSeq
	})
	f.tripIdx[t.ID] = len(f.Trips)
	f.Trips = append(f.Trips, t)
	f.StopTimes = append(f.StopTimes, stopTimes)
	return len(f.Trips) - 1
}

func (f *Feed) AddService(s *Service) {
	f.Services[s.ID] = s
}

func (f *Feed) AddTransfer(t Transfer) {
	f.Transfers = append(f.Transfers, t)
}

func (f *Feed) StopIndex(stopID string) (int, bool) {
	i, ok := f.stopIdx[stopID]
	return i, ok
}

func (f *Feed) RouteIndex(routeID string) (int, bool) {
	i, ok := f.routeIdx[routeID]
	return i, ok
}

func (f *Feed) TripIndex(tripID string) (int, bool) {
	i, ok := f.tripIdx[tripID]
	return i, ok
}

func (f *Feed) RouteOfTrip(tripIdx int) *Route {
	if ri, ok := f.routeIdx[f.Trips[tripIdx].RouteID]; ok {
		return &f.Routes[ri]
	}
	return nil
}

// Epoch unix seconds of midnight (UTC) of the earliest service start date,
// and the number of service days covered. Feeds without calendar rows get a
// single unbounded-today epoch so fixture feeds still board.
func (f *Feed) Epoch() (int64, int) {
	var start, end time.Time
	for _, s := range f.Services {
		if start.IsZero() || s.StartDate.Before(start) {
			start = s.StartDate
		}
		if end.IsZero() || s.EndDate.After(end) {
			end = s.EndDate
		}
	}
	if start.IsZero() {
		now := time.Now().UTC()
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		end = start.AddDate(1, 0, 0)
	}
	days := int(end.Sub(start).Hours()/24) + 2
	days = datastructure.MaxG(datastructure.MinG(days, 400), 1)
	return start.Unix(), days
}

// ServiceValidity day bitset of a service relative to the feed epoch.
func (f *Feed) ServiceValidity(serviceID string, epoch int64, numDays int) *datastructure.Bitset {
	v := datastructure.NewBitset(numDays)
	s, ok := f.Services[serviceID]
	if !ok {
		// no calendar row: run every covered day (common in minimal feeds)
		for d := 0; d < numDays; d++ {
			v.Set(d)
		}
		return v
	}
	for d := 0; d < numDays; d++ {
		day := time.Unix(epoch+int64(d)*pkg.SECONDS_PER_DAY, 0).UTC()
		date := day.Format("20060102")
		valid := s.Weekdays[int(day.Weekday())] &&
			!day.Before(s.StartDate) && !day.After(s.EndDate)
		if s.Removed[date] {
			valid = false
		}
		if s.Added[date] {
			valid = true
		}
		if valid {
			v.Set(d)
		}
	}
	return v
}

// ParseGtfsTime "HH:MM:SS", hours may exceed 24 for trips past midnight.
func ParseGtfsTime(s string) (int32, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("malformed gtfs time %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("malformed gtfs time %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("malformed gtfs time %q", s)
	}
	sec, err := strconv.Atoi(parts[2])
	if err != nil {
		return 0, fmt.Errorf("malformed gtfs time %q", s)
	}
	return int32(h*3600 + m*60 + sec), nil
}

func ParseGtfsDate(s string) (time.Time, error) {
	return time.ParseInLocation("20060102", strings.TrimSpace(s), time.UTC)
}

// Departure a scheduled departure event at a stop, used by the live
// departures board.
type Departure struct {
	TripIdx   int
	StopSeq   int
	Departure int32 // seconds since service-day midnight, normalized
	DayShift  int   // service-day offset for post-midnight stop times
}

// DeparturesAtStop all scheduled departures at a stop sorted by time of day.
func (f *Feed) DeparturesAtStop(stopID string) []Departure {
	deps := make([]Departure, 0)
	for ti := range f.Trips {
		sts := f.StopTimes[ti]
		for k, st := range sts {
			if st.StopID != stopID || k == len(sts)-1 {
				continue
			}
			deps = append(deps, Departure{
				TripIdx:   ti,
				StopSeq:   st.StopSeq,
				Departure: st.Departure % int32(pkg.SECONDS_PER_DAY),
				DayShift:  int(st.Departure / int32(pkg.SECONDS_PER_DAY)),
			})
		}
	}
	sort.Slice(deps, func(i, j int) bool { return deps[i].Departure < deps[j].Departure })
	return deps
}

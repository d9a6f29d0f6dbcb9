package gtfs

import (
	"archive/zip"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// LoadZip reads the static tables of a GTFS zip archive into a Feed.
func LoadZip(path string, log *zap.Logger) (*Feed, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open gtfs archive %s: %w", path, err)
	}
	defer zr.Close()

	feed := NewFeed()
	ld := &loader{feed: feed, tripStopTimes: make(map[string][]StopTime)}

	// stop_times must come after trips, transfers after stops
	order := []string{"agency.txt", "stops.txt", "routes.txt", "calendar.txt",
		"calendar_dates.txt", "trips.txt", "stop_times.txt", "transfers.txt"}
	files := make(map[string]*zip.File)
	for _, zf := range zr.File {
		files[strings.ToLower(zf.Name)] = zf
	}
	for _, name := range order {
		zf, ok := files[name]
		if !ok {
			continue
		}
		if err := ld.consume(name, zf); err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
	}
	ld.finishTrips()

	log.Info("loaded gtfs feed",
		zap.String("path", path),
		zap.Int("stops", len(feed.Stops)),
		zap.Int("routes", len(feed.Routes)),
		zap.Int("trips", len(feed.Trips)))
	return feed, nil
}

type loader struct {
	feed          *Feed
	trips         []Trip
	tripStopTimes map[string][]StopTime
	tripOrder     []string
}

func (l *loader) consume(name string, zf *zip.File) error {
	rc, err := zf.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	r := csv.NewReader(rc)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return err
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF"))] = i
	}
	get := func(rec []string, key string) string {
		if i, ok := col[key]; ok && i < len(rec) {
			return strings.TrimSpace(rec[i])
		}
		return ""
	}

	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		switch name {
		case "agency.txt":
			l.feed.Agencies = append(l.feed.Agencies, Agency{
				ID:       get(rec, "agency_id"),
				Name:     get(rec, "agency_name"),
				Timezone: get(rec, "agency_timezone"),
			})
		case "stops.txt":
			lat, _ := strconv.ParseFloat(get(rec, "stop_lat"), 64)
			lon, _ := strconv.ParseFloat(get(rec, "stop_lon"), 64)
			l.feed.AddStop(Stop{
				ID:   get(rec, "stop_id"),
				Name: get(rec, "stop_name"),
				Lat:  lat,
				Lon:  lon,
			})
		case "routes.txt":
			rt, _ := strconv.Atoi(get(rec, "route_type"))
			l.feed.AddRoute(Route{
				ID:        get(rec, "route_id"),
				AgencyID:  get(rec, "agency_id"),
				ShortName: get(rec, "route_short_name"),
				LongName:  get(rec, "route_long_name"),
				Type:      rt,
			})
		case "calendar.txt":
			s := &Service{
				ID:      get(rec, "service_id"),
				Added:   make(map[string]bool),
				Removed: make(map[string]bool),
			}
			days := []string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}
			for wd, dayName := range days {
				s.Weekdays[wd] = get(rec, dayName) == "1"
			}
			s.StartDate, _ = ParseGtfsDate(get(rec, "start_date"))
			s.EndDate, _ = ParseGtfsDate(get(rec, "end_date"))
			l.feed.AddService(s)
		case "calendar_dates.txt":
			id := get(rec, "service_id")
			s, ok := l.feed.Services[id]
			if !ok {
				s = &Service{ID: id, Added: make(map[string]bool), Removed: make(map[string]bool)}
				date, _ := ParseGtfsDate(get(rec, "date"))
				s.StartDate, s.EndDate = date, date
				l.feed.AddService(s)
			}
			date := get(rec, "date")
			if get(rec, "exception_type") == "2" {
				s.Removed[date] = true
			} else {
				s.Added[date] = true
				if d, err := ParseGtfsDate(date); err == nil {
					if d.Before(s.StartDate) {
						s.StartDate = d
					}
					if d.After(s.EndDate) {
						s.EndDate = d
					}
				}
			}
		case "trips.txt":
			t := Trip{
				ID:        get(rec, "trip_id"),
				RouteID:   get(rec, "route_id"),
				ServiceID: get(rec, "service_id"),
				Headsign:  get(rec, "trip_headsign"),
			}
			l.trips = append(l.trips, t)
			l.tripOrder = append(l.tripOrder, t.ID)
		case "stop_times.txt":
			arr, err := ParseGtfsTime(get(rec, "arrival_time"))
			if err != nil {
				return err
			}
			dep, err := ParseGtfsTime(get(rec, "departure_time"))
			if err != nil {
				return err
			}
			seq, _ := strconv.Atoi(get(rec, "stop_sequence"))
			tripID := get(rec, "trip_id")
			l.tripStopTimes[tripID] = append(l.tripStopTimes[tripID], StopTime{
				StopSeq:   seq,
				StopID:    get(rec, "stop_id"),
				Arrival:   arr,
				Departure: dep,
			})
		case "transfers.txt":
			mt, _ := strconv.Atoi(get(rec, "min_transfer_time"))
			l.feed.AddTransfer(Transfer{
				FromStopID:      get(rec, "from_stop_id"),
				ToStopID:        get(rec, "to_stop_id"),
				MinTransferTime: int32(mt),
			})
		}
	}
	return nil
}

// finishTrips registers trips with their sorted stop times, dropping trips
// with fewer than two stop events.
func (l *loader) finishTrips() {
	for i, tripID := range l.tripOrder {
		sts := l.tripStopTimes[tripID]
		if len(sts) < 2 {
			continue
		}
		sort.Slice(sts, func(a, b int) bool { return sts[a].StopSeq < sts[b].StopSeq })
		l.feed.AddTrip(l.trips[i], sts)
	}
}

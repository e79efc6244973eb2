// Package store implements loader.FeedSource over a SQL database
// holding a GTFS feed in the teacher's own table layout (agency,
// stops, routes, trips, stop_times, calendar, calendar_dates, plus a
// transfers table the teacher's schema never had). Two constructors,
// Open and OpenPostgres, differ only in driver and DSN handling; every
// query here is a full-table read with no parameters, so the same
// `database/sql` code serves both backends without placeholder-syntax
// branching.
package store

import (
	"database/sql"
	"strings"

	"github.com/pkg/errors"

	"github.com/transitway/raptor/loader"
	"github.com/transitway/raptor/loader/rawmodel"
)

// Source is a loader.FeedSource backed by an open *sql.DB.
type Source struct {
	db *sql.DB
}

var _ loader.FeedSource = (*Source)(nil)

func (s *Source) Agencies() ([]rawmodel.Agency, error) {
	rows, err := s.db.Query(`SELECT id, name, url, timezone FROM agency`)
	if err != nil {
		return nil, errors.Wrap(err, "store: querying agency")
	}
	defer rows.Close()

	var out []rawmodel.Agency
	for rows.Next() {
		var a rawmodel.Agency
		if err := rows.Scan(&a.ID, &a.Name, &a.URL, &a.Timezone); err != nil {
			return nil, errors.Wrap(err, "store: scanning agency")
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Source) Stops() ([]rawmodel.Stop, error) {
	rows, err := s.db.Query(`
SELECT id, code, name, desc, lat, lon, url, location_type, parent_station, platform_code
FROM stops`)
	if err != nil {
		return nil, errors.Wrap(err, "store: querying stops")
	}
	defer rows.Close()

	var out []rawmodel.Stop
	for rows.Next() {
		var st rawmodel.Stop
		var locationType int
		if err := rows.Scan(&st.ID, &st.Code, &st.Name, &st.Desc, &st.Lat, &st.Lon, &st.URL,
			&locationType, &st.ParentStation, &st.PlatformCode); err != nil {
			return nil, errors.Wrap(err, "store: scanning stop")
		}
		st.LocationType = rawmodel.LocationType(locationType)
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *Source) Routes() ([]rawmodel.Route, error) {
	rows, err := s.db.Query(`
SELECT id, agency_id, short_name, long_name, desc, type, url, color, text_color
FROM routes`)
	if err != nil {
		return nil, errors.Wrap(err, "store: querying routes")
	}
	defer rows.Close()

	var out []rawmodel.Route
	for rows.Next() {
		var r rawmodel.Route
		var routeType int
		if err := rows.Scan(&r.ID, &r.AgencyID, &r.ShortName, &r.LongName, &r.Desc,
			&routeType, &r.URL, &r.Color, &r.TextColor); err != nil {
			return nil, errors.Wrap(err, "store: scanning route")
		}
		r.Type = rawmodel.RouteType(routeType)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Source) Trips() ([]rawmodel.Trip, error) {
	rows, err := s.db.Query(`
SELECT id, route_id, service_id, headsign, short_name, direction_id
FROM trips`)
	if err != nil {
		return nil, errors.Wrap(err, "store: querying trips")
	}
	defer rows.Close()

	var out []rawmodel.Trip
	for rows.Next() {
		var t rawmodel.Trip
		if err := rows.Scan(&t.ID, &t.RouteID, &t.ServiceID, &t.Headsign, &t.ShortName, &t.DirectionID); err != nil {
			return nil, errors.Wrap(err, "store: scanning trip")
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Source) StopTimes() ([]rawmodel.StopTime, error) {
	rows, err := s.db.Query(`
SELECT trip_id, stop_id, headsign, stop_sequence, arrival_time, departure_time, pickup_type, drop_off_type
FROM stop_times`)
	if err != nil {
		return nil, errors.Wrap(err, "store: querying stop_times")
	}
	defer rows.Close()

	var out []rawmodel.StopTime
	for rows.Next() {
		var st rawmodel.StopTime
		if err := rows.Scan(&st.TripID, &st.StopID, &st.Headsign, &st.StopSequence,
			&st.Arrival, &st.Departure, &st.PickupType, &st.DropOffType); err != nil {
			return nil, errors.Wrap(err, "store: scanning stop_time")
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *Source) Calendars() ([]rawmodel.Calendar, error) {
	rows, err := s.db.Query(`
SELECT service_id, start_date, end_date, monday, tuesday, wednesday, thursday, friday, saturday, sunday
FROM calendar`)
	if err != nil {
		return nil, errors.Wrap(err, "store: querying calendar")
	}
	defer rows.Close()

	var out []rawmodel.Calendar
	for rows.Next() {
		var c rawmodel.Calendar
		var mon, tue, wed, thu, fri, sat, sun int8
		if err := rows.Scan(&c.ServiceID, &c.StartDate, &c.EndDate, &mon, &tue, &wed, &thu, &fri, &sat, &sun); err != nil {
			return nil, errors.Wrap(err, "store: scanning calendar")
		}
		c.Weekday = weekdayBitmask(mon, tue, wed, thu, fri, sat, sun)
		out = append(out, c)
	}
	return out, rows.Err()
}

func weekdayBitmask(mon, tue, wed, thu, fri, sat, sun int8) int8 {
	var w int8
	if sun != 0 {
		w |= 1 << 0
	}
	if mon != 0 {
		w |= 1 << 1
	}
	if tue != 0 {
		w |= 1 << 2
	}
	if wed != 0 {
		w |= 1 << 3
	}
	if thu != 0 {
		w |= 1 << 4
	}
	if fri != 0 {
		w |= 1 << 5
	}
	if sat != 0 {
		w |= 1 << 6
	}
	return w
}

func (s *Source) CalendarDates() ([]rawmodel.CalendarDate, error) {
	rows, err := s.db.Query(`SELECT service_id, date, exception_type FROM calendar_dates`)
	if err != nil {
		return nil, errors.Wrap(err, "store: querying calendar_dates")
	}
	defer rows.Close()

	var out []rawmodel.CalendarDate
	for rows.Next() {
		var cd rawmodel.CalendarDate
		if err := rows.Scan(&cd.ServiceID, &cd.Date, &cd.ExceptionType); err != nil {
			return nil, errors.Wrap(err, "store: scanning calendar_date")
		}
		out = append(out, cd)
	}
	return out, rows.Err()
}

func (s *Source) Transfers() ([]rawmodel.Transfer, error) {
	rows, err := s.db.Query(`
SELECT from_stop_id, to_stop_id, transfer_type, min_transfer_time FROM transfers`)
	if err != nil {
		if isMissingTable(err) {
			return nil, nil // transfers is an optional table, absent from older feeds
		}
		return nil, errors.Wrap(err, "store: querying transfers")
	}
	defer rows.Close()

	var out []rawmodel.Transfer
	for rows.Next() {
		var t rawmodel.Transfer
		var minTransferTime sql.NullInt64
		if err := rows.Scan(&t.FromStopID, &t.ToStopID, &t.TransferType, &minTransferTime); err != nil {
			return nil, errors.Wrap(err, "store: scanning transfer")
		}
		t.MinTransferTime = int(minTransferTime.Int64)
		out = append(out, t)
	}
	return out, rows.Err()
}

// isMissingTable reports whether err looks like a "no such table"
// failure, common across both drivers' error text when the optional
// transfers table was never created for a feed.
func isMissingTable(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "no such table") || strings.Contains(msg, "does not exist")
}

package loader

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	"github.com/spkg/bom"

	"github.com/transitway/raptor/loader/rawmodel"
)

// FileSource is a FeedSource reading an unzipped GTFS feed directory.
// It opens each file once per call rather than caching row slices, the
// same one-shot-read posture the flat-file parser package it is
// adapted from uses (no download/refresh cycle here -- that belongs to
// whatever process produced the directory).
type FileSource struct {
	Dir string
}

// NewFileSource returns a FeedSource reading dir.
func NewFileSource(dir string) *FileSource {
	return &FileSource{Dir: dir}
}

func init() {
	// LazyCSVReader survives sloppy quoting; bom.NewReader strips a
	// leading unicode BOM, a common artifact of GTFS feeds exported
	// from spreadsheet tools.
	gocsv.SetCSVReader(func(in io.Reader) gocsv.CSVReader {
		return gocsv.LazyCSVReader(bom.NewReader(in))
	})
}

func (s *FileSource) open(name string) (*os.File, error) {
	f, err := os.Open(filepath.Join(s.Dir, name))
	if err != nil {
		return nil, fmt.Errorf("loader: opening %s: %w", name, err)
	}
	return f, nil
}

// openOptional is the same as open, except a missing file is reported
// via ok=false rather than an error -- calendar_dates.txt and
// transfers.txt are both optional GTFS files.
func (s *FileSource) openOptional(name string) (*os.File, bool, error) {
	f, err := os.Open(filepath.Join(s.Dir, name))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("loader: opening %s: %w", name, err)
	}
	return f, true, nil
}

type agencyCSV struct {
	ID       string `csv:"agency_id"`
	Name     string `csv:"agency_name"`
	URL      string `csv:"agency_url"`
	Timezone string `csv:"agency_timezone"`
}

func (s *FileSource) Agencies() ([]rawmodel.Agency, error) {
	f, err := s.open("agency.txt")
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows := []*agencyCSV{}
	if err := gocsv.Unmarshal(f, &rows); err != nil {
		return nil, fmt.Errorf("loader: unmarshaling agency.txt: %w", err)
	}

	out := make([]rawmodel.Agency, len(rows))
	for i, r := range rows {
		out[i] = rawmodel.Agency{ID: r.ID, Name: r.Name, URL: r.URL, Timezone: r.Timezone}
	}
	return out, nil
}

type stopCSV struct {
	ID            string  `csv:"stop_id"`
	Code          string  `csv:"stop_code"`
	Name          string  `csv:"stop_name"`
	Desc          string  `csv:"stop_desc"`
	Lat           float64 `csv:"stop_lat"`
	Lon           float64 `csv:"stop_lon"`
	URL           string  `csv:"stop_url"`
	LocationType  int     `csv:"location_type"`
	ParentStation string  `csv:"parent_station"`
	PlatformCode  string  `csv:"platform_code"`
}

func (s *FileSource) Stops() ([]rawmodel.Stop, error) {
	f, err := s.open("stops.txt")
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows := []*stopCSV{}
	if err := gocsv.Unmarshal(f, &rows); err != nil {
		return nil, fmt.Errorf("loader: unmarshaling stops.txt: %w", err)
	}

	out := make([]rawmodel.Stop, len(rows))
	for i, r := range rows {
		out[i] = rawmodel.Stop{
			ID: r.ID, Code: r.Code, Name: r.Name, Desc: r.Desc,
			Lat: r.Lat, Lon: r.Lon, URL: r.URL,
			LocationType:  rawmodel.LocationType(r.LocationType),
			ParentStation: r.ParentStation,
			PlatformCode:  r.PlatformCode,
		}
	}
	return out, nil
}

type routeCSV struct {
	ID        string `csv:"route_id"`
	AgencyID  string `csv:"agency_id"`
	ShortName string `csv:"route_short_name"`
	LongName  string `csv:"route_long_name"`
	Desc      string `csv:"route_desc"`
	Type      int    `csv:"route_type"`
	URL       string `csv:"route_url"`
	Color     string `csv:"route_color"`
	TextColor string `csv:"route_text_color"`
}

func (s *FileSource) Routes() ([]rawmodel.Route, error) {
	f, err := s.open("routes.txt")
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows := []*routeCSV{}
	if err := gocsv.Unmarshal(f, &rows); err != nil {
		return nil, fmt.Errorf("loader: unmarshaling routes.txt: %w", err)
	}

	out := make([]rawmodel.Route, len(rows))
	for i, r := range rows {
		out[i] = rawmodel.Route{
			ID: r.ID, AgencyID: r.AgencyID, ShortName: r.ShortName, LongName: r.LongName,
			Desc: r.Desc, Type: rawmodel.RouteType(r.Type), URL: r.URL,
			Color: r.Color, TextColor: r.TextColor,
		}
	}
	return out, nil
}

type tripCSV struct {
	ID          string `csv:"trip_id"`
	RouteID     string `csv:"route_id"`
	ServiceID   string `csv:"service_id"`
	Headsign    string `csv:"trip_headsign"`
	ShortName   string `csv:"trip_short_name"`
	DirectionID int8   `csv:"direction_id"`
}

func (s *FileSource) Trips() ([]rawmodel.Trip, error) {
	f, err := s.open("trips.txt")
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows := []*tripCSV{}
	if err := gocsv.Unmarshal(f, &rows); err != nil {
		return nil, fmt.Errorf("loader: unmarshaling trips.txt: %w", err)
	}

	out := make([]rawmodel.Trip, len(rows))
	for i, r := range rows {
		out[i] = rawmodel.Trip{
			ID: r.ID, RouteID: r.RouteID, ServiceID: r.ServiceID,
			Headsign: r.Headsign, ShortName: r.ShortName, DirectionID: r.DirectionID,
		}
	}
	return out, nil
}

type stopTimeCSV struct {
	TripID        string `csv:"trip_id"`
	StopID        string `csv:"stop_id"`
	StopSequence  uint32 `csv:"stop_sequence"`
	ArrivalTime   string `csv:"arrival_time"`
	DepartureTime string `csv:"departure_time"`
	Headsign      string `csv:"stop_headsign"`
	PickupType    int8   `csv:"pickup_type"`
	DropOffType   int8   `csv:"drop_off_type"`
}

func (s *FileSource) StopTimes() ([]rawmodel.StopTime, error) {
	f, err := s.open("stop_times.txt")
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows := []*stopTimeCSV{}
	if err := gocsv.Unmarshal(f, &rows); err != nil {
		return nil, fmt.Errorf("loader: unmarshaling stop_times.txt: %w", err)
	}

	out := make([]rawmodel.StopTime, len(rows))
	for i, r := range rows {
		arrival, err := normalizeClock(r.ArrivalTime)
		if err != nil {
			return nil, fmt.Errorf("loader: stop_times.txt trip %s seq %d: arrival_time: %w", r.TripID, r.StopSequence, err)
		}
		departure, err := normalizeClock(r.DepartureTime)
		if err != nil {
			return nil, fmt.Errorf("loader: stop_times.txt trip %s seq %d: departure_time: %w", r.TripID, r.StopSequence, err)
		}
		out[i] = rawmodel.StopTime{
			TripID: r.TripID, StopID: r.StopID, Headsign: r.Headsign,
			StopSequence: r.StopSequence, Arrival: arrival, Departure: departure,
			PickupType: r.PickupType, DropOffType: r.DropOffType,
		}
	}
	return out, nil
}

type calendarCSV struct {
	ServiceID string `csv:"service_id"`
	StartDate string `csv:"start_date"`
	EndDate   string `csv:"end_date"`
	Monday    int8   `csv:"monday"`
	Tuesday   int8   `csv:"tuesday"`
	Wednesday int8   `csv:"wednesday"`
	Thursday  int8   `csv:"thursday"`
	Friday    int8   `csv:"friday"`
	Saturday  int8   `csv:"saturday"`
	Sunday    int8   `csv:"sunday"`
}

func (s *FileSource) Calendars() ([]rawmodel.Calendar, error) {
	f, ok, err := s.openOptional("calendar.txt")
	if err != nil || !ok {
		return nil, err
	}
	defer f.Close()

	rows := []*calendarCSV{}
	if err := gocsv.Unmarshal(f, &rows); err != nil {
		return nil, fmt.Errorf("loader: unmarshaling calendar.txt: %w", err)
	}

	out := make([]rawmodel.Calendar, len(rows))
	for i, r := range rows {
		out[i] = rawmodel.Calendar{
			ServiceID: r.ServiceID, StartDate: r.StartDate, EndDate: r.EndDate,
			Weekday: weekdayBitmask(r),
		}
	}
	return out, nil
}

func weekdayBitmask(r *calendarCSV) int8 {
	var w int8
	if r.Monday != 0 {
		w |= 1 << 1
	}
	if r.Tuesday != 0 {
		w |= 1 << 2
	}
	if r.Wednesday != 0 {
		w |= 1 << 3
	}
	if r.Thursday != 0 {
		w |= 1 << 4
	}
	if r.Friday != 0 {
		w |= 1 << 5
	}
	if r.Saturday != 0 {
		w |= 1 << 6
	}
	if r.Sunday != 0 {
		w |= 1 << 0
	}
	return w
}

type calendarDateCSV struct {
	ServiceID     string `csv:"service_id"`
	Date          string `csv:"date"`
	ExceptionType int8   `csv:"exception_type"`
}

func (s *FileSource) CalendarDates() ([]rawmodel.CalendarDate, error) {
	f, ok, err := s.openOptional("calendar_dates.txt")
	if err != nil || !ok {
		return nil, err
	}
	defer f.Close()

	rows := []*calendarDateCSV{}
	if err := gocsv.Unmarshal(f, &rows); err != nil {
		return nil, fmt.Errorf("loader: unmarshaling calendar_dates.txt: %w", err)
	}

	out := make([]rawmodel.CalendarDate, len(rows))
	for i, r := range rows {
		out[i] = rawmodel.CalendarDate{ServiceID: r.ServiceID, Date: r.Date, ExceptionType: r.ExceptionType}
	}
	return out, nil
}

type transferCSV struct {
	FromStopID      string `csv:"from_stop_id"`
	ToStopID        string `csv:"to_stop_id"`
	TransferType    int8   `csv:"transfer_type"`
	MinTransferTime int    `csv:"min_transfer_time"`
}

func (s *FileSource) Transfers() ([]rawmodel.Transfer, error) {
	f, ok, err := s.openOptional("transfers.txt")
	if err != nil || !ok {
		return nil, err
	}
	defer f.Close()

	rows := []*transferCSV{}
	if err := gocsv.Unmarshal(f, &rows); err != nil {
		return nil, fmt.Errorf("loader: unmarshaling transfers.txt: %w", err)
	}

	out := make([]rawmodel.Transfer, len(rows))
	for i, r := range rows {
		out[i] = rawmodel.Transfer{
			FromStopID: r.FromStopID, ToStopID: r.ToStopID,
			TransferType: r.TransferType, MinTransferTime: r.MinTransferTime,
		}
	}
	return out, nil
}

// normalizeClock turns a GTFS HH:MM:SS time (hours may exceed 23 for
// service past midnight) into an HHMMSS digit string, matching the
// convention rawmodel.StopTime.ArrivalTime/DepartureTime parse back
// out of.
func normalizeClock(s string) (string, error) {
	if len(s) < 7 || len(s) > 8 {
		return "", fmt.Errorf("malformed time %q", s)
	}
	var h, m, sec int
	n, err := fmt.Sscanf(s, "%d:%d:%d", &h, &m, &sec)
	if err != nil || n != 3 {
		return "", fmt.Errorf("malformed time %q", s)
	}
	if m < 0 || m > 59 || sec < 0 || sec > 59 || h < 0 {
		return "", fmt.Errorf("out of range time %q", s)
	}
	return fmt.Sprintf("%02d%02d%02d", h, m, sec), nil
}

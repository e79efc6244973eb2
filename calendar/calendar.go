// Package calendar provides the civil-date and time-zone arithmetic
// the rest of the engine builds on: mapping between calendar dates, a
// compact day-offset handle, and UTC seconds, plus a compact bit-set
// representation of the set of days a trip runs on (DayPattern).
package calendar

import (
	"fmt"
	"time"
)

// DaysSinceDatasetStart is a day offset from a Calendar's first date.
// It is kept small (fits int16) so that DayPattern bit-sets stay cheap
// even for multi-year feeds.
type DaysSinceDatasetStart int16

// SecondsSinceDatasetUTCStart is a signed offset in seconds from
// midnight UTC of a Calendar's first date.
type SecondsSinceDatasetUTCStart int64

// SecondsSinceTimezonedDayStart is a signed offset in seconds from a
// day's local midnight. It may fall outside [0, 86400) to encode
// GTFS-style overflowing times (e.g. a 25:30:00 departure belonging to
// the previous service day).
type SecondsSinceTimezonedDayStart int64

// SecondsSinceUTCDayStart is the UTC-anchored equivalent, used by
// timetables whose vehicle times have already been reduced to a
// concrete UTC offset (timezone "()" in the spec's vocabulary).
type SecondsSinceUTCDayStart int64

const secondsPerDay = 24 * 60 * 60

// ErrInvalidRange is returned by New when the requested date range does
// not fit in a DaysSinceDatasetStart count.
var ErrInvalidRange = fmt.Errorf("calendar: invalid date range")

// Calendar is a contiguous civil-date range [FirstDate, LastDate].
type Calendar struct {
	FirstDate time.Time // UTC midnight
	LastDate  time.Time // UTC midnight
	NbDays    int
}

// New constructs a Calendar covering the civil dates [first, last].
// Dates are normalized to UTC midnight. Fails with ErrInvalidRange if
// the range does not fit within a 16-bit day count, or if last
// precedes first.
func New(first, last time.Time) (*Calendar, error) {
	first = civilUTC(first)
	last = civilUTC(last)

	if last.Before(first) {
		return nil, fmt.Errorf("%w: last date %s before first date %s", ErrInvalidRange, last, first)
	}

	nbDays := int(last.Sub(first).Hours()/24) + 1
	if nbDays > 1<<15 {
		return nil, fmt.Errorf("%w: %d days exceeds 16-bit day count", ErrInvalidRange, nbDays)
	}

	return &Calendar{FirstDate: first, LastDate: last, NbDays: nbDays}, nil
}

func civilUTC(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateToDaysSinceStart returns the day offset for date, or false if
// date falls outside the calendar's range.
func (c *Calendar) DateToDaysSinceStart(date time.Time) (DaysSinceDatasetStart, bool) {
	date = civilUTC(date)
	if date.Before(c.FirstDate) || date.After(c.LastDate) {
		return 0, false
	}
	days := int(date.Sub(c.FirstDate).Hours() / 24)
	return DaysSinceDatasetStart(days), true
}

// DateOf returns the civil date (UTC midnight) for a day offset.
func (c *Calendar) DateOf(day DaysSinceDatasetStart) time.Time {
	return c.FirstDate.AddDate(0, 0, int(day))
}

// datasetStartUTC is midnight UTC of FirstDate, expressed as an
// absolute time.Time for offset arithmetic.
func (c *Calendar) datasetStartUTC() time.Time {
	return c.FirstDate
}

// Compose resolves a (day, local seconds, timezone) triple to seconds
// since the dataset's UTC start. DST is resolved by asking loc for the
// UTC offset of the composed naive local datetime; Go's time.Date
// picks the offset in effect just before an ambiguous instant and
// shifts a gap instant forward past the transition, which is
// deterministic and is what the spec requires ("fall back to the
// earliest valid instant").
func (c *Calendar) Compose(day DaysSinceDatasetStart, local SecondsSinceTimezonedDayStart, loc *time.Location) SecondsSinceDatasetUTCStart {
	date := c.DateOf(day)
	naive := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, int(local), 0, loc)
	return SecondsSinceDatasetUTCStart(naive.UTC().Sub(c.datasetStartUTC()).Seconds())
}

// ComposeUTC resolves a (day, UTC seconds since day start) pair to
// seconds since the dataset's UTC start, with no timezone math.
func (c *Calendar) ComposeUTC(day DaysSinceDatasetStart, utcSecondsSinceDayStart SecondsSinceUTCDayStart) SecondsSinceDatasetUTCStart {
	return SecondsSinceDatasetUTCStart(int64(day)*secondsPerDay + int64(utcSecondsSinceDayStart))
}

// ToTime converts a dataset-relative UTC second count to an absolute
// time.Time.
func (c *Calendar) ToTime(s SecondsSinceDatasetUTCStart) time.Time {
	return c.datasetStartUTC().Add(time.Duration(s) * time.Second)
}

// FromTime converts an absolute time to seconds since the dataset's
// UTC start.
func (c *Calendar) FromTime(t time.Time) SecondsSinceDatasetUTCStart {
	return SecondsSinceDatasetUTCStart(t.UTC().Sub(c.datasetStartUTC()).Seconds())
}

package calendar

import "time"

// Decompositions returns, eagerly computed but restartable, every
// (day, local seconds) pair such that Compose(day, local, loc) equals
// utc, restricted to local seconds in [earliestLocal, latestLocal].
//
// The engine uses this to search a single UTC instant against every
// calendar day whose local clock would board a vehicle at that
// instant: a day pattern stores vehicle times as local-clock offsets,
// so converting "is there a trip running at UTC instant X" into "which
// day Y, local offset Z pairs reduce to X" requires trying the
// handful of calendar days whose local midnight is within range.
//
// Bounded by the width of [earliestLocal, latestLocal] plus the
// timezone's maximum UTC offset magnitude (26h, generously) -- never
// more than a handful of candidate days regardless of calendar size.
func (c *Calendar) Decompositions(utc SecondsSinceDatasetUTCStart, loc *time.Location, earliestLocal, latestLocal SecondsSinceTimezonedDayStart) *DecompositionIter {
	const maxOffsetSeconds = 26 * 3600

	lowDay := int64(utc)/secondsPerDay - 1 - int64(latestLocal)/secondsPerDay - maxOffsetSeconds/secondsPerDay
	highDay := int64(utc)/secondsPerDay + 1 - int64(earliestLocal)/secondsPerDay + maxOffsetSeconds/secondsPerDay

	pairs := make([]dayLocalPair, 0, 4)
	for d := lowDay; d <= highDay; d++ {
		day := DaysSinceDatasetStart(d)
		if int64(day) != d {
			continue // out of int16 range, cannot be a valid calendar day
		}
		if d < 0 || int(d) >= c.NbDays {
			continue
		}

		date := c.DateOf(day)
		midnightUTC := SecondsSinceDatasetUTCStart(date.Sub(c.datasetStartUTC()).Seconds())
		naiveLocal := SecondsSinceTimezonedDayStart(int64(utc) - int64(midnightUTC))

		for _, candidate := range []SecondsSinceTimezonedDayStart{naiveLocal, naiveLocal - 3600, naiveLocal + 3600} {
			if candidate < earliestLocal || candidate > latestLocal {
				continue
			}
			if c.Compose(day, candidate, loc) != utc {
				continue
			}
			pairs = append(pairs, dayLocalPair{day: day, local: candidate})
		}
	}

	return &DecompositionIter{pairs: dedup(pairs)}
}

type dayLocalPair struct {
	day   DaysSinceDatasetStart
	local SecondsSinceTimezonedDayStart
}

func dedup(pairs []dayLocalPair) []dayLocalPair {
	seen := make(map[dayLocalPair]bool, len(pairs))
	out := pairs[:0]
	for _, p := range pairs {
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

// DecompositionIter is a restartable, finite sequence of (day, local
// seconds) pairs.
type DecompositionIter struct {
	pairs []dayLocalPair
	pos   int
}

// Next advances the iterator, returning false once exhausted.
func (it *DecompositionIter) Next() (DaysSinceDatasetStart, SecondsSinceTimezonedDayStart, bool) {
	if it.pos >= len(it.pairs) {
		return 0, 0, false
	}
	p := it.pairs[it.pos]
	it.pos++
	return p.day, p.local, true
}

// Reset rewinds the iterator so it can be replayed.
func (it *DecompositionIter) Reset() {
	it.pos = 0
}

// DecompositionsUTC is the UTC-anchored equivalent of Decompositions,
// for timetables that carry no timezone (vehicle times already
// expressed in UTC-seconds-since-day-start).
func (c *Calendar) DecompositionsUTC(utc SecondsSinceDatasetUTCStart, latestUTCDay, earliestUTCDay SecondsSinceUTCDayStart) *DecompositionUTCIter {
	lowDay := int64(utc)/secondsPerDay - 1
	highDay := int64(utc)/secondsPerDay + 1

	pairs := make([]dayUTCPair, 0, 2)
	for d := lowDay; d <= highDay; d++ {
		if d < 0 || int(d) >= c.NbDays {
			continue
		}
		day := DaysSinceDatasetStart(d)
		offset := SecondsSinceUTCDayStart(int64(utc) - d*secondsPerDay)
		if offset < earliestUTCDay || offset > latestUTCDay {
			continue
		}
		pairs = append(pairs, dayUTCPair{day: day, offset: offset})
	}

	return &DecompositionUTCIter{pairs: pairs}
}

type dayUTCPair struct {
	day    DaysSinceDatasetStart
	offset SecondsSinceUTCDayStart
}

// DecompositionUTCIter is the UTC-anchored counterpart to
// DecompositionIter.
type DecompositionUTCIter struct {
	pairs []dayUTCPair
	pos   int
}

func (it *DecompositionUTCIter) Next() (DaysSinceDatasetStart, SecondsSinceUTCDayStart, bool) {
	if it.pos >= len(it.pairs) {
		return 0, 0, false
	}
	p := it.pairs[it.pos]
	it.pos++
	return p.day, p.offset, true
}

func (it *DecompositionUTCIter) Reset() {
	it.pos = 0
}

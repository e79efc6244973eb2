package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustLoc(t *testing.T, name string) *time.Location {
	loc, err := time.LoadLocation(name)
	require.NoError(t, err)
	return loc
}

func TestNewRejectsBackwardsRange(t *testing.T) {
	_, err := New(
		time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	)
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestDateToDaysSinceStart(t *testing.T) {
	cal, err := New(
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)
	assert.Equal(t, 7, cal.NbDays)

	day, ok := cal.DateToDaysSinceStart(time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC))
	require.True(t, ok)
	assert.EqualValues(t, 2, day)

	_, ok = cal.DateToDaysSinceStart(time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC))
	assert.False(t, ok)
}

func TestComposeUTC(t *testing.T) {
	cal, err := New(
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)

	day, _ := cal.DateToDaysSinceStart(time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC))
	got := cal.Compose(day, 8*3600+30*60, time.UTC)
	want := cal.FromTime(time.Date(2024, 1, 3, 8, 30, 0, 0, time.UTC))
	assert.Equal(t, want, got)
}

// Scenario 3 from the spec: a 02:00 Europe/Paris board time
// composed across the spring-forward boundary resolves to a single
// unambiguous instant rather than panicking or drifting.
func TestComposeDSTSpringForward(t *testing.T) {
	paris := mustLoc(t, "Europe/Paris")
	cal, err := New(
		time.Date(2024, 3, 29, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)

	day, ok := cal.DateToDaysSinceStart(time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC))
	require.True(t, ok)

	// 2024-03-31 02:00 local does not exist in Paris (clocks jump
	// 02:00 -> 03:00). Composing it must still produce a
	// deterministic instant, not an error.
	got := cal.Compose(day, 2*3600, paris)
	gotTime := cal.ToTime(got)
	assert.False(t, gotTime.IsZero())
}

func TestDecompositionsRoundTrip(t *testing.T) {
	paris := mustLoc(t, "Europe/Paris")
	cal, err := New(
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)

	day, _ := cal.DateToDaysSinceStart(time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC))
	utc := cal.Compose(day, 8*3600, paris)

	it := cal.Decompositions(utc, paris, 0, 24*3600)
	found := false
	for {
		d, local, ok := it.Next()
		if !ok {
			break
		}
		if d == day && local == 8*3600 {
			found = true
		}
	}
	assert.True(t, found, "expected to recover (day, local) pair from composed UTC instant")

	// Restartable: a second pass over the same iterator yields the
	// same result.
	it.Reset()
	found = false
	for {
		d, local, ok := it.Next()
		if !ok {
			break
		}
		if d == day && local == 8*3600 {
			found = true
		}
	}
	assert.True(t, found)
}

func TestDayPatternDeduplicatesByValue(t *testing.T) {
	cal, err := New(
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)

	patterns := NewDayPatternSet(cal)
	a := patterns.GetOrInsertDays([]DaysSinceDatasetStart{0, 2, 4})
	b := patterns.GetOrInsertDays([]DaysSinceDatasetStart{0, 2, 4})
	c := patterns.GetOrInsertDays([]DaysSinceDatasetStart{0, 2, 5})

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	assert.True(t, patterns.IsAllowed(a, 2))
	assert.False(t, patterns.IsAllowed(a, 3))
}

func TestDayPatternIntersect(t *testing.T) {
	cal, err := New(
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)

	patterns := NewDayPatternSet(cal)
	a := patterns.GetOrInsertDays([]DaysSinceDatasetStart{0, 1, 2, 3})
	b := patterns.GetOrInsertDays([]DaysSinceDatasetStart{2, 3, 4, 5})

	i := patterns.Intersect(a, b)
	assert.False(t, patterns.IsAllowed(i, 0))
	assert.True(t, patterns.IsAllowed(i, 2))
	assert.True(t, patterns.IsAllowed(i, 3))
	assert.False(t, patterns.IsAllowed(i, 4))
}

func TestTimezonePatternsSplitsByOffset(t *testing.T) {
	paris := mustLoc(t, "Europe/Paris")
	cal, err := New(
		time.Date(2024, 3, 28, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)

	patterns := NewDayPatternSet(cal)
	all := patterns.GetOrInsertDays([]DaysSinceDatasetStart{0, 1, 2, 3, 4})

	groups := patterns.TimezonePatterns(all, paris)
	assert.Len(t, groups, 2, "spring-forward week should split into CET and CEST groups")
}

package loads

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/transitway/raptor/model"
)

func TestSetAndGetRoundTrip(t *testing.T) {
	r := New()
	vector := []model.Load{model.LoadLow, model.LoadHigh}
	r.Set("t1", "20260105", vector)

	got := r.Get("t1", "20260105")
	assert.Equal(t, vector, got)
}

func TestGetAbsentReturnsNil(t *testing.T) {
	r := New()
	assert.Nil(t, r.Get("t1", "20260105"))
}

func TestSetCopiesVectorDefensively(t *testing.T) {
	r := New()
	vector := []model.Load{model.LoadLow}
	r.Set("t1", "20260105", vector)

	vector[0] = model.LoadHigh
	assert.Equal(t, model.LoadLow, r.Get("t1", "20260105")[0])
}

func TestByDateOmitsDatesAbsentFromRegistry(t *testing.T) {
	r := New()
	r.Set("t1", "20260105", []model.Load{model.LoadLow})

	byDate := r.ByDate("t1", []string{"20260105", "20260106"})
	assert.Len(t, byDate, 1)
	assert.Contains(t, byDate, "20260105")
	assert.NotContains(t, byDate, "20260106")
}

func TestByDateIsolatesTripsWithSameDate(t *testing.T) {
	r := New()
	r.Set("t1", "20260105", []model.Load{model.LoadLow})
	r.Set("t2", "20260105", []model.Load{model.LoadHigh})

	assert.Equal(t, []model.Load{model.LoadLow}, r.Get("t1", "20260105"))
	assert.Equal(t, []model.Load{model.LoadHigh}, r.Get("t2", "20260105"))
}

// Package loads implements the Loads Data component (spec §3): a
// registry of per-(trip, date) load class vectors. ByDate shapes them
// into timetable.InsertRequest.LoadsByDate; dates without an entry get
// the timetable store's all-Medium default. loader.Load returns an
// empty Registry and neither fills it nor reads it when inserting
// trips.
package loads

import "github.com/transitway/raptor/model"

// key identifies one trip on one service date (YYYYMMDD).
type key struct {
	tripID string
	date   string
}

// Registry holds load vectors keyed by (trip, date). Its vectors reach
// the timetable only through an InsertRequest's LoadsByDate (see
// ByDate), which timetable.Store.Insert's groupByLoads groups by.
type Registry struct {
	vectors map[key][]model.Load
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{vectors: map[key][]model.Load{}}
}

// Set records the load vector for one (trip, date) pair. vector must
// have one entry per segment (nbStops - 1).
func (r *Registry) Set(tripID, date string, vector []model.Load) {
	r.vectors[key{tripID, date}] = append([]model.Load(nil), vector...)
}

// Get returns the load vector for (tripID, date), or nil if absent.
func (r *Registry) Get(tripID, date string) []model.Load {
	return r.vectors[key{tripID, date}]
}

// ByDate builds the map.[]model.Load required by
// timetable.InsertRequest.LoadsByDate for one trip, given the set of
// dates (formatted YYYYMMDD) it is valid on. Dates absent from the
// registry are simply omitted, letting the timetable store apply its
// own all-Medium default.
func (r *Registry) ByDate(tripID string, dates []string) map[string][]model.Load {
	out := map[string][]model.Load{}
	for _, d := range dates {
		if v := r.Get(tripID, d); v != nil {
			out[d] = v
		}
	}
	return out
}

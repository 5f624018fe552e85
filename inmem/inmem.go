// Package inmem holds the in-memory centroid table. The table is built once
// at startup from the reference data source and is read-only afterwards, so
// it may be shared freely across concurrent queries.
package inmem

import (
	"sort"

	"github.com/danwhite-au/postradius/postcode"
)

type postcodeRepository struct {
	byCode  map[postcode.Code]*postcode.Point
	ordered []*postcode.Point
}

// NewPostcodeRepository builds a postcode.Repository from loaded centroid
// points. Codes are unique in the table; should the source ever hand over a
// duplicate, the first occurrence wins. FindAll returns points in code order
// so scans are deterministic.
func NewPostcodeRepository(points []*postcode.Point) postcode.Repository {
	r := &postcodeRepository{
		byCode: make(map[postcode.Code]*postcode.Point, len(points)),
	}
	for _, p := range points {
		if _, ok := r.byCode[p.Code]; ok {
			continue
		}
		r.byCode[p.Code] = p
		r.ordered = append(r.ordered, p)
	}
	sort.Slice(r.ordered, func(i, j int) bool {
		return r.ordered[i].Code < r.ordered[j].Code
	})
	return r
}

func (r *postcodeRepository) Find(code postcode.Code) (*postcode.Point, error) {
	if p, ok := r.byCode[code]; ok {
		return p, nil
	}
	return nil, postcode.ErrUnknown
}

func (r *postcodeRepository) FindAll() []*postcode.Point {
	return r.ordered
}

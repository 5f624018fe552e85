package postcode

import "errors"

// Code uniquely identifies a postcode area: digits only, zero-padded to the
// canonical width.
type Code string

// Point is the published centroid for a postcode area. Latitude and longitude
// are decimal degrees and always present; rows without coordinates never make
// it past the data source.
type Point struct {
	Code      Code
	Latitude  float64
	Longitude float64
}

// ErrUnknown is used when a postcode can't be found.
var ErrUnknown = errors.New("unknown postcode")

// Repository provides access to a postcode centroid store. Implementations
// are read-only after construction and safe for concurrent use.
type Repository interface {
	Find(Code) (*Point, error)
	FindAll() []*Point
}

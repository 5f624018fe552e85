package search

import (
	"errors"
	"math"
	"sort"
	"strings"

	"github.com/pborman/uuid"
	"github.com/umahmood/haversine"

	"github.com/danwhite-au/postradius/postcode"
)

// ErrInvalidRadius is used when a query radius is not a positive number of
// kilometres.
var ErrInvalidRadius = errors.New("radius must be a positive number of kilometres")

// ErrNoPostcodes is used when a request carries no valid postcodes after
// normalization.
var ErrNoPostcodes = errors.New("enter at least one postcode")

// Service is the interface that provides the radius search methods.
type Service interface {
	// FindNeighbours reports, for every input code, all table codes whose
	// centroid lies within radiusKm of the input's centroid. Inputs absent
	// from the table get an empty set and are listed as not found; they never
	// fail the query.
	FindNeighbours(inputs []postcode.Code, radiusKm float64) (Report, error)

	// Dataset reports the size of the loaded centroid table.
	Dataset() Dataset
}

// Neighbourhood is the result row for one input code. Rows follow the
// original input order, duplicates included; an input code within radius of
// itself (always, at distance zero) appears in its own neighbour set.
type Neighbourhood struct {
	Input      postcode.Code   `json:"input_postcode"`
	Neighbours []postcode.Code `json:"neighbours"`
	Count      int             `json:"neighbour_count"`
	Found      bool            `json:"found"`
}

// Summary carries the headline counts for one query.
type Summary struct {
	InputsTotal   int `json:"inputs_total"`
	UniqueInputs  int `json:"unique_inputs"`
	MissingInputs int `json:"missing_inputs"`
	RowsInOutput  int `json:"rows_in_output"`
}

// Report is the complete result of one radius query. Flattened is the union
// of every neighbour set, deduplicated and sorted lexicographically (codes
// keep leading zeros, so string order is the contract).
type Report struct {
	QueryID   string          `json:"query_id"`
	RadiusKm  float64         `json:"radius_km"`
	Rows      []Neighbourhood `json:"rows"`
	NotFound  []postcode.Code `json:"not_found,omitempty"`
	Flattened []postcode.Code `json:"all_neighbours"`
	Summary   Summary         `json:"summary"`
}

// Dataset describes the reference table in use.
type Dataset struct {
	Postcodes int `json:"postcodes"`
}

type service struct {
	postcodes postcode.Repository
}

// NewService returns a search service backed by the given centroid table.
// The table is scanned in full per unique input; at a few thousand points
// that beats maintaining a spatial index.
func NewService(postcodes postcode.Repository) Service {
	return &service{postcodes: postcodes}
}

func (s *service) FindNeighbours(inputs []postcode.Code, radiusKm float64) (Report, error) {
	if radiusKm <= 0 || math.IsNaN(radiusKm) || math.IsInf(radiusKm, 0) {
		return Report{}, ErrInvalidRadius
	}

	table := s.postcodes.FindAll()
	unique := dedupe(inputs)

	sets := make(map[postcode.Code][]postcode.Code, len(unique))
	missing := make(map[postcode.Code]bool)
	for _, p := range unique {
		origin, err := s.postcodes.Find(p)
		if err != nil {
			sets[p] = []postcode.Code{}
			missing[p] = true
			continue
		}
		from := haversine.Coord{Lat: origin.Latitude, Lon: origin.Longitude}
		var neighbours []postcode.Code
		for _, q := range table {
			_, km := haversine.Distance(from, haversine.Coord{Lat: q.Latitude, Lon: q.Longitude})
			if km <= radiusKm {
				neighbours = append(neighbours, q.Code)
			}
		}
		sets[p] = sortCodes(dedupe(neighbours))
	}

	// Re-expand over the original input order so duplicate inputs keep their
	// rows, while each unique code was computed only once.
	rows := make([]Neighbourhood, 0, len(inputs))
	for _, p := range inputs {
		ns := sets[p]
		rows = append(rows, Neighbourhood{
			Input:      p,
			Neighbours: ns,
			Count:      len(ns),
			Found:      !missing[p],
		})
	}

	notFound := make([]postcode.Code, 0, len(missing))
	for p := range missing {
		notFound = append(notFound, p)
	}
	sortCodes(notFound)

	var all []postcode.Code
	for _, p := range unique {
		all = append(all, sets[p]...)
	}
	flattened := sortCodes(dedupe(all))

	return Report{
		QueryID:   NextQueryID(),
		RadiusKm:  radiusKm,
		Rows:      rows,
		NotFound:  notFound,
		Flattened: flattened,
		Summary: Summary{
			InputsTotal:   len(inputs),
			UniqueInputs:  len(unique),
			MissingInputs: len(notFound),
			RowsInOutput:  len(rows),
		},
	}, nil
}

func (s *service) Dataset() Dataset {
	return Dataset{Postcodes: len(s.postcodes.FindAll())}
}

// NextQueryID generates a short identifier for a single radius query.
func NextQueryID() string {
	return strings.Split(strings.ToUpper(uuid.New()), "-")[0]
}

// dedupe keeps the first occurrence of each code, preserving order.
func dedupe(codes []postcode.Code) []postcode.Code {
	seen := make(map[postcode.Code]bool, len(codes))
	out := make([]postcode.Code, 0, len(codes))
	for _, c := range codes {
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

func sortCodes(codes []postcode.Code) []postcode.Code {
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}

func joinCodes(codes []postcode.Code, sep string) string {
	ss := make([]string, len(codes))
	for i, c := range codes {
		ss[i] = string(c)
	}
	return strings.Join(ss, sep)
}

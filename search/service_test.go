package search

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danwhite-au/postradius/inmem"
	"github.com/danwhite-au/postradius/postcode"
)

func testRepository() postcode.Repository {
	return inmem.NewPostcodeRepository([]*postcode.Point{
		{Code: "2010", Latitude: -33.88, Longitude: 151.22},
		{Code: "2011", Latitude: -33.87, Longitude: 151.23},
		{Code: "9999", Latitude: -10, Longitude: 10},
	})
}

func TestFindNeighboursWithinRadius(t *testing.T) {
	s := NewService(testRepository())

	report, err := s.FindNeighbours([]postcode.Code{"2010"}, 5)
	require.NoError(t, err)

	require.Len(t, report.Rows, 1)
	row := report.Rows[0]
	assert.Equal(t, postcode.Code("2010"), row.Input)
	assert.True(t, row.Found)
	assert.Equal(t, []postcode.Code{"2010", "2011"}, row.Neighbours)
	assert.Equal(t, 2, row.Count)
	assert.Empty(t, report.NotFound)
	assert.NotEmpty(t, report.QueryID)
}

func TestFindNeighboursSelfInclusion(t *testing.T) {
	s := NewService(testRepository())

	// Distance to self is zero, so any positive radius keeps the input in
	// its own neighbour set.
	report, err := s.FindNeighbours([]postcode.Code{"9999"}, 0.001)
	require.NoError(t, err)
	assert.Contains(t, report.Rows[0].Neighbours, postcode.Code("9999"))
}

func TestFindNeighboursBoundaryInclusive(t *testing.T) {
	// Two points on the same meridian, one degree of latitude apart, are
	// within a 112 km radius but not a 110 km one.
	repo := inmem.NewPostcodeRepository([]*postcode.Point{
		{Code: "1000", Latitude: -33, Longitude: 151},
		{Code: "2000", Latitude: -34, Longitude: 151},
	})
	s := NewService(repo)

	report, err := s.FindNeighbours([]postcode.Code{"1000"}, 112)
	require.NoError(t, err)
	assert.Equal(t, []postcode.Code{"1000", "2000"}, report.Rows[0].Neighbours)

	report, err = s.FindNeighbours([]postcode.Code{"1000"}, 110)
	require.NoError(t, err)
	assert.Equal(t, []postcode.Code{"1000"}, report.Rows[0].Neighbours)
}

func TestFindNeighboursUnknownCode(t *testing.T) {
	s := NewService(testRepository())

	report, err := s.FindNeighbours([]postcode.Code{"0000", "2010"}, 5)
	require.NoError(t, err)

	require.Len(t, report.Rows, 2)
	assert.False(t, report.Rows[0].Found)
	assert.Empty(t, report.Rows[0].Neighbours)
	assert.True(t, report.Rows[1].Found)
	assert.Equal(t, []postcode.Code{"0000"}, report.NotFound)
	assert.Equal(t, 1, report.Summary.MissingInputs)
}

func TestFindNeighboursDuplicateInputsKeepRows(t *testing.T) {
	s := NewService(testRepository())

	report, err := s.FindNeighbours([]postcode.Code{"2010", "2010"}, 5)
	require.NoError(t, err)

	require.Len(t, report.Rows, 2)
	assert.Equal(t, report.Rows[0], report.Rows[1])
	assert.Equal(t, 2, report.Summary.InputsTotal)
	assert.Equal(t, 1, report.Summary.UniqueInputs)
	assert.Equal(t, 2, report.Summary.RowsInOutput)
}

func TestFindNeighboursFlattened(t *testing.T) {
	s := NewService(testRepository())

	report, err := s.FindNeighbours([]postcode.Code{"9999", "2010"}, 5)
	require.NoError(t, err)

	assert.Equal(t, []postcode.Code{"2010", "2011", "9999"}, report.Flattened)
	assert.Equal(t, "2010, 2011, 9999", joinCodes(report.Flattened, ", "))
}

func TestFindNeighboursMonotonicInRadius(t *testing.T) {
	s := NewService(testRepository())

	small, err := s.FindNeighbours([]postcode.Code{"2010"}, 1)
	require.NoError(t, err)
	large, err := s.FindNeighbours([]postcode.Code{"2010"}, 5)
	require.NoError(t, err)

	assert.Subset(t, large.Rows[0].Neighbours, small.Rows[0].Neighbours)
	assert.Equal(t, []postcode.Code{"2010"}, small.Rows[0].Neighbours)
}

func TestFindNeighboursDeterministic(t *testing.T) {
	s := NewService(testRepository())
	inputs := []postcode.Code{"2011", "0000", "2010"}

	first, err := s.FindNeighbours(inputs, 5)
	require.NoError(t, err)
	second, err := s.FindNeighbours(inputs, 5)
	require.NoError(t, err)

	assert.Equal(t, first.Rows, second.Rows)
	assert.Equal(t, first.NotFound, second.NotFound)
	assert.Equal(t, first.Flattened, second.Flattened)
}

func TestFindNeighboursEmptyInputs(t *testing.T) {
	s := NewService(testRepository())

	report, err := s.FindNeighbours(nil, 5)
	require.NoError(t, err)
	assert.Empty(t, report.Rows)
	assert.Empty(t, report.NotFound)
	assert.Empty(t, report.Flattened)
	assert.Equal(t, 0, report.Summary.InputsTotal)
}

func TestFindNeighboursInvalidRadius(t *testing.T) {
	s := NewService(testRepository())

	for _, radius := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		_, err := s.FindNeighbours([]postcode.Code{"2010"}, radius)
		assert.ErrorIs(t, err, ErrInvalidRadius)
	}
}

func TestDataset(t *testing.T) {
	s := NewService(testRepository())
	assert.Equal(t, Dataset{Postcodes: 3}, s.Dataset())
}

package search

import (
	"time"

	"github.com/go-kit/kit/log"

	"github.com/danwhite-au/postradius/postcode"
)

type loggingService struct {
	logger log.Logger
	Service
}

// NewLoggingService returns a new instance of a logging Service.
func NewLoggingService(logger log.Logger, s Service) Service {
	return &loggingService{logger, s}
}

func (s *loggingService) FindNeighbours(inputs []postcode.Code, radiusKm float64) (r Report, err error) {
	defer func(begin time.Time) {
		s.logger.Log(
			"method", "find_neighbours",
			"query_id", r.QueryID,
			"inputs", len(inputs),
			"unique_inputs", r.Summary.UniqueInputs,
			"missing_inputs", r.Summary.MissingInputs,
			"radius_km", radiusKm,
			"took", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.Service.FindNeighbours(inputs, radiusKm)
}

func (s *loggingService) Dataset() (d Dataset) {
	defer func(begin time.Time) {
		s.logger.Log(
			"method", "dataset",
			"postcodes", d.Postcodes,
			"took", time.Since(begin),
		)
	}(time.Now())
	return s.Service.Dataset()
}

package search

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/go-kit/kit/circuitbreaker"
	"github.com/go-kit/kit/endpoint"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/ratelimit"
	"github.com/go-kit/kit/tracing/opentracing"
	"github.com/go-kit/kit/tracing/zipkin"

	stdopentracing "github.com/opentracing/opentracing-go"
	stdzipkin "github.com/openzipkin/zipkin-go"
	"github.com/sony/gobreaker"

	"github.com/danwhite-au/postradius/postcode"
)

type findNeighboursRequest struct {
	Inputs   []postcode.Code
	RadiusKm float64
}

type findNeighboursResponse struct {
	Report Report `json:"report"`
	Err    error  `json:"error,omitempty"`
}

func (r findNeighboursResponse) error() error { return r.Err }

func makeFindNeighboursEndpoint(s Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(findNeighboursRequest)
		report, err := s.FindNeighbours(req.Inputs, req.RadiusKm)
		return findNeighboursResponse{Report: report, Err: err}, nil
	}
}

type datasetRequest struct{}

type datasetResponse struct {
	Dataset Dataset `json:"dataset"`
	Err     error   `json:"error,omitempty"`
}

func (r datasetResponse) error() error { return r.Err }

func makeDatasetEndpoint(s Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		_ = request.(datasetRequest)
		return datasetResponse{Dataset: s.Dataset(), Err: nil}, nil
	}
}

// Set collects all of the endpoints that compose the search service.
type Set struct {
	FindNeighboursEndpoint endpoint.Endpoint
	DatasetEndpoint        endpoint.Endpoint
}

// NewSet returns a Set that wraps the provided service, and wires in all of
// the expected endpoint middlewares via the various parameters.
func NewSet(svc Service, logger log.Logger, duration metrics.Histogram, otTracer stdopentracing.Tracer, zipkinTracer *stdzipkin.Tracer) Set {
	var findNeighboursEndpoint endpoint.Endpoint
	{
		findNeighboursEndpoint = makeFindNeighboursEndpoint(svc)

		findNeighboursEndpoint = ratelimit.NewErroringLimiter(rate.NewLimiter(rate.Limit(1), 100))(findNeighboursEndpoint)
		findNeighboursEndpoint = circuitbreaker.Gobreaker(gobreaker.NewCircuitBreaker(gobreaker.Settings{}))(findNeighboursEndpoint)
		findNeighboursEndpoint = opentracing.TraceServer(otTracer, "FindNeighbours")(findNeighboursEndpoint)
		if zipkinTracer != nil {
			findNeighboursEndpoint = zipkin.TraceEndpoint(zipkinTracer, "FindNeighbours")(findNeighboursEndpoint)
		}
		findNeighboursEndpoint = LoggingMiddleware(log.With(logger, "method", "FindNeighbours"))(findNeighboursEndpoint)
		findNeighboursEndpoint = InstrumentingMiddleware(duration.With("method", "FindNeighbours"))(findNeighboursEndpoint)
	}

	var datasetEndpoint endpoint.Endpoint
	{
		datasetEndpoint = makeDatasetEndpoint(svc)

		datasetEndpoint = ratelimit.NewErroringLimiter(rate.NewLimiter(rate.Limit(1), 100))(datasetEndpoint)
		datasetEndpoint = circuitbreaker.Gobreaker(gobreaker.NewCircuitBreaker(gobreaker.Settings{}))(datasetEndpoint)
		datasetEndpoint = opentracing.TraceServer(otTracer, "Dataset")(datasetEndpoint)
		if zipkinTracer != nil {
			datasetEndpoint = zipkin.TraceEndpoint(zipkinTracer, "Dataset")(datasetEndpoint)
		}
		datasetEndpoint = LoggingMiddleware(log.With(logger, "method", "Dataset"))(datasetEndpoint)
		datasetEndpoint = InstrumentingMiddleware(duration.With("method", "Dataset"))(datasetEndpoint)
	}

	return Set{
		FindNeighboursEndpoint: findNeighboursEndpoint,
		DatasetEndpoint:        datasetEndpoint,
	}
}

// FindNeighbours implements the service interface so Set can be used as a service.
func (s Set) FindNeighbours(inputs []postcode.Code, radiusKm float64) (Report, error) {
	resp, err := s.FindNeighboursEndpoint(context.Background(), findNeighboursRequest{Inputs: inputs, RadiusKm: radiusKm})
	if err != nil {
		return Report{}, err
	}
	response := resp.(findNeighboursResponse)
	return response.Report, response.Err
}

// Dataset implements the service interface so Set can be used as a service.
func (s Set) Dataset() Dataset {
	resp, err := s.DatasetEndpoint(context.Background(), datasetRequest{})
	if err != nil {
		return Dataset{}
	}
	return resp.(datasetResponse).Dataset
}

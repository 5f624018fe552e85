package search

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	kitlog "github.com/go-kit/kit/log"
	"github.com/go-kit/kit/tracing/zipkin"
	"github.com/go-kit/kit/transport"
	kithttp "github.com/go-kit/kit/transport/http"

	stdzipkin "github.com/openzipkin/zipkin-go"

	"github.com/danwhite-au/postradius/postcode"
)

// maxRadiusKm is the presentation-layer cap carried over from the original
// form. The core accepts any positive radius; requests beyond the cap are
// rejected before they reach it.
const maxRadiusKm = 1000

// MakeHTTPHandler mounts the search endpoints on a mux router. The JSON route
// backs the interactive form; the export routes run the same query and encode
// it as a downloadable file instead.
func MakeHTTPHandler(e Set, logger kitlog.Logger, zipkinTracer *stdzipkin.Tracer) http.Handler {
	r := mux.NewRouter()

	opts := []kithttp.ServerOption{
		kithttp.ServerErrorHandler(transport.NewLogErrorHandler(logger)),
		kithttp.ServerErrorEncoder(encodeError),
	}
	if zipkinTracer != nil {
		opts = append(opts, zipkin.HTTPServerTrace(zipkinTracer))
	}

	findNeighboursHandler := kithttp.NewServer(
		e.FindNeighboursEndpoint,
		decodeFindNeighboursRequest,
		encodeResponse,
		opts...,
	)

	exportTableHandler := kithttp.NewServer(
		e.FindNeighboursEndpoint,
		decodeFindNeighboursRequest,
		encodeTableCSVResponse,
		opts...,
	)

	exportFlatCSVHandler := kithttp.NewServer(
		e.FindNeighboursEndpoint,
		decodeFindNeighboursRequest,
		encodeFlatCSVResponse,
		opts...,
	)

	exportTXTHandler := kithttp.NewServer(
		e.FindNeighboursEndpoint,
		decodeFindNeighboursRequest,
		encodeFlatTXTResponse,
		opts...,
	)

	datasetHandler := kithttp.NewServer(
		e.DatasetEndpoint,
		decodeDatasetRequest,
		encodeResponse,
		opts...,
	)

	r.Handle("/search/v1/neighbours", findNeighboursHandler).Methods("POST")
	r.Handle("/search/v1/neighbours/export.csv", exportTableHandler).Methods("POST")
	r.Handle("/search/v1/neighbours/export-flat.csv", exportFlatCSVHandler).Methods("POST")
	r.Handle("/search/v1/neighbours/export.txt", exportTXTHandler).Methods("POST")
	r.Handle("/search/v1/dataset", datasetHandler).Methods("GET")

	return r
}

func decodeFindNeighboursRequest(_ context.Context, r *http.Request) (interface{}, error) {
	var body struct {
		Postcodes string  `json:"postcodes"`
		RadiusKm  float64 `json:"radius_km"`
	}

	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return nil, err
	}

	inputs := postcode.ParseList(body.Postcodes)
	if len(inputs) == 0 {
		return nil, ErrNoPostcodes
	}
	if body.RadiusKm > maxRadiusKm {
		return nil, ErrInvalidRadius
	}

	return findNeighboursRequest{
		Inputs:   inputs,
		RadiusKm: body.RadiusKm,
	}, nil
}

func decodeDatasetRequest(_ context.Context, _ *http.Request) (interface{}, error) {
	return datasetRequest{}, nil
}

func encodeResponse(ctx context.Context, w http.ResponseWriter, response interface{}) error {
	if e, ok := response.(errorer); ok && e.error() != nil {
		encodeError(ctx, e.error(), w)
		return nil
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	return json.NewEncoder(w).Encode(response)
}

// encodeTableCSVResponse writes the per-input table: one row per input in the
// original order, neighbours joined with ";".
func encodeTableCSVResponse(ctx context.Context, w http.ResponseWriter, response interface{}) error {
	if e, ok := response.(errorer); ok && e.error() != nil {
		encodeError(ctx, e.error(), w)
		return nil
	}
	report := response.(findNeighboursResponse).Report

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", attachment(report.RadiusKm, "csv"))

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"input_postcode", "neighbours", "neighbour_count"}); err != nil {
		return err
	}
	for _, row := range report.Rows {
		record := []string{string(row.Input), joinCodes(row.Neighbours, ";"), strconv.Itoa(row.Count)}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// encodeFlatCSVResponse writes the flattened neighbour set, one code per row.
func encodeFlatCSVResponse(ctx context.Context, w http.ResponseWriter, response interface{}) error {
	if e, ok := response.(errorer); ok && e.error() != nil {
		encodeError(ctx, e.error(), w)
		return nil
	}
	report := response.(findNeighboursResponse).Report

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", attachment(report.RadiusKm, "csv"))

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"postcode"}); err != nil {
		return err
	}
	for _, c := range report.Flattened {
		if err := cw.Write([]string{string(c)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// encodeFlatTXTResponse writes the flattened neighbour set as a single
// comma-and-space separated line.
func encodeFlatTXTResponse(ctx context.Context, w http.ResponseWriter, response interface{}) error {
	if e, ok := response.(errorer); ok && e.error() != nil {
		encodeError(ctx, e.error(), w)
		return nil
	}
	report := response.(findNeighboursResponse).Report

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", attachment(report.RadiusKm, "txt"))

	_, err := fmt.Fprintln(w, joinCodes(report.Flattened, ", "))
	return err
}

func attachment(radiusKm float64, ext string) string {
	return fmt.Sprintf("attachment; filename=nearby_within_%dkm.%s", int(radiusKm), ext)
}

type errorer interface {
	error() error
}

// encode errors from business-logic
func encodeError(_ context.Context, err error, w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	switch err {
	case ErrNoPostcodes, ErrInvalidRadius:
		w.WriteHeader(http.StatusBadRequest)
	case postcode.ErrUnknown:
		w.WriteHeader(http.StatusNotFound)
	default:
		w.WriteHeader(http.StatusInternalServerError)
	}
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": err.Error(),
	})
}

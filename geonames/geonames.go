// Package geonames loads the reference centroid table from the geonames
// postal-code export. It is the external data source for the search service:
// fetched (or read from a cached archive) once at startup, canonicalized, and
// handed to the repository as an immutable set of points.
package geonames

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-kit/kit/log"

	"github.com/danwhite-au/postradius/postcode"
)

// DefaultBaseURL is where geonames publishes the per-country postal bundles.
const DefaultBaseURL = "https://download.geonames.org/export/zip"

// Source fetches and parses the postal-code bundle for one country.
type Source struct {
	Country  string       // ISO country code of the bundle, e.g. "AU"
	BaseURL  string       // defaults to DefaultBaseURL
	CacheDir string       // when set, <CacheDir>/<Country>.zip is reused and refreshed
	Client   *http.Client // defaults to http.DefaultClient
	Logger   log.Logger
}

// Load returns every centroid point in the bundle with valid coordinates.
// Codes are canonicalized; rows whose code yields no digits or whose
// coordinates fail to parse are skipped with a warning. The first row seen
// per code wins, so the returned set honours the unique-code invariant.
func (s *Source) Load(ctx context.Context) ([]*postcode.Point, error) {
	logger := s.Logger
	if logger == nil {
		logger = log.NewNopLogger()
	}

	archive, err := s.fetchArchive(ctx, logger)
	if err != nil {
		return nil, err
	}

	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return nil, fmt.Errorf("geonames: unzip %s bundle: %w", s.Country, err)
	}

	// The archive holds <Country>.txt plus a readme; only the table matters.
	table := s.Country + ".txt"
	for _, f := range zr.File {
		if f.Name != table {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("geonames: open %s: %w", table, err)
		}
		defer rc.Close()
		return parseTable(rc, logger), nil
	}
	return nil, fmt.Errorf("geonames: %s not present in bundle", table)
}

func (s *Source) fetchArchive(ctx context.Context, logger log.Logger) ([]byte, error) {
	var cacheFile string
	if s.CacheDir != "" {
		cacheFile = filepath.Join(s.CacheDir, s.Country+".zip")
		if b, err := os.ReadFile(cacheFile); err == nil {
			logger.Log("msg", "using cached bundle", "file", cacheFile)
			return b, nil
		}
	}

	baseURL := s.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}

	url := baseURL + "/" + s.Country + ".zip"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geonames: download %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geonames: download %s: %s", url, resp.Status)
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("geonames: read %s: %w", url, err)
	}

	if cacheFile != "" {
		if err := os.WriteFile(cacheFile, b, 0644); err != nil {
			logger.Log("msg", "could not cache bundle", "file", cacheFile, "err", err)
		}
	}
	return b, nil
}

// parseTable reads the tab-separated geonames table: country code, postal
// code, place name, three admin name/code pairs, latitude, longitude,
// accuracy. Twelve columns per row.
func parseTable(r io.Reader, logger log.Logger) []*postcode.Point {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.FieldsPerRecord = 12

	seen := make(map[postcode.Code]bool)
	var points []*postcode.Point
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			logger.Log("msg", "skipping unreadable record", "err", err)
			continue
		}

		code, ok := postcode.Canonicalize(record[1])
		if !ok {
			continue
		}
		if seen[code] {
			continue
		}

		lat, err := strconv.ParseFloat(record[9], 64)
		if err != nil {
			logger.Log("msg", "skipping record with bad latitude", "code", code)
			continue
		}
		lon, err := strconv.ParseFloat(record[10], 64)
		if err != nil {
			logger.Log("msg", "skipping record with bad longitude", "code", code)
			continue
		}

		seen[code] = true
		points = append(points, &postcode.Point{
			Code:      code,
			Latitude:  lat,
			Longitude: lon,
		})
	}
	return points
}

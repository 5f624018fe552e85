package geonames

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-kit/kit/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danwhite-au/postradius/postcode"
)

const fixtureTable = "AU\t2010\tDarlinghurst\tNew South Wales\tNSW\t\t\t\t\t-33.8794\t151.2205\t4\n" +
	"AU\t2010\tSurry Hills\tNew South Wales\tNSW\t\t\t\t\t-33.8860\t151.2111\t4\n" +
	"AU\t800\tDarwin City\tNorthern Territory\tNT\t\t\t\t\t-12.4592\t130.8377\t4\n" +
	"AU\t9998\tNowhere\tNowhere\tNA\t\t\t\t\t\t151.0000\t4\n" +
	"AU\t4814\tAitkenvale\tQueensland\tQLD\t\t\t\t\t-19.2954\t146.7734\t4\n"

func TestParseTable(t *testing.T) {
	points := parseTable(strings.NewReader(fixtureTable), log.NewNopLogger())

	require.Len(t, points, 3)

	codes := make([]postcode.Code, len(points))
	for i, p := range points {
		codes[i] = p.Code
	}
	// First row per code wins; "800" is padded to the canonical width; the
	// row with a missing latitude is dropped.
	assert.Equal(t, []postcode.Code{"2010", "0800", "4814"}, codes)
	assert.InDelta(t, -33.8794, points[0].Latitude, 1e-9)
	assert.InDelta(t, 151.2205, points[0].Longitude, 1e-9)
}

func TestLoadFromCachedArchive(t *testing.T) {
	dir := t.TempDir()
	writeFixtureArchive(t, filepath.Join(dir, "AU.zip"))

	src := &Source{Country: "AU", CacheDir: dir}
	points, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, points, 3)
}

func TestLoadMissingTable(t *testing.T) {
	dir := t.TempDir()

	// Archive without AU.txt inside.
	f, err := os.Create(filepath.Join(dir, "AU.zip"))
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("readme.txt")
	require.NoError(t, err)
	_, err = w.Write([]byte("nothing to see"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	src := &Source{Country: "AU", CacheDir: dir}
	_, err = src.Load(context.Background())
	assert.Error(t, err)
}

func writeFixtureArchive(t *testing.T, path string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("AU.txt")
	require.NoError(t, err)
	_, err = w.Write([]byte(fixtureTable))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

// Package localfile reads feeds and curated overrides from disk and writes
// the finished artifacts.
package localfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/covid-dashboard-etl/internal/domain"
)

// Feed file names as published by TEHIK.
const (
	TestResultsFile     = "opendata_covid19_test_results.json"
	LocationsFile       = "opendata_covid19_test_location.json"
	HospitalizationFile = "opendata_covid19_hospitalization_timeline.json"
	VaccinationFile     = "opendata_covid19_vaccination_total.json"
)

// FeedDir implements pipeline.FeedSource over a directory of downloaded
// feeds. The locations file's modification time stands in for the
// Last-Modified header.
type FeedDir struct {
	dir string
}

// NewFeedDir creates a feed source reading from dir.
func NewFeedDir(dir string) *FeedDir {
	return &FeedDir{dir: dir}
}

// FetchFeeds decodes all four feed files.
func (f *FeedDir) FetchFeeds(ctx context.Context) (domain.Feeds, error) {
	var feeds domain.Feeds
	if err := ctx.Err(); err != nil {
		return feeds, err
	}

	if err := readJSON(filepath.Join(f.dir, TestResultsFile), &feeds.TestResults); err != nil {
		return domain.Feeds{}, err
	}
	if err := readJSON(filepath.Join(f.dir, LocationsFile), &feeds.Locations); err != nil {
		return domain.Feeds{}, err
	}
	if err := readJSON(filepath.Join(f.dir, HospitalizationFile), &feeds.Hospitalizations); err != nil {
		return domain.Feeds{}, err
	}
	if err := readJSON(filepath.Join(f.dir, VaccinationFile), &feeds.Vaccinations); err != nil {
		return domain.Feeds{}, err
	}
	return feeds, nil
}

// LocationsLastModified returns the modification time of the locations file.
func (f *FeedDir) LocationsLastModified(_ context.Context) (time.Time, error) {
	info, err := os.Stat(filepath.Join(f.dir, LocationsFile))
	if err != nil {
		return time.Time{}, fmt.Errorf("stat %s: %w", LocationsFile, err)
	}
	return info.ModTime(), nil
}

func readJSON(path string, v any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return nil
}

// Package reference loads the immutable reference tables of a build: the
// county table, populations, calendar starts, age groups and per-metric gap
// policies.
package reference

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/covid-dashboard-etl/internal/domain"
)

//go:embed estonia.yaml
var defaultData []byte

// Data mirrors the reference YAML document.
type Data struct {
	Timezone          string                  `yaml:"timezone"`
	CountryPopulation int64                   `yaml:"country_population"`
	ActiveWindowDays  int                     `yaml:"active_window_days"`
	Calendars         Calendars               `yaml:"calendars"`
	AgeGroups         []string                `yaml:"age_groups"`
	Metrics           map[string]MetricPolicy `yaml:"metrics"`
	Counties          []County                `yaml:"counties"`
}

// Calendars holds the start date of each reporting window.
type Calendars struct {
	Cases        string `yaml:"cases"`
	Deaths       string `yaml:"deaths"`
	Vaccinations string `yaml:"vaccinations"`
}

// MetricPolicy is the YAML form of domain.GapPolicy.
type MetricPolicy struct {
	Fill     string `yaml:"fill"`
	Monotone bool   `yaml:"monotone"`
}

// County is one row of the county table.
type County struct {
	Name       string   `yaml:"name"`
	Codes      []string `yaml:"codes"`
	Population int64    `yaml:"population"`
}

// Load reads reference data from path, or the embedded default when path is
// empty.
func Load(path string) (Data, error) {
	raw := defaultData
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Data{}, fmt.Errorf("read reference data: %w", err)
		}
		raw = b
	}
	return Parse(raw)
}

// Parse decodes and validates a reference YAML document.
func Parse(raw []byte) (Data, error) {
	var d Data
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return Data{}, fmt.Errorf("decode reference data: %w", err)
	}
	if d.Timezone == "" {
		return Data{}, errors.New("reference data: timezone is required")
	}
	if d.CountryPopulation <= 0 {
		return Data{}, errors.New("reference data: country_population must be positive")
	}
	if len(d.Counties) == 0 {
		return Data{}, errors.New("reference data: counties are required")
	}
	return d, nil
}

// Settings turns the reference data into engine settings for a run at now.
func (d Data) Settings(now time.Time) (domain.Settings, error) {
	loc, err := time.LoadLocation(d.Timezone)
	if err != nil {
		return domain.Settings{}, fmt.Errorf("reference data: timezone: %w", err)
	}

	s := domain.Settings{
		Now:               now,
		Location:          loc,
		CountryPopulation: d.CountryPopulation,
		AgeGroups:         d.AgeGroups,
		ActiveWindowDays:  d.ActiveWindowDays,
	}

	starts := []struct {
		name  string
		value string
		into  *time.Time
	}{
		{"cases", d.Calendars.Cases, &s.CaseStart},
		{"deaths", d.Calendars.Deaths, &s.DeathStart},
		{"vaccinations", d.Calendars.Vaccinations, &s.VaccinationStart},
	}
	for _, st := range starts {
		date, err := domain.ParseDate(st.value)
		if err != nil {
			return domain.Settings{}, fmt.Errorf("reference data: calendars.%s: %w", st.name, err)
		}
		*st.into = date
	}

	counties := make([]domain.County, len(d.Counties))
	for i, c := range d.Counties {
		counties[i] = domain.County{Name: c.Name, Codes: c.Codes, Population: c.Population}
	}
	if s.Counties, err = domain.NewCountyTable(counties); err != nil {
		return domain.Settings{}, fmt.Errorf("reference data: %w", err)
	}

	s.Policies = domain.DefaultPolicies()
	for metric, p := range d.Metrics {
		fill, err := domain.ParseFillPolicy(p.Fill)
		if err != nil {
			return domain.Settings{}, fmt.Errorf("reference data: metrics.%s: %w", metric, err)
		}
		s.Policies[metric] = domain.GapPolicy{Fill: fill, Monotone: p.Monotone}
	}
	return s, nil
}

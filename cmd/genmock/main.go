// Command genmock writes a deterministic set of synthetic TEHIK feeds and
// curated override files for offline runs (FEED_DIR). The data is shaped by
// the reference tables, so county names, age groups and calendar starts
// match what the pipeline expects.
//
// Usage:
//
//	go run ./cmd/genmock -out data/mock -now 2021-05-04T08:00:00Z
//	FEED_DIR=data/mock DEATHS_PATH=data/mock/deaths.json \
//	  MANUAL_DATA_PATH=data/mock/manual_data.json \
//	  REPLAY_AT=2021-05-04T08:00:00Z go run ./cmd/etl
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/covid-dashboard-etl/internal/adapter/localfile"
	"github.com/couchcryptid/covid-dashboard-etl/internal/domain"
	"github.com/couchcryptid/covid-dashboard-etl/internal/reference"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output directory for the feed and override files")
	nowFlag := flag.String("now", "2021-05-04T08:00:00Z", "RFC 3339 instant the feeds are generated for")
	seed := flag.Uint64("seed", 1, "random seed")
	testsPerDay := flag.Int("tests-per-day", 40, "tests generated per day at the peak")
	refPath := flag.String("reference", "", "reference data YAML (default: embedded)")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}
	now, err := time.Parse(time.RFC3339, *nowFlag)
	if err != nil {
		return fmt.Errorf("invalid -now: %w", err)
	}

	ref, err := reference.Load(*refPath)
	if err != nil {
		return err
	}

	// A fixed clock makes the output, including the locations mtime,
	// reproducible.
	clock := clockwork.NewFakeClockAt(now)
	settings, err := ref.Settings(clock.Now())
	if err != nil {
		return err
	}

	g := &generator{
		settings:    settings,
		rng:         rand.New(rand.NewPCG(*seed, *seed^0x9e3779b97f4a7c15)), //nolint:gosec // synthetic data
		testsPerDay: *testsPerDay,
		end:         domain.Yesterday(settings.Now, settings.Location),
	}
	set := g.generate()

	if err := os.MkdirAll(*out, 0o755); err != nil {
		return err
	}
	files := []struct {
		name string
		v    any
	}{
		{localfile.TestResultsFile, set.tests},
		{localfile.LocationsFile, set.locations},
		{localfile.HospitalizationFile, set.hospital},
		{localfile.VaccinationFile, set.vaccinations},
		{"deaths.json", set.deaths},
		{"manual_data.json", set.manual},
	}
	for _, f := range files {
		if err := writeJSON(filepath.Join(*out, f.name), f.v); err != nil {
			return fmt.Errorf("writing %s: %w", f.name, err)
		}
		log.Printf("wrote %s", f.name)
	}

	// The locations mtime stands in for the Last-Modified header.
	locations := filepath.Join(*out, localfile.LocationsFile)
	if err := os.Chtimes(locations, clock.Now(), clock.Now()); err != nil {
		return err
	}

	log.Printf("range %s..%s: %d tests (%d positive), %d deaths",
		domain.FormatDate(settings.CaseStart), domain.FormatDate(g.end), len(set.tests), g.positives, g.deceased)
	return nil
}

type mockSet struct {
	tests        []domain.TestResult
	locations    []domain.LocationRecord
	hospital     []domain.HospitalRecord
	vaccinations []domain.VaccinationRecord
	deaths       map[string]int64
	manual       manualData
}

type manualData struct {
	Deceased  map[string]int64 `json:"deceased"`
	Intensive map[string]int64 `json:"intensive"`
}

type generator struct {
	settings    domain.Settings
	rng         *rand.Rand
	testsPerDay int
	end         time.Time

	positives int64
	deceased  int64
}

func (g *generator) generate() mockSet {
	set := mockSet{
		deaths: map[string]int64{},
		manual: manualData{Deceased: map[string]int64{}, Intensive: map[string]int64{}},
	}
	counties := g.settings.Counties.Counties()

	var (
		cumulative []int64
		discharged int64
		communes   = map[string]int64{}
	)
	days := int(g.end.Sub(g.settings.CaseStart).Hours()/24) + 1
	for i := range days {
		date := g.settings.CaseStart.AddDate(0, 0, i)
		key := domain.FormatDate(date)
		wave := waveAt(i, days)

		n := 1 + int(float64(g.testsPerDay)*(0.3+0.7*wave))
		var positive int64
		for range n {
			c := counties[g.rng.IntN(len(counties))]
			rec := domain.TestResult{
				ID:             uuid.NewSHA1(uuid.NameSpaceOID, fmt.Appendf(nil, "%d-%d", i, len(set.tests))).String(),
				Gender:         []string{domain.GenderMale, domain.GenderFemale}[g.rng.IntN(2)],
				AgeGroup:       g.settings.AgeGroups[g.rng.IntN(len(g.settings.AgeGroups))],
				County:         c.Codes[0],
				ResultValue:    domain.ResultNegative,
				StatisticsDate: key,
			}
			if g.rng.Float64() < 0.02+0.15*wave {
				rec.ResultValue = domain.ResultPositive
				positive++
				communes[c.Name]++
			}
			set.tests = append(set.tests, rec)
		}
		g.positives += positive
		cumulative = append(cumulative, g.positives)

		// Recoveries lag cases by three weeks, so active never goes negative.
		if i >= 21 {
			discharged = cumulative[i-21] * 9 / 10
		}
		hospitalised := int64(math.Round(float64(g.positives-discharged) * 0.08))
		set.hospital = append(set.hospital, domain.HospitalRecord{
			StatisticsDate:         key,
			ActivelyHospitalised:   ptr(hospitalised),
			IsInIntensive:          ptr(hospitalised / 6),
			IsOnVentilation:        ptr(hospitalised / 12),
			Discharged:             ptr(discharged),
			LastLoadStatisticsDate: domain.FormatDate(g.end),
		})

		// Deaths are curated weekly; the gaps are carried forward.
		if !date.Before(g.settings.DeathStart) && g.rng.Float64() < 0.3*wave {
			g.deceased++
		}
		if !date.Before(g.settings.DeathStart) && (date.Weekday() == time.Monday || date.Equal(g.end)) {
			set.deaths[key] = g.deceased
		}
	}

	for _, c := range counties {
		set.locations = append(set.locations, domain.LocationRecord{
			LastStatisticsDate: domain.FormatDate(g.end),
			StatisticsDate:     domain.FormatDate(g.end),
			County:             c.Codes[0],
			Commune:            c.Name + " vald",
			ResultValue:        domain.ResultPositive,
			TotalCases:         ptr(communes[c.Name]),
		})
	}

	set.vaccinations = g.vaccinations()

	// The latest figures are confirmed by hand.
	endKey := domain.FormatDate(g.end)
	set.manual.Deceased[endKey] = g.deceased
	if last := set.hospital[len(set.hospital)-1]; *last.IsInIntensive > 0 {
		set.manual.Intensive[endKey] = *last.IsInIntensive
	}
	return set
}

func (g *generator) vaccinations() []domain.VaccinationRecord {
	var out []domain.VaccinationRecord
	var first, second int64
	population := float64(g.settings.CountryPopulation)
	for date := g.settings.VaccinationStart; !date.After(g.end); date = date.AddDate(0, 0, 1) {
		key := domain.FormatDate(date)
		daily := int64(g.rng.IntN(200) + 50)
		first += daily
		completedDaily := int64(0)
		if len(out) >= 2*21 {
			completedDaily = daily * 3 / 4
		}
		second += completedDaily
		out = append(out,
			domain.VaccinationRecord{
				StatisticsDate:     key,
				MeasurementType:    domain.MeasurementVaccinated,
				TotalCount:         ptr(first),
				DailyCount:         ptr(daily),
				PopulationCoverage: ptr(math.Round(float64(first)/population*10000) / 100),
			},
			domain.VaccinationRecord{
				StatisticsDate:     key,
				MeasurementType:    domain.MeasurementFullyVaccinated,
				TotalCount:         ptr(second),
				DailyCount:         ptr(completedDaily),
				PopulationCoverage: ptr(math.Round(float64(second)/population*10000) / 100),
			},
		)
	}
	return out
}

// waveAt is a two-wave epidemic curve in [0, 1].
func waveAt(day, days int) float64 {
	x := float64(day) / float64(days)
	return math.Max(math.Exp(-math.Pow((x-0.3)/0.08, 2)), math.Exp(-math.Pow((x-0.8)/0.1, 2)))
}

func ptr[T any](v T) *T { return &v }

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return localfile.WriteFileAtomic(path, data)
}

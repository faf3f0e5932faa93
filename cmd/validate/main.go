// Command validate re-checks a written dashboard document against its
// contract: calendar arrays, array lengths, monotone cumulative charts,
// non-negative active counts, headline consistency and county per-capita
// rates. It exits non-zero when any phase fails.
//
// Usage:
//
//	go run ./cmd/validate -data data.json -tests-per-day testsPerDay.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"
	"slices"
	"strconv"
	"time"

	"github.com/couchcryptid/covid-dashboard-etl/internal/domain"
	"github.com/couchcryptid/covid-dashboard-etl/internal/reference"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	dataPath := flag.String("data", "data.json", "path to the dashboard document")
	testsPath := flag.String("tests-per-day", "", "path to testsPerDay.json (optional)")
	refPath := flag.String("reference", "", "reference data YAML (default: embedded)")
	flag.Parse()

	os.Exit(run(*dataPath, *testsPath, *refPath))
}

func run(dataPath, testsPath, refPath string) int {
	fmt.Println("=== Dashboard Document Validation ===")
	fmt.Println()

	report, err := loadJSON[domain.Report](dataPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load %s: %v\n", dataPath, err)
		return 1
	}
	ref, err := reference.Load(refPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load reference data: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateCalendars(report),
		validateLengths(report),
		validateMonotone(report),
		validateActive(report),
		validateHeadline(report),
		validateCountyRates(report, ref),
	}
	if testsPath != "" {
		tests, err := loadJSON[domain.TestsPerDayReport](testsPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: load %s: %v\n", testsPath, err)
			return 1
		}
		phases = append(phases, validateTestsPerDay(tests, report))
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "PASS"
		if !p.passed() {
			status = "FAIL"
			allPassed = false
		}
		fmt.Printf("[%s] %s\n", status, p.name)
		for _, e := range p.errors {
			fmt.Printf("       %s\n", e)
		}
	}

	fmt.Println()
	if !allPassed {
		fmt.Println("RESULT: FAIL")
		return 1
	}
	fmt.Println("RESULT: PASS")
	return 0
}

func loadJSON[T any](path string) (T, error) {
	var v T
	b, err := os.ReadFile(path)
	if err != nil {
		return v, err
	}
	err = json.Unmarshal(b, &v)
	return v, err
}

// validateCalendars checks each dates array is a gapless run of ISO days and
// that all three end on the same day.
func validateCalendars(r domain.Report) *phase {
	p := &phase{name: "calendars"}
	calendars := map[string][]string{"dates1": r.Dates1, "dates2": r.Dates2, "dates3": r.Dates3}
	var ends []string
	for _, name := range []string{"dates1", "dates2", "dates3"} {
		dates := calendars[name]
		if len(dates) == 0 {
			p.errorf("%s: empty", name)
			continue
		}
		var prev time.Time
		for i, s := range dates {
			d, err := time.Parse(domain.DateLayout, s)
			if err != nil {
				p.errorf("%s[%d]: %q is not an ISO date", name, i, s)
				break
			}
			if i > 0 && !d.Equal(prev.AddDate(0, 0, 1)) {
				p.errorf("%s[%d]: %s does not follow %s", name, i, s, domain.FormatDate(prev))
				break
			}
			prev = d
		}
		ends = append(ends, dates[len(dates)-1])
	}
	if len(ends) == 3 && (ends[0] != ends[1] || ends[1] != ends[2]) {
		p.errorf("calendars end on different days: %v", ends)
	}
	fmt.Printf("dates1=%d dates2=%d dates3=%d days\n", len(r.Dates1), len(r.Dates2), len(r.Dates3))
	return p
}

func validateLengths(r domain.Report) *phase {
	p := &phase{name: "array lengths"}
	n1, n2, n3 := len(r.Dates1), len(r.Dates2), len(r.Dates3)

	check := func(name string, got, want int) {
		if got != want {
			p.errorf("%s: %d values, want %d", name, got, want)
		}
	}

	c := r.DataCumulativeCasesChart
	d := r.DataNewCasesPerDayChart
	arrays := []struct {
		name string
		got  int
		want int
	}{
		{"dataCumulativeCasesChart.cases", len(c.Cases), n2},
		{"dataCumulativeCasesChart.recovered", len(c.Recovered), n2},
		{"dataCumulativeCasesChart.deceased", len(c.Deceased), n2},
		{"dataCumulativeCasesChart.hospitalised", len(c.Hospitalised), n2},
		{"dataCumulativeCasesChart.intensive", len(c.Intensive), n2},
		{"dataCumulativeCasesChart.onVentilation", len(c.OnVentilation), n2},
		{"dataCumulativeCasesChart.active", len(c.Active), n2},
		{"dataCumulativeCasesChart.active100k", len(c.Active100k), n2},
		{"dataCumulativeTestsChart.testsAdministered", len(r.DataCumulativeTestsChart.TestsAdministered), n2},
		{"dataCumulativeTestsChart.negative", len(r.DataCumulativeTestsChart.Negative), n2},
		{"dataTestsPerDayChart.positive", len(r.DataTestsPerDayChart.Positive), n2},
		{"dataTestsPerDayChart.positivePercentage", len(r.DataTestsPerDayChart.PositivePercentage), n2},
		{"hospital.activehospitalizations", len(r.Hospital.ActiveHospitalizations), n2},
		{"dataNewCasesPerDayChart.confirmedCases", len(d.ConfirmedCases), n2 - 1},
		{"dataNewCasesPerDayChart.recovered", len(d.Recovered), n2 - 1},
		{"dataNewCasesPerDayChart.deceased", len(d.Deceased), n2 - 1},
		{"dataNewCasesPerDayChart.active", len(d.Active), n2 - 1},
	}
	for _, a := range arrays {
		check(a.name, a.got, a.want)
	}

	check("dataDeceasedChart.deceased", len(r.DataDeceasedChart.Deceased), n1)
	check("dataDeceasedChart.deceasedPerDay", len(r.DataDeceasedChart.DeceasedPerDay), n1-1)

	v := r.DataVaccinatedPeopleChart
	check("dataVaccinatedPeopleChart.vaccinated", len(v.Vaccinated), n3)
	check("dataVaccinatedPeopleChart.completed", len(v.Completed), n3)
	check("dataVaccinatedPeopleChart.vaccinatedPerDay", len(v.VaccinatedPerDay), n3)
	check("dataVaccinatedPeopleChart.completedPerDay", len(v.CompletedPerDay), n3)

	for _, county := range r.Counties {
		check("countyByDay."+county, len(r.CountyByDay.CountyByDay[county]), n2)
		check("countyByDayActive."+county, len(r.DataCountyDailyActive.CountyByDayActive[county]), n2)
	}
	check("age groups (male)", len(r.DataPositiveTestsByAgeChart.MaleData), len(r.AgeGroups))
	check("age groups (female)", len(r.DataPositiveTestsByAgeChart.FemaleData), len(r.AgeGroups))
	return p
}

func validateMonotone(r domain.Report) *phase {
	p := &phase{name: "monotone cumulative series"}
	series := map[string][]int64{}
	series["dataCumulativeCasesChart.cases"] = r.DataCumulativeCasesChart.Cases
	series["dataCumulativeCasesChart.recovered"] = r.DataCumulativeCasesChart.Recovered
	series["dataCumulativeCasesChart.deceased"] = r.DataCumulativeCasesChart.Deceased
	series["dataCumulativeTestsChart.testsAdministered"] = r.DataCumulativeTestsChart.TestsAdministered
	series["dataCumulativeTestsChart.negative"] = r.DataCumulativeTestsChart.Negative
	series["dataDeceasedChart.deceased"] = r.DataDeceasedChart.Deceased
	series["dataVaccinatedPeopleChart.vaccinated"] = r.DataVaccinatedPeopleChart.Vaccinated
	series["dataVaccinatedPeopleChart.completed"] = r.DataVaccinatedPeopleChart.Completed
	for county, values := range r.CountyByDay.CountyByDay {
		series["countyByDay."+county] = values
	}
	for _, name := range sortedKeys(series) {
		values := series[name]
		for i := 1; i < len(values); i++ {
			if values[i] < values[i-1] {
				p.errorf("%s decreases at index %d: %d -> %d", name, i, values[i-1], values[i])
				break
			}
		}
	}
	return p
}

func validateActive(r domain.Report) *phase {
	p := &phase{name: "non-negative active"}
	check := func(name string, values []int64) {
		for i, v := range values {
			if v < 0 {
				p.errorf("%s[%d] = %d", name, i, v)
				return
			}
		}
	}
	check("dataCumulativeCasesChart.active", r.DataCumulativeCasesChart.Active)
	for _, county := range r.Counties {
		check("countyByDayActive."+county, r.DataCountyDailyActive.CountyByDayActive[county])
	}
	return p
}

func validateHeadline(r domain.Report) *phase {
	p := &phase{name: "headline figures"}
	c := r.DataCumulativeCasesChart
	figures := []struct {
		name   string
		value  string
		series []int64
	}{
		{"confirmedCasesNumber", r.ConfirmedCasesNumber, c.Cases},
		{"activeCasesNumber", r.ActiveCasesNumber, c.Active},
		{"deceasedNumber", r.DeceasedNumber, c.Deceased},
		{"recoveredNumber", r.RecoveredNumber, c.Recovered},
		{"hospitalisedNumber", r.HospitalisedNumber, c.Hospitalised},
		{"testsAdministeredNumber", r.TestsAdministeredNumber, r.DataCumulativeTestsChart.TestsAdministered},
	}
	for _, f := range figures {
		got, err := strconv.ParseInt(f.value, 10, 64)
		if err != nil {
			p.errorf("%s: %q is not an integer", f.name, f.value)
			continue
		}
		if len(f.series) == 0 {
			continue
		}
		if want := f.series[len(f.series)-1]; got != want {
			p.errorf("%s = %d, last chart value is %d", f.name, got, want)
		}
	}
	if r.AllVaccinationNumberTotal != r.VaccinationNumberTotal+r.CompletedVaccinationNumberTotal {
		p.errorf("allVaccinationNumberTotal %d != partial %d + completed %d",
			r.AllVaccinationNumberTotal, r.VaccinationNumberTotal, r.CompletedVaccinationNumberTotal)
	}
	return p
}

// validateCountyRates recomputes every per-capita figure from its count and
// the reference population.
func validateCountyRates(r domain.Report, ref reference.Data) *phase {
	p := &phase{name: "county per-capita rates"}
	population := map[string]int64{}
	for _, c := range ref.Counties {
		population[c.Name] = c.Population
	}

	near := func(a, b float64) bool { return math.Abs(a-b) < 0.005 }

	for _, county := range r.Counties {
		pop, ok := population[county]
		if !ok {
			p.errorf("%s: not in reference data", county)
			continue
		}
		counts := r.CountyByDay.CountyByDay[county]
		rates := r.CountyByDay.CountyByDay10000[county]
		for i := range min(len(counts), len(rates)) {
			if want := domain.Rate(counts[i], pop, 10000); !near(rates[i], want) {
				p.errorf("countyByDay10000.%s[%d] = %v, want %v", county, i, rates[i], want)
				break
			}
		}
		active := r.DataCountyDailyActive.CountyByDayActive[county]
		active100k := r.DataCountyDailyActive.CountyByDayActive100k[county]
		for i := range min(len(active), len(active100k)) {
			if want := domain.Rate(active[i], pop, 100000); !near(active100k[i], want) {
				p.errorf("countyByDayActive100k.%s[%d] = %v, want %v", county, i, active100k[i], want)
				break
			}
		}
	}
	return p
}

func validateTestsPerDay(t domain.TestsPerDayReport, r domain.Report) *phase {
	p := &phase{name: "testsPerDay.json"}
	if t.UpdatedOn != r.UpdatedOn {
		p.errorf("updatedOn %q differs from data.json %q", t.UpdatedOn, r.UpdatedOn)
	}
	if !slices.Equal(t.CaseDates, r.Dates2) {
		p.errorf("caseDates differ from data.json dates2")
	}
	if !slices.Equal(t.DataTestsPerDayChart.Positive, r.DataTestsPerDayChart.Positive) {
		p.errorf("positive tests differ from data.json")
	}
	return p
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

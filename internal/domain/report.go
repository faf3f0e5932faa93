package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Report is the dashboard document. Field names are a stable contract with
// the front end; renaming one requires a version bump on both sides.
type Report struct {
	UpdatedOn string `json:"updatedOn"`

	ConfirmedCasesNumber    string `json:"confirmedCasesNumber"`
	ActiveCasesNumber       string `json:"activeCasesNumber"`
	PerHundred              string `json:"perHundred"`
	HospitalisedNumber      string `json:"hospitalisedNumber"`
	DeceasedNumber          string `json:"deceasedNumber"`
	RecoveredNumber         string `json:"recoveredNumber"`
	TestsAdministeredNumber string `json:"testsAdministeredNumber"`
	HospitalChanged         string `json:"hospitalChanged"`
	DeceasedChanged         string `json:"deceasedChanged"`
	RecoveredChanged        string `json:"recoveredChanged"`
	ActiveChanged           string `json:"activeChanged"`

	Dates1 []string `json:"dates1"`
	Dates2 []string `json:"dates2"`
	Dates3 []string `json:"dates3"`

	Counties  []string `json:"counties"`
	AgeGroups []string `json:"age_groups"`

	DataInfectionsByCounty           []CountyValue           `json:"dataInfectionsByCounty"`
	DataInfectionsByCounty10000      []CountyValue           `json:"dataInfectionsByCounty10000"`
	DataActiveInfectionsByCounty100k []CountyValue           `json:"dataActiveInfectionsByCounty100k"`
	DataActiveInfectionsByCounty     []CountySequence        `json:"dataActiveInfectionsByCounty"`
	DataTestsPopRatio                []CountyValue           `json:"dataTestsPopRatio"`
	CountyByDay                      CountyByDay             `json:"countyByDay"`
	DataCountyDailyActive            CountyDailyActive       `json:"dataCountyDailyActive"`
	DataConfirmedCasesByCounties     map[string][]int64      `json:"dataConfirmedCasesByCounties"`
	DataCumulativeCasesChart         CumulativeCasesChart    `json:"dataCumulativeCasesChart"`
	DataNewCasesPerDayChart          NewCasesPerDayChart     `json:"dataNewCasesPerDayChart"`
	DataCumulativeTestsChart         CumulativeTestsChart    `json:"dataCumulativeTestsChart"`
	DataTestsPerDayChart             TestsPerDayChart        `json:"dataTestsPerDayChart"`
	DataPositiveTestsByAgeChart      PositiveTestsByAgeChart `json:"dataPositiveTestsByAgeChart"`
	DataPositiveNegativeChart        PositiveNegativeChart   `json:"dataPositiveNegativeChart"`
	DataVaccinatedPeopleChart        VaccinatedPeopleChart   `json:"dataVaccinatedPeopleChart"`
	DataDeceasedChart                DeceasedChart           `json:"dataDeceasedChart"`
	DataMunicipalities               Municipalities          `json:"dataMunicipalities"`
	Hospital                         HospitalChart           `json:"hospital"`

	VaccinationNumberTotal                            int64   `json:"vaccinationNumberTotal"`
	VaccinationNumberLastDay                          int64   `json:"vaccinationNumberLastDay"`
	CompletedVaccinationNumberTotal                   int64   `json:"completedVaccinationNumberTotal"`
	CompletedVaccinationNumberLastDay                 int64   `json:"completedVaccinationNumberLastDay"`
	AllVaccinationNumberTotal                         int64   `json:"allVaccinationNumberTotal"`
	AllVaccinationNumberLastDay                       int64   `json:"allVaccinationNumberLastDay"`
	AllVaccinationFromPopulationPercentage            float64 `json:"allVaccinationFromPopulationPercentage"`
	CompletelyVaccinatedFromTotalVaccinatedPercentage float64 `json:"completelyVaccinatedFromTotalVaccinatedPercentage"`
}

// CountyValue is a (county, value) pair, encoded as a two-element array.
type CountyValue struct {
	Name  string
	Value float64
}

func (c CountyValue) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{c.Name, c.Value})
}

func (c *CountyValue) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("county value: want 2 elements, got %d", len(pair))
	}
	if err := json.Unmarshal(pair[0], &c.Name); err != nil {
		return err
	}
	return json.Unmarshal(pair[1], &c.Value)
}

// CountySequence is one small-multiple chart entry.
type CountySequence struct {
	Name      string  `json:"MNIMI"`
	Sequence  []int64 `json:"sequence"`
	Drilldown string  `json:"drilldown"`
}

type CountyByDay struct {
	CountyByDay      map[string][]int64   `json:"countyByDay"`
	CountyByDay10000 map[string][]float64 `json:"countyByDay10000"`
}

type CountyDailyActive struct {
	CountyByDayActive     map[string][]int64   `json:"countyByDayActive"`
	CountyByDayActive100k map[string][]float64 `json:"countyByDayActive100k"`
}

type CumulativeCasesChart struct {
	Cases         []int64   `json:"cases"`
	Recovered     []int64   `json:"recovered"`
	Deceased      []int64   `json:"deceased"`
	Hospitalised  []int64   `json:"hospitalised"`
	Intensive     []int64   `json:"intensive"`
	OnVentilation []int64   `json:"onVentilation"`
	Active        []int64   `json:"active"`
	Active100k    []float64 `json:"active100k"`
}

// NewCasesPerDayChart holds deltas; each array is one shorter than dates2
// and aligned with dates2[1:].
type NewCasesPerDayChart struct {
	ConfirmedCases []int64 `json:"confirmedCases"`
	Recovered      []int64 `json:"recovered"`
	Deceased       []int64 `json:"deceased"`
	Active         []int64 `json:"active"`
}

type CumulativeTestsChart struct {
	TestsAdministered []int64 `json:"testsAdministered"`
	Positive          []int64 `json:"positive"`
	Negative          []int64 `json:"negative"`
}

type TestsPerDayChart struct {
	Positive           []int64   `json:"positive"`
	Negative           []int64   `json:"negative"`
	PositivePercentage []float64 `json:"positivePercentage"`
}

type PositiveTestsByAgeChart struct {
	MaleData   []int64 `json:"maleData"`
	FemaleData []int64 `json:"femaleData"`
}

type PositiveNegativeChart struct {
	Counties []string `json:"counties"`
	Positive []int64  `json:"positive"`
	Negative []int64  `json:"negative"`
}

type VaccinatedPeopleChart struct {
	Vaccinated       []int64 `json:"vaccinated"`
	Completed        []int64 `json:"completed"`
	VaccinatedPerDay []int64 `json:"vaccinatedPerDay"`
	CompletedPerDay  []int64 `json:"completedPerDay"`
}

type DeceasedChart struct {
	Deceased       []int64 `json:"deceased"`
	DeceasedPerDay []int64 `json:"deceasedPerDay"`
}

type HospitalChart struct {
	ActiveHospitalizations []int64 `json:"activehospitalizations"`
	Discharged             []int64 `json:"discharged"`
	Intensive              []int64 `json:"intensive"`
	OnVentilation          []int64 `json:"onVentilation"`
}

// TestsPerDayReport is the standalone tests-per-day document.
type TestsPerDayReport struct {
	UpdatedOn            string           `json:"updatedOn"`
	CaseDates            []string         `json:"caseDates"`
	DataTestsPerDayChart TestsPerDayChart `json:"dataTestsPerDayChart"`
}

// TestsPerDay projects the tests-per-day document out of the report.
func (r Report) TestsPerDay() TestsPerDayReport {
	return TestsPerDayReport{
		UpdatedOn:            r.UpdatedOn,
		CaseDates:            r.Dates2,
		DataTestsPerDayChart: r.DataTestsPerDayChart,
	}
}

// Headline holds the finished headline figures.
type Headline struct {
	Confirmed         int64
	Active            int64
	Active100k        float64
	Hospitalised      int64
	Deceased          int64
	Recovered         int64
	TestsAdministered int64

	HospitalisedChange int64
	DeceasedChange     int64
	RecoveredChange    int64
	ActiveChange       int64
}

// CaseSeries holds every finished series aligned to the cases calendar.
type CaseSeries struct {
	PositiveDaily Series
	NegativeDaily Series
	TestsDaily    Series
	Confirmed     Series
	Negative      Series
	Tests         Series
	Recovered     Series
	Deceased      Series
	Hospitalised  Series
	Intensive     Series
	OnVentilation Series
	Active        Series

	Active100k         []float64
	PositivePercentage []float64

	ConfirmedDelta []int64
	RecoveredDelta []int64
	DeceasedDelta  []int64
	ActiveDelta    []int64
}

// VaccinationSeries holds the series aligned to the vaccinations calendar.
type VaccinationSeries struct {
	Vaccinated      Series
	Completed       Series
	VaccinatedDaily Series
	CompletedDaily  Series
}

// DeathSeries holds the series aligned to the deaths calendar.
type DeathSeries struct {
	Deceased      Series
	DeceasedDelta []int64
}

// ReportInput gathers every finished entity the assembler arranges.
type ReportInput struct {
	UpdatedOn      string
	AgeGroups      []string
	PositiveByAge  map[string]GenderCounts
	Headline       Headline
	Cases          CaseSeries
	Deaths         DeathSeries
	Vaccinations   VaccinationSeries
	VaccineSummary VaccinationSummary
	Counties       CountyReport
	Municipalities Municipalities
}

// Assemble arranges finished entities into the output document. It performs
// no computation beyond rendering headline numbers as strings.
func Assemble(in ReportInput) Report {
	r := Report{
		UpdatedOn: in.UpdatedOn,

		ConfirmedCasesNumber:    itoa(in.Headline.Confirmed),
		ActiveCasesNumber:       itoa(in.Headline.Active),
		PerHundred:              strconv.FormatFloat(in.Headline.Active100k, 'f', -1, 64),
		HospitalisedNumber:      itoa(in.Headline.Hospitalised),
		DeceasedNumber:          itoa(in.Headline.Deceased),
		RecoveredNumber:         itoa(in.Headline.Recovered),
		TestsAdministeredNumber: itoa(in.Headline.TestsAdministered),
		HospitalChanged:         itoa(in.Headline.HospitalisedChange),
		DeceasedChanged:         itoa(in.Headline.DeceasedChange),
		RecoveredChanged:        itoa(in.Headline.RecoveredChange),
		ActiveChanged:           itoa(in.Headline.ActiveChange),

		Dates1: in.Deaths.Deceased.Calendar.Strings(),
		Dates2: in.Cases.Confirmed.Calendar.Strings(),
		Dates3: in.Vaccinations.Vaccinated.Calendar.Strings(),

		AgeGroups: in.AgeGroups,

		DataCumulativeCasesChart: CumulativeCasesChart{
			Cases:         in.Cases.Confirmed.Values,
			Recovered:     in.Cases.Recovered.Values,
			Deceased:      in.Cases.Deceased.Values,
			Hospitalised:  in.Cases.Hospitalised.Values,
			Intensive:     in.Cases.Intensive.Values,
			OnVentilation: in.Cases.OnVentilation.Values,
			Active:        in.Cases.Active.Values,
			Active100k:    in.Cases.Active100k,
		},
		DataNewCasesPerDayChart: NewCasesPerDayChart{
			ConfirmedCases: in.Cases.ConfirmedDelta,
			Recovered:      in.Cases.RecoveredDelta,
			Deceased:       in.Cases.DeceasedDelta,
			Active:         in.Cases.ActiveDelta,
		},
		DataCumulativeTestsChart: CumulativeTestsChart{
			TestsAdministered: in.Cases.Tests.Values,
			Positive:          in.Cases.Confirmed.Values,
			Negative:          in.Cases.Negative.Values,
		},
		DataTestsPerDayChart: TestsPerDayChart{
			Positive:           in.Cases.PositiveDaily.Values,
			Negative:           in.Cases.NegativeDaily.Values,
			PositivePercentage: in.Cases.PositivePercentage,
		},
		DataVaccinatedPeopleChart: VaccinatedPeopleChart{
			Vaccinated:       in.Vaccinations.Vaccinated.Values,
			Completed:        in.Vaccinations.Completed.Values,
			VaccinatedPerDay: in.Vaccinations.VaccinatedDaily.Values,
			CompletedPerDay:  in.Vaccinations.CompletedDaily.Values,
		},
		DataDeceasedChart: DeceasedChart{
			Deceased:       in.Deaths.Deceased.Values,
			DeceasedPerDay: in.Deaths.DeceasedDelta,
		},
		DataMunicipalities: in.Municipalities,
		Hospital: HospitalChart{
			ActiveHospitalizations: in.Cases.Hospitalised.Values,
			Discharged:             in.Cases.Recovered.Values,
			Intensive:              in.Cases.Intensive.Values,
			OnVentilation:          in.Cases.OnVentilation.Values,
		},

		VaccinationNumberTotal:                            in.VaccineSummary.PartialTotal,
		VaccinationNumberLastDay:                          in.VaccineSummary.PartialLastDay,
		CompletedVaccinationNumberTotal:                   in.VaccineSummary.CompletedTotal,
		CompletedVaccinationNumberLastDay:                 in.VaccineSummary.CompletedLastDay,
		AllVaccinationNumberTotal:                         in.VaccineSummary.AllTotal,
		AllVaccinationNumberLastDay:                       in.VaccineSummary.AllLastDay,
		AllVaccinationFromPopulationPercentage:            in.VaccineSummary.AllFromPopulationPercentage,
		CompletelyVaccinatedFromTotalVaccinatedPercentage: in.VaccineSummary.CompletedFromTotalPercentage,
	}

	r.DataPositiveTestsByAgeChart = PositiveTestsByAgeChart{
		MaleData:   make([]int64, len(in.AgeGroups)),
		FemaleData: make([]int64, len(in.AgeGroups)),
	}
	for i, group := range in.AgeGroups {
		r.DataPositiveTestsByAgeChart.MaleData[i] = in.PositiveByAge[group].Male
		r.DataPositiveTestsByAgeChart.FemaleData[i] = in.PositiveByAge[group].Female
	}

	assembleCounties(&r, in.Counties)
	return r
}

func assembleCounties(r *Report, c CountyReport) {
	n := len(c.Counties)
	r.Counties = make([]string, n)
	r.DataInfectionsByCounty = make([]CountyValue, n)
	r.DataInfectionsByCounty10000 = make([]CountyValue, n)
	r.DataActiveInfectionsByCounty100k = make([]CountyValue, n)
	r.DataActiveInfectionsByCounty = make([]CountySequence, n)
	r.CountyByDay = CountyByDay{CountyByDay: map[string][]int64{}, CountyByDay10000: map[string][]float64{}}
	r.DataCountyDailyActive = CountyDailyActive{CountyByDayActive: map[string][]int64{}, CountyByDayActive100k: map[string][]float64{}}
	r.DataConfirmedCasesByCounties = map[string][]int64{}
	r.DataPositiveNegativeChart = PositiveNegativeChart{
		Counties: make([]string, n),
		Positive: make([]int64, n),
		Negative: make([]int64, n),
	}

	for i, s := range c.Counties {
		r.Counties[i] = s.Name
		r.DataInfectionsByCounty[i] = CountyValue{Name: s.Name, Value: float64(s.Positive)}
		r.DataInfectionsByCounty10000[i] = CountyValue{Name: s.Name, Value: s.Per10000}
		r.DataActiveInfectionsByCounty100k[i] = CountyValue{Name: s.Name, Value: s.Active100000[len(s.Active100000)-1]}
		r.DataActiveInfectionsByCounty[i] = CountySequence{Name: s.Name, Sequence: s.Active.Values, Drilldown: s.Name}
		r.CountyByDay.CountyByDay[s.Name] = s.Cumulative.Values
		r.CountyByDay.CountyByDay10000[s.Name] = s.Cumulative10000
		r.DataCountyDailyActive.CountyByDayActive[s.Name] = s.Active.Values
		r.DataCountyDailyActive.CountyByDayActive100k[s.Name] = s.Active100000
		r.DataConfirmedCasesByCounties[s.Name] = s.Daily.Values
		r.DataPositiveNegativeChart.Counties[i] = s.Name
		r.DataPositiveNegativeChart.Positive[i] = s.Positive
		r.DataPositiveNegativeChart.Negative[i] = s.Negative
	}

	r.DataTestsPopRatio = make([]CountyValue, len(c.Ranking))
	for i, rank := range c.Ranking {
		r.DataTestsPopRatio[i] = CountyValue{Name: rank.Name, Value: rank.Rate}
	}
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}

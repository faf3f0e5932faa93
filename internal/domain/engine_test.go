package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSettings(t *testing.T) Settings {
	t.Helper()
	tallinn, err := time.LoadLocation("Europe/Tallinn")
	require.NoError(t, err)
	return Settings{
		Now:               time.Date(2020, 3, 18, 8, 30, 0, 0, time.UTC),
		Location:          tallinn,
		CaseStart:         mustDate(t, "2020-03-15"),
		DeathStart:        mustDate(t, "2020-03-15"),
		VaccinationStart:  mustDate(t, "2020-03-16"),
		Counties:          testCountyTable(t),
		CountryPopulation: 1000000,
		AgeGroups:         []string{"20-24", "30-34"},
		ActiveWindowDays:  14,
	}
}

func positive(date, county, gender, age string) TestResult {
	return TestResult{ResultValue: ResultPositive, StatisticsDate: date, County: county, Gender: gender, AgeGroup: age}
}

func negative(date, county string) TestResult {
	return TestResult{ResultValue: ResultNegative, StatisticsDate: date, County: county}
}

func hospital(date string, hospitalised, intensive, ventilation, discharged int64) HospitalRecord {
	return HospitalRecord{
		StatisticsDate:         date,
		ActivelyHospitalised:   i64(hospitalised),
		IsInIntensive:          i64(intensive),
		IsOnVentilation:        i64(ventilation),
		Discharged:             i64(discharged),
		LastLoadStatisticsDate: "2020-03-17",
	}
}

func testFeeds() Feeds {
	return Feeds{
		TestResults: []TestResult{
			positive("2020-03-15", "Harju maakond", GenderMale, "20-24"),
			positive("2020-03-16", "Harju maakond", GenderFemale, "20-24"),
			positive("2020-03-16", "Jõgeva maakond", GenderMale, "30-34"),
			negative("2020-03-16", "Tartu maakond"),
			negative("2020-03-17", "Tartu maakond"),
		},
		Locations: []LocationRecord{
			{LastStatisticsDate: "2020-03-17", StatisticsDate: "2020-03-17", County: "Harju maakond", Commune: "Tallinn", ResultValue: ResultPositive, TotalCases: i64(2)},
		},
		Hospitalizations: []HospitalRecord{
			hospital("2020-03-15", 2, 1, 0, 0),
			hospital("2020-03-17", 1, 0, 0, 1),
		},
		Vaccinations: []VaccinationRecord{
			{StatisticsDate: "2020-03-16", MeasurementType: MeasurementVaccinated, TotalCount: i64(10), DailyCount: i64(10), PopulationCoverage: f64(0.5)},
			{StatisticsDate: "2020-03-17", MeasurementType: MeasurementVaccinated, TotalCount: i64(30), DailyCount: i64(20), PopulationCoverage: f64(1.2)},
			{StatisticsDate: "2020-03-17", MeasurementType: MeasurementFullyVaccinated, TotalCount: i64(6), DailyCount: i64(6)},
		},
	}
}

func TestBuild(t *testing.T) {
	overrides := Overrides{Deceased: Override{"2020-03-17": 1}}

	report, diag, err := Build(testSettings(t), testFeeds(), overrides)
	require.NoError(t, err)

	assert.Equal(t, "18/03/2020, 10:30", report.UpdatedOn)
	assert.Equal(t, []string{"2020-03-15", "2020-03-16", "2020-03-17"}, report.Dates2)
	assert.Equal(t, []string{"2020-03-15", "2020-03-16", "2020-03-17"}, report.Dates1)
	assert.Equal(t, []string{"2020-03-16", "2020-03-17"}, report.Dates3)

	chart := report.DataCumulativeCasesChart
	assert.Equal(t, []int64{1, 3, 3}, chart.Cases)
	assert.Equal(t, []int64{0, 0, 1}, chart.Recovered)
	assert.Equal(t, []int64{0, 0, 1}, chart.Deceased)
	assert.Equal(t, []int64{1, 3, 1}, chart.Active)
	assert.Equal(t, []int64{2, 2, 1}, chart.Hospitalised)
	assert.Equal(t, []int64{1, 1, 0}, chart.Intensive)
	assert.Equal(t, []float64{0.1, 0.3, 0.1}, chart.Active100k)

	assert.Equal(t, []int64{2, 0}, report.DataNewCasesPerDayChart.ConfirmedCases)
	assert.Equal(t, []int64{0, 1}, report.DataNewCasesPerDayChart.Deceased)
	assert.Equal(t, []int64{2, -2}, report.DataNewCasesPerDayChart.Active)

	assert.Equal(t, []int64{1, 4, 5}, report.DataCumulativeTestsChart.TestsAdministered)
	assert.Equal(t, []int64{0, 1, 2}, report.DataCumulativeTestsChart.Negative)
	assert.Equal(t, []float64{100, 66.67, 0}, report.DataTestsPerDayChart.PositivePercentage)

	assert.Equal(t, "3", report.ConfirmedCasesNumber)
	assert.Equal(t, "1", report.ActiveCasesNumber)
	assert.Equal(t, "0.1", report.PerHundred)
	assert.Equal(t, "1", report.DeceasedNumber)
	assert.Equal(t, "1", report.RecoveredNumber)
	assert.Equal(t, "1", report.HospitalisedNumber)
	assert.Equal(t, "5", report.TestsAdministeredNumber)
	assert.Equal(t, "-1", report.HospitalChanged)
	assert.Equal(t, "1", report.DeceasedChanged)
	assert.Equal(t, "1", report.RecoveredChanged)
	assert.Equal(t, "-2", report.ActiveChanged)

	assert.Equal(t, []int64{0, 1}, report.DataDeceasedChart.DeceasedPerDay)
	assert.Equal(t, []int64{10, 30}, report.DataVaccinatedPeopleChart.Vaccinated)
	assert.Equal(t, []int64{0, 6}, report.DataVaccinatedPeopleChart.Completed)
	assert.Equal(t, int64(30), report.AllVaccinationNumberTotal)
	assert.Equal(t, int64(24), report.VaccinationNumberTotal)
	assert.InDelta(t, 20.0, report.CompletelyVaccinatedFromTotalVaccinatedPercentage, 1e-9)

	assert.Equal(t, []int64{1, 1}, report.DataPositiveTestsByAgeChart.MaleData)
	assert.Equal(t, []int64{1, 0}, report.DataPositiveTestsByAgeChart.FemaleData)

	assert.Equal(t, []string{"Harju", "Jõgeva", "Tartu"}, report.Counties)
	assert.Equal(t, []int64{2, 1, 0}, report.DataPositiveNegativeChart.Positive)
	assert.Equal(t, []int64{0, 0, 2}, report.DataPositiveNegativeChart.Negative)
	assert.Equal(t, Municipalities{"Harju": {"Tallinn": 2}}, report.DataMunicipalities)

	assert.Empty(t, diag.ActiveClamps)
	assert.Empty(t, diag.DroppedCounties)
	assert.Equal(t, 5, diag.Records[FeedTestResults])
}

func TestBuild_ArraysMatchCalendars(t *testing.T) {
	report, _, err := Build(testSettings(t), testFeeds(), Overrides{})
	require.NoError(t, err)

	n2 := len(report.Dates2)
	for name, arr := range map[string]int{
		"cases":              len(report.DataCumulativeCasesChart.Cases),
		"recovered":          len(report.DataCumulativeCasesChart.Recovered),
		"active100k":         len(report.DataCumulativeCasesChart.Active100k),
		"testsAdministered":  len(report.DataCumulativeTestsChart.TestsAdministered),
		"positivePercentage": len(report.DataTestsPerDayChart.PositivePercentage),
		"hospital":           len(report.Hospital.ActiveHospitalizations),
	} {
		assert.Equal(t, n2, arr, name)
	}
	assert.Len(t, report.DataNewCasesPerDayChart.ConfirmedCases, n2-1)
	assert.Len(t, report.DataDeceasedChart.Deceased, len(report.Dates1))
	assert.Len(t, report.DataDeceasedChart.DeceasedPerDay, len(report.Dates1)-1)
	assert.Len(t, report.DataVaccinatedPeopleChart.VaccinatedPerDay, len(report.Dates3))
	for county, values := range report.CountyByDay.CountyByDay {
		assert.Len(t, values, n2, county)
	}
}

func TestBuild_UnknownCountyDropped(t *testing.T) {
	feeds := testFeeds()
	feeds.TestResults = append(feeds.TestResults, positive("2020-03-17", "Atlantis", GenderMale, "20-24"))

	report, diag, err := Build(testSettings(t), feeds, Overrides{})
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"Atlantis": 1}, diag.DroppedCounties)
	assert.Equal(t, "4", report.ConfirmedCasesNumber)
	assert.Equal(t, []int64{2, 1, 0}, report.DataPositiveNegativeChart.Positive)
}

func TestBuild_ActiveClamped(t *testing.T) {
	feeds := testFeeds()
	feeds.Hospitalizations = append(feeds.Hospitalizations, hospital("2020-03-17", 1, 0, 0, 5))

	report, diag, err := Build(testSettings(t), feeds, Overrides{})
	require.NoError(t, err)

	require.Len(t, diag.ActiveClamps, 1)
	assert.Equal(t, int64(-2), diag.ActiveClamps[0].Raw)
	assert.Equal(t, "0", report.ActiveCasesNumber)
}

func TestBuild_Errors(t *testing.T) {
	t.Run("calendar starts after yesterday", func(t *testing.T) {
		s := testSettings(t)
		s.VaccinationStart = mustDate(t, "2020-03-20")
		_, _, err := Build(s, testFeeds(), Overrides{})

		var rangeErr *InvalidRangeError
		require.True(t, errors.As(err, &rangeErr))
	})

	t.Run("decreasing deceased override", func(t *testing.T) {
		_, _, err := Build(testSettings(t), testFeeds(), Overrides{Deceased: Override{"2020-03-15": 3, "2020-03-16": 2}})

		var monoErr *NonMonotoneSeriesError
		require.True(t, errors.As(err, &monoErr))
		assert.Equal(t, MetricDeceased, monoErr.Metric)
	})

	t.Run("malformed hospital record", func(t *testing.T) {
		feeds := testFeeds()
		feeds.Hospitalizations[0].Discharged = nil
		_, _, err := Build(testSettings(t), feeds, Overrides{})

		var recErr *MalformedRecordError
		require.True(t, errors.As(err, &recErr))
	})

	t.Run("no fully vaccinated rows", func(t *testing.T) {
		feeds := testFeeds()
		feeds.Vaccinations = feeds.Vaccinations[:2]
		_, _, err := Build(testSettings(t), feeds, Overrides{})

		var recErr *MalformedRecordError
		require.True(t, errors.As(err, &recErr))
		assert.Equal(t, MeasurementFullyVaccinated, recErr.Key)
	})
}

func TestBuild_PolicyOverride(t *testing.T) {
	s := testSettings(t)
	s.Policies = map[string]GapPolicy{MetricHospitalised: {Fill: FillZero}}

	report, _, err := Build(s, testFeeds(), Overrides{})
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 0, 1}, report.DataCumulativeCasesChart.Hospitalised)
}

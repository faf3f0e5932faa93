package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func series(t *testing.T, metric string, cal Calendar, values ...int64) Series {
	t.Helper()
	require.Len(t, values, cal.Len())
	return Series{Metric: metric, Calendar: cal, Values: values}
}

func TestActive(t *testing.T) {
	cal := mustCalendar(t, "2020-03-15", "2020-03-17")
	confirmed := series(t, MetricConfirmed, cal, 1, 3, 3)
	recovered := series(t, MetricRecovered, cal, 0, 0, 1)
	deceased := series(t, MetricDeceased, cal, 0, 0, 1)

	active, clamps, err := Active(confirmed, recovered, deceased)
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 3, 1}, active.Values)
	assert.Empty(t, clamps)
	assert.Equal(t, []int64{2, 0}, Delta(confirmed))
	assert.Equal(t, []int64{0, 1}, Delta(deceased))
}

func TestActive_ClampsNegative(t *testing.T) {
	cal := mustCalendar(t, "2020-03-15", "2020-03-16")
	confirmed := series(t, MetricConfirmed, cal, 2, 2)
	recovered := series(t, MetricRecovered, cal, 1, 3)
	deceased := series(t, MetricDeceased, cal, 0, 1)

	active, clamps, err := Active(confirmed, recovered, deceased)
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 0}, active.Values)
	require.Len(t, clamps, 1)
	assert.Equal(t, "2020-03-16", FormatDate(clamps[0].Date))
	assert.Equal(t, int64(-2), clamps[0].Raw)
}

func TestActive_MisalignedCalendars(t *testing.T) {
	a := mustCalendar(t, "2020-03-15", "2020-03-16")
	b := mustCalendar(t, "2020-03-14", "2020-03-15")

	_, _, err := Active(series(t, "a", a, 1, 1), series(t, "b", b, 0, 0), series(t, "c", a, 0, 0))
	require.Error(t, err)
}

func TestDelta(t *testing.T) {
	cal := mustCalendar(t, "2020-03-15", "2020-03-18")
	s := series(t, MetricConfirmed, cal, 1, 3, 3, 7)

	got := Delta(s)
	assert.Equal(t, []int64{2, 0, 4}, got)
	assert.Len(t, got, cal.Len()-1)

	single := series(t, MetricConfirmed, mustCalendar(t, "2020-03-15", "2020-03-15"), 5)
	assert.Empty(t, Delta(single))
}

func TestLatestChange(t *testing.T) {
	cal := mustCalendar(t, "2020-03-15", "2020-03-17")

	v, err := LatestChange(series(t, MetricHospitalised, cal, 4, 9, 6))
	require.NoError(t, err)
	assert.Equal(t, int64(-3), v)

	_, err = LatestChange(series(t, MetricHospitalised, mustCalendar(t, "2020-03-15", "2020-03-15"), 4))
	require.Error(t, err)
}

func TestPercentage(t *testing.T) {
	tests := []struct {
		name string
		num  int64
		den  int64
		want float64
	}{
		{"forty", 400, 1000, 40.00},
		{"third", 1, 3, 33.33},
		{"two thirds", 2, 3, 66.67},
		{"zero numerator", 0, 7, 0},
		{"full", 7, 7, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Percentage("m", tt.num, tt.den)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestPercentage_ZeroDenominator(t *testing.T) {
	_, err := Percentage("positivePercentage", 3, 0)

	var pctErr *UndefinedPercentageError
	require.True(t, errors.As(err, &pctErr))
	assert.Equal(t, "positivePercentage", pctErr.Metric)

	assert.Zero(t, PercentageOrZero(3, 0))
	assert.InDelta(t, 50.0, PercentageOrZero(1, 2), 1e-9)
}

func TestSummarizeVaccination(t *testing.T) {
	counts := VaccinationCounts{
		Vaccinated: VaccinationTrack{Latest: &VaccinationSnapshot{TotalCount: 1000, DailyCount: 50, PopulationCoverage: 12.34}},
		Completed:  VaccinationTrack{Latest: &VaccinationSnapshot{TotalCount: 400, DailyCount: 20}},
	}

	got, err := SummarizeVaccination(counts)
	require.NoError(t, err)

	assert.Equal(t, VaccinationSummary{
		AllTotal:                     1000,
		AllLastDay:                   50,
		CompletedTotal:               400,
		CompletedLastDay:             20,
		PartialTotal:                 600,
		PartialLastDay:               30,
		AllFromPopulationPercentage:  12.34,
		CompletedFromTotalPercentage: 40.00,
	}, got)
}

func TestSummarizeVaccination_Missing(t *testing.T) {
	_, err := SummarizeVaccination(VaccinationCounts{
		Vaccinated: VaccinationTrack{Latest: &VaccinationSnapshot{TotalCount: 1}},
	})

	var recErr *MalformedRecordError
	require.True(t, errors.As(err, &recErr))
	assert.Equal(t, MeasurementFullyVaccinated, recErr.Key)

	_, err = SummarizeVaccination(VaccinationCounts{
		Vaccinated: VaccinationTrack{Latest: &VaccinationSnapshot{}},
		Completed:  VaccinationTrack{Latest: &VaccinationSnapshot{}},
	})
	var pctErr *UndefinedPercentageError
	require.True(t, errors.As(err, &pctErr))
}

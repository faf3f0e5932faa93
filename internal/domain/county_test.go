package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCountyTable(t *testing.T) CountyTable {
	t.Helper()
	table, err := NewCountyTable([]County{
		{Name: "Harju", Codes: []string{"Harju maakond", "0037"}, Population: 600000},
		{Name: "Jõgeva", Codes: []string{"Jõgeva maakond", "0049"}, Population: 20000},
		{Name: "Tartu", Codes: []string{"Tartu maakond", "0078"}, Population: 150000},
	})
	require.NoError(t, err)
	return table
}

func TestNewCountyTable_MissingPopulation(t *testing.T) {
	_, err := NewCountyTable([]County{
		{Name: "Harju", Population: 600000},
		{Name: "Hiiu", Codes: []string{"Hiiu maakond"}},
	})

	var popErr *MissingPopulationError
	require.True(t, errors.As(err, &popErr))
	assert.Equal(t, "Hiiu", popErr.County)
}

func TestNewCountyTable_DuplicateCode(t *testing.T) {
	_, err := NewCountyTable([]County{
		{Name: "Harju", Codes: []string{"0037"}, Population: 1},
		{Name: "Hiiu", Codes: []string{"0037"}, Population: 1},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "0037")
}

func TestCountyTable_Resolve(t *testing.T) {
	table := testCountyTable(t)

	tests := []struct {
		code string
		want string
		ok   bool
	}{
		{"Harju maakond", "Harju", true},
		{"  harju MAAKOND ", "Harju", true},
		{"0078", "Tartu", true},
		{"Tartu", "Tartu", true},
		// Decomposed "o" + combining tilde.
		{"Jo\u0303geva maakond", "Jõgeva", true},
		{"Atlantis", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			c, ok := table.Resolve(tt.code)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, c.Name)
		})
	}

	assert.Equal(t, []string{"Harju", "Jõgeva", "Tartu"}, table.Names())
}

func TestCountyAggregator_Aggregate(t *testing.T) {
	table := testCountyTable(t)
	cal := mustCalendar(t, "2020-03-15", "2020-03-18")
	obs := []CountyObservation{
		{Code: "Harju maakond", Date: "2020-03-15", Result: ResultPositive},
		{Code: "Harju maakond", Date: "2020-03-16", Result: ResultPositive},
		{Code: "Harju maakond", Date: "2020-03-16", Result: ResultNegative},
		{Code: "Jõgeva maakond", Date: "2020-03-17", Result: ResultPositive},
		{Code: "Jõgeva maakond", Date: "2020-03-18", Result: ResultPositive},
		{Code: "Jõgeva maakond", Date: "2020-03-18", Result: ResultPositive},
		{Code: "Atlantis", Date: "2020-03-18", Result: ResultPositive},
		{Code: "", Date: "2020-03-18", Result: ResultPositive},
		{Code: "Tartu maakond", Date: "2020-03-19", Result: ResultPositive},
	}

	report := NewCountyAggregator(table, 2).Aggregate(cal, obs)
	require.Len(t, report.Counties, 3)

	harju := report.Counties[0]
	assert.Equal(t, "Harju", harju.Name)
	assert.Equal(t, int64(2), harju.Positive)
	assert.Equal(t, int64(1), harju.Negative)
	assert.Equal(t, []int64{1, 1, 0, 0}, harju.Daily.Values)
	assert.Equal(t, []int64{1, 2, 2, 2}, harju.Cumulative.Values)
	assert.Equal(t, []int64{1, 2, 1, 0}, harju.Active.Values)

	jogeva := report.Counties[1]
	assert.Equal(t, int64(3), jogeva.Positive)
	assert.InDelta(t, 1.5, jogeva.Per10000, 1e-9)
	assert.InDelta(t, 15.0, jogeva.Per100000, 1e-9)
	assert.Equal(t, []float64{0, 0, 5, 15}, jogeva.Active100000)

	tartu := report.Counties[2]
	assert.Equal(t, int64(0), tartu.Positive)
	assert.Equal(t, []int64{0, 0, 0, 0}, tartu.Active.Values)

	assert.Equal(t, map[string]int{"Atlantis": 1, "": 1}, report.Dropped)

	require.Len(t, report.Ranking, 3)
	assert.Equal(t, "Jõgeva", report.Ranking[0].Name)
	assert.Equal(t, "Harju", report.Ranking[1].Name)
	assert.Equal(t, "Tartu", report.Ranking[2].Name)
}

func TestCountyAggregator_RankingTiesByName(t *testing.T) {
	table := testCountyTable(t)
	cal := mustCalendar(t, "2020-03-15", "2020-03-15")

	report := NewCountyAggregator(table, 14).Aggregate(cal, nil)

	names := make([]string, len(report.Ranking))
	for i, r := range report.Ranking {
		names[i] = r.Name
		assert.Zero(t, r.Rate)
	}
	assert.Equal(t, []string{"Harju", "Jõgeva", "Tartu"}, names)
}

func TestCountyAggregator_RateRoundTrip(t *testing.T) {
	table := testCountyTable(t)
	cal := mustCalendar(t, "2020-03-15", "2020-03-15")
	var obs []CountyObservation
	for i := 0; i < 1234; i++ {
		obs = append(obs, CountyObservation{Code: "0037", Date: "2020-03-15", Result: ResultPositive})
	}

	report := NewCountyAggregator(table, 14).Aggregate(cal, obs)
	harju := report.Counties[0]

	back := harju.Per10000 * float64(harju.Population) / 10000
	assert.InDelta(t, float64(harju.Positive), back, float64(harju.Population)/10000*0.005+1e-9)
}

func TestRate(t *testing.T) {
	tests := []struct {
		name       string
		count      int64
		population int64
		scale      int64
		want       float64
	}{
		{"exact", 5, 20000, 10000, 2.5},
		{"rounds half up", 1, 80000, 10000, 0.13},
		{"rounds down", 1, 30000, 10000, 0.33},
		{"zero count", 0, 1000, 100000, 0},
		{"zero population", 10, 0, 10000, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Rate(tt.count, tt.population, tt.scale), 1e-9)
		})
	}
}

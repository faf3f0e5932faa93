package main

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/covid-dashboard-etl/internal/domain"
	"github.com/couchcryptid/covid-dashboard-etl/internal/reference"
)

func newTestGenerator(t *testing.T, seed uint64) *generator {
	t.Helper()
	ref, err := reference.Load("")
	require.NoError(t, err)
	settings, err := ref.Settings(time.Date(2021, 5, 4, 8, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return &generator{
		settings:    settings,
		rng:         rand.New(rand.NewPCG(seed, seed)), //nolint:gosec // test data
		testsPerDay: 5,
		end:         domain.Yesterday(settings.Now, settings.Location),
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	a := newTestGenerator(t, 7).generate()
	b := newTestGenerator(t, 7).generate()
	assert.Equal(t, a.tests, b.tests)
	assert.Equal(t, a.deaths, b.deaths)
}

func TestGenerate_Shape(t *testing.T) {
	g := newTestGenerator(t, 1)
	set := g.generate()

	require.NotEmpty(t, set.tests)
	assert.Len(t, set.locations, len(g.settings.Counties.Counties()))
	assert.Equal(t, domain.FormatDate(g.end), set.hospital[len(set.hospital)-1].StatisticsDate)
	assert.Equal(t, g.deceased, set.manual.Deceased[domain.FormatDate(g.end)])

	var positives int64
	for _, r := range set.tests {
		if r.ResultValue == domain.ResultPositive {
			positives++
		}
	}
	assert.Equal(t, g.positives, positives)

	for _, h := range set.hospital {
		assert.GreaterOrEqual(t, *h.ActivelyHospitalised, int64(0), h.StatisticsDate)
	}
	for i := 2; i < len(set.vaccinations); i += 2 {
		assert.GreaterOrEqual(t, *set.vaccinations[i].TotalCount, *set.vaccinations[i-2].TotalCount)
	}
}

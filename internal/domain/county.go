package domain

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"
)

// County is one row of the fixed county reference table.
type County struct {
	Name       string
	Codes      []string
	Population int64
}

// CountyTable resolves raw county codes to canonical counties. Codes are
// compared after trimming, NFC normalization and lower-casing, so
// "Jõgeva maakond" matches whether the feed composes "õ" or not.
type CountyTable struct {
	counties []County
	byCode   map[string]int
}

// NewCountyTable validates the reference table. Every county must have a
// positive population since every normalized rate depends on it.
func NewCountyTable(counties []County) (CountyTable, error) {
	t := CountyTable{
		counties: make([]County, len(counties)),
		byCode:   map[string]int{},
	}
	copy(t.counties, counties)

	for i, c := range counties {
		if c.Population <= 0 {
			return CountyTable{}, &MissingPopulationError{County: c.Name}
		}
		for _, code := range append([]string{c.Name}, c.Codes...) {
			k := normalizeCode(code)
			if j, dup := t.byCode[k]; dup && j != i {
				return CountyTable{}, fmt.Errorf("county code %q maps to both %s and %s", code, counties[j].Name, c.Name)
			}
			t.byCode[k] = i
		}
	}
	return t, nil
}

// Resolve looks up a raw county code.
func (t CountyTable) Resolve(code string) (County, bool) {
	i, ok := t.byCode[normalizeCode(code)]
	if !ok {
		return County{}, false
	}
	return t.counties[i], true
}

// Counties returns the table in display order.
func (t CountyTable) Counties() []County {
	out := make([]County, len(t.counties))
	copy(out, t.counties)
	return out
}

// Names returns the canonical county names in display order.
func (t CountyTable) Names() []string {
	out := make([]string, len(t.counties))
	for i, c := range t.counties {
		out[i] = c.Name
	}
	return out
}

func normalizeCode(code string) string {
	return strings.ToLower(norm.NFC.String(strings.TrimSpace(code)))
}

// CountyStats holds the aggregated figures of one county over a calendar.
type CountyStats struct {
	County

	Positive  int64
	Negative  int64
	Per10000  float64
	Per100000 float64

	Daily      Series
	Cumulative Series
	Active     Series

	Cumulative10000 []float64
	Active100000    []float64
}

// CountyRate pairs a county with a normalized rate.
type CountyRate struct {
	Name string
	Rate float64
}

// CountyReport is the output of the county aggregator.
type CountyReport struct {
	Counties []CountyStats
	Ranking  []CountyRate
	Dropped  map[string]int
}

// CountyAggregator accumulates per-county figures from test observations.
type CountyAggregator struct {
	table        CountyTable
	activeWindow int
}

// NewCountyAggregator creates an aggregator. A county's active cases on a day
// are the new positives of the trailing activeWindowDays days.
func NewCountyAggregator(table CountyTable, activeWindowDays int) *CountyAggregator {
	if activeWindowDays <= 0 {
		activeWindowDays = 14
	}
	return &CountyAggregator{table: table, activeWindow: activeWindowDays}
}

// Aggregate counts observations per county over cal. Observations outside
// the calendar are ignored; unknown codes are dropped and counted in
// CountyReport.Dropped.
func (a *CountyAggregator) Aggregate(cal Calendar, observations []CountyObservation) CountyReport {
	counties := a.table.Counties()
	daily := make([][]int64, len(counties))
	for i := range daily {
		daily[i] = make([]int64, cal.Len())
	}
	negatives := make([]int64, len(counties))
	dropped := map[string]int{}

	for _, obs := range observations {
		idx, ok := a.table.byCode[normalizeCode(obs.Code)]
		if !ok {
			dropped[obs.Code]++
			continue
		}
		d, err := ParseDate(obs.Date)
		if err != nil {
			continue
		}
		day, ok := cal.Index(d)
		if !ok {
			continue
		}
		switch obs.Result {
		case ResultPositive:
			daily[idx][day]++
		case ResultNegative:
			negatives[idx]++
		}
	}

	report := CountyReport{
		Counties: make([]CountyStats, len(counties)),
		Ranking:  make([]CountyRate, len(counties)),
		Dropped:  dropped,
	}
	for i, c := range counties {
		dailySeries := Series{Metric: MetricCountyPositive, Calendar: cal, Values: daily[i]}
		cumulative := CumulativeSum(MetricCountyCumulative, dailySeries)
		active := trailingWindow(cumulative, a.activeWindow)
		total := cumulative.Last()

		report.Counties[i] = CountyStats{
			County:          c,
			Positive:        total,
			Negative:        negatives[i],
			Per10000:        Rate(total, c.Population, 10000),
			Per100000:       Rate(total, c.Population, 100000),
			Daily:           dailySeries,
			Cumulative:      cumulative,
			Active:          active,
			Cumulative10000: PerCapita(cumulative, c.Population, 10000),
			Active100000:    PerCapita(active, c.Population, 100000),
		}
		report.Ranking[i] = CountyRate{Name: c.Name, Rate: report.Counties[i].Per10000}
	}

	sort.SliceStable(report.Ranking, func(i, j int) bool {
		if report.Ranking[i].Rate != report.Ranking[j].Rate {
			return report.Ranking[i].Rate > report.Ranking[j].Rate
		}
		return report.Ranking[i].Name < report.Ranking[j].Name
	})
	return report
}

func trailingWindow(cumulative Series, window int) Series {
	values := make([]int64, cumulative.Len())
	for i, v := range cumulative.Values {
		if i >= window {
			v -= cumulative.Values[i-window]
		}
		values[i] = v
	}
	return Series{Metric: MetricCountyActive, Calendar: cumulative.Calendar, Values: values}
}

// Rate returns count per scale residents, rounded half away from zero to
// two decimals.
func Rate(count, population, scale int64) float64 {
	if population <= 0 {
		return 0
	}
	return decimal.NewFromInt(count).
		Mul(decimal.NewFromInt(scale)).
		DivRound(decimal.NewFromInt(population), 2).
		InexactFloat64()
}

// PerCapita applies Rate to every value of s.
func PerCapita(s Series, population, scale int64) []float64 {
	out := make([]float64, s.Len())
	for i, v := range s.Values {
		out[i] = Rate(v, population, scale)
	}
	return out
}

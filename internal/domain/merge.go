package domain

import "fmt"

// FillPolicy selects the value used for a calendar date that has neither an
// override nor a feed value.
type FillPolicy int

const (
	// FillZero treats a missing day as zero. Used by daily metrics.
	FillZero FillPolicy = iota
	// FillCarryForward repeats the last known value, starting from zero.
	FillCarryForward
)

// ParseFillPolicy parses the reference-data spelling of a fill policy.
func ParseFillPolicy(s string) (FillPolicy, error) {
	switch s {
	case "zero":
		return FillZero, nil
	case "carry_forward":
		return FillCarryForward, nil
	default:
		return 0, fmt.Errorf("unknown fill policy %q", s)
	}
}

// GapPolicy describes how one metric is merged onto a calendar.
type GapPolicy struct {
	Fill     FillPolicy
	Monotone bool
}

// Metric names used as policy keys and in error context.
const (
	MetricPositiveDaily    = "positive_daily"
	MetricNegativeDaily    = "negative_daily"
	MetricTestsDaily       = "tests_daily"
	MetricConfirmed        = "confirmed"
	MetricDeceased         = "deceased"
	MetricRecovered        = "recovered"
	MetricHospitalised     = "hospitalised"
	MetricIntensive        = "intensive"
	MetricOnVentilation    = "on_ventilation"
	MetricVaccinatedTotal  = "vaccinated_total"
	MetricVaccinatedDaily  = "vaccinated_daily"
	MetricCompletedTotal   = "completed_total"
	MetricCompletedDaily   = "completed_daily"
	MetricActive           = "active"
	MetricCountyPositive   = "county_positive_daily"
	MetricCountyCumulative = "county_positive"
	MetricCountyActive     = "county_active"
)

var (
	cumulativePolicy = GapPolicy{Fill: FillCarryForward, Monotone: true}
	dailyPolicy      = GapPolicy{Fill: FillZero}
	levelPolicy      = GapPolicy{Fill: FillCarryForward}
)

// DefaultPolicies returns the gap policy of every merged metric. Reference
// data may override individual entries.
func DefaultPolicies() map[string]GapPolicy {
	return map[string]GapPolicy{
		MetricPositiveDaily:   dailyPolicy,
		MetricNegativeDaily:   dailyPolicy,
		MetricTestsDaily:      dailyPolicy,
		MetricDeceased:        cumulativePolicy,
		MetricRecovered:       cumulativePolicy,
		MetricHospitalised:    levelPolicy,
		MetricIntensive:       levelPolicy,
		MetricOnVentilation:   levelPolicy,
		MetricVaccinatedTotal: cumulativePolicy,
		MetricVaccinatedDaily: dailyPolicy,
		MetricCompletedTotal:  cumulativePolicy,
		MetricCompletedDaily:  dailyPolicy,
	}
}

// Merge aligns a metric onto cal. For each date it takes the override when
// present, otherwise the automatic value, otherwise the policy's gap-fill
// value. Values outside the calendar are ignored. A monotone policy rejects
// any decrease, overrides included.
func Merge(metric string, cal Calendar, automatic DateValues, overrides Override, policy GapPolicy) (Series, error) {
	values := make([]int64, cal.Len())
	var last int64

	for i := range values {
		d := cal.Date(i)
		key := FormatDate(d)

		v, ok := overrides[key]
		if !ok {
			v, ok = automatic[key]
		}
		if !ok && policy.Fill == FillCarryForward {
			v = last
		}

		if policy.Monotone && i > 0 && v < values[i-1] {
			return Series{}, &NonMonotoneSeriesError{Metric: metric, Date: d, Previous: values[i-1], Value: v}
		}
		values[i] = v
		last = v
	}

	return Series{Metric: metric, Calendar: cal, Values: values}, nil
}

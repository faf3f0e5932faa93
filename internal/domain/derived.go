package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ActiveClamp records a date on which confirmed − recovered − deceased came
// out negative and active cases were clamped to zero.
type ActiveClamp struct {
	Date time.Time
	Raw  int64
}

// Active computes confirmed − recovered − deceased per date, clamped at zero.
// Every clamped date is returned so the inconsistency can be reported.
func Active(confirmed, recovered, deceased Series) (Series, []ActiveClamp, error) {
	if err := requireSameCalendar(confirmed, recovered, deceased); err != nil {
		return Series{}, nil, err
	}

	var clamps []ActiveClamp
	values := make([]int64, confirmed.Len())
	for i := range values {
		v := confirmed.Values[i] - recovered.Values[i] - deceased.Values[i]
		if v < 0 {
			clamps = append(clamps, ActiveClamp{Date: confirmed.Calendar.Date(i), Raw: v})
			v = 0
		}
		values[i] = v
	}
	return Series{Metric: MetricActive, Calendar: confirmed.Calendar, Values: values}, clamps, nil
}

// Delta returns day-over-day changes; delta[i] = v[i+1] − v[i]. The first
// calendar date has no delta, so the result is one shorter than s.
func Delta(s Series) []int64 {
	if s.Len() < 2 {
		return []int64{}
	}
	out := make([]int64, s.Len()-1)
	for i := range out {
		out[i] = s.Values[i+1] - s.Values[i]
	}
	return out
}

// LatestChange returns the change between the calendar's last two dates.
func LatestChange(s Series) (int64, error) {
	if s.Calendar.Len() < 2 {
		return 0, errors.New("latest change of " + s.Metric + " needs at least two dates")
	}
	end := s.Calendar.End()
	last, _ := s.At(end)
	prev, _ := s.At(end.AddDate(0, 0, -1))
	return last - prev, nil
}

// Percentage returns num as a percentage of den, rounded to two decimals.
// A zero denominator is an *UndefinedPercentageError.
func Percentage(metric string, num, den int64) (float64, error) {
	if den == 0 {
		return 0, &UndefinedPercentageError{Metric: metric, Numerator: num}
	}
	return decimal.NewFromInt(num).
		Mul(decimal.NewFromInt(100)).
		DivRound(decimal.NewFromInt(den), 2).
		InexactFloat64(), nil
}

// PercentageOrZero is Percentage with a defined 0.0 for a zero denominator.
func PercentageOrZero(num, den int64) float64 {
	p, err := Percentage("", num, den)
	if err != nil {
		return 0
	}
	return p
}

// VaccinationSummary holds the headline vaccination figures.
type VaccinationSummary struct {
	// All vaccinated (at least one dose).
	AllTotal   int64
	AllLastDay int64
	// Completed course.
	CompletedTotal   int64
	CompletedLastDay int64
	// Started but not completed: all − completed.
	PartialTotal   int64
	PartialLastDay int64

	AllFromPopulationPercentage  float64
	CompletedFromTotalPercentage float64
}

// SummarizeVaccination builds the headline figures from the most recent
// "Vaccinated" and "FullyVaccinated" rows.
func SummarizeVaccination(v VaccinationCounts) (VaccinationSummary, error) {
	if v.Vaccinated.Latest == nil {
		return VaccinationSummary{}, &MalformedRecordError{
			Feed: FeedVaccination, Index: -1, Key: MeasurementVaccinated, Field: "MeasurementType", Reason: "no rows",
		}
	}
	if v.Completed.Latest == nil {
		return VaccinationSummary{}, &MalformedRecordError{
			Feed: FeedVaccination, Index: -1, Key: MeasurementFullyVaccinated, Field: "MeasurementType", Reason: "no rows",
		}
	}
	all, completed := *v.Vaccinated.Latest, *v.Completed.Latest

	pct, err := Percentage("completelyVaccinatedFromTotalVaccinated", completed.TotalCount, all.TotalCount)
	if err != nil {
		return VaccinationSummary{}, err
	}

	return VaccinationSummary{
		AllTotal:                     all.TotalCount,
		AllLastDay:                   all.DailyCount,
		CompletedTotal:               completed.TotalCount,
		CompletedLastDay:             completed.DailyCount,
		PartialTotal:                 all.TotalCount - completed.TotalCount,
		PartialLastDay:               all.DailyCount - completed.DailyCount,
		AllFromPopulationPercentage:  all.PopulationCoverage,
		CompletedFromTotalPercentage: pct,
	}, nil
}

package domain

import (
	"fmt"
	"time"
)

// DateValues is a sparse, date-keyed mapping produced by normalization.
// Keys are ISO calendar dates.
type DateValues map[string]int64

// Override maps ISO calendar dates to manually confirmed values. An override
// always wins over the value derived from a feed for the same date.
type Override map[string]int64

// ParseOverride validates and normalizes the keys of a curated override file.
// Timestamp keys are reduced to their date part.
func ParseOverride(source string, raw map[string]int64) (Override, error) {
	out := make(Override, len(raw))
	for key, v := range raw {
		d, err := ParseDate(key)
		if err != nil {
			return nil, &MalformedRecordError{Feed: source, Index: -1, Key: key, Field: "date", Reason: err.Error()}
		}
		out[FormatDate(d)] = v
	}
	return out, nil
}

// Series is a DailySeries: one value per date of its calendar.
type Series struct {
	Metric   string
	Calendar Calendar
	Values   []int64
}

// Len returns the number of values.
func (s Series) Len() int { return len(s.Values) }

// At returns the value on date d.
func (s Series) At(d time.Time) (int64, bool) {
	i, ok := s.Calendar.Index(d)
	if !ok {
		return 0, false
	}
	return s.Values[i], true
}

// Last returns the value on the calendar's end date.
func (s Series) Last() int64 {
	v, _ := s.At(s.Calendar.End())
	return v
}

// CumulativeSum turns a daily series into a running total.
func CumulativeSum(metric string, daily Series) Series {
	values := make([]int64, len(daily.Values))
	var total int64
	for i, v := range daily.Values {
		total += v
		values[i] = total
	}
	return Series{Metric: metric, Calendar: daily.Calendar, Values: values}
}

func requireSameCalendar(series ...Series) error {
	for _, s := range series[1:] {
		if !s.Calendar.Equal(series[0].Calendar) {
			return fmt.Errorf("series %s and %s are not aligned to the same calendar", series[0].Metric, s.Metric)
		}
	}
	return nil
}

package domain

import (
	"fmt"
	"time"
)

// InvalidRangeError reports a calendar whose start date falls after its end date.
type InvalidRangeError struct {
	Start time.Time
	End   time.Time
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid calendar range: start %s is after end %s", FormatDate(e.Start), FormatDate(e.End))
}

// MalformedRecordError reports a raw record that lacks a required field or
// carries one that cannot be parsed. Index is the record position in the
// feed; for keyed inputs such as override files it is -1 and Key is set.
type MalformedRecordError struct {
	Feed   string
	Index  int
	Key    string
	Field  string
	Reason string
}

func (e *MalformedRecordError) Error() string {
	where := fmt.Sprintf("record %d", e.Index)
	if e.Index < 0 {
		where = fmt.Sprintf("key %q", e.Key)
	}
	return fmt.Sprintf("malformed %s %s: field %s: %s", e.Feed, where, e.Field, e.Reason)
}

// NonMonotoneSeriesError reports a cumulative series that decreases.
type NonMonotoneSeriesError struct {
	Metric   string
	Date     time.Time
	Previous int64
	Value    int64
}

func (e *NonMonotoneSeriesError) Error() string {
	return fmt.Sprintf("cumulative series %s decreases on %s: %d -> %d",
		e.Metric, FormatDate(e.Date), e.Previous, e.Value)
}

// MissingPopulationError reports a known county without a usable population.
type MissingPopulationError struct {
	County string
}

func (e *MissingPopulationError) Error() string {
	return fmt.Sprintf("missing population for county %s", e.County)
}

// UndefinedPercentageError reports a percentage whose denominator is zero.
type UndefinedPercentageError struct {
	Metric    string
	Numerator int64
}

func (e *UndefinedPercentageError) Error() string {
	return fmt.Sprintf("percentage %s undefined: %d over zero", e.Metric, e.Numerator)
}

// StaleSourceError reports an upstream source that has not been updated
// recently enough for a run to proceed.
type StaleSourceError struct {
	Feed      string
	Check     string
	Reported  time.Time
	Threshold time.Time
}

func (e *StaleSourceError) Error() string {
	return fmt.Sprintf("stale source %s: %s reported %s, need %s or later",
		e.Feed, e.Check, e.Reported.Format(time.RFC3339), e.Threshold.Format(time.RFC3339))
}

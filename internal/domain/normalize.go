package domain

import (
	"strings"
	"time"
)

// GenderCounts splits a count by gender.
type GenderCounts struct {
	Male   int64
	Female int64
	Other  int64
}

// CountyObservation is a validated test result reduced to what the county
// aggregator needs.
type CountyObservation struct {
	Code   string
	Date   string
	Result string
}

// TestCounts is the normalized test results feed.
type TestCounts struct {
	Positive      DateValues
	Negative      DateValues
	Total         DateValues
	PositiveByAge map[string]GenderCounts
	Observations  []CountyObservation
}

// NormalizeTestResults counts tests per date. Duplicate dates aggregate:
// every record contributes one test.
func NormalizeTestResults(records []TestResult) (TestCounts, error) {
	out := TestCounts{
		Positive:      DateValues{},
		Negative:      DateValues{},
		Total:         DateValues{},
		PositiveByAge: map[string]GenderCounts{},
		Observations:  make([]CountyObservation, 0, len(records)),
	}

	for i, rec := range records {
		key, err := recordDate(FeedTestResults, i, "StatisticsDate", rec.StatisticsDate)
		if err != nil {
			return TestCounts{}, err
		}
		result := strings.TrimSpace(rec.ResultValue)
		if result == "" {
			return TestCounts{}, missingField(FeedTestResults, i, "ResultValue")
		}

		out.Total[key]++
		switch result {
		case ResultPositive:
			out.Positive[key]++
			g := out.PositiveByAge[rec.AgeGroup]
			switch rec.Gender {
			case GenderMale:
				g.Male++
			case GenderFemale:
				g.Female++
			default:
				g.Other++
			}
			out.PositiveByAge[rec.AgeGroup] = g
		case ResultNegative:
			out.Negative[key]++
		}

		out.Observations = append(out.Observations, CountyObservation{Code: rec.County, Date: key, Result: result})
	}

	return out, nil
}

// HospitalCounts is the normalized hospitalization timeline.
type HospitalCounts struct {
	Hospitalised  DateValues
	Intensive     DateValues
	OnVentilation DateValues
	Discharged    DateValues
}

// NormalizeHospitalization keys each snapshot by its date. When a date
// repeats, the record that comes last in the feed wins.
func NormalizeHospitalization(records []HospitalRecord) (HospitalCounts, error) {
	out := HospitalCounts{
		Hospitalised:  DateValues{},
		Intensive:     DateValues{},
		OnVentilation: DateValues{},
		Discharged:    DateValues{},
	}

	for i, rec := range records {
		key, err := recordDate(FeedHospitalization, i, "StatisticsDate", rec.StatisticsDate)
		if err != nil {
			return HospitalCounts{}, err
		}
		fields := []struct {
			name  string
			value *int64
			into  DateValues
		}{
			{"ActivelyHospitalised", rec.ActivelyHospitalised, out.Hospitalised},
			{"IsInIntensive", rec.IsInIntensive, out.Intensive},
			{"IsOnVentilation", rec.IsOnVentilation, out.OnVentilation},
			{"Discharged", rec.Discharged, out.Discharged},
		}
		for _, f := range fields {
			if f.value == nil {
				return HospitalCounts{}, missingField(FeedHospitalization, i, f.name)
			}
			f.into[key] = *f.value
		}
	}

	return out, nil
}

// VaccinationSnapshot is the most recent row of one measurement type.
type VaccinationSnapshot struct {
	Date               time.Time
	TotalCount         int64
	DailyCount         int64
	PopulationCoverage float64
}

// VaccinationTrack holds the series of one measurement type.
type VaccinationTrack struct {
	Total  DateValues
	Daily  DateValues
	Latest *VaccinationSnapshot
}

// VaccinationCounts is the normalized vaccination totals feed.
type VaccinationCounts struct {
	Vaccinated VaccinationTrack
	Completed  VaccinationTrack
}

// NormalizeVaccination splits the feed by measurement type. The last row in
// feed order wins per (type, date); other measurement types are ignored.
func NormalizeVaccination(records []VaccinationRecord) (VaccinationCounts, error) {
	out := VaccinationCounts{
		Vaccinated: VaccinationTrack{Total: DateValues{}, Daily: DateValues{}},
		Completed:  VaccinationTrack{Total: DateValues{}, Daily: DateValues{}},
	}

	for i, rec := range records {
		key, err := recordDate(FeedVaccination, i, "StatisticsDate", rec.StatisticsDate)
		if err != nil {
			return VaccinationCounts{}, err
		}

		var track *VaccinationTrack
		switch strings.TrimSpace(rec.MeasurementType) {
		case "":
			return VaccinationCounts{}, missingField(FeedVaccination, i, "MeasurementType")
		case MeasurementVaccinated:
			track = &out.Vaccinated
		case MeasurementFullyVaccinated:
			track = &out.Completed
		default:
			continue
		}

		if rec.TotalCount == nil {
			return VaccinationCounts{}, missingField(FeedVaccination, i, "TotalCount")
		}
		if rec.DailyCount == nil {
			return VaccinationCounts{}, missingField(FeedVaccination, i, "DailyCount")
		}
		track.Total[key] = *rec.TotalCount
		track.Daily[key] = *rec.DailyCount

		date, _ := ParseDate(key)
		if track.Latest == nil || !date.Before(track.Latest.Date) {
			snap := VaccinationSnapshot{Date: date, TotalCount: *rec.TotalCount, DailyCount: *rec.DailyCount}
			if rec.PopulationCoverage != nil {
				snap.PopulationCoverage = *rec.PopulationCoverage
			}
			track.Latest = &snap
		}
	}

	return out, nil
}

// Municipalities maps county name → commune → total confirmed cases.
type Municipalities map[string]map[string]int64

// NormalizeLocations keeps, per (county, commune), the positive row with the
// latest StatisticsDate; ties go to the later row. Rows with unknown county
// codes are dropped and counted by raw code.
func NormalizeLocations(records []LocationRecord, table CountyTable) (Municipalities, map[string]int, error) {
	type latest struct {
		date  string
		cases int64
	}
	byCommune := map[[2]string]latest{}
	dropped := map[string]int{}

	for i, rec := range records {
		key, err := recordDate(FeedLocations, i, "StatisticsDate", rec.StatisticsDate)
		if err != nil {
			return nil, nil, err
		}
		if rec.ResultValue != ResultPositive || strings.TrimSpace(rec.Commune) == "" {
			continue
		}
		if rec.TotalCases == nil {
			return nil, nil, missingField(FeedLocations, i, "TotalCases")
		}
		county, ok := table.Resolve(rec.County)
		if !ok {
			dropped[rec.County]++
			continue
		}

		k := [2]string{county.Name, strings.TrimSpace(rec.Commune)}
		if prev, seen := byCommune[k]; seen && key < prev.date {
			continue
		}
		byCommune[k] = latest{date: key, cases: *rec.TotalCases}
	}

	out := Municipalities{}
	for k, v := range byCommune {
		if out[k[0]] == nil {
			out[k[0]] = map[string]int64{}
		}
		out[k[0]][k[1]] = v.cases
	}
	return out, dropped, nil
}

func recordDate(feed string, index int, field, value string) (string, error) {
	if strings.TrimSpace(value) == "" {
		return "", missingField(feed, index, field)
	}
	d, err := ParseDate(value)
	if err != nil {
		return "", &MalformedRecordError{Feed: feed, Index: index, Field: field, Reason: err.Error()}
	}
	return FormatDate(d), nil
}

func missingField(feed string, index int, field string) error {
	return &MalformedRecordError{Feed: feed, Index: index, Field: field, Reason: "missing"}
}

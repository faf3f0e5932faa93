package domain

import (
	"fmt"
	"time"
)

// UpdatedOnLayout renders the document timestamp, e.g. "03/05/2021, 11:20".
const UpdatedOnLayout = "02/01/2006, 15:04"

// Settings is the immutable configuration of one build: reference data plus
// the run's clock reading.
type Settings struct {
	Now      time.Time
	Location *time.Location

	CaseStart        time.Time
	DeathStart       time.Time
	VaccinationStart time.Time

	Counties          CountyTable
	CountryPopulation int64
	AgeGroups         []string
	Policies          map[string]GapPolicy
	ActiveWindowDays  int
}

func (s Settings) policy(metric string) GapPolicy {
	if p, ok := s.Policies[metric]; ok {
		return p
	}
	return DefaultPolicies()[metric]
}

// Diagnostics reports recoverable data problems found during a build.
type Diagnostics struct {
	ActiveClamps    []ActiveClamp
	DroppedCounties map[string]int
	Records         map[string]int
}

// Build runs the whole engine: calendars, normalization, merge, county
// aggregation, derived metrics and assembly. It either returns a complete
// document or an error; there is no partial result.
func Build(s Settings, feeds Feeds, overrides Overrides) (Report, Diagnostics, error) {
	diag := Diagnostics{
		DroppedCounties: map[string]int{},
		Records: map[string]int{
			FeedTestResults:     len(feeds.TestResults),
			FeedLocations:       len(feeds.Locations),
			FeedHospitalization: len(feeds.Hospitalizations),
			FeedVaccination:     len(feeds.Vaccinations),
		},
	}

	end := Yesterday(s.Now, s.Location)
	caseCal, err := NewCalendar(s.CaseStart, end)
	if err != nil {
		return Report{}, diag, fmt.Errorf("cases calendar: %w", err)
	}
	deathCal, err := NewCalendar(s.DeathStart, end)
	if err != nil {
		return Report{}, diag, fmt.Errorf("deaths calendar: %w", err)
	}
	vaccCal, err := NewCalendar(s.VaccinationStart, end)
	if err != nil {
		return Report{}, diag, fmt.Errorf("vaccinations calendar: %w", err)
	}

	tests, err := NormalizeTestResults(feeds.TestResults)
	if err != nil {
		return Report{}, diag, err
	}
	hospital, err := NormalizeHospitalization(feeds.Hospitalizations)
	if err != nil {
		return Report{}, diag, err
	}
	vaccinations, err := NormalizeVaccination(feeds.Vaccinations)
	if err != nil {
		return Report{}, diag, err
	}
	municipalities, droppedLocations, err := NormalizeLocations(feeds.Locations, s.Counties)
	if err != nil {
		return Report{}, diag, err
	}

	cases, clamps, err := buildCaseSeries(s, caseCal, tests, hospital, overrides)
	if err != nil {
		return Report{}, diag, err
	}
	diag.ActiveClamps = clamps

	deceased, err := Merge(MetricDeceased, deathCal, nil, overrides.Deceased, s.policy(MetricDeceased))
	if err != nil {
		return Report{}, diag, err
	}
	deaths := DeathSeries{Deceased: deceased, DeceasedDelta: Delta(deceased)}

	vaccSeries, err := buildVaccinationSeries(s, vaccCal, vaccinations)
	if err != nil {
		return Report{}, diag, err
	}
	summary, err := SummarizeVaccination(vaccinations)
	if err != nil {
		return Report{}, diag, err
	}

	counties := NewCountyAggregator(s.Counties, s.ActiveWindowDays).Aggregate(caseCal, tests.Observations)
	for code, n := range counties.Dropped {
		diag.DroppedCounties[code] += n
	}
	for code, n := range droppedLocations {
		diag.DroppedCounties[code] += n
	}

	headline, err := buildHeadline(cases)
	if err != nil {
		return Report{}, diag, err
	}

	report := Assemble(ReportInput{
		UpdatedOn:      s.Now.In(s.Location).Format(UpdatedOnLayout),
		AgeGroups:      s.AgeGroups,
		PositiveByAge:  tests.PositiveByAge,
		Headline:       headline,
		Cases:          cases,
		Deaths:         deaths,
		Vaccinations:   vaccSeries,
		VaccineSummary: summary,
		Counties:       counties,
		Municipalities: municipalities,
	})
	return report, diag, nil
}

func buildCaseSeries(s Settings, cal Calendar, tests TestCounts, hospital HospitalCounts, overrides Overrides) (CaseSeries, []ActiveClamp, error) {
	var out CaseSeries
	merges := []struct {
		metric    string
		automatic DateValues
		overrides Override
		into      *Series
	}{
		{MetricPositiveDaily, tests.Positive, nil, &out.PositiveDaily},
		{MetricNegativeDaily, tests.Negative, nil, &out.NegativeDaily},
		{MetricTestsDaily, tests.Total, nil, &out.TestsDaily},
		{MetricRecovered, hospital.Discharged, nil, &out.Recovered},
		{MetricDeceased, nil, overrides.Deceased, &out.Deceased},
		{MetricHospitalised, hospital.Hospitalised, nil, &out.Hospitalised},
		{MetricIntensive, hospital.Intensive, overrides.Intensive, &out.Intensive},
		{MetricOnVentilation, hospital.OnVentilation, nil, &out.OnVentilation},
	}
	for _, m := range merges {
		series, err := Merge(m.metric, cal, m.automatic, m.overrides, s.policy(m.metric))
		if err != nil {
			return CaseSeries{}, nil, err
		}
		*m.into = series
	}

	out.Confirmed = CumulativeSum(MetricConfirmed, out.PositiveDaily)
	out.Negative = CumulativeSum(MetricNegativeDaily, out.NegativeDaily)
	out.Tests = CumulativeSum(MetricTestsDaily, out.TestsDaily)

	active, clamps, err := Active(out.Confirmed, out.Recovered, out.Deceased)
	if err != nil {
		return CaseSeries{}, nil, err
	}
	out.Active = active
	out.Active100k = PerCapita(active, s.CountryPopulation, 100000)

	out.PositivePercentage = make([]float64, cal.Len())
	for i := range out.PositivePercentage {
		out.PositivePercentage[i] = PercentageOrZero(out.PositiveDaily.Values[i], out.TestsDaily.Values[i])
	}

	out.ConfirmedDelta = Delta(out.Confirmed)
	out.RecoveredDelta = Delta(out.Recovered)
	out.DeceasedDelta = Delta(out.Deceased)
	out.ActiveDelta = Delta(out.Active)
	return out, clamps, nil
}

func buildVaccinationSeries(s Settings, cal Calendar, v VaccinationCounts) (VaccinationSeries, error) {
	var out VaccinationSeries
	merges := []struct {
		metric    string
		automatic DateValues
		into      *Series
	}{
		{MetricVaccinatedTotal, v.Vaccinated.Total, &out.Vaccinated},
		{MetricCompletedTotal, v.Completed.Total, &out.Completed},
		{MetricVaccinatedDaily, v.Vaccinated.Daily, &out.VaccinatedDaily},
		{MetricCompletedDaily, v.Completed.Daily, &out.CompletedDaily},
	}
	for _, m := range merges {
		series, err := Merge(m.metric, cal, m.automatic, nil, s.policy(m.metric))
		if err != nil {
			return VaccinationSeries{}, err
		}
		*m.into = series
	}
	return out, nil
}

func buildHeadline(c CaseSeries) (Headline, error) {
	h := Headline{
		Confirmed:         c.Confirmed.Last(),
		Active:            c.Active.Last(),
		Active100k:        c.Active100k[len(c.Active100k)-1],
		Hospitalised:      c.Hospitalised.Last(),
		Deceased:          c.Deceased.Last(),
		Recovered:         c.Recovered.Last(),
		TestsAdministered: c.Tests.Last(),
	}

	changes := []struct {
		series Series
		into   *int64
	}{
		{c.Hospitalised, &h.HospitalisedChange},
		{c.Deceased, &h.DeceasedChange},
		{c.Recovered, &h.RecoveredChange},
		{c.Active, &h.ActiveChange},
	}
	for _, ch := range changes {
		v, err := LatestChange(ch.series)
		if err != nil {
			return Headline{}, err
		}
		*ch.into = v
	}
	return h, nil
}

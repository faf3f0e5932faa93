// Package domain builds the COVID-19 dashboard document from Estonian Health
// and Welfare Information Systems Centre (TEHIK) open-data feeds.
//
// # Data Sources
//
// Four JSON feeds are published daily at https://opendata.digilugu.ee/:
//
//	opendata_covid19_test_results.json             one record per test
//	opendata_covid19_test_location.json            per-commune statistics
//	opendata_covid19_hospitalization_timeline.json one snapshot per day
//	covid19/vaccination/v2/opendata_covid19_vaccination_total.json
//
// Two local files are curated by hand: deaths.json (date → deceased) and
// manual_data.json ({"deceased": {...}, "intensive": {...}}).
//
// # TEHIK Data Conventions
//
// Dates:
//
//	StatisticsDate is a calendar date, "2021-05-03". Some feeds publish full
//	timestamps ("2021-05-03T00:00:00+03:00"); only the date part is used.
//
// Test results:
//
//	ResultValue "P" is positive, "N" negative. Other values count towards the
//	number of tests only. Gender is "M" (mees, male) or "N" (naine, female).
//	County holds the county name as published, e.g. "Harju maakond".
//
// Vaccination totals:
//
//	Rows are tagged by MeasurementType. "Vaccinated" counts people with at
//	least one dose, "FullyVaccinated" people with a completed course.
//	TotalCount is cumulative, DailyCount the increment for that day.
//
// # Calendars
//
// Every chart is aligned to one of three calendars that share the same end
// date (yesterday in Europe/Tallinn) but start on different days:
//
//	dates2  cases          since the first test, 2020-02-26
//	dates1  deaths         2020-03-15
//	dates3  vaccinations   since the first vaccination, 2020-12-26
//
// # Merge Precedence
//
// For every calendar date a series takes the manual override when present,
// otherwise the value derived from the feed, otherwise a gap-fill value
// chosen by the metric's [GapPolicy]. Cumulative metrics carry forward and
// must never decrease; daily metrics fill gaps with zero.
package domain

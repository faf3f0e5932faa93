package domain

// Feed names used in error and log context.
const (
	FeedTestResults     = "test_results"
	FeedLocations       = "test_location"
	FeedHospitalization = "hospitalization_timeline"
	FeedVaccination     = "vaccination_total"
	FeedDeaths          = "deaths"
	FeedManualData      = "manual_data"
)

// Test result and gender codes used by TEHIK.
const (
	ResultPositive = "P"
	ResultNegative = "N"
	GenderMale     = "M"
	GenderFemale   = "N"
)

// Vaccination measurement types.
const (
	MeasurementVaccinated      = "Vaccinated"
	MeasurementFullyVaccinated = "FullyVaccinated"
)

// TestResult is one record of the test results feed.
// Required: StatisticsDate, ResultValue.
type TestResult struct {
	ID             string `json:"Id"`
	Gender         string `json:"Gender"`
	AgeGroup       string `json:"AgeGroup"`
	County         string `json:"County"`
	ResultValue    string `json:"ResultValue"`
	StatisticsDate string `json:"StatisticsDate"`
	ResultTime     string `json:"ResultTime,omitempty"`
}

// LocationRecord is one per-commune statistics row of the location feed.
// Required: LastStatisticsDate, StatisticsDate; TotalCases on positive rows.
type LocationRecord struct {
	LastStatisticsDate string `json:"LastStatisticsDate"`
	StatisticsDate     string `json:"StatisticsDate"`
	County             string `json:"County"`
	Commune            string `json:"Commune"`
	ResultValue        string `json:"ResultValue"`
	TotalCases         *int64 `json:"TotalCases"`
}

// HospitalRecord is one daily snapshot of the hospitalization timeline.
// Required: StatisticsDate and all four counts.
type HospitalRecord struct {
	StatisticsDate         string `json:"StatisticsDate"`
	ActivelyHospitalised   *int64 `json:"ActivelyHospitalised"`
	IsInIntensive          *int64 `json:"IsInIntensive"`
	IsOnVentilation        *int64 `json:"IsOnVentilation"`
	Discharged             *int64 `json:"Discharged"`
	LastLoadStatisticsDate string `json:"LastLoadStatisticsDate"`
}

// VaccinationRecord is one measurement row of the vaccination totals feed.
// Required: StatisticsDate, MeasurementType; TotalCount and DailyCount on
// the measurement types that are used.
type VaccinationRecord struct {
	StatisticsDate     string   `json:"StatisticsDate"`
	MeasurementType    string   `json:"MeasurementType"`
	TotalCount         *int64   `json:"TotalCount"`
	DailyCount         *int64   `json:"DailyCount"`
	PopulationCoverage *float64 `json:"PopulationCoverage"`
}

// Feeds holds the decoded upstream feeds of one run.
type Feeds struct {
	TestResults      []TestResult
	Locations        []LocationRecord
	Hospitalizations []HospitalRecord
	Vaccinations     []VaccinationRecord
}

// Overrides holds the curated local corrections of one run.
type Overrides struct {
	Deceased  Override
	Intensive Override
}

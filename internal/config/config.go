package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/robfig/cron/v3"
)

// Default open data endpoints published by TEHIK.
const (
	DefaultTestResultsURL     = "https://opendata.digilugu.ee/opendata_covid19_test_results.json"
	DefaultLocationsURL       = "https://opendata.digilugu.ee/opendata_covid19_test_location.json"
	DefaultHospitalizationURL = "https://opendata.digilugu.ee/opendata_covid19_hospitalization_timeline.json"
	DefaultVaccinationURL     = "https://opendata.digilugu.ee/covid19/vaccination/v2/opendata_covid19_vaccination_total.json"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	TestResultsURL     string
	LocationsURL       string
	HospitalizationURL string
	VaccinationURL     string
	HTTPTimeout        time.Duration

	// FeedDir switches to offline mode: the four feeds are read from this
	// directory instead of the network.
	FeedDir string

	DeathsPath      string
	ManualDataPath  string
	OutputPath      string
	TestsPerDayPath string
	ReferencePath   string

	LogLevel  string
	LogFormat string

	// Schedule is a cron expression. When set the service runs as a daemon.
	Schedule        string
	HTTPAddr        string
	ShutdownTimeout time.Duration

	MetricsPushURL string

	// ReplayAt pins the run clock, so a feed directory captured on an
	// earlier day can be rebuilt as of that day. Zero means the wall clock.
	ReplayAt time.Time

	KafkaBrokers     []string
	KafkaReportTopic string
}

// Daemon reports whether the service runs on a schedule.
func (c *Config) Daemon() bool { return c.Schedule != "" }

// KafkaEnabled reports whether the finished report is published to Kafka.
func (c *Config) KafkaEnabled() bool { return len(c.KafkaBrokers) > 0 && c.KafkaReportTopic != "" }

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	httpTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("HTTP_TIMEOUT", "60s"))
	if err != nil || httpTimeout <= 0 {
		return nil, errors.New("invalid HTTP_TIMEOUT")
	}

	cfg := &Config{
		TestResultsURL:     sharedcfg.EnvOrDefault("TEST_RESULTS_URL", DefaultTestResultsURL),
		LocationsURL:       sharedcfg.EnvOrDefault("LOCATIONS_URL", DefaultLocationsURL),
		HospitalizationURL: sharedcfg.EnvOrDefault("HOSPITALIZATION_URL", DefaultHospitalizationURL),
		VaccinationURL:     sharedcfg.EnvOrDefault("VACCINATION_URL", DefaultVaccinationURL),
		HTTPTimeout:        httpTimeout,
		FeedDir:            os.Getenv("FEED_DIR"),

		DeathsPath:      sharedcfg.EnvOrDefault("DEATHS_PATH", "deaths.json"),
		ManualDataPath:  sharedcfg.EnvOrDefault("MANUAL_DATA_PATH", "manual_data.json"),
		OutputPath:      sharedcfg.EnvOrDefault("OUTPUT_PATH", "data.json"),
		TestsPerDayPath: os.Getenv("TESTS_PER_DAY_PATH"),
		ReferencePath:   os.Getenv("REFERENCE_PATH"),

		LogLevel:  sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),

		Schedule:        os.Getenv("SCHEDULE"),
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		ShutdownTimeout: shutdownTimeout,

		MetricsPushURL: os.Getenv("METRICS_PUSH_URL"),

		KafkaReportTopic: sharedcfg.EnvOrDefault("KAFKA_REPORT_TOPIC", "covid-dashboard-report"),
	}
	if v := os.Getenv("REPLAY_AT"); v != "" {
		if cfg.ReplayAt, err = time.Parse(time.RFC3339, v); err != nil {
			return nil, fmt.Errorf("invalid REPLAY_AT: %w", err)
		}
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = sharedcfg.ParseBrokers(brokers)
	}

	if cfg.OutputPath == "" {
		return nil, errors.New("OUTPUT_PATH is required")
	}
	if cfg.FeedDir == "" {
		for name, v := range map[string]string{
			"TEST_RESULTS_URL":    cfg.TestResultsURL,
			"LOCATIONS_URL":       cfg.LocationsURL,
			"HOSPITALIZATION_URL": cfg.HospitalizationURL,
			"VACCINATION_URL":     cfg.VaccinationURL,
		} {
			if v == "" {
				return nil, fmt.Errorf("%s is required unless FEED_DIR is set", name)
			}
		}
	}
	if cfg.Schedule != "" {
		if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
			return nil, fmt.Errorf("invalid SCHEDULE: %w", err)
		}
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, errors.New("LOG_FORMAT must be json or text")
	}

	return cfg, nil
}

package opendata

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/covid-dashboard-etl/internal/domain"
	"github.com/couchcryptid/covid-dashboard-etl/internal/observability"
)

const (
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
	lastModified      = "Tue, 04 May 2021 06:12:00 GMT"
)

var feedBodies = map[string]string{
	"/test_results.json": `[
		{"Id":"a1","Gender":"M","AgeGroup":"20-24","County":"Harju maakond","ResultValue":"P","StatisticsDate":"2021-05-03","ResultTime":"2021-05-03T10:00:00+03:00"},
		{"Id":"a2","Gender":"N","AgeGroup":"30-34","County":"Tartu maakond","ResultValue":"N","StatisticsDate":"2021-05-03"}
	]`,
	"/locations.json": `[
		{"LastStatisticsDate":"2021-05-03","StatisticsDate":"2021-05-03","County":"Harju maakond","Commune":"Tallinn","ResultValue":"P","TotalCases":12}
	]`,
	"/hospital.json": `[
		{"StatisticsDate":"2021-05-03","ActivelyHospitalised":5,"IsInIntensive":1,"IsOnVentilation":0,"Discharged":20,"LastLoadStatisticsDate":"2021-05-03T23:00:00"}
	]`,
	"/vaccination.json": `[
		{"StatisticsDate":"2021-05-03","MeasurementType":"Vaccinated","TotalCount":1000,"DailyCount":50,"PopulationCoverage":12.5},
		{"StatisticsDate":"2021-05-03","MeasurementType":"FullyVaccinated","TotalCount":400,"DailyCount":20,"PopulationCoverage":5.1}
	]`,
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFeedServer(t *testing.T, override map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h, ok := override[r.URL.Path]; ok {
			h(w, r)
			return
		}
		body, ok := feedBodies[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set(headerContentType, contentTypeJSON)
		w.Header().Set("Last-Modified", lastModified)
		if r.Method == http.MethodHead {
			return
		}
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testClient(baseURL string) *Client {
	c := NewClient(URLs{
		TestResults:     baseURL + "/test_results.json",
		Locations:       baseURL + "/locations.json",
		Hospitalization: baseURL + "/hospital.json",
		Vaccination:     baseURL + "/vaccination.json",
	}, 5*time.Second, observability.NewMetricsForTesting(), discardLogger())
	c.backoff = time.Millisecond
	return c
}

func TestClient_FetchFeeds(t *testing.T) {
	srv := newFeedServer(t, nil)

	feeds, err := testClient(srv.URL).FetchFeeds(context.Background())
	require.NoError(t, err)

	require.Len(t, feeds.TestResults, 2)
	assert.Equal(t, domain.TestResult{
		ID: "a1", Gender: "M", AgeGroup: "20-24", County: "Harju maakond",
		ResultValue: "P", StatisticsDate: "2021-05-03", ResultTime: "2021-05-03T10:00:00+03:00",
	}, feeds.TestResults[0])

	require.Len(t, feeds.Locations, 1)
	require.NotNil(t, feeds.Locations[0].TotalCases)
	assert.Equal(t, int64(12), *feeds.Locations[0].TotalCases)

	require.Len(t, feeds.Hospitalizations, 1)
	require.NotNil(t, feeds.Hospitalizations[0].Discharged)
	assert.Equal(t, int64(20), *feeds.Hospitalizations[0].Discharged)

	require.Len(t, feeds.Vaccinations, 2)
	assert.Equal(t, domain.MeasurementFullyVaccinated, feeds.Vaccinations[1].MeasurementType)
	require.NotNil(t, feeds.Vaccinations[0].PopulationCoverage)
	assert.InDelta(t, 12.5, *feeds.Vaccinations[0].PopulationCoverage, 1e-9)
}

func TestClient_FetchFeeds_MissingMeasurementIsNil(t *testing.T) {
	srv := newFeedServer(t, map[string]http.HandlerFunc{
		"/hospital.json": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, `[{"StatisticsDate":"2021-05-03","ActivelyHospitalised":5}]`)
		},
	})

	feeds, err := testClient(srv.URL).FetchFeeds(context.Background())
	require.NoError(t, err)
	assert.Nil(t, feeds.Hospitalizations[0].Discharged)
}

func TestClient_FetchFeeds_Errors(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		handler http.HandlerFunc
		want    string
	}{
		{
			name: "server error",
			path: "/locations.json",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "upstream down", http.StatusBadGateway)
			},
			want: "test_location: status 502",
		},
		{
			name: "invalid json",
			path: "/vaccination.json",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = io.WriteString(w, `{"not":"an array"}`)
			},
			want: "decode vaccination_total",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newFeedServer(t, map[string]http.HandlerFunc{tt.path: tt.handler})

			_, err := testClient(srv.URL).FetchFeeds(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestClient_FetchFeeds_RetriesTransientFailure(t *testing.T) {
	var calls atomic.Int32
	srv := newFeedServer(t, map[string]http.HandlerFunc{
		"/hospital.json": func(w http.ResponseWriter, _ *http.Request) {
			if calls.Add(1) == 1 {
				http.Error(w, "try later", http.StatusServiceUnavailable)
				return
			}
			_, _ = io.WriteString(w, feedBodies["/hospital.json"])
		},
	})

	feeds, err := testClient(srv.URL).FetchFeeds(context.Background())
	require.NoError(t, err)
	assert.Len(t, feeds.Hospitalizations, 1)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_FetchFeeds_DoesNotRetryClientError(t *testing.T) {
	var calls atomic.Int32
	srv := newFeedServer(t, map[string]http.HandlerFunc{
		"/test_results.json": func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			http.NotFound(w, r)
		},
	})

	_, err := testClient(srv.URL).FetchFeeds(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_FetchFeeds_GivesUpAfterAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := newFeedServer(t, map[string]http.HandlerFunc{
		"/vaccination.json": func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			http.Error(w, "down", http.StatusInternalServerError)
		},
	})

	_, err := testClient(srv.URL).FetchFeeds(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(defaultAttempts), calls.Load())
}

func TestClient_FetchFeeds_ContextCancelled(t *testing.T) {
	srv := newFeedServer(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testClient(srv.URL).FetchFeeds(ctx)
	require.Error(t, err)
}

func TestClient_LocationsLastModified(t *testing.T) {
	srv := newFeedServer(t, nil)

	got, err := testClient(srv.URL).LocationsLastModified(context.Background())
	require.NoError(t, err)
	assert.Equal(t, time.Date(2021, 5, 4, 6, 12, 0, 0, time.UTC), got.UTC())
}

func TestClient_LocationsLastModified_Missing(t *testing.T) {
	srv := newFeedServer(t, map[string]http.HandlerFunc{
		"/locations.json": func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		},
	})

	got, err := testClient(srv.URL).LocationsLastModified(context.Background())
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestClient_LocationsLastModified_Invalid(t *testing.T) {
	srv := newFeedServer(t, map[string]http.HandlerFunc{
		"/locations.json": func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Last-Modified", "yesterday")
			w.WriteHeader(http.StatusOK)
		},
	})

	_, err := testClient(srv.URL).LocationsLastModified(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Last-Modified")
}

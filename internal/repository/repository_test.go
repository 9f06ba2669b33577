package repository

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CapIot.dashboard/internal/metrics"
	"CapIot.dashboard/internal/models"
)

type seenRequest struct {
	Path  string
	Query url.Values
}

type fakeStatsAPI struct {
	mu       sync.Mutex
	requests []seenRequest
	status   int
	body     string
}

func (f *fakeStatsAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.requests = append(f.requests, seenRequest{Path: r.URL.Path, Query: r.URL.Query()})
	status, body := f.status, f.body
	f.mu.Unlock()

	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func newTestRepository(t *testing.T, status int, body string) (*HTTPStatsRepository, *fakeStatsAPI) {
	t.Helper()
	fake := &fakeStatsAPI{status: status, body: body}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	return NewHTTPStatsRepository(srv.URL, time.Second, slog.New(slog.NewTextHandler(io.Discard, nil))), fake
}

var testWindow = models.DayWindow(time.Date(2020, 11, 1, 0, 0, 0, 0, time.UTC))

func TestApartmentStats(t *testing.T) {
	repo, fake := newTestRepository(t, 0, `{"total_consumption": 123.5, "measurement_count": 10}`)

	stats, err := repo.ApartmentStats(context.Background(), "42", testWindow)
	require.NoError(t, err)
	assert.Equal(t, 123.5, stats.TotalConsumption)
	assert.Equal(t, int64(10), stats.MeasurementCount)

	require.Len(t, fake.requests, 1)
	assert.Equal(t, "/apartment_stats/42", fake.requests[0].Path)
	assert.Equal(t, "2020-11-01", fake.requests[0].Query.Get("start"))
	assert.Equal(t, "2020-11-02", fake.requests[0].Query.Get("end"))
}

func TestApartmentDeviceStats(t *testing.T) {
	repo, fake := newTestRepository(t, 0,
		`{"manual": {"total_consumption": 30}, "automatic": {"total_consumption": null}}`)

	stats, err := repo.ApartmentDeviceStats(context.Background(), "1", testWindow)
	require.NoError(t, err)
	assert.Equal(t, 30.0, stats.Manual.TotalConsumption)
	assert.Equal(t, 0.0, stats.Automatic.TotalConsumption)
	assert.Equal(t, "/apartment_device_stats/1", fake.requests[0].Path)
}

func TestApartmentDeviceStats_MissingClass(t *testing.T) {
	repo, _ := newTestRepository(t, 0, `{"manual": {"total_consumption": 30}}`)

	_, err := repo.ApartmentDeviceStats(context.Background(), "1", testWindow)
	require.Error(t, err)
	assert.Equal(t, models.ErrorCodeMalformedResponse, models.AsAPIError(err).Code)
	assert.ErrorIs(t, err, models.ErrMissingField)
}

func TestStats(t *testing.T) {
	body := `{
		"apartment_stats": {"total_consumption": 50},
		"apartment_device_stats": {"manual": {"total_consumption": 20}, "automatic": {"total_consumption": 30}},
		"smallest_apartment_total_consumption": {"total_consumption": 10},
		"largest_apartment_total_consumption": {"total_consumption": 90},
		"smallest_apartment_device_consumption": {"manual": {"total_consumption": 5}, "automatic": {"total_consumption": 5}},
		"largest_apartment_device_consumption": {"manual": {"total_consumption": 45}, "automatic": {"total_consumption": 55}}
	}`
	repo, fake := newTestRepository(t, 0, body)

	stats, err := repo.Stats(context.Background(), "7", testWindow)
	require.NoError(t, err)
	assert.Equal(t, models.Comparison{Actual: 50, Smallest: 10, Largest: 90}, stats.Compare(models.KindTotal))
	assert.Equal(t, models.Comparison{Actual: 30, Smallest: 5, Largest: 55}, stats.Compare(models.KindAutomatic))
	assert.Equal(t, "/stats/7", fake.requests[0].Path)
}

func TestStats_MissingComparator(t *testing.T) {
	repo, _ := newTestRepository(t, 0, `{"apartment_stats": {"total_consumption": 50}}`)

	_, err := repo.Stats(context.Background(), "7", testWindow)
	apiErr := models.AsAPIError(err)
	assert.Equal(t, models.ErrorCodeMalformedResponse, apiErr.Code)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
}

func TestDeviceSpecificConsumption(t *testing.T) {
	repo, fake := newTestRepository(t, 0,
		`{"1": {"Hydractiva_shower": {"flow_percentage": 0.25, "total_consumption": 3}}}`)

	record, err := repo.DeviceSpecificConsumption(context.Background(), testWindow)
	require.NoError(t, err)
	assert.Equal(t, 0.25, record["1"]["Hydractiva_shower"].FlowPercentage)
	assert.Equal(t, "/device_specific_consumption", fake.requests[0].Path)
}

func TestDeviceSpecificConsumption_Null(t *testing.T) {
	repo, _ := newTestRepository(t, 0, `null`)

	record, err := repo.DeviceSpecificConsumption(context.Background(), testWindow)
	require.NoError(t, err)
	assert.NotNil(t, record)
	assert.Empty(t, record)
}

func TestAllStats(t *testing.T) {
	repo, fake := newTestRepository(t, 0, `{"total_consumption": 999}`)

	stats, err := repo.AllStats(context.Background(), testWindow)
	require.NoError(t, err)
	assert.Equal(t, 999.0, stats.TotalConsumption)
	assert.Equal(t, "/all_stats", fake.requests[0].Path)
}

func TestFetch_ReturnsBodyUnchanged(t *testing.T) {
	body := `{"total_consumption": 1, "extra": [1, 2, 3]}`
	repo, _ := newTestRepository(t, 0, body)

	raw, err := repo.Fetch(context.Background(), EndpointApartmentStats, "3", testWindow)
	require.NoError(t, err)
	assert.JSONEq(t, body, string(raw))
}

func TestFetch_ErrorStatusIsUnavailable(t *testing.T) {
	repo, _ := newTestRepository(t, http.StatusInternalServerError, `{"error": "boom"}`)
	before := testutil.ToFloat64(metrics.UpstreamRequests.WithLabelValues(string(EndpointStats), outcomeUnavailable))

	_, err := repo.Stats(context.Background(), "1", testWindow)
	apiErr := models.AsAPIError(err)
	assert.Equal(t, models.ErrorCodeUpstreamUnavailable, apiErr.Code)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.True(t, models.IsUpstreamFailure(err))

	after := testutil.ToFloat64(metrics.UpstreamRequests.WithLabelValues(string(EndpointStats), outcomeUnavailable))
	assert.Equal(t, before+1, after)
}

func TestFetch_UnreachableIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	repo := NewHTTPStatsRepository(srv.URL, time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := repo.ApartmentStats(context.Background(), "1", testWindow)
	require.Error(t, err)
	assert.Equal(t, models.ErrorCodeUpstreamUnavailable, models.AsAPIError(err).Code)
}

func TestFetch_InvalidJSONIsMalformed(t *testing.T) {
	repo, _ := newTestRepository(t, 0, `<html>not json</html>`)
	before := testutil.ToFloat64(metrics.UpstreamRequests.WithLabelValues(string(EndpointAllStats), outcomeMalformed))

	_, err := repo.AllStats(context.Background(), testWindow)
	assert.Equal(t, models.ErrorCodeMalformedResponse, models.AsAPIError(err).Code)

	after := testutil.ToFloat64(metrics.UpstreamRequests.WithLabelValues(string(EndpointAllStats), outcomeMalformed))
	assert.Equal(t, before+1, after)
}

func TestFetch_WrongShapeIsMalformed(t *testing.T) {
	repo, _ := newTestRepository(t, 0, `{"measurement_count": 3}`)

	_, err := repo.ApartmentStats(context.Background(), "1", testWindow)
	assert.Equal(t, models.ErrorCodeMalformedResponse, models.AsAPIError(err).Code)
	assert.ErrorIs(t, err, models.ErrMissingField)
}

func TestFetch_MissingID(t *testing.T) {
	repo, fake := newTestRepository(t, 0, `{}`)

	_, err := repo.Fetch(context.Background(), EndpointStats, "", testWindow)
	assert.Equal(t, models.ErrorCodeMissingParameter, models.AsAPIError(err).Code)
	assert.Empty(t, fake.requests)
}

func TestFetch_CancelledContext(t *testing.T) {
	repo, _ := newTestRepository(t, 0, `{"total_consumption": 1}`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.ApartmentStats(ctx, "1", testWindow)
	assert.Equal(t, models.ErrorCodeUpstreamUnavailable, models.AsAPIError(err).Code)
}

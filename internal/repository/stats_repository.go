package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"CapIot.dashboard/internal/metrics"
	"CapIot.dashboard/internal/models"
)

// Endpoint is a stats API path. Paths with an {id} placeholder take the
// apartment id as a path parameter.
type Endpoint string

const (
	EndpointApartmentStats       Endpoint = "/apartment_stats/{id}"
	EndpointApartmentDeviceStats Endpoint = "/apartment_device_stats/{id}"
	EndpointStats                Endpoint = "/stats/{id}"
	EndpointDeviceSpecific       Endpoint = "/device_specific_consumption"
	EndpointAllStats             Endpoint = "/all_stats"
)

func (e Endpoint) needsID() bool {
	return strings.Contains(string(e), "{id}")
}

const (
	outcomeOK          = "ok"
	outcomeUnavailable = "unavailable"
	outcomeMalformed   = "malformed"

	maxLoggedBody = 256
)

// StatsRepository reads consumption statistics from the stats API. Every
// failure is an models.APIError classified as upstream_unavailable or
// malformed_response.
type StatsRepository interface {
	Fetch(ctx context.Context, endpoint Endpoint, id string, window models.DateWindow) (json.RawMessage, error)
	ApartmentStats(ctx context.Context, id string, window models.DateWindow) (models.ApartmentStats, error)
	ApartmentDeviceStats(ctx context.Context, id string, window models.DateWindow) (models.ApartmentDeviceStats, error)
	Stats(ctx context.Context, id string, window models.DateWindow) (models.StatsResponse, error)
	DeviceSpecificConsumption(ctx context.Context, window models.DateWindow) (models.DeviceFlowRecord, error)
	AllStats(ctx context.Context, window models.DateWindow) (models.ApartmentStats, error)
}

// HTTPStatsRepository talks to the stats API over HTTP.
type HTTPStatsRepository struct {
	client *resty.Client
	logger *slog.Logger
}

// NewHTTPStatsRepository creates a repository for the API at baseURL.
func NewHTTPStatsRepository(baseURL string, timeout time.Duration, logger *slog.Logger) *HTTPStatsRepository {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	return &HTTPStatsRepository{
		client: client,
		logger: logger.With("component", "stats_repository"),
	}
}

// Fetch performs one GET and returns the body untouched once it is known
// to be JSON.
func (r *HTTPStatsRepository) Fetch(ctx context.Context, endpoint Endpoint, id string, window models.DateWindow) (json.RawMessage, error) {
	if endpoint.needsID() && id == "" {
		return nil, models.NewAPIError(models.ErrorCodeMissingParameter,
			fmt.Sprintf("%s requires an apartment id", endpoint), nil, http.StatusBadRequest)
	}

	req := r.client.R().
		SetContext(ctx).
		SetQueryParams(window.QueryParams())
	if endpoint.needsID() {
		req.SetPathParam("id", id)
	}

	start := time.Now()
	resp, err := req.Get(string(endpoint))
	metrics.UpstreamDuration.WithLabelValues(string(endpoint)).Observe(time.Since(start).Seconds())

	if err != nil {
		r.logger.Warn("stats api unreachable", "endpoint", endpoint, "id", id, "error", err)
		metrics.UpstreamRequests.WithLabelValues(string(endpoint), outcomeUnavailable).Inc()
		return nil, unavailable(endpoint, err.Error(), err)
	}
	if !resp.IsSuccess() {
		r.logger.Warn("stats api returned error status",
			"endpoint", endpoint, "id", id, "status", resp.StatusCode(), "body", truncate(resp.String()))
		metrics.UpstreamRequests.WithLabelValues(string(endpoint), outcomeUnavailable).Inc()
		return nil, unavailable(endpoint, fmt.Sprintf("status %d", resp.StatusCode()), nil)
	}

	body := resp.Body()
	if !json.Valid(body) {
		r.logger.Warn("stats api returned invalid json", "endpoint", endpoint, "id", id, "body", truncate(string(body)))
		metrics.UpstreamRequests.WithLabelValues(string(endpoint), outcomeMalformed).Inc()
		return nil, malformed(endpoint, "response is not valid JSON", nil)
	}

	metrics.UpstreamRequests.WithLabelValues(string(endpoint), outcomeOK).Inc()
	r.logger.Debug("stats api request", "endpoint", endpoint, "id", id, "duration", time.Since(start))
	return json.RawMessage(body), nil
}

func (r *HTTPStatsRepository) ApartmentStats(ctx context.Context, id string, window models.DateWindow) (models.ApartmentStats, error) {
	return fetchAs[models.ApartmentStats](ctx, r, EndpointApartmentStats, id, window)
}

func (r *HTTPStatsRepository) ApartmentDeviceStats(ctx context.Context, id string, window models.DateWindow) (models.ApartmentDeviceStats, error) {
	return fetchAs[models.ApartmentDeviceStats](ctx, r, EndpointApartmentDeviceStats, id, window, "manual", "automatic")
}

func (r *HTTPStatsRepository) Stats(ctx context.Context, id string, window models.DateWindow) (models.StatsResponse, error) {
	return fetchAs[models.StatsResponse](ctx, r, EndpointStats, id, window,
		"apartment_stats",
		"apartment_device_stats",
		"smallest_apartment_total_consumption",
		"largest_apartment_total_consumption",
		"smallest_apartment_device_consumption",
		"largest_apartment_device_consumption",
	)
}

func (r *HTTPStatsRepository) DeviceSpecificConsumption(ctx context.Context, window models.DateWindow) (models.DeviceFlowRecord, error) {
	record, err := fetchAs[models.DeviceFlowRecord](ctx, r, EndpointDeviceSpecific, "", window)
	if err != nil {
		return nil, err
	}
	if record == nil {
		record = models.DeviceFlowRecord{}
	}
	return record, nil
}

func (r *HTTPStatsRepository) AllStats(ctx context.Context, window models.DateWindow) (models.ApartmentStats, error) {
	return fetchAs[models.ApartmentStats](ctx, r, EndpointAllStats, "", window)
}

// fetchAs fetches endpoint and decodes it into T. required lists top-level
// keys that must be present for the payload to count as well formed.
func fetchAs[T any](ctx context.Context, r *HTTPStatsRepository, endpoint Endpoint, id string, window models.DateWindow, required ...string) (T, error) {
	var out T
	raw, err := r.Fetch(ctx, endpoint, id, window)
	if err != nil {
		return out, err
	}

	if len(required) > 0 {
		var keys map[string]json.RawMessage
		if err := json.Unmarshal(raw, &keys); err != nil {
			return out, r.malformed(endpoint, id, "expected a JSON object", err)
		}
		for _, key := range required {
			if _, ok := keys[key]; !ok {
				return out, r.malformed(endpoint, id, fmt.Sprintf("missing %q", key), models.ErrMissingField)
			}
		}
	}

	if err := json.Unmarshal(raw, &out); err != nil {
		return out, r.malformed(endpoint, id, err.Error(), err)
	}
	return out, nil
}

func (r *HTTPStatsRepository) malformed(endpoint Endpoint, id, reason string, err error) error {
	r.logger.Warn("stats api payload has wrong shape", "endpoint", endpoint, "id", id, "reason", reason)
	metrics.UpstreamRequests.WithLabelValues(string(endpoint), outcomeMalformed).Inc()
	return malformed(endpoint, reason, err)
}

func unavailable(endpoint Endpoint, reason string, err error) error {
	apiErr := models.NewAPIError(models.ErrorCodeUpstreamUnavailable,
		fmt.Sprintf("stats api %s unavailable: %s", endpoint, reason), nil, http.StatusBadGateway)
	apiErr.Err = err
	return apiErr
}

func malformed(endpoint Endpoint, reason string, err error) error {
	apiErr := models.NewAPIError(models.ErrorCodeMalformedResponse,
		fmt.Sprintf("stats api %s returned a malformed response: %s", endpoint, reason), nil, http.StatusBadGateway)
	apiErr.Err = err
	return apiErr
}

func truncate(s string) string {
	if len(s) <= maxLoggedBody {
		return s
	}
	return s[:maxLoggedBody] + "..."
}

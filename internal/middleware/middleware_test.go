package middleware

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CapIot.dashboard/internal/metrics"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestNewAuth_Disabled(t *testing.T) {
	auth, err := NewAuth(AuthConfig{}, discardLogger())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	auth(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/weekly", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNewAuth_RejectsMissingToken(t *testing.T) {
	auth, err := NewAuth(AuthConfig{Issuer: "https://tenant.example.com/", Audience: "dashboard"}, discardLogger())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	auth(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/weekly", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "unauthorized", body["code"])
}

func TestNewAuth_RejectsMalformedHeader(t *testing.T) {
	auth, err := NewAuth(AuthConfig{Issuer: "https://tenant.example.com/", Audience: "dashboard"}, discardLogger())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/weekly", nil)
	req.Header.Set("Authorization", "Basic abc")
	rec := httptest.NewRecorder()
	auth(okHandler).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestNewAuth_RequiresAudience(t *testing.T) {
	_, err := NewAuth(AuthConfig{Issuer: "https://tenant.example.com/"}, discardLogger())
	assert.Error(t, err)
}

func TestInstrument(t *testing.T) {
	router := mux.NewRouter()
	router.Use(Instrument(discardLogger()))
	router.HandleFunc("/charts/gauges/{kind}.svg", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	counter := metrics.RequestsTotal.WithLabelValues(http.MethodGet, "/charts/gauges/{kind}.svg", "418")
	before := testutil.ToFloat64(counter)

	for _, kind := range []string{"total", "manual"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/charts/gauges/"+kind+".svg", nil))
		assert.Equal(t, http.StatusTeapot, rec.Code)
	}

	assert.Equal(t, before+2, testutil.ToFloat64(counter))
}

func TestRouteTemplate_Unmatched(t *testing.T) {
	assert.Equal(t, "unmatched", routeTemplate(httptest.NewRequest(http.MethodGet, "/nowhere", nil)))
}

func TestRequestID(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFrom(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	_, err := uuid.Parse(seen)
	require.NoError(t, err)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", seen)
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, strings.Repeat("x", maxRequestIDLength+1))
	handler.ServeHTTP(httptest.NewRecorder(), req)
	_, err = uuid.Parse(seen)
	assert.NoError(t, err)
}

func TestRequestIDFrom_Missing(t *testing.T) {
	assert.Empty(t, RequestIDFrom(context.Background()))
}

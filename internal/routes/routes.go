package routes

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"CapIot.dashboard/internal/controller"
	"CapIot.dashboard/internal/middleware"
	"CapIot.dashboard/internal/models"
	"CapIot.dashboard/internal/utils"
)

// SetupRouter registers all application routes. auth guards the JSON API.
func SetupRouter(c *controller.DashboardController, auth func(http.Handler) http.Handler, logger *slog.Logger) *mux.Router {
	router := mux.NewRouter()
	router.Use(middleware.RequestID, middleware.Instrument(logger))

	// Pages
	router.HandleFunc("/", c.HandleGaugesPage).Methods(http.MethodGet)
	router.HandleFunc("/details", c.HandleDetailsPage).Methods(http.MethodGet)
	router.HandleFunc("/plumber", c.HandlePlumberPage).Methods(http.MethodGet)

	// JSON API, guarded by auth
	guard := func(h http.HandlerFunc) http.Handler {
		if auth == nil {
			return h
		}
		return auth(h)
	}
	router.Handle("/api/weekly", guard(c.HandleWeekly)).Methods(http.MethodGet)
	router.Handle("/api/gauges", guard(c.HandleGauges)).Methods(http.MethodGet)
	router.Handle("/api/tenant-table", guard(c.HandleTenantTable)).Methods(http.MethodGet)
	router.Handle("/api/building", guard(c.HandleBuilding)).Methods(http.MethodGet)

	// SVG charts
	router.HandleFunc("/charts/weekly.svg", c.HandleWeeklySVG).Methods(http.MethodGet)
	router.HandleFunc("/charts/gauges/{kind}.svg", c.HandleGaugeSVG).Methods(http.MethodGet)

	router.HandleFunc("/health", c.HandleHealth).Methods(http.MethodGet)
	router.Handle("/prometheus", promhttp.Handler()).Methods(http.MethodGet)

	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondWithError(w, models.NewAPIError(models.ErrorCodeMethodNotAllowed, "Method not allowed", nil, http.StatusMethodNotAllowed))
	})
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		utils.RespondWithError(w, models.NewAPIError(models.ErrorCodeNotFound, "No route for "+r.URL.Path, nil, http.StatusNotFound))
	})

	return router
}

package controller

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"CapIot.dashboard/internal/chart"
	"CapIot.dashboard/internal/gauge"
	"CapIot.dashboard/internal/metrics"
	"CapIot.dashboard/internal/middleware"
	"CapIot.dashboard/internal/models"
	"CapIot.dashboard/internal/service"
	"CapIot.dashboard/internal/table"
	"CapIot.dashboard/internal/utils"
)

// Canvas ids used by the pages.
const (
	CanvasTotal      = "consumptionTotal"
	CanvasShower     = "consumptionShower"
	CanvasAppliances = "consumptionAppliances"
	CanvasWeekly     = "chart"
)

var gaugeCanvases = map[models.ConsumptionKind]string{
	models.KindTotal:     CanvasTotal,
	models.KindManual:    CanvasShower,
	models.KindAutomatic: CanvasAppliances,
}

// Config carries the controller's request defaults and optional health
// probes.
type Config struct {
	ApartmentID string
	Logger      *slog.Logger
	// HealthChecks are probed by /health, keyed by dependency name.
	HealthChecks map[string]func(context.Context) error
}

// DashboardController serves the dashboard pages, their JSON datasets and
// SVG renderings.
type DashboardController struct {
	service      *service.DashboardService
	renderer     *table.Renderer
	apartmentID  string
	healthChecks map[string]func(context.Context) error
	logger       *slog.Logger
}

func NewDashboardController(svc *service.DashboardService, renderer *table.Renderer, cfg Config) *DashboardController {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &DashboardController{
		service:      svc,
		renderer:     renderer,
		apartmentID:  cfg.ApartmentID,
		healthChecks: cfg.HealthChecks,
		logger:       logger.With("component", "dashboard_controller"),
	}
}

type chartPanel struct {
	CanvasID    string
	Title       string
	Wide        bool
	Unavailable bool
	Message     string
}

type textPanel struct {
	Text        string
	Unavailable bool
	Message     string
}

type tablePanel struct {
	HTML        template.HTML
	Unavailable bool
	Message     string
}

type pageData struct {
	PageTitle string
	Heading   string
	Window    string
	Panels    []chartPanel
	Charts    []*chart.Instance
	Building  textPanel
	Table     tablePanel
}

// apartment returns the ?apartment= override or the configured default.
func (c *DashboardController) apartment(r *http.Request) string {
	if id := r.URL.Query().Get("apartment"); id != "" {
		return id
	}
	return c.apartmentID
}

func (c *DashboardController) windowText() string {
	w := c.service.ReportWindow()
	return fmt.Sprintf("%s to %s", w.Start.Format(models.DateLayout), w.End.AddDate(0, 0, -1).Format(models.DateLayout))
}

func (c *DashboardController) unavailablePanel(ctx context.Context, canvasID, title string, err error) chartPanel {
	c.logger.Warn("chart unavailable", "canvas", canvasID, "request_id", middleware.RequestIDFrom(ctx), "error", err)
	metrics.ChartRenderFailures.WithLabelValues(canvasID).Inc()
	return chartPanel{CanvasID: canvasID, Title: title, Unavailable: true, Message: UnavailableMessage}
}

// chartPanel binds cfg to canvasID on the page being rendered.
func (c *DashboardController) chartPanel(ctx context.Context, charts *chart.Registry, canvasID, title string, cfg chart.Config) chartPanel {
	if _, err := charts.Create(canvasID, cfg); err != nil {
		return c.unavailablePanel(ctx, canvasID, title, err)
	}
	return chartPanel{CanvasID: canvasID, Title: title}
}

// gaugePanels builds one panel per gauge; each fails on its own.
func (c *DashboardController) gaugePanels(ctx context.Context, charts *chart.Registry, apartmentID string) []chartPanel {
	results, err := c.service.Gauges(ctx, apartmentID)
	panels := make([]chartPanel, 0, len(service.GaugeKinds))
	for i, kind := range service.GaugeKinds {
		canvasID := gaugeCanvases[kind]
		if err != nil {
			panels = append(panels, c.unavailablePanel(ctx, canvasID, kind.Title(), err))
			continue
		}
		result := results[i]
		if result.Err != nil {
			panels = append(panels, c.unavailablePanel(ctx, canvasID, kind.Title(), result.Err))
			continue
		}
		cfg := chart.DoughnutConfig(result.Gauge.Segments, result.Gauge.Actual)
		panels = append(panels, c.chartPanel(ctx, charts, canvasID, kind.Title(), cfg))
	}
	return panels
}

// HandleGaugesPage serves the overview with the three gauges and the
// building total.
func (c *DashboardController) HandleGaugesPage(w http.ResponseWriter, r *http.Request) {
	charts := chart.NewRegistry()
	data := pageData{
		PageTitle: "Water consumption",
		Window:    c.windowText(),
		Panels:    c.gaugePanels(r.Context(), charts, c.apartment(r)),
		Charts:    charts.Instances(),
	}

	totals, err := c.service.BuildingTotals(r.Context())
	if err != nil {
		data.Building = textPanel{Unavailable: true, Message: UnavailableMessage}
	} else {
		data.Building = textPanel{Text: chart.GaugeTitle(totals.TotalConsumption)}
	}

	c.renderPage(w, gaugesPage, data)
}

// HandleDetailsPage serves the weekly bar chart for the kind in ?q=.
func (c *DashboardController) HandleDetailsPage(w http.ResponseWriter, r *http.Request) {
	kind := models.ParseKind(r.URL.Query().Get("q"))
	heading := fmt.Sprintf("%s consumption details 💧", kind.Title())

	charts := chart.NewRegistry()
	var panel chartPanel
	weekly, err := c.service.WeeklyConsumption(r.Context(), kind, c.apartment(r))
	if err != nil {
		panel = c.unavailablePanel(r.Context(), CanvasWeekly, chart.DailyDatasetLabel, err)
	} else {
		panel = c.chartPanel(r.Context(), charts, CanvasWeekly, chart.DailyDatasetLabel, chart.BarConfig(weekly.Labels, weekly.Liters))
	}
	panel.Wide = true

	c.renderPage(w, detailsPage, pageData{
		PageTitle: heading,
		Heading:   heading,
		Window:    fmt.Sprintf("Last %d days", service.WeekDays),
		Panels:    []chartPanel{panel},
		Charts:    charts.Instances(),
	})
}

// HandlePlumberPage serves the tenant device table.
func (c *DashboardController) HandlePlumberPage(w http.ResponseWriter, r *http.Request) {
	data := pageData{PageTitle: "Plumber view", Window: c.windowText()}

	record, err := c.service.TenantTable(r.Context())
	if err == nil {
		var out string
		out, err = c.renderer.RenderHTML(record)
		if err == nil {
			// The renderer escapes every text node.
			data.Table = tablePanel{HTML: template.HTML(out)}
		}
	}
	if err != nil {
		c.logger.Warn("tenant table unavailable", "error", err)
		metrics.ChartRenderFailures.WithLabelValues(table.ClassName).Inc()
		data.Table = tablePanel{Unavailable: true, Message: UnavailableMessage}
	}

	c.renderPage(w, plumberPage, data)
}

func (c *DashboardController) renderPage(w http.ResponseWriter, tmpl *template.Template, data pageData) {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		c.logger.Error("failed to render page", "error", err)
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

type weeklyResponse struct {
	service.WeeklyConsumption
	Chart chart.Config `json:"chart"`
}

// HandleWeekly returns the weekly dataset for ?q= and its chart config.
func (c *DashboardController) HandleWeekly(w http.ResponseWriter, r *http.Request) {
	kind := models.ParseKind(r.URL.Query().Get("q"))
	weekly, err := c.service.WeeklyConsumption(r.Context(), kind, c.apartment(r))
	if err != nil {
		utils.RespondWithError(w, models.AsAPIError(err))
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, weeklyResponse{
		WeeklyConsumption: weekly,
		Chart:             chart.BarConfig(weekly.Labels, weekly.Liters),
	})
}

type gaugeResponse struct {
	Kind       models.ConsumptionKind `json:"kind"`
	Title      string                 `json:"title"`
	CanvasID   string                 `json:"canvas_id"`
	Comparison models.Comparison      `json:"comparison"`
	Gauge      *gauge.Gauge           `json:"gauge,omitempty"`
	Chart      *chart.Config          `json:"chart,omitempty"`
	Error      *models.APIError       `json:"error,omitempty"`
}

// HandleGauges returns every gauge. A gauge that failed on its own carries
// an error instead of a chart.
func (c *DashboardController) HandleGauges(w http.ResponseWriter, r *http.Request) {
	results, err := c.service.Gauges(r.Context(), c.apartment(r))
	if err != nil {
		utils.RespondWithError(w, models.AsAPIError(err))
		return
	}

	out := make([]gaugeResponse, 0, len(results))
	for _, result := range results {
		resp := gaugeResponse{
			Kind:       result.Kind,
			Title:      result.Title,
			CanvasID:   gaugeCanvases[result.Kind],
			Comparison: result.Comparison,
		}
		if result.Err != nil {
			apiErr := models.AsAPIError(result.Err)
			resp.Error = &apiErr
		} else {
			g := result.Gauge
			cfg := chart.DoughnutConfig(g.Segments, g.Actual)
			resp.Gauge = &g
			resp.Chart = &cfg
		}
		out = append(out, resp)
	}
	utils.RespondWithJSON(w, http.StatusOK, out)
}

type tenantTableResponse struct {
	Window models.DateWindow       `json:"window"`
	Header []string                `json:"header"`
	Rows   [][]string              `json:"rows"`
	Record models.DeviceFlowRecord `json:"record"`
}

func (c *DashboardController) HandleTenantTable(w http.ResponseWriter, r *http.Request) {
	record, err := c.service.TenantTable(r.Context())
	if err != nil {
		utils.RespondWithError(w, models.AsAPIError(err))
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, tenantTableResponse{
		Window: c.service.ReportWindow(),
		Header: table.Header(),
		Rows:   c.renderer.Rows(record),
		Record: record,
	})
}

type buildingResponse struct {
	Window models.DateWindow     `json:"window"`
	Stats  models.ApartmentStats `json:"stats"`
}

func (c *DashboardController) HandleBuilding(w http.ResponseWriter, r *http.Request) {
	stats, err := c.service.BuildingTotals(r.Context())
	if err != nil {
		utils.RespondWithError(w, models.AsAPIError(err))
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, buildingResponse{Window: c.service.ReportWindow(), Stats: stats})
}

// HandleWeeklySVG renders the weekly bar chart for ?q= as SVG.
func (c *DashboardController) HandleWeeklySVG(w http.ResponseWriter, r *http.Request) {
	kind := models.ParseKind(r.URL.Query().Get("q"))
	weekly, err := c.service.WeeklyConsumption(r.Context(), kind, c.apartment(r))
	if err != nil {
		utils.RespondWithError(w, models.AsAPIError(err))
		return
	}

	var buf bytes.Buffer
	if err := chart.RenderBarSVG(&buf, weekly.Labels, weekly.Liters); err != nil {
		c.svgFailure(w, "weekly_svg", err)
		return
	}
	writeSVG(w, &buf)
}

// HandleGaugeSVG renders the gauge named by the {kind} path variable.
func (c *DashboardController) HandleGaugeSVG(w http.ResponseWriter, r *http.Request) {
	kind := models.ConsumptionKind(mux.Vars(r)["kind"])
	if _, ok := gaugeCanvases[kind]; !ok {
		utils.RespondWithError(w, models.NewAPIError(models.ErrorCodeNotFound,
			fmt.Sprintf("unknown gauge %q", kind), nil, http.StatusNotFound))
		return
	}

	results, err := c.service.Gauges(r.Context(), c.apartment(r))
	if err != nil {
		utils.RespondWithError(w, models.AsAPIError(err))
		return
	}
	for _, result := range results {
		if result.Kind != kind {
			continue
		}
		if result.Err != nil {
			utils.RespondWithError(w, models.AsAPIError(result.Err))
			return
		}
		var buf bytes.Buffer
		if err := chart.RenderGaugeSVG(&buf, result.Gauge.Segments, result.Gauge.Actual); err != nil {
			c.svgFailure(w, "gauge_svg_"+string(kind), err)
			return
		}
		writeSVG(w, &buf)
		return
	}
	utils.RespondWithError(w, models.NewAPIError(models.ErrorCodeNotFound,
		fmt.Sprintf("gauge %q not available", kind), nil, http.StatusNotFound))
}

func (c *DashboardController) svgFailure(w http.ResponseWriter, name string, err error) {
	c.logger.Error("failed to render svg", "chart", name, "error", err)
	metrics.ChartRenderFailures.WithLabelValues(name).Inc()
	utils.RespondWithError(w, models.NewAPIError(models.ErrorCodeInternalServerError,
		"Failed to render chart", nil, http.StatusInternalServerError))
}

func writeSVG(w http.ResponseWriter, buf *bytes.Buffer) {
	w.Header().Set("Content-Type", "image/svg+xml")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// HandleHealth reports "ok" plus the state of each configured dependency.
func (c *DashboardController) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	body := map[string]string{"status": "ok"}
	for name, check := range c.healthChecks {
		if err := check(r.Context()); err != nil {
			c.logger.Warn("health check failed", "dependency", name, "error", err)
			body[name] = err.Error()
			body["status"] = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		body[name] = "ok"
	}
	utils.RespondWithJSON(w, status, body)
}

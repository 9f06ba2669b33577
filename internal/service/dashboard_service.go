package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"CapIot.dashboard/internal/chart"
	"CapIot.dashboard/internal/gauge"
	"CapIot.dashboard/internal/models"
	"CapIot.dashboard/internal/repository"
)

const (
	// WeekDays is the number of bars on the weekly chart.
	WeekDays = 7
	// ReportDays is the length of the window used by gauges, the tenant
	// table and the building totals.
	ReportDays = 7

	DefaultConcurrency = 4
)

// GaugeKinds is the order gauges are shown in.
var GaugeKinds = []models.ConsumptionKind{models.KindTotal, models.KindManual, models.KindAutomatic}

// Options configures a DashboardService. Zero values get sensible defaults.
type Options struct {
	Clock       Clock
	Recorder    repository.SnapshotRecorder
	Concurrency int
	Logger      *slog.Logger
}

// DashboardService turns stats API responses into the datasets the
// dashboard displays.
type DashboardService struct {
	repo        repository.StatsRepository
	clock       Clock
	recorder    repository.SnapshotRecorder
	concurrency int
	logger      *slog.Logger
}

func NewDashboardService(repo repository.StatsRepository, opts Options) *DashboardService {
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}
	if opts.Recorder == nil {
		opts.Recorder = repository.NopRecorder{}
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &DashboardService{
		repo:        repo,
		clock:       opts.Clock,
		recorder:    opts.Recorder,
		concurrency: opts.Concurrency,
		logger:      opts.Logger.With("component", "dashboard_service"),
	}
}

// Today is the clock's current time.
func (s *DashboardService) Today() time.Time {
	return s.clock.Now()
}

// LastWeek returns the seven days before today's, oldest first, each at
// midnight.
func LastWeek(today time.Time) []time.Time {
	start := models.StartOfDay(today)
	days := make([]time.Time, WeekDays)
	for i := range days {
		days[i] = start.AddDate(0, 0, i-WeekDays)
	}
	return days
}

// ReportWindow covers the days before today used by the gauges and tables.
func (s *DashboardService) ReportWindow() models.DateWindow {
	return models.TrailingWindow(s.clock.Now(), ReportDays)
}

// WeeklyConsumption is the dataset behind the bar chart.
type WeeklyConsumption struct {
	ApartmentID string                 `json:"apartment_id"`
	Kind        models.ConsumptionKind `json:"kind"`
	Title       string                 `json:"title"`
	Days        []time.Time            `json:"days"`
	Labels      []string               `json:"labels"`
	Liters      []float64              `json:"liters"`
}

// WeeklyConsumption fetches one total per day for the last week. Days are
// fetched in parallel; any failed day fails the whole chart.
func (s *DashboardService) WeeklyConsumption(ctx context.Context, kind models.ConsumptionKind, apartmentID string) (WeeklyConsumption, error) {
	days := LastWeek(s.clock.Now())
	liters := make([]float64, len(days))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, day := range days {
		g.Go(func() error {
			v, err := s.dailyTotal(gctx, kind, apartmentID, models.DayWindow(day))
			if err != nil {
				return fmt.Errorf("consumption on %s: %w", day.Format(models.DateLayout), err)
			}
			liters[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Warn("weekly consumption failed", "apartment_id", apartmentID, "kind", kind, "error", err)
		return WeeklyConsumption{}, err
	}

	if err := s.recorder.RecordDailyTotals(ctx, apartmentID, kind, days, liters); err != nil {
		s.logger.Warn("recording daily totals failed", "apartment_id", apartmentID, "error", err)
	}

	return WeeklyConsumption{
		ApartmentID: apartmentID,
		Kind:        kind,
		Title:       kind.Title(),
		Days:        days,
		Labels:      chart.WeekdayLabels(days),
		Liters:      liters,
	}, nil
}

func (s *DashboardService) dailyTotal(ctx context.Context, kind models.ConsumptionKind, apartmentID string, window models.DateWindow) (float64, error) {
	if kind == models.KindTotal {
		stats, err := s.repo.ApartmentStats(ctx, apartmentID, window)
		if err != nil {
			return 0, err
		}
		return stats.TotalConsumption, nil
	}
	stats, err := s.repo.ApartmentDeviceStats(ctx, apartmentID, window)
	if err != nil {
		return 0, err
	}
	return stats.ForKind(kind).TotalConsumption, nil
}

// GaugeResult is one gauge panel. Err is set when only this gauge failed.
type GaugeResult struct {
	Kind       models.ConsumptionKind `json:"kind"`
	Title      string                 `json:"title"`
	Comparison models.Comparison      `json:"comparison"`
	Gauge      gauge.Gauge            `json:"gauge"`
	Err        error                  `json:"-"`
}

// Gauges places the apartment against the cohort for each gauge kind.
// The error is non-nil only when the stats request itself failed.
func (s *DashboardService) Gauges(ctx context.Context, apartmentID string) ([]GaugeResult, error) {
	now := s.clock.Now()
	stats, err := s.repo.Stats(ctx, apartmentID, models.TrailingWindow(now, ReportDays))
	if err != nil {
		s.logger.Warn("gauge stats failed", "apartment_id", apartmentID, "error", err)
		return nil, err
	}

	results := make([]GaugeResult, 0, len(GaugeKinds))
	for _, kind := range GaugeKinds {
		cmp := stats.Compare(kind)
		result := GaugeResult{Kind: kind, Title: kind.Title(), Comparison: cmp}

		g, err := gauge.New(cmp.Actual, cmp.Smallest, cmp.Largest)
		if err != nil {
			s.logger.Warn("gauge could not be built", "kind", kind, "error", err)
			result.Err = err
			results = append(results, result)
			continue
		}
		result.Gauge = g

		if err := s.recorder.RecordGauge(ctx, apartmentID, kind, g.Actual, g.Position, now); err != nil {
			s.logger.Warn("recording gauge failed", "kind", kind, "error", err)
		}
		results = append(results, result)
	}
	return results, nil
}

// TenantTable returns per-device flow shares for every apartment.
func (s *DashboardService) TenantTable(ctx context.Context) (models.DeviceFlowRecord, error) {
	record, err := s.repo.DeviceSpecificConsumption(ctx, s.ReportWindow())
	if err != nil {
		s.logger.Warn("tenant table failed", "error", err)
		return nil, err
	}
	return record, nil
}

// BuildingTotals returns the whole building's consumption.
func (s *DashboardService) BuildingTotals(ctx context.Context) (models.ApartmentStats, error) {
	stats, err := s.repo.AllStats(ctx, s.ReportWindow())
	if err != nil {
		s.logger.Warn("building totals failed", "error", err)
		return models.ApartmentStats{}, err
	}
	return stats, nil
}

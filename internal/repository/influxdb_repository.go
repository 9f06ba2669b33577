package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"CapIot.dashboard/internal/metrics"
	"CapIot.dashboard/internal/models"
)

const (
	MeasurementDailyConsumption = "daily_consumption"
	MeasurementGaugePosition    = "gauge_position"
)

// SnapshotRecorder keeps a history of what the dashboard displayed.
type SnapshotRecorder interface {
	RecordDailyTotals(ctx context.Context, apartmentID string, kind models.ConsumptionKind, days []time.Time, liters []float64) error
	RecordGauge(ctx context.Context, apartmentID string, kind models.ConsumptionKind, actual, position float64, at time.Time) error
	Close()
}

// NopRecorder is used when no InfluxDB is configured.
type NopRecorder struct{}

func (NopRecorder) RecordDailyTotals(context.Context, string, models.ConsumptionKind, []time.Time, []float64) error {
	return nil
}

func (NopRecorder) RecordGauge(context.Context, string, models.ConsumptionKind, float64, float64, time.Time) error {
	return nil
}

func (NopRecorder) Close() {}

// InfluxDBRepository writes dashboard snapshots to one InfluxDB bucket.
type InfluxDBRepository struct {
	client influxdb2.Client
	org    string
	bucket string
	logger *slog.Logger
}

// NewInfluxDBRepository creates a new InfluxDBRepository.
func NewInfluxDBRepository(url, token, org, bucket string, logger *slog.Logger) *InfluxDBRepository {
	return &InfluxDBRepository{
		client: influxdb2.NewClient(url, token),
		org:    org,
		bucket: bucket,
		logger: logger.With("component", "influxdb_repository"),
	}
}

// Ping checks that the server answers.
func (r *InfluxDBRepository) Ping(ctx context.Context) error {
	ok, err := r.client.Ping(ctx)
	if err != nil {
		return fmt.Errorf("ping influxdb: %w", err)
	}
	if !ok {
		return errors.New("influxdb is not ready")
	}
	return nil
}

// EnsureBucket creates the snapshot bucket in the organization if it does
// not exist yet.
func (r *InfluxDBRepository) EnsureBucket(ctx context.Context) error {
	bucketsAPI := r.client.BucketsAPI()
	if _, err := bucketsAPI.FindBucketByName(ctx, r.bucket); err == nil {
		return nil
	}

	org, err := r.client.OrganizationsAPI().FindOrganizationByName(ctx, r.org)
	if err != nil {
		return fmt.Errorf("find organization %q: %w", r.org, err)
	}
	if org == nil {
		return fmt.Errorf("organization %q not found", r.org)
	}

	if _, err := bucketsAPI.CreateBucketWithName(ctx, org, r.bucket); err != nil {
		return fmt.Errorf("create bucket %q: %w", r.bucket, err)
	}
	r.logger.Info("created snapshot bucket", "bucket", r.bucket, "org", r.org)
	return nil
}

func (r *InfluxDBRepository) RecordDailyTotals(ctx context.Context, apartmentID string, kind models.ConsumptionKind, days []time.Time, liters []float64) error {
	points, err := DailyTotalPoints(apartmentID, kind, days, liters)
	if err != nil {
		return err
	}
	return r.write(ctx, MeasurementDailyConsumption, points...)
}

func (r *InfluxDBRepository) RecordGauge(ctx context.Context, apartmentID string, kind models.ConsumptionKind, actual, position float64, at time.Time) error {
	return r.write(ctx, MeasurementGaugePosition, GaugePoint(apartmentID, kind, actual, position, at))
}

func (r *InfluxDBRepository) write(ctx context.Context, measurement string, points ...*write.Point) error {
	if len(points) == 0 {
		return nil
	}
	writeAPI := r.client.WriteAPIBlocking(r.org, r.bucket)
	if err := writeAPI.WritePoint(ctx, points...); err != nil {
		metrics.SnapshotWrites.WithLabelValues(measurement, "error").Inc()
		return fmt.Errorf("error writing %s to InfluxDB: %w", measurement, err)
	}
	metrics.SnapshotWrites.WithLabelValues(measurement, "success").Inc()
	r.logger.Debug("snapshot written", "measurement", measurement, "points", len(points))
	return nil
}

func (r *InfluxDBRepository) Close() {
	r.client.Close()
}

// DailyTotalPoints builds one point per day, timestamped at the start of
// that day.
func DailyTotalPoints(apartmentID string, kind models.ConsumptionKind, days []time.Time, liters []float64) ([]*write.Point, error) {
	if len(days) != len(liters) {
		return nil, fmt.Errorf("daily totals: %d days for %d values", len(days), len(liters))
	}
	points := make([]*write.Point, len(days))
	for i, day := range days {
		points[i] = influxdb2.NewPoint(
			MeasurementDailyConsumption,
			map[string]string{"apartment_id": apartmentID, "kind": string(kind)},
			map[string]interface{}{"liters": liters[i]},
			models.StartOfDay(day),
		)
	}
	return points, nil
}

func GaugePoint(apartmentID string, kind models.ConsumptionKind, actual, position float64, at time.Time) *write.Point {
	return influxdb2.NewPoint(
		MeasurementGaugePosition,
		map[string]string{"apartment_id": apartmentID, "kind": string(kind)},
		map[string]interface{}{"actual": actual, "position": position},
		at,
	)
}

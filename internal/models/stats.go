package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMissingField is returned when a stats payload lacks a required key.
var ErrMissingField = errors.New("missing required field")

// ApartmentStats is the aggregate the stats API returns for one apartment,
// one device class or the whole building over a date window.
type ApartmentStats struct {
	MeasurementCount int64   `json:"measurement_count,omitempty"`
	TotalConsumption float64 `json:"total_consumption"`
	AverageTemp      float64 `json:"average_temp,omitempty"`
	TotalFlowTime    float64 `json:"total_flow_time,omitempty"`
	TotalPower       float64 `json:"total_power_consumption,omitempty"`
}

// UnmarshalJSON rejects objects without total_consumption. A null total is
// what the API sends for a window without measurements and decodes as 0.
func (s *ApartmentStats) UnmarshalJSON(data []byte) error {
	type plain ApartmentStats
	var probe struct {
		plain
		Total json.RawMessage `json:"total_consumption"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	if len(probe.Total) == 0 {
		return fmt.Errorf("%w: total_consumption", ErrMissingField)
	}

	*s = ApartmentStats(probe.plain)
	s.TotalConsumption = 0
	if string(probe.Total) != "null" {
		if err := json.Unmarshal(probe.Total, &s.TotalConsumption); err != nil {
			return fmt.Errorf("total_consumption: %w", err)
		}
	}
	return nil
}

// ApartmentDeviceStats splits consumption into manually operated devices
// (shower, faucets) and automatic ones (washing machine, dishwasher).
type ApartmentDeviceStats struct {
	Manual    ApartmentStats `json:"manual"`
	Automatic ApartmentStats `json:"automatic"`
}

// ForKind picks the aggregate shown for kind. KindTotal has no device
// split, so it falls back to the sum of both classes.
func (s ApartmentDeviceStats) ForKind(kind ConsumptionKind) ApartmentStats {
	switch kind {
	case KindManual:
		return s.Manual
	case KindAutomatic:
		return s.Automatic
	default:
		return ApartmentStats{
			MeasurementCount: s.Manual.MeasurementCount + s.Automatic.MeasurementCount,
			TotalConsumption: s.Manual.TotalConsumption + s.Automatic.TotalConsumption,
		}
	}
}

// StatsResponse is the /stats/{id} payload: the subject apartment plus the
// cohort comparators used to place it on a gauge.
type StatsResponse struct {
	ApartmentStats                     ApartmentStats       `json:"apartment_stats"`
	ApartmentDeviceStats               ApartmentDeviceStats `json:"apartment_device_stats"`
	SmallestApartmentTotalConsumption  ApartmentStats       `json:"smallest_apartment_total_consumption"`
	LargestApartmentTotalConsumption   ApartmentStats       `json:"largest_apartment_total_consumption"`
	SmallestApartmentDeviceConsumption ApartmentDeviceStats `json:"smallest_apartment_device_consumption"`
	LargestApartmentDeviceConsumption  ApartmentDeviceStats `json:"largest_apartment_device_consumption"`
}

// Comparison is one subject value with the cohort minimum and maximum.
type Comparison struct {
	Actual   float64
	Smallest float64
	Largest  float64
}

// Compare extracts the comparison for a gauge of the given kind.
func (s StatsResponse) Compare(kind ConsumptionKind) Comparison {
	switch kind {
	case KindManual, KindAutomatic:
		return Comparison{
			Actual:   s.ApartmentDeviceStats.ForKind(kind).TotalConsumption,
			Smallest: s.SmallestApartmentDeviceConsumption.ForKind(kind).TotalConsumption,
			Largest:  s.LargestApartmentDeviceConsumption.ForKind(kind).TotalConsumption,
		}
	default:
		return Comparison{
			Actual:   s.ApartmentStats.TotalConsumption,
			Smallest: s.SmallestApartmentTotalConsumption.TotalConsumption,
			Largest:  s.LargestApartmentTotalConsumption.TotalConsumption,
		}
	}
}

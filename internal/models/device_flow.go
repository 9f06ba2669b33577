package models

import (
	"sort"
	"strconv"
)

// DeviceFlow is the per-device entry of /device_specific_consumption.
type DeviceFlow struct {
	FlowPercentage float64 `json:"flow_percentage"`
}

// DeviceFlowRecord maps apartment id -> device name -> flow stats.
type DeviceFlowRecord map[string]map[string]DeviceFlow

// ApartmentIDs returns the record's keys with numeric ids first in numeric
// order, then any other ids lexicographically.
func (r DeviceFlowRecord) ApartmentIDs() []string {
	ids := make([]string, 0, len(r))
	for id := range r {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, errA := strconv.Atoi(ids[i])
		b, errB := strconv.Atoi(ids[j])
		switch {
		case errA == nil && errB == nil:
			return a < b
		case errA == nil:
			return true
		case errB == nil:
			return false
		default:
			return ids[i] < ids[j]
		}
	})
	return ids
}

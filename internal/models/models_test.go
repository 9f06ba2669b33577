package models

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApartmentStats_UnmarshalJSON(t *testing.T) {
	var stats ApartmentStats
	require.NoError(t, json.Unmarshal([]byte(`{"total_consumption": 12.5, "measurement_count": 3}`), &stats))
	assert.Equal(t, 12.5, stats.TotalConsumption)
	assert.Equal(t, int64(3), stats.MeasurementCount)
}

func TestApartmentStats_UnmarshalJSON_NullTotal(t *testing.T) {
	var stats ApartmentStats
	require.NoError(t, json.Unmarshal([]byte(`{"total_consumption": null}`), &stats))
	assert.Zero(t, stats.TotalConsumption)
}

func TestApartmentStats_UnmarshalJSON_MissingTotal(t *testing.T) {
	var stats ApartmentStats
	err := json.Unmarshal([]byte(`{"measurement_count": 3}`), &stats)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingField))
}

func TestStatsResponse_Compare(t *testing.T) {
	raw := `{
		"apartment_stats": {"total_consumption": 50},
		"apartment_device_stats": {"manual": {"total_consumption": 30}, "automatic": {"total_consumption": 20}},
		"smallest_apartment_total_consumption": {"total_consumption": 10},
		"largest_apartment_total_consumption": {"total_consumption": 90},
		"smallest_apartment_device_consumption": {"manual": {"total_consumption": 5}, "automatic": {"total_consumption": 2}},
		"largest_apartment_device_consumption": {"manual": {"total_consumption": 60}, "automatic": {"total_consumption": 40}}
	}`
	var stats StatsResponse
	require.NoError(t, json.Unmarshal([]byte(raw), &stats))

	assert.Equal(t, Comparison{Actual: 50, Smallest: 10, Largest: 90}, stats.Compare(KindTotal))
	assert.Equal(t, Comparison{Actual: 30, Smallest: 5, Largest: 60}, stats.Compare(KindManual))
	assert.Equal(t, Comparison{Actual: 20, Smallest: 2, Largest: 40}, stats.Compare(KindAutomatic))
}

func TestParseKind(t *testing.T) {
	cases := map[string]struct {
		kind  ConsumptionKind
		title string
	}{
		"manual":    {KindManual, "Shower and faucet"},
		"automatic": {KindAutomatic, "Appliance"},
		"":          {KindTotal, "Total"},
		"other":     {KindTotal, "Total"},
	}
	for q, want := range cases {
		kind := ParseKind(q)
		assert.Equal(t, want.kind, kind, q)
		assert.Equal(t, want.title, kind.Title(), q)
	}
}

func TestDateWindow_QueryParams(t *testing.T) {
	day := time.Date(2020, 3, 14, 17, 30, 0, 0, time.UTC)

	assert.Equal(t, map[string]string{"start": "2020-03-14", "end": "2020-03-15"}, DayWindow(day).QueryParams())
	assert.Equal(t, map[string]string{"start": "2020-03-07", "end": "2020-03-14"}, TrailingWindow(day, 7).QueryParams())

	partial := DateWindow{Start: day, End: day.Add(time.Hour)}
	assert.Equal(t, map[string]string{"start": "2020-03-14 17:30:00", "end": "2020-03-14 18:30:00"}, partial.QueryParams())
}

func TestDeviceFlowRecord_ApartmentIDs(t *testing.T) {
	record := DeviceFlowRecord{"10": nil, "2": nil, "b": nil, "1": nil, "a": nil}
	assert.Equal(t, []string{"1", "2", "10", "a", "b"}, record.ApartmentIDs())
}

func TestAsAPIError(t *testing.T) {
	apiErr := NewAPIError(ErrorCodeMalformedResponse, "bad body", nil, http.StatusBadGateway)
	wrapped := errors.Join(errors.New("context"), apiErr)

	got := AsAPIError(wrapped)
	assert.Equal(t, ErrorCodeMalformedResponse, got.Code)
	assert.True(t, IsUpstreamFailure(wrapped))

	plain := AsAPIError(errors.New("boom"))
	assert.Equal(t, ErrorCodeInternalServerError, plain.Code)
	assert.Equal(t, http.StatusInternalServerError, plain.StatusCode)
	assert.False(t, IsUpstreamFailure(errors.New("boom")))
}

package validation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pinzun/simula-ameba/internal/models"
)

var (
	start = time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	end   = time.Date(2031, 1, 1, 0, 0, 0, 0, time.UTC)
)

func ptr(v float64) *float64 { return &v }

func TestRow(t *testing.T) {
	tests := []struct {
		name    string
		row     interface{}
		wantErr string
	}{
		{
			name: "valid generator",
			row:  &models.HydroGeneratorRow{Name: "U1", StartTime: start, EndTime: end, Pmax: 10},
		},
		{
			name:    "missing name",
			row:     &models.DamRow{StartTime: start, EndTime: end},
			wantErr: "[Test] row 3: field is required",
		},
		{
			name:    "negative pmax",
			row:     &models.HydroGeneratorRow{Name: "U1", StartTime: start, EndTime: end, Pmax: -1},
			wantErr: "must be at least 0",
		},
		{
			name:    "end before start",
			row:     &models.HydroNodeRow{Name: "J1", StartTime: end, EndTime: start},
			wantErr: "must be after StartTime",
		},
		{
			name:    "negative stage",
			row:     &models.HourRecord{Stage: -1, Block: 1, Time: start},
			wantErr: "must be at least 0",
		},
		{
			name:    "nil row",
			row:     nil,
			wantErr: "row cannot be nil",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Row("Test", 3, tt.row)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRow_ReturnsValidationError(t *testing.T) {
	err := Row("Dam", 7, &models.DamRow{StartTime: start, EndTime: end})
	require.Error(t, err)

	var ve *models.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "Name", ve.Field)
	assert.False(t, ve.IsTransient())
}

func TestRows(t *testing.T) {
	records := []models.SeriesRecord{
		{Name: "Afl_A", Time: start, Value: 1},
		{Name: "", Time: start, Value: 2},
	}
	err := Rows("InflowSeries", records)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 2")

	assert.NoError(t, Rows("InflowSeries", records[:1]))
	assert.NoError(t, Rows("InflowSeries", []models.SeriesRecord(nil)))
	assert.Error(t, Rows("InflowSeries", "not a slice"))
}

func TestHydroGroups(t *testing.T) {
	tests := []struct {
		name    string
		groups  []models.HydroGroupRow
		wantErr string
	}{
		{
			name: "valid",
			groups: []models.HydroGroupRow{
				{Name: "HG_A", StartTime: start, EndTime: end, SetpointMin: 0},
				{Name: "HG_B", StartTime: start, EndTime: end, SetpointMin: 1, SetpointMax: ptr(1)},
			},
		},
		{
			name: "window checked first",
			groups: []models.HydroGroupRow{
				{Name: "HG_B", StartTime: end, EndTime: start, SetpointMin: -1},
				{Name: "HG_A", StartTime: start, EndTime: start},
			},
			wantErr: "[HydroGroup] end_time <= start_time: HG_A, HG_B",
		},
		{
			name: "negative minimum",
			groups: []models.HydroGroupRow{
				{Name: "HG_A", StartTime: start, EndTime: end, SetpointMin: -0.5},
			},
			wantErr: "hg_sp_min must not be negative: HG_A",
		},
		{
			name: "minimum above maximum",
			groups: []models.HydroGroupRow{
				{Name: "HG_A", StartTime: start, EndTime: end, SetpointMin: 3, SetpointMax: ptr(2)},
			},
			wantErr: "hg_sp_min > hg_sp_max: HG_A",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := HydroGroups(tt.groups)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNamesError(t *testing.T) {
	names := []string{"b", "a"}
	err := NamesError("HydroNode", "end_time", "end_time <= start_time", names)

	var ve *models.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "end_time", ve.Field)
	assert.Equal(t, "a,b", ve.Value)
	assert.Equal(t, "[HydroNode] end_time <= start_time: a, b", ve.Message)
	assert.Equal(t, []string{"b", "a"}, names)
}

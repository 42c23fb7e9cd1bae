package repository

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pinzun/simula-ameba/internal/models"
)

func TestForEachRow(t *testing.T) {
	rows := []models.DamRow{{Name: "Emb_A"}, {Name: "Emb_B"}}

	var names []string
	err := forEachRow(rows, func(row interface{}) error {
		names = append(names, row.(models.DamRow).Name)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Emb_A", "Emb_B"}, names)

	stop := errors.New("stop")
	calls := 0
	err = forEachRow(rows, func(interface{}) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)

	assert.Error(t, forEachRow(models.DamRow{}, func(interface{}) error { return nil }))
}

func TestSourceRepository_Validate(t *testing.T) {
	from := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(1, 0, 0)
	r := &sourceRepository{}

	tests := []struct {
		name    string
		src     *models.Sources
		wantErr string
	}{
		{
			name: "valid",
			src: &models.Sources{
				Dams:  []models.DamRow{{Name: "Emb_A", StartTime: from, EndTime: to}},
				Nodes: []models.HydroNodeRow{{Name: "J1", StartTime: from, EndTime: to}},
			},
		},
		{
			name:    "missing dam name",
			src:     &models.Sources{Dams: []models.DamRow{{StartTime: from, EndTime: to}}},
			wantErr: "[Dam]",
		},
		{
			name:    "node ends before start",
			src:     &models.Sources{Nodes: []models.HydroNodeRow{{Name: "J1", StartTime: to, EndTime: from}}},
			wantErr: "[HydroNode]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.validate(tt.src)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

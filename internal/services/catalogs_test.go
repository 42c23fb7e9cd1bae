package services

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pinzun/simula-ameba/internal/models"
)

func TestBuildReservoirCatalog(t *testing.T) {
	dams := []models.DamRow{
		{Name: "Emb_A", Vmax: 100, Vmin: 10, Vini: 50, Vend: 40, Scale: 1.5, ValOverflow: 7, NonPhysicalInflow: true, NonPhysicalInflowPenalty: 3},
		{Name: "Emb_B", Vmax: 20},
	}

	cat := BuildReservoirCatalog(dams, 0.9)

	assert.Equal(t, []string{"Emb_A", "Emb_B"}, cat.Names)
	assert.Equal(t, 100.0, cat.Vmax["Emb_A"])
	assert.Equal(t, 10.0, cat.Vmin["Emb_A"])
	assert.Equal(t, 50.0, cat.Vini["Emb_A"])
	assert.Equal(t, 40.0, cat.Vend["Emb_A"])
	assert.Equal(t, 0.9, cat.Kappa["Emb_B"])
	assert.Equal(t, 7.0, cat.OverflowValue["Emb_A"])
	assert.True(t, cat.AllowNonPhysical["Emb_A"])
	assert.Equal(t, 3.0, cat.PenaltyNonPhysical["Emb_A"])
	assert.Equal(t, 1.5, cat.ScaleFor("Emb_A"))
}

func TestBuildGeneratorsCatalog(t *testing.T) {
	units := []models.HydroGeneratorRow{
		{Name: "U1", HydroGroupName: "HG_A", Pmax: 10, Pmin: 1, Efficiency: 0.8},
		{Name: "U2", HydroGroupName: " HG_A ", Pmax: 5, Pmin: 0, Efficiency: 0.6},
		{Name: "U3", HydroGroupName: "", Pmax: 99},
		{Name: "U4", HydroGroupName: "Rapel", Pmax: 3, Efficiency: 0.9},
	}

	cat := BuildGeneratorsCatalog(units, "HG_")

	assert.Equal(t, []string{"HG_A", "Rapel"}, cat.Groups)
	assert.Equal(t, 15.0, cat.Pmax["HG_A"])
	assert.Equal(t, 1.0, cat.Pmin["HG_A"])
	assert.InDelta(t, 0.7, cat.Kappa["HG_A"], 1e-9)
	assert.InDelta(t, 0.9, cat.Kappa["Rapel"], 1e-9)
	assert.Equal(t, []string{"HG_A"}, cat.RunOfRiver)

	noPrefix := BuildGeneratorsCatalog(units, "")
	assert.Empty(t, noPrefix.RunOfRiver)
}

func TestBuildGroupsLimits(t *testing.T) {
	limits := BuildGroupsLimits([]models.HydroGroupRow{
		{Name: "HG_A", SetpointMin: 1},
		{Name: "HG_B", SetpointMin: 0, SetpointMax: fptr(30)},
	})

	assert.Equal(t, 1.0, limits.SetpointMin["HG_A"])
	assert.True(t, math.IsInf(limits.SetpointMax["HG_A"], 1))
	assert.Equal(t, 30.0, limits.SetpointMax["HG_B"])
	assert.True(t, limits.IsBounded("HG_B"))
}

func TestBalanceNodes(t *testing.T) {
	nodes := []models.HydroNodeRow{
		{Name: "J2", FormulateBal: true},
		{Name: "J1", FormulateBal: true},
		{Name: "J2", FormulateBal: true},
		{Name: "J3", FormulateBal: false},
	}
	assert.Equal(t, []string{"J1", "J2"}, BalanceNodes(nodes))
	assert.Equal(t, []string{}, BalanceNodes(nil))
}

func TestInflowMetadata(t *testing.T) {
	meta := InflowMetadata([]models.InflowRow{
		{Name: " Afl_A ", InflowsQm3: 1, IndepHydro: false},
		{Name: "AFL_A", InflowsQm3: 2, IndepHydro: true},
		{Name: "Afl_B", InflowsQm3: 3},
	})

	require.Len(t, meta, 2)
	assert.Equal(t, models.InflowMeta{Scale: 2, Independent: true}, meta["afl_a"])
	assert.Equal(t, 3.0, meta["afl_b"].Scale)
}

func TestValidateCatalogs(t *testing.T) {
	tests := []struct {
		name       string
		reservoirs []string
		groups     []string
		wantChecks []string
	}{
		{
			name:       "unique names",
			reservoirs: []string{"Emb_A", "Emb_B"},
			groups:     []string{"HG_A"},
		},
		{
			name:       "duplicate reservoir",
			reservoirs: []string{"Emb_A", "Emb_B", "Emb_A"},
			groups:     []string{"HG_A"},
			wantChecks: []string{"ReservoirCatalog:duplicate_names"},
		},
		{
			name:       "duplicates in both catalogs",
			reservoirs: []string{"Emb_A", "Emb_A"},
			groups:     []string{"HG_A", "HG_A"},
			wantChecks: []string{"ReservoirCatalog:duplicate_names", "GeneratorsCatalog:duplicate_names"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := models.NewReservoirCatalog()
			res.Names = tt.reservoirs
			gen := &models.GeneratorsCatalog{Groups: tt.groups}

			err := ValidateCatalogs(res, gen)
			if tt.wantChecks == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, models.ErrStructural))
			assert.Equal(t, tt.wantChecks, checkNames(t, err))
		})
	}
}

// checkNames flattens a structural error into "component:check" labels.
func checkNames(t *testing.T, err error) []string {
	t.Helper()
	var se *models.StructuralError
	require.True(t, errors.As(err, &se), "expected a structural error, got %v", err)

	out := make([]string, 0)
	for _, c := range se.Checks() {
		out = append(out, c.Component+":"+c.Check)
	}
	return out
}

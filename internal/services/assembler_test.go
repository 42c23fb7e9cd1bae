package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pinzun/simula-ameba/internal/models"
)

func assemblyInput() AssemblyInput {
	res := models.NewReservoirCatalog()
	res.Names = []string{"Emb_A"}
	res.Scale["Emb_A"] = 1.5

	b11 := models.TimeIndex{Stage: 1, Block: 1}
	b12 := models.TimeIndex{Stage: 1, Block: 2}

	inflows := make(models.BlockVolumes)
	inflows.Add(models.NewBlockKey("afl_a", b11), 10)
	inflows.Add(models.NewBlockKey("afl_a", b12), 2)
	inflows.Add(models.NewBlockKey("afl_h", b11), 10)
	inflows.Add(models.NewBlockKey("afl_z", b11), 4)

	irrigation := make(models.BlockVolumes)
	irrigation.Add(models.NewBlockKey("riego_1", b11), 0.5)

	return AssemblyInput{
		Calendar:          models.CalendarKeys{Stages: []int{1}, Blocks: []int{1, 2}},
		Reservoirs:        res,
		Generators:        &models.GeneratorsCatalog{Groups: []string{"HG_A", "HG_B"}},
		GroupsLimits:      BuildGroupsLimits(nil),
		Graph:             &models.HydroGraph{},
		InflowToReservoir: models.RoutingMap{"afl_a": "Emb_A"},
		InflowToHG:        models.RoutingMap{"afl_h": "HG_A", "afl_a": "HG_B"},
		InflowVolumes:     inflows,
		IrrigationVolumes: irrigation,
	}
}

func TestAssembleHydroData(t *testing.T) {
	in := assemblyInput()

	data, report, err := AssembleHydroData(in)
	require.NoError(t, err)

	b11 := models.TimeIndex{Stage: 1, Block: 1}
	b12 := models.TimeIndex{Stage: 1, Block: 2}

	agg := data.Aggregates
	assert.InDelta(t, 15.0, agg.NaturalReservoir.Get("Emb_A", b11), 1e-9)
	assert.InDelta(t, 3.0, agg.NaturalReservoir.Get("Emb_A", b12), 1e-9)
	assert.Equal(t, 10.0, agg.NaturalHydroGroup.Get("HG_A", b11))
	assert.Equal(t, 0.0, agg.NaturalHydroGroup.Get("HG_B", b11), "reservoir routing takes precedence")
	assert.Equal(t, 0.5, agg.Irrigation.Get("riego_1", b11))

	assert.Equal(t, 3, report.Routed)
	assert.Equal(t, 1, report.Unresolved.Count)
	assert.Equal(t, []string{"afl_z"}, report.Unresolved.Samples)
	assert.Equal(t, 4.0, report.UnresolvedVolume)

	assert.Equal(t, "0.1", data.Metadata["version"])
	assert.Equal(t, "1", data.Metadata["unresolved_inflows"])
	assert.Equal(t, []string{}, data.BalanceNodes)

	// Irrigation is copied, not shared.
	in.IrrigationVolumes.Add(models.NewBlockKey("riego_1", b11), 1)
	assert.Equal(t, 0.5, agg.Irrigation.Get("riego_1", b11))
}

func TestAssembleHydroData_Metadata(t *testing.T) {
	in := assemblyInput()
	in.Metadata = map[string]string{"version": "0.2", "build_id": "abc"}

	data, _, err := AssembleHydroData(in)
	require.NoError(t, err)
	assert.Equal(t, "0.2", data.Metadata["version"])
	assert.Equal(t, "abc", data.Metadata["build_id"])
}

func TestAssembleHydroData_StrictUnresolved(t *testing.T) {
	in := assemblyInput()
	in.Policy = RoutingPolicy{FailOnUnresolved: true}

	data, report, err := AssembleHydroData(in)
	require.Error(t, err)
	assert.Nil(t, data)
	assert.True(t, errors.Is(err, models.ErrRouting))
	assert.Equal(t, 1, report.Unresolved.Distinct())

	var re *models.RoutingError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, "unresolved", re.Kind)
	assert.Equal(t, []string{"afl_z"}, re.Names)

	delete(in.InflowVolumes, models.NewBlockKey("afl_z", models.TimeIndex{Stage: 1, Block: 1}))
	_, _, err = AssembleHydroData(in)
	assert.NoError(t, err)
}

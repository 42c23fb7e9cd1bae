package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Pinzun/simula-ameba/internal/models"
)

func TestAnalyzeTopology(t *testing.T) {
	res := models.NewReservoirCatalog()
	res.Names = []string{"a", "x"}
	gen := &models.GeneratorsCatalog{Groups: []string{"g"}}

	tests := []struct {
		name  string
		graph *models.HydroGraph
		want  models.TopologySummary
	}{
		{
			name: "cycle and two basins",
			graph: &models.HydroGraph{
				SpillRes: []models.Arc{{Origin: "a", Destination: "b"}},
				Natural:  []models.Arc{{Origin: "b", Destination: "c"}, {Origin: "c", Destination: "a"}, {Origin: "d", Destination: "e"}},
			},
			want: models.TopologySummary{
				Nodes:         5,
				Arcs:          4,
				Basins:        2,
				LargestBasins: []int{3, 2},
				Isolated:      []string{"g", "x"},
				HasCycle:      true,
				CycleExample:  []string{"a", "b", "c", "a"},
			},
		},
		{
			name: "self loop",
			graph: &models.HydroGraph{
				Natural: []models.Arc{{Origin: "a", Destination: "a"}},
			},
			want: models.TopologySummary{
				Nodes:         1,
				Arcs:          1,
				Basins:        1,
				LargestBasins: []int{1},
				Isolated:      []string{"g", "x"},
				HasCycle:      true,
				CycleExample:  []string{"a", "a"},
			},
		},
		{
			name: "acyclic chain ignores empty endpoints",
			graph: &models.HydroGraph{
				TurbToHG: []models.Arc{{Origin: "a", Destination: "g"}},
				Natural:  []models.Arc{{Origin: "x", Destination: "a"}, {Origin: "a", Destination: ""}},
			},
			want: models.TopologySummary{
				Nodes:         3,
				Arcs:          3,
				Basins:        1,
				LargestBasins: []int{3},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AnalyzeTopology(tt.graph, res, gen, 0))
		})
	}
}

func TestAnalyzeTopology_CapsLists(t *testing.T) {
	graph := &models.HydroGraph{}
	for _, n := range []string{"a", "b", "c", "d", "e", "f"} {
		graph.Natural = append(graph.Natural, models.Arc{Origin: n, Destination: n + "2"})
	}
	res := models.NewReservoirCatalog()
	res.Names = []string{"r1", "r2", "r3"}

	got := AnalyzeTopology(graph, res, &models.GeneratorsCatalog{}, 2)
	assert.Equal(t, 6, got.Basins)
	assert.Equal(t, []int{2, 2, 2, 2, 2}, got.LargestBasins)
	assert.Equal(t, []string{"r1", "r2"}, got.Isolated)
	assert.False(t, got.HasCycle)
}

package services

import (
	"strconv"

	"github.com/Pinzun/simula-ameba/internal/models"
)

// DefaultModelVersion is stamped into the bundle metadata when none is given.
const DefaultModelVersion = "0.1"

// AssemblyInput carries every validated piece of the bundle.
type AssemblyInput struct {
	Calendar          models.CalendarKeys
	Reservoirs        *models.ReservoirCatalog
	Generators        *models.GeneratorsCatalog
	GroupsLimits      *models.HydroGroupsLimits
	Graph             *models.HydroGraph
	InflowToReservoir models.RoutingMap
	InflowToHG        models.RoutingMap
	InflowVolumes     models.BlockVolumes
	IrrigationVolumes models.BlockVolumes
	BalanceNodes      []string
	Inflows           map[string]models.InflowMeta
	Metadata          map[string]string
	Policy            RoutingPolicy
	SampleSize        int
}

// AssembleHydroData routes block inflows to their destinations and packages
// the bundle. Inflows resolved to a reservoir are multiplied by its scale;
// inflows resolved to a hydro-group pass unscaled. The reservoir map wins
// when an inflow appears in both. Unresolved inflows are dropped and
// reported, or fail the assembly under FailOnUnresolved. Irrigation volumes
// pass through unchanged. Inputs are not re-validated.
func AssembleHydroData(in AssemblyInput) (*models.HydroData, models.AssemblyReport, error) {
	report := models.AssemblyReport{Unresolved: models.NewTally(in.SampleSize)}
	agg := models.NewBlockAggregates()

	for _, key := range in.InflowVolumes.Keys() {
		q := in.InflowVolumes[key]
		ti := key.TimeIndex()

		if dest, ok := in.InflowToReservoir.Resolve(key.Name); ok {
			agg.NaturalReservoir.Add(models.NewBlockKey(dest, ti), q*in.Reservoirs.ScaleFor(dest))
			report.Routed++
			continue
		}
		if dest, ok := in.InflowToHG.Resolve(key.Name); ok {
			agg.NaturalHydroGroup.Add(models.NewBlockKey(dest, ti), q)
			report.Routed++
			continue
		}

		report.Unresolved.Add(key.Name)
		report.UnresolvedVolume += q
	}

	if in.Policy.FailOnUnresolved && report.Unresolved.Count > 0 {
		return nil, report, &models.RoutingError{
			Kind:    "unresolved",
			Names:   report.Unresolved.Samples,
			Total:   report.Unresolved.Distinct(),
			Message: "inflow nodes have no reservoir or hydro-group destination",
		}
	}

	if in.IrrigationVolumes != nil {
		agg.Irrigation = in.IrrigationVolumes.Clone()
	}

	metadata := map[string]string{"version": DefaultModelVersion}
	for k, v := range in.Metadata {
		metadata[k] = v
	}
	metadata["unresolved_inflows"] = strconv.Itoa(report.Unresolved.Distinct())

	balance := in.BalanceNodes
	if balance == nil {
		balance = make([]string, 0)
	}

	data := &models.HydroData{
		Calendar:          in.Calendar,
		Reservoirs:        in.Reservoirs,
		Generators:        in.Generators,
		GroupsLimits:      in.GroupsLimits,
		Graph:             in.Graph,
		Aggregates:        agg,
		InflowToReservoir: in.InflowToReservoir,
		InflowToHG:        in.InflowToHG,
		BalanceNodes:      balance,
		Inflows:           in.Inflows,
		Metadata:          metadata,
	}
	return data, report, nil
}

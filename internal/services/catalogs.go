package services

import (
	"math"
	"sort"
	"strings"

	"github.com/Pinzun/simula-ameba/internal/models"
)

// BuildReservoirCatalog builds the reservoir catalog from dam rows in input
// order. Every reservoir gets kappaDefault; duplicate names are kept in Names
// so ValidateCatalogs can report them.
func BuildReservoirCatalog(dams []models.DamRow, kappaDefault float64) *models.ReservoirCatalog {
	cat := models.NewReservoirCatalog()
	for _, d := range dams {
		name := d.Name
		cat.Names = append(cat.Names, name)
		cat.Vmax[name] = d.Vmax
		cat.Vmin[name] = d.Vmin
		cat.Vini[name] = d.Vini
		cat.Vend[name] = d.Vend
		cat.Kappa[name] = kappaDefault
		cat.Scale[name] = d.Scale
		cat.OverflowValue[name] = d.ValOverflow
		cat.AllowNonPhysical[name] = d.NonPhysicalInflow
		cat.PenaltyNonPhysical[name] = d.NonPhysicalInflowPenalty
	}
	return cat
}

// BuildGeneratorsCatalog aggregates generation units by hydro-group: pmax and
// pmin are summed, kappa is the mean efficiency. Units without a group are
// ignored. Groups whose name starts with rorPrefix are run-of-river.
func BuildGeneratorsCatalog(units []models.HydroGeneratorRow, rorPrefix string) *models.GeneratorsCatalog {
	type acc struct {
		pmax, pmin, eff float64
		n               int
	}
	groups := make(map[string]*acc)
	for _, u := range units {
		g := strings.TrimSpace(u.HydroGroupName)
		if g == "" {
			continue
		}
		a, ok := groups[g]
		if !ok {
			a = &acc{}
			groups[g] = a
		}
		a.pmax += u.Pmax
		a.pmin += u.Pmin
		a.eff += u.Efficiency
		a.n++
	}

	cat := &models.GeneratorsCatalog{
		Groups:     make([]string, 0, len(groups)),
		Pmax:       make(map[string]float64, len(groups)),
		Pmin:       make(map[string]float64, len(groups)),
		Kappa:      make(map[string]float64, len(groups)),
		RunOfRiver: make([]string, 0),
	}
	for name, a := range groups {
		cat.Groups = append(cat.Groups, name)
		cat.Pmax[name] = a.pmax
		cat.Pmin[name] = a.pmin
		cat.Kappa[name] = a.eff / float64(a.n)
		if rorPrefix != "" && strings.HasPrefix(name, rorPrefix) {
			cat.RunOfRiver = append(cat.RunOfRiver, name)
		}
	}
	sort.Strings(cat.Groups)
	sort.Strings(cat.RunOfRiver)
	return cat
}

// BuildGroupsLimits maps each hydro-group row to its setpoint bounds. A
// missing maximum becomes +Inf.
func BuildGroupsLimits(groups []models.HydroGroupRow) *models.HydroGroupsLimits {
	limits := &models.HydroGroupsLimits{
		SetpointMin: make(map[string]float64, len(groups)),
		SetpointMax: make(map[string]float64, len(groups)),
	}
	for _, g := range groups {
		limits.SetpointMin[g.Name] = g.SetpointMin
		if g.SetpointMax == nil {
			limits.SetpointMax[g.Name] = math.Inf(1)
		} else {
			limits.SetpointMax[g.Name] = *g.SetpointMax
		}
	}
	return limits
}

// BalanceNodes returns the sorted distinct names of nodes that formulate a
// water balance.
func BalanceNodes(nodes []models.HydroNodeRow) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, n := range nodes {
		if !n.FormulateBal {
			continue
		}
		if _, ok := seen[n.Name]; ok {
			continue
		}
		seen[n.Name] = struct{}{}
		out = append(out, n.Name)
	}
	sort.Strings(out)
	return out
}

// InflowMetadata indexes inflow node rows by normalized name. When a name has
// several validity rows the last one wins.
func InflowMetadata(rows []models.InflowRow) map[string]models.InflowMeta {
	out := make(map[string]models.InflowMeta, len(rows))
	for _, r := range rows {
		out[models.NormalizeNodeName(r.Name)] = models.InflowMeta{
			Scale:       r.InflowsQm3,
			Independent: r.IndepHydro,
		}
	}
	return out
}

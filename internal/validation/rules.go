package validation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Pinzun/simula-ameba/internal/models"
)

// HydroGroups applies the setpoint rules to hydro-group rows: end_time after
// start_time, a non-negative minimum and, when bounded, min <= max. Each rule
// reports every offending group.
func HydroGroups(groups []models.HydroGroupRow) error {
	const tag = "HydroGroup"
	var badWindow, badMin, badOrder []string
	for _, g := range groups {
		if !g.EndTime.After(g.StartTime) {
			badWindow = append(badWindow, g.Name)
		}
		if g.SetpointMin < 0 {
			badMin = append(badMin, g.Name)
		}
		if g.SetpointMax != nil && g.SetpointMin > *g.SetpointMax {
			badOrder = append(badOrder, g.Name)
		}
	}

	switch {
	case len(badWindow) > 0:
		return NamesError(tag, "end_time", "end_time <= start_time", badWindow)
	case len(badMin) > 0:
		return NamesError(tag, "hg_sp_min", "hg_sp_min must not be negative", badMin)
	case len(badOrder) > 0:
		return NamesError(tag, "hg_sp_max", "hg_sp_min > hg_sp_max", badOrder)
	}
	return nil
}

// NamesError builds a validation error listing the offending names sorted.
func NamesError(tag, field, msg string, names []string) error {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	return &models.ValidationError{
		Field:   field,
		Value:   strings.Join(sorted, ","),
		Message: fmt.Sprintf("[%s] %s: %s", tag, msg, strings.Join(sorted, ", ")),
	}
}

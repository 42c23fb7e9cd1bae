package services

import (
	"fmt"

	"github.com/Pinzun/simula-ameba/internal/models"
)

// AggregateOptions adds flat-form records to the parallel-list series.
type AggregateOptions struct {
	Records []models.SeriesRecord
}

// FlattenSeries converts parallel-list series into flat records. Series whose
// time and value lists differ in length are a structural error naming every
// offending series.
func FlattenSeries(series []models.InflowSeries) ([]models.SeriesRecord, error) {
	var bad []string
	n := 0
	for _, s := range series {
		if len(s.Times) != len(s.FlowPerHour) {
			bad = append(bad, fmt.Sprintf("%s(%d/%d)", s.Name, len(s.Times), len(s.FlowPerHour)))
			continue
		}
		n += len(s.Times)
	}
	if len(bad) > 0 {
		return nil, models.NewStructuralError("InflowSeries", "mismatched_lengths", bad, models.DefaultSampleSize)
	}

	out := make([]models.SeriesRecord, 0, n)
	for _, s := range series {
		for i, t := range s.Times {
			out = append(out, models.SeriesRecord{Name: s.Name, Time: t, Value: s.FlowPerHour[i]})
		}
	}
	return out, nil
}

// AggregateInflows sums hourly volumes into calendar blocks keyed by
// (normalized name, stage, block). Records outside the calendar window and
// records whose hour has no exact calendar entry are dropped and counted
// separately. Several series of one node add up.
func AggregateInflows(cal *models.Calendar, series []models.InflowSeries, opts AggregateOptions) (models.BlockVolumes, models.CoverageReport, error) {
	var report models.CoverageReport

	records, err := FlattenSeries(series)
	if err != nil {
		return nil, report, err
	}
	records = append(records, opts.Records...)

	out := make(models.BlockVolumes)
	for _, r := range records {
		report.Records++
		if !cal.InWindow(r.Time) {
			report.OutOfWindow++
			continue
		}
		ti, ok := cal.Lookup(r.Time)
		if !ok {
			report.UnmatchedHour++
			continue
		}
		out.Add(models.NewBlockKey(models.NormalizeNodeName(r.Name), ti), r.Value)
		report.Accepted++
	}

	report.Entries = len(out)
	return out, report, nil
}

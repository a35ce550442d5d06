package scenario

import (
	"context"
	"log"
	"time"

	"github.com/hollymaclennan/residual-load-scenarios/internal/timeseries"
)

// deltaDenominatorOffset stabilizes the percentage-change denominator
// against near-zero old means. It is an additive guard, not a unit
// conversion.
const deltaDenominatorOffset = 0.1

// ComputeForecastDelta compares the ensemble-mean forecasts of two
// issues for the same element over the same valid-time window.
// Output columns: old_mean, new_mean, delta, delta_pct. Returns an
// empty frame when either issue has no data or the windows do not
// overlap.
func (e *Engine) ComputeForecastDelta(ctx context.Context, req Request, element string, issueNew, issueOld, validStart, validEnd time.Time, location string) *timeseries.Frame {
	if location == "" {
		location = e.cfg.DefaultCountry
	}

	oldF := e.store.FetchEnsembleByIssueAndTime(ctx, req.Model, element, issueOld, validStart, validEnd, location)
	newF := e.store.FetchEnsembleByIssueAndTime(ctx, req.Model, element, issueNew, validStart, validEnd, location)

	if oldF.Empty() || newF.Empty() {
		log.Printf("WARN missing data for %s comparison: old=%d rows, new=%d rows", element, oldF.Len(), newF.Len())
		return timeseries.New()
	}

	oldMean := oldF.Select("ens_mean")
	oldMean.RenameColumn("ens_mean", "old_mean")
	newMean := newF.Select("ens_mean")
	newMean.RenameColumn("ens_mean", "new_mean")

	comparison := timeseries.MergeInner(oldMean, newMean)
	if comparison.Empty() {
		log.Printf("WARN no overlapping times found between issues")
		return timeseries.New()
	}

	oldVals, _ := comparison.Column("old_mean")
	newVals, _ := comparison.Column("new_mean")
	delta := make([]float64, len(oldVals))
	deltaPct := make([]float64, len(oldVals))
	for i := range oldVals {
		delta[i] = newVals[i] - oldVals[i]
		deltaPct[i] = delta[i] / (oldVals[i] + deltaDenominatorOffset) * 100
	}
	comparison.AddColumn("delta", delta)
	comparison.AddColumn("delta_pct", deltaPct)

	return comparison
}

// ComputeResidualLoadDelta combines the wind and solar deltas between
// two issues into a residual-load delta. More renewables means less
// residual load, hence the sign flip:
//
//	residual_delta = -(wind_delta + solar_delta)
//
// The component deltas are outer-joined with missing sides treated as
// zero, so a window where only one element has data still yields a
// result. Empty only when both components are empty.
func (e *Engine) ComputeResidualLoadDelta(ctx context.Context, req Request, issueNew, issueOld, validStart, validEnd time.Time, location string) *timeseries.Frame {
	windDelta := e.ComputeForecastDelta(ctx, req, "wind", issueNew, issueOld, validStart, validEnd, location)
	solarDelta := e.ComputeForecastDelta(ctx, req, "solar", issueNew, issueOld, validStart, validEnd, location)

	if windDelta.Empty() && solarDelta.Empty() {
		log.Printf("WARN missing wind and solar data for residual delta computation")
		return timeseries.New()
	}

	wind := windDelta.Select("delta")
	wind.RenameColumn("delta", "wind_delta")
	solar := solarDelta.Select("delta")
	solar.RenameColumn("delta", "solar_delta")

	var result *timeseries.Frame
	switch {
	case windDelta.Empty():
		result = solar
		result.AddColumn("wind_delta", make([]float64, result.Len()))
	case solarDelta.Empty():
		result = wind
		result.AddColumn("solar_delta", make([]float64, result.Len()))
	default:
		result = timeseries.MergeOuter(wind, solar, true)
	}

	windVals, _ := result.Column("wind_delta")
	solarVals, _ := result.Column("solar_delta")
	residual := make([]float64, result.Len())
	residualPct := make([]float64, result.Len())
	for i := range residual {
		residual[i] = -(windVals[i] + solarVals[i])
		// Normalized against a 100 MW reference, which cancels to the
		// raw delta; downstream tables expect the column.
		residualPct[i] = residual[i] / 100 * 100
	}
	result.AddColumn("residual_delta", residual)
	result.AddColumn("residual_delta_pct", residualPct)

	log.Printf("Computed residual delta: %d points", result.Len())
	return result
}

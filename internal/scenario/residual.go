package scenario

import (
	"fmt"
	"log"

	"github.com/hollymaclennan/residual-load-scenarios/internal/timeseries"
	"github.com/hollymaclennan/residual-load-scenarios/pkg/config"
)

// ComputeResidualScenarios derives per-member residual load from a
// consumption series and a total-renewables ensemble:
//
//	residual_ens_i = consumption_mw - total_ren_ens_i
//
// The inputs are inner-joined on timestamp; a residual figure needs
// both terms, so one-sided rows are dropped. Ensemble statistics
// (mean, std, min, max and percentiles P0..P100 in steps of 5) are
// appended across the member dimension, ignoring NaN cells per row.
func ComputeResidualScenarios(consumption, renewables *timeseries.Frame, model config.Model) *timeseries.Frame {
	if consumption.Empty() {
		log.Printf("WARN no consumption data available")
		return timeseries.New()
	}
	if renewables.Empty() {
		log.Printf("WARN no renewable ensemble data available")
		return timeseries.New()
	}

	merged := timeseries.MergeInner(consumption, renewables)
	if merged.Empty() {
		log.Printf("WARN no overlapping data between consumption and renewables")
		return timeseries.New()
	}

	cons, _ := merged.Column("consumption_mw")
	result := merged.Select() // timestamps only

	var ensCols []string
	for i := 1; i <= model.Members; i++ {
		renCol := fmt.Sprintf("total_ren_ens_%02d", i)
		ren, ok := merged.Column(renCol)
		if !ok {
			continue
		}
		residual := make([]float64, len(cons))
		for k := range cons {
			residual[k] = cons[k] - ren[k]
		}
		col := fmt.Sprintf("residual_ens_%02d", i)
		result.AddColumn(col, residual)
		ensCols = append(ensCols, col)
	}

	if len(ensCols) == 0 {
		log.Printf("WARN no ensemble members found in renewable data")
		return result
	}

	result.AddColumn("ens_mean", result.RowApply(ensCols, timeseries.Mean))
	result.AddColumn("ens_std", result.RowApply(ensCols, timeseries.Std))
	result.AddColumn("ens_min", result.RowApply(ensCols, timeseries.Min))
	result.AddColumn("ens_max", result.RowApply(ensCols, timeseries.Max))

	for p := 0; p <= 100; p += 5 {
		pct := float64(p)
		result.AddColumn(fmt.Sprintf("ens_P%d", p), result.RowApply(ensCols, func(row []float64) float64 {
			return timeseries.Percentile(row, pct)
		}))
	}

	log.Printf("Computed residual load for %d ensemble members with percentiles P0-P100", len(ensCols))
	return result
}

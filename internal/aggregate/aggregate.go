package aggregate

import (
	"fmt"
	"log"

	"github.com/hollymaclennan/residual-load-scenarios/internal/timeseries"
)

// SumAcrossCountries outer-joins per-country frames on timestamp and
// sums identically named columns element-wise, treating absent cells as
// zero. Empty frames contribute nothing.
func SumAcrossCountries(frames []*timeseries.Frame) *timeseries.Frame {
	var agg *timeseries.Frame
	for _, f := range frames {
		if f == nil || f.Empty() {
			continue
		}
		if agg == nil {
			agg = f
			continue
		}
		agg = timeseries.Add(agg, f)
	}
	if agg == nil {
		return timeseries.New()
	}
	return agg
}

// CombineRenewables merges wind and solar member frames into one frame
// carrying wind_ens_NN, solar_ens_NN and total_ren_ens_NN columns,
// where total is the member-wise sum. Member i of wind is paired with
// member i of solar; that pairing is a modeling assumption. A missing
// element degrades to the other alone, never dropping rows.
func CombineRenewables(wind, solar *timeseries.Frame, members int) *timeseries.Frame {
	if wind.Empty() && solar.Empty() {
		return timeseries.New()
	}

	if !wind.Empty() {
		wind.PrefixColumns("wind_")
	}
	if !solar.Empty() {
		solar.PrefixColumns("solar_")
	}

	if wind.Empty() {
		log.Printf("WARN no wind ensemble data, using solar only")
		return solar
	}
	if solar.Empty() {
		log.Printf("WARN no solar ensemble data, using wind only")
		return wind
	}

	combined := timeseries.MergeOuter(wind, solar, true)

	total := 0
	for i := 1; i <= members; i++ {
		wCol := fmt.Sprintf("wind_ens_%02d", i)
		sCol := fmt.Sprintf("solar_ens_%02d", i)
		if !combined.HasColumn(wCol) || !combined.HasColumn(sCol) {
			continue
		}
		w, _ := combined.Column(wCol)
		s, _ := combined.Column(sCol)
		sum := make([]float64, len(w))
		for k := range w {
			sum[k] = w[k] + s[k]
		}
		combined.AddColumn(fmt.Sprintf("total_ren_ens_%02d", i), sum)
		total++
	}

	log.Printf("Renewable ensembles ready: %d hours, %d members", combined.Len(), total)
	return combined
}

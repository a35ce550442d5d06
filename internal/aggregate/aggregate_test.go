package aggregate

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/hollymaclennan/residual-load-scenarios/internal/timeseries"
)

func hour(i int) time.Time {
	return time.Date(2026, 3, 1, i, 0, 0, 0, time.UTC)
}

func memberFrame(col string, offset int, vals ...float64) *timeseries.Frame {
	b := timeseries.NewBuilder()
	for i, v := range vals {
		b.Set(hour(i+offset), col, v)
	}
	return b.Frame()
}

func TestSumAcrossCountries_SumsSharedMembers(t *testing.T) {
	fr := memberFrame("ens_01", 0, 10, 20)
	de := memberFrame("ens_01", 0, 1, 2)

	agg := SumAcrossCountries([]*timeseries.Frame{fr, de})
	if agg.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", agg.Len())
	}
	if agg.Value(0, "ens_01") != 11 || agg.Value(1, "ens_01") != 22 {
		t.Errorf("unexpected sums: %v, %v", agg.Value(0, "ens_01"), agg.Value(1, "ens_01"))
	}
}

func TestSumAcrossCountries_OrderIndependent(t *testing.T) {
	a := memberFrame("ens_01", 0, 1, 2, 3)
	b := memberFrame("ens_01", 1, 10, 20, 30)
	c := memberFrame("ens_01", 2, 100, 200, 300)

	incremental := SumAcrossCountries([]*timeseries.Frame{
		SumAcrossCountries([]*timeseries.Frame{a, b}), c})
	direct := SumAcrossCountries([]*timeseries.Frame{c, b, a})

	if incremental.Len() != direct.Len() {
		t.Fatalf("row counts differ: %d vs %d", incremental.Len(), direct.Len())
	}
	for i := 0; i < direct.Len(); i++ {
		x, y := incremental.Value(i, "ens_01"), direct.Value(i, "ens_01")
		if math.Abs(x-y) > 1e-9 {
			t.Errorf("row %d: %v vs %v", i, x, y)
		}
	}
}

func TestSumAcrossCountries_SkipsEmpty(t *testing.T) {
	fr := memberFrame("ens_01", 0, 10)

	agg := SumAcrossCountries([]*timeseries.Frame{timeseries.New(), fr, nil})
	if agg.Len() != 1 || agg.Value(0, "ens_01") != 10 {
		t.Errorf("expected single-country passthrough, got %d rows", agg.Len())
	}

	if !SumAcrossCountries(nil).Empty() {
		t.Error("no inputs should yield an empty frame")
	}
}

func TestCombineRenewables_TotalsPerMember(t *testing.T) {
	wind := timeseries.NewBuilder()
	solar := timeseries.NewBuilder()
	for i := 0; i < 3; i++ {
		wind.Set(hour(i), "ens_01", 10)
		wind.Set(hour(i), "ens_02", 20)
		solar.Set(hour(i), "ens_01", 1)
		solar.Set(hour(i), "ens_02", 2)
	}

	f := CombineRenewables(wind.Frame(), solar.Frame(), 2)
	if f.Len() != 3 {
		t.Fatalf("expected 3 rows, got %d", f.Len())
	}
	for i := 0; i < 3; i++ {
		if f.Value(i, "total_ren_ens_01") != 11 {
			t.Errorf("row %d total member 1: expected 11, got %v", i, f.Value(i, "total_ren_ens_01"))
		}
		if f.Value(i, "total_ren_ens_02") != 22 {
			t.Errorf("row %d total member 2: expected 22, got %v", i, f.Value(i, "total_ren_ens_02"))
		}
	}
}

func TestCombineRenewables_PartialOverlapFillsZero(t *testing.T) {
	wind := memberFrame("ens_01", 0, 10, 10)  // hours 0,1
	solar := memberFrame("ens_01", 1, 5, 5)   // hours 1,2

	f := CombineRenewables(wind, solar, 1)
	if f.Len() != 3 {
		t.Fatalf("expected union of rows (3), got %d", f.Len())
	}
	want := []float64{10, 15, 5}
	for i, w := range want {
		if got := f.Value(i, "total_ren_ens_01"); got != w {
			t.Errorf("row %d: expected %v, got %v", i, w, got)
		}
	}
}

func TestCombineRenewables_MissingElementDegrades(t *testing.T) {
	wind := memberFrame("ens_01", 0, 10)

	f := CombineRenewables(wind, timeseries.New(), 1)
	if f.Empty() {
		t.Fatal("wind-only input should still produce rows")
	}
	if !f.HasColumn("wind_ens_01") {
		t.Errorf("expected prefixed wind column, got %v", f.Columns())
	}

	if !CombineRenewables(timeseries.New(), timeseries.New(), 1).Empty() {
		t.Error("both elements empty should yield an empty frame")
	}
}

func TestCombineRenewables_ManyMembers(t *testing.T) {
	wind := timeseries.NewBuilder()
	solar := timeseries.NewBuilder()
	for m := 1; m <= 5; m++ {
		col := fmt.Sprintf("ens_%02d", m)
		wind.Set(hour(0), col, float64(m))
		solar.Set(hour(0), col, float64(m)*10)
	}

	f := CombineRenewables(wind.Frame(), solar.Frame(), 5)
	for m := 1; m <= 5; m++ {
		col := fmt.Sprintf("total_ren_ens_%02d", m)
		if got := f.Value(0, col); got != float64(m)*11 {
			t.Errorf("%s: expected %v, got %v", col, float64(m)*11, got)
		}
	}
}

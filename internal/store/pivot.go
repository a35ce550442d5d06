package store

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/hollymaclennan/residual-load-scenarios/internal/timeseries"
)

// memberRow is one long-format observation from the forecast store.
type memberRow struct {
	Time   time.Time
	Member string
	Value  float64
}

// pivotMembers turns long (timestamp, member, value) rows into a wide
// frame with one column per member key. Duplicate (timestamp, member)
// pairs keep the first occurrence under the input ordering; upstream
// duplicates are late corrections, not distinct samples.
func pivotMembers(rows []memberRow) *timeseries.Frame {
	b := timeseries.NewBuilder()
	for _, r := range rows {
		b.SetFirst(r.Time.UTC(), r.Member, r.Value)
	}
	return b.Frame()
}

// memberColumnName maps a raw member key to its stable wide-column
// name: numeric keys become zero-padded ens_NN, anything else keeps
// its key under the ens_ prefix.
func memberColumnName(key string) string {
	if n, err := strconv.Atoi(key); err == nil {
		return fmt.Sprintf("ens_%02d", n)
	}
	return "ens_" + key
}

// sortMemberKeys orders member keys numerically where they parse as
// integers, with a lexical fallback for the rest (numerics first).
func sortMemberKeys(keys []string) []string {
	out := append([]string(nil), keys...)
	sort.SliceStable(out, func(i, j int) bool {
		ni, errI := strconv.Atoi(out[i])
		nj, errJ := strconv.Atoi(out[j])
		switch {
		case errI == nil && errJ == nil:
			return ni < nj
		case errI == nil:
			return true
		case errJ == nil:
			return false
		default:
			return out[i] < out[j]
		}
	})
	return out
}

// renameMembers produces a frame whose member columns are renamed to
// the stable ens_NN scheme and ordered by member index.
func renameMembers(f *timeseries.Frame) *timeseries.Frame {
	ordered := sortMemberKeys(f.Columns())
	out := f.Select(ordered...)
	for _, key := range ordered {
		out.RenameColumn(key, memberColumnName(key))
	}
	return out
}

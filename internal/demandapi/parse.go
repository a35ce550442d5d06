package demandapi

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hollymaclennan/residual-load-scenarios/internal/timeseries"
)

// The API returns either a bare list of points or an object with a
// "points" field, and uses short (t, v) or long (time, value) keys
// depending on the endpoint generation.
type apiPoint struct {
	T         string    `json:"t"`
	Time      string    `json:"time"`
	V         *float64  `json:"v"`
	Value     *float64  `json:"value"`
	Scenarios []float64 `json:"scenarios"`
	Values    []float64 `json:"values"`
}

func (p apiPoint) timestamp() (time.Time, error) {
	raw := p.T
	if raw == "" {
		raw = p.Time
	}
	if raw == "" {
		return time.Time{}, fmt.Errorf("point has no timestamp")
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad point timestamp %q: %w", raw, err)
	}
	return ts.UTC(), nil
}

func (p apiPoint) scalar() (float64, bool) {
	if p.V != nil {
		return *p.V, true
	}
	if p.Value != nil {
		return *p.Value, true
	}
	return 0, false
}

func (p apiPoint) scenarios() []float64 {
	if len(p.Scenarios) > 0 {
		return p.Scenarios
	}
	return p.Values
}

func decodePoints(data []byte) ([]apiPoint, error) {
	var points []apiPoint
	if err := json.Unmarshal(data, &points); err == nil {
		return points, nil
	}

	var wrapped struct {
		Points []apiPoint `json:"points"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("failed to decode points: %w", err)
	}
	return wrapped.Points, nil
}

// parseScalarPoints normalizes a deterministic-series response into a
// frame with one named value column.
func parseScalarPoints(data []byte, valueCol string) (*timeseries.Frame, error) {
	points, err := decodePoints(data)
	if err != nil {
		return nil, err
	}

	b := timeseries.NewBuilder()
	for _, p := range points {
		ts, err := p.timestamp()
		if err != nil {
			return nil, err
		}
		if v, ok := p.scalar(); ok {
			b.SetFirst(ts, valueCol, v)
		}
	}
	return b.Frame(), nil
}

// parseEnsemblePoints normalizes an ensemble response into a wide
// frame with ens_NN columns, scenario i mapping to member i+1.
func parseEnsemblePoints(data []byte) (*timeseries.Frame, error) {
	points, err := decodePoints(data)
	if err != nil {
		return nil, err
	}

	b := timeseries.NewBuilder()
	for _, p := range points {
		ts, err := p.timestamp()
		if err != nil {
			return nil, err
		}
		for i, v := range p.scenarios() {
			b.SetFirst(ts, fmt.Sprintf("ens_%02d", i+1), v)
		}
	}
	return b.Frame(), nil
}

package scenario

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/hollymaclennan/residual-load-scenarios/internal/timeseries"
	"github.com/hollymaclennan/residual-load-scenarios/pkg/config"
)

// fakeStore is an in-memory ForecastStore. Ensembles are keyed by
// element, by-issue frames by element and issue, consumption by
// country.
type fakeStore struct {
	issue       time.Time
	hasIssue    bool
	ensembles   map[string]*timeseries.Frame
	byIssue     map[string]*timeseries.Frame
	consumption map[string]*timeseries.Frame
	issuesErr   error
	issuesList  []time.Time

	fetchStarted chan struct{}
	fetchRelease chan struct{}
}

func byIssueKey(element string, issue time.Time) string {
	return fmt.Sprintf("%s@%d", element, issue.Unix())
}

func (f *fakeStore) LatestIssue(ctx context.Context, model, element, location string) (time.Time, bool) {
	return f.issue, f.hasIssue
}

func (f *fakeStore) AvailableIssues(ctx context.Context, model, element, location string, limit int) ([]time.Time, error) {
	return f.issuesList, f.issuesErr
}

func (f *fakeStore) FetchEnsembleMembers(ctx context.Context, model config.Model, element string, issue time.Time, location string) *timeseries.Frame {
	if f.fetchStarted != nil {
		f.fetchStarted <- struct{}{}
		<-f.fetchRelease
	}
	if frame, ok := f.ensembles[element]; ok {
		return frame
	}
	return timeseries.New()
}

func (f *fakeStore) FetchEnsembleByIssueAndTime(ctx context.Context, model config.Model, element string, issue, validStart, validEnd time.Time, location string) *timeseries.Frame {
	if frame, ok := f.byIssue[byIssueKey(element, issue)]; ok {
		return frame
	}
	return timeseries.New()
}

func (f *fakeStore) FetchConsumption(ctx context.Context, location string) *timeseries.Frame {
	if frame, ok := f.consumption[location]; ok {
		return frame
	}
	return timeseries.New()
}

func memberEnsemble(vals map[string][]float64) *timeseries.Frame {
	b := timeseries.NewBuilder()
	for col, series := range vals {
		for i, v := range series {
			b.Set(hour(i), col, v)
		}
	}
	return b.Frame()
}

func populatedStore() *fakeStore {
	return &fakeStore{
		issue:    time.Date(2026, 5, 20, 0, 0, 0, 0, time.UTC),
		hasIssue: true,
		ensembles: map[string]*timeseries.Frame{
			"wind": memberEnsemble(map[string][]float64{
				"ens_01": {5, 5, 5, 5},
				"ens_02": {15, 15, 15, 15},
			}),
			"solar": memberEnsemble(map[string][]float64{
				"ens_01": {5, 5, 5, 5},
				"ens_02": {5, 5, 5, 5},
			}),
		},
		consumption: map[string]*timeseries.Frame{
			"FR": consumptionFrame(100, 110, 120, 130),
		},
	}
}

func testRequest(t *testing.T) Request {
	t.Helper()
	req, err := NewRequest("eceps", nil, []string{"FR"}, "FR")
	if err != nil {
		t.Fatalf("NewRequest failed: %v", err)
	}
	// Registry models carry 50 members; the fakes provide 2
	req.Model.Members = 2
	return req
}

func TestEngine_UpdateProducesBundle(t *testing.T) {
	fs := populatedStore()
	e := NewEngine(fs, nil, nil, nil, config.ScenarioConfig{DefaultCountry: "FR", IssueListLimit: 10})

	bundle := e.Update(context.Background(), testRequest(t))
	if bundle.Empty() {
		t.Fatal("expected a populated bundle")
	}
	if bundle.ResidualScenarios.Len() != 4 {
		t.Fatalf("expected 4 scenario rows, got %d", bundle.ResidualScenarios.Len())
	}

	// wind+solar per member: m1 = 10, m2 = 20
	if got := bundle.ResidualScenarios.Value(0, "residual_ens_01"); got != 90 {
		t.Errorf("residual_ens_01: expected 90, got %v", got)
	}
	if got := bundle.ResidualScenarios.Value(0, "residual_ens_02"); got != 80 {
		t.Errorf("residual_ens_02: expected 80, got %v", got)
	}

	if bundle.Metadata.RunID == "" {
		t.Error("expected a run id")
	}
	if !bundle.Metadata.Issue.Equal(fs.issue) {
		t.Errorf("expected issue %v, got %v", fs.issue, bundle.Metadata.Issue)
	}
	if bundle.Metadata.Members != 2 || len(bundle.Metadata.Countries) != 1 {
		t.Errorf("unexpected metadata %+v", bundle.Metadata)
	}

	current, ok := e.Current()
	if !ok || current != bundle {
		t.Error("current bundle not replaced after update")
	}
}

func TestEngine_UpdateEmptySourceKeepsPreviousBundle(t *testing.T) {
	fs := populatedStore()
	e := NewEngine(fs, nil, nil, nil, config.ScenarioConfig{DefaultCountry: "FR"})

	first := e.Update(context.Background(), testRequest(t))
	if first.Empty() {
		t.Fatal("expected first update to succeed")
	}

	// Store goes dark: every fetch returns empty
	fs.ensembles = nil
	fs.consumption = nil
	fs.hasIssue = false

	second := e.Update(context.Background(), testRequest(t))
	if !second.Empty() {
		t.Fatal("expected empty bundle when sources are unavailable")
	}

	current, ok := e.Current()
	if !ok {
		t.Fatal("previous bundle should still be visible")
	}
	if current != first {
		t.Error("previous bundle was replaced by a failed update")
	}
}

func TestEngine_UpdateMissingConsumptionAborts(t *testing.T) {
	fs := populatedStore()
	fs.consumption = nil
	e := NewEngine(fs, nil, nil, nil, config.ScenarioConfig{DefaultCountry: "FR"})

	if bundle := e.Update(context.Background(), testRequest(t)); !bundle.Empty() {
		t.Error("expected empty bundle without consumption data")
	}
	if _, ok := e.Current(); ok {
		t.Error("failed update must not publish a bundle")
	}
}

func TestEngine_TryUpdateSkipsWhenBusy(t *testing.T) {
	fs := populatedStore()
	fs.fetchStarted = make(chan struct{})
	fs.fetchRelease = make(chan struct{})
	e := NewEngine(fs, nil, nil, nil, config.ScenarioConfig{DefaultCountry: "FR"})

	done := make(chan struct{})
	go func() {
		e.Update(context.Background(), testRequest(t))
		close(done)
	}()

	<-fs.fetchStarted // first update is now inside a fetch

	if _, ran := e.TryUpdate(context.Background(), testRequest(t)); ran {
		t.Error("TryUpdate should skip while an update is in flight")
	}

	// Release the in-flight update (wind and solar fetches)
	close(fs.fetchRelease)
	for {
		select {
		case <-fs.fetchStarted:
		case <-done:
			return
		case <-time.After(5 * time.Second):
			t.Fatal("update did not finish")
		}
	}
}

func TestEngine_AvailableIssuesSwallowsErrors(t *testing.T) {
	fs := populatedStore()
	fs.issuesErr = errors.New("store down")
	e := NewEngine(fs, nil, nil, nil, config.ScenarioConfig{DefaultCountry: "FR", IssueListLimit: 10})

	if issues := e.AvailableIssues(context.Background(), "eceps", ""); len(issues) != 0 {
		t.Errorf("expected no issues on error, got %d", len(issues))
	}

	fs.issuesErr = nil
	fs.issuesList = []time.Time{fs.issue}
	if issues := e.AvailableIssues(context.Background(), "eceps", "FR"); len(issues) != 1 {
		t.Errorf("expected 1 issue, got %d", len(issues))
	}
}

func TestNewRequest_Validation(t *testing.T) {
	if _, err := NewRequest("nope", nil, nil, "FR"); err == nil {
		t.Error("unknown model should be rejected")
	}
	if _, err := NewRequest("eceps", nil, []string{"f"}, "FR"); err == nil {
		t.Error("malformed country code should be rejected")
	}

	req, err := NewRequest("eceps", nil, []string{"fr", "de"}, "FR")
	if err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}
	if req.Countries[0] != "FR" || req.Countries[1] != "DE" {
		t.Errorf("expected upper-cased countries, got %v", req.Countries)
	}
	if req.Model.Members != 50 {
		t.Errorf("expected registry member count 50, got %d", req.Model.Members)
	}

	defaulted, err := NewRequest("gfsens", nil, nil, "FR")
	if err != nil {
		t.Fatalf("defaulted request rejected: %v", err)
	}
	if len(defaulted.Countries) != 1 || defaulted.Countries[0] != "FR" {
		t.Errorf("expected default country FR, got %v", defaulted.Countries)
	}
}

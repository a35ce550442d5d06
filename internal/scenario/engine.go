package scenario

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hollymaclennan/residual-load-scenarios/internal/aggregate"
	"github.com/hollymaclennan/residual-load-scenarios/internal/publish"
	"github.com/hollymaclennan/residual-load-scenarios/internal/snapshot"
	"github.com/hollymaclennan/residual-load-scenarios/internal/state"
	"github.com/hollymaclennan/residual-load-scenarios/internal/timeseries"
	"github.com/hollymaclennan/residual-load-scenarios/pkg/config"
)

// ForecastStore is the query surface the engine needs from the
// forecast store client.
type ForecastStore interface {
	LatestIssue(ctx context.Context, model, element, location string) (time.Time, bool)
	AvailableIssues(ctx context.Context, model, element, location string, limit int) ([]time.Time, error)
	FetchEnsembleMembers(ctx context.Context, model config.Model, element string, issue time.Time, location string) *timeseries.Frame
	FetchEnsembleByIssueAndTime(ctx context.Context, model config.Model, element string, issue, validStart, validEnd time.Time, location string) *timeseries.Frame
	FetchConsumption(ctx context.Context, location string) *timeseries.Frame
}

// UpdatePublisher announces completed updates; best-effort.
type UpdatePublisher interface {
	PublishUpdate(ctx context.Context, event publish.UpdateEvent) error
}

// RunRecorder mirrors the last successful run to shared state;
// best-effort.
type RunRecorder interface {
	SetLastRun(ctx context.Context, run state.LastRun) error
}

// Metadata describes the engine's most recent successful update.
type Metadata struct {
	RunID      string
	Model      string
	ModelLabel string
	Issue      time.Time
	UpdatedAt  time.Time
	Members    int
	Countries  []string
}

// Bundle is one complete scenario set. It is replaced as a whole on
// every successful update and never mutated in place.
type Bundle struct {
	ResidualScenarios *timeseries.Frame
	Consumption       *timeseries.Frame
	RenewablesEns     *timeseries.Frame
	Metadata          Metadata
}

// Empty reports whether the bundle carries no scenario rows.
func (b *Bundle) Empty() bool {
	return b == nil || b.ResidualScenarios == nil || b.ResidualScenarios.Empty()
}

// Engine orchestrates fetch, aggregation, residual computation and
// publication of scenario bundles. Update is serialized by an internal
// gate; use TryUpdate from concurrent triggers.
type Engine struct {
	store     ForecastStore
	snapshots *snapshot.Writer
	publisher UpdatePublisher
	runs      RunRecorder
	cfg       config.ScenarioConfig

	updateMu sync.Mutex

	mu      sync.RWMutex
	current *Bundle
}

// NewEngine creates an engine. Snapshots, publisher and run recorder
// may be nil; the corresponding step is skipped.
func NewEngine(store ForecastStore, snapshots *snapshot.Writer, publisher UpdatePublisher, runs RunRecorder, cfg config.ScenarioConfig) *Engine {
	return &Engine{
		store:     store,
		snapshots: snapshots,
		publisher: publisher,
		runs:      runs,
		cfg:       cfg,
	}
}

// Current returns the most recent successful bundle, if any.
func (e *Engine) Current() (*Bundle, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.current, e.current != nil
}

// TryUpdate runs an update unless one is already in flight, in which
// case it skips and returns false.
func (e *Engine) TryUpdate(ctx context.Context, req Request) (*Bundle, bool) {
	if !e.updateMu.TryLock() {
		log.Printf("WARN update skipped: another update is in flight (model=%s)", req.Model.Key)
		return nil, false
	}
	defer e.updateMu.Unlock()
	return e.update(ctx, req), true
}

// Update fetches the latest forecasts and recomputes the full scenario
// bundle. It blocks if another update is running. On failure of a
// required source the previous bundle is kept and an empty bundle is
// returned; the numeric path never surfaces an error.
func (e *Engine) Update(ctx context.Context, req Request) *Bundle {
	e.updateMu.Lock()
	defer e.updateMu.Unlock()
	return e.update(ctx, req)
}

func (e *Engine) update(ctx context.Context, req Request) *Bundle {
	log.Printf("Updating residual load scenarios (model=%s, countries=%v)", req.Model.Key, req.Countries)

	// Step 1: renewable ensembles per country, summed
	var renewables []*timeseries.Frame
	for _, country := range req.Countries {
		if f := e.fetchRenewables(ctx, req, country); !f.Empty() {
			renewables = append(renewables, f)
		}
	}
	if len(renewables) == 0 {
		log.Printf("ERROR no renewable ensemble data for countries %v, cannot compute residual loads", req.Countries)
		return &Bundle{}
	}
	renEns := aggregate.SumAcrossCountries(renewables)

	// Step 2: consumption per country, summed
	var consumptionFrames []*timeseries.Frame
	for _, country := range req.Countries {
		if f := e.store.FetchConsumption(ctx, country); !f.Empty() {
			consumptionFrames = append(consumptionFrames, f)
		}
	}
	if len(consumptionFrames) == 0 {
		log.Printf("ERROR no consumption data for countries %v, cannot compute residual loads", req.Countries)
		return &Bundle{}
	}
	consumption := aggregate.SumAcrossCountries(consumptionFrames)

	// Step 3: residual scenarios with ensemble statistics
	residual := ComputeResidualScenarios(consumption, renEns, req.Model)

	// Step 4: resolve the issue actually used for metadata
	issue := e.resolveIssue(ctx, req)

	bundle := &Bundle{
		ResidualScenarios: residual,
		Consumption:       consumption,
		RenewablesEns:     renEns,
		Metadata: Metadata{
			RunID:      uuid.New().String(),
			Model:      req.Model.Key,
			ModelLabel: req.Model.Label,
			Issue:      issue,
			UpdatedAt:  time.Now().UTC(),
			Members:    req.Model.Members,
			Countries:  req.Countries,
		},
	}

	e.persistSnapshots(bundle)
	e.announce(ctx, bundle)

	e.mu.Lock()
	e.current = bundle
	e.mu.Unlock()

	log.Printf("Scenarios updated at %s (run=%s, %d rows)",
		bundle.Metadata.UpdatedAt.Format("2006-01-02 15:04 UTC"), bundle.Metadata.RunID, residual.Len())
	return bundle
}

// fetchRenewables fetches wind and solar ensembles for one country and
// combines them into total-renewables-per-member.
func (e *Engine) fetchRenewables(ctx context.Context, req Request, country string) *timeseries.Frame {
	wind := e.fetchElement(ctx, req, "wind", country)
	solar := e.fetchElement(ctx, req, "solar", country)
	return aggregate.CombineRenewables(wind, solar, req.Model.Members)
}

// fetchElement resolves the issue (explicit or latest) and fetches the
// numeric ensemble members for one element and country.
func (e *Engine) fetchElement(ctx context.Context, req Request, element, country string) *timeseries.Frame {
	issue := time.Time{}
	if req.Issue != nil {
		issue = *req.Issue
	} else {
		latest, ok := e.store.LatestIssue(ctx, req.Model.Key, element, country)
		if !ok {
			return timeseries.New()
		}
		issue = latest
	}
	return e.store.FetchEnsembleMembers(ctx, req.Model, element, issue, country)
}

func (e *Engine) resolveIssue(ctx context.Context, req Request) time.Time {
	if req.Issue != nil {
		return *req.Issue
	}
	if issue, ok := e.store.LatestIssue(ctx, req.Model.Key, "wind", req.Countries[0]); ok {
		return issue
	}
	return time.Time{}
}

// AvailableIssues lists recent forecast issues for the model selector.
// Errors are logged and reported as an empty list.
func (e *Engine) AvailableIssues(ctx context.Context, modelKey, location string) []time.Time {
	if location == "" {
		location = e.cfg.DefaultCountry
	}
	issues, err := e.store.AvailableIssues(ctx, modelKey, "wind", location, e.cfg.IssueListLimit)
	if err != nil {
		log.Printf("ERROR fetching available issues for %s (%s): %v", modelKey, location, err)
		return nil
	}
	return issues
}

// persistSnapshots writes each non-empty table of the bundle to disk;
// per-table best effort, not transactional.
func (e *Engine) persistSnapshots(b *Bundle) {
	if e.snapshots == nil {
		return
	}
	tables := []struct {
		name  string
		frame *timeseries.Frame
	}{
		{"residual_scenarios", b.ResidualScenarios},
		{"consumption", b.Consumption},
		{"renewables_ens", b.RenewablesEns},
	}
	for _, t := range tables {
		if t.frame == nil || t.frame.Empty() {
			continue
		}
		path, err := e.snapshots.Write(b.Metadata.Model, t.name, t.frame, b.Metadata.UpdatedAt)
		if err != nil {
			log.Printf("ERROR saving snapshot %s: %v", t.name, err)
			continue
		}
		log.Printf("Saved %s -> %s", t.name, path)
	}
}

// announce publishes the update event and mirrors run metadata, both
// best-effort.
func (e *Engine) announce(ctx context.Context, b *Bundle) {
	if e.publisher != nil {
		event := publish.UpdateEvent{
			RunID:     b.Metadata.RunID,
			Model:     b.Metadata.Model,
			Issue:     b.Metadata.Issue,
			UpdatedAt: b.Metadata.UpdatedAt,
			Members:   b.Metadata.Members,
			Countries: b.Metadata.Countries,
			Rows:      b.ResidualScenarios.Len(),
		}
		if err := e.publisher.PublishUpdate(ctx, event); err != nil {
			log.Printf("ERROR publishing update event: %v", err)
		}
	}
	if e.runs != nil {
		run := state.LastRun{
			RunID:     b.Metadata.RunID,
			Model:     b.Metadata.Model,
			Issue:     b.Metadata.Issue,
			UpdatedAt: b.Metadata.UpdatedAt,
			Members:   b.Metadata.Members,
			Countries: b.Metadata.Countries,
		}
		if err := e.runs.SetLastRun(ctx, run); err != nil {
			log.Printf("ERROR recording last run: %v", err)
		}
	}
}

package state

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LastRun is the record of the most recent successful scenario update
// for one model, mirrored to Redis so dashboard processes can check
// run freshness without touching the forecast store.
type LastRun struct {
	RunID     string    `json:"run_id"`
	Model     string    `json:"model"`
	Issue     time.Time `json:"issue"`
	UpdatedAt time.Time `json:"updated_at"`
	Members   int       `json:"members"`
	Countries []string  `json:"countries"`
}

// Manager stores last-run records in Redis
type Manager struct {
	redis *redis.Client
}

// NewManager creates a new state manager
func NewManager(redisClient *redis.Client) *Manager {
	return &Manager{redis: redisClient}
}

func key(model string) string {
	return fmt.Sprintf("residual:lastrun:%s", model)
}

// SetLastRun saves the last-run record for a model
func (m *Manager) SetLastRun(ctx context.Context, run LastRun) error {
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to marshal last run: %w", err)
	}

	// Expire stale records so a dead pipeline is visible
	if err := m.redis.Set(ctx, key(run.Model), data, 7*24*time.Hour).Err(); err != nil {
		return fmt.Errorf("failed to set last run in Redis: %w", err)
	}

	return nil
}

// GetLastRun retrieves the last-run record for a model, or nil when no
// update has happened yet.
func (m *Manager) GetLastRun(ctx context.Context, model string) (*LastRun, error) {
	data, err := m.redis.Get(ctx, key(model)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last run from Redis: %w", err)
	}

	var run LastRun
	if err := json.Unmarshal([]byte(data), &run); err != nil {
		return nil, fmt.Errorf("failed to unmarshal last run: %w", err)
	}

	return &run, nil
}

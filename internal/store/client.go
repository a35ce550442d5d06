package store

import (
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/lib/pq"

	"github.com/hollymaclennan/residual-load-scenarios/pkg/config"
)

// Client issues read-only queries against the forecast store and pivots
// long member rows into wide per-member frames. The connection is
// created lazily on first use and pooled according to the database
// configuration.
type Client struct {
	dbCfg config.DatabaseConfig
	cfg   config.StoreConfig

	mu sync.Mutex
	db *sql.DB
}

// NewClient creates a client. No connection is opened until the first
// query runs.
func NewClient(dbCfg config.DatabaseConfig, cfg config.StoreConfig) *Client {
	return &Client{dbCfg: dbCfg, cfg: cfg}
}

// conn returns the pooled database handle, opening it on first use.
func (c *Client) conn() (*sql.DB, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db != nil {
		return c.db, nil
	}

	db, err := sql.Open("postgres", c.dbCfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Pre-flight liveness check
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(c.dbCfg.MaxOpenConns)
	db.SetMaxIdleConns(c.dbCfg.MaxIdleConns)
	db.SetConnMaxLifetime(c.dbCfg.ConnMaxLifetime)

	c.db = db
	return c.db, nil
}

// Close releases the connection pool if one was opened.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	return err
}

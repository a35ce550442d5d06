package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/hollymaclennan/residual-load-scenarios/internal/timeseries"
	"github.com/hollymaclennan/residual-load-scenarios/pkg/config"
)

// Consumption rows carry far fewer points than ensemble fetches; the
// original cap is kept.
const consumptionMaxRows = 500

// LatestIssue returns the most recent issue time present for a
// model/element/location, or false when none exists or the query
// fails. Query failures are logged, never propagated.
func (c *Client) LatestIssue(ctx context.Context, model, element, location string) (time.Time, bool) {
	db, err := c.conn()
	if err != nil {
		log.Printf("ERROR latest issue %s/%s (%s): %v", model, element, location, err)
		return time.Time{}, false
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.QueryTimeout)
	defer cancel()

	query := fmt.Sprintf(`
		SELECT MAX(issue)
		FROM %s
		WHERE location = $1
		  AND model = $2
		  AND element = $3
	`, c.cfg.ForecastTable)

	var issue sql.NullTime
	if err := db.QueryRowContext(ctx, query, location, model, element).Scan(&issue); err != nil {
		log.Printf("ERROR latest issue %s/%s (%s): %v", model, element, location, err)
		return time.Time{}, false
	}
	if !issue.Valid {
		log.Printf("WARN no issues found for %s/%s (%s)", model, element, location)
		return time.Time{}, false
	}
	return issue.Time.UTC(), true
}

// AvailableIssues returns up to limit issue times for a
// model/element/location, newest first.
func (c *Client) AvailableIssues(ctx context.Context, model, element, location string, limit int) ([]time.Time, error) {
	db, err := c.conn()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.QueryTimeout)
	defer cancel()

	query := fmt.Sprintf(`
		SELECT DISTINCT issue
		FROM %s
		WHERE location = $1
		  AND model = $2
		  AND element = $3
		ORDER BY issue DESC
		LIMIT $4
	`, c.cfg.ForecastTable)

	rows, err := db.QueryContext(ctx, query, location, model, element, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query issues: %w", err)
	}
	defer rows.Close()

	var issues []time.Time
	for rows.Next() {
		var issue time.Time
		if err := rows.Scan(&issue); err != nil {
			return nil, err
		}
		issues = append(issues, issue.UTC())
	}
	return issues, rows.Err()
}

// FetchEnsembleMembers fetches the numeric ensemble members for one
// issue and pivots them wide, one ens_NN column per member. The query
// is bounded to the recent lookback window and capped to protect the
// store from unbounded scans. Returns an empty frame when no rows
// match or the query fails.
func (c *Client) FetchEnsembleMembers(ctx context.Context, model config.Model, element string, issue time.Time, location string) *timeseries.Frame {
	members := make([]string, model.Members)
	for i := range members {
		members[i] = strconv.Itoa(i + 1)
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -c.cfg.LookbackDays)

	query := fmt.Sprintf(`
		SELECT utc_datetime, member, value
		FROM %s
		WHERE location = $1
		  AND model = $2
		  AND element = $3
		  AND issue = $4
		  AND member = ANY($5)
		  AND utc_datetime >= $6
		ORDER BY utc_datetime, member
		LIMIT $7
	`, c.cfg.ForecastTable)

	rows := c.queryMemberRows(ctx, query,
		location, model.Key, element, issue, pq.Array(members), cutoff, c.cfg.MaxRows)
	if len(rows) == 0 {
		log.Printf("WARN no ensemble data for %s/%s issue=%s (%s)", model.Key, element, issue.Format(time.RFC3339), location)
		return timeseries.New()
	}

	f := renameMembers(pivotMembers(rows))
	log.Printf("Fetched %s ensembles (%s): %d hours x %d members", element, model.Key, f.Len(), len(f.Columns()))
	return f
}

// FetchPercentileMembers fetches the pre-labeled percentile and special
// members for one issue, pivoted wide with the labels kept as column
// names.
func (c *Client) FetchPercentileMembers(ctx context.Context, model config.Model, element string, issue time.Time, location string) *timeseries.Frame {
	labels := append(append([]string(nil), config.PercentileMembers...), config.SpecialMembers...)

	query := fmt.Sprintf(`
		SELECT utc_datetime, member, value
		FROM %s
		WHERE location = $1
		  AND model = $2
		  AND element = $3
		  AND issue = $4
		  AND member = ANY($5)
		ORDER BY utc_datetime, member
		LIMIT $6
	`, c.cfg.ForecastTable)

	rows := c.queryMemberRows(ctx, query,
		location, model.Key, element, issue, pq.Array(labels), c.cfg.MaxRows)
	if len(rows) == 0 {
		log.Printf("WARN no percentile data for %s/%s issue=%s (%s)", model.Key, element, issue.Format(time.RFC3339), location)
		return timeseries.New()
	}

	// Keep the configured label order for the columns that came back.
	f := pivotMembers(rows)
	return f.Select(labels...)
}

// FetchEnsembleByIssueAndTime fetches all members of one issue within
// an explicit valid-time window and appends a per-row ens_mean column.
// Used for comparing forecasts from different issues at the same valid
// times.
func (c *Client) FetchEnsembleByIssueAndTime(ctx context.Context, model config.Model, element string, issue, validStart, validEnd time.Time, location string) *timeseries.Frame {
	query := fmt.Sprintf(`
		SELECT utc_datetime, member, value
		FROM %s
		WHERE location = $1
		  AND model = $2
		  AND element = $3
		  AND issue = $4
		  AND utc_datetime >= $5
		  AND utc_datetime <= $6
		ORDER BY utc_datetime, member
		LIMIT $7
	`, c.cfg.ForecastTable)

	rows := c.queryMemberRows(ctx, query,
		location, model.Key, element, issue, validStart, validEnd, c.cfg.MaxRows)
	if len(rows) == 0 {
		log.Printf("WARN no %s data for %s issue=%s (%s)", element, model.Key, issue.Format(time.RFC3339), location)
		return timeseries.New()
	}

	f := renameMembers(pivotMembers(rows))

	var ensCols []string
	for _, col := range f.Columns() {
		if strings.HasPrefix(col, "ens_") {
			ensCols = append(ensCols, col)
		}
	}
	f.AddColumn("ens_mean", f.RowApply(ensCols, timeseries.Mean))

	log.Printf("Fetched %s for issue %s: %d times", element, issue.Format(time.RFC3339), f.Len())
	return f
}

// FetchConsumption fetches the working consumption series for a
// country: the latest forecast value where present, the actual
// otherwise. Country codes are matched case-insensitively. Returns an
// empty frame on failure.
func (c *Client) FetchConsumption(ctx context.Context, location string) *timeseries.Frame {
	db, err := c.conn()
	if err != nil {
		log.Printf("ERROR consumption fetch (%s): %v", location, err)
		return timeseries.New()
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.QueryTimeout)
	defer cancel()

	cutoff := time.Now().UTC().AddDate(0, 0, -c.cfg.LookbackDays)

	query := fmt.Sprintf(`
		SELECT utc_datetime,
		       COALESCE(consumption_fcst_latest, consumption_act) AS consumption_mw
		FROM %s
		WHERE LOWER(country) = $1
		  AND utc_datetime >= $2
		ORDER BY utc_datetime DESC
		LIMIT $3
	`, c.cfg.ConsumptionTable)

	rows, err := db.QueryContext(ctx, query, strings.ToLower(location), cutoff, consumptionMaxRows)
	if err != nil {
		log.Printf("ERROR consumption fetch (%s): %v", location, err)
		return timeseries.New()
	}
	defer rows.Close()

	b := timeseries.NewBuilder()
	for rows.Next() {
		var ts time.Time
		var value sql.NullFloat64
		if err := rows.Scan(&ts, &value); err != nil {
			log.Printf("ERROR consumption scan (%s): %v", location, err)
			return timeseries.New()
		}
		if value.Valid {
			b.SetFirst(ts.UTC(), "consumption_mw", value.Float64)
		}
	}
	if err := rows.Err(); err != nil {
		log.Printf("ERROR consumption fetch (%s): %v", location, err)
		return timeseries.New()
	}

	f := b.Frame()
	if f.Empty() {
		log.Printf("WARN no consumption data found for %s", location)
		return f
	}
	log.Printf("Fetched consumption for %s: %d hourly points", location, f.Len())
	return f
}

// queryMemberRows runs a long-format member query under the configured
// timeout and returns its rows in query order. Failures are logged and
// yield nil.
func (c *Client) queryMemberRows(ctx context.Context, query string, args ...interface{}) []memberRow {
	db, err := c.conn()
	if err != nil {
		log.Printf("ERROR forecast store query: %v", err)
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.QueryTimeout)
	defer cancel()

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Printf("ERROR forecast store query: %v", err)
		return nil
	}
	defer rows.Close()

	var out []memberRow
	for rows.Next() {
		var r memberRow
		var value sql.NullFloat64
		if err := rows.Scan(&r.Time, &r.Member, &value); err != nil {
			log.Printf("ERROR forecast store scan: %v", err)
			return nil
		}
		if !value.Valid {
			continue
		}
		r.Value = value.Float64
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		log.Printf("ERROR forecast store rows: %v", err)
		return nil
	}
	return out
}

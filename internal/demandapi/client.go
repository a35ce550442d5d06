package demandapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hollymaclennan/residual-load-scenarios/internal/timeseries"
	"github.com/hollymaclennan/residual-load-scenarios/pkg/config"
)

// Client talks to the alternate demand-forecast API. It produces the
// same wide frame shapes the scenario engine consumes, so a demand
// ensemble from here can stand in for the store-backed consumption
// series. Unlike the forecast store client this boundary returns
// errors: it is not in the update path.
type Client struct {
	cfg  config.DemandAPIConfig
	http *http.Client

	token       string
	tokenExpiry time.Time
}

// NewClient creates a client using the configured request timeout.
func NewClient(cfg config.DemandAPIConfig) *Client {
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.RequestTimeout},
	}
}

// authenticate fetches an OAuth2 client-credentials token, reusing the
// cached one until shortly before expiry.
func (c *Client) authenticate(ctx context.Context) error {
	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return nil
	}

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("token request returned %s", resp.Status)
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("failed to decode token response: %w", err)
	}
	if body.ExpiresIn == 0 {
		body.ExpiresIn = 3600
	}

	c.token = body.AccessToken
	// Renew a minute early to avoid using a token mid-expiry
	c.tokenExpiry = time.Now().Add(time.Duration(body.ExpiresIn-60) * time.Second)
	return nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if err := c.authenticate(ctx); err != nil {
		return nil, err
	}

	u := c.cfg.BaseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("request %s returned %s", path, resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// curveID resolves a curve name to its ID: exact name match preferred,
// first search result otherwise.
func (c *Client) curveID(ctx context.Context, name string) (int, error) {
	data, err := c.get(ctx, "/curves", url.Values{"query": {name}})
	if err != nil {
		return 0, err
	}

	var curves []struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &curves); err != nil {
		return 0, fmt.Errorf("failed to decode curve search: %w", err)
	}
	if len(curves) == 0 {
		return 0, fmt.Errorf("no curve found matching %q", name)
	}
	for _, curve := range curves {
		if strings.EqualFold(curve.Name, name) {
			return curve.ID, nil
		}
	}
	log.Printf("WARN no exact match for curve %q, using %q", name, curves[0].Name)
	return curves[0].ID, nil
}

func (c *Client) fetchLatestInstance(ctx context.Context, curveName string, issue *time.Time) ([]byte, error) {
	curveID, err := c.curveID(ctx, curveName)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	params := url.Values{
		"from": {now.Format("2006-01-02T15:04:05Z")},
		"to":   {now.AddDate(0, 0, c.cfg.HorizonDays).Format("2006-01-02T15:04:05Z")},
	}
	if issue != nil {
		params.Set("issue_date", issue.UTC().Format("2006-01-02T15:04:05Z"))
	}

	return c.get(ctx, fmt.Sprintf("/instances/%d/latest", curveID), params)
}

// DemandForecast fetches the deterministic demand forecast as a single
// demand_mw column.
func (c *Client) DemandForecast(ctx context.Context, issue *time.Time) (*timeseries.Frame, error) {
	data, err := c.fetchLatestInstance(ctx, c.cfg.ForecastCurve, issue)
	if err != nil {
		return nil, err
	}
	f, err := parseScalarPoints(data, "demand_mw")
	if err != nil {
		return nil, err
	}
	log.Printf("Fetched demand forecast: %d hourly points", f.Len())
	return f, nil
}

// DemandEnsembles fetches the ensemble demand forecast as ens_NN
// columns, one per scenario.
func (c *Client) DemandEnsembles(ctx context.Context, issue *time.Time) (*timeseries.Frame, error) {
	data, err := c.fetchLatestInstance(ctx, c.cfg.EnsembleCurve, issue)
	if err != nil {
		return nil, err
	}
	f, err := parseEnsemblePoints(data)
	if err != nil {
		return nil, err
	}
	log.Printf("Fetched demand ensembles: %d rows x %d members", f.Len(), len(f.Columns()))
	return f, nil
}

// DemandPercentiles derives percentile scenarios plus mean and median
// from the ensemble demand forecast.
func (c *Client) DemandPercentiles(ctx context.Context, percentiles []int, issue *time.Time) (*timeseries.Frame, error) {
	ensembles, err := c.DemandEnsembles(ctx, issue)
	if err != nil {
		return nil, err
	}
	if ensembles.Empty() {
		return timeseries.New(), nil
	}

	var ensCols []string
	for _, col := range ensembles.Columns() {
		if strings.HasPrefix(col, "ens_") {
			ensCols = append(ensCols, col)
		}
	}

	result := ensembles.Select()
	for _, p := range percentiles {
		pct := float64(p)
		result.AddColumn(fmt.Sprintf("demand_%d%%", p), ensembles.RowApply(ensCols, func(row []float64) float64 {
			return timeseries.Percentile(row, pct)
		}))
	}
	result.AddColumn("demand_mean", ensembles.RowApply(ensCols, timeseries.Mean))
	result.AddColumn("demand_median", ensembles.RowApply(ensCols, func(row []float64) float64 {
		return timeseries.Percentile(row, 50)
	}))
	return result, nil
}

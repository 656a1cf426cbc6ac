// Package apifootball provides a client for the API-Football v3 REST API.
package apifootball

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/jbot-sports/goalsentry/internal/models"
)

// ClientConfig holds tunables for the HTTP client behavior.
type ClientConfig struct {
	MaxRetries        int
	RetryDelayBase    time.Duration
	RequestsPerMinute int
}

// Client provides access to the API-Football v3 API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	config     ClientConfig
}

// NewClient creates a new API-Football client. The rate limiter guards the
// plan's request quota across all endpoints.
func NewClient(baseURL, apiKey string, timeout time.Duration, cfg ClientConfig) *Client {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelayBase <= 0 {
		cfg.RetryDelayBase = time.Second
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 300
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), cfg.RequestsPerMinute/10+1),
		config:     cfg,
	}
}

// fixtureEntry mirrors one element of the /fixtures response array.
// Goals are pointers: the API reports null before kickoff.
type fixtureEntry struct {
	Fixture struct {
		ID     int    `json:"id"`
		Date   string `json:"date"`
		Status struct {
			Short   string `json:"short"`
			Elapsed *int   `json:"elapsed"`
		} `json:"status"`
	} `json:"fixture"`
	Teams struct {
		Home struct {
			Name string `json:"name"`
		} `json:"home"`
		Away struct {
			Name string `json:"name"`
		} `json:"away"`
	} `json:"teams"`
	Goals struct {
		Home *int `json:"home"`
		Away *int `json:"away"`
	} `json:"goals"`
}

type fixturesResponse struct {
	Response []fixtureEntry `json:"response"`
}

// statisticsResponse mirrors /fixtures/statistics: one entry per side, each
// with a list of typed values. Values can be null or strings ("55%"), so they
// decode as any and default to zero when not numeric.
type statisticsResponse struct {
	Response []struct {
		Statistics []struct {
			Type  string `json:"type"`
			Value any    `json:"value"`
		} `json:"statistics"`
	} `json:"response"`
}

func (e *fixtureEntry) toSnapshot(now time.Time) models.FixtureSnapshot {
	snap := models.FixtureSnapshot{
		FixtureID: e.Fixture.ID,
		Status:    e.Fixture.Status.Short,
		HomeTeam:  e.Teams.Home.Name,
		AwayTeam:  e.Teams.Away.Name,
		SeenAt:    now,
	}
	if e.Fixture.Status.Elapsed != nil {
		snap.Elapsed = *e.Fixture.Status.Elapsed
	}
	if e.Goals.Home != nil {
		snap.HomeGoals = *e.Goals.Home
	}
	if e.Goals.Away != nil {
		snap.AwayGoals = *e.Goals.Away
	}
	if kick, err := time.Parse(time.RFC3339, e.Fixture.Date); err == nil {
		snap.Kickoff = kick
	}
	return snap
}

// LiveFixtures retrieves all fixtures currently in play.
func (c *Client) LiveFixtures(ctx context.Context) ([]models.FixtureSnapshot, error) {
	body, err := c.get(ctx, "/fixtures", url.Values{"live": {"all"}})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch live fixtures: %w", err)
	}

	var resp fixturesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode live fixtures: %w", err)
	}

	now := time.Now()
	fixtures := make([]models.FixtureSnapshot, 0, len(resp.Response))
	for i := range resp.Response {
		snap := resp.Response[i].toSnapshot(now)
		if err := snap.Validate(); err != nil {
			continue
		}
		fixtures = append(fixtures, snap)
	}
	return fixtures, nil
}

// FixtureStatistics retrieves the cumulative statistic totals for one
// fixture, summed over both sides. Unknown stat types are ignored.
func (c *Client) FixtureStatistics(ctx context.Context, fixtureID int) (models.StatTotals, error) {
	var totals models.StatTotals

	body, err := c.get(ctx, "/fixtures/statistics", url.Values{"fixture": {fmt.Sprintf("%d", fixtureID)}})
	if err != nil {
		return totals, fmt.Errorf("failed to fetch statistics for fixture %d: %w", fixtureID, err)
	}

	var resp statisticsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return totals, fmt.Errorf("failed to decode statistics for fixture %d: %w", fixtureID, err)
	}

	for _, side := range resp.Response {
		for _, stat := range side.Statistics {
			v := numericValue(stat.Value)
			switch strings.ToLower(stat.Type) {
			case "total shots", "shots total":
				totals.Shots += v
			case "shots on target", "shots on goal":
				totals.ShotsOnGoal += v
			case "corner kicks", "corners":
				totals.Corners += v
			case "red cards":
				totals.RedCards += v
			}
		}
	}
	return totals, nil
}

// FixturesByDate retrieves fixtures for a league on a given UTC date.
func (c *Client) FixturesByDate(ctx context.Context, leagueID, season int, date time.Time) ([]models.FixtureSnapshot, error) {
	params := url.Values{
		"league": {fmt.Sprintf("%d", leagueID)},
		"season": {fmt.Sprintf("%d", season)},
		"date":   {date.UTC().Format("2006-01-02")},
	}
	body, err := c.get(ctx, "/fixtures", params)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch fixtures for league %d: %w", leagueID, err)
	}

	var resp fixturesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode fixtures for league %d: %w", leagueID, err)
	}

	now := time.Now()
	fixtures := make([]models.FixtureSnapshot, 0, len(resp.Response))
	for i := range resp.Response {
		snap := resp.Response[i].toSnapshot(now)
		if err := snap.Validate(); err != nil {
			continue
		}
		fixtures = append(fixtures, snap)
	}
	return fixtures, nil
}

// numericValue coerces an API stat value to int. The feed mixes numbers,
// nulls, and percentage strings; anything non-numeric counts as zero.
func numericValue(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	default:
		return 0
	}
}

// get performs a rate-limited GET with linear-backoff retries and returns
// the response body. Retries cover transport errors, 5xx, and 429.
func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	u.RawQuery = params.Encode()

	var lastErr error
	for attempt := 0; attempt < c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.config.RetryDelayBase * time.Duration(attempt)):
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("x-apisports-key", c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			lastErr = fmt.Errorf("API returned status %d", resp.StatusCode)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		return body, nil
	}
	return nil, fmt.Errorf("request failed after %d attempts: %w", c.config.MaxRetries, lastErr)
}

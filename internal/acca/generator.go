package acca

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jbot-sports/goalsentry/internal/logger"
	"github.com/jbot-sports/goalsentry/internal/models"
)

// FixtureSource is the slice of the data client the generator needs.
type FixtureSource interface {
	FixturesByDate(ctx context.Context, leagueID, season int, date time.Time) ([]models.FixtureSnapshot, error)
}

// Fold is one accumulator size with its target odds-product range.
type Fold struct {
	Title string
	Size  int
	Min   float64
	Max   float64
	Badge string
}

// Config holds accumulator generation settings.
type Config struct {
	Season          int
	Stake           float64
	Bookmaker       string
	MajorLeagues    []int
	FallbackLeagues []int
	MinFixtures     int
	RetryBudget     int
	OddsMin         float64
	OddsMax         float64
	Folds           []Fold
}

// DefaultFolds returns the standard 4/7/10-fold slate.
func DefaultFolds() []Fold {
	return []Fold{
		{Title: "4-Fold (safer)", Size: 4, Min: 2.6, Max: 3.8, Badge: "🔵"},
		{Title: "7-Fold (balanced)", Size: 7, Min: 5.0, Max: 7.5, Badge: "🟡"},
		{Title: "10-Fold (longshot)", Size: 10, Min: 25.0, Max: 40.0, Badge: "🔴"},
	}
}

// ErrNotEnoughFixtures signals the candidate pool was too small for the
// configured slate.
var ErrNotEnoughFixtures = errors.New("not enough priced fixtures for accumulators")

// candidate markets for leg pricing; odds are drawn from the configured
// band since real odds-market integration is out of scope.
var legMarkets = []string{
	"Home Win",
	"Away Win",
	"Over 1.5",
	"Over 2.5",
	"BTTS: Yes",
	"Double Chance 1X",
}

// Generator turns the day's fixtures into priced legs and accumulator slips.
type Generator struct {
	source   FixtureSource
	selector *Selector
	config   Config

	mu sync.Mutex // the selector rng is shared by the cron and command triggers
}

// NewGenerator creates a generator over the given fixture source.
func NewGenerator(source FixtureSource, config Config) *Generator {
	if len(config.Folds) == 0 {
		config.Folds = DefaultFolds()
	}
	if config.MinFixtures < 1 {
		config.MinFixtures = 12
	}
	return &Generator{
		source:   source,
		selector: NewSelector(config.RetryBudget),
		config:   config,
	}
}

// CollectLegs gathers today's not-yet-started fixtures from the major
// leagues, expanding to the fallback leagues when the pool is thin. A failed
// league fetch is logged and skipped, never fatal.
func (g *Generator) CollectLegs(ctx context.Context, now time.Time) []models.Leg {
	fixtures := g.collectLeagues(ctx, g.config.MajorLeagues, now)
	if len(fixtures) < g.config.MinFixtures {
		logger.Info("Only %d fixtures from major leagues, expanding to fallback leagues", len(fixtures))
		fixtures = append(fixtures, g.collectLeagues(ctx, g.config.FallbackLeagues, now)...)
	}

	legs := make([]models.Leg, 0, len(fixtures))
	for i := range fixtures {
		legs = append(legs, g.priceLeg(&fixtures[i]))
	}
	return legs
}

func (g *Generator) collectLeagues(ctx context.Context, leagues []int, now time.Time) []models.FixtureSnapshot {
	var out []models.FixtureSnapshot
	for _, leagueID := range leagues {
		fixtures, err := g.source.FixturesByDate(ctx, leagueID, g.config.Season, now)
		if err != nil {
			logger.Warn("Fixture fetch failed for league %d: %v", leagueID, err)
			continue
		}
		for _, f := range fixtures {
			switch f.Status {
			case "NS", "TBD", "PST":
				out = append(out, f)
			}
		}
	}
	return out
}

// priceLeg assigns a market label and odds inside the configured band.
func (g *Generator) priceLeg(f *models.FixtureSnapshot) models.Leg {
	odds := g.config.OddsMin + g.selector.rng.Float64()*(g.config.OddsMax-g.config.OddsMin)
	return models.Leg{
		FixtureID: f.FixtureID,
		Match:     f.Match(),
		Label:     legMarkets[g.selector.rng.Intn(len(legMarkets))],
		Odds:      roundOdds(odds),
		Kickoff:   f.Kickoff,
		Bookmaker: g.config.Bookmaker,
	}
}

// BuildSlips assembles one slip per configured fold. A pool smaller than a
// fold's size degrades to fewer legs rather than failing.
func (g *Generator) BuildSlips(legs []models.Leg) []models.Slip {
	slips := make([]models.Slip, 0, len(g.config.Folds))
	for _, fold := range g.config.Folds {
		picks, product, inRange := g.selector.Select(legs, fold.Size, fold.Min, fold.Max)
		if len(picks) == 0 {
			continue
		}
		if !inRange {
			logger.Debug("Fold %q settled outside target range: product=%.2f", fold.Title, product)
		}
		slips = append(slips, models.Slip{
			Title:   fold.Badge + " " + fold.Title,
			Legs:    picks,
			Product: product,
			Stake:   g.config.Stake,
			InRange: inRange,
		})
	}
	return slips
}

// Generate runs the full pipeline for the given day. Concurrent calls are
// serialized: the scheduled run and the chat command may fire together.
func (g *Generator) Generate(ctx context.Context, now time.Time) ([]models.Slip, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	legs := g.CollectLegs(ctx, now)
	if len(legs) < g.config.MinFixtures {
		return nil, ErrNotEnoughFixtures
	}
	return g.BuildSlips(legs), nil
}

func roundOdds(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}

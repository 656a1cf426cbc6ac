// Package acca assembles daily accumulator slips: leg collection, pricing,
// and best-effort selection of combinations inside a target odds range.
package acca

import (
	"math"
	"math/rand"
	"time"

	"github.com/jbot-sports/goalsentry/internal/models"
)

// Selector picks leg combinations by bounded-retry random sampling. This is
// a best-effort heuristic: after the retry budget it falls back to the
// closest attempt rather than guaranteeing a product inside the range.
type Selector struct {
	rng    *rand.Rand
	budget int
}

// NewSelector creates a selector with the given retry budget.
func NewSelector(retryBudget int) *Selector {
	if retryBudget < 1 {
		retryBudget = 1
	}
	return &Selector{
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		budget: retryBudget,
	}
}

// Select samples n legs without replacement until their odds product lands
// in [targetMin, targetMax]. When the pool holds fewer than n legs it
// degrades to the whole pool. The returned flag reports whether the product
// is inside the target range.
func (s *Selector) Select(pool []models.Leg, n int, targetMin, targetMax float64) ([]models.Leg, float64, bool) {
	if len(pool) == 0 || n <= 0 {
		return nil, 0, false
	}
	if n > len(pool) {
		n = len(pool)
	}

	var (
		bestPicks   []models.Leg
		bestProduct float64
		bestDist    = math.MaxFloat64
	)

	for attempt := 0; attempt < s.budget; attempt++ {
		picks := s.sample(pool, n)
		product := oddsProduct(picks)

		if product >= targetMin && product <= targetMax {
			return picks, product, true
		}

		dist := rangeDistance(product, targetMin, targetMax)
		if dist < bestDist {
			bestDist = dist
			bestPicks = picks
			bestProduct = product
		}
	}

	return bestPicks, bestProduct, false
}

// sample draws n distinct legs via a partial Fisher-Yates shuffle.
func (s *Selector) sample(pool []models.Leg, n int) []models.Leg {
	idx := s.rng.Perm(len(pool))[:n]
	picks := make([]models.Leg, n)
	for i, j := range idx {
		picks[i] = pool[j]
	}
	return picks
}

func oddsProduct(legs []models.Leg) float64 {
	product := 1.0
	for _, leg := range legs {
		product *= leg.Odds
	}
	return product
}

func rangeDistance(v, lo, hi float64) float64 {
	switch {
	case v < lo:
		return lo - v
	case v > hi:
		return v - hi
	default:
		return 0
	}
}

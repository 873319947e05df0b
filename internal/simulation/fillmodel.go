// Package simulation implements the deterministic simulated venue: a
// per-symbol matching policy over quote ticks, perturbed by a seeded
// probabilistic fill model.
package simulation

import (
	"math/rand"

	"tradesim/internal/model"
	"tradesim/pkg/apperrors"
)

// FillModel decides probabilistic fill outcomes. Both probabilities are
// independent Bernoulli draws from one seeded source; the draw order is fixed
// (fill-at-limit first, then slippage) so replays with the same seed yield
// the same outcomes.
type FillModel struct {
	probFillAtLimit float64
	probSlippage    float64
	rng             *rand.Rand

	partialQueue []model.Quantity
}

// NewFillModel creates a fill model from probabilities in [0, 1] and a seed.
func NewFillModel(probFillAtLimit, probSlippage float64, seed int64) (*FillModel, error) {
	if probFillAtLimit < 0 || probFillAtLimit > 1 {
		return nil, apperrors.Invalid("prob_fill_at_limit must be in [0, 1] (was %f)", probFillAtLimit)
	}
	if probSlippage < 0 || probSlippage > 1 {
		return nil, apperrors.Invalid("prob_slippage must be in [0, 1] (was %f)", probSlippage)
	}
	return &FillModel{
		probFillAtLimit: probFillAtLimit,
		probSlippage:    probSlippage,
		rng:             rand.New(rand.NewSource(seed)),
	}, nil
}

// NewDeterministicFillModel always fills at the passive price with no
// slippage.
func NewDeterministicFillModel() *FillModel {
	m, _ := NewFillModel(1, 0, 0)
	return m
}

// IsFilledAtLimit draws whether a triggered passive order fills at its own
// price rather than at the market.
func (m *FillModel) IsFilledAtLimit() bool {
	return m.draw(m.probFillAtLimit)
}

// IsSlipped draws whether one tick of slippage applies in the worst
// direction.
func (m *FillModel) IsSlipped() bool {
	return m.draw(m.probSlippage)
}

func (m *FillModel) draw(probability float64) bool {
	if probability >= 1 {
		// Keep the stream position stable regardless of the probability.
		m.rng.Float64()
		return true
	}
	if probability <= 0 {
		m.rng.Float64()
		return false
	}
	return m.rng.Float64() < probability
}

// QueuePartialFill schedules the next triggered fill to execute the given
// quantity instead of the full leaves. A zero quantity means no fill on that
// trigger.
func (m *FillModel) QueuePartialFill(quantity model.Quantity) {
	m.partialQueue = append(m.partialQueue, quantity)
}

// NextFillQuantity returns the quantity to execute for a triggered order with
// the given leaves. Without a queued partial, the full leaves fill.
func (m *FillModel) NextFillQuantity(leaves model.Quantity) model.Quantity {
	if len(m.partialQueue) == 0 {
		return leaves
	}
	next := m.partialQueue[0]
	m.partialQueue = m.partialQueue[1:]
	if next.Cmp(leaves.Decimal64) > 0 {
		return leaves
	}
	return next
}

package consensus

import (
	"math"
	"math/rand"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// AnnealConfig is the simulated annealing schedule used to reorder a
// consensus matrix when no merge tree is available. Start with
// [DefaultAnnealConfig] and override the fields you need.
type AnnealConfig struct {
	// InitialTemperature is the starting temperature. Default: 0.5.
	InitialTemperature float64

	// MaxIterations caps the number of proposals. Default: 4,000,000.
	MaxIterations int

	// Stagnation stops the search once this many consecutive iterations
	// produced no new best order. Default: 100,000.
	Stagnation int

	// RampInterval, RampUntil, RampAcceptance and RampStep heat the system
	// early on: every RampInterval iterations before RampUntil, if the
	// cumulative acceptance rate is below RampAcceptance, the temperature is
	// raised by RampStep. Defaults: 2000, 25000, 0.1, 1.
	RampInterval   int
	RampUntil      int
	RampAcceptance float64
	RampStep       float64

	// Every CoolInterval iterations the temperature is multiplied by
	// CoolFactor. Defaults: 25000, 0.90.
	CoolInterval int
	CoolFactor   float64
}

// DefaultAnnealConfig returns the standard schedule.
func DefaultAnnealConfig() AnnealConfig {
	return AnnealConfig{
		InitialTemperature: 0.5,
		MaxIterations:      4_000_000,
		Stagnation:         100_000,
		RampInterval:       2000,
		RampUntil:          25_000,
		RampAcceptance:     0.1,
		RampStep:           1,
		CoolInterval:       25_000,
		CoolFactor:         0.90,
	}
}

// applyDefaults fills in zero-valued schedule fields.
func (c *AnnealConfig) applyDefaults() {
	d := DefaultAnnealConfig()
	if c.InitialTemperature == 0 {
		c.InitialTemperature = d.InitialTemperature
	}
	if c.MaxIterations == 0 {
		c.MaxIterations = d.MaxIterations
	}
	if c.Stagnation == 0 {
		c.Stagnation = d.Stagnation
	}
	if c.RampInterval == 0 {
		c.RampInterval = d.RampInterval
	}
	if c.RampUntil == 0 {
		c.RampUntil = d.RampUntil
	}
	if c.RampAcceptance == 0 {
		c.RampAcceptance = d.RampAcceptance
	}
	if c.RampStep == 0 {
		c.RampStep = d.RampStep
	}
	if c.CoolInterval == 0 {
		c.CoolInterval = d.CoolInterval
	}
	if c.CoolFactor == 0 {
		c.CoolFactor = d.CoolFactor
	}
}

// AnnealResult is the best order found by Anneal.
type AnnealResult struct {
	Order      []int
	Energy     float64
	Iterations int
}

// OrderEnergy scores a presentation order: the squared sum of the
// similarities of adjacent items.
func OrderEnergy(sim mat.Symmetric, order []int) float64 {
	var sum float64
	for i := 0; i+1 < len(order); i++ {
		sum += sim.At(order[i], order[i+1])
	}
	return sum * sum
}

// Anneal searches for a high-energy order of the rows of sim starting from
// start, which is not modified. A proposal moves the item at the larger of
// two random distinct positions to the smaller one, shifting the items in
// between. The acceptance rule is:
//
//   - a proposal with lower energy than the current order is kept only with
//     probability exp((new-current)/temperature), otherwise undone;
//   - any other proposal is kept, and recorded as the best order when its
//     energy exceeds the best seen so far.
//
// The chain is sequential and must not be split across goroutines. The best
// order seen is returned, not the last one.
func Anneal(sim mat.Symmetric, start []int, cfg AnnealConfig, rng *rand.Rand, logger *zap.Logger) AnnealResult {
	cfg.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}

	order := append([]int(nil), start...)
	n := len(order)
	current := OrderEnergy(sim, order)
	best := AnnealResult{Order: append([]int(nil), order...), Energy: current}
	if n < 2 {
		return best
	}

	logger.Debug("annealing started", zap.Float64("energy", current), zap.Int("items", n))

	temp := cfg.InitialTemperature
	notAccepted, lastBest := 0, 0
	i := 1
	for ; i <= cfg.MaxIterations; i++ {
		a, b := rng.Intn(n), rng.Intn(n)
		for a == b {
			a, b = rng.Intn(n), rng.Intn(n)
		}
		lo, hi := min(a, b), max(a, b)
		moveDown(order, lo, hi)
		proposed := OrderEnergy(sim, order)

		if i%cfg.RampInterval == 0 && i < cfg.RampUntil {
			if float64(i-notAccepted)/float64(i) < cfg.RampAcceptance {
				temp += cfg.RampStep
				logger.Debug("annealing heated",
					zap.Int("iteration", i),
					zap.Float64("temperature", temp))
			}
		}
		if i%cfg.CoolInterval == 0 {
			temp *= cfg.CoolFactor
			logger.Debug("annealing cooled",
				zap.Int("iteration", i),
				zap.Float64("temperature", temp),
				zap.Float64("acceptance", float64(i-notAccepted)/float64(i)))
		}

		if proposed < current {
			if rng.Float64() > math.Exp((proposed-current)/temp) {
				moveUp(order, lo, hi)
				notAccepted++
			} else {
				current = proposed
			}
		} else {
			current = proposed
			if proposed > best.Energy {
				best.Energy = proposed
				copy(best.Order, order)
				lastBest = i
			}
		}

		if i-lastBest > cfg.Stagnation {
			break
		}
	}
	best.Iterations = min(i, cfg.MaxIterations)

	logger.Debug("annealing finished",
		zap.Float64("energy", best.Energy),
		zap.Int("iterations", best.Iterations),
		zap.Float64("acceptance", float64(best.Iterations-notAccepted)/float64(best.Iterations)))
	return best
}

// moveDown moves order[hi] to position lo, shifting order[lo:hi] right.
func moveDown(order []int, lo, hi int) {
	v := order[hi]
	copy(order[lo+1:hi+1], order[lo:hi])
	order[lo] = v
}

// moveUp undoes moveDown.
func moveUp(order []int, lo, hi int) {
	v := order[lo]
	copy(order[lo:hi], order[lo+1:hi+1])
	order[hi] = v
}

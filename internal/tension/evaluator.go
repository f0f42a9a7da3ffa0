package tension

import (
	"math"
	"time"
)

// #region evaluator

// Evaluator combines heat, elapsed time and alert into a tension value.
// It holds only configuration, so a single instance may be shared across goroutines.
type Evaluator struct {
	heatW, timeW, alertW float64
	interval             Curve
	aggression           Curve
}

// NewEvaluator normalizes the configured weights so they sum to 1.
// Negative weights count as zero; an all-zero set falls back to the defaults.
// Missing curves fall back to the defaults as well.
func NewEvaluator(config Config) *Evaluator {
	def := DefaultConfig()

	hw := math.Max(0, config.HeatWeight)
	tw := math.Max(0, config.TimeWeight)
	aw := math.Max(0, config.AlertWeight)
	sum := hw + tw + aw
	if sum == 0 || math.IsNaN(sum) || math.IsInf(sum, 0) {
		hw, tw, aw, sum = def.HeatWeight, def.TimeWeight, def.AlertWeight, 1
	}

	interval := config.SpawnInterval
	if len(interval) == 0 {
		interval = def.SpawnInterval
	}
	aggression := config.Aggression
	if len(aggression) == 0 {
		aggression = def.Aggression
	}

	return &Evaluator{
		heatW:      hw / sum,
		timeW:      tw / sum,
		alertW:     aw / sum,
		interval:   interval,
		aggression: aggression,
	}
}

// #endregion evaluator

// #region evaluate

// Evaluate is a pure function of its inputs. Out-of-range inputs are clamped,
// never rejected: heat/heatCap and elapsed/maxDuration are clamped to [0,1],
// and alertSignal is clamped again even though callers should pre-clamp it.
func (e *Evaluator) Evaluate(heat, heatCap float64, elapsed, maxDuration time.Duration, alertSignal float64) Result {
	hn := ratio(heat, heatCap)
	tn := ratio(elapsed.Seconds(), maxDuration.Seconds())
	an := Clamp01(alertSignal)

	t := Clamp01(e.heatW*hn + e.timeW*tn + e.alertW*an)

	return Result{
		Tension:                 t,
		SpawnIntervalMultiplier: e.interval.At(t),
		SpawnCountMultiplier:    1 + t*2,
		AggressionMultiplier:    e.aggression.At(t),
		Intensity:               Clamp01(0.4 + t*0.6),
		HeatNormalized:          hn,
		TimeNormalized:          tn,
		AlertNormalized:         an,
	}
}

// AddImmediateAlert spikes an alert signal by amount and returns the clamped result.
// Decay is the caller's concern; feed the decayed value back into Evaluate.
func (e *Evaluator) AddImmediateAlert(signal, amount float64) float64 {
	return AddImmediateAlert(signal, amount)
}

// AddImmediateAlert is the package-level form of Evaluator.AddImmediateAlert.
func AddImmediateAlert(signal, amount float64) float64 {
	if math.IsNaN(amount) {
		amount = 0
	}
	return Clamp01(Clamp01(signal) + amount)
}

// Weights returns the normalized heat, time and alert weights.
func (e *Evaluator) Weights() (heatW, timeW, alertW float64) {
	return e.heatW, e.timeW, e.alertW
}

// #endregion evaluate

// #region curve

// At evaluates the curve at x.
func (c Curve) At(x float64) float64 {
	if len(c) == 0 {
		return 1
	}
	if x <= c[0].X {
		return c[0].Y
	}
	last := c[len(c)-1]
	if x >= last.X {
		return last.Y
	}
	for i := 1; i < len(c); i++ {
		hi := c[i]
		if x > hi.X {
			continue
		}
		lo := c[i-1]
		span := hi.X - lo.X
		if span <= 0 {
			return hi.Y
		}
		return lo.Y + (hi.Y-lo.Y)*(x-lo.X)/span
	}
	return last.Y
}

// #endregion curve

// #region helpers

// Clamp01 clamps v to [0,1]; NaN maps to 0.
func Clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ratio returns num/den clamped to [0,1]. A non-positive denominator yields
// 0 for non-positive numerators and 1 otherwise.
func ratio(num, den float64) float64 {
	if den <= 0 || math.IsNaN(den) {
		if num > 0 {
			return 1
		}
		return 0
	}
	return Clamp01(num / den)
}

// #endregion helpers

package tension

// #region point

// Point is one knot of a piecewise-linear curve over tension in [0,1].
type Point struct {
	X float64
	Y float64
}

// Curve maps tension to a multiplier by linear interpolation between knots.
// Knots must be sorted by X. Inputs outside the knot range take the end values.
type Curve []Point

// #endregion point

// #region config

// Config holds weights and output curves for the evaluator.
type Config struct {
	HeatWeight  float64
	TimeWeight  float64
	AlertWeight float64

	SpawnInterval Curve // decreasing: spawns come faster as tension rises
	Aggression    Curve
}

// DefaultConfig returns the 0.6/0.2/0.2 weighting with default curves.
func DefaultConfig() Config {
	return Config{
		HeatWeight:  0.6,
		TimeWeight:  0.2,
		AlertWeight: 0.2,
		SpawnInterval: Curve{
			{X: 0, Y: 1.0},
			{X: 0.5, Y: 0.8},
			{X: 1, Y: 0.4},
		},
		Aggression: Curve{
			{X: 0, Y: 1.0},
			{X: 0.5, Y: 1.4},
			{X: 1, Y: 2.0},
		},
	}
}

// #endregion config

// #region result

// Result is the derived tension signal and the multipliers consumed each tick
// by spawners and AI difficulty.
type Result struct {
	Tension                 float64
	SpawnIntervalMultiplier float64
	SpawnCountMultiplier    float64
	AggressionMultiplier    float64
	Intensity               float64 // music/FX intensity, clamp(0.4 + 0.6*tension)

	// Normalized inputs as used, for debugging.
	HeatNormalized  float64
	TimeNormalized  float64
	AlertNormalized float64
}

// #endregion result

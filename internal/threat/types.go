package threat

// #region config

// AssessorConfig holds the weights used to fold AI-side observations into a threat level.
type AssessorConfig struct {
	RivalWeight  float64
	PoliceWeight float64
	SpeedWeight  float64
	DamageWeight float64
	MaxSpeedKmh  float64
}

// DefaultAssessorConfig returns the weights used by the pursuit AI.
func DefaultAssessorConfig() AssessorConfig {
	return AssessorConfig{
		RivalWeight:  0.45,
		PoliceWeight: 0.35,
		SpeedWeight:  0.15,
		DamageWeight: 0.05,
		MaxSpeedKmh:  220,
	}
}

// #endregion config

// #region input

// Observation is one AI tick's view of the player.
// A nil distance means the actor is absent and contributes nothing.
type Observation struct {
	RivalDistance  *float64
	PoliceDistance *float64
	SpeedKmh       float64
	DamagePct      float64 // 0-1
}

// #endregion input

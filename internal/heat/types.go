package heat

// #region constants

// DefaultCap is the conventional upper bound for mission heat.
const DefaultCap = 100.0

// #endregion constants

// #region entry

// Entry records one heat mutation in call order.
type Entry struct {
	Seq     int     // 0-based sequence index
	Action  string  // action or module name that caused the mutation
	Delta   float64 // requested delta
	Applied float64 // delta actually applied after clamping
	Heat    float64 // resulting heat
}

// #endregion entry

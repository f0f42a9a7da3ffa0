package scoring

// #region tier

// Tier is one reward threshold. A score at or above Threshold earns Name.
type Tier struct {
	Threshold float64
	Name      string
}

// TierTable is an ordered tier set plus the base tier returned when none match.
type TierTable struct {
	Tiers []Tier
	Base  string
}

// DefaultTierTable returns Legendary >= 0.9, Rare >= 0.7, otherwise Common.
func DefaultTierTable() TierTable {
	return TierTable{
		Tiers: []Tier{
			{Threshold: 0.9, Name: "Legendary"},
			{Threshold: 0.7, Name: "Rare"},
		},
		Base: "Common",
	}
}

// #endregion tier

// #region weights

const (
	timeWeight = 0.6
	heatWeight = 0.4
)

// #endregion weights

// #region result

// Result bundles the score components and the selected tier.
type Result struct {
	TimeScore        float64
	HeatScore        float64
	PerformanceScore float64
	Tier             string
}

// #endregion result

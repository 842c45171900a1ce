package registry

import "github.com/vovakirdan/blockfall/internal/config"

// DefaultVariant is used when no variant is named.
const DefaultVariant = "marathon"

func init() {
	Register(Variant{
		ID:          "marathon",
		Title:       "Marathon",
		Description: "7-bag spawner, wall kicks, 100/300/500/800 line table",
	}, config.DefaultRules)

	Register(Variant{
		ID:          "classic",
		Title:       "Classic",
		Description: "uniform random spawner, in-place rotation, 40/100/300/1200 line table",
	}, classicRules)
}

func classicRules() config.Rules {
	r := config.DefaultRules()
	r.Spawner.Policy = "random"
	r.Spawner.Preview = 1
	r.Rotation.WallKicks = false
	r.Scoring.LinePoints = []int{0, 40, 100, 300, 1200}
	r.Scoring.HardDrop = 2
	return r
}

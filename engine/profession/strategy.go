package profession

import (
	"math"

	"github.com/nathoo/idlecore/engine/actions"
	"github.com/nathoo/idlecore/engine/rng"
	"github.com/nathoo/idlecore/types"
)

// Special roll kinds.
const (
	RollBonusYield = "bonus_yield"
	RollRare       = "rare"
)

// SpecialRoll is an extra roll made once per collect call.
type SpecialRoll struct {
	Kind      string
	Chance    float64
	Resources []types.ResourceDef
}

// Strategy is the collection behaviour of a profession.
type Strategy interface {
	// AvailableResources returns the resource pool open at level.
	AvailableResources(level int) []types.ResourceDef
	// SelectResource picks one resource from the pool.
	SelectResource(r *rng.RNG, resources []types.ResourceDef) (types.ResourceDef, bool)
	// SpecialRolls returns the extra rolls for a collect call.
	SpecialRolls(level int, stats types.ProfessionStats) []SpecialRoll
}

// NewStrategy builds the strategy a profession definition describes. Craft
// only professions have none and get nil.
func NewStrategy(def types.ProfessionDef) Strategy {
	var base Strategy
	switch def.Selection {
	case "uniform":
		base = Uniform{Tiers: def.Tiers}
	case "weighted":
		base = Weighted{Tiers: def.Tiers}
	default:
		return nil
	}
	if def.BonusYield == nil && def.Rare == nil {
		return base
	}
	return Specialized{Base: base, BonusYield: def.BonusYield, Rare: def.Rare}
}

// currentTier returns the highest tier whose MinLevel is reached.
func currentTier(tiers []types.ResourceTier, level int) []types.ResourceDef {
	var best *types.ResourceTier
	for i := range tiers {
		t := &tiers[i]
		if t.MinLevel <= level && (best == nil || t.MinLevel >= best.MinLevel) {
			best = t
		}
	}
	if best == nil {
		return nil
	}
	return best.Resources
}

// Uniform picks every resource of the current tier with equal chance.
type Uniform struct {
	Tiers []types.ResourceTier
}

func (u Uniform) AvailableResources(level int) []types.ResourceDef {
	return currentTier(u.Tiers, level)
}

func (Uniform) SelectResource(r *rng.RNG, resources []types.ResourceDef) (types.ResourceDef, bool) {
	if len(resources) == 0 {
		return types.ResourceDef{}, false
	}
	return resources[r.IntRange(0, len(resources)-1)], true
}

func (Uniform) SpecialRolls(int, types.ProfessionStats) []SpecialRoll { return nil }

// Weighted picks resources of the current tier by weight.
type Weighted struct {
	Tiers []types.ResourceTier
}

func (w Weighted) AvailableResources(level int) []types.ResourceDef {
	return currentTier(w.Tiers, level)
}

func (Weighted) SelectResource(r *rng.RNG, resources []types.ResourceDef) (types.ResourceDef, bool) {
	return weightedPick(r, resources)
}

func (Weighted) SpecialRolls(int, types.ProfessionStats) []SpecialRoll { return nil }

func weightedPick(r *rng.RNG, resources []types.ResourceDef) (types.ResourceDef, bool) {
	weights := make([]float64, len(resources))
	for i, res := range resources {
		weights[i] = res.Weight
	}
	i := r.WeightedSelect(weights)
	if i < 0 {
		return types.ResourceDef{}, false
	}
	return resources[i], true
}

// Specialized adds a bonus-yield roll and a rare-resource roll to a base
// strategy.
type Specialized struct {
	Base       Strategy
	BonusYield *types.BonusYieldDef
	Rare       *types.RareRollDef
}

func (s Specialized) AvailableResources(level int) []types.ResourceDef {
	return s.Base.AvailableResources(level)
}

func (s Specialized) SelectResource(r *rng.RNG, resources []types.ResourceDef) (types.ResourceDef, bool) {
	return s.Base.SelectResource(r, resources)
}

func (s Specialized) SpecialRolls(level int, stats types.ProfessionStats) []SpecialRoll {
	rolls := s.Base.SpecialRolls(level, stats)
	if s.BonusYield != nil {
		rolls = append(rolls, SpecialRoll{
			Kind:   RollBonusYield,
			Chance: math.Min(s.BonusYield.Cap, stats.MiningPower*s.BonusYield.PerPower),
		})
	}
	if s.Rare != nil && len(s.Rare.Resources) > 0 {
		rolls = append(rolls, SpecialRoll{
			Kind:      RollRare,
			Chance:    math.Min(s.Rare.Cap, float64(level)*s.Rare.PerLevel),
			Resources: s.Rare.Resources,
		})
	}
	return rolls
}

// LinearCurve needs level*100 experience to leave a level.
func LinearCurve(level int) int {
	return level * 100
}

// TableCurve reads the requirement for each level from table, starting at
// level 1. Past the end of the table the profession is at its maximum.
func TableCurve(table []int) actions.Curve {
	t := append([]int(nil), table...)
	return func(level int) int {
		if level < 1 || level > len(t) {
			return 0
		}
		return t[level-1]
	}
}

// CurveFor returns the level curve of a profession definition.
func CurveFor(def types.ProfessionDef) actions.Curve {
	if len(def.ExpTable) > 0 {
		return TableCurve(def.ExpTable)
	}
	return LinearCurve
}

// CollectExperience is floor(10 * 1.1^(level-1)).
func CollectExperience(level int) int {
	return int(math.Floor(10 * math.Pow(1.1, float64(level-1))))
}

// CraftExperience is floor(base * 1.1^(recipeLevel-1)).
func CraftExperience(base, recipeLevel int) int {
	return int(math.Floor(float64(base) * math.Pow(1.1, float64(max(1, recipeLevel)-1))))
}

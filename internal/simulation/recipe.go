package simulation

import "FirmSim/internal/model"

const (
	// DepreciationRate is charged on opening fixed assets each round.
	DepreciationRate = 0.05
	// CapacityPer1000Machine is machine hours added per $1000 of machine investment.
	CapacityPer1000Machine = 50.0
	// CapacityPer1000Labour is labour hours added per $1000 of training.
	CapacityPer1000Labour = 100.0
	// EfficiencyGainPer10k is the cost reduction earned per $10000 of total investment.
	EfficiencyGainPer10k = 0.01
	// MaxEfficiency keeps the cost multiplier strictly positive.
	MaxEfficiency = 0.99

	InventoryHaircut   = 0.30
	FixedAssetsHaircut = 0.50

	MaterialLimit = 100000.0
)

// DefaultLimits apply when a starting position carries no capacity at all.
var DefaultLimits = model.Limits{Machine: 1000, Labour: 1000, Material: 500}

// Recipe is the resource use of one unit (hours for machine and labour, units for material),
// or the price of one unit of each resource.
type Recipe struct {
	Machine  float64
	Labour   float64
	Material float64
}

// Recipes are the fixed per-unit resource requirements of each product.
var Recipes = model.PerProduct[Recipe]{
	A: Recipe{Machine: 2.0, Labour: 1.0, Material: 1.0},
	B: Recipe{Machine: 1.5, Labour: 1.5, Material: 1.0},
	C: Recipe{Machine: 1.0, Labour: 2.0, Material: 1.0},
}

// BaseCosts are the prices of one machine hour, one labour hour and one unit of material.
var BaseCosts = Recipe{Machine: 10, Labour: 8, Material: 5}

// UnitCost returns the production cost of one unit of p for a firm at the given efficiency.
func UnitCost(p model.Product, efficiency float64) float64 {
	r := Recipes.Get(p)
	base := r.Machine*BaseCosts.Machine + r.Labour*BaseCosts.Labour + r.Material*BaseCosts.Material
	return base * (1 - clampEfficiency(efficiency))
}

func clampEfficiency(e float64) float64 {
	e = model.NonNeg(e)
	if e > MaxEfficiency {
		return MaxEfficiency
	}
	return e
}

package simulation

import (
	"math"

	"FirmSim/internal/model"
)

// fifoSale is the outcome of selling from a carried lot and this round's production.
type fifoSale struct {
	Sold   float64
	COGS   float64
	Ending model.InventoryLot
}

// sellFIFO matches a sale against two buckets: the carried aggregate lot is consumed
// first at its average cost, then new production at the current unit cost.
// The ending lot merges whatever is left of both buckets at their own costs.
func sellFIFO(old model.InventoryLot, produced, unitCost, requested float64) fifoSale {
	old = normalizeLot(old)
	available := old.Units + produced
	sold := math.Min(model.NonNeg(requested), available)

	fromOld := math.Min(sold, old.Units)
	fromNew := sold - fromOld

	cogsOld, leftOldValue := 0.0, 0.0
	if fromOld >= old.Units {
		cogsOld = old.Value
	} else {
		cogsOld = fromOld * old.UnitCost()
		leftOldValue = old.Value - cogsOld
	}
	cogsNew := fromNew * unitCost

	leftNew := produced - fromNew
	return fifoSale{
		Sold: sold,
		COGS: cogsOld + cogsNew,
		Ending: model.InventoryLot{
			Units: (old.Units - fromOld) + leftNew,
			Value: leftOldValue + leftNew*unitCost,
		},
	}
}

func normalizeLot(l model.InventoryLot) model.InventoryLot {
	l.Units = model.NonNeg(l.Units)
	l.Value = model.NonNeg(l.Value)
	if l.Units == 0 {
		l.Value = 0
	}
	return l
}

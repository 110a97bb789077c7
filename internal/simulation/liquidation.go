package simulation

import (
	"math"

	"FirmSim/internal/model"
)

// books are the asset accounts forced sales act on, plus the machine capacity tied to fixed assets.
type books struct {
	cash         float64
	fixedAssets  float64
	inventory    model.Inventory
	machineLimit float64
	liq          model.Liquidation
}

func (b *books) inventoryValue() float64 {
	return model.InventoryValue(b.inventory)
}

// coverDeficit force-sells inventory, then fixed assets, until cash is back to zero
// or there is nothing left to sell.
func (b *books) coverDeficit() {
	if b.cash >= 0 {
		return
	}
	b.cash += b.sellInventory(-b.cash / (1 - InventoryHaircut))
	if b.cash >= 0 {
		return
	}
	b.cash += b.sellFixedAssets(-b.cash / (1 - FixedAssetsHaircut))
}

// sellInventory sells up to bookValue of inventory across all products pro rata,
// keeping each lot's unit cost. It returns the cash recovered.
func (b *books) sellInventory(bookValue float64) float64 {
	total := b.inventoryValue()
	sold := math.Min(model.NonNeg(bookValue), total)
	if sold <= 0 {
		return 0
	}

	keep := 1 - sold/total
	for _, p := range model.Products {
		lot := b.inventory.Get(p)
		if keep <= 0 {
			lot = model.InventoryLot{}
		} else {
			lot.Units *= keep
			lot.Value *= keep
		}
		b.inventory.Set(p, lot)
	}

	recovered := sold * (1 - InventoryHaircut)
	b.liq.InventorySold += sold
	b.liq.Recovered += recovered
	b.liq.Loss += sold - recovered
	return recovered
}

// sellFixedAssets sells up to bookValue of fixed assets. Machine capacity shrinks
// in proportion to the share of fixed assets sold.
func (b *books) sellFixedAssets(bookValue float64) float64 {
	total := b.fixedAssets
	sold := math.Min(model.NonNeg(bookValue), total)
	if sold <= 0 {
		return 0
	}

	lost := b.machineLimit * sold / total
	b.machineLimit -= lost
	b.fixedAssets -= sold
	if sold >= total {
		b.fixedAssets = 0
	}

	recovered := sold * (1 - FixedAssetsHaircut)
	b.liq.FixedAssetsSold += sold
	b.liq.Recovered += recovered
	b.liq.Loss += sold - recovered
	b.liq.MachineHoursLost += lost
	return recovered
}

// finalSettlement sells every remaining asset and repays all debt.
// It reports the unpaid shortfall when recoveries and cash fall short of the debt.
func (b *books) finalSettlement(debt float64) (shortfall float64) {
	b.cash += b.sellInventory(b.inventoryValue())
	b.cash += b.sellFixedAssets(b.fixedAssets)

	if b.cash >= debt {
		b.cash -= debt
		return 0
	}
	shortfall = debt - b.cash
	b.cash = 0
	return shortfall
}

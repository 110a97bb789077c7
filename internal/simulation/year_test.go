package simulation

import (
	"math"
	"testing"

	"FirmSim/internal/model"
)

func approx(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func startingPosition() model.Position {
	return model.Position{
		Sheet: model.BalanceSheet{
			Cash:             29200,
			FixedAssets:      20000,
			Equity:           30000,
			RetainedEarnings: 19200,
		},
		Limits: model.Limits{Machine: 1000, Labour: 1000, Material: 100000},
	}
}

func assertBalanced(t *testing.T, s model.BalanceSheet) {
	t.Helper()
	if imb := s.Imbalance(); math.Abs(imb) > 1e-6 {
		t.Errorf("balance sheet off by %.9f: %+v", imb, s)
	}
}

func TestSimulateYear_SingleProductScenario(t *testing.T) {
	res := SimulateYear(Input{
		Start: startingPosition(),
		Decision: model.Decision{
			Qty:   model.PerProduct[int]{A: 300},
			Sales: model.PerProduct[int]{A: 300},
			Price: model.PerProduct[float64]{A: 33},
		},
		Rates: model.Rates{ST: 10, LT: 5, Tax: 30},
	})

	if res.Income.Revenue != 9900 {
		t.Errorf("revenue = %.2f, want 9900", res.Income.Revenue)
	}
	if res.Income.COGS != 9900 {
		t.Errorf("cogs = %.2f, want 9900", res.Income.COGS)
	}
	if res.Income.Depreciation != 1000 {
		t.Errorf("depreciation = %.2f, want 1000", res.Income.Depreciation)
	}
	if res.Income.NetIncome != -1000 {
		t.Errorf("net income = %.2f, want -1000", res.Income.NetIncome)
	}
	if res.Income.Tax != 0 {
		t.Errorf("tax on a loss = %.2f, want 0", res.Income.Tax)
	}
	if res.Sheet.Cash != 29200 {
		t.Errorf("cash = %.2f, want 29200", res.Sheet.Cash)
	}
	if res.Sheet.FixedAssets != 19000 {
		t.Errorf("fixed assets = %.2f, want 19000", res.Sheet.FixedAssets)
	}
	if res.Sheet.RetainedEarnings != 18200 {
		t.Errorf("retained earnings = %.2f, want 18200", res.Sheet.RetainedEarnings)
	}
	if res.Capacity.Machine.Used != 600 || res.Capacity.Machine.IsOver {
		t.Errorf("machine capacity = %+v, want 600 used and within limit", res.Capacity.Machine)
	}
	if res.Capacity.Labour.Used != 300 {
		t.Errorf("labour used = %.2f, want 300", res.Capacity.Labour.Used)
	}
	assertBalanced(t, res.Sheet)
}

func TestSimulateYear_BalanceIdentity(t *testing.T) {
	tests := []struct {
		name string
		dec  model.Decision
		inv  model.Inventory
	}{
		{
			name: "idle firm",
		},
		{
			name: "mixed products with carried stock",
			dec: model.Decision{
				Qty:   model.PerProduct[int]{A: 100, B: 200, C: 50},
				Sales: model.PerProduct[int]{A: 150, B: 120, C: 80},
				Price: model.PerProduct[float64]{A: 45, B: 52, C: 61},
				Inv:   model.Investment{Machine: 5000, Labour: 2000},
				Finance: model.Finance{
					NewST: 3000, NewLT: 8000, Div: 1500,
				},
			},
			inv: model.Inventory{
				A: model.InventoryLot{Units: 80, Value: 2400},
				C: model.InventoryLot{Units: 10, Value: 350},
			},
		},
		{
			name: "repayment larger than debt",
			dec: model.Decision{
				Finance: model.Finance{PayST: 99999, PayLT: 99999},
			},
		},
		{
			name: "overproduction with unsold stock",
			dec: model.Decision{
				Qty:   model.PerProduct[int]{B: 900},
				Sales: model.PerProduct[int]{B: 10},
				Price: model.PerProduct[float64]{B: 70},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start := startingPosition()
			start.Sheet.Inventory = model.InventoryValue(tt.inv)
			start.Sheet.STDebt = 2000
			start.Sheet.LTDebt = 6000
			start.Sheet.Cash += 8000
			start.Sheet.Equity += start.Sheet.Inventory

			res := SimulateYear(Input{
				Start:            start,
				Decision:         tt.dec,
				Inventory:        tt.inv,
				Rates:            model.Rates{ST: 10, LT: 5, Tax: 30},
				MandatoryPayment: 1000,
			})
			assertBalanced(t, res.Sheet)
			if res.Sheet.STDebt < 0 || res.Sheet.LTDebt < 0 {
				t.Errorf("negative debt: st=%.2f lt=%.2f", res.Sheet.STDebt, res.Sheet.LTDebt)
			}
		})
	}
}

func TestSimulateYear_CarriedLotSoldExactly(t *testing.T) {
	start := startingPosition()
	start.Sheet.Inventory = 1234.567
	start.Sheet.Equity += 1234.567

	res := SimulateYear(Input{
		Start: start,
		Decision: model.Decision{
			Sales: model.PerProduct[int]{B: 37},
			Price: model.PerProduct[float64]{B: 50},
		},
		Inventory: model.Inventory{B: model.InventoryLot{Units: 37, Value: 1234.567}},
	})

	if res.Income.COGS != 1234.567 {
		t.Errorf("cogs = %v, want exactly 1234.567", res.Income.COGS)
	}
	if lot := res.NextInventory.B; lot.Units != 0 || lot.Value != 0 {
		t.Errorf("ending lot = %+v, want empty", lot)
	}
}

func TestSellFIFO(t *testing.T) {
	tests := []struct {
		name      string
		old       model.InventoryLot
		produced  float64
		unitCost  float64
		requested float64
		wantSold  float64
		wantCOGS  float64
		wantEnd   model.InventoryLot
	}{
		{"new production only", model.InventoryLot{}, 100, 33, 60, 60, 1980, model.InventoryLot{Units: 40, Value: 1320}},
		{"old lot first", model.InventoryLot{Units: 50, Value: 2000}, 100, 30, 70, 70, 2600, model.InventoryLot{Units: 80, Value: 2400}},
		{"partial old lot", model.InventoryLot{Units: 50, Value: 2000}, 10, 30, 20, 20, 800, model.InventoryLot{Units: 40, Value: 1500}},
		{"sales capped at stock", model.InventoryLot{Units: 5, Value: 100}, 10, 30, 500, 15, 400, model.InventoryLot{}},
		{"negative request", model.InventoryLot{Units: 5, Value: 100}, 0, 30, -3, 0, 0, model.InventoryLot{Units: 5, Value: 100}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sellFIFO(tt.old, tt.produced, tt.unitCost, tt.requested)
			if got.Sold != tt.wantSold {
				t.Errorf("sold = %.2f, want %.2f", got.Sold, tt.wantSold)
			}
			if !approx(got.COGS, tt.wantCOGS, 1e-9) {
				t.Errorf("cogs = %.4f, want %.4f", got.COGS, tt.wantCOGS)
			}
			if got.Ending.Units != tt.wantEnd.Units || !approx(got.Ending.Value, tt.wantEnd.Value, 1e-9) {
				t.Errorf("ending = %+v, want %+v", got.Ending, tt.wantEnd)
			}
		})
	}
}

func TestSimulateYear_LiquidatesInventoryForDeficit(t *testing.T) {
	start := model.Position{
		Sheet: model.BalanceSheet{Cash: 100, Inventory: 1000, Equity: 1100},
	}
	res := SimulateYear(Input{
		Start:     start,
		Decision:  model.Decision{Finance: model.Finance{Div: 500}},
		Inventory: model.Inventory{A: model.InventoryLot{Units: 100, Value: 1000}},
	})

	liq := res.Liquidation
	if !approx(liq.InventorySold, 571.43, 0.01) {
		t.Errorf("inventory sold = %.4f, want ~571.43", liq.InventorySold)
	}
	if !approx(liq.Loss, 171.43, 0.01) {
		t.Errorf("liquidation loss = %.4f, want ~171.43", liq.Loss)
	}
	if !approx(res.Sheet.Cash, 0, 1e-9) {
		t.Errorf("cash = %.6f, want 0", res.Sheet.Cash)
	}
	if res.CashShortfall {
		t.Error("deficit was covered, shortfall should not be flagged")
	}
	if !approx(res.NextInventory.A.Units, 100*(1-571.428571/1000), 1e-3) {
		t.Errorf("units left = %.4f", res.NextInventory.A.Units)
	}
	if !approx(res.NextInventory.A.UnitCost(), 10, 1e-9) {
		t.Errorf("unit cost changed to %.4f", res.NextInventory.A.UnitCost())
	}
	assertBalanced(t, res.Sheet)
}

func TestSimulateYear_SellsFixedAssetsWhenInventoryRunsOut(t *testing.T) {
	start := model.Position{
		Sheet:  model.BalanceSheet{Cash: 0, Inventory: 100, FixedAssets: 10000, Equity: 10100},
		Limits: model.Limits{Machine: 1000, Labour: 1000, Material: 100000},
	}
	res := SimulateYear(Input{
		Start:     start,
		Decision:  model.Decision{Finance: model.Finance{Div: 1070}},
		Inventory: model.Inventory{C: model.InventoryLot{Units: 4, Value: 100}},
	})

	liq := res.Liquidation
	if liq.InventorySold != 100 {
		t.Errorf("inventory sold = %.2f, want all 100", liq.InventorySold)
	}
	// 70 recovered from stock leaves 1000 to raise at half of book value.
	if !approx(liq.FixedAssetsSold, 2000, 1e-9) {
		t.Errorf("fixed assets sold = %.2f, want 2000", liq.FixedAssetsSold)
	}
	if !approx(liq.MachineHoursLost, 1000*2000.0/9500, 1e-9) {
		t.Errorf("machine hours lost = %.4f", liq.MachineHoursLost)
	}
	if !approx(res.Sheet.Cash, 0, 1e-9) || res.CashShortfall {
		t.Errorf("cash = %.4f shortfall=%v, want 0 and covered", res.Sheet.Cash, res.CashShortfall)
	}
	assertBalanced(t, res.Sheet)
}

func TestSimulateYear_UncoveredDeficitPassesThrough(t *testing.T) {
	start := model.Position{Sheet: model.BalanceSheet{Cash: 50, Equity: 50}}
	res := SimulateYear(Input{
		Start:    start,
		Decision: model.Decision{Finance: model.Finance{Div: 300}},
	})
	if !res.CashShortfall {
		t.Error("expected cash shortfall flag")
	}
	if res.Sheet.Cash != -250 {
		t.Errorf("cash = %.2f, want -250", res.Sheet.Cash)
	}
	assertBalanced(t, res.Sheet)
}

func TestSimulateYear_FinalRound(t *testing.T) {
	t.Run("solvent firm repays everything", func(t *testing.T) {
		start := startingPosition()
		start.Sheet.LTDebt = 10000
		start.Sheet.Cash += 10000
		res := SimulateYear(Input{
			Start:      start,
			Rates:      model.Rates{ST: 10, LT: 5, Tax: 30},
			FinalRound: true,
		})
		if res.Insolvent {
			t.Fatal("firm should be solvent")
		}
		if res.Sheet.TotalDebt() != 0 || res.Sheet.FixedAssets != 0 || res.Sheet.Inventory != 0 {
			t.Errorf("final sheet not settled: %+v", res.Sheet)
		}
		// 39200 - 500 interest + 9500 from fixed assets - 10000 debt.
		if !approx(res.Sheet.Cash, 38200, 1e-9) {
			t.Errorf("cash = %.2f, want 38200", res.Sheet.Cash)
		}
		if !approx(res.Liquidation.Loss, 9500, 1e-9) {
			t.Errorf("loss = %.2f, want 9500", res.Liquidation.Loss)
		}
		assertBalanced(t, res.Sheet)
	})

	t.Run("insolvent firm is wiped out", func(t *testing.T) {
		start := model.Position{
			Sheet: model.BalanceSheet{Cash: 1000, FixedAssets: 2000, STDebt: 5000, Equity: -2000},
		}
		res := SimulateYear(Input{Start: start, FinalRound: true})
		if !res.Insolvent {
			t.Fatal("firm should be insolvent")
		}
		// 1000 cash + 950 from fixed assets against 5000 of debt.
		if !approx(res.DebtWrittenOff, 3050, 1e-9) {
			t.Errorf("written off = %.2f, want 3050", res.DebtWrittenOff)
		}
		if res.Sheet != (model.BalanceSheet{}) {
			t.Errorf("sheet = %+v, want all zero", res.Sheet)
		}
	})
}

func TestSimulateYear_MandatoryPaymentRetiresLongTermFirst(t *testing.T) {
	tests := []struct {
		name      string
		st, lt    float64
		mandatory float64
		wantST    float64
		wantLT    float64
		wantPaid  float64
	}{
		{"within long-term", 3000, 5000, 2000, 3000, 3000, 2000},
		{"spills into short-term", 3000, 1000, 2500, 1500, 0, 2500},
		{"capped at outstanding debt", 500, 500, 4000, 0, 0, 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start := startingPosition()
			start.Sheet.STDebt = tt.st
			start.Sheet.LTDebt = tt.lt
			start.Sheet.Cash += tt.st + tt.lt

			res := SimulateYear(Input{Start: start, MandatoryPayment: tt.mandatory})
			if res.Sheet.STDebt != tt.wantST || res.Sheet.LTDebt != tt.wantLT {
				t.Errorf("debt = st %.2f lt %.2f, want st %.2f lt %.2f",
					res.Sheet.STDebt, res.Sheet.LTDebt, tt.wantST, tt.wantLT)
			}
			if res.MandatoryPaid != tt.wantPaid {
				t.Errorf("mandatory paid = %.2f, want %.2f", res.MandatoryPaid, tt.wantPaid)
			}
			assertBalanced(t, res.Sheet)
		})
	}
}

func TestSimulateYear_LoanTermsOverrideRates(t *testing.T) {
	start := startingPosition()
	start.Sheet.STDebt = 1000
	start.Sheet.LTDebt = 2000
	start.Sheet.Cash += 3000

	res := SimulateYear(Input{
		Start: start,
		Rates: model.Rates{ST: 10, LT: 5},
		LoanTerms: &model.LoanTerms{
			LT: &model.LoanRate{Rate: 8},
		},
	})
	// 1000 at the game's 10% plus 2000 at the approved 8%.
	if !approx(res.Income.Interest, 260, 1e-9) {
		t.Errorf("interest = %.2f, want 260", res.Income.Interest)
	}
}

func TestSimulateYear_InvestmentGrowsCapacityAndEfficiency(t *testing.T) {
	res := SimulateYear(Input{
		Start:          startingPosition(),
		PrevEfficiency: 0.02,
		Decision: model.Decision{
			Inv: model.Investment{Machine: 4000, Labour: 6000},
		},
	})
	want := model.Limits{Machine: 1200, Labour: 1600, Material: MaterialLimit}
	if res.NextLimits != want {
		t.Errorf("limits = %+v, want %+v", res.NextLimits, want)
	}
	if !approx(res.NextEfficiency, 0.03, 1e-12) {
		t.Errorf("efficiency = %.4f, want 0.03", res.NextEfficiency)
	}
	if res.Income.Training != 6000 {
		t.Errorf("training = %.2f, want 6000", res.Income.Training)
	}
	if res.Sheet.FixedAssets != 23000 {
		t.Errorf("fixed assets = %.2f, want 23000", res.Sheet.FixedAssets)
	}
}

func TestSimulateYear_EfficiencyCapped(t *testing.T) {
	res := SimulateYear(Input{
		Start:          startingPosition(),
		PrevEfficiency: 0.985,
		Decision:       model.Decision{Inv: model.Investment{Labour: 50000}},
	})
	if res.NextEfficiency != MaxEfficiency {
		t.Errorf("efficiency = %.4f, want %.2f", res.NextEfficiency, MaxEfficiency)
	}
}

func TestSimulateYear_CapacityOverflowFlagged(t *testing.T) {
	res := SimulateYear(Input{
		Start:    startingPosition(),
		Decision: model.Decision{Qty: model.PerProduct[int]{C: 600}},
	})
	if !res.Capacity.Labour.IsOver {
		t.Errorf("labour %+v should be over limit", res.Capacity.Labour)
	}
	if res.Capacity.Machine.IsOver {
		t.Errorf("machine %+v should be within limit", res.Capacity.Machine)
	}
}

func TestSimulateYear_CoercesBadNumbers(t *testing.T) {
	res := SimulateYear(Input{
		Start: startingPosition(),
		Decision: model.Decision{
			Qty:     model.PerProduct[int]{A: -50},
			Price:   model.PerProduct[float64]{A: math.NaN()},
			Inv:     model.Investment{Machine: math.Inf(1), Labour: -10},
			Finance: model.Finance{Div: math.NaN()},
		},
	})
	if res.Income.Revenue != 0 || res.Income.ProductionCost != 0 {
		t.Errorf("income = %+v, want no activity", res.Income)
	}
	if math.IsNaN(res.Sheet.Cash) || math.IsInf(res.Sheet.Cash, 0) {
		t.Fatalf("cash = %v", res.Sheet.Cash)
	}
	assertBalanced(t, res.Sheet)
}

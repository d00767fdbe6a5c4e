package ledger

import (
	"fmt"
	"strings"

	"github.com/retail/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// DefaultCOGSRatio is the share of revenue booked as cost of goods sold by
// FixedRatioCosting when no ratio is configured
var DefaultCOGSRatio = decimal.RequireFromString("0.60")

// CostLine is one allocated quantity of a batch bought at UnitCost
type CostLine struct {
	Quantity decimal.Decimal
	UnitCost valueobject.Amount
}

// CostingStrategy estimates the cost of goods sold for a sale
type CostingStrategy interface {
	Name() string
	CostOfSale(revenue valueobject.Amount, lines []CostLine) valueobject.Amount
}

// Costing strategy names
const (
	CostingFixedRatio = "fixed_ratio"
	CostingBatchCost  = "batch_cost"
)

// FixedRatioCosting books a fixed fraction of revenue as cost
type FixedRatioCosting struct {
	Ratio decimal.Decimal
}

// NewFixedRatioCosting creates a FixedRatioCosting; the ratio must be within [0, 1]
func NewFixedRatioCosting(ratio decimal.Decimal) (FixedRatioCosting, error) {
	if ratio.IsNegative() || ratio.GreaterThan(decimal.NewFromInt(1)) {
		return FixedRatioCosting{}, fmt.Errorf("cogs ratio must be between 0 and 1, got %s", ratio)
	}
	return FixedRatioCosting{Ratio: ratio}, nil
}

// Name implements CostingStrategy
func (FixedRatioCosting) Name() string { return CostingFixedRatio }

// CostOfSale implements CostingStrategy
func (c FixedRatioCosting) CostOfSale(revenue valueobject.Amount, _ []CostLine) valueobject.Amount {
	return revenue.Mul(c.Ratio)
}

// BatchCostCosting books the purchase cost of the batches the sale drew from
type BatchCostCosting struct{}

// Name implements CostingStrategy
func (BatchCostCosting) Name() string { return CostingBatchCost }

// CostOfSale implements CostingStrategy
func (BatchCostCosting) CostOfSale(_ valueobject.Amount, lines []CostLine) valueobject.Amount {
	total := valueobject.ZeroAmount()
	for _, l := range lines {
		total = total.Add(l.UnitCost.Mul(l.Quantity))
	}
	return total
}

// NewCostingStrategy builds a strategy by name
func NewCostingStrategy(name string, ratio decimal.Decimal) (CostingStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", CostingFixedRatio:
		if ratio.IsZero() {
			ratio = DefaultCOGSRatio
		}
		return NewFixedRatioCosting(ratio)
	case CostingBatchCost:
		return BatchCostCosting{}, nil
	default:
		return nil, fmt.Errorf("unknown costing strategy: %s", name)
	}
}

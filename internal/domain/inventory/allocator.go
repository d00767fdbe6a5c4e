package inventory

import (
	"sort"

	"github.com/google/uuid"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/retail/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Allocation is a quantity drawn from a single batch
type Allocation struct {
	BatchID   uuid.UUID
	ProductID uuid.UUID
	Quantity  decimal.Decimal
	UnitCost  valueobject.Amount
}

// Allocator plans batch depletion for a set of requested lines. It keeps a
// working copy of each batch's remaining quantity so several lines drawing on
// the same batch are validated together before any batch is mutated.
type Allocator struct {
	remaining map[uuid.UUID]decimal.Decimal
	batches   map[uuid.UUID]*Batch
	order     []uuid.UUID
	planned   []Allocation
}

// NewAllocator creates an empty allocation plan
func NewAllocator() *Allocator {
	return &Allocator{
		remaining: make(map[uuid.UUID]decimal.Decimal),
		batches:   make(map[uuid.UUID]*Batch),
	}
}

func (a *Allocator) track(b *Batch) decimal.Decimal {
	if rem, ok := a.remaining[b.ID]; ok {
		return rem
	}
	a.remaining[b.ID] = b.AvailableQuantity
	a.batches[b.ID] = b
	a.order = append(a.order, b.ID)
	return b.AvailableQuantity
}

// Allocate draws quantity of productID from candidates, earliest expiry first
// (batches without an expiry last, ties broken by creation time). Candidates
// for other products or with nothing available are ignored. On shortage no
// part of the request is planned.
func (a *Allocator) Allocate(productID uuid.UUID, quantity decimal.Decimal, candidates []*Batch) ([]Allocation, error) {
	if !quantity.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeInvalidQuantity, "Quantity must be positive")
	}

	eligible := make([]*Batch, 0, len(candidates))
	for _, b := range candidates {
		if b.ProductID != productID {
			continue
		}
		if a.track(b).IsPositive() {
			eligible = append(eligible, b)
		}
	}
	SortFIFO(eligible)

	total := decimal.Zero
	for _, b := range eligible {
		total = total.Add(a.remaining[b.ID])
	}
	if total.LessThan(quantity) {
		return nil, NewInsufficientStockError(productID, nil, quantity, total)
	}

	var allocations []Allocation
	left := quantity
	for _, b := range eligible {
		if left.IsZero() {
			break
		}
		take := decimal.Min(left, a.remaining[b.ID])
		a.remaining[b.ID] = a.remaining[b.ID].Sub(take)
		left = left.Sub(take)
		allocations = append(allocations, Allocation{
			BatchID:   b.ID,
			ProductID: productID,
			Quantity:  take,
			UnitCost:  b.UnitCost,
		})
	}
	a.planned = append(a.planned, allocations...)
	return allocations, nil
}

// Reserve draws quantity from a batch the caller already picked
func (a *Allocator) Reserve(batch *Batch, productID uuid.UUID, quantity decimal.Decimal) (Allocation, error) {
	if !quantity.IsPositive() {
		return Allocation{}, shared.NewDomainError(shared.CodeInvalidQuantity, "Quantity must be positive")
	}
	if batch.ProductID != productID {
		return Allocation{}, shared.NewDomainErrorf(shared.CodeInvalidInput,
			"Batch %s does not belong to product %s", batch.BatchNumber, productID)
	}
	rem := a.track(batch)
	if rem.LessThan(quantity) {
		return Allocation{}, NewInsufficientStockError(productID, &batch.ID, quantity, rem)
	}
	a.remaining[batch.ID] = rem.Sub(quantity)
	alloc := Allocation{
		BatchID:   batch.ID,
		ProductID: productID,
		Quantity:  quantity,
		UnitCost:  batch.UnitCost,
	}
	a.planned = append(a.planned, alloc)
	return alloc, nil
}

// Allocations returns every planned allocation in planning order
func (a *Allocator) Allocations() []Allocation {
	out := make([]Allocation, len(a.planned))
	copy(out, a.planned)
	return out
}

// Touched returns the batches the plan draws from, in first-seen order
func (a *Allocator) Touched() []*Batch {
	out := make([]*Batch, 0, len(a.order))
	for _, id := range a.order {
		if a.remaining[id].LessThan(a.batches[id].AvailableQuantity) {
			out = append(out, a.batches[id])
		}
	}
	return out
}

// Commit applies the plan to the tracked batches
func (a *Allocator) Commit() error {
	for _, alloc := range a.planned {
		if err := a.batches[alloc.BatchID].Deplete(alloc.Quantity); err != nil {
			return err
		}
	}
	return nil
}

// SortFIFO orders batches by expiry ascending with nil expiry last, then by
// creation time
func SortFIFO(batches []*Batch) {
	sort.SliceStable(batches, func(i, j int) bool {
		ei, ej := batches[i].ExpiryDate, batches[j].ExpiryDate
		switch {
		case ei != nil && ej != nil:
			if !ei.Equal(*ej) {
				return ei.Before(*ej)
			}
		case ei != nil:
			return true
		case ej != nil:
			return false
		}
		return batches[i].CreatedAt.Before(batches[j].CreatedAt)
	})
}

// ValidateAvailability reports whether the batches hold at least quantity and
// the shortfall if they do not
func ValidateAvailability(batches []*Batch, quantity decimal.Decimal) (bool, decimal.Decimal) {
	total := decimal.Zero
	for _, b := range batches {
		total = total.Add(b.AvailableQuantity)
	}
	if total.GreaterThanOrEqual(quantity) {
		return true, decimal.Zero
	}
	return false, quantity.Sub(total)
}

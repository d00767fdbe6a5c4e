package common

import (
	"context"

	"github.com/google/uuid"
	"github.com/retail/backend/internal/domain/shared/valueobject"
)

// Metrics receives business events from the use cases
type Metrics interface {
	DocumentCreated(ctx context.Context, tenantID uuid.UUID, docType string, total valueobject.Amount)
	PaymentRecorded(ctx context.Context, tenantID uuid.UUID, docType string, amount valueobject.Amount)
	PostingsCreated(ctx context.Context, tenantID uuid.UUID, count int)
	BalancesRecalculated(ctx context.Context, tenantID uuid.UUID, accounts int)
}

// NopMetrics discards every event
type NopMetrics struct{}

func (NopMetrics) DocumentCreated(context.Context, uuid.UUID, string, valueobject.Amount) {}
func (NopMetrics) PaymentRecorded(context.Context, uuid.UUID, string, valueobject.Amount) {}
func (NopMetrics) PostingsCreated(context.Context, uuid.UUID, int)                        {}
func (NopMetrics) BalancesRecalculated(context.Context, uuid.UUID, int)                   {}

var _ Metrics = NopMetrics{}

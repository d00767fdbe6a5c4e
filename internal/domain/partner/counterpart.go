package partner

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/retail/backend/internal/domain/shared"
)

// Kind distinguishes customers from vendors
type Kind string

const (
	KindCustomer Kind = "customer"
	KindVendor   Kind = "vendor"
)

// IsValid checks if the kind is known
func (k Kind) IsValid() bool {
	return k == KindCustomer || k == KindVendor
}

// Counterpart is the other party of a sale (customer) or purchase (vendor)
type Counterpart struct {
	shared.TenantAggregateRoot
	Kind  Kind   `gorm:"type:varchar(20);not null;index"`
	Name  string `gorm:"type:varchar(200);not null"`
	Phone string `gorm:"type:varchar(50)"`
}

// TableName returns the table name for GORM
func (Counterpart) TableName() string {
	return "counterparts"
}

// NewCounterpart creates a customer or vendor
func NewCounterpart(tenantID uuid.UUID, kind Kind, name, phone string) (*Counterpart, error) {
	if !kind.IsValid() {
		return nil, shared.NewDomainErrorf(shared.CodeInvalidInput, "Invalid counterpart kind: %q", kind)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Counterpart name cannot be empty")
	}
	return &Counterpart{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Kind:                kind,
		Name:                name,
		Phone:               strings.TrimSpace(phone),
	}, nil
}

// CounterpartRepository persists customers and vendors
type CounterpartRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Counterpart, error)
	Create(ctx context.Context, c *Counterpart) error
}

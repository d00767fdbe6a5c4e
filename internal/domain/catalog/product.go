package catalog

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/retail/backend/internal/domain/shared"
)

// Product is a sellable item; batches of it are received by purchases
type Product struct {
	shared.TenantAggregateRoot
	Code string `gorm:"type:varchar(50);not null;index"`
	Name string `gorm:"type:varchar(200);not null"`
	Unit string `gorm:"type:varchar(20);not null;default:'pcs'"`
}

// TableName returns the table name for GORM
func (Product) TableName() string {
	return "products"
}

// NewProduct creates a new product
func NewProduct(tenantID uuid.UUID, code, name, unit string) (*Product, error) {
	code = strings.TrimSpace(code)
	name = strings.TrimSpace(name)
	if code == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Product code cannot be empty")
	}
	if len(code) > 50 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Product code cannot exceed 50 characters")
	}
	if name == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Product name cannot be empty")
	}
	unit = strings.TrimSpace(unit)
	if unit == "" {
		unit = "pcs"
	}
	return &Product{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Code:                code,
		Name:                name,
		Unit:                unit,
	}, nil
}

// ProductRepository persists products
type ProductRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Product, error)
	ExistsByCode(ctx context.Context, tenantID uuid.UUID, code string) (bool, error)
	// CountExisting returns how many of ids exist for the tenant
	CountExisting(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) (int64, error)
	Create(ctx context.Context, product *Product) error
}

package shared

import (
	"github.com/google/uuid"
)

// TenantEntity is a tenant-scoped entity. All uniqueness rules, sequences and
// lookups are scoped by TenantID.
type TenantEntity struct {
	BaseEntity
	TenantID uuid.UUID `gorm:"type:char(36);not null;index"`
}

// NewTenantEntity creates a new tenant-scoped entity
func NewTenantEntity(tenantID uuid.UUID) TenantEntity {
	return TenantEntity{
		BaseEntity: NewBaseEntity(),
		TenantID:   tenantID,
	}
}

// BelongsTo reports whether the entity is owned by the tenant
func (t *TenantEntity) BelongsTo(tenantID uuid.UUID) bool {
	return t.TenantID == tenantID
}

// TenantAggregateRoot is a tenant-scoped aggregate root with a version counter
type TenantAggregateRoot struct {
	TenantEntity
	Version int `gorm:"not null;default:1"`
}

// NewTenantAggregateRoot creates a new tenant-scoped aggregate root
func NewTenantAggregateRoot(tenantID uuid.UUID) TenantAggregateRoot {
	return TenantAggregateRoot{
		TenantEntity: NewTenantEntity(tenantID),
		Version:      1,
	}
}

// IncrementVersion increments the version number and touches the update time
func (a *TenantAggregateRoot) IncrementVersion() {
	a.Version++
	a.Touch()
}

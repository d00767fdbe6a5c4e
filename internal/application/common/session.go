package common

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/retail/backend/internal/domain/ledger"
	"github.com/retail/backend/internal/domain/shared"
)

// Session carries the per-tenant settings every use case needs. It is built
// once per tenant by the caller and passed explicitly to each operation.
type Session struct {
	TenantID uuid.UUID
	Accounts ledger.AccountMapping
	Costing  ledger.CostingStrategy
}

// NewSession creates a session. A nil mapping uses the default chart codes and
// a nil costing strategy uses the default fixed ratio.
func NewSession(tenantID uuid.UUID, accounts ledger.AccountMapping, costing ledger.CostingStrategy) (*Session, error) {
	if accounts == nil {
		accounts = ledger.DefaultAccountMapping()
	}
	if costing == nil {
		costing = ledger.FixedRatioCosting{Ratio: ledger.DefaultCOGSRatio}
	}
	s := &Session{
		TenantID: tenantID,
		Accounts: accounts,
		Costing:  costing,
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks the session is usable
func (s *Session) Validate() error {
	if s == nil {
		return shared.NewDomainError(shared.CodeInvalidInput, "Session is required")
	}
	if s.TenantID == uuid.Nil {
		return shared.NewDomainError(shared.CodeInvalidInput, "Session requires a tenant")
	}
	if s.Costing == nil {
		return shared.NewDomainError(shared.CodeInvalidInput, "Session requires a costing strategy")
	}
	if err := s.Accounts.Validate(); err != nil {
		return shared.NewDomainError(shared.CodeInvalidInput, fmt.Sprintf("Invalid session: %v", err))
	}
	return nil
}

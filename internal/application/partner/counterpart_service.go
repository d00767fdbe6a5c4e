package partner

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/retail/backend/internal/application/common"
	"github.com/retail/backend/internal/domain/partner"
	"go.uber.org/zap"
)

// CreateCounterpartRequest represents a request to create a customer or vendor
type CreateCounterpartRequest struct {
	Kind  string `json:"kind" validate:"required,oneof=customer vendor"`
	Name  string `json:"name" validate:"required,max=200"`
	Phone string `json:"phone" validate:"max=50"`
}

// CounterpartResponse represents a customer or vendor in API responses
type CounterpartResponse struct {
	ID    uuid.UUID `json:"id"`
	Kind  string    `json:"kind"`
	Name  string    `json:"name"`
	Phone string    `json:"phone,omitempty"`
}

// ToCounterpartResponse converts a counterpart to its response
func ToCounterpartResponse(c *partner.Counterpart) CounterpartResponse {
	return CounterpartResponse{
		ID:    c.ID,
		Kind:  string(c.Kind),
		Name:  c.Name,
		Phone: c.Phone,
	}
}

// PartnerService manages the customers and vendors documents refer to
type PartnerService struct {
	scope  common.TransactionScope
	logger *zap.Logger
}

// NewPartnerService creates a new PartnerService
func NewPartnerService(scope common.TransactionScope, logger *zap.Logger) *PartnerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PartnerService{scope: scope, logger: logger}
}

// CreateCounterpart creates a customer or vendor
func (s *PartnerService) CreateCounterpart(ctx context.Context, sess *common.Session, req CreateCounterpartRequest) (*CounterpartResponse, error) {
	if err := sess.Validate(); err != nil {
		return nil, err
	}
	if err := common.ValidateStruct(req); err != nil {
		return nil, err
	}

	var resp CounterpartResponse
	err := s.scope.Execute(ctx, func(repos common.TransactionalRepositories) error {
		c, err := partner.NewCounterpart(sess.TenantID, partner.Kind(req.Kind), req.Name, req.Phone)
		if err != nil {
			return err
		}
		if err := repos.Counterparts().Create(ctx, c); err != nil {
			return fmt.Errorf("failed to create %s: %w", req.Kind, err)
		}
		resp = ToCounterpartResponse(c)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Counterpart created",
		zap.String("tenant_id", sess.TenantID.String()),
		zap.String("kind", resp.Kind),
		zap.String("name", resp.Name),
	)
	return &resp, nil
}

// GetCounterpart returns a customer or vendor by ID
func (s *PartnerService) GetCounterpart(ctx context.Context, sess *common.Session, id uuid.UUID) (*CounterpartResponse, error) {
	var resp CounterpartResponse
	err := s.scope.Execute(ctx, func(repos common.TransactionalRepositories) error {
		c, err := repos.Counterparts().FindByID(ctx, sess.TenantID, id)
		if err != nil {
			return err
		}
		resp = ToCounterpartResponse(c)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

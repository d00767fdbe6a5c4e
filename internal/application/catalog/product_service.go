package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/retail/backend/internal/application/common"
	"github.com/retail/backend/internal/domain/catalog"
	"github.com/retail/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// CreateProductRequest represents a request to create a product
type CreateProductRequest struct {
	Code string `json:"code" validate:"required,max=50"`
	Name string `json:"name" validate:"required,max=200"`
	Unit string `json:"unit" validate:"max=20"`
}

// ProductResponse represents a product in API responses
type ProductResponse struct {
	ID   uuid.UUID `json:"id"`
	Code string    `json:"code"`
	Name string    `json:"name"`
	Unit string    `json:"unit"`
}

// ToProductResponse converts a product to its response
func ToProductResponse(p *catalog.Product) ProductResponse {
	return ProductResponse{
		ID:   p.ID,
		Code: p.Code,
		Name: p.Name,
		Unit: p.Unit,
	}
}

// CatalogService manages the products batches are received for
type CatalogService struct {
	scope  common.TransactionScope
	logger *zap.Logger
}

// NewCatalogService creates a new CatalogService
func NewCatalogService(scope common.TransactionScope, logger *zap.Logger) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{scope: scope, logger: logger}
}

// CreateProduct creates a product with a code unique within the tenant
func (s *CatalogService) CreateProduct(ctx context.Context, sess *common.Session, req CreateProductRequest) (*ProductResponse, error) {
	if err := sess.Validate(); err != nil {
		return nil, err
	}
	if err := common.ValidateStruct(req); err != nil {
		return nil, err
	}

	var resp ProductResponse
	err := s.scope.Execute(ctx, func(repos common.TransactionalRepositories) error {
		product, err := catalog.NewProduct(sess.TenantID, req.Code, req.Name, req.Unit)
		if err != nil {
			return err
		}
		exists, err := repos.Products().ExistsByCode(ctx, sess.TenantID, product.Code)
		if err != nil {
			return err
		}
		if exists {
			return shared.NewDomainErrorf(shared.CodeAlreadyExists, "Product with code %s already exists", product.Code)
		}
		if err := repos.Products().Create(ctx, product); err != nil {
			return fmt.Errorf("failed to create product: %w", err)
		}
		resp = ToProductResponse(product)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Product created",
		zap.String("tenant_id", sess.TenantID.String()),
		zap.String("code", resp.Code),
	)
	return &resp, nil
}

// GetProduct returns a product by ID
func (s *CatalogService) GetProduct(ctx context.Context, sess *common.Session, id uuid.UUID) (*ProductResponse, error) {
	var resp ProductResponse
	err := s.scope.Execute(ctx, func(repos common.TransactionalRepositories) error {
		product, err := repos.Products().FindByID(ctx, sess.TenantID, id)
		if err != nil {
			return err
		}
		resp = ToProductResponse(product)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

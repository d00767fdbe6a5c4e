package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/retail/backend/internal/application/common"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/retail/backend/internal/infrastructure/persistence/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogService_CreateProduct(t *testing.T) {
	db := testdb.Open(t)
	svc := NewCatalogService(testdb.Scope(db, testdb.FastRetry(3)), nil)
	sess, err := common.NewSession(uuid.New(), nil, nil)
	require.NoError(t, err)
	ctx := context.Background()

	created, err := svc.CreateProduct(ctx, sess, CreateProductRequest{Code: "SKU-1", Name: "Aspirin 500mg", Unit: "box"})
	require.NoError(t, err)
	assert.Equal(t, "SKU-1", created.Code)
	assert.Equal(t, "box", created.Unit)

	got, err := svc.GetProduct(ctx, sess, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	_, err = svc.CreateProduct(ctx, sess, CreateProductRequest{Code: "SKU-1", Name: "Other"})
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)

	_, err = svc.CreateProduct(ctx, sess, CreateProductRequest{Name: "No code"})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	other, err := common.NewSession(uuid.New(), nil, nil)
	require.NoError(t, err)
	_, err = svc.GetProduct(ctx, other, created.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	_, err = svc.CreateProduct(ctx, other, CreateProductRequest{Code: "SKU-1", Name: "Aspirin 500mg"})
	assert.NoError(t, err)
}

package inventory

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/retail/backend/internal/domain/shared/valueobject"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBatch(t *testing.T) {
	tenantID, productID := uuid.New(), uuid.New()
	cost := valueobject.MustParseAmount("2.00")

	t.Run("starts full", func(t *testing.T) {
		b, err := NewBatch(tenantID, productID, " LOT-1 ", dec(50), cost, nil, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, "LOT-1", b.BatchNumber)
		assert.True(t, b.AvailableQuantity.Equal(dec(50)))
		assert.True(t, b.IsUntouched())
	})

	t.Run("rejects zero quantity", func(t *testing.T) {
		_, err := NewBatch(tenantID, productID, "LOT-1", dec(0), cost, nil, nil, nil)
		assert.True(t, errors.Is(err, shared.ErrInvalidQuantity))
	})

	t.Run("rejects expiry before manufacture", func(t *testing.T) {
		mfg := time.Date(2030, 1, 2, 0, 0, 0, 0, time.UTC)
		exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
		_, err := NewBatch(tenantID, productID, "LOT-1", dec(1), cost, &mfg, &exp, nil)
		assert.True(t, errors.Is(err, shared.ErrInvalidInput))
	})

	t.Run("rejects empty batch number", func(t *testing.T) {
		_, err := NewBatch(tenantID, productID, "", dec(1), cost, nil, nil, nil)
		assert.True(t, errors.Is(err, shared.ErrInvalidInput))
	})
}

func TestBatch_DepleteAndRestore(t *testing.T) {
	b, err := NewBatch(uuid.New(), uuid.New(), "LOT-1", dec(5), valueobject.ZeroAmount(), nil, nil, nil)
	require.NoError(t, err)

	require.NoError(t, b.Deplete(dec(2)))
	assert.True(t, b.AvailableQuantity.Equal(dec(3)))
	assert.True(t, b.Depleted().Equal(dec(2)))
	assert.False(t, b.IsUntouched())

	err = b.Deplete(dec(4))
	assert.True(t, errors.Is(err, shared.ErrInsufficientStock))
	assert.True(t, b.AvailableQuantity.Equal(dec(3)))

	require.NoError(t, b.Restore(dec(2)))
	assert.True(t, b.IsUntouched())

	err = b.Restore(dec(1))
	assert.True(t, errors.Is(err, shared.ErrInvalidState))
}

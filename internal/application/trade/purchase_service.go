package trade

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/retail/backend/internal/application/common"
	ledgerapp "github.com/retail/backend/internal/application/ledger"
	"github.com/retail/backend/internal/domain/inventory"
	"github.com/retail/backend/internal/domain/partner"
	"github.com/retail/backend/internal/domain/sequence"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/retail/backend/internal/domain/trade"
	"github.com/retail/backend/internal/infrastructure/logger"
	"github.com/retail/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// PurchaseService records vendor purchases. Each purchased line is received
// as a new batch.
type PurchaseService struct {
	scope   common.TransactionScope
	poster  *ledgerapp.Poster
	metrics common.Metrics
	logger  *zap.Logger
}

// NewPurchaseService creates a new PurchaseService
func NewPurchaseService(scope common.TransactionScope, poster *ledgerapp.Poster, metrics common.Metrics, logger *zap.Logger) *PurchaseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if poster == nil {
		poster = ledgerapp.NewPoster(logger)
	}
	if metrics == nil {
		metrics = common.NopMetrics{}
	}
	return &PurchaseService{
		scope:   scope,
		poster:  poster,
		metrics: metrics,
		logger:  logger,
	}
}

// CreatePurchase records a purchase, creates one batch per item and books it
func (s *PurchaseService) CreatePurchase(ctx context.Context, sess *common.Session, req CreatePurchaseRequest) (*PurchaseResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "purchase", "create",
		telemetry.WithAttribute(telemetry.SpanAttrItemsCount, len(req.Items)))
	defer span.End()

	if err := sess.Validate(); err != nil {
		return nil, err
	}
	ctx = logger.WithOperation(logger.WithTenant(ctx, sess.TenantID), "purchase.create")
	if err := common.ValidateStruct(req); err != nil {
		return nil, err
	}
	paymentType, err := trade.ParsePaymentType(req.PaymentType)
	if err != nil {
		return nil, err
	}
	if err := checkRequestBatchNumbers(req.Items); err != nil {
		return nil, err
	}

	var result PurchaseResult
	var postings int
	err = s.scope.Execute(ctx, func(repos common.TransactionalRepositories) error {
		if err := requireCounterpart(ctx, repos, sess.TenantID, req.VendorID, partner.KindVendor); err != nil {
			return err
		}
		ids := make([]uuid.UUID, len(req.Items))
		for i, item := range req.Items {
			ids[i] = item.ProductID
		}
		if err := requireProducts(ctx, repos, sess.TenantID, ids); err != nil {
			return err
		}
		for _, item := range req.Items {
			exists, err := repos.Batches().ExistsByBatchNumber(ctx, sess.TenantID, item.ProductID, strings.TrimSpace(item.BatchNumber))
			if err != nil {
				return err
			}
			if exists {
				return duplicateBatch(item)
			}
		}

		batches := make([]*inventory.Batch, len(req.Items))
		lines := make([]trade.PurchaseLine, len(req.Items))
		for i, item := range req.Items {
			batch, err := inventory.NewBatch(sess.TenantID, item.ProductID, item.BatchNumber,
				item.Quantity, item.UnitPrice, item.ManufactureDate, item.ExpiryDate, nil)
			if err != nil {
				return err
			}
			batches[i] = batch
			lines[i] = trade.PurchaseLine{
				ProductID:   item.ProductID,
				BatchID:     batch.ID,
				BatchNumber: batch.BatchNumber,
				Quantity:    item.Quantity,
				UnitPrice:   item.UnitPrice,
			}
		}

		number, err := repos.Sequences().Next(ctx, sess.TenantID, sequence.SeriesPurchase)
		if err != nil {
			return err
		}
		purchase, err := trade.NewPurchase(sess.TenantID, number, req.VendorID, paymentType, lines, req.Notes)
		if err != nil {
			return err
		}
		if err := repos.Purchases().Create(ctx, purchase); err != nil {
			return fmt.Errorf("failed to create purchase: %w", err)
		}
		for _, batch := range batches {
			batch.PurchaseID = &purchase.ID
			if err := repos.Batches().Create(ctx, batch); err != nil {
				return fmt.Errorf("failed to create batch %s: %w", batch.BatchNumber, err)
			}
		}

		result = PurchaseResult{}
		txns, err := s.poster.PostPurchase(ctx, repos, sess, purchase)
		switch {
		case ledgerapp.IsMissingAccount(err):
			result.Warnings = append(result.Warnings, "Ledger entries not created: "+err.Error())
		case err != nil:
			return err
		}

		result.Purchase = ToPurchaseResponse(purchase)
		result.Transactions = ledgerapp.ToTransactionResponses(txns)
		postings = len(txns)
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrDocumentNumber, result.Purchase.Number,
		telemetry.SpanAttrAmount, result.Purchase.TotalAmount.String(),
	)
	s.metrics.DocumentCreated(ctx, sess.TenantID, string(trade.DocumentTypePurchase), result.Purchase.TotalAmount)
	s.metrics.PostingsCreated(ctx, sess.TenantID, postings)
	for _, w := range result.Warnings {
		logger.For(ctx, s.logger).Warn("Purchase recorded without ledger entries",
			zap.String("number", result.Purchase.Number),
			zap.String("reason", w),
		)
	}
	logger.For(ctx, s.logger).Info("Purchase created",
		zap.String("number", result.Purchase.Number),
		zap.String("total", result.Purchase.TotalAmount.String()),
		zap.Int("batches", len(result.Purchase.Items)),
	)
	return &result, nil
}

// checkRequestBatchNumbers rejects a request that repeats a batch number for
// the same product, and items whose quantity or price is out of range
func checkRequestBatchNumbers(items []PurchaseItemInput) error {
	seen := make(map[string]struct{}, len(items))
	for i, item := range items {
		if !item.Quantity.IsPositive() {
			return shared.NewDomainErrorf(shared.CodeInvalidQuantity, "Item %d: quantity must be positive", i+1)
		}
		if item.UnitPrice.IsNegative() {
			return shared.NewDomainErrorf(shared.CodeInvalidAmount, "Item %d: unit price cannot be negative", i+1)
		}
		key := item.ProductID.String() + "/" + strings.TrimSpace(item.BatchNumber)
		if _, dup := seen[key]; dup {
			return duplicateBatch(item)
		}
		seen[key] = struct{}{}
	}
	return nil
}

func duplicateBatch(item PurchaseItemInput) error {
	return shared.NewDomainErrorf(shared.CodeDuplicateBatchNumber,
		"Batch number %s already exists for product", strings.TrimSpace(item.BatchNumber)).
		WithDetail("product_id", item.ProductID.String()).
		WithDetail("batch_number", strings.TrimSpace(item.BatchNumber))
}

// GetPurchase returns a purchase with its items
func (s *PurchaseService) GetPurchase(ctx context.Context, sess *common.Session, purchaseID uuid.UUID) (*PurchaseResponse, error) {
	var resp PurchaseResponse
	err := s.scope.Execute(ctx, func(repos common.TransactionalRepositories) error {
		purchase, err := repos.Purchases().FindByID(ctx, sess.TenantID, purchaseID)
		if err != nil {
			return err
		}
		resp = ToPurchaseResponse(purchase)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// AddPayment records money paid for a purchase. Payments on credit purchases
// are booked against the payable.
func (s *PurchaseService) AddPayment(ctx context.Context, sess *common.Session, purchaseID uuid.UUID, req AddPaymentRequest) (*PaymentResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "purchase", "add_payment",
		telemetry.WithAttribute(telemetry.SpanAttrDocumentID, purchaseID.String()))
	defer span.End()

	if err := sess.Validate(); err != nil {
		return nil, err
	}
	ctx = logger.WithOperation(logger.WithTenant(ctx, sess.TenantID), "purchase.add_payment")
	if err := common.ValidateStruct(req); err != nil {
		return nil, err
	}

	var result PaymentResult
	var postings int
	err := s.scope.Execute(ctx, func(repos common.TransactionalRepositories) error {
		purchase, err := repos.Purchases().FindByID(ctx, sess.TenantID, purchaseID)
		if err != nil {
			return err
		}
		paymentType, err := trade.ParsePaymentType(req.PaymentType)
		if err != nil {
			return err
		}
		if err := purchase.AddPayment(req.Amount, paymentType); err != nil {
			return err
		}
		payment, err := trade.NewPayment(sess.TenantID, trade.DocumentTypePurchase, purchase.ID, req.Amount, paymentType, paidAt(req.PaidAt), req.Notes)
		if err != nil {
			return err
		}
		if err := repos.Payments().Create(ctx, payment); err != nil {
			return fmt.Errorf("failed to create payment: %w", err)
		}
		if err := repos.Purchases().Save(ctx, purchase); err != nil {
			return fmt.Errorf("failed to update purchase: %w", err)
		}

		result = PaymentResult{}
		txns, err := s.poster.PostPurchasePayment(ctx, repos, sess, purchase, payment)
		switch {
		case ledgerapp.IsMissingAccount(err):
			result.Warnings = append(result.Warnings, "Ledger entries not created: "+err.Error())
		case err != nil:
			return err
		}

		result.Payment = ToPaymentResponse(payment)
		result.PaidAmount = purchase.PaidAmount
		result.Outstanding = purchase.Outstanding()
		result.Status = purchase.Status.String()
		result.Transactions = ledgerapp.ToTransactionResponses(txns)
		postings = len(txns)
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.metrics.PaymentRecorded(ctx, sess.TenantID, string(trade.DocumentTypePurchase), result.Payment.Amount)
	s.metrics.PostingsCreated(ctx, sess.TenantID, postings)
	logger.For(ctx, s.logger).Info("Purchase payment recorded",
		zap.String("purchase_id", purchaseID.String()),
		zap.String("amount", result.Payment.Amount.String()),
		zap.String("status", result.Status),
	)
	return &result, nil
}

// DeletePayment removes a purchase payment, reverses its postings and
// recomputes the purchase's paid amount and status
func (s *PurchaseService) DeletePayment(ctx context.Context, sess *common.Session, paymentID uuid.UUID) (*PurchaseResponse, error) {
	if err := sess.Validate(); err != nil {
		return nil, err
	}

	var resp PurchaseResponse
	err := s.scope.Execute(ctx, func(repos common.TransactionalRepositories) error {
		payment, err := repos.Payments().FindByID(ctx, sess.TenantID, paymentID)
		if err != nil {
			return err
		}
		if payment.DocumentType != trade.DocumentTypePurchase {
			return shared.NewDomainError(shared.CodeNotFound, "Purchase payment not found")
		}
		purchase, err := repos.Purchases().FindByID(ctx, sess.TenantID, payment.DocumentID)
		if err != nil {
			return err
		}

		linked, err := repos.Transactions().FindByPayment(ctx, sess.TenantID, payment.ID)
		if err != nil {
			return err
		}
		if _, err := s.poster.Reverse(ctx, repos, linked); err != nil {
			return err
		}
		if err := purchase.RemovePayment(payment.Amount); err != nil {
			return err
		}
		if err := repos.Payments().Delete(ctx, sess.TenantID, payment.ID); err != nil {
			return err
		}
		if err := repos.Purchases().Save(ctx, purchase); err != nil {
			return fmt.Errorf("failed to update purchase: %w", err)
		}
		resp = ToPurchaseResponse(purchase)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeletePurchase removes a purchase whose batches are untouched. Linked
// postings are reversed and payments, batches and items are deleted with it.
func (s *PurchaseService) DeletePurchase(ctx context.Context, sess *common.Session, purchaseID uuid.UUID) (*DeletePurchaseResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "purchase", "delete",
		telemetry.WithAttribute(telemetry.SpanAttrDocumentID, purchaseID.String()))
	defer span.End()

	if err := sess.Validate(); err != nil {
		return nil, err
	}
	ctx = logger.WithOperation(logger.WithTenant(ctx, sess.TenantID), "purchase.delete")

	var result DeletePurchaseResult
	var number string
	err := s.scope.Execute(ctx, func(repos common.TransactionalRepositories) error {
		purchase, err := repos.Purchases().FindByID(ctx, sess.TenantID, purchaseID)
		if err != nil {
			return err
		}

		batches, err := repos.Batches().FindByPurchase(ctx, sess.TenantID, purchaseID)
		if err != nil {
			return err
		}
		ids := make([]uuid.UUID, len(batches))
		for i, b := range batches {
			if !b.IsUntouched() {
				return batchUsed(b)
			}
			ids[i] = b.ID
		}
		used, err := repos.Sales().CountItemsByBatches(ctx, sess.TenantID, ids)
		if err != nil {
			return err
		}
		if used > 0 {
			return shared.NewDomainErrorf(shared.CodeBatchUsedInSale,
				"Purchase %s has batches referenced by %d sale items", purchase.Number, used)
		}

		linked, err := repos.Transactions().FindByPurchase(ctx, sess.TenantID, purchaseID)
		if err != nil {
			return err
		}
		reversed, err := s.poster.Reverse(ctx, repos, linked)
		if err != nil {
			return err
		}

		payments, err := repos.Payments().CountByDocument(ctx, sess.TenantID, trade.DocumentTypePurchase, purchaseID)
		if err != nil {
			return err
		}
		if err := repos.Payments().DeleteByDocument(ctx, sess.TenantID, trade.DocumentTypePurchase, purchaseID); err != nil {
			return err
		}
		for _, b := range batches {
			if err := repos.Batches().Delete(ctx, sess.TenantID, b.ID); err != nil {
				return fmt.Errorf("failed to delete batch %s: %w", b.BatchNumber, err)
			}
		}
		if err := repos.Purchases().Delete(ctx, sess.TenantID, purchaseID); err != nil {
			return err
		}

		number = purchase.Number
		result = DeletePurchaseResult{
			ReversedTransactions: reversed,
			DeletedPayments:      int(payments),
			DeletedBatches:       len(batches),
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	logger.For(ctx, s.logger).Info("Purchase deleted",
		zap.String("number", number),
		zap.Int("reversed_transactions", result.ReversedTransactions),
		zap.Int("batches", result.DeletedBatches),
	)
	return &result, nil
}

func batchUsed(b *inventory.Batch) error {
	return shared.NewDomainErrorf(shared.CodeBatchUsedInSale,
		"Batch %s has been used: %s of %s sold", b.BatchNumber, b.Depleted(), b.Quantity).
		WithDetail("batch_id", b.ID.String())
}

// CreatePurchaseTransactions books a purchase that has no document postings
// yet, together with any of its payments recorded without a posting
func (s *PurchaseService) CreatePurchaseTransactions(ctx context.Context, sess *common.Session, purchaseID uuid.UUID) ([]ledgerapp.TransactionResponse, error) {
	if err := sess.Validate(); err != nil {
		return nil, err
	}

	var out []ledgerapp.TransactionResponse
	err := s.scope.Execute(ctx, func(repos common.TransactionalRepositories) error {
		purchase, err := repos.Purchases().FindByID(ctx, sess.TenantID, purchaseID)
		if err != nil {
			return err
		}
		linked, err := repos.Transactions().FindByPurchase(ctx, sess.TenantID, purchaseID)
		if err != nil {
			return err
		}
		posted, booked := splitPostings(linked)
		if posted > 0 {
			return shared.NewDomainErrorf(shared.CodeAlreadyPosted,
				"Purchase %s already has %d ledger transactions", purchase.Number, posted)
		}

		txns, err := s.poster.PostPurchase(ctx, repos, sess, purchase)
		if err != nil {
			return err
		}
		payments, err := repos.Payments().FindByDocument(ctx, sess.TenantID, trade.DocumentTypePurchase, purchase.ID)
		if err != nil {
			return err
		}
		for i := range payments {
			if booked[payments[i].ID] {
				continue
			}
			more, err := s.poster.PostPurchasePayment(ctx, repos, sess, purchase, &payments[i])
			if err != nil {
				return err
			}
			txns = append(txns, more...)
		}
		out = ledgerapp.ToTransactionResponses(txns)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.PostingsCreated(ctx, sess.TenantID, len(out))
	return out, nil
}

// ReverseTransactions unapplies and deletes every posting linked to a purchase
func (s *PurchaseService) ReverseTransactions(ctx context.Context, sess *common.Session, purchaseID uuid.UUID) (int, error) {
	if err := sess.Validate(); err != nil {
		return 0, err
	}

	var reversed int
	err := s.scope.Execute(ctx, func(repos common.TransactionalRepositories) error {
		if _, err := repos.Purchases().FindByID(ctx, sess.TenantID, purchaseID); err != nil {
			return err
		}
		linked, err := repos.Transactions().FindByPurchase(ctx, sess.TenantID, purchaseID)
		if err != nil {
			return err
		}
		reversed, err = s.poster.Reverse(ctx, repos, linked)
		return err
	})
	if err != nil {
		return 0, err
	}
	return reversed, nil
}

// SetStatus marks a purchase returned or partially returned
func (s *PurchaseService) SetStatus(ctx context.Context, sess *common.Session, purchaseID uuid.UUID, status string) (*PurchaseResponse, error) {
	if err := sess.Validate(); err != nil {
		return nil, err
	}

	var resp PurchaseResponse
	err := s.scope.Execute(ctx, func(repos common.TransactionalRepositories) error {
		purchase, err := repos.Purchases().FindByID(ctx, sess.TenantID, purchaseID)
		if err != nil {
			return err
		}
		if err := purchase.SetStatus(trade.DocumentStatus(status)); err != nil {
			return err
		}
		if err := repos.Purchases().Save(ctx, purchase); err != nil {
			return fmt.Errorf("failed to update purchase: %w", err)
		}
		resp = ToPurchaseResponse(purchase)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

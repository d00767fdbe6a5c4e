package trade

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/retail/backend/internal/application/common"
	ledgerapp "github.com/retail/backend/internal/application/ledger"
	"github.com/retail/backend/internal/domain/inventory"
	"github.com/retail/backend/internal/domain/ledger"
	"github.com/retail/backend/internal/domain/partner"
	"github.com/retail/backend/internal/domain/sequence"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/retail/backend/internal/domain/trade"
	"github.com/retail/backend/internal/infrastructure/logger"
	"github.com/retail/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// SaleService records sales against inventory batches and mirrors them into
// the ledger. Every method is one unit of work.
type SaleService struct {
	scope   common.TransactionScope
	poster  *ledgerapp.Poster
	metrics common.Metrics
	logger  *zap.Logger
}

// NewSaleService creates a new SaleService
func NewSaleService(scope common.TransactionScope, poster *ledgerapp.Poster, metrics common.Metrics, logger *zap.Logger) *SaleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if poster == nil {
		poster = ledgerapp.NewPoster(logger)
	}
	if metrics == nil {
		metrics = common.NopMetrics{}
	}
	return &SaleService{
		scope:   scope,
		poster:  poster,
		metrics: metrics,
		logger:  logger,
	}
}

// CreateSale allocates stock for every item, records the sale and books it.
// Stock for all items is checked before anything is written. A chart that
// lacks the required accounts does not fail the sale; it is reported as a
// warning on the result.
func (s *SaleService) CreateSale(ctx context.Context, sess *common.Session, req CreateSaleRequest) (*SaleResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "sale", "create",
		telemetry.WithAttribute(telemetry.SpanAttrItemsCount, len(req.Items)))
	defer span.End()

	if err := sess.Validate(); err != nil {
		return nil, err
	}
	ctx = logger.WithOperation(logger.WithTenant(ctx, sess.TenantID), "sale.create")
	if err := common.ValidateStruct(req); err != nil {
		return nil, err
	}
	paymentType, err := trade.ParsePaymentType(req.PaymentType)
	if err != nil {
		return nil, err
	}
	for i, item := range req.Items {
		if !item.Quantity.IsPositive() {
			return nil, shared.NewDomainErrorf(shared.CodeInvalidQuantity, "Item %d: quantity must be positive", i+1)
		}
		if item.UnitPrice.IsNegative() {
			return nil, shared.NewDomainErrorf(shared.CodeInvalidAmount, "Item %d: unit price cannot be negative", i+1)
		}
	}

	var result SaleResult
	var postings int
	err = s.scope.Execute(ctx, func(repos common.TransactionalRepositories) error {
		if req.CustomerID != nil {
			if err := requireCounterpart(ctx, repos, sess.TenantID, *req.CustomerID, partner.KindCustomer); err != nil {
				return err
			}
		}
		if err := requireProducts(ctx, repos, sess.TenantID, saleProductIDs(req.Items)); err != nil {
			return err
		}

		allocator, lines, err := s.allocate(ctx, repos, sess.TenantID, req.Items)
		if err != nil {
			return err
		}

		number, err := repos.Sequences().Next(ctx, sess.TenantID, sequence.SeriesSale)
		if err != nil {
			return err
		}
		sale, err := trade.NewSale(sess.TenantID, number, req.CustomerID, paymentType, lines, req.Notes)
		if err != nil {
			return err
		}
		if err := repos.Sales().Create(ctx, sale); err != nil {
			return fmt.Errorf("failed to create sale: %w", err)
		}

		if err := allocator.Commit(); err != nil {
			return err
		}
		for _, batch := range allocator.Touched() {
			if err := repos.Batches().Save(ctx, batch); err != nil {
				return fmt.Errorf("failed to update batch %s: %w", batch.BatchNumber, err)
			}
		}

		result = SaleResult{}
		txns, err := s.poster.PostSale(ctx, repos, sess, sale, costLines(sale))
		switch {
		case ledgerapp.IsMissingAccount(err):
			result.Warnings = append(result.Warnings, "Ledger entries not created: "+err.Error())
		case err != nil:
			return err
		}

		result.Sale = ToSaleResponse(sale)
		result.Transactions = ledgerapp.ToTransactionResponses(txns)
		postings = len(txns)
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrDocumentNumber, result.Sale.Number,
		telemetry.SpanAttrAmount, result.Sale.TotalAmount.String(),
	)
	s.metrics.DocumentCreated(ctx, sess.TenantID, string(trade.DocumentTypeSale), result.Sale.TotalAmount)
	s.metrics.PostingsCreated(ctx, sess.TenantID, postings)
	for _, w := range result.Warnings {
		logger.For(ctx, s.logger).Warn("Sale recorded without ledger entries",
			zap.String("number", result.Sale.Number),
			zap.String("reason", w),
		)
	}
	logger.For(ctx, s.logger).Info("Sale created",
		zap.String("number", result.Sale.Number),
		zap.String("total", result.Sale.TotalAmount.String()),
		zap.String("status", result.Sale.Status),
		zap.Int("items", len(result.Sale.Items)),
	)
	return &result, nil
}

// allocate plans the depletion for every item. Pinned batches are reserved
// as given; other items draw on the product's batches earliest expiry first.
// Each allocation becomes one sale line.
func (s *SaleService) allocate(ctx context.Context, repos common.TransactionalRepositories, tenantID uuid.UUID, items []SaleItemInput) (*inventory.Allocator, []trade.SaleLine, error) {
	allocator := inventory.NewAllocator()
	loaded := make(map[uuid.UUID]*inventory.Batch)
	available := make(map[uuid.UUID][]*inventory.Batch)

	// one pointer per batch so that the allocator sees a single working copy
	canonical := func(batches []*inventory.Batch) []*inventory.Batch {
		out := make([]*inventory.Batch, len(batches))
		for i, b := range batches {
			if known, ok := loaded[b.ID]; ok {
				out[i] = known
				continue
			}
			loaded[b.ID] = b
			out[i] = b
		}
		return out
	}

	var lines []trade.SaleLine
	for _, item := range items {
		var allocations []inventory.Allocation
		if item.BatchID != nil {
			batch, ok := loaded[*item.BatchID]
			if !ok {
				found, err := repos.Batches().FindByID(ctx, tenantID, *item.BatchID)
				if err != nil {
					if errors.Is(err, shared.ErrNotFound) {
						return nil, nil, shared.NewDomainError(shared.CodeNotFound, "Batch not found").
							WithDetail("batch_id", item.BatchID.String())
					}
					return nil, nil, err
				}
				batch = canonical([]*inventory.Batch{found})[0]
			}
			alloc, err := allocator.Reserve(batch, item.ProductID, item.Quantity)
			if err != nil {
				return nil, nil, err
			}
			allocations = []inventory.Allocation{alloc}
		} else {
			candidates, ok := available[item.ProductID]
			if !ok {
				found, err := repos.Batches().FindAvailable(ctx, tenantID, item.ProductID)
				if err != nil {
					return nil, nil, err
				}
				candidates = canonical(found)
				available[item.ProductID] = candidates
			}
			var err error
			allocations, err = allocator.Allocate(item.ProductID, item.Quantity, candidates)
			if err != nil {
				return nil, nil, err
			}
		}

		for _, alloc := range allocations {
			lines = append(lines, trade.SaleLine{
				ProductID: alloc.ProductID,
				BatchID:   alloc.BatchID,
				Quantity:  alloc.Quantity,
				UnitPrice: item.UnitPrice,
				UnitCost:  alloc.UnitCost,
			})
		}
	}
	return allocator, lines, nil
}

// splitPostings counts the document postings among linked and collects the
// payments that already have a posting
func splitPostings(linked []ledger.Transaction) (int, map[uuid.UUID]bool) {
	documents := 0
	booked := make(map[uuid.UUID]bool)
	for _, txn := range linked {
		if txn.PaymentID == nil {
			documents++
			continue
		}
		booked[*txn.PaymentID] = true
	}
	return documents, booked
}

func costLines(sale *trade.Sale) []ledger.CostLine {
	lines := make([]ledger.CostLine, len(sale.Items))
	for i, item := range sale.Items {
		lines[i] = ledger.CostLine{Quantity: item.Quantity, UnitCost: item.UnitCost}
	}
	return lines
}

func saleProductIDs(items []SaleItemInput) []uuid.UUID {
	ids := make([]uuid.UUID, len(items))
	for i, item := range items {
		ids[i] = item.ProductID
	}
	return ids
}

// GetSale returns a sale with its items
func (s *SaleService) GetSale(ctx context.Context, sess *common.Session, saleID uuid.UUID) (*SaleResponse, error) {
	var resp SaleResponse
	err := s.scope.Execute(ctx, func(repos common.TransactionalRepositories) error {
		sale, err := repos.Sales().FindByID(ctx, sess.TenantID, saleID)
		if err != nil {
			return err
		}
		resp = ToSaleResponse(sale)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// AddPayment records money received for a sale. The amount must be positive
// and within the outstanding balance; only cash and bank payments are
// accepted. Payments on credit sales are booked against the receivable.
func (s *SaleService) AddPayment(ctx context.Context, sess *common.Session, saleID uuid.UUID, req AddPaymentRequest) (*PaymentResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "sale", "add_payment",
		telemetry.WithAttribute(telemetry.SpanAttrDocumentID, saleID.String()))
	defer span.End()

	if err := sess.Validate(); err != nil {
		return nil, err
	}
	ctx = logger.WithOperation(logger.WithTenant(ctx, sess.TenantID), "sale.add_payment")
	if err := common.ValidateStruct(req); err != nil {
		return nil, err
	}

	var result PaymentResult
	var postings int
	err := s.scope.Execute(ctx, func(repos common.TransactionalRepositories) error {
		sale, err := repos.Sales().FindByID(ctx, sess.TenantID, saleID)
		if err != nil {
			return err
		}
		paymentType, err := trade.ParsePaymentType(req.PaymentType)
		if err != nil {
			return err
		}
		if err := sale.AddPayment(req.Amount, paymentType); err != nil {
			return err
		}
		payment, err := trade.NewPayment(sess.TenantID, trade.DocumentTypeSale, sale.ID, req.Amount, paymentType, paidAt(req.PaidAt), req.Notes)
		if err != nil {
			return err
		}
		if err := repos.Payments().Create(ctx, payment); err != nil {
			return fmt.Errorf("failed to create payment: %w", err)
		}
		if err := repos.Sales().Save(ctx, sale); err != nil {
			return fmt.Errorf("failed to update sale: %w", err)
		}

		result = PaymentResult{}
		txns, err := s.poster.PostSalePayment(ctx, repos, sess, sale, payment)
		switch {
		case ledgerapp.IsMissingAccount(err):
			result.Warnings = append(result.Warnings, "Ledger entries not created: "+err.Error())
		case err != nil:
			return err
		}

		result.Payment = ToPaymentResponse(payment)
		result.PaidAmount = sale.PaidAmount
		result.Outstanding = sale.Outstanding()
		result.Status = sale.Status.String()
		result.Transactions = ledgerapp.ToTransactionResponses(txns)
		postings = len(txns)
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.metrics.PaymentRecorded(ctx, sess.TenantID, string(trade.DocumentTypeSale), result.Payment.Amount)
	s.metrics.PostingsCreated(ctx, sess.TenantID, postings)
	logger.For(ctx, s.logger).Info("Sale payment recorded",
		zap.String("sale_id", saleID.String()),
		zap.String("amount", result.Payment.Amount.String()),
		zap.String("status", result.Status),
	)
	return &result, nil
}

// DeletePayment removes a sale payment, reverses its postings and recomputes
// the sale's paid amount and status
func (s *SaleService) DeletePayment(ctx context.Context, sess *common.Session, paymentID uuid.UUID) (*SaleResponse, error) {
	if err := sess.Validate(); err != nil {
		return nil, err
	}

	var resp SaleResponse
	err := s.scope.Execute(ctx, func(repos common.TransactionalRepositories) error {
		payment, err := repos.Payments().FindByID(ctx, sess.TenantID, paymentID)
		if err != nil {
			return err
		}
		if payment.DocumentType != trade.DocumentTypeSale {
			return shared.NewDomainError(shared.CodeNotFound, "Sale payment not found")
		}
		sale, err := repos.Sales().FindByID(ctx, sess.TenantID, payment.DocumentID)
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
		if err := sale.RemovePayment(payment.Amount); err != nil {
			return err
		}
		if err := repos.Payments().Delete(ctx, sess.TenantID, payment.ID); err != nil {
			return err
		}
		if err := repos.Sales().Save(ctx, sale); err != nil {
			return fmt.Errorf("failed to update sale: %w", err)
		}
		resp = ToSaleResponse(sale)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteSale removes a sale and returns its quantities to the batches. A sale
// with payments or ledger transactions cannot be deleted.
func (s *SaleService) DeleteSale(ctx context.Context, sess *common.Session, saleID uuid.UUID) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "sale", "delete",
		telemetry.WithAttribute(telemetry.SpanAttrDocumentID, saleID.String()))
	defer span.End()

	if err := sess.Validate(); err != nil {
		return err
	}
	ctx = logger.WithOperation(logger.WithTenant(ctx, sess.TenantID), "sale.delete")

	var number string
	err := s.scope.Execute(ctx, func(repos common.TransactionalRepositories) error {
		sale, err := repos.Sales().FindByID(ctx, sess.TenantID, saleID)
		if err != nil {
			return err
		}

		payments, err := repos.Payments().CountByDocument(ctx, sess.TenantID, trade.DocumentTypeSale, saleID)
		if err != nil {
			return err
		}
		if payments > 0 {
			return shared.NewDomainErrorf(shared.CodeHasPayments,
				"Sale %s has %d payments", sale.Number, payments)
		}
		posted, err := repos.Transactions().CountBySale(ctx, sess.TenantID, saleID)
		if err != nil {
			return err
		}
		if posted > 0 {
			return shared.NewDomainErrorf(shared.CodeHasLedgerEntries,
				"Sale %s has %d ledger transactions", sale.Number, posted)
		}

		quantities := sale.BatchQuantities()
		ids := make([]uuid.UUID, 0, len(quantities))
		for id := range quantities {
			ids = append(ids, id)
		}
		batches, err := repos.Batches().FindByIDs(ctx, sess.TenantID, ids)
		if err != nil {
			return err
		}
		for id, qty := range quantities {
			batch, ok := batches[id]
			if !ok {
				logger.For(ctx, s.logger).Warn("Batch of deleted sale no longer exists",
					zap.String("sale", sale.Number),
					zap.String("batch_id", id.String()),
				)
				continue
			}
			if err := batch.Restore(qty); err != nil {
				return err
			}
			if err := repos.Batches().Save(ctx, batch); err != nil {
				return fmt.Errorf("failed to restore batch %s: %w", batch.BatchNumber, err)
			}
		}

		number = sale.Number
		return repos.Sales().Delete(ctx, sess.TenantID, saleID)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}

	logger.For(ctx, s.logger).Info("Sale deleted",
		zap.String("number", number),
	)
	return nil
}

// CreateSaleTransactions books a sale that has no document postings yet,
// together with any of its payments that were recorded without a posting.
// Unlike CreateSale, missing chart accounts are an error here.
func (s *SaleService) CreateSaleTransactions(ctx context.Context, sess *common.Session, saleID uuid.UUID) ([]ledgerapp.TransactionResponse, error) {
	if err := sess.Validate(); err != nil {
		return nil, err
	}

	var out []ledgerapp.TransactionResponse
	err := s.scope.Execute(ctx, func(repos common.TransactionalRepositories) error {
		sale, err := repos.Sales().FindByID(ctx, sess.TenantID, saleID)
		if err != nil {
			return err
		}
		linked, err := repos.Transactions().FindBySale(ctx, sess.TenantID, saleID)
		if err != nil {
			return err
		}
		posted, booked := splitPostings(linked)
		if posted > 0 {
			return shared.NewDomainErrorf(shared.CodeAlreadyPosted,
				"Sale %s already has %d ledger transactions", sale.Number, posted)
		}

		txns, err := s.poster.PostSale(ctx, repos, sess, sale, costLines(sale))
		if err != nil {
			return err
		}
		payments, err := repos.Payments().FindByDocument(ctx, sess.TenantID, trade.DocumentTypeSale, sale.ID)
		if err != nil {
			return err
		}
		for i := range payments {
			if booked[payments[i].ID] {
				continue
			}
			more, err := s.poster.PostSalePayment(ctx, repos, sess, sale, &payments[i])
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

// ReverseTransactions unapplies and deletes every posting linked to a sale,
// including payment postings. It returns how many were reversed.
func (s *SaleService) ReverseTransactions(ctx context.Context, sess *common.Session, saleID uuid.UUID) (int, error) {
	if err := sess.Validate(); err != nil {
		return 0, err
	}

	var reversed int
	err := s.scope.Execute(ctx, func(repos common.TransactionalRepositories) error {
		if _, err := repos.Sales().FindByID(ctx, sess.TenantID, saleID); err != nil {
			return err
		}
		linked, err := repos.Transactions().FindBySale(ctx, sess.TenantID, saleID)
		if err != nil {
			return err
		}
		reversed, err = s.poster.Reverse(ctx, repos, linked)
		return err
	})
	if err != nil {
		return 0, err
	}

	logger.For(ctx, s.logger).Info("Sale transactions reversed",
		zap.String("sale_id", saleID.String()),
		zap.Int("count", reversed),
	)
	return reversed, nil
}

// SetStatus marks a sale returned or partially returned
func (s *SaleService) SetStatus(ctx context.Context, sess *common.Session, saleID uuid.UUID, status string) (*SaleResponse, error) {
	if err := sess.Validate(); err != nil {
		return nil, err
	}

	var resp SaleResponse
	err := s.scope.Execute(ctx, func(repos common.TransactionalRepositories) error {
		sale, err := repos.Sales().FindByID(ctx, sess.TenantID, saleID)
		if err != nil {
			return err
		}
		if err := sale.SetStatus(trade.DocumentStatus(status)); err != nil {
			return err
		}
		if err := repos.Sales().Save(ctx, sale); err != nil {
			return fmt.Errorf("failed to update sale: %w", err)
		}
		resp = ToSaleResponse(sale)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// requireCounterpart checks that id names a counterpart of the given kind
func requireCounterpart(ctx context.Context, repos common.TransactionalRepositories, tenantID, id uuid.UUID, kind partner.Kind) error {
	c, err := repos.Counterparts().FindByID(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NewDomainErrorf(shared.CodeNotFound, "%s not found", kindLabel(kind)).
				WithDetail("id", id.String())
		}
		return err
	}
	if c.Kind != kind {
		return shared.NewDomainErrorf(shared.CodeInvalidInput, "Counterpart %s is not a %s", c.Name, kind)
	}
	return nil
}

func kindLabel(kind partner.Kind) string {
	if kind == partner.KindVendor {
		return "Vendor"
	}
	return "Customer"
}

// requireProducts checks that every product exists for the tenant
func requireProducts(ctx context.Context, repos common.TransactionalRepositories, tenantID uuid.UUID, ids []uuid.UUID) error {
	unique := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	n, err := repos.Products().CountExisting(ctx, tenantID, unique)
	if err != nil {
		return err
	}
	if n != int64(len(unique)) {
		return shared.NewDomainErrorf(shared.CodeNotFound, "%d of %d products not found", int64(len(unique))-n, len(unique))
	}
	return nil
}

func paidAt(t *time.Time) time.Time {
	if t == nil {
		return time.Now()
	}
	return *t
}

package trade

import (
	"time"

	"github.com/google/uuid"
	ledgerapp "github.com/retail/backend/internal/application/ledger"
	"github.com/retail/backend/internal/domain/shared/valueobject"
	"github.com/retail/backend/internal/domain/trade"
	"github.com/shopspring/decimal"
)

// ==================== Sale DTOs ====================

// CreateSaleRequest represents a request to create a sale
type CreateSaleRequest struct {
	CustomerID  *uuid.UUID      `json:"customer_id"`
	PaymentType string          `json:"payment_type" validate:"required"`
	Items       []SaleItemInput `json:"items" validate:"required,min=1,dive"`
	Notes       string          `json:"notes" validate:"max=2000"`
}

// SaleItemInput is one requested sale line. Without a batch the quantity is
// drawn from the product's batches, earliest expiry first.
type SaleItemInput struct {
	ProductID uuid.UUID          `json:"product_id" validate:"required"`
	BatchID   *uuid.UUID         `json:"batch_id"`
	Quantity  decimal.Decimal    `json:"quantity"`
	UnitPrice valueobject.Amount `json:"unit_price"`
}

// SaleItemResponse represents a persisted sale line
type SaleItemResponse struct {
	ID        uuid.UUID          `json:"id"`
	ProductID uuid.UUID          `json:"product_id"`
	BatchID   uuid.UUID          `json:"batch_id"`
	Quantity  decimal.Decimal    `json:"quantity"`
	UnitPrice valueobject.Amount `json:"unit_price"`
	UnitCost  valueobject.Amount `json:"unit_cost"`
	LineTotal valueobject.Amount `json:"line_total"`
}

// SaleResponse represents a sale in API responses
type SaleResponse struct {
	ID          uuid.UUID          `json:"id"`
	Number      string             `json:"number"`
	CustomerID  *uuid.UUID         `json:"customer_id,omitempty"`
	PaymentType string             `json:"payment_type"`
	Status      string             `json:"status"`
	TotalAmount valueobject.Amount `json:"total_amount"`
	PaidAmount  valueobject.Amount `json:"paid_amount"`
	Outstanding valueobject.Amount `json:"outstanding"`
	Notes       string             `json:"notes,omitempty"`
	Items       []SaleItemResponse `json:"items"`
	CreatedAt   time.Time          `json:"created_at"`
}

// ToSaleResponse converts a sale to its response
func ToSaleResponse(s *trade.Sale) SaleResponse {
	items := make([]SaleItemResponse, len(s.Items))
	for i, item := range s.Items {
		items[i] = SaleItemResponse{
			ID:        item.ID,
			ProductID: item.ProductID,
			BatchID:   item.BatchID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			UnitCost:  item.UnitCost,
			LineTotal: item.LineTotal,
		}
	}
	return SaleResponse{
		ID:          s.ID,
		Number:      s.Number,
		CustomerID:  s.CustomerID,
		PaymentType: string(s.PaymentType),
		Status:      s.Status.String(),
		TotalAmount: s.TotalAmount,
		PaidAmount:  s.PaidAmount,
		Outstanding: s.Outstanding(),
		Notes:       s.Notes,
		Items:       items,
		CreatedAt:   s.CreatedAt,
	}
}

// SaleResult is the outcome of CreateSale
type SaleResult struct {
	Sale         SaleResponse                    `json:"sale"`
	Transactions []ledgerapp.TransactionResponse `json:"transactions"`
	// Warnings lists bookkeeping that was skipped, e.g. a missing chart account
	Warnings []string `json:"warnings,omitempty"`
}

// ==================== Purchase DTOs ====================

// CreatePurchaseRequest represents a request to record a vendor purchase
type CreatePurchaseRequest struct {
	VendorID    uuid.UUID           `json:"vendor_id" validate:"required"`
	PaymentType string              `json:"payment_type" validate:"required"`
	Items       []PurchaseItemInput `json:"items" validate:"required,min=1,dive"`
	Notes       string              `json:"notes" validate:"max=2000"`
}

// PurchaseItemInput is one received line; it becomes a new batch
type PurchaseItemInput struct {
	ProductID       uuid.UUID          `json:"product_id" validate:"required"`
	BatchNumber     string             `json:"batch_number" validate:"required,max=64"`
	Quantity        decimal.Decimal    `json:"quantity"`
	UnitPrice       valueobject.Amount `json:"unit_price"`
	ManufactureDate *time.Time         `json:"manufacture_date"`
	ExpiryDate      *time.Time         `json:"expiry_date"`
}

// PurchaseItemResponse represents a persisted purchase line
type PurchaseItemResponse struct {
	ID          uuid.UUID          `json:"id"`
	ProductID   uuid.UUID          `json:"product_id"`
	BatchID     uuid.UUID          `json:"batch_id"`
	BatchNumber string             `json:"batch_number"`
	Quantity    decimal.Decimal    `json:"quantity"`
	UnitPrice   valueobject.Amount `json:"unit_price"`
	LineTotal   valueobject.Amount `json:"line_total"`
}

// PurchaseResponse represents a purchase in API responses
type PurchaseResponse struct {
	ID          uuid.UUID              `json:"id"`
	Number      string                 `json:"number"`
	VendorID    uuid.UUID              `json:"vendor_id"`
	PaymentType string                 `json:"payment_type"`
	Status      string                 `json:"status"`
	TotalAmount valueobject.Amount     `json:"total_amount"`
	PaidAmount  valueobject.Amount     `json:"paid_amount"`
	Outstanding valueobject.Amount     `json:"outstanding"`
	Notes       string                 `json:"notes,omitempty"`
	Items       []PurchaseItemResponse `json:"items"`
	CreatedAt   time.Time              `json:"created_at"`
}

// ToPurchaseResponse converts a purchase to its response
func ToPurchaseResponse(p *trade.Purchase) PurchaseResponse {
	items := make([]PurchaseItemResponse, len(p.Items))
	for i, item := range p.Items {
		items[i] = PurchaseItemResponse{
			ID:          item.ID,
			ProductID:   item.ProductID,
			BatchID:     item.BatchID,
			BatchNumber: item.BatchNumber,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			LineTotal:   item.LineTotal,
		}
	}
	return PurchaseResponse{
		ID:          p.ID,
		Number:      p.Number,
		VendorID:    p.VendorID,
		PaymentType: string(p.PaymentType),
		Status:      p.Status.String(),
		TotalAmount: p.TotalAmount,
		PaidAmount:  p.PaidAmount,
		Outstanding: p.Outstanding(),
		Notes:       p.Notes,
		Items:       items,
		CreatedAt:   p.CreatedAt,
	}
}

// PurchaseResult is the outcome of CreatePurchase
type PurchaseResult struct {
	Purchase     PurchaseResponse                `json:"purchase"`
	Transactions []ledgerapp.TransactionResponse `json:"transactions"`
	Warnings     []string                        `json:"warnings,omitempty"`
}

// DeletePurchaseResult reports what DeletePurchase removed
type DeletePurchaseResult struct {
	ReversedTransactions int `json:"reversed_transactions"`
	DeletedPayments      int `json:"deleted_payments"`
	DeletedBatches       int `json:"deleted_batches"`
}

// ==================== Payment DTOs ====================

// AddPaymentRequest represents a payment against a sale or purchase
type AddPaymentRequest struct {
	Amount      valueobject.Amount `json:"amount"`
	PaymentType string             `json:"payment_type"`
	PaidAt      *time.Time         `json:"paid_at"`
	Notes       string             `json:"notes" validate:"max=500"`
}

// PaymentResponse represents a payment in API responses
type PaymentResponse struct {
	ID           uuid.UUID          `json:"id"`
	DocumentType string             `json:"document_type"`
	DocumentID   uuid.UUID          `json:"document_id"`
	Amount       valueobject.Amount `json:"amount"`
	PaymentType  string             `json:"payment_type"`
	PaidAt       time.Time          `json:"paid_at"`
	Notes        string             `json:"notes,omitempty"`
}

// ToPaymentResponse converts a payment to its response
func ToPaymentResponse(p *trade.Payment) PaymentResponse {
	return PaymentResponse{
		ID:           p.ID,
		DocumentType: string(p.DocumentType),
		DocumentID:   p.DocumentID,
		Amount:       p.Amount,
		PaymentType:  string(p.Type),
		PaidAt:       p.PaidAt,
		Notes:        p.Notes,
	}
}

// PaymentResult is the outcome of AddPayment
type PaymentResult struct {
	Payment      PaymentResponse                 `json:"payment"`
	PaidAmount   valueobject.Amount              `json:"paid_amount"`
	Outstanding  valueobject.Amount              `json:"outstanding"`
	Status       string                          `json:"status"`
	Transactions []ledgerapp.TransactionResponse `json:"transactions"`
	Warnings     []string                        `json:"warnings,omitempty"`
}

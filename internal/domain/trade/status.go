package trade

import (
	"fmt"
	"strings"

	"github.com/retail/backend/internal/domain/shared"
	"github.com/retail/backend/internal/domain/shared/valueobject"
)

// DocumentStatus represents the lifecycle state of a sale or purchase
type DocumentStatus string

const (
	StatusDraft         DocumentStatus = "draft"
	StatusInProgress    DocumentStatus = "in_progress"
	StatusCompleted     DocumentStatus = "completed"
	StatusReturned      DocumentStatus = "returned"
	StatusPartialReturn DocumentStatus = "partial_return"
)

// IsValid checks if the status is a known value
func (s DocumentStatus) IsValid() bool {
	switch s {
	case StatusDraft, StatusInProgress, StatusCompleted, StatusReturned, StatusPartialReturn:
		return true
	}
	return false
}

// String returns the string representation of DocumentStatus
func (s DocumentStatus) String() string {
	return string(s)
}

// IsReturn reports whether the status was set by a return command
func (s DocumentStatus) IsReturn() bool {
	return s == StatusReturned || s == StatusPartialReturn
}

// CanTransitionTo checks if the status can transition to the target status
func (s DocumentStatus) CanTransitionTo(target DocumentStatus) bool {
	switch s {
	case StatusDraft:
		return target == StatusInProgress || target == StatusCompleted
	case StatusInProgress:
		return target == StatusCompleted || target == StatusReturned || target == StatusPartialReturn
	case StatusCompleted:
		return target == StatusInProgress || target == StatusReturned || target == StatusPartialReturn
	case StatusPartialReturn:
		return target == StatusReturned
	case StatusReturned:
		return false
	}
	return false
}

// PaymentType is how a document or a payment is settled
type PaymentType string

const (
	PaymentTypeCash   PaymentType = "cash"
	PaymentTypeBank   PaymentType = "bank"
	PaymentTypeCredit PaymentType = "credit"
)

// ParsePaymentType parses a payment type, case-insensitively
func ParsePaymentType(s string) (PaymentType, error) {
	pt := PaymentType(strings.ToLower(strings.TrimSpace(s)))
	if !pt.IsValid() {
		return "", shared.NewDomainErrorf(shared.CodeInvalidPaymentType, "Invalid payment type: %q", s)
	}
	return pt, nil
}

// IsValid checks if the payment type is a known value
func (p PaymentType) IsValid() bool {
	return p == PaymentTypeCash || p == PaymentTypeBank || p == PaymentTypeCredit
}

// SettlesImmediately reports whether money moves at once (cash or bank)
func (p PaymentType) SettlesImmediately() bool {
	return p == PaymentTypeCash || p == PaymentTypeBank
}

// Settlement tracks how much of a document's total has been paid. It is
// embedded by Sale and Purchase.
type Settlement struct {
	TotalAmount valueobject.Amount `gorm:"type:decimal(18,2);not null;default:0"`
	PaidAmount  valueobject.Amount `gorm:"type:decimal(18,2);not null;default:0"`
	Status      DocumentStatus     `gorm:"type:varchar(20);not null;default:'draft';index"`
	PaymentType PaymentType        `gorm:"type:varchar(20);not null"`
}

// newSettlement opens a settlement for total; cash and bank documents are paid in full
func newSettlement(total valueobject.Amount, paymentType PaymentType) (Settlement, error) {
	if !paymentType.IsValid() {
		return Settlement{}, shared.NewDomainErrorf(shared.CodeInvalidPaymentType, "Invalid payment type: %q", paymentType)
	}
	if total.IsNegative() {
		return Settlement{}, shared.NewDomainError(shared.CodeInvalidAmount, "Total amount cannot be negative")
	}
	s := Settlement{
		TotalAmount: total,
		PaidAmount:  valueobject.ZeroAmount(),
		Status:      StatusDraft,
		PaymentType: paymentType,
	}
	if paymentType.SettlesImmediately() {
		s.PaidAmount = total
	}
	s.Status = s.derivedStatus()
	return s, nil
}

// Outstanding returns total - paid
func (s *Settlement) Outstanding() valueobject.Amount {
	return s.TotalAmount.Sub(s.PaidAmount)
}

// IsOnCredit reports whether the document was originally booked on credit
func (s *Settlement) IsOnCredit() bool {
	return s.PaymentType == PaymentTypeCredit
}

// IsFullyPaid reports whether paid >= total
func (s *Settlement) IsFullyPaid() bool {
	return s.PaidAmount.Cmp(s.TotalAmount) >= 0
}

func (s *Settlement) derivedStatus() DocumentStatus {
	if s.IsFullyPaid() {
		return StatusCompleted
	}
	return StatusInProgress
}

// ValidatePayment checks a payment against the outstanding balance without
// changing anything
func (s *Settlement) ValidatePayment(amount valueobject.Amount, paymentType PaymentType) error {
	if !paymentType.SettlesImmediately() {
		return shared.NewDomainErrorf(shared.CodeInvalidPaymentType,
			"Payment type must be cash or bank, got %q", paymentType)
	}
	if !amount.IsPositive() {
		return shared.NewDomainError(shared.CodeInvalidAmount, "Payment amount must be positive")
	}
	if amount.GreaterThan(s.Outstanding()) {
		return shared.NewDomainErrorf(shared.CodeInvalidAmount,
			"Payment amount %s exceeds outstanding balance %s", amount, s.Outstanding()).
			WithDetail("outstanding", s.Outstanding().String())
	}
	return nil
}

// ApplyPayment adds a validated payment and refreshes the status
func (s *Settlement) ApplyPayment(amount valueobject.Amount, paymentType PaymentType) error {
	if err := s.ValidatePayment(amount, paymentType); err != nil {
		return err
	}
	s.PaidAmount = s.PaidAmount.Add(amount)
	s.refreshStatus()
	return nil
}

// RevertPayment removes a previously applied payment and refreshes the status
func (s *Settlement) RevertPayment(amount valueobject.Amount) error {
	if !amount.IsPositive() || amount.GreaterThan(s.PaidAmount) {
		return shared.NewDomainErrorf(shared.CodeInvalidAmount,
			"Cannot revert payment of %s from paid amount %s", amount, s.PaidAmount)
	}
	s.PaidAmount = s.PaidAmount.Sub(amount)
	s.refreshStatus()
	return nil
}

// refreshStatus derives in_progress/completed from the paid amount. Return
// statuses are only ever set by an explicit command and are left alone.
func (s *Settlement) refreshStatus() {
	if s.Status.IsReturn() {
		return
	}
	s.Status = s.derivedStatus()
}

// MarkStatus applies a caller-chosen return status
func (s *Settlement) MarkStatus(target DocumentStatus) error {
	if !target.IsReturn() {
		return shared.NewDomainErrorf(shared.CodeInvalidInput,
			"Only %s or %s can be set explicitly, got %q", StatusReturned, StatusPartialReturn, target)
	}
	if !s.Status.CanTransitionTo(target) {
		return shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("Cannot change status from %s to %s", s.Status, target))
	}
	s.Status = target
	return nil
}

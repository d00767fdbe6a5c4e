package shared

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a DomainError so callers can branch without parsing messages.
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindConflict   ErrorKind = "conflict"
	KindIntegrity  ErrorKind = "integrity"
	KindResource   ErrorKind = "resource"
	KindTransient  ErrorKind = "transient"
	KindNotFound   ErrorKind = "not_found"
)

// DomainError represents a domain-level error
type DomainError struct {
	Kind    ErrorKind      `json:"kind"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	cause   error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause, if any
func (e *DomainError) Unwrap() error {
	return e.cause
}

// Is reports whether target is a DomainError with the same code.
// errors.Is(err, shared.ErrInsufficientStock) matches any insufficient stock error
// regardless of message or details.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// WithDetail returns a copy of the error carrying an additional detail entry
func (e *DomainError) WithDetail(key string, value any) *DomainError {
	cp := *e
	cp.Details = make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		cp.Details[k] = v
	}
	cp.Details[key] = value
	return &cp
}

// WithCause returns a copy of the error wrapping cause
func (e *DomainError) WithCause(cause error) *DomainError {
	cp := *e
	cp.cause = cause
	return &cp
}

// Detail returns a detail value by key
func (e *DomainError) Detail(key string) (any, bool) {
	v, ok := e.Details[key]
	return v, ok
}

// NewDomainError creates a new domain error with a kind derived from its code
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Kind:    kindForCode(code),
		Code:    code,
		Message: message,
	}
}

// NewDomainErrorf creates a new domain error with a formatted message
func NewDomainErrorf(code, format string, args ...any) *DomainError {
	return NewDomainError(code, fmt.Sprintf(format, args...))
}

// AsDomainError extracts a DomainError from an error chain
func AsDomainError(err error) (*DomainError, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// KindOf returns the kind of the first DomainError in err's chain, or "" if none
func KindOf(err error) ErrorKind {
	if de, ok := AsDomainError(err); ok {
		return de.Kind
	}
	return ""
}

func kindForCode(code string) ErrorKind {
	switch code {
	case CodeNotFound:
		return KindNotFound
	case CodeDuplicateCode, CodeDuplicateBatchNumber, CodeAlreadyPosted, CodeInvalidState, CodeAlreadyExists:
		return KindConflict
	case CodeHasPayments, CodeHasLedgerEntries, CodeHasTransactions, CodeHasChildren, CodeBatchUsedInSale:
		return KindIntegrity
	case CodeInsufficientStock, CodeMissingRequiredAccount:
		return KindResource
	case CodeStoreContention:
		return KindTransient
	default:
		return KindValidation
	}
}

// Stable error codes
const (
	CodeNotFound               = "NOT_FOUND"
	CodeAlreadyExists          = "ALREADY_EXISTS"
	CodeInvalidInput           = "INVALID_INPUT"
	CodeInvalidAmount          = "INVALID_AMOUNT"
	CodeInvalidPaymentType     = "INVALID_PAYMENT_TYPE"
	CodeInvalidQuantity        = "INVALID_QUANTITY"
	CodeInvalidState           = "INVALID_STATE"
	CodeDuplicateCode          = "DUPLICATE_CODE"
	CodeDuplicateBatchNumber   = "DUPLICATE_BATCH_NUMBER"
	CodeAlreadyPosted          = "ALREADY_POSTED"
	CodeHasPayments            = "HAS_PAYMENTS"
	CodeHasLedgerEntries       = "HAS_LEDGER_ENTRIES"
	CodeHasTransactions        = "HAS_TRANSACTIONS"
	CodeHasChildren            = "HAS_CHILDREN"
	CodeBatchUsedInSale        = "BATCH_USED_IN_SALE"
	CodeInsufficientStock      = "INSUFFICIENT_STOCK"
	CodeMissingRequiredAccount = "MISSING_REQUIRED_ACCOUNT"
	CodeStoreContention        = "STORE_CONTENTION"
)

// Common domain errors
var (
	ErrNotFound               = NewDomainError(CodeNotFound, "Resource not found")
	ErrAlreadyExists          = NewDomainError(CodeAlreadyExists, "Resource already exists")
	ErrInvalidInput           = NewDomainError(CodeInvalidInput, "Invalid input provided")
	ErrInvalidAmount          = NewDomainError(CodeInvalidAmount, "Invalid amount")
	ErrInvalidPaymentType     = NewDomainError(CodeInvalidPaymentType, "Invalid payment type")
	ErrInvalidQuantity        = NewDomainError(CodeInvalidQuantity, "Invalid quantity")
	ErrInvalidState           = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
	ErrDuplicateCode          = NewDomainError(CodeDuplicateCode, "Account code already exists")
	ErrDuplicateBatchNumber   = NewDomainError(CodeDuplicateBatchNumber, "Batch number already exists for product")
	ErrAlreadyPosted          = NewDomainError(CodeAlreadyPosted, "Ledger transactions already exist for document")
	ErrHasPayments            = NewDomainError(CodeHasPayments, "Document has payments")
	ErrHasLedgerEntries       = NewDomainError(CodeHasLedgerEntries, "Document has ledger transactions")
	ErrHasTransactions        = NewDomainError(CodeHasTransactions, "Account has transactions")
	ErrHasChildren            = NewDomainError(CodeHasChildren, "Account has child accounts")
	ErrBatchUsedInSale        = NewDomainError(CodeBatchUsedInSale, "Batch has been used in a sale")
	ErrInsufficientStock      = NewDomainError(CodeInsufficientStock, "Insufficient stock available")
	ErrMissingRequiredAccount = NewDomainError(CodeMissingRequiredAccount, "Required account is missing")
	ErrStoreContention        = NewDomainError(CodeStoreContention, "Store is busy, retries exhausted")
)

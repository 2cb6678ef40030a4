package errors

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrLoanNotFound         = errors.New("loan not found")
	ErrLoanAlreadyExists    = errors.New("loan already exists")
	ErrLoanNotActive        = errors.New("loan is not active")
	ErrLoanAlreadyApproved  = errors.New("loan is already approved")
	ErrLoanAlreadyClosed    = errors.New("loan is already closed")
	ErrInstallmentNotFound  = errors.New("installment not found")
	ErrInvalidPaymentAmount = errors.New("invalid payment amount")
	ErrNoOutstandingBalance = errors.New("no outstanding balance")

	// Core calculation and posting errors
	ErrInvalidInput             = errors.New("invalid input")
	ErrImbalancedEntry          = errors.New("journal entry does not balance")
	ErrUnknownAccount           = errors.New("unknown account")
	ErrConcurrentUpdateConflict = errors.New("concurrent update conflict")
)

// BusinessError represents a business logic error
type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// NewBusinessError creates a new business error
func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	ErrCodeLoanNotFound             = "LOAN_NOT_FOUND"
	ErrCodeLoanAlreadyExists        = "LOAN_ALREADY_EXISTS"
	ErrCodeLoanNotActive            = "LOAN_NOT_ACTIVE"
	ErrCodeLoanAlreadyApproved      = "LOAN_ALREADY_APPROVED"
	ErrCodeLoanAlreadyClosed        = "LOAN_ALREADY_CLOSED"
	ErrCodeInstallmentNotFound      = "INSTALLMENT_NOT_FOUND"
	ErrCodeInvalidPaymentAmount     = "INVALID_PAYMENT_AMOUNT"
	ErrCodeNoOutstandingBalance     = "NO_OUTSTANDING_BALANCE"
	ErrCodeInvalidInput             = "INVALID_INPUT"
	ErrCodeImbalancedEntry          = "IMBALANCED_ENTRY"
	ErrCodeUnknownAccount           = "UNKNOWN_ACCOUNT"
	ErrCodeConcurrentUpdateConflict = "CONCURRENT_UPDATE_CONFLICT"
	ErrCodeDatabaseError            = "DATABASE_ERROR"
	ErrCodeCacheError               = "CACHE_ERROR"
)

// CodeOf returns the business code carried by err, or "" when err is not a BusinessError.
func CodeOf(err error) string {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.Code
	}
	return ""
}

// Wrap common errors with business context
func WrapLoanNotFound(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanNotFound,
		fmt.Sprintf("Loan with ID %s not found", loanID),
		ErrLoanNotFound,
	)
}

func WrapLoanAlreadyExists(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanAlreadyExists,
		fmt.Sprintf("Loan with ID %s already exists", loanID),
		ErrLoanAlreadyExists,
	)
}

func WrapLoanNotActive(loanID, status string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanNotActive,
		fmt.Sprintf("Loan with ID %s is %s, expected active", loanID, status),
		ErrLoanNotActive,
	)
}

func WrapLoanAlreadyApproved(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanAlreadyApproved,
		fmt.Sprintf("Loan with ID %s has already been approved", loanID),
		ErrLoanAlreadyApproved,
	)
}

func WrapLoanAlreadyClosed(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanAlreadyClosed,
		fmt.Sprintf("Loan with ID %s is already closed", loanID),
		ErrLoanAlreadyClosed,
	)
}

func WrapInstallmentNotFound(loanID string, number int) *BusinessError {
	return NewBusinessError(
		ErrCodeInstallmentNotFound,
		fmt.Sprintf("Installment %d of loan %s not found", number, loanID),
		ErrInstallmentNotFound,
	)
}

func WrapDatabaseError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeDatabaseError,
		"database operation failed",
		err,
	)
}

func WrapCacheError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeCacheError,
		"Cache operation failed",
		err,
	)
}

func WrapNoOutstandingBalance(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeNoOutstandingBalance,
		fmt.Sprintf("Loan with ID %s has no outstanding balance", loanID),
		ErrNoOutstandingBalance,
	)
}

func WrapInvalidPaymentAmount(amount, reason string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidPaymentAmount,
		fmt.Sprintf("Invalid payment amount %s: %s", amount, reason),
		ErrInvalidPaymentAmount,
	)
}

// WrapInvalidInput reports which loan term or argument was rejected.
func WrapInvalidInput(field, reason string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidInput,
		fmt.Sprintf("%s %s", field, reason),
		ErrInvalidInput,
	)
}

func WrapImbalancedEntry(debits, credits string) *BusinessError {
	return NewBusinessError(
		ErrCodeImbalancedEntry,
		fmt.Sprintf("debits %s do not equal credits %s", debits, credits),
		ErrImbalancedEntry,
	)
}

// WrapMalformedLine reports a journal line that is not a single positive debit or credit.
func WrapMalformedLine(index int, accountCode, reason string) *BusinessError {
	return NewBusinessError(
		ErrCodeImbalancedEntry,
		fmt.Sprintf("line %d (%s) %s", index, accountCode, reason),
		ErrImbalancedEntry,
	)
}

func WrapUnknownAccount(code string) *BusinessError {
	return NewBusinessError(
		ErrCodeUnknownAccount,
		fmt.Sprintf("Account %s is not in the chart of accounts", code),
		ErrUnknownAccount,
	)
}

func WrapConcurrentUpdateConflict(accountCode string) *BusinessError {
	return NewBusinessError(
		ErrCodeConcurrentUpdateConflict,
		fmt.Sprintf("Balance of account %s changed during posting", accountCode),
		ErrConcurrentUpdateConflict,
	)
}

func WrapInstallmentChanged(loanID string, number int) *BusinessError {
	return NewBusinessError(
		ErrCodeConcurrentUpdateConflict,
		fmt.Sprintf("Installment %d of loan %s changed during update", number, loanID),
		ErrConcurrentUpdateConflict,
	)
}

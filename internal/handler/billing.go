package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/segyhp/lending-engine/internal/config"
	"github.com/segyhp/lending-engine/internal/domain"
	"github.com/segyhp/lending-engine/internal/logger"
	customError "github.com/segyhp/lending-engine/pkg/errors"
	"github.com/segyhp/lending-engine/pkg/response"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// BillingService is the subset of the service layer exposed over HTTP
type BillingService interface {
	CreateLoan(ctx context.Context, request *domain.CreateLoanRequest) (*domain.Loan, error)
	ApproveLoan(ctx context.Context, loanID string, request *domain.ApproveLoanRequest) (*domain.ApproveLoanResponse, error)
	GetSchedule(ctx context.Context, loanID string) ([]*domain.Installment, error)
	GetOutstanding(ctx context.Context, loanID string) (*domain.OutstandingResponse, error)
	GetPayments(ctx context.Context, loanID string) ([]*domain.Payment, error)
	RecordPayment(ctx context.Context, request *domain.MakePaymentRequest) (*domain.MakePaymentResponse, error)
	AccruePenalties(ctx context.Context, request *domain.AccrualRequest) (*domain.AccrualResult, error)
	PreviewSchedule(ctx context.Context, request *domain.SchedulePreviewRequest) ([]*domain.Installment, error)
	ListAccounts(ctx context.Context) ([]*domain.Account, error)
	GetJournal(ctx context.Context, loanID string) ([]*domain.JournalEntry, error)
}

type BillingHandler struct {
	service   BillingService
	validator *validator.Validate
	config    *config.Config
	log       zerolog.Logger
}

func NewBillingHandler(service BillingService, cfg *config.Config) *BillingHandler {
	return &BillingHandler{
		service:   service,
		validator: NewValidator(),
		config:    cfg,
		log:       logger.WithComponent("billing-handler"),
	}
}

// NewValidator returns a validator that understands decimal amounts
func NewValidator() *validator.Validate {
	v := validator.New()

	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.String()
		}
		return nil
	}, decimal.Decimal{})

	_ = v.RegisterValidation("decimal_gt_zero", func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		return err == nil && d.IsPositive()
	})
	_ = v.RegisterValidation("decimal_gte_zero", func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		return err == nil && !d.IsNegative()
	})

	// report json field names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return v
}

// CreateLoan handles POST /api/v1/loans
func (h *BillingHandler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	var request domain.CreateLoanRequest
	if !h.decode(w, r, &request) {
		return
	}

	loan, err := h.service.CreateLoan(r.Context(), &request)
	if err != nil {
		h.writeError(w, "Failed to create loan", err)
		return
	}

	response.Created(w, domain.CreateLoanResponse{Loan: loan})
}

// ApproveLoan handles POST /api/v1/loans/{loanId}/approve
func (h *BillingHandler) ApproveLoan(w http.ResponseWriter, r *http.Request) {
	loanID := mux.Vars(r)["loanId"]

	var request domain.ApproveLoanRequest
	if r.ContentLength != 0 && !h.decode(w, r, &request) {
		return
	}

	result, err := h.service.ApproveLoan(r.Context(), loanID, &request)
	if err != nil {
		h.writeError(w, "Failed to approve loan", err)
		return
	}

	response.Success(w, result)
}

// GetSchedule handles GET /api/v1/loans/{loanId}/schedule
func (h *BillingHandler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	loanID := mux.Vars(r)["loanId"]

	schedule, err := h.service.GetSchedule(r.Context(), loanID)
	if err != nil {
		h.writeError(w, "Failed to get schedule", err)
		return
	}

	response.Success(w, domain.ScheduleResponse{LoanID: loanID, Schedule: schedule})
}

// GetOutstanding handles GET /api/v1/loans/{loanId}/outstanding
func (h *BillingHandler) GetOutstanding(w http.ResponseWriter, r *http.Request) {
	loanID := mux.Vars(r)["loanId"]

	outstanding, err := h.service.GetOutstanding(r.Context(), loanID)
	if err != nil {
		h.writeError(w, "Failed to get outstanding balance", err)
		return
	}

	response.Success(w, outstanding)
}

// GetPayments handles GET /api/v1/loans/{loanId}/payments
func (h *BillingHandler) GetPayments(w http.ResponseWriter, r *http.Request) {
	loanID := mux.Vars(r)["loanId"]

	payments, err := h.service.GetPayments(r.Context(), loanID)
	if err != nil {
		h.writeError(w, "Failed to get payments", err)
		return
	}

	response.Success(w, payments)
}

// MakePayment handles POST /api/v1/loans/{loanId}/payments
func (h *BillingHandler) MakePayment(w http.ResponseWriter, r *http.Request) {
	var request domain.MakePaymentRequest
	if !h.decode(w, r, &request) {
		return
	}
	request.LoanID = mux.Vars(r)["loanId"]

	if places := h.config.Business.CurrencyPlaces; !request.Amount.Equal(request.Amount.Round(places)) {
		err := customError.WrapInvalidPaymentAmount(request.Amount.String(), fmt.Sprintf("has more than %d decimal places", places))
		h.writeError(w, "Failed to record payment", err)
		return
	}

	result, err := h.service.RecordPayment(r.Context(), &request)
	if err != nil {
		h.writeError(w, "Failed to record payment", err)
		return
	}

	response.Created(w, result)
}

// GetJournal handles GET /api/v1/loans/{loanId}/journal
func (h *BillingHandler) GetJournal(w http.ResponseWriter, r *http.Request) {
	loanID := mux.Vars(r)["loanId"]

	entries, err := h.service.GetJournal(r.Context(), loanID)
	if err != nil {
		h.writeError(w, "Failed to get journal", err)
		return
	}

	response.Success(w, entries)
}

// AccruePenalties handles POST /api/v1/penalties/accrue
func (h *BillingHandler) AccruePenalties(w http.ResponseWriter, r *http.Request) {
	var request domain.AccrualRequest
	if r.ContentLength != 0 && !h.decode(w, r, &request) {
		return
	}

	result, err := h.service.AccruePenalties(r.Context(), &request)
	if err != nil {
		h.writeError(w, "Failed to accrue penalties", err)
		return
	}

	response.Success(w, result)
}

// PreviewSchedule handles POST /api/v1/schedules/preview
func (h *BillingHandler) PreviewSchedule(w http.ResponseWriter, r *http.Request) {
	var request domain.SchedulePreviewRequest
	if !h.decode(w, r, &request) {
		return
	}

	schedule, err := h.service.PreviewSchedule(r.Context(), &request)
	if err != nil {
		h.writeError(w, "Failed to compute schedule", err)
		return
	}

	response.Success(w, schedule)
}

// ListAccounts handles GET /api/v1/ledger/accounts
func (h *BillingHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.ListAccounts(r.Context())
	if err != nil {
		h.writeError(w, "Failed to list accounts", err)
		return
	}

	response.Success(w, accounts)
}

// decode parses and validates the JSON body, writing a 400 on failure
func (h *BillingHandler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		response.ErrorWithCode(w, http.StatusBadRequest, customError.ErrCodeInvalidInput, "Invalid request body", err)
		return false
	}

	if err := h.validator.Struct(dst); err != nil {
		response.ErrorWithCode(w, http.StatusBadRequest, customError.ErrCodeInvalidInput, "Validation failed", validationError(err))
		return false
	}

	return true
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return errors.New(strings.Join(msgs, "; "))
}

// writeError maps business errors onto HTTP status codes
func (h *BillingHandler) writeError(w http.ResponseWriter, message string, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Msg(message)
	}
	response.ErrorWithCode(w, status, customError.CodeOf(err), message, err)
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, customError.ErrInvalidInput),
		errors.Is(err, customError.ErrInvalidPaymentAmount),
		errors.Is(err, customError.ErrImbalancedEntry),
		errors.Is(err, customError.ErrUnknownAccount):
		return http.StatusBadRequest
	case errors.Is(err, customError.ErrLoanNotFound),
		errors.Is(err, customError.ErrInstallmentNotFound):
		return http.StatusNotFound
	case errors.Is(err, customError.ErrLoanAlreadyExists),
		errors.Is(err, customError.ErrLoanAlreadyApproved),
		errors.Is(err, customError.ErrLoanAlreadyClosed),
		errors.Is(err, customError.ErrLoanNotActive),
		errors.Is(err, customError.ErrNoOutstandingBalance),
		errors.Is(err, customError.ErrConcurrentUpdateConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

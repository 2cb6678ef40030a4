package mocks

import (
	"context"

	"github.com/segyhp/lending-engine/internal/domain"

	"github.com/stretchr/testify/mock"
)

type MockBillingService struct {
	mock.Mock
}

// NewMockBillingService creates a new mock billing service instance
func NewMockBillingService() *MockBillingService {
	return &MockBillingService{}
}

func (m *MockBillingService) CreateLoan(ctx context.Context, request *domain.CreateLoanRequest) (*domain.Loan, error) {
	args := m.Called(ctx, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Loan), args.Error(1)
}

func (m *MockBillingService) ApproveLoan(ctx context.Context, loanID string, request *domain.ApproveLoanRequest) (*domain.ApproveLoanResponse, error) {
	args := m.Called(ctx, loanID, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ApproveLoanResponse), args.Error(1)
}

func (m *MockBillingService) GetSchedule(ctx context.Context, loanID string) ([]*domain.Installment, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Installment), args.Error(1)
}

func (m *MockBillingService) GetOutstanding(ctx context.Context, loanID string) (*domain.OutstandingResponse, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.OutstandingResponse), args.Error(1)
}

func (m *MockBillingService) GetPayments(ctx context.Context, loanID string) ([]*domain.Payment, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Payment), args.Error(1)
}

func (m *MockBillingService) RecordPayment(ctx context.Context, request *domain.MakePaymentRequest) (*domain.MakePaymentResponse, error) {
	args := m.Called(ctx, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MakePaymentResponse), args.Error(1)
}

func (m *MockBillingService) AccruePenalties(ctx context.Context, request *domain.AccrualRequest) (*domain.AccrualResult, error) {
	args := m.Called(ctx, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AccrualResult), args.Error(1)
}

func (m *MockBillingService) PreviewSchedule(ctx context.Context, request *domain.SchedulePreviewRequest) ([]*domain.Installment, error) {
	args := m.Called(ctx, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Installment), args.Error(1)
}

func (m *MockBillingService) ListAccounts(ctx context.Context) ([]*domain.Account, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Account), args.Error(1)
}

func (m *MockBillingService) GetJournal(ctx context.Context, loanID string) ([]*domain.JournalEntry, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.JournalEntry), args.Error(1)
}

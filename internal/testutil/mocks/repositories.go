// Package mocks provides shared mock implementations of the domain ports.
package mocks

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/steamsolutionsvzla/odoo-megalabs/internal/domain"
	"github.com/steamsolutionsvzla/odoo-megalabs/internal/domain/ports"
	"github.com/stretchr/testify/mock"
)

// MockTransactionRecordRepository mocks ports.TransactionRecordRepository
type MockTransactionRecordRepository struct {
	mock.Mock
}

func (m *MockTransactionRecordRepository) Create(ctx context.Context, tx ports.DBTX, record *domain.TransactionRecord) error {
	args := m.Called(ctx, tx, record)
	return args.Error(0)
}

func (m *MockTransactionRecordRepository) GetByID(ctx context.Context, db ports.DBTX, id uuid.UUID) (*domain.TransactionRecord, error) {
	args := m.Called(ctx, db, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TransactionRecord), args.Error(1)
}

func (m *MockTransactionRecordRepository) GetLatestForOrder(ctx context.Context, db ports.DBTX, saleOrderID uuid.UUID) (*domain.TransactionRecord, error) {
	args := m.Called(ctx, db, saleOrderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TransactionRecord), args.Error(1)
}

func (m *MockTransactionRecordRepository) NextAttempt(ctx context.Context, db ports.DBTX, saleOrderID uuid.UUID) (int, error) {
	args := m.Called(ctx, db, saleOrderID)
	return args.Int(0), args.Error(1)
}

func (m *MockTransactionRecordRepository) LockByInvoiceNumber(ctx context.Context, tx ports.DBTX, companyID uuid.UUID, invoiceNumber string) (*domain.TransactionRecord, error) {
	args := m.Called(ctx, tx, companyID, invoiceNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TransactionRecord), args.Error(1)
}

func (m *MockTransactionRecordRepository) UpdateSettlementAmount(ctx context.Context, tx ports.DBTX, id uuid.UUID, amountVES decimal.Decimal) error {
	args := m.Called(ctx, tx, id, amountVES)
	return args.Error(0)
}

func (m *MockTransactionRecordRepository) MarkConfirmed(ctx context.Context, tx ports.DBTX, id uuid.UUID, notification json.RawMessage, confirmedAt time.Time) error {
	args := m.Called(ctx, tx, id, notification, confirmedAt)
	return args.Error(0)
}

// MockExchangeRateRepository mocks ports.ExchangeRateRepository
type MockExchangeRateRepository struct {
	mock.Mock
}

func (m *MockExchangeRateRepository) Upsert(ctx context.Context, tx ports.DBTX, rate *domain.ExchangeRate) error {
	args := m.Called(ctx, tx, rate)
	return args.Error(0)
}

func (m *MockExchangeRateRepository) UpsertCurrencyRate(ctx context.Context, tx ports.DBTX, rate *domain.ExchangeRate) error {
	args := m.Called(ctx, tx, rate)
	return args.Error(0)
}

func (m *MockExchangeRateRepository) GetLatest(ctx context.Context, db ports.DBTX, companyID uuid.UUID, currency string) (*domain.ExchangeRate, error) {
	args := m.Called(ctx, db, companyID, currency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExchangeRate), args.Error(1)
}

func (m *MockExchangeRateRepository) GetByDate(ctx context.Context, db ports.DBTX, companyID uuid.UUID, currency string, day time.Time) (*domain.ExchangeRate, error) {
	args := m.Called(ctx, db, companyID, currency, day)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExchangeRate), args.Error(1)
}

// MockLedgerRepository mocks ports.LedgerRepository
type MockLedgerRepository struct {
	mock.Mock
}

func (m *MockLedgerRepository) CreateInvoice(ctx context.Context, tx ports.DBTX, invoice *domain.Invoice) error {
	args := m.Called(ctx, tx, invoice)
	return args.Error(0)
}

func (m *MockLedgerRepository) LockUnpaidInvoiceByRef(ctx context.Context, tx ports.DBTX, companyID uuid.UUID, ref string) (*domain.Invoice, error) {
	args := m.Called(ctx, tx, companyID, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Invoice), args.Error(1)
}

func (m *MockLedgerRepository) RegisterPayment(ctx context.Context, tx ports.DBTX, payment *domain.Payment) error {
	args := m.Called(ctx, tx, payment)
	return args.Error(0)
}

func (m *MockLedgerRepository) MarkInvoicePaid(ctx context.Context, tx ports.DBTX, invoiceID uuid.UUID) error {
	args := m.Called(ctx, tx, invoiceID)
	return args.Error(0)
}

// MockOrderRepository mocks ports.OrderRepository
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) GetCompany(ctx context.Context, db ports.DBTX, companyID uuid.UUID) (*domain.Company, error) {
	args := m.Called(ctx, db, companyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Company), args.Error(1)
}

func (m *MockOrderRepository) FindPartner(ctx context.Context, db ports.DBTX, companyID uuid.UUID, externalRef, email string) (*domain.Partner, error) {
	args := m.Called(ctx, db, companyID, externalRef, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Partner), args.Error(1)
}

func (m *MockOrderRepository) CreatePartner(ctx context.Context, tx ports.DBTX, partner *domain.Partner) error {
	args := m.Called(ctx, tx, partner)
	return args.Error(0)
}

func (m *MockOrderRepository) GetPartner(ctx context.Context, db ports.DBTX, id uuid.UUID) (*domain.Partner, error) {
	args := m.Called(ctx, db, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Partner), args.Error(1)
}

func (m *MockOrderRepository) GetOrderByClientRef(ctx context.Context, db ports.DBTX, companyID uuid.UUID, clientRef string) (*domain.SaleOrder, error) {
	args := m.Called(ctx, db, companyID, clientRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SaleOrder), args.Error(1)
}

func (m *MockOrderRepository) GetOrder(ctx context.Context, db ports.DBTX, id uuid.UUID) (*domain.SaleOrder, error) {
	args := m.Called(ctx, db, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SaleOrder), args.Error(1)
}

func (m *MockOrderRepository) CreateOrder(ctx context.Context, tx ports.DBTX, order *domain.SaleOrder) error {
	args := m.Called(ctx, tx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) UpdateOrderState(ctx context.Context, tx ports.DBTX, id uuid.UUID, state domain.OrderState) error {
	args := m.Called(ctx, tx, id, state)
	return args.Error(0)
}

// MockParameterStore mocks ports.ParameterStore
type MockParameterStore struct {
	mock.Mock
}

func (m *MockParameterStore) GetParam(ctx context.Context, companyID *uuid.UUID, key string) (string, bool, error) {
	args := m.Called(ctx, companyID, key)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockParameterStore) SetParam(ctx context.Context, companyID *uuid.UUID, key, value string) error {
	args := m.Called(ctx, companyID, key, value)
	return args.Error(0)
}

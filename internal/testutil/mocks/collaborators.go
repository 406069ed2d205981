package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	adapterports "github.com/steamsolutionsvzla/odoo-megalabs/internal/adapters/ports"
	"github.com/steamsolutionsvzla/odoo-megalabs/internal/domain/ports"
	"github.com/stretchr/testify/mock"
)

// MockTransactionManager runs callbacks inline with a nil transaction and
// records whether the unit of work committed or rolled back.
type MockTransactionManager struct {
	Commits   int
	Rollbacks int
}

func (m *MockTransactionManager) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	if err := fn(ctx, nil); err != nil {
		m.Rollbacks++
		return err
	}
	m.Commits++
	return nil
}

func (m *MockTransactionManager) WithReadOnlyTransaction(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	return m.WithTransaction(ctx, fn)
}

// MockMailer mocks ports.Mailer
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) SendPaymentLink(ctx context.Context, msg ports.PaymentLinkEmail) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// MockDeliveryGuard mocks ports.DeliveryGuard
type MockDeliveryGuard struct {
	mock.Mock
}

func (m *MockDeliveryGuard) FirstDelivery(ctx context.Context, deliveryID string) (bool, error) {
	args := m.Called(ctx, deliveryID)
	return args.Bool(0), args.Error(1)
}

func (m *MockDeliveryGuard) Forget(ctx context.Context, deliveryID string) error {
	args := m.Called(ctx, deliveryID)
	return args.Error(0)
}

// MockSecretManager mocks the secret backend port
type MockSecretManager struct {
	mock.Mock
}

func (m *MockSecretManager) GetSecret(ctx context.Context, path string) (*adapterports.Secret, error) {
	args := m.Called(ctx, path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*adapterports.Secret), args.Error(1)
}

func (m *MockSecretManager) PutSecret(ctx context.Context, path string, value string, metadata map[string]string) (string, error) {
	args := m.Called(ctx, path, value, metadata)
	return args.String(0), args.Error(1)
}

func (m *MockSecretManager) DeleteSecret(ctx context.Context, path string) error {
	args := m.Called(ctx, path)
	return args.Error(0)
}

// MockParameterResolver mocks ports.ParameterResolver
type MockParameterResolver struct {
	mock.Mock
}

func (m *MockParameterResolver) Lookup(ctx context.Context, tenantID uuid.UUID, key string) (string, bool, error) {
	args := m.Called(ctx, tenantID, key)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockParameterResolver) Require(ctx context.Context, tenantID uuid.UUID, key string) (string, error) {
	args := m.Called(ctx, tenantID, key)
	return args.String(0), args.Error(1)
}

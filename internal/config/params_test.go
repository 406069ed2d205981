package config

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	adapterports "github.com/steamsolutionsvzla/odoo-megalabs/internal/adapters/ports"
	"github.com/steamsolutionsvzla/odoo-megalabs/internal/domain"
	"github.com/steamsolutionsvzla/odoo-megalabs/internal/testutil/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func tenantArg(id uuid.UUID) interface{} {
	return mock.MatchedBy(func(p *uuid.UUID) bool { return p != nil && *p == id })
}

func globalArg() interface{} {
	return mock.MatchedBy(func(p *uuid.UUID) bool { return p == nil })
}

func TestParamResolver_TenantRowWins(t *testing.T) {
	ctx := context.Background()
	tenant := uuid.New()
	store := new(mocks.MockParameterStore)
	store.On("GetParam", ctx, tenantArg(tenant), domain.ParamIntegratorID).Return(" 31 ", true, nil)

	r := NewParamResolver(store, nil, "", zap.NewNop())
	v, err := r.Require(ctx, tenant, domain.ParamIntegratorID)
	require.NoError(t, err)
	assert.Equal(t, "31", v)
	store.AssertNotCalled(t, "GetParam", ctx, globalArg(), domain.ParamIntegratorID)
}

func TestParamResolver_FallsBackToGlobal(t *testing.T) {
	ctx := context.Background()
	tenant := uuid.New()
	store := new(mocks.MockParameterStore)
	store.On("GetParam", ctx, tenantArg(tenant), domain.ParamPaymentURL).Return("   ", true, nil)
	store.On("GetParam", ctx, globalArg(), domain.ParamPaymentURL).Return("https://gw.example", true, nil)

	r := NewParamResolver(store, nil, "", zap.NewNop())
	v, err := r.Require(ctx, tenant, domain.ParamPaymentURL)
	require.NoError(t, err)
	assert.Equal(t, "https://gw.example", v)
}

func TestParamResolver_MissingIsConfigError(t *testing.T) {
	ctx := context.Background()
	tenant := uuid.New()
	store := new(mocks.MockParameterStore)
	store.On("GetParam", ctx, mock.Anything, domain.ParamSecretKey).Return("", false, nil)

	r := NewParamResolver(store, nil, "", zap.NewNop())
	_, err := r.Require(ctx, tenant, domain.ParamSecretKey)
	require.Error(t, err)
	assert.True(t, domain.IsConfigError(err))
	assert.Equal(t, domain.ParamSecretKey, domain.ConfigKey(err))
}

func TestParamResolver_StoreErrorPropagates(t *testing.T) {
	ctx := context.Background()
	store := new(mocks.MockParameterStore)
	store.On("GetParam", ctx, mock.Anything, domain.ParamSecretKey).Return("", false, errors.New("conn refused"))

	r := NewParamResolver(store, nil, "", zap.NewNop())
	_, err := r.Require(ctx, uuid.New(), domain.ParamSecretKey)
	require.Error(t, err)
	assert.False(t, domain.IsConfigError(err))
}

func TestParamResolver_SecretBackendFirst(t *testing.T) {
	ctx := context.Background()
	tenant := uuid.New()
	secrets := new(mocks.MockSecretManager)
	store := new(mocks.MockParameterStore)

	tenantPath := fmt.Sprintf("odoo-megalabs/%s/%s", tenant, domain.ParamShopifySecret)
	globalPath := "odoo-megalabs/" + domain.ParamShopifySecret
	secrets.On("GetSecret", ctx, tenantPath).Return(nil, fmt.Errorf("%w: %s", adapterports.ErrSecretNotFound, tenantPath))
	secrets.On("GetSecret", ctx, globalPath).Return(&adapterports.Secret{Value: "shpss_global"}, nil)

	r := NewParamResolver(store, secrets, "odoo-megalabs/", zap.NewNop())
	v, err := r.Require(ctx, tenant, domain.ParamShopifySecret)
	require.NoError(t, err)
	assert.Equal(t, "shpss_global", v)
	store.AssertNotCalled(t, "GetParam", mock.Anything, mock.Anything, mock.Anything)
}

func TestParamResolver_SetUsesSecretBackend(t *testing.T) {
	ctx := context.Background()
	tenant := uuid.New()
	secrets := new(mocks.MockSecretManager)
	path := fmt.Sprintf("p/%s/%s", tenant, domain.ParamSecretKey)
	secrets.On("PutSecret", ctx, path, "k", mock.Anything).Return("v1", nil)

	r := NewParamResolver(nil, secrets, "p", zap.NewNop())
	require.NoError(t, r.Set(ctx, &tenant, domain.ParamSecretKey, "k"))
	secrets.AssertExpectations(t)
}

func TestParamResolver_SetUsesStore(t *testing.T) {
	ctx := context.Background()
	store := new(mocks.MockParameterStore)
	store.On("SetParam", ctx, globalArg(), domain.ParamIntegratorID, "31").Return(nil)

	r := NewParamResolver(store, nil, "", zap.NewNop())
	require.NoError(t, r.Set(ctx, nil, domain.ParamIntegratorID, "31"))
	store.AssertExpectations(t)
}

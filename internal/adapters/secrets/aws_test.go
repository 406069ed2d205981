package secrets

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	smtypes "github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/steamsolutionsvzla/odoo-megalabs/internal/adapters/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockSecretsManager struct {
	mock.Mock
}

func (m *mockSecretsManager) GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	args := m.Called(ctx, aws.ToString(in.SecretId))
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*secretsmanager.GetSecretValueOutput), args.Error(1)
}

func (m *mockSecretsManager) PutSecretValue(ctx context.Context, in *secretsmanager.PutSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.PutSecretValueOutput, error) {
	args := m.Called(ctx, aws.ToString(in.SecretId), aws.ToString(in.SecretString))
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*secretsmanager.PutSecretValueOutput), args.Error(1)
}

func (m *mockSecretsManager) CreateSecret(ctx context.Context, in *secretsmanager.CreateSecretInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.CreateSecretOutput, error) {
	args := m.Called(ctx, aws.ToString(in.Name), aws.ToString(in.SecretString))
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*secretsmanager.CreateSecretOutput), args.Error(1)
}

func (m *mockSecretsManager) DeleteSecret(ctx context.Context, in *secretsmanager.DeleteSecretInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.DeleteSecretOutput, error) {
	args := m.Called(ctx, aws.ToString(in.SecretId))
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*secretsmanager.DeleteSecretOutput), args.Error(1)
}

func TestAWSAdapter_GetSecret_CachesValue(t *testing.T) {
	ctx := context.Background()
	client := new(mockSecretsManager)
	client.On("GetSecretValue", ctx, "odoo-megalabs/shopify.api_secret").
		Return(&secretsmanager.GetSecretValueOutput{
			SecretString: aws.String("shpss_1"),
			VersionId:    aws.String("v-1"),
		}, nil).Once()

	adapter := newAWSAdapter(client, &AWSSecretsManagerConfig{EnableCache: true, CacheTTL: time.Minute}, zap.NewNop())

	for i := 0; i < 2; i++ {
		secret, err := adapter.GetSecret(ctx, "odoo-megalabs/shopify.api_secret")
		require.NoError(t, err)
		assert.Equal(t, "shpss_1", secret.Value)
	}
	client.AssertExpectations(t)
}

func TestAWSAdapter_GetSecret_NotFound(t *testing.T) {
	ctx := context.Background()
	client := new(mockSecretsManager)
	client.On("GetSecretValue", ctx, "missing").Return(nil, &smtypes.ResourceNotFoundException{Message: aws.String("nope")})

	adapter := newAWSAdapter(client, DefaultAWSSecretsManagerConfig("us-east-1"), zap.NewNop())

	_, err := adapter.GetSecret(ctx, "missing")
	assert.ErrorIs(t, err, ports.ErrSecretNotFound)
}

func TestAWSAdapter_PutSecret_CreatesWhenMissing(t *testing.T) {
	ctx := context.Background()
	client := new(mockSecretsManager)
	client.On("PutSecretValue", ctx, "p", "v").Return(nil, &smtypes.ResourceNotFoundException{})
	client.On("CreateSecret", ctx, "p", "v").Return(&secretsmanager.CreateSecretOutput{VersionId: aws.String("v-new")}, nil)

	adapter := newAWSAdapter(client, DefaultAWSSecretsManagerConfig("us-east-1"), zap.NewNop())

	version, err := adapter.PutSecret(ctx, "p", "v", nil)
	require.NoError(t, err)
	assert.Equal(t, "v-new", version)
	client.AssertExpectations(t)
}

func TestAWSAdapter_PutSecret_OtherErrorIsReturned(t *testing.T) {
	ctx := context.Background()
	client := new(mockSecretsManager)
	client.On("PutSecretValue", ctx, "p", "v").Return(nil, errors.New("throttled"))

	adapter := newAWSAdapter(client, DefaultAWSSecretsManagerConfig("us-east-1"), zap.NewNop())

	_, err := adapter.PutSecret(ctx, "p", "v", nil)
	assert.ErrorContains(t, err, "throttled")
	client.AssertNotCalled(t, "CreateSecret", mock.Anything, mock.Anything, mock.Anything)
}

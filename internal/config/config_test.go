package config

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) uuid.UUID {
	t.Helper()
	company := uuid.New()
	t.Setenv("DEFAULT_COMPANY_ID", company.String())
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("CRON_SECRET", "cron-secret")
	return company
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	company := setRequiredEnv(t)

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, "https://www.bcv.org.ve/", cfg.Rates.BCVURL)
	assert.Equal(t, 20*time.Second, cfg.Rates.Timeout)
	assert.Equal(t, 24*time.Hour, cfg.Rates.Interval)
	assert.False(t, cfg.Rates.InsecureSkipVerify)
	assert.Equal(t, "America/Caracas", cfg.Rates.Location().String())
	assert.Equal(t, []uuid.UUID{company}, cfg.Rates.TenantIDs)
	assert.Equal(t, "BNK1", cfg.Mercantil.LedgerBankJournal)
	assert.False(t, cfg.Mercantil.RequireIngestedRate)
	assert.Equal(t, "db", cfg.Params.Backend)
	assert.False(t, cfg.SMTP.Enabled())
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	setRequiredEnv(t)
	other := uuid.New()
	t.Setenv("RATE_TENANT_IDS", " "+other.String()+" ,")
	t.Setenv("BCV_TIMEOUT", "5s")
	t.Setenv("BCV_INSECURE_SKIP_VERIFY", "true")
	t.Setenv("MERCANTIL_REQUIRE_INGESTED_RATE", "true")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, []uuid.UUID{other}, cfg.Rates.TenantIDs)
	assert.Equal(t, 5*time.Second, cfg.Rates.Timeout)
	assert.True(t, cfg.Rates.InsecureSkipVerify)
	assert.True(t, cfg.Mercantil.RequireIngestedRate)
	assert.Equal(t, "debug", cfg.Logger.Level)
}

func TestLoadFromEnv_Errors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{name: "missing_company", env: map[string]string{"DEFAULT_COMPANY_ID": ""}, wantErr: "DEFAULT_COMPANY_ID"},
		{name: "bad_company", env: map[string]string{"DEFAULT_COMPANY_ID": "acme"}, wantErr: "DEFAULT_COMPANY_ID"},
		{name: "missing_cron_secret", env: map[string]string{"CRON_SECRET": ""}, wantErr: "CRON_SECRET"},
		{name: "bad_timezone", env: map[string]string{"RATE_TIMEZONE": "Mars/Olympus"}, wantErr: "RATE_TIMEZONE"},
		{name: "bad_backend", env: map[string]string{"PARAMETER_BACKEND": "gcp"}, wantErr: "Backend"},
		{name: "vault_without_address", env: map[string]string{"PARAMETER_BACKEND": "vault"}, wantErr: "VAULT_ADDR"},
		{name: "bad_tenant_list", env: map[string]string{"RATE_TENANT_IDS": "x,y"}, wantErr: "RATE_TENANT_IDS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadFromEnv()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDatabaseConfig_ConnectionString(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: 5433, User: "u", Password: "p", Database: "d", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@db:5433/d?sslmode=disable", c.ConnectionString())
}

func TestLoadForTools(t *testing.T) {
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("CRON_SECRET", "")
	t.Setenv("DEFAULT_COMPANY_ID", "")

	cfg, err := LoadForTools()
	require.NoError(t, err)
	assert.Equal(t, uuid.Nil, cfg.Tenant.DefaultCompanyID)

	t.Setenv("DB_PASSWORD", "")
	_, err = LoadForTools()
	assert.Error(t, err)
}

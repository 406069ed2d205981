package mercantil

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	gateway "github.com/steamsolutionsvzla/odoo-megalabs/internal/adapters/mercantil"
	"github.com/steamsolutionsvzla/odoo-megalabs/internal/domain"
	"github.com/steamsolutionsvzla/odoo-megalabs/internal/domain/ports"
	"github.com/steamsolutionsvzla/odoo-megalabs/pkg/observability"
	"go.uber.org/zap"
)

// ingestedRateKey names the missing setting when an ingested rate is mandatory
const ingestedRateKey = "exchange_rate." + domain.SettlementCurrency

// LinkService builds checkout links for transaction records
type LinkService struct {
	params              ports.ParameterResolver
	rates               ports.ExchangeRateRepository
	records             ports.TransactionRecordRepository
	builder             *gateway.LinkBuilder
	logger              *zap.Logger
	requireIngestedRate bool
}

// NewLinkService creates a link service. With requireIngestedRate set, a
// tenant without any ingested rate fails instead of settling at 1:1.
func NewLinkService(
	params ports.ParameterResolver,
	rates ports.ExchangeRateRepository,
	records ports.TransactionRecordRepository,
	builder *gateway.LinkBuilder,
	requireIngestedRate bool,
	logger *zap.Logger,
) *LinkService {
	return &LinkService{
		params:              params,
		rates:               rates,
		records:             records,
		builder:             builder,
		requireIngestedRate: requireIngestedRate,
		logger:              logger,
	}
}

// BuildPaymentLink resolves the settlement amount, stores it on the record and
// returns the encrypted checkout URL.
func (s *LinkService) BuildPaymentLink(ctx context.Context, tenantID uuid.UUID, record *domain.TransactionRecord) (string, error) {
	return s.BuildPaymentLinkTx(ctx, nil, tenantID, record)
}

// BuildPaymentLinkTx is BuildPaymentLink inside the caller's transaction
func (s *LinkService) BuildPaymentLinkTx(ctx context.Context, tx ports.DBTX, tenantID uuid.UUID, record *domain.TransactionRecord) (string, error) {
	if err := record.Validate(); err != nil {
		observability.RecordPaymentLink("", "invalid")
		return "", err
	}

	settlement, source, err := s.ResolveSettlement(ctx, tx, tenantID, record)
	if err != nil {
		observability.RecordPaymentLink(string(source), statusFor(err))
		return "", err
	}

	cfg, err := s.linkConfig(ctx, tenantID)
	if err != nil {
		observability.RecordPaymentLink(string(source), statusFor(err))
		return "", err
	}

	link, err := s.builder.Build(cfg, gateway.NewTransactionPayload(record, settlement))
	if err != nil {
		observability.RecordPaymentLink(string(source), statusFor(err))
		return "", err
	}

	if err := s.records.UpdateSettlementAmount(ctx, tx, record.ID, settlement); err != nil {
		observability.RecordPaymentLink(string(source), "failed")
		return "", fmt.Errorf("failed to store settlement amount: %w", err)
	}
	record.AmountVES = settlement

	observability.RecordPaymentLink(string(source), "success")
	s.logger.Info("Payment link built",
		zap.String("tenant_id", tenantID.String()),
		zap.String("record_id", record.ID.String()),
		zap.String("invoice_number", record.InvoiceNumber),
		zap.String("amount_ves", settlement.StringFixed(2)),
		zap.String("rate_source", string(source)),
	)

	return link, nil
}

// ResolveSettlement converts the record amount into VES: fixed rate first,
// then the tenant's latest ingested rate, then 1.
func (s *LinkService) ResolveSettlement(ctx context.Context, db ports.DBTX, tenantID uuid.UUID, record *domain.TransactionRecord) (decimal.Decimal, domain.RateSource, error) {
	var latest *decimal.Decimal
	if !record.HasFixedRate() {
		rate, err := s.rates.GetLatest(ctx, db, tenantID, domain.SettlementCurrency)
		switch {
		case err == nil:
			latest = &rate.Rate
		case domain.IsNotFoundError(err):
			// no rate ingested yet
		default:
			return decimal.Zero, "", fmt.Errorf("failed to read latest exchange rate: %w", err)
		}
	}

	settlement, source := domain.ResolveSettlementAmount(record.Amount, record.FixedExchangeRate, latest)

	if source == domain.RateSourceDefault {
		if s.requireIngestedRate {
			return decimal.Zero, source, domain.NewConfigError(ingestedRateKey)
		}
		observability.RecordRateFallback()
		s.logger.Warn("No exchange rate available, settling at 1:1",
			zap.String("tenant_id", tenantID.String()),
			zap.String("invoice_number", record.InvoiceNumber),
			zap.String("currency", domain.SettlementCurrency),
		)
	}

	if !settlement.IsPositive() {
		return decimal.Zero, source, domain.ErrSettlementNotPositive
	}
	return settlement, source, nil
}

func (s *LinkService) linkConfig(ctx context.Context, tenantID uuid.UUID) (gateway.LinkConfig, error) {
	var cfg gateway.LinkConfig
	for _, p := range []struct {
		key  string
		dest *string
	}{
		{domain.ParamPaymentURL, &cfg.BaseURL},
		{domain.ParamIntegratorID, &cfg.IntegratorID},
		{domain.ParamSecretKey, &cfg.SecretKey},
	} {
		value, err := s.params.Require(ctx, tenantID, p.key)
		if err != nil {
			return cfg, err
		}
		*p.dest = value
	}
	return cfg, nil
}

func statusFor(err error) string {
	switch {
	case domain.IsConfigError(err):
		return "config_missing"
	case domain.IsValidationError(err):
		return "invalid"
	default:
		return "failed"
	}
}

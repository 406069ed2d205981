// Package orders turns storefront order webhooks into sale orders, invoices and payment links.
package orders

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/steamsolutionsvzla/odoo-megalabs/internal/domain"
	"github.com/steamsolutionsvzla/odoo-megalabs/internal/domain/ports"
	"github.com/steamsolutionsvzla/odoo-megalabs/pkg/observability"
	"github.com/steamsolutionsvzla/odoo-megalabs/pkg/timeutil"
	"go.uber.org/zap"
)

// Outcome messages returned to the storefront. They double as metric labels.
const (
	MsgInvalidJSON      = "Invalid JSON"
	MsgEmptyBody        = "Empty request body"
	MsgInvalidPayload   = "Invalid order payload"
	MsgAlreadyReceived  = "Webhook already received"
	MsgVoided           = "Voided order ignored"
	MsgAlreadyExists    = "Order already exists"
	MsgCreatedPaid      = "Order Created and Paid"
	MsgCreatedCancelled = "Order Created and Cancelled"
	MsgMerchantMissing  = "Merchant ID missing"
	MsgLinkSent         = "Order Draft Created, Link Sent"
	MsgEmailFailed      = "Order Draft Created, Email Failed"
	MsgError            = "error"
)

// SpecialNote is printed on every payment link email
const SpecialNote = "Su pedido será enviado en 24 horas"

var errMerchantMissing = errors.New("company has no merchant id")

// ErrAlreadyPaid is returned when a link is requested for a confirmed payment
var ErrAlreadyPaid = domain.NewValidationError("payment already confirmed for this order")

// LinkBuilder builds a checkout link inside the caller's transaction
type LinkBuilder interface {
	BuildPaymentLinkTx(ctx context.Context, tx ports.DBTX, tenantID uuid.UUID, record *domain.TransactionRecord) (string, error)
}

// Config holds the non-tenant settings of the order flow
type Config struct {
	BankJournal string
	ReturnURL   string
}

// Result is the HTTP answer for one order webhook
type Result struct {
	Body    map[string]interface{}
	Message string
	Status  int
}

// pendingLink carries what the email needs out of the transaction
type pendingLink struct {
	email ports.PaymentLinkEmail
	link  string
}

// Service processes orders/create webhooks
type Service struct {
	db       ports.TransactionManager
	orders   ports.OrderRepository
	ledger   ports.LedgerRepository
	records  ports.TransactionRecordRepository
	links    LinkBuilder
	mailer   ports.Mailer
	guard    ports.DeliveryGuard
	validate *validator.Validate
	cfg      Config
	logger   *zap.Logger
}

// NewService creates the order service. mailer and guard may be nil.
func NewService(
	db ports.TransactionManager,
	orders ports.OrderRepository,
	ledger ports.LedgerRepository,
	records ports.TransactionRecordRepository,
	links LinkBuilder,
	mailer ports.Mailer,
	guard ports.DeliveryGuard,
	cfg Config,
	logger *zap.Logger,
) *Service {
	return &Service{
		db:       db,
		orders:   orders,
		ledger:   ledger,
		records:  records,
		links:    links,
		mailer:   mailer,
		guard:    guard,
		validate: validator.New(),
		cfg:      cfg,
		logger:   logger,
	}
}

// HandleOrderCreated processes one orders/create delivery. deliveryID is the
// X-Shopify-Webhook-Id header and may be blank.
func (s *Service) HandleOrderCreated(ctx context.Context, tenantID uuid.UUID, deliveryID string, raw []byte) *Result {
	result := s.handle(ctx, tenantID, deliveryID, raw)
	observability.RecordShopifyOrder(result.Message)

	if result.Status >= http.StatusInternalServerError && s.guard != nil && deliveryID != "" {
		if err := s.guard.Forget(ctx, deliveryID); err != nil {
			s.logger.Warn("Failed to release webhook delivery id", zap.String("delivery_id", deliveryID), zap.Error(err))
		}
	}
	return result
}

func (s *Service) handle(ctx context.Context, tenantID uuid.UUID, deliveryID string, raw []byte) *Result {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte("{}")) {
		return reply(http.StatusOK, MsgEmptyBody)
	}

	var order domain.ShopifyOrder
	if err := json.Unmarshal(trimmed, &order); err != nil {
		s.logger.Error("Failed to decode storefront order", zap.Error(err))
		return reply(http.StatusOK, MsgInvalidJSON)
	}
	if err := s.validate.Struct(&order); err != nil {
		s.logger.Warn("Storefront order failed validation", zap.Error(err))
		return reply(http.StatusOK, MsgInvalidPayload)
	}

	if s.guard != nil && deliveryID != "" {
		first, err := s.guard.FirstDelivery(ctx, deliveryID)
		if err != nil {
			s.logger.Warn("Delivery guard unavailable, processing anyway",
				zap.String("delivery_id", deliveryID),
				zap.Error(err),
			)
		} else if !first {
			s.logger.Info("Repeated webhook delivery ignored", zap.String("delivery_id", deliveryID))
			return reply(http.StatusOK, MsgAlreadyReceived)
		}
	}

	if order.FinancialStatus == domain.ShopifyFinancialVoided {
		s.logger.Info("Ignoring voided storefront order", zap.String("order", order.Name))
		return reply(http.StatusOK, MsgVoided)
	}

	existing, err := s.orders.GetOrderByClientRef(ctx, nil, tenantID, order.ExternalID())
	switch {
	case err == nil:
		res := reply(http.StatusOK, MsgAlreadyExists)
		res.Body["order_id"] = existing.ID.String()
		return res
	case !domain.IsNotFoundError(err):
		s.logger.Error("Failed to look up existing order", zap.String("client_ref", order.ExternalID()), zap.Error(err))
		return reply(http.StatusInternalServerError, MsgError)
	}

	var (
		message string
		pending *pendingLink
	)
	err = s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		var txErr error
		message, pending, txErr = s.createOrder(ctx, tx, tenantID, &order)
		return txErr
	})
	if errors.Is(err, errMerchantMissing) {
		s.logger.Error("Merchant id not configured, order rolled back",
			zap.String("tenant_id", tenantID.String()),
			zap.String("order", order.Name),
		)
		return reply(http.StatusOK, MsgMerchantMissing)
	}
	if err != nil {
		s.logger.Error("Storefront order sync failed, rolled back",
			zap.String("order", order.Name),
			zap.Error(err),
		)
		return reply(http.StatusInternalServerError, MsgError)
	}

	if pending == nil {
		return reply(http.StatusOK, message)
	}
	return reply(http.StatusOK, s.sendLink(ctx, pending))
}

func (s *Service) createOrder(ctx context.Context, tx ports.DBTX, tenantID uuid.UUID, order *domain.ShopifyOrder) (string, *pendingLink, error) {
	partner, err := s.resolvePartner(ctx, tx, tenantID, order)
	if err != nil {
		return "", nil, err
	}

	so := &domain.SaleOrder{
		ID:             uuid.New(),
		CompanyID:      tenantID,
		PartnerID:      partner.ID,
		Name:           order.Name,
		Origin:         order.Name,
		ClientOrderRef: order.ExternalID(),
		DateOrder:      order.OrderDate(timeutil.Now()),
		CurrencyCode:   strings.ToUpper(order.Currency),
		AmountTotal:    order.Total(),
		Lines:          order.Lines(),
		Note:           orderNote(order, partner),
		State:          domain.OrderStateDraft,
	}
	if err := s.orders.CreateOrder(ctx, tx, so); err != nil {
		return "", nil, fmt.Errorf("create order: %w", err)
	}

	switch order.FinancialStatus {
	case domain.ShopifyFinancialPaid:
		invoice, err := s.confirmAndInvoice(ctx, tx, so)
		if err != nil {
			return "", nil, err
		}
		invoiceID := invoice.ID
		payment := &domain.Payment{
			ID:           uuid.New(),
			CompanyID:    tenantID,
			PartnerID:    partner.ID,
			InvoiceID:    &invoiceID,
			Amount:       invoice.AmountTotal,
			CurrencyCode: invoice.CurrencyCode,
			JournalCode:  s.cfg.BankJournal,
			Memo:         "Shopify " + order.Name,
		}
		if err := s.ledger.RegisterPayment(ctx, tx, payment); err != nil {
			return "", nil, fmt.Errorf("register payment: %w", err)
		}
		if err := s.ledger.MarkInvoicePaid(ctx, tx, invoice.ID); err != nil {
			return "", nil, fmt.Errorf("mark invoice paid: %w", err)
		}
		return MsgCreatedPaid, nil, nil

	case domain.ShopifyFinancialRefunded:
		if err := s.orders.UpdateOrderState(ctx, tx, so.ID, domain.OrderStateCanceled); err != nil {
			return "", nil, fmt.Errorf("cancel order: %w", err)
		}
		return MsgCreatedCancelled, nil, nil
	}

	if _, err := s.confirmAndInvoice(ctx, tx, so); err != nil {
		return "", nil, err
	}

	company, err := s.orders.GetCompany(ctx, tx, tenantID)
	if err != nil {
		return "", nil, fmt.Errorf("load company: %w", err)
	}
	if strings.TrimSpace(company.MercantilMerchantID) == "" {
		return "", nil, errMerchantMissing
	}

	record, err := s.newTransactionRecord(ctx, tx, so, partner, company.MercantilMerchantID, order)
	if err != nil {
		return "", nil, err
	}

	link, err := s.links.BuildPaymentLinkTx(ctx, tx, tenantID, record)
	if err != nil {
		return "", nil, fmt.Errorf("build payment link: %w", err)
	}

	email := linkEmail(so, partner, link)
	if email.To == "" {
		email.To = order.Email
	}
	email.ShippingMethod = order.ShippingMethod()
	email.PaymentMethod = order.PaymentGateway()
	return "", &pendingLink{link: link, email: email}, nil
}

// ResendPaymentLink rebuilds the link of the order's latest payment attempt and
// emails it again. The link is returned even when the email cannot be sent.
func (s *Service) ResendPaymentLink(ctx context.Context, saleOrderID uuid.UUID) (string, error) {
	so, err := s.orders.GetOrder(ctx, nil, saleOrderID)
	if err != nil {
		return "", fmt.Errorf("load order: %w", err)
	}
	record, err := s.records.GetLatestForOrder(ctx, nil, saleOrderID)
	if err != nil {
		return "", fmt.Errorf("load payment attempt: %w", err)
	}
	if record.IsConfirmed() {
		return "", ErrAlreadyPaid
	}
	partner, err := s.orders.GetPartner(ctx, nil, so.PartnerID)
	if err != nil {
		return "", fmt.Errorf("load partner: %w", err)
	}

	var link string
	err = s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		var txErr error
		link, txErr = s.links.BuildPaymentLinkTx(ctx, tx, so.CompanyID, record)
		return txErr
	})
	if err != nil {
		return "", fmt.Errorf("build payment link: %w", err)
	}

	email := linkEmail(so, partner, link)
	if email.To == "" {
		return link, fmt.Errorf("partner %s has no email address", partner.ID)
	}
	if s.sendLink(ctx, &pendingLink{link: link, email: email}) != MsgLinkSent {
		return link, errors.New("payment link email was not sent")
	}
	return link, nil
}

func (s *Service) confirmAndInvoice(ctx context.Context, tx ports.DBTX, so *domain.SaleOrder) (*domain.Invoice, error) {
	if err := s.orders.UpdateOrderState(ctx, tx, so.ID, domain.OrderStateSale); err != nil {
		return nil, fmt.Errorf("confirm order: %w", err)
	}
	so.State = domain.OrderStateSale

	now := timeutil.Now()
	invoice := &domain.Invoice{
		ID:           uuid.New(),
		CompanyID:    so.CompanyID,
		SaleOrderID:  so.ID,
		PartnerID:    so.PartnerID,
		Ref:          so.ClientOrderRef,
		AmountTotal:  so.AmountTotal,
		CurrencyCode: so.CurrencyCode,
		PaymentState: domain.InvoiceNotPaid,
		PostedAt:     &now,
	}
	if err := s.ledger.CreateInvoice(ctx, tx, invoice); err != nil {
		return nil, fmt.Errorf("post invoice: %w", err)
	}
	return invoice, nil
}

func (s *Service) newTransactionRecord(ctx context.Context, tx ports.DBTX, so *domain.SaleOrder, partner *domain.Partner, merchantID string, order *domain.ShopifyOrder) (*domain.TransactionRecord, error) {
	attempt, err := s.records.NextAttempt(ctx, tx, so.ID)
	if err != nil {
		return nil, fmt.Errorf("next attempt: %w", err)
	}

	invoiceNumber := so.ClientOrderRef
	if invoiceNumber == "" {
		invoiceNumber = so.Name
	}
	orderDay := domain.DateOnly(so.DateOrder)

	record := &domain.TransactionRecord{
		ID:                   uuid.New(),
		CompanyID:            so.CompanyID,
		SaleOrderID:          so.ID,
		Attempt:              attempt,
		MerchantID:           merchantID,
		InvoiceNumber:        invoiceNumber,
		ContractNumber:       order.ContractNumber(),
		Amount:               so.AmountTotal,
		TrxType:              domain.TrxTypePurchase,
		CurrencyCode:         domain.GatewayCurrency,
		PaymentConcepts:      domain.DefaultPaymentConcepts(),
		ReturnURL:            s.cfg.ReturnURL,
		CustomerName:         domain.DeriveCustomerName(partner),
		InvoiceCreationDate:  &orderDay,
		InvoiceCancelledDate: &orderDay,
		ContractDate:         &orderDay,
		Status:               domain.TransactionStatusAwaitingPayment,
	}
	if err := s.records.Create(ctx, tx, record); err != nil {
		return nil, fmt.Errorf("create transaction record: %w", err)
	}
	return record, nil
}

func (s *Service) resolvePartner(ctx context.Context, tx ports.DBTX, tenantID uuid.UUID, order *domain.ShopifyOrder) (*domain.Partner, error) {
	var externalRef, email, name, phone string
	if c := order.Customer; c != nil {
		externalRef = c.ID.String()
		email = c.Email
		name = c.CustomerName()
		phone = c.Phone
	}
	if email == "" {
		email = order.Email
	}

	partner, err := s.orders.FindPartner(ctx, tx, tenantID, externalRef, email)
	if err == nil {
		return partner, nil
	}
	if !domain.IsNotFoundError(err) {
		return nil, fmt.Errorf("find partner: %w", err)
	}

	if name == "" {
		name = email
	}
	partner = &domain.Partner{
		ID:          uuid.New(),
		CompanyID:   tenantID,
		Name:        name,
		Email:       email,
		Phone:       phone,
		ExternalRef: externalRef,
	}
	if b := order.BillingAddress; b != nil {
		partner.Street = b.Address1
		partner.Street2 = b.Address2
		partner.City = b.City
		partner.Province = b.Province
		partner.Zip = b.Zip
		partner.CountryCode = b.CountryCode
		partner.CompanyName = b.Company
		if b.Phone != "" {
			partner.Phone = b.Phone
		}
	}
	if err := s.orders.CreatePartner(ctx, tx, partner); err != nil {
		return nil, fmt.Errorf("create partner: %w", err)
	}
	return partner, nil
}

func (s *Service) sendLink(ctx context.Context, p *pendingLink) string {
	if s.mailer == nil {
		s.logger.Warn("No mail relay configured, payment link not sent", zap.String("order", p.email.OrderName))
		observability.RecordPaymentLinkEmail("failed")
		return MsgEmailFailed
	}
	if err := s.mailer.SendPaymentLink(ctx, p.email); err != nil {
		s.logger.Error("Failed to email payment link",
			zap.String("order", p.email.OrderName),
			zap.String("to", p.email.To),
			zap.Error(err),
		)
		observability.RecordPaymentLinkEmail("failed")
		return MsgEmailFailed
	}
	observability.RecordPaymentLinkEmail("sent")
	s.logger.Info("Payment link sent", zap.String("order", p.email.OrderName), zap.String("to", p.email.To))
	return MsgLinkSent
}

func linkEmail(so *domain.SaleOrder, partner *domain.Partner, link string) ports.PaymentLinkEmail {
	return ports.PaymentLinkEmail{
		To:             partner.Email,
		CustomerName:   partner.Name,
		OrderName:      so.Name,
		PaymentLink:    link,
		TrackingNumber: "TRK-" + so.Name,
		SpecialNote:    SpecialNote,
		Total:          so.AmountTotal.StringFixed(2),
		Currency:       so.CurrencyCode,
	}
}

func orderNote(order *domain.ShopifyOrder, partner *domain.Partner) string {
	var b strings.Builder
	b.WriteString("--- INFORMACIÓN DE DESPACHO ---\n")
	fmt.Fprintf(&b, "Método de Envío: %s\n", order.ShippingMethod())
	fmt.Fprintf(&b, "Pasarela de Pago: %s\n\n", order.PaymentGateway())
	b.WriteString("--- DIRECCIÓN DE FACTURACIÓN ---\n")
	b.WriteString(partner.Name + "\n")
	phone := partner.Phone
	if addr := order.BillingAddress; addr != nil {
		fmt.Fprintf(&b, "%s, %s\n", addr.Address1, addr.Address2)
		fmt.Fprintf(&b, "%s, %s %s\n", addr.City, addr.Province, addr.Zip)
		if addr.Phone != "" {
			phone = addr.Phone
		}
	}
	if phone == "" {
		phone = "N/A"
	}
	fmt.Fprintf(&b, "Tel: %s\n\n", phone)
	b.WriteString("--- NOTAS ADICIONALES ---\n")
	b.WriteString("Por favor, si su pago es por transferencia o Pago Móvil, envíe el comprobante al correo de contacto.")
	return b.String()
}

func reply(status int, message string) *Result {
	return &Result{
		Status:  status,
		Message: message,
		Body:    map[string]interface{}{"message": message},
	}
}

package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/steamsolutionsvzla/odoo-megalabs/internal/converters"
	"github.com/steamsolutionsvzla/odoo-megalabs/internal/domain"
	"github.com/steamsolutionsvzla/odoo-megalabs/internal/domain/ports"
)

const partnerColumns = `id, company_id, name, company_name, email, phone, external_ref,
	street, street2, city, province, zip, country_code, created_at`

const saleOrderColumns = `id, company_id, partner_id, name, origin, client_order_ref, state,
	amount_total, currency_code, date_order, note, lines, created_at, updated_at`

// OrderRepository implements ports.OrderRepository
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository creates a new repository
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// GetCompany returns a tenant
func (r *OrderRepository) GetCompany(ctx context.Context, db ports.DBTX, companyID uuid.UUID) (*domain.Company, error) {
	var (
		c          domain.Company
		merchantID pgtype.Text
	)
	err := executor(r.pool, db).QueryRow(ctx,
		`SELECT id, name, mercantil_merchant_id, currency_code FROM companies WHERE id = $1`, companyID,
	).Scan(&c.ID, &c.Name, &merchantID, &c.CurrencyCode)
	if err != nil {
		return nil, notFound(err, domain.ErrNotFound, "get company")
	}
	c.MercantilMerchantID = converters.TextOrEmpty(merchantID)
	return &c, nil
}

// FindPartner matches by external ref first, then by case-insensitive email
func (r *OrderRepository) FindPartner(ctx context.Context, db ports.DBTX, companyID uuid.UUID, externalRef, email string) (*domain.Partner, error) {
	q := executor(r.pool, db)
	if externalRef != "" {
		p, err := scanPartner(q.QueryRow(ctx,
			`SELECT `+partnerColumns+` FROM partners WHERE company_id = $1 AND external_ref = $2
			 ORDER BY created_at LIMIT 1`, companyID, externalRef))
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("find partner by ref: %w", err)
		}
	}
	if email != "" {
		p, err := scanPartner(q.QueryRow(ctx,
			`SELECT `+partnerColumns+` FROM partners WHERE company_id = $1 AND lower(email) = lower($2)
			 ORDER BY created_at LIMIT 1`, companyID, email))
		if err != nil {
			return nil, notFound(err, domain.ErrNotFound, "find partner by email")
		}
		return p, nil
	}
	return nil, domain.ErrNotFound
}

// CreatePartner inserts a partner
func (r *OrderRepository) CreatePartner(ctx context.Context, tx ports.DBTX, p *domain.Partner) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	err := executor(r.pool, tx).QueryRow(ctx, `
		INSERT INTO partners (id, company_id, name, company_name, email, phone, external_ref,
			street, street2, city, province, zip, country_code)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at`,
		p.ID, p.CompanyID, p.Name, p.CompanyName, p.Email, p.Phone, p.ExternalRef,
		p.Street, p.Street2, p.City, p.Province, p.Zip, p.CountryCode,
	).Scan(&p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert partner: %w", err)
	}
	return nil
}

// GetPartner returns a partner by ID
func (r *OrderRepository) GetPartner(ctx context.Context, db ports.DBTX, id uuid.UUID) (*domain.Partner, error) {
	p, err := scanPartner(executor(r.pool, db).QueryRow(ctx,
		`SELECT `+partnerColumns+` FROM partners WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, domain.ErrNotFound, "get partner")
	}
	return p, nil
}

// GetOrderByClientRef finds an order by the storefront order id
func (r *OrderRepository) GetOrderByClientRef(ctx context.Context, db ports.DBTX, companyID uuid.UUID, clientRef string) (*domain.SaleOrder, error) {
	o, err := scanSaleOrder(executor(r.pool, db).QueryRow(ctx,
		`SELECT `+saleOrderColumns+` FROM sale_orders WHERE company_id = $1 AND client_order_ref = $2`,
		companyID, clientRef))
	if err != nil {
		return nil, notFound(err, domain.ErrNotFound, "get order by client ref")
	}
	return o, nil
}

// GetOrder returns an order by ID
func (r *OrderRepository) GetOrder(ctx context.Context, db ports.DBTX, id uuid.UUID) (*domain.SaleOrder, error) {
	o, err := scanSaleOrder(executor(r.pool, db).QueryRow(ctx,
		`SELECT `+saleOrderColumns+` FROM sale_orders WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, domain.ErrNotFound, "get order")
	}
	return o, nil
}

// CreateOrder inserts a sale order with its lines
func (r *OrderRepository) CreateOrder(ctx context.Context, tx ports.DBTX, o *domain.SaleOrder) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	if o.State == "" {
		o.State = domain.OrderStateDraft
	}
	lines, err := json.Marshal(o.Lines)
	if err != nil {
		return fmt.Errorf("encode order lines: %w", err)
	}
	if o.Lines == nil {
		lines = []byte("[]")
	}
	err = executor(r.pool, tx).QueryRow(ctx, `
		INSERT INTO sale_orders (id, company_id, partner_id, name, origin, client_order_ref, state,
			amount_total, currency_code, date_order, note, lines)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at`,
		o.ID, o.CompanyID, o.PartnerID, o.Name, o.Origin, o.ClientOrderRef, string(o.State),
		decimalToNumeric(o.AmountTotal), o.CurrencyCode, o.DateOrder, o.Note, lines,
	).Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert sale order: %w", err)
	}
	return nil
}

// UpdateOrderState moves an order to a new state
func (r *OrderRepository) UpdateOrderState(ctx context.Context, tx ports.DBTX, id uuid.UUID, state domain.OrderState) error {
	tag, err := executor(r.pool, tx).Exec(ctx,
		`UPDATE sale_orders SET state = $2, updated_at = NOW() WHERE id = $1`, id, string(state))
	if err != nil {
		return fmt.Errorf("update order state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanPartner(row rowScanner) (*domain.Partner, error) {
	var p domain.Partner
	err := row.Scan(&p.ID, &p.CompanyID, &p.Name, &p.CompanyName, &p.Email, &p.Phone, &p.ExternalRef,
		&p.Street, &p.Street2, &p.City, &p.Province, &p.Zip, &p.CountryCode, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func scanSaleOrder(row rowScanner) (*domain.SaleOrder, error) {
	var (
		o      domain.SaleOrder
		state  string
		amount pgtype.Numeric
		lines  []byte
	)
	err := row.Scan(&o.ID, &o.CompanyID, &o.PartnerID, &o.Name, &o.Origin, &o.ClientOrderRef, &state,
		&amount, &o.CurrencyCode, &o.DateOrder, &o.Note, &lines, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	o.State = domain.OrderState(state)
	if o.AmountTotal, err = pgNumericToDecimal(amount); err != nil {
		return nil, fmt.Errorf("amount_total: %w", err)
	}
	if len(lines) > 0 {
		if err := json.Unmarshal(lines, &o.Lines); err != nil {
			return nil, fmt.Errorf("decode order lines: %w", err)
		}
	}
	return &o, nil
}

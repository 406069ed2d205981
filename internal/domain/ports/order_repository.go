package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/steamsolutionsvzla/odoo-megalabs/internal/domain"
)

// OrderRepository covers companies, partners and sale orders
type OrderRepository interface {
	GetCompany(ctx context.Context, db DBTX, companyID uuid.UUID) (*domain.Company, error)

	// FindPartner matches by external ref first, then by email. Returns domain.ErrNotFound.
	FindPartner(ctx context.Context, db DBTX, companyID uuid.UUID, externalRef, email string) (*domain.Partner, error)
	CreatePartner(ctx context.Context, tx DBTX, partner *domain.Partner) error
	GetPartner(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Partner, error)

	// GetOrderByClientRef finds an order by the storefront order id. Returns domain.ErrNotFound.
	GetOrderByClientRef(ctx context.Context, db DBTX, companyID uuid.UUID, clientRef string) (*domain.SaleOrder, error)
	GetOrder(ctx context.Context, db DBTX, id uuid.UUID) (*domain.SaleOrder, error)
	CreateOrder(ctx context.Context, tx DBTX, order *domain.SaleOrder) error
	UpdateOrderState(ctx context.Context, tx DBTX, id uuid.UUID, state domain.OrderState) error
}

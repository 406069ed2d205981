package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Shopify financial statuses the order flow branches on
const (
	ShopifyFinancialPaid     = "paid"
	ShopifyFinancialVoided   = "voided"
	ShopifyFinancialRefunded = "refunded"
)

// ShopifyCustomer is the customer block of an orders/create webhook
type ShopifyCustomer struct {
	ID        FlexString `json:"id"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	Email     string     `json:"email" validate:"omitempty,email"`
	Phone     string     `json:"phone"`
}

// ShopifyAddress is a billing or shipping address
type ShopifyAddress struct {
	Address1    string `json:"address1"`
	Address2    string `json:"address2"`
	City        string `json:"city"`
	Province    string `json:"province"`
	Zip         string `json:"zip"`
	CountryCode string `json:"country_code"`
	Phone       string `json:"phone"`
	Company     string `json:"company"`
}

// ShopifyLineItem is one product line
type ShopifyLineItem struct {
	SKU      string          `json:"sku"`
	Title    string          `json:"title" validate:"required"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity" validate:"gte=0"`
}

// ShopifyShippingLine is a shipping method
type ShopifyShippingLine struct {
	Title string `json:"title"`
}

// ShopifyOrder is the subset of the orders/create payload the pipeline consumes
type ShopifyOrder struct {
	Customer            *ShopifyCustomer      `json:"customer" validate:"omitempty"`
	BillingAddress      *ShopifyAddress       `json:"billing_address"`
	ID                  FlexString            `json:"id" validate:"required"`
	Name                string                `json:"name" validate:"required"`
	OrderNumber         FlexString            `json:"order_number"`
	Currency            string                `json:"currency"`
	FinancialStatus     string                `json:"financial_status"`
	CreatedAt           string                `json:"created_at"`
	Email               string                `json:"email"`
	TotalPrice          decimal.Decimal       `json:"total_price"`
	LineItems           []ShopifyLineItem     `json:"line_items" validate:"dive"`
	ShippingLines       []ShopifyShippingLine `json:"shipping_lines"`
	PaymentGatewayNames []string              `json:"payment_gateway_names"`
}

// ExternalID returns the storefront's internal order id
func (o *ShopifyOrder) ExternalID() string {
	return o.ID.String()
}

// OrderDate parses created_at, falling back to now when it is absent or malformed
func (o *ShopifyOrder) OrderDate(now time.Time) time.Time {
	if o.CreatedAt == "" {
		return now.UTC()
	}
	t, err := time.Parse(time.RFC3339, o.CreatedAt)
	if err != nil {
		return now.UTC()
	}
	return t.UTC()
}

// ContractNumber is the human order number sent to the gateway
func (o *ShopifyOrder) ContractNumber() string {
	if n := o.OrderNumber.String(); n != "" {
		return n
	}
	return strings.TrimPrefix(o.Name, "#")
}

// CustomerName joins first and last name
func (c *ShopifyCustomer) CustomerName() string {
	return strings.TrimSpace(fmt.Sprintf("%s %s", c.FirstName, c.LastName))
}

// ShippingMethod returns the first shipping line title
func (o *ShopifyOrder) ShippingMethod() string {
	if len(o.ShippingLines) == 0 || strings.TrimSpace(o.ShippingLines[0].Title) == "" {
		return "No Shipping"
	}
	return o.ShippingLines[0].Title
}

// PaymentGateway returns the first payment gateway name
func (o *ShopifyOrder) PaymentGateway() string {
	if len(o.PaymentGatewayNames) == 0 {
		return "unknown"
	}
	return o.PaymentGatewayNames[0]
}

// Lines converts storefront line items into order lines
func (o *ShopifyOrder) Lines() []OrderLine {
	lines := make([]OrderLine, 0, len(o.LineItems))
	for _, item := range o.LineItems {
		lines = append(lines, OrderLine{
			SKU:       item.SKU,
			Title:     item.Title,
			PriceUnit: item.Price,
			Quantity:  item.Quantity,
		})
	}
	return lines
}

// Total returns total_price, or the sum of the lines when the total is missing
func (o *ShopifyOrder) Total() decimal.Decimal {
	if o.TotalPrice.IsPositive() {
		return o.TotalPrice
	}
	total := decimal.Zero
	for _, item := range o.LineItems {
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

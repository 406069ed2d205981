package ports

import "context"

// PaymentLinkEmail is the content of a payment link message
type PaymentLinkEmail struct {
	To             string
	CustomerName   string
	OrderName      string
	PaymentLink    string
	TrackingNumber string
	ShippingMethod string
	PaymentMethod  string
	SpecialNote    string
	Total          string
	Currency       string
}

// Mailer sends customer-facing email
type Mailer interface {
	SendPaymentLink(ctx context.Context, msg PaymentLinkEmail) error
}

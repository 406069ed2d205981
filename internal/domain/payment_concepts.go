package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// PaymentConcept is a payment channel the gateway offers on the checkout page
type PaymentConcept string

const (
	PaymentConceptB2B PaymentConcept = "b2b" // bank transfer
	PaymentConceptC2P PaymentConcept = "c2p" // mobile payment
	PaymentConceptTDD PaymentConcept = "tdd" // debit card
)

var allowedPaymentConcepts = map[PaymentConcept]bool{
	PaymentConceptB2B: true,
	PaymentConceptC2P: true,
	PaymentConceptTDD: true,
}

// PaymentConcepts is the ordered list of accepted channels
type PaymentConcepts []PaymentConcept

// DefaultPaymentConcepts returns the channels offered when nothing is configured
func DefaultPaymentConcepts() PaymentConcepts {
	return PaymentConcepts{PaymentConceptB2B, PaymentConceptC2P, PaymentConceptTDD}
}

// ParsePaymentConcepts reads a stored JSON array of concepts.
// Only a JSON array of allow-listed strings is accepted; blank input yields the defaults.
func ParsePaymentConcepts(raw string) (PaymentConcepts, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultPaymentConcepts(), nil
	}

	var values []string
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil, WrapError(ErrorCodeValidationFailed, "payment concepts must be a JSON array of strings", err)
	}
	if len(values) == 0 {
		return DefaultPaymentConcepts(), nil
	}

	concepts := make(PaymentConcepts, 0, len(values))
	seen := make(map[PaymentConcept]bool, len(values))
	for _, v := range values {
		c := PaymentConcept(strings.ToLower(strings.TrimSpace(v)))
		if !allowedPaymentConcepts[c] {
			return nil, NewValidationError(fmt.Sprintf("payment concept %q is not allowed", v))
		}
		if seen[c] {
			continue
		}
		seen[c] = true
		concepts = append(concepts, c)
	}
	return concepts, nil
}

// Strings returns the concepts as plain strings, preserving order
func (p PaymentConcepts) Strings() []string {
	out := make([]string, len(p))
	for i, c := range p {
		out[i] = string(c)
	}
	return out
}

// OrDefault returns the defaults when the list is empty
func (p PaymentConcepts) OrDefault() PaymentConcepts {
	if len(p) == 0 {
		return DefaultPaymentConcepts()
	}
	return p
}

package mercantil

import (
	"fmt"
	"strings"

	"github.com/steamsolutionsvzla/odoo-megalabs/internal/domain"
)

// Encrypter turns plaintext into the gateway's base64 ciphertext
type Encrypter interface {
	Encrypt(plaintext []byte, secretKey string) ([]byte, error)
}

// LinkConfig holds the tenant settings a link needs
type LinkConfig struct {
	BaseURL      string
	IntegratorID string
	SecretKey    string
}

// Validate returns a config error naming the first blank setting
func (c LinkConfig) Validate() error {
	switch {
	case strings.TrimSpace(c.BaseURL) == "":
		return domain.NewConfigError(domain.ParamPaymentURL)
	case strings.TrimSpace(c.IntegratorID) == "":
		return domain.NewConfigError(domain.ParamIntegratorID)
	case strings.TrimSpace(c.SecretKey) == "":
		return domain.NewConfigError(domain.ParamSecretKey)
	}
	return nil
}

// LinkBuilder encrypts payloads and assembles checkout URLs
type LinkBuilder struct {
	codec Encrypter
}

// NewLinkBuilder creates a link builder
func NewLinkBuilder(codec Encrypter) *LinkBuilder {
	return &LinkBuilder{codec: codec}
}

// Build encrypts the payload and returns the checkout URL
func (b *LinkBuilder) Build(cfg LinkConfig, payload TransactionPayload) (string, error) {
	if err := cfg.Validate(); err != nil {
		return "", err
	}

	plaintext, err := payload.Marshal()
	if err != nil {
		return "", err
	}

	ciphertext, err := b.codec.Encrypt(plaintext, strings.TrimSpace(cfg.SecretKey))
	if err != nil {
		return "", fmt.Errorf("failed to encrypt transaction data: %w", err)
	}

	return FormatLink(cfg.BaseURL, payload.MerchantID, string(ciphertext), cfg.IntegratorID), nil
}

// FormatLink assembles the checkout URL. The ciphertext goes in as-is; the
// gateway expects raw base64 and does not decode percent escapes.
func FormatLink(baseURL, merchantID, transactionData, integratorID string) string {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	return fmt.Sprintf("%s/?merchantid=%s&transactiondata=%s&integratorid=%s",
		base, merchantID, transactionData, strings.TrimSpace(integratorID))
}

package smtp

import (
	"context"
	"errors"
	"net/smtp"
	"net/textproto"
	"strings"
	"testing"
	"time"

	domainports "github.com/steamsolutionsvzla/odoo-megalabs/internal/domain/ports"
	"github.com/steamsolutionsvzla/odoo-megalabs/pkg/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type noDelay struct{}

func (noDelay) NextDelay(int) time.Duration { return 0 }

type recordedSend struct {
	addr string
	auth smtp.Auth
	from string
	to   []string
	msg  string
}

func testConfig() Config {
	return Config{Host: "smtp.example.com", Port: 587, Username: "ventas", Password: "pw", From: "ventas@megalabs.com.ve", MaxRetries: 3}
}

func testEmail() domainports.PaymentLinkEmail {
	return domainports.PaymentLinkEmail{
		To:             "ana@example.com",
		CustomerName:   "Ana Pérez",
		OrderName:      "#1001",
		PaymentLink:    "https://pay.example.com/?merchantid=200284&transactiondata=abc+/=&integratorid=31",
		TrackingNumber: "TRK-#1001",
		ShippingMethod: "Envío estándar",
		PaymentMethod:  "mercantil",
		SpecialNote:    "Su pedido será enviado en 24 horas",
		Total:          "100.00",
		Currency:       "USD",
	}
}

func TestMailer_SendPaymentLink(t *testing.T) {
	var sent []recordedSend
	send := func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		sent = append(sent, recordedSend{addr: addr, auth: a, from: from, to: to, msg: string(msg)})
		return nil
	}
	mailer := NewMailerWithSender(testConfig(), send, noDelay{}, security.NewZapLogger(zap.NewNop()))

	err := mailer.SendPaymentLink(context.Background(), testEmail())
	require.NoError(t, err)
	require.Len(t, sent, 1)

	got := sent[0]
	assert.Equal(t, "smtp.example.com:587", got.addr)
	assert.NotNil(t, got.auth)
	assert.Equal(t, "ventas@megalabs.com.ve", got.from)
	assert.Equal(t, []string{"ana@example.com"}, got.to)
	assert.Contains(t, got.msg, "To: ana@example.com\r\n")
	assert.Contains(t, got.msg, "Content-Type: text/html; charset=\"utf-8\"\r\n")
	assert.Contains(t, got.msg, "Ana Pérez")
	assert.Contains(t, got.msg, "TRK-#1001")
	assert.Contains(t, got.msg, "Su pedido será enviado en 24 horas")
	assert.Contains(t, got.msg, `href="https://pay.example.com/?merchantid=200284&amp;transactiondata=`)
	assert.NotContains(t, strings.ReplaceAll(got.msg, "\r\n", ""), "\n", "body lines must be CRLF terminated")
}

func TestMailer_RetriesTransientFailures(t *testing.T) {
	calls := 0
	send := func(string, smtp.Auth, string, []string, []byte) error {
		calls++
		if calls < 3 {
			return &textproto.Error{Code: 421, Msg: "try again later"}
		}
		return nil
	}
	mailer := NewMailerWithSender(testConfig(), send, noDelay{}, security.NewZapLogger(zap.NewNop()))

	require.NoError(t, mailer.SendPaymentLink(context.Background(), testEmail()))
	assert.Equal(t, 3, calls)
}

func TestMailer_PermanentFailureStops(t *testing.T) {
	calls := 0
	send := func(string, smtp.Auth, string, []string, []byte) error {
		calls++
		return &textproto.Error{Code: 550, Msg: "mailbox unavailable"}
	}
	mailer := NewMailerWithSender(testConfig(), send, noDelay{}, security.NewZapLogger(zap.NewNop()))

	err := mailer.SendPaymentLink(context.Background(), testEmail())
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestMailer_GivesUpAfterMaxRetries(t *testing.T) {
	calls := 0
	send := func(string, smtp.Auth, string, []string, []byte) error {
		calls++
		return errors.New("connection refused")
	}
	mailer := NewMailerWithSender(testConfig(), send, noDelay{}, security.NewZapLogger(zap.NewNop()))

	err := mailer.SendPaymentLink(context.Background(), testEmail())
	assert.ErrorContains(t, err, "connection refused")
	assert.Equal(t, 3, calls)
}

func TestMailer_NoRecipient(t *testing.T) {
	mailer := NewMailerWithSender(testConfig(), func(string, smtp.Auth, string, []string, []byte) error {
		t.Fatal("send must not be called")
		return nil
	}, noDelay{}, security.NewZapLogger(zap.NewNop()))

	msg := testEmail()
	msg.To = " "
	assert.Error(t, mailer.SendPaymentLink(context.Background(), msg))
}

func TestMailer_NoAuthWithoutUsername(t *testing.T) {
	cfg := testConfig()
	cfg.Username = ""
	var gotAuth smtp.Auth = smtp.PlainAuth("", "x", "y", "z")
	mailer := NewMailerWithSender(cfg, func(_ string, a smtp.Auth, _ string, _ []string, _ []byte) error {
		gotAuth = a
		return nil
	}, noDelay{}, security.NewZapLogger(zap.NewNop()))

	require.NoError(t, mailer.SendPaymentLink(context.Background(), testEmail()))
	assert.Nil(t, gotAuth)
}

// Package smtp delivers customer email through an SMTP relay.
package smtp

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"mime"
	"net"
	"net/smtp"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/steamsolutionsvzla/odoo-megalabs/internal/adapters/ports"
	domainports "github.com/steamsolutionsvzla/odoo-megalabs/internal/domain/ports"
	"github.com/steamsolutionsvzla/odoo-megalabs/pkg/resilience"
)

//go:embed templates/*.html
var templateFS embed.FS

var paymentLinkTemplate = template.Must(template.ParseFS(templateFS, "templates/payment_link.html"))

// Config holds relay settings
type Config struct {
	Host       string
	Port       int
	Username   string
	Password   string
	From       string
	MaxRetries int
}

// SendFunc matches net/smtp.SendMail
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer implements domain ports.Mailer
type Mailer struct {
	cfg     Config
	send    SendFunc
	backoff resilience.BackoffStrategy
	logger  ports.Logger
}

var _ domainports.Mailer = (*Mailer)(nil)

// NewMailer creates a mailer that sends through net/smtp
func NewMailer(cfg Config, logger ports.Logger) *Mailer {
	return NewMailerWithSender(cfg, smtp.SendMail, resilience.SMTPBackoff(), logger)
}

// NewMailerWithSender creates a mailer with a custom transport
func NewMailerWithSender(cfg Config, send SendFunc, backoff resilience.BackoffStrategy, logger ports.Logger) *Mailer {
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 1
	}
	return &Mailer{cfg: cfg, send: send, backoff: backoff, logger: logger}
}

// SendPaymentLink renders and sends the payment link email
func (m *Mailer) SendPaymentLink(ctx context.Context, msg domainports.PaymentLinkEmail) error {
	if strings.TrimSpace(msg.To) == "" {
		return errors.New("payment link email has no recipient")
	}

	var body bytes.Buffer
	if err := paymentLinkTemplate.Execute(&body, msg); err != nil {
		return fmt.Errorf("render payment link email: %w", err)
	}

	subject := fmt.Sprintf("Megalabs - Pedido %s", msg.OrderName)
	raw := buildMessage(m.cfg.From, msg.To, subject, body.Bytes(), time.Now())

	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	err := resilience.Retry(ctx, m.cfg.MaxRetries, m.backoff, isTransient, func(attempt int) error {
		err := m.send(addr, auth, m.cfg.From, []string{msg.To}, raw)
		if err != nil {
			m.logger.Warn("SMTP send failed",
				ports.String("to", msg.To),
				ports.String("order", msg.OrderName),
				ports.Int("attempt", attempt+1),
				ports.Err(err),
			)
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("send payment link email: %w", err)
	}

	m.logger.Info("Payment link email sent",
		ports.String("to", msg.To),
		ports.String("order", msg.OrderName),
	)
	return nil
}

// isTransient retries everything except permanent 5xx SMTP replies
func isTransient(err error) bool {
	var protoErr *textproto.Error
	if errors.As(err, &protoErr) {
		return protoErr.Code < 500
	}
	return true
}

func buildMessage(from, to, subject string, html []byte, now time.Time) []byte {
	var b bytes.Buffer
	headers := []struct{ key, value string }{
		{"From", from},
		{"To", to},
		{"Subject", mime.QEncoding.Encode("utf-8", subject)},
		{"Date", now.Format(time.RFC1123Z)},
		{"Message-ID", fmt.Sprintf("<%s@%s>", uuid.NewString(), domainOf(from))},
		{"MIME-Version", "1.0"},
		{"Content-Type", `text/html; charset="utf-8"`},
		{"Content-Transfer-Encoding", "8bit"},
	}
	for _, h := range headers {
		fmt.Fprintf(&b, "%s: %s\r\n", h.key, h.value)
	}
	b.WriteString("\r\n")
	b.Write(bytes.ReplaceAll(bytes.ReplaceAll(html, []byte("\r\n"), []byte("\n")), []byte("\n"), []byte("\r\n")))
	return b.Bytes()
}

func domainOf(addr string) string {
	if i := strings.LastIndex(addr, "@"); i >= 0 && i < len(addr)-1 {
		return strings.Trim(addr[i+1:], "> ")
	}
	return "localhost"
}

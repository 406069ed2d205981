// Package bcv reads the official USD/VES rate from the Banco Central de Venezuela home page.
package bcv

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
	"github.com/steamsolutionsvzla/odoo-megalabs/internal/adapters/ports"
	"github.com/steamsolutionsvzla/odoo-megalabs/internal/domain"
	pkghttp "github.com/steamsolutionsvzla/odoo-megalabs/pkg/http"
	"github.com/steamsolutionsvzla/odoo-megalabs/pkg/resilience"
)

// DefaultURL is the page the rate is scraped from
const DefaultURL = "https://www.bcv.org.ve/"

// UserAgent mimics a desktop browser; the site rejects unknown agents
const UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// rateSelector locates the USD figure on the page
const rateSelector = "div#dolar strong"

// maxPageBytes bounds how much of the page is read
const maxPageBytes = 4 << 20

// Config holds client settings
type Config struct {
	URL                string
	Timeout            time.Duration
	InsecureSkipVerify bool
}

// Client fetches the rate page
type Client struct {
	httpClient ports.HTTPClient
	breaker    *resilience.CircuitBreaker
	url        string
	logger     ports.Logger
}

// NewClient builds a client from config
func NewClient(cfg Config, logger ports.Logger) *Client {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	c := &Client{
		httpClient: pkghttp.NewHTTPClient(pkghttp.BCVClientConfig(cfg.InsecureSkipVerify), cfg.Timeout),
		url:        cfg.URL,
		logger:     logger,
	}
	return c.WithCircuitBreaker(resilience.BCVCircuitBreakerConfig())
}

// NewClientWithHTTP builds a client around an existing HTTP client, without a circuit breaker
func NewClientWithHTTP(url string, httpClient ports.HTTPClient, logger ports.Logger) *Client {
	return &Client{httpClient: httpClient, url: url, logger: logger}
}

// WithCircuitBreaker makes repeated failures short-circuit until the cooldown elapses
func (c *Client) WithCircuitBreaker(cfg resilience.CircuitBreakerConfig) *Client {
	cfg.OnStateChange = func(name string, from, to resilience.CircuitState) {
		c.logger.Warn("Circuit breaker state changed",
			ports.String("upstream", name),
			ports.String("from", from.String()),
			ports.String("to", to.String()),
		)
	}
	c.breaker = resilience.NewCircuitBreaker(cfg)
	return c
}

// FetchUSDRate downloads the page and extracts the USD rate
func (c *Client) FetchUSDRate(ctx context.Context) (decimal.Decimal, error) {
	if c.breaker == nil {
		return c.fetch(ctx)
	}

	var rate decimal.Decimal
	err := c.breaker.Execute(func() error {
		var err error
		rate, err = c.fetch(ctx)
		return err
	})
	if errors.Is(err, resilience.ErrCircuitOpen) || errors.Is(err, resilience.ErrTooManyProbes) {
		return decimal.Zero, domain.WrapError(domain.ErrorCodeUpstreamFailed, "BCV fetch skipped, circuit open", err)
	}
	return rate, err
}

func (c *Client) fetch(ctx context.Context) (decimal.Decimal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("build BCV request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, domain.WrapError(domain.ErrorCodeUpstreamFailed, "BCV page request failed", err)
	}
	defer resp.Body.Close()

	c.logger.Debug("BCV page fetched",
		ports.Int("status", resp.StatusCode),
		ports.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxPageBytes))
		return decimal.Zero, domain.NewDomainError(domain.ErrorCodeUpstreamFailed,
			fmt.Sprintf("BCV page returned status %d", resp.StatusCode))
	}

	return ParseUSDRate(io.LimitReader(resp.Body, maxPageBytes))
}

// ParseUSDRate extracts the rate from page HTML.
// "36,50" and " 36,50 " both parse as 36.50; a missing, unparsable or non-positive value is an error.
func ParseUSDRate(page io.Reader) (decimal.Decimal, error) {
	doc, err := goquery.NewDocumentFromReader(page)
	if err != nil {
		return decimal.Zero, domain.WrapError(domain.ErrorCodeUpstreamFailed, "BCV page is not valid HTML", err)
	}

	node := doc.Find(rateSelector).First()
	if node.Length() == 0 {
		return decimal.Zero, domain.NewDomainError(domain.ErrorCodeUpstreamFailed, "USD rate element not found on BCV page")
	}

	raw := normalizeRate(node.Text())
	rate, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, domain.WrapError(domain.ErrorCodeUpstreamFailed,
			fmt.Sprintf("USD rate %q is not a number", raw), err)
	}
	if !rate.IsPositive() {
		return decimal.Zero, domain.NewDomainError(domain.ErrorCodeUpstreamFailed,
			fmt.Sprintf("USD rate %s is not positive", rate))
	}
	return rate, nil
}

// normalizeRate turns the page's decimal comma into a dot and drops all whitespace
func normalizeRate(text string) string {
	text = strings.ReplaceAll(text, ",", ".")
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, text)
}

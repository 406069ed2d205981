package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/steamsolutionsvzla/odoo-megalabs/internal/adapters/bcv"
	gateway "github.com/steamsolutionsvzla/odoo-megalabs/internal/adapters/mercantil"
	adapterports "github.com/steamsolutionsvzla/odoo-megalabs/internal/adapters/ports"
	"github.com/steamsolutionsvzla/odoo-megalabs/internal/adapters/postgres"
	"github.com/steamsolutionsvzla/odoo-megalabs/internal/adapters/secrets"
	"github.com/steamsolutionsvzla/odoo-megalabs/internal/adapters/smtp"
	"github.com/steamsolutionsvzla/odoo-megalabs/internal/config"
	"github.com/steamsolutionsvzla/odoo-megalabs/internal/domain"
	"github.com/steamsolutionsvzla/odoo-megalabs/internal/domain/ports"
	"github.com/steamsolutionsvzla/odoo-megalabs/internal/services/exchangerate"
	"github.com/steamsolutionsvzla/odoo-megalabs/internal/services/mercantil"
	"github.com/steamsolutionsvzla/odoo-megalabs/internal/services/orders"
	"github.com/steamsolutionsvzla/odoo-megalabs/pkg/crypto"
	"github.com/steamsolutionsvzla/odoo-megalabs/pkg/resilience"
	"github.com/steamsolutionsvzla/odoo-megalabs/pkg/security"
	"github.com/steamsolutionsvzla/odoo-megalabs/pkg/timeutil"
)

// secretParams are never printed unless -reveal is set
var secretParams = map[string]bool{
	domain.ParamSecretKey:     true,
	domain.ParamShopifySecret: true,
}

// AdminCLI holds the wired services an action needs
type AdminCLI struct {
	ctx     context.Context
	cfg     *config.Config
	store   ports.ParameterStore
	secrets adapterports.SecretManagerAdapter
	params  *config.ParamResolver
	records ports.TransactionRecordRepository
	links   *mercantil.LinkService
	orders  *orders.Service
	job     *exchangerate.IngestionJob
}

func main() {
	var (
		action  = flag.String("action", "", "Action to perform: set-param, get-param, payment-link, resend-link, fetch-rate, push-rate")
		key     = flag.String("key", "", "Parameter key, e.g. pago_mercantil.secret_key")
		value   = flag.String("value", "", "Parameter value (prompted without echo when omitted)")
		company = flag.String("company", "", "Company ID (defaults to DEFAULT_COMPANY_ID)")
		global  = flag.Bool("global", false, "Write the global parameter row instead of the company row")
		target  = flag.String("store", "db", "Where set-param writes: db or secret")
		reveal  = flag.Bool("reveal", false, "Print secret parameter values in clear")
		order   = flag.String("order", "", "Sale order ID for payment-link and resend-link")
		date    = flag.String("date", "", "Rate date for push-rate (YYYY-MM-DD)")
		timeout = flag.Duration("timeout", 2*time.Minute, "Overall timeout for the action")
	)
	flag.Parse()

	if *action == "" {
		fmt.Println("Usage: admin -action=<action> [options]")
		fmt.Println("Actions:")
		fmt.Println("  set-param    - Store a business parameter (-key, -value, -company, -global, -store)")
		fmt.Println("  get-param    - Resolve a parameter the way the service does (-key, -company, -reveal)")
		fmt.Println("  payment-link - Rebuild and print the payment link of an order (-order)")
		fmt.Println("  resend-link  - Rebuild the payment link and email it again (-order)")
		fmt.Println("  fetch-rate   - Run the exchange rate ingestion once")
		fmt.Println("  push-rate    - Copy a stored rate into currency rates (-date, -company)")
		os.Exit(1)
	}

	cfg, err := config.LoadForTools()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	db, err := postgres.Connect(ctx, postgres.DefaultPoolConfig(cfg.Database.ConnectionString()), logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	cli, err := newAdminCLI(ctx, cfg, db, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}

	tenant := cfg.Tenant.DefaultCompanyID
	if *company != "" {
		if tenant, err = uuid.Parse(*company); err != nil {
			logger.Fatal("Invalid -company", zap.String("company", *company), zap.Error(err))
		}
	}

	switch *action {
	case "set-param":
		err = cli.setParam(tenant, *global, *target, *key, *value)
	case "get-param":
		err = cli.getParam(tenant, *key, *reveal)
	case "payment-link":
		err = cli.paymentLink(*order)
	case "resend-link":
		err = cli.resendLink(*order)
	case "fetch-rate":
		err = cli.fetchRate()
	case "push-rate":
		err = cli.pushRate(tenant, *date)
	default:
		fmt.Printf("Unknown action: %s\n", *action)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %s failed: %v\n", *action, err)
		os.Exit(1)
	}
}

func newAdminCLI(ctx context.Context, cfg *config.Config, db *postgres.Database, logger *zap.Logger) (*AdminCLI, error) {
	pool := db.Pool()
	dbExecutor := postgres.NewDBExecutor(pool)
	records := postgres.NewTransactionRecordRepository(pool)
	rates := postgres.NewExchangeRateRepository(pool)
	ledger := postgres.NewLedgerRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)
	store := postgres.NewParameterStore(pool)
	adapterLogger := security.NewZapLogger(logger)

	secretManager, err := secrets.Open(ctx, cfg.Params.Backend, secrets.Options{
		LocalBasePath:  cfg.Params.LocalSecretsDir,
		VaultAddress:   cfg.Params.VaultAddress,
		VaultToken:     cfg.Params.VaultToken,
		VaultMountPath: cfg.Params.VaultMountPath,
		AWSRegion:      cfg.Params.AWSRegion,
		CacheTTL:       cfg.Params.CacheTTL,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("open parameter backend %s: %w", cfg.Params.Backend, err)
	}
	params := config.NewParamResolver(store, secretManager, cfg.Params.SecretPathPrefix, logger)

	linkSvc := mercantil.NewLinkService(params, rates, records, gateway.NewLinkBuilder(crypto.NewAESECBCodec()),
		cfg.Mercantil.RequireIngestedRate, logger)

	var mailer ports.Mailer
	if cfg.SMTP.Enabled() {
		mailer = smtp.NewMailer(smtp.Config{
			Host:       cfg.SMTP.Host,
			Port:       cfg.SMTP.Port,
			Username:   cfg.SMTP.Username,
			Password:   cfg.SMTP.Password,
			From:       cfg.SMTP.From,
			MaxRetries: cfg.SMTP.MaxRetries,
		}, adapterLogger)
	}
	orderSvc := orders.NewService(dbExecutor, orderRepo, ledger, records, linkSvc, mailer, nil,
		orders.Config{
			BankJournal: cfg.Mercantil.LedgerBankJournal,
			ReturnURL:   cfg.Mercantil.ReturnURL,
		}, logger)

	fetcher := bcv.NewClient(bcv.Config{
		URL:                cfg.Rates.BCVURL,
		Timeout:            cfg.Rates.Timeout,
		InsecureSkipVerify: cfg.Rates.InsecureSkipVerify,
	}, adapterLogger)
	job := exchangerate.NewIngestionJob(dbExecutor, rates, fetcher, cfg.Rates.TenantIDs, cfg.Rates.Location(), logger)

	return &AdminCLI{
		ctx:     ctx,
		cfg:     cfg,
		store:   store,
		secrets: secretManager,
		params:  params,
		records: records,
		links:   linkSvc,
		orders:  orderSvc,
		job:     job,
	}, nil
}

func (cli *AdminCLI) setParam(tenant uuid.UUID, global bool, target, key, value string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("-key is required")
	}
	if value == "" {
		var err error
		if value, err = promptValue(key); err != nil {
			return err
		}
	}
	if key == domain.ParamPaymentURL && !strings.HasPrefix(value, "https://") && !strings.HasPrefix(value, "http://") {
		return fmt.Errorf("%s must be an http(s) URL", key)
	}

	var companyID *uuid.UUID
	scope := "global"
	if !global {
		if tenant == uuid.Nil {
			return fmt.Errorf("no company: pass -company, -global or set DEFAULT_COMPANY_ID")
		}
		companyID = &tenant
		scope = tenant.String()
	}

	switch target {
	case "db":
		if err := cli.store.SetParam(cli.ctx, companyID, key, value); err != nil {
			return err
		}
		fmt.Printf("✅ Stored %s for %s in config_parameters\n", key, scope)
	case "secret":
		if cli.secrets == nil {
			return fmt.Errorf("PARAMETER_BACKEND=%s has no secret backend", cli.cfg.Params.Backend)
		}
		path := cli.params.SecretPath(companyID, key)
		version, err := cli.secrets.PutSecret(cli.ctx, path, value, map[string]string{"written_by": "admin"})
		if err != nil {
			return err
		}
		fmt.Printf("✅ Stored %s at %s (version %s)\n", key, path, version)
	default:
		return fmt.Errorf("unknown -store %q (want db or secret)", target)
	}
	return nil
}

func (cli *AdminCLI) getParam(tenant uuid.UUID, key string, reveal bool) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("-key is required")
	}
	value, ok, err := cli.params.Lookup(cli.ctx, tenant, key)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Printf("%s is not set for %s\n", key, tenant)
		return nil
	}
	if secretParams[key] && !reveal {
		value = maskValue(value)
	}
	fmt.Printf("%s = %s\n", key, value)
	return nil
}

func (cli *AdminCLI) paymentLink(orderID string) error {
	id, err := parseOrderID(orderID)
	if err != nil {
		return err
	}
	record, err := cli.records.GetLatestForOrder(cli.ctx, nil, id)
	if err != nil {
		return err
	}
	link, err := cli.links.BuildPaymentLink(cli.ctx, record.CompanyID, record)
	if err != nil {
		return err
	}
	fmt.Printf("Invoice %s, attempt %d, status %s\n", record.InvoiceNumber, record.Attempt, record.Status)
	fmt.Println(link)
	return nil
}

func (cli *AdminCLI) resendLink(orderID string) error {
	id, err := parseOrderID(orderID)
	if err != nil {
		return err
	}
	link, err := cli.orders.ResendPaymentLink(cli.ctx, id)
	if link != "" {
		fmt.Println(link)
	}
	if err != nil {
		return err
	}
	fmt.Println("✅ Payment link emailed")
	return nil
}

func (cli *AdminCLI) fetchRate() error {
	if len(cli.cfg.Rates.TenantIDs) == 0 {
		return fmt.Errorf("no tenants: set RATE_TENANT_IDS or DEFAULT_COMPANY_ID")
	}
	ctx, cancel := resilience.DefaultTimeoutConfig().CronContext(cli.ctx)
	defer cancel()

	report := cli.job.Run(ctx)
	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	if report.Status != exchangerate.StatusSuccess {
		return fmt.Errorf("ingestion finished with status %s", report.Status)
	}
	return nil
}

func (cli *AdminCLI) pushRate(tenant uuid.UUID, date string) error {
	if tenant == uuid.Nil {
		return fmt.Errorf("no company: pass -company or set DEFAULT_COMPANY_ID")
	}
	if date == "" {
		return fmt.Errorf("-date is required (YYYY-MM-DD)")
	}
	day, err := timeutil.ParseDate(date)
	if err != nil {
		return fmt.Errorf("invalid -date %q: %w", date, err)
	}
	rate, err := cli.job.PushRate(cli.ctx, tenant, day)
	if domain.IsNotFoundError(err) {
		return fmt.Errorf("no %s rate stored for %s on %s", domain.SettlementCurrency, tenant, date)
	}
	if err != nil {
		return err
	}
	fmt.Printf("✅ Pushed %s rate %s (inverse %s) for %s\n", date, rate.Rate, rate.InverseRate, tenant)
	return nil
}

func parseOrderID(orderID string) (uuid.UUID, error) {
	if orderID == "" {
		return uuid.Nil, fmt.Errorf("-order is required")
	}
	id, err := uuid.Parse(orderID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid -order %q: %w", orderID, err)
	}
	return id, nil
}

func promptValue(key string) (string, error) {
	fmt.Printf("Value for %s: ", key)
	if term.IsTerminal(int(syscall.Stdin)) {
		raw, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return "", fmt.Errorf("read value: %w", err)
		}
		return strings.TrimSpace(string(raw)), nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read value: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func maskValue(v string) string {
	if len(v) <= 4 {
		return "****"
	}
	return v[:2] + strings.Repeat("*", len(v)-4) + v[len(v)-2:]
}

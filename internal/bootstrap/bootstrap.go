package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/kirillkom/cleanout-estimator/internal/config"
	"github.com/kirillkom/cleanout-estimator/internal/core/ports"
	"github.com/kirillkom/cleanout-estimator/internal/core/pricing"
	"github.com/kirillkom/cleanout-estimator/internal/core/usecase"
	"github.com/kirillkom/cleanout-estimator/internal/infrastructure/export/xlsx"
	"github.com/kirillkom/cleanout-estimator/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/cleanout-estimator/internal/infrastructure/queue/nats"
	"github.com/kirillkom/cleanout-estimator/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/cleanout-estimator/internal/infrastructure/resilience"
	"github.com/kirillkom/cleanout-estimator/internal/infrastructure/rules/yamlfile"
	"github.com/kirillkom/cleanout-estimator/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/cleanout-estimator/internal/infrastructure/storage/minio"
	"github.com/kirillkom/cleanout-estimator/internal/observability/metrics"
)

// Options tunes how much of the stack a process builds.
type Options struct {
	// Service labels metrics, e.g. "api" or "worker".
	Service string
	// Registerer receives pricing metrics. Nil disables them.
	Registerer prometheus.Registerer
	// SkipMigrations leaves the schema untouched on startup.
	SkipMigrations bool
}

type App struct {
	Config config.Config
	DB     *sql.DB

	Engine *pricing.Engine
	Queue  ports.ReprocessQueue

	Customers *usecase.CustomerUseCase
	Jobs      *usecase.JobUseCase
	Rooms     *usecase.RoomUseCase
	Invoices  *usecase.InvoiceUseCase

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if !opts.SkipMigrations {
		if err := postgres.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate schema: %w", err)
		}
	}

	images, err := newImageStorage(ctx, cfg)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init image storage: %w", err)
	}

	table, err := LoadTable(cfg.PricingRulesPath)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	engine := pricing.NewEngine(table)

	taxRate, err := ParseTaxRate(cfg.InvoiceTaxRate)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	executor := resilience.NewExecutor(ResilienceConfig(cfg))

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ClientName:         "cleanout-" + serviceName(opts.Service),
		ResilienceExecutor: executor,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init reprocess queue: %w", err)
	}

	classifier := ollama.NewVisionClassifier(
		ollama.New(cfg.OllamaURL, cfg.OllamaVisionModel, cfg.OllamaTimeout),
		ollama.VisionClassifierOptions{
			ExtendedReasoning: cfg.ClassifierExtendedReasoning,
			Executor:          executor,
		},
	)

	var observer ports.PricingObserver
	if opts.Registerer != nil {
		observer = metrics.NewPricingMetrics(opts.Registerer, serviceName(opts.Service))
	}

	customerRepo := postgres.NewCustomerRepository(db)
	jobRepo := postgres.NewJobRepository(db)
	invoiceRepo := postgres.NewInvoiceRepository(db)

	app := &App{
		Config:    cfg,
		DB:        db,
		Engine:    engine,
		Queue:     queue,
		Customers: usecase.NewCustomerUseCase(customerRepo),
		Jobs:      usecase.NewJobUseCase(jobRepo, customerRepo, images, engine, observer),
		Rooms: usecase.NewRoomUseCase(jobRepo, jobRepo, images, classifier, queue, engine, usecase.RoomUseCaseOptions{
			MaxImageBytes: cfg.MaxImageBytes,
			Observer:      observer,
		}),
		Invoices: usecase.NewInvoiceUseCase(jobRepo, customerRepo, invoiceRepo, xlsx.NewRenderer(cfg.CompanyName), engine, usecase.InvoiceOptions{
			TaxRate: taxRate,
			DueDays: cfg.InvoiceDueDays,
		}),
		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}

	slog.Info("bootstrap_ready",
		"service", serviceName(opts.Service),
		"storage_backend", cfg.StorageBackend,
		"pricing_table", table.Version(),
		"tax_rate", taxRate.String(),
		"vision_model", cfg.OllamaVisionModel,
	)
	return app, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

// LoadTable reads the rate card at path, or returns the built-in table when
// path is empty.
func LoadTable(path string) (*pricing.MultiplierTable, error) {
	if strings.TrimSpace(path) == "" {
		return pricing.DefaultTable(), nil
	}
	table, err := yamlfile.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load pricing rules: %w", err)
	}
	return table, nil
}

// ParseTaxRate accepts a fraction in [0, 1), e.g. "0.0825".
func ParseTaxRate(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, nil
	}
	rate, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse INVOICE_TAX_RATE %q: %w", raw, err)
	}
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return decimal.Zero, fmt.Errorf("INVOICE_TAX_RATE must be in [0, 1), got %s", rate)
	}
	return rate, nil
}

func ResilienceConfig(cfg config.Config) resilience.Config {
	return resilience.Config{
		RetryMaxAttempts:        cfg.RetryMaxAttempts,
		RetryInitialBackoff:     cfg.RetryInitialBackoff,
		RetryMaxBackoff:         cfg.RetryMaxBackoff,
		AttemptTimeout:          cfg.OllamaTimeout,
		BreakerEnabled:          cfg.BreakerEnabled,
		BreakerMinRequests:      uint32(max(cfg.BreakerMinRequests, 0)),
		BreakerFailureRatio:     cfg.BreakerFailureRatio,
		BreakerOpenTimeout:      cfg.BreakerOpenTimeout,
		BreakerHalfOpenMaxCalls: uint32(max(cfg.BreakerHalfOpenMaxCalls, 0)),
	}
}

func newImageStorage(ctx context.Context, cfg config.Config) (ports.ImageStorage, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.StorageBackend)) {
	case "", "local":
		return localfs.New(cfg.StoragePath)
	case "minio", "s3":
		return minio.New(ctx, minio.Config{
			Endpoint:  cfg.MinIOEndpoint,
			AccessKey: cfg.MinIOAccessKey,
			SecretKey: cfg.MinIOSecretKey,
			Bucket:    cfg.MinIOBucket,
			UseSSL:    cfg.MinIOUseSSL,
		})
	default:
		return nil, fmt.Errorf("unknown STORAGE_BACKEND %q", cfg.StorageBackend)
	}
}

func serviceName(service string) string {
	if strings.TrimSpace(service) == "" {
		return "api"
	}
	return service
}

// Package roadbook assembles the settlement, tour, logistics, and payroll
// services behind a single engine facade. Callers construct one Engine from
// configuration and reach every operation through its service fields; there
// is no wire protocol here, web routes and report renderers live with the
// caller.
package roadbook

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"

	"roadbook/internal/audit"
	logisticsmetrics "roadbook/internal/logistics/metrics"
	logisticssvc "roadbook/internal/logistics/service"
	payrollmetrics "roadbook/internal/payroll/metrics"
	"roadbook/internal/payroll/payrollcfg"
	payrollsvc "roadbook/internal/payroll/service"
	paymentstore "roadbook/internal/payroll/store/payment"
	sequencestore "roadbook/internal/payroll/store/sequence"
	"roadbook/internal/platform/config"
	"roadbook/internal/platform/logger"
	platformredis "roadbook/internal/platform/redis"
	settlementmetrics "roadbook/internal/settlement/metrics"
	settlementsvc "roadbook/internal/settlement/service"
	tourmetrics "roadbook/internal/tour/metrics"
	toursvc "roadbook/internal/tour/service"
)

// Engine bundles the four services plus the audit trail behind one handle.
// With a postgres DSN configured, payments and sequences persist there;
// otherwise everything runs on in-memory stores. A redis address moves
// sequence allocation onto redis INCR regardless of the payment store.
type Engine struct {
	Settlement *settlementsvc.Service
	Tour       *toursvc.Service
	Logistics  *logisticssvc.Service
	Payroll    *payrollsvc.Service
	Audit      *audit.Publisher

	log            *slog.Logger
	db             *sql.DB
	redis          *platformredis.Client
	metricsEnabled bool
}

type Option func(*Engine)

// WithMetrics registers the Prometheus collectors for every service on the
// default registry. Enable it once per process; registering the same
// collectors twice panics.
func WithMetrics() Option {
	return func(e *Engine) {
		e.metricsEnabled = true
	}
}

// New wires stores and services from cfg. The returned Engine holds the
// postgres and redis connections it opened; release them with Close.
func New(ctx context.Context, cfg config.Config, opts ...Option) (*Engine, error) {
	e := &Engine{log: logger.New(cfg.LogLevel, cfg.LogFormat)}
	for _, opt := range opts {
		opt(e)
	}

	var (
		payments  payrollsvc.PaymentStore
		sequences payrollsvc.SequenceAllocator
	)
	if cfg.PostgresDSN != "" {
		db, err := sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("ping postgres: %w", err)
		}
		e.db = db
		payments = paymentstore.NewPostgresStore(db)
		sequences = sequencestore.NewPostgresAllocator(db)
	} else {
		payments = paymentstore.NewInMemoryStore()
		sequences = sequencestore.NewInMemoryAllocator()
	}

	rdb, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		e.Close()
		return nil, err
	}
	if rdb != nil {
		e.redis = rdb
		sequences = sequencestore.NewRedisAllocator(rdb.Client)
	}

	rates := payrollcfg.Default()
	if cfg.RateTablePath != "" {
		loaded, err := payrollcfg.Load(cfg.RateTablePath)
		if err != nil {
			e.Close()
			return nil, fmt.Errorf("load rate table: %w", err)
		}
		rates = loaded
	}

	e.Audit = audit.NewPublisher(audit.NewInMemoryStore())

	settleOpts := []settlementsvc.Option{settlementsvc.WithLogger(e.log)}
	if cfg.DefaultTicketingFeePercent.IsPositive() {
		settleOpts = append(settleOpts, settlementsvc.WithDefaultFeePercent(cfg.DefaultTicketingFeePercent))
	}
	if e.metricsEnabled {
		settleOpts = append(settleOpts, settlementsvc.WithMetrics(settlementmetrics.New()))
	}
	e.Settlement = settlementsvc.New(settleOpts...)

	tourOpts := []toursvc.Option{toursvc.WithLogger(e.log)}
	if e.metricsEnabled {
		tourOpts = append(tourOpts, toursvc.WithMetrics(tourmetrics.New()))
	}
	e.Tour = toursvc.New(e.Settlement, tourOpts...)

	logisticsOpts := []logisticssvc.Option{logisticssvc.WithLogger(e.log)}
	if e.metricsEnabled {
		logisticsOpts = append(logisticsOpts, logisticssvc.WithMetrics(logisticsmetrics.New()))
	}
	e.Logistics = logisticssvc.New(logisticsOpts...)

	payrollOpts := []payrollsvc.Option{
		payrollsvc.WithLogger(e.log),
		payrollsvc.WithAuditPublisher(e.Audit),
		payrollsvc.WithRateTable(rates),
	}
	if e.metricsEnabled {
		payrollOpts = append(payrollOpts, payrollsvc.WithMetrics(payrollmetrics.New()))
	}
	e.Payroll = payrollsvc.New(payments, sequences, payrollOpts...)

	e.log.Info("engine ready",
		"postgres", cfg.PostgresDSN != "",
		"redis", cfg.Redis.Addr != "",
		"rate_table", cfg.RateTablePath,
	)
	return e, nil
}

// Close releases the postgres and redis connections held by the engine.
func (e *Engine) Close() error {
	var errs []error
	if e.db != nil {
		errs = append(errs, e.db.Close())
	}
	if e.redis != nil {
		errs = append(errs, e.redis.Close())
	}
	return errors.Join(errs...)
}

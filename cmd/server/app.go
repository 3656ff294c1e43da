package main

import (
	"context"
	"fmt"

	billingapp "github.com/amadolemli/factureman-sub000/internal/application/billing"
	catalogapp "github.com/amadolemli/factureman-sub000/internal/application/catalog"
	documentapp "github.com/amadolemli/factureman-sub000/internal/application/document"
	ledgerapp "github.com/amadolemli/factureman-sub000/internal/application/ledger"
	profileapp "github.com/amadolemli/factureman-sub000/internal/application/profile"
	"github.com/amadolemli/factureman-sub000/internal/application/reconciliation"
	"github.com/amadolemli/factureman-sub000/internal/domain/billing"
	"github.com/amadolemli/factureman-sub000/internal/domain/shared"
	"github.com/amadolemli/factureman-sub000/internal/infrastructure/cache"
	"github.com/amadolemli/factureman-sub000/internal/infrastructure/config"
	"github.com/amadolemli/factureman-sub000/internal/infrastructure/connectivity"
	"github.com/amadolemli/factureman-sub000/internal/infrastructure/credits"
	"github.com/amadolemli/factureman-sub000/internal/infrastructure/event"
	"github.com/amadolemli/factureman-sub000/internal/infrastructure/logger"
	"github.com/amadolemli/factureman-sub000/internal/infrastructure/migration"
	"github.com/amadolemli/factureman-sub000/internal/infrastructure/mongodb"
	"github.com/amadolemli/factureman-sub000/internal/infrastructure/persistence"
	"github.com/amadolemli/factureman-sub000/internal/infrastructure/scheduler"
	"github.com/amadolemli/factureman-sub000/internal/infrastructure/telemetry"
	"github.com/amadolemli/factureman-sub000/internal/interfaces/http/handler"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// app holds the wired services of one device workspace
type app struct {
	cfg *config.Config
	log *zap.Logger

	local      *persistence.Database
	remoteDB   *persistence.Database
	mongo      *mongodb.Client
	remotePing func(ctx context.Context) error

	bus          *event.InMemoryEventBus
	ledgers      *ledgerapp.Store
	stock        *catalogapp.StockService
	documents    *documentapp.DocumentStore
	profile      *profileapp.Service
	quota        *billingapp.OfflineQuotaController
	finalization *documentapp.FinalizationService
	metrics      *telemetry.LedgerMetrics

	reconciler  *reconciliation.Reconciler
	scheduler   *scheduler.ReconciliationScheduler
	monitor     *connectivity.Monitor
	idempotency shared.IdempotencyStore
}

func newApp(ctx context.Context, cfg *config.Config, providers *telemetry.Providers, log *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, log: log}
	ownerID := cfg.Local.OwnerID

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh),
		logger.WithFullSQL(cfg.Telemetry.DBLogFullSQL),
	)

	local, err := persistence.OpenLocal(cfg.Local.DBPath, persistence.WithLogger(gormLog))
	if err != nil {
		return nil, err
	}
	a.local = local
	log.Info("Local store opened", zap.String("path", cfg.Local.DBPath))

	dbTracing := telemetry.DBTracingConfig{
		Enabled:         providers.Enabled() && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
	}
	localTracing := dbTracing
	localTracing.DBSystem = "sqlite"
	if err := telemetry.NewDBTracingPlugin(localTracing, log).Register(local.DB); err != nil {
		a.close()
		return nil, fmt.Errorf("register local db tracing: %w", err)
	}

	remote, err := a.openRemote(ctx, dbTracing, gormLog)
	if err != nil {
		a.close()
		return nil, err
	}

	a.metrics, err = telemetry.NewLedgerMetrics(providers.Meter("factureman/ledger"), log)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("create ledger metrics: %w", err)
	}

	a.monitor = connectivity.NewMonitor(cfg.Connectivity, log)

	a.bus = event.NewInMemoryEventBus(log)
	a.ledgers = ledgerapp.NewStore(ownerID, a.bus, log)
	a.stock = catalogapp.NewStockService(ownerID, log)
	a.stock.SetEventPublisher(a.bus)
	a.documents = documentapp.NewDocumentStore()
	a.profile = profileapp.NewService(ownerID)
	a.profile.SetEventPublisher(a.bus)

	charger, err := newCharger(cfg.Billing, log)
	if err != nil {
		a.close()
		return nil, err
	}
	a.quota = billingapp.NewOfflineQuotaController(ownerID,
		persistence.NewOfflineStateRepository(local.DB),
		charger,
		a.monitor,
		billingapp.Config{
			CostPerDocument: cfg.Billing.CostPerDocument,
			MaxOfflineDocs:  cfg.Billing.MaxOfflineDocs,
			ChargeTimeout:   cfg.Billing.CreditsTimeout,
		},
		log,
	)
	a.quota.SetObserver(a.metrics)

	a.finalization = documentapp.NewFinalizationService(ownerID, a.documents, a.ledgers, a.stock, a.quota, log)
	a.finalization.SetEventPublisher(a.bus)

	workspace := &reconciliation.Workspace{
		Ledgers:   a.ledgers,
		Catalog:   a.stock,
		Documents: a.documents,
		Profile:   a.profile,
	}
	a.reconciler = reconciliation.NewReconciler(ownerID, workspace, persistence.NewSnapshotRepository(local.DB), remote, log)
	a.reconciler.SetObserver(a.metrics)
	a.reconciler.SetDebtSettler(a.quota)

	a.bus.Subscribe(a.reconciler, a.reconciler.EventTypes()...)
	a.bus.Subscribe(a.metrics, a.metrics.EventTypes()...)

	if cfg.Sync.Enabled {
		schedCfg := scheduler.DefaultSchedulerConfig()
		schedCfg.Interval = cfg.Sync.Interval
		schedCfg.CycleTimeout = cfg.Sync.CycleTimeout
		a.scheduler, err = scheduler.NewReconciliationScheduler(schedCfg, a.reconciler, log)
		if err != nil {
			a.close()
			return nil, err
		}
	}

	a.idempotency, err = cache.NewIdempotencyStoreFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(true),
	).CreateStore(ctx)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("create idempotency store: %w", err)
	}

	return a, nil
}

// openRemote connects the configured store of record. It returns a nil
// store when the device runs standalone.
func (a *app) openRemote(ctx context.Context, tracing telemetry.DBTracingConfig, gormLog *logger.GormLogger) (reconciliation.Store, error) {
	switch a.cfg.Remote.Driver {
	case config.RemoteDriverPostgres:
		db, err := persistence.NewDatabase(&a.cfg.Remote.Database, persistence.WithLogger(gormLog))
		if err != nil {
			return nil, err
		}
		a.remoteDB = db
		a.remotePing = db.Ping

		tracing.DBSystem = "postgresql"
		if err := telemetry.NewDBTracingPlugin(tracing, a.log).Register(db.DB); err != nil {
			return nil, fmt.Errorf("register remote db tracing: %w", err)
		}
		if a.cfg.Remote.Database.AutoMigrate {
			if err := migrateRemote(db, a.log); err != nil {
				return nil, err
			}
		}
		a.log.Info("Remote PostgreSQL store connected")
		return persistence.NewSnapshotRepository(db.DB), nil

	case config.RemoteDriverMongo:
		client, err := mongodb.NewClient(ctx, a.cfg.Remote.Mongo)
		if err != nil {
			return nil, err
		}
		a.mongo = client
		a.remotePing = client.HealthCheck

		store := mongodb.NewRemoteStore(client.Database())
		if err := store.EnsureIndexes(ctx); err != nil {
			return nil, fmt.Errorf("ensure mongo indexes: %w", err)
		}
		a.log.Info("Remote MongoDB store connected", zap.String("database", a.cfg.Remote.Mongo.Database))
		return store, nil
	}

	a.log.Info("No remote store configured, running standalone")
	return nil, nil
}

func migrateRemote(db *persistence.Database, log *zap.Logger) error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return fmt.Errorf("get remote sql.DB: %w", err)
	}
	m, err := migration.New(sqlDB, log)
	if err != nil {
		return err
	}
	st, err := m.EnsureCurrent()
	if err != nil {
		return fmt.Errorf("migrate remote store: %w", err)
	}
	log.Info("Remote schema ready", zap.Uint("version", st.Current))
	return nil
}

// newCharger returns the credits client, or a charger that is always
// unreachable when no billing collaborator is configured. Every billable
// action is then deferred against the offline quota.
func newCharger(cfg config.BillingConfig, log *zap.Logger) (billing.CreditCharger, error) {
	if cfg.CreditsBaseURL == "" {
		log.Warn("No credits service configured, billable actions are deferred")
		return unavailableCharger{}, nil
	}
	return credits.NewClient(credits.Config{
		BaseURL:                 cfg.CreditsBaseURL,
		Token:                   cfg.CreditsToken,
		Timeout:                 cfg.CreditsTimeout,
		BreakerMaxRequests:      cfg.BreakerMaxRequests,
		BreakerInterval:         cfg.BreakerInterval,
		BreakerTimeout:          cfg.BreakerTimeout,
		BreakerFailureThreshold: cfg.BreakerFailureThreshold,
	}, log)
}

type unavailableCharger struct{}

func (unavailableCharger) ChargeCredits(context.Context, uuid.UUID, decimal.Decimal, string) error {
	return credits.ErrUnavailable
}

// start restores the local checkpoint and launches the background loops
func (a *app) start(ctx context.Context) error {
	if err := a.reconciler.Restore(ctx); err != nil {
		return fmt.Errorf("restore local store: %w", err)
	}
	if err := a.bus.Start(ctx); err != nil {
		return err
	}

	a.monitor.OnReconnect(func(ctx context.Context) {
		// Reconnect handlers must outlive the request that flipped the flag
		ctx = context.WithoutCancel(ctx)
		if _, err := a.quota.AttemptToPayDebt(ctx); err != nil {
			a.log.Warn("Deferred settlement failed", zap.Error(err))
		}
		if a.scheduler != nil {
			if err := a.scheduler.TriggerImmediate(); err != nil {
				a.log.Warn("Could not trigger reconciliation", zap.Error(err))
			}
		}
	})
	if err := a.monitor.Start(ctx); err != nil {
		return err
	}

	if a.scheduler != nil {
		if err := a.scheduler.Start(ctx); err != nil {
			return err
		}
	}
	return nil
}

// syncHandler avoids handing typed nil pointers to the handler interfaces
func (a *app) syncHandler() *handler.SyncHandler {
	if a.scheduler == nil {
		return handler.NewSyncHandler(a.reconciler, nil, a.monitor)
	}
	return handler.NewSyncHandler(a.reconciler, a.scheduler, a.monitor)
}

// stop halts the background loops. The scheduler writes a final checkpoint.
func (a *app) stop(ctx context.Context) {
	if a.scheduler != nil {
		if err := a.scheduler.Stop(ctx); err != nil {
			a.log.Error("Scheduler stop failed", zap.Error(err))
		}
	} else if err := a.reconciler.Checkpoint(ctx); err != nil {
		a.log.Error("Final checkpoint failed", zap.Error(err))
	}
	if err := a.monitor.Stop(ctx); err != nil {
		a.log.Error("Connectivity monitor stop failed", zap.Error(err))
	}
	if err := a.bus.Stop(ctx); err != nil {
		a.log.Error("Event bus stop failed", zap.Error(err))
	}
}

// close releases every connection opened by newApp
func (a *app) close() {
	if closer, ok := a.idempotency.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			a.log.Error("Error closing idempotency store", zap.Error(err))
		}
	}
	if a.mongo != nil {
		if err := a.mongo.Close(context.Background()); err != nil {
			a.log.Error("Error closing remote MongoDB store", zap.Error(err))
		}
	}
	if a.remoteDB != nil {
		if err := a.remoteDB.Close(); err != nil {
			a.log.Error("Error closing remote database", zap.Error(err))
		}
	}
	if a.local != nil {
		if err := a.local.Close(); err != nil {
			a.log.Error("Error closing local store", zap.Error(err))
		}
	}
}

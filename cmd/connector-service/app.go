package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"

	_ "github.com/lib/pq" // PostgreSQL driver

	"bifrost/internal/audit"
	"bifrost/internal/config"
	"bifrost/internal/confirmation"
	"bifrost/internal/constants"
	"bifrost/internal/ebms"
	"bifrost/internal/evidence"
	"bifrost/internal/logger"
	"bifrost/internal/management"
	"bifrost/internal/pipeline"
	"bifrost/internal/pmode"
	"bifrost/internal/queue"
	"bifrost/internal/routing"
	"bifrost/internal/store"
	"bifrost/pkg/bootstrap"
	"bifrost/pkg/health"
	"bifrost/pkg/logging"
	"bifrost/pkg/metrics"
	"bifrost/pkg/middleware"
	"bifrost/pkg/migrations"
	"bifrost/pkg/ratelimit"
	"bifrost/pkg/tracing"
)

type App struct {
	*bootstrap.Base
	dbConnector *bootstrap.DatabaseConnector
	db          *sql.DB
	redisClient *redis.Client
	mongoClient *mongo.Client

	registry  *config.DomainRegistry
	ruleStore *routing.RuleStore
	linkQueue *queue.LinkQueue

	backendPipeline *pipeline.Pipeline
	gatewayPipeline *pipeline.Pipeline

	router         *gin.Engine
	server         *http.Server
	tracerProvider *tracing.TracerProvider
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	if sugaredLogger, ok := log.(*logger.SugaredLogger); ok {
		sugaredLogger.SetServiceName(constants.ServiceName)
	}
	return &App{
		Base:        bootstrap.NewBase(cfg, log),
		dbConnector: bootstrap.NewDatabaseConnector(cfg, log),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	if err := a.initDatabases(ctx); err != nil {
		return fmt.Errorf("failed to initialize databases: %w", err)
	}

	if err := a.initCore(ctx); err != nil {
		return fmt.Errorf("failed to initialize connector core: %w", err)
	}

	tp, err := tracing.Init(a.Config.Tracing, constants.ServiceName)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.tracerProvider = tp

	metrics.RegisterConnectorMetrics()
	metrics.RegisterQueueMetrics()
	metrics.RegisterManagementMetrics()
	if a.Config.CircuitBreaker.Enabled {
		metrics.RegisterCircuitBreakerMetrics()
	}

	if err := a.initHTTPServer(); err != nil {
		return fmt.Errorf("failed to initialize HTTP server: %w", err)
	}

	return nil
}

func (a *App) initDatabases(ctx context.Context) error {
	db, err := a.dbConnector.InitPostgreSQL(ctx)
	if err != nil {
		return err
	}
	if db == nil {
		return fmt.Errorf("postgres configuration is required")
	}
	a.db = db

	if a.Config.Database.RunMigrations {
		dir := a.Config.Database.MigrationsDir
		if dir == "" {
			dir = constants.DefaultMigrations
		}
		if err := migrations.RunPostgres(db, dir); err != nil {
			return err
		}
		a.Logger.InfowCtx(ctx, "Database migrations applied", "dir", dir)
	}

	redisClient, err := a.dbConnector.InitRedis(ctx)
	if err != nil {
		return err
	}
	a.redisClient = redisClient

	mongoClient, err := a.dbConnector.InitMongoDB(ctx)
	if err != nil {
		initCtx := logging.WithServiceName(ctx, constants.ServiceName)
		a.Logger.WarnwCtx(initCtx, "MongoDB connection failed, evidence audit trail disabled",
			"error", err,
		)
	} else {
		a.mongoClient = mongoClient
	}

	return nil
}

func (a *App) initCore(ctx context.Context) error {
	registry, err := config.NewDomainRegistry(a.Config)
	if err != nil {
		return err
	}
	a.registry = registry

	messageStore := store.NewMessageStore(a.db)
	evidenceStore := store.NewEvidenceStore(a.db)
	lock := store.NewMessageLock(a.redisClient,
		time.Duration(a.Config.Database.Redis.LockTTLSeconds)*time.Second)

	ruleRepo := routing.NewRepository(a.db)
	ruleStore, err := routing.NewRuleStore(ruleRepo, registry, a.Config.Routing, a.Logger)
	if err != nil {
		return err
	}
	if err := ruleStore.Reload(ctx, true); err != nil {
		initCtx := logging.WithServiceName(ctx, constants.ServiceName)
		a.Logger.WarnwCtx(initCtx, "Failed to load initial routing rules",
			"error", err,
		)
	}
	a.ruleStore = ruleStore
	resolver := routing.NewResolver(messageStore, ruleStore, registry, a.Logger)

	catalog := pmode.NewCircuitBreakerCatalog(pmode.NewCatalog(a.db), a.Config.CircuitBreaker)
	verifier := pmode.NewVerifier(catalog, registry, a.Logger)
	generator := ebms.NewGenerator(registry, a.Logger)
	factory := evidence.NewFactory()

	trail := a.initAuditTrail(ctx)
	engine := confirmation.NewEngine(messageStore, evidenceStore, lock, registry, trail, a.Logger)

	a.InitQueue()
	a.linkQueue = queue.NewLinkQueue(a.Producer, a.Config.Queue, a.Logger)

	submitter := confirmation.NewSubmitter(a.linkQueue, factory, registry, a.Logger)
	trigger := confirmation.NewTriggerProcessor(messageStore, factory, a.Logger)

	a.backendPipeline = pipeline.New("backend_submission", a.Logger,
		pipeline.TriggerStep(trigger),
		pipeline.TriggerDispatchStep(a.linkQueue, submitter),
		pipeline.EbmsIDStep(generator),
		pipeline.OutgoingVerificationStep(verifier),
		pipeline.GatewayRoutingStep(resolver),
		pipeline.PersistStep(messageStore),
		pipeline.ConfirmationsStep(engine, messageStore),
		pipeline.DispatchStep(a.linkQueue),
	)

	a.gatewayPipeline = pipeline.New("gateway_delivery", a.Logger,
		pipeline.IncomingVerificationStep(verifier),
		pipeline.BackendRoutingStep(resolver),
		pipeline.PersistStep(messageStore),
		pipeline.ConfirmationsStep(engine, messageStore),
		pipeline.DispatchStep(a.linkQueue),
	)

	a.initManagement(ruleRepo, messageStore, evidenceStore)

	return nil
}

func (a *App) initAuditTrail(ctx context.Context) audit.Trail {
	if a.mongoClient == nil {
		return audit.NopTrail()
	}

	dbName := a.Config.Database.MongoDB.Database
	if dbName == "" {
		dbName = constants.DefaultMongoDBName
	}
	mongoDB := a.mongoClient.Database(dbName)

	if err := migrations.EnsureAuditCollection(ctx, mongoDB); err != nil {
		initCtx := logging.WithServiceName(ctx, constants.ServiceName)
		a.Logger.WarnwCtx(initCtx, "Failed to ensure audit collection indexes",
			"error", err,
		)
	}

	return audit.NewMongoTrail(mongoDB, a.Logger)
}

func (a *App) initManagement(ruleRepo routing.Repository, messageStore store.MessageStore, evidenceStore store.EvidenceStore) {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(middleware.RecoveryMiddleware(a.Logger))
	router.Use(middleware.LoggerMiddleware(a.Logger))
	router.Use(middleware.RequestIDMiddleware())

	if a.Config.Management.RateLimit.Enabled {
		rateLimitConfig := ratelimit.RateLimitConfig{
			RPS:             a.Config.Management.RateLimit.RPS,
			Burst:           a.Config.Management.RateLimit.Burst,
			CleanupInterval: time.Duration(a.Config.Management.RateLimit.CleanupInterval) * time.Second,
			MaxAge:          time.Duration(a.Config.Management.RateLimit.MaxAge) * time.Second,
		}
		router.Use(ratelimit.RateLimitMiddleware(rateLimitConfig))
	}

	svc := management.NewService(ruleRepo, a.ruleStore, messageStore, evidenceStore, a.registry, a.Logger)
	management.NewHandler(svc, a.Logger).RegisterRoutes(router)

	a.router = router
}

func (a *App) initHTTPServer() error {
	router := a.router

	healthRegistry := health.NewCheckerRegistry()
	healthRegistry.Register(health.NewPostgreSQLChecker(a.db))
	if a.redisClient != nil {
		healthRegistry.Register(health.NewRedisChecker(a.redisClient))
	}
	if a.mongoClient != nil {
		healthRegistry.Register(health.NewMongoDBChecker(a.mongoClient))
	}

	router.GET("/health", func(c *gin.Context) {
		h := healthRegistry.Check(c.Request.Context())
		statusCode := http.StatusOK
		if h.Status == health.StatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}
		c.JSON(statusCode, gin.H{
			"status":    h.Status,
			"timestamp": h.Timestamp.Format(time.RFC3339),
		})
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      router,
		ReadTimeout:  a.Config.Server.ReadTimeoutSeconds * time.Second,
		WriteTimeout: a.Config.Server.WriteTimeoutSeconds * time.Second,
	}

	return nil
}

func (a *App) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.InfowCtx(ctx, "HTTP server starting", "port", a.Config.Server.Port)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return a.ruleStore.StartReloader(gCtx)
	})

	backendConsumer := a.NewConsumer()
	backendTopic := a.Config.Queue.BackendSubmissionTopic
	g.Go(func() error {
		return backendConsumer.Consume(gCtx, backendTopic, a.pipelineHandler(a.backendPipeline))
	})

	gatewayConsumer := a.NewConsumer()
	gatewayTopic := a.Config.Queue.GatewayDeliveryTopic
	g.Go(func() error {
		return gatewayConsumer.Consume(gCtx, gatewayTopic, a.pipelineHandler(a.gatewayPipeline))
	})

	return g.Wait()
}

func (a *App) pipelineHandler(p *pipeline.Pipeline) queue.HandlerFunc {
	return func(ctx context.Context, envelope queue.Envelope) error {
		return p.Run(ctx, envelope.ToMessage())
	}
}

func (a *App) Shutdown(ctx context.Context) error {
	shutdownCtx := logging.WithServiceName(ctx, constants.ServiceName)
	a.Logger.InfowCtx(shutdownCtx, "Shutting down connector service")

	additionalShutdown := func(ctx context.Context) []error {
		var errs []error

		if a.server != nil {
			serverCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
			defer cancel()
			if err := a.server.Shutdown(serverCtx); err != nil {
				errs = append(errs, fmt.Errorf("HTTP server shutdown error: %w", err))
			}
		}

		if a.tracerProvider != nil {
			if err := a.tracerProvider.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("tracer provider shutdown error: %w", err))
			}
		}

		errs = append(errs, a.dbConnector.ShutdownDatabases(ctx, a.redisClient, a.db, a.mongoClient)...)

		return errs
	}

	return a.Base.Shutdown(ctx, additionalShutdown)
}

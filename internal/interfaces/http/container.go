// Package http wires the HTTP surface: handlers, middleware and routes.
package http

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	artifactUsecases "classnotex/internal/application/artifact/usecases"
	assetUsecases "classnotex/internal/application/asset/usecases"
	jobUsecases "classnotex/internal/application/job/usecases"
	usageUsecases "classnotex/internal/application/usage/usecases"
	"classnotex/internal/domain/artifact"
	"classnotex/internal/domain/asset"
	"classnotex/internal/domain/dispatch"
	"classnotex/internal/domain/idempotency"
	"classnotex/internal/domain/job"
	"classnotex/internal/domain/quota"
	"classnotex/internal/domain/usage"
	"classnotex/internal/infrastructure/cache"
	"classnotex/internal/infrastructure/config"
	"classnotex/internal/infrastructure/queue"
	"classnotex/internal/infrastructure/repository"
	"classnotex/internal/interfaces/http/handlers"
	"classnotex/internal/interfaces/http/middleware"
	"classnotex/internal/interfaces/http/routes"
	"classnotex/internal/shared/db"
	"classnotex/internal/shared/logger"
	"classnotex/internal/shared/services/markdown"
)

// Container wires repositories, use cases, handlers and middleware, and
// owns the connections that need a graceful shutdown.
type Container struct {
	engine *gin.Engine
	cfg    *config.Config
	log    logger.Interface
	redis  *redis.Client
	queue  *queue.RedisQueue

	repos *repositories
	ucs   *useCases

	jobHandler      *handlers.JobHandler
	taskHandler     *handlers.TaskCallbackHandler
	assetHandler    *handlers.AssetHandler
	usageHandler    *handlers.UsageHandler
	artifactHandler *handlers.ArtifactHandler

	rateLimiter *middleware.RateLimiter
}

type repositories struct {
	jobRepo    job.Repository
	idemRepo   idempotency.Repository
	outboxRepo dispatch.Repository
	assetRepo  asset.Repository
	artRepo    artifact.Repository
	ledger     usage.Ledger
}

type useCases struct {
	submitJob           *jobUsecases.SubmitJobUseCase
	getJob              *jobUsecases.GetJobUseCase
	listSessionJobs     *jobUsecases.ListSessionJobsUseCase
	completeJob         *jobUsecases.CompleteJobUseCase
	registerAudio       *assetUsecases.RegisterAudioUseCase
	commitAudio         *assetUsecases.CommitAudioUseCase
	getUsage            *usageUsecases.GetUsageUseCase
	recordServerSession *usageUsecases.RecordServerSessionUseCase
	getArtifact         *artifactUsecases.GetArtifactUseCase
}

// NewContainer builds the full HTTP wiring on top of an open database
// connection.
func NewContainer(gdb *gorm.DB, cfg *config.Config, log logger.Interface) (*Container, error) {
	limits, err := config.LoadLimitTable(&cfg.Quota)
	if err != nil {
		return nil, err
	}
	policy := quota.NewPolicy(limits)

	taskQueue, err := queue.NewRedisQueue(&cfg.Redis, cfg.Queue.Name)
	if err != nil {
		return nil, err
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.GetAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}

	repos := &repositories{
		jobRepo:    repository.NewJobRepository(gdb),
		idemRepo:   repository.NewIdempotencyRepository(gdb),
		outboxRepo: repository.NewDispatchOutboxRepository(gdb),
		assetRepo:  repository.NewAudioAssetRepository(gdb),
		artRepo:    repository.NewArtifactRepository(gdb),
		ledger:     repository.NewUsageLedgerRepository(gdb, policy),
	}

	txMgr := db.NewTransactionManager(gdb)
	dispatcher := jobUsecases.NewDispatcher(
		repos.jobRepo, repos.outboxRepo, taskQueue, repos.ledger, txMgr, log,
		cfg.Queue.MaxDispatchAttempts, cfg.Queue.DispatchBackoffSeconds,
	)
	reportCache := cache.NewRedisUsageReportCache(redisClient, log)

	ucs := &useCases{
		submitJob: jobUsecases.NewSubmitJobUseCase(
			repos.jobRepo, repos.idemRepo, repos.outboxRepo, repos.assetRepo,
			repos.ledger, dispatcher, txMgr, log, cfg.Quota.IdempotencyRetentionHours,
		),
		getJob:          jobUsecases.NewGetJobUseCase(repos.jobRepo),
		listSessionJobs: jobUsecases.NewListSessionJobsUseCase(repos.jobRepo),
		completeJob: jobUsecases.NewCompleteJobUseCase(
			repos.jobRepo, repos.artRepo, repos.assetRepo, repos.outboxRepo,
			repos.ledger, txMgr, log, cfg.Quota.MaxJobAttempts,
		),
		registerAudio: assetUsecases.NewRegisterAudioUseCase(
			repos.assetRepo, repos.ledger, txMgr, log, cfg.Lifecycle.RetentionDays,
		),
		commitAudio:         assetUsecases.NewCommitAudioUseCase(repos.assetRepo, log),
		getUsage:            usageUsecases.NewGetUsageUseCase(repos.ledger, policy, reportCache, log),
		recordServerSession: usageUsecases.NewRecordServerSessionUseCase(repos.ledger, log),
		getArtifact: artifactUsecases.NewGetArtifactUseCase(
			repos.artRepo, markdown.NewMarkdownService(), log,
		),
	}

	registerValidators()

	c := &Container{
		engine:          gin.New(),
		cfg:             cfg,
		log:             log,
		redis:           redisClient,
		queue:           taskQueue,
		repos:           repos,
		ucs:             ucs,
		jobHandler:      handlers.NewJobHandler(ucs.submitJob, ucs.getJob, ucs.listSessionJobs, log),
		taskHandler:     handlers.NewTaskCallbackHandler(ucs.completeJob, repos.jobRepo, log),
		assetHandler:    handlers.NewAssetHandler(ucs.registerAudio, ucs.commitAudio, log),
		usageHandler:    handlers.NewUsageHandler(ucs.getUsage, ucs.recordServerSession, log),
		artifactHandler: handlers.NewArtifactHandler(ucs.getArtifact, log),
		rateLimiter:     middleware.NewRateLimiter(redisClient, 100, 1*time.Minute),
	}
	return c, nil
}

// SetupRoutes installs middleware and registers all route groups.
func (c *Container) SetupRoutes() {
	c.engine.Use(middleware.Recovery())
	c.engine.Use(middleware.Logger(c.log))
	c.engine.Use(middleware.CORS(c.cfg.Server.AllowedOrigins))
	c.engine.Use(middleware.SecurityHeaders())

	c.engine.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"status": "ok"})
	})

	api := c.engine.Group("/api/v1")
	api.Use(c.rateLimiter.Limit())
	api.Use(middleware.AccountContext())

	routes.SetupJobRoutes(api, &routes.JobRouteConfig{
		JobHandler: c.jobHandler,
	})
	routes.SetupAssetRoutes(api, &routes.AssetRouteConfig{
		AssetHandler: c.assetHandler,
	})
	routes.SetupUsageRoutes(api, &routes.UsageRouteConfig{
		UsageHandler: c.usageHandler,
	})
	routes.SetupArtifactRoutes(api, &routes.ArtifactRouteConfig{
		ArtifactHandler: c.artifactHandler,
	})

	internal := c.engine.Group("/internal/v1")
	internal.Use(middleware.InternalAuth(c.cfg.Server.InternalToken))
	routes.SetupInternalRoutes(internal, &routes.InternalRouteConfig{
		TaskHandler: c.taskHandler,
	})
}

// GetEngine returns the configured Gin engine.
func (c *Container) GetEngine() *gin.Engine {
	return c.engine
}

// Shutdown closes the connections the container owns.
func (c *Container) Shutdown() {
	if err := c.queue.Close(); err != nil {
		c.log.Errorw("failed to close task queue", "error", err)
	}
	if err := c.redis.Close(); err != nil {
		c.log.Errorw("failed to close redis client", "error", err)
	}
}

// registerValidators installs the custom binding validators used by the
// request DTOs.
func registerValidators() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("jobtype", func(fl validator.FieldLevel) bool {
			return job.Type(fl.Field().String()).IsValid()
		})
	}
}

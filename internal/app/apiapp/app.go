package apiapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minio/minio-go/v7"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/JesseCorbett/minawan-maker/internal/config"
	"github.com/JesseCorbett/minawan-maker/internal/domain/community"
	"github.com/JesseCorbett/minawan-maker/internal/infra/httpclient"
	s3infra "github.com/JesseCorbett/minawan-maker/internal/infra/s3"
	pgrepo "github.com/JesseCorbett/minawan-maker/internal/repo/postgres"
	redrepo "github.com/JesseCorbett/minawan-maker/internal/repo/redis"
	catalogsvc "github.com/JesseCorbett/minawan-maker/internal/services/catalog"
	notifysvc "github.com/JesseCorbett/minawan-maker/internal/services/notify"
	reviewsvc "github.com/JesseCorbett/minawan-maker/internal/services/review"
	workflowsvc "github.com/JesseCorbett/minawan-maker/internal/services/workflow"
)

const webhookTimeout = 15 * time.Second

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	server     *http.Server
	postgres   *pgxpool.Pool
	redis      *goredis.Client
	s3         *minio.Client
	httpRouter http.Handler
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	r := chi.NewRouter()
	ApplyMiddlewares(r, log)

	var pool *pgxpool.Pool
	if p, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN); err != nil {
		log.Warn("postgres init failed, continuing in degraded mode", zap.Error(err))
	} else {
		pool = p
		if err := pgrepo.EnsureSchema(ctx, pool); err != nil {
			log.Warn("schema setup failed", zap.Error(err))
		}
	}

	redisClient := redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	approvalRepo := redrepo.NewApprovalRepo(redisClient)
	profileRepo := pgrepo.NewProfileRepo(pool)
	reviewRepo := pgrepo.NewReviewRepo(pool)
	reviewService := reviewsvc.NewService(reviewRepo)

	var s3Client *minio.Client
	if c, err := s3infra.NewClient(s3infra.Config{
		Endpoint:  cfg.S3.Endpoint,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
		UseSSL:    cfg.S3.UseSSL,
	}); err != nil {
		log.Warn("s3 init failed, continuing in degraded mode", zap.Error(err))
	} else {
		s3Client = c
	}

	objectStore := catalogsvc.NewS3Store(s3Client, cfg.S3.Bucket, cfg.S3.PublicBaseURL)
	gateway := notifysvc.NewGateway(httpclient.New(webhookTimeout), cfg.Webhooks.ActionBaseURL, log)
	catalogService := catalogsvc.NewService(objectStore, profileRepo, approvalRepo, log)

	targets := workflowsvc.Targets{
		Fallback:    cfg.Webhooks.Fallback,
		Communities: map[community.Community]string{},
	}
	for _, comm := range community.All() {
		if target := cfg.Webhooks.CommunityTarget(comm); target != "" {
			targets.Communities[comm] = target
		}
	}

	workflowService := workflowsvc.NewService(
		objectStore,
		approvalRepo,
		profileRepo,
		reviewService,
		gateway,
		catalogService,
		targets,
		log,
	)

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	RegisterRoutes(r, Dependencies{
		WorkflowService: workflowService,
		CatalogService:  catalogService,
		Logger:          log,
		Config:          cfg,
	})

	return &App{
		cfg:        cfg,
		logger:     log,
		server:     server,
		postgres:   pool,
		redis:      redisClient,
		s3:         s3Client,
		httpRouter: r,
	}, nil
}

func (a *App) Run() error {
	a.logger.Info("api server started", zap.String("addr", a.cfg.HTTP.Addr))
	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	if err := a.server.Shutdown(ctx); err != nil {
		shutdownErr = err
	}
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}

	return shutdownErr
}

func (a *App) Handler() http.Handler {
	return a.httpRouter
}

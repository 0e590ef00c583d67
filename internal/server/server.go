package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/GVMBT/seo-master-sub005/internal/auth"
	"github.com/GVMBT/seo-master-sub005/internal/bot"
	"github.com/GVMBT/seo-master-sub005/internal/config"
	"github.com/GVMBT/seo-master-sub005/internal/gateway"
	"github.com/GVMBT/seo-master-sub005/internal/health"
	"github.com/GVMBT/seo-master-sub005/internal/idempotency"
	"github.com/GVMBT/seo-master-sub005/internal/ledger"
	"github.com/GVMBT/seo-master-sub005/internal/notify"
	"github.com/GVMBT/seo-master-sub005/internal/payment"
	"github.com/GVMBT/seo-master-sub005/internal/taskhook"
)

// Version is reported on the detailed health response. Overridden at
// build time via -ldflags "-X .../internal/server.Version=v1.2.3".
var Version = "dev"

type Server struct {
	router *gin.Engine
	http   *http.Server
	db     *sqlx.DB
	config *config.Config
}

func New(database *sqlx.DB, redisClient *redis.Client, cfg *config.Config, notifier *notify.Service) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLoggingMiddleware())
	router.Use(MetricsMiddleware())

	ledgerRepo := ledger.NewRepository(database)
	txRepo := payment.NewRepository(database)

	// Money paths (stars and gateway charge ids) are deduplicated in
	// postgres and kept forever; task-queue message ids only need to
	// outlive the dispatcher's redelivery window, so they live in redis
	// with a TTL.
	paymentIdem := idempotency.NewPostgresStore(database)
	taskIdem := idempotency.NewRedisStore(redisClient, idempotency.DefaultRetention)

	paymentService := payment.NewService(ledgerRepo, txRepo, paymentIdem)
	botHandler := bot.NewHandler(paymentService, notifier, cfg.BotWebhookSecret)

	gatewayService := gateway.NewService(ledgerRepo, txRepo, paymentIdem)
	gatewayHandler := gateway.NewHandler(gatewayService, gateway.NewAllowlist(), notifier)

	taskService := taskhook.NewService(ledgerRepo, notifier, cfg.LowBalanceThreshold)
	taskHandler := taskhook.NewHandler(taskService, taskIdem, cfg.TaskSigningSecret)

	aggregator := health.NewAggregator(Version,
		health.NewPostgresChecker(database),
		health.NewRedisChecker(redisClient),
		health.NewHTTPChecker("llm_gateway", cfg.LLMGatewayURL+"/models", "Bearer "+cfg.LLMAPIKey),
		health.NewHTTPChecker("dispatcher", cfg.DispatcherURL+"/health", ""),
	)
	healthHandler := health.NewHandler(aggregator, cfg.HealthBearerSecret)

	adminHandler := payment.NewHandler(txRepo, ledgerRepo)

	router.POST("/bot", botHandler.Webhook)

	webhookLimit := RateLimitMiddleware(20, 40)
	router.POST("/webhook/gateway", webhookLimit, gatewayHandler.Webhook)
	router.POST("/notify", webhookLimit, taskHandler.Notify)

	authMiddleware := auth.AuthMiddleware(cfg.JWTSecret)
	admin := router.Group("/admin")
	admin.Use(authMiddleware, auth.RequireRole("admin"))
	{
		admin.GET("/transactions", adminHandler.ListTransactions)
		admin.GET("/users/:userID/balance", adminHandler.GetBalance)
	}

	router.GET("/health", healthHandler.Health)
	router.GET("/metrics", Metrics())

	return &Server{
		router: router,
		db:     database,
		config: cfg,
	}
}

func (s *Server) Start(port string) error {
	s.http = &http.Server{
		Addr:    ":" + port,
		Handler: s.router,
	}
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// Package app assembles repositories, services, transport and background workers
// so the API server, the CLI and the handler tests share one wiring.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"supplylink/internal/config"
	"supplylink/internal/database"
	"supplylink/internal/handler"
	"supplylink/internal/logging"
	"supplylink/internal/metrics"
	"supplylink/internal/middleware"
	"supplylink/internal/model"
	"supplylink/internal/queue"
	"supplylink/internal/repository"
	"supplylink/internal/service"
	"supplylink/internal/token"
	"supplylink/internal/tokenstore"
	"supplylink/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	rd "github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App holds the process-wide dependencies.
type App struct {
	Config config.AppConfig
	Logger *zap.Logger
	DB     *gorm.DB
	Redis  *rd.Client
	Hub    *websocket.Hub

	Tokens *token.Manager
	Auth   *middleware.Authenticator
	Jobs   *queue.StreamQueue

	AuthService         service.AuthService
	UserService         service.UserService
	DemandService       service.DemandService
	QuoteService        service.QuoteService
	OrderService        service.OrderService
	CategoryService     service.CategoryService
	ProductService      service.ProductService
	NotificationService service.NotificationService
	ForecastService     service.ForecastService
	AdminService        service.AdminService

	publisher queue.Publisher
}

// Open connects to PostgreSQL and Redis and assembles the application.
func Open(ctx context.Context, cfg config.AppConfig, logger *zap.Logger) (*App, error) {
	db, err := database.NewConnection(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	opts, err := rd.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	rdb := rd.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	return New(cfg, logger, db, rdb), nil
}

// New wires services on top of existing connections.
func New(cfg config.AppConfig, logger *zap.Logger, db *gorm.DB, rdb *rd.Client) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{Config: cfg, Logger: logger, DB: db, Redis: rdb}

	// Repository -> Service -> Handler
	userRepo := repository.NewUserRepository(db)
	demandRepo := repository.NewDemandRepository(db)
	quoteRepo := repository.NewQuoteRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	productRepo := repository.NewProductRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	forecastRepo := repository.NewForecastRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	metricsRepo := repository.NewMetricsRepository(db)
	txManager := repository.NewTransactionManager(db)

	a.Tokens = token.NewManager(cfg.JWTSecret, cfg.JWTRefreshSecret, cfg.JWTExpiration, cfg.JWTRefreshExpiration)
	a.Auth = middleware.NewAuthenticator(a.Tokens, cfg.IsRelease())
	a.Jobs = queue.NewStreamQueue(rdb, cfg.JobStream)

	// The hub asks the order service who may follow an order, and the order
	// service broadcasts through the hub.
	var authorize websocket.JoinAuthorizer
	if cfg.WSJoinOwnershipCheck {
		authorize = func(ctx context.Context, userID, role, orderID string) bool {
			return a.OrderService.CanFollow(ctx, userID, role, orderID)
		}
	}
	a.Hub = websocket.NewHub(a.Tokens, authorize, logger)

	a.AuthService = service.NewAuthService(userRepo, a.Tokens, tokenstore.New(rdb), a.Jobs, cfg.ResetTokenTTL, logger)
	a.UserService = service.NewUserService(userRepo, auditRepo, txManager)
	a.DemandService = service.NewDemandService(demandRepo, auditRepo, txManager)
	a.QuoteService = service.NewQuoteService(demandRepo, quoteRepo, auditRepo, txManager, a.Jobs, logger)
	a.OrderService = service.NewOrderService(orderRepo, quoteRepo, auditRepo, txManager, a.Hub, a.Jobs, logger)
	a.CategoryService = service.NewCategoryService(categoryRepo)
	a.ProductService = service.NewProductService(productRepo, categoryRepo)
	a.NotificationService = service.NewNotificationService(notificationRepo)
	a.ForecastService = service.NewForecastService(forecastRepo, productRepo, cfg.MLServiceURL, cfg.MLTimeout, logger)
	a.AdminService = service.NewAdminService(metricsRepo, notificationRepo, auditRepo)

	if len(cfg.KafkaBrokers) > 0 {
		a.publisher = queue.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaOrderTopic)
	}
	return a
}

// Router builds the HTTP surface: REST API, WebSocket, health, metrics and docs.
func (a *App) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), logging.GinMiddleware(a.Logger), metrics.GinMiddleware())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = a.Config.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/health", a.health)
	router.GET("/ws/orders", a.Hub.ServeWs)

	root := router.Group("")
	handler.NewAuthHandler(a.AuthService, a.Auth).RegisterRoutes(root)
	handler.NewUserHandler(a.UserService, a.Auth).RegisterRoutes(root)
	handler.NewDemandHandler(a.DemandService, a.Auth).RegisterRoutes(root)
	handler.NewQuoteHandler(a.QuoteService, a.Auth).RegisterRoutes(root)
	handler.NewOrderHandler(a.OrderService, a.Auth).RegisterRoutes(root)
	handler.NewCatalogHandler(a.CategoryService, a.ProductService, a.Auth).RegisterRoutes(root)
	handler.NewNotificationHandler(a.NotificationService, a.Auth).RegisterRoutes(root)
	handler.NewForecastHandler(a.ForecastService, a.Auth).RegisterRoutes(root)
	handler.NewAdminHandler(a.AdminService, a.Auth).RegisterRoutes(root)
	handler.NewAuditHandler(a.AdminService, a.Auth).RegisterRoutes(root)

	return router
}

// Worker returns a stream consumer with every job type registered.
func (a *App) Worker() *queue.Worker {
	w := queue.NewWorker(a.Redis, a.Config.JobStream, a.Config.JobGroup, a.Config.JobConsumer, a.Logger)

	deliver := queue.HandlerFunc(a.NotificationService.Deliver)
	if a.publisher != nil {
		deliver = queue.ForwardOrderEvents(a.publisher, model.NotificationOrderStatus, deliver)
	}
	w.Handle(queue.JobNotification, deliver)
	w.Handle(queue.JobSendEmail, service.NewLogMailer(a.Logger).Send)
	w.Handle(queue.JobMLTrigger, a.ForecastService.HandleJob)
	return w
}

// Close releases the Kafka writer, Redis client and database pool.
func (a *App) Close() error {
	var errs []error
	if a.publisher != nil {
		errs = append(errs, a.publisher.Close())
	}
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			errs = append(errs, sqlDB.Close())
		}
	}
	return errors.Join(errs...)
}

func (a *App) health(c *gin.Context) {
	ctx := c.Request.Context()
	status := gin.H{"status": "OK", "database": "up", "redis": "up"}
	code := http.StatusOK

	if sqlDB, err := a.DB.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
		status["database"] = "down"
		code = http.StatusServiceUnavailable
	}
	if err := a.Redis.Ping(ctx).Err(); err != nil {
		status["redis"] = "down"
		code = http.StatusServiceUnavailable
	}
	if code != http.StatusOK {
		status["status"] = "DEGRADED"
	}
	c.JSON(code, status)
}

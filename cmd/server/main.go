package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/garyjia/leave-approval/internal/approval"
	"github.com/garyjia/leave-approval/internal/config"
	"github.com/garyjia/leave-approval/internal/domain/entity"
	"github.com/garyjia/leave-approval/internal/lark"
	"github.com/garyjia/leave-approval/internal/ledger"
	"github.com/garyjia/leave-approval/internal/notify"
	"github.com/garyjia/leave-approval/internal/parser"
	"github.com/garyjia/leave-approval/internal/sheet"
	"github.com/garyjia/leave-approval/internal/store"
	"github.com/garyjia/leave-approval/internal/webhook"
	"github.com/garyjia/leave-approval/pkg/database"
	"github.com/garyjia/leave-approval/pkg/utils"
)

func main() {
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting leave approval workflow service",
		zap.Int("port", cfg.Server.Port))

	if err := os.MkdirAll("data", 0755); err != nil {
		logger.Fatal("Failed to create data directory", zap.Error(err))
	}

	db, err := database.New(database.Config{
		Path:            cfg.Ledger.Path,
		MaxOpenConns:    cfg.Ledger.MaxOpenConns,
		MaxIdleConns:    cfg.Ledger.MaxIdleConns,
		ConnMaxLifetime: cfg.Ledger.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize ledger database", zap.Error(err))
	}
	defer db.Close()

	eventLedger, err := ledger.New(db, logger)
	if err != nil {
		logger.Fatal("Failed to initialize event ledger", zap.Error(err))
	}

	rowStore, err := sheet.NewExcelRowStore(cfg.Sheet.Path, cfg.Sheet.SheetName, entity.Header, logger)
	if err != nil {
		logger.Fatal("Failed to open leave request sheet", zap.Error(err))
	}
	requestStore := store.NewRequestStore(rowStore, logger)

	larkClient := lark.NewClient(lark.Config{
		AppID:     cfg.Lark.AppID,
		AppSecret: cfg.Lark.AppSecret,
	}, logger)
	messenger := lark.NewMessenger(larkClient, logger)

	dispatcher := notify.NewDispatcher(messenger, notify.Recipients{
		SupervisorID: cfg.Approvers.SupervisorID,
		HRID:         cfg.Approvers.HRID,
	}, logger)

	engine := approval.NewEngine(requestStore, dispatcher, logger)
	router := approval.NewRouter(parser.New(logger), requestStore, engine, dispatcher, logger)

	webhookVerifier := webhook.NewVerifier(cfg.Lark.VerifyToken, cfg.Lark.EncryptKey, logger)
	webhookHandler := webhook.NewHandler(webhookVerifier, router, eventLedger, logger)

	if cfg.Logger.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	httpRouter := gin.New()
	httpRouter.Use(gin.Recovery())
	httpRouter.Use(loggingMiddleware(logger))

	httpRouter.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "leave-approval",
			"time":    time.Now().Format(time.RFC3339),
		})
	})

	httpRouter.POST(cfg.Lark.WebhookPath, webhookHandler.Handle)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      httpRouter,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited successfully")
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		)
	}
}

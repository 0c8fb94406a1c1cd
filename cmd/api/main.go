package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"kasturi-ledger/internal/coins"
	"kasturi-ledger/internal/config"
	"kasturi-ledger/internal/handler"
	"kasturi-ledger/internal/lock"
	"kasturi-ledger/internal/repository"
	"kasturi-ledger/internal/service"
	"kasturi-ledger/internal/ws"
	"kasturi-ledger/pkg/database"
	"kasturi-ledger/pkg/jwt"
	"kasturi-ledger/pkg/logger"
)

func main() {
	// 1. Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("config: %v", err)
	}
	logger.SetLevel(cfg.App.LogLevel)

	// 2. Database
	db, err := database.Connect(cfg)
	if err != nil {
		logger.Fatalf("database: %v", err)
	}
	if err := repository.AutoMigrate(db); err != nil {
		logger.Fatalf("migrate: %v", err)
	}

	// 3. Aggregate locks
	locker, closeLocker, err := lock.Open(context.Background(), cfg.Redis)
	if err != nil {
		logger.Fatalf("locks: %v", err)
	}
	defer closeLocker()
	if cfg.Redis.Enabled() {
		logger.Infof("aggregate locks via redis at %s", cfg.Redis.Addr)
	}

	// 4. WebSocket hub
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wsHub := ws.NewHub()
	go wsHub.Run(ctx)

	// 5. Dependency Injection (Wiring Layers)
	tokens := jwt.NewManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	loc := cfg.App.Location()

	userRepo := repository.NewUserRepo(db)
	roleRepo := repository.NewRoleRepo(db)
	privilegeRepo := repository.NewPrivilegeRepo(db)
	ledgerRepo := repository.NewLedgerRepo(db)
	batchRepo := repository.NewBatchRepo(db)
	walletRepo := repository.NewWalletRepo(db)
	reportRepo := repository.NewReportRepo(db)

	authService := service.NewAuthService(userRepo, roleRepo, privilegeRepo, tokens)
	batchService := service.NewBatchService(db, batchRepo, ledgerRepo, locker, wsHub, loc)
	walletService := service.NewWalletService(db, walletRepo, ledgerRepo, locker, wsHub,
		coins.Tiers{Silver: cfg.Ledger.TierSilver, Gold: cfg.Ledger.TierGold})
	reportService := service.NewReportService(reportRepo, cfg.Ledger.LowStockThreshold, loc)

	if err := authService.SeedAccessControl(cfg.Seed.AdminEmail, cfg.Seed.AdminPassword); err != nil {
		logger.Warnf("seed access control: %v", err)
	}

	// 6. Fiber
	app := fiber.New(fiber.Config{
		AppName: cfg.App.Name,
	})

	app.Use(fiberlogger.New(fiberlogger.Config{Output: logger.L().Writer()}))
	app.Use(recover.New())
	app.Use(cors.New())

	handler.RegisterRoutes(app, handler.Handlers{
		Auth:   handler.NewAuthHandler(authService),
		Batch:  handler.NewBatchHandler(batchService),
		Wallet: handler.NewWalletHandler(walletService, reportService),
		Report: handler.NewReportHandler(reportService),
		Role:   handler.NewRoleHandler(roleRepo, privilegeRepo),
	}, userRepo, tokens)

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// WebSocket feed
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})
	app.Get("/ws", websocket.New(func(c *websocket.Conn) {
		if !wsHub.Join(c) {
			return
		}
		defer wsHub.Leave(c)

		for {
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
	}))

	// 7. Graceful Shutdown
	go func() {
		if err := app.Listen(":" + cfg.App.Port); err != nil {
			logger.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	// Stopping the hub closes websocket clients so their handlers return
	// before the app drains.
	cancel()
	<-wsHub.Done()
	if err := app.Shutdown(); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}

	logger.Info("Server exited")
}

package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"kasturi-ledger/internal/middleware"
	"kasturi-ledger/internal/model"
	"kasturi-ledger/internal/repository"
	"kasturi-ledger/pkg/jwt"
)

type Handlers struct {
	Auth   *AuthHandler
	Batch  *BatchHandler
	Wallet *WalletHandler
	Report *ReportHandler
	Role   *RoleHandler
}

// RegisterRoutes mounts the JSON API under /api.
func RegisterRoutes(app *fiber.App, h Handlers, userRepo repository.UserRepository, tokens *jwt.Manager) {
	api := app.Group("/api")

	// ============ PUBLIC ROUTES ============
	auth := api.Group("/auth")
	auth.Post("/login", limiter.New(limiter.Config{
		Max:        10,
		Expiration: time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"success": false, "message": "Too many login attempts"})
		},
	}), h.Auth.Login)

	// ============ SHOPPER ROUTES ============
	user := api.Group("/user", middleware.RequireIdentity(tokens))
	user.Post("/sync", h.Wallet.SyncUser)
	user.Get("/wallet/me", h.Wallet.GetMyWallet)
	user.Get("/wallet/me/redeem-quote", h.Wallet.GetRedeemQuote)
	user.Get("/wallet/:uid", h.Wallet.GetWalletByUID)

	// ============ STAFF ROUTES ============
	staff := middleware.RequireAuth(userRepo, tokens)

	batches := api.Group("/batches", staff)
	batches.Get("/", middleware.RequirePrivilege(model.PrivBatchView), h.Batch.GetBatches)
	batches.Post("/", middleware.RequirePrivilege(model.PrivBatchCreate), h.Batch.CreateBatch)
	batches.Get("/:id", middleware.RequirePrivilege(model.PrivBatchView), h.Batch.GetBatch)
	batches.Post("/:id/out", middleware.RequirePrivilege(model.PrivBatchAdjust), h.Batch.StockOut)
	batches.Post("/:id/in", middleware.RequirePrivilege(model.PrivBatchAdjust), h.Batch.StockIn)
	batches.Patch("/:id/history/:entryId/void", middleware.RequirePrivilege(model.PrivBatchVoid), h.Batch.VoidEntry)
	batches.Patch("/:id/status", middleware.RequirePrivilege(model.PrivBatchAdjust), h.Batch.SetStatus)
	batches.Delete("/:id", middleware.RequirePrivilege(model.PrivBatchDelete), h.Batch.DeleteBatch)

	admin := api.Group("/admin", staff)
	admin.Get("/inventory/stats", middleware.RequireAnyPrivilege(model.PrivDashboardView, model.PrivBatchView), h.Report.GetInventoryStats)
	admin.Get("/inventory/stock-movement", middleware.RequirePrivilege(model.PrivDashboardView), h.Report.GetStockMovement)

	admin.Get("/wallet/stats", middleware.RequirePrivilege(model.PrivWalletView), h.Wallet.GetStats)
	admin.Get("/wallet/users/:userId", middleware.RequirePrivilege(model.PrivWalletView), h.Wallet.GetUserWallet)
	admin.Post("/wallet/adjust", middleware.RequirePrivilege(model.PrivWalletAdjust), h.Wallet.Adjust)
	admin.Post("/wallet/resolve-pending", middleware.RequirePrivilege(model.PrivWalletAdjust), h.Wallet.ResolvePending)
	admin.Post("/wallet/order-events", middleware.RequirePrivilege(model.PrivWalletOrderHook), h.Wallet.OrderEvent)

	api.Get("/roles", staff, h.Role.GetRoles)
	api.Get("/privileges", staff, h.Role.GetPrivileges)
}

package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"kasturi-ledger/internal/service"
	"kasturi-ledger/pkg/apperror"
)

type WalletHandler struct {
	service service.WalletService
	reports service.ReportService
}

func NewWalletHandler(s service.WalletService, reports service.ReportService) *WalletHandler {
	return &WalletHandler{service: s, reports: reports}
}

// ---- shopper routes (identity token) ----

// GET /api/user/wallet/me
func (h *WalletHandler) GetMyWallet(c *fiber.Ctx) error {
	summary, err := h.service.Summary(c.UserContext(), getIdentity(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"success":        true,
		"balance":        summary.Balance,
		"pendingBalance": summary.PendingBalance,
		"balanceValue":   summary.BalanceValue,
		"tier":           summary.Tier,
		"nextTier":       summary.NextTier,
		"progress":       summary.Progress.Progress,
		"coinsToNext":    summary.CoinsToNext,
		"history":        summary.History,
	})
}

// GET /api/user/wallet/me/redeem-quote?cartValue=
func (h *WalletHandler) GetRedeemQuote(c *fiber.Ctx) error {
	cartValue, err := decimal.NewFromString(strings.TrimSpace(c.Query("cartValue")))
	if err != nil {
		return writeError(c, apperror.Validation("cartValue must be a number"))
	}

	quote, err := h.service.RedemptionQuote(c.UserContext(), getIdentity(c), cartValue)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "maxCoins": quote.MaxCoins, "discount": quote.Discount})
}

// GetWalletByUID serves the storefront's legacy lookup; shoppers may only
// read their own wallet.
// GET /api/user/wallet/:uid
func (h *WalletHandler) GetWalletByUID(c *fiber.Ctx) error {
	uid := c.Params("uid")
	if uid != getIdentity(c) {
		return writeError(c, apperror.New(apperror.KindAuthorization, "cannot read another user's wallet"))
	}

	summary, err := h.service.Summary(c.UserContext(), uid)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "balance": summary.Balance, "transactions": summary.History})
}

// SyncUser makes sure the signed-in shopper has a wallet.
// POST /api/user/sync
func (h *WalletHandler) SyncUser(c *fiber.Ctx) error {
	wallet, err := h.service.EnsureWallet(c.UserContext(), getIdentity(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "wallet": wallet})
}

// ---- admin routes (staff token) ----

// GET /api/admin/wallet/users/:userId
func (h *WalletHandler) GetUserWallet(c *fiber.Ctx) error {
	summary, err := h.service.FindWallet(c.UserContext(), c.Params("userId"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "wallet": summary})
}

// GET /api/admin/wallet/stats
func (h *WalletHandler) GetStats(c *fiber.Ctx) error {
	stats, err := h.reports.GetWalletStats(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "stats": stats})
}

// POST /api/admin/wallet/adjust
func (h *WalletHandler) Adjust(c *fiber.Ctx) error {
	var req service.AdjustRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}

	wallet, err := h.service.AdjustByAdmin(c.UserContext(), getActor(c), &req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Wallet adjusted",
		"balance": wallet.Balance,
		"tier":    wallet.Tier,
	})
}

// POST /api/admin/wallet/resolve-pending
func (h *WalletHandler) ResolvePending(c *fiber.Ctx) error {
	var req service.ResolveRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}

	wallet, err := h.service.ResolvePending(c.UserContext(), getActor(c), &req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"success":        true,
		"message":        "Transaction " + strings.ToLower(string(req.Action)),
		"balance":        wallet.Balance,
		"pendingBalance": wallet.PendingBalance,
	})
}

// POST /api/admin/wallet/order-events
func (h *WalletHandler) OrderEvent(c *fiber.Ctx) error {
	var req service.OrderEventRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}

	result, err := h.service.ApplyOrderEvent(c.UserContext(), getActor(c), &req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Order event " + strings.ToLower(string(result.Outcome)),
		"event":   result.Event,
		"outcome": result.Outcome,
		"coins":   result.Coins,
	})
}

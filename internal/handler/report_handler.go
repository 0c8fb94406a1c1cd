package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"kasturi-ledger/internal/service"
)

type ReportHandler struct {
	service service.ReportService
}

func NewReportHandler(s service.ReportService) *ReportHandler {
	return &ReportHandler{service: s}
}

// GetStockMovement returns per-day batch stock in/out for charts
// Query params: days (default 7)
func (h *ReportHandler) GetStockMovement(c *fiber.Ctx) error {
	days, err := strconv.Atoi(c.Query("days", "7"))
	if err != nil || days <= 0 {
		days = 7
	}

	data, err := h.service.GetStockMovement(c.UserContext(), days)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"period":  days,
		"data":    data,
	})
}

// GetInventoryStats returns batch counts and stock valuation
func (h *ReportHandler) GetInventoryStats(c *fiber.Ctx) error {
	stats, err := h.service.GetInventoryStats(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(fiber.Map{"success": true, "stats": stats})
}

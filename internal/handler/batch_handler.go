package handler

import (
	"github.com/gofiber/fiber/v2"

	"kasturi-ledger/internal/service"
)

type BatchHandler struct {
	service service.BatchService
}

func NewBatchHandler(s service.BatchService) *BatchHandler {
	return &BatchHandler{service: s}
}

type SetStatusRequest struct {
	IsActive *bool `json:"isActive"`
}

// GET /api/batches
func (h *BatchHandler) GetBatches(c *fiber.Ctx) error {
	batches, err := h.service.ListBatches(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "batches": batches})
}

// GET /api/batches/:id
func (h *BatchHandler) GetBatch(c *fiber.Ctx) error {
	id, err := parseUUID(c, "id")
	if err != nil {
		return writeError(c, err)
	}

	batch, err := h.service.GetBatch(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "batch": batch})
}

// CreateBatch answers with the new batch and the refreshed list.
// POST /api/batches
func (h *BatchHandler) CreateBatch(c *fiber.Ctx) error {
	var req service.CreateBatchRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}

	batch, err := h.service.CreateBatch(c.UserContext(), getActor(c), &req)
	if err != nil {
		return writeError(c, err)
	}

	batches, err := h.service.ListBatches(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "batch": batch, "batches": batches})
}

// POST /api/batches/:id/out
func (h *BatchHandler) StockOut(c *fiber.Ctx) error {
	id, err := parseUUID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var req service.StockMoveRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}

	batch, err := h.service.StockOut(c.UserContext(), getActor(c), id, &req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "Stock removed", "batch": batch})
}

// POST /api/batches/:id/in
func (h *BatchHandler) StockIn(c *fiber.Ctx) error {
	id, err := parseUUID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var req service.StockMoveRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}

	batch, err := h.service.StockIn(c.UserContext(), getActor(c), id, &req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "Stock added", "batch": batch})
}

// PATCH /api/batches/:id/history/:entryId/void
func (h *BatchHandler) VoidEntry(c *fiber.Ctx) error {
	id, err := parseUUID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	entryID, err := parseUUID(c, "entryId")
	if err != nil {
		return writeError(c, err)
	}

	batch, err := h.service.VoidEntry(c.UserContext(), getActor(c), id, entryID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "batch": batch})
}

// PATCH /api/batches/:id/status
func (h *BatchHandler) SetStatus(c *fiber.Ctx) error {
	id, err := parseUUID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var req SetStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}
	if req.IsActive == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "isActive is required"})
	}

	batch, err := h.service.SetActive(c.UserContext(), getActor(c), id, *req.IsActive)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "batch": batch})
}

// DELETE /api/batches/:id
func (h *BatchHandler) DeleteBatch(c *fiber.Ctx) error {
	id, err := parseUUID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	if err := h.service.DeleteBatch(c.UserContext(), getActor(c), id); err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

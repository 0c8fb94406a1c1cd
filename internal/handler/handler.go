package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"kasturi-ledger/internal/middleware"
	"kasturi-ledger/internal/service"
	"kasturi-ledger/pkg/apperror"
)

// getActor reads the staff user set by RequireAuth.
func getActor(c *fiber.Ctx) service.Actor {
	actor := service.Actor{}
	if v, ok := c.Locals(middleware.LocalUserID).(string); ok {
		actor.ID = v
	}
	if v, ok := c.Locals(middleware.LocalUserName).(string); ok {
		actor.Name = v
	}
	if v, ok := c.Locals(middleware.LocalUserEmail).(string); ok {
		actor.Email = v
	}
	return actor
}

// getIdentity reads the shopper uid set by RequireIdentity.
func getIdentity(c *fiber.Ctx) string {
	uid, _ := c.Locals(middleware.LocalIdentity).(string)
	return uid
}

func parseUUID(c *fiber.Ctx, param string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(param))
	if err != nil {
		return uuid.Nil, apperror.Validation("invalid %s", param)
	}
	return id, nil
}

// writeError answers with the status mapped from the error kind.
// Internal errors are not echoed to clients.
func writeError(c *fiber.Ctx, err error) error {
	status := apperror.HTTPStatus(err)
	message := err.Error()
	if status == fiber.StatusInternalServerError {
		message = "Internal Server Error"
	}
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"message": message,
		"code":    apperror.KindOf(err),
	})
}

func invalidJSON(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Invalid JSON"})
}

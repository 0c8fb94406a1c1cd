package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"kasturi-ledger/internal/service"
)

type AuthHandler struct {
	authService service.AuthService
}

func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles staff authentication
// POST /api/auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}

	if req.Email == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Email and password are required"})
	}

	response, err := h.authService.Login(req.Email, req.Password)
	if err != nil {
		status := fiber.StatusUnauthorized
		if !errors.Is(err, service.ErrInvalidCredentials) && !errors.Is(err, service.ErrUserInactive) {
			status = fiber.StatusInternalServerError
		}
		return c.Status(status).JSON(fiber.Map{"success": false, "message": err.Error()})
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"token":      response.Token,
		"user":       response.User,
		"privileges": response.Privileges,
	})
}

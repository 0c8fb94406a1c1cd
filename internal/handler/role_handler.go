package handler

import (
	"github.com/gofiber/fiber/v2"

	"kasturi-ledger/internal/repository"
)

type RoleHandler struct {
	roleRepo      repository.RoleRepository
	privilegeRepo repository.PrivilegeRepository
}

func NewRoleHandler(roleRepo repository.RoleRepository, privilegeRepo repository.PrivilegeRepository) *RoleHandler {
	return &RoleHandler{roleRepo: roleRepo, privilegeRepo: privilegeRepo}
}

// GetRoles returns all staff roles with their privileges
// GET /api/roles
func (h *RoleHandler) GetRoles(c *fiber.Ctx) error {
	roles, err := h.roleRepo.FindAll()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": "Failed to fetch roles"})
	}
	return c.JSON(fiber.Map{"success": true, "roles": roles})
}

// GetPrivileges lists every privilege code
// GET /api/privileges
func (h *RoleHandler) GetPrivileges(c *fiber.Ctx) error {
	privileges, err := h.privilegeRepo.FindAll()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": "Failed to fetch privileges"})
	}
	return c.JSON(fiber.Map{"success": true, "privileges": privileges})
}

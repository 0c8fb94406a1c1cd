package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"kasturi-ledger/internal/model"
	"kasturi-ledger/internal/repository"
	"kasturi-ledger/pkg/jwt"
)

// Locals keys set by the auth middleware.
const (
	LocalUserID     = "user_id"
	LocalUserEmail  = "user_email"
	LocalUserName   = "user_name"
	LocalPrivileges = "user_privileges"
	LocalIdentity   = "identity_uid"
)

func bearerClaims(c *fiber.Ctx, tokens *jwt.Manager) (*jwt.Claims, error) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return nil, c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "message": "Missing authorization token"})
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return nil, c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "message": "Invalid authorization format. Use: Bearer <token>"})
	}

	claims, err := tokens.ValidateToken(parts[1])
	if err != nil {
		return nil, c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "message": "Invalid or expired token"})
	}
	return claims, nil
}

// RequireAuth is middleware that validates a staff JWT against the user's
// current session and sets user info in context
func RequireAuth(userRepo repository.UserRepository, tokens *jwt.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := bearerClaims(c, tokens)
		if claims == nil {
			return err
		}
		if claims.RoleCode == model.RoleCustomer {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"success": false, "message": "Staff account required"})
		}

		user, err := userRepo.FindByID(claims.UserID)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "message": "User not found"})
		}
		if !user.IsActive {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "message": "User account is inactive"})
		}
		if user.TokenVersion != claims.TokenVersion {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "message": "Session expired (logged in on another device)"})
		}

		c.Locals(LocalUserID, user.ID.String())
		c.Locals(LocalUserEmail, user.Email)
		c.Locals(LocalUserName, user.FullName)
		c.Locals(LocalPrivileges, user.GetPrivilegeCodes())

		return c.Next()
	}
}

// RequireIdentity accepts any valid token and exposes its subject as the
// caller's wallet user id. Shoppers have no session row to check.
func RequireIdentity(tokens *jwt.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := bearerClaims(c, tokens)
		if claims == nil {
			return err
		}
		if claims.Subject == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "message": "Token has no subject"})
		}

		c.Locals(LocalIdentity, claims.Subject)
		return c.Next()
	}
}

// RequirePrivilege checks if the authenticated user has the required privilege
func RequirePrivilege(requiredPrivilege string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		privileges, ok := c.Locals(LocalPrivileges).([]string)
		if !ok {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"success": false, "message": "No privileges found"})
		}

		for _, p := range privileges {
			if p == requiredPrivilege {
				return c.Next()
			}
		}

		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"success": false,
			"message": "Forbidden: requires '" + requiredPrivilege + "' privilege",
		})
	}
}

// RequireAnyPrivilege checks if the user has at least one of the specified privileges
func RequireAnyPrivilege(requiredPrivileges ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		privileges, ok := c.Locals(LocalPrivileges).([]string)
		if !ok {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"success": false, "message": "No privileges found"})
		}

		for _, userPriv := range privileges {
			for _, reqPriv := range requiredPrivileges {
				if userPriv == reqPriv {
					return c.Next()
				}
			}
		}

		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"success": false,
			"message": "Forbidden: requires one of " + strings.Join(requiredPrivileges, ", ") + " privileges",
		})
	}
}

package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-sla/internal/domain"
	apperrors "github.com/spec-kit/ticket-sla/pkg/util/errorutil"
)

// RequireStaffRole ensures the caller is staff with one of the allowed roles.
// With no roles any staff member passes. System callers pass when allowSystem
// is set.
func RequireStaffRole(allowSystem bool, allowed ...domain.StaffRole) fiber.Handler {
	allowedSet := make(map[domain.StaffRole]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if principal.SubjectType == domain.SubjectTypeSystem {
			if allowSystem {
				return c.Next()
			}
			return apperrors.NewForbidden("staff role required")
		}
		if principal.SubjectType != domain.SubjectTypeStaff || principal.Role == nil {
			return apperrors.NewForbidden("staff role required")
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[*principal.Role]; !exists {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}

package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	RolePatient = "patient"
	RoleDoctor  = "doctor"
	RoleAdmin   = "admin"
)

// RequireRole returns middleware that checks if the user has at least one of the specified roles.
// Admins pass every check.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userRoles := RolesFromContext(c.Request().Context())
			for _, required := range roles {
				for _, has := range userRoles {
					if has == required || has == RoleAdmin {
						return next(c)
					}
				}
			}
			return echo.NewHTTPError(http.StatusForbidden,
				fmt.Sprintf("required role: %s", strings.Join(roles, " or ")))
		}
	}
}

func HasRole(ctx context.Context, role string) bool {
	for _, r := range RolesFromContext(ctx) {
		if r == role {
			return true
		}
	}
	return false
}

// CanActAsEmail reports whether the caller may read or write data owned by
// email: admins, or the account holding that address. Doctor access to a
// patient depends on the match and is decided by the caller.
func CanActAsEmail(ctx context.Context, email string) bool {
	if HasRole(ctx, RoleAdmin) {
		return true
	}
	own := EmailFromContext(ctx)
	return own != "" && strings.EqualFold(own, strings.TrimSpace(email))
}

// CanActAsDoctor reports whether the caller may change the doctor record id.
func CanActAsDoctor(ctx context.Context, id string) bool {
	if HasRole(ctx, RoleAdmin) {
		return true
	}
	return HasRole(ctx, RoleDoctor) && DoctorIDFromContext(ctx) == id
}

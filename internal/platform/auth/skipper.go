package auth

import (
	"github.com/labstack/echo/v4"
)

// publicPaths lists route paths that bypass authentication: health checks,
// account creation and sign-in, OTP, and the disease catalogue.
var publicPaths = map[string]bool{
	"/health":                         true,
	"/health/db":                      true,
	"/api/v1/auth/signup":             true,
	"/api/v1/auth/signin":             true,
	"/api/v1/auth/otp/send":           true,
	"/api/v1/auth/otp/verify":         true,
	"/api/v1/diseases":                true,
	"/api/v1/diseases/lookup":         true,
	"/api/auth/signup":                true,
	"/api/auth/signin":                true,
	"/api/auth/doctors/signup-doctor": true,
	"/api/auth/send-otp":              true,
	"/api/auth/verify-otp":            true,
}

// AuthSkipper returns true for requests whose route should skip authentication.
func AuthSkipper(c echo.Context) bool {
	return publicPaths[c.Path()]
}

// IsPublicPath reports whether the given route path bypasses auth.
func IsPublicPath(path string) bool {
	return publicPaths[path]
}

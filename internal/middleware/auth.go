package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/maloba12/umutulo/internal/model"
	"github.com/maloba12/umutulo/pkg/jwtutil"
	"github.com/maloba12/umutulo/pkg/logger"
	"github.com/maloba12/umutulo/prometheus"
)

// AuthMiddleware validates the JWT token from the Authorization header
func AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		log := logger.FromContext(c)

		// Get the Authorization header
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			log.Error("Missing Authorization header")
			prometheus.RecordAuthError("missing_token")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing authorization token"})
		}

		// Check if it's a Bearer token
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			log.Error("Invalid Authorization header format")
			prometheus.RecordAuthError("invalid_auth_format")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid authorization format, expected Bearer token"})
		}

		// Extract the token
		tokenString := parts[1]

		// Validate the token
		claims, err := jwtutil.ValidateToken(tokenString)
		if err != nil {
			log.Error("Invalid JWT token", zap.Error(err))
			prometheus.RecordAuthError("invalid_token")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
		}

		// Store identity info in context for later use
		c.Set("user", claims)
		c.Set("user_id", claims.UserID)
		c.Set("email", claims.Email)
		c.Set("role", claims.Role)

		// Store church context if available
		if claims.ChurchID != "" {
			c.Set("church_id", claims.ChurchID)
			c.Set("church_name", claims.ChurchName)

			log.Debug("Request authenticated with church context",
				zap.String("church_id", claims.ChurchID),
				zap.String("church_name", claims.ChurchName),
				zap.String("role", claims.Role))
		}

		// Token is valid, proceed with the request
		return next(c)
	}
}

// RequireChurchContext ensures the authenticated identity is bound to a church.
// Every tenant-scoped query downstream relies on this id.
func RequireChurchContext(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		log := logger.FromContext(c)

		churchID, ok := c.Get("church_id").(string)
		if !ok || churchID == "" {
			log.Warn("Missing church context")
			prometheus.RecordAuthError("missing_church_context")
			return c.JSON(http.StatusForbidden, echo.Map{
				"error":   "church context required",
				"message": "This account is not linked to a church",
			})
		}

		return next(c)
	}
}

// RequireAdmin restricts a route to church administrators. Role checks
// happen here, at the data-access boundary, not in the client.
func RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		log := logger.FromContext(c)

		role, ok := c.Get("role").(string)
		if !ok || role != model.RoleChurchAdmin {
			log.Warn("Non-admin access attempt", zap.String("role", role))
			prometheus.RecordAuthError("admin_required")
			return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
		}

		return next(c)
	}
}

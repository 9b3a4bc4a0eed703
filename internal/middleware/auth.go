// Package middleware provides HTTP middleware components for the application.
// It includes token validation and role guards for the fiber web framework.
package middleware

import (
	"strings"

	"paystream/internal/config"
	"paystream/internal/models"
	"paystream/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// Auth validates the Bearer token issued by the hosting platform and stores
// the parsed claims in the request context.
func Auth(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return utils.Unauthorized(c, "missing authorization header")
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return utils.Unauthorized(c, "invalid authorization format")
	}
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")

	token, err := jwt.ParseWithClaims(tokenString, &models.AuthClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(config.GetEnv("JWT_SECRET", "dev-secret")), nil
	})
	if err != nil || !token.Valid {
		return utils.Unauthorized(c, "invalid token")
	}

	claims, ok := token.Claims.(*models.AuthClaims)
	if !ok {
		return utils.Unauthorized(c, "invalid claims")
	}

	c.Locals("claims", claims)
	return c.Next()
}

// Claims extracts the parsed claims stored by Auth.
func Claims(c *fiber.Ctx) (*models.AuthClaims, bool) {
	claims, ok := c.Locals("claims").(*models.AuthClaims)
	return claims, ok && claims != nil
}

// RequireEarner only lets earner tokens through.
func RequireEarner(c *fiber.Ctx) error {
	claims, ok := Claims(c)
	if !ok {
		return utils.Unauthorized(c, "invalid claims")
	}
	if !claims.IsEarner() || claims.EarnerID == 0 {
		return utils.Forbidden(c, "earner access required")
	}
	return c.Next()
}

// RequireAdmin only lets admin tokens through.
func RequireAdmin(c *fiber.Ctx) error {
	claims, ok := Claims(c)
	if !ok {
		return utils.Unauthorized(c, "invalid claims")
	}
	if !claims.IsAdmin() {
		return utils.Forbidden(c, "admin access required")
	}
	return c.Next()
}

// RequireService only lets service-to-service tokens through; the order
// fulfillment producer uses these to post earnings.
func RequireService(c *fiber.Ctx) error {
	claims, ok := Claims(c)
	if !ok {
		return utils.Unauthorized(c, "invalid claims")
	}
	if claims.Role != models.RoleService {
		return utils.Forbidden(c, "service access required")
	}
	return c.Next()
}

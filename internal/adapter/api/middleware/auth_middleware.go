package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"pawcare/internal/infrastructure/firebase"
	"pawcare/pkg/errors"
	"pawcare/pkg/response"
)

type AuthMiddleware struct {
	authClient *firebase.AuthClient
}

func NewAuthMiddleware(authClient *firebase.AuthClient) *AuthMiddleware {
	return &AuthMiddleware{
		authClient: authClient,
	}
}

// Authenticate resolves the caller's identity from the Bearer token and
// stores the uid in the request context. Every failure maps to the
// UNAUTHENTICATED envelope; handlers never see an anonymous request.
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			return response.Error(c, errors.Unauthenticated("Authorization header is required", nil))
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return response.Error(c, errors.Unauthenticated("Invalid authorization format", nil))
		}

		uid, err := m.authClient.VerifyToken(c.Request().Context(), parts[1])
		if err != nil {
			return response.Error(c, errors.Unauthenticated("Invalid or expired token", err))
		}

		c.Set("uid", uid)

		return next(c)
	}
}

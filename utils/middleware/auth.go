package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/sahilchouksey/student-records/model"
	"github.com/sahilchouksey/student-records/utils/auth"
	"github.com/sahilchouksey/student-records/utils/response"
	"gorm.io/gorm"
)

// authFailure carries the status and message for a rejected token
type authFailure struct {
	status  int
	message string
}

func (f *authFailure) Error() string { return f.message }

func unauthorized(message string) *authFailure {
	return &authFailure{status: fiber.StatusUnauthorized, message: message}
}

// AuthMiddleware handles JWT authentication
type AuthMiddleware struct {
	jwtManager       *auth.JWTManager
	blacklistService *auth.BlacklistService
	db               *gorm.DB
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(jwtManager *auth.JWTManager, db *gorm.DB) *AuthMiddleware {
	return &AuthMiddleware{
		jwtManager:       jwtManager,
		blacklistService: auth.NewBlacklistService(db),
		db:               db,
	}
}

// Required is middleware that requires a valid JWT token
func (m *AuthMiddleware) Required() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := m.authenticate(c); err != nil {
			var failure *authFailure
			if errors.As(err, &failure) && failure.status == fiber.StatusUnauthorized {
				return response.Unauthorized(c, failure.message)
			}
			return response.InternalServerError(c, err.Error())
		}
		return c.Next()
	}
}

// Optional populates the caller's identity when a valid token is present and
// otherwise lets the request through anonymously. Handlers that need a
// principal decide between 401 and 403 themselves. Failures to verify a token
// against the database are server errors, not anonymous requests.
func (m *AuthMiddleware) Optional() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := m.authenticate(c); err != nil {
			var failure *authFailure
			if !errors.As(err, &failure) {
				log.Errorw("optional authentication failed", "path", c.Path(), "error", err)
				return response.InternalServerError(c, err.Error())
			}
		}
		return c.Next()
	}
}

func (m *AuthMiddleware) authenticate(c *fiber.Ctx) error {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return unauthorized("Missing authorization token")
	}

	// "Bearer <token>"
	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return unauthorized("Invalid authorization format")
	}

	claims, err := m.jwtManager.ValidateToken(parts[1])
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) {
			return unauthorized("Token has expired")
		}
		return unauthorized("Invalid token")
	}

	if claims.TokenType != auth.TokenTypeAccess {
		return unauthorized("Invalid token type")
	}

	isRevoked, err := m.blacklistService.IsTokenRevoked(c.UserContext(), claims.ID)
	if err != nil {
		return errors.New("Failed to check token status")
	}
	if isRevoked {
		return unauthorized("Token has been revoked")
	}

	var user model.User
	if err := m.db.WithContext(c.UserContext()).First(&user, claims.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return unauthorized("User not found")
		}
		return errors.New("Failed to load user")
	}

	if user.TokenVersion != claims.TokenVersion {
		return unauthorized("Token has been invalidated")
	}

	c.Locals("user_id", claims.UserID)
	c.Locals("user_email", claims.Email)
	c.Locals("user_role", user.Role)
	c.Locals("claims", claims)
	c.Locals("user", &user)
	c.Locals("token_jti", claims.ID)

	return nil
}

// GetUser extracts full user object from context
func GetUser(c *fiber.Ctx) (*model.User, bool) {
	u, ok := c.Locals("user").(*model.User)
	return u, ok && u != nil
}

// GetClaims extracts full claims from context
func GetClaims(c *fiber.Ctx) (*auth.Claims, bool) {
	claims, ok := c.Locals("claims").(*auth.Claims)
	return claims, ok && claims != nil
}

package auth

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/sahilchouksey/student-records/model"
	"github.com/sahilchouksey/student-records/utils/auth"
	"github.com/sahilchouksey/student-records/utils/middleware"
	"github.com/sahilchouksey/student-records/utils/response"
)

// RefreshRequest represents a token refresh request
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// RefreshToken handles POST /auth/refresh. The old refresh token is revoked.
func (h *AuthHandler) RefreshToken(c *fiber.Ctx) error {
	var req RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.BadRequest(c, "Refresh token is required")
	}

	claims, err := h.jwtManager.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		return response.Unauthorized(c, "Invalid or expired refresh token")
	}

	ctx := c.UserContext()

	var user model.User
	if err := h.db.WithContext(ctx).First(&user, claims.UserID).Error; err != nil {
		return response.Unauthorized(c, "User not found")
	}
	if user.TokenVersion != claims.TokenVersion {
		return response.Unauthorized(c, "Token has been invalidated")
	}

	// Revoking first makes the blacklist's unique JTI the single-use check.
	if err := h.blacklistService.RevokeToken(ctx, claims.ID, user.ID, claims.ExpiresAt.Time, "token_refresh"); err != nil {
		if errors.Is(err, auth.ErrTokenAlreadyRevoked) {
			return response.Unauthorized(c, "Token has been revoked")
		}
		log.Errorw("failed to revoke refresh token", "user_id", user.ID, "error", err)
		return response.InternalServerError(c, "Failed to check token status")
	}

	tokens, err := h.issueTokens(&user)
	if err != nil {
		return response.InternalServerError(c, "Failed to generate tokens")
	}

	return response.Success(c, tokens)
}

// Logout handles POST /auth/logout by blacklisting the access token's JTI
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}

	if err := h.blacklistService.RevokeToken(c.UserContext(), claims.ID, claims.UserID, claims.ExpiresAt.Time, "logout"); err != nil {
		log.Errorw("logout failed", "user_id", claims.UserID, "error", err)
		return response.InternalServerError(c, "Failed to logout")
	}

	return response.SuccessWithMessage(c, "Successfully logged out", nil)
}

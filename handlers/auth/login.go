package auth

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

// LoginRequest represents a user login request
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email_address"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse represents a successful login response
type LoginResponse struct {
	User UserResponse `json:"user"`
	TokenPair
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.BadRequest(c, "Email and password are required")
	}

	ctx := c.UserContext()
	ip := c.IP()

	var user model.User
	if err := h.db.WithContext(ctx).Where("email = ?", req.Email).First(&user).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Errorw("login user lookup failed", "error", err)
			return response.InternalServerError(c, "Failed to login")
		}
		// unknown emails count toward the lockout too
		_ = h.bruteForceProtection.RecordFailedAttempt(ctx, ip, req.Email)
		return response.Unauthorized(c, "Invalid email or password")
	}

	if err := auth.VerifyPassword(user.PasswordHash, req.Password); err != nil {
		_ = h.bruteForceProtection.RecordFailedAttempt(ctx, ip, req.Email)
		return response.Unauthorized(c, "Invalid email or password")
	}

	h.bruteForceProtection.RecordSuccessfulAttempt(ctx, ip)

	tokens, err := h.issueTokens(&user)
	if err != nil {
		log.Errorw("token generation failed", "user_id", user.ID, "error", err)
		return response.InternalServerError(c, "Failed to generate tokens")
	}

	log.Infow("user logged in", "user_id", user.ID, "role", user.Role)
	return response.Success(c, LoginResponse{
		User:      newUserResponse(&user),
		TokenPair: *tokens,
	})
}

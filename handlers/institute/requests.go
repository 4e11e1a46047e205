package institute

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/sahilchouksey/student-records/model"
	"github.com/sahilchouksey/student-records/services"
	"github.com/sahilchouksey/student-records/utils/middleware"
	"github.com/sahilchouksey/student-records/utils/response"
)

// InstituteRequestHandler exposes institute registration requests over HTTP
type InstituteRequestHandler struct {
	service *services.InstituteRequestService
}

// NewInstituteRequestHandler creates a new institute request handler
func NewInstituteRequestHandler(service *services.InstituteRequestService) *InstituteRequestHandler {
	return &InstituteRequestHandler{service: service}
}

// SubmitResponse is the body of an accepted registration
type SubmitResponse struct {
	Success   bool   `json:"success"`
	RequestID string `json:"requestId"`
	Message   string `json:"message,omitempty"`
}

// RejectRequest is the optional body of a rejection
type RejectRequest struct {
	Reason string `json:"reason"`
}

// Submit handles POST /institute-requests/submit
func (h *InstituteRequestHandler) Submit(c *fiber.Ctx) error {
	var req model.SubmitInstituteRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	result, err := h.service.Submit(c.UserContext(), &req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(SubmitResponse{
		Success:   result.Success,
		RequestID: result.RequestID,
		Message:   "Registration request submitted successfully",
	})
}

// GetAll handles GET /institute-requests/all
func (h *InstituteRequestHandler) GetAll(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "0"))
	limit, _ := strconv.Atoi(c.Query("limit", "0"))

	result, err := h.service.GetAll(c.UserContext(), principal(c), services.ListFilter{
		Status: model.RequestStatus(c.Query("status")),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	if result.Limit > 0 {
		return response.Paginated(c, result.Requests, response.CalculatePagination(result.Page, result.Limit, result.Total))
	}
	return response.Success(c, result.Requests)
}

// GetByID handles GET /institute-requests/:id
func (h *InstituteRequestHandler) GetByID(c *fiber.Ctx) error {
	request, err := h.service.GetByID(c.UserContext(), principal(c), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return response.Success(c, request)
}

// Approve handles POST /institute-requests/:id/approve
func (h *InstituteRequestHandler) Approve(c *fiber.Ctx) error {
	request, err := h.service.Approve(c.UserContext(), principal(c), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return response.SuccessWithMessage(c, "Institute request approved", request)
}

// Reject handles POST /institute-requests/:id/reject
func (h *InstituteRequestHandler) Reject(c *fiber.Ctx) error {
	var req RejectRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return response.BadRequest(c, "Invalid request body")
		}
	}

	request, err := h.service.Reject(c.UserContext(), principal(c), c.Params("id"), req.Reason)
	if err != nil {
		return handleServiceError(c, err)
	}

	return response.SuccessWithMessage(c, "Institute request rejected", request)
}

// principal returns the caller resolved by the optional auth middleware, or nil
func principal(c *fiber.Ctx) *services.Principal {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		return nil
	}
	p := &services.Principal{UserID: claims.UserID, Email: claims.Email, Role: claims.Role}
	// the stored role wins over the one baked into the token
	if user, ok := middleware.GetUser(c); ok {
		p.Role = user.Role
	}
	return p
}

// handleServiceError maps service errors to HTTP responses
func handleServiceError(c *fiber.Ctx, err error) error {
	var (
		validationErr *services.ValidationError
		duplicateErr  *services.DuplicateError
		notFoundErr   *services.NotFoundError
		authErr       *services.AuthorizationError
		transitionErr *services.TransitionError
	)

	switch {
	case errors.As(err, &validationErr):
		details := ""
		if len(validationErr.Fields) > 1 {
			details = joinFieldMessages(validationErr)
		}
		return response.ValidationError(c, validationErr.Field, validationErr.Message, details)
	case errors.As(err, &duplicateErr):
		return response.Duplicate(c, duplicateErr.Error())
	case errors.As(err, &notFoundErr):
		return response.NotFound(c, notFoundErr.Error())
	case errors.As(err, &authErr):
		if authErr.Forbidden {
			return response.Forbidden(c, "Admin access required")
		}
		return response.Unauthorized(c, "Authentication required")
	case errors.As(err, &transitionErr):
		return response.Conflict(c, transitionErr.Error())
	default:
		log.Errorw("institute request handler failure", "path", c.Path(), "error", err)
		return response.InternalServerError(c, "An unexpected error occurred")
	}
}

func joinFieldMessages(err *services.ValidationError) string {
	messages := make([]string, 0, len(err.Fields))
	for _, f := range err.Fields {
		messages = append(messages, f.Message)
	}
	return strings.Join(messages, "; ")
}

package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/sahilchouksey/student-records/infra/queue"
	"github.com/sahilchouksey/student-records/model"
	"github.com/sahilchouksey/student-records/utils/cache"
	"github.com/sahilchouksey/student-records/utils/validation"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	DefaultRequestTimeout = 5 * time.Second
	DefaultCacheTTL       = 5 * time.Minute
	MaxListLimit          = 100
	MaxListPage           = 100000

	requestCacheKeyPrefix = "institute_request:"
)

// Principal is the authenticated caller as resolved by the auth middleware
type Principal struct {
	UserID uint
	Email  string
	Role   string
}

// SubmitResult is returned for an accepted registration
type SubmitResult struct {
	Success   bool   `json:"success"`
	RequestID string `json:"requestId"`
}

// ListFilter narrows GetAll. A zero Limit returns every matching request.
type ListFilter struct {
	Status model.RequestStatus
	Page   int
	Limit  int
}

// ListResult is one page of requests in creation order
type ListResult struct {
	Requests []model.InstituteRequest
	Total    int64
	Page     int
	Limit    int
}

// InstituteRequestServiceConfig wires the optional collaborators
type InstituteRequestServiceConfig struct {
	Publisher queue.Publisher
	Cache     cache.JSONCache
	Timeout   time.Duration
	CacheTTL  time.Duration
}

// InstituteRequestService handles institute registration requests: submission,
// privileged reads and the approve/reject review.
type InstituteRequestService struct {
	db        *gorm.DB
	validator *validation.Validator
	publisher queue.Publisher
	cache     cache.JSONCache
	timeout   time.Duration
	cacheTTL  time.Duration
	now       func() time.Time
}

// NewInstituteRequestService creates a new institute request service
func NewInstituteRequestService(db *gorm.DB, cfg InstituteRequestServiceConfig) *InstituteRequestService {
	if cfg.Publisher == nil {
		cfg.Publisher = queue.NopPublisher{}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultRequestTimeout
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}

	return &InstituteRequestService{
		db:        db,
		validator: validation.NewValidator(),
		publisher: cfg.Publisher,
		cache:     cfg.Cache,
		timeout:   cfg.Timeout,
		cacheTTL:  cfg.CacheTTL,
		now:       time.Now,
	}
}

// Submit validates the payload and stores it as a pending request.
// The unique index on the active AISHE code makes the duplicate check and the
// insert one atomic step, so two concurrent submissions cannot both succeed.
func (s *InstituteRequestService) Submit(ctx context.Context, req *model.SubmitInstituteRequest) (*SubmitResult, error) {
	if req == nil {
		return nil, &ValidationError{Field: "body", Message: "request body is required"}
	}

	req.Sanitize(validation.SanitizeString)
	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, newValidationError(err)
	}

	record := req.ToInstituteRequest()

	dbCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.db.WithContext(dbCtx).Create(record).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, &DuplicateError{Key: model.NormalizeAISHECode(req.AISHECode)}
		}
		return nil, s.serverError("create institute request", err)
	}

	log.Infow("institute request submitted", "request_id", record.ID, "aishe_code", record.AISHECode)
	s.publish(ctx, queue.EventInstituteRequestSubmitted, record)

	return &SubmitResult{Success: true, RequestID: record.ID}, nil
}

// GetAll lists requests in creation order. Admin only.
func (s *InstituteRequestService) GetAll(ctx context.Context, principal *Principal, filter ListFilter) (*ListResult, error) {
	if err := authorize(principal); err != nil {
		return nil, err
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, &ValidationError{
			Field:   "status",
			Message: "status must be one of: pending, approved, rejected",
		}
	}

	dbCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	query := s.db.WithContext(dbCtx).Model(&model.InstituteRequest{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	result := &ListResult{}
	if filter.Limit > 0 {
		if filter.Limit > MaxListLimit {
			filter.Limit = MaxListLimit
		}
		if filter.Page < 1 {
			filter.Page = 1
		}
		if filter.Page > MaxListPage {
			return nil, &ValidationError{Field: "page", Message: fmt.Sprintf("page must be at most %d", MaxListPage)}
		}
		if err := query.Count(&result.Total).Error; err != nil {
			return nil, s.serverError("count institute requests", err)
		}
		query = query.Limit(filter.Limit).Offset((filter.Page - 1) * filter.Limit)
		result.Page = filter.Page
		result.Limit = filter.Limit
	}

	requests := []model.InstituteRequest{}
	if err := query.Order("created_at ASC").Order("id ASC").Find(&requests).Error; err != nil {
		return nil, s.serverError("list institute requests", err)
	}

	result.Requests = requests
	if filter.Limit <= 0 {
		result.Total = int64(len(requests))
	}
	return result, nil
}

// GetByID returns a single request. Admin only.
func (s *InstituteRequestService) GetByID(ctx context.Context, principal *Principal, id string) (*model.InstituteRequest, error) {
	if err := authorize(principal); err != nil {
		return nil, err
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return nil, &ValidationError{Field: "id", Message: "id is required"}
	}

	var request model.InstituteRequest
	if s.cache != nil {
		if err := s.cache.GetJSON(ctx, cacheKey(id), &request); err == nil {
			return &request, nil
		} else if !errors.Is(err, cache.ErrNotFound) {
			log.Warnw("institute request cache read failed", "request_id", id, "error", err)
		}
	}

	dbCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.db.WithContext(dbCtx).First(&request, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{ID: id}
		}
		return nil, s.serverError("get institute request", err)
	}

	// Only terminal records are cached. A pending record can still be reviewed
	// after this read, and caching it could resurrect the pending status.
	if s.cache != nil && request.Status.IsTerminal() {
		if err := s.cache.SetJSON(ctx, cacheKey(id), request, s.cacheTTL); err != nil {
			log.Warnw("institute request cache write failed", "request_id", id, "error", err)
		}
	}

	return &request, nil
}

// Approve moves a pending request to approved. Admin only.
func (s *InstituteRequestService) Approve(ctx context.Context, principal *Principal, id string) (*model.InstituteRequest, error) {
	return s.review(ctx, principal, id, model.RequestStatusApproved, "")
}

// Reject moves a pending request to rejected and releases its AISHE code
// so the institute can submit again. Admin only.
func (s *InstituteRequestService) Reject(ctx context.Context, principal *Principal, id string, reason string) (*model.InstituteRequest, error) {
	return s.review(ctx, principal, id, model.RequestStatusRejected, validation.SanitizeString(reason))
}

// CountStalePending counts pending requests created before the cutoff
func (s *InstituteRequestService) CountStalePending(ctx context.Context, cutoff time.Time) (int64, error) {
	dbCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var count int64
	err := s.db.WithContext(dbCtx).
		Model(&model.InstituteRequest{}).
		Where("status = ? AND created_at < ?", model.RequestStatusPending, cutoff).
		Count(&count).Error
	if err != nil {
		return 0, s.serverError("count stale institute requests", err)
	}
	return count, nil
}

func (s *InstituteRequestService) review(ctx context.Context, principal *Principal, id string, to model.RequestStatus, reason string) (*model.InstituteRequest, error) {
	if err := authorize(principal); err != nil {
		return nil, err
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return nil, &ValidationError{Field: "id", Message: "id is required"}
	}

	now := s.now()
	updates := map[string]interface{}{
		"status":      to,
		"reviewed_by": principal.UserID,
		"reviewed_at": now,
	}
	if to == model.RequestStatusRejected {
		updates["active_aishe_code"] = nil
		updates["rejection_reason"] = reason
	}

	dbCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var reviewed model.InstituteRequest
	err := s.db.WithContext(dbCtx).Transaction(func(tx *gorm.DB) error {
		// Conditional update: only a pending row can move, so concurrent reviews
		// of the same request cannot both succeed.
		res := tx.Model(&model.InstituteRequest{}).
			Where("id = ? AND status = ?", id, model.RequestStatusPending).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected == 0 {
			var current model.InstituteRequest
			if err := tx.Select("id", "status").First(&current, "id = ?", id).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return &NotFoundError{ID: id}
				}
				return err
			}
			return &TransitionError{ID: id, From: current.Status, To: to}
		}

		if err := tx.First(&reviewed, "id = ?", id).Error; err != nil {
			return err
		}

		return tx.Create(newReviewAuditLog(principal, &reviewed, reason)).Error
	})
	if err != nil {
		if IsClientError(err) {
			return nil, err
		}
		return nil, s.serverError("review institute request", err)
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, cacheKey(id), reviewed, s.cacheTTL); err != nil {
			log.Warnw("institute request cache write failed", "request_id", id, "error", err)
			if err := s.cache.Delete(ctx, cacheKey(id)); err != nil {
				log.Warnw("institute request cache invalidation failed", "request_id", id, "error", err)
			}
		}
	}

	eventType := queue.EventInstituteRequestApproved
	if to == model.RequestStatusRejected {
		eventType = queue.EventInstituteRequestRejected
	}
	log.Infow("institute request reviewed", "request_id", id, "status", to, "reviewer_id", principal.UserID)
	s.publish(ctx, eventType, &reviewed)

	return &reviewed, nil
}

func (s *InstituteRequestService) publish(ctx context.Context, eventType string, r *model.InstituteRequest) {
	event := queue.InstituteRequestEvent{
		Type:            eventType,
		RequestID:       r.ID,
		AISHECode:       r.AISHECode,
		Email:           r.Email,
		UniversityName:  r.UniversityName,
		Status:          string(r.Status),
		RejectionReason: r.RejectionReason,
		OccurredAt:      s.now().UTC(),
	}

	// Events are best-effort: the request is already committed
	if err := s.publisher.Publish(context.WithoutCancel(ctx), event); err != nil {
		log.Warnw("failed to publish institute request event", "type", eventType, "request_id", r.ID, "error", err)
	}
}

func (s *InstituteRequestService) serverError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("persistence call exceeded %s: %w", s.timeout, err)
	}
	log.Errorw("institute request persistence failure", "op", op, "error", err)
	return &ServerError{Op: op, Err: err}
}

func authorize(principal *Principal) error {
	if principal == nil || principal.UserID == 0 {
		return &AuthorizationError{}
	}
	if !model.IsAdminRole(principal.Role) {
		return &AuthorizationError{Forbidden: true}
	}
	return nil
}

func newValidationError(err error) error {
	fields := validation.FieldErrors(err)
	if len(fields) == 0 {
		return &ValidationError{Field: "body", Message: err.Error()}
	}
	return &ValidationError{
		Field:   fields[0].Field,
		Message: fields[0].Message,
		Fields:  fields,
	}
}

func newReviewAuditLog(principal *Principal, r *model.InstituteRequest, reason string) *model.AdminAuditLog {
	oldValue, _ := json.Marshal(map[string]string{"status": string(model.RequestStatusPending)})
	newValue, _ := json.Marshal(map[string]string{"status": string(r.Status), "reason": reason})

	action := model.AuditActionInstituteApprove
	if r.Status == model.RequestStatusRejected {
		action = model.AuditActionInstituteReject
	}

	return &model.AdminAuditLog{
		AdminID:     principal.UserID,
		AdminEmail:  principal.Email,
		Action:      action,
		Resource:    "institute_requests",
		ResourceID:  r.ID,
		OldValue:    datatypes.JSON(oldValue),
		NewValue:    datatypes.JSON(newValue),
		Description: fmt.Sprintf("%s %s (%s)", action, r.ID, r.AISHECode),
	}
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}

func cacheKey(id string) string {
	return requestCacheKeyPrefix + id
}

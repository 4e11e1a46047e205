package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RequestStatus is the review state of an institute registration request
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusApproved RequestStatus = "approved"
	RequestStatusRejected RequestStatus = "rejected"
)

// IsValid reports whether s is one of the known statuses
func (s RequestStatus) IsValid() bool {
	switch s {
	case RequestStatusPending, RequestStatusApproved, RequestStatusRejected:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is allowed out of s
func (s RequestStatus) IsTerminal() bool {
	return s == RequestStatusApproved || s == RequestStatusRejected
}

// CanTransitionTo allows only pending -> approved and pending -> rejected
func (s RequestStatus) CanTransitionTo(next RequestStatus) bool {
	return s == RequestStatusPending && next.IsTerminal()
}

// HoldsNaturalKey reports whether a request in this status blocks resubmission
func (s RequestStatus) HoldsNaturalKey() bool {
	return s == RequestStatusPending || s == RequestStatusApproved
}

// ContactPerson is stored inline on the request with a column prefix
type ContactPerson struct {
	Name             string `gorm:"type:varchar(255)" json:"name"`
	Email            string `gorm:"type:varchar(255)" json:"email"`
	Contact          string `gorm:"type:varchar(20)" json:"contact"`
	AlternateContact string `gorm:"type:varchar(20)" json:"alternateContact"`
}

// InstituteRequest is a registration submitted by an institute and reviewed by an admin
type InstituteRequest struct {
	ID        string `gorm:"type:varchar(36);primaryKey" json:"id"`
	AISHECode string `gorm:"type:varchar(50);not null;index" json:"aisheCode"`
	// ActiveAISHECode carries the normalised AISHE code while the request is
	// pending or approved and is NULL once rejected. The unique index on it
	// is what rejects a second active submission.
	ActiveAISHECode *string        `gorm:"type:varchar(50);uniqueIndex:idx_institute_requests_active_aishe" json:"-"`
	InstituteType   string         `gorm:"type:varchar(100);not null" json:"instituteType"`
	State           string         `gorm:"type:varchar(100);not null" json:"state"`
	District        string         `gorm:"type:varchar(100);not null" json:"district"`
	UniversityName  string         `gorm:"type:varchar(255);not null" json:"universityName"`
	Address         string         `gorm:"type:text;not null" json:"address"`
	Email           string         `gorm:"type:varchar(255);not null;index" json:"email"`
	HeadOfInstitute ContactPerson  `gorm:"embedded;embeddedPrefix:head_" json:"headOfInstitute"`
	ModalOfficer    ContactPerson  `gorm:"embedded;embeddedPrefix:modal_officer_" json:"modalOfficer"`
	NAACGrading     bool           `gorm:"default:false" json:"naacGrading"`
	NAACGrade       string         `gorm:"type:varchar(10)" json:"naacGrade,omitempty"`
	Status          RequestStatus  `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	RejectionReason string         `gorm:"type:text" json:"rejectionReason,omitempty"`
	ReviewedBy      *uint          `json:"reviewedBy,omitempty"`
	ReviewedAt      *time.Time     `json:"reviewedAt,omitempty"`
	CreatedAt       time.Time      `gorm:"index" json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

// TableName specifies the table name for InstituteRequest
func (InstituteRequest) TableName() string {
	return "institute_requests"
}

// BeforeCreate assigns the request id and keeps the natural key in sync with the status
func (r *InstituteRequest) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.Status == "" {
		r.Status = RequestStatusPending
	}
	if r.Status.HoldsNaturalKey() {
		key := NormalizeAISHECode(r.AISHECode)
		r.ActiveAISHECode = &key
	} else {
		r.ActiveAISHECode = nil
	}
	return nil
}

// NormalizeAISHECode is the form used for uniqueness comparisons
func NormalizeAISHECode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

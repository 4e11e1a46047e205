package queue

import (
	"context"
	"time"
)

const (
	EventInstituteRequestSubmitted = "institute_request.submitted"
	EventInstituteRequestApproved  = "institute_request.approved"
	EventInstituteRequestRejected  = "institute_request.rejected"
)

// InstituteRequestEvent is the message consumers (e.g. the mail service) receive
// whenever a registration request is created or reviewed.
type InstituteRequestEvent struct {
	Type            string    `json:"type"`
	RequestID       string    `json:"requestId"`
	AISHECode       string    `json:"aisheCode"`
	Email           string    `json:"email"`
	UniversityName  string    `json:"universityName"`
	Status          string    `json:"status"`
	RejectionReason string    `json:"rejectionReason,omitempty"`
	OccurredAt      time.Time `json:"occurredAt"`
}

// Publisher delivers lifecycle events to the message broker
type Publisher interface {
	Publish(ctx context.Context, event InstituteRequestEvent) error
	Close() error
}

// NopPublisher drops every event; used when no broker is configured
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, InstituteRequestEvent) error { return nil }

func (NopPublisher) Close() error { return nil }

package model

import (
	"time"

	"gorm.io/datatypes"
)

const (
	AuditActionInstituteApprove = "institute_request_approve"
	AuditActionInstituteReject  = "institute_request_reject"
)

// AdminAuditLog represents audit trail for admin actions
type AdminAuditLog struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	AdminID     uint           `gorm:"not null;index" json:"admin_id"`
	AdminEmail  string         `gorm:"type:varchar(255)" json:"admin_email"`
	Action      string         `gorm:"type:varchar(100);not null" json:"action"`
	Resource    string         `gorm:"type:varchar(100)" json:"resource"` // e.g., "institute_requests"
	ResourceID  string         `gorm:"type:varchar(64);index" json:"resource_id"`
	OldValue    datatypes.JSON `json:"old_value"`
	NewValue    datatypes.JSON `json:"new_value"`
	Description string         `gorm:"type:text" json:"description"`
	CreatedAt   time.Time      `json:"created_at"`
}

// TableName specifies the table name for AdminAuditLog
func (AdminAuditLog) TableName() string {
	return "admin_audit_logs"
}

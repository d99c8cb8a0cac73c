package models

import (
	"time"

	"gorm.io/datatypes"
)

type AuditAction string

const (
	AuditActionCreate AuditAction = "CREATE"
	AuditActionUpdate AuditAction = "UPDATE"
	AuditActionDelete AuditAction = "DELETE"
)

type AuditEntity string

const (
	AuditEntityTimesheet   AuditEntity = "TIMESHEET"
	AuditEntityHRTimesheet AuditEntity = "HR_TIMESHEET"
	AuditEntityHRActivity  AuditEntity = "HR_ACTIVITY"
	AuditEntityProject     AuditEntity = "PROJECT"
	AuditEntityTask        AuditEntity = "TASK"
	AuditEntityUser        AuditEntity = "USER"
)

// AuditLog rows are append-only; no code path updates or deletes them.
type AuditLog struct {
	ID        uint64         `gorm:"primarykey" json:"id"`
	UserID    uint64         `gorm:"not null;index" json:"user_id"`
	Action    AuditAction    `gorm:"type:varchar(20);not null" json:"action"`
	Entity    AuditEntity    `gorm:"type:varchar(50);not null;index:idx_audit_entity" json:"entity"`
	EntityID  uint64         `gorm:"not null;index:idx_audit_entity" json:"entity_id"`
	Changes   datatypes.JSON `json:"changes"`
	CreatedAt time.Time      `gorm:"index" json:"created_at"`

	// Relations
	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

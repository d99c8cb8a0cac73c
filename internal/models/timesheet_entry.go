package models

import (
	"time"

	"gorm.io/gorm"
)

type EntryType string

const (
	EntryTypeNormal   EntryType = "NORMAL"
	EntryTypeOvertime EntryType = "OVERTIME"
	EntryTypeNight    EntryType = "NIGHT"
	EntryTypeWeekend  EntryType = "WEEKEND"
)

func (t EntryType) Valid() bool {
	switch t {
	case EntryTypeNormal, EntryTypeOvertime, EntryTypeNight, EntryTypeWeekend:
		return true
	}
	return false
}

type EntryStatus string

const (
	EntryStatusDraft     EntryStatus = "DRAFT"
	EntryStatusSubmitted EntryStatus = "SUBMITTED"
	EntryStatusApproved  EntryStatus = "APPROVED"
	EntryStatusRejected  EntryStatus = "REJECTED"
	EntryStatusLocked    EntryStatus = "LOCKED"
)

// TimesheetEntry is a single declared block of work time.
type TimesheetEntry struct {
	ID                uint64         `gorm:"primarykey" json:"id"`
	UserID            uint64         `gorm:"not null;index" json:"user_id"`
	ProjectID         *uint64        `gorm:"index" json:"project_id"`
	TaskID            *uint64        `gorm:"index" json:"task_id"`
	Date              time.Time      `gorm:"type:date;not null;index" json:"date"`
	Duration          float64        `gorm:"type:decimal(5,2);not null" json:"duration"`
	Type              EntryType      `gorm:"type:varchar(20);not null;default:'NORMAL'" json:"type"`
	Status            EntryStatus    `gorm:"type:varchar(20);not null;default:'DRAFT';index" json:"status"`
	Description       string         `gorm:"type:text" json:"description"`
	ValidatorID       *uint64        `json:"validator_id"`
	ValidationComment string         `gorm:"type:text" json:"validation_comment"`
	ValidatedAt       *time.Time     `json:"validated_at"`
	Version           int            `gorm:"not null;default:1" json:"version"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	User    User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Project *Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	Task    *Task    `gorm:"foreignKey:TaskID" json:"task,omitempty"`
}

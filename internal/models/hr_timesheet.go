package models

import (
	"time"

	"gorm.io/gorm"
)

type HRTimesheetStatus string

const (
	HRStatusDraft           HRTimesheetStatus = "DRAFT"
	HRStatusPending         HRTimesheetStatus = "PENDING"
	HRStatusManagerApproved HRTimesheetStatus = "MANAGER_APPROVED"
	HRStatusApproved        HRTimesheetStatus = "APPROVED"
	HRStatusRejected        HRTimesheetStatus = "REJECTED"
)

// Editable reports whether the owner may still change the timesheet content.
func (s HRTimesheetStatus) Editable() bool {
	return s == HRStatusDraft || s == HRStatusRejected
}

// HRTimesheet is a weekly declaration of HR activities that goes through
// manager then HR/admin approval.
type HRTimesheet struct {
	ID                   uint64            `gorm:"primarykey" json:"id"`
	UserID               uint64            `gorm:"not null;index" json:"user_id"`
	WeekStartDate        time.Time         `gorm:"type:date;not null" json:"week_start_date"`
	WeekEndDate          time.Time         `gorm:"type:date;not null" json:"week_end_date"`
	EmployeeName         string            `gorm:"type:varchar(255);not null" json:"employee_name"`
	Position             string            `gorm:"type:varchar(255)" json:"position"`
	Site                 string            `gorm:"type:varchar(255)" json:"site"`
	TotalHours           float64           `gorm:"type:decimal(7,2);not null;default:0" json:"total_hours"`
	Status               HRTimesheetStatus `gorm:"type:varchar(20);not null;default:'DRAFT';index" json:"status"`
	EmployeeObservations string            `gorm:"type:text" json:"employee_observations"`
	ManagerComments      string            `gorm:"type:text" json:"manager_comments"`
	OdillonComments      string            `gorm:"type:text" json:"odillon_comments"`
	EmployeeSignedAt     *time.Time        `json:"employee_signed_at"`
	ManagerSignedAt      *time.Time        `json:"manager_signed_at"`
	ManagerSignerID      *uint64           `json:"manager_signer_id"`
	OdillonSignedAt      *time.Time        `json:"odillon_signed_at"`
	OdillonSignerID      *uint64           `json:"odillon_signer_id"`
	Version              int               `gorm:"not null;default:1" json:"version"`
	CreatedAt            time.Time         `json:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at"`
	DeletedAt            gorm.DeletedAt    `gorm:"index" json:"-"`

	// Relations
	User       User         `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Activities []HRActivity `gorm:"foreignKey:HRTimesheetID;constraint:OnDelete:CASCADE" json:"activities,omitempty"`
}

type HRActivityType string

const (
	HRActivityOperational HRActivityType = "OPERATIONAL"
	HRActivityReporting   HRActivityType = "REPORTING"
)

func (t HRActivityType) Valid() bool {
	return t == HRActivityOperational || t == HRActivityReporting
}

type Periodicity string

const (
	PeriodicityDaily         Periodicity = "DAILY"
	PeriodicityWeekly        Periodicity = "WEEKLY"
	PeriodicityMonthly       Periodicity = "MONTHLY"
	PeriodicityWeeklyMonthly Periodicity = "WEEKLY_MONTHLY"
	PeriodicityPunctual      Periodicity = "PUNCTUAL"
)

func (p Periodicity) Valid() bool {
	switch p {
	case PeriodicityDaily, PeriodicityWeekly, PeriodicityMonthly, PeriodicityWeeklyMonthly, PeriodicityPunctual:
		return true
	}
	return false
}

type HRActivityStatus string

const (
	HRActivityInProgress HRActivityStatus = "IN_PROGRESS"
	HRActivityCompleted  HRActivityStatus = "COMPLETED"
)

// HRActivity is one line of an HRTimesheet. Rows are removed with their parent.
type HRActivity struct {
	ID            uint64           `gorm:"primarykey" json:"id"`
	HRTimesheetID uint64           `gorm:"not null;index" json:"hr_timesheet_id"`
	ActivityType  HRActivityType   `gorm:"type:varchar(20);not null" json:"activity_type"`
	ActivityName  string           `gorm:"type:varchar(255);not null" json:"activity_name"`
	Periodicity   Periodicity      `gorm:"type:varchar(20);not null" json:"periodicity"`
	StartDate     time.Time        `gorm:"type:date;not null" json:"start_date"`
	EndDate       time.Time        `gorm:"type:date;not null" json:"end_date"`
	TotalHours    float64          `gorm:"type:decimal(6,2);not null" json:"total_hours"`
	Status        HRActivityStatus `gorm:"type:varchar(20);not null;default:'IN_PROGRESS'" json:"status"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

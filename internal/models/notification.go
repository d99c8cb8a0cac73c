package models

import "time"

type NotificationType string

const (
	NotificationHRSubmitted        NotificationType = "HR_TIMESHEET_SUBMITTED"
	NotificationHRManagerApproved  NotificationType = "HR_TIMESHEET_MANAGER_APPROVED"
	NotificationHRApproved         NotificationType = "HR_TIMESHEET_APPROVED"
	NotificationHRRejected         NotificationType = "HR_TIMESHEET_REJECTED"
	NotificationTimesheetSubmitted NotificationType = "TIMESHEET_SUBMITTED"
	NotificationTimesheetValidated NotificationType = "TIMESHEET_VALIDATED"
	NotificationProjectMember      NotificationType = "PROJECT_MEMBER_ADDED"
)

type Notification struct {
	ID        uint64           `gorm:"primarykey" json:"id"`
	UserID    uint64           `gorm:"not null;index" json:"user_id"`
	Type      NotificationType `gorm:"type:varchar(50);not null" json:"type"`
	Title     string           `gorm:"type:varchar(255);not null" json:"title"`
	Message   string           `gorm:"type:text" json:"message"`
	Link      string           `gorm:"type:varchar(255)" json:"link"`
	IsRead    bool             `gorm:"not null;default:false" json:"is_read"`
	CreatedAt time.Time        `json:"created_at"`
}

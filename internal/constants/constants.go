package constants

import "time"

// Context and session keys
const (
	ContextKeyUserID   = "user_id"
	ContextKeyUserRole = "user_role"
	ContextKeyRequest  = "request_id"
	SessionCookieName  = "timesheet_session"
)

// Auth
const (
	MinPasswordLength = 8
)

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Timesheets
const (
	MaxEntryDurationHours = 24.0
	MaxActivityHours      = 168.0
	MaxAIGeneratedTasks   = 20
)

// Realtime presence
const (
	HeartbeatInterval = 10 * time.Second
	OnlineThreshold   = 2 * time.Minute
	SSEClientBuffer   = 16
)

// Cache tags
const (
	CacheTagTimesheets   = "timesheets"
	CacheTagHRTimesheets = "hr-timesheets"
	CacheTagProjects     = "projects"
	CacheTagTasks        = "tasks"
	CacheTagAuditLogs    = "audit-logs"
)

package handlers

import "github.com/gin-gonic/gin"

// Handlers groups every HTTP handler of the API.
type Handlers struct {
	Auth       *AuthHandler
	HR         *HRTimesheetHandler
	Timesheets *TimesheetHandler
	Projects   *ProjectHandler
	Tasks      *TaskHandler
	Audit      *AuditHandler
	Realtime   *RealtimeHandler
}

// RegisterRoutes mounts the API under /api. requireAuth guards every route
// except signup, login and logout.
func RegisterRoutes(r gin.IRouter, h Handlers, requireAuth gin.HandlerFunc) {
	api := r.Group("/api")

	// Auth routes (public)
	authGroup := api.Group("/auth")
	{
		authGroup.POST("/signup", h.Auth.Signup)
		authGroup.POST("/login", h.Auth.Login)
		authGroup.POST("/logout", h.Auth.Logout)
		authGroup.GET("/me", requireAuth, h.Auth.GetCurrentUser)
	}

	protected := api.Group("")
	protected.Use(requireAuth)

	protected.PATCH("/users/:id/role", h.Auth.ChangeRole)

	hr := protected.Group("/hr-timesheets")
	{
		hr.GET("", h.HR.List)
		hr.POST("", h.HR.Create)
		hr.GET("/:id", h.HR.Get)
		hr.PATCH("/:id", h.HR.Update)
		hr.DELETE("/:id", h.HR.Delete)
		hr.POST("/:id/activities", h.HR.AddActivity)
		hr.PATCH("/:id/activities/:activityId", h.HR.UpdateActivity)
		hr.DELETE("/:id/activities/:activityId", h.HR.DeleteActivity)
		hr.POST("/:id/submit", h.HR.Submit)
		hr.POST("/:id/manager-approval", h.HR.ManagerApproval)
		hr.POST("/:id/odillon-approval", h.HR.OdillonApproval)
		hr.GET("/:id/export", h.HR.Export)
	}

	ts := protected.Group("/timesheets")
	{
		ts.GET("", h.Timesheets.List)
		ts.POST("", h.Timesheets.Create)
		ts.GET("/pending", h.Timesheets.Pending)
		ts.POST("/validate", h.Timesheets.Validate)
		ts.GET("/:id", h.Timesheets.Get)
		ts.PATCH("/:id", h.Timesheets.Update)
		ts.DELETE("/:id", h.Timesheets.Delete)
		ts.POST("/:id/submit", h.Timesheets.Submit)
		ts.POST("/:id/lock", h.Timesheets.Lock)
	}

	projects := protected.Group("/projects")
	{
		projects.GET("", h.Projects.ListProjects)
		projects.POST("", h.Projects.CreateProject)
		projects.GET("/:id", h.Projects.GetProject)
		projects.PATCH("/:id", h.Projects.UpdateProject)
		projects.DELETE("/:id", h.Projects.DeleteProject)
		projects.POST("/:id/archive", h.Projects.ArchiveProject)
		projects.POST("/:id/unarchive", h.Projects.UnarchiveProject)
		projects.POST("/:id/clone", h.Projects.CloneProject)
		projects.GET("/:id/members", h.Projects.ListMembers)
		projects.POST("/:id/members", h.Projects.AddMember)
		projects.DELETE("/:id/members/:userId", h.Projects.RemoveMember)
	}

	tasks := protected.Group("/tasks")
	{
		tasks.GET("", h.Tasks.ListTasks)
		tasks.POST("", h.Tasks.CreateTask)
		tasks.POST("/generate", h.Tasks.GenerateTasks)
		tasks.GET("/:id", h.Tasks.GetTask)
		tasks.PATCH("/:id", h.Tasks.UpdateTask)
		tasks.DELETE("/:id", h.Tasks.DeleteTask)
		tasks.POST("/:id/assign", h.Tasks.AssignTask)
		tasks.POST("/:id/unassign", h.Tasks.UnassignTask)
	}

	audit := protected.Group("/audit-logs")
	{
		audit.GET("", h.Audit.List)
		audit.GET("/:entity/:id", h.Audit.History)
	}

	protected.GET("/events", h.Realtime.Events)
	protected.POST("/presence/heartbeat", h.Realtime.Heartbeat)
	protected.GET("/presence", h.Realtime.Online)

	notifications := protected.Group("/notifications")
	{
		notifications.GET("", h.Realtime.ListNotifications)
		notifications.POST("/read-all", h.Realtime.MarkAllRead)
		notifications.POST("/:id/read", h.Realtime.MarkRead)
	}
}

package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yukikurage/timesheet-api/internal/models"
)

type RepositoryTestSuite struct {
	suite.Suite
	db   *gorm.DB
	repo *Repository
	ctx  context.Context
}

func (suite *RepositoryTestSuite) SetupTest() {
	var err error
	suite.db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	suite.Require().NoError(err)

	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.SetMaxOpenConns(1)

	err = suite.db.AutoMigrate(
		&models.User{},
		&models.Project{},
		&models.ProjectMember{},
		&models.Task{},
		&models.TaskMember{},
		&models.TimesheetEntry{},
		&models.HRTimesheet{},
		&models.HRActivity{},
		&models.AuditLog{},
		&models.Notification{},
	)
	suite.Require().NoError(err)

	suite.repo = New(suite.db)
	suite.ctx = context.Background()
}

func (suite *RepositoryTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

func (suite *RepositoryTestSuite) createUser(username string, role models.Role) *models.User {
	user := &models.User{Username: username, PasswordHash: "hash", Role: role}
	suite.Require().NoError(suite.repo.User.Create(suite.ctx, user))
	return user
}

func (suite *RepositoryTestSuite) createEntry(userID uint64, status models.EntryStatus) *models.TimesheetEntry {
	entry := &models.TimesheetEntry{
		UserID:   userID,
		Date:     time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		Duration: 7.5,
		Type:     models.EntryTypeNormal,
		Status:   status,
		Version:  1,
	}
	suite.Require().NoError(suite.repo.Timesheet.Create(suite.ctx, entry))
	return entry
}

func (suite *RepositoryTestSuite) createHRTimesheet(userID uint64) *models.HRTimesheet {
	ts := &models.HRTimesheet{
		UserID:        userID,
		WeekStartDate: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		WeekEndDate:   time.Date(2025, 3, 16, 0, 0, 0, 0, time.UTC),
		EmployeeName:  "Jean Dupont",
		Status:        models.HRStatusDraft,
		Version:       1,
	}
	suite.Require().NoError(suite.repo.HRTimesheet.Create(suite.ctx, ts))
	return ts
}

func (suite *RepositoryTestSuite) addActivity(tsID uint64, hours float64) *models.HRActivity {
	activity := &models.HRActivity{
		HRTimesheetID: tsID,
		ActivityType:  models.HRActivityOperational,
		ActivityName:  "Saisie",
		Periodicity:   models.PeriodicityDaily,
		StartDate:     time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		EndDate:       time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC),
		TotalHours:    hours,
		Status:        models.HRActivityInProgress,
	}
	suite.Require().NoError(suite.repo.HRTimesheet.CreateActivity(suite.ctx, activity))
	return activity
}

func (suite *RepositoryTestSuite) TestUser_UpdateRole() {
	user := suite.createUser("alice", models.RoleEmployee)

	suite.Require().NoError(suite.repo.User.UpdateRole(suite.ctx, user.ID, models.RoleManager))

	found, err := suite.repo.User.FindByID(suite.ctx, user.ID)
	suite.Require().NoError(err)
	suite.Equal(models.RoleManager, found.Role)

	err = suite.repo.User.UpdateRole(suite.ctx, 9999, models.RoleHR)
	suite.ErrorIs(err, gorm.ErrRecordNotFound)
}

func (suite *RepositoryTestSuite) TestUser_ListByRoles() {
	suite.createUser("emp", models.RoleEmployee)
	suite.createUser("mgr", models.RoleManager)
	suite.createUser("hr", models.RoleHR)

	users, err := suite.repo.User.ListByRoles(suite.ctx, models.RoleManager, models.RoleHR)
	suite.Require().NoError(err)
	suite.Len(users, 2)
}

func (suite *RepositoryTestSuite) TestProject_CreateAddsOwner() {
	owner := suite.createUser("owner", models.RoleManager)
	project := &models.Project{Name: "Alpha", Code: "ALPHA", Status: models.ProjectStatusActive, CreatedBy: owner.ID}

	suite.Require().NoError(suite.repo.Project.Create(suite.ctx, project, owner.ID))

	member, err := suite.repo.Project.FindMember(suite.ctx, project.ID, owner.ID)
	suite.Require().NoError(err)
	suite.Equal(models.ProjectRoleOwner, member.Role)

	exists, err := suite.repo.Project.CodeExists(suite.ctx, "ALPHA")
	suite.Require().NoError(err)
	suite.True(exists)
}

func (suite *RepositoryTestSuite) TestProject_ListByMember() {
	alice := suite.createUser("alice", models.RoleEmployee)
	bob := suite.createUser("bob", models.RoleEmployee)

	suite.Require().NoError(suite.repo.Project.Create(suite.ctx, &models.Project{Name: "A", Code: "A", CreatedBy: alice.ID}, alice.ID))
	suite.Require().NoError(suite.repo.Project.Create(suite.ctx, &models.Project{Name: "B", Code: "B", CreatedBy: bob.ID}, bob.ID))

	projects, total, err := suite.repo.Project.List(suite.ctx, ProjectFilter{MemberUserID: &alice.ID})
	suite.Require().NoError(err)
	suite.Equal(int64(1), total)
	suite.Equal("A", projects[0].Name)
}

func (suite *RepositoryTestSuite) TestProject_DeleteDetachesTasks() {
	owner := suite.createUser("owner", models.RoleManager)
	project := &models.Project{Name: "Alpha", Code: "ALPHA", CreatedBy: owner.ID}
	suite.Require().NoError(suite.repo.Project.Create(suite.ctx, project, owner.ID))

	task := &models.Task{Title: "t", CreatorID: owner.ID, ProjectID: &project.ID}
	suite.Require().NoError(suite.repo.Task.Create(suite.ctx, task))

	suite.Require().NoError(suite.repo.Project.Delete(suite.ctx, project.ID))

	found, err := suite.repo.Task.FindByID(suite.ctx, task.ID)
	suite.Require().NoError(err)
	suite.Nil(found.ProjectID)

	// Soft-deleted codes stay reserved
	exists, err := suite.repo.Project.CodeExists(suite.ctx, "ALPHA")
	suite.Require().NoError(err)
	suite.True(exists)
}

func (suite *RepositoryTestSuite) TestTask_VisibleTo() {
	alice := suite.createUser("alice", models.RoleEmployee)
	bob := suite.createUser("bob", models.RoleEmployee)

	own := &models.Task{Title: "own", CreatorID: alice.ID}
	assigned := &models.Task{Title: "assigned", CreatorID: bob.ID}
	hidden := &models.Task{Title: "hidden", CreatorID: bob.ID}
	for _, task := range []*models.Task{own, assigned, hidden} {
		suite.Require().NoError(suite.repo.Task.Create(suite.ctx, task))
	}
	suite.Require().NoError(suite.repo.Task.AssignUsers(suite.ctx, assigned.ID, []uint64{alice.ID}))

	tasks, total, err := suite.repo.Task.List(suite.ctx, TaskFilter{VisibleTo: &alice.ID})
	suite.Require().NoError(err)
	suite.Equal(int64(2), total)

	titles := []string{tasks[0].Title, tasks[1].Title}
	suite.ElementsMatch([]string{"own", "assigned"}, titles)
}

func (suite *RepositoryTestSuite) TestTask_ReassignAfterUnassign() {
	alice := suite.createUser("alice", models.RoleEmployee)
	task := &models.Task{Title: "t", CreatorID: alice.ID}
	suite.Require().NoError(suite.repo.Task.Create(suite.ctx, task))

	suite.Require().NoError(suite.repo.Task.AssignUsers(suite.ctx, task.ID, []uint64{alice.ID}))
	suite.Require().NoError(suite.repo.Task.UnassignUsers(suite.ctx, task.ID, []uint64{alice.ID}))

	_, err := suite.repo.Task.FindMember(suite.ctx, task.ID, alice.ID)
	suite.ErrorIs(err, gorm.ErrRecordNotFound)

	suite.Require().NoError(suite.repo.Task.AssignUsers(suite.ctx, task.ID, []uint64{alice.ID}))
	_, err = suite.repo.Task.FindMember(suite.ctx, task.ID, alice.ID)
	suite.NoError(err)
}

func (suite *RepositoryTestSuite) TestEntry_TransitionBumpsVersion() {
	user := suite.createUser("alice", models.RoleEmployee)
	entry := suite.createEntry(user.ID, models.EntryStatusDraft)

	err := suite.repo.Timesheet.Transition(suite.ctx, entry, models.EntryStatusDraft, map[string]interface{}{
		"status": models.EntryStatusSubmitted,
	})
	suite.Require().NoError(err)
	suite.Equal(2, entry.Version)

	found, err := suite.repo.Timesheet.FindByID(suite.ctx, entry.ID)
	suite.Require().NoError(err)
	suite.Equal(models.EntryStatusSubmitted, found.Status)
	suite.Equal(2, found.Version)
}

func (suite *RepositoryTestSuite) TestEntry_TransitionStale() {
	user := suite.createUser("alice", models.RoleEmployee)
	entry := suite.createEntry(user.ID, models.EntryStatusSubmitted)

	first := *entry
	second := *entry

	suite.Require().NoError(suite.repo.Timesheet.Transition(suite.ctx, &first, models.EntryStatusSubmitted, map[string]interface{}{
		"status": models.EntryStatusApproved,
	}))

	err := suite.repo.Timesheet.Transition(suite.ctx, &second, models.EntryStatusSubmitted, map[string]interface{}{
		"status": models.EntryStatusRejected,
	})
	suite.ErrorIs(err, ErrStaleRecord)

	found, err := suite.repo.Timesheet.FindByID(suite.ctx, entry.ID)
	suite.Require().NoError(err)
	suite.Equal(models.EntryStatusApproved, found.Status)
}

func (suite *RepositoryTestSuite) TestEntry_ListFilters() {
	alice := suite.createUser("alice", models.RoleEmployee)
	bob := suite.createUser("bob", models.RoleEmployee)
	suite.createEntry(alice.ID, models.EntryStatusDraft)
	suite.createEntry(alice.ID, models.EntryStatusSubmitted)
	suite.createEntry(bob.ID, models.EntryStatusSubmitted)

	status := models.EntryStatusSubmitted
	entries, total, err := suite.repo.Timesheet.List(suite.ctx, EntryFilter{Status: &status})
	suite.Require().NoError(err)
	suite.Equal(int64(2), total)
	suite.Len(entries, 2)

	_, total, err = suite.repo.Timesheet.List(suite.ctx, EntryFilter{UserID: &alice.ID})
	suite.Require().NoError(err)
	suite.Equal(int64(2), total)
}

func (suite *RepositoryTestSuite) TestHRTimesheet_RecalculateTotal() {
	user := suite.createUser("alice", models.RoleEmployee)
	ts := suite.createHRTimesheet(user.ID)

	suite.addActivity(ts.ID, 4)
	second := suite.addActivity(ts.ID, 3.5)

	total, err := suite.repo.HRTimesheet.RecalculateTotal(suite.ctx, ts.ID)
	suite.Require().NoError(err)
	suite.InDelta(7.5, total, 0.001)

	suite.Require().NoError(suite.repo.HRTimesheet.DeleteActivity(suite.ctx, ts.ID, second.ID))
	total, err = suite.repo.HRTimesheet.RecalculateTotal(suite.ctx, ts.ID)
	suite.Require().NoError(err)
	suite.InDelta(4.0, total, 0.001)

	found, err := suite.repo.HRTimesheet.FindByID(suite.ctx, ts.ID, "Activities")
	suite.Require().NoError(err)
	suite.InDelta(4.0, found.TotalHours, 0.001)
	suite.Len(found.Activities, 1)
	suite.Equal(3, found.Version)
}

func (suite *RepositoryTestSuite) TestHRTimesheet_ActivityScopedToTimesheet() {
	user := suite.createUser("alice", models.RoleEmployee)
	ts := suite.createHRTimesheet(user.ID)
	other := suite.createHRTimesheet(user.ID)
	activity := suite.addActivity(ts.ID, 2)

	_, err := suite.repo.HRTimesheet.FindActivity(suite.ctx, other.ID, activity.ID)
	suite.ErrorIs(err, gorm.ErrRecordNotFound)

	err = suite.repo.HRTimesheet.DeleteActivity(suite.ctx, other.ID, activity.ID)
	suite.ErrorIs(err, gorm.ErrRecordNotFound)
}

func (suite *RepositoryTestSuite) TestHRTimesheet_DeleteRemovesActivities() {
	user := suite.createUser("alice", models.RoleEmployee)
	ts := suite.createHRTimesheet(user.ID)
	suite.addActivity(ts.ID, 2)
	suite.addActivity(ts.ID, 3)

	suite.Require().NoError(suite.repo.HRTimesheet.Delete(suite.ctx, ts.ID))

	count, err := suite.repo.HRTimesheet.CountActivities(suite.ctx, ts.ID)
	suite.Require().NoError(err)
	suite.Equal(int64(0), count)

	_, err = suite.repo.HRTimesheet.FindByID(suite.ctx, ts.ID)
	suite.ErrorIs(err, gorm.ErrRecordNotFound)
}

func (suite *RepositoryTestSuite) TestHRTimesheet_TransitionRequiresStatus() {
	user := suite.createUser("alice", models.RoleEmployee)
	ts := suite.createHRTimesheet(user.ID)

	err := suite.repo.HRTimesheet.Transition(suite.ctx, ts, models.HRStatusPending, map[string]interface{}{
		"status": models.HRStatusManagerApproved,
	})
	suite.ErrorIs(err, ErrStaleRecord)
	suite.Equal(1, ts.Version)
}

func (suite *RepositoryTestSuite) TestTransaction_RollsBack() {
	user := suite.createUser("alice", models.RoleEmployee)
	ts := suite.createHRTimesheet(user.ID)
	boom := errors.New("boom")

	err := suite.repo.Transaction(suite.ctx, func(tx *Repository) error {
		if err := tx.HRTimesheet.Transition(suite.ctx, ts, models.HRStatusDraft, map[string]interface{}{
			"status": models.HRStatusPending,
		}); err != nil {
			return err
		}
		return boom
	})
	suite.ErrorIs(err, boom)

	found, err := suite.repo.HRTimesheet.FindByID(suite.ctx, ts.ID)
	suite.Require().NoError(err)
	suite.Equal(models.HRStatusDraft, found.Status)
	suite.Equal(1, found.Version)
}

func (suite *RepositoryTestSuite) TestAuditLog_ListByEntity() {
	user := suite.createUser("alice", models.RoleHR)
	for i := 0; i < 3; i++ {
		suite.Require().NoError(suite.repo.AuditLog.Create(suite.ctx, &models.AuditLog{
			UserID:   user.ID,
			Action:   models.AuditActionUpdate,
			Entity:   models.AuditEntityHRTimesheet,
			EntityID: 7,
			Changes:  []byte(`{}`),
		}))
	}
	suite.Require().NoError(suite.repo.AuditLog.Create(suite.ctx, &models.AuditLog{
		UserID:   user.ID,
		Action:   models.AuditActionCreate,
		Entity:   models.AuditEntityProject,
		EntityID: 7,
		Changes:  []byte(`{}`),
	}))

	entity := models.AuditEntityHRTimesheet
	entityID := uint64(7)
	logs, total, err := suite.repo.AuditLog.List(suite.ctx, AuditLogFilter{Entity: &entity, EntityID: &entityID, Page: 1, PageSize: 2})
	suite.Require().NoError(err)
	suite.Equal(int64(3), total)
	suite.Len(logs, 2)
	suite.Equal("alice", logs[0].User.Username)
}

func (suite *RepositoryTestSuite) TestNotification_MarkRead() {
	alice := suite.createUser("alice", models.RoleEmployee)
	bob := suite.createUser("bob", models.RoleEmployee)

	n := &models.Notification{UserID: alice.ID, Type: models.NotificationHRApproved, Title: "ok"}
	suite.Require().NoError(suite.repo.Notification.Create(suite.ctx, n))
	suite.Require().NoError(suite.repo.Notification.Create(suite.ctx, &models.Notification{UserID: alice.ID, Type: models.NotificationHRRejected, Title: "ko"}))

	suite.ErrorIs(suite.repo.Notification.MarkRead(suite.ctx, bob.ID, n.ID), gorm.ErrRecordNotFound)
	suite.Require().NoError(suite.repo.Notification.MarkRead(suite.ctx, alice.ID, n.ID))
	// Marking twice is fine
	suite.Require().NoError(suite.repo.Notification.MarkRead(suite.ctx, alice.ID, n.ID))

	_, unread, err := suite.repo.Notification.ListByUser(suite.ctx, alice.ID, true, 1, 20)
	suite.Require().NoError(err)
	suite.Equal(int64(1), unread)

	suite.Require().NoError(suite.repo.Notification.MarkAllRead(suite.ctx, alice.ID))
	_, unread, err = suite.repo.Notification.ListByUser(suite.ctx, alice.ID, true, 1, 20)
	suite.Require().NoError(err)
	suite.Equal(int64(0), unread)
}

func TestRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}

func TestTimesheetEntryTransition_StaleOnMySQL(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	mock.ExpectExec("UPDATE `timesheet_entries` SET").
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewTimesheetEntryRepository(db)
	entry := &models.TimesheetEntry{ID: 42, Status: models.EntryStatusSubmitted, Version: 3}

	err = repo.Transition(context.Background(), entry, models.EntryStatusSubmitted, map[string]interface{}{
		"status": models.EntryStatusApproved,
	})
	assert.ErrorIs(t, err, ErrStaleRecord)
	assert.Equal(t, 3, entry.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

package handlers

import (
	"net/http"
	"time"

	"github.com/yukikurage/timesheet-api/internal/dto"
	apierrors "github.com/yukikurage/timesheet-api/internal/errors"
	"github.com/yukikurage/timesheet-api/internal/models"
)

func (suite *HandlerTestSuite) createTask(owner *models.User, body map[string]interface{}) dto.TaskDTO {
	w := suite.request(http.MethodPost, "/api/tasks", body, owner)
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var task dto.TaskDTO
	suite.decode(w, &task)
	return task
}

func taskPath(id uint64, suffix string) string {
	return "/api/tasks/" + itoa(id) + suffix
}

func (suite *HandlerTestSuite) TestCreateTask() {
	task := suite.createTask(suite.employee, map[string]interface{}{
		"title":       "Préparer le rapport",
		"description": "Rapport mensuel",
	})

	suite.Equal("Préparer le rapport", task.Title)
	suite.Equal(models.TaskStatusTodo, task.Status)
	suite.Equal(models.TaskPriorityMedium, task.Priority)
	suite.Equal(suite.employee.ID, task.CreatorID)
	suite.Require().Len(task.Members, 1)
	suite.Equal(suite.employee.ID, task.Members[0].UserID)
}

func (suite *HandlerTestSuite) TestCreateTask_Invalid() {
	w := suite.request(http.MethodPost, "/api/tasks", map[string]interface{}{"description": "sans titre"}, suite.employee)
	suite.Equal(http.StatusBadRequest, w.Code)

	w = suite.request(http.MethodPost, "/api/tasks", map[string]interface{}{"title": "T", "priority": "CRITICAL"}, suite.employee)
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *HandlerTestSuite) TestTask_SLA() {
	past := time.Now().Add(-2 * time.Hour).UTC()
	soon := time.Now().Add(3 * time.Hour).UTC()

	breached := suite.createTask(suite.employee, map[string]interface{}{"title": "En retard", "due_date": past})
	suite.Equal(models.SLABreached, breached.SLA)

	atRisk := suite.createTask(suite.employee, map[string]interface{}{"title": "Bientôt", "due_date": soon})
	suite.Equal(models.SLAAtRisk, atRisk.SLA)

	done := suite.createTask(suite.employee, map[string]interface{}{"title": "Fini", "due_date": past, "status": "DONE"})
	suite.Equal(models.SLAOnTrack, done.SLA)
}

func (suite *HandlerTestSuite) TestListTasks() {
	suite.createTask(suite.employee, map[string]interface{}{"title": "A", "status": "IN_PROGRESS"})
	suite.createTask(suite.employee, map[string]interface{}{"title": "B"})
	suite.createTask(suite.other, map[string]interface{}{"title": "C"})

	var list dto.TaskListResponse
	w := suite.request(http.MethodGet, "/api/tasks", nil, suite.employee)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	suite.decode(w, &list)
	suite.Len(list.Tasks, 2)
	suite.EqualValues(2, list.TotalCount)

	w = suite.request(http.MethodGet, "/api/tasks?status=IN_PROGRESS", nil, suite.employee)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.decode(w, &list)
	suite.Require().Len(list.Tasks, 1)
	suite.Equal("A", list.Tasks[0].Title)

	w = suite.request(http.MethodGet, "/api/tasks?status=SOMEDAY", nil, suite.employee)
	suite.Equal(http.StatusBadRequest, w.Code)

	// Elevated roles see every task
	w = suite.request(http.MethodGet, "/api/tasks?limit=1", nil, suite.manager)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.decode(w, &list)
	suite.Len(list.Tasks, 1)
	suite.EqualValues(3, list.TotalCount)
	suite.Equal(3, list.TotalPages)
}

func (suite *HandlerTestSuite) TestUpdateTask_MemberStatusOnly() {
	task := suite.createTask(suite.employee, map[string]interface{}{"title": "Partagée"})

	w := suite.request(http.MethodPost, taskPath(task.ID, "/assign"), map[string]interface{}{
		"user_ids": []uint64{suite.other.ID},
	}, suite.employee)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	suite.decode(w, &task)
	suite.Len(task.Members, 2)

	w = suite.request(http.MethodPatch, taskPath(task.ID, ""), map[string]interface{}{"title": "Renommée"}, suite.other)
	suite.Equal(http.StatusForbidden, w.Code)

	w = suite.request(http.MethodPatch, taskPath(task.ID, ""), map[string]interface{}{"status": "DONE"}, suite.other)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	suite.decode(w, &task)
	suite.Equal(models.TaskStatusDone, task.Status)

	w = suite.request(http.MethodDelete, taskPath(task.ID, ""), nil, suite.other)
	suite.Equal(http.StatusForbidden, w.Code)

	w = suite.request(http.MethodPost, taskPath(task.ID, "/unassign"), map[string]interface{}{
		"user_ids": []uint64{suite.other.ID},
	}, suite.employee)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	// No longer a member, no longer visible
	w = suite.request(http.MethodGet, taskPath(task.ID, ""), nil, suite.other)
	suite.Equal(http.StatusForbidden, w.Code)

	w = suite.request(http.MethodDelete, taskPath(task.ID, ""), nil, suite.employee)
	suite.Equal(http.StatusNoContent, w.Code)
}

func (suite *HandlerTestSuite) TestAssignTask_UnknownUser() {
	task := suite.createTask(suite.employee, map[string]interface{}{"title": "T"})

	w := suite.request(http.MethodPost, taskPath(task.ID, "/assign"), map[string]interface{}{
		"user_ids": []uint64{9999},
	}, suite.employee)
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *HandlerTestSuite) TestGenerateTasks_Unavailable() {
	w := suite.request(http.MethodPost, "/api/tasks/generate", map[string]string{"text": "Réunion lundi"}, suite.employee)
	suite.Equal(http.StatusServiceUnavailable, w.Code)
	suite.Equal(apierrors.ErrCodeServiceUnavailable, suite.errorCode(w))

	w = suite.request(http.MethodPost, "/api/tasks/generate", map[string]string{}, suite.employee)
	suite.Equal(http.StatusBadRequest, w.Code)
}

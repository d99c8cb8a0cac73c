package handlers

import (
	"net/http"

	"github.com/yukikurage/timesheet-api/internal/dto"
	"github.com/yukikurage/timesheet-api/internal/models"
)

func (suite *HandlerTestSuite) TestAuditLogs_Access() {
	suite.createHRTimesheet(suite.employee)

	w := suite.request(http.MethodGet, "/api/audit-logs", nil, suite.employee)
	suite.Equal(http.StatusForbidden, w.Code)

	w = suite.request(http.MethodGet, "/api/audit-logs", nil, suite.manager)
	suite.Equal(http.StatusForbidden, w.Code)

	w = suite.request(http.MethodGet, "/api/audit-logs", nil, suite.hrUser)
	suite.Equal(http.StatusOK, w.Code)

	w = suite.request(http.MethodGet, "/api/audit-logs", nil, nil)
	suite.Equal(http.StatusUnauthorized, w.Code)
}

func (suite *HandlerTestSuite) TestAuditLogs_Filters() {
	ts := suite.createHRTimesheet(suite.employee)
	w := suite.request(http.MethodPost, hrPath(ts.ID, "/submit"), nil, suite.employee)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var list dto.AuditLogListResponse
	w = suite.request(http.MethodGet, "/api/audit-logs?entity=hr-timesheet&entity_id="+itoa(ts.ID), nil, suite.admin)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	suite.decode(w, &list)
	suite.Require().GreaterOrEqual(len(list.Logs), 2)
	for _, row := range list.Logs {
		suite.Equal(models.AuditEntityHRTimesheet, row.Entity)
		suite.Equal(ts.ID, row.EntityID)
		suite.Equal(suite.employee.ID, row.UserID)
	}
	// Newest first: the creation is the oldest row
	suite.Equal(models.AuditActionCreate, list.Logs[len(list.Logs)-1].Action)

	w = suite.request(http.MethodGet, "/api/audit-logs?entity=HR_TIMESHEET&action=create", nil, suite.admin)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	suite.decode(w, &list)
	suite.Require().Len(list.Logs, 1)
	suite.NotEmpty(list.Logs[0].Changes)

	w = suite.request(http.MethodGet, "/api/audit-logs?entity=invoice", nil, suite.admin)
	suite.Equal(http.StatusBadRequest, w.Code)

	w = suite.request(http.MethodGet, "/api/audit-logs?action=PURGE", nil, suite.admin)
	suite.Equal(http.StatusBadRequest, w.Code)

	w = suite.request(http.MethodGet, "/api/audit-logs?user_id=abc", nil, suite.admin)
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *HandlerTestSuite) TestAuditLogs_History() {
	ts := suite.createHRTimesheet(suite.employee)

	var list dto.AuditLogListResponse
	w := suite.request(http.MethodGet, "/api/audit-logs/hr-timesheet/"+itoa(ts.ID), nil, suite.hrUser)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	suite.decode(w, &list)
	suite.Require().Len(list.Logs, 1)
	suite.Equal(models.AuditActionCreate, list.Logs[0].Action)
	suite.EqualValues(1, list.TotalCount)

	w = suite.request(http.MethodGet, "/api/audit-logs/hr-timesheet/"+itoa(ts.ID), nil, suite.employee)
	suite.Equal(http.StatusForbidden, w.Code)

	w = suite.request(http.MethodGet, "/api/audit-logs/payroll/1", nil, suite.hrUser)
	suite.Equal(http.StatusBadRequest, w.Code)
}

package handlers

import (
	"bytes"
	"net/http"

	"github.com/xuri/excelize/v2"

	"github.com/yukikurage/timesheet-api/internal/dto"
	apierrors "github.com/yukikurage/timesheet-api/internal/errors"
	"github.com/yukikurage/timesheet-api/internal/models"
)

func (suite *HandlerTestSuite) createHRTimesheet(owner *models.User) dto.HRTimesheetDTO {
	w := suite.request(http.MethodPost, "/api/hr-timesheets", map[string]interface{}{
		"week_start_date": "2025-03-10",
		"week_end_date":   "2025-03-16",
		"activities": []map[string]interface{}{{
			"activity_type": "OPERATIONAL",
			"activity_name": "Inventaire du magasin",
			"periodicity":   "WEEKLY",
			"start_date":    "2025-03-10",
			"end_date":      "2025-03-11",
			"total_hours":   6,
		}},
	}, owner)
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var ts dto.HRTimesheetDTO
	suite.decode(w, &ts)
	return ts
}

func hrPath(id uint64, suffix string) string {
	return "/api/hr-timesheets/" + itoa(id) + suffix
}

func (suite *HandlerTestSuite) TestHRTimesheet_Create() {
	ts := suite.createHRTimesheet(suite.employee)

	suite.Equal(models.HRStatusDraft, ts.Status)
	suite.Equal(suite.employee.ID, ts.UserID)
	suite.Equal("Technicien", ts.Position)
	suite.Equal("Libreville", ts.Site)
	suite.Len(ts.Activities, 1)
	suite.InDelta(6.0, ts.TotalHours, 0.001)
}

func (suite *HandlerTestSuite) TestHRTimesheet_CreateInvalid() {
	w := suite.request(http.MethodPost, "/api/hr-timesheets", map[string]interface{}{
		"week_start_date": "2025-03-16",
		"week_end_date":   "2025-03-10",
	}, suite.employee)
	suite.Equal(http.StatusBadRequest, w.Code)

	w = suite.request(http.MethodPost, "/api/hr-timesheets", map[string]interface{}{
		"week_start_date": "16/03/2025",
		"week_end_date":   "2025-03-10",
	}, suite.employee)
	suite.Equal(http.StatusBadRequest, w.Code)

	w = suite.request(http.MethodPost, "/api/hr-timesheets", map[string]interface{}{
		"employee_observations": "sans dates",
	}, suite.employee)
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *HandlerTestSuite) TestHRTimesheet_ActivityHoursCapped() {
	ts := suite.createHRTimesheet(suite.employee)

	w := suite.request(http.MethodPost, hrPath(ts.ID, "/activities"), map[string]interface{}{
		"activity_type": "OPERATIONAL",
		"activity_name": "Saisie erronée",
		"periodicity":   "DAILY",
		"start_date":    "2025-03-10",
		"end_date":      "2025-03-10",
		"total_hours":   100000,
	}, suite.employee)
	suite.Equal(http.StatusBadRequest, w.Code, w.Body.String())
	suite.Equal(apierrors.ErrCodeInvalidInput, suite.errorCode(w))
}

func (suite *HandlerTestSuite) TestHRTimesheet_Activities() {
	ts := suite.createHRTimesheet(suite.employee)

	w := suite.request(http.MethodPost, hrPath(ts.ID, "/activities"), map[string]interface{}{
		"activity_type": "REPORTING",
		"activity_name": "Rapport hebdomadaire",
		"periodicity":   "WEEKLY",
		"start_date":    "2025-03-14",
		"end_date":      "2025-03-14",
		"total_hours":   1.5,
		"status":        "COMPLETED",
	}, suite.employee)
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	suite.decode(w, &ts)
	suite.Len(ts.Activities, 2)
	suite.InDelta(7.5, ts.TotalHours, 0.001)

	first := ts.Activities[0].ID
	w = suite.request(http.MethodPatch, hrPath(ts.ID, "/activities/"+itoa(first)), map[string]interface{}{
		"activity_type": "OPERATIONAL",
		"activity_name": "Inventaire du magasin",
		"periodicity":   "WEEKLY",
		"start_date":    "2025-03-10",
		"end_date":      "2025-03-11",
		"total_hours":   4,
	}, suite.employee)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	suite.decode(w, &ts)
	suite.InDelta(5.5, ts.TotalHours, 0.001)

	// Another employee cannot touch it
	w = suite.request(http.MethodDelete, hrPath(ts.ID, "/activities/"+itoa(first)), nil, suite.other)
	suite.Equal(http.StatusForbidden, w.Code)

	w = suite.request(http.MethodDelete, hrPath(ts.ID, "/activities/"+itoa(first)), nil, suite.employee)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	suite.decode(w, &ts)
	suite.Len(ts.Activities, 1)
	suite.InDelta(1.5, ts.TotalHours, 0.001)
}

func (suite *HandlerTestSuite) TestHRTimesheet_ApprovalFlow() {
	ts := suite.createHRTimesheet(suite.employee)

	w := suite.request(http.MethodPost, hrPath(ts.ID, "/submit"), nil, suite.employee)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	suite.decode(w, &ts)
	suite.Equal(models.HRStatusPending, ts.Status)
	suite.NotNil(ts.EmployeeSignedAt)

	// Locked for the owner while pending
	w = suite.request(http.MethodPatch, hrPath(ts.ID, ""), map[string]string{"site": "Port-Gentil"}, suite.employee)
	suite.Equal(http.StatusConflict, w.Code)

	// An employee cannot approve
	w = suite.request(http.MethodPost, hrPath(ts.ID, "/manager-approval"), map[string]string{"action": "approve"}, suite.other)
	suite.Equal(http.StatusForbidden, w.Code)

	// Rejection needs a comment
	w = suite.request(http.MethodPost, hrPath(ts.ID, "/manager-approval"), map[string]string{"action": "reject"}, suite.manager)
	suite.Equal(http.StatusBadRequest, w.Code)

	w = suite.request(http.MethodPost, hrPath(ts.ID, "/manager-approval"), map[string]string{"action": "maybe"}, suite.manager)
	suite.Equal(http.StatusBadRequest, w.Code)

	// The final stage is not reachable yet
	w = suite.request(http.MethodPost, hrPath(ts.ID, "/odillon-approval"), map[string]string{"action": "approve"}, suite.hrUser)
	suite.Equal(http.StatusConflict, w.Code)

	w = suite.request(http.MethodPost, hrPath(ts.ID, "/manager-approval"), map[string]string{"action": "approve", "comments": "OK"}, suite.manager)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	suite.decode(w, &ts)
	suite.Equal(models.HRStatusManagerApproved, ts.Status)
	suite.Require().NotNil(ts.ManagerSignerID)
	suite.Equal(suite.manager.ID, *ts.ManagerSignerID)

	// A manager cannot give the final approval
	w = suite.request(http.MethodPost, hrPath(ts.ID, "/odillon-approval"), map[string]string{"action": "approve"}, suite.manager)
	suite.Equal(http.StatusForbidden, w.Code)

	w = suite.request(http.MethodPost, hrPath(ts.ID, "/odillon-approval"), map[string]string{"action": "approve"}, suite.hrUser)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	suite.decode(w, &ts)
	suite.Equal(models.HRStatusApproved, ts.Status)
	suite.NotNil(ts.OdillonSignedAt)
}

func (suite *HandlerTestSuite) TestHRTimesheet_RejectAndResubmit() {
	ts := suite.createHRTimesheet(suite.employee)
	suite.Require().Equal(http.StatusOK, suite.request(http.MethodPost, hrPath(ts.ID, "/submit"), nil, suite.employee).Code)

	w := suite.request(http.MethodPost, hrPath(ts.ID, "/manager-approval"), map[string]string{
		"action":   "reject",
		"comments": "Heures manquantes",
	}, suite.manager)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	suite.decode(w, &ts)
	suite.Equal(models.HRStatusRejected, ts.Status)
	suite.Equal("Heures manquantes", ts.ManagerComments)

	// Editable again once rejected
	w = suite.request(http.MethodPatch, hrPath(ts.ID, ""), map[string]string{"employee_observations": "Corrigé"}, suite.employee)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	w = suite.request(http.MethodPost, hrPath(ts.ID, "/submit"), nil, suite.employee)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	suite.decode(w, &ts)
	suite.Equal(models.HRStatusPending, ts.Status)
	suite.Empty(ts.ManagerComments)
	suite.Nil(ts.ManagerSignedAt)
	suite.Equal("Corrigé", ts.EmployeeObservations)
}

func (suite *HandlerTestSuite) TestHRTimesheet_Visibility() {
	ts := suite.createHRTimesheet(suite.employee)
	suite.createHRTimesheet(suite.other)

	w := suite.request(http.MethodGet, hrPath(ts.ID, ""), nil, suite.other)
	suite.Equal(http.StatusForbidden, w.Code)

	w = suite.request(http.MethodGet, hrPath(ts.ID, ""), nil, suite.manager)
	suite.Equal(http.StatusOK, w.Code)

	w = suite.request(http.MethodGet, hrPath(999, ""), nil, suite.employee)
	suite.Equal(http.StatusNotFound, w.Code)
	suite.Equal(apierrors.ErrCodeNotFound, suite.errorCode(w))

	w = suite.request(http.MethodGet, "/api/hr-timesheets/abc", nil, suite.employee)
	suite.Equal(http.StatusBadRequest, w.Code)

	var list dto.HRTimesheetListResponse
	w = suite.request(http.MethodGet, "/api/hr-timesheets", nil, suite.employee)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.decode(w, &list)
	suite.Len(list.Timesheets, 1)

	w = suite.request(http.MethodGet, "/api/hr-timesheets?status=DRAFT", nil, suite.hrUser)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.decode(w, &list)
	suite.Len(list.Timesheets, 2)
	suite.EqualValues(2, list.TotalCount)
}

func (suite *HandlerTestSuite) TestHRTimesheet_Delete() {
	ts := suite.createHRTimesheet(suite.employee)

	w := suite.request(http.MethodDelete, hrPath(ts.ID, ""), nil, suite.other)
	suite.Equal(http.StatusForbidden, w.Code)

	w = suite.request(http.MethodDelete, hrPath(ts.ID, ""), nil, suite.employee)
	suite.Equal(http.StatusNoContent, w.Code)

	w = suite.request(http.MethodGet, hrPath(ts.ID, ""), nil, suite.employee)
	suite.Equal(http.StatusNotFound, w.Code)
}

func (suite *HandlerTestSuite) TestHRTimesheet_Export() {
	ts := suite.createHRTimesheet(suite.employee)

	w := suite.request(http.MethodGet, hrPath(ts.ID, "/export?format=docx"), nil, suite.employee)
	suite.Equal(http.StatusBadRequest, w.Code)

	w = suite.request(http.MethodGet, hrPath(ts.ID, "/export"), nil, suite.other)
	suite.Equal(http.StatusForbidden, w.Code)

	w = suite.request(http.MethodGet, hrPath(ts.ID, "/export?format=xlsx"), nil, suite.employee)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	suite.Contains(w.Header().Get("Content-Disposition"), "feuille-de-temps-"+itoa(ts.ID))
	suite.Contains(w.Header().Get("Content-Type"), "spreadsheetml")

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	suite.Require().NoError(err)
	defer f.Close()
	suite.Equal([]string{"Rapport"}, f.GetSheetList())
}

package handlers

import (
	"net/http"

	"github.com/yukikurage/timesheet-api/internal/dto"
	"github.com/yukikurage/timesheet-api/internal/models"
)

func (suite *HandlerTestSuite) createEntry(owner *models.User, duration float64) dto.TimesheetEntryDTO {
	w := suite.request(http.MethodPost, "/api/timesheets", map[string]interface{}{
		"date":        "2025-03-11",
		"duration":    duration,
		"description": "Maintenance préventive",
	}, owner)
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var entry dto.TimesheetEntryDTO
	suite.decode(w, &entry)
	return entry
}

func entryPath(id uint64, suffix string) string {
	return "/api/timesheets/" + itoa(id) + suffix
}

func (suite *HandlerTestSuite) TestTimesheet_CreateValidation() {
	entry := suite.createEntry(suite.employee, 7.5)
	suite.Equal(models.EntryStatusDraft, entry.Status)
	suite.Equal(models.EntryTypeNormal, entry.Type)

	w := suite.request(http.MethodPost, "/api/timesheets", map[string]interface{}{
		"date":     "2025-03-11",
		"duration": 25,
	}, suite.employee)
	suite.Equal(http.StatusBadRequest, w.Code)

	w = suite.request(http.MethodPost, "/api/timesheets", map[string]interface{}{
		"duration": 2,
	}, suite.employee)
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *HandlerTestSuite) TestTimesheet_Lifecycle() {
	entry := suite.createEntry(suite.employee, 8)

	w := suite.request(http.MethodPatch, entryPath(entry.ID, ""), map[string]interface{}{"duration": 6}, suite.employee)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	suite.decode(w, &entry)
	suite.InDelta(6.0, entry.Duration, 0.001)

	w = suite.request(http.MethodPost, entryPath(entry.ID, "/submit"), nil, suite.employee)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	// Submitted entries are frozen for the owner
	w = suite.request(http.MethodPatch, entryPath(entry.ID, ""), map[string]interface{}{"duration": 5}, suite.employee)
	suite.Equal(http.StatusConflict, w.Code)

	var pending dto.TimesheetEntryListResponse
	w = suite.request(http.MethodGet, "/api/timesheets/pending", nil, suite.manager)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	suite.decode(w, &pending)
	suite.Require().Len(pending.Entries, 1)
	suite.Equal(entry.ID, pending.Entries[0].ID)

	w = suite.request(http.MethodGet, "/api/timesheets/pending", nil, suite.employee)
	suite.Equal(http.StatusForbidden, w.Code)

	// Validators only, and a rejection needs a comment
	w = suite.request(http.MethodPost, "/api/timesheets/validate", map[string]interface{}{
		"timesheet_entry_id": entry.ID,
		"status":             "APPROVED",
	}, suite.other)
	suite.Equal(http.StatusForbidden, w.Code)

	w = suite.request(http.MethodPost, "/api/timesheets/validate", map[string]interface{}{
		"timesheet_entry_id": entry.ID,
		"status":             "REJECTED",
	}, suite.manager)
	suite.Equal(http.StatusBadRequest, w.Code)

	w = suite.request(http.MethodPost, "/api/timesheets/validate", map[string]interface{}{
		"timesheet_entry_id": entry.ID,
		"status":             "APPROVED",
	}, suite.manager)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	suite.decode(w, &entry)
	suite.Equal(models.EntryStatusApproved, entry.Status)
	suite.Require().NotNil(entry.ValidatorID)
	suite.Equal(suite.manager.ID, *entry.ValidatorID)

	// Same decision again is a no-op, the opposite one a conflict
	w = suite.request(http.MethodPost, "/api/timesheets/validate", map[string]interface{}{
		"timesheet_entry_id": entry.ID,
		"status":             "APPROVED",
	}, suite.manager)
	suite.Equal(http.StatusOK, w.Code)

	w = suite.request(http.MethodPost, "/api/timesheets/validate", map[string]interface{}{
		"timesheet_entry_id": entry.ID,
		"status":             "REJECTED",
		"comment":            "Trop tard",
	}, suite.manager)
	suite.Equal(http.StatusConflict, w.Code)

	w = suite.request(http.MethodPost, entryPath(entry.ID, "/lock"), nil, suite.manager)
	suite.Equal(http.StatusForbidden, w.Code)

	w = suite.request(http.MethodPost, entryPath(entry.ID, "/lock"), nil, suite.hrUser)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	suite.decode(w, &entry)
	suite.Equal(models.EntryStatusLocked, entry.Status)
}

func (suite *HandlerTestSuite) TestTimesheet_ListAndDelete() {
	mine := suite.createEntry(suite.employee, 2)
	suite.createEntry(suite.other, 3)

	var list dto.TimesheetEntryListResponse
	w := suite.request(http.MethodGet, "/api/timesheets?from=2025-03-01&to=2025-03-31", nil, suite.employee)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	suite.decode(w, &list)
	suite.Require().Len(list.Entries, 1)
	suite.Equal(mine.ID, list.Entries[0].ID)

	w = suite.request(http.MethodGet, "/api/timesheets?from=yesterday", nil, suite.employee)
	suite.Equal(http.StatusBadRequest, w.Code)

	w = suite.request(http.MethodGet, entryPath(mine.ID, ""), nil, suite.other)
	suite.Equal(http.StatusForbidden, w.Code)

	w = suite.request(http.MethodDelete, entryPath(mine.ID, ""), nil, suite.employee)
	suite.Equal(http.StatusNoContent, w.Code)

	w = suite.request(http.MethodGet, entryPath(mine.ID, ""), nil, suite.employee)
	suite.Equal(http.StatusNotFound, w.Code)
}

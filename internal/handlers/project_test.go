package handlers

import (
	"net/http"

	"github.com/yukikurage/timesheet-api/internal/dto"
	"github.com/yukikurage/timesheet-api/internal/models"
)

func (suite *HandlerTestSuite) createProject(owner *models.User, name, code string) dto.ProjectDTO {
	w := suite.request(http.MethodPost, "/api/projects", map[string]string{
		"name": name,
		"code": code,
	}, owner)
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var project dto.ProjectDTO
	suite.decode(w, &project)
	return project
}

func projectPath(id uint64, suffix string) string {
	return "/api/projects/" + itoa(id) + suffix
}

func (suite *HandlerTestSuite) TestProject_Create() {
	project := suite.createProject(suite.employee, "Alpha", "alpha")
	suite.Equal("ALPHA", project.Code)
	suite.Equal(models.ProjectStatusActive, project.Status)
	suite.Equal(suite.employee.ID, project.CreatedBy)

	// Codes are unique
	w := suite.request(http.MethodPost, "/api/projects", map[string]string{"name": "Autre", "code": "ALPHA"}, suite.other)
	suite.Equal(http.StatusConflict, w.Code)

	w = suite.request(http.MethodPost, "/api/projects", map[string]string{"code": "X"}, suite.other)
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *HandlerTestSuite) TestProject_UpdatePermissions() {
	project := suite.createProject(suite.employee, "Alpha", "ALPHA")

	w := suite.request(http.MethodPatch, projectPath(project.ID, ""), map[string]string{"name": "Pirate"}, suite.other)
	suite.Equal(http.StatusForbidden, w.Code)

	w = suite.request(http.MethodPatch, projectPath(project.ID, ""), map[string]string{"name": "Alpha 2"}, suite.manager)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	suite.decode(w, &project)
	suite.Equal("Alpha 2", project.Name)

	w = suite.request(http.MethodPost, projectPath(project.ID, "/archive"), nil, suite.employee)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	suite.decode(w, &project)
	suite.Equal(models.ProjectStatusArchived, project.Status)

	w = suite.request(http.MethodPost, projectPath(project.ID, "/unarchive"), nil, suite.employee)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	suite.decode(w, &project)
	suite.Equal(models.ProjectStatusActive, project.Status)

	w = suite.request(http.MethodDelete, projectPath(project.ID, ""), nil, suite.other)
	suite.Equal(http.StatusForbidden, w.Code)

	w = suite.request(http.MethodDelete, projectPath(project.ID, ""), nil, suite.employee)
	suite.Equal(http.StatusNoContent, w.Code)

	w = suite.request(http.MethodGet, projectPath(project.ID, ""), nil, suite.employee)
	suite.Equal(http.StatusNotFound, w.Code)
}

func (suite *HandlerTestSuite) TestProject_Clone() {
	project := suite.createProject(suite.employee, "Alpha", "ALPHA")
	w := suite.request(http.MethodPost, projectPath(project.ID, "/members"), map[string]interface{}{
		"user_id": suite.other.ID,
	}, suite.employee)
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	w = suite.request(http.MethodPost, projectPath(project.ID, "/clone"), nil, suite.other)
	suite.Equal(http.StatusForbidden, w.Code)

	w = suite.request(http.MethodPost, projectPath(project.ID, "/clone"), nil, suite.employee)
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var clone dto.ProjectDTO
	suite.decode(w, &clone)
	suite.Equal("Alpha (Copie)", clone.Name)
	suite.Equal("ALPHA-COPY", clone.Code)
	suite.Len(clone.Members, 2)

	w = suite.request(http.MethodPost, projectPath(project.ID, "/clone"), nil, suite.manager)
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	suite.decode(w, &clone)
	suite.Equal("ALPHA-COPY-2", clone.Code)
	suite.Equal(suite.manager.ID, clone.CreatedBy)
}

func (suite *HandlerTestSuite) TestProject_Members() {
	project := suite.createProject(suite.employee, "Alpha", "ALPHA")

	w := suite.request(http.MethodPost, projectPath(project.ID, "/members"), map[string]interface{}{
		"user_id": suite.other.ID,
		"role":    "admin",
	}, suite.employee)
	suite.Equal(http.StatusBadRequest, w.Code)

	w = suite.request(http.MethodPost, projectPath(project.ID, "/members"), map[string]interface{}{
		"user_id": suite.other.ID,
	}, suite.employee)
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var members []dto.ProjectMemberDTO
	w = suite.request(http.MethodGet, projectPath(project.ID, "/members"), nil, suite.other)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	suite.decode(w, &members)
	suite.Len(members, 2)

	// The new member now sees the project in its list
	var list dto.ProjectListResponse
	w = suite.request(http.MethodGet, "/api/projects", nil, suite.other)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.decode(w, &list)
	suite.Len(list.Projects, 1)

	w = suite.request(http.MethodDelete, projectPath(project.ID, "/members/"+itoa(suite.other.ID)), nil, suite.employee)
	suite.Equal(http.StatusNoContent, w.Code)

	w = suite.request(http.MethodGet, "/api/projects", nil, suite.other)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.decode(w, &list)
	suite.Empty(list.Projects)
}

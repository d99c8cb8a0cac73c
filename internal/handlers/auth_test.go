package handlers

import (
	"net/http"
	"net/http/httptest"

	"github.com/yukikurage/timesheet-api/internal/dto"
	apierrors "github.com/yukikurage/timesheet-api/internal/errors"
	"github.com/yukikurage/timesheet-api/internal/models"
)

func (suite *HandlerTestSuite) TestSignup() {
	w := suite.request(http.MethodPost, "/api/auth/signup", map[string]string{
		"username": "newuser",
		"password": "supersecret",
		"name":     "Nouvel Utilisateur",
	}, nil)
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var user dto.UserDTO
	suite.decode(w, &user)
	suite.Equal("newuser", user.Username)
	suite.Equal(models.RoleEmployee, user.Role)
}

func (suite *HandlerTestSuite) TestSignup_Errors() {
	w := suite.request(http.MethodPost, "/api/auth/signup", map[string]string{
		"username": "alice",
		"password": "supersecret",
	}, nil)
	suite.Equal(http.StatusConflict, w.Code)

	w = suite.request(http.MethodPost, "/api/auth/signup", map[string]string{
		"username": "shorty",
		"password": "short",
	}, nil)
	suite.Equal(http.StatusBadRequest, w.Code)

	w = suite.request(http.MethodPost, "/api/auth/signup", map[string]string{
		"password": "supersecret",
	}, nil)
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Equal(apierrors.ErrCodeInvalidInput, suite.errorCode(w))
}

func (suite *HandlerTestSuite) TestLogin_SessionAndToken() {
	w := suite.request(http.MethodPost, "/api/auth/login", map[string]string{
		"username": "alice",
		"password": "supersecret",
	}, nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var resp dto.AuthResponse
	suite.decode(w, &resp)
	suite.Equal(suite.employee.ID, resp.User.ID)
	suite.NotEmpty(resp.Token)

	cookies := w.Result().Cookies()
	suite.Require().NotEmpty(cookies, "expected session cookie to be set")

	// The session cookie alone authenticates
	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	me := httptest.NewRecorder()
	suite.router.ServeHTTP(me, req)
	suite.Require().Equal(http.StatusOK, me.Code, me.Body.String())

	var user dto.UserDTO
	suite.decode(me, &user)
	suite.Equal("alice", user.Username)

	// So does the bearer token alone
	req = httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+resp.Token)
	me = httptest.NewRecorder()
	suite.router.ServeHTTP(me, req)
	suite.Equal(http.StatusOK, me.Code)
}

func (suite *HandlerTestSuite) TestLogin_InvalidCredentials() {
	w := suite.request(http.MethodPost, "/api/auth/login", map[string]string{
		"username": "alice",
		"password": "wrong-password",
	}, nil)
	suite.Equal(http.StatusUnauthorized, w.Code)
	suite.Equal(apierrors.ErrCodeInvalidCredentials, suite.errorCode(w))
}

func (suite *HandlerTestSuite) TestMe_Unauthenticated() {
	w := suite.request(http.MethodGet, "/api/auth/me", nil, nil)
	suite.Equal(http.StatusUnauthorized, w.Code)
	suite.Equal(apierrors.ErrCodeUnauthorized, suite.errorCode(w))

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w = httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	suite.Equal(http.StatusUnauthorized, w.Code)
}

func (suite *HandlerTestSuite) TestMe_DeletedUser() {
	suite.Require().NoError(suite.db.Delete(suite.other).Error)

	w := suite.request(http.MethodGet, "/api/auth/me", nil, suite.other)
	suite.Equal(http.StatusUnauthorized, w.Code)
}

func (suite *HandlerTestSuite) TestLogout() {
	w := suite.request(http.MethodPost, "/api/auth/logout", nil, nil)
	suite.Equal(http.StatusOK, w.Code)
}

func (suite *HandlerTestSuite) TestChangeRole() {
	path := "/api/users/" + itoa(suite.employee.ID) + "/role"

	w := suite.request(http.MethodPatch, path, map[string]string{"role": "MANAGER"}, suite.manager)
	suite.Equal(http.StatusForbidden, w.Code)
	suite.Equal(apierrors.ErrCodeForbidden, suite.errorCode(w))

	w = suite.request(http.MethodPatch, path, map[string]string{"role": "BOSS"}, suite.admin)
	suite.Equal(http.StatusBadRequest, w.Code)

	w = suite.request(http.MethodPatch, path, map[string]string{"role": "MANAGER"}, suite.admin)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var user dto.UserDTO
	suite.decode(w, &user)
	suite.Equal(models.RoleManager, user.Role)

	// The new role applies to the next request
	w = suite.request(http.MethodGet, "/api/timesheets/pending", nil, suite.employee)
	suite.Equal(http.StatusOK, w.Code)

	w = suite.request(http.MethodPatch, "/api/users/abc/role", map[string]string{"role": "HR"}, suite.admin)
	suite.Equal(http.StatusBadRequest, w.Code)
}

package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apierrors "github.com/yukikurage/timesheet-api/internal/errors"
	"github.com/yukikurage/timesheet-api/internal/middleware"
	"github.com/yukikurage/timesheet-api/internal/policy"
	"github.com/yukikurage/timesheet-api/internal/services"
)

// respondError maps a service error to the error envelope
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidCredentials):
		apierrors.RespondWithError(c, http.StatusUnauthorized,
			apierrors.NewAPIError(apierrors.ErrCodeInvalidCredentials, err.Error()))
	case errors.Is(err, policy.ErrPermissionDenied):
		apierrors.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrValidation):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrConflict):
		apierrors.Conflict(c, err.Error())
	case errors.Is(err, services.ErrUnavailable):
		apierrors.ServiceUnavailable(c, err.Error())
	default:
		_ = c.Error(err)
		apierrors.InternalError(c, "Erreur interne du serveur")
	}
}

// currentSubject writes a 401 when the caller is not authenticated
func currentSubject(c *gin.Context) (policy.Subject, bool) {
	sub, ok := middleware.GetSubject(c)
	if !ok {
		apierrors.Unauthorized(c, "Non authentifié")
		return policy.Subject{}, false
	}
	return sub, true
}

// pathID parses a numeric path parameter, writing a 400 when invalid
func pathID(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		apierrors.BadRequest(c, "Identifiant invalide")
		return 0, false
	}
	return id, true
}

// queryUint64 parses an optional numeric query parameter
func queryUint64(c *gin.Context, name string) (*uint64, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Paramètre "+name+" invalide")
		return nil, false
	}
	return &v, true
}

// queryDate parses an optional date query parameter
func queryDate(c *gin.Context, name string) (*Date, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	d, err := parseDate(raw)
	if err != nil {
		apierrors.BadRequest(c, "Paramètre "+name+" invalide")
		return nil, false
	}
	return &d, true
}

package services

import "errors"

// Error classes. Every domain error of this package unwraps to one of them,
// handlers map the class to an HTTP status. Permission refusals are
// policy.ErrPermissionDenied.
var (
	ErrValidation  = errors.New("validation error")
	ErrConflict    = errors.New("state conflict")
	ErrNotFound    = errors.New("not found")
	ErrUnavailable = errors.New("service unavailable")
)

type classifiedError struct {
	class error
	msg   string
}

func (e *classifiedError) Error() string { return e.msg }
func (e *classifiedError) Unwrap() error { return e.class }

func validationError(msg string) error  { return &classifiedError{class: ErrValidation, msg: msg} }
func conflictError(msg string) error    { return &classifiedError{class: ErrConflict, msg: msg} }
func notFoundError(msg string) error    { return &classifiedError{class: ErrNotFound, msg: msg} }
func unavailableError(msg string) error { return &classifiedError{class: ErrUnavailable, msg: msg} }

var (
	ErrUserNotFound         = notFoundError("Utilisateur introuvable")
	ErrProjectNotFound      = notFoundError("Projet introuvable")
	ErrTaskNotFound         = notFoundError("Tâche introuvable")
	ErrEntryNotFound        = notFoundError("Saisie de temps introuvable")
	ErrHRTimesheetNotFound  = notFoundError("Feuille de temps RH introuvable")
	ErrActivityNotFound     = notFoundError("Activité RH introuvable")
	ErrNotificationNotFound = notFoundError("Notification introuvable")

	// Returned when a conditional update matched no row: someone else
	// changed the record since it was loaded.
	ErrConcurrentUpdate = conflictError("La ressource a été modifiée entre-temps, veuillez recharger")
)

package services

import (
	"net/http"

	apperrors "github.com/24HeuresINSA/OverRun-backend/common/errors"
)

// ServiceError is a typed error with an HTTP status code.
type ServiceError struct {
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string      { return e.Message }

func newError(status int, msg string) *ServiceError {
	return &ServiceError{StatusCode: status, Message: msg}
}

func badRequest(msg string) *ServiceError  { return newError(http.StatusBadRequest, msg) }
func forbidden() *ServiceError             { return newError(http.StatusForbidden, "Unauthorized.") }
func notFound(msg string) *ServiceError    { return newError(http.StatusNotFound, msg) }
func conflict(msg string) *ServiceError    { return newError(http.StatusConflict, msg) }
func internal() *ServiceError              { return newError(http.StatusInternalServerError, "Internal error.") }
func internalMsg(msg string) *ServiceError { return newError(http.StatusInternalServerError, msg) }

// fromApp converts a common/errors sentinel into a service error.
func fromApp(e *apperrors.Error) *ServiceError { return newError(e.Code, e.Message) }

// dbError maps a repository error: not found becomes 404 with notFoundMsg,
// a unique violation becomes 409 with conflictMsg, a lost connection 503 and
// anything else 500.
func dbError(err error, notFoundMsg, conflictMsg string) *ServiceError {
	appErr := apperrors.FromDB(err)
	switch appErr.Code {
	case http.StatusNotFound:
		return notFound(notFoundMsg)
	case http.StatusConflict:
		if conflictMsg == "" {
			conflictMsg = appErr.Message
		}
		return conflict(conflictMsg)
	case http.StatusServiceUnavailable:
		return fromApp(appErr)
	default:
		return internal()
	}
}

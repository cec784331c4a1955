package errors

import (
	"database/sql/driver"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Error is an application error carrying the HTTP status it maps to.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// JSON returns the error as a JSON string
func (e *Error) JSON() string {
	b, _ := json.Marshal(e)
	return string(b)
}

// New creates a new Error
func New(code int, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Wrap returns a copy of base with err attached, leaving the shared value untouched.
func Wrap(base *Error, err error) *Error {
	return New(base.Code, base.Message, err)
}

var (
	ErrNotFound       = New(http.StatusNotFound, "Not found", nil)
	ErrInternalServer = New(http.StatusInternalServerError, "Internal server error", nil)
)

// Database error types
var (
	ErrDatabaseConnection = New(http.StatusServiceUnavailable, "Database connection error", nil)
	ErrDatabaseQuery      = New(http.StatusInternalServerError, "Database query error", nil)
	ErrDuplicate          = New(http.StatusConflict, "Record already exists", nil)
	ErrStillReferenced    = New(http.StatusConflict, "Record is still referenced", nil)
)

// Authentication error types
var (
	ErrInvalidCredentials = New(http.StatusUnauthorized, "Invalid username or password.", nil)
	ErrTokenExpired       = New(http.StatusUnauthorized, "Token expired", nil)
	ErrInvalidToken       = New(http.StatusUnauthorized, "Invalid token", nil)
)

// Is matches any *Error with the same code and message, so a wrapped
// sentinel still satisfies errors.Is against the sentinel itself.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code && t.Message == e.Message
}

// FromDB classifies a gorm error. Record-not-found maps to 404, unique and
// foreign key violations (requires TranslateError) map to 409 and a lost
// connection maps to 503. nil stays nil.
func FromDB(err error) *Error {
	var netErr net.Error
	switch {
	case err == nil:
		return nil
	case stderrors.Is(err, gorm.ErrRecordNotFound):
		return Wrap(ErrNotFound, err)
	case stderrors.Is(err, gorm.ErrDuplicatedKey):
		return Wrap(ErrDuplicate, err)
	case stderrors.Is(err, gorm.ErrForeignKeyViolated):
		return Wrap(ErrStillReferenced, err)
	case stderrors.Is(err, driver.ErrBadConn), stderrors.As(err, &netErr):
		return Wrap(ErrDatabaseConnection, err)
	default:
		return Wrap(ErrDatabaseQuery, err)
	}
}

// IsNotFound reports whether err is a gorm record-not-found.
func IsNotFound(err error) bool {
	return stderrors.Is(err, gorm.ErrRecordNotFound)
}

// IsDuplicate reports whether err is a translated unique violation.
func IsDuplicate(err error) bool {
	return stderrors.Is(err, gorm.ErrDuplicatedKey)
}

// ErrorMiddleware renders the last error pushed with c.Error as JSON when the
// handler did not write a response itself.
func ErrorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		var appErr *Error
		if !stderrors.As(err, &appErr) {
			appErr = Wrap(ErrInternalServer, err)
		}
		c.AbortWithStatusJSON(appErr.Code, gin.H{"error": appErr.Message})
	}
}

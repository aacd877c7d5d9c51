package response

import (
	"errors"
	"fmt"
	"net/http"

	pkgerrors "github.com/pkg/errors"
)

// Error 带 HTTP 状态码与对外消息的错误，保留原始错误链和堆栈
type Error struct {
	Status  int    `json:"-"`
	Message string `json:"message"`
	Origin  string `json:"-"`
	// cause 保存原始错误，供 Unwrap 和 Sentry 提取
	cause error
	stack pkgerrors.StackTrace
}

func newError(status int, msg string) *Error {
	return &Error{
		Status:  status,
		Message: msg,
	}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("status:%d, msg:%s, cause:%v", e.Status, e.Message, e.cause)
	}
	return fmt.Sprintf("status:%d, msg:%s", e.Status, e.Message)
}

// GetCode 实现 sentry.CodedError
func (e *Error) GetCode() int32 {
	return int32(e.Status)
}

func (e *Error) Unwrap() error {
	return e.cause
}

func (e *Error) StackTrace() pkgerrors.StackTrace {
	if e.stack != nil {
		return e.stack
	}
	type stackTracer interface {
		StackTrace() pkgerrors.StackTrace
	}
	if st, ok := e.cause.(stackTracer); ok {
		return st.StackTrace()
	}
	return nil
}

// Is 状态码和消息都相同即视为同一错误
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Status == t.Status && e.Message == t.Message
}

// WithOrigin 附加原始错误；仅 debug 模式会把它作为 stack 返回给前端
func (e *Error) WithOrigin(err error) *Error {
	if err == nil {
		return e
	}
	wrapped := ensureStack(err)
	next := &Error{
		Status:  e.Status,
		Message: e.Message,
		Origin:  fmt.Sprintf("%+v", wrapped),
		cause:   wrapped,
	}
	type stackTracer interface {
		StackTrace() pkgerrors.StackTrace
	}
	if st, ok := wrapped.(stackTracer); ok {
		next.stack = st.StackTrace()
	}
	return next
}

// WithMessage 替换对外消息，状态码不变
func (e *Error) WithMessage(msg string) *Error {
	return &Error{
		Status:  e.Status,
		Message: msg,
		Origin:  e.Origin,
		cause:   e.cause,
		stack:   e.stack,
	}
}

func ensureStack(err error) error {
	type stackTracer interface {
		StackTrace() pkgerrors.StackTrace
	}
	if _, ok := err.(stackTracer); ok {
		return err
	}
	return pkgerrors.WithStack(err)
}

var (
	ErrInvalidRequest = newError(http.StatusBadRequest, "Invalid request")
	ErrInvalidID      = newError(http.StatusBadRequest, "Invalid user id")
	ErrMissingFields  = newError(http.StatusBadRequest, "Please provide all required fields")
	ErrInvalidEmail   = newError(http.StatusBadRequest, "Please provide a valid email address")
	ErrMissingLogin   = newError(http.StatusBadRequest, "Please provide email and password")
	ErrInvalidStatus  = newError(http.StatusBadRequest, `Status must be either "active" or "inactive"`)
	ErrInvalidFilter  = newError(http.StatusBadRequest, "Invalid filter")

	ErrNoToken            = newError(http.StatusUnauthorized, "No token provided. Authorization required.")
	ErrTokenExpired       = newError(http.StatusUnauthorized, "Token expired. Please login again.")
	ErrTokenInvalid       = newError(http.StatusUnauthorized, "Invalid token. Please login again.")
	ErrAuthFailed         = newError(http.StatusUnauthorized, "Authentication failed.")
	ErrUnauthorized       = newError(http.StatusUnauthorized, "Unauthorized. Please login first.")
	ErrInvalidCredentials = newError(http.StatusUnauthorized, "Invalid email or password")
	ErrAccountDeactivated = newError(http.StatusUnauthorized, "Account is deactivated. Please contact administrator.")

	ErrForbidden             = newError(http.StatusForbidden, "Access denied. You do not have permission to perform this action.")
	ErrCannotDeleteAdmin     = newError(http.StatusForbidden, "Cannot delete admin user")
	ErrCannotDeactivateAdmin = newError(http.StatusForbidden, "Cannot deactivate admin user")

	ErrUserNotFound  = newError(http.StatusNotFound, "User not found")
	ErrRouteNotFound = newError(http.StatusNotFound, "Route not found")

	ErrEmailExists = newError(http.StatusConflict, "User with this email already exists")
	ErrRegNoExists = newError(http.StatusConflict, "User with this registration number already exists")
	ErrEmailTaken  = newError(http.StatusConflict, "Email already taken by another user")
	ErrRegNoTaken  = newError(http.StatusConflict, "Registration number already taken by another user")

	ErrPayloadTooLarge = newError(http.StatusRequestEntityTooLarge, "Request entity too large")
	ErrTooManyRequests = newError(http.StatusTooManyRequests, "Too many requests from this IP, please try again later.")

	ErrInternal        = newError(http.StatusInternalServerError, "Internal Server Error")
	ErrDatabase        = newError(http.StatusInternalServerError, "Database error. Please try again.")
	ErrStorageDisabled = newError(http.StatusServiceUnavailable, "File storage is not configured")
)

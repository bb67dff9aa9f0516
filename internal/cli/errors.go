package cli

import "fmt"

type codedError struct {
	Code    string
	Message string
	Cause   error
}

func (e *codedError) Error() string {
	if e == nil {
		return ""
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *codedError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func newCodedError(code string, message string, cause error) error {
	return &codedError{Code: code, Message: message, Cause: cause}
}

const (
	errNotLoggedIn       = "ERR_NOT_LOGGED_IN"
	errAPIURLRequired    = "ERR_API_URL_REQUIRED"
	errInvalidPasscode   = "ERR_INVALID_PASSCODE"
	errLoginFailed       = "ERR_LOGIN_FAILED"
	errInvalidRange      = "ERR_INVALID_RANGE"
	errInvalidAxis       = "ERR_INVALID_AXIS"
	errInvalidTimezone   = "ERR_INVALID_TIMEZONE"
	errFetchFailed       = "ERR_FETCH_FAILED"
	errIdentityCorrupted = "ERR_IDENTITY_CORRUPTED"
)

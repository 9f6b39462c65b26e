package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind groups codes into the auth, data and validation families.
type Kind string

const (
	KindAuth       Kind = "auth"
	KindData       Kind = "data"
	KindValidation Kind = "validation"
)

type Code string

const (
	MissingCode          Code = "missing_code"
	StateMismatch        Code = "state_mismatch"
	TokenExchangeFailed  Code = "token_exchange_failed"
	InvalidIdentityToken Code = "invalid_identity_token"
	SessionAbsent        Code = "session_absent"
	Forbidden            Code = "forbidden"

	QueryFailed       Code = "query_failed"
	DuplicateFavorite Code = "duplicate_favorite"
	NotFound          Code = "not_found"
	Unavailable       Code = "unavailable"

	BadInput Code = "bad_input"
)

type Error struct {
	Kind      Kind
	Code      Code
	Op        string
	Message   string
	Retryable bool
	Cause     error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	op := strings.TrimSpace(e.Op)
	msg := strings.TrimSpace(e.Message)
	switch {
	case op != "" && msg != "":
		return fmt.Sprintf("%s: %s (%s)", op, msg, e.Code)
	case op != "":
		return fmt.Sprintf("%s (%s)", op, e.Code)
	case msg != "":
		return fmt.Sprintf("%s (%s)", msg, e.Code)
	default:
		return string(e.Code)
	}
}

func (e *Error) Unwrap() error { return e.Cause }

func Auth(code Code, op, message string, cause error) error {
	return &Error{Kind: KindAuth, Code: code, Op: op, Message: message, Cause: cause}
}

func Data(code Code, op string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return &Error{Kind: KindData, Code: code, Op: op, Message: msg, Retryable: code == Unavailable, Cause: cause}
}

func Validation(op, message string) error {
	return &Error{Kind: KindValidation, Code: BadInput, Op: op, Message: message}
}

func Validationf(op, format string, args ...any) error {
	return Validation(op, fmt.Sprintf(format, args...))
}

func NotFoundf(op, format string, args ...any) error {
	return &Error{Kind: KindData, Code: NotFound, Op: op, Message: fmt.Sprintf(format, args...)}
}

func As(err error) (*Error, bool) {
	var e *Error
	if !errors.As(err, &e) {
		return nil, false
	}
	return e, true
}

func IsCode(err error, code Code) bool {
	e, ok := As(err)
	return ok && e.Code == code
}

func CodeOf(err error) Code {
	if e, ok := As(err); ok {
		return e.Code
	}
	return ""
}

func IsRetryable(err error) bool {
	e, ok := As(err)
	return ok && e.Retryable
}

// PublicMessage is the text safe to show a caller: the message without op or code.
func PublicMessage(err error) string {
	if e, ok := As(err); ok && strings.TrimSpace(e.Message) != "" {
		return e.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

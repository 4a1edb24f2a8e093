package provider

import (
	"errors"
	"fmt"
)

// Code is a stable, machine-readable provider error code.
type Code string

const (
	CodeNotInitialized     Code = "NOT_INITIALIZED"
	CodeUserExists         Code = "USER_EXISTS"
	CodeRoleNotFound       Code = "ROLE_NOT_FOUND"
	CodeUserCreationFailed Code = "USER_CREATION_FAILED"
	CodeUserDropFailed     Code = "USER_DROP_FAILED"
	CodeUserListFailed     Code = "USER_LIST_FAILED"
	CodeCleanupFailed      Code = "CLEANUP_FAILED"
	CodeProviderNotFound   Code = "PROVIDER_NOT_FOUND"
	CodeProviderInitError  Code = "PROVIDER_INIT_ERROR"
	CodeRolePackError      Code = "ROLE_PACK_ERROR"
	CodeNotImplemented     Code = "NOT_IMPLEMENTED"
	CodeInternal           Code = "INTERNAL_ERROR"
)

// Error is the error shape every provider implementation must raise:
// a stable code, a human message, a retryability flag, and the engine tag.
type Error struct {
	Code      Code
	Message   string
	Retryable bool
	Engine    string
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Engine, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Engine, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is allows errors.Is(err, &Error{Code: ...}) to match on code alone,
// regardless of message or wrapped cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Code == "" {
		return false
	}
	return e.Code == t.Code
}

func newError(engine string, code Code, retryable bool, message string, err error) *Error {
	return &Error{Code: code, Message: message, Retryable: retryable, Engine: engine, Err: err}
}

func NewNotInitializedError(engine string) *Error {
	return newError(engine, CodeNotInitialized, false, "provider not initialized", nil)
}

func NewUserExistsError(engine, name string, err error) *Error {
	return newError(engine, CodeUserExists, false, fmt.Sprintf("user %q already exists", name), err)
}

func NewRoleNotFoundError(engine, rolePack string, err error) *Error {
	return newError(engine, CodeRoleNotFound, false, fmt.Sprintf("role pack %q not found", rolePack), err)
}

func NewUserCreationFailedError(engine string, err error) *Error {
	return newError(engine, CodeUserCreationFailed, true, "user creation failed", err)
}

func NewUserDropFailedError(engine string, err error) *Error {
	return newError(engine, CodeUserDropFailed, true, "user drop failed", err)
}

func NewUserListFailedError(engine string, err error) *Error {
	return newError(engine, CodeUserListFailed, true, "user list failed", err)
}

func NewCleanupFailedError(engine string, err error) *Error {
	return newError(engine, CodeCleanupFailed, true, "cleanup failed", err)
}

func NewProviderNotFoundError(engine string) *Error {
	return newError(engine, CodeProviderNotFound, false, fmt.Sprintf("no provider registered for engine %q", engine), nil)
}

func NewProviderInitError(engine string, err error) *Error {
	return newError(engine, CodeProviderInitError, false, "provider initialization failed", err)
}

func NewRolePackError(engine string, err error) *Error {
	return newError(engine, CodeRolePackError, false, "role pack operation failed", err)
}

func NewNotImplementedError(engine string) *Error {
	return newError(engine, CodeNotImplemented, false, fmt.Sprintf("engine %q is not implemented", engine), nil)
}

func NewInternalError(engine string, err error) *Error {
	return newError(engine, CodeInternal, true, "internal error", err)
}

// AsError unwraps err into a *Error, the way callers are expected to branch
// on provider failures instead of string-matching messages.
func AsError(err error) (*Error, bool) {
	var pe *Error
	ok := errors.As(err, &pe)
	return pe, ok
}

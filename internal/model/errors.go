package model

import (
	"errors"
	"fmt"
)

// Resources named by NotFoundError and AlreadyExistsError.
const (
	ResourceUser       = "user"
	ResourceDepartment = "department"
	ResourceRequest    = "request"
	ResourceOfficer    = "officer"
	ResourceCitizen    = "citizen"
	ResourceUsername   = "username"
	ResourceEmail      = "email"
)

// Operations named by InvalidOperationError.
const (
	OpAssign       = "assign"
	OpUpdate       = "update"
	OpRegistration = "registration"
	OpPaging       = "paging"
	OpArgument     = "argument"
	OpDepartment   = "department"
	OpSubmit       = "submission"
)

type NotFoundError struct {
	Resource string
	Key      any
	Err      error
}

func (e NotFoundError) Error() string {
	if e.Key == nil {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s %v not found", e.Resource, e.Key)
}

func (e NotFoundError) Unwrap() error { return e.Err }

// AlreadyExistsError reports a uniqueness violation. Field names the
// colliding attribute when Resource alone is ambiguous.
type AlreadyExistsError struct {
	Resource string
	Field    string
	Value    string
	Err      error
}

func (e AlreadyExistsError) Error() string {
	switch {
	case e.Field != "" && e.Value != "":
		return fmt.Sprintf("%s with %s %q already exists", e.Resource, e.Field, e.Value)
	case e.Value != "":
		return fmt.Sprintf("%s %q already exists", e.Resource, e.Value)
	default:
		return fmt.Sprintf("%s already exists", e.Resource)
	}
}

func (e AlreadyExistsError) Unwrap() error { return e.Err }

// InvalidOperationError reports malformed caller input for an operation.
type InvalidOperationError struct {
	Op  string
	Msg string
	Err error
}

func (e InvalidOperationError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("invalid %s", e.Op)
	}
	return fmt.Sprintf("invalid %s: %s", e.Op, e.Msg)
}

func (e InvalidOperationError) Unwrap() error { return e.Err }

type ForbiddenError struct {
	Msg string
}

func (e ForbiddenError) Error() string {
	if e.Msg == "" {
		return "forbidden"
	}
	return e.Msg
}

type UnauthorizedError struct {
	Msg string
}

func (e UnauthorizedError) Error() string {
	if e.Msg == "" {
		return "unauthorized"
	}
	return e.Msg
}

func NotFound(resource string, key any) error {
	return NotFoundError{Resource: resource, Key: key}
}

func AlreadyExists(resource, value string) error {
	return AlreadyExistsError{Resource: resource, Value: value}
}

// UserAlreadyExists reports a signup collision on username or email.
func UserAlreadyExists(field, value string) error {
	return AlreadyExistsError{Resource: ResourceUser, Field: field, Value: value}
}

func InvalidOperation(op, msg string) error {
	return InvalidOperationError{Op: op, Msg: msg}
}

func IsNotFound(err error) bool {
	var target NotFoundError
	return errors.As(err, &target)
}

// IsNotFoundOf reports whether err is a NotFoundError for the given resource.
func IsNotFoundOf(err error, resource string) bool {
	var target NotFoundError
	return errors.As(err, &target) && target.Resource == resource
}

func IsAlreadyExists(err error) bool {
	var target AlreadyExistsError
	return errors.As(err, &target)
}

func IsInvalidOperation(err error) bool {
	var target InvalidOperationError
	return errors.As(err, &target)
}

func IsForbidden(err error) bool {
	var target ForbiddenError
	return errors.As(err, &target)
}

func IsUnauthorized(err error) bool {
	var target UnauthorizedError
	return errors.As(err, &target)
}

package services

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var log = logrus.New()

func init() {
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(logrus.InfoLevel)
}

// ErrorKind classifies a domain failure so the HTTP layer can map it to a status
type ErrorKind string

const (
	KindValidation   ErrorKind = "validation"
	KindNotFound     ErrorKind = "not_found"
	KindPermission   ErrorKind = "permission"
	KindConflict     ErrorKind = "conflict"
	KindUnauthorized ErrorKind = "unauthorized"
)

// Error is a domain error with a machine readable kind and the offending field
type Error struct {
	Kind    ErrorKind
	Field   string
	Message string
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// Is lets errors.Is match on kind and field
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Field == "" || t.Field == e.Field)
}

func validationError(field, message string) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: message}
}

func notFoundError(field, message string) *Error {
	return &Error{Kind: KindNotFound, Field: field, Message: message}
}

func permissionError(message string) *Error {
	return &Error{Kind: KindPermission, Message: message}
}

func conflictError(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

// Sentinels for errors.Is checks
var (
	ErrValidation   = &Error{Kind: KindValidation}
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrPermission   = &Error{Kind: KindPermission}
	ErrConflict     = &Error{Kind: KindConflict}
	ErrUnauthorized = &Error{Kind: KindUnauthorized}

	ErrEmptyCart = &Error{Kind: KindValidation, Field: "shopping_cart", Message: "Shopping cart is empty"}
)

// KindOf returns the kind of a domain error, or "" for anything else
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Actor is the authenticated user performing a mutation
type Actor struct {
	UserID  uint
	IsAdmin bool
}

// CanModify reports whether the actor owns the resource or is an admin
func (a Actor) CanModify(ownerID *uint) bool {
	return a.IsAdmin || (ownerID != nil && *ownerID == a.UserID)
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func isDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

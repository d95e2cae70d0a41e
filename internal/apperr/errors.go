package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error so handlers can pick a response without
// string-matching messages.
type Kind int

const (
	KindUnknown Kind = iota
	// KindValidation covers malformed or missing input; the caller can fix
	// the request and resubmit.
	KindValidation
	// KindBusiness covers requests that are well-formed but violate a
	// business rule (ceiling exceeded, wrong state, duplicate number).
	KindBusiness
	// KindNotFound covers unresolved record ids.
	KindNotFound
)

type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func Validationf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func Businessf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindBusiness, Message: fmt.Sprintf(format, args...)}
}

func NotFoundf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of err, or KindUnknown for infrastructure errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

func IsValidation(err error) bool {
	return KindOf(err) == KindValidation
}

func IsBusiness(err error) bool {
	return KindOf(err) == KindBusiness
}

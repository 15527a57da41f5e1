package errors

import (
	stderrors "errors"
	"fmt"

	goerrors "github.com/go-errors/errors"
)

type ErrorType string

const (
	ErrTypeStructural   ErrorType = "STRUCTURAL"
	ErrTypeCoercion     ErrorType = "COERCION"
	ErrTypeNotFound     ErrorType = "NOT_FOUND"
	ErrTypeInvalidInput ErrorType = "INVALID_INPUT"
	ErrTypeStorage      ErrorType = "STORAGE"
	ErrTypeInternal     ErrorType = "INTERNAL"
	ErrTypeUnavailable  ErrorType = "UNAVAILABLE"
)

type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
	Stack   []byte
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

func (e *DomainError) StackTrace() []byte {
	return e.Stack
}

func New(errType ErrorType, message string, err error) *DomainError {
	var stack []byte
	if err != nil {
		if stackErr, ok := err.(*goerrors.Error); ok {
			stack = stackErr.Stack()
		} else {
			stack = goerrors.Wrap(err, 2).Stack()
		}
	} else {
		stack = goerrors.New(message).Stack()
	}

	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
		Stack:   stack,
	}
}

// Structural reports a source file that cannot be loaded as declared.
func Structural(message string, err error) *DomainError {
	return New(ErrTypeStructural, message, err)
}

// Coercion reports a non-empty value that is not a valid number.
func Coercion(message string, err error) *DomainError {
	return New(ErrTypeCoercion, message, err)
}

func NotFound(message string, err error) *DomainError {
	return New(ErrTypeNotFound, message, err)
}

func InvalidInput(message string, err error) *DomainError {
	return New(ErrTypeInvalidInput, message, err)
}

func Storage(message string, err error) *DomainError {
	return New(ErrTypeStorage, message, err)
}

func Internal(message string, err error) *DomainError {
	return New(ErrTypeInternal, message, err)
}

func Unavailable(message string, err error) *DomainError {
	return New(ErrTypeUnavailable, message, err)
}

// TypeOf returns the type of the outermost DomainError in err's chain.
func TypeOf(err error) (ErrorType, bool) {
	var de *DomainError
	if stderrors.As(err, &de) {
		return de.Type, true
	}
	return "", false
}

func Is(err error, errType ErrorType) bool {
	t, ok := TypeOf(err)
	return ok && t == errType
}

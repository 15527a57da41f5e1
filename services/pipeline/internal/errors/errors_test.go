package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestDomainErrorWrapsCause(t *testing.T) {
	cause := stderrors.New("boom")
	err := Storage("replace table", cause)

	if !stderrors.Is(err, cause) {
		t.Fatal("errors.Is(err, cause) = false, want true")
	}
	if got := err.Error(); got != "STORAGE: replace table: boom" {
		t.Errorf("Error() = %q", got)
	}
	if len(err.StackTrace()) == 0 {
		t.Error("StackTrace() is empty")
	}
}

func TestTypeOfThroughWrapping(t *testing.T) {
	err := fmt.Errorf("clean stage: %w", Coercion("postings.views row 3", nil))

	if !Is(err, ErrTypeCoercion) {
		t.Fatalf("Is(err, COERCION) = false; err = %v", err)
	}
	if Is(err, ErrTypeStructural) {
		t.Error("Is(err, STRUCTURAL) = true, want false")
	}
	if _, ok := TypeOf(stderrors.New("plain")); ok {
		t.Error("TypeOf(plain error) reported a domain type")
	}
}

func TestConstructorsSetType(t *testing.T) {
	tests := []struct {
		err  *DomainError
		want ErrorType
	}{
		{Structural("x", nil), ErrTypeStructural},
		{Coercion("x", nil), ErrTypeCoercion},
		{NotFound("x", nil), ErrTypeNotFound},
		{InvalidInput("x", nil), ErrTypeInvalidInput},
		{Storage("x", nil), ErrTypeStorage},
		{Internal("x", nil), ErrTypeInternal},
		{Unavailable("x", nil), ErrTypeUnavailable},
	}
	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			if tt.err.Type != tt.want {
				t.Errorf("Type = %s, want %s", tt.err.Type, tt.want)
			}
			if !strings.HasPrefix(tt.err.Error(), string(tt.want)) {
				t.Errorf("Error() = %q", tt.err.Error())
			}
		})
	}
}

package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestDomainError(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		err := New(CodeUnknownCommand, "no such command")
		if err.Error() != "[UNKNOWN_COMMAND] no such command" {
			t.Errorf("expected [UNKNOWN_COMMAND] no such command, got %s", err.Error())
		}
	})

	t.Run("Wrap", func(t *testing.T) {
		original := errors.New("connection reset")
		err := Wrap(original, CodeSessionFailure, "parse failed")
		expected := "[SESSION_FAILURE] parse failed: connection reset"
		if err.Error() != expected {
			t.Errorf("expected %s, got %s", expected, err.Error())
		}
		if !errors.Is(err, original) {
			t.Error("expected wrapped error to unwrap to original")
		}
	})

	t.Run("IsCode", func(t *testing.T) {
		err := New(CodeInvalidArgument, "bad arity")
		if !IsCode(err, CodeInvalidArgument) {
			t.Error("expected IsCode to return true for CodeInvalidArgument")
		}
		if IsCode(err, CodeNotFound) {
			t.Error("expected IsCode to return false for CodeNotFound")
		}
	})

	t.Run("IsCodeThroughFmtWrap", func(t *testing.T) {
		err := fmt.Errorf("dispatch: %w", New(CodeMalformedRequest, "unbalanced"))
		if !IsCode(err, CodeMalformedRequest) {
			t.Error("expected IsCode to see through fmt wrapping")
		}
	})

	t.Run("CodeOfPlainError", func(t *testing.T) {
		if got := CodeOf(errors.New("boom")); got != CodeSessionFailure {
			t.Errorf("expected SESSION_FAILURE, got %s", got)
		}
	})

	t.Run("AddContext", func(t *testing.T) {
		err := AddContext(New(CodeNotFound, "missing"), CtxPath, "A.java")
		var de *DomainError
		if !errors.As(err, &de) {
			t.Fatal("expected DomainError")
		}
		if de.Context[CtxPath] != "A.java" {
			t.Errorf("unexpected context: %v", de.Context)
		}
		if MessageOf(err) != "missing" {
			t.Errorf("unexpected message: %q", MessageOf(err))
		}
	})
}

package errs

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestIsUserError(t *testing.T) {
	if !IsUserError(ErrProjectNotFound) {
		t.Error("ErrProjectNotFound should be a user error")
	}
	if !IsUserError(fmt.Errorf("renaming: %w", ErrInvalidName)) {
		t.Error("wrapped user errors should still be user errors")
	}
	if IsUserError(Store(errors.New("connection refused"))) {
		t.Error("internal errors must not be user errors")
	}
}

func TestInternalErrorOpaque(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := Store(cause)

	if strings.Contains(err.Error(), "connection refused") {
		t.Errorf("internal error message leaks cause: %q", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("internal error should unwrap to its cause")
	}

	var internal *InternalError
	if !errors.As(err, &internal) {
		t.Fatal("expected *InternalError")
	}
	if internal.CorrelationID == "" {
		t.Error("correlation id must be set")
	}
}

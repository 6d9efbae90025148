package application

import "testing"

func TestValidationError_Error(t *testing.T) {
	t.Parallel()

	var err *ValidationError
	if err.Error() != "" {
		t.Fatalf("expected empty string for nil error, got %q", err.Error())
	}

	empty := &ValidationError{}
	if got := empty.Error(); got != "validation failed" {
		t.Fatalf("expected generic message for empty error, got %q", got)
	}

	withFields := &ValidationError{FieldErrors: map[string]string{"period": "invalid", "equipmentId": "missing"}}
	if got := withFields.Error(); got != "validation failed: equipmentId, period" {
		t.Fatalf("expected sorted field list, got %q", got)
	}
}

func TestValidationError_Add(t *testing.T) {
	t.Parallel()

	base := &ValidationError{}
	if base.errOrNil() != nil {
		t.Fatalf("empty validation error must not surface")
	}

	base.add("first", "value")
	base.add("first", "ignored")
	if got := base.FieldErrors["first"]; got != "value" {
		t.Fatalf("expected first message to win, got %q", got)
	}

	base.add("second", "another")
	if len(base.FieldErrors) != 2 || base.errOrNil() == nil {
		t.Fatalf("expected two recorded fields, got %+v", base.FieldErrors)
	}
}

// Package apperror provides tests for the custom error types and utility functions.
package apperror

import (
	"context"
	"errors"
	"net/http"
	"testing"
)

// TestError_Error verifies that the Error() method returns the correct string format.
func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name:     "without field",
			err:      New(CodeInvalidGeometry, "segment has fewer than two vertices"),
			expected: "[INVALID_GEOMETRY] segment has fewer than two vertices",
		},
		{
			name:     "with field",
			err:      NewWithField(CodeInvalidCoordinate, "coordinate is not finite", "assets[2]"),
			expected: "[INVALID_COORDINATE] coordinate is not finite (field: assets[2])",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %v, want %v", got, tt.expected)
			}
		})
	}
}

// TestError_Unwrap verifies that the Unwrap() method correctly returns the underlying cause.
func TestError_Unwrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := Wrap(cause, CodeInternal, "wrapped error")

	if unwrapped := err.Unwrap(); unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}
}

// TestError_HTTPStatus verifies that ErrorCodes map to the correct HTTP status codes.
func TestError_HTTPStatus(t *testing.T) {
	tests := []struct {
		name           string
		code           ErrorCode
		expectedStatus int
	}{
		{"bad request", CodeInvalidArgument, http.StatusBadRequest},
		{"nil input", CodeNilInput, http.StatusBadRequest},
		{"validation failed", CodeValidationFailed, http.StatusUnprocessableEntity},
		{"disconnected graph", CodeGraphDisconnected, http.StatusUnprocessableEntity},
		{"snap failure", CodeSnapFailed, http.StatusUnprocessableEntity},
		{"not found", CodeNotFound, http.StatusNotFound},
		{"unauthorized", CodeUnauthorized, http.StatusUnauthorized},
		{"rate limited", CodeRateLimited, http.StatusTooManyRequests},
		{"canceled", CodeCanceled, StatusClientClosedRequest},
		{"timeout", CodeTimeout, http.StatusGatewayTimeout},
		{"internal", CodeInternal, http.StatusInternalServerError},
		{"database", CodeDatabaseError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, "test message")
			if got := err.HTTPStatus(); got != tt.expectedStatus {
				t.Errorf("HTTPStatus() = %v, want %v", got, tt.expectedStatus)
			}
		})
	}
}

// TestHTTPStatus_PlainError verifies that non-application errors map to 500
// and a nil error maps to 200.
func TestHTTPStatus_PlainError(t *testing.T) {
	if got := HTTPStatus(errors.New("boom")); got != http.StatusInternalServerError {
		t.Errorf("HTTPStatus(plain) = %v, want %v", got, http.StatusInternalServerError)
	}
	if got := HTTPStatus(nil); got != http.StatusOK {
		t.Errorf("HTTPStatus(nil) = %v, want %v", got, http.StatusOK)
	}
}

// TestNew verifies the New function correctly initializes an Error.
func TestNew(t *testing.T) {
	err := New(CodeEmptyStreets, "street list is empty")

	if err.Code != CodeEmptyStreets {
		t.Errorf("Code = %v, want %v", err.Code, CodeEmptyStreets)
	}
	if err.Message != "street list is empty" {
		t.Errorf("Message = %v, want %v", err.Message, "street list is empty")
	}
	if err.Severity != SeverityError {
		t.Errorf("Severity = %v, want %v", err.Severity, SeverityError)
	}
}

// TestNewWarning verifies the NewWarning function correctly initializes an Error with SeverityWarning.
func TestNewWarning(t *testing.T) {
	err := NewWarning(CodeSnapFailed, "asset beyond snap distance")

	if err.Severity != SeverityWarning {
		t.Errorf("Severity = %v, want %v", err.Severity, SeverityWarning)
	}
}

// TestNewCritical verifies the NewCritical function correctly initializes an Error with SeverityCritical.
func TestNewCritical(t *testing.T) {
	err := NewCritical(CodeDatabaseError, "connection pool exhausted")

	if err.Severity != SeverityCritical {
		t.Errorf("Severity = %v, want %v", err.Severity, SeverityCritical)
	}
}

// TestWithDetails verifies that details are attached and the error is returned for chaining.
func TestWithDetails(t *testing.T) {
	err := New(CodeGraphDisconnected, "2 components remain").
		WithDetails("components", 2).
		WithDetails("largest", 120)

	if err.Details["components"] != 2 {
		t.Errorf("Details[components] = %v, want 2", err.Details["components"])
	}
	if err.Details["largest"] != 120 {
		t.Errorf("Details[largest] = %v, want 120", err.Details["largest"])
	}
}

// TestWithField verifies that WithField sets the field.
func TestWithField(t *testing.T) {
	err := New(CodeInvalidDemand, "demand must not be negative").WithField("assets[0].demand_kw")
	if err.Field != "assets[0].demand_kw" {
		t.Errorf("Field = %v, want assets[0].demand_kw", err.Field)
	}
}

// TestIs verifies code matching through wrapped error chains.
func TestIs(t *testing.T) {
	base := New(CodeSnapFailed, "no segment within reach")
	wrapped := Wrap(base, CodeInternal, "pipeline failed")

	if !Is(base, CodeSnapFailed) {
		t.Error("Is(base, CodeSnapFailed) = false, want true")
	}
	// errors.As finds the outermost *Error, so the wrapped chain reports the outer code.
	if !Is(wrapped, CodeInternal) {
		t.Error("Is(wrapped, CodeInternal) = false, want true")
	}
	if Is(errors.New("plain"), CodeSnapFailed) {
		t.Error("Is(plain, CodeSnapFailed) = true, want false")
	}
}

// TestCode verifies ErrorCode extraction.
func TestCode(t *testing.T) {
	if got := Code(New(CodeRoutingFailed, "unreachable")); got != CodeRoutingFailed {
		t.Errorf("Code() = %v, want %v", got, CodeRoutingFailed)
	}
	if got := Code(errors.New("plain")); got != CodeInternal {
		t.Errorf("Code(plain) = %v, want %v", got, CodeInternal)
	}
}

// TestFromContextErr verifies mapping of context errors onto application errors.
func TestFromContextErr(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := FromContextErr(ctx.Err())
	if !Is(err, CodeCanceled) {
		t.Errorf("FromContextErr(canceled) code = %v, want %v", Code(err), CodeCanceled)
	}

	err = FromContextErr(context.DeadlineExceeded)
	if !Is(err, CodeTimeout) {
		t.Errorf("FromContextErr(deadline) code = %v, want %v", Code(err), CodeTimeout)
	}

	plain := errors.New("plain")
	if got := FromContextErr(plain); got != plain {
		t.Errorf("FromContextErr(plain) = %v, want original error", got)
	}
	if got := FromContextErr(nil); got != nil {
		t.Errorf("FromContextErr(nil) = %v, want nil", got)
	}
}

// TestIsWarning verifies severity detection on wrapped errors.
func TestIsWarning(t *testing.T) {
	if !IsWarning(NewWarning(CodeSnapFailed, "far away")) {
		t.Error("IsWarning(warning) = false, want true")
	}
	if IsWarning(New(CodeSnapFailed, "far away")) {
		t.Error("IsWarning(error) = true, want false")
	}
}

// TestIsCritical verifies critical severity detection.
func TestIsCritical(t *testing.T) {
	if !IsCritical(NewCritical(CodeInternal, "panic recovered")) {
		t.Error("IsCritical(critical) = false, want true")
	}
	if IsCritical(New(CodeInternal, "regular")) {
		t.Error("IsCritical(regular) = true, want false")
	}
}

// ============================================================================
// ValidationErrors
// ============================================================================

// TestValidationErrors_Add verifies routing of errors and warnings into the correct slices.
func TestValidationErrors_Add(t *testing.T) {
	ve := NewValidationErrors()
	ve.Add(New(CodeInvalidGeometry, "bad geometry"))
	ve.Add(NewWarning(CodeSnapFailed, "asset untouched"))

	if len(ve.Errors) != 1 {
		t.Errorf("len(Errors) = %d, want 1", len(ve.Errors))
	}
	if len(ve.Warnings) != 1 {
		t.Errorf("len(Warnings) = %d, want 1", len(ve.Warnings))
	}
}

// TestValidationErrors_IsValid verifies that warnings do not affect validity.
func TestValidationErrors_IsValid(t *testing.T) {
	ve := NewValidationErrors()
	if !ve.IsValid() {
		t.Error("empty collection should be valid")
	}

	ve.AddWarning(CodeSnapFailed, "just a warning")
	if !ve.IsValid() {
		t.Error("warnings must not invalidate the collection")
	}

	ve.AddError(CodeEmptyStreets, "no streets")
	if ve.IsValid() {
		t.Error("errors must invalidate the collection")
	}
}

// TestValidationErrors_Merge verifies merging of two collections.
func TestValidationErrors_Merge(t *testing.T) {
	a := NewValidationErrors()
	a.AddError(CodeEmptyStreets, "no streets")

	b := NewValidationErrors()
	b.AddErrorWithField(CodeInvalidCoordinate, "NaN coordinate", "streets[3]")
	b.AddWarning(CodeSnapFailed, "asset far away")

	a.Merge(b)
	if len(a.Errors) != 2 {
		t.Errorf("len(Errors) = %d, want 2", len(a.Errors))
	}
	if len(a.Warnings) != 1 {
		t.Errorf("len(Warnings) = %d, want 1", len(a.Warnings))
	}

	a.Merge(nil) // must not panic
	if len(a.Errors) != 2 {
		t.Errorf("len(Errors) after nil merge = %d, want 2", len(a.Errors))
	}
}

// TestValidationErrors_AsError verifies the collapse into a single fatal error.
func TestValidationErrors_AsError(t *testing.T) {
	ve := NewValidationErrors()
	if err := ve.AsError(); err != nil {
		t.Errorf("AsError() on valid collection = %v, want nil", err)
	}

	ve.AddError(CodeMissingSource, "no source asset in input")
	ve.AddWarning(CodeSnapFailed, "asset far away")

	err := ve.AsError()
	if err == nil {
		t.Fatal("AsError() = nil, want error")
	}
	if !Is(err, CodeValidationFailed) {
		t.Errorf("AsError() code = %v, want %v", Code(err), CodeValidationFailed)
	}

	var appErr *Error
	if !errors.As(err, &appErr) {
		t.Fatal("AsError() did not return an *Error")
	}
	msgs, ok := appErr.Details["errors"].([]string)
	if !ok || len(msgs) != 1 {
		t.Errorf("Details[errors] = %v, want one message", appErr.Details["errors"])
	}
	if _, ok := appErr.Details["warnings"]; !ok {
		t.Error("Details[warnings] missing")
	}
}

// TestValidationErrors_Messages verifies message extraction helpers.
func TestValidationErrors_Messages(t *testing.T) {
	ve := NewValidationErrors()
	ve.AddError(CodeEmptyStreets, "street list is empty")
	ve.AddWarning(CodeSnapFailed, "asset 7 beyond reach")

	em := ve.ErrorMessages()
	if len(em) != 1 || em[0] != "[EMPTY_STREETS] street list is empty" {
		t.Errorf("ErrorMessages() = %v", em)
	}
	wm := ve.WarningMessages()
	if len(wm) != 1 || wm[0] != "asset 7 beyond reach" {
		t.Errorf("WarningMessages() = %v", wm)
	}
}

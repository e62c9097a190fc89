package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorMessage(t *testing.T) {
	err := New(ErrorTypeNotFound, 404, "resource not found")
	if err.Error() == "" {
		t.Fatal("expected non-empty error message")
	}
	if err.Code != 404 {
		t.Errorf("expected code 404, got %d", err.Code)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("connection reset")
	err := Wrap(ErrorTypeTransport, 0, "request failed", cause)

	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the cause through Unwrap")
	}

	var apiErr *Error
	if !errors.As(error(err), &apiErr) {
		t.Fatal("expected errors.As to extract *Error")
	}
	if apiErr.Type != ErrorTypeTransport {
		t.Errorf("expected transport type, got %s", apiErr.Type)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		errType   ErrorType
		retryable bool
	}{
		{ErrorTypeTimeout, true},
		{ErrorTypeTransport, true},
		{ErrorTypeRateLimit, true},
		{ErrorTypeServerError, true},
		{ErrorTypeAuth, false},
		{ErrorTypeNotFound, false},
		{ErrorTypeParsing, false},
		{ErrorTypeHTTP, false},
	}

	for _, test := range tests {
		t.Run(string(test.errType), func(t *testing.T) {
			if got := IsRetryable(test.errType); got != test.retryable {
				t.Errorf("IsRetryable(%s) = %v, want %v", test.errType, got, test.retryable)
			}
		})
	}
}

func TestIsRetryableStatusCode(t *testing.T) {
	tests := []struct {
		code      int
		retryable bool
	}{
		{429, true},
		{500, true},
		{502, true},
		{503, true},
		{400, false},
		{401, false},
		{404, false},
		{200, false},
	}

	for _, test := range tests {
		t.Run(fmt.Sprintf("status_%d", test.code), func(t *testing.T) {
			if got := IsRetryableStatusCode(test.code); got != test.retryable {
				t.Errorf("IsRetryableStatusCode(%d) = %v, want %v", test.code, got, test.retryable)
			}
		})
	}
}

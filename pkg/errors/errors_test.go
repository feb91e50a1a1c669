package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestErrorString(t *testing.T) {
	err := New(ErrorTypeAuthentication, "token refresh rejected")
	if err.Error() != "authentication: token refresh rejected" {
		t.Errorf("unexpected error string: %s", err.Error())
	}

	wrapped := Wrap(stderrors.New("invalid_grant"), ErrorTypeAuthentication, "token refresh rejected")
	if wrapped.Error() != "authentication: token refresh rejected: invalid_grant" {
		t.Errorf("unexpected wrapped error string: %s", wrapped.Error())
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(nil, ErrorTypeConnection, "request failed") != nil {
		t.Error("wrapping nil should return nil")
	}
}

func TestIsTypeThroughWrapping(t *testing.T) {
	inner := New(ErrorTypeRateLimit, "too many requests")
	outer := fmt.Errorf("fetching page: %w", inner)

	if !IsType(outer, ErrorTypeRateLimit) {
		t.Error("expected rate limit type through fmt wrapping")
	}
	if IsType(outer, ErrorTypeAuthentication) {
		t.Error("unexpected authentication type match")
	}
	if IsType(stderrors.New("plain"), ErrorTypeRateLimit) {
		t.Error("plain errors carry no type")
	}
}

func TestIsTypeUsesOutermostType(t *testing.T) {
	inner := New(ErrorTypeConnection, "connection reset")
	outer := Wrap(inner, ErrorTypeData, "response truncated")

	if !IsType(outer, ErrorTypeData) {
		t.Error("expected outermost data type")
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		errType   ErrorType
		retryable bool
	}{
		{ErrorTypeRateLimit, true},
		{ErrorTypeTimeout, true},
		{ErrorTypeConnection, true},
		{ErrorTypeAuthentication, false},
		{ErrorTypeData, false},
		{ErrorTypeConfig, false},
		{ErrorTypeCapability, false},
	}

	for _, test := range tests {
		err := New(test.errType, "boom")
		if IsRetryable(err) != test.retryable {
			t.Errorf("IsRetryable(%s) = %v, expected %v", test.errType, !test.retryable, test.retryable)
		}
	}

	if IsRetryable(stderrors.New("plain")) {
		t.Error("plain errors are not retryable")
	}
}

func TestWithDetail(t *testing.T) {
	err := New(ErrorTypeData, "unexpected payload").
		WithDetail("stream", "adaccounts").
		WithDetail("status", 502)

	if err.Details["stream"] != "adaccounts" {
		t.Errorf("expected stream detail, got %v", err.Details["stream"])
	}
	if err.Details["status"] != 502 {
		t.Errorf("expected status detail, got %v", err.Details["status"])
	}
}

func TestUnwrap(t *testing.T) {
	cause := stderrors.New("dial tcp: connection refused")
	err := Wrap(cause, ErrorTypeConnection, "request failed")

	if !stderrors.Is(err, cause) {
		t.Error("expected errors.Is to reach the cause")
	}
}

func TestWrapPreservesStack(t *testing.T) {
	inner := New(ErrorTypeConnection, "connection reset")
	outer := Wrap(inner, ErrorTypeData, "response truncated")

	if len(outer.Stack) == 0 {
		t.Fatal("expected a captured stack")
	}
	if outer.Stack[0] != inner.Stack[0] {
		t.Error("expected the original stack to be preserved")
	}
}

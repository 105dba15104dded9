package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(ErrorTypeNetwork))
	assert.True(t, IsRetryable(ErrorTypeRateLimit))
	assert.True(t, IsRetryable(ErrorTypeChallenge))
	assert.True(t, IsRetryable(ErrorTypeServerError))

	assert.False(t, IsRetryable(ErrorTypeNotFound))
	assert.False(t, IsRetryable(ErrorTypeParsing))
	assert.False(t, IsRetryable(ErrorTypeFatal))
	assert.False(t, IsRetryable(ErrorTypeUnknown))
}

func TestIsFatal(t *testing.T) {
	assert.True(t, IsFatal(&Error{Type: ErrorTypeFatal, Message: "backend gone"}))
	assert.False(t, IsFatal(&Error{Type: ErrorTypeNetwork, Message: "timeout"}))
	assert.False(t, IsFatal(errors.New("plain error")))
	assert.False(t, IsFatal(nil))
}

func TestIsFatalUnwrapsChains(t *testing.T) {
	fatal := &Error{Type: ErrorTypeFatal, Message: "backend gone"}
	assert.True(t, IsFatal(fmt.Errorf("giving up after 3 attempts: %w", fatal)))

	network := &Error{Type: ErrorTypeNetwork, Message: "timeout"}
	assert.False(t, IsFatal(fmt.Errorf("giving up after 3 attempts: %w", network)))
}

func TestIsRetryableStatusCode(t *testing.T) {
	retryable := []int{0, 403, 429, 500, 502, 503, 504, 599}
	for _, code := range retryable {
		assert.True(t, IsRetryableStatusCode(code), "status %d", code)
	}

	final := []int{200, 301, 400, 401, 404, 410}
	for _, code := range final {
		assert.False(t, IsRetryableStatusCode(code), "status %d", code)
	}
}

func TestErrorString(t *testing.T) {
	err := &Error{Type: ErrorTypeRateLimit, Message: "slow down", Code: 429}
	assert.Contains(t, err.Error(), "rate_limit")
	assert.Contains(t, err.Error(), "slow down")
}

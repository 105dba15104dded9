package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "shipsnap/pkg/errors"
	"shipsnap/pkg/logger"
)

func fastConfig() *Config {
	return &Config{
		MaxAttempts: 3,
		Backoff:     &ConstantBackoff{Delay: time.Millisecond},
		RetryIf:     DefaultRetryIf,
		Context:     context.Background(),
		Logger:      logger.NewTestLogger(),
	}
}

func TestDoSucceedsAfterRetries(t *testing.T) {
	attempts := 0
	err := Do(func() error {
		attempts++
		if attempts < 3 {
			return &errs.Error{Type: errs.ErrorTypeNetwork, Message: "flaky"}
		}
		return nil
	}, fastConfig())

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestDoExhaustsAttempts(t *testing.T) {
	attempts := 0
	err := Do(func() error {
		attempts++
		return &errs.Error{Type: errs.ErrorTypeServerError, Message: "down"}
	}, fastConfig())

	require.Error(t, err)
	assert.Equal(t, 3, attempts)
}

func TestDoDoesNotRetryNonRetryable(t *testing.T) {
	attempts := 0
	err := Do(func() error {
		attempts++
		return &errs.Error{Type: errs.ErrorTypeNotFound, Message: "gone"}
	}, fastConfig())

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestDoDoesNotRetryContextErrors(t *testing.T) {
	attempts := 0
	err := Do(func() error {
		attempts++
		return context.Canceled
	}, fastConfig())

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestDoWithResult(t *testing.T) {
	attempts := 0
	val, err := DoWithResult(func() (string, error) {
		attempts++
		if attempts < 2 {
			return "", errors.New("transient")
		}
		return "done", nil
	}, fastConfig())

	require.NoError(t, err)
	assert.Equal(t, "done", val)
}

func TestRetrierReusesConfig(t *testing.T) {
	r := NewRetrier(fastConfig())

	attempts := 0
	err := r.Do(func() error {
		attempts++
		if attempts < 2 {
			return &errs.Error{Type: errs.ErrorTypeNetwork, Message: "flaky"}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestRetrierWithModifiersDoesNotMutateOriginal(t *testing.T) {
	base := NewRetrier(fastConfig())
	tight := base.WithMaxAttempts(1).
		WithBackoff(&ConstantBackoff{Delay: time.Millisecond}).
		WithContext(context.Background())

	attempts := 0
	fail := func() error {
		attempts++
		return &errs.Error{Type: errs.ErrorTypeServerError, Message: "down"}
	}

	require.Error(t, tight.Do(fail))
	assert.Equal(t, 1, attempts, "derived retrier stops after one attempt")

	attempts = 0
	require.Error(t, base.Do(fail))
	assert.Equal(t, 3, attempts, "original retrier keeps its attempt ceiling")
}

func TestHTTPRetrierSwitchesBackoffByErrorType(t *testing.T) {
	hr := NewHTTPRetrier(3, logger.NewTestLogger())
	// Shrink the per-type delays so the test does not sleep for real.
	fast := &ConstantBackoff{Delay: time.Millisecond}
	hr.errorTypeBackoff = &ErrorTypeBackoff{
		NetworkErrorBackoff: fast,
		RateLimitBackoff:    fast,
		ChallengeBackoff:    fast,
		ServerErrorBackoff:  fast,
		DefaultBackoff:      fast,
	}
	hr.config.Backoff = fast

	attempts := 0
	err := hr.DoWithErrorType(func() error {
		attempts++
		if attempts < 3 {
			return &errs.Error{Type: errs.ErrorTypeRateLimit, Message: "slow down", Code: 429}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestExponentialBackoffGrowsAndCaps(t *testing.T) {
	eb := &ExponentialBackoff{
		BaseDelay:    time.Second,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0,
	}

	assert.Equal(t, time.Duration(0), eb.NextDelay(0))
	assert.Equal(t, time.Second, eb.NextDelay(1))
	assert.Equal(t, 2*time.Second, eb.NextDelay(2))
	assert.Equal(t, 4*time.Second, eb.NextDelay(3))
	assert.Equal(t, 5*time.Second, eb.NextDelay(4), "delay is capped at MaxDelay")
}

func TestExponentialBackoffJitterStaysInBounds(t *testing.T) {
	eb := &ExponentialBackoff{
		BaseDelay:    time.Second,
		MaxDelay:     time.Minute,
		Multiplier:   2.0,
		JitterFactor: 0.1,
	}

	for i := 0; i < 50; i++ {
		d := eb.NextDelay(2)
		assert.GreaterOrEqual(t, d, 1800*time.Millisecond)
		assert.LessOrEqual(t, d, 2200*time.Millisecond)
	}
}

func TestWaitHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Wait(ctx, time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestErrorTypeBackoffSelection(t *testing.T) {
	etb := NewErrorTypeBackoff()

	rl := etb.GetBackoffForError(string(errs.ErrorTypeRateLimit))
	ch := etb.GetBackoffForError(string(errs.ErrorTypeChallenge))
	require.NotNil(t, rl)
	require.NotNil(t, ch)
	assert.Less(t, ch.NextDelay(1), rl.NextDelay(1), "challenge backoff is shorter, the session is recreated anyway")
}

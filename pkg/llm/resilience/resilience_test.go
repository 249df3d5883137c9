package resilience

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fedscope/fedscope/pkg/utils/httpclient"
)

func TestCircuitBreaker_ClosedState(t *testing.T) {
	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig())
	assert.Equal(t, StateClosed, cb.State())

	err := cb.Execute(func() error { return nil })
	require.NoError(t, err)
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_OpenOnMaxFailures(t *testing.T) {
	config := &CircuitBreakerConfig{
		MaxFailures:      3,
		Timeout:          1 * time.Second,
		HalfOpenMaxCalls: 1,
	}
	cb := NewCircuitBreaker(config)

	testErr := errors.New("test error")
	for i := 0; i < 3; i++ {
		err := cb.Execute(func() error { return testErr })
		assert.Error(t, err)
	}

	assert.Equal(t, StateOpen, cb.State())

	err := cb.Execute(func() error { return nil })
	assert.ErrorIs(t, err, ErrCircuitBreakerOpen)
}

func TestCircuitBreaker_HalfOpenTransition(t *testing.T) {
	config := &CircuitBreakerConfig{
		MaxFailures:      2,
		Timeout:          100 * time.Millisecond,
		HalfOpenMaxCalls: 1,
	}
	cb := NewCircuitBreaker(config)

	testErr := errors.New("test error")
	for i := 0; i < 2; i++ {
		_ = cb.Execute(func() error { return testErr })
	}
	assert.Equal(t, StateOpen, cb.State())

	time.Sleep(150 * time.Millisecond)

	err := cb.Execute(func() error { return nil })
	require.NoError(t, err)
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenFailure(t *testing.T) {
	config := &CircuitBreakerConfig{
		MaxFailures:      2,
		Timeout:          100 * time.Millisecond,
		HalfOpenMaxCalls: 1,
	}
	cb := NewCircuitBreaker(config)

	testErr := errors.New("test error")
	for i := 0; i < 2; i++ {
		_ = cb.Execute(func() error { return testErr })
	}
	assert.Equal(t, StateOpen, cb.State())

	time.Sleep(150 * time.Millisecond)

	_ = cb.Execute(func() error { return testErr })
	assert.Equal(t, StateOpen, cb.State())
}

func TestCircuitBreaker_Reset(t *testing.T) {
	config := &CircuitBreakerConfig{
		MaxFailures:      1,
		Timeout:          1 * time.Second,
		HalfOpenMaxCalls: 1,
	}
	cb := NewCircuitBreaker(config)

	_ = cb.Execute(func() error { return errors.New("boom") })
	assert.Equal(t, StateOpen, cb.State())

	cb.Reset()
	assert.Equal(t, StateClosed, cb.State())
}

func TestRetryWithBackoff_SucceedsAfterFailures(t *testing.T) {
	config := &RetryConfig{
		MaxAttempts:     3,
		InitialDelay:    1 * time.Millisecond,
		MaxDelay:        10 * time.Millisecond,
		Multiplier:      2.0,
		RetryableErrors: func(err error) bool { return true },
	}

	attempts := 0
	err := RetryWithBackoff(context.Background(), config, func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryWithBackoff_NonRetryableStops(t *testing.T) {
	config := &RetryConfig{
		MaxAttempts:     5,
		InitialDelay:    1 * time.Millisecond,
		MaxDelay:        10 * time.Millisecond,
		Multiplier:      2.0,
		RetryableErrors: func(err error) bool { return false },
	}

	attempts := 0
	permanent := errors.New("permanent")
	err := RetryWithBackoff(context.Background(), config, func() error {
		attempts++
		return permanent
	})

	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, attempts)
}

func TestRetryWithBackoff_MaxAttemptsExceeded(t *testing.T) {
	config := &RetryConfig{
		MaxAttempts:     3,
		InitialDelay:    1 * time.Millisecond,
		MaxDelay:        10 * time.Millisecond,
		Multiplier:      2.0,
		RetryableErrors: func(err error) bool { return true },
	}

	attempts := 0
	err := RetryWithBackoff(context.Background(), config, func() error {
		attempts++
		return errors.New("always fails")
	})

	assert.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.Contains(t, err.Error(), "max retry attempts")
}

func TestRetryWithBackoff_ContextCanceled(t *testing.T) {
	config := &RetryConfig{
		MaxAttempts:     10,
		InitialDelay:    50 * time.Millisecond,
		MaxDelay:        1 * time.Second,
		Multiplier:      2.0,
		RetryableErrors: func(err error) bool { return true },
	}

	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0
	errCh := make(chan error, 1)
	go func() {
		errCh <- RetryWithBackoff(ctx, config, func() error {
			attempts++
			return errors.New("transient")
		})
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	err := <-errCh
	assert.ErrorIs(t, err, context.Canceled)
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "nil error",
			err:  nil,
			want: false,
		},
		{
			name: "circuit breaker open",
			err:  ErrCircuitBreakerOpen,
			want: false,
		},
		{
			name: "context canceled",
			err:  context.Canceled,
			want: false,
		},
		{
			name: "deadline exceeded",
			err:  context.DeadlineExceeded,
			want: false,
		},
		{
			name: "rate limited",
			err:  &httpclient.StatusError{Code: 429, Body: "slow down"},
			want: true,
		},
		{
			name: "server error",
			err:  &httpclient.StatusError{Code: 503, Body: "unavailable"},
			want: true,
		},
		{
			name: "request timeout status",
			err:  &httpclient.StatusError{Code: 408},
			want: true,
		},
		{
			name: "client error",
			err:  &httpclient.StatusError{Code: 400, Body: "bad request"},
			want: false,
		},
		{
			name: "unauthorized",
			err:  &httpclient.StatusError{Code: 401},
			want: false,
		},
		{
			name: "network timeout",
			err:  timeoutError{},
			want: true,
		},
		{
			name: "dns error",
			err:  &net.DNSError{Err: "no such host", Name: "example.invalid"},
			want: true,
		},
		{
			name: "connection reset",
			err:  errors.New("read tcp 127.0.0.1:1234: connection reset by peer"),
			want: true,
		},
		{
			name: "plain error",
			err:  errors.New("something else"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryableError(tt.err))
		})
	}
}

func TestResilientChatProvider_RetriesTransientFailures(t *testing.T) {
	fake := &fakeChatProvider{failuresBeforeSuccess: 2, response: "ok"}
	provider := NewResilientChatProvider(fake, &RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 1 * time.Millisecond,
		MaxDelay:     10 * time.Millisecond,
		Multiplier:   2.0,
	}, nil)

	result, err := provider.Generate(context.Background(), "prompt", "system", nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 3, fake.calls)
	assert.Equal(t, "fake-resilient", provider.Name())
}

type fakeChatProvider struct {
	failuresBeforeSuccess int
	response              string
	calls                 int
}

func (f *fakeChatProvider) Generate(ctx context.Context, prompt, systemPrompt string, stop []string) (string, error) {
	f.calls++
	if f.calls <= f.failuresBeforeSuccess {
		return "", &httpclient.StatusError{Code: 503}
	}
	return f.response, nil
}

func (f *fakeChatProvider) Name() string { return "fake" }

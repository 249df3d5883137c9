package resilience

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/fedscope/fedscope/pkg/llm"
	"github.com/fedscope/fedscope/pkg/utils/httpclient"
	"github.com/kart-io/logger"
)

// ResilientEmbeddingProvider wraps an EmbeddingProvider with retry and
// circuit breaking.
type ResilientEmbeddingProvider struct {
	provider llm.EmbeddingProvider
	retry    *RetryConfig
	cb       *CircuitBreaker
}

// NewResilientEmbeddingProvider creates a resilient embedding provider.
func NewResilientEmbeddingProvider(
	provider llm.EmbeddingProvider,
	retryConfig *RetryConfig,
	cbConfig *CircuitBreakerConfig,
) *ResilientEmbeddingProvider {
	if retryConfig == nil {
		retryConfig = DefaultRetryConfig()
	}
	if cbConfig == nil {
		cbConfig = DefaultCircuitBreakerConfig()
	}
	if retryConfig.RetryableErrors == nil {
		retryConfig.RetryableErrors = IsRetryableError
	}

	return &ResilientEmbeddingProvider{
		provider: provider,
		retry:    retryConfig,
		cb:       NewCircuitBreaker(cbConfig),
	}
}

// Embed generates embeddings with retry and circuit breaking.
func (r *ResilientEmbeddingProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	var result [][]float32

	err := RetryWithCircuitBreaker(ctx, r.retry, r.cb, func() error {
		var innerErr error
		result, innerErr = r.provider.Embed(ctx, texts)
		return innerErr
	})

	return result, err
}

// EmbedSingle generates a single embedding with retry and circuit breaking.
func (r *ResilientEmbeddingProvider) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	var result []float32

	err := RetryWithCircuitBreaker(ctx, r.retry, r.cb, func() error {
		var innerErr error
		result, innerErr = r.provider.EmbedSingle(ctx, text)
		return innerErr
	})

	return result, err
}

// Name returns the provider name.
func (r *ResilientEmbeddingProvider) Name() string {
	return r.provider.Name() + "-resilient"
}

// CircuitBreaker exposes the breaker for monitoring.
func (r *ResilientEmbeddingProvider) CircuitBreaker() *CircuitBreaker {
	return r.cb
}

// ResilientChatProvider wraps a ChatProvider with retry and circuit breaking.
type ResilientChatProvider struct {
	provider llm.ChatProvider
	retry    *RetryConfig
	cb       *CircuitBreaker
}

// NewResilientChatProvider creates a resilient chat provider.
func NewResilientChatProvider(
	provider llm.ChatProvider,
	retryConfig *RetryConfig,
	cbConfig *CircuitBreakerConfig,
) *ResilientChatProvider {
	if retryConfig == nil {
		retryConfig = DefaultRetryConfig()
	}
	if cbConfig == nil {
		cbConfig = DefaultCircuitBreakerConfig()
	}
	if retryConfig.RetryableErrors == nil {
		retryConfig.RetryableErrors = IsRetryableError
	}

	return &ResilientChatProvider{
		provider: provider,
		retry:    retryConfig,
		cb:       NewCircuitBreaker(cbConfig),
	}
}

// Generate produces a completion with retry and circuit breaking.
func (r *ResilientChatProvider) Generate(ctx context.Context, prompt, systemPrompt string, stop []string) (string, error) {
	var result string

	err := RetryWithCircuitBreaker(ctx, r.retry, r.cb, func() error {
		var innerErr error
		result, innerErr = r.provider.Generate(ctx, prompt, systemPrompt, stop)
		return innerErr
	})

	return result, err
}

// Name returns the provider name.
func (r *ResilientChatProvider) Name() string {
	return r.provider.Name() + "-resilient"
}

// CircuitBreaker exposes the breaker for monitoring.
func (r *ResilientChatProvider) CircuitBreaker() *CircuitBreaker {
	return r.cb
}

// IsRetryableError reports whether an error is worth retrying.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrCircuitBreakerOpen) {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	// Rate limiting and server-side failures are transient.
	if httpclient.IsRateLimited(err) {
		logger.Debugw("rate limit error, retryable", "error", err.Error())
		return true
	}
	var statusErr *httpclient.StatusError
	if errors.As(err, &statusErr) {
		retryable := statusErr.Code >= 500 || statusErr.Code == http.StatusRequestTimeout
		logger.Debugw("http status error",
			"status", statusErr.Code,
			"retryable", retryable,
		)
		return retryable
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		logger.Debugw("network timeout, retryable", "error", err.Error())
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		logger.Debugw("DNS error, retryable", "error", err.Error())
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		logger.Debugw("network operation error, retryable", "error", err.Error())
		return true
	}

	errMsg := err.Error()
	if errors.Is(err, http.ErrServerClosed) ||
		strings.Contains(errMsg, "EOF") ||
		strings.Contains(errMsg, "connection reset") {
		logger.Debugw("connection error, retryable", "error", errMsg)
		return true
	}

	logger.Debugw("error not retryable", "error", errMsg)
	return false
}

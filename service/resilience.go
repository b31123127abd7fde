package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"
)

const (
	defaultCallTimeout    = 60 * time.Second
	defaultMaxRetries     = 2
	defaultInitialBackoff = time.Second
)

// RetryPolicy bounds every call made through a resilient port
type RetryPolicy struct {
	Timeout        time.Duration // Per attempt; zero disables the timeout
	MaxRetries     int           // Retries after the first attempt
	InitialBackoff time.Duration // Doubled after every failed attempt
	Limiter        *rate.Limiter // Optional client-side rate limit
}

// DefaultRetryPolicy returns a 60s timeout with at most 2 retries
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Timeout:        defaultCallTimeout,
		MaxRetries:     defaultMaxRetries,
		InitialBackoff: defaultInitialBackoff,
	}
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks an error as not worth retrying
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// isRetryable mirrors the rule of never retrying bad requests or auth failures
func isRetryable(err error) bool {
	var perm *permanentError
	if errors.As(err, &perm) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
			return false
		}
	}
	return true
}

func withRetry[T any](ctx context.Context, policy RetryPolicy, logger *zap.Logger, op string, call func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error
	backoff := policy.InitialBackoff
	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		if attempt > 0 {
			logger.Warn("retrying call",
				zap.String("op", op),
				zap.Int("attempt", attempt+1),
				zap.Duration("backoff", backoff),
				zap.Error(lastErr),
			)
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		if policy.Limiter != nil {
			if err := policy.Limiter.Wait(ctx); err != nil {
				return zero, fmt.Errorf("%s: rate limiter: %w", op, err)
			}
		}

		result, err := callWithTimeout(ctx, policy.Timeout, call)
		if err == nil {
			return result, nil
		}
		lastErr = err

		// The caller gave up; the per-attempt deadline is the only timeout we retry.
		if ctx.Err() != nil || !isRetryable(err) {
			break
		}
	}
	return zero, fmt.Errorf("%s failed after retries: %w", op, lastErr)
}

func callWithTimeout[T any](ctx context.Context, timeout time.Duration, call func(ctx context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return call(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return call(attemptCtx)
}

// ResilientGenerator adds timeout, retry and rate limiting to a TextGenerator
type ResilientGenerator struct {
	next   TextGenerator
	policy RetryPolicy
	logger *zap.Logger
}

// NewResilientGenerator wraps next with the given policy
func NewResilientGenerator(next TextGenerator, policy RetryPolicy, logger *zap.Logger) *ResilientGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResilientGenerator{next: next, policy: policy, logger: logger}
}

func (r *ResilientGenerator) Complete(ctx context.Context, prompt string, opts CompletionOptions) (*Completion, error) {
	return withRetry(ctx, r.policy, r.logger, "complete", func(ctx context.Context) (*Completion, error) {
		return r.next.Complete(ctx, prompt, opts)
	})
}

// Classify and Complexity pass through when the wrapped generator also analyzes queries.
func (r *ResilientGenerator) Classify(ctx context.Context, text string, categories []string) (string, error) {
	analyzer, ok := r.next.(QueryAnalyzer)
	if !ok {
		return "", Permanent(errors.New("generator does not support classification"))
	}
	return withRetry(ctx, r.policy, r.logger, "classify", func(ctx context.Context) (string, error) {
		return analyzer.Classify(ctx, text, categories)
	})
}

func (r *ResilientGenerator) Complexity(ctx context.Context, text string) (*ComplexityEstimate, error) {
	analyzer, ok := r.next.(QueryAnalyzer)
	if !ok {
		return nil, Permanent(errors.New("generator does not support complexity estimation"))
	}
	return withRetry(ctx, r.policy, r.logger, "complexity", func(ctx context.Context) (*ComplexityEstimate, error) {
		return analyzer.Complexity(ctx, text)
	})
}

// ResilientEmbedder adds timeout, retry and rate limiting to an Embedder
type ResilientEmbedder struct {
	next   Embedder
	policy RetryPolicy
	logger *zap.Logger
}

// NewResilientEmbedder wraps next with the given policy
func NewResilientEmbedder(next Embedder, policy RetryPolicy, logger *zap.Logger) *ResilientEmbedder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResilientEmbedder{next: next, policy: policy, logger: logger}
}

func (r *ResilientEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return withRetry(ctx, r.policy, r.logger, "embed", func(ctx context.Context) ([]float32, error) {
		return r.next.Embed(ctx, text)
	})
}

// EmbedDocument uses the document task type when the wrapped embedder has one.
func (r *ResilientEmbedder) EmbedDocument(ctx context.Context, text string) ([]float32, error) {
	return withRetry(ctx, r.policy, r.logger, "embed document", func(ctx context.Context) ([]float32, error) {
		if docEmbedder, ok := r.next.(DocumentEmbedder); ok {
			return docEmbedder.EmbedDocument(ctx, text)
		}
		return r.next.Embed(ctx, text)
	})
}

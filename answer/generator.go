package answer

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Request is one generation call.
type Request struct {
	SystemInstruction string
	Prompt            string
	Temperature       float32
}

// Generator produces free-form text from a prompt.
type Generator interface {
	Generate(ctx context.Context, request *Request) (string, error)
	Model() string
}

// BackendTimeoutError reports a generation call that exceeded its deadline.
type BackendTimeoutError struct {
	Model   string
	Elapsed time.Duration
	Err     error
}

// Error implements error.
func (e *BackendTimeoutError) Error() string {
	return fmt.Sprintf("generation with %s timed out after %s: %v", e.Model, e.Elapsed, e.Err)
}

// Unwrap returns the underlying error.
func (e *BackendTimeoutError) Unwrap() error { return e.Err }

// generateWithRetry runs one generation call with a per-attempt deadline,
// retrying timeouts up to maxRetries times with a short backoff. Context
// cancellation and non-timeout errors are surfaced immediately.
func generateWithRetry(ctx context.Context, generator Generator, request *Request, timeout time.Duration, maxRetries int) (string, error) {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
			}
		}
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		started := time.Now()
		reply, err := generator.Generate(attemptCtx, request)
		cancel()
		if err == nil {
			return reply, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if !errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		lastErr = &BackendTimeoutError{Model: generator.Model(), Elapsed: time.Since(started), Err: err}
	}
	return "", lastErr
}

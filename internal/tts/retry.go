package tts

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"
)

type ErrorKind string

const (
	KindRateLimit ErrorKind = "rate_limit"
	KindTransient ErrorKind = "transient"
	KindPermanent ErrorKind = "permanent"
)

var ErrRateLimitExhausted = errors.New("speech api rate limit exceeded, wait a moment and try again")

// Classify decides whether a failed speech call may be retried.
func Classify(err error) ErrorKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == rateLimitCode, apiErr.HTTPStatus == http.StatusTooManyRequests,
			strings.Contains(strings.ToLower(apiErr.Message), "rate limit"):
			return KindRateLimit
		case apiErr.Code == 0 && apiErr.HTTPStatus >= 500:
			return KindTransient
		}
		return KindPermanent
	}
	if strings.Contains(strings.ToLower(err.Error()), "rate limit") {
		return KindRateLimit
	}
	var netErr net.Error
	var dnsErr *net.DNSError
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.As(err, &dnsErr),
		errors.As(err, &netErr) && netErr.Timeout(),
		strings.Contains(err.Error(), "timeout"),
		strings.Contains(err.Error(), "connection reset"):
		return KindTransient
	}
	return KindPermanent
}

// Backoff is the linear wait before the next attempt.
func Backoff(kind ErrorKind, attempt int) time.Duration {
	switch kind {
	case KindRateLimit:
		return time.Duration(attempt) * 5 * time.Second
	case KindTransient:
		return time.Duration(attempt) * 2 * time.Second
	}
	return 0
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// speakWithRetry runs up to attempts calls, sleeping between retryable failures.
func (s *Synthesizer) speakWithRetry(ctx context.Context, text string, voice Voice) ([]byte, error) {
	var lastErr error
	var lastKind ErrorKind
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		audio, err := s.speaker.Speak(ctx, text, voice)
		if err == nil {
			return audio, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr, lastKind = err, Classify(err)
		if lastKind == KindPermanent {
			return nil, fmt.Errorf("generate audio: %w", err)
		}
		if attempt == s.maxAttempts {
			break
		}
		wait := Backoff(lastKind, attempt)
		s.log.Ctx(ctx).Warn("speech call failed, retrying", "attempt", attempt, "max_attempts", s.maxAttempts, "kind", lastKind, "wait", wait, "error", err)
		if err := s.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
	if lastKind == KindRateLimit {
		return nil, fmt.Errorf("%w (attempted %d times): %v", ErrRateLimitExhausted, s.maxAttempts, lastErr)
	}
	return nil, fmt.Errorf("generate audio after %d attempts: %w", s.maxAttempts, lastErr)
}

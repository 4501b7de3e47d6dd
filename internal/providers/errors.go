package providers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go/v2"
)

type ErrorType string

const (
	ErrorQuota     ErrorType = "quota"
	ErrorRate      ErrorType = "rate"
	ErrorTransient ErrorType = "transient"
	ErrorPermanent ErrorType = "permanent"
	ErrorContext   ErrorType = "context"
)

// ClassifyError decides how the manager reacts to a failed call. Message
// markers win over the HTTP status because quota and context-size failures
// arrive as 429 and 400 respectively.
func ClassifyError(err error) ErrorType {
	if err == nil {
		return ""
	}
	e := strings.ToLower(err.Error())
	switch {
	case strings.Contains(e, "insufficient_quota"), strings.Contains(e, "quota"), strings.Contains(e, "credit balance"):
		return ErrorQuota
	case strings.Contains(e, "context length"), strings.Contains(e, "context window"), strings.Contains(e, "too long"):
		return ErrorContext
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorTransient
	}
	if status := statusCode(err); status != 0 {
		return classifyStatus(status)
	}
	switch {
	case strings.Contains(e, "rate limit"), strings.Contains(e, "rate_limit"), strings.Contains(e, "429"), strings.Contains(e, "too many requests"):
		return ErrorRate
	case strings.Contains(e, "timeout"), strings.Contains(e, "temporarily"), strings.Contains(e, "unavailable"),
		strings.Contains(e, "connection reset"), strings.Contains(e, "eof"), strings.Contains(e, "overloaded"),
		strings.Contains(e, "502"), strings.Contains(e, "503"), strings.Contains(e, "529"):
		return ErrorTransient
	default:
		return ErrorPermanent
	}
}

func statusCode(err error) int {
	var oe *openai.Error
	if errors.As(err, &oe) {
		return oe.StatusCode
	}
	var ae *anthropic.Error
	if errors.As(err, &ae) {
		return ae.StatusCode
	}
	return 0
}

func classifyStatus(status int) ErrorType {
	switch {
	case status == http.StatusPaymentRequired:
		return ErrorQuota
	case status == http.StatusTooManyRequests:
		return ErrorRate
	case status == http.StatusRequestTimeout, status == http.StatusConflict, status >= 500:
		return ErrorTransient
	default:
		return ErrorPermanent
	}
}

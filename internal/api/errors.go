package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"readcast/internal/extract"
	"readcast/internal/readcast"
	"readcast/internal/tts"

	"github.com/gin-gonic/gin"
)

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Hint    string `json:"hint,omitempty"`
}

var errMalformedJSON = errors.New("malformed json request body")

func writeErr(c *gin.Context, err error) {
	status, apiErr := toAPIError(err)
	c.AbortWithStatusJSON(status, gin.H{"error": apiErr})
}

// toAPIError maps service errors onto a status and a user-safe coded message.
func toAPIError(err error) (int, apiError) {
	var extractErr *extract.Error
	var saveErr *readcast.SaveError
	switch {
	case err == nil:
		return http.StatusInternalServerError, apiError{Code: "RC-API-5000", Message: "Internal server error. Please retry or check service logs."}
	case errors.Is(err, errMalformedJSON):
		return http.StatusBadRequest, apiError{Code: "RC-API-4001", Message: "Malformed JSON request body."}
	case errors.Is(err, readcast.ErrInvalidInput):
		return http.StatusBadRequest, apiError{Code: "RC-API-4001", Message: validationMessage(err)}
	case errors.Is(err, readcast.ErrNotFound):
		return http.StatusNotFound, apiError{Code: "RC-API-4004", Message: "Requested resource was not found."}
	case errors.As(err, &extractErr):
		return http.StatusUnprocessableEntity, apiError{Code: "RC-API-4220", Message: extractErr.Message, Hint: extractErr.Suggestion}
	case errors.As(err, &saveErr) && saveErr.DocumentGenerated:
		return http.StatusInternalServerError, apiError{
			Code:    "RC-API-5030",
			Message: "The document was generated but could not be saved.",
			Hint:    "Retry the request; a new generation may be needed.",
		}
	case errors.Is(err, readcast.ErrUpstream):
		e := apiError{Code: "RC-API-5020", Message: "Upstream provider unavailable. Retry shortly."}
		if errors.Is(err, tts.ErrRateLimitExhausted) {
			e.Message = "The speech service is rate limiting requests."
			e.Hint = "Wait a moment and try again."
		}
		return http.StatusBadGateway, e
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, apiError{Code: "RC-API-5040", Message: "The request took too long. Retry shortly."}
	}

	raw := strings.ToLower(err.Error())
	switch {
	case strings.Contains(raw, "relation") && strings.Contains(raw, "does not exist"):
		return http.StatusInternalServerError, apiError{
			Code:    "RC-DB-5001",
			Message: "Database schema is not initialized. Restart the API to run migrations and retry.",
		}
	case strings.Contains(raw, "dial tcp"), strings.Contains(raw, "connection refused"), strings.Contains(raw, "connect postgres"):
		return http.StatusInternalServerError, apiError{
			Code:    "RC-DB-5002",
			Message: "Database connection is unavailable. Check local services and retry.",
		}
	}
	return http.StatusInternalServerError, apiError{Code: "RC-API-5000", Message: "Internal server error. Please retry or check service logs."}
}

// validationMessage keeps the service's validation detail without the sentinel prefix.
func validationMessage(err error) string {
	msg := err.Error()
	if i := strings.Index(msg, readcast.ErrInvalidInput.Error()+": "); i >= 0 {
		msg = msg[i+len(readcast.ErrInvalidInput.Error())+2:]
	}
	if msg == "" {
		return "Invalid request. Check inputs and retry."
	}
	return strings.ToUpper(msg[:1]) + msg[1:] + "."
}

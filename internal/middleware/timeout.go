package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"equipment-portal/internal/model"
)

const defaultRequestTimeout = 30 * time.Second

// Timeout bounds API handlers. The body on expiry is the usual error envelope.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	body, _ := json.Marshal(model.APIResponse{
		Success: false,
		Error: &model.APIError{
			Code:    "REQUEST_TIMEOUT",
			Message: "Request timed out",
		},
	})

	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, timeout, string(body))
	}
}

package identity

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// StatusError is returned for any non-2xx answer from the identity backend.
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("identity backend returned status %d", e.StatusCode)
}

// FieldErrors decodes a field-keyed validation payload such as
// {"email": ["user with this email already exists."]}. A bare string value is
// treated as a single message. Non-object bodies yield nil.
func (e *StatusError) FieldErrors() map[string][]string {
	if e == nil || len(e.Body) == 0 {
		return nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(e.Body, &raw); err != nil {
		return nil
	}

	out := make(map[string][]string, len(raw))
	for field, value := range raw {
		var list []string
		if err := json.Unmarshal(value, &list); err == nil {
			if len(list) > 0 {
				out[field] = list
			}
			continue
		}

		var single string
		if err := json.Unmarshal(value, &single); err == nil && single != "" {
			out[field] = []string{single}
		}
	}

	return out
}

func IsUnauthorized(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusUnauthorized
}

// FieldErrorsOf extracts validation errors from anywhere in an error chain.
func FieldErrorsOf(err error) map[string][]string {
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		return nil
	}

	return statusErr.FieldErrors()
}

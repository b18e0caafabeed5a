package gitlab

import (
	"encoding/json"
	"fmt"
	"strings"
)

// APIError represents a non-2xx response from the GitLab API.
type APIError struct {
	// StatusCode is the HTTP response status code.
	StatusCode int

	// Message is GitLab's "message" or "error" field, or the raw body when
	// neither is present.
	Message string
}

func (err *APIError) Error() string {
	return fmt.Sprintf("gitlab: HTTP %d: %s", err.StatusCode, err.Message)
}

// GitLab reports errors as {"message": ...} where message may be a string or
// an object of field errors, or as {"error": "..."} for OAuth failures.
func newAPIError(status int, body []byte) *APIError {
	var payload struct {
		Message json.RawMessage `json:"message"`
		Error   string          `json:"error"`
	}

	msg := strings.TrimSpace(string(body))
	if json.Unmarshal(body, &payload) == nil {
		switch {
		case len(payload.Message) > 0:
			var s string
			if json.Unmarshal(payload.Message, &s) == nil {
				msg = s
			} else {
				msg = string(payload.Message)
			}
		case payload.Error != "":
			msg = payload.Error
		}
	}
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return &APIError{StatusCode: status, Message: msg}
}

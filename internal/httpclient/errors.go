package httpclient

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// UpstreamError represents an error returned by an upstream service
type UpstreamError struct {
	StatusCode int
	Body       []byte
	URL        string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream error: status %d from %s", e.StatusCode, e.URL)
}

// Message extracts a human readable message from the error payload. It understands
// {"message"}, {"error"}, {"error": {"message"}} and RFC 9457 {"detail"} bodies and
// falls back to the status text.
func (e *UpstreamError) Message() string {
	var payload struct {
		Message string          `json:"message"`
		Detail  string          `json:"detail"`
		Title   string          `json:"title"`
		Error   json.RawMessage `json:"error"`
	}

	if err := json.Unmarshal(e.Body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if len(payload.Error) > 0 {
			var s string
			if json.Unmarshal(payload.Error, &s) == nil && s != "" {
				return s
			}
			var nested struct {
				Message string `json:"message"`
			}
			if json.Unmarshal(payload.Error, &nested) == nil && nested.Message != "" {
				return nested.Message
			}
		}
		if payload.Detail != "" {
			return payload.Detail
		}
		if payload.Title != "" {
			return payload.Title
		}
	}

	if text := strings.TrimSpace(string(e.Body)); text != "" && len(text) <= 200 && !strings.HasPrefix(text, "{") && !strings.HasPrefix(text, "<") {
		return text
	}
	return http.StatusText(e.StatusCode)
}

// RequestError means the request never produced a usable response.
type RequestError struct {
	Stage string
	Err   error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("request failed during %s: %v", e.Stage, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

package api

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Problem implements RFC 9457
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`

	Extensions map[string]interface{} `json:"-"`

	Log error `json:"-"`
}

func (p *Problem) Error() string {
	return fmt.Sprintf("[%d] %s: %s", p.Status, p.Title, p.Detail)
}

func (p *Problem) Unwrap() error {
	return p.Log
}

func (p *Problem) MarshalJSON() ([]byte, error) {
	type Alias Problem

	data := make(map[string]interface{})

	for k, v := range p.Extensions {
		data[k] = v
	}

	stdJSON, err := json.Marshal(Alias(*p))
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(stdJSON, &data); err != nil {
		return nil, err
	}

	return json.Marshal(data)
}

// UnmarshalJSON keeps unknown members as extensions.
func (p *Problem) UnmarshalJSON(b []byte) error {
	type Alias Problem
	var a Alias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	for _, k := range []string{"type", "title", "status", "detail", "instance"} {
		delete(raw, k)
	}

	*p = Problem(a)
	p.Extensions = raw
	return nil
}

type ProblemOption func(*Problem)

// New creates a generic Problem
func New(status int, title, detail string, opts ...ProblemOption) *Problem {
	p := &Problem{
		Type:       "about:blank", // Default as per RFC
		Title:      title,
		Status:     status,
		Detail:     detail,
		Extensions: make(map[string]interface{}),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// WithExtension adds a custom key-value pair to the response
func WithExtension(key string, value interface{}) ProblemOption {
	return func(p *Problem) {
		p.Extensions[key] = value
	}
}

// WithLog attaches an internal error for server-side logging
func WithLog(err error) ProblemOption {
	return func(p *Problem) {
		p.Log = err
	}
}

// WithType sets the RFC "type" URI
func WithType(uri string) ProblemOption {
	return func(p *Problem) {
		p.Type = uri
	}
}

// WithInstance sets the RFC "instance" URI
func WithInstance(uri string) ProblemOption {
	return func(p *Problem) {
		p.Instance = uri
	}
}

// ValidationError creates a rich validation error
func ValidationError(validationErrors map[string]string) *Problem {
	return New(
		http.StatusBadRequest,
		"Validation Error",
		"One or more fields failed validation",
		WithType("urn:model-registry:problem:validation"),
		WithExtension("errors", validationErrors),
	)
}

// BadRequestError creates a standard error for a bad request
func BadRequestError(detail string, opts ...ProblemOption) *Problem {
	return New(http.StatusBadRequest, "Bad Request", detail, opts...)
}

// UnauthorizedError creates a 401 unauthed error
func UnauthorizedError(detail string) *Problem {
	return New(http.StatusUnauthorized, "Unauthorized", detail)
}

// NotFoundError creates a standard 404 error
func NotFoundError(detail string) *Problem {
	return New(http.StatusNotFound, "Not Found", detail)
}

// RateLimitError creates standard 429 rate limit error
func RateLimitError(detail string) *Problem {
	return New(http.StatusTooManyRequests, "Too Many Requests", detail)
}

// InventoryError reports a failure answered by the inventory service.
func InventoryError(status int, detail string, err error) *Problem {
	return New(status, http.StatusText(status), detail,
		WithType("urn:model-registry:problem:inventory"),
		WithLog(err),
	)
}

// UnreachableError creates 502 gateway error when the inventory service cannot be reached
func UnreachableError(detail string, err error) *Problem {
	return New(http.StatusBadGateway, "Bad Gateway", detail,
		WithType("urn:model-registry:problem:unreachable"),
		WithLog(err),
	)
}

// InternalError creates a standard error for any internal server error
func InternalError(detail string, err error) *Problem {
	return New(http.StatusInternalServerError, "Internal Server Error", detail, WithLog(err))
}

package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendRequest_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"abc"}`))
	}))
	defer srv.Close()

	var out struct {
		ID string `json:"id"`
	}
	err := SendRequest(context.Background(), srv.Client(), http.MethodPost, srv.URL, map[string]string{"Authorization": "Bearer k"}, map[string]string{"a": "b"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "abc", out.ID)
}

func TestSendRequest_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"message":"name already taken"}`))
	}))
	defer srv.Close()

	err := SendRequest(context.Background(), srv.Client(), http.MethodGet, srv.URL, nil, nil, nil)

	var upErr *UpstreamError
	require.True(t, errors.As(err, &upErr))
	assert.Equal(t, http.StatusConflict, upErr.StatusCode)
	assert.Equal(t, "name already taken", upErr.Message())
}

func TestSendRequest_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	var out map[string]interface{}
	err := SendRequest(context.Background(), srv.Client(), http.MethodGet, srv.URL, nil, nil, &out)

	var reqErr *RequestError
	require.True(t, errors.As(err, &reqErr))
	assert.Equal(t, "decode", reqErr.Stage)
}

func TestSendRequest_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	err := SendRequest(context.Background(), http.DefaultClient, http.MethodGet, url, nil, nil, nil)

	var reqErr *RequestError
	require.True(t, errors.As(err, &reqErr))
	assert.Equal(t, "send", reqErr.Stage)
}

func TestUpstreamError_Message(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{`{"error":"Failed to register model"}`, "Failed to register model"},
		{`{"error":{"message":"nested"}}`, "nested"},
		{`{"type":"about:blank","title":"Bad Request","status":400,"detail":"bad provider"}`, "bad provider"},
		{`plain text failure`, "plain text failure"},
		{`<html>oops</html>`, "Internal Server Error"},
		{``, "Internal Server Error"},
	}

	for _, tt := range tests {
		e := &UpstreamError{StatusCode: http.StatusInternalServerError, Body: []byte(tt.body)}
		assert.Equal(t, tt.want, e.Message(), tt.body)
	}
}

package inventory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nulzo/model-registry/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, apiVersion string) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{BaseURL: srv.URL + "/", APIKey: "secret", APIVersion: apiVersion}, srv.Client(), nil)
	require.NoError(t, err)
	return c
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(Config{}, nil, nil)
	assert.Error(t, err)

	_, err = NewClient(Config{BaseURL: "http://inventory", APIVersion: "not-a-version"}, nil, nil)
	assert.Error(t, err)

	c, err := NewClient(Config{BaseURL: "http://inventory", APIVersion: "1.4.2"}, nil, nil)
	require.NoError(t, err)
	assert.True(t, c.Legacy())

	c, err = NewClient(Config{BaseURL: "http://inventory", APIVersion: "2.1.0"}, nil, nil)
	require.NoError(t, err)
	assert.False(t, c.Legacy())
}

func TestListModels_TranslatesBothShapes(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/model/list", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"models": [
			{"id": "a1", "model": "gpt-4", "name": "Production GPT-4", "provider": "openai", "status": "active", "registered_at": "2025-03-15T10:00:00Z", "api_url": "https://api.openai.com/v1"},
			{"id": 2, "modelId": "claude-3-sonnet", "name": "Testing Claude", "provider": "anthropic", "status": "inactive", "dateAdded": "2025-03-20"},
			{"id": "c3", "modelId": "custom", "name": "Edge", "provider": "custom", "status": "active", "customEndpoint": "https://x.example/v1"},
			{"id": "bad", "model": "gemini", "name": "Unknown", "provider": "google", "status": "active"}
		]}`))
	}, "")

	models, err := c.ListModels(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 3)

	assert.Equal(t, registry.RegisteredModel{
		ID:              "a1",
		Name:            "Production GPT-4",
		Provider:        registry.ProviderOpenAI,
		ModelIdentifier: "gpt-4",
		APIURL:          "https://api.openai.com/v1",
		Status:          registry.StatusActive,
		RegisteredAt:    time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC),
	}, models[0])

	assert.Equal(t, "2", models[1].ID)
	assert.Equal(t, "claude-3-sonnet", models[1].ModelIdentifier)
	assert.Equal(t, registry.StatusInactive, models[1].Status)
	assert.Equal(t, time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC), models[1].RegisteredAt)

	assert.Equal(t, registry.ProviderCustom, models[2].Provider)
	assert.Empty(t, models[2].ModelIdentifier)
	assert.Equal(t, "https://x.example/v1", models[2].APIURL)
}

func TestListModels_BareArray(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id": "1", "modelId": "gpt-4", "name": "P", "provider": "openai", "status": "active", "dateAdded": "2025-03-15"}]`))
	}, "")

	models, err := c.ListModels(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 1)
	assert.Equal(t, "gpt-4", models[0].ModelIdentifier)
}

func TestListProviderGroups(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/model/list/providers", r.URL.Path)
		_, _ = w.Write([]byte(`{"providers": [{"provider": "openai", "models": ["gpt-4"], "api_url": "https://api.openai.com/v1"}]}`))
	}, "")

	groups, err := c.ListProviderGroups(context.Background())
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "openai", groups[0].Provider)
	assert.Equal(t, "gpt-4", groups[0].Models[0].ID)
	assert.Equal(t, "https://api.openai.com/v1", groups[0].APIURL)
}

func TestCreateModel_StandardProvider(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/model", r.URL.Path)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Prod", body["name"])
		assert.Equal(t, "openai", body["provider"])
		assert.Equal(t, "gpt-4", body["model"])
		assert.Equal(t, "active", body["status"])
		assert.NotContains(t, body, "api_url")

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": "new-1", "model": "gpt-4", "name": "Prod", "provider": "openai", "status": "active", "registered_at": "2025-04-01T08:30:00.123Z", "api_url": "https://api.openai.com/v1"}`))
	}, "")

	m, err := c.CreateModel(context.Background(), registry.CreateInput{Name: "Prod", Provider: registry.ProviderOpenAI, ModelIdentifier: "gpt-4"})
	require.NoError(t, err)
	assert.Equal(t, "new-1", m.ID)
	assert.Equal(t, registry.StatusActive, m.Status)
	assert.Equal(t, "gpt-4", m.ModelIdentifier)
	assert.False(t, m.RegisteredAt.IsZero())
}

func TestCreateModel_CustomProvider(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "https://x.example/v1", body["api_url"])
		assert.NotContains(t, body, "model")

		_, _ = w.Write([]byte(`{"id": "c1", "name": "Edge", "provider": "custom", "status": "active", "registered_at": "2025-04-01T08:30:00Z", "api_url": "https://x.example/v1"}`))
	}, "")

	m, err := c.CreateModel(context.Background(), registry.CreateInput{Name: "Edge", Provider: registry.ProviderCustom, APIURL: "https://x.example/v1"})
	require.NoError(t, err)
	assert.Equal(t, "https://x.example/v1", m.APIURL)
	assert.Empty(t, m.ModelIdentifier)
}

func TestCreateModel_LegacyShape(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "custom", body["modelId"])
		assert.Equal(t, "https://x.example/v1", body["customEndpoint"])

		_, _ = w.Write([]byte(`{"id": "l1", "modelId": "custom", "name": "Edge", "provider": "custom", "status": "active", "dateAdded": "2025-04-01", "customEndpoint": "https://x.example/v1"}`))
	}, "1.0.0")

	m, err := c.CreateModel(context.Background(), registry.CreateInput{Name: "Edge", Provider: registry.ProviderCustom, APIURL: "https://x.example/v1"})
	require.NoError(t, err)
	assert.Equal(t, "https://x.example/v1", m.APIURL)
	assert.Empty(t, m.ModelIdentifier)
}

func TestCreateModel_RemoteError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message": "model not offered by provider"}`))
	}, "")

	_, err := c.CreateModel(context.Background(), registry.CreateInput{Name: "Prod", Provider: registry.ProviderOpenAI, ModelIdentifier: "gpt-9"})

	var rErr *registry.RemoteError
	require.ErrorAs(t, err, &rErr)
	assert.Equal(t, http.StatusUnprocessableEntity, rErr.StatusCode)
	assert.Equal(t, "model not offered by provider", rErr.Message)
}

func TestCreateModel_MalformedResponse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"name": "no id here", "provider": "openai"}`))
	}, "")

	_, err := c.CreateModel(context.Background(), registry.CreateInput{Name: "Prod", Provider: registry.ProviderOpenAI, ModelIdentifier: "gpt-4"})

	var tErr *registry.TransportError
	require.ErrorAs(t, err, &tErr)
	assert.Equal(t, "create model", tErr.Op)
}

func TestDeleteModel(t *testing.T) {
	var gotPath string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		gotPath = r.URL.EscapedPath()
		if r.URL.Path == "/model/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}, "")

	require.NoError(t, c.DeleteModel(context.Background(), "a/b"))
	assert.Equal(t, "/model/a%2Fb", gotPath)

	err := c.DeleteModel(context.Background(), "missing")
	assert.True(t, registry.IsNotFound(err))
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c, err := NewClient(Config{BaseURL: base}, nil, nil)
	require.NoError(t, err)

	_, err = c.ListModels(context.Background())
	var tErr *registry.TransportError
	require.ErrorAs(t, err, &tErr)
	assert.Equal(t, "list models", tErr.Op)
}

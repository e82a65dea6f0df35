package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nulzo/model-registry/internal/config"
	"github.com/nulzo/model-registry/internal/registry"
	"github.com/nulzo/model-registry/internal/store"
	"github.com/nulzo/model-registry/internal/store/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) CreateRegistration(ctx context.Context, in registry.CreateInput) (*registry.RegisteredModel, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*registry.RegisteredModel), args.Error(1)
}

func (m *mockGateway) DeleteRegistration(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockGateway) ListRegistrations(ctx context.Context) ([]registry.RegisteredModel, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]registry.RegisteredModel), args.Error(1)
}

func (m *mockGateway) Catalog(ctx context.Context) (registry.Catalog, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(registry.Catalog), args.Error(1)
}

type stubAudit struct {
	events []model.AuditEvent
}

func (s stubAudit) Recent(ctx context.Context, limit int) ([]model.AuditEvent, error) {
	if limit > 0 && limit < len(s.events) {
		return s.events[:limit], nil
	}
	return s.events, nil
}

func (s stubAudit) History(ctx context.Context, targetID string) ([]model.AuditEvent, error) {
	var out []model.AuditEvent
	for _, e := range s.events {
		if e.TargetResource == targetID {
			out = append(out, e)
		}
	}
	return out, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Server:    config.ServerConfig{Port: "0", Env: "test"},
		RateLimit: config.RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000},
	}
}

func setupServer(t *testing.T, gw *mockGateway, cfg *config.Config, opts ...Option) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)
	if cfg == nil {
		cfg = testConfig()
	}
	return New(cfg, zap.NewNop(), gw, opts...).Handler()
}

func do(h http.Handler, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestCreateModel_Success(t *testing.T) {
	gw := new(mockGateway)
	created := &registry.RegisteredModel{
		ID: "m1", Name: "Prod", Provider: registry.ProviderOpenAI, ModelIdentifier: "gpt-4",
		Status: registry.StatusActive, RegisteredAt: time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC),
	}
	gw.On("CreateRegistration", mock.MatchedBy(func(ctx context.Context) bool {
		return store.UserFromContext(ctx) == "ops@example.com"
	}), registry.CreateInput{Name: "Prod", Provider: registry.ProviderOpenAI, ModelIdentifier: "gpt-4"}).Return(created, nil)

	h := setupServer(t, gw, nil)
	w := do(h, http.MethodPost, "/api/models",
		map[string]string{"name": "Prod", "provider": "openai", "modelIdentifier": "gpt-4"},
		map[string]string{"X-User": "ops@example.com"})

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "m1", body["id"])
	assert.Equal(t, "gpt-4", body["modelIdentifier"])
	assert.Equal(t, "active", body["status"])
	assert.Equal(t, "2025-03-15T10:00:00Z", body["registeredAt"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	gw.AssertExpectations(t)
}

func TestCreateModel_LegacyAliases(t *testing.T) {
	gw := new(mockGateway)
	gw.On("CreateRegistration", mock.Anything, registry.CreateInput{
		Name: "Edge", Provider: registry.ProviderCustom, APIURL: "https://x.example/v1",
	}).Return(&registry.RegisteredModel{ID: "c1", Provider: registry.ProviderCustom, APIURL: "https://x.example/v1", Status: registry.StatusActive}, nil)

	h := setupServer(t, gw, nil)
	w := do(h, http.MethodPost, "/api/models",
		map[string]string{"name": "Edge", "provider": "custom", "modelId": "custom", "customEndpoint": "https://x.example/v1"}, nil)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "https://x.example/v1", body["apiUrl"])
	assert.NotContains(t, body, "modelIdentifier")
}

func TestCreateModel_ValidationProblems(t *testing.T) {
	tests := []struct {
		name  string
		body  map[string]string
		field string
	}{
		{"missing name", map[string]string{"provider": "openai", "modelIdentifier": "gpt-4"}, "name"},
		{"unknown provider", map[string]string{"name": "X", "provider": "google", "modelIdentifier": "gemini"}, "provider"},
		{"custom without endpoint", map[string]string{"name": "Edge", "provider": "custom"}, "apiUrl"},
		{"standard without model", map[string]string{"name": "Prod", "provider": "anthropic"}, "modelIdentifier"},
		{"endpoint on standard provider", map[string]string{"name": "Prod", "provider": "openai", "modelIdentifier": "gpt-4", "apiUrl": "https://x.example"}, "apiUrl"},
		{"bad endpoint", map[string]string{"name": "Edge", "provider": "custom", "apiUrl": "not a url"}, "apiUrl"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := new(mockGateway)
			h := setupServer(t, gw, nil)

			w := do(h, http.MethodPost, "/api/models", tt.body, nil)
			require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))

			body := decode(t, w)
			assert.Equal(t, "Validation Error", body["title"])
			errs, ok := body["errors"].(map[string]interface{})
			require.True(t, ok, w.Body.String())
			assert.Contains(t, errs, tt.field)
			gw.AssertNotCalled(t, "CreateRegistration", mock.Anything, mock.Anything)
		})
	}
}

func TestCreateModel_UpstreamFailures(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		detail string
	}{
		{"remote conflict", &registry.RemoteError{StatusCode: http.StatusConflict, Message: "name already taken"}, http.StatusConflict, "name already taken"},
		{"remote 5xx", &registry.RemoteError{StatusCode: http.StatusServiceUnavailable, Message: "maintenance"}, http.StatusBadGateway, "maintenance"},
		{"transport", &registry.TransportError{Op: "create model", Err: errors.New("dial tcp: refused")}, http.StatusBadGateway, "the model inventory could not be reached, please try again"},
		{"gateway validation", &registry.ValidationError{Field: "name", Reason: "is required"}, http.StatusBadRequest, "One or more fields failed validation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := new(mockGateway)
			gw.On("CreateRegistration", mock.Anything, mock.Anything).Return(nil, tt.err)
			h := setupServer(t, gw, nil)

			w := do(h, http.MethodPost, "/api/models",
				map[string]string{"name": "Prod", "provider": "openai", "modelIdentifier": "gpt-4"}, nil)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.detail, decode(t, w)["detail"])
		})
	}
}

func TestDeleteModel(t *testing.T) {
	gw := new(mockGateway)
	gw.On("DeleteRegistration", mock.Anything, "m1").Return(nil)
	gw.On("DeleteRegistration", mock.Anything, "m2").Return(&registry.RemoteError{StatusCode: http.StatusInternalServerError, Message: "storage offline"})
	h := setupServer(t, gw, nil)

	w := do(h, http.MethodDelete, "/api/models/m1", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["success"])

	w = do(h, http.MethodDelete, "/api/models/m2", nil, nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "storage offline", decode(t, w)["detail"])
}

func TestDeleteModel_EscapedSlashInID(t *testing.T) {
	gw := new(mockGateway)
	gw.On("DeleteRegistration", mock.Anything, "team/a").Return(nil)
	h := setupServer(t, gw, nil)

	w := do(h, http.MethodDelete, "/api/models/team%2Fa", nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "team/a", decode(t, w)["id"])
	gw.AssertExpectations(t)
}

func TestListModels_Filter(t *testing.T) {
	gw := new(mockGateway)
	gw.On("ListRegistrations", mock.Anything).Return([]registry.RegisteredModel{
		{ID: "m1", Status: registry.StatusActive, Provider: registry.ProviderOpenAI},
		{ID: "m2", Status: registry.StatusInactive, Provider: registry.ProviderOpenAI},
		{ID: "m3", Status: registry.StatusActive, Provider: registry.ProviderCustom},
	}, nil)
	h := setupServer(t, gw, nil)

	w := do(h, http.MethodGet, "/api/models?status=active", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "list", body["object"])
	data := body["data"].([]interface{})
	require.Len(t, data, 2)
	assert.Equal(t, "m1", data[0].(map[string]interface{})["id"])
	assert.Equal(t, "m3", data[1].(map[string]interface{})["id"])

	w = do(h, http.MethodGet, "/api/models", nil, nil)
	assert.Len(t, decode(t, w)["data"], 3)

	w = do(h, http.MethodGet, "/api/models?status=retired", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListModels_EmptyIsArray(t *testing.T) {
	gw := new(mockGateway)
	gw.On("ListRegistrations", mock.Anything).Return([]registry.RegisteredModel{}, nil)
	h := setupServer(t, gw, nil)

	w := do(h, http.MethodGet, "/api/models?status=inactive", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"object":"list","data":[]}`, w.Body.String())
}

func TestListProviders(t *testing.T) {
	gw := new(mockGateway)
	gw.On("Catalog", mock.Anything).Return(registry.Catalog{
		registry.ProviderOpenAI: {{Provider: registry.ProviderOpenAI, ModelIdentifier: "gpt-4", APIURL: "https://api.openai.com/v1"}},
	}, nil)
	h := setupServer(t, gw, nil)

	w := do(h, http.MethodGet, "/api/providers", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "catalog", body["object"])
	openai := body["data"].(map[string]interface{})["openai"].([]interface{})
	assert.Equal(t, "gpt-4", openai[0].(map[string]interface{})["modelIdentifier"])
}

func TestAuth(t *testing.T) {
	gw := new(mockGateway)
	gw.On("ListRegistrations", mock.Anything).Return([]registry.RegisteredModel{}, nil)

	cfg := testConfig()
	cfg.Server.APIKeys = []string{"proxy-key"}
	h := setupServer(t, gw, cfg)

	w := do(h, http.MethodGet, "/api/models", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(h, http.MethodGet, "/api/models", nil, map[string]string{"Authorization": "Bearer wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(h, http.MethodGet, "/api/models", nil, map[string]string{"Authorization": "Bearer proxy-key"})
	assert.Equal(t, http.StatusOK, w.Code)

	// health stays public
	w = do(h, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimit(t *testing.T) {
	gw := new(mockGateway)
	gw.On("ListRegistrations", mock.Anything).Return([]registry.RegisteredModel{}, nil)

	cfg := testConfig()
	cfg.RateLimit = config.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 1}
	h := setupServer(t, gw, cfg)

	assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/api/models", nil, nil).Code)
	w := do(h, http.MethodGet, "/api/models", nil, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
}

func TestReady(t *testing.T) {
	gw := new(mockGateway)

	h := setupServer(t, gw, nil,
		WithReadinessCheck("audit", func(ctx context.Context) error { return nil }),
		WithReadinessCheck("inventory", func(ctx context.Context) error { return errors.New("unreachable") }),
	)

	w := do(h, http.MethodGet, "/ready", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	body := decode(t, w)
	assert.Equal(t, "degraded", body["status"])
	checks := body["checks"].(map[string]interface{})
	assert.Equal(t, "ok", checks["audit"])
	assert.Equal(t, "unreachable", checks["inventory"])
}

func TestAuditEndpoint(t *testing.T) {
	gw := new(mockGateway)
	events := stubAudit{events: []model.AuditEvent{
		{ID: "e2", TargetResource: "m2", Action: model.ActionDelete, Outcome: model.OutcomeSuccess},
		{ID: "e1", TargetResource: "m1", Action: model.ActionCreate, Outcome: model.OutcomeSuccess},
	}}
	h := setupServer(t, gw, nil, WithAudit(events))

	w := do(h, http.MethodGet, "/api/audit?limit=1", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["data"], 1)

	w = do(h, http.MethodGet, "/api/audit?target=m1", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].([]interface{})
	require.Len(t, data, 1)
	assert.Equal(t, "e1", data[0].(map[string]interface{})["id"])

	w = do(h, http.MethodGet, "/api/audit?limit=0", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(h, http.MethodGet, "/api/audit?limit=9999", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

package inventory

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-version"
	"github.com/nulzo/model-registry/internal/catalog"
	"github.com/nulzo/model-registry/internal/httpclient"
	"github.com/nulzo/model-registry/internal/registry"
	"go.uber.org/zap"
)

// Deployments older than this still speak the modelId/dateAdded/customEndpoint shape.
const legacyConstraint = "< 2.0"

// Config describes how to reach the inventory service.
type Config struct {
	BaseURL    string
	APIKey     string
	APIVersion string
	Timeout    time.Duration
}

// Client talks to the external model inventory service and translates its wire shapes
// into the registry types.
type Client struct {
	http    httpclient.HTTPClient
	baseURL string
	apiKey  string
	legacy  bool
	logger  *zap.Logger
}

// NewClient validates the configuration. When hc is nil a client with cfg.Timeout is used.
func NewClient(cfg Config, hc httpclient.HTTPClient, logger *zap.Logger) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("inventory base url is required")
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("invalid inventory base url: %w", err)
	}

	legacy := false
	if cfg.APIVersion != "" {
		v, err := version.NewVersion(cfg.APIVersion)
		if err != nil {
			return nil, fmt.Errorf("invalid inventory api version %q: %w", cfg.APIVersion, err)
		}
		constraint, _ := version.NewConstraint(legacyConstraint)
		legacy = constraint.Check(v)
	}

	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		http:    hc,
		baseURL: base,
		apiKey:  cfg.APIKey,
		legacy:  legacy,
		logger:  logger.With(zap.String("component", "inventory")),
	}, nil
}

// Legacy reports whether requests are written in the pre-2.0 shape.
func (c *Client) Legacy() bool {
	return c.legacy
}

func (c *Client) headers() map[string]string {
	h := map[string]string{}
	if c.apiKey != "" {
		h["Authorization"] = "Bearer " + c.apiKey
	}
	return h
}

// ListModels fetches every registration. Records that cannot be translated are skipped.
func (c *Client) ListModels(ctx context.Context) ([]registry.RegisteredModel, error) {
	var resp listResponse
	if err := httpclient.SendRequest(ctx, c.http, http.MethodGet, c.baseURL+"/model/list", c.headers(), nil, &resp); err != nil {
		return nil, c.translate("list models", err)
	}

	models := make([]registry.RegisteredModel, 0, len(resp.Models))
	for _, rec := range resp.Models {
		m, err := rec.toDomain()
		if err != nil {
			c.logger.Warn("Skipping unreadable registration",
				zap.String("id", string(rec.ID)),
				zap.String("provider", rec.Provider),
				zap.Error(err))
			continue
		}
		models = append(models, m)
	}
	return models, nil
}

// ListProviderGroups fetches the raw provider catalog.
func (c *Client) ListProviderGroups(ctx context.Context) ([]catalog.Group, error) {
	var resp providersResponse
	if err := httpclient.SendRequest(ctx, c.http, http.MethodGet, c.baseURL+"/model/list/providers", c.headers(), nil, &resp); err != nil {
		return nil, c.translate("list providers", err)
	}
	return resp.Providers, nil
}

// CreateModel posts a registration. The input is expected to be validated already.
func (c *Client) CreateModel(ctx context.Context, in registry.CreateInput) (*registry.RegisteredModel, error) {
	in = in.Normalize()

	var rec modelRecord
	body := newCreateBody(in, c.legacy)
	if err := httpclient.SendRequest(ctx, c.http, http.MethodPost, c.baseURL+"/model", c.headers(), body, &rec); err != nil {
		return nil, c.translate("create model", err)
	}

	m, err := rec.toDomain()
	if err != nil {
		return nil, &registry.TransportError{Op: "create model", Err: fmt.Errorf("malformed response: %w", err)}
	}
	return &m, nil
}

// DeleteModel removes a registration. A 404 is reported as a RemoteError; deciding that
// it means success is left to the caller.
func (c *Client) DeleteModel(ctx context.Context, id string) error {
	endpoint := c.baseURL + "/model/" + url.PathEscape(id)
	if err := httpclient.SendRequest(ctx, c.http, http.MethodDelete, endpoint, c.headers(), nil, nil); err != nil {
		return c.translate("delete model", err)
	}
	return nil
}

func (c *Client) translate(op string, err error) error {
	var upErr *httpclient.UpstreamError
	if errors.As(err, &upErr) {
		return &registry.RemoteError{StatusCode: upErr.StatusCode, Message: upErr.Message()}
	}
	return &registry.TransportError{Op: op, Err: err}
}

// Package proxyclient talks to a running registry server over its /api surface.
package proxyclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/nulzo/model-registry/internal/httpclient"
	"github.com/nulzo/model-registry/internal/registry"
	"github.com/nulzo/model-registry/internal/store"
	"github.com/nulzo/model-registry/pkg/api"
)

type Client struct {
	http    httpclient.HTTPClient
	baseURL string
	apiKey  string
}

func New(baseURL, apiKey string, hc httpclient.HTTPClient) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if _, err := url.ParseRequestURI(base); err != nil || base == "" {
		return nil, fmt.Errorf("invalid server url %q", baseURL)
	}
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{http: hc, baseURL: base, apiKey: apiKey}, nil
}

func (c *Client) headers(ctx context.Context) map[string]string {
	h := map[string]string{"X-User": store.UserFromContext(ctx)}
	if c.apiKey != "" {
		h["Authorization"] = "Bearer " + c.apiKey
	}
	return h
}

func (c *Client) CreateRegistration(ctx context.Context, in registry.CreateInput) (*registry.RegisteredModel, error) {
	body := api.CreateModelRequest{
		Name:            in.Name,
		Provider:        string(in.Provider),
		ModelIdentifier: in.ModelIdentifier,
		APIURL:          in.APIURL,
		Status:          string(in.Status),
	}

	var created registry.RegisteredModel
	if err := httpclient.SendRequest(ctx, c.http, http.MethodPost, c.baseURL+"/api/models", c.headers(ctx), body, &created); err != nil {
		return nil, translate("create model", err)
	}
	if created.ID == "" {
		return nil, &registry.TransportError{Op: "create model", Err: errors.New("malformed response: registration has no id")}
	}
	return &created, nil
}

// DeleteRegistration reports every non-2xx answer as an error. The server already
// resolves an inventory-side not-found as success, so a 404 here means the request
// never reached a delete route.
func (c *Client) DeleteRegistration(ctx context.Context, id string) error {
	endpoint := c.baseURL + "/api/models/" + url.PathEscape(id)
	if err := httpclient.SendRequest(ctx, c.http, http.MethodDelete, endpoint, c.headers(ctx), nil, nil); err != nil {
		return translate("delete model", err)
	}
	return nil
}

func (c *Client) ListRegistrations(ctx context.Context) ([]registry.RegisteredModel, error) {
	var resp api.ListResponse[registry.RegisteredModel]
	if err := httpclient.SendRequest(ctx, c.http, http.MethodGet, c.baseURL+"/api/models", c.headers(ctx), nil, &resp); err != nil {
		return nil, translate("list models", err)
	}
	if resp.Data == nil {
		resp.Data = []registry.RegisteredModel{}
	}
	return resp.Data, nil
}

func (c *Client) Catalog(ctx context.Context) (registry.Catalog, error) {
	var resp api.CatalogResponse[registry.Catalog]
	if err := httpclient.SendRequest(ctx, c.http, http.MethodGet, c.baseURL+"/api/providers", c.headers(ctx), nil, &resp); err != nil {
		return nil, translate("list providers", err)
	}
	if resp.Data == nil {
		resp.Data = registry.Catalog{}
	}
	return resp.Data, nil
}

// translate turns the server's problem responses back into the registry error taxonomy.
func translate(op string, err error) error {
	var upErr *httpclient.UpstreamError
	if !errors.As(err, &upErr) {
		return &registry.TransportError{Op: op, Err: err}
	}

	var problem api.Problem
	if json.Unmarshal(upErr.Body, &problem) != nil || problem.Status == 0 {
		return &registry.RemoteError{StatusCode: upErr.StatusCode, Message: upErr.Message()}
	}

	if upErr.StatusCode == http.StatusBadRequest {
		if fields, ok := problem.Extensions["errors"].(map[string]interface{}); ok && len(fields) > 0 {
			names := make([]string, 0, len(fields))
			for name := range fields {
				names = append(names, name)
			}
			sort.Strings(names)
			reason, _ := fields[names[0]].(string)
			return &registry.ValidationError{Field: names[0], Reason: reason}
		}
	}

	if strings.HasSuffix(problem.Type, ":unreachable") {
		return &registry.TransportError{Op: op, Err: errors.New(problem.Detail)}
	}

	return &registry.RemoteError{StatusCode: upErr.StatusCode, Message: upErr.Message()}
}

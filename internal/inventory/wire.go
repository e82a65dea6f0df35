package inventory

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nulzo/model-registry/internal/catalog"
	"github.com/nulzo/model-registry/internal/registry"
)

// flexibleID accepts ids encoded as JSON strings or numbers.
type flexibleID string

func (id *flexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = flexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or a number: %w", err)
	}
	*id = flexibleID(n.String())
	return nil
}

// modelRecord is a registration as the inventory service writes it. Both historical
// shapes are accepted: model/registered_at/api_url and modelId/dateAdded/customEndpoint.
type modelRecord struct {
	ID       flexibleID `json:"id"`
	Name     string     `json:"name"`
	Provider string     `json:"provider"`
	Status   string     `json:"status"`

	Model        string `json:"model"`
	RegisteredAt string `json:"registered_at"`
	APIURL       string `json:"api_url"`

	LegacyModelID        string `json:"modelId"`
	LegacyDateAdded      string `json:"dateAdded"`
	LegacyCustomEndpoint string `json:"customEndpoint"`
}

func (r modelRecord) toDomain() (registry.RegisteredModel, error) {
	if r.ID == "" {
		return registry.RegisteredModel{}, fmt.Errorf("record has no id")
	}

	provider, err := registry.ParseProvider(r.Provider)
	if err != nil {
		return registry.RegisteredModel{}, err
	}

	status, ok := registry.ParseStatus(r.Status)
	if !ok {
		// anything the service reports that is not active is not being monitored
		status = registry.StatusInactive
	}

	registeredAt, err := parseTimestamp(firstNonEmpty(r.RegisteredAt, r.LegacyDateAdded))
	if err != nil {
		return registry.RegisteredModel{}, err
	}

	m := registry.RegisteredModel{
		ID:           string(r.ID),
		Name:         r.Name,
		Provider:     provider,
		Status:       status,
		RegisteredAt: registeredAt,
		APIURL:       firstNonEmpty(r.APIURL, r.LegacyCustomEndpoint),
	}
	if !provider.IsCustom() {
		m.ModelIdentifier = firstNonEmpty(r.Model, r.LegacyModelID)
	}
	return m, nil
}

// listResponse decodes GET /model/list. Older deployments answer with a bare array.
type listResponse struct {
	Models []modelRecord `json:"models"`
}

func (l *listResponse) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		return json.Unmarshal(data, &l.Models)
	}
	type alias listResponse
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*l = listResponse(a)
	return nil
}

type providersResponse struct {
	Providers []catalog.Group `json:"providers"`
}

type createBody struct {
	Name     string `json:"name"`
	Provider string `json:"provider"`
	Model    string `json:"model,omitempty"`
	Status   string `json:"status"`
	APIURL   string `json:"api_url,omitempty"`
}

type legacyCreateBody struct {
	Name           string `json:"name"`
	Provider       string `json:"provider"`
	ModelID        string `json:"modelId"`
	Status         string `json:"status"`
	CustomEndpoint string `json:"customEndpoint,omitempty"`
}

func newCreateBody(in registry.CreateInput, legacy bool) interface{} {
	if legacy {
		body := legacyCreateBody{
			Name:     in.Name,
			Provider: string(in.Provider),
			ModelID:  in.ModelIdentifier,
			Status:   string(in.Status),
		}
		if in.Provider.IsCustom() {
			body.ModelID = string(registry.ProviderCustom)
			body.CustomEndpoint = in.APIURL
		}
		return body
	}

	body := createBody{
		Name:     in.Name,
		Provider: string(in.Provider),
		Status:   string(in.Status),
	}
	if in.Provider.IsCustom() {
		body.APIURL = in.APIURL
	} else {
		body.Model = in.ModelIdentifier
	}
	return body
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", raw)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

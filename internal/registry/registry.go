package registry

import (
	"strings"
	"time"
)

// Provider is the owning AI service family of a registration.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderCustom    Provider = "custom"
)

// Providers lists the known providers in display order.
var Providers = []Provider{ProviderOpenAI, ProviderAnthropic, ProviderCustom}

// ParseProvider resolves a raw provider name, returning ErrUnknownProvider for anything
// outside the known set.
func ParseProvider(raw string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(raw)))
	if !p.Valid() {
		return "", &UnknownProviderError{Name: raw}
	}
	return p, nil
}

func (p Provider) Valid() bool {
	switch p {
	case ProviderOpenAI, ProviderAnthropic, ProviderCustom:
		return true
	}
	return false
}

// IsCustom reports whether registrations for p carry their own endpoint instead of a
// catalog model.
func (p Provider) IsCustom() bool {
	return p == ProviderCustom
}

// Status of a registration.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// ParseStatus defaults empty input to active.
func ParseStatus(raw string) (Status, bool) {
	switch Status(strings.ToLower(strings.TrimSpace(raw))) {
	case "", StatusActive:
		return StatusActive, true
	case StatusInactive:
		return StatusInactive, true
	}
	return "", false
}

// RegisteredModel is the canonical shape of a persisted registration. It never depends
// on the wire format the inventory service happens to speak.
type RegisteredModel struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Provider        Provider  `json:"provider"`
	ModelIdentifier string    `json:"modelIdentifier,omitempty"`
	APIURL          string    `json:"apiUrl,omitempty"`
	Status          Status    `json:"status"`
	RegisteredAt    time.Time `json:"registeredAt"`
}

// CatalogEntry is one selectable model offered by a provider.
type CatalogEntry struct {
	Provider        Provider `json:"provider"`
	ModelIdentifier string   `json:"modelIdentifier"`
	DisplayName     string   `json:"displayName,omitempty"`
	Description     string   `json:"description,omitempty"`
	APIURL          string   `json:"apiUrl,omitempty"`
}

// Label is the human readable name of the entry, falling back to its identifier.
func (e CatalogEntry) Label() string {
	if e.DisplayName != "" {
		return e.DisplayName
	}
	return e.ModelIdentifier
}

// Catalog maps each provider to its ordered list of selectable models.
type Catalog map[Provider][]CatalogEntry

// CustomLabel is shown in place of a model name for custom endpoint registrations.
const CustomLabel = "Custom API"

// Lookup finds the catalog entry for a provider/model pair.
func (c Catalog) Lookup(p Provider, modelIdentifier string) (CatalogEntry, bool) {
	for _, e := range c[p] {
		if e.ModelIdentifier == modelIdentifier {
			return e, true
		}
	}
	return CatalogEntry{}, false
}

// Label returns the display label for a registration. Registrations whose catalog entry
// has disappeared still render using their stored identifier.
func (c Catalog) Label(m RegisteredModel) string {
	if m.Provider.IsCustom() {
		return CustomLabel
	}
	if e, ok := c.Lookup(m.Provider, m.ModelIdentifier); ok {
		return e.Label()
	}
	return m.ModelIdentifier
}

// CreateInput carries the fields of a new registration.
type CreateInput struct {
	Name            string   `json:"name"`
	Provider        Provider `json:"provider"`
	ModelIdentifier string   `json:"modelIdentifier,omitempty"`
	APIURL          string   `json:"apiUrl,omitempty"`
	Status          Status   `json:"status,omitempty"`
}

// Normalize trims the free-text fields, drops the field that does not apply to the
// chosen provider and defaults the status to active.
func (in CreateInput) Normalize() CreateInput {
	in.Name = strings.TrimSpace(in.Name)
	in.ModelIdentifier = strings.TrimSpace(in.ModelIdentifier)
	in.APIURL = strings.TrimSpace(in.APIURL)
	if in.Status == "" {
		in.Status = StatusActive
	}
	return in
}

// Validate checks that exactly the field required by the provider is present.
func (in CreateInput) Validate() error {
	in = in.Normalize()

	if in.Name == "" {
		return &ValidationError{Field: "name", Reason: "is required"}
	}
	if !in.Provider.Valid() {
		return &ValidationError{Field: "provider", Reason: "must be one of [openai, anthropic, custom]"}
	}
	if _, ok := ParseStatus(string(in.Status)); !ok {
		return &ValidationError{Field: "status", Reason: "must be one of [active, inactive]"}
	}

	if in.Provider.IsCustom() {
		if in.APIURL == "" {
			return &ValidationError{Field: "apiUrl", Reason: "is required for the custom provider"}
		}
		if in.ModelIdentifier != "" {
			return &ValidationError{Field: "modelIdentifier", Reason: "must be empty for the custom provider"}
		}
		return nil
	}

	if in.ModelIdentifier == "" {
		return &ValidationError{Field: "modelIdentifier", Reason: "is required for provider " + string(in.Provider)}
	}
	if in.APIURL != "" {
		return &ValidationError{Field: "apiUrl", Reason: "is only accepted for the custom provider"}
	}
	return nil
}

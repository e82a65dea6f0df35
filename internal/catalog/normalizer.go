package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nulzo/model-registry/internal/registry"
	"go.uber.org/zap"
)

// Group is one provider grouping as returned by GET /model/list/providers.
type Group struct {
	Provider string  `json:"provider"`
	Models   []Model `json:"models"`
	APIURL   string  `json:"api_url"`
}

// Model is a catalog model as sent by the inventory service. Older catalog sources send
// a bare identifier, newer ones an object with a display name and description.
type Model struct {
	ID          string `json:"id"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
}

func (m *Model) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &m.ID)
	}

	type alias Model
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return fmt.Errorf("catalog model must be a string or an object: %w", err)
	}
	*m = Model(a)
	return nil
}

// NormalizeGroup converts a single grouping into catalog entries that inherit the
// group's api url. It fails with registry.ErrUnknownProvider for unknown providers.
func NormalizeGroup(g Group) (registry.Provider, []registry.CatalogEntry, error) {
	provider, err := registry.ParseProvider(g.Provider)
	if err != nil {
		return "", nil, err
	}

	// custom endpoints are supplied per registration, never picked from a list
	if provider.IsCustom() {
		return provider, nil, nil
	}

	apiURL := strings.TrimSpace(g.APIURL)
	entries := make([]registry.CatalogEntry, 0, len(g.Models))
	for _, m := range g.Models {
		id := strings.TrimSpace(m.ID)
		if id == "" {
			continue
		}
		entries = append(entries, registry.CatalogEntry{
			Provider:        provider,
			ModelIdentifier: id,
			DisplayName:     m.Name,
			Description:     m.Description,
			APIURL:          apiURL,
		})
	}
	return provider, entries, nil
}

// Normalize builds the provider catalog. Groups with an unknown provider are dropped and
// reported back by name; they never abort the whole catalog.
func Normalize(groups []Group, log *zap.Logger) (registry.Catalog, []string) {
	if log == nil {
		log = zap.NewNop()
	}

	out := make(registry.Catalog)
	seen := make(map[registry.Provider]map[string]bool)
	var dropped []string

	for _, g := range groups {
		provider, entries, err := NormalizeGroup(g)
		if err != nil {
			log.Warn("Dropping catalog group", zap.String("provider", g.Provider), zap.Error(err))
			dropped = append(dropped, g.Provider)
			continue
		}

		if _, ok := out[provider]; !ok {
			out[provider] = []registry.CatalogEntry{}
			seen[provider] = make(map[string]bool)
		}

		for _, e := range entries {
			if seen[provider][e.ModelIdentifier] {
				log.Debug("Duplicate catalog model ignored",
					zap.String("provider", string(provider)),
					zap.String("model", e.ModelIdentifier))
				continue
			}
			seen[provider][e.ModelIdentifier] = true
			out[provider] = append(out[provider], e)
		}
	}

	return out, dropped
}

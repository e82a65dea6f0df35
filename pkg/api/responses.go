package api

// ListResponse wraps collection payloads.
type ListResponse[T any] struct {
	Object string `json:"object"`
	Data   []T    `json:"data"`
}

func NewList[T any](items []T) ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{Object: "list", Data: items}
}

// CatalogResponse wraps the provider catalog.
type CatalogResponse[T any] struct {
	Object string `json:"object"`
	Data   T      `json:"data"`
}

// DeleteResponse is returned by DELETE /api/models/:id.
type DeleteResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id,omitempty"`
}

// HealthResponse is returned by the health endpoints.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

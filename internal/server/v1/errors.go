package v1

import (
	"errors"
	"net/http"

	"github.com/nulzo/model-registry/internal/registry"
	"github.com/nulzo/model-registry/pkg/api"
)

// problemFor maps the registry error taxonomy onto problem responses.
func problemFor(err error) *api.Problem {
	var (
		vErr *registry.ValidationError
		rErr *registry.RemoteError
		tErr *registry.TransportError
	)

	switch {
	case errors.As(err, &vErr):
		return api.ValidationError(map[string]string{vErr.Field: vErr.Reason})
	case errors.As(err, &rErr):
		status := rErr.StatusCode
		if status >= http.StatusInternalServerError || status < http.StatusBadRequest {
			status = http.StatusBadGateway
		}
		return api.InventoryError(status, registry.Message(err), err)
	case errors.As(err, &tErr):
		return api.UnreachableError(registry.Message(err), err)
	default:
		return api.InternalError("An unexpected error occurred.", err)
	}
}

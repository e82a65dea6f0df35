package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nulzo/model-registry/internal/audit"
	"github.com/nulzo/model-registry/internal/registry"
	"github.com/nulzo/model-registry/internal/store"
	"github.com/nulzo/model-registry/internal/store/model"
	"go.uber.org/zap"
)

// Inventory is the subset of the inventory client the gateway forwards to.
type Inventory interface {
	ListModels(ctx context.Context) ([]registry.RegisteredModel, error)
	CreateModel(ctx context.Context, in registry.CreateInput) (*registry.RegisteredModel, error)
	DeleteModel(ctx context.Context, id string) error
}

// CatalogSource serves the normalized provider catalog.
type CatalogSource interface {
	Get(ctx context.Context) (registry.Catalog, error)
}

// Service mediates every request the registry makes to the inventory service.
type Service interface {
	CreateRegistration(ctx context.Context, in registry.CreateInput) (*registry.RegisteredModel, error)
	DeleteRegistration(ctx context.Context, id string) error
	ListRegistrations(ctx context.Context) ([]registry.RegisteredModel, error)
	Catalog(ctx context.Context) (registry.Catalog, error)
}

type service struct {
	logger    *zap.Logger
	inventory Inventory
	catalog   CatalogSource
	recorder  audit.Recorder
	now       func() time.Time
}

func NewService(logger *zap.Logger, inventory Inventory, catalog CatalogSource, recorder audit.Recorder) Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if recorder == nil {
		recorder = audit.Nop{}
	}
	return &service{
		logger:    logger,
		inventory: inventory,
		catalog:   catalog,
		recorder:  recorder,
		now:       time.Now,
	}
}

func (s *service) CreateRegistration(ctx context.Context, in registry.CreateInput) (*registry.RegisteredModel, error) {
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		s.record(ctx, model.ActionCreate, "", err, in)
		return nil, err
	}

	created, err := s.inventory.CreateModel(ctx, in)
	if err != nil {
		s.logFailure("Create registration failed", err, zap.String("name", in.Name), zap.String("provider", string(in.Provider)))
		s.record(ctx, model.ActionCreate, "", err, in)
		return nil, err
	}

	s.logger.Info("Registration created",
		zap.String("id", created.ID),
		zap.String("name", created.Name),
		zap.String("provider", string(created.Provider)))
	s.record(ctx, model.ActionCreate, created.ID, nil, in)
	return created, nil
}

func (s *service) DeleteRegistration(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		err := &registry.ValidationError{Field: "id", Reason: "is required"}
		s.record(ctx, model.ActionDelete, "", err, nil)
		return err
	}

	err := s.inventory.DeleteModel(ctx, id)
	switch {
	case err == nil:
		s.logger.Info("Registration deleted", zap.String("id", id))
		s.record(ctx, model.ActionDelete, id, nil, nil)
		return nil
	case registry.IsNotFound(err):
		// the registration is gone either way
		s.logger.Info("Registration already deleted", zap.String("id", id))
		s.recordOutcome(ctx, model.ActionDelete, id, model.OutcomeAlreadyDeleted, http.StatusNotFound, nil)
		return nil
	default:
		s.logFailure("Delete registration failed", err, zap.String("id", id))
		s.record(ctx, model.ActionDelete, id, err, nil)
		return err
	}
}

func (s *service) ListRegistrations(ctx context.Context) ([]registry.RegisteredModel, error) {
	models, err := s.inventory.ListModels(ctx)
	if err != nil {
		s.logFailure("List registrations failed", err)
		return nil, err
	}
	return models, nil
}

func (s *service) Catalog(ctx context.Context) (registry.Catalog, error) {
	c, err := s.catalog.Get(ctx)
	if err != nil {
		s.logFailure("Catalog fetch failed", err)
		return nil, err
	}
	return c, nil
}

func (s *service) logFailure(msg string, err error, fields ...zap.Field) {
	fields = append(fields, zap.Error(err))

	var tErr *registry.TransportError
	if errors.As(err, &tErr) {
		s.logger.Error(msg, append(fields, zap.String("op", tErr.Op))...)
		return
	}

	var rErr *registry.RemoteError
	if errors.As(err, &rErr) {
		s.logger.Warn(msg, append(fields, zap.Int("status", rErr.StatusCode))...)
		return
	}

	s.logger.Error(msg, fields...)
}

func (s *service) record(ctx context.Context, action, target string, err error, details interface{}) {
	outcome, status := classify(err)
	s.recordOutcome(ctx, action, target, outcome, status, details)
}

func (s *service) recordOutcome(ctx context.Context, action, target, outcome string, status int, details interface{}) {
	detailsJSON := "{}"
	if details != nil {
		if b, err := json.Marshal(details); err == nil {
			detailsJSON = string(b)
		}
	}

	s.recorder.Record(&model.AuditEvent{
		ID:             uuid.NewString(),
		ActorUserID:    store.UserFromContext(ctx),
		TargetResource: target,
		Action:         action,
		Outcome:        outcome,
		StatusCode:     status,
		DetailsJSON:    detailsJSON,
		IPAddress:      store.ClientIPFromContext(ctx),
		CreatedAt:      s.now().UTC(),
	})
}

func classify(err error) (string, int) {
	if err == nil {
		return model.OutcomeSuccess, 0
	}

	var vErr *registry.ValidationError
	if errors.As(err, &vErr) {
		return model.OutcomeRejected, 0
	}

	var rErr *registry.RemoteError
	if errors.As(err, &rErr) {
		return model.OutcomeRemoteError, rErr.StatusCode
	}

	return model.OutcomeTransportError, 0
}

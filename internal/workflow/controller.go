package workflow

import (
	"context"
	"sort"
	"sync"

	"github.com/nulzo/model-registry/internal/registry"
	"github.com/nulzo/model-registry/internal/store"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Backend forwards registry operations to the inventory service. Both the in-process
// gateway and the HTTP proxy client satisfy it.
type Backend interface {
	CreateRegistration(ctx context.Context, in registry.CreateInput) (*registry.RegisteredModel, error)
	DeleteRegistration(ctx context.Context, id string) error
	ListRegistrations(ctx context.Context) ([]registry.RegisteredModel, error)
	Catalog(ctx context.Context) (registry.Catalog, error)
}

// Identity exposes the current user as an opaque value.
type Identity interface {
	CurrentUser() string
}

// StaticIdentity is an Identity with a fixed user.
type StaticIdentity string

func (s StaticIdentity) CurrentUser() string { return string(s) }

// Form holds the fields of the registration form.
type Form struct {
	Provider        registry.Provider `json:"provider"`
	Name            string            `json:"name"`
	ModelIdentifier string            `json:"modelIdentifier,omitempty"`
	CustomEndpoint  string            `json:"customEndpoint,omitempty"`
}

func (f Form) input() registry.CreateInput {
	in := registry.CreateInput{
		Name:     f.Name,
		Provider: f.Provider,
		Status:   registry.StatusActive,
	}
	if f.Provider.IsCustom() {
		in.APIURL = f.CustomEndpoint
	} else {
		in.ModelIdentifier = f.ModelIdentifier
	}
	return in.Normalize()
}

// State is a point-in-time copy of the controller.
type State struct {
	Registrations []registry.RegisteredModel `json:"registrations"`
	Form          Form                       `json:"form"`
	Submitting    bool                       `json:"submitting"`
	Deleting      []string                   `json:"deleting"`
	Notice        string                     `json:"notice,omitempty"`
}

// Row is one rendered line of the registrations table.
type Row struct {
	Model    registry.RegisteredModel `json:"model"`
	Label    string                   `json:"label"`
	Deleting bool                     `json:"deleting"`
}

// Controller owns the registrations list of one session together with the create form
// and the in-flight markers. Network calls are made without holding the lock, so other
// rows stay usable while a request is pending.
type Controller struct {
	backend  Backend
	identity Identity
	logger   *zap.Logger

	mu            sync.Mutex
	registrations []registry.RegisteredModel
	catalog       registry.Catalog
	form          Form
	submitting    bool
	deleting      map[string]struct{}
	notice        string

	// fetchSeq orders list fetches so an older response never overwrites a newer one
	fetchSeq uint64
}

// New builds a controller around an already loaded list and catalog.
func New(backend Backend, identity Identity, logger *zap.Logger, initial []registry.RegisteredModel, catalog registry.Catalog) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if identity == nil {
		identity = StaticIdentity("")
	}
	if catalog == nil {
		catalog = registry.Catalog{}
	}
	list := make([]registry.RegisteredModel, len(initial))
	copy(list, initial)

	return &Controller{
		backend:       backend,
		identity:      identity,
		logger:        logger.With(zap.String("component", "workflow")),
		registrations: list,
		catalog:       catalog,
		form:          Form{Provider: registry.ProviderOpenAI},
		deleting:      make(map[string]struct{}),
	}
}

// Open loads the catalog and the registrations concurrently and returns a ready controller.
func Open(ctx context.Context, backend Backend, identity Identity, logger *zap.Logger) (*Controller, error) {
	var (
		list    []registry.RegisteredModel
		catalog registry.Catalog
	)

	if identity != nil {
		ctx = context.WithValue(ctx, store.ContextKeyUser, identity.CurrentUser())
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		list, err = backend.ListRegistrations(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		catalog, err = backend.Catalog(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return New(backend, identity, logger, list, catalog), nil
}

// SetName updates the registration name field.
func (c *Controller) SetName(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.form.Name = name
}

// SelectModel picks a catalog model for the current provider.
func (c *Controller) SelectModel(modelIdentifier string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.form.ModelIdentifier = modelIdentifier
}

// SetCustomEndpoint sets the endpoint used by the custom provider.
func (c *Controller) SetCustomEndpoint(endpoint string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.form.CustomEndpoint = endpoint
}

// ChangeProvider switches the form provider. Any selected model belongs to the previous
// provider's catalog and is cleared.
func (c *Controller) ChangeProvider(p registry.Provider) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.form.Provider = p
	c.form.ModelIdentifier = ""
}

// CanSubmit reports whether the form satisfies the client-side preconditions.
func (c *Controller) CanSubmit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return canSubmit(c.form)
}

func canSubmit(f Form) bool {
	return f.input().Validate() == nil
}

// Submit creates a registration from the form. It does nothing when the form is
// incomplete or another submit is still running. On success the new registration is
// appended, the form is reset (the provider is kept) and the list is re-fetched.
// On failure the form and list are left untouched and the error becomes the notice.
func (c *Controller) Submit(ctx context.Context) error {
	c.mu.Lock()
	if c.submitting || !canSubmit(c.form) {
		c.mu.Unlock()
		return nil
	}
	c.submitting = true
	in := c.form.input()
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.submitting = false
		c.mu.Unlock()
	}()

	ctx = c.withUser(ctx)
	created, err := c.backend.CreateRegistration(ctx, in)
	if err != nil {
		c.fail("Submit failed", err)
		return err
	}

	c.mu.Lock()
	c.registrations = append(c.registrations, *created)
	c.form = Form{Provider: c.form.Provider}
	c.notice = ""
	c.mu.Unlock()

	c.reconcile(ctx)
	return nil
}

// Remove deletes a registration. A second Remove for an id that is already being
// deleted does nothing; different ids proceed independently. An id the service no
// longer knows resolves as success and leaves the list as it is.
func (c *Controller) Remove(ctx context.Context, id string) error {
	c.mu.Lock()
	if _, busy := c.deleting[id]; busy {
		c.mu.Unlock()
		return nil
	}
	c.deleting[id] = struct{}{}
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.deleting, id)
		c.mu.Unlock()
	}()

	ctx = c.withUser(ctx)
	if err := c.backend.DeleteRegistration(ctx, id); err != nil {
		c.fail("Remove failed", err, zap.String("id", id))
		return err
	}

	c.mu.Lock()
	kept := c.registrations[:0:0]
	for _, m := range c.registrations {
		if m.ID != id {
			kept = append(kept, m)
		}
	}
	c.registrations = kept
	c.notice = ""
	c.mu.Unlock()

	c.reconcile(ctx)
	return nil
}

// Refresh replaces the list with the server's current view.
func (c *Controller) Refresh(ctx context.Context) error {
	seq := c.nextFetch()
	list, err := c.backend.ListRegistrations(c.withUser(ctx))
	if err != nil {
		c.fail("Refresh failed", err)
		return err
	}
	c.apply(seq, list)
	return nil
}

func (c *Controller) reconcile(ctx context.Context) {
	seq := c.nextFetch()
	list, err := c.backend.ListRegistrations(ctx)
	if err != nil {
		// keep the locally patched list
		c.logger.Warn("Reconciling re-fetch failed", zap.Error(err))
		return
	}
	c.apply(seq, list)
}

func (c *Controller) nextFetch() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fetchSeq++
	return c.fetchSeq
}

func (c *Controller) apply(seq uint64, list []registry.RegisteredModel) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.fetchSeq {
		return
	}
	if list == nil {
		list = []registry.RegisteredModel{}
	}
	c.registrations = list
}

func (c *Controller) fail(msg string, err error, fields ...zap.Field) {
	c.logger.Warn(msg, append(fields, zap.Error(err))...)
	c.mu.Lock()
	c.notice = registry.Message(err)
	c.mu.Unlock()
}

func (c *Controller) withUser(ctx context.Context) context.Context {
	return context.WithValue(ctx, store.ContextKeyUser, c.identity.CurrentUser())
}

// Notice is the inline message left by the last failed operation.
func (c *Controller) Notice() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.notice
}

// DismissNotice clears the inline message.
func (c *Controller) DismissNotice() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notice = ""
}

// IsDeleting reports whether a delete for id is pending.
func (c *Controller) IsDeleting(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.deleting[id]
	return ok
}

// Submitting reports whether a create is pending.
func (c *Controller) Submitting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.submitting
}

// Catalog returns the catalog the controller was opened with.
func (c *Controller) Catalog() registry.Catalog {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.catalog
}

// Options lists the models selectable for the form's current provider.
func (c *Controller) Options() []registry.CatalogEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	entries := c.catalog[c.form.Provider]
	out := make([]registry.CatalogEntry, len(entries))
	copy(out, entries)
	return out
}

// State returns a snapshot of the controller.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	list := make([]registry.RegisteredModel, len(c.registrations))
	copy(list, c.registrations)

	deleting := make([]string, 0, len(c.deleting))
	for id := range c.deleting {
		deleting = append(deleting, id)
	}
	sort.Strings(deleting)

	return State{
		Registrations: list,
		Form:          c.form,
		Submitting:    c.submitting,
		Deleting:      deleting,
		Notice:        c.notice,
	}
}

// Rows renders the filtered registrations with their labels and in-flight markers.
func (c *Controller) Rows(f registry.Filter) []Row {
	c.mu.Lock()
	defer c.mu.Unlock()

	view := registry.View(c.registrations, f)
	rows := make([]Row, 0, len(view))
	for _, m := range view {
		_, busy := c.deleting[m.ID]
		rows = append(rows, Row{
			Model:    m,
			Label:    c.catalog.Label(m),
			Deleting: busy,
		})
	}
	return rows
}

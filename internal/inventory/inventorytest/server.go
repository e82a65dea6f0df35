// Package inventorytest provides an in-memory model inventory service for tests,
// local development and load generation.
package inventorytest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// Record is a stored registration in the current wire shape.
type Record struct {
	ID           string `json:"id"`
	Model        string `json:"model,omitempty"`
	Name         string `json:"name"`
	Provider     string `json:"provider"`
	Status       string `json:"status"`
	RegisteredAt string `json:"registered_at"`
	APIURL       string `json:"api_url,omitempty"`
}

// ProviderGroup is one entry of GET /model/list/providers.
type ProviderGroup struct {
	Provider string   `json:"provider"`
	Models   []string `json:"models"`
	APIURL   string   `json:"api_url,omitempty"`
}

type failure struct {
	status  int
	message string
}

// Inventory is a goroutine-safe fake of the inventory service.
type Inventory struct {
	mu        sync.Mutex
	records   []Record
	providers []ProviderGroup
	nextID    int
	failures  map[string]failure
	requests  map[string]int
	now       func() time.Time
}

// DefaultProviders mirrors a typical production catalog, including one provider the
// registry does not know about.
func DefaultProviders() []ProviderGroup {
	return []ProviderGroup{
		{Provider: "openai", Models: []string{"gpt-4", "gpt-4o", "gpt-3.5-turbo"}, APIURL: "https://api.openai.com/v1"},
		{Provider: "anthropic", Models: []string{"claude-3-opus", "claude-3-sonnet"}, APIURL: "https://api.anthropic.com"},
		{Provider: "mistral", Models: []string{"mistral-large"}, APIURL: "https://api.mistral.ai"},
		{Provider: "custom", Models: []string{}},
	}
}

func New(providers []ProviderGroup) *Inventory {
	if providers == nil {
		providers = DefaultProviders()
	}
	return &Inventory{
		providers: providers,
		failures:  map[string]failure{},
		requests:  map[string]int{},
		now:       time.Now,
	}
}

// Seed stores records as if they had been created earlier.
func (inv *Inventory) Seed(records ...Record) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	inv.records = append(inv.records, records...)
}

// Records returns a copy of the stored registrations.
func (inv *Inventory) Records() []Record {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	out := make([]Record, len(inv.records))
	copy(out, inv.records)
	return out
}

// FailNext makes the next request to route ("POST /model", "GET /model/list", ...)
// answer with status and message.
func (inv *Inventory) FailNext(route string, status int, message string) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	inv.failures[route] = failure{status: status, message: message}
}

// Requests counts handled requests per route.
func (inv *Inventory) Requests(route string) int {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.requests[route]
}

// Handler exposes the inventory REST contract.
func (inv *Inventory) Handler() http.Handler {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.UseRawPath = true
	r.UnescapePathValues = true
	r.Use(gin.Recovery(), inv.track)

	r.GET("/model/list", inv.list)
	r.GET("/model/list/providers", inv.listProviders)
	r.POST("/model", inv.create)
	r.DELETE("/model/:id", inv.remove)
	return r
}

// NewServer starts an httptest server; callers close it.
func NewServer(providers []ProviderGroup) (*Inventory, *httptest.Server) {
	inv := New(providers)
	return inv, httptest.NewServer(inv.Handler())
}

func (inv *Inventory) track(c *gin.Context) {
	route := c.Request.Method + " " + c.FullPath()

	inv.mu.Lock()
	inv.requests[route]++
	f, fail := inv.failures[route]
	delete(inv.failures, route)
	inv.mu.Unlock()

	if fail {
		c.AbortWithStatusJSON(f.status, gin.H{"message": f.message})
		return
	}
	c.Next()
}

func (inv *Inventory) list(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"models": inv.Records()})
}

func (inv *Inventory) listProviders(c *gin.Context) {
	inv.mu.Lock()
	providers := inv.providers
	inv.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"providers": providers})
}

type createRequest struct {
	Name     string `json:"name" binding:"required"`
	Provider string `json:"provider" binding:"required"`
	Model    string `json:"model"`
	Status   string `json:"status"`
	APIURL   string `json:"api_url"`
}

func (inv *Inventory) create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	inv.mu.Lock()
	defer inv.mu.Unlock()

	for _, r := range inv.records {
		if r.Name == req.Name {
			c.JSON(http.StatusConflict, gin.H{"message": fmt.Sprintf("a model named %q already exists", req.Name)})
			return
		}
	}

	rec := Record{
		Name:         req.Name,
		Provider:     req.Provider,
		Status:       req.Status,
		RegisteredAt: inv.now().UTC().Format(time.RFC3339),
	}
	if rec.Status == "" {
		rec.Status = "active"
	}
	if req.Provider == "custom" {
		rec.APIURL = req.APIURL
	} else {
		rec.Model = req.Model
		for _, g := range inv.providers {
			if g.Provider == req.Provider {
				rec.APIURL = g.APIURL
			}
		}
	}

	inv.nextID++
	rec.ID = fmt.Sprintf("inv-%d", inv.nextID)
	inv.records = append(inv.records, rec)

	c.JSON(http.StatusCreated, rec)
}

func (inv *Inventory) remove(c *gin.Context) {
	id := c.Param("id")

	inv.mu.Lock()
	defer inv.mu.Unlock()

	for i, r := range inv.records {
		if r.ID == id {
			inv.records = append(inv.records[:i], inv.records[i+1:]...)
			c.Status(http.StatusNoContent)
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"message": "model not found"})
}

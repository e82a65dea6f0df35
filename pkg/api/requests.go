package api

// CreateModelRequest is the body of POST /api/models. The modelId and customEndpoint
// members are accepted from older clients.
type CreateModelRequest struct {
	Name            string `json:"name" binding:"required,max=200"`
	Provider        string `json:"provider" binding:"required,oneof=openai anthropic custom"`
	ModelIdentifier string `json:"modelIdentifier,omitempty" binding:"omitempty,max=200"`
	APIURL          string `json:"apiUrl,omitempty" binding:"omitempty,url"`
	Status          string `json:"status,omitempty" binding:"omitempty,oneof=active inactive"`

	LegacyModelID        string `json:"modelId,omitempty" binding:"omitempty,max=200"`
	LegacyCustomEndpoint string `json:"customEndpoint,omitempty" binding:"omitempty,url"`
}

// Model returns the model identifier from whichever member carried it.
func (r CreateModelRequest) Model() string {
	if r.ModelIdentifier != "" {
		return r.ModelIdentifier
	}
	if r.Provider == "custom" && r.LegacyModelID == "custom" {
		return ""
	}
	return r.LegacyModelID
}

// Endpoint returns the custom endpoint from whichever member carried it.
func (r CreateModelRequest) Endpoint() string {
	if r.APIURL != "" {
		return r.APIURL
	}
	return r.LegacyCustomEndpoint
}

// ModelFilter is the query of GET /api/models.
type ModelFilter struct {
	Status string `form:"status" binding:"omitempty,oneof=all active inactive"`
}

// AuditQuery is the query of GET /api/audit.
type AuditQuery struct {
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=500"`
	Target string `form:"target"`
}

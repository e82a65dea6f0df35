package model

import "time"

// Audit actions.
const (
	ActionCreate = "registration.create"
	ActionDelete = "registration.delete"
)

// Audit outcomes.
const (
	OutcomeSuccess        = "success"
	OutcomeAlreadyDeleted = "already_deleted"
	OutcomeRejected       = "rejected"
	OutcomeRemoteError    = "remote_error"
	OutcomeTransportError = "transport_error"
)

// AuditEvent records one mutating operation forwarded to the inventory service.
type AuditEvent struct {
	ID             string    `db:"id" json:"id"`
	ActorUserID    string    `db:"actor_user_id" json:"actor_user_id"`
	TargetResource string    `db:"target_resource" json:"target_resource"`
	Action         string    `db:"action" json:"action"`
	Outcome        string    `db:"outcome" json:"outcome"`
	StatusCode     int       `db:"status_code" json:"status_code,omitempty"`
	DetailsJSON    string    `db:"details_json" json:"details_json"`
	IPAddress      string    `db:"ip_address" json:"ip_address,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

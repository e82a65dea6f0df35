package sqlite

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/nulzo/model-registry/internal/store"
	"github.com/nulzo/model-registry/internal/store/model"
)

// DB defines the interface for database operations (satisfied by *sqlx.DB and *sqlx.Tx)
type DB interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// SqliteRepository implements store.Repository
type SqliteRepository struct {
	db       *sqlx.DB // Required for starting new transactions
	executor DB       // Used for actual queries (can be *sqlx.DB or *sqlx.Tx)
}

func NewSqliteRepository(db *sqlx.DB) *SqliteRepository {
	return &SqliteRepository{
		db:       db,
		executor: db,
	}
}

func (r *SqliteRepository) Close() error {
	return r.db.Close()
}

func (r *SqliteRepository) WithTx(ctx context.Context, fn func(repo store.Repository) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	txRepo := &SqliteRepository{
		db:       r.db,
		executor: tx,
	}

	if err := fn(txRepo); err != nil {
		// attempt rollback, but prioritize original error
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}

func (r *SqliteRepository) Audit() store.AuditRepository {
	return &auditRepo{db: r.executor}
}

type auditRepo struct {
	db DB
}

func (r *auditRepo) Log(ctx context.Context, event *model.AuditEvent) error {
	query := `
	INSERT INTO audit_events (
		id, actor_user_id, target_resource, action, outcome,
		status_code, details_json, ip_address, created_at
	) VALUES (
		:id, :actor_user_id, :target_resource, :action, :outcome,
		:status_code, :details_json, :ip_address, :created_at
	)`
	_, err := r.db.NamedExecContext(ctx, query, event)
	return err
}

func (r *auditRepo) Recent(ctx context.Context, limit int) ([]model.AuditEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	events := []model.AuditEvent{}
	err := r.db.SelectContext(ctx, &events,
		`SELECT * FROM audit_events ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	return events, err
}

func (r *auditRepo) ListByTarget(ctx context.Context, targetID string) ([]model.AuditEvent, error) {
	events := []model.AuditEvent{}
	err := r.db.SelectContext(ctx, &events,
		`SELECT * FROM audit_events WHERE target_resource = ? ORDER BY created_at ASC, rowid ASC`, targetID)
	return events, err
}

package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/guardianai/pairing-server-go/internal/model"
)

type PrincipalRepository interface {
	Create(ctx context.Context, params model.CreatePrincipalParams) (*model.Principal, error)
	FindByID(ctx context.Context, id string) (*model.Principal, error)
	FindByCredentialHash(ctx context.Context, hash string) (*model.Principal, error)
	Promote(ctx context.Context, id string, email string) error
	TouchLastSeen(ctx context.Context, id string) error
	// DeleteOrphanedAnonymous removes anonymous principals older than cutoff
	// that never ended up on either side of a device link.
	DeleteOrphanedAnonymous(ctx context.Context, cutoff time.Time) (int64, error)
}

type principalRepo struct {
	db *sqlx.DB
}

func NewPrincipalRepository(db *sqlx.DB) PrincipalRepository {
	return &principalRepo{db: db}
}

func (r *principalRepo) Create(ctx context.Context, params model.CreatePrincipalParams) (*model.Principal, error) {
	var p model.Principal
	err := r.db.GetContext(ctx, &p, `
		INSERT INTO principals (id, role, anonymous, email, credential_hash)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING *
	`, params.ID, params.Role, params.Anonymous, params.Email, params.CredentialHash)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *principalRepo) FindByID(ctx context.Context, id string) (*model.Principal, error) {
	var p model.Principal
	err := r.db.GetContext(ctx, &p, `
		SELECT * FROM principals WHERE id = $1
	`, id)
	return HandleNotFound(&p, err)
}

func (r *principalRepo) FindByCredentialHash(ctx context.Context, hash string) (*model.Principal, error) {
	var p model.Principal
	err := r.db.GetContext(ctx, &p, `
		SELECT * FROM principals WHERE credential_hash = $1
	`, hash)
	return HandleNotFound(&p, err)
}

func (r *principalRepo) Promote(ctx context.Context, id string, email string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE principals SET anonymous = FALSE, email = $2
		WHERE id = $1
	`, id, email)
	return err
}

func (r *principalRepo) TouchLastSeen(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE principals SET last_seen_at = NOW()
		WHERE id = $1
	`, id)
	return err
}

func (r *principalRepo) DeleteOrphanedAnonymous(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM principals p
		WHERE p.anonymous
		  AND p.created_at < $1
		  AND NOT EXISTS (
			SELECT 1 FROM device_pairs dp
			WHERE dp.child_id = p.id OR dp.parent_id = p.id
		  )
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/guardianai/pairing-server-go/internal/model"
)

// ErrTokenExpired is returned by Consume when the token row existed but its
// expiry had passed. The row is deleted as a side effect.
var ErrTokenExpired = errors.New("pairing token expired")

type PairingTokenRepository interface {
	Create(ctx context.Context, params model.CreatePairingTokenParams) (*model.PairingToken, error)
	// Consume atomically removes and returns the live token row. Of any
	// number of concurrent callers presenting the same value, exactly one
	// receives the record; the rest see nil. An expired row yields
	// ErrTokenExpired and is purged on the way out.
	Consume(ctx context.Context, token string, now time.Time) (*model.PairingToken, error)
	FindActiveByIssuer(ctx context.Context, issuerID string, now time.Time) ([]model.PairingToken, error)
	CountActiveByIssuer(ctx context.Context, issuerID string, now time.Time) (int, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type pairingTokenRepo struct {
	db *sqlx.DB
}

func NewPairingTokenRepository(db *sqlx.DB) PairingTokenRepository {
	return &pairingTokenRepo{db: db}
}

func (r *pairingTokenRepo) Create(ctx context.Context, params model.CreatePairingTokenParams) (*model.PairingToken, error) {
	var pt model.PairingToken
	err := r.db.GetContext(ctx, &pt, `
		INSERT INTO pairing_tokens (token, issuer_id, issued_at, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING *
	`, params.Token, params.IssuerID, params.IssuedAt, params.ExpiresAt)
	if err != nil {
		return nil, err
	}
	return &pt, nil
}

func (r *pairingTokenRepo) Consume(ctx context.Context, token string, now time.Time) (*model.PairingToken, error) {
	// Single conditional DELETE ... RETURNING. Row deletion is atomic, so a
	// read-then-delete race between two redeemers cannot both succeed.
	var pt model.PairingToken
	err := r.db.GetContext(ctx, &pt, `
		DELETE FROM pairing_tokens
		WHERE token = $1 AND expires_at > $2
		RETURNING *
	`, token, now)
	if err == nil {
		return &pt, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	// No live row. If an expired row is still there, report expiry and purge
	// it opportunistically; the reaper would get it eventually anyway.
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM pairing_tokens
		WHERE token = $1 AND expires_at <= $2
	`, token, now)
	if err != nil {
		return nil, err
	}
	if n, _ := result.RowsAffected(); n > 0 {
		return nil, ErrTokenExpired
	}
	return nil, nil
}

func (r *pairingTokenRepo) FindActiveByIssuer(ctx context.Context, issuerID string, now time.Time) ([]model.PairingToken, error) {
	var tokens []model.PairingToken
	err := r.db.SelectContext(ctx, &tokens, `
		SELECT * FROM pairing_tokens
		WHERE issuer_id = $1 AND expires_at > $2
		ORDER BY issued_at DESC
	`, issuerID, now)
	return tokens, err
}

func (r *pairingTokenRepo) CountActiveByIssuer(ctx context.Context, issuerID string, now time.Time) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM pairing_tokens
		WHERE issuer_id = $1 AND expires_at > $2
	`, issuerID, now)
	return count, err
}

func (r *pairingTokenRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM pairing_tokens
		WHERE expires_at < $1
	`, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

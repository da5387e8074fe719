package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/guardianai/pairing-server-go/internal/database"
	"github.com/guardianai/pairing-server-go/internal/model"
)

type DeviceLinkRepository interface {
	// ReplaceActive deactivates any active link for the child and inserts the
	// new one in a single transaction, so a child never holds two active
	// links, even momentarily.
	ReplaceActive(ctx context.Context, params model.CreateDeviceLinkParams) (*model.DeviceLink, error)
	FindByID(ctx context.Context, linkID string) (*model.DeviceLink, error)
	FindActiveByChildID(ctx context.Context, childID string) (*model.DeviceLink, error)
	FindByParentID(ctx context.Context, parentID string) ([]model.DeviceLink, error)
	Deactivate(ctx context.Context, linkID string) error
	Delete(ctx context.Context, linkID string) error
}

type deviceLinkRepo struct {
	db *database.DB
}

func NewDeviceLinkRepository(db *database.DB) DeviceLinkRepository {
	return &deviceLinkRepo{db: db}
}

func (r *deviceLinkRepo) ReplaceActive(ctx context.Context, params model.CreateDeviceLinkParams) (*model.DeviceLink, error) {
	var link model.DeviceLink
	err := r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			UPDATE device_pairs SET active = FALSE
			WHERE child_id = $1 AND active
		`, params.ChildID); err != nil {
			return fmt.Errorf("deactivate prior link: %w", err)
		}

		if err := tx.GetContext(ctx, &link, `
			INSERT INTO device_pairs (link_id, parent_id, child_id, linked_at, active)
			VALUES ($1, $2, $3, NOW(), TRUE)
			RETURNING *
		`, params.LinkID, params.ParentID, params.ChildID); err != nil {
			return fmt.Errorf("insert link: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &link, nil
}

func (r *deviceLinkRepo) FindByID(ctx context.Context, linkID string) (*model.DeviceLink, error) {
	var link model.DeviceLink
	err := r.db.GetContext(ctx, &link, `
		SELECT * FROM device_pairs WHERE link_id = $1
	`, linkID)
	return HandleNotFound(&link, err)
}

func (r *deviceLinkRepo) FindActiveByChildID(ctx context.Context, childID string) (*model.DeviceLink, error) {
	var link model.DeviceLink
	err := r.db.GetContext(ctx, &link, `
		SELECT * FROM device_pairs
		WHERE child_id = $1 AND active
	`, childID)
	return HandleNotFound(&link, err)
}

func (r *deviceLinkRepo) FindByParentID(ctx context.Context, parentID string) ([]model.DeviceLink, error) {
	var links []model.DeviceLink
	err := r.db.SelectContext(ctx, &links, `
		SELECT * FROM device_pairs
		WHERE parent_id = $1
		ORDER BY linked_at DESC
	`, parentID)
	return links, err
}

func (r *deviceLinkRepo) Deactivate(ctx context.Context, linkID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE device_pairs SET active = FALSE
		WHERE link_id = $1
	`, linkID)
	return err
}

func (r *deviceLinkRepo) Delete(ctx context.Context, linkID string) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM device_pairs WHERE link_id = $1
	`, linkID)
	return err
}

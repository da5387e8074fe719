package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guardianai/pairing-server-go/internal/model"
	"github.com/guardianai/pairing-server-go/internal/util"
)

func TestPrincipalRepo(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPrincipalRepository(db.DB)
	ctx := context.Background()

	t.Run("create and find by credential hash", func(t *testing.T) {
		credential, err := util.GenerateToken()
		require.NoError(t, err)
		hash := util.HashToken(credential)

		created, err := repo.Create(ctx, model.CreatePrincipalParams{
			ID:             uuid.NewString(),
			Role:           model.RoleChild,
			Anonymous:      true,
			CredentialHash: hash,
		})
		require.NoError(t, err)
		assert.True(t, created.Anonymous)

		found, err := repo.FindByCredentialHash(ctx, hash)
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, created.ID, found.ID)

		missing, err := repo.FindByCredentialHash(ctx, util.HashToken("wrong"))
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("promote clears the anonymous flag and keeps the id", func(t *testing.T) {
		id := uuid.NewString()
		_, err := repo.Create(ctx, model.CreatePrincipalParams{
			ID:        id,
			Role:      model.RoleChild,
			Anonymous: true,
		})
		require.NoError(t, err)

		require.NoError(t, repo.Promote(ctx, id, "kid@example.com"))

		p, err := repo.FindByID(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, p)
		assert.False(t, p.Anonymous)
		require.NotNil(t, p.Email)
		assert.Equal(t, "kid@example.com", *p.Email)
	})

	t.Run("orphan sweep spares linked principals", func(t *testing.T) {
		createTestParent(t, db, "sweep-parent")

		orphanID := uuid.NewString()
		linkedID := uuid.NewString()
		for _, id := range []string{orphanID, linkedID} {
			createTestChild(t, db, id)
		}
		// Backdate both past the cutoff.
		_, err := db.Exec(`
			UPDATE principals SET created_at = NOW() - INTERVAL '2 days'
			WHERE id IN ($1, $2)
		`, orphanID, linkedID)
		require.NoError(t, err)

		linkRepo := NewDeviceLinkRepository(db)
		_, err = linkRepo.ReplaceActive(ctx, model.CreateDeviceLinkParams{
			LinkID:   uuid.NewString(),
			ParentID: "sweep-parent",
			ChildID:  linkedID,
		})
		require.NoError(t, err)

		deleted, err := repo.DeleteOrphanedAnonymous(ctx, time.Now().Add(-24*time.Hour))
		require.NoError(t, err)
		assert.GreaterOrEqual(t, deleted, int64(1))

		gone, err := repo.FindByID(ctx, orphanID)
		require.NoError(t, err)
		assert.Nil(t, gone)

		kept, err := repo.FindByID(ctx, linkedID)
		require.NoError(t, err)
		assert.NotNil(t, kept, "linked principals are never swept")
	})
}

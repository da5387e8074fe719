package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/guardianai/pairing-server-go/internal/errors"
	"github.com/guardianai/pairing-server-go/internal/model"
)

func TestLinkServiceListByParent(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the parent's links", func(t *testing.T) {
		links := new(mockLinkRepo)
		links.On("FindByParentID", ctx, "parent-1").Return([]model.DeviceLink{
			{LinkID: "link-1", ParentID: "parent-1", ChildID: "child-1", Active: true},
			{LinkID: "link-2", ParentID: "parent-1", ChildID: "child-2", Active: false},
		}, nil)
		svc := NewLinkService(links)

		got, err := svc.ListByParent(ctx, "parent-1")
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("wraps store failures", func(t *testing.T) {
		links := new(mockLinkRepo)
		links.On("FindByParentID", ctx, "parent-1").Return(nil, errors.New("timeout"))
		svc := NewLinkService(links)

		_, err := svc.ListByParent(ctx, "parent-1")
		assert.Equal(t, apperrors.ErrCodeStoreUnavailable, apperrors.GetCode(err))
	})
}

func TestLinkServiceDeactivate(t *testing.T) {
	ctx := context.Background()
	owned := &model.DeviceLink{LinkID: "link-1", ParentID: "parent-1", ChildID: "child-1", Active: true}

	t.Run("deactivates an owned link", func(t *testing.T) {
		links := new(mockLinkRepo)
		links.On("FindByID", ctx, "link-1").Return(owned, nil)
		links.On("Deactivate", ctx, "link-1").Return(nil)
		svc := NewLinkService(links)

		require.NoError(t, svc.Deactivate(ctx, "parent-1", "link-1"))
		links.AssertExpectations(t)
	})

	t.Run("rejects a link owned by another parent", func(t *testing.T) {
		links := new(mockLinkRepo)
		links.On("FindByID", ctx, "link-1").Return(owned, nil)
		svc := NewLinkService(links)

		err := svc.Deactivate(ctx, "parent-2", "link-1")
		assert.Equal(t, apperrors.ErrCodeForbidden, apperrors.GetCode(err))
		links.AssertNotCalled(t, "Deactivate", mock.Anything, mock.Anything)
	})

	t.Run("reports a missing link", func(t *testing.T) {
		links := new(mockLinkRepo)
		links.On("FindByID", ctx, "ghost").Return(nil, nil)
		svc := NewLinkService(links)

		err := svc.Deactivate(ctx, "parent-1", "ghost")
		assert.Equal(t, apperrors.ErrCodeNotFound, apperrors.GetCode(err))
	})
}

func TestLinkServiceDelete(t *testing.T) {
	ctx := context.Background()
	owned := &model.DeviceLink{LinkID: "link-1", ParentID: "parent-1", ChildID: "child-1"}

	t.Run("deletes an owned link", func(t *testing.T) {
		links := new(mockLinkRepo)
		links.On("FindByID", ctx, "link-1").Return(owned, nil)
		links.On("Delete", ctx, "link-1").Return(nil)
		svc := NewLinkService(links)

		require.NoError(t, svc.Delete(ctx, "parent-1", "link-1"))
		links.AssertExpectations(t)
	})

	t.Run("ownership check applies to delete too", func(t *testing.T) {
		links := new(mockLinkRepo)
		links.On("FindByID", ctx, "link-1").Return(owned, nil)
		svc := NewLinkService(links)

		err := svc.Delete(ctx, "parent-2", "link-1")
		assert.Equal(t, apperrors.ErrCodeForbidden, apperrors.GetCode(err))
		links.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})
}

package service

import (
	"context"

	"github.com/guardianai/pairing-server-go/internal/audit"
	apperrors "github.com/guardianai/pairing-server-go/internal/errors"
	"github.com/guardianai/pairing-server-go/internal/model"
	"github.com/guardianai/pairing-server-go/internal/repository"
)

// LinkService is the parent-facing view of the device link registry. All
// operations check that the caller owns the link they are touching.
type LinkService struct {
	links repository.DeviceLinkRepository
}

func NewLinkService(links repository.DeviceLinkRepository) *LinkService {
	return &LinkService{links: links}
}

func (s *LinkService) ListByParent(ctx context.Context, parentID string) ([]model.DeviceLink, error) {
	links, err := s.links.FindByParentID(ctx, parentID)
	if err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}
	return links, nil
}

func (s *LinkService) FindActiveByChild(ctx context.Context, childID string) (*model.DeviceLink, error) {
	link, err := s.links.FindActiveByChildID(ctx, childID)
	if err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}
	return link, nil
}

// Deactivate revokes a link but keeps the record for history.
func (s *LinkService) Deactivate(ctx context.Context, parentID, linkID string) error {
	link, err := s.owned(ctx, parentID, linkID)
	if err != nil {
		return err
	}

	if err := s.links.Deactivate(ctx, link.LinkID); err != nil {
		return apperrors.StoreUnavailable(err)
	}

	audit.Log(ctx, audit.Event{
		Type:        audit.EventLinkDeactivated,
		PrincipalID: parentID,
		Details:     map[string]interface{}{"linkId": linkID, "childId": link.ChildID},
	})
	return nil
}

// Delete removes the link record entirely, the terminal step of a parent
// removing the child profile.
func (s *LinkService) Delete(ctx context.Context, parentID, linkID string) error {
	link, err := s.owned(ctx, parentID, linkID)
	if err != nil {
		return err
	}

	if err := s.links.Delete(ctx, link.LinkID); err != nil {
		return apperrors.StoreUnavailable(err)
	}

	audit.Log(ctx, audit.Event{
		Type:        audit.EventLinkDeleted,
		PrincipalID: parentID,
		Details:     map[string]interface{}{"linkId": linkID, "childId": link.ChildID},
	})
	return nil
}

func (s *LinkService) owned(ctx context.Context, parentID, linkID string) (*model.DeviceLink, error) {
	link, err := s.links.FindByID(ctx, linkID)
	if err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}
	if link == nil {
		return nil, apperrors.NotFound("Device link")
	}
	if link.ParentID != parentID {
		return nil, apperrors.Forbidden("Link belongs to another parent")
	}
	return link, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/guardianai/pairing-server-go/internal/audit"
	apperrors "github.com/guardianai/pairing-server-go/internal/errors"
	"github.com/guardianai/pairing-server-go/internal/identity"
	"github.com/guardianai/pairing-server-go/internal/model"
	"github.com/guardianai/pairing-server-go/internal/payload"
	"github.com/guardianai/pairing-server-go/internal/repository"
	"github.com/guardianai/pairing-server-go/internal/util"
)

// PairingNotifier pushes a pairing-completion event to the parent device
// waiting on its QR screen. Delivery is best effort; the link is already
// durable by the time this is called.
type PairingNotifier interface {
	NotifyPaired(ctx context.Context, parentID string, link *model.DeviceLink) error
}

// RedemptionResult is the terminal state of a successful redemption.
type RedemptionResult struct {
	Link     *model.DeviceLink
	Redeemer *model.Principal
	// DeviceCredential is set only when the redeeming device had no identity
	// and one was provisioned during this redemption. It is never persisted
	// in clear and never returned again.
	DeviceCredential string
}

type PairingService struct {
	tokens    repository.PairingTokenRepository
	links     repository.DeviceLinkRepository
	identity  identity.Provider
	notifier  PairingNotifier
	ttl       time.Duration
	maxTTL    time.Duration
	maxActive int
	now       func() time.Time
}

func NewPairingService(
	tokens repository.PairingTokenRepository,
	links repository.DeviceLinkRepository,
	idp identity.Provider,
	notifier PairingNotifier,
	ttl time.Duration,
	maxTTL time.Duration,
	maxActive int,
) *PairingService {
	return &PairingService{
		tokens:    tokens,
		links:     links,
		identity:  idp,
		notifier:  notifier,
		ttl:       ttl,
		maxTTL:    maxTTL,
		maxActive: maxActive,
		now:       time.Now,
	}
}

// IssueToken creates a single-use pairing token for a parent and returns it
// together with the textual QR payload. The payload carries the token value
// only; issuer identity is re-derived from the store at redemption time.
func (s *PairingService) IssueToken(ctx context.Context, parentID string, ttl time.Duration) (*model.PairingToken, string, error) {
	if parentID == "" {
		return nil, "", apperrors.MissingRequired("parentId")
	}
	if ttl <= 0 {
		ttl = s.ttl
	}
	if ttl > s.maxTTL {
		ttl = s.maxTTL
	}

	issuer, err := s.identity.FindByID(ctx, parentID)
	if err != nil {
		return nil, "", apperrors.StoreUnavailable(err)
	}
	if issuer == nil {
		return nil, "", apperrors.NotFound("Parent principal")
	}
	if issuer.Anonymous || issuer.Role != model.RoleParent {
		return nil, "", apperrors.Forbidden("Only a signed-in parent may issue pairing tokens")
	}

	now := s.now()
	activeCount, err := s.tokens.CountActiveByIssuer(ctx, parentID, now)
	if err != nil {
		return nil, "", apperrors.StoreUnavailable(err)
	}
	if activeCount >= s.maxActive {
		return nil, "", apperrors.TokenLimitReached(s.maxActive)
	}

	value, err := util.GenerateToken()
	if err != nil {
		return nil, "", apperrors.Internal("failed to generate token").WithCause(err)
	}

	pt, err := s.tokens.Create(ctx, model.CreatePairingTokenParams{
		Token:     value,
		IssuerID:  parentID,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	})
	if err != nil {
		return nil, "", apperrors.StoreUnavailable(fmt.Errorf("create pairing token: %w", err))
	}

	audit.Log(ctx, audit.Event{
		Type:        audit.EventTokenIssued,
		PrincipalID: parentID,
		Details:     map[string]interface{}{"token": util.MaskToken(value), "expiresAt": pt.ExpiresAt},
	})

	log.Info().
		Str("token", util.MaskToken(value)).
		Str("issuerId", parentID).
		Time("expiresAt", pt.ExpiresAt).
		Msg("pairing token issued")

	return pt, payload.Encode(value), nil
}

// ListActiveTokens returns the parent's unexpired tokens.
func (s *PairingService) ListActiveTokens(ctx context.Context, parentID string) ([]model.PairingToken, error) {
	tokens, err := s.tokens.FindActiveByIssuer(ctx, parentID, s.now())
	if err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}
	return tokens, nil
}

// Redeem runs the redemption protocol for a scanned payload on behalf of the
// presenting device. The sequence is: parse, authenticate, consume, link.
// Consumption is the point of no return: once the token row is gone, any
// later failure is reported as LINK_WRITE_FAILED and the token stays dead.
func (s *PairingService) Redeem(ctx context.Context, rawPayload string, current *model.Principal) (*RedemptionResult, error) {
	// Received
	token, err := payload.Parse(rawPayload)
	if err != nil || !util.IsValidTokenValue(token) {
		s.auditRejected(ctx, current, apperrors.ErrCodeInvalidFormat)
		return nil, apperrors.InvalidFormat()
	}

	// Authenticated. A signed-in identity on the scanning device is never
	// silently reused; the device must start from a clean anonymous session.
	if current != nil && !current.Anonymous {
		s.auditRejected(ctx, current, apperrors.ErrCodeWrongIdentityState)
		return nil, apperrors.WrongIdentityState()
	}

	var credential string
	redeemer := current
	if redeemer == nil {
		var signInErr error
		redeemer, credential, signInErr = s.identity.SignInAnonymously(ctx)
		if signInErr != nil {
			return nil, apperrors.StoreUnavailable(signInErr)
		}
	}

	// Validated. Exactly one concurrent redeemer can get the record back;
	// everyone else observes an absent token.
	pt, err := s.tokens.Consume(ctx, token, s.now())
	if err != nil {
		if errors.Is(err, repository.ErrTokenExpired) {
			s.auditRejected(ctx, redeemer, apperrors.ErrCodeTokenExpired)
			return nil, apperrors.TokenExpired()
		}
		return nil, apperrors.StoreUnavailable(err)
	}
	if pt == nil {
		s.auditRejected(ctx, redeemer, apperrors.ErrCodeInvalidToken)
		return nil, apperrors.InvalidToken()
	}

	// Linked. The token is already consumed; a failure here must not try to
	// resurrect it.
	link, err := s.links.ReplaceActive(ctx, model.CreateDeviceLinkParams{
		LinkID:   uuid.NewString(),
		ParentID: pt.IssuerID,
		ChildID:  redeemer.ID,
	})
	if err != nil {
		log.Error().Err(err).
			Str("issuerId", pt.IssuerID).
			Str("childId", redeemer.ID).
			Msg("device link write failed after token consumption")
		s.auditRejected(ctx, redeemer, apperrors.ErrCodeLinkWriteFailed)
		return nil, apperrors.LinkWriteFailed(err)
	}

	// Done.
	audit.Log(ctx, audit.Event{
		Type:        audit.EventRedeemSuccess,
		PrincipalID: redeemer.ID,
		Details:     map[string]interface{}{"linkId": link.LinkID, "parentId": link.ParentID},
	})

	log.Info().
		Str("linkId", link.LinkID).
		Str("parentId", link.ParentID).
		Str("childId", link.ChildID).
		Msg("pairing redeemed")

	if s.notifier != nil {
		if err := s.notifier.NotifyPaired(ctx, link.ParentID, link); err != nil {
			log.Warn().Err(err).Str("parentId", link.ParentID).Msg("pairing notification failed")
		}
	}

	return &RedemptionResult{
		Link:             link,
		Redeemer:         redeemer,
		DeviceCredential: credential,
	}, nil
}

func (s *PairingService) auditRejected(ctx context.Context, principal *model.Principal, code apperrors.ErrorCode) {
	event := audit.Event{
		Type:    audit.EventRedeemRejected,
		Details: map[string]interface{}{"code": string(code)},
	}
	if principal != nil {
		event.PrincipalID = principal.ID
	}
	audit.Log(ctx, event)
}

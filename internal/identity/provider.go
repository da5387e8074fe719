// Package identity is the boundary to the identity layer. The pairing
// protocol consumes it to provision anonymous child principals and to decide
// whether a redeeming device is in a state it may pair from.
package identity

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/guardianai/pairing-server-go/internal/model"
	"github.com/guardianai/pairing-server-go/internal/repository"
	"github.com/guardianai/pairing-server-go/internal/util"
)

// Provider issues and resolves principals.
type Provider interface {
	// SignInAnonymously provisions a fresh anonymous child principal. The
	// returned credential is the device's bearer secret; it is handed out
	// exactly once and only its hash is stored.
	SignInAnonymously(ctx context.Context) (*model.Principal, string, error)
	FindByID(ctx context.Context, id string) (*model.Principal, error)
	// Promote upgrades an anonymous principal to a full account, keeping its
	// subject identifier and any device links pointing at it.
	Promote(ctx context.Context, id string, email string) error
}

type Service struct {
	principals repository.PrincipalRepository
}

var _ Provider = (*Service)(nil)

func NewService(principals repository.PrincipalRepository) *Service {
	return &Service{principals: principals}
}

func (s *Service) SignInAnonymously(ctx context.Context) (*model.Principal, string, error) {
	credential, err := util.GenerateToken()
	if err != nil {
		return nil, "", fmt.Errorf("generate credential: %w", err)
	}

	principal, err := s.principals.Create(ctx, model.CreatePrincipalParams{
		ID:             uuid.NewString(),
		Role:           model.RoleChild,
		Anonymous:      true,
		CredentialHash: util.HashToken(credential),
	})
	if err != nil {
		return nil, "", fmt.Errorf("create anonymous principal: %w", err)
	}

	log.Info().Str("principalId", principal.ID).Msg("anonymous principal provisioned")
	return principal, credential, nil
}

func (s *Service) FindByID(ctx context.Context, id string) (*model.Principal, error) {
	return s.principals.FindByID(ctx, id)
}

func (s *Service) Promote(ctx context.Context, id string, email string) error {
	if err := s.principals.Promote(ctx, id, email); err != nil {
		return fmt.Errorf("promote principal: %w", err)
	}
	log.Info().Str("principalId", id).Msg("anonymous principal promoted")
	return nil
}

package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/guardianai/pairing-server-go/internal/config"
	"github.com/guardianai/pairing-server-go/internal/repository"
)

// ReaperJob periodically purges expired, unredeemed pairing tokens and
// anonymous principals that never completed a pairing. It is safe to run
// alongside live redemptions: the reaper and Consume share the same expiry
// predicate and a row can only be deleted once.
type ReaperJob struct {
	tokenRepo     repository.PairingTokenRepository
	principalRepo repository.PrincipalRepository
	interval      time.Duration
	done          chan struct{}
}

func NewReaperJob(
	tokenRepo repository.PairingTokenRepository,
	principalRepo repository.PrincipalRepository,
	interval time.Duration,
) *ReaperJob {
	return &ReaperJob{
		tokenRepo:     tokenRepo,
		principalRepo: principalRepo,
		interval:      interval,
		done:          make(chan struct{}),
	}
}

func (j *ReaperJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Msg("reaper job started")
}

func (j *ReaperJob) Stop() {
	close(j.done)
	log.Info().Msg("reaper job stopped")
}

func (j *ReaperJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.Sweep()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.Sweep()
		}
	}
}

// Sweep runs one pass. Exported so it can also be triggered on demand.
func (j *ReaperJob) Sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	now := time.Now()
	j.runSweep(ctx, "pairing tokens", func(ctx context.Context) (int64, error) {
		return j.tokenRepo.DeleteExpired(ctx, now)
	})
	if j.principalRepo != nil {
		j.runSweep(ctx, "orphaned anonymous principals", func(ctx context.Context) (int64, error) {
			return j.principalRepo.DeleteOrphanedAnonymous(ctx, now.Add(-config.OrphanPrincipalMaxAge))
		})
	}
}

func (j *ReaperJob) runSweep(ctx context.Context, name string, fn func(context.Context) (int64, error)) {
	count, err := fn(ctx)
	if err != nil {
		log.Error().Err(err).Msgf("failed to sweep %s", name)
	} else if count > 0 {
		log.Info().Int64("count", count).Msgf("swept %s", name)
	}
}

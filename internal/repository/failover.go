package repository

import (
	"context"
	"sync"
	"time"

	"medcenter/internal/domain"
	"medcenter/internal/models"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverSessionRepository пишет в primary (Redis), а при его ошибке
// переключается на fallback (память) и раз в минуту пробует вернуться.
type FailoverSessionRepository struct {
	primary  domain.SessionRepository
	fallback domain.SessionRepository
	logger   *zerolog.Logger

	mu        sync.Mutex
	down      bool
	lastCheck time.Time
	now       func() time.Time
	// удаления, которые не дошли до primary, пока он был недоступен
	pendingDeletes map[string]struct{}
}

func NewFailoverSessionRepository(primary, fallback domain.SessionRepository, logger *zerolog.Logger) *FailoverSessionRepository {
	return &FailoverSessionRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
		now:      time.Now,

		pendingDeletes: make(map[string]struct{}),
	}
}

// usePrimary reports whether the next call should try the primary store.
func (r *FailoverSessionRepository) usePrimary() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.down {
		return true
	}
	if r.now().Sub(r.lastCheck) > recoveryInterval {
		r.lastCheck = r.now()
		return true
	}
	return false
}

// tryPrimary reports whether the primary can serve the next call. Deletes
// missed during an outage are replayed first.
func (r *FailoverSessionRepository) tryPrimary(ctx context.Context) bool {
	if !r.usePrimary() {
		return false
	}
	if err := r.flushDeletes(ctx); err != nil {
		r.report(err)
		return false
	}
	return true
}

func (r *FailoverSessionRepository) flushDeletes(ctx context.Context) error {
	r.mu.Lock()
	ids := make([]string, 0, len(r.pendingDeletes))
	for id := range r.pendingDeletes {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	for _, id := range ids {
		if err := r.primary.DeleteSession(ctx, id); err != nil {
			return err
		}
		r.mu.Lock()
		delete(r.pendingDeletes, id)
		r.mu.Unlock()
	}
	return nil
}

func (r *FailoverSessionRepository) report(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err == nil {
		if r.down {
			r.logger.Info().Msg("primary session repository recovered")
		}
		r.down = false
		return
	}
	if !r.down {
		r.logger.Error().Err(err).Msg("primary session repository failed, falling back to memory")
	}
	r.down = true
	r.lastCheck = r.now()
}

func (r *FailoverSessionRepository) GetSession(ctx context.Context, id string) (*models.WizardSession, error) {
	if r.tryPrimary(ctx) {
		s, err := r.primary.GetSession(ctx, id)
		r.report(err)
		if err == nil {
			if s != nil {
				return s, nil
			}
			// сессия могла быть создана, пока Redis был недоступен
			return r.fallback.GetSession(ctx, id)
		}
	}
	return r.fallback.GetSession(ctx, id)
}

func (r *FailoverSessionRepository) SaveSession(ctx context.Context, s *models.WizardSession) error {
	if r.tryPrimary(ctx) {
		err := r.primary.SaveSession(ctx, s)
		r.report(err)
		if err == nil {
			return nil
		}
	}
	return r.fallback.SaveSession(ctx, s)
}

// DeleteSession removes the session from both stores. A delete the primary
// cannot take is kept and replayed once the primary answers again.
func (r *FailoverSessionRepository) DeleteSession(ctx context.Context, id string) error {
	deleted := false
	if r.tryPrimary(ctx) {
		err := r.primary.DeleteSession(ctx, id)
		r.report(err)
		deleted = err == nil
	}
	if !deleted {
		r.mu.Lock()
		r.pendingDeletes[id] = struct{}{}
		r.mu.Unlock()
	}
	return r.fallback.DeleteSession(ctx, id)
}

func (r *FailoverSessionRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if r.tryPrimary(ctx) {
		allowed, err := r.primary.CheckRateLimit(ctx, key, limit, window)
		r.report(err)
		if err == nil {
			return allowed, nil
		}
	}
	return r.fallback.CheckRateLimit(ctx, key, limit, window)
}

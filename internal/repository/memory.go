package repository

import (
	"context"
	"sync"
	"time"

	"medcenter/internal/models"
)

type memorySession struct {
	data      []byte
	expiresAt time.Time
}

// MemorySessionRepository держит сессии в памяти процесса. Сессии хранятся
// сериализованными, чтобы вызывающий не мог изменить сохранённую копию.
type MemorySessionRepository struct {
	mu         sync.Mutex
	sessions   map[string]memorySession
	rateLimits map[string]*rateLimitEntry
	ttl        time.Duration
	now        func() time.Time
}

func NewMemorySessionRepository(ttl time.Duration) *MemorySessionRepository {
	return &MemorySessionRepository{
		sessions:   make(map[string]memorySession),
		rateLimits: make(map[string]*rateLimitEntry),
		ttl:        ttl,
		now:        time.Now,
	}
}

func (r *MemorySessionRepository) GetSession(_ context.Context, id string) (*models.WizardSession, error) {
	r.mu.Lock()
	entry, ok := r.sessions[id]
	if ok && r.expired(entry.expiresAt) {
		delete(r.sessions, id)
		ok = false
	}
	r.mu.Unlock()
	if !ok {
		return nil, nil
	}
	return decodeSession(entry.data)
}

func (r *MemorySessionRepository) SaveSession(_ context.Context, s *models.WizardSession) error {
	data, err := encodeSession(s)
	if err != nil {
		return err
	}
	entry := memorySession{data: data}
	if r.ttl > 0 {
		entry.expiresAt = r.now().Add(r.ttl)
	}
	r.mu.Lock()
	r.sessions[s.ID] = entry
	r.mu.Unlock()
	return nil
}

func (r *MemorySessionRepository) DeleteSession(_ context.Context, id string) error {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
	return nil
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

func (r *MemorySessionRepository) CheckRateLimit(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.rateLimits[key]
	if !ok || now.After(entry.expiresAt) {
		entry = &rateLimitEntry{expiresAt: now.Add(window)}
		r.rateLimits[key] = entry
	}
	entry.count++
	return entry.count <= limit, nil
}

func (r *MemorySessionRepository) expired(at time.Time) bool {
	return !at.IsZero() && r.now().After(at)
}

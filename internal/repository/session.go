package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"example.com/networth-optimizer/web/internal/models"
)

const sessionKeyPrefix = "session:"

type RedisSessionRepository struct {
	client *redis.Client
}

// NewRedisSessionRepository создает хранилище сессий в Redis.
func NewRedisSessionRepository(client *redis.Client) *RedisSessionRepository {
	return &RedisSessionRepository{client: client}
}

// Get возвращает сессию по идентификатору.
func (r *RedisSessionRepository) Get(ctx context.Context, id uuid.UUID) (models.Session, error) {
	var session models.Session

	raw, err := r.client.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return session, ErrNotFound
		}
		return session, err
	}

	if err := json.Unmarshal(raw, &session); err != nil {
		return session, fmt.Errorf("%w: decode session: %v", ErrInvalid, err)
	}

	return session, nil
}

// Save сохраняет сессию с TTL.
func (r *RedisSessionRepository) Save(ctx context.Context, session models.Session, ttl time.Duration) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return err
	}

	return r.client.Set(ctx, sessionKey(session.ID), payload, ttl).Err()
}

// Delete удаляет сессию.
func (r *RedisSessionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.client.Del(ctx, sessionKey(id)).Err()
}

func sessionKey(id uuid.UUID) string {
	return sessionKeyPrefix + id.String()
}

type memorySession struct {
	session   models.Session
	expiresAt time.Time
}

// MemorySessionRepository keeps sessions in process memory. It is used when
// Redis is not configured or unreachable.
type MemorySessionRepository struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]memorySession
	now      func() time.Time
}

// NewMemorySessionRepository создает хранилище сессий в памяти.
func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{
		sessions: make(map[uuid.UUID]memorySession),
		now:      time.Now,
	}
}

// Get возвращает сессию, если она не истекла.
func (r *MemorySessionRepository) Get(ctx context.Context, id uuid.UUID) (models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.sessions[id]
	if !ok {
		return models.Session{}, ErrNotFound
	}

	if !entry.expiresAt.IsZero() && r.now().After(entry.expiresAt) {
		delete(r.sessions, id)
		return models.Session{}, ErrNotFound
	}

	return entry.session, nil
}

// Save сохраняет сессию с TTL. TTL <= 0 означает без срока.
func (r *MemorySessionRepository) Save(ctx context.Context, session models.Session, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := memorySession{session: session}
	if ttl > 0 {
		entry.expiresAt = r.now().Add(ttl)
	}
	r.sessions[session.ID] = entry
	r.sweepLocked()

	return nil
}

// Delete удаляет сессию.
func (r *MemorySessionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, id)
	return nil
}

func (r *MemorySessionRepository) sweepLocked() {
	now := r.now()
	for id, entry := range r.sessions {
		if !entry.expiresAt.IsZero() && now.After(entry.expiresAt) {
			delete(r.sessions, id)
		}
	}
}

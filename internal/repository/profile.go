package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/networth-optimizer/web/internal/models"
)

type PostgresProfileRepository struct {
	db *pgxpool.Pool
}

// NewPostgresProfileRepository создает репозиторий профилей в PostgreSQL.
func NewPostgresProfileRepository(db *pgxpool.Pool) *PostgresProfileRepository {
	return &PostgresProfileRepository{db: db}
}

// Get возвращает профиль пользователя.
func (r *PostgresProfileRepository) Get(ctx context.Context, userID uuid.UUID) (models.FinancialProfile, error) {
	var raw []byte

	err := r.db.QueryRow(ctx,
		`SELECT profile
		 FROM financial_profiles
		 WHERE user_id = $1`,
		userID,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.FinancialProfile{}, ErrNotFound
		}
		return models.FinancialProfile{}, err
	}

	return decodeProfile(raw)
}

// Save создает или обновляет профиль пользователя.
func (r *PostgresProfileRepository) Save(ctx context.Context, userID uuid.UUID, profile models.FinancialProfile) error {
	raw, err := json.Marshal(profile)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO financial_profiles (user_id, profile, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (user_id) DO UPDATE
		 SET profile = EXCLUDED.profile, updated_at = now()`,
		userID, raw,
	)
	return err
}

type SQLiteProfileRepository struct {
	db *sql.DB
}

// NewSQLiteProfileRepository создает репозиторий профилей в SQLite.
func NewSQLiteProfileRepository(db *sql.DB) *SQLiteProfileRepository {
	return &SQLiteProfileRepository{db: db}
}

// Get возвращает профиль пользователя.
func (r *SQLiteProfileRepository) Get(ctx context.Context, userID uuid.UUID) (models.FinancialProfile, error) {
	var raw string

	err := r.db.QueryRowContext(ctx,
		`SELECT profile FROM financial_profiles WHERE user_id = ?`,
		userID.String(),
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.FinancialProfile{}, ErrNotFound
		}
		return models.FinancialProfile{}, err
	}

	return decodeProfile([]byte(raw))
}

// Save создает или обновляет профиль пользователя.
func (r *SQLiteProfileRepository) Save(ctx context.Context, userID uuid.UUID, profile models.FinancialProfile) error {
	raw, err := json.Marshal(profile)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO financial_profiles (user_id, profile, updated_at)
		 VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(user_id) DO UPDATE SET profile = excluded.profile, updated_at = CURRENT_TIMESTAMP`,
		userID.String(), string(raw),
	)
	return err
}

type MemoryProfileRepository struct {
	mu       sync.RWMutex
	profiles map[uuid.UUID][]byte
}

// NewMemoryProfileRepository создает репозиторий профилей в памяти.
func NewMemoryProfileRepository() *MemoryProfileRepository {
	return &MemoryProfileRepository{profiles: make(map[uuid.UUID][]byte)}
}

// Get возвращает профиль пользователя.
func (r *MemoryProfileRepository) Get(ctx context.Context, userID uuid.UUID) (models.FinancialProfile, error) {
	r.mu.RLock()
	raw, ok := r.profiles[userID]
	r.mu.RUnlock()

	if !ok {
		return models.FinancialProfile{}, ErrNotFound
	}
	return decodeProfile(raw)
}

// Save сохраняет профиль пользователя.
func (r *MemoryProfileRepository) Save(ctx context.Context, userID uuid.UUID, profile models.FinancialProfile) error {
	raw, err := json.Marshal(profile)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.profiles[userID] = raw
	r.mu.Unlock()
	return nil
}

func decodeProfile(raw []byte) (models.FinancialProfile, error) {
	var profile models.FinancialProfile
	if err := json.Unmarshal(raw, &profile); err != nil {
		return models.FinancialProfile{}, fmt.Errorf("%w: decode profile: %v", ErrInvalid, err)
	}
	return profile, nil
}

package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/target/exam-portal/internal/data/pgxutil"
	apperrors "github.com/target/exam-portal/internal/errors"
)

// StorageRepo persists session keys in the client_storage table, one namespace
// per device. It implements ports.Storage.
type StorageRepo struct {
	DB        *sql.DB
	Namespace string
	// TTL sets expires_at on writes. Zero keeps rows until removed.
	TTL  time.Duration
	Time TimeProvider
}

// StorageRepoOptions configures NewStorageRepo.
type StorageRepoOptions struct {
	Namespace string
	TTL       time.Duration
	Time      TimeProvider
}

// NewStorageRepo creates a StorageRepo.
func NewStorageRepo(db *sql.DB, opts StorageRepoOptions) *StorageRepo {
	tp := opts.Time
	if tp == nil {
		tp = RealTimeProvider{}
	}
	return &StorageRepo{DB: db, Namespace: opts.Namespace, TTL: opts.TTL, Time: tp}
}

// ForNamespace returns a view of the same table scoped to ns.
func (r *StorageRepo) ForNamespace(ns string) *StorageRepo {
	cp := *r
	cp.Namespace = ns
	return &cp
}

type storageRow struct {
	Value     string     `db:"value"`
	ExpiresAt *time.Time `db:"expires_at"`
}

// Get returns the value under key. Expired rows read as absent.
func (r *StorageRepo) Get(ctx context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, ErrStorageKeyRequired
	}
	row, err := pgxutil.CollectOne[storageRow](ctx, r.DB,
		`SELECT value, expires_at FROM client_storage WHERE namespace = $1 AND key = $2`,
		r.Namespace, key)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get storage key: %w", apperrors.MapDBError(err))
	}
	if row.ExpiresAt != nil && !row.ExpiresAt.After(r.Time.Now()) {
		return "", false, nil
	}
	return row.Value, true, nil
}

// Set upserts value under key.
func (r *StorageRepo) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return ErrStorageKeyRequired
	}
	now := r.Time.Now().UTC()
	var expires *time.Time
	if r.TTL > 0 {
		e := now.Add(r.TTL)
		expires = &e
	}
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO client_storage (namespace, key, value, updated_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (namespace, key)
		DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at, expires_at = EXCLUDED.expires_at`,
		r.Namespace, key, value, now, expires)
	if err != nil {
		return fmt.Errorf("set storage key: %w", apperrors.MapDBError(err))
	}
	return nil
}

// Remove deletes key. A missing key is not an error.
func (r *StorageRepo) Remove(ctx context.Context, key string) error {
	if key == "" {
		return ErrStorageKeyRequired
	}
	if _, err := r.DB.ExecContext(ctx,
		`DELETE FROM client_storage WHERE namespace = $1 AND key = $2`, r.Namespace, key); err != nil {
		return fmt.Errorf("remove storage key: %w", apperrors.MapDBError(err))
	}
	return nil
}

// PurgeExpired deletes expired rows in every namespace and returns how many were removed.
func (r *StorageRepo) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		`DELETE FROM client_storage WHERE expires_at IS NOT NULL AND expires_at <= $1`, r.Time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("purge expired storage: %w", apperrors.MapDBError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge expired storage: %w", err)
	}
	return n, nil
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront-client/internal/domain/session"
)

// SessionStorage 以 client_storage 表實作 session.Storage，不同 namespace 互不影響。
type SessionStorage struct {
	db        *sql.DB
	namespace string
}

func NewSessionStorage(db *sql.DB, namespace string) *SessionStorage {
	return &SessionStorage{db: db, namespace: namespace}
}

func (s *SessionStorage) Get(ctx context.Context, key string) (string, error) {
	const q = `
SELECT value FROM client_storage WHERE namespace = $1 AND key = $2 LIMIT 1;
`
	var value string
	err := s.db.QueryRowContext(ctx, q, s.namespace, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", session.ErrKeyNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get %s: %w", key, err)
	}
	return value, nil
}

func (s *SessionStorage) Set(ctx context.Context, key, value string) error {
	const q = `
INSERT INTO client_storage (namespace, key, value, updated_at)
VALUES ($1, $2, $3, NOW())
ON CONFLICT (namespace, key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW();
`
	if _, err := s.db.ExecContext(ctx, q, s.namespace, key, value); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (s *SessionStorage) Remove(ctx context.Context, key string) error {
	const q = `DELETE FROM client_storage WHERE namespace = $1 AND key = $2;`
	if _, err := s.db.ExecContext(ctx, q, s.namespace, key); err != nil {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

// Clear 刪除此 namespace 下所有鍵。
func (s *SessionStorage) Clear(ctx context.Context) error {
	const q = `DELETE FROM client_storage WHERE namespace = $1;`
	if _, err := s.db.ExecContext(ctx, q, s.namespace); err != nil {
		return fmt.Errorf("clear storage: %w", err)
	}
	return nil
}

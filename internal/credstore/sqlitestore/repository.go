package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/sessionkeeper/internal/dbx"
)

// row is one slot of the credentials table.
type row struct {
	Value     string
	Origin    string
	UpdatedAt int64
}

type repository struct {
	db dbx.DBTX
}

// get returns (nil, nil) when the key is missing.
func (r *repository) get(ctx context.Context, key string) (*row, error) {
	var v row
	err := r.db.QueryRowContext(ctx,
		`SELECT value, origin, updated_at FROM credentials WHERE key = ?`, key,
	).Scan(&v.Value, &v.Origin, &v.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get credential[%s]: %w", key, err)
	}
	return &v, nil
}

func (r *repository) set(ctx context.Context, key string, v row) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO credentials (key, value, origin, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			origin = excluded.origin,
			updated_at = excluded.updated_at
	`, key, v.Value, v.Origin, v.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to set credential[%s]: %w", key, err)
	}
	return nil
}

// delete reports whether a row was removed.
func (r *repository) delete(ctx context.Context, key string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM credentials WHERE key = ?`, key)
	if err != nil {
		return false, fmt.Errorf("failed to delete credential[%s]: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete credential[%s]: %w", key, err)
	}
	return n > 0, nil
}

// dataVersion changes only when another connection commits to the database.
func (r *repository) dataVersion(ctx context.Context) (int64, error) {
	var v int64
	if err := r.db.QueryRowContext(ctx, `PRAGMA data_version`).Scan(&v); err != nil {
		return 0, fmt.Errorf("failed to read data_version: %w", err)
	}
	return v, nil
}

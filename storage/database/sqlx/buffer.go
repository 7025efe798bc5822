package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/lms/core/scorm"
)

// bufferRepository stores the runtime values set by content packages between commits.
type bufferRepository struct {
	db *sqlx.DB
}

var _ scorm.BufferWriter = (*bufferRepository)(nil)

func NewBufferRepository(db *sqlx.DB) *bufferRepository {
	return &bufferRepository{db: db}
}

func (repo *bufferRepository) Get(ctx context.Context, attemptID string) (scorm.Values, error) {
	var rows []struct {
		Key   string `db:"key"`
		Value string `db:"value"`
	}
	if err := repo.db.SelectContext(ctx, &rows, `SELECT key, value FROM runtime_buffer WHERE attempt_id = $1`, attemptID); err != nil {
		return nil, errors.Wrap(err, "selecting runtime buffer")
	}

	vals := make(scorm.Values, len(rows))
	for _, row := range rows {
		vals[row.Key] = row.Value
	}
	return vals, nil
}

// Set writes all values in one transaction, replacing existing keys.
func (repo *bufferRepository) Set(ctx context.Context, attemptID string, vals scorm.Values) (err error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PreparexContext(ctx, `INSERT INTO runtime_buffer (attempt_id, key, value, updated_at) VALUES ($1, $2, $3, $4)
		ON CONFLICT (attempt_id, key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`)
	if err != nil {
		return errors.Wrap(err, "preparing runtime buffer upsert")
	}
	defer func() { _ = stmt.Close() }()

	now := time.Now().UTC()
	for key, val := range vals {
		if _, err = stmt.ExecContext(ctx, attemptID, key, val, now); err != nil {
			return errors.Wrapf(err, "setting %q", key)
		}
	}

	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "committing runtime buffer")
	}
	return nil
}

func (repo *bufferRepository) Clear(ctx context.Context, attemptID string) error {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM runtime_buffer WHERE attempt_id = $1`, attemptID); err != nil {
		return errors.Wrap(err, "clearing runtime buffer")
	}
	return nil
}

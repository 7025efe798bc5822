package inmemdb

import (
	"context"

	"github.com/trezcool/lms/core/scorm"
)

type bufferRepository struct {
	db *bufferTable
}

var _ scorm.BufferWriter = (*bufferRepository)(nil)

func NewBufferRepository(db *DB) *bufferRepository {
	return &bufferRepository{db: db.buffer}
}

// Get returns a copy of the attempt's values.
func (repo *bufferRepository) Get(_ context.Context, attemptID string) (scorm.Values, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	stored := repo.db.table[attemptID]
	vals := make(scorm.Values, len(stored))
	for k, v := range stored {
		vals[k] = v
	}
	return vals, nil
}

func (repo *bufferRepository) Set(_ context.Context, attemptID string, vals scorm.Values) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	stored, ok := repo.db.table[attemptID]
	if !ok {
		stored = make(scorm.Values, len(vals))
		repo.db.table[attemptID] = stored
	}
	for k, v := range vals {
		stored[k] = v
	}
	return nil
}

func (repo *bufferRepository) Clear(_ context.Context, attemptID string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	delete(repo.db.table, attemptID)
	return nil
}

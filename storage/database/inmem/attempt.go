package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/lms/core"
	"github.com/trezcool/lms/core/scorm"
)

type attemptRepository struct {
	attempts     *attemptTable
	interactions *interactionTable

	// FailInteraction makes UpsertInteraction fail for these interaction ids. Used by tests.
	FailInteraction map[string]error
}

var _ scorm.Repository = (*attemptRepository)(nil)

func NewAttemptRepository(db *DB) *attemptRepository {
	return &attemptRepository{
		attempts:     db.attempt,
		interactions: db.interaction,
	}
}

func (repo *attemptRepository) CreateAttempt(_ context.Context, attempt scorm.Attempt) (scorm.Attempt, error) {
	repo.attempts.Lock()
	defer repo.attempts.Unlock()

	if attempt.TotalTime == "" {
		attempt.TotalTime = scorm.Elapsed(0).String()
	}
	repo.attempts.table[attempt.ID] = &attempt
	return attempt, nil
}

func (repo *attemptRepository) GetAttempt(_ context.Context, id string) (scorm.Attempt, error) {
	repo.attempts.RLock()
	defer repo.attempts.RUnlock()

	if a, ok := repo.attempts.table[id]; ok {
		return *a, nil
	}
	return scorm.Attempt{}, scorm.ErrAttemptNotFound
}

func (repo *attemptRepository) UpdateAttempt(_ context.Context, id string, upd scorm.Update) (scorm.Attempt, error) {
	repo.attempts.Lock()
	defer repo.attempts.Unlock()

	a, ok := repo.attempts.table[id]
	if !ok {
		return scorm.Attempt{}, scorm.ErrAttemptNotFound
	}
	updated := upd.Apply(*a)
	repo.attempts.table[id] = &updated
	return updated, nil
}

func (repo *attemptRepository) UpsertInteraction(_ context.Context, it scorm.Interaction) error {
	if err, ok := repo.FailInteraction[it.InteractionID]; ok {
		return err
	}

	repo.interactions.Lock()
	defer repo.interactions.Unlock()

	repo.interactions.table[interactionKey{it.AttemptID, it.InteractionID}] = &it
	return nil
}

func (repo *attemptRepository) QueryInteractions(
	_ context.Context,
	filter scorm.InteractionFilter,
	ordering []core.DBOrdering,
) ([]scorm.Interaction, error) {
	repo.interactions.RLock()
	defer repo.interactions.RUnlock()

	interactions := make([]scorm.Interaction, 0)
	for key, it := range repo.interactions.table {
		if key.attemptID != filter.AttemptID {
			continue
		}
		if filter.Result != "" && it.Result != filter.Result {
			continue
		}
		interactions = append(interactions, *it)
	}

	sort.SliceStable(interactions, func(i, j int) bool {
		for _, ord := range ordering {
			c := compareInteractions(interactions[i], interactions[j], ord.Field)
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return interactions[i].InteractionID < interactions[j].InteractionID
	})
	return interactions, nil
}

func compareInteractions(a, b scorm.Interaction, field string) int {
	switch field {
	case "interaction_id":
		return strings.Compare(a.InteractionID, b.InteractionID)
	case "result":
		return strings.Compare(a.Result, b.Result)
	case "weighting":
		switch {
		case a.Weighting < b.Weighting:
			return -1
		case a.Weighting > b.Weighting:
			return 1
		}
	case "updated_at":
		switch {
		case a.UpdatedAt.Before(b.UpdatedAt):
			return -1
		case a.UpdatedAt.After(b.UpdatedAt):
			return 1
		}
	}
	return 0
}

package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/lms/core"
	"github.com/trezcool/lms/core/scorm"
)

// total_time is stored as an INTERVAL and read back as whole seconds
const attemptColumns = `id, user_id, location, score_raw, score_min, score_max, score_scaled, exit, suspend_data,
	lesson_status, completed_at, EXTRACT(EPOCH FROM total_time)::BIGINT AS total_seconds, last_accessed_at, created_at`

var interactionOrderings = []string{"interaction_id", "result", "updated_at", "weighting"}

type attemptRow struct {
	scorm.Attempt
	TotalSeconds int64 `db:"total_seconds"`
}

func (row attemptRow) toAttempt() scorm.Attempt {
	a := row.Attempt
	a.TotalTime = scorm.Elapsed(row.TotalSeconds).String()
	return a
}

type attemptRepository struct {
	db *sqlx.DB
}

var _ scorm.Repository = (*attemptRepository)(nil)

func NewAttemptRepository(db *sqlx.DB) *attemptRepository {
	return &attemptRepository{db: db}
}

func (repo *attemptRepository) CreateAttempt(ctx context.Context, attempt scorm.Attempt) (scorm.Attempt, error) {
	q := `INSERT INTO attempt (id, user_id, total_time, created_at) VALUES ($1, $2, $3::INTERVAL, $4)
		RETURNING ` + attemptColumns

	var row attemptRow
	err := repo.db.GetContext(ctx, &row, q, attempt.ID, attempt.UserID, totalTimeOrZero(attempt.TotalTime), attempt.CreatedAt)
	if err != nil {
		return scorm.Attempt{}, errors.Wrap(err, "inserting attempt")
	}
	return row.toAttempt(), nil
}

func (repo *attemptRepository) GetAttempt(ctx context.Context, id string) (scorm.Attempt, error) {
	var row attemptRow
	err := repo.db.GetContext(ctx, &row, `SELECT `+attemptColumns+` FROM attempt WHERE id = $1`, id)
	if err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return scorm.Attempt{}, scorm.ErrAttemptNotFound
		}
		return scorm.Attempt{}, errors.Wrap(err, "selecting attempt")
	}
	return row.toAttempt(), nil
}

// UpdateAttempt writes the valid fields of upd in a single statement.
// completed_at keeps its first value.
func (repo *attemptRepository) UpdateAttempt(ctx context.Context, id string, upd scorm.Update) (scorm.Attempt, error) {
	q := `UPDATE attempt SET
		location = COALESCE($2, location),
		score_raw = COALESCE($3, score_raw),
		score_min = COALESCE($4, score_min),
		score_max = COALESCE($5, score_max),
		score_scaled = COALESCE($6, score_scaled),
		exit = COALESCE($7, exit),
		suspend_data = COALESCE($8, suspend_data),
		lesson_status = COALESCE($9, lesson_status),
		completed_at = COALESCE(completed_at, $10),
		total_time = COALESCE($11::INTERVAL, total_time),
		last_accessed_at = COALESCE($12, last_accessed_at)
	WHERE id = $1
	RETURNING ` + attemptColumns

	var lastAccessed null.Time
	if !upd.LastAccessedAt.IsZero() {
		lastAccessed = null.TimeFrom(upd.LastAccessedAt)
	}

	var row attemptRow
	err := repo.db.GetContext(ctx, &row, q,
		id,
		upd.Location,
		upd.ScoreRaw,
		upd.ScoreMin,
		upd.ScoreMax,
		upd.ScoreScaled,
		upd.Exit,
		upd.SuspendData,
		upd.LessonStatus,
		upd.CompletedAt,
		upd.TotalTime,
		lastAccessed,
	)
	if err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return scorm.Attempt{}, scorm.ErrAttemptNotFound
		}
		return scorm.Attempt{}, errors.Wrap(err, "updating attempt")
	}
	return row.toAttempt(), nil
}

func (repo *attemptRepository) UpsertInteraction(ctx context.Context, it scorm.Interaction) error {
	q := `INSERT INTO interaction
		(attempt_id, interaction_id, type, learner_response, correct_response, result, weighting, latency, updated_at)
	VALUES
		(:attempt_id, :interaction_id, :type, :learner_response, :correct_response, :result, :weighting, :latency, :updated_at)
	ON CONFLICT (attempt_id, interaction_id) DO UPDATE SET
		type = EXCLUDED.type,
		learner_response = EXCLUDED.learner_response,
		correct_response = EXCLUDED.correct_response,
		result = EXCLUDED.result,
		weighting = EXCLUDED.weighting,
		latency = EXCLUDED.latency,
		updated_at = EXCLUDED.updated_at`

	if _, err := repo.db.NamedExecContext(ctx, q, it); err != nil {
		return errors.Wrap(err, "upserting interaction")
	}
	return nil
}

func (repo *attemptRepository) QueryInteractions(
	ctx context.Context,
	filter scorm.InteractionFilter,
	ordering []core.DBOrdering,
) ([]scorm.Interaction, error) {
	var (
		where = []string{"attempt_id = $1"}
		args  = []interface{}{filter.AttemptID}
	)
	if filter.Result != "" {
		args = append(args, filter.Result)
		where = append(where, "result = $2")
	}

	q := `SELECT attempt_id, interaction_id, type, learner_response, correct_response, result, weighting, latency, updated_at
	FROM interaction WHERE ` + strings.Join(where, " AND ") + ` ORDER BY ` + orderBy(ordering)

	interactions := make([]scorm.Interaction, 0)
	if err := repo.db.SelectContext(ctx, &interactions, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting interactions")
	}
	return interactions, nil
}

func orderBy(ordering []core.DBOrdering) string {
	return core.OrderByClause(ordering, interactionOrderings, core.DBOrdering{Field: "interaction_id", Ascending: true})
}

// totalTimeOrZero normalizes a canonical total, bounded by scorm.MaxElapsed.
func totalTimeOrZero(total string) string {
	return scorm.ParseTotalTime(null.StringFrom(total)).String()
}

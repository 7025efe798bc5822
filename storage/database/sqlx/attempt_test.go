package sqlxrepos_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/lms/core"
	"github.com/trezcool/lms/core/scorm"
	sqlxrepos "github.com/trezcool/lms/storage/database/sqlx"
	"github.com/trezcool/lms/tests"
)

var ctx = context.Background()

func Test_attemptRepository_attempt(t *testing.T) {
	db := testutil.PrepareDB(t)
	repo := sqlxrepos.NewAttemptRepository(db)

	attempt := testutil.CreateAttempt(t, repo, "u1", "1:2:3")
	assert.Equal(t, "1:2:3", attempt.TotalTime)
	assert.False(t, attempt.LessonStatus.Valid)

	_, err := repo.GetAttempt(ctx, "lol")
	assert.Equal(t, scorm.ErrAttemptNotFound, err)

	_, err = repo.UpdateAttempt(ctx, "lol", scorm.Update{Location: null.StringFrom("x")})
	assert.Equal(t, scorm.ErrAttemptNotFound, err)

	first := time.Now().UTC().Truncate(time.Second)
	updated, err := repo.UpdateAttempt(ctx, attempt.ID, scorm.Update{
		Location:       null.StringFrom("page 3"),
		ScoreRaw:       null.Float64From(85),
		ScoreMax:       null.Float64From(100),
		LessonStatus:   null.StringFrom("passed"),
		CompletedAt:    null.TimeFrom(first),
		TotalTime:      null.StringFrom("100:0:59"),
		LastAccessedAt: first,
	})
	require.NoError(t, err)
	assert.Equal(t, null.StringFrom("page 3"), updated.Location)
	assert.Equal(t, null.Float64From(85), updated.ScoreRaw)
	assert.False(t, updated.ScoreMin.Valid)
	assert.Equal(t, "passed", updated.LessonStatus.String)
	assert.Equal(t, "100:0:59", updated.TotalTime)
	assert.True(t, first.Equal(updated.CompletedAt.Time))

	// absent fields are kept, completion is stamped once
	later := first.Add(time.Hour)
	updated, err = repo.UpdateAttempt(ctx, attempt.ID, scorm.Update{
		Exit:           null.StringFrom("suspend"),
		CompletedAt:    null.TimeFrom(later),
		LastAccessedAt: later,
	})
	require.NoError(t, err)
	assert.Equal(t, null.StringFrom("page 3"), updated.Location)
	assert.Equal(t, null.StringFrom("suspend"), updated.Exit)
	assert.Equal(t, "100:0:59", updated.TotalTime)
	assert.True(t, first.Equal(updated.CompletedAt.Time))
	assert.True(t, later.Equal(updated.LastAccessedAt.Time))

	got, err := repo.GetAttempt(ctx, attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, updated.Exit, got.Exit)
	assert.Equal(t, updated.TotalTime, got.TotalTime)
}

func Test_attemptRepository_interactions(t *testing.T) {
	db := testutil.PrepareDB(t)
	repo := sqlxrepos.NewAttemptRepository(db)
	attempt := testutil.CreateAttempt(t, repo, "u1")

	now := time.Now().UTC().Truncate(time.Millisecond)
	q1 := scorm.Interaction{AttemptID: attempt.ID, InteractionID: "q1", Result: "wrong", Weighting: 1, UpdatedAt: now}
	q2 := scorm.Interaction{AttemptID: attempt.ID, InteractionID: "q2", Result: "correct", Weighting: 2, UpdatedAt: now}
	for _, it := range []scorm.Interaction{q1, q2} {
		require.NoError(t, repo.UpsertInteraction(ctx, it))
	}

	// latest write wins
	q1.Result = "correct"
	q1.LearnerResponse = "42"
	q1.Weighting = 3
	require.NoError(t, repo.UpsertInteraction(ctx, q1))

	ids := func(filter scorm.InteractionFilter, ordering ...core.DBOrdering) []string {
		filter.AttemptID = attempt.ID
		interactions, err := repo.QueryInteractions(ctx, filter, ordering)
		require.NoError(t, err)
		out := make([]string, 0, len(interactions))
		for _, it := range interactions {
			out = append(out, it.InteractionID)
		}
		return out
	}

	assert.Equal(t, []string{"q1", "q2"}, ids(scorm.InteractionFilter{}))
	assert.Equal(t, []string{"q1", "q2"}, ids(scorm.InteractionFilter{Result: "correct"}))
	assert.Equal(t, []string{}, ids(scorm.InteractionFilter{Result: "wrong"}))
	assert.Equal(t, []string{"q1", "q2"}, ids(scorm.InteractionFilter{}, core.DBOrdering{Field: "weighting"}))
	assert.Equal(t, []string{"q2", "q1"}, ids(scorm.InteractionFilter{}, core.DBOrdering{Field: "interaction_id"}, core.DBOrdering{Field: "weighting", Ascending: true}))
	assert.Equal(t, []string{"q1", "q2"}, ids(scorm.InteractionFilter{}, core.DBOrdering{Field: "1; DROP TABLE interaction"}))

	interactions, err := repo.QueryInteractions(ctx, scorm.InteractionFilter{AttemptID: attempt.ID, Result: "correct"}, nil)
	require.NoError(t, err)
	require.Len(t, interactions, 2)
	assert.Equal(t, "42", interactions[0].LearnerResponse)
	assert.Equal(t, 3.0, interactions[0].Weighting)
}

func Test_attemptRepository_longContentValues(t *testing.T) {
	db := testutil.PrepareDB(t)
	repo := sqlxrepos.NewAttemptRepository(db)
	buffer := sqlxrepos.NewBufferRepository(db)
	attempt := testutil.CreateAttempt(t, repo, "u1", "999999999:0:0")
	assert.Equal(t, scorm.MaxElapsed.String(), attempt.TotalTime)

	long := strings.Repeat("x", 4000)
	updated, err := repo.UpdateAttempt(ctx, attempt.ID, scorm.Update{
		Exit:           null.StringFrom(long),
		TotalTime:      null.StringFrom(scorm.MaxElapsed.String()),
		LastAccessedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.Equal(t, long, updated.Exit.String)
	assert.Equal(t, "1000000:0:0", updated.TotalTime)

	it := scorm.Interaction{
		AttemptID:     attempt.ID,
		InteractionID: "urn:" + long,
		Type:          long,
		Result:        "0.123456789012345678901234567890123456789",
		Latency:       long,
		Weighting:     1,
		UpdatedAt:     time.Now().UTC(),
	}
	require.NoError(t, repo.UpsertInteraction(ctx, it))
	interactions, err := repo.QueryInteractions(ctx, scorm.InteractionFilter{AttemptID: attempt.ID}, nil)
	require.NoError(t, err)
	require.Len(t, interactions, 1)
	assert.Equal(t, it.InteractionID, interactions[0].InteractionID)
	assert.Equal(t, it.Result, interactions[0].Result)

	key := "cmi.interactions.0.id." + long
	testutil.SetBuffer(t, buffer, attempt.ID, scorm.Values{key: "1"})
	vals, err := buffer.Get(ctx, attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, scorm.Values{key: "1"}, vals)
}

func Test_bufferRepository(t *testing.T) {
	db := testutil.PrepareDB(t)
	repo := sqlxrepos.NewAttemptRepository(db)
	buffer := sqlxrepos.NewBufferRepository(db)
	attempt := testutil.CreateAttempt(t, repo, "u1")

	vals, err := buffer.Get(ctx, attempt.ID)
	require.NoError(t, err)
	assert.Empty(t, vals)

	testutil.SetBuffer(t, buffer, attempt.ID, scorm.Values{"cmi.location": "1", "cmi.exit": "suspend"})
	testutil.SetBuffer(t, buffer, attempt.ID, scorm.Values{"cmi.location": "2"})

	vals, err = buffer.Get(ctx, attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, scorm.Values{"cmi.location": "2", "cmi.exit": "suspend"}, vals)

	require.NoError(t, buffer.Clear(ctx, attempt.ID))
	vals, err = buffer.Get(ctx, attempt.ID)
	require.NoError(t, err)
	assert.Empty(t, vals)
}

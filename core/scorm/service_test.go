package scorm_test

import (
	"context"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/lms/core"
	"github.com/trezcool/lms/core/scorm"
	emailsvc "github.com/trezcool/lms/services/email"
	inmemdb "github.com/trezcool/lms/storage/database/inmem"
	"github.com/trezcool/lms/tests"
)

type fixture struct {
	svc     *scorm.Service
	repo    scorm.Repository
	buffer  scorm.BufferWriter
	mailSvc *emailsvc.ConsoleServiceMock
	logger  *testutil.Logger
}

func setup(t *testing.T, configure ...func(conf *core.Config)) fixture {
	t.Helper()

	conf := testutil.NewConfig()
	for _, fn := range configure {
		fn(conf)
	}
	db := inmemdb.Open()
	f := fixture{
		repo:   inmemdb.NewAttemptRepository(db),
		buffer: inmemdb.NewBufferRepository(db),
		logger: new(testutil.Logger),
	}
	f.mailSvc = emailsvc.NewConsoleServiceMock(conf, f.logger)
	f.svc = scorm.NewService(f.repo, f.buffer, f.mailSvc, f.logger, conf)
	return f
}

func (f fixture) get(t *testing.T, id string) scorm.Attempt {
	t.Helper()
	a, err := f.repo.GetAttempt(context.Background(), id)
	require.NoError(t, err)
	return a
}

var (
	ctx     = context.Background()
	learner = testutil.Learner("u1")
)

func TestNewService_panicsOnMissingDeps(t *testing.T) {
	db := inmemdb.Open()
	assert.Panics(t, func() {
		scorm.NewService(nil, inmemdb.NewBufferRepository(db), nil, new(testutil.Logger), testutil.NewConfig())
	})
	assert.NotPanics(t, func() {
		scorm.NewService(inmemdb.NewAttemptRepository(db), inmemdb.NewBufferRepository(db), nil, new(testutil.Logger), testutil.NewConfig())
	})
}

func TestService_Commit_inputErrors(t *testing.T) {
	f := setup(t)
	attempt := testutil.CreateAttempt(t, f.repo, "u1")
	other := testutil.CreateAttempt(t, f.repo, "u2")

	tests := []struct {
		name      string
		learner   scorm.Learner
		attemptID string
		check     func(t *testing.T, err error)
	}{
		{
			name:      "no authenticated learner",
			attemptID: attempt.ID,
			check: func(t *testing.T, err error) {
				assert.Equal(t, scorm.ErrUnauthenticated, err)
			},
		},
		{
			name:      "missing attempt id",
			learner:   learner,
			attemptID: "  ",
			check: func(t *testing.T, err error) {
				var vErr *core.ValidationError
				require.True(t, errors.As(err, &vErr))
				assert.Equal(t, "attempt_id", vErr.Fields[0].Field)
			},
		},
		{
			name:      "unknown attempt",
			learner:   learner,
			attemptID: "nope",
			check: func(t *testing.T, err error) {
				assert.Equal(t, scorm.ErrAttemptNotFound, errors.Cause(err))
			},
		},
		{
			name:      "attempt of another learner",
			learner:   learner,
			attemptID: other.ID,
			check: func(t *testing.T, err error) {
				assert.Equal(t, scorm.ErrAttemptNotFound, errors.Cause(err))
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testutil.SetBuffer(t, f.buffer, tt.attemptID, scorm.Values{"cmi.core.lesson_status": "completed"})

			res, err := f.svc.Commit(ctx, tt.learner, tt.attemptID)
			require.Error(t, err)
			assert.False(t, res.Success)
			tt.check(t, err)
		})
	}

	// no side effects
	assert.Equal(t, attempt, f.get(t, attempt.ID))
	assert.Equal(t, other, f.get(t, other.ID))
}

func TestService_Commit_emptyBuffer(t *testing.T) {
	f := setup(t)
	attempt := testutil.CreateAttempt(t, f.repo, learner.ID)

	res, err := f.svc.Commit(ctx, learner, attempt.ID)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.True(t, res.Noop)
	assert.Equal(t, scorm.StateDone, res.State)
	assert.Nil(t, res.Attempt)
	assert.Equal(t, attempt, f.get(t, attempt.ID), "nothing is written")
}

func TestService_Commit_endToEnd(t *testing.T) {
	f := setup(t)
	attempt := testutil.CreateAttempt(t, f.repo, learner.ID, "0:0:0")
	testutil.SetBuffer(t, f.buffer, attempt.ID, scorm.Values{
		"cmi.core.lesson_status": "completed",
		"cmi.core.score.raw":     "85",
		"cmi.core.score.max":     "100",
		"cmi.core.session_time":  "0:10:0",
	})

	res, err := f.svc.Commit(ctx, learner, attempt.ID)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.False(t, res.Noop)
	assert.Equal(t, scorm.StateDone, res.State)
	assert.Equal(t, scorm.StatusPassed, res.Status)
	assert.Equal(t, "0:10:0", res.TotalTime)

	stored := f.get(t, attempt.ID)
	assert.Equal(t, null.StringFrom("passed"), stored.LessonStatus)
	assert.True(t, stored.CompletedAt.Valid)
	assert.True(t, stored.LastAccessedAt.Valid)
	assert.Equal(t, "0:10:0", stored.TotalTime)
	assert.Equal(t, null.Float64From(85), stored.ScoreRaw)
	assert.Equal(t, null.Float64From(100), stored.ScoreMax)
	assert.Equal(t, stored, *res.Attempt)

	// completion notification
	sent := f.mailSvc.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, learner.Email, sent[0].To[0].Address)
	assert.Contains(t, sent[0].TextContent, "passed")
	assert.Contains(t, sent[0].HTMLContent, "0:10:0")
	assert.Contains(t, sent[0].HTMLContent, `href="http://lms.test/attempts/`+attempt.ID+`"`)
}

func TestService_Commit_idempotentWithoutSessionTime(t *testing.T) {
	f := setup(t)
	attempt := testutil.CreateAttempt(t, f.repo, learner.ID, "1:0:0")
	testutil.SetBuffer(t, f.buffer, attempt.ID, scorm.Values{
		"cmi.completion_status": "completed",
		"cmi.score.raw":         "90",
		"cmi.score.max":         "100",
		"cmi.location":          "end",
	})

	_, err := f.svc.Commit(ctx, learner, attempt.ID)
	require.NoError(t, err)
	first := f.get(t, attempt.ID)

	_, err = f.svc.Commit(ctx, learner, attempt.ID)
	require.NoError(t, err)
	second := f.get(t, attempt.ID)

	assert.Equal(t, null.StringFrom("passed"), first.LessonStatus)
	assert.Equal(t, first.LessonStatus, second.LessonStatus)
	assert.Equal(t, first.ScoreRaw, second.ScoreRaw)
	assert.Equal(t, first.Location, second.Location)
	assert.Equal(t, first.CompletedAt, second.CompletedAt, "completion is stamped once")
	assert.Equal(t, "1:0:0", second.TotalTime)

	assert.Len(t, f.mailSvc.SentMessages(), 1, "notified on first completion only")
}

// Re-committing the same session time counts it again: the runtime reports per-session deltas.
func TestService_Commit_sessionTimeIsAccumulatedOnEachCommit(t *testing.T) {
	f := setup(t)
	attempt := testutil.CreateAttempt(t, f.repo, learner.ID, "1:0:0")
	testutil.SetBuffer(t, f.buffer, attempt.ID, scorm.Values{"cmi.session_time": "PT30M"})

	res, err := f.svc.Commit(ctx, learner, attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, "1:30:0", res.TotalTime)

	res, err = f.svc.Commit(ctx, learner, attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, "2:0:0", res.TotalTime)
	assert.Equal(t, "2:0:0", f.get(t, attempt.ID).TotalTime)
}

func TestService_Commit_concurrentCommitsDoNotLoseTime(t *testing.T) {
	f := setup(t)
	attempt := testutil.CreateAttempt(t, f.repo, learner.ID)
	testutil.SetBuffer(t, f.buffer, attempt.ID, scorm.Values{"cmi.core.session_time": "00:00:01"})

	const commits = 20
	var wg sync.WaitGroup
	errs := make(chan error, commits)
	for i := 0; i < commits; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.svc.Commit(ctx, learner, attempt.ID); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Commit() unexpected error = %v", err)
	}
	assert.Equal(t, "0:0:20", f.get(t, attempt.ID).TotalTime)
}

func TestService_Commit_interactionUpsert(t *testing.T) {
	f := setup(t)
	attempt := testutil.CreateAttempt(t, f.repo, learner.ID)

	testutil.SetBuffer(t, f.buffer, attempt.ID, scorm.Values{
		"cmi.interactions.0.id":     "q1",
		"cmi.interactions.0.result": "wrong",
	})
	res, err := f.svc.Commit(ctx, learner, attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.InteractionsSaved)

	testutil.SetBuffer(t, f.buffer, attempt.ID, scorm.Values{
		"cmi.interactions.0.result":           "correct",
		"cmi.interactions.0.learner_response": "42",
	})
	_, err = f.svc.Commit(ctx, learner, attempt.ID)
	require.NoError(t, err)

	interactions, err := f.svc.QueryInteractions(ctx, learner, scorm.InteractionFilter{AttemptID: attempt.ID}, nil)
	require.NoError(t, err)
	require.Len(t, interactions, 1)
	assert.Equal(t, "q1", interactions[0].InteractionID)
	assert.Equal(t, "correct", interactions[0].Result)
	assert.Equal(t, "42", interactions[0].LearnerResponse)
}

func TestService_Commit_interactionFailuresAreReported(t *testing.T) {
	db := inmemdb.Open()
	repo := inmemdb.NewAttemptRepository(db)
	repo.FailInteraction = map[string]error{"q2": errors.New("disk full")}
	buffer := inmemdb.NewBufferRepository(db)
	logger := new(testutil.Logger)
	svc := scorm.NewService(repo, buffer, nil, logger, testutil.NewConfig())

	attempt := testutil.CreateAttempt(t, repo, learner.ID)
	testutil.SetBuffer(t, buffer, attempt.ID, scorm.Values{
		"cmi.core.lesson_status":    "incomplete",
		"cmi.interactions.0.id":     "q1",
		"cmi.interactions.1.id":     "q2",
		"cmi.interactions.2.id":     "q3",
		"cmi.interactions.2.result": "neutral",
	})

	res, err := svc.Commit(ctx, learner, attempt.ID)
	require.NoError(t, err, "interaction failures do not fail the commit")
	assert.True(t, res.Success)
	assert.Equal(t, 2, res.InteractionsSaved)
	assert.Equal(t, []scorm.InteractionError{{InteractionID: "q2", Error: "could not save interaction"}}, res.InteractionErrors)

	stored, err := repo.GetAttempt(ctx, attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, null.StringFrom("incomplete"), stored.LessonStatus)

	logged := logger.Entries("error")
	require.Len(t, logged, 1)
	assert.Contains(t, logged[0].Msg, "q2")
	assert.Contains(t, logged[0].Args, learner)
}

type failingRepo struct {
	scorm.Repository
}

func (failingRepo) UpdateAttempt(context.Context, string, scorm.Update) (scorm.Attempt, error) {
	return scorm.Attempt{}, errors.New("connection reset")
}

func TestService_Commit_attemptWriteFailure(t *testing.T) {
	db := inmemdb.Open()
	repo := failingRepo{inmemdb.NewAttemptRepository(db)}
	buffer := inmemdb.NewBufferRepository(db)
	svc := scorm.NewService(repo, buffer, nil, new(testutil.Logger), testutil.NewConfig())

	attempt := testutil.CreateAttempt(t, repo, learner.ID)
	testutil.SetBuffer(t, buffer, attempt.ID, scorm.Values{"cmi.core.lesson_status": "passed"})

	res, err := svc.Commit(ctx, learner, attempt.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.False(t, res.Success)
	assert.Equal(t, scorm.StatePersisting, res.State)

	vals, err := buffer.Get(ctx, attempt.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, vals, "buffer is kept for a retry")
}

func TestService_Commit_clearBuffer(t *testing.T) {
	f := setup(t, func(conf *core.Config) {
		conf.Runtime.ClearBufferOnCommit = true
	})
	attempt := testutil.CreateAttempt(t, f.repo, learner.ID)
	testutil.SetBuffer(t, f.buffer, attempt.ID, scorm.Values{"cmi.session_time": "PT1M"})

	_, err := f.svc.Commit(ctx, learner, attempt.ID)
	require.NoError(t, err)

	vals, err := f.buffer.Get(ctx, attempt.ID)
	require.NoError(t, err)
	assert.Empty(t, vals)

	// a second commit is a no-op and does not count the session again
	res, err := f.svc.Commit(ctx, learner, attempt.ID)
	require.NoError(t, err)
	assert.True(t, res.Noop)
	assert.Equal(t, "0:1:0", f.get(t, attempt.ID).TotalTime)
}

func TestService_Commit_notificationDisabled(t *testing.T) {
	f := setup(t, func(conf *core.Config) {
		conf.Runtime.NotifyCompletion = false
	})
	attempt := testutil.CreateAttempt(t, f.repo, learner.ID)
	testutil.SetBuffer(t, f.buffer, attempt.ID, scorm.Values{"cmi.success_status": "passed"})

	_, err := f.svc.Commit(ctx, learner, attempt.ID)
	require.NoError(t, err)
	assert.True(t, f.get(t, attempt.ID).CompletedAt.Valid)
	assert.Empty(t, f.mailSvc.SentMessages())
}

func TestService_Preview(t *testing.T) {
	f := setup(t)
	attempt := testutil.CreateAttempt(t, f.repo, learner.ID, "0:5:0")
	testutil.SetBuffer(t, f.buffer, attempt.ID, scorm.Values{
		"cmi.success_status": "passed",
		"cmi.session_time":   "PT5M",
	})

	preview, err := f.svc.Preview(ctx, learner, attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, attempt, preview.Before)
	assert.Equal(t, null.StringFrom("passed"), preview.After.LessonStatus)
	assert.Equal(t, "0:10:0", preview.After.TotalTime)
	assert.Equal(t, "success_status", preview.Computation.StatusRule)

	assert.Equal(t, attempt, f.get(t, attempt.ID), "nothing is written")
	assert.Empty(t, f.mailSvc.SentMessages())
}

func TestService_StartAttempt(t *testing.T) {
	f := setup(t)

	_, err := f.svc.StartAttempt(ctx, " ")
	var vErr *core.ValidationError
	require.True(t, errors.As(err, &vErr))

	attempt, err := f.svc.StartAttempt(ctx, "u9")
	require.NoError(t, err)
	assert.NotEmpty(t, attempt.ID)
	assert.Equal(t, "u9", attempt.UserID)
	assert.Equal(t, "0:0:0", attempt.TotalTime)
	assert.False(t, attempt.LessonStatus.Valid)

	got, err := f.svc.GetAttempt(ctx, testutil.Learner("u9"), attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, attempt, got)
}

func TestService_QueryInteractions(t *testing.T) {
	f := setup(t)
	attempt := testutil.CreateAttempt(t, f.repo, learner.ID)
	testutil.SetBuffer(t, f.buffer, attempt.ID, scorm.Values{
		"cmi.interactions.0.id": "b", "cmi.interactions.0.result": "correct", "cmi.interactions.0.weighting": "2",
		"cmi.interactions.1.id": "a", "cmi.interactions.1.result": "wrong", "cmi.interactions.1.weighting": "3",
		"cmi.interactions.2.id": "c", "cmi.interactions.2.result": "correct", "cmi.interactions.2.weighting": "1",
	})
	_, err := f.svc.Commit(ctx, learner, attempt.ID)
	require.NoError(t, err)

	ids := func(interactions []scorm.Interaction) []string {
		out := make([]string, 0, len(interactions))
		for _, it := range interactions {
			out = append(out, it.InteractionID)
		}
		return out
	}

	tests := []struct {
		name     string
		filter   scorm.InteractionFilter
		ordering []core.DBOrdering
		want     []string
	}{
		{name: "default ordering", want: []string{"a", "b", "c"}},
		{name: "weighting desc", ordering: core.ParseOrdering("-weighting", "weighting"), want: []string{"a", "b", "c"}},
		{name: "weighting asc", ordering: core.ParseOrdering("weighting", "weighting"), want: []string{"c", "b", "a"}},
		{name: "by result", filter: scorm.InteractionFilter{Result: "correct"}, want: []string{"b", "c"}},
		{name: "by result (none)", filter: scorm.InteractionFilter{Result: "lol"}, want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.filter.AttemptID = attempt.ID
			got, err := f.svc.QueryInteractions(ctx, learner, tt.filter, tt.ordering)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}

	_, err = f.svc.QueryInteractions(ctx, testutil.Learner("u2"), scorm.InteractionFilter{AttemptID: attempt.ID}, nil)
	assert.Equal(t, scorm.ErrAttemptNotFound, errors.Cause(err))
}

func TestService_Preview_emptyBuffer(t *testing.T) {
	f := setup(t)
	attempt := testutil.CreateAttempt(t, f.repo, learner.ID)

	preview, err := f.svc.Preview(ctx, learner, attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, preview.Before, preview.After)
	assert.Empty(t, preview.Computation.StatusRule)
}

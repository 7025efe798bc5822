package scorm

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/lms/core"
)

var (
	// errors
	ErrAttemptNotFound = errors.New("attempt not found")
	ErrUnauthenticated = errors.New("learner not authenticated")

	errAttemptIDRequired = core.NewFieldError("attempt_id", "this field is required")

	nowFunc = time.Now // mockable
)

type (
	Repository interface {
		CreateAttempt(ctx context.Context, attempt Attempt) (Attempt, error)
		GetAttempt(ctx context.Context, id string) (Attempt, error)
		// UpdateAttempt writes the valid fields of upd; CompletedAt is only written if not already set.
		UpdateAttempt(ctx context.Context, id string, upd Update) (Attempt, error)
		// UpsertInteraction inserts or replaces the interaction keyed by (AttemptID, InteractionID).
		UpsertInteraction(ctx context.Context, interaction Interaction) error
		QueryInteractions(ctx context.Context, filter InteractionFilter, ordering []core.DBOrdering) ([]Interaction, error)
	}

	// Buffer holds the runtime values set by the content package, per attempt.
	Buffer interface {
		Get(ctx context.Context, attemptID string) (Values, error)
		Clear(ctx context.Context, attemptID string) error
	}

	// BufferWriter is the "set value" side of the buffer.
	BufferWriter interface {
		Buffer
		Set(ctx context.Context, attemptID string, vals Values) error
	}

	ServiceInterface interface {
		StartAttempt(ctx context.Context, userID string) (Attempt, error)
		GetAttempt(ctx context.Context, learner Learner, id string) (Attempt, error)
		QueryInteractions(ctx context.Context, learner Learner, filter InteractionFilter, ordering []core.DBOrdering) ([]Interaction, error)
		Commit(ctx context.Context, learner Learner, attemptID string) (CommitResult, error)
		Preview(ctx context.Context, learner Learner, attemptID string) (Preview, error)
	}

	Service struct {
		repo    Repository
		buffer  Buffer
		mailSvc core.EmailService
		logger  core.Logger
		conf    core.RuntimeConfig
		appName string
		baseURL string
		locks   *attemptLocks
	}
)

var _ ServiceInterface = (*Service)(nil) // interface compliance check

// NewService returns the runtime commit service. mailSvc may be nil to disable completion notifications.
func NewService(repo Repository, buffer Buffer, mailSvc core.EmailService, logger core.Logger, conf *core.Config) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(buffer, "buffer"),
		vala.IsNotNil(logger, "logger"),
		vala.IsNotNil(conf, "conf"),
	).CheckAndPanic()

	return &Service{
		repo:    repo,
		buffer:  buffer,
		mailSvc: mailSvc,
		logger:  logger,
		conf:    conf.Runtime,
		appName: conf.AppName,
		baseURL: conf.FrontendBaseURL,
		locks:   newAttemptLocks(),
	}
}

// StartAttempt creates a new attempt for the user. Attempts are normally created by the course player.
func (svc *Service) StartAttempt(ctx context.Context, userID string) (Attempt, error) {
	userID = core.CleanString(userID)
	if userID == "" {
		return Attempt{}, core.NewFieldError("user_id", "this field is required")
	}
	now := nowFunc().UTC()
	attempt := Attempt{
		ID:        uuid.New().String(),
		UserID:    userID,
		TotalTime: Elapsed(0).String(),
		CreatedAt: now,
	}
	return svc.repo.CreateAttempt(ctx, attempt)
}

// GetAttempt returns the attempt if it belongs to the learner.
func (svc *Service) GetAttempt(ctx context.Context, learner Learner, id string) (Attempt, error) {
	if learner.ID == "" {
		return Attempt{}, ErrUnauthenticated
	}
	attempt, err := svc.repo.GetAttempt(ctx, core.CleanString(id))
	if err != nil {
		return Attempt{}, err
	}
	if attempt.UserID != learner.ID {
		return Attempt{}, ErrAttemptNotFound
	}
	return attempt, nil
}

func (svc *Service) QueryInteractions(ctx context.Context, learner Learner, filter InteractionFilter, ordering []core.DBOrdering) ([]Interaction, error) {
	attempt, err := svc.GetAttempt(ctx, learner, filter.AttemptID)
	if err != nil {
		return nil, err
	}
	filter.AttemptID = attempt.ID
	filter.Result = core.CleanString(filter.Result)
	return svc.repo.QueryInteractions(ctx, filter, ordering)
}

// Commit flushes the runtime buffer of the attempt into storage.
//
// The buffer is drained, mapped, aggregated and resolved into an Update; the session time (if any)
// is accumulated onto the stored total; the attempt row is written, then the interactions.
// An attempt row failure fails the commit. Interaction failures are logged and reported in the result.
func (svc *Service) Commit(ctx context.Context, learner Learner, attemptID string) (CommitResult, error) {
	attemptID = core.CleanString(attemptID)
	if learner.ID == "" {
		return CommitResult{}, ErrUnauthenticated
	}
	if attemptID == "" {
		return CommitResult{}, errAttemptIDRequired
	}

	unlock := svc.locks.lock(attemptID)
	defer unlock()

	res := CommitResult{AttemptID: attemptID, State: StateIdle}

	attempt, err := svc.GetAttempt(ctx, learner, attemptID)
	if err != nil {
		return res, err
	}

	res.State = StateDraining
	vals, err := svc.buffer.Get(ctx, attemptID)
	if err != nil {
		return res, errors.Wrap(err, "reading runtime buffer")
	}
	if len(vals) == 0 {
		res.State = StateDone
		res.Success = true
		res.Noop = true
		return res, nil
	}

	res.State = StateComputing
	comp := Compute(attemptID, vals, svc.conf.MaxIndexedRecords, nowFunc().UTC())
	upd := comp.Update

	res.State = StatePersisting
	if upd.SessionTime.Valid {
		// the attempt was read under the attempt lock, its total is current
		prior := ParseTotalTime(null.StringFrom(attempt.TotalTime))
		total := Accumulate(prior, ParseTotalTime(upd.SessionTime))
		upd.TotalTime = null.StringFrom(total.String())
	}

	updated, err := svc.repo.UpdateAttempt(ctx, attemptID, upd)
	if err != nil {
		return res, errors.Wrap(err, "updating attempt")
	}

	for _, interaction := range comp.Interactions {
		if err := svc.repo.UpsertInteraction(ctx, interaction); err != nil {
			svc.logger.Error(
				fmt.Sprintf("saving interaction %q of attempt %s: %v", interaction.InteractionID, attemptID, err),
				errors.Wrap(err, "upserting interaction"),
				learner,
			)
			res.InteractionErrors = append(res.InteractionErrors, InteractionError{
				InteractionID: interaction.InteractionID,
				Error:         "could not save interaction",
			})
			continue
		}
		res.InteractionsSaved++
	}

	if upd.CompletedAt.Valid && !attempt.CompletedAt.Valid {
		svc.notifyCompletion(learner, updated)
	}

	if svc.conf.ClearBufferOnCommit {
		if err := svc.buffer.Clear(ctx, attemptID); err != nil {
			svc.logger.Warn(fmt.Sprintf("clearing runtime buffer of attempt %s: %v", attemptID, err), err)
		}
	}

	res.State = StateDone
	res.Success = true
	res.Attempt = &updated
	res.Status = comp.Status
	res.StatusRule = comp.StatusRule
	res.TotalTime = updated.TotalTime

	svc.logger.Debug(fmt.Sprintf(
		"attempt %s committed: status=%q rule=%q total_time=%s interactions=%d/%d",
		attemptID, comp.Status, comp.StatusRule, updated.TotalTime, res.InteractionsSaved, len(comp.Interactions),
	), learner)
	return res, nil
}

// Preview computes what a commit would write, without writing anything.
func (svc *Service) Preview(ctx context.Context, learner Learner, attemptID string) (Preview, error) {
	attempt, err := svc.GetAttempt(ctx, learner, attemptID)
	if err != nil {
		return Preview{}, err
	}
	vals, err := svc.buffer.Get(ctx, attempt.ID)
	if err != nil {
		return Preview{}, errors.Wrap(err, "reading runtime buffer")
	}
	if len(vals) == 0 {
		return Preview{Before: attempt, After: attempt}, nil
	}

	comp := Compute(attempt.ID, vals, svc.conf.MaxIndexedRecords, nowFunc().UTC())
	if comp.Update.SessionTime.Valid {
		total := Accumulate(ParseTotalTime(null.StringFrom(attempt.TotalTime)), ParseTotalTime(comp.Update.SessionTime))
		comp.Update.TotalTime = null.StringFrom(total.String())
	}
	return Preview{
		Before:      attempt,
		After:       comp.Update.Apply(attempt),
		Computation: comp,
	}, nil
}

func (svc *Service) notifyCompletion(learner Learner, attempt Attempt) {
	if !svc.conf.NotifyCompletion || svc.mailSvc == nil || learner.Email == "" {
		return
	}
	msg, err := newCompletionMessage(svc.appName, svc.baseURL, learner, attempt)
	if err != nil {
		svc.logger.Warn(fmt.Sprintf("preparing completion email: %v", err), err, learner)
		return
	}
	svc.mailSvc.SendMessages(msg)
}

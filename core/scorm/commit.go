package scorm

import (
	"time"

	"github.com/volatiletech/null/v8"
)

// CommitState tracks how far a commit went.
type CommitState string

const (
	StateIdle       CommitState = "idle"
	StateDraining   CommitState = "draining"
	StateComputing  CommitState = "computing"
	StatePersisting CommitState = "persisting"
	StateDone       CommitState = "done"
)

type (
	// Computation is the pure outcome of a buffer snapshot, before anything is stored.
	Computation struct {
		Update       Update
		Objectives   ObjectiveSummary
		Interactions []Interaction
		Status       LessonStatus // "" when no rule applied
		StatusRule   string
	}

	InteractionError struct {
		InteractionID string `json:"interaction_id"`
		Error         string `json:"error"`
	}

	CommitResult struct {
		Success           bool               `json:"success"`
		AttemptID         string             `json:"attempt_id"`
		State             CommitState        `json:"state"`
		Noop              bool               `json:"noop"`
		Status            LessonStatus       `json:"status,omitempty"`
		StatusRule        string             `json:"status_rule,omitempty"`
		TotalTime         string             `json:"total_time,omitempty"`
		InteractionsSaved int                `json:"interactions_saved"`
		InteractionErrors []InteractionError `json:"interaction_errors,omitempty"`
		Attempt           *Attempt           `json:"attempt,omitempty"`
	}

	// Preview is a dry-run commit.
	Preview struct {
		Before      Attempt
		After       Attempt
		Computation Computation
	}
)

// Compute turns a buffer snapshot into the update it describes.
// It does not read the stored attempt: the session time is left for the caller to accumulate.
func Compute(attemptID string, vals Values, maxIndexed int, now time.Time) Computation {
	fs := parseValues(vals)
	upd := mapFields(fs)

	_, hasSuccess := passFail(fs.top.str(FieldSuccessStatus))
	summary := aggregateObjectives(scanObjectives(fs, maxIndexed), &upd, hasSuccess)

	comp := Computation{Objectives: summary}
	st, rule, ok := ResolveStatus(StatusInput{
		SuccessStatus:      fs.top.str(FieldSuccessStatus),
		LessonStatus:       fs.top.str(FieldLessonStatus),
		CompletionStatus:   fs.top.str(FieldCompletionStatus),
		DerivedStatus:      summary.DerivedStatus,
		ScoreRaw:           upd.ScoreRaw,
		ScoreMax:           upd.ScoreMax,
		ScaledPassingScore: clampScaled(fs.top.number(FieldScaledPassingScore)),
	})
	if ok {
		upd.LessonStatus = null.StringFrom(string(st))
		if st.IsTerminalSuccess() {
			upd.CompletedAt = null.TimeFrom(now)
		}
		comp.Status, comp.StatusRule = st, rule
	}
	upd.LastAccessedAt = now

	comp.Update = upd
	comp.Interactions = extractInteractions(attemptID, fs, now)
	return comp
}

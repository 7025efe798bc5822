package scorm

import (
	"strings"
	"time"

	"github.com/volatiletech/null/v8"
)

// LessonStatus is the single authoritative status persisted on an Attempt.
type LessonStatus string

const (
	StatusPassed       LessonStatus = "passed"
	StatusFailed       LessonStatus = "failed"
	StatusCompleted    LessonStatus = "completed"
	StatusIncomplete   LessonStatus = "incomplete"
	StatusBrowsed      LessonStatus = "browsed"
	StatusNotAttempted LessonStatus = "not_attempted"
	StatusUnknown      LessonStatus = "unknown"
)

var AllLessonStatuses = []LessonStatus{
	StatusPassed, StatusFailed, StatusCompleted, StatusIncomplete, StatusBrowsed, StatusNotAttempted, StatusUnknown,
}

// ParseLessonStatus normalizes a runtime status value of either dialect ("not attempted", "Passed", ...).
func ParseLessonStatus(s string) (LessonStatus, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, " ", "_")
	for _, st := range AllLessonStatuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

// IsTerminalSuccess reports whether reaching `st` stamps the attempt's completion time.
func (st LessonStatus) IsTerminalSuccess() bool {
	return st == StatusCompleted || st == StatusPassed
}

// Values is a snapshot of the runtime buffer of one attempt: raw CMI key -> raw value.
type Values map[string]string

// Learner is the authenticated caller committing an attempt.
type Learner struct {
	ID       string
	Username string
	Email    string
	Name     string
}

// Attempt is one learner's run through one learning package.
type Attempt struct {
	ID             string       `json:"id" db:"id"`
	UserID         string       `json:"user_id" db:"user_id"`
	Location       null.String  `json:"location" db:"location"`
	ScoreRaw       null.Float64 `json:"score_raw" db:"score_raw"`
	ScoreMin       null.Float64 `json:"score_min" db:"score_min"`
	ScoreMax       null.Float64 `json:"score_max" db:"score_max"`
	ScoreScaled    null.Float64 `json:"score_scaled" db:"score_scaled"`
	Exit           null.String  `json:"exit" db:"exit"`
	SuspendData    null.String  `json:"suspend_data" db:"suspend_data"`
	LessonStatus   null.String  `json:"lesson_status" db:"lesson_status"`
	CompletedAt    null.Time    `json:"completed_at" db:"completed_at"`
	TotalTime      string       `json:"total_time" db:"total_time"` // canonical H:M:S
	LastAccessedAt null.Time    `json:"last_accessed_at" db:"last_accessed_at"`
	CreatedAt      time.Time    `json:"created_at" db:"created_at"`
}

// Update is the candidate record computed by a commit. Invalid (absent) fields leave the stored value as is.
type Update struct {
	Location     null.String
	ScoreRaw     null.Float64
	ScoreMin     null.Float64
	ScoreMax     null.Float64
	ScoreScaled  null.Float64
	Exit         null.String
	SuspendData  null.String
	LessonStatus null.String
	CompletedAt  null.Time
	SessionTime  null.String // canonical session time parsed from the buffer; not persisted
	TotalTime    null.String // canonical accumulated total time

	LastAccessedAt time.Time
}

// Apply returns a copy of `a` with the update's valid fields set. Used for previews and in-memory storage.
func (upd Update) Apply(a Attempt) Attempt {
	if upd.Location.Valid {
		a.Location = upd.Location
	}
	if upd.ScoreRaw.Valid {
		a.ScoreRaw = upd.ScoreRaw
	}
	if upd.ScoreMin.Valid {
		a.ScoreMin = upd.ScoreMin
	}
	if upd.ScoreMax.Valid {
		a.ScoreMax = upd.ScoreMax
	}
	if upd.ScoreScaled.Valid {
		a.ScoreScaled = upd.ScoreScaled
	}
	if upd.Exit.Valid {
		a.Exit = upd.Exit
	}
	if upd.SuspendData.Valid {
		a.SuspendData = upd.SuspendData
	}
	if upd.LessonStatus.Valid {
		a.LessonStatus = upd.LessonStatus
	}
	// completion is only stamped once
	if upd.CompletedAt.Valid && !a.CompletedAt.Valid {
		a.CompletedAt = upd.CompletedAt
	}
	if upd.TotalTime.Valid {
		a.TotalTime = upd.TotalTime.String
	}
	if !upd.LastAccessedAt.IsZero() {
		a.LastAccessedAt = null.TimeFrom(upd.LastAccessedAt)
	}
	return a
}

// Interaction is one recorded learner response, unique per (AttemptID, InteractionID).
type Interaction struct {
	AttemptID       string    `json:"attempt_id" db:"attempt_id"`
	InteractionID   string    `json:"interaction_id" db:"interaction_id"`
	Type            string    `json:"type" db:"type"`
	LearnerResponse string    `json:"learner_response" db:"learner_response"`
	CorrectResponse string    `json:"correct_response" db:"correct_response"`
	Result          string    `json:"result" db:"result"`
	Weighting       float64   `json:"weighting" db:"weighting"`
	Latency         string    `json:"latency" db:"latency"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// InteractionFilter filters Repository.QueryInteractions.
type InteractionFilter struct {
	AttemptID string
	Result    string `query:"result"`
}

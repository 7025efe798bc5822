package scorm

import (
	"github.com/volatiletech/null/v8"
)

// DefaultScaledPassingScore applies when the package does not report cmi.scaled_passing_score.
const DefaultScaledPassingScore = 0.8

// StatusInput gathers every signal the status resolution looks at.
type StatusInput struct {
	SuccessStatus      string       // SCORM 2004 cmi.success_status
	LessonStatus       string       // SCORM 1.2 cmi.core.lesson_status
	CompletionStatus   string       // SCORM 2004 cmi.completion_status
	DerivedStatus      LessonStatus // derived from the objectives, "" if none
	ScoreRaw           null.Float64
	ScoreMax           null.Float64
	ScaledPassingScore null.Float64
}

type statusRule struct {
	name    string
	resolve func(in StatusInput) (LessonStatus, bool)
}

// statusRules are evaluated in order; the first rule that applies wins.
var statusRules = []statusRule{
	{name: "success_status", resolve: func(in StatusInput) (LessonStatus, bool) {
		return passFail(in.SuccessStatus)
	}},
	{name: "objectives", resolve: func(in StatusInput) (LessonStatus, bool) {
		return in.DerivedStatus, in.DerivedStatus == StatusPassed || in.DerivedStatus == StatusFailed
	}},
	{name: "lesson_status_pass_fail", resolve: func(in StatusInput) (LessonStatus, bool) {
		return passFail(in.LessonStatus)
	}},
	{name: "completion_with_score", resolve: func(in StatusInput) (LessonStatus, bool) {
		if st, ok := ParseLessonStatus(in.CompletionStatus); !ok || st != StatusCompleted || !in.ScoreRaw.Valid {
			return "", false
		}
		threshold := orDefault(in.ScoreMax, defaultScoreMax) * orDefault(in.ScaledPassingScore, DefaultScaledPassingScore)
		if in.ScoreRaw.Float64 >= threshold {
			return StatusPassed, true
		}
		return StatusFailed, true
	}},
	{name: "lesson_completed_with_score", resolve: func(in StatusInput) (LessonStatus, bool) {
		if st, ok := ParseLessonStatus(in.LessonStatus); !ok || st != StatusCompleted || !in.ScoreRaw.Valid {
			return "", false
		}
		return StatusPassed, true
	}},
	{name: "lesson_status", resolve: func(in StatusInput) (LessonStatus, bool) {
		return ParseLessonStatus(in.LessonStatus)
	}},
	{name: "completion_status", resolve: func(in StatusInput) (LessonStatus, bool) {
		return ParseLessonStatus(in.CompletionStatus)
	}},
}

// ResolveStatus picks the authoritative status of an attempt and the name of the rule that decided it.
// ok is false when no rule applies, in which case the stored status must be left untouched.
func ResolveStatus(in StatusInput) (status LessonStatus, rule string, ok bool) {
	for _, r := range statusRules {
		if st, applies := r.resolve(in); applies {
			return st, r.name, true
		}
	}
	return "", "", false
}

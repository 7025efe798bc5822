package scorm

import (
	"github.com/volatiletech/null/v8"
)

// DefaultMaxIndexedRecords bounds the scan of indexed objective records.
const DefaultMaxIndexedRecords = 1024

const defaultScoreMax = 100

// Objective is a sub-goal record read from `cmi.objectives.<n>.*`. It is never persisted.
type Objective struct {
	Index            int
	ID               string
	SuccessStatus    LessonStatus // passed, failed or "" when not reported
	CompletionStatus string
	ScoreRaw         null.Float64
	ScoreMax         null.Float64
	ScoreScaled      null.Float64
}

// ObjectiveSummary is the outcome of folding the objectives into the attempt.
type ObjectiveSummary struct {
	Objectives      []Objective
	ScoreAggregated bool
	Contributed     int // objectives folded into the score
	Passed          int
	Failed          int
	DerivedStatus   LessonStatus // "" when nothing could be derived
}

// scanObjectives reads objective records 0, 1, 2, ... and stops at the first index
// with none of its id, status or score fields, or at `limit`.
func scanObjectives(fs fields, limit int) []Objective {
	if limit <= 0 {
		limit = DefaultMaxIndexedRecords
	}
	var objs []Objective
	for idx := 0; idx < limit; idx++ {
		rec, ok := fs.objectives[idx]
		if !ok || !rec.hasAny(
			FieldObjectiveID, FieldObjectiveSuccessStatus, FieldObjectiveStatus,
			FieldObjectiveScoreRaw, FieldObjectiveScoreMin, FieldObjectiveScoreMax, FieldObjectiveScoreScaled,
		) {
			break
		}

		obj := Objective{
			Index:            idx,
			ID:               rec.str(FieldObjectiveID),
			CompletionStatus: rec.str(FieldObjectiveCompletionStatus),
			ScoreRaw:         rec.number(FieldObjectiveScoreRaw),
			ScoreMax:         rec.number(FieldObjectiveScoreMax),
			ScoreScaled:      clampScaled(rec.number(FieldObjectiveScoreScaled)),
		}
		if st, ok := passFail(rec.str(FieldObjectiveSuccessStatus)); ok {
			obj.SuccessStatus = st
		} else if st, ok := passFail(rec.str(FieldObjectiveStatus)); ok {
			obj.SuccessStatus = st
		}
		objs = append(objs, obj)
	}
	return objs
}

func (r record) hasAny(flds ...Field) bool {
	for _, f := range flds {
		if r.has(f) {
			return true
		}
	}
	return false
}

// ScanObjectives returns the objective records found in the buffer.
func ScanObjectives(vals Values, limit int) []Objective {
	return scanObjectives(parseValues(vals), limit)
}

// AggregateObjectives scans the objectives of the buffer and folds them into `upd`.
func AggregateObjectives(vals Values, upd *Update, limit int) ObjectiveSummary {
	fs := parseValues(vals)
	_, hasSuccess := passFail(fs.top.str(FieldSuccessStatus))
	return aggregateObjectives(scanObjectives(fs, limit), upd, hasSuccess)
}

// aggregateObjectives folds the objectives into `upd`:
// when the buffer has no top-level raw score, the overall score becomes 100 × Σraw / Σmax;
// when it has no top-level pass/fail status, one is derived from the objectives.
func aggregateObjectives(objs []Objective, upd *Update, hasSuccessStatus bool) ObjectiveSummary {
	summary := ObjectiveSummary{Objectives: objs}

	if !upd.ScoreRaw.Valid {
		var sumRaw, sumMax float64
		for _, obj := range objs {
			if !obj.ScoreRaw.Valid {
				continue
			}
			sumRaw += obj.ScoreRaw.Float64
			sumMax += orDefault(obj.ScoreMax, defaultScoreMax)
			summary.Contributed++
		}
		if summary.Contributed > 0 && sumMax > 0 {
			upd.ScoreRaw = null.Float64From(defaultScoreMax * sumRaw / sumMax)
			upd.ScoreMax = null.Float64From(defaultScoreMax)
			summary.ScoreAggregated = true
		}
	}

	if hasSuccessStatus {
		return summary
	}
	for _, obj := range objs {
		switch objectiveStatus(obj) {
		case StatusPassed:
			summary.Passed++
		case StatusFailed:
			summary.Failed++
		}
	}
	summary.DerivedStatus = tally(summary.Passed, summary.Failed)
	return summary
}

// objectiveStatus returns the objective's reported pass/fail status, or derives one from its score.
func objectiveStatus(obj Objective) LessonStatus {
	if obj.SuccessStatus != "" {
		return obj.SuccessStatus
	}
	switch {
	case obj.ScoreScaled.Valid && obj.ScoreScaled.Float64 >= 0:
		if obj.ScoreScaled.Float64 > 0 {
			return StatusPassed
		}
		return StatusFailed
	case obj.ScoreRaw.Valid:
		raw, maxScore := obj.ScoreRaw.Float64, orDefault(obj.ScoreMax, defaultScoreMax)
		if raw >= maxScore || raw > 0 {
			return StatusPassed
		}
		return StatusFailed
	}
	return ""
}

// tally resolves mixed objective outcomes: all passed, all failed, then majority (ties fail).
func tally(passed, failed int) LessonStatus {
	switch {
	case passed+failed == 0:
		return ""
	case failed == 0:
		return StatusPassed
	case passed == 0:
		return StatusFailed
	case passed > failed:
		return StatusPassed
	default:
		return StatusFailed
	}
}

func orDefault(n null.Float64, def float64) float64 {
	if n.Valid {
		return n.Float64
	}
	return def
}

// passFail parses a pass/fail status; any other value is not a success status.
func passFail(s string) (LessonStatus, bool) {
	st, ok := ParseLessonStatus(s)
	if !ok || (st != StatusPassed && st != StatusFailed) {
		return "", false
	}
	return st, true
}

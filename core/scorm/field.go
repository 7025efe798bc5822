package scorm

import (
	"strconv"
	"strings"
)

// Field is a canonical CMI data model element, independent of the SCORM dialect it was written in.
type Field int

const (
	FieldUnknown Field = iota

	// top-level fields
	FieldLessonLocation
	FieldScoreRaw
	FieldScoreMin
	FieldScoreMax
	FieldScoreScaled
	FieldExit
	FieldSuspendData
	FieldLessonStatus // SCORM 1.2 only
	FieldCompletionStatus
	FieldSuccessStatus
	FieldSessionTime
	FieldScaledPassingScore

	// cmi.objectives.<n>.*
	FieldObjectiveID
	FieldObjectiveStatus // SCORM 1.2 only
	FieldObjectiveSuccessStatus
	FieldObjectiveCompletionStatus
	FieldObjectiveScoreRaw
	FieldObjectiveScoreMin
	FieldObjectiveScoreMax
	FieldObjectiveScoreScaled

	// cmi.interactions.<n>.*
	FieldInteractionID
	FieldInteractionType
	FieldInteractionLearnerResponse
	FieldInteractionStudentResponse // SCORM 1.2 only
	FieldInteractionCorrectPattern
	FieldInteractionResult
	FieldInteractionWeighting
	FieldInteractionLatency
)

const (
	objectivesPrefix   = "cmi.objectives."
	interactionsPrefix = "cmi.interactions."
)

var fieldNames = map[Field]string{
	FieldUnknown:                    "unknown",
	FieldLessonLocation:             "location",
	FieldScoreRaw:                   "score.raw",
	FieldScoreMin:                   "score.min",
	FieldScoreMax:                   "score.max",
	FieldScoreScaled:                "score.scaled",
	FieldExit:                       "exit",
	FieldSuspendData:                "suspend_data",
	FieldLessonStatus:               "lesson_status",
	FieldCompletionStatus:           "completion_status",
	FieldSuccessStatus:              "success_status",
	FieldSessionTime:                "session_time",
	FieldScaledPassingScore:         "scaled_passing_score",
	FieldObjectiveID:                "objective.id",
	FieldObjectiveStatus:            "objective.status",
	FieldObjectiveSuccessStatus:     "objective.success_status",
	FieldObjectiveCompletionStatus:  "objective.completion_status",
	FieldObjectiveScoreRaw:          "objective.score.raw",
	FieldObjectiveScoreMin:          "objective.score.min",
	FieldObjectiveScoreMax:          "objective.score.max",
	FieldObjectiveScoreScaled:       "objective.score.scaled",
	FieldInteractionID:              "interaction.id",
	FieldInteractionType:            "interaction.type",
	FieldInteractionLearnerResponse: "interaction.learner_response",
	FieldInteractionStudentResponse: "interaction.student_response",
	FieldInteractionCorrectPattern:  "interaction.correct_response",
	FieldInteractionResult:          "interaction.result",
	FieldInteractionWeighting:       "interaction.weighting",
	FieldInteractionLatency:         "interaction.latency",
}

func (f Field) String() string {
	if name, ok := fieldNames[f]; ok {
		return name
	}
	return fieldNames[FieldUnknown]
}

// IsObjective reports whether f belongs to an indexed objective record.
func (f Field) IsObjective() bool {
	return f >= FieldObjectiveID && f <= FieldObjectiveScoreScaled
}

// IsInteraction reports whether f belongs to an indexed interaction record.
func (f Field) IsInteraction() bool {
	return f >= FieldInteractionID && f <= FieldInteractionLatency
}

// topLevelKeys maps both dialects onto canonical fields.
var topLevelKeys = map[string]Field{
	// SCORM 1.2
	"cmi.core.lesson_location": FieldLessonLocation,
	"cmi.core.score.raw":       FieldScoreRaw,
	"cmi.core.score.min":       FieldScoreMin,
	"cmi.core.score.max":       FieldScoreMax,
	"cmi.core.exit":            FieldExit,
	"cmi.core.lesson_status":   FieldLessonStatus,
	"cmi.core.session_time":    FieldSessionTime,

	// SCORM 2004
	"cmi.location":             FieldLessonLocation,
	"cmi.score.raw":            FieldScoreRaw,
	"cmi.score.min":            FieldScoreMin,
	"cmi.score.max":            FieldScoreMax,
	"cmi.score.scaled":         FieldScoreScaled,
	"cmi.exit":                 FieldExit,
	"cmi.completion_status":    FieldCompletionStatus,
	"cmi.success_status":       FieldSuccessStatus,
	"cmi.session_time":         FieldSessionTime,
	"cmi.scaled_passing_score": FieldScaledPassingScore,

	// both
	"cmi.suspend_data": FieldSuspendData,
}

var objectiveKeys = map[string]Field{
	"id":                FieldObjectiveID,
	"status":            FieldObjectiveStatus,
	"success_status":    FieldObjectiveSuccessStatus,
	"completion_status": FieldObjectiveCompletionStatus,
	"score.raw":         FieldObjectiveScoreRaw,
	"score.min":         FieldObjectiveScoreMin,
	"score.max":         FieldObjectiveScoreMax,
	"score.scaled":      FieldObjectiveScoreScaled,
}

var interactionKeys = map[string]Field{
	"id":                          FieldInteractionID,
	"type":                        FieldInteractionType,
	"learner_response":            FieldInteractionLearnerResponse,
	"student_response":            FieldInteractionStudentResponse,
	"correct_responses.0.pattern": FieldInteractionCorrectPattern,
	"result":                      FieldInteractionResult,
	"weighting":                   FieldInteractionWeighting,
	"latency":                     FieldInteractionLatency,
}

// Key is a parsed runtime key. Index is only meaningful for objective and interaction fields.
type Key struct {
	Field Field
	Index int
}

// ParseKey maps a raw runtime key of either dialect to its canonical Key.
// Unmapped or malformed keys yield FieldUnknown.
func ParseKey(raw string) Key {
	raw = strings.TrimSpace(raw)
	if f, ok := topLevelKeys[raw]; ok {
		return Key{Field: f}
	}
	if rest := strings.TrimPrefix(raw, objectivesPrefix); rest != raw {
		return parseIndexedKey(rest, objectiveKeys)
	}
	if rest := strings.TrimPrefix(raw, interactionsPrefix); rest != raw {
		return parseIndexedKey(rest, interactionKeys)
	}
	return Key{Field: FieldUnknown}
}

// parseIndexedKey parses "<n>.<sub-field>".
func parseIndexedKey(rest string, table map[string]Field) Key {
	parts := strings.SplitN(rest, ".", 2)
	if len(parts) != 2 {
		return Key{Field: FieldUnknown}
	}
	idx, ok := parseIndex(parts[0])
	if !ok {
		return Key{Field: FieldUnknown}
	}
	f, ok := table[parts[1]]
	if !ok {
		return Key{Field: FieldUnknown}
	}
	return Key{Field: f, Index: idx}
}

// parseIndex accepts canonical decimal indexes only: no sign, no leading zero.
func parseIndex(s string) (int, bool) {
	if s == "" || (len(s) > 1 && s[0] == '0') {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	idx, err := strconv.Atoi(s)
	return idx, err == nil
}

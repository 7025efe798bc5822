package scorm

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/trezcool/lms/core"
)

const defaultWeighting = 1

// extractInteractions groups the interaction records by index and keeps those with an id.
// Records are returned in index order.
func extractInteractions(attemptID string, fs fields, now time.Time) []Interaction {
	indexes := make([]int, 0, len(fs.interactions))
	for idx := range fs.interactions {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)

	interactions := make([]Interaction, 0, len(indexes))
	for _, idx := range indexes {
		rec := fs.interactions[idx]
		id := rec.str(FieldInteractionID)
		if id == "" {
			continue
		}
		interactions = append(interactions, Interaction{
			AttemptID:       attemptID,
			InteractionID:   id,
			Type:            rec.str(FieldInteractionType),
			LearnerResponse: core.FirstNonBlank(rec[FieldInteractionLearnerResponse], rec[FieldInteractionStudentResponse]),
			CorrectResponse: rec[FieldInteractionCorrectPattern],
			Result:          rec.str(FieldInteractionResult),
			Weighting:       parseWeighting(rec[FieldInteractionWeighting]),
			Latency:         rec.str(FieldInteractionLatency),
			UpdatedAt:       now,
		})
	}
	return interactions
}

// ExtractInteractions returns the interactions of the buffer that carry an id.
func ExtractInteractions(attemptID string, vals Values) []Interaction {
	return extractInteractions(attemptID, parseValues(vals), time.Now().UTC())
}

func parseWeighting(s string) float64 {
	w, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(w) || math.IsInf(w, 0) {
		return defaultWeighting
	}
	return w
}

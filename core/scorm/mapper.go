package scorm

import (
	"math"
	"strconv"
	"strings"

	"github.com/volatiletech/null/v8"
)

const scorm12Prefix = "cmi.core."

type record map[Field]string

// fields holds the buffer parsed into canonical fields: top-level fields and indexed sub-records.
type fields struct {
	top          record
	objectives   map[int]record
	interactions map[int]record
}

// parseValues parses every buffer key once. Unknown keys are dropped.
// When a field is written in both dialects, the SCORM 2004 value wins.
func parseValues(vals Values) fields {
	fs := fields{
		top:          make(record),
		objectives:   make(map[int]record),
		interactions: make(map[int]record),
	}
	from12 := make(map[Field]bool)

	for raw, val := range vals {
		key := ParseKey(raw)
		switch {
		case key.Field == FieldUnknown:
			continue
		case key.Field.IsObjective():
			fs.objectives[key.Index] = fs.objectives[key.Index].with(key.Field, val)
		case key.Field.IsInteraction():
			fs.interactions[key.Index] = fs.interactions[key.Index].with(key.Field, val)
		default:
			is12 := strings.HasPrefix(strings.TrimSpace(raw), scorm12Prefix)
			if _, exists := fs.top[key.Field]; exists && is12 && !from12[key.Field] {
				continue
			}
			fs.top[key.Field] = val
			from12[key.Field] = is12
		}
	}
	return fs
}

func (r record) with(f Field, val string) record {
	if r == nil {
		r = make(record)
	}
	r[f] = val
	return r
}

func (r record) has(f Field) bool {
	_, ok := r[f]
	return ok
}

// str returns the trimmed value of f, or "" when absent.
func (r record) str(f Field) string {
	return strings.TrimSpace(r[f])
}

func (r record) nullString(f Field) null.String {
	val, ok := r[f]
	return null.NewString(val, ok)
}

// number parses f as a finite float; missing or non-numeric values are absent, never zero.
func (r record) number(f Field) null.Float64 {
	val, ok := r[f]
	if !ok {
		return null.Float64{}
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return null.Float64{}
	}
	return null.Float64From(n)
}

func clampScaled(n null.Float64) null.Float64 {
	if !n.Valid {
		return n
	}
	return null.Float64From(math.Max(-1, math.Min(1, n.Float64)))
}

// MapValues applies the static key table to the buffer and returns the partial update it describes.
// It never fails: malformed numbers are absent, malformed session times are 0:0:0.
func MapValues(vals Values) Update {
	return mapFields(parseValues(vals))
}

func mapFields(fs fields) Update {
	upd := Update{
		Location:    fs.top.nullString(FieldLessonLocation),
		ScoreRaw:    fs.top.number(FieldScoreRaw),
		ScoreMin:    fs.top.number(FieldScoreMin),
		ScoreMax:    fs.top.number(FieldScoreMax),
		ScoreScaled: clampScaled(fs.top.number(FieldScoreScaled)),
		Exit:        fs.top.nullString(FieldExit),
		SuspendData: fs.top.nullString(FieldSuspendData),
	}
	if fs.top.has(FieldSessionTime) {
		upd.SessionTime = null.StringFrom(ParseSessionTime(fs.top[FieldSessionTime]).String())
	}
	return upd
}

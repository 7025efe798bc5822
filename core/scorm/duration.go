package scorm

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
)

// SCORM 2004 session time, eg: PT1H30M5.25S
var isoDurationRegex = regexp.MustCompile(`^PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+(?:\.\d+)?)S)?`)

// Elapsed is a time interval in whole seconds. Its canonical text form is H:M:S.
type Elapsed int64

// MaxElapsed is the ceiling of every parsed or accumulated time: one million hours.
// It fits a PostgreSQL INTERVAL and never overflows when added to itself.
const MaxElapsed Elapsed = 1000000 * 3600

func (e Elapsed) String() string {
	e = e.clamp()
	return fmt.Sprintf("%d:%d:%d", e/3600, (e%3600)/60, e%60)
}

func (e Elapsed) clamp() Elapsed {
	switch {
	case e < 0:
		return 0
	case e > MaxElapsed:
		return MaxElapsed
	}
	return e
}

// newElapsed saturates at MaxElapsed; each component is bounded before it is scaled.
func newElapsed(hours, minutes, seconds int64) Elapsed {
	var total Elapsed
	for _, c := range []struct{ n, unit int64 }{{hours, 3600}, {minutes, 60}, {seconds, 1}} {
		if c.n <= 0 {
			continue
		}
		if c.n > int64(MaxElapsed)/c.unit {
			return MaxElapsed
		}
		total = (total + Elapsed(c.n*c.unit)).clamp()
	}
	return total
}

// ParseSessionTime parses a session time of either dialect:
// SCORM 2004 `PT#H#M#S` or SCORM 1.2 `HHHH:MM:SS.ss`. Fractional seconds are truncated.
// Unparsable input yields 0.
func ParseSessionTime(s string) Elapsed {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "PT") {
		m := isoDurationRegex.FindStringSubmatch(s)
		if m == nil {
			return 0
		}
		return newElapsed(atoi(m[1]), atoi(m[2]), secondsOf(m[3]))
	}
	return parseColonTime(s)
}

// ParseTotalTime parses a stored canonical total; null means no time yet.
func ParseTotalTime(s null.String) Elapsed {
	if !s.Valid {
		return 0
	}
	return parseColonTime(strings.TrimSpace(s.String))
}

// parseColonTime reads the first three colon separated components as hours, minutes and seconds.
func parseColonTime(s string) Elapsed {
	parts := strings.Split(s, ":")
	var hms [3]int64
	for i := 0; i < len(parts) && i < 3; i++ {
		if i == 2 {
			hms[i] = secondsOf(parts[i])
		} else {
			hms[i] = atoi(parts[i])
		}
	}
	return newElapsed(hms[0], hms[1], hms[2])
}

// Accumulate adds a session duration to a prior total, saturating at MaxElapsed.
func Accumulate(prior, session Elapsed) Elapsed {
	return (prior.clamp() + session.clamp()).clamp()
}

func atoi(s string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) && n > 0 {
			return n // saturated by ParseInt
		}
		return 0
	}
	return n
}

func secondsOf(s string) int64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil && !(errors.Is(err, strconv.ErrRange) && f > 0) {
		return 0
	}
	if math.IsNaN(f) || f < 0 || (err == nil && math.IsInf(f, 1)) {
		return 0
	}
	if f > float64(MaxElapsed) {
		return int64(MaxElapsed)
	}
	return int64(f)
}

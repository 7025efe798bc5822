package core

import "strings"

// DBOrdering is one ORDER BY term.
type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	if ord.Ascending {
		return ord.Field + " ASC"
	}
	return ord.Field + " DESC"
}

// ParseOrdering parses a comma separated list of fields, eg: "result,-updated_at".
// A leading "-" means descending order. Fields not in `allowed` are dropped.
func ParseOrdering(s string, allowed ...string) []DBOrdering {
	var orderings []DBOrdering
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		ord := DBOrdering{Field: strings.TrimPrefix(field, "-"), Ascending: !strings.HasPrefix(field, "-")}
		if ord.Field != "" && isAllowed(ord.Field, allowed) {
			orderings = append(orderings, ord)
		}
	}
	return orderings
}

// OrderByClause joins the allowed orderings then the tie-breaker, eg: "result ASC, interaction_id ASC".
func OrderByClause(orderings []DBOrdering, allowed []string, tieBreaker DBOrdering) string {
	terms := make([]string, 0, len(orderings)+1)
	for _, ord := range orderings {
		if isAllowed(ord.Field, allowed) {
			terms = append(terms, ord.String())
		}
	}
	return strings.Join(append(terms, tieBreaker.String()), ", ")
}

func isAllowed(field string, allowed []string) bool {
	for _, a := range allowed {
		if a == field {
			return true
		}
	}
	return false
}

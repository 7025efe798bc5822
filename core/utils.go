package core

import "strings"

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// FirstNonBlank returns the first value that is not only whitespace, as is.
func FirstNonBlank(vals ...string) string {
	for _, v := range vals {
		if CleanString(v) != "" {
			return v
		}
	}
	return ""
}

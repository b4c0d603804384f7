// Package normalize canonicalizes user-supplied values before they are
// validated or used as lookup keys.
package normalize

import "strings"

// Email trims and lower-cases an email address. Emails are stored and looked
// up in this form so that uniqueness is case-insensitive.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims a display name and collapses inner runs of whitespace.
func Name(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Field trims a free-form request value.
func Field(s string) string {
	return strings.TrimSpace(s)
}

// Flag interprets an optional request flag. A field that is present is
// treated as set unless it spells out false.
func Flag(s string, present bool) bool {
	if !present {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "false", "0", "no", "off":
		return false
	}
	return true
}

// IDOrEmail reports whether the path segment names a user by email.
func IDOrEmail(s string) (value string, isEmail bool) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, "@") {
		return Email(s), true
	}
	return s, false
}

package provider

import "regexp"

// ephemeralNamePattern enforces the naming invariant: a literal "gk_"
// prefix followed by alphanumerics and underscores, 4-63 characters total.
var ephemeralNamePattern = regexp.MustCompile(`^gk_[A-Za-z0-9_]+$`)

// ValidateEphemeralName reports whether name satisfies the ephemeral
// principal naming invariant. This is defense in depth: the bootstrap
// helper enforces the same pattern authoritatively, so a Postgres provider
// checking this first never issues a statement doomed to be refused.
func ValidateEphemeralName(name string) bool {
	if len(name) < 4 || len(name) > 63 {
		return false
	}
	return ephemeralNamePattern.MatchString(name)
}

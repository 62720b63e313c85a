package timeindex

import "fmt"

// Policy selects which entry answers a query timestamp that does not exactly
// match a stored one.
type Policy string

const (
	// NearestPrev resolves to the latest entry at or before the query time.
	NearestPrev Policy = "nearest_prev"

	// NearestNext resolves to the earliest entry at or after the query time.
	NearestNext Policy = "nearest_next"

	// Nearest resolves to whichever neighbour is closer. Equal distances
	// resolve to the earlier entry.
	Nearest Policy = "nearest"
)

// Policies lists every valid lookup policy.
var Policies = []Policy{NearestPrev, NearestNext, Nearest}

// ParsePolicy converts a configuration string into a Policy.
func ParsePolicy(s string) (Policy, error) {
	p := Policy(s)
	if !p.Valid() {
		return "", fmt.Errorf("invalid policy %q: must be one of %v", s, Policies)
	}
	return p, nil
}

// Valid reports whether p is one of the defined policies.
func (p Policy) Valid() bool {
	switch p {
	case NearestPrev, NearestNext, Nearest:
		return true
	}
	return false
}

func (p Policy) String() string {
	return string(p)
}

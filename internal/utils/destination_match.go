package utils

import (
	"fmt"
	"strings"
)

// destinationGroups lists names that refer to the same place. The first
// entry is the canonical name.
var destinationGroups = [][]string{
	{"goa", "panaji", "panjim"},
	{"mumbai", "bombay"},
	{"bengaluru", "bangalore"},
	{"chennai", "madras"},
	{"kolkata", "calcutta"},
	{"kochi", "cochin"},
	{"thiruvananthapuram", "trivandrum"},
	{"puducherry", "pondicherry"},
	{"varanasi", "benares", "banaras"},
	{"new delhi", "delhi"},
	{"new york", "nyc"},
	{"ho chi minh city", "saigon"},
	{"bali", "denpasar"},
}

// ExpandDestination returns the lowercased destination followed by its
// known aliases, without duplicates. A blank destination expands to nothing.
func ExpandDestination(destination string) []string {
	dest := strings.ToLower(strings.TrimSpace(destination))
	if dest == "" {
		return nil
	}

	out := []string{dest}
	seen := map[string]bool{dest: true}
	for _, group := range destinationGroups {
		if !containsString(group, dest) {
			continue
		}
		for _, alias := range group {
			if !seen[alias] {
				seen[alias] = true
				out = append(out, alias)
			}
		}
	}
	return out
}

// MatchesDestination reports whether a candidate's destination text contains
// the requested destination or one of its aliases, ignoring case. A blank
// request matches everything.
func MatchesDestination(candidateDestination, requested string) bool {
	names := ExpandDestination(requested)
	if len(names) == 0 {
		return true
	}
	haystack := strings.ToLower(candidateDestination)
	for _, name := range names {
		if strings.Contains(haystack, name) {
			return true
		}
	}
	return false
}

// BuildDestinationQuery builds an ILIKE condition on column matching the
// destination or any alias, numbering placeholders from paramIndex. It
// returns the condition, its parameters and the next free index.
func BuildDestinationQuery(column, destination string, paramIndex int) (string, []interface{}, int) {
	names := ExpandDestination(destination)
	if len(names) == 0 {
		return "TRUE", nil, paramIndex
	}

	conditions := make([]string, 0, len(names))
	params := make([]interface{}, 0, len(names))
	for _, name := range names {
		conditions = append(conditions, fmt.Sprintf("%s ILIKE $%d", column, paramIndex))
		params = append(params, "%"+escapeLike(name)+"%")
		paramIndex++
	}

	return "(" + strings.Join(conditions, " OR ") + ")", params, paramIndex
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

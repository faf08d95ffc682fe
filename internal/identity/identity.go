package identity

import (
	"strings"
)

// Identity is the canonical form of a source-store folder label. Parsing is
// deterministic and never fails; degenerate input yields a best-effort
// partial identity.
type Identity struct {
	RawLabel         string
	FirstName        string
	MiddleName       string
	LastName         string
	Aliases          []string
	HouseholdMembers []string

	// ComparisonKey is the lowercased, whitespace-collapsed label used for
	// case-insensitive comparisons elsewhere.
	ComparisonKey string
}

// connector words that introduce an additional household member.
var connectors = map[string]bool{
	"and":      true,
	"&":        true,
	"daughter": true,
	"son":      true,
	"with":     true,
}

// Normalize parses a raw folder or account label into an Identity.
//
// "Last, First Middle" takes precedence when a comma is present; otherwise
// the first token is the first name, the last token the last name and
// interior tokens the middle name. Parenthetical groups become aliases.
// Tokens introduced by a connector word become household members.
func Normalize(rawLabel string) Identity {
	id := Identity{RawLabel: rawLabel}
	main, aliases := stripParens(rawLabel)
	id.Aliases = aliases
	id.ComparisonKey = Key(rawLabel)

	main = strings.TrimSpace(main)
	if main == "" {
		return id
	}

	if last, rest, ok := strings.Cut(main, ","); ok {
		id.LastName = strings.TrimSpace(last)
		segs := splitConnectors(rest)
		if len(segs) > 0 {
			primary := segs[0]
			if len(primary) > 0 {
				id.FirstName = primary[0]
				id.MiddleName = strings.Join(primary[1:], " ")
			}
			for _, seg := range segs[1:] {
				if len(seg) > 0 {
					id.HouseholdMembers = append(id.HouseholdMembers, strings.Join(seg, " "))
				}
			}
		}
		return id
	}

	segs := splitConnectors(main)
	if len(segs) == 0 || len(segs[0]) == 0 {
		return id
	}
	primary := segs[0]

	if len(segs) == 1 {
		switch len(primary) {
		case 1:
			id.LastName = primary[0]
		default:
			id.FirstName = primary[0]
			id.LastName = primary[len(primary)-1]
			id.MiddleName = strings.Join(primary[1:len(primary)-1], " ")
		}
		return id
	}

	// A connector splits the label into the primary person and further
	// household members. When the final segment carries the shared surname
	// ("Alexander & Armelia Rolle") its last token is the family last name
	// and the rest of that segment is a member.
	last := segs[len(segs)-1]
	if len(last) >= 2 {
		id.LastName = last[len(last)-1]
		id.FirstName = primary[0]
		id.MiddleName = strings.Join(primary[1:], " ")
		for _, seg := range segs[1 : len(segs)-1] {
			if len(seg) > 0 {
				id.HouseholdMembers = append(id.HouseholdMembers, strings.Join(seg, " "))
			}
		}
		if member := strings.Join(last[:len(last)-1], " "); member != "" {
			id.HouseholdMembers = append(id.HouseholdMembers, member)
		}
		return id
	}

	// Final segment is a lone given name ("Smith, John and Mary" handled
	// above; here e.g. "John Smith and Mary"): primary keeps the surname.
	if len(primary) == 1 {
		id.LastName = primary[0]
	} else {
		id.FirstName = primary[0]
		id.LastName = primary[len(primary)-1]
		id.MiddleName = strings.Join(primary[1:len(primary)-1], " ")
	}
	for _, seg := range segs[1:] {
		if len(seg) > 0 {
			id.HouseholdMembers = append(id.HouseholdMembers, strings.Join(seg, " "))
		}
	}
	return id
}

// Key lowercases, strips punctuation and collapses whitespace so two labels
// can be compared directly.
func Key(s string) string {
	var b strings.Builder
	prevSpace := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r == ',' || r == '.' || r == '\'':
			continue
		case r == ' ' || r == '\t':
			if !prevSpace && b.Len() > 0 {
				b.WriteRune(' ')
				prevSpace = true
			}
		default:
			b.WriteRune(r)
			prevSpace = false
		}
	}
	return strings.TrimRight(b.String(), " ")
}

// Tokens returns the comparison-key tokens of s.
func Tokens(s string) []string {
	key := Key(s)
	if key == "" {
		return nil
	}
	return strings.Fields(key)
}

func stripParens(s string) (main string, aliases []string) {
	var b strings.Builder
	depth := 0
	var cur strings.Builder
	for _, r := range s {
		switch {
		case r == '(':
			depth++
		case r == ')' && depth > 0:
			depth--
			if depth == 0 {
				if a := strings.TrimSpace(cur.String()); a != "" {
					aliases = append(aliases, a)
				}
				cur.Reset()
			}
		case depth > 0:
			cur.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	// unbalanced open paren: keep what was collected as an alias
	if depth > 0 {
		if a := strings.TrimSpace(cur.String()); a != "" {
			aliases = append(aliases, a)
		}
	}
	return b.String(), aliases
}

// splitConnectors tokenizes on whitespace and splits the token stream into
// segments at connector words. Consecutive connectors ("and daughter") do
// not produce empty segments.
func splitConnectors(s string) [][]string {
	var segs [][]string
	var cur []string
	for _, tok := range strings.Fields(s) {
		if connectors[strings.ToLower(tok)] {
			if len(cur) > 0 {
				segs = append(segs, cur)
				cur = nil
			}
			continue
		}
		cur = append(cur, tok)
	}
	if len(cur) > 0 {
		segs = append(segs, cur)
	}
	return segs
}

// Package match scores target-store search result rows against a canonical
// account identity and classifies the best candidate as exact, partial or no
// match.
package match

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/jask/crmsync/internal/identity"
)

// Status classifies match confidence.
type Status string

const (
	Exact   Status = "exact"
	Partial Status = "partial"
	None    Status = "none"
)

// ResultRow is one row from a target-store account search.
type ResultRow struct {
	DisplayName string
}

// Candidate pairs a considered row with its score.
type Candidate struct {
	Row        ResultRow
	Confidence float64
}

// Result is the outcome of matching one identity against search results.
// It is recomputed from live target-store state on every run, never persisted
// as authority.
type Result struct {
	Status     Status
	MatchedRow *ResultRow
	Confidence float64
	// Candidates holds every considered row, best first. Ordering among
	// equal scores follows the original result order.
	Candidates []Candidate
	// Ambiguous is set when more than one candidate ties at the top score;
	// the earliest row still wins, but the report surfaces the tie.
	Ambiguous bool
	// Note carries a diagnostic when matching degraded (e.g. search error).
	Note string
}

// Policy holds the matcher's tunable scoring constants. These are heuristics,
// not invariants, so they live in config rather than the code.
type Policy struct {
	// MinConfidence is the floor below which a best candidate is reported
	// as no match.
	MinConfidence float64
	// TokenDistance is the maximum normalized levenshtein distance at which
	// two name tokens still count as the same token.
	TokenDistance float64
}

// DefaultPolicy mirrors the config defaults.
func DefaultPolicy() Policy {
	return Policy{MinConfidence: 0.5, TokenDistance: 0.25}
}

// Matcher classifies search result rows against an identity.
type Matcher struct {
	Policy Policy
}

// Match scores every candidate row and returns the classification. It never
// fails: an unparseable identity simply yields low-confidence candidates or
// none at all.
//
// Strategies in order, first exact hit wins:
//  1. exact last+first ("Last, First" or "First Last"), with household
//     members and aliases accepted in place of the first name (one folder
//     may stand for several people);
//  2. last-name hit scored by token overlap;
//  3. swapped form ("Last First") against the candidate reversed.
func (m *Matcher) Match(id identity.Identity, rows []ResultRow) Result {
	res := Result{Status: None}
	if len(rows) == 0 {
		return res
	}

	exactKeys := exactForms(id)
	swapped := identity.Key(id.LastName + " " + id.FirstName)

	best := -1
	bestScore := 0.0
	ties := 0
	for i, row := range rows {
		key := identity.Key(row.DisplayName)
		score := 0.0

		switch {
		case exactKeys[key]:
			score = 1.0
		case swapped != "" && identity.Key(reverseWords(row.DisplayName)) == swapped:
			score = 1.0
		default:
			if m.lastNameHit(id, row.DisplayName) {
				score = m.overlap(id, row.DisplayName)
			}
		}

		res.Candidates = append(res.Candidates, Candidate{Row: row, Confidence: score})
		if score > bestScore {
			best, bestScore, ties = i, score, 1
		} else if score == bestScore && score > 0 {
			ties++
		}
	}

	sortCandidates(res.Candidates)

	if best < 0 || bestScore < m.Policy.MinConfidence {
		return res
	}
	row := rows[best]
	res.MatchedRow = &row
	res.Confidence = bestScore
	res.Ambiguous = ties > 1
	if bestScore >= 1.0 {
		res.Status = Exact
	} else {
		res.Status = Partial
	}
	return res
}

// exactForms enumerates every normalized name form considered an exact hit:
// the primary first/last pair plus each household member and alias paired
// with the family last name.
func exactForms(id identity.Identity) map[string]bool {
	forms := map[string]bool{}
	add := func(first, last string) {
		if first == "" || last == "" {
			return
		}
		forms[identity.Key(last+" "+first)] = true
		forms[identity.Key(first+" "+last)] = true
	}
	add(id.FirstName, id.LastName)
	for _, member := range id.HouseholdMembers {
		add(member, id.LastName)
	}
	for _, alias := range id.Aliases {
		add(alias, id.LastName)
	}
	delete(forms, "")
	return forms
}

// lastNameHit reports whether any token of the candidate matches the
// identity's last name within the token distance.
func (m *Matcher) lastNameHit(id identity.Identity, display string) bool {
	last := identity.Key(id.LastName)
	if last == "" {
		// fall back to any-token overlap for degenerate identities
		return len(identity.Tokens(display)) > 0
	}
	for _, tok := range identity.Tokens(display) {
		if m.tokenEqual(tok, last) {
			return true
		}
	}
	return false
}

// overlap computes shared tokens over total distinct tokens across the folder
// label and the candidate. Household member and alias tokens count as
// acceptable matches on the folder side.
func (m *Matcher) overlap(id identity.Identity, display string) float64 {
	folder := identity.Tokens(id.RawLabel)
	for _, member := range id.HouseholdMembers {
		folder = append(folder, identity.Tokens(member)...)
	}
	for _, alias := range id.Aliases {
		folder = append(folder, identity.Tokens(alias)...)
	}
	folderSet := map[string]bool{}
	for _, tok := range folder {
		if !connectorToken(tok) {
			folderSet[tok] = true
		}
	}
	candSet := map[string]bool{}
	for _, tok := range identity.Tokens(display) {
		candSet[tok] = true
	}
	if len(folderSet) == 0 || len(candSet) == 0 {
		return 0
	}

	shared := 0
	total := len(candSet)
	for ftok := range folderSet {
		matched := false
		for ctok := range candSet {
			if m.tokenEqual(ftok, ctok) {
				matched = true
				break
			}
		}
		if matched {
			shared++
		} else {
			total++
		}
	}
	return float64(shared) / float64(total)
}

// tokenEqual accepts exact equality or a small normalized edit distance.
func (m *Matcher) tokenEqual(a, b string) bool {
	if a == b {
		return true
	}
	if m.Policy.TokenDistance <= 0 {
		return false
	}
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return false
	}
	dist := levenshtein.ComputeDistance(a, b)
	return float64(dist)/float64(maxLen) <= m.Policy.TokenDistance
}

func connectorToken(tok string) bool {
	switch tok {
	case "and", "&", "daughter", "son", "with":
		return true
	}
	return false
}

func reverseWords(s string) string {
	words := strings.Fields(s)
	for i, j := 0, len(words)-1; i < j; i, j = i+1, j-1 {
		words[i], words[j] = words[j], words[i]
	}
	return strings.Join(words, " ")
}

// sortCandidates orders best first; original result order is preserved among
// equal scores.
func sortCandidates(cs []Candidate) {
	sort.SliceStable(cs, func(i, j int) bool {
		return cs[i].Confidence > cs[j].Confidence
	})
}

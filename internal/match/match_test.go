package match

import (
	"testing"

	"github.com/jask/crmsync/internal/identity"
)

func newMatcher() *Matcher {
	return &Matcher{Policy: DefaultPolicy()}
}

func rowsOf(names ...string) []ResultRow {
	rows := make([]ResultRow, len(names))
	for i, n := range names {
		rows[i] = ResultRow{DisplayName: n}
	}
	return rows
}

func TestMatchExactCommaForm(t *testing.T) {
	id := identity.Normalize("Smith, John")
	res := newMatcher().Match(id, rowsOf("Smith, John"))
	if res.Status != Exact || res.Confidence != 1.0 {
		t.Fatalf("status=%s confidence=%v", res.Status, res.Confidence)
	}
	if res.MatchedRow == nil || res.MatchedRow.DisplayName != "Smith, John" {
		t.Fatalf("matched row = %+v", res.MatchedRow)
	}
}

func TestMatchExactReversedForm(t *testing.T) {
	id := identity.Normalize("Smith, John")
	res := newMatcher().Match(id, rowsOf("John Smith"))
	if res.Status != Exact {
		t.Fatalf("status = %s, want exact", res.Status)
	}
}

func TestMatchExactPriorityOverPartial(t *testing.T) {
	// exact hit on the primary first name must beat any partial score on
	// a similar-looking sibling row, regardless of row order
	id := identity.Normalize("Alexander & Armelia Rolle")
	res := newMatcher().Match(id, rowsOf("Rolle, Armand", "Rolle, Alexander"))
	if res.Status != Exact {
		t.Fatalf("status = %s, want exact", res.Status)
	}
	if res.MatchedRow.DisplayName != "Rolle, Alexander" {
		t.Fatalf("matched %q, want Rolle, Alexander", res.MatchedRow.DisplayName)
	}
	if res.Candidates[0].Row.DisplayName != "Rolle, Alexander" {
		t.Fatalf("best candidate = %q", res.Candidates[0].Row.DisplayName)
	}
}

func TestMatchHouseholdMemberCountsAsExact(t *testing.T) {
	id := identity.Normalize("Alexander & Armelia Rolle")
	res := newMatcher().Match(id, rowsOf("Rolle, Armelia"))
	if res.Status != Exact {
		t.Fatalf("status = %s, want exact (household member hit)", res.Status)
	}
}

func TestMatchAliasCountsAsExact(t *testing.T) {
	id := identity.Normalize("Smith, Robert (Bob)")
	res := newMatcher().Match(id, rowsOf("Smith, Bob"))
	if res.Status != Exact {
		t.Fatalf("status = %s, want exact (alias hit)", res.Status)
	}
}

func TestMatchPartialOnLastName(t *testing.T) {
	id := identity.Normalize("Smith, John")
	res := newMatcher().Match(id, rowsOf("Smith, Jonathan Q"))
	if res.Status == Exact {
		t.Fatalf("should not be exact")
	}
	if res.Status == Partial && res.Confidence >= 1.0 {
		t.Fatalf("partial with confidence %v", res.Confidence)
	}
}

func TestMatchNoneBelowThreshold(t *testing.T) {
	id := identity.Normalize("Smith, John")
	res := newMatcher().Match(id, rowsOf("Jones, Barbara"))
	if res.Status != None {
		t.Fatalf("status = %s, want none", res.Status)
	}
	if res.MatchedRow != nil {
		t.Fatalf("matched row should be nil")
	}
}

func TestMatchEmptyCandidates(t *testing.T) {
	id := identity.Normalize("Smith, John")
	res := newMatcher().Match(id, nil)
	if res.Status != None || len(res.Candidates) != 0 {
		t.Fatalf("res = %+v", res)
	}
}

func TestMatchTieBreakEarliestRow(t *testing.T) {
	id := identity.Normalize("Smith, John")
	res := newMatcher().Match(id, rowsOf("John Smith", "Smith, John"))
	if res.Status != Exact {
		t.Fatalf("status = %s", res.Status)
	}
	if res.MatchedRow.DisplayName != "John Smith" {
		t.Fatalf("tie-break picked %q, want the earliest row", res.MatchedRow.DisplayName)
	}
	if !res.Ambiguous {
		t.Fatalf("tied top scores should be flagged ambiguous")
	}
}

func TestMatchDeterministic(t *testing.T) {
	id := identity.Normalize("Alexander & Armelia Rolle")
	rows := rowsOf("Rolle, Armand", "Rolle, Alexander", "Rolle, Armelia")
	a := newMatcher().Match(id, rows)
	b := newMatcher().Match(id, rows)
	if a.Status != b.Status || a.Confidence != b.Confidence ||
		a.MatchedRow.DisplayName != b.MatchedRow.DisplayName {
		t.Fatalf("match not deterministic: %+v vs %+v", a, b)
	}
}

func TestMatchDegenerateIdentity(t *testing.T) {
	// single-token folder: only a last name; row sharing it scores partial
	id := identity.Normalize("Smith")
	res := newMatcher().Match(id, rowsOf("Smith, John"))
	if res.Status == Exact {
		t.Fatalf("no first name, cannot be exact")
	}
}

func TestMatchPolicyThresholdConfigurable(t *testing.T) {
	id := identity.Normalize("Smith, John")
	strict := &Matcher{Policy: Policy{MinConfidence: 0.99, TokenDistance: 0.25}}
	res := strict.Match(id, rowsOf("Smith, Jonathan"))
	if res.Status != None {
		t.Fatalf("strict policy should reject partials, got %s", res.Status)
	}
}

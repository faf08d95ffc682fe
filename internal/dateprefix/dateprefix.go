// Package dateprefix implements the YYMMDD filename convention used by the
// target store: a six digit date, optionally followed by one space, prepended
// to the original filename. Both forms are recognised on read; the with-space
// form is what uploads produce.
package dateprefix

import (
	"strings"
	"time"
)

// FileRecord is a source-store file: the immutable original name plus the
// modification date that governs its prefix.
type FileRecord struct {
	OriginalName string
	ModifiedAt   time.Time
}

// Status classifies a source file against a target listing.
type Status string

const (
	AlreadyPresent Status = "already_present"
	NeedsUpload    Status = "needs_upload"
	NeedsRename    Status = "needs_rename"
)

// Outcome is the result of comparing one FileRecord against a target listing.
type Outcome struct {
	OriginalName string
	Status       Status
	// ExpectedPrefixedName is the canonical YYMMDD{name} form.
	ExpectedPrefixedName string
	MatchedTargetName    string
}

// ExpectedNames returns the two prefixed forms of name for the given
// modification date: "YYMMDD{name}" and "YYMMDD {name}".
func ExpectedNames(name string, modifiedAt time.Time) (withoutSpace, withSpace string) {
	p := modifiedAt.Format("060102")
	return p + name, p + " " + name
}

// HasDatePrefix reports whether name starts with six digits optionally
// followed by a single space, followed by at least one non-digit character.
// The non-digit guard keeps a purely numeric filename (or an eight digit
// YYYYMMDD prefix) from being treated as already prefixed.
func HasDatePrefix(name string) bool {
	if len(name) < 7 {
		return false
	}
	for i := 0; i < 6; i++ {
		if name[i] < '0' || name[i] > '9' {
			return false
		}
	}
	rest := name[6:]
	if rest[0] == ' ' {
		rest = rest[1:]
	}
	if rest == "" {
		return false
	}
	return rest[0] < '0' || rest[0] > '9'
}

// StripPrefix removes a recognised YYMMDD prefix (and its optional space)
// from name. The name is returned unchanged when no prefix is present.
func StripPrefix(name string) string {
	if !HasDatePrefix(name) {
		return name
	}
	rest := name[6:]
	if rest != "" && rest[0] == ' ' {
		rest = rest[1:]
	}
	return rest
}

// MatchAgainstTarget tests whether record already exists in the target
// listing. Comparison is case-insensitive exact equality, tried in priority
// order: the original name as-is, the no-space prefixed form, the with-space
// prefixed form. When none hits, a prefix-stripped comparison recovers files
// uploaded earlier under a different prefix convention (the target's own
// "N. " enumeration prefix is stripped too). No hit at all means the file
// needs uploading under the canonical no-space form.
func MatchAgainstTarget(record FileRecord, targetNames []string) Outcome {
	withoutSpace, withSpace := ExpectedNames(record.OriginalName, record.ModifiedAt)
	out := Outcome{
		OriginalName:         record.OriginalName,
		ExpectedPrefixedName: withoutSpace,
	}

	for _, want := range []string{record.OriginalName, withoutSpace, withSpace} {
		for _, got := range targetNames {
			if strings.EqualFold(want, got) {
				out.Status = AlreadyPresent
				out.MatchedTargetName = got
				return out
			}
		}
	}

	// fallback: compare with any leading prefixes stripped from both sides
	wantStem := strings.ToLower(StripPrefix(record.OriginalName))
	for _, got := range targetNames {
		gotStem := strings.ToLower(StripPrefix(stripEnumeration(got)))
		if gotStem == wantStem {
			out.Status = AlreadyPresent
			out.MatchedTargetName = got
			return out
		}
	}

	out.Status = NeedsUpload
	return out
}

// stripEnumeration removes the target store's "1. " style listing prefix.
func stripEnumeration(name string) string {
	i := 0
	for i < len(name) && name[i] >= '0' && name[i] <= '9' {
		i++
	}
	if i == 0 || i+1 >= len(name) || name[i] != '.' || name[i+1] != ' ' {
		return name
	}
	return name[i+2:]
}

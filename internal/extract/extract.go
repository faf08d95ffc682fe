// Package extract pulls new-account fields out of OCR/PDF-extracted document
// text. Extraction is a pure function over the text; running OCR itself is
// the caller's concern.
package extract

import (
	"regexp"
	"strings"

	"github.com/jask/crmsync/internal/service"
)

var (
	dobRe    = regexp.MustCompile(`(?i)(?:date of birth|dob|birth date)[:\s]+(\d{1,2}[/-]\d{1,2}[/-]\d{2,4})`)
	phoneRe  = regexp.MustCompile(`(?:\+?1[\s.-]?)?\(?\d{3}\)?[\s.-]?\d{3}[\s.-]?\d{4}`)
	emailRe  = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	genderRe = regexp.MustCompile(`(?i)(?:gender|sex)[:\s]+(male|female|m|f)\b`)
	// name stays on one line; greedy \s+ would swallow the next label
	nameRe = regexp.MustCompile(`(?i)(?:name|client|account holder)[: \t]+([A-Za-z][A-Za-z'.-]*(?:[ \t]+[A-Za-z][A-Za-z'.-]*){1,3})`)
)

// Fields extracts whatever account fields the text yields. Missing fields
// stay empty; callers fill the rest from the folder identity.
func Fields(text string) service.AccountFields {
	var f service.AccountFields

	if m := nameRe.FindStringSubmatch(text); m != nil {
		parts := strings.Fields(m[1])
		f.FirstName = parts[0]
		f.LastName = parts[len(parts)-1]
	}
	if m := dobRe.FindStringSubmatch(text); m != nil {
		f.DateOfBirth = m[1]
	}
	if m := genderRe.FindStringSubmatch(text); m != nil {
		switch strings.ToLower(m[1]) {
		case "m", "male":
			f.Gender = "Male"
		default:
			f.Gender = "Female"
		}
	}
	if m := phoneRe.FindString(text); m != "" {
		f.Phone = strings.TrimSpace(m)
	}
	if m := emailRe.FindString(text); m != "" {
		f.Email = m
	}
	return f
}

// Package filter gates user-submitted text against a maintained wordlist.
package filter

import (
	goaway "github.com/TwiN/go-away"
)

// Filter detects and masks disallowed words. The wordlist is the library's
// maintained default and is not configurable.
type Filter struct {
	detector *goaway.ProfanityDetector
}

func New() *Filter {
	return &Filter{detector: goaway.NewProfanityDetector()}
}

// IsDisallowed reports whether the text contains a disallowed word.
func (f *Filter) IsDisallowed(text string) bool {
	return f.detector.IsProfane(text)
}

// Censor replaces disallowed words with asterisks of matching length,
// leaving the rest of the text untouched. Censoring is idempotent.
func (f *Filter) Censor(text string) string {
	return f.detector.Censor(text)
}

package textparse

import "fmt"

// ParseError is the single error kind the parser produces. Rule names the
// grammar rule that rejected the input; Remainder is the unconsumed input
// starting at the rejected position, kept for diagnostics.
type ParseError struct {
	Rule      string
	Remainder string
}

func (e *ParseError) Error() string {
	r := e.Remainder
	if len(r) > 40 {
		r = r[:40] + "..."
	}
	return fmt.Sprintf("textparse: rule %q rejected input at %q", e.Rule, r)
}

func errAt(rule, remainder string) *ParseError {
	return &ParseError{Rule: rule, Remainder: remainder}
}

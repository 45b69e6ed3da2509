package textparse

import (
	"strings"

	"github.com/vvikramc/promexpo/pkg/types"
)

type commentKind int

const (
	commentOther commentKind = iota
	commentType
	commentHelp
)

// commentLine is one recognized comment line. Only type declarations carry
// aggregation state; help text is tagged but currently unused, and anything
// else is discarded outright.
type commentLine struct {
	kind       commentKind
	metricName string
	metricType types.MetricType
	help       string
}

// typeKeywords lists the five recognized "# TYPE" keywords, longest first so
// that prefix matching cannot shadow a longer keyword.
var typeKeywords = []string{"histogram", "counter", "untyped", "summary", "gauge"}

// parseTypeLine recognizes "# TYPE name keyword?". An omitted keyword defaults
// to untyped; any word other than the five keywords rejects the line (it will
// then be classified as a generic comment by parseComment's alternation).
func parseTypeLine(s string) (*commentLine, string, error) {
	rest, ok := expectHash(s)
	if !ok {
		return nil, s, errAt("type_decl", s)
	}
	rest, n := skipSpace(rest)
	if n == 0 || !strings.HasPrefix(rest, "TYPE") {
		return nil, s, errAt("type_decl", s)
	}
	rest, n = skipSpace(rest[len("TYPE"):])
	if n == 0 {
		return nil, s, errAt("type_decl", s)
	}
	name, rest, err := lexToken(rest)
	if err != nil {
		return nil, s, err
	}

	metricType := types.Untyped
	if afterWS, n := skipSpace(rest); n > 0 {
		for _, kw := range typeKeywords {
			if strings.HasPrefix(afterWS, kw) {
				metricType = types.MetricTypeByKeyword[kw]
				rest = afterWS[len(kw):]
				break
			}
		}
	}

	rest, _ = skipSpace(rest)
	rest, err = lexNewline(rest)
	if err != nil {
		return nil, s, err
	}
	return &commentLine{kind: commentType, metricName: name, metricType: metricType}, rest, nil
}

// parseHelpLine recognizes "# HELP <free text>". The text runs to the end of
// the line with no escaping.
func parseHelpLine(s string) (*commentLine, string, error) {
	rest, ok := expectHash(s)
	if !ok {
		return nil, s, errAt("help_decl", s)
	}
	rest, n := skipSpace(rest)
	if n == 0 || !strings.HasPrefix(rest, "HELP") {
		return nil, s, errAt("help_decl", s)
	}
	rest, n = skipSpace(rest[len("HELP"):])
	if n == 0 {
		return nil, s, errAt("help_decl", s)
	}
	text, rest := restOfLine(rest)
	rest, err := lexNewline(rest)
	if err != nil {
		return nil, s, err
	}
	return &commentLine{kind: commentHelp, help: text}, rest, nil
}

// parseComment classifies a comment line, trying the two specific shapes
// before the generic one so that "# TYPE" and "# HELP" lines are never
// swallowed as plain comments.
func parseComment(s string) (*commentLine, string, error) {
	if c, rest, err := parseTypeLine(s); err == nil {
		return c, rest, nil
	}
	if c, rest, err := parseHelpLine(s); err == nil {
		return c, rest, nil
	}
	rest, ok := expectHash(s)
	if !ok {
		return nil, s, errAt("comment", s)
	}
	_, rest = restOfLine(rest)
	rest, err := lexNewline(rest)
	if err != nil {
		return nil, s, err
	}
	return &commentLine{kind: commentOther}, rest, nil
}

func expectHash(s string) (string, bool) {
	if strings.HasPrefix(s, "#") {
		return s[1:], true
	}
	return s, false
}

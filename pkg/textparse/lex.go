package textparse

import (
	"math"
	"strconv"
	"strings"
)

// Low-level recognizers shared by the sample and comment grammars. Each takes
// the remaining input and returns the consumed result plus the new remainder;
// none of them look past the first line terminator.

func isTokenHead(c byte) bool {
	return c == '_' || c == ':' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isTokenTail(c byte) bool {
	return isTokenHead(c) || (c >= '0' && c <= '9')
}

func isHorizontalSpace(c byte) bool {
	return c == ' ' || c == '\t'
}

// lexToken consumes the maximal prefix matching [A-Za-z_:][A-Za-z0-9_:]*.
func lexToken(s string) (string, string, error) {
	if s == "" || !isTokenHead(s[0]) {
		return "", s, errAt("token", s)
	}
	i := 1
	for i < len(s) && isTokenTail(s[i]) {
		i++
	}
	return s[:i], s[i:], nil
}

// skipSpace consumes a run of horizontal whitespace and reports its length.
func skipSpace(s string) (string, int) {
	i := 0
	for i < len(s) && isHorizontalSpace(s[i]) {
		i++
	}
	return s[i:], i
}

// lexNewline consumes one line terminator, "\n" or "\r\n".
func lexNewline(s string) (string, error) {
	switch {
	case strings.HasPrefix(s, "\n"):
		return s[1:], nil
	case strings.HasPrefix(s, "\r\n"):
		return s[2:], nil
	}
	return s, errAt("newline", s)
}

// restOfLine consumes everything up to (not including) the line terminator.
func restOfLine(s string) (string, string) {
	i := 0
	for i < len(s) && s[i] != '\n' && s[i] != '\r' {
		i++
	}
	return s[:i], s[i:]
}

// fieldRun returns the run of non-whitespace, non-newline characters at the
// head of s. Values and timestamps both occupy exactly one such run.
func fieldRun(s string) (string, string) {
	i := 0
	for i < len(s) && !isHorizontalSpace(s[i]) && s[i] != '\n' && s[i] != '\r' {
		i++
	}
	return s[:i], s[i:]
}

// lexValue recognizes a sample value: the three special literals take priority,
// anything else must parse as a float the way strconv.ParseFloat does.
func lexValue(s string) (float64, string, error) {
	run, rest := fieldRun(s)
	switch run {
	case "":
		return 0, s, errAt("value", s)
	case "NaN":
		return math.NaN(), rest, nil
	case "+Inf":
		return math.Inf(1), rest, nil
	case "-Inf":
		return math.Inf(-1), rest, nil
	}
	v, err := strconv.ParseFloat(run, 64)
	if err != nil {
		return 0, s, errAt("value", s)
	}
	return v, rest, nil
}

// lexTimestamp recognizes a bare signed decimal millisecond timestamp.
func lexTimestamp(s string) (int64, string, error) {
	run, rest := fieldRun(s)
	if run == "" {
		return 0, s, errAt("timestamp", s)
	}
	ts, err := strconv.ParseInt(run, 10, 64)
	if err != nil {
		return 0, s, errAt("timestamp", s)
	}
	return ts, rest, nil
}

// lexQuotedString recognizes a double-quoted label value. The only escape
// sequences are \n, \" and \\; a backslash followed by anything else fails,
// as does a raw line break before the closing quote.
func lexQuotedString(s string) (string, string, error) {
	if s == "" || s[0] != '"' {
		return "", s, errAt("quoted_string", s)
	}
	var b strings.Builder
	i := 1
	for i < len(s) {
		switch c := s[i]; c {
		case '"':
			return b.String(), s[i+1:], nil
		case '\\':
			if i+1 >= len(s) {
				return "", s, errAt("quoted_string", s[i:])
			}
			switch s[i+1] {
			case 'n':
				b.WriteByte('\n')
			case '"':
				b.WriteByte('"')
			case '\\':
				b.WriteByte('\\')
			default:
				return "", s, errAt("quoted_string", s[i:])
			}
			i += 2
		case '\n':
			return "", s, errAt("quoted_string", s[i:])
		default:
			b.WriteByte(c)
			i++
		}
	}
	return "", s, errAt("quoted_string", s)
}

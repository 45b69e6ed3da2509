package textparse

import "strings"

// sampleEntry is one recognized sample line before aggregation.
type sampleEntry struct {
	name      string
	labels    map[string]string
	value     float64
	timestamp *int64
}

// parseLabelSet recognizes the optional {k="v",...} block. Absence is not an
// error and yields an empty mapping. One trailing comma before the closing
// brace is tolerated. Duplicate label names fold last-value-wins.
func parseLabelSet(s string) (map[string]string, string, error) {
	labels := make(map[string]string)
	if !strings.HasPrefix(s, "{") {
		return labels, s, nil
	}
	rest := s[1:]
	for rest != "" && isTokenHead(rest[0]) {
		name, r, err := lexToken(rest)
		if err != nil {
			return nil, s, err
		}
		if !strings.HasPrefix(r, "=") {
			return nil, s, errAt("labels", r)
		}
		value, r, err := lexQuotedString(r[1:])
		if err != nil {
			return nil, s, err
		}
		labels[name] = value
		rest = r
		if strings.HasPrefix(rest, ",") && len(rest) > 1 && isTokenHead(rest[1]) {
			rest = rest[1:]
			continue
		}
		break
	}
	// Optional trailing comma.
	rest = strings.TrimPrefix(rest, ",")
	if !strings.HasPrefix(rest, "}") {
		return nil, s, errAt("labels", rest)
	}
	return labels, rest[1:], nil
}

// parseSample recognizes one complete sample line:
//
//	name labelset? value timestamp? \n
//
// The value is mandatory and must be separated from the name or label block by
// horizontal whitespace. The timestamp is optional; trailing characters other
// than the line terminator fail the line.
func parseSample(s string) (*sampleEntry, string, error) {
	name, rest, err := lexToken(s)
	if err != nil {
		return nil, s, err
	}

	// Whitespace is tolerated between the name and the label block.
	labels := make(map[string]string)
	if skipped, _ := skipSpace(rest); strings.HasPrefix(skipped, "{") {
		labels, rest, err = parseLabelSet(skipped)
		if err != nil {
			return nil, s, err
		}
	}

	rest, n := skipSpace(rest)
	if n == 0 {
		return nil, s, errAt("sample", rest)
	}
	value, rest, err := lexValue(rest)
	if err != nil {
		return nil, s, err
	}

	var timestamp *int64
	if afterWS, n := skipSpace(rest); n > 0 {
		if ts, r, err := lexTimestamp(afterWS); err == nil {
			timestamp = &ts
			rest = r
		}
	}

	rest, err = lexNewline(rest)
	if err != nil {
		return nil, s, err
	}
	return &sampleEntry{
		name:      name,
		labels:    labels,
		value:     value,
		timestamp: timestamp,
	}, rest, nil
}

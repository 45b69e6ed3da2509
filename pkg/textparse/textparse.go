// Package textparse parses the Prometheus text exposition format and folds it
// into one Metric record per metric name. The grammar is recognized line by
// line; type declarations and samples mentioning the same name, in any order
// and interleaving, merge into a single record. Parsing is all-or-nothing: the
// first unrecognizable line aborts the whole call.
package textparse

import (
	"sort"

	"github.com/vvikramc/promexpo/pkg/types"
)

// parsedLine is the classifier's output for a single line. Exactly one of
// sample and comment is set for non-blank lines.
type parsedLine struct {
	sample  *sampleEntry
	comment *commentLine
}

// parseLine classifies one line by ordered alternation: comment, then sample,
// then blank. The first recognizer that matches consumes the line.
func parseLine(s string) (parsedLine, string, error) {
	if c, rest, err := parseComment(s); err == nil {
		return parsedLine{comment: c}, rest, nil
	}
	if smp, rest, err := parseSample(s); err == nil {
		return parsedLine{sample: smp}, rest, nil
	}
	afterWS, _ := skipSpace(s)
	if rest, err := lexNewline(afterWS); err == nil {
		return parsedLine{}, rest, nil
	}
	return parsedLine{}, s, errAt("line", s)
}

// accumulator folds classified lines into one Metric per name. Metrics are
// created lazily on first mention and mutated in place afterwards.
type accumulator map[string]*types.Metric

func (acc accumulator) addSample(s *sampleEntry) {
	sample := types.Sample{
		Labels:    s.labels,
		Value:     s.value,
		Timestamp: s.timestamp,
	}
	m, ok := acc[s.name]
	if !ok {
		acc[s.name] = &types.Metric{
			Name:    s.name,
			Type:    types.Untyped,
			Samples: []types.Sample{sample},
		}
		return
	}
	m.Samples = append(m.Samples, sample)
}

func (acc accumulator) addComment(c *commentLine) {
	// Help text and generic comments carry no aggregation state.
	if c.kind != commentType {
		return
	}
	if m, ok := acc[c.metricName]; ok {
		// Repeated declarations overwrite: last write wins.
		m.Type = c.metricType
		return
	}
	acc[c.metricName] = &types.Metric{Name: c.metricName, Type: c.metricType}
}

// finalize imposes the one ordering guarantee the parser makes: ascending
// bytewise by name. The map itself has no usable order.
func (acc accumulator) finalize() []types.Metric {
	out := make([]types.Metric, 0, len(acc))
	for _, m := range acc {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Parse consumes a complete exposition-format document and returns one Metric
// per distinct name, sorted ascending by name. Every line must end with a
// line terminator, including the last. The first malformed line fails the
// whole call; no partial result is ever returned.
func Parse(input string) ([]types.Metric, error) {
	acc := make(accumulator)
	rest := input
	for len(rest) > 0 {
		line, r, err := parseLine(rest)
		if err != nil {
			return nil, err
		}
		rest = r
		switch {
		case line.comment != nil:
			acc.addComment(line.comment)
		case line.sample != nil:
			acc.addSample(line.sample)
		}
	}
	return acc.finalize(), nil
}

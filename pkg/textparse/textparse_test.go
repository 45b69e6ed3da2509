package textparse

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vvikramc/promexpo/pkg/types"
)

func TestParseSummaryMerge(t *testing.T) {
	res, err := Parse(`
# TYPE chain_account_commits summary
chain_account_commits {quantile="0.5"} 0

# TYPE chain_account_commits summary
chain_account_commits {quantile="0.75"} 123

# TYPE chain_account_commits summary
chain_account_commits {quantile="0.95"} 50
`)
	require.NoError(t, err)
	require.Len(t, res, 1)

	m := res[0]
	require.Equal(t, "chain_account_commits", m.Name)
	require.Equal(t, types.Summary, m.Type)
	require.Equal(t, []types.Sample{
		{Labels: map[string]string{"quantile": "0.5"}, Value: 0},
		{Labels: map[string]string{"quantile": "0.75"}, Value: 123},
		{Labels: map[string]string{"quantile": "0.95"}, Value: 50},
	}, m.Samples)
}

func TestParseComplete(t *testing.T) {
	res, err := Parse(`
# HELP http_requests_total The total number of HTTP requests.
# TYPE http_requests_total counter
http_requests_total{method="post",code="200"} 1027 1395066363000
http_requests_total{method="post",code="400"} 1028 1395066363000

rpc_duration_seconds_count 2693
`)
	require.NoError(t, err)
	require.Len(t, res, 2)

	ts := int64(1395066363000)
	require.Equal(t, "http_requests_total", res[0].Name)
	require.Equal(t, types.Counter, res[0].Type)
	require.Equal(t, []types.Sample{
		{Labels: map[string]string{"method": "post", "code": "200"}, Value: 1027, Timestamp: &ts},
		{Labels: map[string]string{"method": "post", "code": "400"}, Value: 1028, Timestamp: &ts},
	}, res[0].Samples)

	require.Equal(t, "rpc_duration_seconds_count", res[1].Name)
	require.Equal(t, types.Untyped, res[1].Type)
	require.Len(t, res[1].Samples, 1)
	require.Equal(t, float64(2693), res[1].Samples[0].Value)
	require.Nil(t, res[1].Samples[0].Timestamp)
}

func TestParseOrdering(t *testing.T) {
	// Output order is by name, independent of input order.
	res, err := Parse("b_metric 2\na_metric 1\n# TYPE c_metric gauge\n")
	require.NoError(t, err)
	require.Len(t, res, 3)
	require.Equal(t, "a_metric", res[0].Name)
	require.Equal(t, "b_metric", res[1].Name)
	require.Equal(t, "c_metric", res[2].Name)

	// A type-only metric has no samples.
	require.Equal(t, types.Gauge, res[2].Type)
	require.Empty(t, res[2].Samples)
}

func TestParseTypeRedeclared(t *testing.T) {
	// Last declaration wins, idempotently, without touching samples.
	res, err := Parse(`# TYPE x counter
x 1
# TYPE x counter
# TYPE x gauge
x 2
`)
	require.NoError(t, err)
	require.Len(t, res, 1)
	require.Equal(t, types.Gauge, res[0].Type)
	require.Len(t, res[0].Samples, 2)
}

func TestParseTypeAfterSamples(t *testing.T) {
	// A declaration arriving after samples upgrades the existing record.
	res, err := Parse("x 1\n# TYPE x counter\nx 2\n")
	require.NoError(t, err)
	require.Len(t, res, 1)
	require.Equal(t, types.Counter, res[0].Type)
	require.Len(t, res[0].Samples, 2)
}

func TestParseSpecialValues(t *testing.T) {
	res, err := Parse("a NaN\nb +Inf\nc -Inf\n")
	require.NoError(t, err)
	require.Len(t, res, 3)
	require.True(t, math.IsNaN(res[0].Samples[0].Value))
	require.Equal(t, math.Inf(1), res[1].Samples[0].Value)
	require.Equal(t, math.Inf(-1), res[2].Samples[0].Value)
}

func TestParseHelpNotAttached(t *testing.T) {
	// HELP lines are recognized as their own shape but the fold drops the
	// text on the floor; Metric.Help stays empty.
	// TODO: route the help text into Metric.Help once first-wins vs
	// last-wins attachment is decided.
	res, err := Parse("# HELP x Useful description.\n# TYPE x counter\nx 1\n")
	require.NoError(t, err)
	require.Len(t, res, 1)
	require.Empty(t, res[0].Help)
}

func TestParseUnknownTypeKeyword(t *testing.T) {
	// The type-declaration rule rejects the line; the classifier then
	// matches it as a generic comment, so the parse succeeds but no
	// metric is created and no type falls back to untyped.
	res, err := Parse("# TYPE foo sometype\n")
	require.NoError(t, err)
	require.Empty(t, res)
}

func TestParseAtomicFailure(t *testing.T) {
	// A bare name with no value fails the whole call; the valid metric
	// before it is not surfaced.
	_, err := Parse("ok_metric 1\nmetric_without_timestamp_and_labels\n")
	require.Error(t, err)

	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	require.Contains(t, perr.Remainder, "metric_without_timestamp_and_labels")
}

func TestParseUnterminatedFinalLine(t *testing.T) {
	_, err := Parse("x 1")
	require.Error(t, err)
}

func TestParseBlankAndCommentOnlyInput(t *testing.T) {
	res, err := Parse("\n   \n\t\n# nothing to see here\n")
	require.NoError(t, err)
	require.Empty(t, res)

	res, err = Parse("")
	require.NoError(t, err)
	require.Empty(t, res)
}

func TestParseCRLF(t *testing.T) {
	res, err := Parse("# TYPE x counter\r\nx 1\r\n\r\n")
	require.NoError(t, err)
	require.Len(t, res, 1)
	require.Equal(t, types.Counter, res[0].Type)
	require.Len(t, res[0].Samples, 1)
}

func TestParseDuplicateLabelLastWins(t *testing.T) {
	res, err := Parse("x{a=\"first\",a=\"second\"} 1\n")
	require.NoError(t, err)
	require.Equal(t, map[string]string{"a": "second"}, res[0].Samples[0].Labels)
}

func TestParseErrorMessage(t *testing.T) {
	_, err := Parse("!!!\n")
	require.Error(t, err)
	require.Contains(t, err.Error(), "line")
}

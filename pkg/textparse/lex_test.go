package textparse

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLexToken(t *testing.T) {
	for _, tok := range []string{
		"abc_roo",
		"http_requests_total",
		"http_request_duration_seconds_bucket",
		"__http_request_duration_seconds_bucket",
		"rpc_duration_seconds_count",
		"foo_0:3",
		":foo",
	} {
		got, rest, err := lexToken(tok)
		require.NoError(t, err)
		require.Equal(t, tok, got)
		require.Empty(t, rest)
	}
}

func TestLexTokenMaximalMunch(t *testing.T) {
	got, rest, err := lexToken("a(")
	require.NoError(t, err)
	require.Equal(t, "a", got)
	require.Equal(t, "(", rest)
}

func TestLexTokenRejectsBadHead(t *testing.T) {
	for _, in := range []string{"33", ")3", "", " abc"} {
		_, rest, err := lexToken(in)
		require.Error(t, err)
		require.Equal(t, in, rest, "failed recognizer must consume nothing")
	}
}

func TestLexValue(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		rest string
	}{
		{"1027", 1027, ""},
		{"1027 ee", 1027, " ee"},
		{"1027\nee", 1027, "\nee"},
		{"2.00", 2, ""},
		{"1e-3", 0.001, ""},
		{"123.3412312312", 123.3412312312, ""},
		{"1.458255915e9", 1.458255915e9, ""},
		{"-42.5", -42.5, ""},
	}
	for _, c := range cases {
		got, rest, err := lexValue(c.in)
		require.NoError(t, err, c.in)
		require.Equal(t, c.want, got, c.in)
		require.Equal(t, c.rest, rest, c.in)
	}
}

func TestLexValueSpecials(t *testing.T) {
	v, _, err := lexValue("NaN")
	require.NoError(t, err)
	require.True(t, math.IsNaN(v))

	v, _, err = lexValue("+Inf")
	require.NoError(t, err)
	require.Equal(t, math.Inf(1), v)

	v, _, err = lexValue("-Inf")
	require.NoError(t, err)
	require.Equal(t, math.Inf(-1), v)
}

func TestLexValueRejects(t *testing.T) {
	for _, in := range []string{"ee", "", " 1"} {
		_, _, err := lexValue(in)
		require.Error(t, err, in)
	}
}

func TestLexTimestamp(t *testing.T) {
	ts, rest, err := lexTimestamp("1234")
	require.NoError(t, err)
	require.Equal(t, int64(1234), ts)
	require.Empty(t, rest)

	ts, rest, err = lexTimestamp("-1234 foo")
	require.NoError(t, err)
	require.Equal(t, int64(-1234), ts)
	require.Equal(t, " foo", rest)

	for _, in := range []string{"", "foobar", "12.5"} {
		_, _, err := lexTimestamp(in)
		require.Error(t, err, in)
	}
}

func TestLexQuotedString(t *testing.T) {
	cases := []struct {
		in   string
		want string
		rest string
	}{
		{`""`, "", ""},
		{`"abc"`, "abc", ""},
		{`"abc"aa`, "abc", "aa"},
		{`"\""`, `"`, ""},
		{`"\n"`, "\n", ""},
		{`"\\"`, `\`, ""},
		{`"C:\\DIR\\FILE.TXT"`, `C:\DIR\FILE.TXT`, ""},
		{`"Cannot find file:\n\"FILE.TXT\""`, "Cannot find file:\n\"FILE.TXT\"", ""},
	}
	for _, c := range cases {
		got, rest, err := lexQuotedString(c.in)
		require.NoError(t, err, c.in)
		require.Equal(t, c.want, got, c.in)
		require.Equal(t, c.rest, rest, c.in)
	}
}

func TestLexQuotedStringRejects(t *testing.T) {
	for _, in := range []string{
		"\"\n\"",     // raw line break
		`"\x"`,       // unrecognized escape
		`"unclosed`,  // missing terminator
		`no quote`,   // missing opener
		`"ends in \`, // dangling backslash
	} {
		_, _, err := lexQuotedString(in)
		require.Error(t, err, in)
	}
}

func TestLexNewline(t *testing.T) {
	rest, err := lexNewline("\nfoo")
	require.NoError(t, err)
	require.Equal(t, "foo", rest)

	rest, err = lexNewline("\r\nfoo")
	require.NoError(t, err)
	require.Equal(t, "foo", rest)

	_, err = lexNewline("foo")
	require.Error(t, err)
}

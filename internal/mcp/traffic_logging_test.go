package mcp

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func TestTruncate(t *testing.T) {
	require.Equal(t, "short", truncate("short", 10))
	require.Equal(t, "abc...(truncated)", truncate("abcdef", 3))

	// "é" is two bytes; a cut at byte 2 would land inside it.
	got := truncate("aébc", 2)
	require.Equal(t, "a...(truncated)", got)
	require.True(t, utf8.ValidString(got))

	long := strings.Repeat("日本語", 1000)
	got = truncate(long, maxLoggedPayload)
	require.True(t, utf8.ValidString(got))
	require.LessOrEqual(t, len(strings.TrimSuffix(got, "...(truncated)")), maxLoggedPayload)
}

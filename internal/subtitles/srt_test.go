package subtitles

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whisperd/internal/models"
)

func TestFormatTimestamp(t *testing.T) {
	cases := []struct {
		seconds float64
		want    string
	}{
		{0, "00:00:00,000"},
		{1.5, "00:00:01,500"},
		{61.001, "00:01:01,001"},
		{3661.999, "01:01:01,999"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, formatTimestamp(c.seconds))
	}
}

func TestRenderString(t *testing.T) {
	segments := []models.Segment{
		{Start: 0, End: 1.5, Text: "hello there"},
		{Start: 1.5, End: 3, Text: "general kenobi"},
	}
	out := RenderString(segments)
	want := "1\n00:00:00,000 --> 00:00:01,500\nhello there\n\n" +
		"2\n00:00:01,500 --> 00:00:03,000\ngeneral kenobi\n\n"
	assert.Equal(t, want, out)
}

func TestParseRoundTrip(t *testing.T) {
	segments := []models.Segment{
		{Start: 0, End: 2.25, Text: "first cue"},
		{Start: 2.25, End: 5, Text: "second cue"},
	}
	rendered := RenderString(segments)

	parsed, err := Parse(strings.NewReader(rendered))
	require.NoError(t, err)
	require.Len(t, parsed, 2)

	for i := range segments {
		assert.InDelta(t, segments[i].Start, parsed[i].Start, 0.001)
		assert.InDelta(t, segments[i].End, parsed[i].End, 0.001)
		assert.Equal(t, segments[i].Text, parsed[i].Text)
	}
}

func TestParseMalformedTimingLine(t *testing.T) {
	_, err := Parse(strings.NewReader("1\nnot a timing line\ntext\n\n"))
	assert.Error(t, err)
}

func TestParseEmptyInput(t *testing.T) {
	segments, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, segments)
}

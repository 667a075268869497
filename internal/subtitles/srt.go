// Package subtitles renders WhisperResult segments into the SRT timed
// subtitle format (spec: sequential index, "HH:MM:SS,mmm --> HH:MM:SS,mmm",
// text, blank line) and parses it back for round-trip testing.
package subtitles

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"whisperd/internal/models"
)

// Render writes segments as SRT cues to w.
func Render(w io.Writer, segments []models.Segment) error {
	for i, seg := range segments {
		if _, err := fmt.Fprintf(w, "%d\n%s --> %s\n%s\n\n",
			i+1, formatTimestamp(seg.Start), formatTimestamp(seg.End), strings.TrimSpace(seg.Text)); err != nil {
			return err
		}
	}
	return nil
}

// RenderString is a convenience wrapper around Render returning a string.
func RenderString(segments []models.Segment) string {
	var sb strings.Builder
	_ = Render(&sb, segments)
	return sb.String()
}

func formatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	totalMs := int64(seconds*1000 + 0.5)
	ms := totalMs % 1000
	totalS := totalMs / 1000
	s := totalS % 60
	totalM := totalS / 60
	m := totalM % 60
	h := totalM / 60
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

func parseTimestamp(ts string) (float64, error) {
	ts = strings.TrimSpace(ts)
	main, msPart, ok := strings.Cut(ts, ",")
	if !ok {
		return 0, fmt.Errorf("subtitles: malformed timestamp %q", ts)
	}
	parts := strings.Split(main, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("subtitles: malformed timestamp %q", ts)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("subtitles: malformed timestamp %q: %w", ts, err)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("subtitles: malformed timestamp %q: %w", ts, err)
	}
	s, err := strconv.Atoi(parts[2])
	if err != nil {
		return 0, fmt.Errorf("subtitles: malformed timestamp %q: %w", ts, err)
	}
	ms, err := strconv.Atoi(msPart)
	if err != nil {
		return 0, fmt.Errorf("subtitles: malformed timestamp %q: %w", ts, err)
	}
	return float64(h*3600+m*60+s) + float64(ms)/1000, nil
}

// Parse reads an SRT stream back into segments. Token-level data is not
// carried by the SRT grammar and is always empty on the round trip.
func Parse(r io.Reader) ([]models.Segment, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var segments []models.Segment
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		// index line
		if _, err := strconv.Atoi(line); err != nil {
			return nil, fmt.Errorf("subtitles: expected cue index, got %q", line)
		}
		if !scanner.Scan() {
			return nil, fmt.Errorf("subtitles: truncated cue after index %q", line)
		}
		timingLine := strings.TrimSpace(scanner.Text())
		start, end, found := strings.Cut(timingLine, " --> ")
		if !found {
			return nil, fmt.Errorf("subtitles: malformed timing line %q", timingLine)
		}
		startS, err := parseTimestamp(start)
		if err != nil {
			return nil, err
		}
		endS, err := parseTimestamp(end)
		if err != nil {
			return nil, err
		}

		var textLines []string
		for scanner.Scan() {
			textLine := scanner.Text()
			if strings.TrimSpace(textLine) == "" {
				break
			}
			textLines = append(textLines, textLine)
		}

		segments = append(segments, models.Segment{
			Start: startS,
			End:   endS,
			Text:  strings.Join(textLines, "\n"),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return segments, nil
}

package audioprobe

import (
	"bytes"
	"fmt"
	"os/exec"
)

// FFProbe shells out to ffprobe (from the ffmpeg suite) to confirm a file
// contains at least one decodable audio stream, the same external-tool
// dependency the rest of this codebase's audio handling already assumes.
type FFProbe struct {
	// BinaryPath is the ffprobe executable. Defaults to "ffprobe" on PATH.
	BinaryPath string
}

// NewFFProbe returns a prober that looks up ffprobe on PATH.
func NewFFProbe() *FFProbe {
	return &FFProbe{BinaryPath: "ffprobe"}
}

// Probe runs ffprobe against path and fails if it reports no audio stream.
func (p *FFProbe) Probe(path string) error {
	bin := p.BinaryPath
	if bin == "" {
		bin = "ffprobe"
	}

	cmd := exec.Command(bin,
		"-v", "error",
		"-select_streams", "a",
		"-show_entries", "stream=codec_type",
		"-of", "csv=p=0",
		path,
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("audioprobe: ffprobe failed: %w: %s", err, stderr.String())
	}
	if len(bytes.TrimSpace(stdout.Bytes())) == 0 {
		return fmt.Errorf("audioprobe: no audio stream detected in %s", path)
	}
	return nil
}

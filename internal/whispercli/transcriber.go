// Package whispercli is a concrete, external-process Transcriber: it shells
// out to the `whisper` CLI (the reference openai-whisper package) rather
// than embedding an ASR model, since the model implementation itself is an
// out-of-scope black-box collaborator.
package whispercli

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	"whisperd/internal/models"
	"whisperd/internal/worker"
)

// Transcriber drives the whisper CLI for each job. LoadModel/Unload only
// record the size and device to pass on the next invocation: the CLI loads
// its model fresh per process, so there is no persistent in-memory model to
// hold onto between calls the way the original in-process decoder does.
type Transcriber struct {
	// BinaryPath is the whisper executable. Defaults to "whisper" on PATH.
	BinaryPath string
	// WorkDir is where the CLI's JSON output is written before being read
	// back and removed.
	WorkDir string

	mu     sync.Mutex
	size   models.ModelSize
	device models.Device
}

// New returns a Transcriber that looks up "whisper" on PATH and uses the OS
// temp directory for scratch output.
func New() *Transcriber {
	return &Transcriber{BinaryPath: "whisper", WorkDir: os.TempDir()}
}

func (t *Transcriber) LoadModel(device models.Device, size models.ModelSize) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.device = device
	t.size = size
	return nil
}

func (t *Transcriber) Unload() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.size = ""
}

type whisperOutput struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

// Transcribe runs `whisper` against audioPath and parses its JSON output.
// taskType "translate" maps to the CLI's --task translate, which always
// produces English output, matching the spec's forced-English rule.
func (t *Transcriber) Transcribe(audioPath string, taskType models.TaskType, sourceLanguage string) (worker.TranscribeResult, error) {
	t.mu.Lock()
	size, device := t.size, t.device
	t.mu.Unlock()

	outDir, err := os.MkdirTemp(t.WorkDir, "whisper-out-*")
	if err != nil {
		return worker.TranscribeResult{}, fmt.Errorf("whispercli: create output dir: %w", err)
	}
	defer os.RemoveAll(outDir)

	cliTask := "transcribe"
	if taskType == models.TaskTranslate {
		cliTask = "translate"
	}

	bin := t.BinaryPath
	if bin == "" {
		bin = "whisper"
	}
	args := []string{
		audioPath,
		"--model", modelArg(size),
		"--task", cliTask,
		"--output_format", "json",
		"--output_dir", outDir,
		"--device", deviceArg(device),
	}
	if sourceLanguage != "" {
		args = append(args, "--language", sourceLanguage)
	}

	cmd := exec.Command(bin, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return worker.TranscribeResult{}, fmt.Errorf("whispercli: whisper failed: %w: %s", err, out)
	}

	base := stemName(audioPath)
	jsonPath := filepath.Join(outDir, base+".json")
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return worker.TranscribeResult{}, fmt.Errorf("whispercli: read output: %w", err)
	}

	var parsed whisperOutput
	if err := json.Unmarshal(data, &parsed); err != nil {
		return worker.TranscribeResult{}, fmt.Errorf("whispercli: parse output: %w", err)
	}

	segments := make([]models.Segment, 0, len(parsed.Segments))
	for _, s := range parsed.Segments {
		segments = append(segments, models.Segment{Start: s.Start, End: s.End, Text: s.Text})
	}

	return worker.TranscribeResult{
		Text:     parsed.Text,
		Language: parsed.Language,
		Segments: segments,
	}, nil
}

func modelArg(size models.ModelSize) string {
	if size == "" {
		return string(models.ModelBase)
	}
	return string(size)
}

func deviceArg(device models.Device) string {
	if device == models.DeviceAccelerator {
		return "cuda"
	}
	return "cpu"
}

func stemName(path string) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	return base[:len(base)-len(ext)]
}

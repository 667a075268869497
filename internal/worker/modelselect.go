package worker

import (
	"errors"
	"fmt"
	"sync"

	"whisperd/internal/models"

	"whisperd/pkg/logger"
)

// ErrOutOfMemory is returned when no candidate model size fits the
// available device memory budget.
var ErrOutOfMemory = errors.New("worker: no model size fits available device memory")

// Selector owns the currently loaded model and implements the
// largest-that-fits selection algorithm against a Transcriber and an
// Accelerator memory probe. Exclusive to the decode loop: the main thread
// only calls Unload, and only when the decode loop is parked on the queue's
// condition variable (the idle-timer invariant).
type Selector struct {
	mu          sync.Mutex
	cfg         Config
	mode        models.Device
	accel       Accelerator
	transcriber Transcriber

	lastLoadedSize models.ModelSize
}

// NewSelector constructs a Selector fixed to the given operating mode for
// its lifetime.
func NewSelector(cfg Config, mode models.Device, accel Accelerator, transcriber Transcriber) *Selector {
	return &Selector{cfg: cfg, mode: mode, accel: accel, transcriber: transcriber}
}

// Mode reports the operating mode this Selector was constructed with.
func (s *Selector) Mode() models.Device { return s.mode }

// LastLoadedSize reports the currently loaded model size, or "" if none.
func (s *Selector) LastLoadedSize() models.ModelSize {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastLoadedSize
}

// Load selects and loads a model per the largest-that-fits algorithm,
// returning the size actually loaded. requested may be "" to mean "largest
// that fits".
func (s *Selector) Load(requested models.ModelSize) (models.ModelSize, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cfg.DevelopMode {
		if s.lastLoadedSize == models.ModelBase {
			return models.ModelBase, nil
		}
		if s.lastLoadedSize != "" {
			s.unloadLocked()
		}
		if s.tryLoad(models.ModelBase) {
			return models.ModelBase, nil
		}
		return "", fmt.Errorf("worker: develop mode model %q failed to load", models.ModelBase)
	}

	candidates, err := s.candidatesLocked(requested)
	if err != nil {
		return "", err
	}
	if len(candidates) == 0 {
		return "", ErrOutOfMemory
	}

	if s.lastLoadedSize != "" {
		if requested != "" && requested == s.lastLoadedSize {
			return s.lastLoadedSize, nil
		}
		if s.lastLoadedSize == candidates[0] {
			return s.lastLoadedSize, nil
		}
		logger.Debug("evicting unwanted resident model", "loaded", s.lastLoadedSize, "requested", requested)
		s.unloadLocked()
	}

	if requested != "" {
		if s.tryLoad(requested) {
			return requested, nil
		}
		logger.Info("requested model doesn't fit, searching for the largest that does", "requested", requested)
	}

	for _, size := range candidates {
		if s.tryLoad(size) {
			return size, nil
		}
	}

	return "", ErrOutOfMemory
}

// candidatesLocked computes the descending-size candidate list for the
// current mode. Falls through to CPU-mode candidates when accelerated mode
// finds nothing that fits.
func (s *Selector) candidatesLocked(requested models.ModelSize) ([]models.ModelSize, error) {
	if s.mode != models.DeviceAccelerator {
		return s.cpuCandidates(requested), nil
	}

	free, err := s.accel.FreeMemoryBytes()
	if err != nil {
		return nil, fmt.Errorf("worker: probe device memory: %w", err)
	}

	available := free
	if s.lastLoadedSize != "" {
		available += byteBudget[s.lastLoadedSize]
	}

	var candidates []models.ModelSize
	for _, size := range sizesFrom(requested) {
		if byteBudget[size] <= available {
			candidates = append(candidates, size)
		}
	}
	if len(candidates) == 0 {
		logger.Info("no model fits accelerated device, falling back to CPU candidates")
		return s.cpuCandidates(requested), nil
	}
	return candidates, nil
}

func (s *Selector) cpuCandidates(requested models.ModelSize) []models.ModelSize {
	ceiling := requested
	if ceiling == "" {
		ceiling = s.cfg.cpuCeiling()
	}
	return sizesFrom(ceiling)
}

// tryLoad attempts to load size, updating lastLoadedSize on success.
func (s *Selector) tryLoad(size models.ModelSize) bool {
	if err := s.transcriber.LoadModel(s.mode, size); err != nil {
		logger.Info("model currently doesn't fit device", "size", size, "err", err)
		return false
	}
	s.lastLoadedSize = size
	return true
}

// Unload releases the currently loaded model, if any. Idempotent.
func (s *Selector) Unload() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unloadLocked()
}

func (s *Selector) unloadLocked() {
	if s.lastLoadedSize == "" {
		return
	}
	logger.Info("unloading model", "size", s.lastLoadedSize)
	s.transcriber.Unload()
	s.lastLoadedSize = ""
}

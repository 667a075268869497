package worker

import (
	"whisperd/internal/models"
	"whisperd/internal/systeminfo"
	"whisperd/pkg/logger"
)

// hostMemoryReserve is left unaccounted for the OS and other processes when
// sizing the default CPU ceiling off total host memory.
const hostMemoryReserve uint64 = 1 << 30 // 1GiB

// ResolveCPUFallback fills in cfg.CPUFallbackModel from the host's total
// memory when the operator left both MaxModelToUse and CPUFallbackModel
// unset. It never overrides an explicit operator choice.
func ResolveCPUFallback(cfg Config) Config {
	if cfg.MaxModelToUse != "" || cfg.CPUFallbackModel != "" {
		return cfg
	}

	total, err := systeminfo.TotalMemoryBytes()
	if err != nil {
		logger.Warn("worker: could not probe host memory, defaulting CPU fallback to base", "err", err)
		cfg.CPUFallbackModel = models.ModelBase
		return cfg
	}

	usable := uint64(0)
	if total > hostMemoryReserve {
		usable = total - hostMemoryReserve
	}

	cfg.CPUFallbackModel = models.ModelBase
	for _, size := range sizesDescending {
		if usable >= byteBudget[size] {
			cfg.CPUFallbackModel = size
			break
		}
	}
	logger.Info("worker: resolved default CPU fallback model from host memory",
		"total_bytes", total, "fallback_model", cfg.CPUFallbackModel)
	return cfg
}

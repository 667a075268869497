package worker

import "whisperd/internal/models"

// byteBudget is the approximate device memory footprint of each model
// size, mirroring the reference implementation's size-to-VRAM table.
var byteBudget = map[models.ModelSize]uint64{
	models.ModelLarge:  10e9,
	models.ModelMedium: 5e9,
	models.ModelSmall:  2e9,
	models.ModelBase:   1e9,
}

// sizesDescending is SIZES from the model-selection algorithm: every
// supported model size in descending memory order.
var sizesDescending = []models.ModelSize{
	models.ModelLarge,
	models.ModelMedium,
	models.ModelSmall,
	models.ModelBase,
}

// sizesFrom returns the suffix of sizesDescending starting at from
// (inclusive). An unknown from yields the full list, matching "requested
// and smaller" when requested is unset.
func sizesFrom(from models.ModelSize) []models.ModelSize {
	if from == "" {
		return sizesDescending
	}
	for i, s := range sizesDescending {
		if s == from {
			return sizesDescending[i:]
		}
	}
	return sizesDescending
}

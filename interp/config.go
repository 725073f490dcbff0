package interp

import (
	"fmt"
	"math/rand/v2"
)

type Config struct {
	// NoiseAmount scales the class correlation matrix into the sampling
	// covariance.
	NoiseAmount float64 `json:"noise_amount"`
	// NSamples is the number of perturbed copies to average over.
	NSamples int `json:"n_samples"`
	// Split is the number of chunks the perturbed batch is processed in to
	// bound peak memory. A split of 1 processes all samples at once.
	Split int `json:"split"`
	// Workers caps concurrent gradient chunk calls. With 1 the chunks run
	// sequentially; either way results are reassembled in sample order.
	Workers int `json:"workers"`
	// Seed makes the noise reproducible. Zero seeds from the global
	// generator.
	Seed uint64 `json:"seed,omitempty"`
}

func DefaultConfig() Config {
	return Config{
		NoiseAmount: 0.1,
		NSamples:    50,
		Split:       2,
		Workers:     1,
	}
}

func validateConfig(config *Config) error {
	if config.NoiseAmount <= 0 {
		return fmt.Errorf("noise amount must be positive, got %g", config.NoiseAmount)
	}
	if config.NSamples < 1 {
		return fmt.Errorf("sample count must be positive, got %d", config.NSamples)
	}
	if config.Split < 1 {
		return fmt.Errorf("split must be positive, got %d", config.Split)
	}
	if config.Workers < 1 {
		return fmt.Errorf("worker count must be positive, got %d", config.Workers)
	}
	return nil
}

func (c Config) noiseSource() rand.Source {
	seed := c.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	return rand.NewPCG(seed, seed)
}

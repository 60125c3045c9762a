package bootstrap

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
)

const logPrefix = "bootstrap:loader"

// DefaultSeedPaths are tried after any explicit paths.
var DefaultSeedPaths = []string{"config/seed.json", "seed.json"}

// ErrNoSeedFile is returned when none of the candidate paths exist.
var ErrNoSeedFile = errors.New("bootstrap: no seed file found")

// LoadSeedConfig loads the first seed file that exists, trying the given paths
// (e.g. from "seed my.json" or SEED_FILE) before DefaultSeedPaths.
// A file that exists but does not parse or validate is an error.
func LoadSeedConfig(paths ...string) (*SeedConfig, error) {
	candidates := make([]string, 0, len(paths)+len(DefaultSeedPaths))
	for _, p := range paths {
		if p != "" {
			candidates = append(candidates, p)
		}
	}
	candidates = append(candidates, DefaultSeedPaths...)

	for _, p := range candidates {
		data, err := os.ReadFile(p)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%s - read %s: %w", logPrefix, p, err)
		}

		var cfg SeedConfig
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("%s - parse %s: %w", logPrefix, p, err)
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("%s - invalid seed %s: %w", logPrefix, p, err)
		}

		slog.Info(fmt.Sprintf("%s - Loaded seed from %s (users=%d employees=%d suppliers=%d)",
			logPrefix, p, len(cfg.Users), len(cfg.Employees), len(cfg.Suppliers)))
		return &cfg, nil
	}

	return nil, fmt.Errorf("%s - tried %v: %w", logPrefix, candidates, ErrNoSeedFile)
}

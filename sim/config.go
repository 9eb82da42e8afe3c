package sim

import "fmt"

// GraphConfig groups network generation parameters.
type GraphConfig struct {
	Units     int // number of units n (must be > 0)
	MaxDegree int // degree bound (must lie in [1, n-1])
}

// NewGraphConfig creates a GraphConfig.
func NewGraphConfig(units, maxDegree int) GraphConfig {
	return GraphConfig{Units: units, MaxDegree: maxDegree}
}

// Validate checks the graph configuration.
func (cfg GraphConfig) Validate() error {
	if cfg.Units <= 0 {
		return fmt.Errorf("units must be positive, got %d", cfg.Units)
	}
	if cfg.MaxDegree < 1 || cfg.MaxDegree >= cfg.Units {
		return fmt.Errorf("max degree must lie in [1, units-1], got %d with units=%d", cfg.MaxDegree, cfg.Units)
	}
	return nil
}

// NewDriverConfig creates a DriverConfig.
func NewDriverConfig(replicates, workers int, params GenParams, oracle Oracle, onFailure FailurePolicy) DriverConfig {
	return DriverConfig{
		Replicates: replicates,
		Workers:    workers,
		Params:     params,
		Oracle:     oracle,
		OnFailure:  onFailure,
	}
}

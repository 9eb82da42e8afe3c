// Package scenario loads simulation run configuration from YAML, with
// defaulting and validation. A scenario file is the declarative equivalent
// of the CLI flag surface.
package scenario

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Default values applied by ApplyDefaults.
const (
	DefaultUnits            = 1000
	DefaultMaxDegree        = 5
	DefaultReplicates       = 250
	DefaultPermutationDraws = 10
	DefaultProbClip         = 1e-6
	DefaultOnFailure        = "record"
)

// DefaultEstimators is the bank run when a scenario names none.
var DefaultEstimators = []string{"naive", "ipw", "permutation"}

// OracleSpec holds the ground-truth marginal-model parameters.
type OracleSpec struct {
	Treatment float64 `yaml:"treatment"`
	Spill     float64 `yaml:"spill"`
}

// Spec is the top-level scenario configuration, loaded from YAML via Load.
type Spec struct {
	Seed             int64      `yaml:"seed"`
	Units            int        `yaml:"units"`
	MaxDegree        int        `yaml:"max_degree"`
	Replicates       int        `yaml:"replicates"`
	PermutationDraws int        `yaml:"permutation_draws"`
	Workers          int        `yaml:"workers,omitempty"`
	Gamma            []float64  `yaml:"gamma"`
	Beta             []float64  `yaml:"beta"`
	Oracle           OracleSpec `yaml:"oracle"`
	Estimators       []string   `yaml:"estimators,omitempty"`
	OnFailure        string     `yaml:"on_failure,omitempty"`
	ProbClip         *float64   `yaml:"prob_clip,omitempty"` // nil = default; explicit 0 disables clipping
	Output           string     `yaml:"output,omitempty"`    // CSV path for the bias table
}

// Load reads and parses a scenario file, applies defaults, and validates.
func Load(path string) (*Spec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario %s: %w", path, err)
	}
	var spec Spec
	if err := yaml.Unmarshal(raw, &spec); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	spec.ApplyDefaults()
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	return &spec, nil
}

// ApplyDefaults fills unset fields. Idempotent.
func (s *Spec) ApplyDefaults() {
	if s.Units == 0 {
		s.Units = DefaultUnits
	}
	if s.MaxDegree == 0 {
		s.MaxDegree = DefaultMaxDegree
	}
	if s.Replicates == 0 {
		s.Replicates = DefaultReplicates
	}
	if s.PermutationDraws == 0 {
		s.PermutationDraws = DefaultPermutationDraws
	}
	if len(s.Estimators) == 0 {
		s.Estimators = append([]string(nil), DefaultEstimators...)
	}
	if s.OnFailure == "" {
		s.OnFailure = DefaultOnFailure
	}
	if s.ProbClip == nil {
		clip := DefaultProbClip
		s.ProbClip = &clip
	}
}

// Validate checks field ranges. Coefficient vector lengths are validated
// downstream against the design terms they parameterize.
func (s *Spec) Validate() error {
	if s.Units <= 0 {
		return fmt.Errorf("units must be positive, got %d", s.Units)
	}
	if s.MaxDegree < 1 || s.MaxDegree >= s.Units {
		return fmt.Errorf("max_degree must lie in [1, units-1], got %d", s.MaxDegree)
	}
	if s.Replicates < 1 {
		return fmt.Errorf("replicates must be >= 1, got %d", s.Replicates)
	}
	if s.PermutationDraws < 1 {
		return fmt.Errorf("permutation_draws must be >= 1, got %d", s.PermutationDraws)
	}
	if s.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", s.Workers)
	}
	if len(s.Gamma) == 0 {
		return fmt.Errorf("gamma coefficients are required")
	}
	if len(s.Beta) == 0 {
		return fmt.Errorf("beta coefficients are required")
	}
	if s.OnFailure != "abort" && s.OnFailure != "record" {
		return fmt.Errorf("on_failure must be \"abort\" or \"record\", got %q", s.OnFailure)
	}
	if s.ProbClip != nil && (*s.ProbClip < 0 || *s.ProbClip >= 0.5) {
		return fmt.Errorf("prob_clip must lie in [0, 0.5), got %g", *s.ProbClip)
	}
	return nil
}

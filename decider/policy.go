package decider

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"gopkg.in/yaml.v3"
)

// Policy configures the exponential backoff used by Backoff.
type Policy struct {
	InitialInterval     time.Duration `yaml:"initial_interval"`
	MaxInterval         time.Duration `yaml:"max_interval"`
	Multiplier          float64       `yaml:"multiplier"`
	RandomizationFactor float64       `yaml:"randomization_factor"`
	// MaxElapsedTime stops retrying once exceeded. Zero means no limit.
	MaxElapsedTime time.Duration `yaml:"max_elapsed_time"`
	// MaxRetries caps the number of retries per invocation. Zero means no
	// cap.
	MaxRetries int `yaml:"max_retries"`
}

// DefaultPolicy returns the policy used when none is configured.
func DefaultPolicy() Policy {
	return Policy{
		InitialInterval:     500 * time.Millisecond,
		MaxInterval:         10 * time.Second,
		Multiplier:          1.5,
		RandomizationFactor: 0.1,
		MaxElapsedTime:      30 * time.Second,
		MaxRetries:          3,
	}
}

// Validate reports configuration errors.
func (p Policy) Validate() error {
	var errs []error
	if p.InitialInterval <= 0 {
		errs = append(errs, errors.New("initial_interval must be positive"))
	}
	if p.MaxInterval < p.InitialInterval {
		errs = append(errs, errors.New("max_interval must not be below initial_interval"))
	}
	if p.Multiplier < 1 {
		errs = append(errs, errors.New("multiplier must be at least 1"))
	}
	if p.RandomizationFactor < 0 || p.RandomizationFactor > 1 {
		errs = append(errs, errors.New("randomization_factor must be within [0,1]"))
	}
	if p.MaxElapsedTime < 0 || p.MaxRetries < 0 {
		errs = append(errs, errors.New("limits must not be negative"))
	}
	return errors.Join(errs...)
}

// NewBackOff returns a fresh backoff sequence for one invocation.
func (p Policy) NewBackOff() backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.InitialInterval
	eb.MaxInterval = p.MaxInterval
	eb.Multiplier = p.Multiplier
	eb.RandomizationFactor = p.RandomizationFactor
	eb.MaxElapsedTime = p.MaxElapsedTime
	eb.Reset()

	if p.MaxRetries > 0 {
		return backoff.WithMaxRetries(eb, uint64(p.MaxRetries))
	}
	return eb
}

// ParsePolicy decodes a YAML policy. Fields that are absent keep their
// DefaultPolicy values.
func ParsePolicy(data []byte) (Policy, error) {
	p := DefaultPolicy()
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Policy{}, fmt.Errorf("parse retry policy: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Policy{}, fmt.Errorf("invalid retry policy: %w", err)
	}
	return p, nil
}

// LoadPolicy reads a YAML policy file.
func LoadPolicy(path string) (Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("read retry policy: %w", err)
	}
	return ParsePolicy(data)
}

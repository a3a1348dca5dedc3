// Package config loads the mining schedule and resolves file locations.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/rulecart/internal/common"
	"github.com/Veraticus/rulecart/internal/mining"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// MiningConfig holds the AutoSearch schedule and engine tuning.
// All values are explicit inputs to the miner; nothing is read from globals.
type MiningConfig struct {
	InitialSupport    float64       `mapstructure:"initial_support" validate:"gt=0,lte=1"`
	InitialConfidence float64       `mapstructure:"initial_confidence" validate:"gt=0,lte=1"`
	ConfidenceStep    float64       `mapstructure:"confidence_step" validate:"gt=0,lt=1"`
	SupportStep       float64       `mapstructure:"support_step" validate:"gte=0,lt=1"`
	MinSupport        float64       `mapstructure:"min_support" validate:"gt=0,lte=1"`
	MinLength         int           `mapstructure:"min_length" validate:"gte=1"`
	InitialMaxLength  int           `mapstructure:"initial_max_length" validate:"gte=1"`
	MaxIterations     int           `mapstructure:"max_iterations" validate:"gte=1,lte=10000"`
	Timeout           time.Duration `mapstructure:"timeout" validate:"gt=0"`
	TargetRuleCount   int           `mapstructure:"target_rule_count" validate:"gte=1"`
	Workers           int           `mapstructure:"workers" validate:"gte=0"`
}

// DefaultMiningConfig returns the schedule used when nothing is configured.
func DefaultMiningConfig() MiningConfig {
	return MiningConfig{
		InitialSupport:    0.01,
		InitialConfidence: 0.5,
		ConfidenceStep:    0.05,
		SupportStep:       0.005,
		MinSupport:        0.001,
		MinLength:         1,
		InitialMaxLength:  3,
		MaxIterations:     20,
		Timeout:           30 * time.Second,
		TargetRuleCount:   1000,
		Workers:           0,
	}
}

var validate = validator.New()

// Validate checks field ranges and cross-field constraints.
func (c MiningConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s=%s)", fe.Field(), fe.Tag(), fe.Param()))
			}
			return fmt.Errorf("%w: mining: %s", common.ErrInvalidConfig, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: mining: %w", common.ErrInvalidConfig, err)
	}
	if c.MinSupport > c.InitialSupport {
		return fmt.Errorf("%w: mining: min_support %g exceeds initial_support %g", common.ErrInvalidConfig, c.MinSupport, c.InitialSupport)
	}
	return nil
}

// Schedule maps the configuration onto the enumerator's relaxation schedule.
func (c MiningConfig) Schedule() mining.Schedule {
	return mining.Schedule{
		InitialSupport:    c.InitialSupport,
		InitialConfidence: c.InitialConfidence,
		ConfidenceStep:    c.ConfidenceStep,
		SupportStep:       c.SupportStep,
		MinSupport:        c.MinSupport,
		MinLength:         c.MinLength,
		InitialMaxLength:  c.InitialMaxLength,
		MaxIterations:     c.MaxIterations,
		Timeout:           c.Timeout,
	}
}

// LoadMiningConfig reads the "mining" section from v over the defaults.
// A nil v uses the global viper instance.
func LoadMiningConfig(v *viper.Viper) (*MiningConfig, error) {
	if v == nil {
		v = viper.GetViper()
	}
	cfg := DefaultMiningConfig()

	if v.IsSet("mining") {
		if err := v.UnmarshalKey("mining", &cfg); err != nil {
			return nil, fmt.Errorf("%w: failed to decode mining section: %w", common.ErrInvalidConfig, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

package review

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/de-tools/access-atlas/pkg/models/domain"
)

// DefaultConfig returns the review configuration used when no overrides are
// provided.
func DefaultConfig() domain.ReviewConfig {
	return domain.ReviewConfig{
		StalenessThresholdDays: 90,
		FactorWeights: map[string]int{
			FactorUnusedIdentity:       DefaultUnusedIdentityWeight,
			FactorAdministrativePolicy: DefaultAdministrativePolicyWeight,
			FactorBroadPolicy:          DefaultBroadPolicyWeight,
		},
		RiskBands:       domain.DefaultRiskBands(),
		Workers:         4,
		AlertLevel:      domain.RiskLevelHigh,
		SuppressionDays: 7,
	}
}

type configFile struct {
	StalenessThresholdDays *int           `mapstructure:"staleness_threshold_days"`
	FactorWeights          map[string]int `mapstructure:"factor_weights"`
	EnabledFactors         []string       `mapstructure:"enabled_factors"`
	RiskLevelBands         []bandEntry    `mapstructure:"risk_level_bands"`
	Workers                *int           `mapstructure:"workers"`
	AlertLevel             string         `mapstructure:"alert_level"`
	SuppressionDays        *int           `mapstructure:"suppression_days"`
}

type bandEntry struct {
	Level string `mapstructure:"level"`
	Min   int    `mapstructure:"min"`
	Max   int    `mapstructure:"max"`
}

// LoadConfig reads a review configuration file and overlays it on the
// defaults. An empty path returns the defaults unchanged.
func LoadConfig(path string) (domain.ReviewConfig, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return domain.ReviewConfig{}, fmt.Errorf("%w: reading %s: %v", domain.ErrConfig, path, err)
	}

	var file configFile
	if err := v.Unmarshal(&file); err != nil {
		return domain.ReviewConfig{}, fmt.Errorf("%w: parsing %s: %v", domain.ErrConfig, path, err)
	}

	if file.StalenessThresholdDays != nil {
		cfg.StalenessThresholdDays = *file.StalenessThresholdDays
	}
	for name, w := range file.FactorWeights {
		cfg.FactorWeights[name] = w
	}
	if len(file.EnabledFactors) > 0 {
		cfg.EnabledFactors = file.EnabledFactors
	}
	if len(file.RiskLevelBands) > 0 {
		bands := make([]domain.RiskBand, 0, len(file.RiskLevelBands))
		for _, b := range file.RiskLevelBands {
			level, err := domain.ParseRiskLevel(b.Level)
			if err != nil {
				return domain.ReviewConfig{}, err
			}
			bands = append(bands, domain.RiskBand{Level: level, Min: b.Min, Max: b.Max})
		}
		cfg.RiskBands = bands
	}
	if file.Workers != nil {
		cfg.Workers = *file.Workers
	}
	if file.AlertLevel != "" {
		level, err := domain.ParseRiskLevel(file.AlertLevel)
		if err != nil {
			return domain.ReviewConfig{}, err
		}
		cfg.AlertLevel = level
	}
	if file.SuppressionDays != nil {
		cfg.SuppressionDays = *file.SuppressionDays
	}

	if err := cfg.Validate(); err != nil {
		return domain.ReviewConfig{}, err
	}
	return cfg, nil
}

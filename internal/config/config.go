package config

import (
	"fmt"
	"strings"

	"github.com/aerocharter/service-flightpath/internal/platform/configutil"
	"github.com/spf13/viper"
)

// PathsConfig bounds the arc parameters clients may request.
type PathsConfig struct {
	DefaultSteps      int
	MaxSteps          int
	DefaultCurveRatio float64
	MaxCurveRatio     float64
}

// ServiceConfig holds all configuration for the flight path service.
type ServiceConfig struct {
	Port        string
	AppEnv      string
	DBConfig    configutil.DatabaseConfig
	KafkaConfig configutil.KafkaConfig
	Paths       PathsConfig
}

// Load reads configuration from config.yaml and FLIGHTPATH_* environment variables.
func Load() (*ServiceConfig, error) {
	v, err := configutil.Load("FLIGHTPATH")
	if err != nil {
		return nil, err
	}
	return fromViper(v)
}

func fromViper(v *viper.Viper) (*ServiceConfig, error) {
	v.SetDefault("paths.default_steps", 32)
	v.SetDefault("paths.max_steps", 512)
	v.SetDefault("paths.default_curve_ratio", 0.15)
	v.SetDefault("paths.max_curve_ratio", 1.0)

	cfg := &ServiceConfig{
		Port:        configutil.GetServicePort(v, "service_port"),
		AppEnv:      configutil.GetAppEnv(v),
		DBConfig:    configutil.LoadDatabaseConfig(v, "flightpath"),
		KafkaConfig: configutil.LoadKafkaConfig(v),
		Paths: PathsConfig{
			DefaultSteps:      v.GetInt("paths.default_steps"),
			MaxSteps:          v.GetInt("paths.max_steps"),
			DefaultCurveRatio: v.GetFloat64("paths.default_curve_ratio"),
			MaxCurveRatio:     v.GetFloat64("paths.max_curve_ratio"),
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that required configuration fields are present and sane.
func (c *ServiceConfig) Validate() error {
	var errs []string

	if c.DBConfig.Host == "" {
		errs = append(errs, "db.host is required")
	}
	if c.DBConfig.Port <= 0 || c.DBConfig.Port > 65535 {
		errs = append(errs, fmt.Sprintf("db.port must be 1-65535, got %d", c.DBConfig.Port))
	}
	if c.DBConfig.DBName == "" {
		errs = append(errs, "db.name is required")
	}
	if len(c.KafkaConfig.Brokers) == 0 {
		errs = append(errs, "kafka.brokers is required")
	}
	if c.Paths.DefaultSteps < 1 {
		errs = append(errs, fmt.Sprintf("paths.default_steps must be >= 1, got %d", c.Paths.DefaultSteps))
	}
	if c.Paths.MaxSteps < c.Paths.DefaultSteps {
		errs = append(errs, fmt.Sprintf("paths.max_steps (%d) must be >= paths.default_steps (%d)", c.Paths.MaxSteps, c.Paths.DefaultSteps))
	}
	if c.Paths.DefaultCurveRatio < 0 {
		errs = append(errs, fmt.Sprintf("paths.default_curve_ratio must be >= 0, got %v", c.Paths.DefaultCurveRatio))
	}
	if c.Paths.MaxCurveRatio < c.Paths.DefaultCurveRatio {
		errs = append(errs, fmt.Sprintf("paths.max_curve_ratio (%v) must be >= paths.default_curve_ratio (%v)", c.Paths.MaxCurveRatio, c.Paths.DefaultCurveRatio))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Package configutil holds the viper plumbing shared by service configs:
// defaults, optional YAML file, and prefixed environment overrides.
package configutil

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/viper"
)

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN returns the libpq keyword/value connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

// KafkaConfig holds broker settings.
type KafkaConfig struct {
	Brokers     []string `mapstructure:"brokers"`
	GroupPrefix string   `mapstructure:"group_prefix"`
}

// Load returns a viper instance primed with the shared defaults. Environment
// variables use the given prefix, e.g. FLIGHTPATH_DB_HOST for db.host.
func Load(prefix string) (*viper.Viper, error) {
	v := viper.New()

	v.SetDefault("app_env", "development")
	v.SetDefault("service_port", ":8080")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "postgres")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.group_prefix", "")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(prefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// GetServicePort returns the listen address, adding a leading colon to bare ports.
func GetServicePort(v *viper.Viper, key string) string {
	port := v.GetString(key)
	if port == "" {
		port = v.GetString("service_port")
	}
	if !strings.Contains(port, ":") {
		port = ":" + port
	}
	return port
}

// GetAppEnv returns the deployment environment name.
func GetAppEnv(v *viper.Viper) string {
	return v.GetString("app_env")
}

// LoadDatabaseConfig reads the db.* keys, using defaultName when db.name is unset.
func LoadDatabaseConfig(v *viper.Viper, defaultName string) DatabaseConfig {
	v.SetDefault("db.name", defaultName)
	return DatabaseConfig{
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		DBName:   v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
	}
}

// LoadKafkaConfig reads the kafka.* keys. A string value, as set through the
// environment, is split on commas.
func LoadKafkaConfig(v *viper.Viper) KafkaConfig {
	var raw []string
	if s, ok := v.Get("kafka.brokers").(string); ok {
		raw = strings.Split(s, ",")
	} else {
		raw = v.GetStringSlice("kafka.brokers")
	}

	brokers := make([]string, 0, len(raw))
	for _, b := range raw {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return KafkaConfig{
		Brokers:     brokers,
		GroupPrefix: v.GetString("kafka.group_prefix"),
	}
}

// DatabaseURL returns the URL form used by golang-migrate.
func (d DatabaseConfig) DatabaseURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     d.DBName,
		RawQuery: "sslmode=" + d.SSLMode,
	}
	return u.String()
}

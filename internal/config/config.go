package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/acs-loader/internal/region"
)

// Config holds the full application configuration.
type Config struct {
	Warehouse WarehouseConfig `yaml:"warehouse" mapstructure:"warehouse"`
	Census    CensusConfig    `yaml:"census" mapstructure:"census"`
	Secrets   SecretsConfig   `yaml:"secrets" mapstructure:"secrets"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// WarehouseConfig configures the destination database.
type WarehouseConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	Table       string `yaml:"table" mapstructure:"table"`
	LogTable    string `yaml:"log_table" mapstructure:"log_table"`
}

// CensusConfig configures the Census Data API client and the fetched layout.
type CensusConfig struct {
	BaseURL     string   `yaml:"base_url" mapstructure:"base_url"`
	Dataset     string   `yaml:"dataset" mapstructure:"dataset"`
	APIKey      string   `yaml:"api_key" mapstructure:"api_key"`
	NameField   string   `yaml:"name_field" mapstructure:"name_field"`
	Measures    []string `yaml:"measures" mapstructure:"measures"`
	Regions     []string `yaml:"regions" mapstructure:"regions"`
	ProbeRegion string   `yaml:"probe_region" mapstructure:"probe_region"`
	Concurrency int      `yaml:"concurrency" mapstructure:"concurrency"`
	TimeoutSecs int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int      `yaml:"max_retries" mapstructure:"max_retries"`
}

// SecretsConfig configures the credential service used to resolve the Census API key.
type SecretsConfig struct {
	BaseURL      string `yaml:"base_url" mapstructure:"base_url"`
	Token        string `yaml:"token" mapstructure:"token"`
	CredentialID int    `yaml:"credential_id" mapstructure:"credential_id"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ACSLOAD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("warehouse.driver", "postgres")
	v.SetDefault("warehouse.database_url", "")
	v.SetDefault("warehouse.table", "scratch.census_commute")
	v.SetDefault("warehouse.log_table", "scratch.census_load_log")
	v.SetDefault("census.base_url", "https://api.census.gov/data")
	v.SetDefault("census.dataset", "acs/acs5")
	v.SetDefault("census.api_key", "")
	v.SetDefault("census.name_field", "NAME")
	v.SetDefault("census.measures", []string{"B08303_001E", "B08303_013E"})
	v.SetDefault("census.regions", []string{})
	v.SetDefault("census.probe_region", "11")
	v.SetDefault("census.concurrency", 1)
	v.SetDefault("census.timeout_secs", 60)
	v.SetDefault("census.max_retries", 3)
	v.SetDefault("secrets.base_url", "")
	v.SetDefault("secrets.token", "")
	v.SetDefault("secrets.credential_id", 0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the settings that cannot be defaulted.
func (c *Config) Validate() error {
	switch c.Warehouse.Driver {
	case "postgres", "sqlite":
	default:
		return eris.Errorf("config: unsupported warehouse driver %q (valid: postgres, sqlite)", c.Warehouse.Driver)
	}
	if strings.TrimSpace(c.Warehouse.Table) == "" {
		return eris.New("config: warehouse.table is required")
	}
	if strings.TrimSpace(c.Census.NameField) == "" {
		return eris.New("config: census.name_field is required")
	}
	if len(c.Census.Measures) == 0 {
		return eris.New("config: census.measures must list at least one field")
	}
	if _, err := region.ResolveCode(c.Census.ProbeRegion); err != nil {
		return eris.Wrap(err, "config: census.probe_region")
	}
	if c.Census.Concurrency < 1 {
		return eris.Errorf("config: census.concurrency must be >= 1, got %d", c.Census.Concurrency)
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}

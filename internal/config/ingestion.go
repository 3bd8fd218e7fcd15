package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// IngestionConfig carries the operational tunables for the CSV import and
// fact-table provisioning paths.
type IngestionConfig struct {
	// MaxUploadBytes rejects uploads above this size before parsing.
	MaxUploadBytes int64 `mapstructure:"maxUploadBytes"`
	// BatchSize bounds the number of rows per insert statement.
	BatchSize int `mapstructure:"batchSize"`
	// MaxRowErrors caps how many row errors a response carries.
	MaxRowErrors int `mapstructure:"maxRowErrors"`
	// BaselinePartitionYear is the year the quarterly partitions are created
	// for. Zero means the current UTC year at provisioning time.
	BaselinePartitionYear int `mapstructure:"baselinePartitionYear"`
}

func DefaultIngestionConfig() IngestionConfig {
	return IngestionConfig{
		MaxUploadBytes: 20 << 20,
		BatchSize:      2000,
		MaxRowErrors:   100,
	}
}

// IngestionConfigHolder holds the current ingestion config and follows file
// changes without a restart.
type IngestionConfigHolder struct {
	current atomic.Value // holds IngestionConfig
}

func NewIngestionConfigHolder() (*IngestionConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("ingestion")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/epidash/config")
	v.AddConfigPath("/etc/epidash")
	v.AddConfigPath(".")

	v.SetEnvPrefix("EPIDASH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultIngestionConfig()
	v.SetDefault("ingestion.maxUploadBytes", defaults.MaxUploadBytes)
	v.SetDefault("ingestion.batchSize", defaults.BatchSize)
	v.SetDefault("ingestion.maxRowErrors", defaults.MaxRowErrors)
	v.SetDefault("ingestion.baselinePartitionYear", defaults.BaselinePartitionYear)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg IngestionConfig
	if err := v.UnmarshalKey("ingestion", &cfg); err != nil {
		return nil, err
	}
	if err := validateIngestionConfig(cfg); err != nil {
		return nil, err
	}

	holder := &IngestionConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated IngestionConfig
		if err := v.UnmarshalKey("ingestion", &updated); err != nil {
			log.Printf("[ingestion-config] reload failed: %v", err)
			return
		}
		if err := validateIngestionConfig(updated); err != nil {
			log.Printf("[ingestion-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
	})

	return holder, nil
}

// StaticIngestionConfigHolder wraps a fixed config, with no file watching.
func StaticIngestionConfigHolder(cfg IngestionConfig) *IngestionConfigHolder {
	holder := &IngestionConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

// Current returns the active ingestion config.
func (h *IngestionConfigHolder) Current() IngestionConfig {
	return h.current.Load().(IngestionConfig)
}

// BaselineYear resolves the partition baseline year, defaulting to the
// current UTC year.
func (c IngestionConfig) BaselineYear() int {
	if c.BaselinePartitionYear != 0 {
		return c.BaselinePartitionYear
	}
	return time.Now().UTC().Year()
}

func validateIngestionConfig(cfg IngestionConfig) error {
	if cfg.MaxUploadBytes <= 0 {
		return errors.New("ingestion.maxUploadBytes must be positive")
	}
	if cfg.BatchSize <= 0 {
		return errors.New("ingestion.batchSize must be positive")
	}
	if cfg.MaxRowErrors <= 0 {
		return errors.New("ingestion.maxRowErrors must be positive")
	}
	if cfg.BaselinePartitionYear != 0 && (cfg.BaselinePartitionYear < 1990 || cfg.BaselinePartitionYear > 2400) {
		return errors.New("ingestion.baselinePartitionYear out of range")
	}
	return nil
}

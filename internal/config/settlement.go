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

// SettlementDefaults are the tunable knobs applied when the persisted
// settlement configuration row is first created, plus runtime behavior
// that should be adjustable without a redeploy.
type SettlementDefaults struct {
	SettlementAgeDays int           `mapstructure:"settlementAgeDays"`
	BatchSize         int           `mapstructure:"batchSize"`
	CronSchedule      string        `mapstructure:"cronSchedule"`
	WarmupAttempts    int           `mapstructure:"warmupAttempts"`
	WarmupBackoff     time.Duration `mapstructure:"warmupBackoff"`
	ClosingChunkSize  int           `mapstructure:"closingChunkSize"`
}

func DefaultSettlementDefaults() SettlementDefaults {
	return SettlementDefaults{
		SettlementAgeDays: 7,
		BatchSize:         1000,
		CronSchedule:      "0 3 * * *",
		WarmupAttempts:    3,
		WarmupBackoff:     2 * time.Second,
		ClosingChunkSize:  100,
	}
}

// SettlementDefaultsHolder exposes the current defaults and hot-reloads
// them when the mounted settlement.yml changes.
type SettlementDefaultsHolder struct {
	current atomic.Value // holds SettlementDefaults
}

func NewSettlementDefaultsHolder() (*SettlementDefaultsHolder, error) {
	v := viper.New()

	v.SetConfigName("settlement")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/bancanet/config")
	v.AddConfigPath("/etc/bancanet")
	v.AddConfigPath(".")

	v.SetEnvPrefix("BANCANET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultSettlementDefaults()
	v.SetDefault("settlement.settlementAgeDays", defaults.SettlementAgeDays)
	v.SetDefault("settlement.batchSize", defaults.BatchSize)
	v.SetDefault("settlement.cronSchedule", defaults.CronSchedule)
	v.SetDefault("settlement.warmupAttempts", defaults.WarmupAttempts)
	v.SetDefault("settlement.warmupBackoff", defaults.WarmupBackoff)
	v.SetDefault("settlement.closingChunkSize", defaults.ClosingChunkSize)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg SettlementDefaults
	if err := v.UnmarshalKey("settlement", &cfg); err != nil {
		return nil, err
	}
	if err := validateSettlementDefaults(cfg); err != nil {
		return nil, err
	}

	holder := &SettlementDefaultsHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated SettlementDefaults
		if err := v.UnmarshalKey("settlement", &updated); err != nil {
			log.Printf("[settlement-config] reload failed: %v", err)
			return
		}
		if err := validateSettlementDefaults(updated); err != nil {
			log.Printf("[settlement-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[settlement-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticSettlementDefaults wraps fixed defaults without any config
// file watching. Used by tests and one-shot tooling.
func NewStaticSettlementDefaults(d SettlementDefaults) *SettlementDefaultsHolder {
	holder := &SettlementDefaultsHolder{}
	holder.current.Store(d)
	return holder
}

func (h *SettlementDefaultsHolder) Get() SettlementDefaults {
	return h.current.Load().(SettlementDefaults)
}

func validateSettlementDefaults(cfg SettlementDefaults) error {
	if cfg.SettlementAgeDays < 0 {
		return errors.New("settlement.settlementAgeDays cannot be negative")
	}
	if cfg.BatchSize <= 0 {
		return errors.New("settlement.batchSize must be positive")
	}
	if cfg.ClosingChunkSize <= 0 {
		return errors.New("settlement.closingChunkSize must be positive")
	}
	return nil
}

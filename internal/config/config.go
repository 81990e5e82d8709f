// Package config loads run settings from an optional YAML file, GRANARY_*
// environment variables and bound command-line flags, in rising priority.
package config

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. GRANARY_YEARS.
const EnvPrefix = "GRANARY"

// Decider modes.
const (
	ModeSteward = "steward"
	ModeScript  = "script"
	ModePrompt  = "prompt"
)

// Config is everything a run needs.
type Config struct {
	Years   int           `mapstructure:"years"`
	Seed    int64         `mapstructure:"seed"` // 0 draws a fresh seed
	Market  MarketConfig  `mapstructure:"market"`
	Cities  []CityConfig  `mapstructure:"cities"`
	Decider DeciderConfig `mapstructure:"decider"`
	Log     LogConfig     `mapstructure:"log"`
	API     APIConfig     `mapstructure:"api"`
	Engine  EngineConfig  `mapstructure:"engine"`
	Entropy EntropyConfig `mapstructure:"entropy"`
}

// MarketConfig bounds the land market's opening price and inventory.
type MarketConfig struct {
	PriceMin float64 `mapstructure:"price_min"`
	PriceMax float64 `mapstructure:"price_max"`
	UnitsMin int     `mapstructure:"units_min"`
	UnitsMax int     `mapstructure:"units_max"`
}

// CityConfig names a city-state and bounds its opening holdings.
type CityConfig struct {
	Name          string  `mapstructure:"name"`
	PopulationMin int     `mapstructure:"population_min"`
	PopulationMax int     `mapstructure:"population_max"`
	AcresMin      int     `mapstructure:"acres_min"`
	AcresMax      int     `mapstructure:"acres_max"`
	BushelsMin    float64 `mapstructure:"bushels_min"`
	BushelsMax    float64 `mapstructure:"bushels_max"`
}

// DeciderConfig picks who makes the decisions.
type DeciderConfig struct {
	Mode   string `mapstructure:"mode"`
	Script string `mapstructure:"script"`
}

// LogConfig controls the logger. An empty File logs to stdout only.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// APIConfig configures the spectator API.
type APIConfig struct {
	Port      int      `mapstructure:"port"`
	RateLimit int      `mapstructure:"rate_limit"` // requests per minute per client
	Origins   []string `mapstructure:"origins"`
	RelayKey  string   `mapstructure:"relay_key"`
}

// EngineConfig paces the year loop.
type EngineConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"years":     "years",
	"seed":      "seed",
	"mode":      "decider.mode",
	"script":    "decider.script",
	"log-level": "log.level",
	"log-file":  "log.file",
	"port":      "api.port",
	"interval":  "engine.interval",
}

// EntropyConfig sources fresh seeds. Without a key seeds come from
// crypto/rand.
type EntropyConfig struct {
	RandomOrgKey string `mapstructure:"random_org_key"`
}

func defaultCities() []map[string]any {
	city := func(name string) map[string]any {
		return map[string]any{
			"name":           name,
			"population_min": 10,
			"population_max": 30,
			"acres_min":      10,
			"acres_max":      30,
			"bushels_min":    50,
			"bushels_max":    100,
		}
	}
	return []map[string]any{city("Sumer"), city("Asher")}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("years", 10)
	v.SetDefault("seed", 0)
	v.SetDefault("market.price_min", 10)
	v.SetDefault("market.price_max", 20)
	v.SetDefault("market.units_min", 100)
	v.SetDefault("market.units_max", 300)
	v.SetDefault("cities", defaultCities())
	v.SetDefault("decider.mode", ModeSteward)
	v.SetDefault("decider.script", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age", 28)
	v.SetDefault("log.compress", false)
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.rate_limit", 120)
	v.SetDefault("api.origins", []string{})
	v.SetDefault("api.relay_key", "")
	v.SetDefault("engine.interval", 0)
	v.SetDefault("entropy.random_org_key", "")
}

// Load reads the config file at path (skipped when empty), applies
// environment overrides and any flags bound from fs, and validates the
// result.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks ranges and the decider mode.
func (c *Config) Validate() error {
	var errs []error
	if c.Years <= 0 {
		errs = append(errs, fmt.Errorf("years must be positive, got %d", c.Years))
	}
	if c.Market.PriceMin <= 0 || c.Market.PriceMax < c.Market.PriceMin {
		errs = append(errs, fmt.Errorf("market price range [%g, %g] is invalid", c.Market.PriceMin, c.Market.PriceMax))
	}
	if !whole(c.Market.PriceMin, c.Market.PriceMax) {
		errs = append(errs, fmt.Errorf("market price range [%g, %g] must be whole numbers", c.Market.PriceMin, c.Market.PriceMax))
	}
	if c.Market.UnitsMin < 0 || c.Market.UnitsMax < c.Market.UnitsMin {
		errs = append(errs, fmt.Errorf("market units range [%d, %d] is invalid", c.Market.UnitsMin, c.Market.UnitsMax))
	}
	if len(c.Cities) == 0 {
		errs = append(errs, errors.New("at least one city-state is required"))
	}
	seen := make(map[string]bool, len(c.Cities))
	for _, city := range c.Cities {
		switch {
		case city.Name == "":
			errs = append(errs, errors.New("city-state name is required"))
		case seen[city.Name]:
			errs = append(errs, fmt.Errorf("city-state %s listed twice", city.Name))
		}
		seen[city.Name] = true
		if city.PopulationMin < 0 || city.PopulationMax < city.PopulationMin ||
			city.AcresMin < 0 || city.AcresMax < city.AcresMin ||
			city.BushelsMax < city.BushelsMin {
			errs = append(errs, fmt.Errorf("city-state %s has an invalid range", city.Name))
		}
		if !whole(city.BushelsMin, city.BushelsMax) {
			errs = append(errs, fmt.Errorf("city-state %s bushel range [%g, %g] must be whole numbers", city.Name, city.BushelsMin, city.BushelsMax))
		}
	}
	switch c.Decider.Mode {
	case ModeSteward, ModePrompt:
	case ModeScript:
		if c.Decider.Script == "" {
			errs = append(errs, errors.New("decider.script is required in script mode"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown decider mode %q", c.Decider.Mode))
	}
	if c.API.Port < 0 || c.API.Port > 65535 {
		errs = append(errs, fmt.Errorf("api port %d out of range", c.API.Port))
	}
	return errors.Join(errs...)
}

// whole reports whether every x is an integer. Start-up ranges are rolled
// as integers.
func whole(xs ...float64) bool {
	for _, x := range xs {
		if x != math.Trunc(x) {
			return false
		}
	}
	return true
}

package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// AppConfig holds configuration values parsed from environment variables.
type AppConfig struct {
	// Env is the runtime environment, either "dev" or "prod".
	Env string `koanf:"env" validate:"required,oneof=dev prod"`

	// LogLevel controls log verbosity: "debug", "info", "warn", or "error".
	LogLevel string `koanf:"log_level" validate:"required,oneof=debug info warn error"`

	// Listen is the host:port of the loopback bridge.
	Listen string `koanf:"listen" validate:"required,host_port"`

	// BlockingEnabled is the initial state of request blocking; the bridge
	// can toggle it at runtime.
	BlockingEnabled bool `koanf:"blocking_enabled"`

	// CacheSize is the decision cache capacity. Zero disables the cache.
	CacheSize int `koanf:"cache_size" validate:"gte=0"`

	// CacheEviction is what happens when the cache is full: drop the oldest
	// half ("half") or everything ("all").
	CacheEviction string `koanf:"cache_eviction" validate:"required,oneof=half all"`

	// FilterDir holds the on-disk copies of the filter sources.
	FilterDir string `koanf:"filter_dir" validate:"required"`

	// Remote sources. An empty URL disables that source.
	FilterConfigURL   string `koanf:"filter_config_url" validate:"omitempty,url"`
	FilterHostsURL    string `koanf:"filter_hosts_url" validate:"omitempty,url"`
	FilterEasyListURL string `koanf:"filter_easylist_url" validate:"omitempty,url"`

	FilterInterval      time.Duration `koanf:"filter_interval" validate:"gt=0"`
	FilterCheckEvery    time.Duration `koanf:"filter_check_every" validate:"gt=0"`
	FilterConfigTimeout time.Duration `koanf:"filter_config_timeout" validate:"gt=0"`
	FilterListsTimeout  time.Duration `koanf:"filter_lists_timeout" validate:"gt=0"`

	FilterMaxHosts    int `koanf:"filter_max_hosts" validate:"gte=1"`
	FilterMaxEasyList int `koanf:"filter_max_easylist" validate:"gte=1"`

	// FilterMaxDownload caps a single download, e.g. "16MB".
	FilterMaxDownload string `koanf:"filter_max_download" validate:"required,datasize"`

	// StatsDB is the bbolt file for lifetime totals. Empty keeps totals in memory.
	StatsDB    string        `koanf:"stats_db"`
	StatsFlush time.Duration `koanf:"stats_flush" validate:"gt=0"`

	// Extra entries appended to the built-in whitelist and ad-domain list.
	ExtraWhitelist []string `koanf:"extra_whitelist" validate:"dive,required"`
	ExtraAdDomains []string `koanf:"extra_ad_domains" validate:"dive,required"`
}

// MaxDownload returns FilterMaxDownload as a byte size. It is only valid
// after Load has validated the config.
func (c *AppConfig) MaxDownload() datasize.ByteSize {
	var size datasize.ByteSize
	_ = size.UnmarshalText([]byte(c.FilterMaxDownload))
	return size
}

// DEFAULT_APP_CONFIG defines the default application configuration.
var DEFAULT_APP_CONFIG = AppConfig{
	Env:                 "prod",
	LogLevel:            "info",
	Listen:              "127.0.0.1:8377",
	BlockingEnabled:     true,
	CacheSize:           1000,
	CacheEviction:       "half",
	FilterDir:           "/var/lib/adshield/filters",
	FilterConfigURL:     "https://raw.githubusercontent.com/AriaMahdrani/tekeli-browser-filters/main/youtube-filters.json",
	FilterHostsURL:      "https://raw.githubusercontent.com/StevenBlack/hosts/master/hosts",
	FilterEasyListURL:   "https://easylist.to/easylist/easylist.txt",
	FilterInterval:      24 * time.Hour,
	FilterCheckEvery:    time.Hour,
	FilterConfigTimeout: 10 * time.Second,
	FilterListsTimeout:  12 * time.Second,
	FilterMaxHosts:      50000,
	FilterMaxEasyList:   2500,
	FilterMaxDownload:   "16MB",
	StatsDB:             "/var/lib/adshield/stats.db",
	StatsFlush:          30 * time.Second,
	ExtraWhitelist:      []string{},
	ExtraAdDomains:      []string{},
}

const envPrefix = "ADBLOCK_"

// listKeys are split on spaces and commas when read from the environment.
var listKeys = map[string]bool{
	"extra_whitelist":  true,
	"extra_ad_domains": true,
}

// validHostPort accepts "host:port" with a non-empty host and a port in 1-65535.
func validHostPort(fl validator.FieldLevel) bool {
	host, port, err := net.SplitHostPort(fl.Field().String())
	if err != nil || host == "" || port == "" {
		return false
	}
	portNum, err := strconv.ParseUint(port, 10, 16)
	return err == nil && portNum > 0
}

// validDataSize accepts sizes such as "512KB" or "16MB".
func validDataSize(fl validator.FieldLevel) bool {
	var size datasize.ByteSize
	if err := size.UnmarshalText([]byte(fl.Field().String())); err != nil {
		return false
	}
	return size > 0
}

// envLoader loads environment variables with the prefix "ADBLOCK_" and can
// be mocked in tests.
var envLoader = func(k *koanf.Koanf) error {
	return k.Load(env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
			value = strings.TrimSpace(value)

			if listKeys[key] {
				parts := strings.FieldsFunc(value, func(r rune) bool {
					return r == ' ' || r == ','
				})
				return key, parts
			}
			return key, value
		},
	}), nil)
}

// defaultLoader loads DEFAULT_APP_CONFIG through the structs provider.
var defaultLoader = func(k *koanf.Koanf) error {
	return k.Load(structs.Provider(DEFAULT_APP_CONFIG, "koanf"), nil)
}

// registerValidation registers the "host_port" and "datasize" tags.
var registerValidation = func(v *validator.Validate) error {
	if err := v.RegisterValidation("host_port", validHostPort); err != nil {
		return err
	}
	return v.RegisterValidation("datasize", validDataSize)
}

// Load parses environment variables and returns an AppConfig instance.
// It applies default values and runs validation automatically.
func Load() (*AppConfig, error) {
	k := koanf.New(".")

	err := defaultLoader(k)
	if err != nil {
		return nil, fmt.Errorf("error loading default config: %w", err)
	}

	err = envLoader(k)
	if err != nil {
		return nil, fmt.Errorf("error loading env: %w", err)
	}

	var cfg AppConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	err = registerValidation(validate)
	if err != nil {
		return nil, fmt.Errorf("error registering validation: %w", err)
	}

	err = validate.Struct(&cfg)
	if err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return &cfg, nil
}

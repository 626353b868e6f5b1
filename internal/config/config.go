package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the process settings for the server and the solver.
type Config struct {
	Addr         string        `mapstructure:"addr"`
	RedisAddr    string        `mapstructure:"redis_addr"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
	BookPath     string        `mapstructure:"book_path"`
	JWTSecret    string        `mapstructure:"jwt_secret"`
	TokenTTL     time.Duration `mapstructure:"token_ttl"`
	OtlpEndpoint string        `mapstructure:"otlp_endpoint"`
	LogLevel     string        `mapstructure:"log_level"`
	Search       Search        `mapstructure:"search"`
}

// Search holds the engine options.
type Search struct {
	AlphaBeta     bool `mapstructure:"alpha_beta"`
	MaxDepth      int  `mapstructure:"max_depth"`
	DepthDiscount bool `mapstructure:"depth_discount"`
	ParallelRoot  bool `mapstructure:"parallel_root"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("addr", ":8080")
	v.SetDefault("redis_addr", "")
	v.SetDefault("cache_ttl", 24*time.Hour)
	v.SetDefault("book_path", "")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("token_ttl", 24*time.Hour)
	v.SetDefault("otlp_endpoint", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("search.alpha_beta", true)
	v.SetDefault("search.max_depth", 0)
	v.SetDefault("search.depth_discount", false)
	v.SetDefault("search.parallel_root", false)
}

// Load reads the configuration from TTT_ prefixed environment variables and,
// when path is not empty, from a config file. Nested keys use an underscore,
// so search.max_depth is TTT_SEARCH_MAX_DEPTH.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("TTT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if cfg.Search.MaxDepth < 0 {
		return nil, fmt.Errorf("search.max_depth must not be negative, got %d", cfg.Search.MaxDepth)
	}
	return &cfg, nil
}

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName          string
	AppEnv           string
	AppPort          string
	DatabaseURL      string
	RedisURL         string
	NATSURL          string
	ChannelBase      string
	JWTSecret        string
	InterestCacheTTL time.Duration
	InvestRateLimit  int
	CORSOrigins      string
	AccessLog        bool
	SweepInterval    time.Duration
	Engine           EngineConfig
}

// EngineConfig carries the evaluation and grading policy constants.
type EngineConfig struct {
	MinTokens            int
	MaxTokens            int
	TokenBudget          int
	MaxInvestments       int
	ReviewsPerEvaluator  int
	DistributionMode     string
	DistributionAttempts int
	EvaluationWindow     time.Duration
	TierPolicy           string
	HighThreshold        float64
	MedianThreshold      float64
	InterestDivisor      float64
	InterestBonusCap     float64
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("PEERINVEST")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "PeerInvest API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("database.url", "sqlite://peerinvest.db")
	v.SetDefault("channel.base", "peerinvest")
	v.SetDefault("interest.cache_ttl", "5m")
	v.SetDefault("invest.rate_limit", 20)
	v.SetDefault("http.cors_origins", "*")
	v.SetDefault("http.access_log", false)
	v.SetDefault("evaluation.sweep_interval", "1m")

	v.SetDefault("engine.min_tokens", 10)
	v.SetDefault("engine.max_tokens", 50)
	v.SetDefault("engine.token_budget", 100)
	v.SetDefault("engine.max_investments", 3)
	v.SetDefault("engine.reviews_per_evaluator", 3)
	v.SetDefault("engine.distribution_mode", "student")
	v.SetDefault("engine.distribution_attempts", 3)
	v.SetDefault("engine.evaluation_window", "168h")
	v.SetDefault("engine.tier_policy", "absolute")
	v.SetDefault("engine.high_threshold", 40.0)
	v.SetDefault("engine.median_threshold", 25.0)
	v.SetDefault("engine.interest_divisor", 100.0)
	v.SetDefault("engine.interest_bonus_cap", 0.20)

	ttl, err := time.ParseDuration(v.GetString("interest.cache_ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid interest cache ttl: %w", err)
	}

	sweep, err := time.ParseDuration(v.GetString("evaluation.sweep_interval"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid evaluation sweep interval: %w", err)
	}

	window, err := time.ParseDuration(v.GetString("engine.evaluation_window"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid evaluation window: %w", err)
	}

	cfg := Config{
		AppName:          v.GetString("app.name"),
		AppEnv:           v.GetString("app.env"),
		AppPort:          v.GetString("app.port"),
		DatabaseURL:      v.GetString("database.url"),
		RedisURL:         v.GetString("redis.url"),
		NATSURL:          v.GetString("nats.url"),
		ChannelBase:      v.GetString("channel.base"),
		JWTSecret:        v.GetString("jwt.secret"),
		InterestCacheTTL: ttl,
		InvestRateLimit:  v.GetInt("invest.rate_limit"),
		CORSOrigins:      v.GetString("http.cors_origins"),
		AccessLog:        v.GetBool("http.access_log"),
		SweepInterval:    sweep,
		Engine: EngineConfig{
			MinTokens:            v.GetInt("engine.min_tokens"),
			MaxTokens:            v.GetInt("engine.max_tokens"),
			TokenBudget:          v.GetInt("engine.token_budget"),
			MaxInvestments:       v.GetInt("engine.max_investments"),
			ReviewsPerEvaluator:  v.GetInt("engine.reviews_per_evaluator"),
			DistributionMode:     strings.ToLower(v.GetString("engine.distribution_mode")),
			DistributionAttempts: v.GetInt("engine.distribution_attempts"),
			EvaluationWindow:     window,
			TierPolicy:           strings.ToLower(v.GetString("engine.tier_policy")),
			HighThreshold:        v.GetFloat64("engine.high_threshold"),
			MedianThreshold:      v.GetFloat64("engine.median_threshold"),
			InterestDivisor:      v.GetFloat64("engine.interest_divisor"),
			InterestBonusCap:     v.GetFloat64("engine.interest_bonus_cap"),
		},
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if err := cfg.Engine.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (e EngineConfig) validate() error {
	if e.MinTokens <= 0 || e.MaxTokens < e.MinTokens {
		return fmt.Errorf("invalid token bounds [%d, %d]", e.MinTokens, e.MaxTokens)
	}
	if e.TokenBudget < e.MinTokens {
		return fmt.Errorf("token budget %d below minimum investment %d", e.TokenBudget, e.MinTokens)
	}
	if e.MaxInvestments <= 0 || e.ReviewsPerEvaluator <= 0 {
		return fmt.Errorf("investment cap and reviews per evaluator must be positive")
	}
	if e.DistributionMode != "student" && e.DistributionMode != "team" {
		return fmt.Errorf("unknown distribution mode %q", e.DistributionMode)
	}
	if e.DistributionAttempts <= 0 {
		return fmt.Errorf("distribution attempts must be positive")
	}
	return nil
}

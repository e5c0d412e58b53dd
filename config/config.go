// Package config loads the engine configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/Fusion/models"
)

// Config holds all application configuration. It implements
// models.ConfigurationProvider.
type Config struct {
	TwelveAPIKey string
	Symbols      []string
	LogLevel     string

	RequestTimeout int // seconds
	TickInterval   int // seconds between evaluation ticks
	FetchBars      int

	// Account risk profile.
	Equity          float64
	MaxRiskPerTrade float64
	MaxPositionSize float64

	// Sizing parameters.
	ATRStopMultiplier  float64
	TargetRatio        float64
	MinRiskReward      float64
	HighRiskMultiplier float64
	AnnualizationBars  float64

	// Fusion parameters.
	TechnicalWeight     float64
	MLWeight            float64
	DirectionThreshold  float64
	ManipulationDamping float64
	ConfirmTicks        int

	// Manipulation thresholds.
	VolumeSpikeRatio float64
	PriceMoveSigma   float64
	FakeoutWindow    int
	FakeoutMargin    float64

	Weights models.TimeframeMap[float64]

	// Optional integrations.
	DatabaseURL struct {
		Host, Port, User, Password, DBName, SSLMode string
	}
	TelegramToken  string
	TelegramChatID int64
	MetricsAddr    string
}

// Load initializes configuration from environment variables
func Load() (*Config, error) {
	// Load environment variables from .env file if present
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg(".env file not found, relying on actual environment variables")
	}

	var cfg Config

	cfg.TwelveAPIKey = os.Getenv("TWELVE_API_KEY")
	cfg.Symbols = splitList(getEnvWithDefault("SYMBOLS", "EUR/USD"))
	cfg.LogLevel = getEnvWithDefault("LOG_LEVEL", "info")

	cfg.RequestTimeout = getEnvIntWithDefault("REQUEST_TIMEOUT", 30)
	cfg.TickInterval = getEnvIntWithDefault("TICK_INTERVAL", 300)
	cfg.FetchBars = getEnvIntWithDefault("FETCH_BARS", 250)

	cfg.Equity = getEnvFloatWithDefault("EQUITY", 10000)
	cfg.MaxRiskPerTrade = getEnvFloatWithDefault("MAX_RISK_PER_TRADE", 0.01)
	cfg.MaxPositionSize = getEnvFloatWithDefault("MAX_POSITION_SIZE", 0.10)

	cfg.ATRStopMultiplier = getEnvFloatWithDefault("ATR_STOP_MULTIPLIER", 1.5)
	cfg.TargetRatio = getEnvFloatWithDefault("TARGET_RATIO", 2.5)
	cfg.MinRiskReward = getEnvFloatWithDefault("MIN_RISK_REWARD", 1.5)
	cfg.HighRiskMultiplier = getEnvFloatWithDefault("HIGH_RISK_MULTIPLIER", 0.5)
	cfg.AnnualizationBars = getEnvFloatWithDefault("ANNUALIZATION_BARS", 252)

	cfg.TechnicalWeight = getEnvFloatWithDefault("TECHNICAL_WEIGHT", 0.5)
	cfg.MLWeight = getEnvFloatWithDefault("ML_WEIGHT", 0.5)
	cfg.DirectionThreshold = getEnvFloatWithDefault("DIRECTION_THRESHOLD", 0.15)
	cfg.ManipulationDamping = getEnvFloatWithDefault("MANIPULATION_DAMPING", 0.3)
	cfg.ConfirmTicks = getEnvIntWithDefault("CONFIRM_TICKS", 2)

	cfg.VolumeSpikeRatio = getEnvFloatWithDefault("VOLUME_SPIKE_RATIO", 3.0)
	cfg.PriceMoveSigma = getEnvFloatWithDefault("PRICE_MOVE_SIGMA", 2.5)
	cfg.FakeoutWindow = getEnvIntWithDefault("FAKEOUT_WINDOW", 5)
	cfg.FakeoutMargin = getEnvFloatWithDefault("FAKEOUT_MARGIN", 0.001)

	cfg.Weights.Set(models.TimeframeM5, getEnvFloatWithDefault("WEIGHT_M5", 0.10))
	cfg.Weights.Set(models.TimeframeM15, getEnvFloatWithDefault("WEIGHT_M15", 0.15))
	cfg.Weights.Set(models.TimeframeH1, getEnvFloatWithDefault("WEIGHT_H1", 0.20))
	cfg.Weights.Set(models.TimeframeH4, getEnvFloatWithDefault("WEIGHT_H4", 0.25))
	cfg.Weights.Set(models.TimeframeD1, getEnvFloatWithDefault("WEIGHT_D1", 0.30))

	cfg.DatabaseURL.Host = os.Getenv("DB_HOST")
	cfg.DatabaseURL.Port = getEnvWithDefault("DB_PORT", "5432")
	cfg.DatabaseURL.User = os.Getenv("DB_USER")
	cfg.DatabaseURL.Password = os.Getenv("DB_PASSWORD")
	cfg.DatabaseURL.DBName = os.Getenv("DB_NAME")
	cfg.DatabaseURL.SSLMode = getEnvWithDefault("DB_SSLMODE", "disable")

	cfg.TelegramToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	cfg.TelegramChatID = getEnvInt64WithDefault("TELEGRAM_CHAT_ID", 0)
	cfg.MetricsAddr = getEnvWithDefault("METRICS_ADDR", ":9090")

	return &cfg, nil
}

// RiskProfile returns the account-level risk profile.
func (c *Config) RiskProfile() models.RiskProfile {
	return models.RiskProfile{
		Equity:          c.Equity,
		MaxRiskPerTrade: c.MaxRiskPerTrade,
		MaxPositionSize: c.MaxPositionSize,
	}
}

// RiskConfig returns the sizing parameters.
func (c *Config) RiskConfig() models.RiskConfig {
	return models.RiskConfig{
		ATRStopMultiplier:  c.ATRStopMultiplier,
		TargetRatio:        c.TargetRatio,
		MinRiskReward:      c.MinRiskReward,
		HighRiskMultiplier: c.HighRiskMultiplier,
		AnnualizationBars:  c.AnnualizationBars,
	}
}

// FusionConfig returns the fusion weights and thresholds.
func (c *Config) FusionConfig() models.FusionConfig {
	return models.FusionConfig{
		TechnicalWeight:     c.TechnicalWeight,
		MLWeight:            c.MLWeight,
		DirectionThreshold:  c.DirectionThreshold,
		ManipulationDamping: c.ManipulationDamping,
		ConfirmTicks:        c.ConfirmTicks,
	}
}

// ManipulationConfig returns the detector thresholds.
func (c *Config) ManipulationConfig() models.ManipulationConfig {
	return models.ManipulationConfig{
		VolumeSpikeRatio: c.VolumeSpikeRatio,
		PriceMoveSigma:   c.PriceMoveSigma,
		FakeoutWindow:    c.FakeoutWindow,
		FakeoutMargin:    c.FakeoutMargin,
	}
}

// TimeframeWeights returns the cross-timeframe importance weights.
func (c *Config) TimeframeWeights() models.TimeframeMap[float64] {
	return c.Weights
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Helper functions for environment variable handling
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64WithDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatWithDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

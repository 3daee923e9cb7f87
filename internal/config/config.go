package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Env  string
	Port string

	RedisURL  string
	RedisPass string
	RedisDB   int

	JWTSecret string

	// External trade bot that executes item transfers.
	TradeBotURL     string
	TradeBotTimeout time.Duration

	// Stake limits are in cents.
	CoinflipMinStake float64
	CoinflipMaxStake float64
	JackpotMinStake  float64
	JackpotMaxStake  float64

	// A coinflip joiner must stay within this fraction of the creator's stake.
	CoinflipStakeBand float64

	JackpotMaxPlayers int

	// Tickets issued per cent staked.
	TicketsPerUnit float64

	// Games stuck waiting for players past this age get cancelled.
	JoinTimeout time.Duration

	PayoutMaxAttempts uint64
	PayoutBackoff     time.Duration

	// Commitment pool sizing.
	PoolLowWater  int64
	PoolBatchSize int
}

func Load() (*Config, error) {
	cfg := &Config{
		Env:  getEnv("ENV", "development"),
		Port: getEnv("PORT", "8080"),

		RedisURL:  getEnv("REDIS_URL", "localhost:6379"),
		RedisPass: getEnv("REDIS_PASS", ""),
		RedisDB:   getEnvInt("REDIS_DB", 0),

		JWTSecret: getEnv("JWT_SECRET", ""),

		TradeBotURL:     getEnv("TRADE_BOT_URL", "http://localhost:9090"),
		TradeBotTimeout: getEnvDuration("TRADE_BOT_TIMEOUT", 15*time.Second),

		CoinflipMinStake: getEnvFloat("COINFLIP_MIN_STAKE", 100),    // $1.00
		CoinflipMaxStake: getEnvFloat("COINFLIP_MAX_STAKE", 100000), // $1000.00
		JackpotMinStake:  getEnvFloat("JACKPOT_MIN_STAKE", 100),
		JackpotMaxStake:  getEnvFloat("JACKPOT_MAX_STAKE", 100000),

		CoinflipStakeBand: getEnvFloat("COINFLIP_STAKE_BAND", 0.10),

		JackpotMaxPlayers: getEnvInt("JACKPOT_MAX_PLAYERS", 20),

		TicketsPerUnit: getEnvFloat("TICKETS_PER_UNIT", 100),

		JoinTimeout: getEnvDuration("JOIN_TIMEOUT", 10*time.Minute),

		PayoutMaxAttempts: uint64(getEnvInt("PAYOUT_MAX_ATTEMPTS", 5)),
		PayoutBackoff:     getEnvDuration("PAYOUT_BACKOFF", 2*time.Second),

		PoolLowWater:  int64(getEnvInt("POOL_LOW_WATER", 1000)),
		PoolBatchSize: getEnvInt("POOL_BATCH_SIZE", 10000),
	}

	if cfg.Env == "production" && cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required in production")
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "dev-secret-do-not-use-in-production"
	}
	if cfg.TicketsPerUnit <= 0 {
		return nil, fmt.Errorf("TICKETS_PER_UNIT must be positive, got %f", cfg.TicketsPerUnit)
	}
	if cfg.JackpotMaxPlayers < 2 {
		return nil, fmt.Errorf("JACKPOT_MAX_PLAYERS must be at least 2, got %d", cfg.JackpotMaxPlayers)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

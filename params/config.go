package params

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/uhyunpark/ordercache/pkg/app/core/ledger"
	"github.com/uhyunpark/ordercache/pkg/app/loadgen"
	"github.com/uhyunpark/ordercache/pkg/util"
)

type Cache struct {
	Strategy ledger.Strategy
	// VerifyInvariants re-checks the touched ledger after every mutation
	// and panics on a violation. Costs a full ledger scan per call.
	VerifyInvariants bool
}

type Log struct {
	Level string // debug|info|warn|error
	File  string // optional; logs are also written here when set
}

type Config struct {
	Cache Cache
	Log   Log
	Bench loadgen.Config
}

func Default() Config {
	return Config{
		Cache: Cache{
			Strategy:         ledger.Optimal,
			VerifyInvariants: false,
		},
		Log: Log{
			Level: "info",
		},
		Bench: loadgen.DefaultConfig(),
	}
}

// LoadFromEnv loads configuration from .env file (if exists) and environment variables
// Priority: ENV > .env file > defaults. Unparseable values keep the default.
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	if v := os.Getenv("ORDERCACHE_STRATEGY"); v != "" {
		if s, err := ledger.ParseStrategy(v); err == nil {
			cfg.Cache.Strategy = s
		}
	}
	if v := os.Getenv("ORDERCACHE_VERIFY"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Cache.VerifyInvariants = b
		}
	}

	cfg.Log.Level = strings.ToLower(getEnv("LOG_LEVEL", cfg.Log.Level))
	cfg.Log.File = getEnv("LOG_FILE", cfg.Log.File)

	if v := os.Getenv("BENCH_PROFILE"); v != "" {
		if p, err := loadgen.ParseProfile(v); err == nil {
			if p == loadgen.ProfileRandom {
				cfg.Bench = loadgen.HighLoadConfig()
			}
			cfg.Bench.Profile = p
		}
	}
	if v := os.Getenv("BENCH_ITERATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Bench.Iterations = n
		}
	}
	if v := os.Getenv("BENCH_CANCEL_PERCENT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Bench.CancelPercent = n
		}
	}
	if v := os.Getenv("BENCH_SEED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Bench.Seed = n
		}
	}

	return cfg
}

// Validate reports settings that LoadFromEnv accepted but cannot be used
func (c Config) Validate() error {
	var errs []error
	if _, err := util.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if err := c.Bench.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("bench: %w", err))
	}
	return errors.Join(errs...)
}

// getEnv returns environment variable value or default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

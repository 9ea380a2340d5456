package config

import (
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

type Config struct {
	HTTPAddr string

	MySQLDSN  string
	RedisAddr string
	RabbitURL string // empty disables event publishing

	TaxRatePercent        decimal.Decimal
	MemberDiscountPercent decimal.Decimal
	PointsPerCurrencyUnit int64

	CommitTimeout time.Duration
	WorkerCount   int
	QueueSize     int

	SeedOnStart bool
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getenvDecimal(key, def string) decimal.Decimal {
	if v := os.Getenv(key); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			return d
		}
	}
	return decimal.RequireFromString(def)
}

func Load() Config {
	return Config{
		HTTPAddr: getenv("POSENGINE_HTTP_ADDR", ":8080"),

		MySQLDSN:  getenv("POSENGINE_MYSQL_DSN", "root:root@tcp(localhost:3306)/posengine?parseTime=true"),
		RedisAddr: getenv("POSENGINE_REDIS_ADDR", "localhost:6379"),
		RabbitURL: getenv("POSENGINE_RABBIT_URL", ""),

		TaxRatePercent:        getenvDecimal("POSENGINE_TAX_RATE_PERCENT", "17"),
		MemberDiscountPercent: getenvDecimal("POSENGINE_MEMBER_DISCOUNT_PERCENT", "5"),
		PointsPerCurrencyUnit: int64(getenvInt("POSENGINE_POINTS_PER_UNIT", 1)),

		CommitTimeout: getenvDuration("POSENGINE_COMMIT_TIMEOUT", 5*time.Second),
		WorkerCount:   getenvInt("POSENGINE_WORKER_COUNT", 4),
		QueueSize:     getenvInt("POSENGINE_QUEUE_SIZE", 10000),

		SeedOnStart: getenv("POSENGINE_SEED", "false") == "true",
	}
}

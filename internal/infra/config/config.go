package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Storage profiles. The memory profile runs the full stack without external
// services; mongo requires MONGO_URI and, for event publication, KAFKA_BROKERS.
const (
	StorageMemory = "memory"
	StorageMongo  = "mongo"
)

// Payment provider profiles.
const (
	ProviderMemory      = "memory"
	ProviderMercadoPago = "mercadopago"
)

// Config aggregates application configuration values loaded from environment variables.
type Config struct {
	Env                 string
	HTTPAddr            string
	StorageMode         string
	MongoURI            string
	MongoDB             string
	KafkaBrokers        []string
	KafkaTopicPrefix    string
	IdempotencyTTL      time.Duration
	OutboxPollInterval  time.Duration
	RetryBackoff        []time.Duration
	PaymentProvider     string
	MPAccessToken       string
	ProviderCallTimeout time.Duration
	CaptureTimeout      time.Duration
	CompletionInterval  time.Duration
	RenterFeeBps        int64
	ListerFeeBps        int64
	CORSOrigins         []string
	ListingFixtures     string
}

// Load parses configuration from the current environment.
func Load() (Config, error) {
	cfg := Config{
		Env:              getEnv("APP_ENV", "dev"),
		HTTPAddr:         getEnv("HTTP_ADDR", ":8080"),
		StorageMode:      strings.ToLower(getEnv("STORAGE_MODE", StorageMemory)),
		MongoURI:         os.Getenv("MONGO_URI"),
		MongoDB:          getEnv("MONGO_DB", "rentify"),
		KafkaTopicPrefix: getEnv("KAFKA_TOPIC_PREFIX", ""),
		PaymentProvider:  strings.ToLower(getEnv("PAYMENT_PROVIDER", ProviderMemory)),
		MPAccessToken:    os.Getenv("MP_ACCESS_TOKEN"),
		ListingFixtures:  os.Getenv("LISTINGS_FIXTURES"),
	}
	brokers := getEnv("KAFKA_BROKERS", "")
	if brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	origins := getEnv("CORS_ORIGINS", "")
	if origins != "" {
		cfg.CORSOrigins = strings.Split(origins, ",")
	}

	idempotencyTTL, err := parseDurationEnv("IDEMP_TTL", 168*time.Hour)
	if err != nil {
		return Config{}, err
	}
	cfg.IdempotencyTTL = idempotencyTTL

	poll, err := parseDurationEnv("OUTBOX_POLL_INTERVAL", 500*time.Millisecond)
	if err != nil {
		return Config{}, err
	}
	cfg.OutboxPollInterval = poll

	callTimeout, err := parseDurationEnv("PROVIDER_CALL_TIMEOUT", 10*time.Second)
	if err != nil {
		return Config{}, err
	}
	cfg.ProviderCallTimeout = callTimeout

	captureTimeout, err := parseDurationEnv("CAPTURE_TIMEOUT", 15*time.Second)
	if err != nil {
		return Config{}, err
	}
	cfg.CaptureTimeout = captureTimeout

	sweep, err := parseDurationEnv("COMPLETION_SWEEP_INTERVAL", time.Hour)
	if err != nil {
		return Config{}, err
	}
	cfg.CompletionInterval = sweep

	renterBps, err := parseIntEnv("RENTER_FEE_BPS", 700)
	if err != nil {
		return Config{}, err
	}
	cfg.RenterFeeBps = renterBps

	listerBps, err := parseIntEnv("LISTER_FEE_BPS", 300)
	if err != nil {
		return Config{}, err
	}
	cfg.ListerFeeBps = listerBps

	retryStr := getEnv("RETRY_BACKOFF", "1s,5s,30s")
	for _, raw := range strings.Split(retryStr, ",") {
		val := strings.TrimSpace(raw)
		if val == "" {
			continue
		}
		d, err := time.ParseDuration(val)
		if err != nil {
			return Config{}, fmt.Errorf("invalid RETRY_BACKOFF component %q: %w", raw, err)
		}
		cfg.RetryBackoff = append(cfg.RetryBackoff, d)
	}

	switch cfg.StorageMode {
	case StorageMemory:
	case StorageMongo:
		if cfg.MongoURI == "" {
			return Config{}, fmt.Errorf("MONGO_URI is required when STORAGE_MODE=mongo")
		}
	default:
		return Config{}, fmt.Errorf("unknown STORAGE_MODE %q", cfg.StorageMode)
	}

	switch cfg.PaymentProvider {
	case ProviderMemory:
	case ProviderMercadoPago:
		if cfg.MPAccessToken == "" {
			return Config{}, fmt.Errorf("MP_ACCESS_TOKEN is required when PAYMENT_PROVIDER=mercadopago")
		}
	default:
		return Config{}, fmt.Errorf("unknown PAYMENT_PROVIDER %q", cfg.PaymentProvider)
	}

	if cfg.RenterFeeBps < 0 || cfg.ListerFeeBps < 0 {
		return Config{}, fmt.Errorf("fee basis points must not be negative")
	}
	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration: %w", key, err)
	}
	return d, nil
}

func parseIntEnv(key string, def int64) (int64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	var v int64
	if _, err := fmt.Sscanf(raw, "%d", &v); err != nil {
		return 0, fmt.Errorf("invalid %s integer: %q", key, raw)
	}
	return v, nil
}

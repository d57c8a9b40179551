package config

import (
	"os"
	"strconv"
	"time"
)

// Server captures process level configuration. FromEnv builds it from
// environment variables so main stays lean.
type Server struct {
	Addr          string
	JWTSigningKey string

	// Chain settings. ChainMode is "mock" (in-process simulated node) or
	// "real" (external RPC endpoint).
	ChainMode                 string
	ChainRPCURL               string
	IssuerRegistryAddress     string
	CredentialRegistryAddress string
	BenefitLedgerAddress      string
	ConfirmTimeout            time.Duration

	// Document store settings. Empty IPFSAPIURL selects the in-memory store.
	IPFSAPIURL string

	// Issuer identity and signing.
	IssuerDID     string
	SignMode      string
	IssuerKeyHex  string
	ChallengeTTL  time.Duration
	CredentialTTL time.Duration

	// Optional backing services; empty values select in-memory fallbacks.
	DatabaseURL  string
	RedisURL     string
	KafkaBrokers string
}

// Redis holds go-redis client tuning.
type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	cfg := Server{
		Addr:                      getEnv("IDVERSE_ADDR", ":8080"),
		JWTSigningKey:             getEnv("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		ChainMode:                 getEnv("CHAIN_MODE", "mock"),
		ChainRPCURL:               getEnv("CHAIN_RPC_URL", "http://127.0.0.1:8545"),
		IssuerRegistryAddress:     os.Getenv("ISSUER_REGISTRY_ADDRESS"),
		CredentialRegistryAddress: os.Getenv("CREDENTIAL_REGISTRY_ADDRESS"),
		BenefitLedgerAddress:      os.Getenv("BENEFIT_LEDGER_ADDRESS"),
		ConfirmTimeout:            getDuration("CHAIN_CONFIRM_TIMEOUT", 30*time.Second),
		IPFSAPIURL:                os.Getenv("IPFS_API_URL"),
		IssuerDID:                 getEnv("ISSUER_DID", "did:idverse:issuer"),
		SignMode:                  getEnv("SIGN_MODE", "ed25519"),
		IssuerKeyHex:              os.Getenv("ISSUER_KEY_HEX"),
		ChallengeTTL:              getDuration("CHALLENGE_TTL", 5*time.Minute),
		CredentialTTL:             getDuration("CREDENTIAL_TTL", 365*24*time.Hour),
		DatabaseURL:               os.Getenv("DATABASE_URL"),
		RedisURL:                  os.Getenv("REDIS_URL"),
		KafkaBrokers:              os.Getenv("KAFKA_BROKERS"),
	}
	return cfg
}

// RedisFromEnv builds Redis client settings with sane defaults.
func RedisFromEnv() Redis {
	return Redis{
		URL:          os.Getenv("REDIS_URL"),
		PoolSize:     getInt("REDIS_POOL_SIZE", 10),
		MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2),
		DialTimeout:  getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		ReadTimeout:  getDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		WriteTimeout: getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

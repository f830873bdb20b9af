package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration values
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Solana      SolanaConfig
	NOWPayments NOWPaymentsConfig
	Presale     PresaleConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port string
	Env  string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// URL returns the database connection URL
func (c DatabaseConfig) URL() string {
	return "postgres://" + c.User + ":" + c.Password + "@" + c.Host + ":" + strconv.Itoa(c.Port) + "/" + c.DBName + "?sslmode=" + c.SSLMode + "&prepare_threshold=0"
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	URL      string
	PASSWORD string
}

// SolanaConfig holds the chain adapter configuration
type SolanaConfig struct {
	RPCURL           string
	ProgramID        string
	TokenMint        string
	AdminKey         string // base58 operator private key, funds and signs credits
	AuthorizedSigner string // base58 private key for purchase authorizations
	USDTMint         string
	USDCMint         string
	ConfirmTimeout   time.Duration
}

// NOWPaymentsConfig holds the payment gateway configuration
type NOWPaymentsConfig struct {
	APIKey          string
	IPNSecret       string
	APIURL          string
	CallbackBaseURL string // public base URL for IPN callbacks; empty means invoices cannot settle
}

// PresaleConfig holds sale parameters
type PresaleConfig struct {
	StartDate         string // YYYY-MM-DD, day 1 of the schedule
	MinUSDAmount      float64
	MaxInvoicesPerDay int
	MaxActiveInvoices int
}

// StartTime parses the configured start date. Zero time when unset/invalid.
func (c PresaleConfig) StartTime() time.Time {
	t, err := time.Parse("2006-01-02", c.StartDate)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Load loads configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Env:  getEnv("SERVER_ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "presale"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			URL:      getEnv("REDIS_URL", "redis://localhost:6379"),
			PASSWORD: getEnv("REDIS_PASSWORD", ""),
		},
		Solana: SolanaConfig{
			RPCURL:           getEnv("SOLANA_RPC_URL", "https://api.mainnet-beta.solana.com"),
			ProgramID:        getEnv("SOLANA_PROGRAM_ID", ""),
			TokenMint:        getEnv("SOLANA_TOKEN_MINT", ""),
			AdminKey:         getEnv("SOLANA_ADMIN_KEY", ""),
			AuthorizedSigner: getEnv("SOLANA_AUTHORIZED_SIGNER_KEY", ""),
			USDTMint:         getEnv("SOLANA_USDT_MINT", "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB"),
			USDCMint:         getEnv("SOLANA_USDC_MINT", "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"),
			ConfirmTimeout:   getEnvAsDuration("SOLANA_CONFIRM_TIMEOUT", 60*time.Second),
		},
		NOWPayments: NOWPaymentsConfig{
			APIKey:          getEnv("NOWPAYMENTS_API_KEY", ""),
			IPNSecret:       getEnv("NOWPAYMENTS_IPN_SECRET", ""),
			APIURL:          getEnv("NOWPAYMENTS_API_URL", "https://api.nowpayments.io/v1"),
			CallbackBaseURL: getEnv("PUBLIC_CALLBACK_BASE_URL", ""),
		},
		Presale: PresaleConfig{
			StartDate:         getEnv("PRESALE_START_DATE", ""),
			MinUSDAmount:      getEnvAsFloat("PRESALE_MIN_USD", 10),
			MaxInvoicesPerDay: getEnvAsInt("PRESALE_MAX_INVOICES_PER_DAY", 20),
			MaxActiveInvoices: getEnvAsInt("PRESALE_MAX_ACTIVE_INVOICES", 5),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

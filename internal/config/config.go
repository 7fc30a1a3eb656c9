package config

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	ProfileStoreMemory   = "memory"
	ProfileStorePostgres = "postgres"
	ProfileStoreSQLite   = "sqlite"
)

type Config struct {
	Env       string
	Server    ServerConfig
	API       APIConfig
	Identity  IdentityConfig
	Session   SessionConfig
	Storage   StorageConfig
	Database  DatabaseConfig
	Market    MarketConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// APIConfig describes the remote optimization service.
type APIConfig struct {
	BaseURL string
	Timeout time.Duration
}

// IdentityConfig describes the hosted auth provider.
type IdentityConfig struct {
	BaseURL          string
	AnonKey          string
	ResetRedirectURL string
	Timeout          time.Duration
}

type SessionConfig struct {
	Secret       string
	Issuer       string
	TTL          time.Duration
	CookieName   string
	CookieSecure bool
	SealKey      []byte
}

type StorageConfig struct {
	ProfileStore string
	SQLitePath   string
	RedisURL     string
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
}

type MarketConfig struct {
	Enabled      bool
	PollInterval time.Duration
	Ticker       string
}

type RateLimitConfig struct {
	AuthPerMinute int
	AuthBurst     int
	APIPerMinute  int
	APIBurst      int
}

type CORSConfig struct {
	AllowedOrigins []string
}

// Load загружает конфигурацию приложения из окружения и .env.
func Load() (Config, error) {
	cfg := Config{}

	if err := loadEnv(); err != nil {
		return cfg, err
	}

	cfg.Env = getEnv("APP_ENV", "local")

	serverPort, err := parseIntEnv("SERVER_PORT", 8080)
	if err != nil {
		return cfg, err
	}

	readTimeout, err := parseDurationEnv("SERVER_READ_TIMEOUT", 5*time.Second)
	if err != nil {
		return cfg, err
	}

	// Optimization calls may take up to API_TIMEOUT, the write timeout must outlast it.
	writeTimeout, err := parseDurationEnv("SERVER_WRITE_TIMEOUT", 45*time.Second)
	if err != nil {
		return cfg, err
	}

	idleTimeout, err := parseDurationEnv("SERVER_IDLE_TIMEOUT", 60*time.Second)
	if err != nil {
		return cfg, err
	}

	cfg.Server = ServerConfig{
		Host:         getEnv("SERVER_HOST", "0.0.0.0"),
		Port:         serverPort,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	apiTimeout, err := parseDurationEnv("API_TIMEOUT", 30*time.Second)
	if err != nil {
		return cfg, err
	}

	cfg.API = APIConfig{
		BaseURL: getEnv("API_BASE_URL", "http://localhost:8000"),
		Timeout: apiTimeout,
	}

	identityTimeout, err := parseDurationEnv("AUTH_PROVIDER_TIMEOUT", 10*time.Second)
	if err != nil {
		return cfg, err
	}

	cfg.Identity = IdentityConfig{
		BaseURL:          getEnv("AUTH_PROVIDER_URL", ""),
		AnonKey:          getEnv("AUTH_PROVIDER_ANON_KEY", ""),
		ResetRedirectURL: getEnv("AUTH_RESET_REDIRECT_URL", "http://localhost:8080/auth/reset-password"),
		Timeout:          identityTimeout,
	}

	sessionTTL, err := parseDurationEnv("SESSION_TTL", 7*24*time.Hour)
	if err != nil {
		return cfg, err
	}

	cookieSecure, err := parseBoolEnv("SESSION_COOKIE_SECURE", false)
	if err != nil {
		return cfg, err
	}

	sealKey, err := parseKeyEnv("LINK_SEAL_KEY")
	if err != nil {
		return cfg, err
	}

	cfg.Session = SessionConfig{
		Secret:       getEnv("SESSION_SECRET", ""),
		Issuer:       getEnv("SESSION_ISSUER", "networth-optimizer"),
		TTL:          sessionTTL,
		CookieName:   getEnv("SESSION_COOKIE_NAME", "nwo_session"),
		CookieSecure: cookieSecure,
		SealKey:      sealKey,
	}

	cfg.Storage = StorageConfig{
		ProfileStore: strings.ToLower(getEnv("PROFILE_STORE", ProfileStoreMemory)),
		SQLitePath:   getEnv("SQLITE_PATH", "networth.db"),
		RedisURL:     getEnv("REDIS_URL", ""),
	}

	dbPort, err := parseIntEnv("DB_PORT", 5432)
	if err != nil {
		return cfg, err
	}

	maxOpenConns, err := parseIntEnv("DB_MAX_OPEN_CONNS", 10)
	if err != nil {
		return cfg, err
	}

	maxIdleConns, err := parseIntEnv("DB_MAX_IDLE_CONNS", 5)
	if err != nil {
		return cfg, err
	}

	connMaxIdleTime, err := parseDurationEnv("DB_CONN_MAX_IDLE_TIME", 5*time.Minute)
	if err != nil {
		return cfg, err
	}

	connMaxLifetime, err := parseDurationEnv("DB_CONN_MAX_LIFETIME", 30*time.Minute)
	if err != nil {
		return cfg, err
	}

	cfg.Database = DatabaseConfig{
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            dbPort,
		User:            getEnv("DB_USER", "networth"),
		Password:        getEnv("DB_PASSWORD", "networth"),
		Name:            getEnv("DB_NAME", "networth_optimizer"),
		SSLMode:         getEnv("DB_SSLMODE", "disable"),
		MaxOpenConns:    maxOpenConns,
		MaxIdleConns:    maxIdleConns,
		ConnMaxIdleTime: connMaxIdleTime,
		ConnMaxLifetime: connMaxLifetime,
	}

	marketEnabled, err := parseBoolEnv("MARKET_POLL_ENABLED", true)
	if err != nil {
		return cfg, err
	}

	marketInterval, err := parseDurationEnv("MARKET_POLL_INTERVAL", time.Minute)
	if err != nil {
		return cfg, err
	}

	cfg.Market = MarketConfig{
		Enabled:      marketEnabled,
		PollInterval: marketInterval,
		Ticker:       strings.ToUpper(getEnv("MARKET_TICKER", "VOO")),
	}

	authPerMinute, err := parseIntEnv("AUTH_RATE_LIMIT_PER_MINUTE", 30)
	if err != nil {
		return cfg, err
	}

	authBurst, err := parseIntEnv("AUTH_RATE_LIMIT_BURST", 10)
	if err != nil {
		return cfg, err
	}

	apiPerMinute, err := parseIntEnv("API_RATE_LIMIT_PER_MINUTE", 60)
	if err != nil {
		return cfg, err
	}

	apiBurst, err := parseIntEnv("API_RATE_LIMIT_BURST", 10)
	if err != nil {
		return cfg, err
	}

	cfg.RateLimit = RateLimitConfig{
		AuthPerMinute: authPerMinute,
		AuthBurst:     authBurst,
		APIPerMinute:  apiPerMinute,
		APIBurst:      apiBurst,
	}

	cfg.CORS = CORSConfig{
		AllowedOrigins: parseCSVEnv("CORS_ALLOWED_ORIGINS"),
	}

	if err := cfg.validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// DSN возвращает строку подключения к базе данных.
func (c DatabaseConfig) DSN() string {
	user := url.UserPassword(c.User, c.Password)
	dsn := url.URL{
		Scheme: "postgres",
		User:   user,
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   c.Name,
	}

	query := url.Values{}
	query.Set("sslmode", c.SSLMode)
	return dsn.String() + "?" + query.Encode()
}

func (c Config) validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("SERVER_PORT must be greater than 0")
	}

	if _, err := url.ParseRequestURI(c.API.BaseURL); err != nil {
		return fmt.Errorf("API_BASE_URL must be an absolute URL: %w", err)
	}

	if c.Identity.BaseURL == "" {
		return fmt.Errorf("AUTH_PROVIDER_URL is required")
	}

	if c.Identity.AnonKey == "" {
		return fmt.Errorf("AUTH_PROVIDER_ANON_KEY is required")
	}

	if c.Session.Secret == "" {
		return fmt.Errorf("SESSION_SECRET is required")
	}

	if c.Session.CookieName == "" {
		return fmt.Errorf("SESSION_COOKIE_NAME is required")
	}

	if len(c.Session.SealKey) != 32 {
		return fmt.Errorf("LINK_SEAL_KEY must decode to 32 bytes")
	}

	switch c.Storage.ProfileStore {
	case ProfileStoreMemory:
	case ProfileStoreSQLite:
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required")
		}
	case ProfileStorePostgres:
		if c.Database.Host == "" {
			return fmt.Errorf("DB_HOST is required")
		}

		if c.Database.User == "" {
			return fmt.Errorf("DB_USER is required")
		}

		if c.Database.Name == "" {
			return fmt.Errorf("DB_NAME is required")
		}

		if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
			return fmt.Errorf("DB_MAX_IDLE_CONNS cannot exceed DB_MAX_OPEN_CONNS")
		}
	default:
		return fmt.Errorf("PROFILE_STORE must be one of memory, postgres, sqlite")
	}

	if c.Market.Ticker == "" {
		return fmt.Errorf("MARKET_TICKER is required")
	}

	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}

	return fallback
}

func parseIntEnv(key string, fallback int) (int, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}

	if parsed <= 0 {
		return 0, fmt.Errorf("%s must be greater than 0", key)
	}

	return parsed, nil
}

func parseDurationEnv(key string, fallback time.Duration) (time.Duration, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}

	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", key, err)
	}

	if parsed <= 0 {
		return 0, fmt.Errorf("%s must be greater than 0", key)
	}

	return parsed, nil
}

func parseBoolEnv(key string, fallback bool) (bool, error) {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback, nil
	}

	parsed, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean: %w", key, err)
	}

	return parsed, nil
}

// parseKeyEnv reads a base64 encoded key. An unset variable yields nil.
func parseKeyEnv(key string) ([]byte, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return nil, nil
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(value))
	if err != nil {
		return nil, fmt.Errorf("%s must be base64: %w", key, err)
	}

	return decoded, nil
}

func parseCSVEnv(key string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}

	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.ToLower(strings.TrimSpace(part))
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}
	return out
}

func loadEnv() error {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}
		return nil
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load .env: %w", err)
	}

	return nil
}

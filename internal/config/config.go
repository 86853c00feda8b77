package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is read when present; every key can be overridden from the environment
const DefaultConfigPath = "config/config.yml"

type AppConfig struct {
	Port     int    `yaml:"port"`
	Env      string `yaml:"env"`
	LogLevel string `yaml:"log_level"`
}

type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type JWTConfig struct {
	Secret     string `yaml:"secret"`
	Issuer     string `yaml:"issuer"`
	AccessTTL  string `yaml:"access_ttl"`
	RefreshTTL string `yaml:"refresh_ttl"`
	MFATTL     string `yaml:"mfa_ttl"`
}

type SecurityConfig struct {
	BcryptRounds       int    `yaml:"bcrypt_rounds"`
	SessionMaxAge      string `yaml:"session_max_age"`
	EncryptionKey      string `yaml:"encryption_key"`
	LockoutMaxAttempts int    `yaml:"lockout_max_attempts"`
	LockoutDuration    string `yaml:"lockout_duration"`
	PasswordResetTTL   string `yaml:"password_reset_ttl"`
}

type MFAConfig struct {
	Issuer string `yaml:"issuer"`
	Window int    `yaml:"window"`
}

type RateLimitConfig struct {
	Requests int    `yaml:"requests"`
	Window   string `yaml:"window"`
}

type TwilioConfig struct {
	AccountSID string `yaml:"account_sid"`
	AuthToken  string `yaml:"auth_token"`
	FromNumber string `yaml:"from_number"`
}

type CasbinConfig struct {
	ModelPath string `yaml:"model_path"`
}

type ConfigFile struct {
	App       AppConfig       `yaml:"app"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	JWT       JWTConfig       `yaml:"jwt"`
	Security  SecurityConfig  `yaml:"security"`
	MFA       MFAConfig       `yaml:"mfa"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Twilio    TwilioConfig    `yaml:"twilio"`
	Casbin    CasbinConfig    `yaml:"casbin"`
}

type Config struct {
	Port     string
	Env      string
	LogLevel string

	DSN           string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret   string
	JWTIssuer   string
	AccessTTL   time.Duration
	RefreshTTL  time.Duration
	MFATokenTTL time.Duration

	BcryptRounds       int
	SessionMaxAge      time.Duration
	EncryptionKey      string
	LockoutMaxAttempts int
	LockoutDuration    time.Duration
	PasswordResetTTL   time.Duration

	MFAIssuer string
	MFAWindow int

	RateLimitRequests int
	RateLimitWindow   time.Duration

	TwilioSID   string
	TwilioToken string
	TwilioFrom  string

	CasbinModelPath string
}

// IsProduction reports whether the service runs with production settings
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// Load reads .env, the optional YAML file at DefaultConfigPath and the environment
func Load() (*Config, error) {
	_ = godotenv.Load()
	return LoadFrom(DefaultConfigPath)
}

// LoadFrom builds the configuration from the YAML file at path (if it exists) and the environment
func LoadFrom(path string) (*Config, error) {
	file, err := loadConfigFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	cfg := &Config{
		Port:     env("PORT", intOr(file.App.Port, "8080")),
		Env:      env("APP_ENV", strOr(file.App.Env, "development")),
		LogLevel: env("LOG_LEVEL", strOr(file.App.LogLevel, "info")),

		DSN:           env("DATABASE_DSN", file.Database.DSN),
		RedisAddr:     env("REDIS_ADDR", strOr(file.Redis.Addr, "localhost:6379")),
		RedisPassword: env("REDIS_PASSWORD", file.Redis.Password),

		JWTSecret: env("JWT_SECRET", file.JWT.Secret),
		JWTIssuer: env("JWT_ISSUER", strOr(file.JWT.Issuer, "crmauth")),

		EncryptionKey: env("ENCRYPTION_KEY", file.Security.EncryptionKey),
		MFAIssuer:     env("MFA_ISSUER", strOr(file.MFA.Issuer, "CRM")),

		TwilioSID:   env("TWILIO_ACCOUNT_SID", file.Twilio.AccountSID),
		TwilioToken: env("TWILIO_AUTH_TOKEN", file.Twilio.AuthToken),
		TwilioFrom:  env("TWILIO_FROM_NUMBER", file.Twilio.FromNumber),

		CasbinModelPath: env("CASBIN_MODEL_PATH", file.Casbin.ModelPath),
	}

	ints := []struct {
		key  string
		file int
		def  int
		dst  *int
	}{
		{"REDIS_DB", file.Redis.DB, 0, &cfg.RedisDB},
		{"BCRYPT_ROUNDS", file.Security.BcryptRounds, 12, &cfg.BcryptRounds},
		{"LOCKOUT_MAX_ATTEMPTS", file.Security.LockoutMaxAttempts, 5, &cfg.LockoutMaxAttempts},
		{"MFA_WINDOW", file.MFA.Window, 2, &cfg.MFAWindow},
		{"RATE_LIMIT_REQUESTS", file.RateLimit.Requests, 10, &cfg.RateLimitRequests},
	}
	for _, i := range ints {
		v, err := strconv.Atoi(env(i.key, intOr(i.file, strconv.Itoa(i.def))))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", i.key, err)
		}
		*i.dst = v
	}

	durations := []struct {
		key  string
		file string
		def  string
		dst  *time.Duration
	}{
		{"JWT_EXPIRES_IN", file.JWT.AccessTTL, "15m", &cfg.AccessTTL},
		{"JWT_REFRESH_EXPIRES_IN", file.JWT.RefreshTTL, "7d", &cfg.RefreshTTL},
		{"MFA_TOKEN_EXPIRES_IN", file.JWT.MFATTL, "5m", &cfg.MFATokenTTL},
		{"SESSION_MAX_AGE", file.Security.SessionMaxAge, "24h", &cfg.SessionMaxAge},
		{"LOCKOUT_DURATION", file.Security.LockoutDuration, "30m", &cfg.LockoutDuration},
		{"PASSWORD_RESET_TTL", file.Security.PasswordResetTTL, "1h", &cfg.PasswordResetTTL},
		{"RATE_LIMIT_WINDOW", file.RateLimit.Window, "1m", &cfg.RateLimitWindow},
	}
	for _, d := range durations {
		v, err := ParseDuration(env(d.key, strOr(d.file, d.def)))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", d.key, err)
		}
		*d.dst = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required secrets and sane bounds
func (c *Config) Validate() error {
	var problems []string
	if c.JWTSecret == "" {
		problems = append(problems, "JWT_SECRET is required")
	}
	if c.EncryptionKey == "" {
		problems = append(problems, "ENCRYPTION_KEY is required")
	}
	if c.BcryptRounds < 4 || c.BcryptRounds > 31 {
		problems = append(problems, "BCRYPT_ROUNDS must be between 4 and 31")
	}
	if c.LockoutMaxAttempts < 1 {
		problems = append(problems, "LOCKOUT_MAX_ATTEMPTS must be positive")
	}
	if c.MFAWindow < 0 {
		problems = append(problems, "MFA_WINDOW must not be negative")
	}
	if c.RateLimitRequests < 1 {
		problems = append(problems, "RATE_LIMIT_REQUESTS must be positive")
	}
	if len(problems) > 0 {
		return errors.New("invalid configuration: " + strings.Join(problems, "; "))
	}
	return nil
}

// ParseDuration accepts Go duration syntax, a "d" suffix for days, or a bare
// integer interpreted as milliseconds.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty duration")
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	if strings.HasSuffix(s, "d") {
		days, err := strconv.ParseFloat(strings.TrimSuffix(s, "d"), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid day duration %q: %w", s, err)
		}
		return time.Duration(days * float64(24*time.Hour)), nil
	}
	return time.ParseDuration(s)
}

func loadConfigFile(path string) (*ConfigFile, error) {
	var config ConfigFile

	bytes, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &config, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not read config file at %s: %w", path, err)
	}

	if err := yaml.Unmarshal(bytes, &config); err != nil {
		return nil, fmt.Errorf("could not parse config yaml: %w", err)
	}

	return &config, nil
}

func strOr(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

func intOr(v int, def string) string {
	if v != 0 {
		return strconv.Itoa(v)
	}
	return def
}

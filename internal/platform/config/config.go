package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultEnvFile      = ".env"
	defaultPort         = "8080"
	defaultReadTimeout  = 15 * time.Second
	defaultWriteTimeout = 30 * time.Second
	defaultIdleTimeout  = 120 * time.Second

	defaultEnvironment = "local"

	defaultMetroCity          = "dhaka"
	defaultMetroShippingFee   = 100
	defaultOutsideShippingFee = 200
	defaultCODRatePercent     = 1
	defaultOrderIDPrefix      = "SIA"

	defaultAdminSessionTTL = 12 * time.Hour
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server    ServerConfig
	Firestore FirestoreConfig
	Firebase  FirebaseConfig
	Redis     RedisConfig
	Security  SecurityConfig
	Store     StoreConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// FirestoreConfig stores database parameters.
type FirestoreConfig struct {
	ProjectID    string
	EmulatorHost string
}

// FirebaseConfig stores Firebase project settings used for admin sign-in.
type FirebaseConfig struct {
	ProjectID       string
	WebAPIKey       string
	CredentialsFile string
}

// RedisConfig configures the durable key-value cache backing carts and admin
// sessions.
type RedisConfig struct {
	URL          string
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// SecurityConfig groups environment-dependent security switches.
type SecurityConfig struct {
	// Environment is one of local, staging, production. The development
	// credential bypass for admin login is only honoured when it is local.
	Environment         string
	DevAdminEmail       string
	DevAdminPassword    string
	EnableDevAdminLogin bool
	AdminSessionTTL     time.Duration
}

// StoreConfig holds storefront pricing and order-numbering policy.
type StoreConfig struct {
	MetroCity          string
	MetroShippingFee   int64
	OutsideShippingFee int64
	CODRatePercent     int64
	OrderIDPrefix      string
}

// Load reads configuration from the environment, optionally seeded from a .env
// file. Environment variables always win over file values.
func Load() (Config, error) {
	fileValues, err := loadEnvFile(envFileName())
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) string {
		if value, ok := os.LookupEnv(key); ok {
			return strings.TrimSpace(value)
		}
		return strings.TrimSpace(fileValues[key])
	}

	cfg := Config{
		Server: ServerConfig{
			Port:         stringOr(lookup("PORT"), defaultPort),
			ReadTimeout:  durationOr(lookup("SERVER_READ_TIMEOUT"), defaultReadTimeout),
			WriteTimeout: durationOr(lookup("SERVER_WRITE_TIMEOUT"), defaultWriteTimeout),
			IdleTimeout:  durationOr(lookup("SERVER_IDLE_TIMEOUT"), defaultIdleTimeout),
		},
		Firestore: FirestoreConfig{
			ProjectID:    stringOr(lookup("FIRESTORE_PROJECT_ID"), lookup("GOOGLE_CLOUD_PROJECT")),
			EmulatorHost: lookup("FIRESTORE_EMULATOR_HOST"),
		},
		Firebase: FirebaseConfig{
			ProjectID:       stringOr(lookup("FIREBASE_PROJECT_ID"), lookup("GOOGLE_CLOUD_PROJECT")),
			WebAPIKey:       lookup("FIREBASE_WEB_API_KEY"),
			CredentialsFile: lookup("GOOGLE_APPLICATION_CREDENTIALS"),
		},
		Redis: RedisConfig{
			URL:          lookup("REDIS_URL"),
			DialTimeout:  durationOr(lookup("REDIS_DIAL_TIMEOUT"), 5*time.Second),
			ReadTimeout:  durationOr(lookup("REDIS_READ_TIMEOUT"), 3*time.Second),
			WriteTimeout: durationOr(lookup("REDIS_WRITE_TIMEOUT"), 3*time.Second),
		},
		Security: SecurityConfig{
			Environment:         strings.ToLower(stringOr(lookup("APP_ENV"), defaultEnvironment)),
			DevAdminEmail:       lookup("DEV_ADMIN_EMAIL"),
			DevAdminPassword:    lookup("DEV_ADMIN_PASSWORD"),
			EnableDevAdminLogin: boolOr(lookup("ENABLE_DEV_ADMIN_LOGIN"), false),
			AdminSessionTTL:     durationOr(lookup("ADMIN_SESSION_TTL"), defaultAdminSessionTTL),
		},
		Store: StoreConfig{
			MetroCity:          strings.ToLower(stringOr(lookup("STORE_METRO_CITY"), defaultMetroCity)),
			MetroShippingFee:   int64Or(lookup("STORE_METRO_SHIPPING_FEE"), defaultMetroShippingFee),
			OutsideShippingFee: int64Or(lookup("STORE_OUTSIDE_SHIPPING_FEE"), defaultOutsideShippingFee),
			CODRatePercent:     int64Or(lookup("STORE_COD_RATE_PERCENT"), defaultCODRatePercent),
			OrderIDPrefix:      stringOr(lookup("STORE_ORDER_ID_PREFIX"), defaultOrderIDPrefix),
		},
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	var problems []string

	if c.Server.Port == "" {
		problems = append(problems, "server port must not be empty")
	}
	if c.Store.MetroShippingFee < 0 || c.Store.OutsideShippingFee < 0 {
		problems = append(problems, "shipping fees must be non-negative")
	}
	if c.Store.CODRatePercent < 0 || c.Store.CODRatePercent > 100 {
		problems = append(problems, "cod rate percent must be between 0 and 100")
	}
	if c.Store.MetroCity == "" {
		problems = append(problems, "metro city must not be empty")
	}
	if c.Security.Environment != "local" && c.Security.EnableDevAdminLogin {
		problems = append(problems, "dev admin login may only be enabled in the local environment")
	}

	if len(problems) > 0 {
		return fmt.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// IsLocal reports whether the process runs in the local development environment.
func (c SecurityConfig) IsLocal() bool {
	return c.Environment == "local"
}

func envFileName() string {
	if name := strings.TrimSpace(os.Getenv("ENV_FILE")); name != "" {
		return name
	}
	return defaultEnvFile
}

// loadEnvFile parses KEY=VALUE lines. A missing file is not an error.
func loadEnvFile(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("config: open env file %s: %w", path, err)
	}
	defer file.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		value = strings.Trim(value, `"'`)
		if key != "" {
			values[key] = value
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: read env file %s: %w", path, err)
	}
	return values, nil
}

func stringOr(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}

func durationOr(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func int64Or(value string, fallback int64) int64 {
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func boolOr(value string, fallback bool) bool {
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

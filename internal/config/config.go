package config // package config loads application configuration from environment variables

import (
	"fmt"     // fmt formats configuration errors
	"log"     // log halts startup when configuration is unusable
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"time"    // time parses TTLs and intervals
)

// Store drivers accepted in STORE_DRIVER.
const (
	DriverMySQL  = "mysql"
	DriverMemory = "memory"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
	Env         string // application environment (e.g. "dev", "prod")
	Port        string // HTTP port to listen on
	LogLevel    string // zap level name (debug, info, warn, error)
	StoreDriver string // "mysql" or "memory"
	SeedDemo    bool   // fill the memory store with demo data at startup

	DBUser    string // database username
	DBPass    string // database password (optional)
	DBHost    string // database host address
	DBPort    string // database port number
	DBName    string // database name
	DBMigrate bool   // apply the embedded schema at startup

	JWTSecret string // secret used to verify access tokens

	BookingHoldTTL      time.Duration // how long a PENDING booking waits for payment
	SeatHoldTTL         time.Duration // lifetime of checkout holds
	ExpirySweepInterval time.Duration // period of the expiry worker

	RabbitMQURL string // broker for booking.paid notifications; empty disables them
}

// Load reads configuration values from environment variables and returns a
// Config.  Missing or malformed required values cause the program to exit
// with a fatal log message.
func Load() Config {
	cfg, err := load(os.LookupEnv)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	return cfg
}

type lookupFunc func(key string) (string, bool)

func load(lookup lookupFunc) (Config, error) {
	e := env{lookup: lookup}
	cfg := Config{
		Env:         e.must("APP_ENV"),                  // environment (dev/test/prod)
		Port:        e.must("APP_PORT"),                 // port to bind the HTTP server
		LogLevel:    e.str("LOG_LEVEL", "info"),         // logger level
		StoreDriver: e.str("STORE_DRIVER", DriverMySQL), // storage backend
		SeedDemo:    e.boolean("SEED_DEMO", false),      // demo data for the memory driver
		JWTSecret:   e.must("JWT_SECRET"),               // secret used for verifying JWTs

		RabbitMQURL:         e.str("RABBITMQ_URL", e.str("AMQP_URL", "")),
		BookingHoldTTL:      e.dur("BOOKING_HOLD_TTL", 15*time.Minute),
		SeatHoldTTL:         e.dur("SEAT_HOLD_TTL", 5*time.Minute),
		ExpirySweepInterval: e.dur("EXPIRY_SWEEP_INTERVAL", time.Minute),
	}
	switch cfg.StoreDriver {
	case DriverMySQL:
		cfg.DBUser = e.must("DB_USER")
		cfg.DBPass = e.str("DB_PASS", "") // empty password allowed
		cfg.DBHost = e.must("DB_HOST")
		cfg.DBPort = e.must("DB_PORT")
		cfg.DBName = e.must("DB_NAME")
		cfg.DBMigrate = e.boolean("DB_MIGRATE", true)
	case DriverMemory:
	default:
		e.fail("STORE_DRIVER must be %q or %q, got %q", DriverMySQL, DriverMemory, cfg.StoreDriver)
	}
	if cfg.BookingHoldTTL <= 0 || cfg.SeatHoldTTL <= 0 || cfg.ExpirySweepInterval <= 0 {
		e.fail("BOOKING_HOLD_TTL, SEAT_HOLD_TTL and EXPIRY_SWEEP_INTERVAL must be positive")
	}
	if e.err != nil {
		return Config{}, e.err
	}
	return cfg, nil
}

// env reads variables through lookup and remembers the first problem.
type env struct {
	lookup lookupFunc
	err    error
}

func (e *env) fail(format string, args ...interface{}) {
	if e.err == nil {
		e.err = fmt.Errorf(format, args...)
	}
}

// must retrieves the value of a required environment variable.
func (e *env) must(key string) string {
	v, ok := e.lookup(key)
	if !ok || v == "" {
		e.fail("missing required env var: %s", key)
	}
	return v
}

func (e *env) str(key, def string) string {
	if v, ok := e.lookup(key); ok && v != "" {
		return v
	}
	return def
}

func (e *env) dur(key string, def time.Duration) time.Duration {
	v, ok := e.lookup(key)
	if !ok || v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail("invalid duration for %s: %q", key, v)
		return def
	}
	return d
}

func (e *env) boolean(key string, def bool) bool {
	v, ok := e.lookup(key)
	if !ok || v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.fail("invalid bool for %s: %q", key, v)
		return def
	}
	return b
}

func (e *env) integer(key string, def int) int {
	v, ok := e.lookup(key)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail("invalid int for %s: %q", key, v)
		return def
	}
	return n
}

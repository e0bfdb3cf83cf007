package config // package config loads application configuration from environment variables

import (
    "log"     // log is used to report configuration errors and halt execution
    "os"      // os provides access to environment variables
    "strconv" // strconv converts strings to other types
    "time"    // time parses duration-valued variables

    "github.com/iliyamo/beacon-attendance/internal/beacon" // default deployment identifier
)

// Config holds all runtime configuration values. Each field corresponds
// to an environment variable. Protocol tunables (entropy floor, dedupe
// window, retention horizons) are configuration by design: they are
// operational knobs, not constants of the wire format.
type Config struct {
    Env            string // application environment (e.g. "dev", "prod")
    Port           string // HTTP port to listen on
    DBUser         string // database username
    DBPass         string // database password (optional)
    DBHost         string // database host address
    DBPort         string // database port number
    DBName         string // database name
    JWTSecret      string // secret used to sign JWTs
    AccessTTLMin   int    // access token time-to-live in minutes
    RefreshTTLDays int    // refresh token time-to-live in days
    BcryptCost     int    // bcrypt cost for password hashing

    BeaconIdentifier string        // deployment-wide 128-bit beacon identifier (UUID text)
    TokenMinEntropy  float64       // minimum realized entropy of a session token, in bits
    TokenMaxAttempts int           // generation retry budget (entropy rejects + collisions)
    SessionTTLMin    time.Duration // lower bound on a session's broadcast window
    SessionTTLMax    time.Duration // upper bound on a session's broadcast window
}

// Load reads configuration values from environment variables and
// returns a Config. Required variables are enforced by must() and
// missing values cause the program to exit with a fatal log message;
// protocol tunables fall back to defaults.
func Load() Config {
    return Config{
        Env:            must("APP_ENV"),
        Port:           must("APP_PORT"),
        DBUser:         must("DB_USER"),
        DBPass:         os.Getenv("DB_PASS"), // empty allowed
        DBHost:         must("DB_HOST"),
        DBPort:         must("DB_PORT"),
        DBName:         must("DB_NAME"),
        JWTSecret:      must("JWT_SECRET"),
        AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
        RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),
        BcryptCost:     mustInt("BCRYPT_COST"),

        BeaconIdentifier: envStr("BEACON_IDENTIFIER", beacon.DefaultIdentifier),
        TokenMinEntropy:  envFloat("TOKEN_MIN_ENTROPY_BITS", 36),
        TokenMaxAttempts: envInt("TOKEN_MAX_ATTEMPTS", 10),
        SessionTTLMin:    envDur("SESSION_TTL_MIN", time.Second),
        SessionTTLMax:    envDur("SESSION_TTL_MAX", 24*time.Hour),
    }
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatalf("missing required env var: %s", key)
    }
    return v
}

// mustInt is like must() but converts the retrieved string into an integer.
// If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
    s := must(key)
    n, err := strconv.Atoi(s)
    if err != nil {
        log.Fatalf("invalid int for %s: %q", key, s)
    }
    return n
}

func envFloat(k string, d float64) float64 {
    v := os.Getenv(k)
    if v == "" {
        return d
    }
    if f, err := strconv.ParseFloat(v, 64); err == nil {
        return f
    }
    return d
}

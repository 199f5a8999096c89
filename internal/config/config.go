// Package config provides functionality for managing configuration options
// for the application using command-line flags, a JSON config file, a .env
// file and environment variables.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers accepted by StoreDriver.
const (
	StorePostgres  = "postgres"
	StoreFirestore = "firestore"
)

// Options holds the configuration values for the server.
type Options struct {
	// Port defines the server's listening address (ip:port).
	Port string `json:"port"`

	// DatabaseDSN holds the PostgreSQL connection string.
	DatabaseDSN string `json:"database_dsn"`

	// Config is the path to the Config file.
	Config string `json:"-"`

	// EnvFile is the path to an optional .env file.
	EnvFile string `json:"-"`

	// StoreDriver selects the record store: "postgres" or "firestore".
	StoreDriver string `json:"store_driver"`

	// FirestoreProject is the GCP project used by the firestore driver.
	FirestoreProject string `json:"firestore_project"`

	// JWTSecret signs session tokens.
	JWTSecret string `json:"jwt_secret"`

	// SessionTTL is the lifetime of an issued session token.
	SessionTTL time.Duration `json:"-"`

	// CatalogURL is the base URL of the exercise catalog API.
	CatalogURL string `json:"catalog_url"`
	// CatalogHost is sent as x-rapidapi-host.
	CatalogHost string `json:"catalog_host"`
	// CatalogAPIKey is sent as x-rapidapi-key.
	CatalogAPIKey string `json:"catalog_api_key"`

	// AutoRedirect makes the gate answer blocked requests with a redirect
	// instead of a bare notice.
	AutoRedirect bool `json:"auto_redirect"`
	// RedirectAfter is the delay advertised to clients before the redirect.
	RedirectAfter time.Duration `json:"-"`

	// AllowedOrigins is the CORS allow list.
	AllowedOrigins []string `json:"allowed_origins"`

	// TLSCert and TLSKey enable HTTPS when both are set.
	TLSCert string `json:"tls_cert"`
	TLSKey  string `json:"tls_key"`

	// LogLevel is passed to the zap logger.
	LogLevel string `json:"log_level"`
}

// options holds the current configuration values.
var options = &Options{}

// init initializes command-line flags and sets default values.
func init() {
	flag.StringVar(&options.Port, "a", "localhost:8080", "run on ip:port server")
	flag.StringVar(&options.DatabaseDSN, "d", "", "db address")
	flag.StringVar(&options.Config, "config", "config.json", "path to config file")
	flag.StringVar(&options.Config, "c", "config.json", "path to config file (shorthand)")
	flag.StringVar(&options.EnvFile, "env", ".env", "path to .env file")
	flag.StringVar(&options.StoreDriver, "store", StorePostgres, "record store driver: postgres | firestore")
	flag.StringVar(&options.JWTSecret, "secret", "", "session token signing secret")
	flag.DurationVar(&options.SessionTTL, "session-ttl", 24*time.Hour, "session token lifetime")
	flag.StringVar(&options.CatalogURL, "catalog", "https://exercisedb.p.rapidapi.com", "exercise catalog base URL")
	flag.BoolVar(&options.AutoRedirect, "auto-redirect", false, "redirect unauthorized visitors automatically")
	flag.DurationVar(&options.RedirectAfter, "redirect-after", 3*time.Second, "delay before an automatic redirect")
	flag.StringVar(&options.TLSCert, "tls-cert", "", "path to server TLS certificate")
	flag.StringVar(&options.TLSKey, "tls-key", "", "path to server TLS key")
	flag.StringVar(&options.LogLevel, "log-level", "info", "log level")
}

// Parse parses the command-line flags, the config file, the .env file and
// environment variables, in that order of increasing precedence. It returns
// a pointer to the Options struct containing the parsed configuration values.
func Parse() *Options {
	flag.Parse()

	// Override flags with environment variables if set
	if configPath := os.Getenv("CONFIG"); configPath != "" {
		options.Config = configPath
	}

	if options.Config != "" {
		if _, err := os.Stat(options.Config); err == nil {
			data, err := os.ReadFile(options.Config)
			if err != nil {
				log.Fatalf("error while reading config file: %v", err)
			}
			if err := json.Unmarshal(data, options); err != nil {
				log.Fatalf("error while parsing config file: %v", err)
			}
		}
	}

	if options.EnvFile != "" {
		if err := godotenv.Load(options.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			log.Fatalf("error while loading env file: %v", err)
		}
	}

	applyEnv(options, os.Getenv)

	return options
}

// applyEnv overrides options with the environment variables that are set.
func applyEnv(o *Options, getenv func(string) string) {
	if v := getenv("SERVER_ADDRESS"); v != "" {
		o.Port = v
	}
	if v := getenv("DATABASE_DSN"); v != "" {
		o.DatabaseDSN = v
	}
	if v := getenv("STORE_DRIVER"); v != "" {
		o.StoreDriver = strings.ToLower(v)
	}
	if v := getenv("FIRESTORE_PROJECT"); v != "" {
		o.FirestoreProject = v
	}
	if v := getenv("JWT_SECRET"); v != "" {
		o.JWTSecret = v
	}
	if v := getenv("SESSION_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			o.SessionTTL = d
		}
	}
	if v := getenv("CATALOG_URL"); v != "" {
		o.CatalogURL = v
	}
	if v := getenv("CATALOG_HOST"); v != "" {
		o.CatalogHost = v
	}
	if v := getenv("CATALOG_API_KEY"); v != "" {
		o.CatalogAPIKey = v
	}
	if v := getenv("AUTO_REDIRECT"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			o.AutoRedirect = b
		}
	}
	if v := getenv("ALLOWED_ORIGINS"); v != "" {
		o.AllowedOrigins = strings.Split(v, ",")
	}
	if v := getenv("TLS_CERT"); v != "" {
		o.TLSCert = v
	}
	if v := getenv("TLS_KEY"); v != "" {
		o.TLSKey = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		o.LogLevel = v
	}
}

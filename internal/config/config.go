package config

import (
	"flag"
	"os"
	"strings"
)

// Backend names one Storage Gateway implementation.
const (
	BackendSnapshot = "snapshot"
	BackendSQLite   = "sqlite"
	BackendRemote   = "remote"
)

type Config struct {
	RunAddress    string
	ParserAddress string
	JWTSecret     string
	Backend       string
	DataDir       string
	RemoteAddress string
	AdminUsername string
	AdminPassword string
	// RegionHints maps address keywords to region names for orders whose
	// text carries no region.
	RegionHints map[string]string
}

func New() *Config {
	cfg := &Config{}
	var hints string

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "server address and port")
	flag.StringVar(&cfg.ParserAddress, "p", "http://localhost:8090", "text parser service address")
	flag.StringVar(&cfg.JWTSecret, "s", "super-secret-jwt-key", "jwt signing key")
	flag.StringVar(&cfg.Backend, "b", BackendSnapshot, "storage backend: snapshot, sqlite or remote")
	flag.StringVar(&cfg.DataDir, "d", "./data", "local data directory")
	flag.StringVar(&cfg.RemoteAddress, "r", "http://localhost:8091", "storage proxy address for the remote backend")
	flag.StringVar(&hints, "region-hints", "", "address keyword to region mappings, e.g. \"Elm St=North,Oak Ave=South\"")
	flag.Parse()

	cfg.RunAddress = getEnv("RUN_ADDRESS", cfg.RunAddress)
	cfg.ParserAddress = getEnv("PARSER_ADDRESS", cfg.ParserAddress)
	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.Backend = getEnv("STORAGE_BACKEND", cfg.Backend)
	cfg.DataDir = getEnv("DATA_DIR", cfg.DataDir)
	cfg.RemoteAddress = getEnv("REMOTE_STORE_ADDRESS", cfg.RemoteAddress)
	cfg.AdminUsername = getEnv("ADMIN_USERNAME", "admin")
	cfg.AdminPassword = getEnv("ADMIN_PASSWORD", "admin")
	cfg.RegionHints = ParseRegionHints(getEnv("REGION_HINTS", hints))

	return cfg
}

// ParseRegionHints parses "keyword=region" pairs separated by commas.
// Malformed pairs are skipped.
func ParseRegionHints(s string) map[string]string {
	hints := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		keyword, region, ok := strings.Cut(pair, "=")
		keyword = strings.TrimSpace(keyword)
		region = strings.TrimSpace(region)
		if !ok || keyword == "" || region == "" {
			continue
		}
		hints[keyword] = region
	}
	return hints
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// Package config centralizes how VaultGate reads environment variables and
// exposes them as strongly typed Go values.
package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dharsanguruparan/VaultGate/internal/signing"
)

// Config represents runtime configuration for the service. It is built once
// at startup and passed to every component that needs it; nothing reads the
// environment after Load returns.
type Config struct {
	Address string
	// PublicURL, when set, replaces scheme and host when the server rebuilds
	// the URL under verification (e.g. https://files.example.com).
	PublicURL  string
	TrustProxy bool

	Keys           *signing.KeyRegistry
	SigningVersion string
	SignedURLTTL   time.Duration
	AllowedIPs     *AllowList

	LogFormat    string
	LogVerbosity int

	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Region    string
	S3UseSSL    bool
	S3Bucket    string

	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	AuditWorkers  int
}

const (
	defaultAddress     = ":8080"
	defaultSignedTTL   = time.Hour
	defaultAllowedIPs  = "127.0.0.1"
	defaultWorkerCount = 2
	defaultLogFormat   = "default"
)

// Load reads configuration from environment variables falling back to
// defaults. Missing signing keys are a startup failure: there is no built-in
// secret to fall back to.
func Load() (*Config, error) {
	cfg, err := LoadWithoutKeys()
	if err != nil {
		return nil, err
	}
	keys, err := LoadKeys()
	if err != nil {
		return nil, err
	}
	cfg.Keys = keys
	cfg.SigningVersion = readEnv("VAULTGATE_SIGNING_VERSION", keys.Latest())
	if !keys.Has(cfg.SigningVersion) {
		return nil, fmt.Errorf("signing version %q is not a configured key version", cfg.SigningVersion)
	}
	return cfg, nil
}

// LoadWithoutKeys reads everything except the key registry. It serves
// processes that never sign or verify, such as the audit worker.
func LoadWithoutKeys() (*Config, error) {
	allow, err := ParseAllowList(readEnv("VAULTGATE_ALLOWED_IPS", defaultAllowedIPs))
	if err != nil {
		return nil, fmt.Errorf("parse VAULTGATE_ALLOWED_IPS: %w", err)
	}
	cfg := &Config{
		Address:       readEnv("VAULTGATE_ADDRESS", defaultAddress),
		PublicURL:     strings.TrimRight(readEnv("VAULTGATE_PUBLIC_URL", ""), "/"),
		TrustProxy:    parseBool("VAULTGATE_TRUST_PROXY", false),
		SignedURLTTL:  parseDuration("VAULTGATE_SIGNED_TTL", defaultSignedTTL),
		AllowedIPs:    allow,
		LogFormat:     readEnv("VAULTGATE_LOG_FORMAT", defaultLogFormat),
		LogVerbosity:  parseInt("VAULTGATE_LOG_V", 0),
		S3Endpoint:    readEnv("VAULTGATE_S3_ENDPOINT", ""),
		S3AccessKey:   readEnv("VAULTGATE_S3_ACCESS_KEY", ""),
		S3SecretKey:   readEnv("VAULTGATE_S3_SECRET_KEY", ""),
		S3Region:      readEnv("VAULTGATE_S3_REGION", "us-east-1"),
		S3UseSSL:      parseBool("VAULTGATE_S3_USE_SSL", false),
		S3Bucket:      readEnv("VAULTGATE_S3_BUCKET", "protected"),
		DatabaseURL:   readEnv("VAULTGATE_DATABASE_URL", ""),
		RedisAddr:     readEnv("VAULTGATE_REDIS_ADDR", ""),
		RedisPassword: readEnv("VAULTGATE_REDIS_PASSWORD", ""),
		RedisDB:       parseInt("VAULTGATE_REDIS_DB", 0),
		AuditWorkers:  parseInt("VAULTGATE_WORKERS", defaultWorkerCount),
	}
	if cfg.SignedURLTTL <= 0 {
		cfg.SignedURLTTL = defaultSignedTTL
	}
	if cfg.AuditWorkers <= 0 {
		cfg.AuditWorkers = defaultWorkerCount
	}
	return cfg, nil
}

func readEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func parseInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func parseBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return def
}

func parseDuration(key string, def time.Duration) time.Duration {
	// time.ParseDuration understands inputs like "5m" or "30s".
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return def
}

// AllowList holds the client addresses permitted to use signed URLs. A nil
// AllowList permits everyone.
type AllowList struct {
	prefixes []netip.Prefix
}

// ParseAllowList parses a comma separated list of IPs and CIDR ranges. "*"
// disables the check.
func ParseAllowList(s string) (*AllowList, error) {
	if strings.TrimSpace(s) == "*" {
		return nil, nil
	}
	list := &AllowList{}
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if strings.Contains(item, "/") {
			prefix, err := netip.ParsePrefix(item)
			if err != nil {
				return nil, err
			}
			list.prefixes = append(list.prefixes, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(item)
		if err != nil {
			return nil, err
		}
		list.prefixes = append(list.prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	if len(list.prefixes) == 0 {
		return nil, errors.New("empty allow list")
	}
	return list, nil
}

// Allowed reports whether addr, an IP with an optional port, is permitted.
func (l *AllowList) Allowed(addr string) bool {
	if l == nil {
		return true
	}
	ip, err := netip.ParseAddr(addr)
	if err != nil {
		ap, err := netip.ParseAddrPort(addr)
		if err != nil {
			return false
		}
		ip = ap.Addr()
	}
	ip = ip.Unmap()
	for _, p := range l.prefixes {
		if p.Contains(ip) {
			return true
		}
	}
	return false
}

package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/dharsanguruparan/VaultGate/internal/signing"
)

const secretKeyPrefix = "VAULTGATE_SECRET_KEY_"

// LoadKeys builds the key registry from, in increasing precedence, the INI
// file named by VAULTGATE_KEYS_FILE, the VAULTGATE_KEYS list and individual
// VAULTGATE_SECRET_KEY_<VERSION> variables.
func LoadKeys() (*signing.KeyRegistry, error) {
	keys := make(map[string][]byte)
	if path := readEnv("VAULTGATE_KEYS_FILE", ""); path != "" {
		fromFile, err := ReadKeysFile(path)
		if err != nil {
			return nil, err
		}
		for k, v := range fromFile {
			keys[k] = v
		}
	}
	if list := readEnv("VAULTGATE_KEYS", ""); list != "" {
		fromList, err := ParseKeyList(list)
		if err != nil {
			return nil, fmt.Errorf("parse VAULTGATE_KEYS: %w", err)
		}
		for k, v := range fromList {
			keys[k] = v
		}
	}
	for _, kv := range os.Environ() {
		name, value, _ := strings.Cut(kv, "=")
		if !strings.HasPrefix(name, secretKeyPrefix) || value == "" {
			continue
		}
		version := strings.ToLower(strings.TrimPrefix(name, secretKeyPrefix))
		keys[version] = []byte(value)
	}
	registry, err := signing.NewKeyRegistry(keys)
	if err != nil {
		return nil, fmt.Errorf("load signing keys: %w", err)
	}
	return registry, nil
}

// ParseKeyList parses "v1=secret,v2=secret". Secrets may contain '=' but not
// ','.
func ParseKeyList(s string) (map[string][]byte, error) {
	out := make(map[string][]byte)
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		version, secret, ok := strings.Cut(item, "=")
		if !ok || version == "" || secret == "" {
			return nil, fmt.Errorf("malformed key entry (want version=secret)")
		}
		out[strings.TrimSpace(version)] = []byte(secret)
	}
	return out, nil
}

// ReadKeysFile loads the [keys] section of an INI file, one "version = secret"
// per line.
func ReadKeysFile(path string) (map[string][]byte, error) {
	file, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("read keys file: %w", err)
	}
	section, err := file.GetSection("keys")
	if err != nil {
		return nil, fmt.Errorf("keys file %s: %w", path, err)
	}
	out := make(map[string][]byte)
	for _, key := range section.Keys() {
		out[key.Name()] = []byte(key.Value())
	}
	return out, nil
}

package signing

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrNoKeys is returned when a registry would be built without any key.
var ErrNoKeys = errors.New("no signing keys configured")

// KeyRegistry maps key-version identifiers to secret key material. It is
// built once at startup and never mutated afterwards, so a single registry can
// be shared by any number of goroutines without locking.
type KeyRegistry struct {
	secrets  map[string][]byte
	versions []string
}

// NewKeyRegistry copies keys into a new registry. Versions must be non-empty
// and free of URL delimiters; secrets must be non-empty.
func NewKeyRegistry(keys map[string][]byte) (*KeyRegistry, error) {
	if len(keys) == 0 {
		return nil, ErrNoKeys
	}
	r := &KeyRegistry{
		secrets:  make(map[string][]byte, len(keys)),
		versions: make([]string, 0, len(keys)),
	}
	for version, secret := range keys {
		if err := validateVersion(version); err != nil {
			return nil, err
		}
		if len(secret) == 0 {
			return nil, fmt.Errorf("key version %q: empty secret", version)
		}
		// Copy the secret so later changes to the caller's slice cannot leak in.
		r.secrets[version] = append([]byte(nil), secret...)
		r.versions = append(r.versions, version)
	}
	sort.Strings(r.versions)
	return r, nil
}

func validateVersion(version string) error {
	if version == "" {
		return errors.New("empty key version")
	}
	if strings.ContainsAny(version, "&=?# ") {
		return fmt.Errorf("key version %q: contains a reserved character", version)
	}
	return nil
}

// Secret returns the secret bound to version.
func (r *KeyRegistry) Secret(version string) ([]byte, bool) {
	secret, ok := r.secrets[version]
	return secret, ok
}

// Has reports whether version is registered.
func (r *KeyRegistry) Has(version string) bool {
	_, ok := r.secrets[version]
	return ok
}

// Versions returns the registered versions in sorted order.
func (r *KeyRegistry) Versions() []string {
	out := make([]string, len(r.versions))
	copy(out, r.versions)
	return out
}

// Latest returns the last version in sort order, the default for minting.
func (r *KeyRegistry) Latest() string {
	return r.versions[len(r.versions)-1]
}

// Len returns the number of registered versions.
func (r *KeyRegistry) Len() int { return len(r.versions) }

// String lists versions only; secret material is never formatted.
func (r *KeyRegistry) String() string {
	return "KeyRegistry[" + strings.Join(r.versions, ",") + "]"
}

// GoString keeps %#v from dumping the secrets map.
func (r *KeyRegistry) GoString() string { return r.String() }

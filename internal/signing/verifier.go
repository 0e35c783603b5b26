package signing

import (
	"crypto/hmac"
	"errors"
	"net/url"
	"strconv"
	"time"
)

// Reason identifies why a signed URL was rejected.
type Reason string

const (
	ReasonMissingParameters Reason = "missing_parameters"
	ReasonUnknownKeyVersion Reason = "unknown_key_version"
	ReasonInvalidExpiration Reason = "invalid_expiration"
	ReasonExpired           Reason = "expired"
	ReasonInvalidSignature  Reason = "invalid_signature"
)

// Rejection is the error returned for every refused URL. Tampering and a wrong
// secret both surface as ReasonInvalidSignature.
type Rejection struct {
	Reason  Reason
	message string
}

func (r *Rejection) Error() string { return r.message }

// Sentinel rejections; compare with errors.Is.
var (
	ErrMissingParameters = &Rejection{Reason: ReasonMissingParameters, message: "missing parameters"}
	ErrUnknownKeyVersion = &Rejection{Reason: ReasonUnknownKeyVersion, message: "invalid key version"}
	ErrInvalidExpiration = &Rejection{Reason: ReasonInvalidExpiration, message: "invalid expiration time"}
	ErrExpired           = &Rejection{Reason: ReasonExpired, message: "URL has expired"}
	ErrInvalidSignature  = &Rejection{Reason: ReasonInvalidSignature, message: "invalid signature"}
)

// ReasonOf returns the rejection reason carried by err, or "" if err is nil or
// not a rejection.
func ReasonOf(err error) Reason {
	var rej *Rejection
	if errors.As(err, &rej) {
		return rej.Reason
	}
	return ""
}

// Verifier checks signed URLs against a KeyRegistry. Like Signer it is
// stateless apart from the read-only registry.
type Verifier struct {
	keys *KeyRegistry
}

// NewVerifier creates a Verifier over keys.
func NewVerifier(keys *KeyRegistry) *Verifier {
	return &Verifier{keys: keys}
}

// Verify checks raw, the full URL of an incoming request, at time now. A nil
// error means access is granted and the authenticated payload is returned.
// Checks run in a fixed order and stop at the first failure: parameters,
// key version, expiration format, expiry, signature. A URL that is still valid
// at the exact second of expiry is accepted.
func (v *Verifier) Verify(raw string, now time.Time) (Payload, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Payload{}, ErrMissingParameters
	}
	q := u.Query()
	expires, version, signature := q.Get(ParamExpires), q.Get(ParamVersion), q.Get(ParamSignature)
	if expires == "" || version == "" || signature == "" {
		return Payload{}, ErrMissingParameters
	}
	secret, ok := v.keys.Secret(version)
	if !ok {
		return Payload{}, ErrUnknownKeyVersion
	}
	exp, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		return Payload{}, ErrInvalidExpiration
	}
	if now.Unix() > exp {
		return Payload{}, ErrExpired
	}
	prefix, _, ok := SplitSignature(raw)
	if !ok {
		return Payload{}, ErrInvalidSignature
	}
	p, err := ParseCanonical(prefix)
	if err != nil || p.Expires != exp || p.Version != version {
		return Payload{}, ErrInvalidSignature
	}
	// hmac.Equal runs in time independent of where the inputs first differ.
	if !hmac.Equal([]byte(computeMAC(secret, p.Canonical())), []byte(signature)) {
		return Payload{}, ErrInvalidSignature
	}
	return p, nil
}

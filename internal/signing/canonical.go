package signing

import (
	"errors"
	"net/url"
	"strconv"
	"strings"
)

// Query parameter names of the wire format, in the order they are appended.
const (
	ParamExpires   = "expires"
	ParamVersion   = "version"
	ParamSignature = "signature"
)

// signatureMarker is where verification cuts a signed URL: everything from the
// first occurrence onwards is excluded from the authenticated bytes.
const signatureMarker = "&" + ParamSignature + "="

var errNotCanonical = errors.New("not a canonical payload")

// Payload is the authenticated part of a signed URL.
type Payload struct {
	Resource string
	Expires  int64
	Version  string
}

// Canonical serializes the payload into the exact string covered by the MAC,
// e.g. http://host/resource?expires=1000000000&version=v1. Resources that
// already carry a query string get the fields appended with '&'.
func (p Payload) Canonical() string {
	var b strings.Builder
	b.Grow(len(p.Resource) + len(p.Version) + 32)
	b.WriteString(p.Resource)
	if strings.Contains(p.Resource, "?") {
		b.WriteByte('&')
	} else {
		b.WriteByte('?')
	}
	b.WriteString(ParamExpires)
	b.WriteByte('=')
	// strconv keeps the timestamp free of locale or float formatting.
	b.WriteString(strconv.FormatInt(p.Expires, 10))
	b.WriteByte('&')
	b.WriteString(ParamVersion)
	b.WriteByte('=')
	b.WriteString(url.QueryEscape(p.Version))
	return b.String()
}

// ParseCanonical is the inverse of Canonical. It only accepts strings that
// Canonical would produce byte-for-byte, so two different spellings of the
// same fields can never share a MAC.
func ParseCanonical(s string) (Payload, error) {
	idx := strings.LastIndex(s, ParamExpires+"=")
	if idx < 1 || (s[idx-1] != '?' && s[idx-1] != '&') {
		return Payload{}, errNotCanonical
	}
	fields := s[idx+len(ParamExpires)+1:]
	rawExpires, rawVersion, ok := strings.Cut(fields, "&"+ParamVersion+"=")
	if !ok || strings.Contains(rawVersion, "&") {
		return Payload{}, errNotCanonical
	}
	expires, err := strconv.ParseInt(rawExpires, 10, 64)
	if err != nil {
		return Payload{}, errNotCanonical
	}
	version, err := url.QueryUnescape(rawVersion)
	if err != nil {
		return Payload{}, errNotCanonical
	}
	p := Payload{Resource: s[:idx-1], Expires: expires, Version: version}
	if p.Canonical() != s {
		return Payload{}, errNotCanonical
	}
	return p, nil
}

// SplitSignature strips the signature from a signed URL. prefix is everything
// before the first "&signature=", signature is the value that follows up to
// the next '&'. ok is false when the marker is absent.
func SplitSignature(raw string) (prefix, signature string, ok bool) {
	idx := strings.Index(raw, signatureMarker)
	if idx < 0 {
		return raw, "", false
	}
	signature = raw[idx+len(signatureMarker):]
	if end := strings.IndexByte(signature, '&'); end >= 0 {
		signature = signature[:end]
	}
	return raw[:idx], signature, true
}

package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) *KeyRegistry {
	t.Helper()
	keys, err := NewKeyRegistry(map[string][]byte{
		"v1": []byte("s"),
		"v2": []byte("another-secret"),
	})
	require.NoError(t, err)
	return keys
}

func TestSign_KnownVector(t *testing.T) {
	signer := NewSigner(newTestRegistry(t))

	got, err := signer.Sign("http://host/resource", 1000000000, "v1")
	require.NoError(t, err)

	mac := hmac.New(sha256.New, []byte("s"))
	mac.Write([]byte("http://host/resource?expires=1000000000&version=v1"))
	want := "http://host/resource?expires=1000000000&version=v1&signature=" + hex.EncodeToString(mac.Sum(nil))
	assert.Equal(t, want, got)
	assert.True(t, strings.HasSuffix(got, "65ea2a1510483c45e3f99dc1ba8289de34f4d4265fe49659d6b965a834479aee"))
}

func TestSign_Errors(t *testing.T) {
	signer := NewSigner(newTestRegistry(t))

	tests := []struct {
		name     string
		resource string
		version  string
		want     error
	}{
		{"unknown version", "http://host/resource", "v9", ErrUnknownKeyVersion},
		{"empty resource", "", "v1", ErrInvalidResource},
		{"existing signature", "http://host/resource?signature=abc", "v1", ErrInvalidResource},
		{"signature marker in path", "http://host/objects/a&signature=b", "v1", ErrInvalidResource},
		{"existing expires", "http://host/resource?expires=5", "v1", ErrInvalidResource},
		{"fragment", "http://host/resource#top", "v1", ErrInvalidResource},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := signer.Sign(tt.resource, 1000000000, tt.version)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSign_RoundTripResourceShapes(t *testing.T) {
	keys := newTestRegistry(t)
	signer, verifier := NewSigner(keys), NewVerifier(keys)

	for _, resource := range []string{
		"http://host/resource?a=1",
		"http://host/resource?",
		"http://host/expires=5/resource",
		"/relative/path",
		"http://host/resource?q=%26signature%3D",
	} {
		t.Run(resource, func(t *testing.T) {
			signed, err := signer.Sign(resource, 1000, "v1")
			require.NoError(t, err)
			_, err = verifier.Verify(signed, time.Unix(1000, 0))
			assert.NoError(t, err)
		})
	}
}

func TestVerify_ConcreteScenario(t *testing.T) {
	keys := newTestRegistry(t)
	signed, err := NewSigner(keys).Sign("http://host/resource", 1000000000, "v1")
	require.NoError(t, err)
	verifier := NewVerifier(keys)

	p, err := verifier.Verify(signed, time.Unix(999999999, 0))
	require.NoError(t, err)
	assert.Equal(t, Payload{Resource: "http://host/resource", Expires: 1000000000, Version: "v1"}, p)

	_, err = verifier.Verify(signed, time.Unix(1000000001, 0))
	assert.ErrorIs(t, err, ErrExpired)

	flipped := signed[:len(signed)-1] + "f"
	_, err = verifier.Verify(flipped, time.Unix(999999999, 0))
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerify_ExpiryBoundary(t *testing.T) {
	keys := newTestRegistry(t)
	signed, err := NewSigner(keys).Sign("http://host/resource", 1000000000, "v2")
	require.NoError(t, err)
	verifier := NewVerifier(keys)

	_, err = verifier.Verify(signed, time.Unix(1000000000, 0))
	assert.NoError(t, err, "now == expires must still be valid")

	_, err = verifier.Verify(signed, time.Unix(1000000000, 999))
	assert.NoError(t, err, "sub-second precision is ignored")

	_, err = verifier.Verify(signed, time.Unix(1000000001, 0))
	assert.ErrorIs(t, err, ErrExpired)
}

func TestVerify_RejectionOrder(t *testing.T) {
	keys := newTestRegistry(t)
	verifier := NewVerifier(keys)
	now := time.Unix(2000000000, 0)

	tests := []struct {
		name string
		raw  string
		want error
	}{
		{
			"missing version beats expiry and signature",
			"http://host/resource?expires=1&signature=00",
			ErrMissingParameters,
		},
		{
			"missing signature",
			"http://host/resource?expires=1&version=v1",
			ErrMissingParameters,
		},
		{
			"empty expires",
			"http://host/resource?expires=&version=v1&signature=00",
			ErrMissingParameters,
		},
		{
			"unparseable url",
			"http://host/%zz?expires=1&version=v1&signature=00",
			ErrMissingParameters,
		},
		{
			"unknown version beats bad expiration",
			"http://host/resource?expires=soon&version=v9&signature=00",
			ErrUnknownKeyVersion,
		},
		{
			"bad expiration beats expiry",
			"http://host/resource?expires=soon&version=v1&signature=00",
			ErrInvalidExpiration,
		},
		{
			"expired beats bad signature",
			"http://host/resource?expires=1&version=v1&signature=00",
			ErrExpired,
		},
		{
			"bad signature",
			"http://host/resource?expires=3000000000&version=v1&signature=00",
			ErrInvalidSignature,
		},
		{
			"signature not last and not after an ampersand",
			"http://host/resource?signature=00&expires=3000000000&version=v1",
			ErrInvalidSignature,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := verifier.Verify(tt.raw, now)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, tt.want.(*Rejection).Reason, ReasonOf(err))
		})
	}
}

func TestVerify_AlteredVersion(t *testing.T) {
	keys := newTestRegistry(t)
	signed, err := NewSigner(keys).Sign("http://host/resource", 3000000000, "v1")
	require.NoError(t, err)
	verifier := NewVerifier(keys)
	now := time.Unix(0, 0)

	_, err = verifier.Verify(strings.Replace(signed, "version=v1", "version=v7", 1), now)
	assert.ErrorIs(t, err, ErrUnknownKeyVersion)

	_, err = verifier.Verify(strings.Replace(signed, "version=v1", "version=v2", 1), now)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerify_TamperSensitivity(t *testing.T) {
	keys := newTestRegistry(t)
	const resource = "http://host/resource/data.bin"
	signed, err := NewSigner(keys).Sign(resource, 3000000000, "v1")
	require.NoError(t, err)
	verifier := NewVerifier(keys)
	now := time.Unix(0, 0)

	replace := func(s string, i int, b byte) string {
		return s[:i] + string(b) + s[i+1:]
	}

	t.Run("resource", func(t *testing.T) {
		for i := 0; i < len(resource); i++ {
			b := byte('x')
			if signed[i] == 'x' {
				b = 'y'
			}
			_, err := verifier.Verify(replace(signed, i, b), now)
			assert.ErrorIs(t, err, ErrInvalidSignature, "byte %d", i)
		}
	})

	t.Run("expiration", func(t *testing.T) {
		start := strings.Index(signed, "expires=") + len("expires=")
		for i := start; i < start+len("3000000000"); i++ {
			b := byte('4')
			if signed[i] == '4' {
				b = '5'
			}
			_, err := verifier.Verify(replace(signed, i, b), now)
			assert.ErrorIs(t, err, ErrInvalidSignature, "byte %d", i)
		}
	})

	t.Run("signature", func(t *testing.T) {
		start := strings.Index(signed, "signature=") + len("signature=")
		for i := start; i < len(signed); i++ {
			b := byte('0')
			if signed[i] == '0' {
				b = '1'
			}
			_, err := verifier.Verify(replace(signed, i, b), now)
			assert.ErrorIs(t, err, ErrInvalidSignature, "byte %d", i)
		}
	})

	t.Run("non-canonical expiration", func(t *testing.T) {
		padded := strings.Replace(signed, "expires=3000000000", "expires=03000000000", 1)
		_, err := verifier.Verify(padded, now)
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other, err := NewKeyRegistry(map[string][]byte{"v1": []byte("not-s")})
		require.NoError(t, err)
		_, err = NewVerifier(other).Verify(signed, now)
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})
}

func TestVerify_Deterministic(t *testing.T) {
	keys := newTestRegistry(t)
	signed, err := NewSigner(keys).Sign("http://host/resource", 1000000000, "v1")
	require.NoError(t, err)
	verifier := NewVerifier(keys)

	for _, now := range []int64{999999999, 1000000001} {
		_, first := verifier.Verify(signed, time.Unix(now, 0))
		for i := 0; i < 5; i++ {
			_, again := verifier.Verify(signed, time.Unix(now, 0))
			assert.Equal(t, first, again)
		}
	}
}

func TestVerify_ExtraTrailingParameters(t *testing.T) {
	keys := newTestRegistry(t)
	signed, err := NewSigner(keys).Sign("http://host/resource", 3000000000, "v2")
	require.NoError(t, err)

	_, err = NewVerifier(keys).Verify(signed+"&download=1", time.Unix(0, 0))
	assert.NoError(t, err, "everything after the signature is stripped")
}

func TestSignTTL(t *testing.T) {
	keys := newTestRegistry(t)
	now := time.Unix(1700000000, 0)
	signed, err := NewSigner(keys).SignTTL("http://host/resource", "v2", now, time.Hour)
	require.NoError(t, err)

	p, err := NewVerifier(keys).Verify(signed, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1700003600), p.Expires)
}

func TestCanonical_RoundTrip(t *testing.T) {
	tests := []Payload{
		{Resource: "http://host/resource", Expires: 1000000000, Version: "v1"},
		{Resource: "http://host/resource?a=1&b=2", Expires: 42, Version: "2024-01"},
		{Resource: "/relative/path", Expires: -5, Version: "k.v3"},
		{Resource: "http://host/resource", Expires: 0, Version: "ünï"},
	}
	for _, p := range tests {
		t.Run(p.Canonical(), func(t *testing.T) {
			signed, err := NewSigner(mustRegistry(t, p.Version)).SignPayload(p)
			require.NoError(t, err)

			prefix, _, ok := SplitSignature(signed)
			require.True(t, ok)
			assert.Equal(t, p.Canonical(), prefix)

			parsed, err := ParseCanonical(prefix)
			require.NoError(t, err)
			assert.Equal(t, p, parsed)
		})
	}
}

func TestCanonical_ExistingQuery(t *testing.T) {
	p := Payload{Resource: "http://host/resource?a=1", Expires: 7, Version: "v1"}
	assert.Equal(t, "http://host/resource?a=1&expires=7&version=v1", p.Canonical())
}

func TestParseCanonical_Rejects(t *testing.T) {
	for _, s := range []string{
		"",
		"http://host/resource",
		"expires=1&version=v1",
		"http://host/resource?expires=01&version=v1",
		"http://host/resource?expires=1&version=v1&x=2",
		"http://host/resource?expires=x&version=v1",
		"http://host/resource?a=1?expires=1&version=v1",
	} {
		_, err := ParseCanonical(s)
		assert.Error(t, err, s)
	}
}

func TestSplitSignature(t *testing.T) {
	prefix, sig, ok := SplitSignature("http://h/r?expires=1&version=v1&signature=ab&signature=cd")
	require.True(t, ok)
	assert.Equal(t, "http://h/r?expires=1&version=v1", prefix)
	assert.Equal(t, "ab", sig)

	_, _, ok = SplitSignature("http://h/r?signature=ab")
	assert.False(t, ok)
}

func TestKeyRegistry(t *testing.T) {
	src := map[string][]byte{"v2": []byte("two"), "v1": []byte("one")}
	keys, err := NewKeyRegistry(src)
	require.NoError(t, err)

	src["v1"][0] = 'X'
	secret, ok := keys.Secret("v1")
	require.True(t, ok)
	assert.Equal(t, []byte("one"), secret)

	assert.Equal(t, []string{"v1", "v2"}, keys.Versions())
	assert.Equal(t, "v2", keys.Latest())
	assert.Equal(t, 2, keys.Len())
	assert.True(t, keys.Has("v2"))
	assert.False(t, keys.Has("v3"))
	assert.NotContains(t, keys.String(), "one")
	assert.NotContains(t, keys.GoString(), "two")
}

func TestKeyRegistry_Invalid(t *testing.T) {
	_, err := NewKeyRegistry(nil)
	assert.ErrorIs(t, err, ErrNoKeys)

	for name, keys := range map[string]map[string][]byte{
		"empty secret":  {"v1": nil},
		"empty version": {"": []byte("s")},
		"delimiter":     {"v1&x": []byte("s")},
		"equals":        {"v=1": []byte("s")},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := NewKeyRegistry(keys)
			assert.Error(t, err)
		})
	}
}

func mustRegistry(t *testing.T, version string) *KeyRegistry {
	t.Helper()
	keys, err := NewKeyRegistry(map[string][]byte{version: []byte("secret")})
	require.NoError(t, err)
	return keys
}

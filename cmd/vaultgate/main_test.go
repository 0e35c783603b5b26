package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndVerify(t *testing.T) {
	t.Setenv("VAULTGATE_KEYS", "v1=s,v2=t")

	var out bytes.Buffer
	err := run(context.Background(), []string{"sign", "--version", "v1", "--expires", "1000000000", "http://host/resource"}, &out)
	require.NoError(t, err)
	signed := strings.TrimSpace(out.String())
	assert.Equal(t, "http://host/resource?expires=1000000000&version=v1&signature=65ea2a1510483c45e3f99dc1ba8289de34f4d4265fe49659d6b965a834479aee", signed)

	out.Reset()
	err = run(context.Background(), []string{"verify", "--now", "999999999", signed}, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "ok: http://host/resource valid until 2001-09-09T01:46:40Z (key v1)")

	err = run(context.Background(), []string{"verify", "--now", "1000000001", signed}, &out)
	assert.ErrorContains(t, err, "rejected (expired)")
}

func TestSign_DefaultsToSigningVersion(t *testing.T) {
	t.Setenv("VAULTGATE_KEYS", "v1=s,v2=t")

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"sign", "http://host/resource"}, &out))
	assert.Contains(t, out.String(), "&version=v2&signature=")
}

func TestSign_UnknownVersion(t *testing.T) {
	t.Setenv("VAULTGATE_KEYS", "v1=s")

	err := run(context.Background(), []string{"sign", "--version", "v9", "http://host/resource"}, &bytes.Buffer{})
	assert.ErrorContains(t, err, "invalid key version")
}

func TestKeys(t *testing.T) {
	t.Setenv("VAULTGATE_KEYS", "v1=s,v2=t")
	t.Setenv("VAULTGATE_SIGNING_VERSION", "v1")

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"keys"}, &out))
	assert.Equal(t, "* v1\n  v2\n", out.String())
}

func TestNoKeys(t *testing.T) {
	t.Setenv("VAULTGATE_KEYS", "")

	err := run(context.Background(), []string{"keys"}, &bytes.Buffer{})
	assert.ErrorContains(t, err, "no signing keys configured")
}

func TestPublish_RequiresEndpoint(t *testing.T) {
	t.Setenv("VAULTGATE_KEYS", "v1=s")
	t.Setenv("VAULTGATE_S3_ENDPOINT", "")

	err := run(context.Background(), []string{"publish", "report.pdf"}, &bytes.Buffer{})
	assert.ErrorContains(t, err, "VAULTGATE_S3_ENDPOINT")
}

func TestObjectURL(t *testing.T) {
	assert.Equal(t, "https://files.example.com/objects/reports/q3%20final.pdf",
		objectURL("https://files.example.com/", "reports/q3 final.pdf"))
}

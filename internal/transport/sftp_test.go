package transport

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeAddress(t *testing.T) {
	assert.Equal(t, "files.example.com:22", normalizeAddress("files.example.com"))
	assert.Equal(t, "files.example.com:2222", normalizeAddress("files.example.com:2222"))
	assert.Equal(t, "[::1]:22", normalizeAddress("::1"))
}

func TestHostKeyCallback(t *testing.T) {
	cb, err := hostKeyCallback(SFTPConfig{InsecureIgnoreHostKey: true})
	require.NoError(t, err)
	assert.NotNil(t, cb)

	_, err = hostKeyCallback(SFTPConfig{})
	assert.ErrorContains(t, err, "known_hosts file is required")

	_, err = hostKeyCallback(SFTPConfig{KnownHostsFile: filepath.Join(t.TempDir(), "known_hosts")})
	assert.ErrorContains(t, err, "loading known hosts")
}

func TestDial_ConfigErrors(t *testing.T) {
	ctx := context.Background()

	_, err := Dial(ctx, SFTPConfig{})
	assert.ErrorContains(t, err, "address is required")

	_, err = Dial(ctx, SFTPConfig{Address: "localhost"})
	assert.ErrorContains(t, err, "key file is required")

	_, err = Dial(ctx, SFTPConfig{Address: "localhost", KeyFile: filepath.Join(t.TempDir(), "id_ed25519")})
	assert.ErrorContains(t, err, "reading key")
}

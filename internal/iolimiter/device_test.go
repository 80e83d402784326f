package iolimiter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveDeviceFallsBackToRoot(t *testing.T) {
	device, err := ResolveDevice(context.Background(), "/this/path/almost-certainly/does/not/exist")
	require.NoError(t, err)
	assert.NotEmpty(t, device)
}

func TestEnsureTrailingSlash(t *testing.T) {
	assert.Equal(t, "/mnt/", ensureTrailingSlash("/mnt"))
	assert.Equal(t, "/mnt/", ensureTrailingSlash("/mnt/"))
}

package gotime

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeZone(t *testing.T, dir, zone, data string) {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(zone))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))
}

func TestContentDigestFollowsZoneFile(t *testing.T) {
	t.Setenv("ZONEINFO", "")
	dir := t.TempDir()
	p := &Provider{sources: []string{filepath.Join(dir, "missing"), dir}}

	writeZone(t, dir, "Test/Zone", "TZif2 first")
	first, err := p.ContentDigest("Test/Zone")
	require.NoError(t, err)
	assert.Contains(t, first, "sha256:")

	same, err := p.ContentDigest("Test/Zone")
	require.NoError(t, err)
	assert.Equal(t, first, same)

	writeZone(t, dir, "Test/Zone", "TZif2 second")
	second, err := p.ContentDigest("Test/Zone")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestContentDigestPrefersZoneinfoEnv(t *testing.T) {
	envDir := t.TempDir()
	sysDir := t.TempDir()
	writeZone(t, envDir, "Test/Zone", "from env")
	writeZone(t, sysDir, "Test/Zone", "from system")
	t.Setenv("ZONEINFO", envDir)

	p := &Provider{sources: []string{sysDir}}
	fromEnv, err := p.ContentDigest("Test/Zone")
	require.NoError(t, err)

	t.Setenv("ZONEINFO", "")
	fromSystem, err := p.ContentDigest("Test/Zone")
	require.NoError(t, err)
	assert.NotEqual(t, fromEnv, fromSystem)
}

func TestContentDigestEmbeddedAndInvalid(t *testing.T) {
	t.Setenv("ZONEINFO", "")
	p := &Provider{sources: []string{t.TempDir()}}

	embedded, err := p.ContentDigest("Test/Nowhere")
	require.NoError(t, err)
	assert.Equal(t, "embedded:"+runtime.Version(), embedded)

	for _, zone := range []string{"", "Local", "../etc/passwd", "/etc/passwd"} {
		d, err := p.ContentDigest(zone)
		require.NoError(t, err)
		assert.Empty(t, d, "zone %q", zone)
	}
}

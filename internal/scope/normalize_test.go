package scope

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNormalizer(prefixes ...string) *Normalizer {
	return NewNormalizer(prefixes, time.Minute)
}

func TestNormalizeTrailingSeparator(t *testing.T) {
	n := newTestNormalizer()
	assert.Equal(t, n.Normalize("/var/music"), n.Normalize("/var/music/"))
}

func TestNormalizeStripsPlatformPrefix(t *testing.T) {
	n := newTestNormalizer("/private")

	assert.Equal(t, n.Normalize("/var/music"), n.Normalize("/private/var/music"))
	// Prefix only strips at a component boundary.
	assert.NotEqual(t, n.Normalize("/var"), n.Normalize("/privatevar"))
}

func TestNormalizeEquivalentPathsMatch(t *testing.T) {
	n := newTestNormalizer("/private")

	pairs := [][2]string{
		{"/var/music/", "/private/var/music"},
		{"/a/b/../b/c", "/a/b/c"},
		{"/a/./b", "/a/b"},
	}
	for _, p := range pairs {
		assert.Equal(t, n.Normalize(p[0]), n.Normalize(p[1]), "%q vs %q", p[0], p[1])
	}
}

func TestNormalizeResolvesSymlinks(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "library")
	require.NoError(t, os.Mkdir(target, 0o755))
	link := filepath.Join(dir, "alias")
	require.NoError(t, os.Symlink(target, link))

	n := newTestNormalizer()
	assert.Equal(t, n.Normalize(target), n.Normalize(link))
}

func TestNormalizeMemoizes(t *testing.T) {
	n := newTestNormalizer()
	first := n.Normalize("/var/music")
	second := n.Normalize("/var/music")
	assert.Equal(t, first, second)
}

func TestIsPathWithin(t *testing.T) {
	assert.True(t, IsPathWithin("/a/b", "/a/b"))
	assert.True(t, IsPathWithin("/a/b", "/a/b/c/song.mp3"))
	assert.False(t, IsPathWithin("/a/b", "/a/bc"))
	assert.False(t, IsPathWithin("/a/b", "/a"))
	assert.True(t, IsPathWithin("/", "/anything"))
}

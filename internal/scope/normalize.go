// Package scope tracks which folders currently hold an open sandbox access
// grant. Grants are keyed by normalized paths, backed by durable bookmark
// tokens in the datastore, and opened/closed in step with playback.
package scope

import (
	"path/filepath"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Normalizer produces canonical paths for registry lookups. Two paths that
// refer to the same location must normalize identically: symlinks resolved,
// platform-internal prefixes stripped, no trailing separator.
type Normalizer struct {
	stripPrefixes []string
	cache         *gocache.Cache
}

// NewNormalizer creates a normalizer. stripPrefixes lists sandbox-internal
// prefixes (e.g. "/private") removed after symlink resolution; ttl bounds
// how long resolved paths are memoized.
func NewNormalizer(stripPrefixes []string, ttl time.Duration) *Normalizer {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Normalizer{
		stripPrefixes: stripPrefixes,
		cache:         gocache.New(ttl, 2*ttl),
	}
}

// Normalize canonicalizes a path. The result is deterministic for
// equivalent inputs, which makes it the registry's only identity.
func (n *Normalizer) Normalize(path string) string {
	if cached, ok := n.cache.Get(path); ok {
		return cached.(string)
	}

	normalized := n.normalize(path)
	n.cache.Set(path, normalized, gocache.DefaultExpiration)
	return normalized
}

func (n *Normalizer) normalize(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	resolved := resolveSymlinks(abs)

	for _, prefix := range n.stripPrefixes {
		if trimmed, ok := stripPathPrefix(resolved, prefix); ok {
			resolved = trimmed
			break
		}
	}

	cleaned := filepath.Clean(resolved)
	if len(cleaned) > 1 {
		cleaned = strings.TrimSuffix(cleaned, string(filepath.Separator))
	}
	return cleaned
}

// resolveSymlinks resolves the path, falling back to resolving the nearest
// existing parent when the full path does not exist yet.
func resolveSymlinks(abs string) string {
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}

	dir := filepath.Dir(abs)
	for dir != string(filepath.Separator) && dir != "." && dir != "" {
		if resolvedDir, err := filepath.EvalSymlinks(dir); err == nil {
			rel, relErr := filepath.Rel(dir, abs)
			if relErr != nil {
				return abs
			}
			return filepath.Join(resolvedDir, rel)
		}
		dir = filepath.Dir(dir)
	}
	return abs
}

// stripPathPrefix removes prefix from path at a path-component boundary.
func stripPathPrefix(path, prefix string) (string, bool) {
	prefix = strings.TrimSuffix(prefix, string(filepath.Separator))
	if prefix == "" || !strings.HasPrefix(path, prefix) {
		return path, false
	}
	rest := path[len(prefix):]
	if rest == "" {
		return string(filepath.Separator), true
	}
	if rest[0] != filepath.Separator {
		return path, false
	}
	return rest, true
}

// IsPathWithin reports whether target is base itself or inside it. Both
// paths must already be normalized.
func IsPathWithin(base, target string) bool {
	if base == target {
		return true
	}
	if base == string(filepath.Separator) {
		return strings.HasPrefix(target, base)
	}
	return strings.HasPrefix(target, base+string(filepath.Separator))
}

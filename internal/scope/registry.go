package scope

import (
	"log/slog"
	"sync"

	"github.com/soundvault/soundvault-go/internal/conf"
	"github.com/soundvault/soundvault-go/internal/datastore"
	"github.com/soundvault/soundvault-go/internal/errors"
	"github.com/soundvault/soundvault-go/internal/logging"
)

// Entry is one folder's access grant as held in memory.
type Entry struct {
	NormalizedPath string
	Token          []byte
	Active         bool

	// resolvedFolder caches the folder path from the last successful
	// resolve so Close does not need to resolve again.
	resolvedFolder string
}

// Registry tracks scope entries and opens/closes access grants as playback
// switches tracks. All methods are safe for concurrent use; open/close are
// serialized by a private lock since playback switches and app teardown may
// race. None of this ever runs on the render callback.
type Registry struct {
	mu       sync.Mutex
	entries  map[string]*Entry
	store    datastore.Interface
	resolver TokenResolver
	norm     *Normalizer
	logger   *slog.Logger
}

// NewRegistry loads persisted bookmarks and returns a ready registry.
// Persisted active flags are cleared: a fresh process holds no open grants.
func NewRegistry(store datastore.Interface, resolver TokenResolver, norm *Normalizer) (*Registry, error) {
	bookmarks, err := store.ListBookmarks()
	if err != nil {
		return nil, errors.New(err).
			Component(errors.ComponentScope).
			Category(errors.CategoryDatabase).
			Context("operation", "load_bookmarks").
			Build()
	}

	entries := make(map[string]*Entry, len(bookmarks))
	for i := range bookmarks {
		b := &bookmarks[i]
		entries[b.NormalizedPath] = &Entry{
			NormalizedPath: b.NormalizedPath,
			Token:          b.Token,
		}
	}

	return &Registry{
		entries:  entries,
		store:    store,
		resolver: resolver,
		norm:     norm,
		logger:   logging.ForService("scope"),
	}, nil
}

// Normalize exposes the registry's canonical path form.
func (r *Registry) Normalize(path string) string {
	return r.norm.Normalize(path)
}

// NeedsScope reports whether a file requires an access grant before
// reading. Files inside the app's own data directory never do.
func (r *Registry) NeedsScope(path string, settings *conf.ScopeSettings) bool {
	normFile := r.norm.Normalize(path)
	normData := r.norm.Normalize(settings.DataDir)
	return !IsPathWithin(normData, normFile)
}

// Grant stores or overwrites a folder's access grant. A nil token derives
// a fresh one from the resolver.
func (r *Registry) Grant(folderPath string, token []byte) error {
	normalized := r.norm.Normalize(folderPath)

	if token == nil {
		derived, err := r.resolver.Derive(normalized)
		if err != nil {
			return err
		}
		token = derived
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	entry, exists := r.entries[normalized]
	if !exists {
		entry = &Entry{NormalizedPath: normalized}
		r.entries[normalized] = entry
	}
	entry.Token = token

	if err := r.persistLocked(entry); err != nil {
		return err
	}
	r.logger.Info("folder access granted", "path", normalized)
	return nil
}

// BeginAccess opens the grant covering the file's folder, if any. Already
// open grants return success without reopening. Returns false when no entry
// matches or the platform open fails; the caller should still attempt
// playback, since in-sandbox files need no grant at all.
func (r *Registry) BeginAccess(fileAt string) bool {
	normFile := r.norm.Normalize(fileAt)

	r.mu.Lock()
	defer r.mu.Unlock()

	entry := r.matchLocked(normFile)
	if entry == nil {
		r.logger.Debug("no scope entry for file", "path", normFile)
		return false
	}
	if entry.Active {
		return true
	}

	folder, err := r.resolveLocked(entry)
	if err != nil {
		r.logger.Warn("cannot resolve access token",
			"path", entry.NormalizedPath, "error", err)
		return false
	}

	if err := r.resolver.Open(folder); err != nil {
		r.logger.Warn("scope open failed",
			"path", entry.NormalizedPath, "error", err)
		return false
	}

	entry.Active = true
	entry.resolvedFolder = folder
	if err := r.persistLocked(entry); err != nil {
		r.logger.Warn("failed to persist scope state",
			"path", entry.NormalizedPath, "error", err)
	}
	r.logger.Debug("scope opened", "path", entry.NormalizedPath)
	return true
}

// EndAccess closes the grant covering the file's folder. Calling it when
// nothing is open is a no-op.
func (r *Registry) EndAccess(fileAt string) {
	normFile := r.norm.Normalize(fileAt)

	r.mu.Lock()
	defer r.mu.Unlock()

	entry := r.matchLocked(normFile)
	if entry == nil || !entry.Active {
		return
	}
	r.closeLocked(entry)
}

// Revoke deletes a folder's grant entirely, force-closing it first when open.
func (r *Registry) Revoke(folderPath string) error {
	normalized := r.norm.Normalize(folderPath)

	r.mu.Lock()
	defer r.mu.Unlock()

	entry, exists := r.entries[normalized]
	if !exists {
		return nil
	}
	if entry.Active {
		r.closeLocked(entry)
	}
	delete(r.entries, normalized)

	if err := r.store.DeleteBookmark(normalized); err != nil {
		return errors.New(err).
			Component(errors.ComponentScope).
			Category(errors.CategoryDatabase).
			Context("path", normalized).
			Build()
	}
	r.logger.Info("folder access revoked", "path", normalized)
	return nil
}

// EndAll closes every active grant. Called at process shutdown.
func (r *Registry) EndAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, entry := range r.entries {
		if entry.Active {
			r.closeLocked(entry)
		}
	}
}

// Entries returns a snapshot of all known grants.
func (r *Registry) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, *e)
	}
	return out
}

// matchLocked finds the entry for a normalized file path: the exact parent
// when present, otherwise the longest normalized-path prefix. The longest
// match wins so nested bookmarked folders resolve to the deepest grant.
func (r *Registry) matchLocked(normFile string) *Entry {
	var best *Entry
	for _, entry := range r.entries {
		if !IsPathWithin(entry.NormalizedPath, normFile) {
			continue
		}
		if best == nil || len(entry.NormalizedPath) > len(best.NormalizedPath) {
			best = entry
		}
	}
	return best
}

// resolveLocked resolves the entry's token, silently refreshing it when the
// platform reports it stale. The refresh preserves the active flag.
func (r *Registry) resolveLocked(entry *Entry) (string, error) {
	folder, stale, err := r.resolver.Resolve(entry.Token)
	if err != nil {
		return "", err
	}
	if stale {
		fresh, deriveErr := r.resolver.Derive(folder)
		if deriveErr != nil {
			// The stale token still resolved; keep using it.
			r.logger.Warn("stale token refresh failed",
				"path", entry.NormalizedPath, "error", deriveErr)
			return folder, nil
		}
		entry.Token = fresh
		if persistErr := r.persistLocked(entry); persistErr != nil {
			r.logger.Warn("failed to persist refreshed token",
				"path", entry.NormalizedPath, "error", persistErr)
		}
		r.logger.Debug("stale access token refreshed", "path", entry.NormalizedPath)
	}
	return folder, nil
}

func (r *Registry) closeLocked(entry *Entry) {
	folder := entry.resolvedFolder
	if folder == "" {
		folder = entry.NormalizedPath
	}
	if err := r.resolver.Close(folder); err != nil {
		r.logger.Warn("scope close failed",
			"path", entry.NormalizedPath, "error", err)
	}
	entry.Active = false
	entry.resolvedFolder = ""
	if err := r.persistLocked(entry); err != nil {
		r.logger.Warn("failed to persist scope state",
			"path", entry.NormalizedPath, "error", err)
	}
	r.logger.Debug("scope closed", "path", entry.NormalizedPath)
}

func (r *Registry) persistLocked(entry *Entry) error {
	return r.store.SaveBookmark(&datastore.Bookmark{
		NormalizedPath: entry.NormalizedPath,
		Token:          entry.Token,
		Active:         entry.Active,
	})
}

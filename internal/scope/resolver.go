package scope

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/soundvault/soundvault-go/internal/errors"
)

// TokenResolver abstracts the platform's durable access-token machinery.
// Tokens are opaque blobs to the registry: only the resolver produces and
// consumes them. A token may be reported stale, in which case the registry
// silently derives a fresh one and persists it in place.
type TokenResolver interface {
	// Resolve turns a token back into a folder path. stale indicates the
	// token still works but should be re-derived and persisted.
	Resolve(token []byte) (folder string, stale bool, err error)

	// Derive produces a fresh token for a folder.
	Derive(folder string) ([]byte, error)

	// Open starts access to the folder. Must be fast; no I/O beyond the
	// platform grant call.
	Open(folder string) error

	// Close ends access to the folder. Safe to call repeatedly.
	Close(folder string) error
}

const tokenPrefix = "svbm"
const tokenVersion = 1

// LocalResolver is the resolver used outside a platform sandbox. Tokens are
// versioned blobs carrying a generation counter and the resolved folder
// path; a token from an older generation is reported stale so the refresh
// path stays exercised end to end.
type LocalResolver struct {
	generation int
}

// NewLocalResolver creates a resolver at generation 1.
func NewLocalResolver() *LocalResolver {
	return &LocalResolver{generation: 1}
}

// BumpGeneration invalidates all previously derived tokens, marking them
// stale on next resolve. Used by tests and when the sandbox container moves.
func (r *LocalResolver) BumpGeneration() {
	r.generation++
}

// Resolve parses a token and checks the folder still exists.
func (r *LocalResolver) Resolve(token []byte) (string, bool, error) {
	parts := strings.SplitN(string(token), ":", 4)
	if len(parts) != 4 || parts[0] != tokenPrefix || parts[1] != fmt.Sprintf("v%d", tokenVersion) {
		return "", false, errors.New(nil).
			Component(errors.ComponentScope).
			Category(errors.CategoryScopedAccess).
			Context("error", "malformed access token").
			Build()
	}

	gen, err := strconv.Atoi(parts[2])
	if err != nil {
		return "", false, errors.New(err).
			Component(errors.ComponentScope).
			Category(errors.CategoryScopedAccess).
			Context("error", "malformed token generation").
			Build()
	}

	folder := parts[3]
	if info, statErr := os.Stat(folder); statErr != nil || !info.IsDir() {
		return "", false, errors.New(statErr).
			Component(errors.ComponentScope).
			Category(errors.CategoryScopedAccess).
			Context("folder", folder).
			Context("error", "bookmarked folder unavailable").
			Build()
	}

	return folder, gen < r.generation, nil
}

// Derive produces a token for the folder at the current generation.
func (r *LocalResolver) Derive(folder string) ([]byte, error) {
	if info, err := os.Stat(folder); err != nil || !info.IsDir() {
		return nil, errors.New(err).
			Component(errors.ComponentScope).
			Category(errors.CategoryScopedAccess).
			Context("folder", folder).
			Context("error", "cannot derive token for missing folder").
			Build()
	}
	return []byte(fmt.Sprintf("%s:v%d:%d:%s", tokenPrefix, tokenVersion, r.generation, folder)), nil
}

// Open verifies the folder is readable. Outside a sandbox there is no
// grant call to make.
func (r *LocalResolver) Open(folder string) error {
	f, err := os.Open(folder)
	if err != nil {
		return errors.New(err).
			Component(errors.ComponentScope).
			Category(errors.CategoryScopedAccess).
			Context("folder", folder).
			Context("operation", "open").
			Build()
	}
	return f.Close()
}

// Close ends access; a no-op for the local resolver.
func (r *LocalResolver) Close(folder string) error {
	return nil
}

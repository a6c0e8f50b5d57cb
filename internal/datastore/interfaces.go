// Package datastore persists the engine's durable state: folder access
// bookmarks keyed by normalized path and named EQ presets. Backed by a
// GORM sqlite database.
package datastore

import (
	"time"

	"gorm.io/gorm"
)

// SchemaVersion identifies the current table layout. Stored alongside the
// data so future migrations can detect older databases.
const SchemaVersion = 1

// Bookmark is one folder's durable access grant: a normalized folder path
// mapped to an opaque access token. Active records whether the grant was
// open when last persisted, so stale-token refreshes can preserve it.
type Bookmark struct {
	NormalizedPath string    `gorm:"primaryKey"`
	Token          []byte    `gorm:"not null"`
	Active         bool      `gorm:"not null;default:false"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime"`
}

// EQPreset is a named set of band gains, serialized as a JSON array so the
// band count can be validated against the configured layout on load.
type EQPreset struct {
	Name      string    `gorm:"primaryKey"`
	Gains     string    `gorm:"not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// SchemaInfo records the schema version of the database.
type SchemaInfo struct {
	ID      uint `gorm:"primaryKey"`
	Version int  `gorm:"not null"`
}

// Interface defines the persistence operations the engine needs.
type Interface interface {
	Open() error
	Close() error

	SaveBookmark(b *Bookmark) error
	GetBookmark(normalizedPath string) (*Bookmark, error)
	ListBookmarks() ([]Bookmark, error)
	DeleteBookmark(normalizedPath string) error

	SavePreset(p *EQPreset) error
	GetPreset(name string) (*EQPreset, error)
	ListPresets() ([]EQPreset, error)
	DeletePreset(name string) error
}

// DataStore implements Interface using a GORM database.
type DataStore struct {
	DB *gorm.DB
}

// New creates a sqlite-backed store at the given path. Use ":memory:" for
// an ephemeral store in tests.
func New(dbPath string) Interface {
	return &SQLiteStore{dbPath: dbPath}
}

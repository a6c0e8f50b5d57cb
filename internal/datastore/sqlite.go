package datastore

import (
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/soundvault/soundvault-go/internal/errors"
)

// SQLiteStore is the sqlite-backed implementation of Interface.
type SQLiteStore struct {
	DataStore
	dbPath string
}

// Open connects to the database, creates missing tables and stamps the
// schema version.
func (s *SQLiteStore) Open() error {
	if dir := filepath.Dir(s.dbPath); dir != "." && !strings.HasPrefix(s.dbPath, "file:") && s.dbPath != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.New(err).
				Component(errors.ComponentDatastore).
				Category(errors.CategoryDatabase).
				Context("db_path", s.dbPath).
				Build()
		}
	}

	db, err := gorm.Open(sqlite.Open(s.dbPath), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return errors.New(err).
			Component(errors.ComponentDatastore).
			Category(errors.CategoryDatabase).
			Context("db_path", s.dbPath).
			Context("operation", "open").
			Build()
	}
	s.DB = db

	if err := s.DB.AutoMigrate(&Bookmark{}, &EQPreset{}, &SchemaInfo{}); err != nil {
		return errors.New(err).
			Component(errors.ComponentDatastore).
			Category(errors.CategoryDatabase).
			Context("operation", "migrate").
			Build()
	}

	var info SchemaInfo
	if err := s.DB.First(&info).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return s.DB.Create(&SchemaInfo{Version: SchemaVersion}).Error
	}
	return nil
}

// Close releases the underlying database connection.
func (s *SQLiteStore) Close() error {
	if s.DB == nil {
		return nil
	}
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SaveBookmark inserts or overwrites a bookmark by normalized path.
func (s *SQLiteStore) SaveBookmark(b *Bookmark) error {
	return s.DB.Save(b).Error
}

// GetBookmark fetches a bookmark, returning nil when none exists.
func (s *SQLiteStore) GetBookmark(normalizedPath string) (*Bookmark, error) {
	var b Bookmark
	err := s.DB.First(&b, "normalized_path = ?", normalizedPath).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// ListBookmarks returns all bookmarks ordered by path.
func (s *SQLiteStore) ListBookmarks() ([]Bookmark, error) {
	var out []Bookmark
	err := s.DB.Order("normalized_path").Find(&out).Error
	return out, err
}

// DeleteBookmark removes a bookmark; deleting a missing path is a no-op.
func (s *SQLiteStore) DeleteBookmark(normalizedPath string) error {
	return s.DB.Delete(&Bookmark{}, "normalized_path = ?", normalizedPath).Error
}

// SavePreset inserts or overwrites a named EQ preset.
func (s *SQLiteStore) SavePreset(p *EQPreset) error {
	return s.DB.Save(p).Error
}

// GetPreset fetches a preset, returning nil when none exists.
func (s *SQLiteStore) GetPreset(name string) (*EQPreset, error) {
	var p EQPreset
	err := s.DB.First(&p, "name = ?", name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListPresets returns all presets ordered by name.
func (s *SQLiteStore) ListPresets() ([]EQPreset, error) {
	var out []EQPreset
	err := s.DB.Order("name").Find(&out).Error
	return out, err
}

// DeletePreset removes a preset; deleting a missing name is a no-op.
func (s *SQLiteStore) DeletePreset(name string) error {
	return s.DB.Delete(&EQPreset{}, "name = ?", name).Error
}

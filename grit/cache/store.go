// Package cache provides optional persistence of MatchResult rows
// across runs, the ambient "history" store spec.md §9 leaves as an
// implementation choice and SPEC_FULL.md §4.6.1 wires concretely.
//
// Grounded on teacher's internal/cache/gorm_db.go (gorm.DB over
// gorm.io/driver/sqlite) and internal/cache/violation_cache.go's
// schema-init-on-open style, generalized from ArchUnit violations to
// GritQL match/rewrite records.
package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Record is one persisted match or rewrite, keyed by file path and
// pattern name the way teacher's violation rows are keyed by file
// path and rule source.
type Record struct {
	ID          uint `gorm:"primaryKey"`
	PatternName string `gorm:"index"`
	FilePath    string `gorm:"index"`
	Kind        string // "match" or "rewrite"
	StartByte   int
	EndByte     int
	Message     string
	StoredAt    time.Time
}

// Store wraps a single gorm.DB connection to a SQLite file, the way
// teacher's ViolationCache wraps a *DB singleton per user cache
// directory, generalized here to accept an explicit path instead of
// always defaulting to ~/.cache/arch-unit.
type Store struct {
	db *gorm.DB
}

// Open creates or reuses a SQLite-backed store at path, auto-migrating
// the Record table (teacher's ViolationCache.init() equivalent).
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("gritql/cache: create cache directory: %w", err)
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("gritql/cache: open database: %w", err)
	}
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("gritql/cache: migrate schema: %w", err)
	}
	return &Store{db: db}, nil
}

// OpenDefault opens the store at the conventional
// ~/.cache/gritql/history.db location, mirroring teacher's
// ~/.cache/arch-unit/violations.db default.
func OpenDefault() (*Store, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("gritql/cache: resolve home directory: %w", err)
	}
	return Open(filepath.Join(home, ".cache", "gritql", "history.db"))
}

// RecordMatch persists a single match result row.
func (s *Store) RecordMatch(patternName, filePath string, start, end int) error {
	return s.db.Create(&Record{
		PatternName: patternName,
		FilePath:    filePath,
		Kind:        "match",
		StartByte:   start,
		EndByte:     end,
		StoredAt:    time.Now(),
	}).Error
}

// RecordRewrite persists a single rewrite result row.
func (s *Store) RecordRewrite(patternName, filePath, message string, start, end int) error {
	return s.db.Create(&Record{
		PatternName: patternName,
		FilePath:    filePath,
		Kind:        "rewrite",
		StartByte:   start,
		EndByte:     end,
		Message:     message,
		StoredAt:    time.Now(),
	}).Error
}

// History returns all recorded rows for a file, most recent first,
// the read-path teacher's ViolationCache exposes for `arch-unit
// violations` and this exposes for a `grit history` subcommand.
func (s *Store) History(filePath string) ([]Record, error) {
	var rows []Record
	err := s.db.Where("file_path = ?", filePath).Order("stored_at desc").Find(&rows).Error
	return rows, err
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

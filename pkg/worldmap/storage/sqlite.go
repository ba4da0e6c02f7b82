package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

const DefaultDBFile = "arworldmap.sqlite3"

// SQLiteBackend keeps every location as one row of the blobs table.
type SQLiteBackend struct {
	DB *gorm.DB
	db *sql.DB
}

// Blob is the row stored per location.
type Blob struct {
	Location  string `gorm:"primaryKey;type:varchar(128)"`
	Data      []byte `gorm:"not null"`
	Size      int
	UpdatedAt time.Time
}

// NewSQLiteBackend opens (or creates) the database at dbPath.
func NewSQLiteBackend(dbPath string) (*SQLiteBackend, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(sqlite.Open(dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}

	// A single writer keeps SQLite from returning SQLITE_BUSY under load.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&Blob{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &SQLiteBackend{DB: db, db: sqlDB}, nil
}

func (s *SQLiteBackend) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save upserts the row for location inside a transaction, so a failed write
// leaves the previous row in place.
func (s *SQLiteBackend) Save(ctx context.Context, location string, data []byte) error {
	if s == nil || s.DB == nil {
		return errors.New(errBackendNil)
	}
	if err := validLocation(location); err != nil {
		return err
	}
	if data == nil {
		data = []byte{}
	}

	row := Blob{Location: location, Data: data, Size: len(data), UpdatedAt: time.Now().UTC()}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "location"}},
			DoUpdates: clause.AssignmentColumns([]string{"data", "size", "updated_at"}),
		}).Create(&row).Error
	})
	if err != nil {
		return fmt.Errorf("saving %s: %w", location, err)
	}
	return nil
}

// Load returns the blob stored at location, or ErrNotFound.
func (s *SQLiteBackend) Load(ctx context.Context, location string) ([]byte, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New(errBackendNil)
	}
	if err := validLocation(location); err != nil {
		return nil, err
	}

	var row Blob
	err := s.DB.WithContext(ctx).Where("location = ?", location).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("loading %s: %w", location, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", location, err)
	}
	return row.Data, nil
}

// Remove deletes the row for location if present.
func (s *SQLiteBackend) Remove(ctx context.Context, location string) error {
	if s == nil || s.DB == nil {
		return errors.New(errBackendNil)
	}
	if err := validLocation(location); err != nil {
		return err
	}
	if err := s.DB.WithContext(ctx).Where("location = ?", location).Delete(&Blob{}).Error; err != nil {
		return fmt.Errorf("removing %s: %w", location, err)
	}
	return nil
}

// Locations maps every stored location to its blob size.
func (s *SQLiteBackend) Locations(ctx context.Context) (map[string]int, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New(errBackendNil)
	}
	var rows []Blob
	if err := s.DB.WithContext(ctx).Select("location", "size").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing locations: %w", err)
	}
	out := make(map[string]int, len(rows))
	for _, r := range rows {
		out[r.Location] = r.Size
	}
	return out, nil
}

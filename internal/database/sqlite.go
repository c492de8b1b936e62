package database

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/glocktrack/glocktrack/internal/config"
	"github.com/glocktrack/glocktrack/internal/database/migrations"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// ReadingType is the measurement context of a glucose reading
type ReadingType string

const (
	ReadingFasting      ReadingType = "fasting"
	ReadingPostPrandial ReadingType = "post-prandial"
	ReadingRandom       ReadingType = "random"
)

// Valid reports whether t is one of the known reading types
func (t ReadingType) Valid() bool {
	switch t {
	case ReadingFasting, ReadingPostPrandial, ReadingRandom:
		return true
	}
	return false
}

// ReadingSource marks how a reading entered the system
type ReadingSource string

const (
	SourceManual ReadingSource = "manual"
	SourceScan   ReadingSource = "scan"
)

// Valid reports whether s is one of the known sources
func (s ReadingSource) Valid() bool {
	return s == SourceManual || s == SourceScan
}

// DiabetesType is the user's diagnosis category
type DiabetesType string

const (
	DiabetesType1       DiabetesType = "Type 1"
	DiabetesType2       DiabetesType = "Type 2"
	DiabetesPre         DiabetesType = "Pre-diabetic"
	DiabetesGestational DiabetesType = "Gestational"
)

// Valid reports whether d is one of the known diagnosis categories
func (d DiabetesType) Valid() bool {
	switch d {
	case DiabetesType1, DiabetesType2, DiabetesPre, DiabetesGestational:
		return true
	}
	return false
}

// GlucoseUnit is the display unit for glucose values. Stored values are
// raw numbers in whatever unit the user logs; no conversion is performed.
type GlucoseUnit string

const (
	UnitMgDL  GlucoseUnit = "mg/dL"
	UnitMmolL GlucoseUnit = "mmol/L"
)

// Valid reports whether u is one of the known units
func (u GlucoseUnit) Valid() bool {
	return u == UnitMgDL || u == UnitMmolL
}

// GlucoseLog is one glucose measurement. Records are never updated after
// creation, only deleted.
type GlucoseLog struct {
	ID        uint `gorm:"primaryKey"`
	Value     float64
	Type      ReadingType   `gorm:"index"`
	Timestamp time.Time     `gorm:"index"`
	Source    ReadingSource `gorm:"index"`
	Notes     string
	CreatedAt time.Time
}

// UserProfile holds the user's identity and target ranges. A single record
// is expected; the first by creation order is treated as active.
type UserProfile struct {
	ID                    uint `gorm:"primaryKey"`
	Name                  string
	DiabetesType          DiabetesType
	TargetFastingMin      int
	TargetFastingMax      int
	TargetPostPrandialMin int
	TargetPostPrandialMax int
	Unit                  GlucoseUnit
	Photo                 string // base64 data URL, replaced wholesale
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// NewSQLiteDB opens the local database file, creating its directory if
// needed, and runs schema migrations.
func NewSQLiteDB(cfg config.DBConfig) (*gorm.DB, error) {
	if dir := filepath.Dir(cfg.Path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(cfg.Path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL keeps readers unblocked during writes and survives crashes better
	if err := db.Exec("PRAGMA journal_mode=WAL").Error; err != nil {
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := db.AutoMigrate(
		&GlucoseLog{},
		&UserProfile{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	if err := migrations.RunMigrations(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

package store

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/glocktrack/glocktrack/internal/apperrors"
	"github.com/glocktrack/glocktrack/internal/database"
	"gorm.io/gorm"
)

// Store owns durability for the readings and profile collections. Every
// write is committed before the call returns and is followed by a change
// event on the notifier.
type Store struct {
	db       *gorm.DB
	notifier Notifier
}

// New creates a store over an open database
func New(db *gorm.DB, notifier Notifier) *Store {
	return &Store{db: db, notifier: notifier}
}

// Notifier exposes the store's change feed for subscribers
func (s *Store) Notifier() Notifier {
	return s.notifier
}

// InsertReading validates and persists a new glucose reading, returning
// the assigned id. A zero timestamp is set to the current time.
func (s *Store) InsertReading(ctx context.Context, value float64, readingType database.ReadingType, timestamp time.Time, source database.ReadingSource, notes string) (uint, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) || value <= 0 {
		return 0, apperrors.NewValidationError("glucose value must be a positive number").
			WithContext("value", value)
	}
	if !readingType.Valid() {
		return 0, apperrors.NewValidationError(fmt.Sprintf("unknown reading type %q", readingType))
	}
	if !source.Valid() {
		return 0, apperrors.NewValidationError(fmt.Sprintf("unknown reading source %q", source))
	}
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	log := database.GlucoseLog{
		Value:     value,
		Type:      readingType,
		Timestamp: timestamp,
		Source:    source,
		Notes:     notes,
	}
	if err := s.db.WithContext(ctx).Create(&log).Error; err != nil {
		return 0, apperrors.NewStorageError(err)
	}

	s.notifier.Publish(ctx, ChangeEvent{Collection: CollectionLogs, Op: OpInsert, ID: log.ID})
	return log.ID, nil
}

// ListReadings returns all readings newest first. Equal timestamps keep
// insertion order reversed, so the most recently inserted comes first.
func (s *Store) ListReadings(ctx context.Context) ([]database.GlucoseLog, error) {
	var logs []database.GlucoseLog
	if err := s.db.WithContext(ctx).
		Order("timestamp DESC, id DESC").
		Find(&logs).Error; err != nil {
		return nil, apperrors.NewStorageError(err)
	}
	return logs, nil
}

// DeleteReading removes a reading by id
func (s *Store) DeleteReading(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Delete(&database.GlucoseLog{}, id)
	if result.Error != nil {
		return apperrors.NewStorageError(result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrReadingNotFound
	}

	s.notifier.Publish(ctx, ChangeEvent{Collection: CollectionLogs, Op: OpDelete, ID: id})
	return nil
}

// UpsertProfile inserts the profile when it has no id, otherwise replaces
// every field of the existing record. There are no patch semantics.
func (s *Store) UpsertProfile(ctx context.Context, profile *database.UserProfile) (uint, error) {
	if profile.ID != 0 {
		var existing database.UserProfile
		err := s.db.WithContext(ctx).First(&existing, profile.ID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, apperrors.ErrProfileNotFound.WithContext("id", profile.ID)
		}
		if err != nil {
			return 0, apperrors.NewStorageError(err)
		}
		profile.CreatedAt = existing.CreatedAt
		if err := s.db.WithContext(ctx).Save(profile).Error; err != nil {
			return 0, apperrors.NewStorageError(err)
		}
		s.notifier.Publish(ctx, ChangeEvent{Collection: CollectionProfile, Op: OpUpdate, ID: profile.ID})
		return profile.ID, nil
	}

	if err := s.db.WithContext(ctx).Create(profile).Error; err != nil {
		return 0, apperrors.NewStorageError(err)
	}
	s.notifier.Publish(ctx, ChangeEvent{Collection: CollectionProfile, Op: OpInsert, ID: profile.ID})
	return profile.ID, nil
}

// ActiveProfile returns the first profile by creation order, or nil when
// none exists. If multiple records exist the earliest one wins; uniqueness
// is by convention, not constraint.
func (s *Store) ActiveProfile(ctx context.Context) (*database.UserProfile, error) {
	var profile database.UserProfile
	err := s.db.WithContext(ctx).Order("id ASC").First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewStorageError(err)
	}
	return &profile, nil
}

// CountProfiles returns the number of profile records
func (s *Store) CountProfiles(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&database.UserProfile{}).Count(&count).Error; err != nil {
		return 0, apperrors.NewStorageError(err)
	}
	return count, nil
}

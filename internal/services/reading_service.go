package services

import (
	"context"
	"time"

	"github.com/glocktrack/glocktrack/internal/database"
	"github.com/glocktrack/glocktrack/internal/store"
)

// ValueExtractor derives a candidate glucose value from a photographed
// meter display. An absent result means no usable number was recognized.
type ValueExtractor interface {
	ExtractValue(ctx context.Context, image []byte, mimeType string) (float64, bool)
}

// ReadingInput carries a new reading from the caller
type ReadingInput struct {
	Value     float64
	Type      database.ReadingType
	Timestamp time.Time
	Source    database.ReadingSource
	Notes     string
}

// ScanResult is the outcome of one extraction attempt. The candidate value
// is not persisted; the caller confirms it first.
type ScanResult struct {
	Value float64 `json:"value"`
	Found bool    `json:"found"`
}

// ReadingService records glucose readings and runs the scan flow
type ReadingService struct {
	store     *store.Store
	extractor ValueExtractor
}

// NewReadingService creates a new reading service
func NewReadingService(s *store.Store, extractor ValueExtractor) *ReadingService {
	return &ReadingService{store: s, extractor: extractor}
}

// AddReading validates and persists a reading, returning its id
func (s *ReadingService) AddReading(ctx context.Context, input ReadingInput) (uint, error) {
	return s.store.InsertReading(ctx, input.Value, input.Type, input.Timestamp, input.Source, input.Notes)
}

// DeleteReading removes a reading by id
func (s *ReadingService) DeleteReading(ctx context.Context, id uint) error {
	return s.store.DeleteReading(ctx, id)
}

// ScanImage extracts a candidate glucose value from a meter photo.
// Recognition failures surface as Found=false, never as an error.
func (s *ReadingService) ScanImage(ctx context.Context, image []byte, mimeType string) ScanResult {
	value, found := s.extractor.ExtractValue(ctx, image, mimeType)
	return ScanResult{Value: value, Found: found}
}

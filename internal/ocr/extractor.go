package ocr

import (
	"context"
	"regexp"
	"strconv"

	"github.com/glocktrack/glocktrack/internal/apperrors"
	"github.com/glocktrack/glocktrack/internal/logger"
)

// Matches a maximal digit run with an optional single decimal point.
var numberPattern = regexp.MustCompile(`[0-9]+(\.[0-9]+)?`)

// Extractor derives a candidate glucose value from a meter photograph.
//
// The first numeric token in the transcript wins. There is no confidence
// scoring and no selection among multiple candidates, so a transcript like
// "12:30 BG 118" yields 12 because the meter clock is read first. The
// caller shows the candidate to the user for confirmation before anything
// is persisted.
type Extractor struct {
	factory EngineFactory
}

// NewExtractor creates an extractor acquiring engines from factory
func NewExtractor(factory EngineFactory) *Extractor {
	return &Extractor{factory: factory}
}

// ExtractValue runs recognition over the image and parses the first
// numeric token. It reports false when recognition fails, errors out or
// finds no number; engine failures never propagate to the caller.
func (x *Extractor) ExtractValue(ctx context.Context, image []byte, mimeType string) (float64, bool) {
	engine, err := x.factory(ctx)
	if err != nil {
		logger.Warn("Failed to acquire recognition engine", apperrors.NewRecognitionError(err).LogFields()...)
		return 0, false
	}
	defer func() {
		if err := engine.Close(); err != nil {
			logger.Warn("Failed to release recognition engine", "error", err)
		}
	}()

	transcript, err := engine.Recognize(ctx, image, mimeType)
	if err != nil {
		logger.Warn("Recognition failed", apperrors.NewRecognitionError(err).LogFields()...)
		return 0, false
	}
	logger.Debug("Recognition transcript", "text", transcript)

	match := numberPattern.FindString(transcript)
	if match == "" {
		return 0, false
	}

	value, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

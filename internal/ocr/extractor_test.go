package ocr

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubEngine struct {
	transcript string
	err        error
	closed     bool
}

func (e *stubEngine) Recognize(ctx context.Context, image []byte, mimeType string) (string, error) {
	return e.transcript, e.err
}

func (e *stubEngine) Close() error {
	e.closed = true
	return nil
}

func stubFactory(engine *stubEngine) EngineFactory {
	return func(ctx context.Context) (RecognitionEngine, error) {
		return engine, nil
	}
}

func TestExtractValue(t *testing.T) {
	tests := []struct {
		name       string
		transcript string
		wantValue  float64
		wantFound  bool
	}{
		{"meter display", "BG 118 mg/dL", 118, true},
		{"decimal value", "5.4 mmol/L", 5.4, true},
		{"no digits", "ERROR", 0, false},
		{"empty transcript", "", 0, false},
		{"first number wins", "12:30 BG 118", 12, true},
		{"leading noise", "GlucoMeter Pro\n142\nmg/dL", 142, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := &stubEngine{transcript: tt.transcript}
			x := NewExtractor(stubFactory(engine))

			value, found := x.ExtractValue(context.Background(), []byte("img"), "image/jpeg")
			assert.Equal(t, tt.wantFound, found)
			assert.Equal(t, tt.wantValue, value)
			assert.True(t, engine.closed, "engine must be released on every path")
		})
	}
}

func TestExtractValueRecognitionError(t *testing.T) {
	engine := &stubEngine{err: errors.New("model unavailable")}
	x := NewExtractor(stubFactory(engine))

	_, found := x.ExtractValue(context.Background(), []byte("img"), "image/png")
	assert.False(t, found, "engine errors must map to absent, not propagate")
	assert.True(t, engine.closed, "engine must be released after a failed recognition")
}

func TestExtractValueFactoryError(t *testing.T) {
	x := NewExtractor(func(ctx context.Context) (RecognitionEngine, error) {
		return nil, errors.New("no API key")
	})

	_, found := x.ExtractValue(context.Background(), []byte("img"), "image/jpeg")
	assert.False(t, found)
}

func TestImageFormat(t *testing.T) {
	assert.Equal(t, "jpeg", imageFormat("image/jpeg"))
	assert.Equal(t, "png", imageFormat("image/PNG"))
	assert.Equal(t, "jpeg", imageFormat(""))
	assert.Equal(t, "webp", imageFormat("webp"))
}

package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// RecognitionEngine turns an image into a raw text transcript. An engine
// instance is not safe for concurrent recognitions: acquire one per call
// and Close it on every exit path.
type RecognitionEngine interface {
	Recognize(ctx context.Context, image []byte, mimeType string) (string, error)
	Close() error
}

// EngineFactory acquires a fresh recognition engine for one extraction
type EngineFactory func(ctx context.Context) (RecognitionEngine, error)

const transcriptionPrompt = `You are an OCR engine. Transcribe all visible text on the device display in the image.

REQUIREMENTS:
- Return the text exactly as shown, left to right, top to bottom
- Keep digits and decimal points intact
- Do not interpret, summarize or add any commentary
- If no text is visible, return an empty response`

// GeminiEngine recognizes text using the Gemini vision model
type GeminiEngine struct {
	client *genai.Client
	model  string
}

// NewGeminiEngine creates a Gemini-backed recognition engine
func NewGeminiEngine(ctx context.Context, apiKey, model string) (*GeminiEngine, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiEngine{client: client, model: model}, nil
}

// GeminiFactory returns an EngineFactory producing one engine per call
func GeminiFactory(apiKey, model string) EngineFactory {
	return func(ctx context.Context) (RecognitionEngine, error) {
		return NewGeminiEngine(ctx, apiKey, model)
	}
}

// Recognize sends the image to the model and returns its transcript
func (e *GeminiEngine) Recognize(ctx context.Context, image []byte, mimeType string) (string, error) {
	model := e.client.GenerativeModel(e.model)

	img := genai.ImageData(imageFormat(mimeType), image)
	resp, err := model.GenerateContent(ctx, img, genai.Text(transcriptionPrompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("recognition returned no candidates")
	}

	var transcript strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			transcript.WriteString(string(text))
		}
	}
	return transcript.String(), nil
}

// Close releases the underlying client
func (e *GeminiEngine) Close() error {
	return e.client.Close()
}

// imageFormat maps a MIME type to the bare format genai expects
func imageFormat(mimeType string) string {
	format := strings.TrimPrefix(strings.ToLower(mimeType), "image/")
	if format == "" {
		return "jpeg"
	}
	return format
}

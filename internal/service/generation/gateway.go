package generation

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/kwalter/dungeonloom/internal/model/story"
)

// TextBackend produces the next narrative block from a transcript snapshot.
type TextBackend interface {
	Generate(ctx context.Context, history []story.Message) (string, error)
}

// ImageBackend renders a prompt into a remotely hosted image URL.
type ImageBackend interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// AudioBackend synthesizes narration audio for a piece of text.
type AudioBackend interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Gateway fronts the three generation capabilities with a uniform bounded
// retry policy. Backends left nil are reported unavailable without retries.
type Gateway struct {
	text  TextBackend
	image ImageBackend
	audio AudioBackend

	attempts int
	audioDir string
	classify func(error) bool
}

// NewGateway assembles the gateway. attempts <= 0 selects DefaultAttempts;
// audioDir receives persisted narration artifacts.
func NewGateway(text TextBackend, image ImageBackend, audio AudioBackend, attempts int, audioDir string) *Gateway {
	if attempts <= 0 {
		attempts = DefaultAttempts
	}
	return &Gateway{
		text:     text,
		image:    image,
		audio:    audio,
		attempts: attempts,
		audioDir: audioDir,
		classify: IsTransient,
	}
}

// GenerateText runs the text backend over the transcript snapshot.
func (g *Gateway) GenerateText(ctx context.Context, history []story.Message) (string, error) {
	if g.text == nil {
		return "", fmt.Errorf("text: %w", ErrBackendUnavailable)
	}

	var raw string
	err := Do(ctx, story.StageStory, g.attempts, g.classify, func(ctx context.Context) error {
		var callErr error
		raw, callErr = g.text.Generate(ctx, history)
		return callErr
	})
	if err != nil {
		return "", err
	}
	return raw, nil
}

// GenerateImage renders prompt into a hosted image URL. An empty prompt is
// a successful no-op with an empty reference.
func (g *Gateway) GenerateImage(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", nil
	}
	if g.image == nil {
		return "", fmt.Errorf("image: %w", ErrBackendUnavailable)
	}

	var url string
	err := Do(ctx, story.StageImage, g.attempts, g.classify, func(ctx context.Context) error {
		var callErr error
		url, callErr = g.image.Generate(ctx, prompt)
		return callErr
	})
	if err != nil {
		return "", err
	}
	return url, nil
}

// GenerateAudio synthesizes narration for text and persists it under the
// audio directory with a random identifier. The returned reference resolves
// through the audio file route. An empty text is a successful no-op.
func (g *Gateway) GenerateAudio(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	if g.audio == nil {
		return "", fmt.Errorf("audio: %w", ErrBackendUnavailable)
	}

	var data []byte
	err := Do(ctx, story.StageAudio, g.attempts, g.classify, func(ctx context.Context) error {
		var callErr error
		data, callErr = g.audio.Synthesize(ctx, text)
		return callErr
	})
	if err != nil {
		return "", err
	}

	name := fmt.Sprintf("narration_%s.mp3", uuid.NewString())
	if err := os.MkdirAll(g.audioDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create audio directory: %w", err)
	}
	path := filepath.Join(g.audioDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to persist narration audio: %w", err)
	}

	log.Printf("[generation] narration audio saved to %s", path)
	return "/audio/" + name, nil
}

package game

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"

	"github.com/kwalter/dungeonloom/internal/analysis/scene"
	"github.com/kwalter/dungeonloom/internal/model/story"
	"github.com/kwalter/dungeonloom/internal/service/ai"
	"github.com/kwalter/dungeonloom/internal/service/session"
)

var (
	ErrPromptRequired = errors.New("prompt is required")
	ErrChoiceRequired = errors.New("choice is required")
)

// choicePrefix frames player decisions for the narrator.
const choicePrefix = "I choose to: "

// Generator is the gateway surface the orchestrator drives.
type Generator interface {
	GenerateText(ctx context.Context, history []story.Message) (string, error)
	GenerateImage(ctx context.Context, prompt string) (string, error)
	GenerateAudio(ctx context.Context, text string) (string, error)
}

// Service orchestrates one game turn: player input in, scene, choices and
// asset references out. Asset failures degrade the result instead of
// failing the turn; only text generation is fatal.
type Service struct {
	sessions     *session.Registry
	gen          Generator
	systemPrompt string
}

// NewService wires the orchestrator. An empty systemPrompt selects the
// default narrator ruleset.
func NewService(sessions *session.Registry, gen Generator, systemPrompt string) *Service {
	if strings.TrimSpace(systemPrompt) == "" {
		systemPrompt = ai.DefaultSystemPrompt
	}
	return &Service{sessions: sessions, gen: gen, systemPrompt: systemPrompt}
}

// BeginTurn starts a brand-new story for the session and plays its first
// turn. An existing transcript under the same id is reset.
func (s *Service) BeginTurn(ctx context.Context, sessionID, initialPrompt string) (*story.TurnResult, error) {
	if strings.TrimSpace(initialPrompt) == "" {
		return nil, ErrPromptRequired
	}

	if err := s.sessions.Ensure(ctx, sessionID, s.systemPrompt); err != nil {
		return nil, err
	}
	if err := s.sessions.Reset(ctx, sessionID, s.systemPrompt); err != nil {
		return nil, err
	}
	if _, err := s.sessions.AppendUser(ctx, sessionID, initialPrompt); err != nil {
		return nil, err
	}

	log.Printf("[game] starting story for session=%s", sessionID)
	return s.runTurn(ctx, sessionID)
}

// Reset discards the session's story so the id can host a fresh one.
func (s *Service) Reset(ctx context.Context, sessionID string) error {
	return s.sessions.Reset(ctx, sessionID, s.systemPrompt)
}

// ContinueTurn advances an existing story with the player's choice.
func (s *Service) ContinueTurn(ctx context.Context, sessionID, choiceText string) (*story.TurnResult, error) {
	if strings.TrimSpace(choiceText) == "" {
		return nil, ErrChoiceRequired
	}

	if _, err := s.sessions.AppendUser(ctx, sessionID, choicePrefix+choiceText); err != nil {
		return nil, err
	}

	log.Printf("[game] processing choice for session=%s", sessionID)
	return s.runTurn(ctx, sessionID)
}

// runTurn drives one turn through text generation, parsing, and the
// optional asset generations.
func (s *Service) runTurn(ctx context.Context, sessionID string) (*story.TurnResult, error) {
	result := &story.TurnResult{Choices: []string{}}

	history, err := s.sessions.History(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	raw, err := s.gen.GenerateText(ctx, history)
	if err != nil {
		log.Printf("[game] text generation failed for session=%s: %v", sessionID, err)
		result.AddError(story.StageStory, err.Error())
		return result, err
	}

	if strings.TrimSpace(raw) == "" {
		log.Printf("[game] empty narration for session=%s, skipping assets", sessionID)
		return result, nil
	}

	parsed := scene.Parse(raw)
	// The transcript keeps the full backend output, not the parsed pieces,
	// so the narrator sees its own formatting on the next turn.
	if _, err := s.sessions.AppendAssistant(ctx, sessionID, raw); err != nil {
		return nil, err
	}

	result.Scene = parsed.Scene
	if parsed.Choices != nil {
		result.Choices = parsed.Choices
	}

	s.generateAssets(ctx, sessionID, result)
	return result, nil
}

// generateAssets attempts image and audio generation for the scene. The two
// calls share no mutable state and run concurrently; each failure is
// recorded as a non-fatal tagged error.
func (s *Service) generateAssets(ctx context.Context, sessionID string, result *story.TurnResult) {
	var (
		wg       sync.WaitGroup
		imageURL string
		audioURL string
		imageErr error
		audioErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		imageURL, imageErr = s.gen.GenerateImage(ctx, ai.BuildImagePrompt(result.Scene))
	}()
	go func() {
		defer wg.Done()
		audioURL, audioErr = s.gen.GenerateAudio(ctx, result.Scene)
	}()
	wg.Wait()

	if imageErr != nil {
		log.Printf("[game] image generation failed for session=%s: %v", sessionID, imageErr)
		result.AddError(story.StageImage, imageErr.Error())
	} else {
		result.ImageURL = imageURL
	}

	if audioErr != nil {
		log.Printf("[game] audio generation failed for session=%s: %v", sessionID, audioErr)
		result.AddError(story.StageAudio, audioErr.Error())
	} else {
		result.AudioURL = audioURL
	}
}

package game_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kwalter/dungeonloom/internal/model/story"
	"github.com/kwalter/dungeonloom/internal/service/game"
	"github.com/kwalter/dungeonloom/internal/service/session"
)

const rawNarration = "SCENE:\nYou enter a cave.\n\nCHOICES:\n1. Go left.\n2. Go right.\n3. Turn back."

type stubGenerator struct {
	textReply  string
	textErr    error
	imageURL   string
	imageErr   error
	audioURL   string
	audioErr   error
	imageCalls int
	audioCalls int
}

func (s *stubGenerator) GenerateText(_ context.Context, _ []story.Message) (string, error) {
	return s.textReply, s.textErr
}

func (s *stubGenerator) GenerateImage(_ context.Context, _ string) (string, error) {
	s.imageCalls++
	return s.imageURL, s.imageErr
}

func (s *stubGenerator) GenerateAudio(_ context.Context, _ string) (string, error) {
	s.audioCalls++
	return s.audioURL, s.audioErr
}

func newService(gen *stubGenerator) (*game.Service, *session.Registry) {
	sessions := session.NewRegistry("narrator ruleset")
	return game.NewService(sessions, gen, "narrator ruleset"), sessions
}

func TestBeginTurnHappyPath(t *testing.T) {
	gen := &stubGenerator{
		textReply: rawNarration,
		imageURL:  "https://img.example/cave.png",
		audioURL:  "/audio/narration_abc.mp3",
	}
	svc, sessions := newService(gen)

	result, err := svc.BeginTurn(context.Background(), "sess-1", "Begin in a dark cave.")
	if err != nil {
		t.Fatalf("BeginTurn err: %v", err)
	}

	if result.Scene != "You enter a cave." {
		t.Fatalf("unexpected scene: %q", result.Scene)
	}
	if len(result.Choices) != 3 || result.Choices[0] != "Go left." {
		t.Fatalf("unexpected choices: %v", result.Choices)
	}
	if result.ImageURL != "https://img.example/cave.png" {
		t.Fatalf("unexpected image url: %q", result.ImageURL)
	}
	if result.AudioURL != "/audio/narration_abc.mp3" {
		t.Fatalf("unexpected audio url: %q", result.AudioURL)
	}
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}

	// The transcript keeps the raw backend output, not the parsed scene.
	history, _ := sessions.History(context.Background(), "sess-1")
	last := history[len(history)-1]
	if last.Role != story.RoleAssistant || last.Content != rawNarration {
		t.Fatalf("raw narration missing from transcript: %+v", last)
	}
}

func TestBeginTurnTextFailureIsFatal(t *testing.T) {
	gen := &stubGenerator{textErr: errors.New("model unreachable")}
	svc, _ := newService(gen)

	result, err := svc.BeginTurn(context.Background(), "sess-1", "Begin.")
	if err == nil {
		t.Fatal("expected turn-level failure")
	}

	if result == nil {
		t.Fatal("failed turn must still return a result")
	}
	if result.Scene != "" || len(result.Choices) != 0 {
		t.Fatalf("failed turn must carry no scene/choices: %+v", result)
	}
	if !result.Failed() {
		t.Fatal("result must report story-stage failure")
	}
	if gen.imageCalls != 0 || gen.audioCalls != 0 {
		t.Fatal("asset generation must not run after text failure")
	}
}

func TestContinueTurnPartialImageFailure(t *testing.T) {
	gen := &stubGenerator{
		textReply: rawNarration,
		imageErr:  errors.New("image generation failed after 3 attempts: 429"),
		audioURL:  "/audio/narration_x.mp3",
	}
	svc, sessions := newService(gen)

	sessions.Ensure(context.Background(), "sess-1", "ruleset")
	result, err := svc.ContinueTurn(context.Background(), "sess-1", "Go left.")
	if err != nil {
		t.Fatalf("asset failure must not fail the turn: %v", err)
	}

	if result.Scene == "" || len(result.Choices) == 0 {
		t.Fatal("scene and choices must survive an asset failure")
	}
	if result.ImageURL != "" {
		t.Fatalf("expected empty image ref, got %q", result.ImageURL)
	}
	if result.AudioURL == "" {
		t.Fatal("audio ref must be set")
	}
	if len(result.Errors) != 1 || result.Errors[0].Stage != story.StageImage {
		t.Fatalf("expected one image-tagged error, got %v", result.Errors)
	}
	if result.Failed() {
		t.Fatal("partial asset failure must not mark the turn failed")
	}
}

func TestContinueTurnPrefixesChoice(t *testing.T) {
	gen := &stubGenerator{textReply: rawNarration}
	svc, sessions := newService(gen)

	sessions.Ensure(context.Background(), "sess-1", "ruleset")
	if _, err := svc.ContinueTurn(context.Background(), "sess-1", "Go left."); err != nil {
		t.Fatalf("ContinueTurn err: %v", err)
	}

	history, _ := sessions.History(context.Background(), "sess-1")
	var userMsg string
	for _, msg := range history {
		if msg.Role == story.RoleUser {
			userMsg = msg.Content
		}
	}
	if !strings.HasPrefix(userMsg, "I choose to: ") {
		t.Fatalf("choice not framed for the narrator: %q", userMsg)
	}
}

func TestContinueTurnUnknownSession(t *testing.T) {
	svc, _ := newService(&stubGenerator{textReply: rawNarration})

	if _, err := svc.ContinueTurn(context.Background(), "missing", "Go left."); !errors.Is(err, session.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestEmptyNarrationSkipsAssets(t *testing.T) {
	gen := &stubGenerator{textReply: "   "}
	svc, sessions := newService(gen)

	result, err := svc.BeginTurn(context.Background(), "sess-1", "Begin.")
	if err != nil {
		t.Fatalf("empty narration is not a failure: %v", err)
	}

	if result.Scene != "" {
		t.Fatalf("expected empty scene, got %q", result.Scene)
	}
	if gen.imageCalls != 0 || gen.audioCalls != 0 {
		t.Fatal("assets must be skipped for an empty scene")
	}

	// Nothing useful to remember: the transcript must not grow an
	// assistant message for an empty response.
	history, _ := sessions.History(context.Background(), "sess-1")
	for _, msg := range history {
		if msg.Role == story.RoleAssistant {
			t.Fatalf("unexpected assistant message: %+v", msg)
		}
	}
}

func TestBeginTurnResetsExistingStory(t *testing.T) {
	gen := &stubGenerator{textReply: rawNarration}
	svc, sessions := newService(gen)

	if _, err := svc.BeginTurn(context.Background(), "sess-1", "First story."); err != nil {
		t.Fatalf("BeginTurn err: %v", err)
	}
	if _, err := svc.BeginTurn(context.Background(), "sess-1", "Second story."); err != nil {
		t.Fatalf("BeginTurn err: %v", err)
	}

	history, _ := sessions.History(context.Background(), "sess-1")
	// system + user + assistant for the fresh story only
	if len(history) != 3 {
		t.Fatalf("expected reset transcript of 3 messages, got %d", len(history))
	}
	if history[1].Content != "Second story." {
		t.Fatalf("old story leaked into transcript: %q", history[1].Content)
	}
}

func TestBeginTurnValidation(t *testing.T) {
	svc, _ := newService(&stubGenerator{})

	if _, err := svc.BeginTurn(context.Background(), "sess-1", " "); !errors.Is(err, game.ErrPromptRequired) {
		t.Fatalf("expected ErrPromptRequired, got %v", err)
	}
	if _, err := svc.ContinueTurn(context.Background(), "sess-1", ""); !errors.Is(err, game.ErrChoiceRequired) {
		t.Fatalf("expected ErrChoiceRequired, got %v", err)
	}
}

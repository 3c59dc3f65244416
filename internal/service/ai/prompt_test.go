package ai

import (
	"strings"
	"testing"
)

func TestBuildImagePromptShortScene(t *testing.T) {
	prompt := BuildImagePrompt("You enter a cave.")

	if !strings.HasSuffix(prompt, "You enter a cave.") {
		t.Fatalf("scene text missing from prompt: %q", prompt)
	}
	if !strings.HasPrefix(prompt, "Digital painting") {
		t.Fatalf("style prefix missing from prompt: %q", prompt)
	}
}

func TestBuildImagePromptTruncatesAtSentence(t *testing.T) {
	scene := strings.Repeat("The corridor stretches on. ", 60)
	prompt := BuildImagePrompt(scene)

	if len(prompt) > 960 {
		t.Fatalf("prompt too long: %d", len(prompt))
	}
	if !strings.HasSuffix(prompt, "...") {
		t.Fatalf("truncated prompt must end with ellipsis: %q", prompt[len(prompt)-10:])
	}
}

func TestBuildImagePromptTruncatesWithoutSentenceBoundary(t *testing.T) {
	scene := strings.Repeat("a", 2000)
	prompt := BuildImagePrompt(scene)

	if len(prompt) > 960 {
		t.Fatalf("prompt too long: %d", len(prompt))
	}
}

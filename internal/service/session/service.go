package session

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kwalter/dungeonloom/internal/model/story"
)

// ErrSessionNotFound is returned when a transcript id is unknown.
var ErrSessionNotFound = errors.New("session not found")

// Registry owns the in-memory session transcripts. Every transcript starts
// with exactly one system message at index 0 and grows append-only. The
// registry serializes individual appends; at most one in-flight turn per
// session remains a caller invariant.
type Registry struct {
	defaultPrompt string

	mu          sync.RWMutex
	transcripts map[string][]story.Message
}

// NewRegistry creates the transcript registry. defaultPrompt seeds sessions
// created or reset without an explicit system prompt.
func NewRegistry(defaultPrompt string) *Registry {
	return &Registry{
		defaultPrompt: defaultPrompt,
		transcripts:   make(map[string][]story.Message),
	}
}

// Create provisions a new transcript and returns its generated id.
func (r *Registry) Create(_ context.Context, systemPrompt string) (string, error) {
	id := uuid.NewString()

	r.mu.Lock()
	r.transcripts[id] = r.seed(id, systemPrompt)
	r.mu.Unlock()

	return id, nil
}

// Ensure provisions a transcript under a caller-supplied id if one does not
// exist yet. Existing transcripts are left untouched.
func (r *Registry) Ensure(_ context.Context, id, systemPrompt string) error {
	if id == "" {
		return ErrSessionNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.transcripts[id]; !ok {
		log.Printf("[session] creating transcript for session=%s", id)
		r.transcripts[id] = r.seed(id, systemPrompt)
	}
	return nil
}

// Reset discards all messages for the session and reinitializes it with a
// single system message, for reuse with a brand-new story.
func (r *Registry) Reset(_ context.Context, id, systemPrompt string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.transcripts[id]; !ok {
		return ErrSessionNotFound
	}
	r.transcripts[id] = r.seed(id, systemPrompt)
	return nil
}

// AppendUser appends a player message and returns the new transcript length.
// Empty content is a logged no-op.
func (r *Registry) AppendUser(ctx context.Context, id, content string) (int, error) {
	return r.append(ctx, id, story.RoleUser, content)
}

// AppendAssistant appends a generated message and returns the new transcript
// length. Empty content is a logged no-op.
func (r *Registry) AppendAssistant(ctx context.Context, id, content string) (int, error) {
	return r.append(ctx, id, story.RoleAssistant, content)
}

// History returns a snapshot of the transcript in append order.
func (r *Registry) History(_ context.Context, id string) ([]story.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	messages, ok := r.transcripts[id]
	if !ok {
		return nil, ErrSessionNotFound
	}

	copied := make([]story.Message, len(messages))
	copy(copied, messages)
	return copied, nil
}

func (r *Registry) append(_ context.Context, id string, role story.Role, content string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	messages, ok := r.transcripts[id]
	if !ok {
		return 0, ErrSessionNotFound
	}

	if strings.TrimSpace(content) == "" {
		log.Printf("[session] ignoring empty %s message for session=%s", role, id)
		return len(messages), nil
	}

	r.transcripts[id] = append(messages, story.Message{
		ID:        uuid.NewString(),
		SessionID: id,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	})
	return len(messages) + 1, nil
}

func (r *Registry) seed(id, systemPrompt string) []story.Message {
	prompt := systemPrompt
	if strings.TrimSpace(prompt) == "" {
		prompt = r.defaultPrompt
	}

	messages := make([]story.Message, 0, 16)
	return append(messages, story.Message{
		ID:        uuid.NewString(),
		SessionID: id,
		Role:      story.RoleSystem,
		Content:   prompt,
		CreatedAt: time.Now().UTC(),
	})
}

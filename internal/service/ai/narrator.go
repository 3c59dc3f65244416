package ai

import (
	"context"
	"fmt"
	"log"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/kwalter/dungeonloom/internal/config"
	"github.com/kwalter/dungeonloom/internal/model/story"
	"github.com/kwalter/dungeonloom/internal/service/generation"
)

// Narrator drives the story-generation chat model. It satisfies the
// generation gateway's text backend contract.
type Narrator struct {
	chatModel model.ChatModel
	chain     compose.Runnable[map[string]any, *schema.Message]
}

// NewNarrator builds the narration chain on top of the configured model.
func NewNarrator(ctx context.Context, cfg config.AIConfig) (*Narrator, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile narration chain: %w", err)
	}

	return &Narrator{chatModel: chatModel, chain: runnable}, nil
}

// Generate produces the next raw narrative block for the transcript. Model
// invocation failures are classified transient so the gateway retries them.
func (n *Narrator) Generate(ctx context.Context, history []story.Message) (string, error) {
	input, err := chainInput(history)
	if err != nil {
		return "", err
	}

	response, err := n.chain.Invoke(ctx, input)
	if err != nil {
		return "", generation.MarkTransient(fmt.Errorf("failed to run narration chain: %w", err))
	}

	log.Printf("[ai] generated narration, length=%d", len(response.Content))
	return response.Content, nil
}

// chainInput splits the transcript into the template slots: the leading
// system message, the latest user message as the query, and everything in
// between as history.
func chainInput(history []story.Message) (map[string]any, error) {
	if len(history) < 2 {
		return nil, fmt.Errorf("transcript needs a system prompt and a user message, have %d messages", len(history))
	}
	if history[0].Role != story.RoleSystem {
		return nil, fmt.Errorf("transcript must start with a system message, got %s", history[0].Role)
	}

	last := history[len(history)-1]
	if last.Role != story.RoleUser {
		return nil, fmt.Errorf("transcript must end with a user message, got %s", last.Role)
	}

	middle := history[1 : len(history)-1]
	converted := make([]*schema.Message, 0, len(middle))
	for _, msg := range middle {
		switch msg.Role {
		case story.RoleUser:
			converted = append(converted, schema.UserMessage(msg.Content))
		case story.RoleAssistant:
			converted = append(converted, schema.AssistantMessage(msg.Content, nil))
		}
	}

	return map[string]any{
		"system":  history[0].Content,
		"history": converted,
		"query":   last.Content,
	}, nil
}

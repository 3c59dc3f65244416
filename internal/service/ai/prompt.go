package ai

import "strings"

// DefaultSystemPrompt is the narrator ruleset given to the text backend for
// every new story. The SCENE:/CHOICES: structure it demands is what the
// scene parser extracts downstream.
const DefaultSystemPrompt = `You are an AI Dungeon Master creating a dynamic choose-your-own-adventure story.
Follow these instructions precisely:
1.  **Narrate Vividly:** Describe scenes, characters, and events with engaging detail. Use sensory language. Keep descriptions concise but atmospheric (2-4 paragraphs usually).
2.  **Maintain Coherence:** Ensure the story flows logically based on the player's previous choices and the established narrative. Remember key details.
3.  **Offer Choices:** After describing the scene, ALWAYS provide 3 distinct, numbered choices for the player. Each choice should lead to a different, meaningful consequence or path.
4.  **Format Output STRICTLY:** Your entire response MUST follow this format:
    SCENE:
    [Your narrative description for the current scene goes here.]

    CHOICES:
    1. [Action or decision choice 1]
    2. [Action or decision choice 2]
    3. [Action or decision choice 3]
    Do NOT add any extra text, greetings, or commentary outside this structure.
`

const imagePromptPrefix = "Digital painting, dark fantasy atmosphere, illustration for a choose your own adventure game: "

// maxImagePromptLen keeps prompts inside the image backend's input limit.
const maxImagePromptLen = 950

// BuildImagePrompt derives an illustration prompt from the scene text,
// truncating at a sentence or word boundary when the scene is long.
func BuildImagePrompt(sceneText string) string {
	prompt := imagePromptPrefix + sceneText
	if len(prompt) <= maxImagePromptLen {
		return prompt
	}

	cut := strings.LastIndex(prompt[:maxImagePromptLen], ".")
	if cut == -1 {
		cut = strings.LastIndex(prompt[:maxImagePromptLen], " ")
	}
	if cut == -1 {
		cut = maxImagePromptLen
	}
	return strings.TrimSpace(prompt[:cut]) + "..."
}

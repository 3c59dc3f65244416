package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/kwalter/dungeonloom/internal/analysis/scene"
	"github.com/kwalter/dungeonloom/internal/service/ai"
)

// Offline exerciser for the scene parser and prompt builders. Feed it a raw
// model response on stdin or via -text and inspect what the server would
// extract from it.
func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	text := flag.String("text", "", "raw narration text to parse (default: read stdin)")
	showPrompts := flag.Bool("prompts", false, "print the system prompt and derived image prompt")
	flag.Parse()

	raw := *text
	if raw == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			log.Fatalf("failed to read stdin: %v", err)
		}
		raw = string(data)
	}

	result := scene.Parse(raw)

	fmt.Println("SCENE")
	fmt.Println(result.Scene)
	fmt.Println()
	fmt.Printf("CHOICES (%d)\n", len(result.Choices))
	for i, choice := range result.Choices {
		fmt.Printf("  %d. %s\n", i+1, choice)
	}

	if *showPrompts {
		fmt.Println()
		fmt.Println("IMAGE PROMPT")
		fmt.Println(ai.BuildImagePrompt(result.Scene))
		fmt.Println()
		fmt.Println("SYSTEM PROMPT")
		fmt.Printf("%s\n", ai.DefaultSystemPrompt)
	}
}

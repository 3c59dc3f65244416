package scene

import "strings"

const (
	sceneMarker  = "SCENE:"
	choiceMarker = "CHOICES:"

	// PlaceholderScene substitutes an empty scene segment so callers always
	// have narration to render.
	PlaceholderScene = "(No scene description provided)"

	// lookback bounds the trailing-line scan for an unmarked choices block.
	lookback = 4
)

// Result holds the structured pieces extracted from one generated response.
type Result struct {
	Scene   string
	Choices []string
}

// Parse extracts a scene description and a list of player choices from
// free-form generated text. It is a best-effort heuristic, not a grammar:
// it never fails, and degrades to returning the whole input as the scene
// when no structure can be found.
//
// Extraction order: explicit SCENE:/CHOICES: markers first, then a scan of
// up to four trailing lines for a numbered run ("1." through "5.").
func Parse(raw string) Result {
	scenePart := strings.TrimSpace(raw)
	choicesPart := ""

	choiceIdx := strings.Index(raw, choiceMarker)
	sceneIdx := strings.Index(raw, sceneMarker)

	switch {
	case choiceIdx != -1:
		choicesPart = strings.TrimSpace(raw[choiceIdx+len(choiceMarker):])
		prefix := raw[:choiceIdx]
		if sceneIdx != -1 && sceneIdx < choiceIdx {
			prefix = raw[sceneIdx+len(sceneMarker) : choiceIdx]
		}
		scenePart = strings.TrimSpace(prefix)
	case sceneIdx != -1:
		scenePart = strings.TrimSpace(raw[sceneIdx+len(sceneMarker):])
		scenePart, choicesPart = splitTrailingChoices(scenePart)
	default:
		scenePart, choicesPart = splitTrailingChoices(scenePart)
	}

	if scenePart == "" {
		scenePart = PlaceholderScene
	}

	return Result{Scene: scenePart, Choices: parseChoices(choicesPart)}
}

// splitTrailingChoices scans the last lines of text for a run of numbered
// entries and splits it off as the choices block.
func splitTrailingChoices(text string) (scenePart, choicesPart string) {
	lines := strings.Split(text, "\n")

	start := -1
	for i := len(lines) - 1; i >= 0 && i > len(lines)-1-lookback; i-- {
		if startsNumbered(lines[i]) {
			start = i
		} else if start != -1 {
			break
		}
	}

	if start == -1 {
		return text, ""
	}

	scenePart = strings.TrimSpace(strings.Join(lines[:start], "\n"))
	choicesPart = strings.Join(lines[start:], "\n")
	return scenePart, choicesPart
}

// startsNumbered reports whether the trimmed line begins with "1." .. "5.".
func startsNumbered(line string) bool {
	trimmed := strings.TrimSpace(line)
	if len(trimmed) < 2 {
		return false
	}
	return trimmed[0] >= '1' && trimmed[0] <= '5' && trimmed[1] == '.'
}

// parseChoices turns a choices block into individual choice texts. Lines
// containing a period contribute everything after the first period; when
// that yields nothing despite a non-empty block, every non-empty line is
// kept verbatim so malformed numbering still surfaces choices.
func parseChoices(block string) []string {
	if block == "" {
		return nil
	}

	choices := make([]string, 0, 3)
	for _, line := range strings.Split(block, "\n") {
		if strings.TrimSpace(line) == "" || !strings.Contains(line, ".") {
			continue
		}
		_, after, _ := strings.Cut(line, ".")
		choices = append(choices, strings.TrimSpace(after))
	}

	if len(choices) == 0 {
		for _, line := range strings.Split(block, "\n") {
			if trimmed := strings.TrimSpace(line); trimmed != "" {
				choices = append(choices, trimmed)
			}
		}
	}

	return choices
}

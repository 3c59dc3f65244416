package story

// Turn stages used to tag errors in a TurnResult.
const (
	StageStory = "story"
	StageImage = "image"
	StageAudio = "audio"
)

// TurnError records a single failed stage of a turn.
type TurnError struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

// TurnResult is the outcome of one game turn. It is returned to the caller
// once and never persisted.
type TurnResult struct {
	Scene    string      `json:"scene"`
	Choices  []string    `json:"choices"`
	ImageURL string      `json:"imageUrl,omitempty"`
	AudioURL string      `json:"audioUrl,omitempty"`
	Errors   []TurnError `json:"errors,omitempty"`
}

// Failed reports whether the turn failed on its primary output. Asset-stage
// errors leave the turn usable and do not count.
func (r *TurnResult) Failed() bool {
	for _, e := range r.Errors {
		if e.Stage == StageStory {
			return true
		}
	}
	return false
}

// AddError appends a tagged error descriptor.
func (r *TurnResult) AddError(stage, message string) {
	r.Errors = append(r.Errors, TurnError{Stage: stage, Message: message})
}

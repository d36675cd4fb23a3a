package model

// ErrorResponse is the single error envelope written to callers.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Envelope marks a successful JSON response; embed it next to the payload.
type Envelope struct {
	Success bool `json:"success"`
}

// OK returns a success envelope.
func OK() Envelope { return Envelope{Success: true} }

// TextRequest carries free text to analyse.
type TextRequest struct {
	Text string `json:"text" validate:"required,max=10000"`
}

// RewriteRequest asks for a rewritten version of Text in Style.
type RewriteRequest struct {
	Text  string `json:"text" validate:"required,max=10000"`
	Style string `json:"style" validate:"omitempty,oneof=formal casual concise friendly professional simple"`
}

// WordGameRequest asks for a guessable word in Category.
// Duration is the round length in seconds and steers the difficulty.
type WordGameRequest struct {
	Category string `json:"category" validate:"required,max=100"`
	Duration int    `json:"duration" validate:"gte=0,lte=3600"`
}

// NameRequest asks for names combining Name1 and Name2.
type NameRequest struct {
	Name1   string `json:"name1" validate:"required,max=100"`
	Name2   string `json:"name2" validate:"required,max=100"`
	Context string `json:"context" validate:"max=500"`
}

// QuizRequest asks for a single question about Topic.
type QuizRequest struct {
	Topic      string `json:"topic" validate:"required,max=200"`
	Difficulty string `json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
}

// Correction is one suggested fix in a GrammarResult.
type Correction struct {
	Original    string `json:"original"`
	Suggestion  string `json:"suggestion"`
	Type        string `json:"type"`
	Explanation string `json:"explanation"`
}

// GrammarResult lists corrections for a text.
type GrammarResult struct {
	Corrections []Correction `json:"corrections"`
}

// ToneResult describes the tone and clarity of a text.
type ToneResult struct {
	Tone         string   `json:"tone"`
	ClarityScore int      `json:"clarityScore"`
	Suggestions  []string `json:"suggestions"`
}

// WordGameResult is a word to guess and a hint for it.
type WordGameResult struct {
	Word string `json:"word"`
	Hint string `json:"hint"`
}

// NameResult lists generated names.
type NameResult struct {
	Names []string `json:"names"`
}

// QuizResult is one question and its answer.
type QuizResult struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// TextResult is plain generated text.
type TextResult struct {
	Text string `json:"text"`
}

// Success responses: the envelope flag next to the tool's fields.
type (
	GrammarResponse struct {
		Envelope
		GrammarResult
	}
	ToneResponse struct {
		Envelope
		ToneResult
	}
	WordGameResponse struct {
		Envelope
		WordGameResult
	}
	NameResponse struct {
		Envelope
		NameResult
	}
	QuizResponse struct {
		Envelope
		QuizResult
	}
	TextResponse struct {
		Envelope
		TextResult
	}
)

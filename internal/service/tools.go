package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/chaturvedibitan-tech/easyutilityhub-backend/internal/model"
)

var (
	grammarSchema = model.Object(
		model.Field{Name: "corrections", Schema: model.ArrayOf(model.Object(
			model.Field{Name: "original", Schema: model.String("The exact text that contains the issue.")},
			model.Field{Name: "suggestion", Schema: model.String("The corrected text.")},
			model.Field{Name: "type", Schema: model.Enum("Kind of issue.", "grammar", "spelling", "punctuation", "style")},
			model.Field{Name: "explanation", Schema: model.String("One short sentence explaining the fix.")},
		))},
	)

	toneSchema = model.Object(
		model.Field{Name: "tone", Schema: model.String("One or two words describing the overall tone.")},
		model.Field{Name: "clarityScore", Schema: model.Integer("Clarity from 0 to 100.")},
		model.Field{Name: "suggestions", Schema: model.ArrayOf(model.String("A concrete improvement."))},
	)

	wordGameSchema = model.Object(
		model.Field{Name: "word", Schema: model.String("A single word to guess.")},
		model.Field{Name: "hint", Schema: model.String("A hint that does not contain the word.")},
	)

	nameSchema = model.Object(
		model.Field{Name: "names", Schema: model.ArrayOf(model.String("A generated name."))},
	)

	quizSchema = model.Object(
		model.Field{Name: "question", Schema: model.String("The quiz question.")},
		model.Field{Name: "answer", Schema: model.String("The short correct answer.")},
	)
)

// CheckGrammar lists grammar, spelling, punctuation and style corrections.
func (s *GenerativeService) CheckGrammar(ctx context.Context, req *model.TextRequest) (*model.GrammarResult, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, invalidInput("Text is required.")
	}
	prompt := "Proofread the text below. Report every grammar, spelling, punctuation or style " +
		"problem as a correction. Return an empty list if the text has no problems.\n\nText:\n" + text

	res, err := generateJSON[model.GrammarResult](ctx, s, prompt, grammarSchema, nil)
	if err != nil {
		return nil, err
	}
	if res.Corrections == nil {
		res.Corrections = []model.Correction{}
	}
	return res, nil
}

// AnalyzeTone describes the tone of a text and scores its clarity.
func (s *GenerativeService) AnalyzeTone(ctx context.Context, req *model.TextRequest) (*model.ToneResult, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, invalidInput("Text is required.")
	}
	prompt := "Analyze the tone of the text below. Name the tone, rate its clarity from 0 to 100 " +
		"and give up to three suggestions to improve it.\n\nText:\n" + text

	res, err := generateJSON[model.ToneResult](ctx, s, prompt, toneSchema, nil)
	if err != nil {
		return nil, err
	}
	res.ClarityScore = min(max(res.ClarityScore, 0), 100)
	return res, nil
}

// WordGame picks a word from a category and a hint for it. Shorter rounds
// get easier words.
func (s *GenerativeService) WordGame(ctx context.Context, req *model.WordGameRequest) (*model.WordGameResult, error) {
	category := strings.TrimSpace(req.Category)
	if category == "" {
		return nil, invalidInput("Category is required.")
	}
	level := "moderately difficult"
	switch {
	case req.Duration > 0 && req.Duration <= 30:
		level = "easy"
	case req.Duration > 90:
		level = "challenging"
	}
	prompt := fmt.Sprintf("Pick one %s word from the category %q for a guessing game and write a "+
		"one-sentence hint that does not contain the word.", level, category)

	return generateJSON[model.WordGameResult](ctx, s, prompt, wordGameSchema, nil)
}

// GenerateNames blends two names into new ones.
func (s *GenerativeService) GenerateNames(ctx context.Context, req *model.NameRequest) (*model.NameResult, error) {
	name1, name2 := strings.TrimSpace(req.Name1), strings.TrimSpace(req.Name2)
	if name1 == "" || name2 == "" {
		return nil, invalidInput("Both names are required.")
	}
	prompt := fmt.Sprintf("Create five short, pronounceable names that blend %q and %q.", name1, name2)
	if c := strings.TrimSpace(req.Context); c != "" {
		prompt += fmt.Sprintf(" The names are for: %s.", c)
	}

	return generateJSON(ctx, s, prompt, nameSchema, func(res *model.NameResult) string {
		if len(res.Names) == 0 {
			return "output has no names"
		}
		return ""
	})
}

// Quiz writes one question about a topic.
func (s *GenerativeService) Quiz(ctx context.Context, req *model.QuizRequest) (*model.QuizResult, error) {
	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		return nil, invalidInput("Topic is required.")
	}
	difficulty := req.Difficulty
	if difficulty == "" {
		difficulty = "medium"
	}
	prompt := fmt.Sprintf("Write one %s quiz question about %q with a short, unambiguous answer.", difficulty, topic)

	return generateJSON[model.QuizResult](ctx, s, prompt, quizSchema, nil)
}

// Rewrite returns the text rewritten in the requested style.
func (s *GenerativeService) Rewrite(ctx context.Context, req *model.RewriteRequest) (*model.TextResult, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, invalidInput("Text is required.")
	}
	style := req.Style
	if style == "" {
		style = "clear"
	}
	prompt := fmt.Sprintf("Rewrite the text below in a %s style. Keep its meaning. "+
		"Reply with the rewritten text only.\n\nText:\n%s", style, text)

	out, err := s.GenerateText(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return &model.TextResult{Text: out}, nil
}

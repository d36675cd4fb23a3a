package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/chaturvedibitan-tech/easyutilityhub-backend/internal/model"
	"github.com/chaturvedibitan-tech/easyutilityhub-backend/internal/service"
)

// ToolHandler serves the Gemini-backed text tools.
type ToolHandler struct {
	gen    *service.GenerativeService
	logger *slog.Logger
}

// NewToolHandler creates a ToolHandler.
func NewToolHandler(gen *service.GenerativeService, logger *slog.Logger) *ToolHandler {
	return &ToolHandler{gen: gen, logger: logger.With("component", "tool_handler")}
}

// runTool decodes and validates a Req, runs call and writes the wrapped
// result. Every tool route shares this flow.
func runTool[Req, Res, Out any](h *ToolHandler, c echo.Context, call func(context.Context, *Req) (*Res, error), wrap func(Res) Out) error {
	var req Req
	if err := bindJSON(c, &req); err != nil {
		return respondError(c, h.logger, err)
	}
	res, err := call(c.Request().Context(), &req)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, wrap(*res))
}

// GrammarCheck handles POST /api/grammar-check.
func (h *ToolHandler) GrammarCheck(c echo.Context) error {
	return runTool(h, c, h.gen.CheckGrammar, func(r model.GrammarResult) model.GrammarResponse {
		return model.GrammarResponse{Envelope: model.OK(), GrammarResult: r}
	})
}

// ToneAnalyze handles POST /api/tone-analyze.
func (h *ToolHandler) ToneAnalyze(c echo.Context) error {
	return runTool(h, c, h.gen.AnalyzeTone, func(r model.ToneResult) model.ToneResponse {
		return model.ToneResponse{Envelope: model.OK(), ToneResult: r}
	})
}

// WordGame handles POST /api/word-game.
func (h *ToolHandler) WordGame(c echo.Context) error {
	return runTool(h, c, h.gen.WordGame, func(r model.WordGameResult) model.WordGameResponse {
		return model.WordGameResponse{Envelope: model.OK(), WordGameResult: r}
	})
}

// NameGenerator handles POST /api/name-generator.
func (h *ToolHandler) NameGenerator(c echo.Context) error {
	return runTool(h, c, h.gen.GenerateNames, func(r model.NameResult) model.NameResponse {
		return model.NameResponse{Envelope: model.OK(), NameResult: r}
	})
}

// Quiz handles POST /api/quiz.
func (h *ToolHandler) Quiz(c echo.Context) error {
	return runTool(h, c, h.gen.Quiz, func(r model.QuizResult) model.QuizResponse {
		return model.QuizResponse{Envelope: model.OK(), QuizResult: r}
	})
}

// Rewrite handles POST /api/rewrite.
func (h *ToolHandler) Rewrite(c echo.Context) error {
	return runTool(h, c, h.gen.Rewrite, func(r model.TextResult) model.TextResponse {
		return model.TextResponse{Envelope: model.OK(), TextResult: r}
	})
}

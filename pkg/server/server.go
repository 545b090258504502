// Package server exposes the chat assistant over HTTP.
package server

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/google/uuid"
	"github.com/perbu/campusrag/pkg/cache"
	"github.com/perbu/campusrag/pkg/history"
	"github.com/perbu/campusrag/pkg/index"
	"github.com/perbu/campusrag/pkg/persona"
	"github.com/perbu/campusrag/pkg/rag"
)

// Answerer produces a reply for a message and its prior turns.
type Answerer interface {
	Answer(ctx context.Context, message string, turns []history.Turn) (*rag.Answer, error)
}

// IndexInfo reports the active index.
type IndexInfo interface {
	Info() index.Info
}

type Options struct {
	Answerer Answerer
	History  *history.Store
	Persona  *persona.Persona
	Index    IndexInfo
	Cache    *cache.ResponseCache
	Logger   *slog.Logger
}

// Server wires the HTTP routes to the orchestrator.
type Server struct {
	app      *fiber.App
	answerer Answerer
	history  *history.Store
	persona  *persona.Persona
	index    IndexInfo
	cache    *cache.ResponseCache
	logger   *slog.Logger
}

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

type chatResponse struct {
	Response  string `json:"response"`
	Source    string `json:"source,omitempty"`
	SessionID string `json:"session_id"`
	Error     string `json:"error,omitempty"`
}

func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.History == nil {
		opts.History = history.NewStore(0, 0)
	}

	s := &Server{
		app: fiber.New(fiber.Config{
			AppName:      "campusrag",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
		}),
		answerer: opts.Answerer,
		history:  opts.History,
		persona:  opts.Persona,
		index:    opts.Index,
		cache:    opts.Cache,
		logger:   opts.Logger,
	}

	s.app.Use(recover.New())
	s.app.Get("/healthz", s.health)

	api := s.app.Group("/api")
	api.Get("/greeting", s.greeting)
	api.Post("/chat", s.chat)
	api.Post("/clear-history", s.clearHistory)
	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen blocks serving HTTP on addr.
func (s *Server) Listen(addr string) error {
	s.logger.Info("http server listening", "addr", addr)
	return s.app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true})
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) greeting(c fiber.Ctx) error {
	msg := ""
	if s.persona != nil {
		msg = s.persona.Messages.Greeting
	}
	return c.JSON(fiber.Map{"message": msg})
}

func (s *Server) chat(c fiber.Ctx) error {
	var req chatRequest
	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if strings.TrimSpace(req.Message) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Mensagem vazia"})
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	turns := s.history.Turns(req.SessionID)
	answer, err := s.answerer.Answer(c.Context(), req.Message, turns)
	if err != nil {
		s.logger.Error("chat failed", "session", req.SessionID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(chatResponse{
			Response:  s.notUnderstood(),
			SessionID: req.SessionID,
			Error:     err.Error(),
		})
	}

	s.history.Append(req.SessionID,
		history.Turn{Role: history.RoleUser, Content: req.Message},
		history.Turn{Role: history.RoleAssistant, Content: answer.Text},
	)

	return c.JSON(chatResponse{
		Response:  answer.Text,
		Source:    answer.Source,
		SessionID: req.SessionID,
	})
}

func (s *Server) clearHistory(c fiber.Ctx) error {
	var req chatRequest
	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	s.history.Clear(req.SessionID)
	return c.JSON(fiber.Map{"status": "success"})
}

func (s *Server) health(c fiber.Ctx) error {
	body := fiber.Map{
		"status":   "ok",
		"sessions": s.history.Sessions(),
	}
	if s.index != nil {
		body["index"] = s.index.Info()
	}
	if s.cache != nil {
		body["cache"] = s.cache.Stats()
	}
	return c.JSON(body)
}

func (s *Server) notUnderstood() string {
	if s.persona != nil {
		return s.persona.Messages.NotUnderstood
	}
	return ""
}

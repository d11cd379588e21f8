package handler

import (
	"github.com/go-telegram/bot"
	"github.com/set-night/dermabot/internal/config"
	"github.com/set-night/dermabot/internal/service"
)

// Handler holds all dependencies needed by command and message handlers.
type Handler struct {
	bot      *bot.Bot
	cfg      *config.Config
	registry *service.Registry
}

// Deps contains all dependencies required to construct a Handler.
type Deps struct {
	Bot      *bot.Bot
	Cfg      *config.Config
	Registry *service.Registry
}

// New creates a new Handler from the provided dependencies.
func New(deps Deps) *Handler {
	return &Handler{
		bot:      deps.Bot,
		cfg:      deps.Cfg,
		registry: deps.Registry,
	}
}

// Package web serves the campaign generator page and the multi-player
// playtest page.
package web

import (
	"context"
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/jwebster45206/dungeon-master/internal/dm"
	"github.com/jwebster45206/dungeon-master/internal/logger"
	"github.com/jwebster45206/dungeon-master/internal/metrics"
	"github.com/jwebster45206/dungeon-master/internal/services/events"
	"github.com/jwebster45206/dungeon-master/internal/services/queue"
	"github.com/jwebster45206/dungeon-master/internal/storage"
	"github.com/jwebster45206/dungeon-master/pkg/campaign"
	"github.com/jwebster45206/dungeon-master/pkg/chat"
	"github.com/jwebster45206/dungeon-master/pkg/event"
	"github.com/jwebster45206/dungeon-master/pkg/state"
)

//go:embed templates/*.html
var templateFS embed.FS

// CampaignGenerator produces campaign outlines and plots.
type CampaignGenerator interface {
	GenerateCampaign(ctx context.Context, details string) (*campaign.Campaign, error)
	GeneratePlot(ctx context.Context, details, players string) (*campaign.Plot, error)
}

// Archive keeps generated campaigns.
type Archive interface {
	SaveCampaign(ctx context.Context, details string, c *campaign.Campaign) (uuid.UUID, error)
	SavePlot(ctx context.Context, details, players string, p *campaign.Plot) (uuid.UUID, error)
	Get(ctx context.Context, id uuid.UUID) (*storage.Record, error)
	List(ctx context.Context, limit int) ([]storage.Record, error)
}

// Game is the shared game the playtest page drives.
type Game interface {
	RunBatch(ctx context.Context, inputs []event.PlayerInput) (*dm.TurnResult, error)
	Session() state.Session
	State() *state.GameState
	History() []chat.ChatMessage
}

// Pinger is a dependency the health check reports on.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options wires the server. Generator and Archive may be nil when the
// campaign page is not served; Game and Queue may be nil when the playtest
// page is not served. Events is optional and feeds /play/events.
type Options struct {
	Generator   CampaignGenerator
	Archive     Archive
	Game        Game
	Queue       queue.ActionQueue
	Events      *events.Broadcaster
	SessionID   string
	TurnTimeout time.Duration
	Health      map[string]Pinger
	Metrics     *metrics.Metrics
	Logger      *slog.Logger
}

// Server holds the handlers' dependencies.
type Server struct {
	opts   Options
	tmpl   *template.Template
	logger *slog.Logger
}

// New parses the page templates and returns a server.
func New(opts Options) (*Server, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.SessionID == "" {
		opts.SessionID = uuid.NewString()
	}
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Server{opts: opts, tmpl: tmpl, logger: opts.Logger}, nil
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/health", s.health)
	if s.opts.Metrics != nil {
		r.Handle("/metrics", s.opts.Metrics.Handler())
	}

	if s.opts.Generator != nil {
		r.Get("/", s.campaignPage)
		r.Post("/campaign", s.generateCampaign)
		r.Get("/campaigns/{id}", s.archivedCampaign)
	}

	if s.opts.Game != nil && s.opts.Queue != nil {
		r.Route("/play", func(r chi.Router) {
			r.Get("/", s.playPage)
			r.Post("/action", s.submitAction)
			r.Post("/turn", s.processTurn)
			r.Get("/session", s.sessionJSON)
			if s.opts.Events != nil {
				r.Get("/events", s.playEvents)
			}
		})
	}
	return r
}

// requestLogger logs each request with its id.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logger.WithRequestID(s.logger, middleware.GetReqID(r.Context())).Info("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start))
	})
}

// render executes a page template. Template errors after the header is
// written can only be logged.
func (s *Server) render(w http.ResponseWriter, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.tmpl.ExecuteTemplate(w, name, data); err != nil {
		s.logger.Error("Error rendering template", "template", name, "error", err)
	}
}

package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	"github.com/tanpawarit/chative-concierge/agent/catalog"
	contractx "github.com/tanpawarit/chative-concierge/agent/contract"
	"github.com/tanpawarit/chative-concierge/agent/outlet"
	statex "github.com/tanpawarit/chative-concierge/agent/state"
)

type Config struct {
	Addr            string        `default:":8080"`
	ReadTimeout     time.Duration `split_words:"true" default:"10s"`
	WriteTimeout    time.Duration `split_words:"true" default:"15s"`
	RequestTimeout  time.Duration `split_words:"true" default:"10s"`
	ShutdownTimeout time.Duration `split_words:"true" default:"10s"`
}

// Concierge is the conversational core as seen from HTTP.
type Concierge interface {
	Handle(ctx context.Context, userID string, text string) (contractx.Result, error)
	Conversation(ctx context.Context, userID string) (*statex.Conversation, error)
	Reset(ctx context.Context, userID string) error
}

type Server struct {
	cfg       Config
	concierge Concierge
	catalog   *catalog.Catalog
	outlets   outlet.Store
	logger    zerolog.Logger
}

func New(cfg Config, concierge Concierge, cat *catalog.Catalog, outlets outlet.Store) (*Server, error) {
	if concierge == nil {
		return nil, errors.New("concierge is required")
	}
	if cat == nil {
		return nil, errors.New("catalog is required")
	}
	if outlets == nil {
		return nil, errors.New("outlet store is required")
	}
	return &Server{
		cfg:       cfg,
		concierge: concierge,
		catalog:   cat,
		outlets:   outlets,
		logger:    log.Logger,
	}, nil
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		hlog.NewHandler(s.logger),
		hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
			hlog.FromRequest(r).Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("request_id", middleware.GetReqID(r.Context())).
				Int("status", status).
				Int("size", size).
				Dur("duration", duration).
				Msg("http request")
		}),
		middleware.Recoverer,
	)
	if s.cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(s.cfg.RequestTimeout))
	}

	r.Get("/health", s.health)
	r.Post("/chat", s.chat)
	r.Get("/products", s.products)
	r.Get("/outlets", s.searchOutlets)
	r.Route("/sessions/{userID}", func(r chi.Router) {
		r.Get("/", s.session)
		r.Post("/reset", s.reset)
	})
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Routes(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.cfg.Addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	s.logger.Info().Msg("http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}

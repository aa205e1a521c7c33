package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"golang.org/x/sync/errgroup"

	"github.com/AJassim2/padelcast-cloud/internal/config"
	"github.com/AJassim2/padelcast-cloud/internal/scoreboard"
)

type App struct {
	cfg config.Config
	log *slog.Logger

	engine  *scoreboard.Engine
	janitor *scoreboard.Janitor
	srv     *http.Server
}

func New(cfg config.Config, log *slog.Logger) *App {
	if log == nil {
		log = slog.Default()
	}

	engine := scoreboard.NewEngine(log)
	janitor := scoreboard.NewJanitor(engine, log, cfg.Match.JanitorInterval, cfg.Match.Retention)
	api := scoreboard.NewServer(engine, log, cfg.HTTP.BaseURL)

	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	api.RegisterRoutes(r)

	// the iPhone app and the TV pages come from anywhere
	handler := cors.AllowAll().Handler(r)

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
	}

	return &App{cfg: cfg, log: log, engine: engine, janitor: janitor, srv: srv}
}

// Engine exposes the sync engine for callers wiring extra surfaces (or
// tests driving the app directly).
func (a *App) Engine() *scoreboard.Engine {
	return a.engine
}

func (a *App) Run(ctx context.Context) error {
	a.janitor.Start()

	g, gctx := errgroup.WithContext(ctx)

	a.log.Info("http server starting", "addr", a.cfg.HTTP.Addr, "base_url", a.cfg.HTTP.BaseURL)

	g.Go(func() error {
		err := a.srv.ListenAndServe()
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
		defer cancel()
		a.log.Info("http server shutting down")
		_ = a.srv.Shutdown(shutdownCtx)
		return nil
	})

	err := g.Wait()
	a.janitor.Stop()
	return err
}

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"training-load-engine/internal/config"
	"training-load-engine/internal/httpapi"
	"training-load-engine/internal/ingest"
	"training-load-engine/internal/llmclient"
	"training-load-engine/internal/orchestrator"
	"training-load-engine/internal/recommend"
	"training-load-engine/internal/store"
	"training-load-engine/internal/tokenmgr"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := newLogger(cfg)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("opening database")
	}
	defer st.Close()

	oauthCfg := tokenmgr.NewOAuthConfig(tokenmgr.OAuthCredentials{
		ClientID:     cfg.Provider.ClientID,
		ClientSecret: cfg.Provider.ClientSecret,
		RedirectURL:  cfg.Provider.RedirectURL,
	})
	tokens := tokenmgr.New(st, oauthCfg, log)

	llm := llmclient.New(llmclient.Config{APIKey: cfg.LLM.APIKey, Model: cfg.LLM.Model})

	o := &orchestrator.Orchestrator{
		Store:  st,
		Tokens: tokens,
		Ingest: &ingest.Pipeline{Store: st, Log: log},
		Log:    log,
	}

	pipeline := &recommend.Pipeline{Store: st, LLM: llm, Log: log}
	sched := &recommend.Scheduler{Pipeline: pipeline, Store: st}
	sched.Start()

	router := httpapi.NewRouter(o, log)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute, // SyncAll can take a while for a large athlete roster
		IdleTimeout:  60 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("training load engine listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-done
	log.Info().Msg("shutdown signal received")

	sched.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	} else {
		log.Info().Msg("stopped gracefully")
	}
}

// newLogger builds the process-wide logger: a human-readable console writer
// in development, structured JSON in production, selected by APP_ENV.
func newLogger(cfg *config.Config) zerolog.Logger {
	if cfg.Server.Env == "production" {
		return zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	out := zerolog.ConsoleWriter{Out: os.Stderr}
	return zerolog.New(out).With().Timestamp().Logger()
}

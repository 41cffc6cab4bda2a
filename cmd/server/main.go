package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	_ "livepoll/docs"
	"livepoll/internal/config"
	"livepoll/internal/domain/poll"
	"livepoll/internal/domain/verification"
	"livepoll/internal/domain/vote"
	api "livepoll/internal/http"
	"livepoll/internal/metrics"
	"livepoll/internal/platform/database"
	"livepoll/internal/platform/mailer"
	"livepoll/internal/ratelimit"
	"livepoll/internal/realtime"
	"livepoll/internal/repository/postgres"
	"livepoll/internal/worker"
)

// @title           LivePoll API
// @version         1.0
// @description     Anonymous polls with live results and email-verified voting
// @BasePath        /api
func main() {
	cfg := config.Load()

	db, err := database.NewPostgres(cfg.DB_DSN, cfg.DB)
	if err != nil {
		slog.Error("db connect error", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.CreateSchema(db); err != nil {
		slog.Error("schema error", "error", err)
		os.Exit(1)
	}

	metrics.Register()

	pollRepo := postgres.NewPollRepo(db)
	codeRepo := postgres.NewVerificationRepo(db)

	sender := mailer.NewSMTPSender(cfg.SMTP)

	pollSvc := poll.NewService(pollRepo)
	codeSvc := verification.NewService(codeRepo, pollRepo, sender)

	events := make(chan vote.Event, 256)
	engine := vote.NewEngine(pollRepo, codeSvc, events)

	limiter := ratelimit.New(ratelimit.DefaultConfig())
	hub := realtime.NewHub()
	janitor := worker.NewCodeJanitor(codeRepo, time.Minute)

	router := api.NewRouter(pollSvc, engine, codeSvc, limiter, hub, db, cfg.PublicURL, cfg.FrontendURL)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go hub.Run(ctx, events)
	go limiter.Run(ctx)
	go janitor.Run(ctx)

	go func() {
		slog.Info("server listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("listen error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	<-stop
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped")
}

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"receptionist-platform/internal/assistant"
	"receptionist-platform/internal/auth"
	"receptionist-platform/internal/calllog"
	"receptionist-platform/internal/callsession"
	"receptionist-platform/internal/chat"
	"receptionist-platform/internal/config"
	"receptionist-platform/internal/demo"
	"receptionist-platform/internal/httpapi"
	"receptionist-platform/internal/voice"
	"receptionist-platform/internal/wizard"
	"receptionist-platform/pkg/logger"
	"receptionist-platform/pkg/utils"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Optional env file for local development; real deployments set env directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	tokens, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	authSvc := auth.NewService(auth.NewPostgresUserRepository(db), auth.NewRedisSessionStore(rdb), tokens)
	assistants := assistant.NewService(assistant.NewPostgresRepository(db))
	callLogs := calllog.NewService(calllog.NewPostgresRepository(db))
	chatSvc := chat.NewService(chat.NewPostgresRepository(db))

	voiceClient := voice.NewClient(cfg.Voice)
	calls := callsession.NewManager(
		voice.NewWebSocketDialer(cfg.Voice),
		callLogs,
		callsession.NewRedisCap(rdb),
		callsession.OpenGate{},
		log,
	)
	wizardSvc := wizard.NewService(wizard.NewRedisStore(rdb), voiceClient, assistants, log)
	demoSvc := demo.NewService(demo.NewPostgresRepository(db), cfg.Demo, log)

	h := httpapi.Handlers{
		Auth:       authSvc,
		Assistants: assistants,
		CallLogs:   callLogs,
		Chat:       chatSvc,
		Wizard:     wizardSvc,
		Calls:      calls,
		Demo:       demoSvc,
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))
	r.Use(httpapi.CORS(cfg.App.CORSOrigins))

	registerRoutes(r, h, auth.RequireAccessToken(tokens))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}

package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/JonMunkholm/roster/internal/audit"
	"github.com/JonMunkholm/roster/internal/config"
	"github.com/JonMunkholm/roster/internal/core"
	"github.com/JonMunkholm/roster/internal/logging"
	"github.com/JonMunkholm/roster/internal/mail"
	"github.com/JonMunkholm/roster/internal/web"
)

func main() {
	// Overload lets a local .env win over the shell environment
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"upload_max_concurrent", cfg.Upload.MaxConcurrent,
		"rows_per_page", cfg.View.RowsPerPage,
		"select_all_scope", cfg.View.SelectAllScope,
		"mail_enabled", cfg.Mail.Enabled(),
		"audit_enabled", cfg.Database.Enabled(),
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	ctx := context.Background()

	var store audit.Store = audit.Nop{}
	if cfg.Database.Enabled() {
		pool, err := connect(ctx, &cfg.Database)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		pg, err := audit.NewPgStore(ctx, pool)
		if err != nil {
			slog.Error("failed to prepare audit schema", "error", err)
			os.Exit(1)
		}
		store = pg
	}

	var relay mail.Relay
	if cfg.Mail.Enabled() {
		ejs := mail.NewEmailJS(cfg.Mail.PublicKey, cfg.Mail.PrivateKey, cfg.Mail.SendTimeout)
		ejs.Endpoint = cfg.Mail.Endpoint
		relay = ejs
	} else {
		slog.Warn("EmailJS credentials missing, sending disabled")
	}

	dispatcher := mail.NewDispatcher(relay, store, mail.DispatcherConfig{
		ServiceID:   cfg.Mail.ServiceID,
		TemplateID:  cfg.Mail.TemplateID,
		Concurrency: cfg.Mail.Concurrency,
		Timeout:     cfg.Mail.BatchTimeout,
		Retain:      cfg.Mail.ResultRetain,
	})

	tmpl := mail.Template{Subject: cfg.Mail.Subject, Message: cfg.Mail.Message}
	if tmpl.Subject == "" {
		tmpl.Subject = mail.DefaultSubject
	}
	if tmpl.Message == "" {
		tmpl.Message = mail.DefaultMessage
	}

	sessions := core.NewSessionManager(cfg.View.RowsPerPage, core.ParseSelectScope(cfg.View.SelectAllScope))
	parser := core.NewParseLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime)

	server := web.NewServer(cfg, web.Deps{
		Sessions: sessions,
		Parser:   parser,
		Mail:     dispatcher,
		Template: tmpl,
		Audit:    store,
	})

	jobCtx, cancelJobs := context.WithCancel(context.Background())

	go sessions.StartSweeper(jobCtx, core.SweepConfig{
		IdleTimeout:   cfg.Session.IdleTimeout,
		CheckInterval: cfg.Session.SweepInterval,
	})

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if st := parser.Status(); st.Active > 0 {
			slog.Info("waiting for uploads to finish parsing", "active", st.Active)
			if err := parser.WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("uploads did not finish in time", "error", err)
			}
		}

		if err := dispatcher.Drain(shutdownCtx); err != nil {
			slog.Warn("mail batches did not finish in time", "error", err)
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

func connect(ctx context.Context, db *config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(db.URL)
	if err != nil {
		return nil, err
	}
	poolConfig.MaxConns = int32(db.MaxConns)
	poolConfig.MinConns = int32(db.MinConns)
	poolConfig.MaxConnLifetime = db.MaxConnLifetime
	poolConfig.MaxConnIdleTime = db.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	if u, err := url.Parse(db.URL); err == nil {
		slog.Info("connected to audit database", "name", strings.TrimPrefix(u.Path, "/"))
	}
	return pool, nil
}

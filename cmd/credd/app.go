package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	goCreds "github.com/MrEthical07/goCreds"
	"github.com/MrEthical07/goCreds/internal/config"
	"github.com/MrEthical07/goCreds/internal/httpapi"
	"github.com/MrEthical07/goCreds/mailer"
	"github.com/MrEthical07/goCreds/metrics/export/prometheus"
	"github.com/MrEthical07/goCreds/store/memory"
	"github.com/MrEthical07/goCreds/store/mongostore"
	"github.com/MrEthical07/goCreds/store/postgres"
	"github.com/MrEthical07/goCreds/store/redisstore"
)

const shutdownTimeout = 10 * time.Second

func newLogger(cfg config.Config, w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	out := w
	if !cfg.IsProduction() {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Str("service", "credd").Logger()
}

// backend is an opened credential store plus its maintenance hooks.
type backend struct {
	store goCreds.CredentialStore
	// sweep removes expired tokens; nil when the backend expires them itself.
	sweep func(context.Context) (int64, error)
	close func() error
}

func openBackend(ctx context.Context, cfg config.Config) (*backend, error) {
	b := &backend{close: func() error { return nil }}

	switch cfg.Store {
	case config.StorePostgres:
		pg, err := postgres.Open(ctx, cfg.PostgresDSN, postgres.WithTokenTTL(cfg.TokenTTL))
		if err != nil {
			return nil, err
		}
		b.store = pg
		b.sweep = func(ctx context.Context) (int64, error) {
			return pg.DeleteExpiredTokens(ctx, time.Now().Add(-cfg.TokenTTL))
		}
		b.close = pg.Close
	case config.StoreMongo:
		ms, client, err := mongostore.Connect(ctx, cfg.MongoURI, cfg.MongoDB, mongostore.WithTokenTTL(cfg.TokenTTL))
		if err != nil {
			return nil, err
		}
		b.store = ms
		b.sweep = ms.DeleteExpiredTokens
		b.close = func() error { return client.Disconnect(context.Background()) }
	default:
		mem := memory.New(memory.WithTokenTTL(cfg.TokenTTL))
		b.store = mem
		b.sweep = func(ctx context.Context) (int64, error) {
			return mem.DeleteExpiredTokens(ctx, time.Now().Add(-cfg.TokenTTL))
		}
	}

	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			_ = b.close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		tokens := redisstore.New(client, redisstore.WithTokenTTL(cfg.TokenTTL))
		b.store = goCreds.ComposeStore(b.store, tokens, b.store)
		b.sweep = nil

		closeStore := b.close
		b.close = func() error {
			return errors.Join(client.Close(), closeStore())
		}
	}

	return b, nil
}

func runSweeper(ctx context.Context, interval time.Duration, sweep func(context.Context) (int64, error), logger zerolog.Logger) {
	if sweep == nil || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := sweep(ctx)
			if err != nil {
				logger.Warn().Err(err).Msg("expired token sweep failed")
				continue
			}
			if n > 0 {
				logger.Info().Int64("removed", n).Msg("expired tokens swept")
			}
		}
	}
}

func buildEngine(cfg config.Config, store goCreds.CredentialStore, logger zerolog.Logger) (*goCreds.Engine, error) {
	b := goCreds.New().
		WithConfig(cfg.Engine()).
		WithStore(store).
		WithLogger(logger)

	if cfg.MailEnabled() {
		m, err := mailer.New(mailer.Config{
			Host:      cfg.SMTP.Host,
			Port:      cfg.SMTP.Port,
			Username:  cfg.SMTP.Username,
			Password:  cfg.SMTP.Password,
			From:      cfg.MailFrom,
			Product:   cfg.TOTPIssuer,
			VerifyURL: cfg.VerifyURL,
			ResetURL:  cfg.ResetURL,
		})
		if err != nil {
			return nil, fmt.Errorf("mailer: %w", err)
		}
		b = b.WithMailer(m)
	} else {
		logger.Warn().Msg("SMTP not configured; tokens will be stored but not delivered")
	}

	return b.Build()
}

func newHandler(cfg config.Config, engine *goCreds.Engine, logger zerolog.Logger) http.Handler {
	return httpapi.NewRouter(httpapi.Options{
		Engine:     engine,
		Logger:     logger,
		Metrics:    prometheus.New(engine).Handler(),
		TrustProxy: cfg.TrustProxy,
	})
}

func run(ctx context.Context, cfg config.Config, logger zerolog.Logger) error {
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.Env,
			AttachStacktrace: true,
		}); err != nil {
			logger.Error().Err(err).Msg("sentry init failed")
		}
		defer sentry.Flush(2 * time.Second)
	}

	b, err := openBackend(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := b.close(); err != nil {
			logger.Warn().Err(err).Msg("store close failed")
		}
	}()

	engine, err := buildEngine(cfg, b.store, logger)
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	defer engine.Close()

	engineCfg := cfg.Engine()
	for _, w := range engineCfg.Lint() {
		logger.Warn().Str("code", w.Code).Msg(w.Message)
	}

	go runSweeper(ctx, cfg.TokenSweepInterval, b.sweep, logger)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newHandler(cfg, engine, logger),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Addr).Str("store", cfg.Store).Msg("credd listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	logger.Info().Msg("shutting down")
	return srv.Shutdown(shutdownCtx)
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/dkeye/Classroom/internal/adapters/http"
	"github.com/dkeye/Classroom/internal/adapters/livekit"
	"github.com/dkeye/Classroom/internal/adapters/memory"
	"github.com/dkeye/Classroom/internal/adapters/postgres"
	"github.com/dkeye/Classroom/internal/adapters/redis"
	sig "github.com/dkeye/Classroom/internal/adapters/signal"
	"github.com/dkeye/Classroom/internal/app/credentials"
	"github.com/dkeye/Classroom/internal/app/grants"
	"github.com/dkeye/Classroom/internal/app/orch"
	"github.com/dkeye/Classroom/internal/config"
	"github.com/dkeye/Classroom/internal/core"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	stores, closeStores, err := openStores(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open stores")
	}
	defer closeStores()

	creds := credentials.NewRouter(cfg.Routing.PrimaryLanguage, backend(cfg.LiveKit.Primary), backend(cfg.LiveKit.Secondary))
	if len(creds.All()) == 0 {
		log.Warn().Msg("no media backend configured, joins will fail")
	}

	var (
		transports core.TransportFactory
		hub        *sig.Hub
	)
	switch cfg.Transport {
	case config.TransportLocal:
		hub = sig.NewHub(func(raw string) (*grants.Claims, error) {
			c, _, err := grants.VerifyAny(creds.All(), raw, 10*time.Second)
			return c, err
		},
			sig.WithReadLimit(cfg.Signal.ReadLimit),
			sig.WithPingPeriod(cfg.Signal.PingPeriod),
			sig.WithRateLimit(cfg.Signal.RateLimit, cfg.Signal.RateWindow),
		)
		go hub.Run(ctx, cfg.Signal.ReapEvery)
		transports = hub
	default:
		transports = livekit.NewFactory()
	}

	o := orch.New(stores, creds, transports, orch.Options{
		TokenTTL:   cfg.TokenTTL,
		SkewHold:   cfg.SkewHold,
		RoomExpiry: cfg.RoomExpiry,
	})

	r := router.SetupRouter(cfg, o, hub)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Str("transport", cfg.Transport).Msg("Classroom server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}

func backend(b config.Backend) core.Credentials {
	return core.Credentials{URL: b.URL, APIKey: b.APIKey, APISecret: b.APISecret, Regions: b.Regions}
}

// openStores picks postgres and redis when they are configured and falls
// back to process memory otherwise.
func openStores(ctx context.Context, cfg *config.Config) (orch.Stores, func(), error) {
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var st orch.Stores
	if cfg.Database.DSN != "" {
		pool, err := postgres.Connect(ctx, cfg.Database.DSN)
		if err != nil {
			return st, closeAll, err
		}
		closers = append(closers, pool.Close)
		if cfg.Database.Migrate {
			m, err := postgres.NewMigrator(pool)
			if err != nil {
				closeAll()
				return st, func() {}, err
			}
			err = m.Run(ctx)
			_ = m.Close()
			if err != nil {
				closeAll()
				return st, func() {}, err
			}
		}
		pg := postgres.NewStore(pool)
		st.Sessions, st.Participations, st.Transcripts = pg, pg, pg
		log.Info().Str("module", "main").Msg("using postgres store")
	} else {
		mem := memory.NewStore()
		st.Sessions, st.Participations, st.Transcripts = mem, mem, mem
		log.Warn().Str("module", "main").Msg("no database configured, sessions are kept in memory")
	}

	if cfg.Redis.Addr != "" {
		client, err := redis.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			closeAll()
			return st, func() {}, err
		}
		closers = append(closers, func() { _ = client.Close() })
		st.Ledger = redis.NewLedger(client, cfg.RequestTTL)
		log.Info().Str("module", "main").Str("addr", cfg.Redis.Addr).Msg("using redis request ledger")
	} else {
		st.Ledger = memory.NewLedger(cfg.RequestTTL)
	}
	return st, closeAll, nil
}

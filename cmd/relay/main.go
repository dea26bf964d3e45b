package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/cwrk-planet/signal-relay/config"
	"github.com/cwrk-planet/signal-relay/internal/auth"
	"github.com/cwrk-planet/signal-relay/internal/logger"
	"github.com/cwrk-planet/signal-relay/internal/metrics"
	"github.com/cwrk-planet/signal-relay/internal/postgres"
	"github.com/cwrk-planet/signal-relay/internal/service"
	grpcx "github.com/cwrk-planet/signal-relay/internal/transport/grpc"
	httpx "github.com/cwrk-planet/signal-relay/internal/transport/http"
	"github.com/cwrk-planet/signal-relay/internal/transport/ws"
)

func main() {
	// --- config ---
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger.Init(logger.Config{
		Env:       logger.Env(cfg.Logging.Env),
		Service:   cfg.Logging.Service,
		Version:   cfg.Logging.Version,
		Backend:   logger.Backend(cfg.Logging.Backend),
		AddSource: cfg.Logging.AddSource,
		Debug:     cfg.Logging.Debug,
	})
	slog.Info("starting signal-relay",
		"env", cfg.Logging.Env, "version", cfg.Logging.Version)

	// spans are only used for log correlation, nothing is exported
	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)

	ctx := context.Background()

	// --- identity ---
	var authn ws.Authenticator
	var db *postgres.DB
	if cfg.Auth.Enabled {
		pub, err := auth.LoadRSAPublicKeyFromPEM(cfg.Auth.PublicKeyPath)
		if err != nil {
			log.Fatalf("auth key: %v", err)
		}

		var dir auth.Directory
		if cfg.Postgres.DSN != "" {
			db, err = postgres.New(ctx, postgres.Config{
				DSN:             cfg.Postgres.DSN,
				MaxConns:        cfg.Postgres.MaxConns,
				ApplicationName: cfg.Logging.Service,
			})
			if err != nil {
				log.Fatalf("postgres: %v", err)
			}
			dir = postgres.NewUserDirectory(db.Pool)
		}

		verifier := auth.NewJWTVerifier(pub, cfg.Auth.Issuer, cfg.Auth.Audience, cfg.Auth.Skew())
		authn = auth.NewAuthenticator(verifier, dir)
		slog.Info("auth enabled", "issuer", cfg.Auth.Issuer, "directory", dir != nil)
	} else if cfg.Postgres.DSN != "" {
		slog.Warn("postgres.dsn is set but auth is disabled; directory unused")
	}

	// --- relay ---
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	relay := service.NewRelay(service.RelayConfig{MaxRoomSize: cfg.Relay.MaxRoomSize}, metrics.NewRelay(reg))

	wsServer := ws.NewServer(relay, authn, ws.Config{
		PingInterval:      cfg.Relay.Ping(),
		MaxMessageBytes:   cfg.Relay.MaxMessageBytes,
		SendQueueSize:     cfg.Relay.SendQueueSize,
		MessagesPerSecond: cfg.Relay.MessagesPerSecond,
		MessageBurst:      cfg.Relay.MessageBurst,
	})

	// --- HTTP ---
	router := httpx.NewRouter(httpx.Deps{
		Handler:        httpx.NewHandler(relay),
		WS:             wsServer.HandleWS,
		Gatherer:       reg,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	})
	readTimeout, writeTimeout, idleTimeout := cfg.HTTP.Timeouts()
	httpSrv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	// --- gRPC ---
	var grpcSrv *grpcx.Server
	if cfg.GRPC.Addr != "" {
		grpcSrv = grpcx.NewServer()
	}

	// --- run ---
	errCh := make(chan error, 2)

	go func() {
		slog.Info("http listen", "addr", cfg.HTTP.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	if grpcSrv != nil {
		go func() {
			lis, err := net.Listen("tcp", cfg.GRPC.Addr)
			if err != nil {
				errCh <- err
				return
			}
			slog.Info("grpc listen", "addr", cfg.GRPC.Addr)
			grpcSrv.SetServing(true)
			if err := grpcSrv.Serve(lis); err != nil {
				errCh <- err
			}
		}()
	}

	// --- graceful shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	exitCode := 0
	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal", "sig", sig)
	case err := <-errCh:
		slog.Error("server error", "err", err)
		exitCode = 1
	}

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if grpcSrv != nil {
		grpcSrv.SetServing(false)
	}
	if err := httpSrv.Shutdown(ctxShutdown); err != nil {
		slog.Warn("http shutdown", "err", err)
	}
	// hijacked websocket connections are not tracked by http.Server
	wsServer.Shutdown()
	waitDrained(ctxShutdown, wsServer)
	if grpcSrv != nil {
		grpcSrv.Shutdown()
	}
	if db != nil {
		db.Close()
	}
	_ = tp.Shutdown(ctxShutdown)

	slog.Info("stopped", "rooms", len(relay.Rooms()))
	os.Exit(exitCode)
}

// waitDrained waits until every websocket handler has delivered its disconnect.
func waitDrained(ctx context.Context, s *ws.Server) {
	t := time.NewTicker(50 * time.Millisecond)
	defer t.Stop()
	for s.Open() > 0 {
		select {
		case <-ctx.Done():
			slog.Warn("websocket drain timed out", "open", s.Open())
			return
		case <-t.C:
		}
	}
}

// Package bootstrap carries the shared service startup and graceful
// shutdown flow.
package bootstrap

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"shopcart/internal/pkg/logger"
	"shopcart/internal/pkg/nacos"
	"shopcart/internal/tracing"
)

// AppCtx is handed to the service so it can register its routes.
type AppCtx struct {
	Mux   *http.ServeMux
	Nacos *nacos.Client // nil when discovery is not configured
}

// AppInfo describes one service to start.
type AppInfo struct {
	Config           *Config
	RegisterHandlers func(appCtx AppCtx)
	// Cleanup runs during shutdown, after the HTTP server stopped.
	Cleanup func(ctx context.Context)
}

// StartService runs the HTTP server with tracing, optional nacos
// registration and graceful shutdown. It blocks until SIGINT/SIGTERM.
func StartService(info AppInfo) {
	cfg := info.Config
	log := logger.Logger

	tp, err := tracing.InitTracerProvider(cfg.Service.Name, cfg.Infra.Jaeger.Endpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("initializing tracer provider")
	}

	var naming *nacos.Client
	var ip string
	if cfg.Infra.Nacos.Addrs != "" {
		naming, err = nacos.NewClient(cfg.Infra.Nacos.Addrs, cfg.Infra.Nacos.Namespace, cfg.Infra.Nacos.Group)
		if err != nil {
			log.Fatal().Err(err).Msg("initializing nacos client")
		}
		ip, err = outboundIP()
		if err != nil {
			log.Fatal().Err(err).Msg("determining outbound IP")
		}
		if err := naming.Register(cfg.Service.Name, ip, cfg.Service.Port); err != nil {
			log.Fatal().Err(err).Msg("registering with nacos")
		}
	}

	mux := http.NewServeMux()
	if info.RegisterHandlers != nil {
		info.RegisterHandlers(AppCtx{Mux: mux, Nacos: naming})
	}
	server := &http.Server{Addr: ":" + strconv.Itoa(cfg.Service.Port), Handler: mux}
	go func() {
		log.Info().Int("port", cfg.Service.Port).Str("service", cfg.Service.Name).Msg("listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if naming != nil {
		if err := naming.Deregister(cfg.Service.Name, ip, cfg.Service.Port); err != nil {
			log.Warn().Err(err).Msg("deregistering from nacos")
		}
	}
	if err := server.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("shutting down http server")
	}
	if info.Cleanup != nil {
		info.Cleanup(ctx)
	}
	if err := tp.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("shutting down tracer provider")
	}
	log.Info().Msg("shutdown complete")
}

// outboundIP finds the primary local IP without sending traffic.
func outboundIP() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "", err
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP.String(), nil
}

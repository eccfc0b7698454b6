package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vigilcam/internal/core/domain"
	"vigilcam/internal/core/ports"
	"vigilcam/internal/core/services"
	httphandlers "vigilcam/internal/handlers/http"
	"vigilcam/internal/infrastructure/middleware"
	"vigilcam/internal/infrastructure/monitoring"
	signalinfra "vigilcam/internal/infrastructure/signal"
	"vigilcam/internal/infrastructure/transport"
	"vigilcam/internal/infrastructure/whep"
	"vigilcam/pkg/backoff"
	"vigilcam/pkg/config"
	"vigilcam/pkg/logger"
	"vigilcam/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/pion/webrtc/v3"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	startTime := time.Now()

	// Try multiple config paths
	configPaths := []string{
		"configs/config.yaml",
		"./configs/config.yaml",
		"/etc/vigilcam/config.yaml",
		"config.yaml",
	}

	var cfg *config.Config
	var err error

	for _, path := range configPaths {
		cfg, err = config.Load(path)
		if err == nil {
			break
		}
	}

	if err != nil {
		// Fallback to defaults if config cannot be loaded
		cfg = config.DefaultConfig()
	}

	// Initialize logger
	zapLogger := logger.NewWithFormat(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLogger.Sync()

	log := zapLogger.Sugar()

	// Initialize tracing
	tracerProvider, err := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: "vigilcam-agent",
		JaegerURL:   cfg.Tracing.JaegerURL,
		SampleRate:  cfg.Tracing.SampleRate,
	})
	if err != nil {
		log.Fatalw("failed to initialize tracing", "error", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		tracerProvider.Shutdown(ctx)
	}()

	// Initialize monitoring
	metrics := monitoring.NewPrometheusCollector()

	// WHEP negotiation configuration (including STUN/TURN from config)
	var iceServers []webrtc.ICEServer
	for _, s := range cfg.WHEP.ICEServers {
		iceServers = append(iceServers, webrtc.ICEServer{
			URLs:       s.URLs,
			Username:   s.Username,
			Credential: s.Credential,
		})
	}

	negotiator := whep.NewNegotiator(whep.Config{
		ICEServers:       iceServers,
		GatherTimeout:    cfg.WHEP.GatherTimeout,
		SignalingTimeout: cfg.WHEP.SignalingTimeout,
	}, log)

	// One driver per transport kind
	drivers := map[domain.TransportKind]ports.AttemptDriver{
		domain.TransportRealTimeSignaling: whep.NewDriver(negotiator, metrics, log),
		domain.TransportSegmentedHTTP:     transport.NewHLSDriver(cfg.WHEP.SignalingTimeout, log),
		domain.TransportEmbedded:          transport.NewEmbeddedDriver(cfg.WHEP.SignalingTimeout, log),
	}

	// Status push server doubles as the supervisor's sink
	statusServer := signalinfra.NewStatusServer(log)

	supervisor := services.NewSupervisor(services.SupervisorConfig{
		RetryLimit:        cfg.Supervisor.RetryLimit,
		ControlsHideDelay: cfg.Supervisor.ControlsHideDelay,
		Backoff: backoff.Config{
			InitialDelay: cfg.Supervisor.Backoff.InitialDelay,
			MaxDelay:     cfg.Supervisor.Backoff.MaxDelay,
			Multiplier:   cfg.Supervisor.Backoff.Multiplier,
			Jitter:       cfg.Supervisor.Backoff.Jitter,
		},
	}, drivers, statusServer, metrics, log)

	endpoint := domain.NewStreamEndpoint(cfg.Stream.URL)
	supervisor.Start(endpoint)
	defer supervisor.Stop()

	// Auth
	authService := services.NewAuthService(
		cfg.Auth.JWTSecret,
		cfg.Auth.AccessTokenTTL,
		cfg.Auth.RefreshTokenTTL,
	)

	// Initialize HTTP handlers
	authHandler := httphandlers.NewAuthHandler(authService)
	streamHandler := httphandlers.NewStreamHandler(supervisor, statusServer)

	// Configure Gin
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.ErrorHandlerMiddleware(log))
	router.Use(middleware.NewHTTPRateLimitMiddleware(cfg))
	if cfg.Tracing.Enabled {
		router.Use(middleware.TracingMiddleware())
	}

	// Setup auth routes (public)
	authHandler.SetupRoutes(router)

	// Setup stream routes with authentication
	streamHandler.SetupRoutes(router, middleware.AuthMiddleware(authService))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"uptime":    time.Since(startTime).String(),
		})
	})

	// Readiness: the agent is ready once the supervisor is driving the stream
	router.GET("/ready", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":    "ready",
			"timestamp": time.Now(),
			"stream":    supervisor.Status(),
		})
	})

	// Prometheus metrics endpoint
	if cfg.Monitoring.PrometheusEnabled {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
		log.Info("Prometheus metrics enabled")
	}

	// Create HTTP server with timeouts
	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		log.Infof("Starting VigilCam agent on %s", cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// Wait for shutdown signals or server error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Fatalw("Server failed", "error", err)
	case sig := <-sigChan:
		log.Infow("Received shutdown signal", "signal", sig)
	}

	log.Info("Shutting down VigilCam agent...")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	// Shutdown HTTP server gracefully
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Error during server shutdown", "error", err)
		// Force close if graceful shutdown fails
		if closeErr := srv.Close(); closeErr != nil {
			log.Errorw("Error force closing server", "error", closeErr)
		}
	} else {
		log.Info("Server shutdown gracefully")
	}

	log.Info("VigilCam agent stopped")
}

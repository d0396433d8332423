package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/L0C8/gooser/internal/v1/bus"
	"github.com/L0C8/gooser/internal/v1/chat"
	"github.com/L0C8/gooser/internal/v1/config"
	"github.com/L0C8/gooser/internal/v1/connection"
	"github.com/L0C8/gooser/internal/v1/health"
	"github.com/L0C8/gooser/internal/v1/logging"
	"github.com/L0C8/gooser/internal/v1/middleware"
	"github.com/L0C8/gooser/internal/v1/ratelimit"
	"github.com/L0C8/gooser/internal/v1/tracing"
	"github.com/L0C8/gooser/internal/v1/transport"
	"github.com/redis/go-redis/v9"
)

const (
	serviceName     = "chat-client"
	mirrorInFlight  = 32
	shutdownTimeout = 30 * time.Second
)

func main() {
	// Load .env file for local development.
	// Try multiple paths to handle different ways of running the app
	envPaths := []string{".env", "../../../.env", "../../.env"}
	var envLoaded bool

	for _, path := range envPaths {
		if err := godotenv.Load(path); err == nil {
			slog.Info("Loaded environment from", "path", path)
			envLoaded = true
			break
		}
	}

	if !envLoaded {
		slog.Warn("No .env file found in any expected location, relying on environment variables")
	}

	cfg, err := config.ValidateEnv()
	if err != nil {
		slog.Error("Environment validation failed", "error", err)
		os.Exit(1)
	}

	if err := logging.Initialize(cfg.DevelopmentMode, cfg.LogLevel); err != nil {
		slog.Error("Failed to initialize logger", "error", err)
		os.Exit(1)
	}
	defer logging.Sync()

	if cfg.DevelopmentMode {
		slog.Info("Running in DEVELOPMENT MODE")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Tracing (Optional) ---
	var tracer *tracing.Provider
	if cfg.OTelCollectorAddr != "" {
		tracer, err = tracing.InitTracer(ctx, tracing.Options{
			ServiceName:   serviceName,
			CollectorAddr: cfg.OTelCollectorAddr,
			Insecure:      cfg.DevelopmentMode,
			SkipVerify:    os.Getenv("OTEL_INSECURE_SKIP_VERIFY") == "true",
		})
		if err != nil {
			slog.Error("Failed to initialize tracing, continuing without it", "error", err)
		} else {
			slog.Info("Tracing enabled", "collector", cfg.OTelCollectorAddr)
		}
	}

	// --- Redis Mirror Initialization (Optional) ---
	var busService *bus.Service
	var mirror *bus.Mirror
	if cfg.RedisEnabled {
		busService, err = bus.NewService(cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			slog.Error("Failed to connect to Redis, running without the event mirror", "error", err)
			busService = nil
		} else {
			mirror = bus.NewMirror(busService, uuid.NewString(), mirrorInFlight)
			slog.Info("Redis event mirror enabled", "channel", bus.Channel(mirror.SessionID()))
		}
	} else {
		slog.Info("Redis event mirror disabled")
	}

	// --- Chat client ---
	dialer, err := transport.NewWebsocketDialer(cfg.ServerURL, cfg.AuthToken, cfg.HandshakeTimeout)
	if err != nil {
		slog.Error("Invalid chat server URL", "error", err)
		os.Exit(1)
	}
	slog.Info("Chat server configured", "url", dialer.URL())

	opts := chat.Options{Dialer: dialer, SendBuffer: cfg.SendBuffer}
	if mirror != nil {
		opts.Observers = []connection.Observer{mirror.Observe}
	}
	client := chat.New(opts)

	p := &printer{out: os.Stdout}
	unwatch := p.watch(client)

	if err := client.Connect(ctx); err != nil {
		slog.Warn("Initial connection failed, use /connect to retry", "error", err)
	}

	// --- Status server ---
	srv := newStatusServer(cfg, client, busService)
	go func() {
		slog.Info("Status server starting", "port", cfg.StatusPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Failed to run status server", "error", err)
			stop()
		}
	}()

	if err := runREPL(ctx, client, p, os.Stdin, os.Stdout); err != nil {
		slog.Error("Input error", "error", err)
	}
	slog.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	unwatch()
	if err := client.Close(shutdownCtx); err != nil {
		slog.Error("Error during chat client shutdown", "error", err)
	}

	if mirror != nil {
		mirror.Close()
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Status server forced to shutdown", "error", err)
	}

	if busService != nil {
		if err := busService.Close(); err != nil {
			slog.Error("Failed to close Redis connection", "error", err)
		} else {
			slog.Info("Redis connection closed")
		}
	}

	if err := tracer.Shutdown(shutdownCtx); err != nil {
		slog.Error("Failed to flush traces", "error", err)
	}

	slog.Info("Client exiting")
}

func newStatusServer(cfg *config.Config, client *chat.Client, busService *bus.Service) *http.Server {
	if !cfg.DevelopmentMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.Origins([]string{"http://localhost:3000"})
	router.Use(cors.New(corsConfig))

	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(middleware.CorrelationID(), middleware.RequestLogger())

	var redisClient *redis.Client
	if busService != nil {
		redisClient = busService.Client()
	}
	limiter, err := ratelimit.NewRateLimiter(cfg, redisClient)
	if err != nil {
		slog.Error("Rate limiter disabled", "error", err)
	} else {
		router.Use(limiter.Middleware())
	}

	healthHandler := health.NewHandler(client, pinger(busService))
	router.GET("/health/live", healthHandler.Liveness)
	router.GET("/health/ready", healthHandler.Readiness)
	router.GET("/state", healthHandler.State)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return &http.Server{
		Addr:              ":" + cfg.StatusPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// pinger keeps a nil *bus.Service from becoming a non-nil interface.
func pinger(s *bus.Service) health.Pinger {
	if s == nil {
		return nil
	}
	return s
}

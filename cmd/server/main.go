package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/arturoeanton/coursesphere/internal/adapter/auth"
	"github.com/arturoeanton/coursesphere/internal/adapter/replay"
	"github.com/arturoeanton/coursesphere/internal/adapter/store"
	"github.com/arturoeanton/coursesphere/internal/handler"
	"github.com/arturoeanton/coursesphere/internal/middleware"
	"github.com/arturoeanton/coursesphere/internal/port"
	"github.com/arturoeanton/coursesphere/internal/service"
	"github.com/arturoeanton/coursesphere/internal/session"
	"github.com/arturoeanton/coursesphere/internal/token"
	"github.com/arturoeanton/coursesphere/pkg/config"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

func main() {
	// ── Load .env file ───────────────────────────────────────────────────
	_ = godotenv.Load() // silently ignore if .env doesn't exist

	// ── Configuration ────────────────────────────────────────────────────
	cfg := config.Load()

	slog.Info("🚀 Starting CourseSphere",
		"port", cfg.Port,
		"auth_url", cfg.AuthURL,
		"redis", cfg.RedisURL != "",
		"local_token_verification", cfg.AuthJWTSecret != "",
	)

	// ── Database ─────────────────────────────────────────────────────────
	pgStore, err := store.NewPostgresStore(cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pgStore.Close()

	if cfg.AutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := pgStore.Migrate(ctx)
		cancel()
		if err != nil {
			slog.Error("failed to migrate database", "error", err)
			os.Exit(1)
		}
	}

	// ── Replay guard ─────────────────────────────────────────────────────
	rdb, err := openRedis(cfg.RedisURL)
	if err != nil {
		slog.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer rdb.Close()
	guard := replay.NewRedisGuard(rdb, "", cfg.ResetCodeTTL)

	// ── Adapters ─────────────────────────────────────────────────────────
	provider := auth.NewGoTrueProvider(cfg.AuthURL, cfg.AuthAnonKey, cfg.ProviderTimeout)
	cookies := session.NewCookieStore(session.CookieOptions{
		Domain: cfg.CookieDomain,
		Secure: cfg.CookieSecure,
		MaxAge: cfg.CookieMaxAge,
	})

	// Access tokens are checked locally when the signing secret is known,
	// otherwise by the provider on every profile lookup.
	var verifier port.TokenVerifier = provider
	if cfg.AuthJWTSecret != "" {
		local, err := token.NewVerifier(cfg.AuthJWTSecret)
		if err != nil {
			slog.Error("invalid token verifier config", "error", err)
			os.Exit(1)
		}
		verifier = local
	} else {
		slog.Warn("AUTH_JWT_SECRET not set, verifying access tokens with the provider")
	}

	// ── Services ─────────────────────────────────────────────────────────
	sessions := service.NewSessionService(cookies, provider, verifier, pgStore, cfg.SessionRefreshLeeway)
	authz := service.NewAuthorizer(sessions, pgStore)
	authService := service.NewAuthService(provider, sessions, guard, pgStore, service.AuthConfig{
		ResetRedirectURL:  cfg.ResetRedirectURL,
		MinPasswordLength: cfg.MinPasswordLength,
	})
	courseService := service.NewCourseService(pgStore, authz, pgStore)

	// ── Fiber App ────────────────────────────────────────────────────────
	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.FrontendURL},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowCredentials: true,
	}))

	// Audit middleware (logs all requests)
	app.Use(middleware.AuditMiddleware(pgStore))

	if cfg.MetricsEnabled {
		metrics := middleware.NewMetrics(prometheus.NewRegistry(), "coursesphere")
		app.Use(metrics.Handler())
		app.Get("/metrics", metrics.Expose())
	}

	// Health check
	app.Get("/api/v1/health", func(c fiber.Ctx) error {
		status := "healthy"
		if err := pgStore.DB().PingContext(c.Context()); err != nil {
			status = "degraded"
		}
		return c.JSON(fiber.Map{
			"status":  status,
			"app":     cfg.AppName,
			"version": "1.0.0",
		})
	})

	// ── Routes ───────────────────────────────────────────────────────────
	api := app.Group("/api/v1")

	throttle := limiter.New(limiter.Config{
		Max:        cfg.AuthRateLimit,
		Expiration: time.Minute,
		LimitReached: func(c fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "too many requests"})
		},
	})

	handler.NewAuthHandler(authService, sessions, authz).Register(api, throttle)
	handler.NewCourseHandler(courseService, authz).Register(api)
	handler.NewAdminHandler(courseService, authz).Register(api)
	handler.NewAuditHandler(pgStore, authz).Register(api)

	// ── Start ────────────────────────────────────────────────────────────
	slog.Info("🌐 Fiber listening", "port", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

// openRedis connects to REDIS_URL, or starts an in-process server when it is
// unset. The embedded server only guards a single instance.
func openRedis(url string) (*redis.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if url != "" {
		return replay.Open(ctx, url)
	}

	mr, err := miniredis.Run()
	if err != nil {
		return nil, err
	}
	slog.Warn("REDIS_URL not set, using embedded redis for reset codes", "addr", mr.Addr())
	return replay.Open(ctx, "redis://"+mr.Addr())
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/JesusSantiago31/API-GPS/internal/geo"
	"github.com/JesusSantiago31/API-GPS/internal/maps"
	"github.com/JesusSantiago31/API-GPS/internal/routing"
	"github.com/JesusSantiago31/API-GPS/pkg/common"
	"github.com/JesusSantiago31/API-GPS/pkg/config"
	"github.com/JesusSantiago31/API-GPS/pkg/errors"
	"github.com/JesusSantiago31/API-GPS/pkg/health"
	"github.com/JesusSantiago31/API-GPS/pkg/logger"
	"github.com/JesusSantiago31/API-GPS/pkg/middleware"
	"github.com/JesusSantiago31/API-GPS/pkg/ratelimit"
	redisClient "github.com/JesusSantiago31/API-GPS/pkg/redis"
	"github.com/JesusSantiago31/API-GPS/pkg/resilience"
	"github.com/JesusSantiago31/API-GPS/pkg/tracing"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	serviceName = "routeplanner"
	version     = "1.0.0"
)

func main() {
	cfg, err := config.Load(serviceName)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	if err := logger.Init(cfg.Server.Environment); err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	logger.Info("Starting route planner",
		zap.String("service", serviceName),
		zap.String("version", cfg.Server.Version),
		zap.String("route_policy", cfg.Planner.Policy),
		zap.String("fuel_policy", cfg.Fuel.Policy),
	)

	// Initialize Sentry for error tracking
	sentryConfig := errors.DefaultSentryConfig()
	sentryConfig.ServerName = serviceName
	sentryConfig.Release = cfg.Server.Version
	if err := errors.InitSentry(sentryConfig); err != nil {
		logger.Warn("Sentry disabled, continuing without error tracking", zap.Error(err))
	} else {
		defer errors.Flush(2 * time.Second)
		logger.Info("Sentry error tracking initialized successfully")
	}

	// Initialize OpenTelemetry tracer
	tp, err := tracing.InitTracer(tracing.Config{
		ServiceName:    serviceName,
		ServiceVersion: cfg.Server.Version,
		Environment:    cfg.Server.Environment,
		OTLPEndpoint:   cfg.Tracing.OTLPEndpoint,
		SampleRate:     cfg.Tracing.SampleRate,
		Enabled:        cfg.Tracing.Enabled,
	}, logger.Get())
	if err != nil {
		logger.Warn("Failed to initialize tracer, continuing without tracing", zap.Error(err))
	} else if tp != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(shutdownCtx); err != nil {
				logger.Warn("Failed to shutdown tracer", zap.Error(err))
			}
		}()
		logger.Info("OpenTelemetry tracing initialized successfully")
	}

	if cfg.Provider.APIKey == "" {
		logger.Fatal("ORS_API_KEY is required")
	}

	// Redis only backs the rate limiter
	var (
		redis   *redisClient.Client
		limiter *ratelimit.Limiter
	)
	if cfg.RateLimit.Enabled {
		redis, err = redisClient.NewRedisClient(&cfg.Redis)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redis.Close()
		limiter = ratelimit.NewLimiter(redis.Client, cfg.RateLimit)
		logger.Info("Rate limiting enabled", zap.String("redis", cfg.Redis.RedisAddr()))
	}

	deepChecker := health.NewDeepChecker(health.DeepCheckerConfig{
		Version:  cfg.Server.Version,
		Timeout:  2 * time.Second,
		CacheTTL: 10 * time.Second,
	})

	planner, geocoder, err := buildPlanner(cfg, deepChecker)
	if err != nil {
		logger.Fatal("Failed to build route planner", zap.Error(err))
	}

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.NoRoute(common.NoRouteHandler())
	router.NoMethod(common.NoMethodHandler())
	router.Use(middleware.RecoveryWithSentry())
	router.Use(middleware.SentryMiddleware())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.RequestTimeout(&cfg.Timeout))
	router.Use(middleware.RequestLogger(serviceName))
	router.Use(middleware.CORS(cfg.Server.CORSOrigins))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.MaxBodySize(1 << 20))
	router.Use(middleware.SanitizeRequest())
	router.Use(middleware.Metrics(serviceName))
	if cfg.Tracing.Enabled {
		router.Use(middleware.TracingMiddleware(serviceName))
	}
	router.Use(middleware.ErrorHandler())

	// Health check endpoints
	router.GET("/healthz", common.HealthCheck(serviceName, cfg.Server.Version))
	router.GET("/health/live", common.LivenessProbe(serviceName, cfg.Server.Version))

	healthChecks := make(map[string]func() error)
	if redis != nil {
		healthChecks["redis"] = redis.HealthCheck()
		// The limiter fails open, so Redis only degrades the service
		deepChecker.AddDependency("redis", false, func(ctx context.Context) error {
			return redis.Ping(ctx).Err()
		})
	}
	router.GET("/health/ready", common.ReadinessProbe(serviceName, cfg.Server.Version, healthChecks))
	router.GET("/health/deep", deepChecker.GinHandler())

	router.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"service": serviceName, "version": cfg.Server.Version})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if dir := cfg.Server.StaticDir; dir != "" {
		router.Static("/static", dir)
		router.GET("/", func(c *gin.Context) {
			c.File(filepath.Join(dir, "index.html"))
		})
		logger.Info("Serving front-end assets", zap.String("dir", dir))
	}

	api := router.Group("/")
	api.Use(middleware.RateLimit(limiter, cfg.RateLimit))
	geo.NewHandler(geocoder).RegisterRoutes(api)
	routing.NewHandler(planner).RegisterRoutes(api)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("Server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server stopped")
}

// buildPlanner wires the ORS adapters and the planner from configuration.
func buildPlanner(cfg *config.Config, checker *health.DeepChecker) (*routing.Planner, geo.Geocoder, error) {
	cb := cfg.Resilience.CircuitBreaker

	orsSettings := cb.SettingsFor("ors-directions")
	provider := maps.NewORSProvider(maps.ProviderConfig{
		APIKey:                  cfg.Provider.APIKey,
		BaseURL:                 cfg.Provider.DirectionsURL,
		Timeout:                 cfg.Provider.Timeout(),
		BreakerEnabled:          cb.Enabled,
		BreakerFailureThreshold: orsSettings.FailureThreshold,
		BreakerSuccessThreshold: orsSettings.SuccessThreshold,
		BreakerTimeoutSeconds:   orsSettings.TimeoutSeconds,
		BreakerIntervalSeconds:  orsSettings.IntervalSeconds,
	})

	geocoderCfg := geo.GeocoderConfig{
		APIKey:  cfg.Provider.APIKey,
		BaseURL: cfg.Provider.GeocodeURL,
		Timeout: cfg.Provider.Timeout(),
		Country: cfg.Provider.GeocodeCountry,
	}
	if cb.Enabled {
		s := cb.SettingsFor("ors-geocode")
		settings := resilience.BuildSettings("ors-geocode", s.IntervalSeconds, s.TimeoutSeconds, s.FailureThreshold, s.SuccessThreshold)
		geocoderCfg.Breaker = &settings
		logger.Info("Circuit breakers enabled for ORS directions and geocoding")
	}
	geocoder := geo.NewORSGeocoder(geocoderCfg)

	for name, breaker := range provider.Breakers() {
		checker.AddCircuitBreaker(name, breaker)
	}
	if breaker := geocoder.Breaker(); breaker != nil {
		checker.AddCircuitBreaker("ors-geocode", breaker)
	}

	settings, err := routing.SettingsFromConfig(cfg)
	if err != nil {
		return nil, nil, err
	}

	return routing.NewPlanner(geocoder, provider, settings), geocoder, nil
}

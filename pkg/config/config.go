package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig
	Redis      RedisConfig
	RateLimit  RateLimitConfig
	Resilience ResilienceConfig
	Timeout    TimeoutConfig
	Provider   ProviderConfig
	Fuel       FuelConfig
	Planner    PlannerConfig
	Tracing    TracingConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port         string
	Environment  string
	ServiceName  string
	Version      string
	ReadTimeout  int
	WriteTimeout int
	CORSOrigins  string // Comma-separated list of allowed origins
	StaticDir    string // Front-end assets; empty disables static serving
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled           bool
	WindowSeconds     int
	DefaultLimit      int
	DefaultBurst      int
	RedisPrefix       string
	EndpointOverrides map[string]EndpointRateLimitConfig
}

// EndpointRateLimitConfig allows customizing limits per endpoint
type EndpointRateLimitConfig struct {
	Limit         int `json:"limit"`
	Burst         int `json:"burst"`
	WindowSeconds int `json:"window_seconds"`
	Cost          int `json:"cost"`
}

// ResilienceConfig groups runtime resilience controls
type ResilienceConfig struct {
	CircuitBreaker CircuitBreakerConfig
}

// CircuitBreakerConfig captures default and per-service breaker tuning
type CircuitBreakerConfig struct {
	Enabled          bool
	FailureThreshold int
	SuccessThreshold int
	TimeoutSeconds   int
	IntervalSeconds  int
	ServiceOverrides map[string]CircuitBreakerSettings
}

// CircuitBreakerSettings overrides defaults for a specific upstream service
type CircuitBreakerSettings struct {
	FailureThreshold int `json:"failure_threshold"`
	SuccessThreshold int `json:"success_threshold"`
	TimeoutSeconds   int `json:"timeout_seconds"`
	IntervalSeconds  int `json:"interval_seconds"`
}

// ProviderConfig holds the OpenRouteService endpoints and credentials.
type ProviderConfig struct {
	APIKey         string
	DirectionsURL  string
	GeocodeURL     string
	TimeoutSeconds int
	GeocodeCountry string
}

// FuelConfig holds the fuel price and consumption tables.
type FuelConfig struct {
	Prices      map[string]float64
	Currency    string
	Policy      string
	FlatRate    float64
	Consumption map[string]float64
}

// PlannerConfig holds route evaluation limits.
type PlannerConfig struct {
	MaxDistanceMeters float64
	Policy            string
	MaxSpeedKmh       float64
	DefaultSpeedKmh   float64
}

// TracingConfig holds OpenTelemetry exporter settings.
type TracingConfig struct {
	Enabled      bool
	OTLPEndpoint string
	SampleRate   float64
}

const (
	DefaultDirectionsURL = "https://api.openrouteservice.org/v2/directions"
	DefaultGeocodeURL    = "https://api.openrouteservice.org/geocode/search"

	DefaultProviderTimeout = 10
	MaxProviderTimeout     = 60

	DefaultMaxDistanceMeters = 6000000.0
	DefaultMaxSpeedKmh       = 120.0
	DefaultSpeedKmh          = 60.0
	DefaultFlatFuelRate      = 0.08

	FuelPolicyPerVehicle = "per_vehicle"
	FuelPolicyFlat       = "flat"

	RoutePolicyDualProfile  = "dual_profile"
	RoutePolicyDrivingFirst = "driving_first"
)

// DefaultFuelPrices are price-per-liter values in MXN.
func DefaultFuelPrices() map[string]float64 {
	return map[string]float64{
		"regular": 22.50,
		"premium": 24.50,
		"diesel":  23.00,
	}
}

// DefaultFuelConsumption are liters-per-kilometer rates per vehicle class.
func DefaultFuelConsumption() map[string]float64 {
	return map[string]float64{
		"car":        0.16,
		"motorcycle": 0.08,
	}
}

// Load loads configuration from environment variables
func Load(serviceName string) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			Environment:  getEnv("ENVIRONMENT", "development"),
			ServiceName:  serviceName,
			Version:      getEnv("SERVICE_VERSION", "1.0.0"),
			ReadTimeout:  getEnvAsInt("READ_TIMEOUT", 10),
			WriteTimeout: getEnvAsInt("WRITE_TIMEOUT", 30),
			CORSOrigins:  getEnv("CORS_ORIGINS", "*"),
			StaticDir:    getEnv("STATIC_DIR", ""),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		RateLimit: RateLimitConfig{
			Enabled:       getEnvAsBool("RATE_LIMIT_ENABLED", false),
			WindowSeconds: getEnvAsInt("RATE_LIMIT_WINDOW_SECONDS", 60),
			DefaultLimit:  getEnvAsInt("RATE_LIMIT_DEFAULT_LIMIT", 60),
			DefaultBurst:  getEnvAsInt("RATE_LIMIT_DEFAULT_BURST", 20),
			RedisPrefix:   getEnv("RATE_LIMIT_REDIS_PREFIX", "rate-limit"),
		},
		Resilience: ResilienceConfig{
			CircuitBreaker: CircuitBreakerConfig{
				Enabled:          getEnvAsBool("CB_ENABLED", true),
				FailureThreshold: getEnvAsInt("CB_FAILURE_THRESHOLD", 5),
				SuccessThreshold: getEnvAsInt("CB_SUCCESS_THRESHOLD", 1),
				TimeoutSeconds:   getEnvAsInt("CB_TIMEOUT_SECONDS", 30),
				IntervalSeconds:  getEnvAsInt("CB_INTERVAL_SECONDS", 60),
			},
		},
		Timeout: TimeoutConfig{
			DefaultRequestTimeout: getEnvAsInt("DEFAULT_REQUEST_TIMEOUT", DefaultRequestTimeout),
		},
		Provider: ProviderConfig{
			APIKey:         getEnv("ORS_API_KEY", ""),
			DirectionsURL:  strings.TrimRight(getEnv("ORS_DIRECTIONS_URL", DefaultDirectionsURL), "/"),
			GeocodeURL:     getEnv("ORS_GEOCODE_URL", DefaultGeocodeURL),
			TimeoutSeconds: getEnvAsInt("PROVIDER_TIMEOUT_SECONDS", DefaultProviderTimeout),
			GeocodeCountry: getEnv("GEOCODE_COUNTRY", ""),
		},
		Fuel: FuelConfig{
			Prices:      DefaultFuelPrices(),
			Currency:    getEnv("FUEL_CURRENCY", "MXN"),
			Policy:      getEnv("FUEL_POLICY", FuelPolicyPerVehicle),
			FlatRate:    getEnvAsFloat("FUEL_FLAT_RATE", DefaultFlatFuelRate),
			Consumption: DefaultFuelConsumption(),
		},
		Planner: PlannerConfig{
			MaxDistanceMeters: getEnvAsFloat("MAX_DISTANCE_METERS", DefaultMaxDistanceMeters),
			Policy:            getEnv("ROUTE_POLICY", RoutePolicyDualProfile),
			MaxSpeedKmh:       getEnvAsFloat("MAX_SPEED_KMH", DefaultMaxSpeedKmh),
			DefaultSpeedKmh:   getEnvAsFloat("DEFAULT_SPEED_KMH", DefaultSpeedKmh),
		},
		Tracing: TracingConfig{
			Enabled:      getEnvAsBool("OTEL_ENABLED", false),
			OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			SampleRate:   getEnvAsFloat("OTEL_TRACE_SAMPLE_RATE", 0),
		},
	}

	if overrides := getEnv("RATE_LIMIT_ENDPOINTS", ""); overrides != "" {
		var endpointConfig map[string]EndpointRateLimitConfig
		if err := json.Unmarshal([]byte(overrides), &endpointConfig); err != nil {
			return nil, fmt.Errorf("invalid RATE_LIMIT_ENDPOINTS value: %w", err)
		}
		cfg.RateLimit.EndpointOverrides = endpointConfig
	}

	if breakerOverrides := getEnv("CB_SERVICE_OVERRIDES", ""); breakerOverrides != "" {
		var serviceConfig map[string]CircuitBreakerSettings
		if err := json.Unmarshal([]byte(breakerOverrides), &serviceConfig); err != nil {
			return nil, fmt.Errorf("invalid CB_SERVICE_OVERRIDES value: %w", err)
		}
		cfg.Resilience.CircuitBreaker.ServiceOverrides = serviceConfig
	}

	if prices := getEnv("FUEL_PRICES", ""); prices != "" {
		table, err := parseRateTable("FUEL_PRICES", prices)
		if err != nil {
			return nil, err
		}
		cfg.Fuel.Prices = table
	}

	if consumption := getEnv("FUEL_CONSUMPTION", ""); consumption != "" {
		table, err := parseRateTable("FUEL_CONSUMPTION", consumption)
		if err != nil {
			return nil, err
		}
		cfg.Fuel.Consumption = table
	}

	if err := cfg.Timeout.load(); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if cfg.RateLimit.WindowSeconds <= 0 {
		cfg.RateLimit.WindowSeconds = int((time.Minute).Seconds())
	}

	if cfg.Resilience.CircuitBreaker.TimeoutSeconds <= 0 {
		cfg.Resilience.CircuitBreaker.TimeoutSeconds = 30
	}

	if cfg.Resilience.CircuitBreaker.IntervalSeconds <= 0 {
		cfg.Resilience.CircuitBreaker.IntervalSeconds = 60
	}

	if cfg.Resilience.CircuitBreaker.FailureThreshold <= 0 {
		cfg.Resilience.CircuitBreaker.FailureThreshold = 5
	}

	if cfg.Resilience.CircuitBreaker.SuccessThreshold <= 0 {
		cfg.Resilience.CircuitBreaker.SuccessThreshold = 1
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Provider.TimeoutSeconds <= 0 {
		c.Provider.TimeoutSeconds = DefaultProviderTimeout
	}
	if c.Provider.TimeoutSeconds > MaxProviderTimeout {
		return fmt.Errorf("PROVIDER_TIMEOUT_SECONDS (%d) exceeds maximum of %d seconds", c.Provider.TimeoutSeconds, MaxProviderTimeout)
	}

	switch c.Fuel.Policy {
	case FuelPolicyPerVehicle, FuelPolicyFlat:
	default:
		return fmt.Errorf("invalid FUEL_POLICY %q: expected %s or %s", c.Fuel.Policy, FuelPolicyPerVehicle, FuelPolicyFlat)
	}
	if c.Fuel.FlatRate <= 0 {
		return fmt.Errorf("FUEL_FLAT_RATE must be positive, got %v", c.Fuel.FlatRate)
	}

	switch c.Planner.Policy {
	case RoutePolicyDualProfile, RoutePolicyDrivingFirst:
	default:
		return fmt.Errorf("invalid ROUTE_POLICY %q: expected %s or %s", c.Planner.Policy, RoutePolicyDualProfile, RoutePolicyDrivingFirst)
	}
	if c.Planner.MaxDistanceMeters <= 0 {
		return fmt.Errorf("MAX_DISTANCE_METERS must be positive, got %v", c.Planner.MaxDistanceMeters)
	}
	if c.Planner.MaxSpeedKmh <= 0 {
		return fmt.Errorf("MAX_SPEED_KMH must be positive, got %v", c.Planner.MaxSpeedKmh)
	}
	if c.Planner.DefaultSpeedKmh <= 0 || c.Planner.DefaultSpeedKmh > c.Planner.MaxSpeedKmh {
		return fmt.Errorf("DEFAULT_SPEED_KMH must be between 0 and %v, got %v", c.Planner.MaxSpeedKmh, c.Planner.DefaultSpeedKmh)
	}

	return nil
}

func parseRateTable(key, raw string) (map[string]float64, error) {
	var table map[string]float64
	if err := json.Unmarshal([]byte(raw), &table); err != nil {
		return nil, fmt.Errorf("invalid %s value: %w", key, err)
	}
	if len(table) == 0 {
		return nil, fmt.Errorf("invalid %s value: table is empty", key)
	}
	normalized := make(map[string]float64, len(table))
	for name, value := range table {
		if value <= 0 {
			return nil, fmt.Errorf("invalid %s value: %q must be positive, got %v", key, name, value)
		}
		normalized[strings.ToLower(strings.TrimSpace(name))] = value
	}
	return normalized, nil
}

// SettingsFor returns effective breaker settings for a specific upstream service name
func (c CircuitBreakerConfig) SettingsFor(service string) CircuitBreakerSettings {
	settings := CircuitBreakerSettings{
		FailureThreshold: c.FailureThreshold,
		SuccessThreshold: c.SuccessThreshold,
		TimeoutSeconds:   c.TimeoutSeconds,
		IntervalSeconds:  c.IntervalSeconds,
	}

	if c.ServiceOverrides != nil {
		if override, ok := c.ServiceOverrides[service]; ok {
			if override.FailureThreshold > 0 {
				settings.FailureThreshold = override.FailureThreshold
			}
			if override.SuccessThreshold > 0 {
				settings.SuccessThreshold = override.SuccessThreshold
			}
			if override.TimeoutSeconds > 0 {
				settings.TimeoutSeconds = override.TimeoutSeconds
			}
			if override.IntervalSeconds > 0 {
				settings.IntervalSeconds = override.IntervalSeconds
			}
		}
	}

	if settings.SuccessThreshold <= 0 {
		settings.SuccessThreshold = 1
	}
	if settings.FailureThreshold <= 0 {
		settings.FailureThreshold = 5
	}
	if settings.TimeoutSeconds <= 0 {
		settings.TimeoutSeconds = 30
	}
	if settings.IntervalSeconds <= 0 {
		settings.IntervalSeconds = 60
	}

	return settings
}

// Timeout returns the provider call timeout.
func (c ProviderConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return time.Duration(DefaultProviderTimeout) * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// Window returns the configured rate limit window duration
func (c RateLimitConfig) Window() time.Duration {
	if c.WindowSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.WindowSeconds) * time.Second
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

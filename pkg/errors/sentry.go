package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/JesusSantiago31/API-GPS/pkg/common"
	"github.com/getsentry/sentry-go"
)

// SentryConfig holds configuration for Sentry integration
type SentryConfig struct {
	DSN              string
	Environment      string
	Release          string
	SampleRate       float64
	TracesSampleRate float64
	Debug            bool
	EnableTracing    bool
	ServerName       string
	AttachStacktrace bool
}

// ErrSentryDisabled is returned by InitSentry when no DSN is configured.
var ErrSentryDisabled = stderrors.New("sentry DSN is not configured")

// DefaultSentryConfig returns a Sentry configuration read from the environment
func DefaultSentryConfig() *SentryConfig {
	environment := getEnvironment()
	return &SentryConfig{
		DSN:              os.Getenv("SENTRY_DSN"),
		Environment:      environment,
		Release:          os.Getenv("SENTRY_RELEASE"),
		SampleRate:       getRate("SENTRY_SAMPLE_RATE", 1.0),
		TracesSampleRate: getRate("SENTRY_TRACES_SAMPLE_RATE", defaultTracesRate(environment)),
		Debug:            os.Getenv("SENTRY_DEBUG") == "true",
		EnableTracing:    os.Getenv("SENTRY_ENABLE_TRACING") != "false",
		ServerName:       os.Getenv("SERVICE_NAME"),
		AttachStacktrace: true,
	}
}

// InitSentry initializes the Sentry SDK with the given configuration
func InitSentry(config *SentryConfig) error {
	if config.DSN == "" {
		return ErrSentryDisabled
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              config.DSN,
		Environment:      config.Environment,
		Release:          config.Release,
		SampleRate:       config.SampleRate,
		TracesSampleRate: config.TracesSampleRate,
		Debug:            config.Debug,
		EnableTracing:    config.EnableTracing,
		ServerName:       config.ServerName,
		AttachStacktrace: config.AttachStacktrace,
		BeforeSend: func(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
			if event.Level == sentry.LevelInfo || event.Level == sentry.LevelDebug {
				return nil
			}
			return event
		},
		BeforeBreadcrumb: func(breadcrumb *sentry.Breadcrumb, hint *sentry.BreadcrumbHint) *sentry.Breadcrumb {
			if breadcrumb.Category == "http" && breadcrumb.Data != nil {
				delete(breadcrumb.Data, "Authorization")
				delete(breadcrumb.Data, "Cookie")
			}
			return breadcrumb
		},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize sentry: %w", err)
	}

	return nil
}

// Flush flushes the Sentry buffer
func Flush(timeout time.Duration) bool {
	return sentry.Flush(timeout)
}

// AddBreadcrumbForRequest adds a breadcrumb for HTTP request
func AddBreadcrumbForRequest(method, url string, statusCode int, duration time.Duration) {
	sentry.AddBreadcrumb(&sentry.Breadcrumb{
		Type:      "http",
		Category:  "http.request",
		Level:     sentry.LevelInfo,
		Message:   fmt.Sprintf("%s %s", method, url),
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"method":      method,
			"url":         url,
			"status_code": statusCode,
			"duration_ms": duration.Milliseconds(),
		},
	})
}

// ShouldReportError determines if an error should be reported to Sentry.
// Client errors, including domain rejections carried as AppError 4xx, are
// expected outcomes and are not reported.
func ShouldReportError(err error, statusCode int) bool {
	if err == nil {
		return false
	}

	if appErr, ok := common.AsAppError(err); ok && appErr.Code < http.StatusInternalServerError {
		return false
	}

	if statusCode >= 400 && statusCode < 500 && statusCode != http.StatusTooManyRequests {
		return false
	}

	return true
}

func getEnvironment() string {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = os.Getenv("SENTRY_ENVIRONMENT")
	}
	if env == "" {
		env = "development"
	}
	return env
}

func defaultTracesRate(environment string) float64 {
	if environment == "production" {
		return 0.1
	}
	return 1.0
}

func getRate(key string, fallback float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	rate, err := strconv.ParseFloat(raw, 64)
	if err != nil || rate < 0 || rate > 1 {
		return fallback
	}
	return rate
}

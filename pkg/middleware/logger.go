package middleware

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/JesusSantiago31/API-GPS/pkg/logger"
	"github.com/JesusSantiago31/API-GPS/pkg/security"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const maxLoggedPayload = 512

// Probe and scrape endpoints are too chatty to log on success.
var quietPaths = map[string]bool{
	"/metrics":      true,
	"/health":       true,
	"/health/live":  true,
	"/health/ready": true,
}

type responseRecorder struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (r *responseRecorder) Write(data []byte) (int, error) {
	if r.body.Len() < maxLoggedPayload {
		r.body.Write(data)
	}
	return r.ResponseWriter.Write(data)
}

func (r *responseRecorder) WriteString(data string) (int, error) {
	if r.body.Len() < maxLoggedPayload {
		r.body.WriteString(data)
	}
	return r.ResponseWriter.WriteString(data)
}

// RequestLogger writes one access log line per request. Request bodies are
// always logged in sanitized, truncated form; response bodies only for
// failed requests since successful route payloads carry whole geometries.
func RequestLogger(serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestBody := captureRequestBody(c)
		recorder := &responseRecorder{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
		c.Writer = recorder

		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		statusCode := c.Writer.Status()
		if quietPaths[path] && statusCode < http.StatusBadRequest {
			return
		}

		route := c.FullPath()
		if route == "" {
			route = path
		}

		fields := []zap.Field{
			zap.String("service", serviceName),
			zap.Int("status", statusCode),
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.String("query", c.Request.URL.RawQuery),
			zap.String("ip", c.ClientIP()),
			zap.Duration("latency", time.Since(start)),
			zap.Int("response_size", c.Writer.Size()),
		}

		if requestBody != "" {
			fields = append(fields, zap.String("request_body", requestBody))
		}

		reqLogger := logger.WithContext(c.Request.Context())

		switch {
		case len(c.Errors) > 0:
			fields = append(fields, zap.String("errors", c.Errors.String()))
			reqLogger.Error("Request completed with errors", fields...)
		case statusCode >= http.StatusBadRequest:
			if responseBody := sanitizePayload(recorder.body.Bytes()); responseBody != "" {
				fields = append(fields, zap.String("response_body", responseBody))
			}
			reqLogger.Warn("Request rejected", fields...)
		default:
			reqLogger.Info("Request completed", fields...)
		}
	}
}

func captureRequestBody(c *gin.Context) string {
	if c.Request == nil || c.Request.Body == nil {
		return ""
	}

	bodyBytes, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return ""
	}

	c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
	return sanitizePayload(bodyBytes)
}

func sanitizePayload(payload []byte) string {
	if len(payload) == 0 {
		return ""
	}

	sanitized := security.StripHTMLTags(string(payload))
	sanitized = security.SanitizeString(sanitized)
	sanitized = strings.Join(strings.Fields(sanitized), " ")

	if len(sanitized) > maxLoggedPayload {
		sanitized = sanitized[:maxLoggedPayload] + "...(truncated)"
	}

	return sanitized
}

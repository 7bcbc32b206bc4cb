package middleware

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runSanitize(t *testing.T, body, contentType string) string {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var seen string
	router := gin.New()
	router.Use(SanitizeRequest())
	router.POST("/calculate_route", func(c *gin.Context) {
		b, err := io.ReadAll(c.Request.Body)
		require.NoError(t, err)
		seen = string(b)
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodPost, "/calculate_route", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(httptest.NewRecorder(), req)
	return seen
}

func TestSanitizeRequest_StripsMarkupFromAddresses(t *testing.T) {
	seen := runSanitize(t,
		`{"start_text":"<script>alert(1)</script>Zocalo","end":[-99.1269,19.4284]}`,
		"application/json")

	assert.Contains(t, seen, `"start_text":"Zocalo"`)
	assert.Contains(t, seen, `[-99.1269,19.4284]`)
}

func TestSanitizeRequest_LeavesCleanBodyUntouched(t *testing.T) {
	body := `{"start": [-99.1332000, 19.4326], "address": "Calle 5 & 6"}`
	assert.Equal(t, body, runSanitize(t, body, "application/json; charset=utf-8"))
}

func TestSanitizeRequest_IgnoresSelectorsAndOtherTypes(t *testing.T) {
	body := `{"fuel_type":"<b>premium</b>"}`
	assert.Equal(t, body, runSanitize(t, body, "application/json"))
	assert.Equal(t, "<b>x</b>", runSanitize(t, "<b>x</b>", "text/plain"))
}

func TestSanitizeRequest_MalformedJSONPassesThrough(t *testing.T) {
	assert.Equal(t, `{"start":`, runSanitize(t, `{"start":`, "application/json"))
}

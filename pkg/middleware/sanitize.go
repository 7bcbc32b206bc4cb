package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"

	"github.com/JesusSantiago31/API-GPS/pkg/security"
	"github.com/gin-gonic/gin"
)

const maxSanitizedBodySize = 1 << 20

// TextFields are the request fields carrying free text that is forwarded
// to the geocoder. Selectors like fuel_type are validated, not rewritten.
var TextFields = map[string]bool{
	"address":    true,
	"start_text": true,
	"end_text":   true,
}

// SanitizeRequest strips markup and control characters from address text
// in JSON bodies before handlers bind them. The body is only re-encoded
// when a field changed, so coordinates keep their original formatting.
func SanitizeRequest() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil && strings.Contains(c.GetHeader("Content-Type"), "application/json") {
			sanitizeTextFields(c)
		}
		c.Next()
	}
}

func sanitizeTextFields(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxSanitizedBodySize))
	if err != nil {
		body = nil
	}
	restore := func(b []byte) {
		c.Request.Body = io.NopCloser(bytes.NewReader(b))
		c.Request.ContentLength = int64(len(b))
	}

	var payload map[string]json.RawMessage
	if len(body) == 0 || json.Unmarshal(body, &payload) != nil {
		restore(body)
		return
	}

	changed := false
	for field := range TextFields {
		raw, ok := payload[field]
		if !ok {
			continue
		}
		var text string
		if json.Unmarshal(raw, &text) != nil {
			continue
		}
		clean := security.SanitizeText(text, security.MaxTextLength)
		if clean == text {
			continue
		}
		encoded, err := json.Marshal(clean)
		if err != nil {
			continue
		}
		payload[field] = encoded
		changed = true
	}

	if !changed {
		restore(body)
		return
	}
	rewritten, err := json.Marshal(payload)
	if err != nil {
		restore(body)
		return
	}
	restore(rewritten)
}

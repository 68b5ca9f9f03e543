// internal/workers/ai-conversation/classify-intent/parse.go
package classifyintent

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"directory-assistant/internal/common/validation"
	"directory-assistant/internal/models"
)

var ErrMalformedIntent = errors.New("MALFORMED_INTENT")

var payloadSchema = validation.MustCompileSchema(intentSchema)

// ParseResult holds either a parsed Intent or the reason parsing failed.
type ParseResult struct {
	Intent models.Intent
	Err    error
}

func (r ParseResult) OK() bool {
	return r.Err == nil
}

// IntentOrDefault returns the parsed intent, or the default intent on failure.
func (r ParseResult) IntentOrDefault() models.Intent {
	if r.Err != nil {
		return models.DefaultIntent()
	}
	return r.Intent
}

func failed(format string, args ...interface{}) ParseResult {
	return ParseResult{Err: fmt.Errorf("%w: %s", ErrMalformedIntent, fmt.Sprintf(format, args...))}
}

// Parse reads a completion body that must be exactly one JSON object.
func Parse(content string) ParseResult {
	raw, err := singleObject(content)
	if err != nil {
		return failed("%v", err)
	}

	result, err := payloadSchema.ValidateBytes(raw)
	if err != nil {
		return failed("schema: %v", err)
	}
	if !result.Valid {
		return failed("schema: %s", result.Error())
	}

	var p intentPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return failed("decode: %v", err)
	}

	intentType := models.IntentType(p.Intent)
	if !intentType.Valid() {
		return failed("unknown intent %q", p.Intent)
	}

	intent := models.Intent{
		Type:       intentType,
		SearchTerm: strings.TrimSpace(deref(p.SearchTerm)),
		Confidence: p.Confidence,
	}
	if intentType == models.IntentLeadCapture {
		intent.Lead = &models.LeadFields{
			HasConsent: p.HasConsent != nil && *p.HasConsent,
			FirstName:  strings.TrimSpace(deref(p.FirstName)),
			LastName:   strings.TrimSpace(deref(p.LastName)),
			Phone:      strings.TrimSpace(deref(p.Phone)),
			Email:      strings.TrimSpace(deref(p.Email)),
			City:       strings.TrimSpace(deref(p.City)),
		}
	}
	return ParseResult{Intent: intent}
}

func singleObject(content string) ([]byte, error) {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "{") {
		return nil, errors.New("content does not start with a JSON object")
	}

	dec := json.NewDecoder(strings.NewReader(trimmed))
	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("trailing content after JSON object")
	}
	return raw, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

package validation

import (
	"errors"
	"testing"
	"time"

	apperrors "directory-assistant/internal/common/errors"
	"directory-assistant/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validLead() *models.Lead {
	now := time.Now()
	return &models.Lead{
		ID:             "0b5f3c8e-1f0a-4a51-8a3b-7d1c2a9e4f10",
		ConversationID: "12345",
		Source:         "telegram",
		Status:         models.LeadStatusNew,
		FirstName:      "Juan",
		LastName:       "Pérez",
		Phone:          "+57 300 123 4567",
		Country:        "CO",
		ConsentGiven:   true,
		ConsentDate:    &now,
	}
}

// ==========================
// Lead validation
// ==========================

func TestLeadValidator_Valid(t *testing.T) {
	assert.NoError(t, NewLeadValidator().Validate(validLead()))

	emailOnly := validLead()
	emailOnly.Phone = ""
	emailOnly.Email = "juan@example.com"
	assert.NoError(t, NewLeadValidator().Validate(emailOnly))
}

func TestLeadValidator_Violations(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(l *models.Lead)
		wantField string
		wantRule  string
	}{
		{"no consent", func(l *models.Lead) { l.ConsentGiven = false }, "consentGiven", RuleConsent},
		{"no contact", func(l *models.Lead) { l.Phone = "" }, "contact", RuleContactMissing},
		{"bad phone", func(l *models.Lead) { l.Phone = "abc" }, "phone", RuleFormat},
		{"bad email", func(l *models.Lead) { l.Email = "juan@" }, "email", RuleFormat},
		{"short name", func(l *models.Lead) { l.FirstName = "J" }, "firstName", RuleFormat},
		{"digits in name", func(l *models.Lead) { l.LastName = "P3rez" }, "lastName", RuleFormat},
		{"missing name", func(l *models.Lead) { l.FirstName = "" }, "firstName", RuleRequired},
		{"unknown source", func(l *models.Lead) { l.Source = "fax" }, "source", RuleAllowed},
		{"unknown status", func(l *models.Lead) { l.Status = "pending" }, "status", RuleAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lead := validLead()
			tt.mutate(lead)

			err := NewLeadValidator().Validate(lead)

			var lve *LeadValidationError
			require.True(t, errors.As(err, &lve), "got %v", err)
			assert.Equal(t, tt.wantField, lve.Field)
			assert.Equal(t, tt.wantRule, lve.Rule)
			assert.Equal(t, apperrors.ErrCodeLeadValidationFailed, lve.StandardError().Code)
		})
	}
}

func TestIsValidPhone(t *testing.T) {
	assert.True(t, IsValidPhone("3001234567"))
	assert.True(t, IsValidPhone("+57 (300) 123-4567"))
	assert.False(t, IsValidPhone("123"))
	assert.False(t, IsValidPhone("+57 300 123 4567 8901 2345"))
	assert.False(t, IsValidPhone("call me"))
}

func TestIsValidName(t *testing.T) {
	assert.True(t, IsValidName("María José"))
	assert.True(t, IsValidName("O'Neil-Núñez"))
	assert.False(t, IsValidName("X"))
	assert.False(t, IsValidName("R2D2"))
}

// ==========================
// JSON schema
// ==========================

const testSchema = `{
  "type": "object",
  "required": ["intent", "confidence"],
  "properties": {
    "intent": {"type": "string", "enum": ["A", "B"]},
    "confidence": {"type": "number", "minimum": 0, "maximum": 1}
  }
}`

func TestSchema_ValidateBytes(t *testing.T) {
	schema := MustCompileSchema(testSchema)

	res, err := schema.ValidateBytes([]byte(`{"intent":"A","confidence":0.9}`))
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Empty(t, res.Error())

	res, err = schema.ValidateBytes([]byte(`{"intent":"C","confidence":1.4}`))
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Len(t, res.Errors, 2)
	assert.Contains(t, res.Error(), "confidence")
}

func TestSchema_ValidateValue(t *testing.T) {
	schema := MustCompileSchema(testSchema)

	res, err := schema.ValidateValue(map[string]interface{}{"intent": "B"})
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, "required", res.Errors[0].Code)
}

func TestCompileSchema_Invalid(t *testing.T) {
	_, err := CompileSchema(`{"type": 12}`)
	assert.Error(t, err)
}

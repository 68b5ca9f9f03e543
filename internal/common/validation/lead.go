package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	apperrors "directory-assistant/internal/common/errors"
	"directory-assistant/internal/models"

	"github.com/go-playground/validator/v10"
)

var (
	phonePattern = regexp.MustCompile(`^\+?[0-9\s\-()]{7,20}$`)
	namePattern  = regexp.MustCompile(`^[\p{L}\s'\-]{2,100}$`)
)

// Rules reported in LeadValidationError.
const (
	RuleRequired       = "required"
	RuleContactMissing = "contact_missing"
	RuleConsent        = "consent"
	RuleFormat         = "format"
	RuleAllowed        = "allowed"
)

// LeadValidationError names the first lead field that broke a rule.
type LeadValidationError struct {
	Field string
	Rule  string
}

func (e *LeadValidationError) Error() string {
	return fmt.Sprintf("lead %s: %s", e.Field, e.Rule)
}

// StandardError converts e into the shared taxonomy.
func (e *LeadValidationError) StandardError() *apperrors.StandardError {
	return apperrors.NewLeadValidationFailedError(e.Field, e.Rule)
}

// LeadValidator checks leads before they are persisted.
type LeadValidator struct {
	validate *validator.Validate
}

func NewLeadValidator() *LeadValidator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return IsValidPhone(fl.Field().String())
	})
	_ = v.RegisterValidation("personname", func(fl validator.FieldLevel) bool {
		return IsValidName(fl.Field().String())
	})

	return &LeadValidator{validate: v}
}

// Validate returns nil or a *LeadValidationError for the first violation. Consent
// and contact checks come first so the user is asked for what matters most.
func (lv *LeadValidator) Validate(lead *models.Lead) error {
	if lead == nil {
		return &LeadValidationError{Field: "lead", Rule: RuleRequired}
	}
	if !lead.ConsentGiven {
		return &LeadValidationError{Field: "consentGiven", Rule: RuleConsent}
	}
	if strings.TrimSpace(lead.Phone) == "" && strings.TrimSpace(lead.Email) == "" {
		return &LeadValidationError{Field: "contact", Rule: RuleContactMissing}
	}

	err := lv.validate.Struct(lead)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("validate lead: %w", err)
	}

	fe := fieldErrs[0]
	return &LeadValidationError{Field: fe.Field(), Rule: ruleFor(fe.Tag())}
}

func ruleFor(tag string) string {
	switch tag {
	case "required", "required_without":
		return RuleRequired
	case "oneof":
		return RuleAllowed
	case "eq":
		return RuleConsent
	default:
		return RuleFormat
	}
}

// IsValidPhone accepts 7–20 digits, spaces, dashes and parentheses with an
// optional leading plus.
func IsValidPhone(phone string) bool {
	return phonePattern.MatchString(strings.TrimSpace(phone))
}

// IsValidName accepts 2–100 letters (accents included), spaces, apostrophes and hyphens.
func IsValidName(name string) bool {
	return namePattern.MatchString(strings.TrimSpace(name))
}

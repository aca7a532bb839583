package validator

import (
	"strings"

	"github.com/bizintake/onboarding-backend/internal/entity"
)

// FieldResult is the outcome of one structural field check.
type FieldResult struct {
	Valid  bool
	Reason string
}

func valid() FieldResult {
	return FieldResult{Valid: true}
}

func invalid(reason string) FieldResult {
	return FieldResult{Valid: false, Reason: reason}
}

// FieldValidator runs the lightweight structural rules for extracted
// business fields. Rules are pure; remote company/tax verification is the
// registry connectors' job, not ours.
type FieldValidator struct{}

func NewFieldValidator() *FieldValidator {
	return &FieldValidator{}
}

// Validate checks one scalar field. Unknown fields are always valid.
func (v *FieldValidator) Validate(field, value string) FieldResult {
	value = strings.TrimSpace(value)

	switch field {
	case entity.FieldCompanyName:
		if len(value) < 2 {
			return invalid("company name must be at least 2 characters")
		}
	case entity.FieldRegistrationNumber:
		if len(value) < 5 {
			return invalid("registration number must be at least 5 characters")
		}
	case entity.FieldTaxNumber:
		if len(value) < 8 {
			return invalid("tax number must be at least 8 characters")
		}
	}

	return valid()
}

// ValidateContact checks the contact details map as a whole: it must carry a
// non-empty email entry.
func (v *FieldValidator) ValidateContact(details map[string]string) FieldResult {
	if strings.TrimSpace(details[entity.ContactEmail]) == "" {
		return invalid("contact details must include an email address")
	}
	return valid()
}

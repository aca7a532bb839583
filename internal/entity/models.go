package entity

import (
	"time"
)

// Question is a single step of the onboarding interview. The catalog owns
// the canonical instances; everything else holds references.
type Question struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Extract []string `json:"extract"`
	IsFinal bool     `json:"is_final"`
}

// Business field names the interview collects.
const (
	FieldCompanyName        = "company_name"
	FieldRegistrationNumber = "registration_number"
	FieldTaxNumber          = "tax_number"
	FieldContactDetails     = "contact_details"
)

// Contact sub-fields that are folded into BusinessInfo.ContactDetails.
const (
	ContactEmail     = "email"
	ContactPhone     = "phone"
	ContactFirstName = "first_name"
	ContactLastName  = "last_name"
)

// BusinessInfo accumulates the typed business fields extracted over the
// session. ValidationStatus is re-derived on every write and is never stale
// relative to the field it describes.
type BusinessInfo struct {
	CompanyName        string            `json:"company_name,omitempty"`
	RegistrationNumber string            `json:"registration_number,omitempty"`
	TaxNumber          string            `json:"tax_number,omitempty"`
	ContactDetails     map[string]string `json:"contact_details,omitempty"`

	ValidationStatus map[string]bool     `json:"validation_status"`
	ValidationErrors map[string][]string `json:"validation_errors"`
}

func NewBusinessInfo() *BusinessInfo {
	return &BusinessInfo{
		ContactDetails:   make(map[string]string),
		ValidationStatus: make(map[string]bool),
		ValidationErrors: make(map[string][]string),
	}
}

// IsContactField reports whether an extracted key belongs to the contact
// details map rather than a top-level business field.
func IsContactField(key string) bool {
	switch key {
	case ContactEmail, ContactPhone, ContactFirstName, ContactLastName:
		return true
	default:
		return false
	}
}

// ApplyField writes one extracted key into the record. Contact sub-fields
// land in ContactDetails; unknown keys are ignored (they still live in the
// session's ExtractedInfo map).
func (b *BusinessInfo) ApplyField(key, value string) {
	switch {
	case key == FieldCompanyName:
		b.CompanyName = value
	case key == FieldRegistrationNumber:
		b.RegistrationNumber = value
	case key == FieldTaxNumber:
		b.TaxNumber = value
	case IsContactField(key):
		if b.ContactDetails == nil {
			b.ContactDetails = make(map[string]string)
		}
		b.ContactDetails[key] = value
	}
}

// RecordValidation stores a validation outcome for a field, replacing any
// previous outcome so the status always reflects the current value.
func (b *BusinessInfo) RecordValidation(field string, ok bool, reason string) {
	if b.ValidationStatus == nil {
		b.ValidationStatus = make(map[string]bool)
	}
	if b.ValidationErrors == nil {
		b.ValidationErrors = make(map[string][]string)
	}

	b.ValidationStatus[field] = ok
	if ok {
		delete(b.ValidationErrors, field)
		return
	}
	b.ValidationErrors[field] = append(b.ValidationErrors[field], reason)
}

// HistoryEntry records one completed turn: the question as asked, the raw
// user reply, and what was extracted from it.
type HistoryEntry struct {
	QuestionID      string            `json:"question_id"`
	Question        string            `json:"question"`
	UserResponse    string            `json:"user_response"`
	ExtractedFields map[string]string `json:"extracted_fields"`
}

// ConversationContext is the per-session interview state. One context exists
// per active session and is exclusively owned by at most one in-flight turn.
type ConversationContext struct {
	SessionID            string            `json:"session_id"`
	CurrentQuestionIndex int               `json:"current_question_index"`
	ExtractedInfo        map[string]string `json:"extracted_info"`
	History              []HistoryEntry    `json:"conversation_history"`
	Business             *BusinessInfo     `json:"business_info"`
	Complete             bool              `json:"complete"`
	CreatedAt            time.Time         `json:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at"`
}

func NewConversationContext(sessionID string, now time.Time) *ConversationContext {
	return &ConversationContext{
		SessionID:     sessionID,
		ExtractedInfo: make(map[string]string),
		Business:      NewBusinessInfo(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Clone deep-copies the context. The engine mutates a clone so a failed
// turn leaves the stored context byte-for-byte unchanged.
func (c *ConversationContext) Clone() *ConversationContext {
	if c == nil {
		return nil
	}

	clone := *c

	clone.ExtractedInfo = make(map[string]string, len(c.ExtractedInfo))
	for k, v := range c.ExtractedInfo {
		clone.ExtractedInfo[k] = v
	}

	clone.History = make([]HistoryEntry, len(c.History))
	for i, h := range c.History {
		entry := h
		entry.ExtractedFields = make(map[string]string, len(h.ExtractedFields))
		for k, v := range h.ExtractedFields {
			entry.ExtractedFields[k] = v
		}
		clone.History[i] = entry
	}

	if c.Business != nil {
		biz := *c.Business
		biz.ContactDetails = make(map[string]string, len(c.Business.ContactDetails))
		for k, v := range c.Business.ContactDetails {
			biz.ContactDetails[k] = v
		}
		biz.ValidationStatus = make(map[string]bool, len(c.Business.ValidationStatus))
		for k, v := range c.Business.ValidationStatus {
			biz.ValidationStatus[k] = v
		}
		biz.ValidationErrors = make(map[string][]string, len(c.Business.ValidationErrors))
		for k, v := range c.Business.ValidationErrors {
			errs := make([]string, len(v))
			copy(errs, v)
			biz.ValidationErrors[k] = errs
		}
		clone.Business = &biz
	}

	return &clone
}

// ValidationResult is the outcome a pipeline stage assigns to a draft
// reply. The engine treats every non-VALID result as a halt; the built-in
// stages emit INVALID, NEEDS_CLARIFICATION is for stages that want the
// user asked again rather than the reply rewritten.
type ValidationResult string

const (
	ValidationValid              ValidationResult = "VALID"
	ValidationInvalid            ValidationResult = "INVALID"
	ValidationNeedsClarification ValidationResult = "NEEDS_CLARIFICATION"
)

// TurnContext is the ephemeral per-turn state the response pipeline works
// on. Created fresh each turn, discarded after; never persisted.
type TurnContext struct {
	UserMessage   string
	Question      *Question
	ExtractedInfo map[string]string
	Reply         string
	Result        ValidationResult
	ErrorMessage  string
}

func NewTurnContext(userMessage string, q *Question, extracted map[string]string, draft string) *TurnContext {
	return &TurnContext{
		UserMessage:   userMessage,
		Question:      q,
		ExtractedInfo: extracted,
		Reply:         draft,
		Result:        ValidationValid,
	}
}

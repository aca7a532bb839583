package entity

import "time"

// ResultFormat selects the summary export format.
type ResultFormat string

const (
	FormatMarkdown ResultFormat = "md"
	FormatPDF      ResultFormat = "pdf"
)

// StartConversationResponse is returned when a session is created.
type StartConversationResponse struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// MessageRequest carries one user turn.
type MessageRequest struct {
	Message string `json:"message"`
}

// MessageResponse is the engine's reply to one turn.
type MessageResponse struct {
	Message       string            `json:"message"`
	ExtractedInfo map[string]string `json:"extracted_info"`
	Complete      bool              `json:"complete"`
}

// ConversationDTO is the API view of a session's current state.
type ConversationDTO struct {
	SessionID            string            `json:"session_id"`
	CurrentQuestionIndex int               `json:"current_question_index"`
	CurrentQuestion      string            `json:"current_question,omitempty"`
	ExtractedInfo        map[string]string `json:"extracted_info"`
	BusinessInfo         *BusinessInfo     `json:"business_info"`
	Complete             bool              `json:"complete"`
	CreatedAt            time.Time         `json:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at"`
}

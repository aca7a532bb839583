package entity

// LLMGenerateRequest is the payload sent to the completion service.
type LLMGenerateRequest struct {
	SystemInstruction string `json:"system_instruction"`
	Prompt            string `json:"prompt"`
}

// LLMGenerateResponse is the completion service reply envelope.
type LLMGenerateResponse struct {
	Result string `json:"result"`
}

// ModelReply is the parsed two-key shape the model is instructed to return:
// a user-facing message plus the fields it extracted from the user's answer.
type ModelReply struct {
	Message       string            `json:"message"`
	ExtractedInfo map[string]string `json:"extracted_info"`
}

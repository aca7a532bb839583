package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bizintake/onboarding-backend/internal/entity"
	"github.com/bizintake/onboarding-backend/internal/prompt"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// MockConnector is a deterministic stand-in for the model service. It
// scrapes the prompt for the user reply, the fields to extract and the next
// question, and fills every requested field with the raw reply.
type MockConnector struct {
	logger *zap.Logger
}

func NewMockConnector(logger *zap.Logger) *MockConnector {
	return &MockConnector{
		logger: logger,
	}
}

func (m *MockConnector) Generate(ctx context.Context, req *entity.LLMGenerateRequest) (string, error) {
	ctxzap.Info(ctx, "[MOCK] generating completion via LLM")

	userReply := promptLine(req.Prompt, "User reply: ")
	fieldsLine := promptLine(req.Prompt, "Fields to extract: ")
	next := promptLine(req.Prompt, "Next question to ask: ")

	extracted := map[string]string{}
	if userReply != "" {
		for _, field := range strings.Split(fieldsLine, ", ") {
			if field = strings.TrimSpace(field); field != "" {
				extracted[field] = userReply
			}
		}
	}

	message := "Thank you, that is noted."
	if next != "" && next != prompt.NoMoreQuestions {
		message = fmt.Sprintf("Thank you. %s", next)
	}

	reply, err := json.Marshal(entity.ModelReply{
		Message:       message,
		ExtractedInfo: extracted,
	})
	if err != nil {
		return "", err
	}

	ctxzap.Info(ctx, "[MOCK] completion generated", zap.Int("field_count", len(extracted)))
	return string(reply), nil
}

// promptLine returns the remainder of the first prompt line starting with
// the given prefix, or empty when absent.
func promptLine(p, prefix string) string {
	for _, line := range strings.Split(p, "\n") {
		if strings.HasPrefix(line, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(line, prefix))
		}
	}
	return ""
}

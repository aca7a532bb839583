package conversation

import (
	"context"

	"github.com/bizintake/onboarding-backend/internal/entity"
)

type ConversationUsecase interface {
	StartConversation(ctx context.Context) (*entity.StartConversationResponse, error)
	GetConversation(ctx context.Context, sessionID string) (*entity.ConversationContext, error)
	CurrentQuestionText(conv *entity.ConversationContext) string
	ProcessResponse(ctx context.Context, sessionID, userMessage string) (*entity.MessageResponse, error)
	SummaryText(ctx context.Context, sessionID string) (string, error)
}

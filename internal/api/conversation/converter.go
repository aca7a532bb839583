package conversation

import (
	"github.com/bizintake/onboarding-backend/internal/entity"
)

func toConversationDTO(conv *entity.ConversationContext, currentQuestion string) *entity.ConversationDTO {
	return &entity.ConversationDTO{
		SessionID:            conv.SessionID,
		CurrentQuestionIndex: conv.CurrentQuestionIndex,
		CurrentQuestion:      currentQuestion,
		ExtractedInfo:        conv.ExtractedInfo,
		BusinessInfo:         conv.Business,
		Complete:             conv.Complete,
		CreatedAt:            conv.CreatedAt,
		UpdatedAt:            conv.UpdatedAt,
	}
}

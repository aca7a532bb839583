package conversation

import (
	"context"

	"github.com/bizintake/onboarding-backend/internal/entity"
)

// LLMConnector is the language-model collaborator: an untrusted text
// producer that may fail or time out.
type LLMConnector interface {
	Generate(ctx context.Context, req *entity.LLMGenerateRequest) (string, error)
}

// Store hands out exclusive ownership of one ConversationContext per
// session. Acquire fails with entity.ErrSessionBusy while another turn holds
// the context; Release persists the context and returns ownership.
type Store interface {
	Create(ctx context.Context, conv *entity.ConversationContext) error
	Get(ctx context.Context, sessionID string) (*entity.ConversationContext, error)
	Acquire(ctx context.Context, sessionID string) (*entity.ConversationContext, error)
	Release(ctx context.Context, sessionID string, conv *entity.ConversationContext) error
}

// RegistryConnector looks up company and tax records to annotate the
// completed-onboarding summary. The turn engine never calls it.
type RegistryConnector interface {
	LookupCompany(ctx context.Context, req *entity.CompanyLookupRequest) (*entity.CompanyRecord, error)
	LookupTax(ctx context.Context, req *entity.TaxLookupRequest) (*entity.TaxRecord, error)
}

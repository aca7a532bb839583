package conversation

import (
	"context"
	"fmt"
	"time"

	"github.com/bizintake/onboarding-backend/internal/catalog"
	"github.com/bizintake/onboarding-backend/internal/entity"
	"github.com/bizintake/onboarding-backend/internal/extraction"
	"github.com/bizintake/onboarding-backend/internal/pipeline"
	"github.com/bizintake/onboarding-backend/internal/pkg/validator"
	"github.com/bizintake/onboarding-backend/internal/prompt"
	"github.com/google/uuid"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const (
	// fallbackMessage is shown when the model call fails or its output
	// cannot be parsed. The turn is retriable; state is untouched.
	fallbackMessage = "I'm sorry, I had trouble processing that. Could you repeat your answer?"

	// rephrasePrefix introduces the pipeline's own error message when a
	// reply is rejected after extraction succeeded.
	rephrasePrefix = "I'm sorry, I couldn't phrase a proper reply (%s). Could you answer the question once more?"
)

// Usecase drives one interview turn end to end: prompt, model call, parse,
// response pipeline, state update. All session state lives in the
// caller-owned ConversationContext checked out from the store.
type Usecase struct {
	store       Store
	llm         LLMConnector
	registry    RegistryConnector
	catalog     *catalog.Catalog
	prompts     *prompt.Builder
	parser      *extraction.Parser
	pipeline    *pipeline.Pipeline
	fields      *validator.FieldValidator
	turnTimeout time.Duration
	logger      *zap.Logger
	now         func() time.Time
}

func NewUsecase(
	store Store,
	llm LLMConnector,
	registry RegistryConnector,
	cat *catalog.Catalog,
	pipe *pipeline.Pipeline,
	fields *validator.FieldValidator,
	turnTimeout time.Duration,
	logger *zap.Logger,
) *Usecase {
	return &Usecase{
		store:       store,
		llm:         llm,
		registry:    registry,
		catalog:     cat,
		prompts:     prompt.NewBuilder(cat),
		parser:      extraction.NewParser(),
		pipeline:    pipe,
		fields:      fields,
		turnTimeout: turnTimeout,
		logger:      logger,
		now:         time.Now,
	}
}

// StartConversation creates an empty session and returns the first question.
func (uc *Usecase) StartConversation(ctx context.Context) (*entity.StartConversationResponse, error) {
	conv := entity.NewConversationContext(uuid.New().String(), uc.now())

	if err := uc.store.Create(ctx, conv); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	first, err := uc.catalog.QuestionAt(0)
	if err != nil {
		return nil, fmt.Errorf("first question: %w", err)
	}

	ctxzap.Info(ctx, "conversation started", zap.String("session_id", conv.SessionID))

	return &entity.StartConversationResponse{
		SessionID: conv.SessionID,
		Message:   uc.catalog.Render(first, nil),
	}, nil
}

// GetConversation returns the current state of a session.
func (uc *Usecase) GetConversation(ctx context.Context, sessionID string) (*entity.ConversationContext, error) {
	conv, err := uc.store.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return conv, nil
}

// CurrentQuestionText renders the question the session is waiting on, or
// empty once the interview is complete.
func (uc *Usecase) CurrentQuestionText(conv *entity.ConversationContext) string {
	if conv.Complete {
		return ""
	}
	q, err := uc.catalog.QuestionAt(conv.CurrentQuestionIndex)
	if err != nil {
		return ""
	}
	return uc.catalog.Render(q, conv.ExtractedInfo)
}

// ProcessResponse runs one turn for the session. The context is checked out
// exclusively for the duration of the turn; a concurrent turn for the same
// session fails with entity.ErrSessionBusy.
func (uc *Usecase) ProcessResponse(ctx context.Context, sessionID, userMessage string) (*entity.MessageResponse, error) {
	conv, err := uc.store.Acquire(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("acquire session: %w", err)
	}

	resp, next, err := uc.processTurn(ctx, conv, userMessage)

	// The store gets back either the advanced clone or the untouched
	// original; releasing must happen on every path, including after the
	// request context was cancelled mid-turn, or the latch is never
	// returned and the session stays busy.
	releaseCtx := context.WithoutCancel(ctx)
	if relErr := uc.store.Release(releaseCtx, sessionID, next); relErr != nil {
		ctxzap.Error(ctx, "failed to release session", zap.Error(relErr))
		if err == nil {
			err = fmt.Errorf("release session: %w", relErr)
		}
	}
	if err != nil {
		return nil, err
	}

	return resp, nil
}

// processTurn implements the per-turn transition. It returns the reply and
// the context to check back in: the original conv on any retriable failure,
// a mutated clone once extraction has succeeded.
func (uc *Usecase) processTurn(ctx context.Context, conv *entity.ConversationContext, userMessage string) (
	*entity.MessageResponse, *entity.ConversationContext, error,
) {
	if conv.Complete {
		return nil, conv, entity.ErrSessionComplete
	}

	current, err := uc.catalog.QuestionAt(conv.CurrentQuestionIndex)
	if err != nil {
		// Index outside the catalog is a caller bug, not user input.
		return nil, conv, err
	}
	askedText := uc.catalog.Render(current, conv.ExtractedInfo)

	promptText, err := uc.prompts.Build(userMessage, conv)
	if err != nil {
		return nil, conv, err
	}

	raw, err := uc.generate(ctx, promptText)
	if err != nil {
		ctxzap.Warn(ctx, "model call failed, state unchanged", zap.Error(err))
		return retryResponse(), conv, nil
	}

	reply, err := uc.parser.Parse(raw)
	if err != nil {
		ctxzap.Warn(ctx, "model output unparseable, state unchanged", zap.Error(err))
		return retryResponse(), conv, nil
	}

	// Extraction succeeded: from here on we work on a clone and the turn is
	// recorded in history even if the phrasing is later rejected.
	next := conv.Clone()
	merged := uc.mergeExtraction(next, reply.ExtractedInfo)
	next.History = append(next.History, entity.HistoryEntry{
		QuestionID:      current.ID,
		Question:        askedText,
		UserResponse:    userMessage,
		ExtractedFields: merged,
	})
	next.UpdatedAt = uc.now()

	tc := entity.NewTurnContext(userMessage, current, merged, reply.Message)
	tc = uc.pipeline.Run(ctx, tc)
	if tc.Result != entity.ValidationValid {
		return &entity.MessageResponse{
			Message:       fmt.Sprintf(rephrasePrefix, tc.ErrorMessage),
			ExtractedInfo: merged,
			Complete:      false,
		}, next, nil
	}

	complete := current.IsFinal
	if complete {
		next.Complete = true
	} else {
		next.CurrentQuestionIndex++
	}

	ctxzap.Info(ctx, "turn processed",
		zap.String("question_id", current.ID),
		zap.Int("next_index", next.CurrentQuestionIndex),
		zap.Bool("complete", complete),
		zap.Int("extracted_fields", len(merged)),
	)

	return &entity.MessageResponse{
		Message:       tc.Reply,
		ExtractedInfo: merged,
		Complete:      complete,
	}, next, nil
}

// generate performs the single blocking external call of the turn, bounded
// by the configured timeout.
func (uc *Usecase) generate(ctx context.Context, promptText string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, uc.turnTimeout)
	defer cancel()

	raw, err := uc.llm.Generate(callCtx, &entity.LLMGenerateRequest{
		SystemInstruction: uc.prompts.SystemInstruction(),
		Prompt:            promptText,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", entity.ErrModelUnavailable, err)
	}
	if raw == "" {
		return "", fmt.Errorf("%w: empty completion", entity.ErrModelUnavailable)
	}

	return raw, nil
}

// mergeExtraction folds the model's extracted fields into the session state
// and re-derives validation for every business field that was written.
// Later values overwrite earlier ones for the same key. A combined name key
// is split into first_name/last_name before merging.
func (uc *Usecase) mergeExtraction(conv *entity.ConversationContext, extracted map[string]string) map[string]string {
	merged := make(map[string]string, len(extracted))
	for k, v := range extracted {
		if k == "name" || k == "full_name" {
			for nk, nv := range extraction.SplitFullName(v) {
				merged[nk] = nv
			}
			continue
		}
		merged[k] = v
	}

	contactTouched := false
	for k, v := range merged {
		conv.ExtractedInfo[k] = v
		conv.Business.ApplyField(k, v)

		switch {
		case entity.IsContactField(k):
			contactTouched = true
		case k == entity.FieldCompanyName, k == entity.FieldRegistrationNumber, k == entity.FieldTaxNumber:
			res := uc.fields.Validate(k, v)
			conv.Business.RecordValidation(k, res.Valid, res.Reason)
		}
	}

	if contactTouched {
		res := uc.fields.ValidateContact(conv.Business.ContactDetails)
		conv.Business.RecordValidation(entity.FieldContactDetails, res.Valid, res.Reason)
	}

	return merged
}

func retryResponse() *entity.MessageResponse {
	return &entity.MessageResponse{
		Message:       fallbackMessage,
		ExtractedInfo: map[string]string{},
		Complete:      false,
	}
}

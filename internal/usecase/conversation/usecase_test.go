package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bizintake/onboarding-backend/internal/catalog"
	"github.com/bizintake/onboarding-backend/internal/entity"
	"github.com/bizintake/onboarding-backend/internal/pipeline"
	"github.com/bizintake/onboarding-backend/internal/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeStore struct {
	mu   sync.Mutex
	conv map[string]*entity.ConversationContext
	busy map[string]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		conv: make(map[string]*entity.ConversationContext),
		busy: make(map[string]bool),
	}
}

func (s *fakeStore) Create(_ context.Context, conv *entity.ConversationContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conv[conv.SessionID] = conv
	return nil
}

func (s *fakeStore) Get(_ context.Context, id string) (*entity.ConversationContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.conv[id]
	if !ok {
		return nil, entity.ErrSessionNotFound
	}
	return conv, nil
}

func (s *fakeStore) Acquire(_ context.Context, id string) (*entity.ConversationContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.conv[id]
	if !ok {
		return nil, entity.ErrSessionNotFound
	}
	if s.busy[id] {
		return nil, entity.ErrSessionBusy
	}
	s.busy[id] = true
	return conv, nil
}

func (s *fakeStore) Release(_ context.Context, id string, conv *entity.ConversationContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conv[id] = conv
	s.busy[id] = false
	return nil
}

type fakeLLM struct {
	generate func(ctx context.Context, req *entity.LLMGenerateRequest) (string, error)
}

func (f *fakeLLM) Generate(ctx context.Context, req *entity.LLMGenerateRequest) (string, error) {
	return f.generate(ctx, req)
}

func modelJSON(message string, extracted map[string]string) string {
	reply := entity.ModelReply{Message: message, ExtractedInfo: extracted}
	b, _ := json.Marshal(reply)
	return string(b)
}

func newTestUsecase(t *testing.T, llm LLMConnector) (*Usecase, *fakeStore) {
	t.Helper()

	pipe, err := pipeline.New(nil)
	require.NoError(t, err)

	store := newFakeStore()
	uc := NewUsecase(
		store,
		llm,
		nil,
		catalog.Default(),
		pipe,
		validator.NewFieldValidator(),
		time.Second,
		zap.NewNop(),
	)
	return uc, store
}

func snapshot(t *testing.T, conv *entity.ConversationContext) string {
	t.Helper()
	b, err := json.Marshal(conv)
	require.NoError(t, err)
	return string(b)
}

func startSession(t *testing.T, uc *Usecase) string {
	t.Helper()
	started, err := uc.StartConversation(context.Background())
	require.NoError(t, err)
	return started.SessionID
}

func TestProcessResponseHappyFirstTurn(t *testing.T) {
	llm := &fakeLLM{generate: func(_ context.Context, _ *entity.LLMGenerateRequest) (string, error) {
		return modelJSON(
			"Great, Global Fresh it is. What is the company registration number for Global Fresh?",
			map[string]string{"company_name": "Global Fresh"},
		), nil
	}}
	uc, store := newTestUsecase(t, llm)
	id := startSession(t, uc)

	resp, err := uc.ProcessResponse(context.Background(), id, "Global Fresh")
	require.NoError(t, err)

	assert.False(t, resp.Complete)
	assert.Equal(t, map[string]string{"company_name": "Global Fresh"}, resp.ExtractedInfo)
	assert.Contains(t, resp.Message, "?")

	conv, err := store.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 1, conv.CurrentQuestionIndex)
	assert.True(t, conv.Business.ValidationStatus["company_name"])
	require.Len(t, conv.History, 1)
	assert.Equal(t, "Global Fresh", conv.History[0].UserResponse)
	assert.Equal(t, "company_name", conv.History[0].QuestionID)
}

func TestProcessResponseModelFailureLeavesStateUntouched(t *testing.T) {
	llm := &fakeLLM{generate: func(_ context.Context, _ *entity.LLMGenerateRequest) (string, error) {
		return "", fmt.Errorf("connection refused")
	}}
	uc, store := newTestUsecase(t, llm)
	id := startSession(t, uc)

	before := snapshot(t, store.conv[id])

	resp, err := uc.ProcessResponse(context.Background(), id, "Global Fresh")
	require.NoError(t, err)

	assert.Equal(t, fallbackMessage, resp.Message)
	assert.Empty(t, resp.ExtractedInfo)
	assert.False(t, resp.Complete)
	assert.Equal(t, before, snapshot(t, store.conv[id]))
	assert.False(t, store.busy[id])
}

func TestProcessResponseTimeoutLeavesStateUntouched(t *testing.T) {
	llm := &fakeLLM{generate: func(ctx context.Context, _ *entity.LLMGenerateRequest) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	uc, store := newTestUsecase(t, llm)
	uc.turnTimeout = 10 * time.Millisecond
	id := startSession(t, uc)

	before := snapshot(t, store.conv[id])

	resp, err := uc.ProcessResponse(context.Background(), id, "Global Fresh")
	require.NoError(t, err)

	assert.Equal(t, fallbackMessage, resp.Message)
	assert.Equal(t, before, snapshot(t, store.conv[id]))
}

func TestProcessResponseMalformedOutputLeavesStateUntouched(t *testing.T) {
	llm := &fakeLLM{generate: func(_ context.Context, _ *entity.LLMGenerateRequest) (string, error) {
		return "sure, the company is Global Fresh", nil
	}}
	uc, store := newTestUsecase(t, llm)
	id := startSession(t, uc)

	before := snapshot(t, store.conv[id])

	resp, err := uc.ProcessResponse(context.Background(), id, "Global Fresh")
	require.NoError(t, err)

	assert.Equal(t, fallbackMessage, resp.Message)
	assert.Equal(t, before, snapshot(t, store.conv[id]))
	assert.Empty(t, store.conv[id].History)
}

func TestProcessResponsePipelineRejectionKeepsIndex(t *testing.T) {
	llm := &fakeLLM{generate: func(_ context.Context, _ *entity.LLMGenerateRequest) (string, error) {
		// Non-final turn with no question at all: the format stage rejects.
		return modelJSON("Noted, thanks.", map[string]string{"company_name": "Global Fresh"}), nil
	}}
	uc, store := newTestUsecase(t, llm)
	id := startSession(t, uc)

	resp, err := uc.ProcessResponse(context.Background(), id, "Global Fresh")
	require.NoError(t, err)

	assert.False(t, resp.Complete)
	assert.Contains(t, resp.Message, "once more")

	conv := store.conv[id]
	// Extraction stood even though the phrasing failed.
	assert.Equal(t, 0, conv.CurrentQuestionIndex)
	assert.Equal(t, "Global Fresh", conv.ExtractedInfo["company_name"])
	assert.Len(t, conv.History, 1)
}

func TestProcessResponseFinalQuestionCompletes(t *testing.T) {
	cat := catalog.Default()
	answers := []map[string]string{
		{"company_name": "Global Fresh"},
		{"registration_number": "REG-12345"},
		{"tax_number": "TAX12345678"},
		{"first_name": "John", "last_name": "Smith"},
		{"email": "john@globalfresh.example", "phone": "+44 20 7946 0823"},
	}
	turnNo := 0
	llm := &fakeLLM{generate: func(_ context.Context, _ *entity.LLMGenerateRequest) (string, error) {
		final := turnNo == len(answers)-1
		msg := "Noted. What comes next?"
		if final {
			msg = "Thanks, that completes your onboarding."
		}
		out := modelJSON(msg, answers[turnNo])
		turnNo++
		return out, nil
	}}
	uc, store := newTestUsecase(t, llm)
	id := startSession(t, uc)

	var resp *entity.MessageResponse
	var err error
	for i := 0; i < cat.Len(); i++ {
		resp, err = uc.ProcessResponse(context.Background(), id, fmt.Sprintf("answer %d", i))
		require.NoError(t, err)
	}

	assert.True(t, resp.Complete)
	assert.NotContains(t, resp.Message, "?")

	conv := store.conv[id]
	assert.True(t, conv.Complete)
	assert.Equal(t, cat.Len()-1, conv.CurrentQuestionIndex)
	assert.True(t, conv.Business.ValidationStatus["contact_details"])
	assert.Equal(t, "John", conv.Business.ContactDetails["first_name"])

	// A turn after completion is a caller error.
	_, err = uc.ProcessResponse(context.Background(), id, "hello again")
	assert.ErrorIs(t, err, entity.ErrSessionComplete)
}

func TestProcessResponseCombinedNameIsSplit(t *testing.T) {
	llm := &fakeLLM{generate: func(_ context.Context, _ *entity.LLMGenerateRequest) (string, error) {
		return modelJSON("Thanks John. What email can we use?", map[string]string{"full_name": "John Smith"}), nil
	}}
	uc, store := newTestUsecase(t, llm)
	id := startSession(t, uc)
	store.conv[id].CurrentQuestionIndex = 3

	resp, err := uc.ProcessResponse(context.Background(), id, "John Smith")
	require.NoError(t, err)

	assert.Equal(t, "John", resp.ExtractedInfo["first_name"])
	assert.Equal(t, "Smith", resp.ExtractedInfo["last_name"])
	assert.Equal(t, "John", store.conv[id].Business.ContactDetails["first_name"])
}

func TestProcessResponseRecordsFailedValidationAndAdvances(t *testing.T) {
	llm := &fakeLLM{generate: func(_ context.Context, _ *entity.LLMGenerateRequest) (string, error) {
		return modelJSON("Noted. What is your registration number?", map[string]string{"company_name": "G"}), nil
	}}
	uc, store := newTestUsecase(t, llm)
	id := startSession(t, uc)

	_, err := uc.ProcessResponse(context.Background(), id, "G")
	require.NoError(t, err)

	conv := store.conv[id]
	// Validation failure is recorded as data; the interview still advances.
	assert.False(t, conv.Business.ValidationStatus["company_name"])
	assert.NotEmpty(t, conv.Business.ValidationErrors["company_name"])
	assert.Equal(t, 1, conv.CurrentQuestionIndex)
}

func TestProcessResponseBusySessionRejected(t *testing.T) {
	block := make(chan struct{})
	started := make(chan struct{})
	llm := &fakeLLM{generate: func(_ context.Context, _ *entity.LLMGenerateRequest) (string, error) {
		close(started)
		<-block
		return modelJSON("Noted. What is your registration number?", nil), nil
	}}
	uc, _ := newTestUsecase(t, llm)
	id := startSession(t, uc)

	done := make(chan error, 1)
	go func() {
		_, err := uc.ProcessResponse(context.Background(), id, "Global Fresh")
		done <- err
	}()

	<-started
	_, err := uc.ProcessResponse(context.Background(), id, "interleaved")
	assert.ErrorIs(t, err, entity.ErrSessionBusy)

	close(block)
	require.NoError(t, <-done)
}

func TestProcessResponseUnknownSession(t *testing.T) {
	uc, _ := newTestUsecase(t, &fakeLLM{generate: func(_ context.Context, _ *entity.LLMGenerateRequest) (string, error) {
		return "", nil
	}})

	_, err := uc.ProcessResponse(context.Background(), "missing", "hi")
	assert.ErrorIs(t, err, entity.ErrSessionNotFound)
}

// ctxStrictStore fails Release on a dead context, the way a database-backed
// store does once the request context is cancelled.
type ctxStrictStore struct {
	*fakeStore
}

func (s *ctxStrictStore) Release(ctx context.Context, id string, conv *entity.ConversationContext) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("release session: %w", err)
	}
	return s.fakeStore.Release(ctx, id, conv)
}

func TestProcessResponseCancelledRequestStillReleasesSession(t *testing.T) {
	reqCtx, cancel := context.WithCancel(context.Background())
	llm := &fakeLLM{generate: func(_ context.Context, _ *entity.LLMGenerateRequest) (string, error) {
		// The client goes away while the model call is in flight.
		cancel()
		return modelJSON(
			"Great, Global Fresh it is. What is the company registration number for Global Fresh?",
			map[string]string{"company_name": "Global Fresh"},
		), nil
	}}

	pipe, err := pipeline.New(nil)
	require.NoError(t, err)

	store := &ctxStrictStore{fakeStore: newFakeStore()}
	uc := NewUsecase(
		store,
		llm,
		nil,
		catalog.Default(),
		pipe,
		validator.NewFieldValidator(),
		time.Second,
		zap.NewNop(),
	)
	id := startSession(t, uc)

	_, _ = uc.ProcessResponse(reqCtx, id, "Global Fresh")

	// The latch must be free again: a fresh turn may not see the session
	// as busy.
	llm.generate = func(_ context.Context, _ *entity.LLMGenerateRequest) (string, error) {
		return modelJSON("Got it. What is your company's tax number?", map[string]string{"registration_number": "REG-12345"}), nil
	}
	resp, err := uc.ProcessResponse(context.Background(), id, "REG-12345")
	require.NoError(t, err)
	assert.NotErrorIs(t, err, entity.ErrSessionBusy)
	assert.False(t, resp.Complete)
}

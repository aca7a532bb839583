package prompt

import (
	"strings"
	"testing"
	"time"

	"github.com/bizintake/onboarding-backend/internal/catalog"
	"github.com/bizintake/onboarding-backend/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildFirstTurn(t *testing.T) {
	b := NewBuilder(catalog.Default())
	convCtx := entity.NewConversationContext("s1", time.Now())

	got, err := b.Build("Global Fresh", convCtx)
	require.NoError(t, err)

	assert.Contains(t, got, "(none)")
	assert.Contains(t, got, "What is your company name?")
	assert.Contains(t, got, "User reply: Global Fresh")
	assert.Contains(t, got, "Fields to extract: company_name")
	// Next question falls back to its template text since company_name is
	// not extracted yet.
	assert.Contains(t, got, "What is the company registration number for {company_name}?")
}

func TestBuildRendersNextQuestionWithKnownFields(t *testing.T) {
	b := NewBuilder(catalog.Default())
	convCtx := entity.NewConversationContext("s1", time.Now())
	convCtx.ExtractedInfo["company_name"] = "Global Fresh"
	convCtx.CurrentQuestionIndex = 0

	got, err := b.Build("it's Global Fresh", convCtx)
	require.NoError(t, err)
	assert.Contains(t, got, "What is the company registration number for Global Fresh?")
}

func TestBuildIncludesHistoryInOrder(t *testing.T) {
	b := NewBuilder(catalog.Default())
	convCtx := entity.NewConversationContext("s1", time.Now())
	convCtx.History = []entity.HistoryEntry{
		{Question: "What is your company name?", UserResponse: "Global Fresh"},
		{Question: "What is the registration number?", UserResponse: "REG-12345"},
	}
	convCtx.CurrentQuestionIndex = 2

	got, err := b.Build("TAX12345678", convCtx)
	require.NoError(t, err)

	first := "Q: What is your company name? | A: Global Fresh"
	second := "Q: What is the registration number? | A: REG-12345"
	assert.Contains(t, got, first)
	assert.Contains(t, got, second)
	assert.Less(t, strings.Index(got, first), strings.Index(got, second))
}

func TestBuildFinalQuestionUsesSentinel(t *testing.T) {
	c := catalog.Default()
	b := NewBuilder(c)
	convCtx := entity.NewConversationContext("s1", time.Now())
	convCtx.CurrentQuestionIndex = c.Len() - 1

	got, err := b.Build("john@globalfresh.example", convCtx)
	require.NoError(t, err)
	assert.Contains(t, got, NoMoreQuestions)
}

func TestBuildIndexOutOfRange(t *testing.T) {
	b := NewBuilder(catalog.Default())
	convCtx := entity.NewConversationContext("s1", time.Now())
	convCtx.CurrentQuestionIndex = 99

	_, err := b.Build("hello", convCtx)
	assert.ErrorIs(t, err, entity.ErrIndexOutOfRange)
}

func TestSystemInstructionShape(t *testing.T) {
	b := NewBuilder(catalog.Default())
	sys := b.SystemInstruction()

	assert.Contains(t, sys, `"extracted_info"`)
	assert.Contains(t, sys, `"message"`)
	assert.Contains(t, sys, "first_name")
	assert.Contains(t, sys, "last_name")
}

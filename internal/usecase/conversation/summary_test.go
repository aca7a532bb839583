package conversation

import (
	"context"
	"errors"
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

type fakeRegistry struct {
	company    *entity.CompanyRecord
	companyErr error
	tax        *entity.TaxRecord
	taxErr     error
}

func (f *fakeRegistry) LookupCompany(_ context.Context, _ *entity.CompanyLookupRequest) (*entity.CompanyRecord, error) {
	return f.company, f.companyErr
}

func (f *fakeRegistry) LookupTax(_ context.Context, _ *entity.TaxLookupRequest) (*entity.TaxRecord, error) {
	return f.tax, f.taxErr
}

func newSummaryUsecase(t *testing.T, reg RegistryConnector) (*Usecase, *fakeStore) {
	t.Helper()

	pipe, err := pipeline.New(nil)
	require.NoError(t, err)

	store := newFakeStore()
	uc := NewUsecase(
		store,
		&fakeLLM{},
		reg,
		catalog.Default(),
		pipe,
		validator.NewFieldValidator(),
		time.Second,
		zap.NewNop(),
	)
	return uc, store
}

func completedConv(id string) *entity.ConversationContext {
	conv := entity.NewConversationContext(id, time.Now().UTC())
	conv.Complete = true
	conv.Business.CompanyName = "Acme Widgets Ltd"
	conv.Business.RegistrationNumber = "REG-12345"
	conv.Business.TaxNumber = "TAX-987654"
	conv.Business.ContactDetails = map[string]string{
		"email":      "jane@acme.example",
		"first_name": "Jane",
	}
	return conv
}

func TestSummaryTextRendersBusinessRecord(t *testing.T) {
	reg := &fakeRegistry{
		company: &entity.CompanyRecord{
			CompanyName:        "Acme Widgets Ltd",
			RegistrationNumber: "REG-12345",
			Status:             "active",
		},
		tax: &entity.TaxRecord{TaxNumber: "TAX-987654", Valid: true},
	}
	uc, store := newSummaryUsecase(t, reg)
	require.NoError(t, store.Create(context.Background(), completedConv("s1")))

	text, err := uc.SummaryText(context.Background(), "s1")
	require.NoError(t, err)

	assert.Contains(t, text, "Company name: Acme Widgets Ltd")
	assert.Contains(t, text, "Registration number: REG-12345")
	assert.Contains(t, text, "Tax number: TAX-987654")
	assert.Contains(t, text, "email: jane@acme.example")
	assert.Contains(t, text, "Registry: Acme Widgets Ltd (REG-12345), status active")
	assert.Contains(t, text, "Tax record: TAX-987654, valid=true")
}

func TestSummaryTextIncompleteSession(t *testing.T) {
	uc, store := newSummaryUsecase(t, nil)

	conv := completedConv("s1")
	conv.Complete = false
	require.NoError(t, store.Create(context.Background(), conv))

	_, err := uc.SummaryText(context.Background(), "s1")
	assert.ErrorIs(t, err, entity.ErrNoResult)
}

func TestSummaryTextUnknownSession(t *testing.T) {
	uc, _ := newSummaryUsecase(t, nil)

	_, err := uc.SummaryText(context.Background(), "missing")
	assert.ErrorIs(t, err, entity.ErrSessionNotFound)
}

func TestSummaryTextRegistryFailureDegrades(t *testing.T) {
	reg := &fakeRegistry{
		companyErr: errors.New("registry down"),
		taxErr:     errors.New("registry down"),
	}
	uc, store := newSummaryUsecase(t, reg)
	require.NoError(t, store.Create(context.Background(), completedConv("s1")))

	text, err := uc.SummaryText(context.Background(), "s1")
	require.NoError(t, err)

	assert.Contains(t, text, "Company name: Acme Widgets Ltd")
	assert.NotContains(t, text, "Registry:")
	assert.NotContains(t, text, "Tax record:")
}

func TestSummaryTextMissingFields(t *testing.T) {
	uc, store := newSummaryUsecase(t, nil)

	conv := entity.NewConversationContext("s1", time.Now().UTC())
	conv.Complete = true
	require.NoError(t, store.Create(context.Background(), conv))

	text, err := uc.SummaryText(context.Background(), "s1")
	require.NoError(t, err)

	assert.Contains(t, text, "Company name: (not provided)")
	assert.Contains(t, text, "Registration number: (not provided)")
	assert.Contains(t, text, "Tax number: (not provided)")
}

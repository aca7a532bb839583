package registry

import (
	"context"

	"github.com/bizintake/onboarding-backend/internal/entity"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// MockConnector answers registry lookups with canned active records.
type MockConnector struct {
	logger *zap.Logger
}

func NewMockConnector(logger *zap.Logger) *MockConnector {
	return &MockConnector{
		logger: logger,
	}
}

func (m *MockConnector) LookupCompany(ctx context.Context, req *entity.CompanyLookupRequest) (
	*entity.CompanyRecord, error,
) {
	ctxzap.Info(ctx, "[MOCK] looking up company in registry")

	return &entity.CompanyRecord{
		CompanyName:        req.CompanyName,
		RegistrationNumber: req.RegistrationNumber,
		Status:             "active",
		RegisteredAddress:  "1 Mock Street, Example City",
	}, nil
}

func (m *MockConnector) LookupTax(ctx context.Context, req *entity.TaxLookupRequest) (
	*entity.TaxRecord, error,
) {
	ctxzap.Info(ctx, "[MOCK] looking up tax record")

	return &entity.TaxRecord{
		TaxNumber: req.TaxNumber,
		Valid:     true,
		TradeName: "Mock Trading Co.",
	}, nil
}

package registry

import (
	"context"
	"fmt"
	"net/http"

	"github.com/avast/retry-go/v4"
	"github.com/bizintake/onboarding-backend/internal/config"
	"github.com/bizintake/onboarding-backend/internal/entity"
	"github.com/bizintake/onboarding-backend/internal/integration/common"
	pkghttp "github.com/bizintake/onboarding-backend/pkg/http"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

type Connector struct {
	config    config.RegistryConnectorConfig
	connector *pkghttp.Connector
	logger    *zap.Logger
}

func NewConnector(
	cfg config.RegistryConnectorConfig,
	logger *zap.Logger,
) *Connector {
	return &Connector{
		connector: common.NewBaseConnector(cfg.HTTPClientConfig, logger),
		config:    cfg,
		logger:    logger,
	}
}

// LookupCompany fetches the registry record for a company
func (c *Connector) LookupCompany(ctx context.Context, req *entity.CompanyLookupRequest) (
	*entity.CompanyRecord, error,
) {
	ctxzap.Info(ctx, "looking up company in registry")

	opts := append(
		c.config.Retry.ToRetryOptions(),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)

	record, err := retry.DoWithData(func() (*entity.CompanyRecord, error) {
		var resp entity.CompanyRecord
		err := c.connector.DoRequest(ctx, http.MethodPost, c.config.CompanyEndpoint, req, &resp,
			pkghttp.WithHeader("X-Request-ID", middleware.GetReqID(ctx)),
		)
		if err != nil {
			return nil, err
		}
		return &resp, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("company lookup failed: %w", err)
	}

	ctxzap.Info(ctx, "company record found", zap.String("status", record.Status))

	return record, nil
}

// LookupTax fetches the tax authority record for a tax number
func (c *Connector) LookupTax(ctx context.Context, req *entity.TaxLookupRequest) (
	*entity.TaxRecord, error,
) {
	ctxzap.Info(ctx, "looking up tax record")

	opts := append(
		c.config.Retry.ToRetryOptions(),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)

	record, err := retry.DoWithData(func() (*entity.TaxRecord, error) {
		var resp entity.TaxRecord
		err := c.connector.DoRequest(ctx, http.MethodPost, c.config.TaxEndpoint, req, &resp,
			pkghttp.WithHeader("X-Request-ID", middleware.GetReqID(ctx)),
		)
		if err != nil {
			return nil, err
		}
		return &resp, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("tax lookup failed: %w", err)
	}

	ctxzap.Info(ctx, "tax record found", zap.Bool("valid", record.Valid))

	return record, nil
}

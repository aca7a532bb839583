package llm

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
	config    config.LLMConnectorConfig
	connector *pkghttp.Connector
	logger    *zap.Logger
}

func NewConnector(
	cfg config.LLMConnectorConfig,
	logger *zap.Logger,
) *Connector {
	return &Connector{
		connector: common.NewBaseConnector(cfg.HTTPClientConfig, logger),
		config:    cfg,
		logger:    logger,
	}
}

// Generate runs one completion against the model service. Transient
// failures are retried per the connector retry config; the reply text is
// returned verbatim for the caller to parse.
func (c *Connector) Generate(ctx context.Context, req *entity.LLMGenerateRequest) (string, error) {
	ctxzap.Info(ctx, "generating completion via LLM service", zap.Int("prompt_length", len(req.Prompt)))

	opts := append(
		c.config.Retry.ToRetryOptions(),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)

	result, err := retry.DoWithData(func() (string, error) {
		var resp entity.LLMGenerateResponse
		err := c.connector.DoRequest(ctx, http.MethodPost, c.config.GenerateEndpoint, req, &resp,
			pkghttp.WithHeader("X-Request-ID", middleware.GetReqID(ctx)),
		)
		if err != nil {
			return "", err
		}
		return resp.Result, nil
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("generate completion failed: %w", err)
	}

	ctxzap.Info(ctx, "completion generated successfully", zap.Int("result_length", len(result)))

	return result, nil
}

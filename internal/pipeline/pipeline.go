package pipeline

import (
	"context"

	"github.com/bizintake/onboarding-backend/internal/entity"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// Pipeline runs the fixed stage sequence over a draft reply before it
// reaches the user. Processing stops at the first stage that marks the turn
// non-valid; a panic inside a stage converts to INVALID instead of crossing
// the pipeline boundary.
type Pipeline struct {
	stages []Stage
}

// New builds the pipeline in its fixed order: single-question rewrite,
// advice removal, format gate. advicePatterns is the configured phrase
// table; pass nil to use the built-in defaults.
func New(advicePatterns []string) (*Pipeline, error) {
	if len(advicePatterns) == 0 {
		advicePatterns = DefaultAdvicePatterns()
	}

	advice, err := NewRemoveAdviceStage(advicePatterns)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		stages: []Stage{
			SingleQuestionStage{},
			advice,
			FormatStage{},
		},
	}, nil
}

// Run applies the stages in order. The returned context is the same one
// passed in, with Reply possibly rewritten and Result/ErrorMessage set.
func (p *Pipeline) Run(ctx context.Context, tc *entity.TurnContext) *entity.TurnContext {
	for _, stage := range p.stages {
		tc = p.applyStage(ctx, stage, tc)
		if tc.Result != entity.ValidationValid {
			ctxzap.Info(ctx, "response pipeline halted",
				zap.String("stage", stage.Name()),
				zap.String("result", string(tc.Result)),
				zap.String("reason", tc.ErrorMessage),
			)
			return tc
		}
	}
	return tc
}

func (p *Pipeline) applyStage(ctx context.Context, stage Stage, tc *entity.TurnContext) (out *entity.TurnContext) {
	defer func() {
		if r := recover(); r != nil {
			ctxzap.Error(ctx, "response pipeline stage panicked",
				zap.String("stage", stage.Name()),
				zap.Any("panic", r),
			)
			tc.Result = entity.ValidationInvalid
			tc.ErrorMessage = "response validation failed"
			out = tc
		}
	}()

	return stage.Apply(tc)
}

package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/bizintake/onboarding-backend/internal/entity"
	"github.com/bizintake/onboarding-backend/internal/pkg/formatter"
	"github.com/bizintake/onboarding-backend/internal/pkg/logger"
	"github.com/bizintake/onboarding-backend/internal/pkg/response"
	"github.com/go-chi/chi/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

type Handler struct {
	usecase    ConversationUsecase
	formatters *formatter.Factory
}

func NewHandler(usecase ConversationUsecase, logger *zap.Logger) *Handler {
	return &Handler{
		usecase:    usecase,
		formatters: formatter.NewFactory(logger),
	}
}

// StartConversation handles POST /conversation - Start a new onboarding session
func (h *Handler) StartConversation(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "StartConversation")

	resp, err := h.usecase.StartConversation(ctx)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	ctxzap.Info(ctx, "conversation started", zap.String("session_id", resp.SessionID))

	response.Created(w, resp)
}

// PostMessage handles POST /conversation/{id}/message - Run one interview turn
func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	ctx := logger.AddFields(r.Context(),
		zap.String("session_id", sessionID),
		zap.String("action", "PostMessage"),
	)

	var req entity.MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctxzap.Error(ctx, "failed to decode request body", zap.Error(err))
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.Message) == "" {
		response.Error(w, http.StatusBadRequest, "message must not be empty")
		return
	}

	resp, err := h.usecase.ProcessResponse(ctx, sessionID, req.Message)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	ctxzap.Info(ctx, "turn processed", zap.Bool("complete", resp.Complete))

	response.Success(w, resp)
}

// GetConversation handles GET /conversation/{id} - Get session state
func (h *Handler) GetConversation(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	ctx := logger.AddFields(r.Context(),
		zap.String("session_id", sessionID),
		zap.String("action", "GetConversation"),
	)

	ctxzap.Debug(ctx, "fetching conversation")

	conv, err := h.usecase.GetConversation(ctx, sessionID)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	response.Success(w, toConversationDTO(conv, h.usecase.CurrentQuestionText(conv)))
}

// GetSummary handles GET /conversation/{id}/summary - Download the onboarding summary
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	ctx := logger.AddFields(r.Context(),
		zap.String("session_id", sessionID),
		zap.String("action", "GetSummary"),
	)

	format := entity.ResultFormat(r.URL.Query().Get("format"))
	if format == "" {
		format = entity.FormatMarkdown
	}

	fmtr, err := h.formatters.Create(format)
	if err != nil {
		ctxzap.Error(ctx, "unsupported summary format", zap.Error(err))
		response.Error(w, http.StatusBadRequest, "unsupported format")
		return
	}

	text, err := h.usecase.SummaryText(ctx, sessionID)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	formatted, err := fmtr.Format(text)
	if err != nil {
		ctxzap.Error(ctx, "failed to format summary", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "failed to format summary")
		return
	}

	ctxzap.Info(ctx, "summary generated", zap.String("format", string(format)))

	filename := fmt.Sprintf("onboarding-%s%s", sessionID, fmtr.FileExtension())
	response.File(w, fmtr.ContentType(), filename, formatted)
}

func (h *Handler) handleUsecaseError(ctx context.Context, w http.ResponseWriter, err error) {
	ctxzap.Error(ctx, "request failed", zap.Error(err))

	switch {
	case errors.Is(err, entity.ErrSessionNotFound):
		response.Error(w, http.StatusNotFound, "session not found")
	case errors.Is(err, entity.ErrSessionBusy):
		response.Error(w, http.StatusConflict, "another message for this session is being processed")
	case errors.Is(err, entity.ErrSessionComplete):
		response.Error(w, http.StatusConflict, "the interview is already complete")
	case errors.Is(err, entity.ErrNoResult):
		response.Error(w, http.StatusConflict, "the interview is not complete yet")
	case errors.Is(err, entity.ErrInvalidParameter):
		response.Error(w, http.StatusBadRequest, "invalid parameter")
	case errors.Is(err, entity.ErrModelUnavailable):
		response.Error(w, http.StatusBadGateway, "language model unavailable")
	default:
		response.Error(w, http.StatusInternalServerError, "internal server error")
	}
}

package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/avvvet/toywonder-assistant/internal/assistant"
	"github.com/avvvet/toywonder-assistant/internal/catalog"
	"github.com/avvvet/toywonder-assistant/internal/logger"
	"github.com/avvvet/toywonder-assistant/internal/models"
)

// AssistantHandler maps transport envelopes onto session operations. It
// never returns a Go error; failures are encoded in the response.
type AssistantHandler struct {
	registry *assistant.Registry
	logger   logger.Logger
}

func NewAssistantHandler(registry *assistant.Registry, log logger.Logger) *AssistantHandler {
	return &AssistantHandler{
		registry: registry,
		logger:   log.WithFields(map[string]interface{}{"component": "handler"}),
	}
}

func (h *AssistantHandler) Submit(ctx context.Context, req *models.AssistantRequest) *models.AssistantResponse {
	if n := utf8.RuneCountInString(req.Text); n > models.MaxInputChars {
		return h.createErrorResponse(models.ErrorInvalidInput,
			fmt.Sprintf("text is %d characters, limit is %d", n, models.MaxInputChars))
	}

	s, resp := h.session(ctx, req)
	if resp != nil {
		return resp
	}
	if req.Locale != "" {
		if _, err := s.SetLocale(ctx, req.Locale); err != nil {
			return h.fromError(err)
		}
	}

	snap, err := s.Submit(ctx, req.Text)
	switch {
	case errors.Is(err, assistant.ErrEmptyInput):
		return &models.AssistantResponse{Status: models.StatusIgnored, Snapshot: &snap}
	case errors.Is(err, assistant.ErrBusy):
		resp := h.createErrorResponse(models.ErrorBusy, err.Error())
		resp.Status = models.StatusBusy
		resp.Snapshot = &snap
		return resp
	case err != nil:
		return h.fromError(err)
	}

	h.logger.Info("Message processed", map[string]interface{}{
		"session_id": req.SessionID,
		"messages":   len(snap.Messages),
		"failed":     snap.LastError != nil,
	})
	return ok(snap)
}

func (h *AssistantHandler) Feedback(ctx context.Context, req *models.AssistantRequest) *models.AssistantResponse {
	if req.ProductID == "" {
		return h.createErrorResponse(models.ErrorInvalidInput, "product_id is required")
	}
	s, resp := h.session(ctx, req)
	if resp != nil {
		return resp
	}

	snap, err := s.ToggleFeedback(ctx, req.ProductID, req.Verdict)
	if err != nil {
		return h.fromError(err)
	}
	return ok(snap)
}

func (h *AssistantHandler) Rate(ctx context.Context, req *models.AssistantRequest) *models.AssistantResponse {
	s, resp := h.session(ctx, req)
	if resp != nil {
		return resp
	}

	snap, err := s.RateMessage(ctx, req.MessageIndex, req.Rating)
	if err != nil {
		return h.fromError(err)
	}
	return ok(snap)
}

func (h *AssistantHandler) Reset(ctx context.Context, req *models.AssistantRequest) *models.AssistantResponse {
	s, resp := h.session(ctx, req)
	if resp != nil {
		return resp
	}
	return ok(s.Reset(ctx))
}

func (h *AssistantHandler) Snapshot(ctx context.Context, req *models.AssistantRequest) *models.AssistantResponse {
	s, resp := h.session(ctx, req)
	if resp != nil {
		return resp
	}
	if req.Locale == "" {
		return ok(s.Snapshot())
	}
	snap, err := s.SetLocale(ctx, req.Locale)
	if err != nil {
		return h.fromError(err)
	}
	return ok(snap)
}

// RecordView stores a product view and answers with fresh recommendations
func (h *AssistantHandler) RecordView(ctx context.Context, req *models.AssistantRequest) *models.AssistantResponse {
	if strings.TrimSpace(req.ProductName) == "" {
		return h.createErrorResponse(models.ErrorInvalidInput, "product_name is required")
	}
	s, resp := h.session(ctx, req)
	if resp != nil {
		return resp
	}
	if err := s.RecordView(ctx, req.ProductName); err != nil {
		h.logger.Warn("View not persisted", map[string]interface{}{
			"session_id": req.SessionID,
			"error":      err,
		})
	}
	return &models.AssistantResponse{Status: models.StatusOK, Products: s.Recommendations()}
}

func (h *AssistantHandler) Recommendations(ctx context.Context, req *models.AssistantRequest) *models.AssistantResponse {
	s, resp := h.session(ctx, req)
	if resp != nil {
		return resp
	}
	return &models.AssistantResponse{Status: models.StatusOK, Products: s.Recommendations()}
}

func (h *AssistantHandler) session(ctx context.Context, req *models.AssistantRequest) (*assistant.Session, *models.AssistantResponse) {
	if err := h.validateRequest(req); err != nil {
		return nil, h.createErrorResponse(models.ErrorInvalidInput, err.Error())
	}
	s, err := h.registry.Session(ctx, req.SessionID)
	if err != nil {
		return nil, h.fromError(err)
	}
	return s, nil
}

func (h *AssistantHandler) validateRequest(req *models.AssistantRequest) error {
	if req.SessionID == "" {
		return fmt.Errorf("session_id is required")
	}
	return nil
}

func (h *AssistantHandler) fromError(err error) *models.AssistantResponse {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		return h.createErrorResponse(models.ErrorNotFound, err.Error())
	case errors.Is(err, assistant.ErrInvalidVerdict),
		errors.Is(err, assistant.ErrInvalidRating),
		errors.Is(err, assistant.ErrInvalidMessage),
		errors.Is(err, assistant.ErrInvalidSession),
		errors.Is(err, assistant.ErrInvalidLocale):
		return h.createErrorResponse(models.ErrorInvalidInput, err.Error())
	}

	h.logger.Error("Unexpected assistant error", map[string]interface{}{"error": err})
	return h.createErrorResponse(models.ErrorInternal, err.Error())
}

func (h *AssistantHandler) createErrorResponse(errorCode, errorMessage string) *models.AssistantResponse {
	return &models.AssistantResponse{
		Status:       models.StatusError,
		ErrorCode:    &errorCode,
		ErrorMessage: &errorMessage,
	}
}

func ok(snap models.Snapshot) *models.AssistantResponse {
	return &models.AssistantResponse{Status: models.StatusOK, Snapshot: &snap}
}

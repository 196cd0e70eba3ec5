package handlers

import (
	"context"
	"net/http"

	"github.com/Dosada05/debate-tournament/models"
)

// OutcomeHandler принимает результаты дебатов от внешнего сервиса.
type OutcomeHandler interface {
	HandleDebateOutcome(ctx context.Context, outcome *models.DebateOutcome) error
}

type WebhookHandler struct {
	outcomes OutcomeHandler
}

func NewWebhookHandler(outcomes OutcomeHandler) *WebhookHandler {
	return &WebhookHandler{outcomes: outcomes}
}

// DebateResolvedHandler godoc
// @Summary Результат дебатов
// @Tags webhooks
// @Description Фиксирует результат матча и продвигает раунд. Повторная доставка безопасна.
// @Accept json
// @Produce json
// @Param X-Webhook-Secret header string true "Webhook secret"
// @Param body body models.DebateOutcome true "Результат дебатов"
// @Success 200 {object} map[string]string "Принято"
// @Failure 404 {object} map[string]string "Матч для дебатов не найден"
// @Failure 422 {object} map[string]string "Результат не соответствует матчу"
// @Router /webhooks/debates/resolved [post]
func (h *WebhookHandler) DebateResolvedHandler(w http.ResponseWriter, r *http.Request) {
	var outcome models.DebateOutcome
	if err := readJSON(w, r, &outcome); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.outcomes.HandleDebateOutcome(r.Context(), &outcome); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"status": "accepted", "debate_id": outcome.DebateID}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

package webhook

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"ims_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

const (
	formField        = "mandrill_events"
	maxWebhookBody   = 8 << 20
	msgInvalidBatch  = "invalid webhook payload"
	msgPartialFailed = "webhook batch partially failed"
)

// Handler handles inbound Mandrill webhooks.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// HandleProbe answers the HEAD request Mandrill sends when a webhook is added.
func (h *Handler) HandleProbe(c *gin.Context) {
	c.Status(http.StatusOK)
}

// HandleMandrill processes a batch of Mandrill events.
// POST /api/v1/webhooks/mandrill
func (h *Handler) HandleMandrill(c *gin.Context) {
	batch, ok := h.parseBatch(c)
	if !ok {
		return
	}

	result, err := h.service.ProcessBatch(c.Request.Context(), batch)
	if err != nil {
		_ = c.Error(err)
		httpkit.Error(c, http.StatusInternalServerError, msgPartialFailed, result)
		return
	}
	httpkit.OK(c, result)
}

// parseBatch accepts the form post (mandrill_events) or a raw JSON array.
func (h *Handler) parseBatch(c *gin.Context) ([]MandrillEvent, bool) {
	var raw string
	if isForm(c) {
		raw = c.PostForm(formField)
	} else {
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidBatch, nil)
			return nil, false
		}
		raw = string(body)
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidBatch, nil)
		return nil, false
	}

	var batch []MandrillEvent
	if err := json.Unmarshal([]byte(raw), &batch); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidBatch, err.Error())
		return nil, false
	}
	return batch, true
}

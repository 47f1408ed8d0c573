package outbox

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tillpoint/tillpoint/internal/platform/httpx"
)

// Handler exposes sync endpoints.
type Handler struct {
	logger *slog.Logger
	box    *Outbox
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, box *Outbox) *Handler {
	return &Handler{logger: logger, box: box}
}

// MountRoutes registers sync routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/run", h.run)
	r.Get("/pending", h.pending)
}

func (h *Handler) run(w http.ResponseWriter, r *http.Request) {
	if err := h.box.Enqueue(r.Context()); err != nil {
		if h.logger != nil {
			h.logger.Error("manual sync", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func (h *Handler) pending(w http.ResponseWriter, r *http.Request) {
	count, err := h.box.PendingCount(r.Context())
	if err != nil {
		if h.logger != nil {
			h.logger.Error("pending count", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]int{"pending": count})
}

package recorder

import (
	"log/slog"
	"net/http"

	"github.com/sugawarayuuta/sonnet"
)

const statusContentType = "application/json"

// Handler exposes the session control endpoints.
type Handler struct {
	session *Session
	log     *slog.Logger
}

// NewHandler returns a Handler for the given session.
func NewHandler(session *Session, log *slog.Logger) *Handler {
	return &Handler{session: session, log: log}
}

// Status handles GET /status with a JSON snapshot of the lifecycle status and
// live statistics. The snapshot is racy with respect to the producers;
// staleness is tolerated the same way it is for the lifecycle flag.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	body, err := sonnet.Marshal(h.session.Summary())
	if err != nil {
		h.log.Error("encode status failed", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", statusContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// Stop handles POST /stop: a remote termination request, equivalent to the
// deadline timer or an interrupt. The response only acknowledges the request;
// the session still drains all buffered frames before reaching DONE.
func (h *Handler) Stop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	h.session.RequestStop()
	w.WriteHeader(http.StatusAccepted)
}

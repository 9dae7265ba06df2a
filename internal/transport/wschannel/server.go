package wschannel

import (
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

// OnAccept is invoked once per accepted connection, already wrapped as a
// Channel and assigned a correlation id (the "correlation_id" query
// parameter if present, otherwise a freshly generated uuid). Implementations
// own the connection's lifetime: they must call ServeConn and close the
// channel when done.
type OnAccept func(correlationID string, ch *Channel, conn *websocket.Conn)

// Handler is an http.Handler that upgrades every request to a WebSocket
// connection and invokes onAccept for each.
type Handler struct {
	onAccept OnAccept
	logger   *slog.Logger
}

// NewHandler builds a Handler invoking onAccept for every accepted
// connection.
func NewHandler(onAccept OnAccept, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{onAccept: onAccept, logger: logger}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket accept failed", "error", err)
		return
	}

	correlationID := r.URL.Query().Get("correlation_id")
	if correlationID == "" {
		correlationID = uuid.NewString()
	}

	ch := NewChannel(conn)
	h.onAccept(correlationID, ch, conn)
}

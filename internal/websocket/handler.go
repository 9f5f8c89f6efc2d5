package websocket

import (
	"log/slog"
	"net/http"

	ws "github.com/coder/websocket"
)

// HandleWebSocket upgrades page connections and streams state to them.
// With no origin patterns any origin is accepted (local desk use).
func HandleWebSocket(hub *Hub, originPatterns []string, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		opts := &ws.AcceptOptions{OriginPatterns: originPatterns}
		if len(originPatterns) == 0 {
			opts.InsecureSkipVerify = true
		}

		conn, err := ws.Accept(w, r, opts)
		if err != nil {
			logger.Warn("websocket accept", "error", err)
			return
		}
		defer conn.CloseNow()

		logger.Debug("page connected", "remote", r.RemoteAddr)
		NewClient(hub, conn).Run(r.Context())
		conn.Close(ws.StatusNormalClosure, "")
	}
}

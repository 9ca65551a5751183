package api

import (
	"log/slog"
	"net/http"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

// streamHandler upgrades the connection to a WebSocket and pushes every
// entry published on the broker as one JSON text frame.
func streamHandler(broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, _, _, err := ws.UpgradeHTTP(r, w)
		if err != nil {
			slog.Debug("stream upgrade failed", "remote", r.RemoteAddr, "error", err)
			return
		}

		id, ch := broker.Subscribe()
		slog.Info("stream client connected", "subscriber", id, "remote", r.RemoteAddr)

		// Drain client frames so close/ping frames are handled; any read
		// error means the client is gone.
		go func() {
			for {
				if _, _, err := wsutil.ReadClientData(conn); err != nil {
					broker.Unsubscribe(id)
					return
				}
			}
		}()

		for payload := range ch {
			if err := wsutil.WriteServerText(conn, payload); err != nil {
				slog.Debug("stream write failed", "subscriber", id, "error", err)
				break
			}
		}

		broker.Unsubscribe(id)
		if err := conn.Close(); err != nil {
			slog.Debug("stream close failed", "subscriber", id, "error", err)
		}
		slog.Info("stream client disconnected", "subscriber", id)
	}
}

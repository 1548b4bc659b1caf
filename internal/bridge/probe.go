package bridge

import (
	"context"

	"github.com/gorilla/websocket"
)

// DetectBridge reports whether a bridge daemon accepts a WebSocket
// connection at url within the connect timeout. The probe closes whatever
// it opened on every path and has no side effects, so it may run
// repeatedly and concurrently.
func DetectBridge(ctx context.Context, url string) bool {
	dialer := &websocket.Dialer{HandshakeTimeout: connectTimeout}

	conn, resp, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		return false
	}

	_ = conn.Close()
	return true
}

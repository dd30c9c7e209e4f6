// Package testhelpers provides utilities shared by the chat relay's HTTP and
// WebSocket tests: test servers, cookie-authenticated dialers and JSON frame
// helpers.
package testhelpers

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// IdentityCookie mirrors the server's cookie name so tests can authenticate.
const IdentityCookie = "X-Authorization"

// identityCookie encodes identity the way the server's register endpoint does.
func identityCookie(identity string) *http.Cookie {
	return &http.Cookie{Name: IdentityCookie, Value: url.QueryEscape(identity)}
}

// DefaultTimeout bounds every blocking helper.
const DefaultTimeout = 2 * time.Second

// CreateTestServer starts an httptest server that is closed with the test.
func CreateTestServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

// WebSocketURL converts an http:// test server URL into a ws:// URL for path.
func WebSocketURL(serverURL, path string) string {
	return "ws" + strings.TrimPrefix(serverURL, "http") + path
}

// MakeRequest creates and executes an HTTP request, returning the response.
// The identity cookie is attached when identity is not empty.
func MakeRequest(t *testing.T, method, url, identity string) *http.Response {
	t.Helper()

	client := &http.Client{Timeout: DefaultTimeout}

	req, err := http.NewRequest(method, url, http.NoBody)
	require.NoError(t, err)
	if identity != "" {
		req.AddCookie(identityCookie(identity))
	}

	resp, err := client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

// DialChat opens a WebSocket with the given origin and identity cookie. The
// handshake response is returned so callers can inspect refusals.
func DialChat(url, origin, identity string) (*websocket.Conn, *http.Response, error) {
	dialer := websocket.Dialer{HandshakeTimeout: DefaultTimeout}

	headers := http.Header{}
	if origin != "" {
		headers.Set("Origin", origin)
	}
	if identity != "" {
		headers.Set("Cookie", identityCookie(identity).String())
	}

	conn, resp, err := dialer.Dial(url, headers)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	return conn, resp, err
}

// MustDialChat dials and fails the test on error. The connection is closed
// with the test.
func MustDialChat(t *testing.T, url, origin, identity string) *websocket.Conn {
	t.Helper()
	conn, _, err := DialChat(url, origin, identity)
	require.NoError(t, err, "dial %s as %q", url, identity)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// SendJSON writes v as one text frame.
func SendJSON(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	require.NoError(t, conn.SetWriteDeadline(time.Now().Add(DefaultTimeout)))
	require.NoError(t, conn.WriteJSON(v))
}

// ReceiveJSON reads one frame and decodes it as a JSON object.
func ReceiveJSON(conn *websocket.Conn, timeout time.Duration) (map[string]any, error) {
	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return nil, err
	}
	var message map[string]any
	_, data, err := conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &message); err != nil {
		return nil, err
	}
	return message, nil
}

// ExpectJSON reads one frame and requires it to equal want.
func ExpectJSON(t *testing.T, conn *websocket.Conn, want map[string]any) {
	t.Helper()
	got, err := ReceiveJSON(conn, DefaultTimeout)
	require.NoError(t, err, "waiting for %v", want)
	require.Equal(t, want, got)
}

// ExpectNoMessage requires that nothing arrives within timeout.
func ExpectNoMessage(t *testing.T, conn *websocket.Conn, timeout time.Duration) {
	t.Helper()
	got, err := ReceiveJSON(conn, timeout)
	require.Error(t, err, "unexpected message %v", got)
}

// ExpectClosed requires the server to end the connection within timeout.
func ExpectClosed(t *testing.T, conn *websocket.Conn, timeout time.Duration) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(timeout)))
	for {
		_, _, err := conn.ReadMessage()
		if err == nil {
			continue
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			t.Fatalf("connection still open after %s", timeout)
		}
		return
	}
}

// SystemMessage is the {sender, message} frame the relay announces.
func SystemMessage(sender, text string) map[string]any {
	return map[string]any{"sender": sender, "message": text}
}

// CloseWebSocket gracefully closes a WebSocket connection.
func CloseWebSocket(conn *websocket.Conn) error {
	err := conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil {
		return err
	}
	return conn.Close()
}

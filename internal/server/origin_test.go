package server

import (
	"bytes"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/chatrelay/internal/logging"
)

func requestWithOrigin(origin string) *http.Request {
	r, _ := http.NewRequest(http.MethodGet, "/api/chat", http.NoBody)
	if origin != "" {
		r.Header.Set("Origin", origin)
	}
	return r
}

func TestOriginPolicy(t *testing.T) {
	policy := newOriginPolicy([]string{"http://example.com", " https://chat.example.com:8443 ", "not-a-url"}, logging.Discard())

	tests := []struct {
		origin string
		want   bool
	}{
		{"http://example.com", true},
		{"HTTP://EXAMPLE.COM", true},
		{"http://Example.Com", true},
		{"https://chat.example.com:8443", true},
		{"https://example.com", false},
		{"http://evil.com", false},
		{"", false},
		{"not-a-url", false},
		{"ftp://example.com", false},
		{"javascript:alert(1)", false},
	}

	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			assert.Equal(t, tt.want, policy.checkOrigin(requestWithOrigin(tt.origin)))
		})
	}
}

func TestOriginPolicy_Wildcard(t *testing.T) {
	policy := newOriginPolicy([]string{"*"}, logging.Discard())

	assert.True(t, policy.checkOrigin(requestWithOrigin("http://anything.example")))
	assert.False(t, policy.checkOrigin(requestWithOrigin("")), "an Origin header is still required")
}

func TestNormalizeOrigins(t *testing.T) {
	got, allowAll := normalizeOrigins([]string{"", "HTTP://Localhost:8080", "*", "bogus"}, logging.Discard())

	assert.True(t, allowAll)
	assert.Equal(t, []string{"http://localhost:8080"}, got)

	none, allowAll := normalizeOrigins(nil, logging.Discard())
	assert.Nil(t, none)
	assert.False(t, allowAll)
}

func TestOriginPolicy_ReportsInvalidConfiguredOrigins(t *testing.T) {
	cfg := NewConfig()
	cfg.AllowedOrigins = []string{"http://example.com", "bogus"}
	cfg.Sanitize()
	require.Contains(t, cfg.AllowedOrigins, "bogus")

	var buf bytes.Buffer
	policy := newOriginPolicy(cfg.AllowedOrigins, logging.New(&buf, "warn", "json"))

	assert.Contains(t, buf.String(), `"origin":"bogus"`)
	assert.Contains(t, buf.String(), "Ignoring invalid origin")
	assert.False(t, policy.checkOrigin(requestWithOrigin("bogus")))
	assert.True(t, policy.checkOrigin(requestWithOrigin("http://example.com")))
}

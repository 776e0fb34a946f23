package router

import (
	"bufio"
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shandysiswandi/entryotp/internal/pkg/config"
	"github.com/shandysiswandi/entryotp/internal/pkg/instrument"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const trustedProxyYAML = `
app:
  server:
    trusted_proxies: "10.0.0.0/8"
`

func whoami(req *Request) (any, error) {
	return map[string]string{"ip": req.ClientIP()}, nil
}

func TestRouter_ForgedForwardingHeadersFromUntrustedPeer(t *testing.T) {
	// Arrange
	r := newConfiguredRouter(t, trustedProxyYAML)
	r.GET("/whoami", whoami)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.RemoteAddr = "203.0.113.9:5555"
	req.Header.Set("X-Forwarded-For", "1.1.1.1, 2.2.2.2, 3.3.3.3")
	req.Header.Set("X-Real-IP", "1.1.1.1")
	req.Header.Set("True-Client-IP", "2.2.2.2")

	// Act
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	// Assert
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"ip": "203.0.113.9"}, decode(t, rec)["data"])
}

func TestIPResolver_Resolve(t *testing.T) {
	cfg, err := config.NewViperFromBytes("yaml", []byte(trustedProxyYAML))
	require.NoError(t, err)
	res := newIPResolver(cfg)

	tests := []struct {
		name    string
		remote  string
		headers map[string]string
		want    string
	}{
		{
			name:   "untrusted peer without headers",
			remote: "198.51.100.20:4000",
			want:   "198.51.100.20",
		},
		{
			name:    "untrusted peer ignores x-forwarded-for",
			remote:  "203.0.113.9:5555",
			headers: map[string]string{"X-Forwarded-For": "1.1.1.1, 2.2.2.2, 3.3.3.3"},
			want:    "203.0.113.9",
		},
		{
			name:    "trusted proxy honours x-real-ip",
			remote:  "10.1.2.3:443",
			headers: map[string]string{"X-Real-IP": "198.51.100.4"},
			want:    "198.51.100.4",
		},
		{
			name:    "trusted proxy takes right-most untrusted hop",
			remote:  "10.1.2.3:443",
			headers: map[string]string{"X-Forwarded-For": "1.1.1.1, 198.51.100.7, 10.0.0.5"},
			want:    "198.51.100.7",
		},
		{
			name:    "trusted proxy with garbage header falls back to peer",
			remote:  "10.1.2.3:443",
			headers: map[string]string{"X-Forwarded-For": "unknown", "X-Real-IP": "not-an-ip"},
			want:    "10.1.2.3",
		},
		{
			name:    "ipv4 mapped peer is unmapped",
			remote:  "[::ffff:10.9.9.9]:80",
			headers: map[string]string{"X-Real-IP": "198.51.100.8"},
			want:    "198.51.100.8",
		},
		{
			name:   "unparseable remote",
			remote: "pipe",
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}

			// Act
			got := res.resolve(req)

			// Assert
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewIPResolver_SkipsInvalidEntries(t *testing.T) {
	// Arrange
	cfg, err := config.NewViperFromBytes("yaml", []byte(`
app:
  server:
    trusted_proxies: "not-a-cidr,192.0.2.1,2001:db8::/32"
`))
	require.NoError(t, err)

	// Act
	res := newIPResolver(cfg)

	// Assert
	require.Len(t, res.trusted, 2)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:80"
	req.Header.Set("X-Real-IP", "198.51.100.1")
	assert.Equal(t, "198.51.100.1", res.resolve(req))

	req.RemoteAddr = "192.0.2.2:80"
	assert.Equal(t, "192.0.2.2", res.resolve(req))
}

func TestMiddlewareCorrelationID(t *testing.T) {
	tests := []struct {
		name   string
		header string
		value  string
		want   string
	}{
		{name: "accepted", header: HeaderCorrelationID, value: "abc-123_x.y:z", want: "abc-123_x.y:z"},
		{name: "request id fallback", header: HeaderRequestID, value: "req-9", want: "req-9"},
		{name: "space rejected", header: HeaderCorrelationID, value: "abc 123", want: "cid-test"},
		{name: "too long rejected", header: HeaderCorrelationID, value: strings.Repeat("a", maxCorrelationIDLen+1), want: "cid-test"},
		{name: "absent", want: "cid-test"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			var seen string
			h := middlewareCorrelationID(fixedID("cid-test"))(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				seen = instrument.GetCorrelationID(r.Context())
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}

			// Act
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			// Assert
			assert.Equal(t, tt.want, seen)
			assert.Equal(t, tt.want, rec.Header().Get(HeaderCorrelationID))
		})
	}
}

func TestRouter_RecoversPanic(t *testing.T) {
	// Arrange
	r := newTestRouter(nil)
	r.GET("/boom", func(*Request) (any, error) { panic("nil map write") })

	// Act
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	// Assert
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error", decode(t, rec)["message"])
}

func TestMiddlewareRecoverer_RethrowsAbort(t *testing.T) {
	// Arrange
	h := middlewareRecoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	// Act & Assert
	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}

func TestRouter_Maintenance(t *testing.T) {
	// Arrange
	r := newConfiguredRouter(t, `
app:
  maintenance:
    endpoints: "POST /api/v1/otp/send,/api/v1/admin/exports"
    message: "Registrations are closed for today."
`)
	ok := func(*Request) (any, error) { return map[string]string{"ok": "yes"}, nil }
	r.POST("/api/v1/otp/send", ok)
	r.GET("/api/v1/otp/send", ok)
	r.GET("/api/v1/admin/exports", ok)

	call := func(method, path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
		return rec
	}

	// Act
	closed := call(http.MethodPost, "/api/v1/otp/send")
	otherMethod := call(http.MethodGet, "/api/v1/otp/send")
	anyMethod := call(http.MethodGet, "/api/v1/admin/exports")

	// Assert
	assert.Equal(t, http.StatusServiceUnavailable, closed.Code)
	assert.Equal(t, "3600", closed.Header().Get("Retry-After"))
	assert.Equal(t, "Registrations are closed for today.", decode(t, closed)["message"])
	assert.Equal(t, http.StatusOK, otherMethod.Code)
	assert.Equal(t, http.StatusServiceUnavailable, anyMethod.Code)
}

func TestUnderMaintenance_DefaultMessage(t *testing.T) {
	// Arrange
	r := newConfiguredRouter(t, `
app:
  maintenance:
    endpoints: "/ping"
`)
	r.GET("/ping", func(*Request) (any, error) { return nil, nil })

	// Act
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	// Assert
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, defaultMaintenanceMessage, decode(t, rec)["message"])
}

// captureLogs swaps the default logger for a JSON one writing to a buffer.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return buf
}

func logLines(t *testing.T, buf *bytes.Buffer) map[string]map[string]any {
	t.Helper()
	lines := map[string]map[string]any{}
	sc := bufio.NewScanner(buf)
	for sc.Scan() {
		var line map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &line))
		if msg, ok := line["msg"].(string); ok {
			lines[msg] = line
		}
	}
	return lines
}

func TestObservability_MasksContactsAndRecordsOutcome(t *testing.T) {
	// Arrange
	buf := captureLogs(t)
	r := newConfiguredRouter(t, `
instrument:
  log_mask_fields: "code"
  log_contact_fields: "phone,email"
`)
	r.POST("/api/v1/otp/verify", func(req *Request) (any, error) {
		instrument.TagEntry(req.Context(), 42)
		instrument.TagOutcome(req.Context(), "mismatch")
		return map[string]string{"email": "anita@example.test"}, nil
	})
	body := `{"phone":"9876543210","code":"042917"}`

	// Act
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/otp/verify", strings.NewReader(body)))

	// Assert
	require.Equal(t, http.StatusOK, rec.Code)
	lines := logLines(t, buf)

	received := lines["request received"]
	require.NotNil(t, received)
	assert.Equal(t, map[string]any{"phone": "987***3210", "code": "***"}, received["body"])

	sent := lines["response sent"]
	require.NotNil(t, sent)
	assert.Equal(t, "mismatch", sent["outcome"])
	assert.Equal(t, "/api/v1/otp/verify", sent["path"])
	data := sent["body"].(map[string]any)["data"]
	assert.Equal(t, map[string]any{"email": "an***@example.test"}, data)
	assert.NotContains(t, buf.String(), "9876543210")
}

func TestObservability_OmitsConfiguredRoutes(t *testing.T) {
	// Arrange
	buf := captureLogs(t)
	r := newConfiguredRouter(t, `
instrument:
  log_body_omit_routes: "/api/v1/admin/exports/:id"
`)
	r.GET("/api/v1/admin/exports/:id", func(*Request) (any, error) {
		return map[string]string{"url": "https://bucket.example.test/x?X-Amz-Signature=abc"}, nil
	})

	// Act
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/admin/exports/7", nil))

	// Assert
	require.Equal(t, http.StatusOK, rec.Code)
	sent := logLines(t, buf)["response sent"]
	require.NotNil(t, sent)
	assert.Equal(t, "<omitted>", sent["body"])
	assert.Equal(t, "/api/v1/admin/exports/:id", sent["path"])
	assert.NotContains(t, buf.String(), "X-Amz-Signature")
}

func TestBodyLog_Render(t *testing.T) {
	b := newBodyLog(nil)

	tests := []struct {
		name   string
		body   []byte
		capped bool
		want   any
	}{
		{name: "empty", body: nil, want: nil},
		{name: "capped", body: []byte(`{"a":1}`), capped: true, want: "<truncated>"},
		{name: "plain text", body: []byte("hello"), want: "<non-json>"},
		{name: "binary", body: []byte{0xff, 0xfe, 0x00}, want: "<binary>"},
		{name: "json array", body: []byte(`[{"name":"Anita"}]`), want: []any{map[string]any{"name": "A***"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Act
			got := b.render("/x", tt.body, tt.capped)

			// Assert
			assert.Equal(t, tt.want, got)
		})
	}
}

package router

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shandysiswandi/entryotp/internal/pkg/config"
	"github.com/shandysiswandi/entryotp/internal/pkg/goerror"
	"github.com/shandysiswandi/entryotp/internal/pkg/instrument"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

type fixedID string

func (f fixedID) Generate() string { return string(f) }

type createdResp struct {
	ID string `json:"id"`
}

func (createdResp) Message() string { return "created" }

func newTestRouter(lim *limiter.Limiter) *Router {
	return NewRouter(Config{
		UUID:       fixedID("cid-test"),
		Instrument: instrument.NewNoop(),
		Limiter:    lim,
	})
}

func newConfiguredRouter(t *testing.T, yaml string) *Router {
	t.Helper()
	cfg, err := config.NewViperFromBytes("yaml", []byte(yaml))
	require.NoError(t, err)
	return NewRouter(Config{
		Config:     cfg,
		UUID:       fixedID("cid-test"),
		Instrument: instrument.NewNoop(),
	})
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestRouter_SuccessEnvelope(t *testing.T) {
	// Arrange
	r := newTestRouter(nil)
	r.POST("/items/:id", func(req *Request) (any, error) {
		return createdResp{ID: req.GetParam("id")}, nil
	})

	// Act
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/items/42", nil))

	// Assert
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cid-test", rec.Header().Get(HeaderCorrelationID))
	body := decode(t, rec)
	assert.Equal(t, "created", body["message"])
	assert.Equal(t, map[string]any{"id": "42"}, body["data"])
}

func TestRouter_ErrorEnvelope(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
		wantFields map[string]any
	}{
		{
			name:       "business with fields",
			err:        goerror.NewBusiness("Invalid OTP. 2 attempts remaining.", goerror.CodeBadRequest, "remaining_attempts", "2"),
			wantStatus: http.StatusBadRequest,
			wantMsg:    "Invalid OTP. 2 attempts remaining.",
			wantFields: map[string]any{"remaining_attempts": "2"},
		},
		{
			name:       "rate limited",
			err:        goerror.NewBusiness("Too many OTP requests. Please try again later.", goerror.CodeTooManyRequest),
			wantStatus: http.StatusTooManyRequests,
			wantMsg:    "Too many OTP requests. Please try again later.",
		},
		{
			name:       "plain error hides cause",
			err:        errors.New("pq: connection refused"),
			wantStatus: http.StatusInternalServerError,
			wantMsg:    "Internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(nil)
			r.GET("/fail", func(*Request) (any, error) { return nil, tt.err })

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/fail", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			body := decode(t, rec)
			assert.Equal(t, tt.wantMsg, body["message"])
			if tt.wantFields != nil {
				assert.Equal(t, tt.wantFields, body["error"])
			}
		})
	}
}

func TestRouter_NoContent(t *testing.T) {
	// Arrange
	r := newTestRouter(nil)
	r.DELETE("/items/:id", func(*Request) (any, error) { return nil, nil })

	// Act
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/items/1", nil))

	// Assert
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRouter_RateLimit(t *testing.T) {
	// Arrange
	lim := limiter.New(memory.NewStore(), limiter.Rate{Period: time.Minute, Limit: 2})
	r := newTestRouter(lim)
	r.GET("/ping", func(*Request) (any, error) { return map[string]string{"pong": "ok"}, nil })
	r.GET("/health", func(*Request) (any, error) { return map[string]string{"status": "ok"}, nil })

	call := func(path, ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = ip + ":1234"
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	// Act & Assert
	assert.Equal(t, http.StatusOK, call("/ping", "10.0.0.1").Code)
	second := call("/ping", "10.0.0.1")
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "0", second.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, http.StatusTooManyRequests, call("/ping", "10.0.0.1").Code)

	// other callers and exempt routes are unaffected
	assert.Equal(t, http.StatusOK, call("/ping", "10.0.0.2").Code)
	assert.Equal(t, http.StatusOK, call("/health", "10.0.0.1").Code)
}

func TestRequest_DecodeBody(t *testing.T) {
	var dst struct {
		Code string `json:"code"`
	}

	ok := &Request{Request: httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"code":"123456"}`))}
	require.NoError(t, ok.DecodeBody(&dst))
	assert.Equal(t, "123456", dst.Code)

	unknown := &Request{Request: httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"code":"1","x":1}`))}
	assert.True(t, goerror.Is(unknown.DecodeBody(&dst), goerror.CodeInvalidFormat))

	trailing := &Request{Request: httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"code":"1"}{}`))}
	assert.True(t, goerror.Is(trailing.DecodeBody(&dst), goerror.CodeInvalidFormat))
}


func TestRequest_DecodeBodyTooLarge(t *testing.T) {
	// Arrange
	var dst struct {
		Name string `json:"name"`
	}
	big := `{"name":"` + strings.Repeat("a", maxBodyBytes) + `"}`
	req := &Request{Request: httptest.NewRequest(http.MethodPost, "/", strings.NewReader(big))}

	// Act
	err := req.DecodeBody(&dst)

	// Assert
	assert.True(t, goerror.Is(err, goerror.CodeInvalidFormat))
}

func TestRequest_Pagination(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		wantPage int32
		wantSize int32
		wantErr  bool
	}{
		{name: "absent", query: "", wantPage: 0, wantSize: 0},
		{name: "both", query: "?page=3&size=25", wantPage: 3, wantSize: 25},
		{name: "bad page", query: "?page=x", wantErr: true},
		{name: "size overflows int32", query: "?size=2147483648", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			req := &Request{Request: httptest.NewRequest(http.MethodGet, "/list"+tt.query, nil)}

			// Act
			page, size, err := req.Pagination()

			// Assert
			if tt.wantErr {
				assert.True(t, goerror.Is(err, goerror.CodeInvalidFormat))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantPage, page)
			assert.Equal(t, tt.wantSize, size)
		})
	}
}

package router

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/shandysiswandi/entryotp/internal/pkg/goerror"
	"github.com/shandysiswandi/entryotp/internal/pkg/validator"
)

type errorResponse struct {
	Message string            `json:"message" example:"Invalid OTP. 2 attempts remaining."`
	Error   map[string]string `json:"error,omitempty"`
}

type successResponse struct {
	Message string         `json:"message" example:"OTP sent successfully"`
	Data    any            `json:"data" swaggertype:"object"`
	Meta    map[string]any `json:"meta,omitempty" swaggertype:"object"`
}

// Optional interfaces a handler payload may implement to shape the envelope.
type (
	messager    interface{ Message() string }
	statusCoder interface{ StatusCode() int }
	metaer      interface{ Meta() map[string]any }
)

// writeError renders err as {message, error}. Only *goerror.Error reaches the
// client as is; anything else is an opaque 500. Validation failures list the
// offending fields, business errors their extra fields (remaining_attempts).
func writeError(w http.ResponseWriter, err error) {
	var gerr *goerror.Error
	if !errors.As(err, &gerr) {
		writeJSON(w, errorResponse{Message: "Internal server error"}, http.StatusInternalServerError)
		return
	}

	resp := errorResponse{Message: gerr.Msg()}
	var verr validator.V10ValidationError
	switch {
	case errors.As(err, &verr):
		resp.Error = verr.Values()
	case len(gerr.Fields()) > 0:
		resp.Error = gerr.Fields()
	}

	writeJSON(w, resp, gerr.StatusCode())
}

func writeSuccess(w http.ResponseWriter, resp any) {
	code := http.StatusOK
	if sc, ok := resp.(statusCoder); ok {
		code = sc.StatusCode()
	}
	if resp == nil || code == http.StatusNoContent {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	env := successResponse{Message: "request has been successfully", Data: resp}
	if m, ok := resp.(messager); ok {
		env.Message = m.Message()
	}
	if m, ok := resp.(metaer); ok {
		env.Meta = m.Meta()
	}
	writeJSON(w, env, code)
}

func messageHandler(code int, msg string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]string{"message": msg}, code)
	})
}

func writeJSON(w http.ResponseWriter, data any, code int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

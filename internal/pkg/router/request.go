package router

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/julienschmidt/httprouter"
	"github.com/shandysiswandi/entryotp/internal/pkg/goerror"
)

// maxBodyBytes bounds JSON request bodies; OTP and admin payloads are tiny.
const maxBodyBytes = 64 * 1024

// Request wraps http.Request with helpers for inbound handlers.
type Request struct {
	*http.Request
}

func (r *Request) GetParam(key string) string {
	return httprouter.ParamsFromContext(r.Context()).ByName(key)
}

// ClientIP returns the caller IP as settled by the IP resolver.
func (r *Request) ClientIP() string {
	return clientIP(r.Request)
}

func (r *Request) GetParamInt64(key string) (int64, error) {
	value, err := strconv.ParseInt(r.GetParam(key), 10, 64)
	if err != nil {
		return 0, goerror.NewInvalidFormat(key + " must be an integer")
	}
	return value, nil
}

// GetQuery returns the trimmed query value for key.
func (r *Request) GetQuery(key string) string {
	return strings.TrimSpace(r.URL.Query().Get(key))
}

// GetQueryInt32 returns 0 when key is absent.
func (r *Request) GetQueryInt32(key string) (int32, error) {
	raw := r.GetQuery(key)
	if raw == "" {
		return 0, nil
	}

	value, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return 0, goerror.NewInvalidFormat("Invalid query " + key)
	}
	return int32(value), nil
}

// Pagination reads the page and size query values shared by the admin list
// endpoints. Zero means "use the default"; usecases clamp the rest.
func (r *Request) Pagination() (page, size int32, err error) {
	if page, err = r.GetQueryInt32("page"); err != nil {
		return 0, 0, err
	}
	if size, err = r.GetQueryInt32("size"); err != nil {
		return 0, 0, err
	}
	return page, size, nil
}

// DecodeBody decodes exactly one JSON object into dst. Unknown fields,
// trailing data and oversized bodies are rejected as invalid format.
func (r *Request) DecodeBody(dst any) error {
	if r == nil || r.Body == nil {
		return goerror.NewInvalidFormat()
	}

	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return goerror.NewInvalidFormat()
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return goerror.NewInvalidFormat()
	}
	return nil
}

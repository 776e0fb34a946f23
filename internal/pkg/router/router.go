package router

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/shandysiswandi/entryotp/internal/pkg/config"
	"github.com/shandysiswandi/entryotp/internal/pkg/instrument"
	"github.com/shandysiswandi/entryotp/internal/pkg/uid"
	"github.com/ulule/limiter/v3"
)

// Handler returns a payload for the success envelope or an error for the
// error envelope.
type Handler func(r *Request) (any, error)

// Config holds dependencies required to build a Router.
type Config struct {
	// Config supplies trusted proxies, maintenance routes and log masking.
	Config config.Config
	// UUID generates request correlation IDs.
	UUID uid.StringID
	// Instrument provides tracing and metrics helpers.
	Instrument instrument.Instrumentation
	// Limiter caps requests per client IP. Nil disables the edge limit.
	Limiter *limiter.Limiter
}

// Router is an http.Handler that wraps httprouter and a middleware chain.
type Router struct {
	hr  *httprouter.Router
	mws []Middleware
}

// rateLimitExempt keeps health checks and the banner outside the edge limiter.
var rateLimitExempt = map[string]map[string]struct{}{
	http.MethodGet: {"/": {}, "/health": {}},
}

// NewRouter builds the application router. Middleware order matters: the
// client IP must be settled before the access log and the limiter read it.
func NewRouter(cfg Config) *Router {
	hr := &httprouter.Router{
		RedirectTrailingSlash:  true,
		RedirectFixedPath:      true,
		HandleMethodNotAllowed: true,
		HandleOPTIONS:          true,
		SaveMatchedRoutePath:   true,
		NotFound:               messageHandler(http.StatusNotFound, "endpoint not found"),
		MethodNotAllowed:       messageHandler(http.StatusMethodNotAllowed, "method not allowed"),
	}
	hr.Handler(http.MethodGet, "/", messageHandler(http.StatusOK, "Welcome to API EntryOTP"))

	return &Router{
		hr: hr,
		mws: []Middleware{
			middlewareRecoverer,
			newIPResolver(cfg.Config).middleware,
			middlewareCorrelationID(cfg.UUID),
			middlewareObservability(cfg.Config, cfg.Instrument),
			middlewareMaintenance(cfg.Config),
			middlewareRateLimit(cfg.Limiter, rateLimitExempt),
		},
	}
}

func (r *Router) GET(path string, h Handler, mws ...Middleware) {
	r.endpoint(http.MethodGet, path, h, mws...)
}

func (r *Router) POST(path string, h Handler, mws ...Middleware) {
	r.endpoint(http.MethodPost, path, h, mws...)
}

func (r *Router) DELETE(path string, h Handler, mws ...Middleware) {
	r.endpoint(http.MethodDelete, path, h, mws...)
}

func (r *Router) endpoint(method, path string, h Handler, mws ...Middleware) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		resp, err := h(&Request{Request: req})
		if err != nil {
			if setter, ok := w.(interface{ SetError(error) }); ok {
				setter.SetError(err)
			}
			writeError(w, err)
			return
		}
		writeSuccess(w, resp)
	})

	r.hr.Handler(method, path, Chain(handler, append(r.mws, mws...)...))
}

// ServeHTTP implements http.Handler.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.hr.ServeHTTP(w, req)
}

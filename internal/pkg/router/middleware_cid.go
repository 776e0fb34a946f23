package router

import (
	"net/http"

	"github.com/shandysiswandi/entryotp/internal/pkg/instrument"
	"github.com/shandysiswandi/entryotp/internal/pkg/uid"
)

const (
	// HeaderCorrelationID is echoed on every response and carried into the
	// entry_verified event so the confirmation consumer logs under the same id.
	HeaderCorrelationID = "X-Correlation-ID"
	// HeaderRequestID is accepted from proxies that only set this one.
	HeaderRequestID = "X-Request-ID"

	maxCorrelationIDLen = 64
)

// acceptCID keeps a caller supplied id only when it is short and made of
// characters that cannot break a log line or a header: letters, digits and
// "-_.:".
func acceptCID(v string) bool {
	if v == "" || len(v) > maxCorrelationIDLen {
		return false
	}
	for i := 0; i < len(v); i++ {
		switch c := v[i]; {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-', c == '_', c == '.', c == ':':
		default:
			return false
		}
	}
	return true
}

func middlewareCorrelationID(gen uid.StringID) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cid := ""
			for _, h := range []string{HeaderCorrelationID, HeaderRequestID} {
				if v := r.Header.Get(h); acceptCID(v) {
					cid = v
					break
				}
			}
			if cid == "" && gen != nil {
				cid = gen.Generate()
			}

			if cid != "" {
				w.Header().Set(HeaderCorrelationID, cid)
				r = r.WithContext(instrument.SetCorrelationID(r.Context(), cid))
			}
			next.ServeHTTP(w, r)
		})
	}
}

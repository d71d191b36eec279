// internal/server/handlers/params.go

package handlers

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
)

// urlParam returns a decoded route parameter. chi matches against the raw
// path whenever the request carries escaped bytes such as %2F, so the
// captured value is still percent-encoded in that case.
func urlParam(r *http.Request, key string) string {
	value := chi.URLParam(r, key)
	if r.URL.RawPath == "" {
		return value
	}

	decoded, err := url.PathUnescape(value)
	if err != nil {
		return value
	}

	return decoded
}

package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/snapsearch/snap-search/internal/pkg/logger"

	apperrors "github.com/snapsearch/snap-search/internal/pkg/errors"
)

// Recovery converts a handler panic into a 500 response so one bad
// request cannot take the server down. The panic value and stack go to
// the log only, never to the client.
func Recovery(log *logger.Logger, next http.Handler) http.Handler {
	if log == nil {
		log = logger.Default()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error("Handler panic",
					"method", r.Method,
					"path", r.URL.Path,
					"panic", rec,
					"stack", string(debug.Stack()),
				)
				apperrors.WriteError(w, apperrors.InternalError("request failed", fmt.Errorf("%v", rec)))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

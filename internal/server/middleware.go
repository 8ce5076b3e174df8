package server

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
)

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (s *Service) LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		s.metrics.HTTPRequests.WithLabelValues(r.Method, strconv.Itoa(rw.statusCode)).Inc()

		s.logger.WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rw.statusCode,
			"duration_ms": time.Since(started).Milliseconds(),
		}).Info("http request")
	})
}

// CORS answers preflight requests and sets the allow-origin header. With no
// configured origins every origin is allowed outside production.
func (s *Service) CORS(next http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowOriginFunc:      s.originAllowed,
		AllowedMethods:       []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:       []string{"Content-Type", "Authorization"},
		AllowCredentials:     true,
		MaxAge:               43200,
		OptionsSuccessStatus: http.StatusNoContent,
	}).Handler(next)
}

func (s *Service) originAllowed(origin string) bool {
	if len(s.config.CORSOrigins) == 0 {
		return s.config.Environment != "production"
	}
	return slices.Contains(s.config.CORSOrigins, origin)
}

func (s *Service) StripTrailingSlash(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		// Redirecting a POST would drop its body, so only reads are redirected
		if r.Method == http.MethodGet && path != "/" && strings.HasSuffix(path, "/") && !strings.HasPrefix(path, "/uploads/") {
			newURL := *r.URL
			newURL.Path = strings.TrimSuffix(path, "/")

			http.Redirect(w, r, newURL.String(), http.StatusMovedPermanently)
			return
		}

		next.ServeHTTP(w, r)
	})
}

package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"time"
)

// responseWriter wraps http.ResponseWriter to capture the status code and,
// at the highest verbosity, the response body for logging.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	body       bytes.Buffer
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(p []byte) (int, error) {
	rw.body.Write(p)
	return rw.ResponseWriter.Write(p)
}

// withLogging wraps handler with request/response logging gated by
// s.verbose: 0 logs nothing, 1 logs a one-line request summary, 2 also logs
// the request and response bodies.
func (s *Server) withLogging(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.verbose == 0 {
			handler.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		var reqBody []byte
		if s.verbose >= 2 && r.Body != nil {
			reqBody, _ = io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewReader(reqBody))
		}

		handler.ServeHTTP(wrapped, r)

		s.log.Infof("%s %s -> %d in %.1fms", r.Method, r.URL.Path, wrapped.statusCode,
			float64(time.Since(start).Microseconds())/1000.0)

		if s.verbose >= 2 {
			if len(reqBody) > 0 {
				s.log.Debugf("request body:%s", formatMaybeJSON(reqBody))
			}
			if respBody := wrapped.body.Bytes(); len(respBody) > 0 {
				s.log.Debugf("response body:%s", formatMaybeJSON(respBody))
			}
		}
	})
}

func formatMaybeJSON(data []byte) string {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return ""
	}
	if trimmed[0] == '{' || trimmed[0] == '[' {
		var v any
		if err := json.Unmarshal(trimmed, &v); err == nil {
			if pretty, err := json.MarshalIndent(v, "", "  "); err == nil {
				return "\n" + string(pretty)
			}
		}
	}
	return " " + string(data)
}

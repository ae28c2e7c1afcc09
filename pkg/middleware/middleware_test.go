package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"heatgrid/pkg/logger"
)

func init() {
	logger.Init("error")
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestChain(t *testing.T) {
	var order []string

	mw := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name+"-before")
				next.ServeHTTP(w, r)
				order = append(order, name+"-after")
			})
		}
	}

	handler := Chain(mw("1"), mw("2"))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		order = append(order, "handler")
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/test", nil))

	expected := []string{"1-before", "2-before", "handler", "2-after", "1-after"}
	if len(order) != len(expected) {
		t.Fatalf("order length = %d, want %d", len(order), len(expected))
	}
	for i, v := range expected {
		if order[i] != v {
			t.Errorf("order[%d] = %s, want %s", i, order[i], v)
		}
	}
}

func TestRequestID(t *testing.T) {
	t.Run("generates id", func(t *testing.T) {
		var gotCtxID string
		handler := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotCtxID = GetRequestID(r.Context())
			w.WriteHeader(http.StatusOK)
		}))

		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/test", nil))

		headerID := rr.Header().Get(RequestIDHeader)
		if headerID == "" {
			t.Fatal("expected X-Request-ID header")
		}
		if gotCtxID != headerID {
			t.Errorf("context id = %q, header id = %q", gotCtxID, headerID)
		}
		if _, err := uuid.Parse(headerID); err != nil {
			t.Errorf("generated id is not a uuid: %v", err)
		}
	})

	t.Run("preserves client id", func(t *testing.T) {
		handler := RequestID()(okHandler())

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(RequestIDHeader, "client-supplied-id")

		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if got := rr.Header().Get(RequestIDHeader); got != "client-supplied-id" {
			t.Errorf("X-Request-ID = %q, want client-supplied-id", got)
		}
	})
}

func TestRecovery(t *testing.T) {
	t.Run("normal execution", func(t *testing.T) {
		handler := Recovery()(okHandler())

		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/test", nil))

		if rr.Code != http.StatusOK {
			t.Errorf("status = %d, want %d", rr.Code, http.StatusOK)
		}
	})

	t.Run("panic recovery", func(t *testing.T) {
		handler := Recovery()(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
			panic("test panic")
		}))

		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/test", nil))

		if rr.Code != http.StatusInternalServerError {
			t.Errorf("status = %d, want %d", rr.Code, http.StatusInternalServerError)
		}

		var envelope errorEnvelope
		if err := json.Unmarshal(rr.Body.Bytes(), &envelope); err != nil {
			t.Fatalf("response is not valid json: %v", err)
		}
		if envelope.Error.Code != "INTERNAL_ERROR" {
			t.Errorf("error code = %q, want INTERNAL_ERROR", envelope.Error.Code)
		}
	})
}

func TestLogging(t *testing.T) {
	t.Run("passes through status", func(t *testing.T) {
		handler := Logging()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusCreated)
		}))

		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/test", nil))

		if rr.Code != http.StatusCreated {
			t.Errorf("status = %d, want %d", rr.Code, http.StatusCreated)
		}
	})

	t.Run("passes through body", func(t *testing.T) {
		handler := Logging()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("payload"))
		}))

		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/test", nil))

		if rr.Body.String() != "payload" {
			t.Errorf("body = %q, want payload", rr.Body.String())
		}
	})
}

func TestMetricsMiddleware(t *testing.T) {
	handler := Metrics()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/plans", nil))

	if rr.Code != http.StatusAccepted {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusAccepted)
	}
}

func TestStack(t *testing.T) {
	t.Run("minimal config", func(t *testing.T) {
		mw := Stack(&ServerConfig{ServiceName: "topology"})

		// RequestID + Recovery + Metrics + Logging
		if len(mw) != 4 {
			t.Errorf("middleware count = %d, want 4", len(mw))
		}

		handler := Chain(mw...)(okHandler())
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/test", nil))

		if rr.Code != http.StatusOK {
			t.Errorf("status = %d, want %d", rr.Code, http.StatusOK)
		}
		if rr.Header().Get(RequestIDHeader) == "" {
			t.Error("expected X-Request-ID header from stack")
		}
	})

	t.Run("panic inside stack", func(t *testing.T) {
		mw := Stack(&ServerConfig{ServiceName: "topology"})

		handler := Chain(mw...)(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
			panic("boom")
		}))

		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/test", nil))

		if rr.Code != http.StatusInternalServerError {
			t.Errorf("status = %d, want %d", rr.Code, http.StatusInternalServerError)
		}
	})
}

func TestPathToAction(t *testing.T) {
	tests := []struct {
		method   string
		path     string
		expected string
	}{
		{http.MethodPost, "/v1/plans", "PLAN"},
		{http.MethodGet, "/v1/plans/abc", "READ"},
		{http.MethodGet, "/v1/plans/abc/export/geojson", "EXPORT"},
		{http.MethodPost, "/v1/tokens", "LOGIN"},
		{http.MethodDelete, "/v1/plans/abc", "DELETE"},
		{http.MethodPut, "/v1/things/1", "UPDATE"},
		{http.MethodPost, "/v1/things", "CREATE"},
		{http.MethodGet, "/healthz", "READ"},
	}

	for _, tt := range tests {
		action := pathToAction(tt.method, tt.path)
		if string(action) != tt.expected {
			t.Errorf("pathToAction(%s, %s) = %s, want %s", tt.method, tt.path, action, tt.expected)
		}
	}
}

func TestExtractClientIP(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		expected   string
	}{
		{
			name:       "x-forwarded-for single",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.7"},
			remoteAddr: "10.0.0.1:1234",
			expected:   "203.0.113.7",
		},
		{
			name:       "x-forwarded-for chain",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.2"},
			remoteAddr: "10.0.0.1:1234",
			expected:   "203.0.113.7",
		},
		{
			name:       "x-real-ip",
			headers:    map[string]string{"X-Real-IP": "203.0.113.9"},
			remoteAddr: "10.0.0.1:1234",
			expected:   "203.0.113.9",
		},
		{
			name:       "remote addr fallback",
			remoteAddr: "10.0.0.1:1234",
			expected:   "10.0.0.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}

			if got := extractClientIP(req); got != tt.expected {
				t.Errorf("extractClientIP() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestWriteError(t *testing.T) {
	rr := httptest.NewRecorder()
	writeError(rr, http.StatusTooManyRequests, "RATE_LIMITED", "rate limit exceeded")

	if rr.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusTooManyRequests)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q, want application/json", ct)
	}
	if !strings.Contains(rr.Body.String(), "RATE_LIMITED") {
		t.Errorf("body %q missing error code", rr.Body.String())
	}
}

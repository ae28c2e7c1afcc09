package client

import (
	"fmt"
	"io"
	"net/http"
	"time"
)

type ClientConfig struct {
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
}

// NewHTTPClient создает *http.Client с Retry и Timeout
func NewHTTPClient(cfg ClientConfig) *http.Client {
	return &http.Client{
		Timeout: cfg.Timeout,
		Transport: &retryTransport{
			base:       http.DefaultTransport,
			maxRetries: cfg.MaxRetries,
			backoff:    cfg.RetryBackoff,
		},
	}
}

// retryTransport повторяет запрос при сетевых ошибках и ответах 502/503/504.
// Тело запроса восстанавливается через GetBody; запрос с невоспроизводимым
// телом выполняется ровно один раз.
type retryTransport struct {
	base       http.RoundTripper
	maxRetries int
	backoff    time.Duration
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}

	if req.Body != nil && req.GetBody == nil {
		return base.RoundTrip(req)
	}

	var resp *http.Response
	var err error

	for attempt := 0; ; attempt++ {
		r := req
		if attempt > 0 {
			r = req.Clone(req.Context())
			if req.GetBody != nil {
				body, rerr := req.GetBody()
				if rerr != nil {
					return nil, fmt.Errorf("rewind request body: %w", rerr)
				}
				r.Body = body
			}

			select {
			case <-req.Context().Done():
				return nil, req.Context().Err()
			case <-time.After(t.backoff):
			}
		}

		resp, err = base.RoundTrip(r)
		if err == nil && !retryableStatus(resp.StatusCode) {
			return resp, nil
		}
		if attempt >= t.maxRetries {
			return resp, err
		}
		if err == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
		}
	}
}

// retryableStatus сообщает, имеет ли смысл повторять запрос
func retryableStatus(status int) bool {
	switch status {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

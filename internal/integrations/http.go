package integrations

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

const maxResponseBody = 1 << 20

var errServerStatus = errors.New("server error status")

type httpResponse struct {
	Status int
	Body   []byte
}

func (r *httpResponse) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// httpDoer performs JSON requests for one service behind a circuit breaker.
// Transport errors and 5xx responses count against the breaker.
type httpDoer struct {
	service string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	log     *zap.Logger
}

func newHTTPDoer(service string, client *http.Client, log *zap.Logger) *httpDoer {
	settings := gobreaker.Settings{
		Name:        service,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("integration circuit breaker state changed",
				zap.String("service", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}
	return &httpDoer{
		service: service,
		client:  client,
		breaker: gobreaker.NewCircuitBreaker(settings),
		log:     log,
	}
}

// do sends body as JSON (when non-nil). A non-2xx response is returned
// together with a KindStatus error.
func (d *httpDoer) do(ctx context.Context, method, url string, headers map[string]string, body any) (*httpResponse, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, &Error{Kind: KindConfig, Service: d.service, Err: fmt.Errorf("marshal body: %w", err)}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, &Error{Kind: KindConfig, Service: d.service, Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	out, err := d.breaker.Execute(func() (interface{}, error) {
		resp, err := d.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		b, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
		if err != nil {
			return nil, err
		}
		r := &httpResponse{Status: resp.StatusCode, Body: b}
		if resp.StatusCode >= 500 {
			return r, errServerStatus
		}
		return r, nil
	})

	resp, _ := out.(*httpResponse)
	if err != nil && !errors.Is(err, errServerStatus) {
		d.log.Debug("integration request failed", zap.String("service", d.service), zap.String("url", url), zap.Error(err))
		return nil, &Error{Kind: KindTransport, Service: d.service, Err: err}
	}
	if !resp.OK() {
		return resp, &Error{Kind: KindStatus, Service: d.service, Status: resp.Status, Message: string(resp.Body)}
	}
	return resp, nil
}

func decodeJSON(service string, resp *httpResponse, v any) error {
	if len(resp.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, v); err != nil {
		return &Error{Kind: KindDecode, Service: service, Err: err}
	}
	return nil
}

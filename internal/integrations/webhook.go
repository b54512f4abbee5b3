package integrations

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"go.uber.org/zap"
)

type WebhookRequest struct {
	URL     string
	Method  string
	Headers map[string]string
	Body    any
}

type WebhookResponse struct {
	Status int  `json:"status"`
	OK     bool `json:"ok"`
}

// WebhookCaller calls arbitrary user-configured URLs.
type WebhookCaller interface {
	Call(ctx context.Context, req WebhookRequest) (*WebhookResponse, error)
}

// HTTPWebhookCaller keeps one circuit breaker per destination host, so a
// dead endpoint only short-circuits calls to itself.
type HTTPWebhookCaller struct {
	client *http.Client
	log    *zap.Logger
	doers  sync.Map // host -> *httpDoer
}

func NewHTTPWebhookCaller(client *http.Client, log *zap.Logger) *HTTPWebhookCaller {
	return &HTTPWebhookCaller{client: client, log: log}
}

func (c *HTTPWebhookCaller) doerFor(rawURL string) *httpDoer {
	host := ""
	if u, err := url.Parse(rawURL); err == nil {
		host = strings.ToLower(u.Host)
	}
	if d, ok := c.doers.Load(host); ok {
		return d.(*httpDoer)
	}
	d, _ := c.doers.LoadOrStore(host, newHTTPDoer("webhook:"+host, c.client, c.log))
	return d.(*httpDoer)
}

// Call returns a response for every status code; only transport and
// request-building failures are errors.
func (c *HTTPWebhookCaller) Call(ctx context.Context, req WebhookRequest) (*WebhookResponse, error) {
	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodPost
	}

	var body any
	if method != http.MethodGet && method != http.MethodHead {
		body = req.Body
	}

	resp, err := c.doerFor(req.URL).do(ctx, method, req.URL, req.Headers, body)
	if resp != nil {
		return &WebhookResponse{Status: resp.Status, OK: resp.OK()}, nil
	}
	return nil, err
}
